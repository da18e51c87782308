package http

import (
	"net/http"

	"github.com/google/uuid"
)

// RequestIDInjector is a custom http.RoundTripper that stamps every
// outbound request with a unique X-Request-Id header so backend-side
// traces can be correlated with client logs.
type RequestIDInjector struct {
	// next is the underlying HTTP round tripper.
	next http.RoundTripper
}

// NewRequestIDInjector creates and returns a new instance of RequestIDInjector.
func NewRequestIDInjector(next http.RoundTripper) http.RoundTripper {
	return &RequestIDInjector{next: next}
}

// RoundTrip executes a single HTTP transaction and injects a request id
// if one is missing. It implements the http.RoundTripper interface.
func (t *RequestIDInjector) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get(requestIDHeader) == "" {
		req.Header.Set(requestIDHeader, uuid.NewString())
	}

	return t.next.RoundTrip(req)
}
