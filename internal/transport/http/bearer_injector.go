package http

import "net/http"

// BearerInjector is a custom http.RoundTripper that attaches the session
// token as an Authorization bearer header to every outbound request.
// It wraps another http.RoundTripper and leaves requests untouched when
// no token is currently held.
type BearerInjector struct {
	// next is the underlying HTTP round tripper.
	next http.RoundTripper
	// tokens provides the current session token.
	tokens TokenSource
}

// NewBearerInjector creates and returns a new instance of BearerInjector.
func NewBearerInjector(next http.RoundTripper, tokens TokenSource) http.RoundTripper {
	return &BearerInjector{
		next:   next,
		tokens: tokens,
	}
}

// RoundTrip executes a single HTTP transaction, attaching the bearer token
// when one is cached. It implements the http.RoundTripper interface.
func (t *BearerInjector) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get(authorizationHeader) == "" {
		if token := t.tokens.Token(); token != "" {
			req.Header.Set(authorizationHeader, bearerPrefix+token)
		}
	}

	return t.next.RoundTrip(req)
}
