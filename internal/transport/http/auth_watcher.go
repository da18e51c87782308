package http

import (
	"net/http"

	"github.com/artfusion-app/artfusion-cli/internal/logger"
)

// AuthWatcher is a custom http.RoundTripper that reacts to
// authentication-rejected responses. On HTTP 401 it treats the current
// token as invalid and erases it from the token source. This is a passive
// reaction only: it never triggers re-authentication itself.
type AuthWatcher struct {
	// next is the underlying HTTP round tripper.
	next http.RoundTripper
	// tokens is the token source to invalidate on rejection.
	tokens TokenSource
}

// NewAuthWatcher creates and returns a new instance of AuthWatcher.
func NewAuthWatcher(next http.RoundTripper, tokens TokenSource) http.RoundTripper {
	return &AuthWatcher{
		next:   next,
		tokens: tokens,
	}
}

// RoundTrip executes a single HTTP transaction and invalidates the cached
// token when the server rejects it. It implements the http.RoundTripper interface.
func (t *AuthWatcher) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		logger.Debugf(req.Context(), "Received 401 from %s, invalidating session token", req.URL.Path)
		t.tokens.Invalidate()
	}

	return resp, nil
}
