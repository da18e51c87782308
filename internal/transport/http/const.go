package http

import "time"

const (
	// DefaultTimeout is the default timeout duration for HTTP requests.
	DefaultTimeout = 60 * time.Second

	// DefaultUserAgent identifies the client to the Artfusion backend.
	DefaultUserAgent = "Artfusion-CLI/1.0"

	// authorizationHeader is the HTTP header carrying the bearer token.
	authorizationHeader = "Authorization"

	// requestIDHeader is the HTTP header carrying the per-request id.
	requestIDHeader = "X-Request-Id"

	// userAgentHeader is the HTTP header name for User-Agent.
	userAgentHeader = "User-Agent"

	// bearerPrefix is the Authorization scheme prefix.
	bearerPrefix = "Bearer "
)
