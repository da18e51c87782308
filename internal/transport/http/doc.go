// Package http provides the outbound HTTP request pipeline as a chain of
// http.RoundTripper middlewares: bearer-token injection, passive token
// invalidation on authentication-rejected responses, request-id and
// User-Agent injection, and debug request/response logging.
package http
