package http

//go:generate $MOCKGEN -source=token_source.go -destination=mocks/token_source_mock.go

// TokenSource exposes the session token to the request pipeline.
// The pipeline may read the token and, on an authentication-rejected
// response, invalidate it - it must never set a new one. Re-authentication
// is the session controller's responsibility on the next state read.
type TokenSource interface {
	// Token returns the current bearer token, or an empty string.
	Token() string
	// Invalidate erases the current token.
	Invalidate()
}
