package backend

import "errors"

// Static error definitions for better error handling.
var (
	// ErrUnexpectedHTTPStatus indicates an unexpected HTTP status code was received.
	ErrUnexpectedHTTPStatus = errors.New("unexpected HTTP status")
	// ErrUnauthorized indicates the backend rejected the session token.
	ErrUnauthorized = errors.New("backend rejected the session token")
	// ErrEmptyTokenResponse indicates the backend returned no token on success.
	ErrEmptyTokenResponse = errors.New("backend returned an empty token")
	// ErrEmptyAuthorizationURL indicates the backend returned no authorization URL.
	ErrEmptyAuthorizationURL = errors.New("backend returned an empty authorization URL")
	// ErrUnexpectedTransactionsFormat indicates an unexpected credit transactions response format.
	ErrUnexpectedTransactionsFormat = errors.New("unexpected credit transactions response format")
)
