package oauth

import "errors"

// Static error definitions for better error handling.
var (
	// ErrUnknownProvider is returned for a provider outside the supported set.
	ErrUnknownProvider = errors.New("unknown identity provider")

	// ErrProviderReported is returned when the provider redirects back with
	// an error parameter instead of a code.
	ErrProviderReported = errors.New("identity provider reported an error")

	// ErrMissingAuthorizationCode is returned when the callback carries no code.
	ErrMissingAuthorizationCode = errors.New("callback carries no authorization code")

	// ErrStateMismatch is returned when the callback state does not match
	// the stored handshake nonce.
	ErrStateMismatch = errors.New("callback state does not match the stored handshake")

	// ErrMissingCodeVerifier is returned when the stored handshake lacks the
	// PKCE verifier a PKCE provider requires.
	ErrMissingCodeVerifier = errors.New("stored handshake carries no PKCE code verifier")

	// ErrMissingDeviceID is returned when the VK callback lacks the
	// provider-issued device identifier.
	ErrMissingDeviceID = errors.New("callback carries no device identifier")

	// ErrLoginTimeout is returned when the interactive login takes too long.
	ErrLoginTimeout = errors.New("login timeout exceeded")

	// ErrBrowserClosed is returned when the browser is closed before the
	// flow completes.
	ErrBrowserClosed = errors.New("browser was closed before login completed")
)
