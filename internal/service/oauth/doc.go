// Package oauth implements the browser-assisted authorization-code flow
// against the supported identity providers. The engine asks the backend
// to build a provider authorization URL, drives a visible browser through
// the provider's consent screens, receives the redirect on a loopback
// callback server, and exchanges the returned code for a session token.
// A consume-once handshake record carries the anti-CSRF state nonce and
// the PKCE verifier across the redirect.
package oauth
