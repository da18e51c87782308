// Package utils provides small shared helpers: cryptographically random
// URL-safe strings for OAuth handshakes, content-type classification for
// transport logging, and User-Agent providers for outbound requests.
package utils
