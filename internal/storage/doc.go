// Package storage provides durable client-side state for the session
// subsystem: the persistent session-token singleton and the short-lived,
// consume-once OAuth handshake record (state nonce and PKCE verifier).
package storage
