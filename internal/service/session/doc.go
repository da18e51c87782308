// Package session owns the client's authentication lifecycle: the
// one-shot startup sequence, the login strategies (Telegram Mini App,
// browser OAuth, debug bypass), logout, proactive token refresh, and the
// observable session state every other component keys off of.
package session
