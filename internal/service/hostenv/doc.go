// Package hostenv detects the hosting environment the client runs in.
// When the process is launched from a Telegram Mini App wrapper, the
// wrapper hands over the signed init data and the user snapshot through
// environment variables; everywhere else the client runs standalone.
// Detection is performed once and the result is cached for the lifetime
// of the process.
package hostenv
