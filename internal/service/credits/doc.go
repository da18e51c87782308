// Package credits exposes the user's credit balance and transaction
// history on top of the session. The profile embedded in the session is
// the authoritative balance source; the last observed value is kept as a
// fallback for the window where the profile is temporarily unavailable.
package credits
