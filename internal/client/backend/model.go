package backend

import "time"

// UserProfile represents the authenticated user's profile as returned by
// the backend. The credits block is the authoritative source for the
// balance: every profile fetch overrides any locally cached value.
type UserProfile struct {
	// ID is the platform-wide user identifier.
	ID int64 `json:"id"`
	// Email is the user's email address, if known.
	Email string `json:"email,omitempty"`
	// DisplayName is the user-facing name.
	DisplayName string `json:"display_name,omitempty"`
	// AvatarURL points at the user's avatar image.
	AvatarURL string `json:"avatar_url,omitempty"`
	// TelegramID is set when the account is linked to Telegram.
	TelegramID int64 `json:"telegram_id,omitempty"`
	// GoogleID is set when the account is linked to Google.
	GoogleID string `json:"google_id,omitempty"`
	// YandexID is set when the account is linked to Yandex.
	YandexID string `json:"yandex_id,omitempty"`
	// Credits is the user's credit balance snapshot.
	Credits *UserCredits `json:"credits,omitempty"`
}

// UserCredits is the credit balance snapshot embedded in the profile.
type UserCredits struct {
	// Balance is the current credit balance.
	Balance int64 `json:"balance"`
	// UpdatedAt is when the balance was last recalculated server-side.
	UpdatedAt time.Time `json:"updated_at"`
}

// CreditTransaction is a single entry of the user's credit history.
type CreditTransaction struct {
	// ID is the transaction identifier.
	ID string `json:"id"`
	// Amount is the signed credit delta.
	Amount int64 `json:"amount"`
	// Kind describes the transaction (purchase, generation, refund, ...).
	Kind string `json:"kind"`
	// Description is the human-readable transaction label.
	Description string `json:"description"`
	// CreatedAt is when the transaction was recorded.
	CreatedAt time.Time `json:"createdAt"`
}

// AuthorizationURLRequest carries the parameters for building a
// provider authorization URL.
type AuthorizationURLRequest struct {
	// RedirectURI is the callback the provider must redirect back to.
	RedirectURI string
	// State is the anti-CSRF nonce round-tripped through the redirect.
	State string
	// CodeChallenge is the derived PKCE challenge, when the provider uses PKCE.
	CodeChallenge string
	// CodeChallengeMethod is the challenge derivation method ("s256").
	CodeChallengeMethod string
}

// ExchangeCodeRequest carries the parameters for exchanging an
// authorization code for a session token.
type ExchangeCodeRequest struct {
	// Code is the authorization code returned by the provider.
	Code string `json:"code"`
	// RedirectURI must match the one used to obtain the code.
	RedirectURI string `json:"redirect_uri"`
	// CodeVerifier is the PKCE verifier, when the provider uses PKCE.
	CodeVerifier string `json:"code_verifier,omitempty"`
	// DeviceID is the provider-issued device identifier, when supplied.
	DeviceID string `json:"device_id,omitempty"`
}

// telegramLoginRequest is the wire body for the Mini App login endpoint.
type telegramLoginRequest struct {
	InitData string `json:"init_data"`
}

// tokenResponse is the wire shape of every token-issuing endpoint.
type tokenResponse struct {
	Token string `json:"token"`
}

// authorizationURLResponse is the wire shape of the URL-generation endpoints.
type authorizationURLResponse struct {
	URL string `json:"url"`
}
