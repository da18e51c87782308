// Package backend implements the HTTP client for the Artfusion platform
// API: token issuance (Telegram Mini App login, OAuth code exchange,
// refresh), authorization-URL generation, the user profile endpoint, and
// the GraphQL credit-transactions query. The backend is an external
// collaborator with a fixed contract; this package owns nothing but the
// wire shapes and the request pipeline.
package backend
