package backend

//go:generate $MOCKGEN -source=client.go -destination=mocks/client_mock.go

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/machinebox/graphql"

	"github.com/artfusion-app/artfusion-cli/internal/config"
	http_transport "github.com/artfusion-app/artfusion-cli/internal/transport/http"
	"github.com/artfusion-app/artfusion-cli/internal/utils"
)

// Client defines the interface for interacting with the Artfusion API.
type Client interface {
	// LoginWithTelegram exchanges a signed Mini App payload for a session token.
	LoginWithTelegram(ctx context.Context, initData string) (string, error)
	// RefreshToken requests a replacement token using the current token's residual validity.
	RefreshToken(ctx context.Context) (string, error)
	// GetAuthorizationURL asks the backend to build a provider authorization URL.
	GetAuthorizationURL(ctx context.Context, provider string, request *AuthorizationURLRequest) (string, error)
	// ExchangeCode exchanges an authorization code for a session token.
	ExchangeCode(ctx context.Context, provider string, request *ExchangeCodeRequest) (string, error)
	// GetUserProfile retrieves the authenticated user's profile.
	GetUserProfile(ctx context.Context) (*UserProfile, error)
	// GetCreditTransactions retrieves a page of the user's credit history.
	GetCreditTransactions(ctx context.Context, offset, limit int) ([]*CreditTransaction, error)
	// GetBaseURL returns the base URL of the Artfusion API.
	GetBaseURL() string
}

// ClientImpl implements the Client interface for interacting with the Artfusion API.
type ClientImpl struct {
	// cfg contains the application configuration.
	cfg *config.Config
	// baseURL is the base URL for API requests.
	baseURL string
	// httpClient is the HTTP client for making requests.
	httpClient *http.Client
	// graphQLClient is the GraphQL client for making queries.
	graphQLClient *graphql.Client
}

const (
	// authTelegramURI is the URI path for the Telegram Mini App login endpoint.
	authTelegramURI = "auth/telegram/miniapp"
	// authRefreshURI is the URI path for the token refresh endpoint.
	authRefreshURI = "auth/refresh"
	// authURLURIFormat is the URI path template for authorization URL generation.
	authURLURIFormat = "auth/%s/url"
	// authExchangeURIFormat is the URI path template for code exchange.
	authExchangeURIFormat = "auth/%s/exchange"
	// userProfileURI is the URI path for the user profile endpoint.
	userProfileURI = "user/me"
	// graphQLURI is the URI path for the GraphQL endpoint.
	graphQLURI = "api/graphql"
)

// NewClient creates and returns a new instance of ClientImpl.
// The HTTP pipeline attaches the bearer token from the given source to
// every request and passively invalidates it on 401 responses.
func NewClient(cfg *config.Config, tokens http_transport.TokenSource) (Client, error) {
	baseURL, err := url.Parse(cfg.APIBaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API base URL: %w", err)
	}

	// Assemble the round tripper chain, innermost first.
	pipeline := http_transport.NewLogTransport(http.DefaultTransport, 0)
	pipeline = http_transport.NewUserAgentInjector(
		pipeline, utils.NewStaticUserAgentProvider(http_transport.DefaultUserAgent))
	pipeline = http_transport.NewRequestIDInjector(pipeline)
	pipeline = http_transport.NewBearerInjector(pipeline, tokens)
	pipeline = http_transport.NewAuthWatcher(pipeline, tokens)

	httpClient := &http.Client{
		Transport: pipeline,
		Timeout:   http_transport.DefaultTimeout,
	}

	graphQLURL := baseURL.JoinPath(graphQLURI)
	graphQLClient := graphql.NewClient(graphQLURL.String(), graphql.WithHTTPClient(httpClient))

	return &ClientImpl{
		cfg:           cfg,
		baseURL:       baseURL.String(),
		httpClient:    httpClient,
		graphQLClient: graphQLClient,
	}, nil
}

// LoginWithTelegram exchanges a signed Mini App payload for a session token.
func (c *ClientImpl) LoginWithTelegram(ctx context.Context, initData string) (string, error) {
	var response tokenResponse

	err := c.doJSON(ctx, http.MethodPost, authTelegramURI, nil, &telegramLoginRequest{InitData: initData}, &response)
	if err != nil {
		return "", err
	}

	if response.Token == "" {
		return "", ErrEmptyTokenResponse
	}

	return response.Token, nil
}

// RefreshToken requests a replacement token. The current token is
// attached by the request pipeline.
func (c *ClientImpl) RefreshToken(ctx context.Context) (string, error) {
	var response tokenResponse

	if err := c.doJSON(ctx, http.MethodPost, authRefreshURI, nil, nil, &response); err != nil {
		return "", err
	}

	if response.Token == "" {
		return "", ErrEmptyTokenResponse
	}

	return response.Token, nil
}

// GetAuthorizationURL asks the backend to build a provider authorization URL.
func (c *ClientImpl) GetAuthorizationURL(
	ctx context.Context,
	provider string,
	request *AuthorizationURLRequest,
) (string, error) {
	query := url.Values{}
	query.Set("redirect_uri", request.RedirectURI)
	query.Set("state", request.State)

	if request.CodeChallenge != "" {
		query.Set("code_challenge", request.CodeChallenge)
		query.Set("code_challenge_method", request.CodeChallengeMethod)
	}

	var response authorizationURLResponse

	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf(authURLURIFormat, provider), query, nil, &response)
	if err != nil {
		return "", err
	}

	if response.URL == "" {
		return "", ErrEmptyAuthorizationURL
	}

	return response.URL, nil
}

// ExchangeCode exchanges an authorization code for a session token.
func (c *ClientImpl) ExchangeCode(
	ctx context.Context,
	provider string,
	request *ExchangeCodeRequest,
) (string, error) {
	var response tokenResponse

	err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf(authExchangeURIFormat, provider), nil, request, &response)
	if err != nil {
		return "", err
	}

	if response.Token == "" {
		return "", ErrEmptyTokenResponse
	}

	return response.Token, nil
}

// GetUserProfile retrieves the authenticated user's profile.
func (c *ClientImpl) GetUserProfile(ctx context.Context) (*UserProfile, error) {
	var profile UserProfile
	if err := c.doJSON(ctx, http.MethodGet, userProfileURI, nil, nil, &profile); err != nil {
		return nil, err
	}

	return &profile, nil
}

// GetCreditTransactions retrieves a page of the user's credit history
// via the GraphQL endpoint.
func (c *ClientImpl) GetCreditTransactions(
	ctx context.Context,
	offset, limit int,
) ([]*CreditTransaction, error) {
	graphqlRequest := graphql.NewRequest(`
		query creditTransactions($offset: Int!, $limit: Int!) {
			creditTransactions(offset: $offset, limit: $limit) {
				id
				amount
				kind
				description
				createdAt
			}
		}
	`)

	graphqlRequest.Var("offset", offset)
	graphqlRequest.Var("limit", limit)

	var graphQLResponse map[string]any
	if err := c.graphQLClient.Run(ctx, graphqlRequest, &graphQLResponse); err != nil {
		return nil, err
	}

	// Navigate the response map manually.
	rows, ok := graphQLResponse["creditTransactions"].([]any)
	if !ok {
		return nil, ErrUnexpectedTransactionsFormat
	}

	transactions := make([]*CreditTransaction, 0, len(rows))

	for _, row := range rows {
		entry, hasExpectedFormat := row.(map[string]any)
		if !hasExpectedFormat {
			continue
		}

		transaction := &CreditTransaction{}

		if id, exists := entry["id"].(string); exists {
			transaction.ID = id
		}

		if amount, exists := entry["amount"].(float64); exists {
			transaction.Amount = int64(amount)
		}

		if kind, exists := entry["kind"].(string); exists {
			transaction.Kind = kind
		}

		if description, exists := entry["description"].(string); exists {
			transaction.Description = description
		}

		if createdAt, exists := entry["createdAt"].(string); exists {
			if parsed, parseErr := time.Parse(time.RFC3339, createdAt); parseErr == nil {
				transaction.CreatedAt = parsed
			}
		}

		transactions = append(transactions, transaction)
	}

	return transactions, nil
}

// GetBaseURL returns the base URL of the Artfusion API.
func (c *ClientImpl) GetBaseURL() string {
	return c.baseURL
}

// doJSON performs a JSON request against the given URI path and decodes
// the response into out when out is non-nil.
func (c *ClientImpl) doJSON(
	ctx context.Context,
	method, uri string,
	query url.Values,
	body, out any,
) error {
	requestURL, err := url.JoinPath(c.baseURL, uri)
	if err != nil {
		return fmt.Errorf("failed to build request URL: %w", err)
	}

	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var requestBody io.Reader = http.NoBody

	if body != nil {
		encoded, marshalErr := json.Marshal(body)
		if marshalErr != nil {
			return fmt.Errorf("failed to encode request body: %w", marshalErr)
		}

		requestBody = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, requestURL, requestBody)
	if err != nil {
		return err
	}

	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return err
	}

	defer response.Body.Close() //nolint:errcheck // Error on close is not critical here.

	switch {
	case response.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, uri)
	case response.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: %d", ErrUnexpectedHTTPStatus, response.StatusCode)
	}

	if out == nil {
		return nil
	}

	if err = json.NewDecoder(response.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
