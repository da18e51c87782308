package oauth

//go:generate $MOCKGEN -source=service.go -destination=mocks/service_mock.go

import (
	"context"
	"fmt"
	"net/url"

	"github.com/go-rod/rod"

	"github.com/artfusion-app/artfusion-cli/internal/client/backend"
	"github.com/artfusion-app/artfusion-cli/internal/config"
	"github.com/artfusion-app/artfusion-cli/internal/logger"
	"github.com/artfusion-app/artfusion-cli/internal/storage"
	"github.com/artfusion-app/artfusion-cli/internal/utils"
)

// Supported identity providers.
const (
	// ProviderGoogle uses the plain authorization-code flow.
	ProviderGoogle = "google"
	// ProviderYandex uses the plain authorization-code flow.
	ProviderYandex = "yandex"
	// ProviderVK uses PKCE and returns a device identifier in the callback.
	ProviderVK = "vk"
)

const (
	// stateNonceByteCount sizes the anti-CSRF state nonce.
	stateNonceByteCount = 32

	// redirectURIFormat builds the loopback redirect URI the provider
	// sends the browser back to.
	redirectURIFormat = "http://127.0.0.1:%d/auth/callback/%s"
)

// Service drives the browser-assisted authorization-code flow.
type Service interface {
	// Initiate prepares a login attempt: it writes the handshake record and
	// returns the provider authorization URL to navigate to.
	Initiate(ctx context.Context, provider string) (string, error)
	// CompleteCallback validates a provider redirect and exchanges its code
	// for a session token. The token is committed to the token store.
	CompleteCallback(ctx context.Context, provider string, query url.Values) (string, error)
	// Login runs the full interactive flow: initiate, open a browser,
	// wait for the callback, complete it.
	Login(ctx context.Context, provider string) (string, error)
}

// ServiceImpl implements Service.
type ServiceImpl struct {
	cfg        *config.Config
	client     backend.Client
	handshakes storage.HandshakeStore
	tokens     storage.TokenStore

	browser *rod.Browser
	page    *rod.Page
	// tempDir stores the temporary profile directory for cleanup.
	tempDir string
}

// NewService creates a new OAuth engine.
func NewService(
	cfg *config.Config,
	client backend.Client,
	handshakes storage.HandshakeStore,
	tokens storage.TokenStore,
) *ServiceImpl {
	return &ServiceImpl{
		cfg:        cfg,
		client:     client,
		handshakes: handshakes,
		tokens:     tokens,
	}
}

// IsSupportedProvider reports whether the provider is in the supported set.
func IsSupportedProvider(provider string) bool {
	switch provider {
	case ProviderGoogle, ProviderYandex, ProviderVK:
		return true
	default:
		return false
	}
}

// providerUsesPKCE reports whether the provider requires a PKCE exchange.
func providerUsesPKCE(provider string) bool {
	return provider == ProviderVK
}

// Initiate prepares a login attempt. The handshake record is written
// before the authorization URL is requested: once the browser leaves for
// the provider, the state nonce and verifier are already durable.
func (s *ServiceImpl) Initiate(ctx context.Context, provider string) (string, error) {
	if !IsSupportedProvider(provider) {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}

	state, err := utils.RandomURLSafeString(stateNonceByteCount)
	if err != nil {
		return "", fmt.Errorf("failed to generate state nonce: %w", err)
	}

	handshake := &storage.Handshake{
		Provider: provider,
		State:    state,
	}

	request := &backend.AuthorizationURLRequest{
		RedirectURI: s.redirectURI(provider),
		State:       state,
	}

	if providerUsesPKCE(provider) {
		pkce, pkceErr := newPKCEPair()
		if pkceErr != nil {
			return "", fmt.Errorf("failed to generate PKCE pair: %w", pkceErr)
		}

		handshake.CodeVerifier = pkce.Verifier
		request.CodeChallenge = pkce.Challenge
		request.CodeChallengeMethod = codeChallengeMethod
	}

	if err = s.handshakes.Save(handshake); err != nil {
		return "", fmt.Errorf("failed to store handshake: %w", err)
	}

	authorizationURL, err := s.client.GetAuthorizationURL(ctx, provider, request)
	if err != nil {
		return "", fmt.Errorf("failed to get authorization URL: %w", err)
	}

	logger.Debugf(ctx, "Authorization URL prepared for provider %s", provider)

	return authorizationURL, nil
}

// CompleteCallback validates the provider redirect and exchanges the code.
// The handshake is consumed before the state is compared, so a replayed
// or tampered callback cannot retry against the same nonce.
func (s *ServiceImpl) CompleteCallback(
	ctx context.Context,
	provider string,
	query url.Values,
) (string, error) {
	if !IsSupportedProvider(provider) {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}

	if providerError := query.Get("error"); providerError != "" {
		return "", fmt.Errorf("%w: %s", ErrProviderReported, providerError)
	}

	code := query.Get("code")
	if code == "" {
		return "", ErrMissingAuthorizationCode
	}

	handshake, err := s.handshakes.Consume(provider)
	if err != nil {
		return "", fmt.Errorf("failed to consume handshake: %w", err)
	}

	if query.Get("state") != handshake.State {
		return "", ErrStateMismatch
	}

	request := &backend.ExchangeCodeRequest{
		Code:        code,
		RedirectURI: s.redirectURI(provider),
	}

	if providerUsesPKCE(provider) {
		if handshake.CodeVerifier == "" {
			return "", ErrMissingCodeVerifier
		}

		request.CodeVerifier = handshake.CodeVerifier
	}

	if provider == ProviderVK {
		deviceID := query.Get("device_id")
		if deviceID == "" {
			return "", ErrMissingDeviceID
		}

		request.DeviceID = deviceID
	}

	token, err := s.client.ExchangeCode(ctx, provider, request)
	if err != nil {
		return "", fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	s.tokens.Set(token)

	logger.Debugf(ctx, "Authorization code exchanged for provider %s", provider)

	return token, nil
}

// Login runs the full interactive flow against the given provider.
func (s *ServiceImpl) Login(ctx context.Context, provider string) (string, error) {
	authorizationURL, err := s.Initiate(ctx, provider)
	if err != nil {
		return "", err
	}

	loginCtx, cancel := context.WithTimeout(ctx, s.cfg.ParsedLoginTimeout)
	defer cancel()

	// The callback server must be listening before the browser leaves,
	// otherwise a fast provider redirect would hit a closed port.
	callbacks, stopServer, err := s.startCallbackServer(loginCtx, provider)
	if err != nil {
		return "", fmt.Errorf("failed to start callback server: %w", err)
	}

	defer stopServer()

	if err = s.initBrowser(loginCtx); err != nil {
		return "", fmt.Errorf("failed to initialize browser: %w", err)
	}

	defer s.cleanup(loginCtx)

	logger.Infof(loginCtx, "Opening browser for %s login...", provider)
	logger.Info(loginCtx, "Complete the login in the browser window. Do not close it manually.")

	if err = s.navigate(loginCtx, authorizationURL); err != nil {
		return "", err
	}

	query, err := s.awaitCallback(loginCtx, callbacks)
	if err != nil {
		return "", err
	}

	// The exchange is bounded by the same deadline as the rest of the flow.
	token, err := s.CompleteCallback(loginCtx, provider, query)
	if err != nil {
		return "", err
	}

	logger.Info(ctx, "Login completed successfully!")

	return token, nil
}

// redirectURI builds the loopback redirect URI for a provider.
func (s *ServiceImpl) redirectURI(provider string) string {
	return fmt.Sprintf(redirectURIFormat, s.cfg.CallbackPort, provider)
}
