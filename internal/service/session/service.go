package session

//go:generate $MOCKGEN -source=service.go -destination=mocks/service_mock.go

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/artfusion-app/artfusion-cli/internal/client/backend"
	"github.com/artfusion-app/artfusion-cli/internal/config"
	"github.com/artfusion-app/artfusion-cli/internal/logger"
	"github.com/artfusion-app/artfusion-cli/internal/service/hostenv"
	"github.com/artfusion-app/artfusion-cli/internal/service/oauth"
	"github.com/artfusion-app/artfusion-cli/internal/storage"
)

// State is the observable phase of the session lifecycle.
type State int

// Session states, in lifecycle order.
const (
	// StateUninitialized means Initialize has not run yet.
	StateUninitialized State = iota
	// StateInitializing means the startup sequence is in flight.
	StateInitializing
	// StateAuthenticated means a valid token and profile are held.
	StateAuthenticated
	// StateAnonymous means the session settled without credentials.
	StateAnonymous
)

// String returns the human-readable state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// debugBypassToken is the sentinel the backend accepts in non-production
// environments when the debug login strategy is enabled.
const debugBypassToken = "debug-bypass"

// Static error definitions for better error handling.
var (
	// ErrLoginInProgress is returned when a login is attempted while
	// another one is still in flight.
	ErrLoginInProgress = errors.New("another login is already in progress")

	// ErrDebugLoginDisabled is returned when the debug bypass is used
	// without being enabled in configuration.
	ErrDebugLoginDisabled = errors.New("debug login is not enabled")

	// ErrTokenInvalidated is returned when the token disappears while an
	// authentication step was in flight.
	ErrTokenInvalidated = errors.New("session token was invalidated during login")
)

// Service owns the session lifecycle.
type Service interface {
	// Initialize runs the one-shot startup sequence: hydrate the token,
	// detect the host, pick a login strategy, settle the state. Repeated
	// calls are no-ops.
	Initialize(ctx context.Context)
	// LoginWithTelegram authenticates with signed Mini App init data.
	LoginWithTelegram(ctx context.Context, initData string) bool
	// LoginWithOAuth runs the interactive browser flow for a provider.
	LoginWithOAuth(ctx context.Context, provider string) bool
	// LoginWithDebugBypass authenticates with the debug sentinel token.
	LoginWithDebugBypass(ctx context.Context) bool
	// Logout clears the token and settles into the anonymous state.
	// Logging out twice is harmless.
	Logout(ctx context.Context)
	// RefreshToken proactively replaces the current token. Without a
	// token it does nothing; a failed refresh never tears the session down.
	RefreshToken(ctx context.Context) error
	// Teardown stops background work. The session state is left as is.
	Teardown()

	// CurrentState returns the session state.
	CurrentState() State
	// CurrentUser returns the authenticated profile, nil when anonymous.
	CurrentUser() *backend.UserProfile
	// LastError returns the error recorded by the most recent failed step.
	LastError() error
	// IsInitialized reports whether the startup sequence has finished.
	IsInitialized() bool
}

// ServiceImpl implements Service.
type ServiceImpl struct {
	cfg      *config.Config
	client   backend.Client
	tokens   storage.TokenStore
	oauth    oauth.Service
	detector hostenv.Detector

	mu            sync.Mutex
	state         State
	user          *backend.UserProfile
	lastErr       error
	initialized   bool
	loginInFlight bool

	refreshMu   sync.Mutex
	refreshStop chan struct{}
}

// NewService creates a new session controller.
func NewService(
	cfg *config.Config,
	client backend.Client,
	tokens storage.TokenStore,
	oauthService oauth.Service,
	detector hostenv.Detector,
) *ServiceImpl {
	return &ServiceImpl{
		cfg:      cfg,
		client:   client,
		tokens:   tokens,
		oauth:    oauthService,
		detector: detector,
		state:    StateUninitialized,
	}
}

// Initialize runs the startup sequence exactly once.
func (s *ServiceImpl) Initialize(ctx context.Context) {
	s.mu.Lock()
	if s.initialized || s.state == StateInitializing {
		s.mu.Unlock()

		return
	}

	s.state = StateInitializing
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.initialized = true
		s.mu.Unlock()
	}()

	s.tokens.InitFromPersistence()

	// A valid persisted token wins outright: no login strategy runs when
	// its profile fetch succeeds.
	if s.tokens.Get() != "" {
		logger.Debug(ctx, "Initializing session from persisted token")

		if s.settleWithProfile(ctx) {
			return
		}

		logger.Debug(ctx, "Persisted token rejected, falling through to login strategies")
	}

	host := s.detector.Detect(ctx)

	switch {
	case host.IsTelegram:
		logger.Debug(ctx, "Initializing session from Telegram host")

		if !s.loginWithToken(ctx, func() (string, error) {
			return s.client.LoginWithTelegram(ctx, host.InitData)
		}) {
			logger.Debug(ctx, "Telegram login failed, settling anonymous")
		}
	case s.cfg.DebugLogin:
		logger.Debug(ctx, "Initializing session with debug bypass")

		s.tokens.Set(debugBypassToken)
		s.settleWithProfile(ctx)
	default:
		logger.Debug(ctx, "No credentials available, settling anonymous")

		// Keep the cause recorded by a failed stale-token attempt.
		s.settleAnonymous(s.LastError())
	}
}

// LoginWithTelegram authenticates with signed Mini App init data.
func (s *ServiceImpl) LoginWithTelegram(ctx context.Context, initData string) bool {
	if !s.beginLogin() {
		return false
	}

	defer s.endLogin()

	return s.loginWithToken(ctx, func() (string, error) {
		return s.client.LoginWithTelegram(ctx, initData)
	})
}

// LoginWithOAuth runs the interactive browser flow for a provider.
// The OAuth engine commits the token itself; the session controller only
// settles the state afterwards.
func (s *ServiceImpl) LoginWithOAuth(ctx context.Context, provider string) bool {
	if !s.beginLogin() {
		return false
	}

	defer s.endLogin()

	if _, err := s.oauth.Login(ctx, provider); err != nil {
		s.recordError(err)

		return false
	}

	return s.settleWithProfile(ctx)
}

// LoginWithDebugBypass authenticates with the debug sentinel token.
func (s *ServiceImpl) LoginWithDebugBypass(ctx context.Context) bool {
	if !s.cfg.DebugLogin {
		s.recordError(ErrDebugLoginDisabled)

		return false
	}

	if !s.beginLogin() {
		return false
	}

	defer s.endLogin()

	s.tokens.Set(debugBypassToken)

	return s.settleWithProfile(ctx)
}

// Logout clears the token and settles anonymous. Safe to repeat.
func (s *ServiceImpl) Logout(ctx context.Context) {
	s.disarmRefresh()
	s.tokens.Clear()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.user = nil
	s.lastErr = nil

	if s.initialized || s.state != StateUninitialized {
		s.state = StateAnonymous
	}

	logger.Debug(ctx, "Session logged out")
}

// RefreshToken proactively replaces the current token. A missing token
// makes this a no-op; a failed refresh is reported but never fatal.
func (s *ServiceImpl) RefreshToken(ctx context.Context) error {
	if s.tokens.Get() == "" {
		logger.Debug(ctx, "No token to refresh")

		return nil
	}

	newToken, err := s.client.RefreshToken(ctx)
	if err != nil {
		logger.Debugf(ctx, "Token refresh failed: %v", err)

		// The failure is recorded but the session survives on the old token.
		s.recordError(err)

		// A 401 response already cleared the token through the transport
		// pipeline; degrade the session instead of pretending.
		if s.tokens.Get() == "" {
			s.settleAnonymous(err)
		}

		return err
	}

	s.tokens.Set(newToken)

	logger.Debug(ctx, "Session token refreshed")

	return nil
}

// Teardown stops background refresh work.
func (s *ServiceImpl) Teardown() {
	s.disarmRefresh()
}

// CurrentState returns the session state.
func (s *ServiceImpl) CurrentState() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// CurrentUser returns the authenticated profile, nil when anonymous.
func (s *ServiceImpl) CurrentUser() *backend.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.user
}

// LastError returns the error recorded by the most recent failed step.
func (s *ServiceImpl) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastErr
}

// IsInitialized reports whether the startup sequence has finished.
func (s *ServiceImpl) IsInitialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.initialized
}

// beginLogin claims the single login slot. A second concurrent login is
// rejected instead of queued.
func (s *ServiceImpl) beginLogin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loginInFlight {
		s.lastErr = ErrLoginInProgress

		return false
	}

	s.loginInFlight = true

	return true
}

// endLogin releases the login slot.
func (s *ServiceImpl) endLogin() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loginInFlight = false
}

// loginWithToken runs a token-issuing call, commits the result, then
// settles the session around the fetched profile.
func (s *ServiceImpl) loginWithToken(ctx context.Context, issue func() (string, error)) bool {
	token, err := issue()
	if err != nil {
		s.settleAnonymous(err)

		return false
	}

	s.tokens.Set(token)

	return s.settleWithProfile(ctx)
}

// settleWithProfile fetches the profile for the current token and moves
// the session to authenticated. Any failure clears the token: a session
// is never authenticated without a profile.
func (s *ServiceImpl) settleWithProfile(ctx context.Context) bool {
	profile, err := s.client.GetUserProfile(ctx)
	if err != nil {
		s.tokens.Clear()
		s.settleAnonymous(err)

		return false
	}

	// The token may have been invalidated by a 401 on a concurrent
	// request while the profile fetch was in flight.
	if s.tokens.Get() == "" {
		s.settleAnonymous(ErrTokenInvalidated)

		return false
	}

	s.mu.Lock()
	s.user = profile
	s.state = StateAuthenticated
	s.lastErr = nil
	s.mu.Unlock()

	s.armRefresh()

	return true
}

// settleAnonymous moves the session to anonymous, recording the cause.
func (s *ServiceImpl) settleAnonymous(cause error) {
	s.disarmRefresh()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.user = nil
	s.state = StateAnonymous
	s.lastErr = cause
}

// recordError stores the error without changing the session state.
func (s *ServiceImpl) recordError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastErr = err
}

// armRefresh starts the proactive refresh loop if not already running.
func (s *ServiceImpl) armRefresh() {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	if s.refreshStop != nil {
		return
	}

	interval := s.cfg.ParsedTokenRefreshInterval
	if interval <= 0 {
		interval = config.DefaultTokenRefreshInterval
	}

	stop := make(chan struct{})
	s.refreshStop = stop

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := s.RefreshToken(context.Background()); err != nil {
					logger.Debugf(context.Background(), "Scheduled token refresh failed: %v", err)
				}
			}
		}
	}()
}

// disarmRefresh stops the refresh loop if it is running.
func (s *ServiceImpl) disarmRefresh() {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	if s.refreshStop == nil {
		return
	}

	close(s.refreshStop)
	s.refreshStop = nil
}
