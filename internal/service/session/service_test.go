package session

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/artfusion-app/artfusion-cli/internal/client/backend"
	mock_backend "github.com/artfusion-app/artfusion-cli/internal/client/backend/mocks"
	"github.com/artfusion-app/artfusion-cli/internal/config"
	"github.com/artfusion-app/artfusion-cli/internal/service/hostenv"
	"github.com/artfusion-app/artfusion-cli/internal/storage"
)

// stubDetector serves a fixed host context.
type stubDetector struct {
	host *hostenv.HostContext
}

func (d *stubDetector) Detect(_ context.Context) *hostenv.HostContext {
	return d.host
}

// stubOAuth fakes the browser flow: it commits a token to the store and
// returns it, or fails.
type stubOAuth struct {
	tokens storage.TokenStore
	token  string
	err    error
}

func (o *stubOAuth) Initiate(_ context.Context, _ string) (string, error) {
	return "", o.err
}

func (o *stubOAuth) CompleteCallback(_ context.Context, _ string, _ url.Values) (string, error) {
	return o.token, o.err
}

func (o *stubOAuth) Login(_ context.Context, _ string) (string, error) {
	if o.err != nil {
		return "", o.err
	}

	o.tokens.Set(o.token)

	return o.token, nil
}

// testStack bundles the controller with its collaborators.
type testStack struct {
	service  *ServiceImpl
	client   *mock_backend.MockClient
	tokens   *storage.FileTokenStore
	oauth    *stubOAuth
	detector *stubDetector
	cfg      *config.Config
}

// newTestStack builds a controller over a mocked backend, a file token
// store in a temp directory, and a standalone host by default.
func newTestStack(t *testing.T) *testStack {
	t.Helper()

	ctrl := gomock.NewController(t)
	client := mock_backend.NewMockClient(ctrl)
	tokens := storage.NewFileTokenStore(filepath.Join(t.TempDir(), "token.yaml"))
	oauthService := &stubOAuth{tokens: tokens, token: "oauth-token"}
	detector := &stubDetector{host: &hostenv.HostContext{}}

	cfg := &config.Config{
		ParsedTokenRefreshInterval: config.DefaultTokenRefreshInterval,
	}

	service := NewService(cfg, client, tokens, oauthService, detector)
	t.Cleanup(service.Teardown)

	return &testStack{
		service:  service,
		client:   client,
		tokens:   tokens,
		oauth:    oauthService,
		detector: detector,
		cfg:      cfg,
	}
}

func testProfile() *backend.UserProfile {
	return &backend.UserProfile{
		ID:          42,
		Email:       "user@example.com",
		DisplayName: "Test User",
		Credits:     &backend.UserCredits{Balance: 150},
	}
}

// TestInitialize_PersistedToken tests startup with a valid stored token.
func TestInitialize_PersistedToken(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)
	stack.tokens.Set("persisted-token")

	stack.client.EXPECT().GetUserProfile(gomock.Any()).Return(testProfile(), nil)

	stack.service.Initialize(context.Background())

	assert.Equal(t, StateAuthenticated, stack.service.CurrentState())
	assert.True(t, stack.service.IsInitialized())
	require.NotNil(t, stack.service.CurrentUser())
	assert.Equal(t, int64(42), stack.service.CurrentUser().ID)
}

// TestInitialize_TelegramHost tests startup inside a Telegram host.
func TestInitialize_TelegramHost(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)
	stack.detector.host = &hostenv.HostContext{
		IsTelegram: true,
		InitData:   "signed-init-data",
	}

	stack.client.EXPECT().
		LoginWithTelegram(gomock.Any(), "signed-init-data").
		Return("tg-token", nil)
	stack.client.EXPECT().GetUserProfile(gomock.Any()).Return(testProfile(), nil)

	stack.service.Initialize(context.Background())

	assert.Equal(t, StateAuthenticated, stack.service.CurrentState())
	assert.Equal(t, "tg-token", stack.tokens.Get())
}

// TestInitialize_PersistedTokenWinsOverTelegramHost tests that a valid
// stored token settles the session without invoking any login strategy,
// even inside a Telegram host. No LoginWithTelegram expectation is
// registered, so any call fails the test.
func TestInitialize_PersistedTokenWinsOverTelegramHost(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)
	stack.tokens.Set("persisted-token")
	stack.detector.host = &hostenv.HostContext{
		IsTelegram: true,
		InitData:   "signed-init-data",
	}

	stack.client.EXPECT().GetUserProfile(gomock.Any()).Return(testProfile(), nil)

	stack.service.Initialize(context.Background())

	assert.Equal(t, StateAuthenticated, stack.service.CurrentState())
	assert.Equal(t, "persisted-token", stack.tokens.Get())
}

// TestInitialize_StaleTokenFallsThroughToTelegram tests that a rejected
// stored token falls through to the host login strategy.
func TestInitialize_StaleTokenFallsThroughToTelegram(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)
	stack.tokens.Set("stale-token")
	stack.detector.host = &hostenv.HostContext{
		IsTelegram: true,
		InitData:   "signed-init-data",
	}

	gomock.InOrder(
		stack.client.EXPECT().
			GetUserProfile(gomock.Any()).
			Return(nil, backend.ErrUnauthorized),
		stack.client.EXPECT().
			LoginWithTelegram(gomock.Any(), "signed-init-data").
			Return("tg-token", nil),
		stack.client.EXPECT().
			GetUserProfile(gomock.Any()).
			Return(testProfile(), nil),
	)

	stack.service.Initialize(context.Background())

	assert.Equal(t, StateAuthenticated, stack.service.CurrentState())
	assert.Equal(t, "tg-token", stack.tokens.Get())
}

// TestInitialize_PersistedTokenNotOverwrittenByDebug tests that the
// debug bypass never clobbers a valid stored token.
func TestInitialize_PersistedTokenNotOverwrittenByDebug(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)
	stack.cfg.DebugLogin = true
	stack.tokens.Set("persisted-token")

	stack.client.EXPECT().GetUserProfile(gomock.Any()).Return(testProfile(), nil)

	stack.service.Initialize(context.Background())

	assert.Equal(t, StateAuthenticated, stack.service.CurrentState())
	assert.Equal(t, "persisted-token", stack.tokens.Get())
}

// TestInitialize_NoCredentials tests startup with nothing to go on.
// No backend expectations are registered, so any call fails the test.
func TestInitialize_NoCredentials(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)

	stack.service.Initialize(context.Background())

	assert.Equal(t, StateAnonymous, stack.service.CurrentState())
	assert.True(t, stack.service.IsInitialized())
	assert.Nil(t, stack.service.CurrentUser())
	assert.NoError(t, stack.service.LastError())
}

// TestInitialize_OneShot tests that repeated Initialize calls are no-ops.
func TestInitialize_OneShot(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)
	stack.tokens.Set("persisted-token")

	stack.client.EXPECT().GetUserProfile(gomock.Any()).Return(testProfile(), nil).Times(1)

	stack.service.Initialize(context.Background())
	stack.service.Initialize(context.Background())

	assert.Equal(t, StateAuthenticated, stack.service.CurrentState())
}

// TestInitialize_StaleToken tests startup when the stored token is
// rejected by the backend.
func TestInitialize_StaleToken(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)
	stack.tokens.Set("stale-token")

	stack.client.EXPECT().
		GetUserProfile(gomock.Any()).
		Return(nil, backend.ErrUnauthorized)

	stack.service.Initialize(context.Background())

	assert.Equal(t, StateAnonymous, stack.service.CurrentState())
	assert.Empty(t, stack.tokens.Get())
	assert.ErrorIs(t, stack.service.LastError(), backend.ErrUnauthorized)
}

// TestInitialize_DebugBypass tests startup with the debug strategy enabled.
func TestInitialize_DebugBypass(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)
	stack.cfg.DebugLogin = true

	stack.client.EXPECT().GetUserProfile(gomock.Any()).Return(testProfile(), nil)

	stack.service.Initialize(context.Background())

	assert.Equal(t, StateAuthenticated, stack.service.CurrentState())
	assert.Equal(t, "debug-bypass", stack.tokens.Get())
}

// TestLoginWithTelegram_ProfileFetchFails tests that a login whose
// profile fetch fails leaves no half-authenticated session behind.
func TestLoginWithTelegram_ProfileFetchFails(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)

	stack.client.EXPECT().
		LoginWithTelegram(gomock.Any(), "signed-init-data").
		Return("tg-token", nil)
	stack.client.EXPECT().
		GetUserProfile(gomock.Any()).
		Return(nil, errors.New("backend exploded"))

	ok := stack.service.LoginWithTelegram(context.Background(), "signed-init-data")

	assert.False(t, ok)
	assert.Empty(t, stack.tokens.Get())
	assert.Equal(t, StateAnonymous, stack.service.CurrentState())
	assert.Nil(t, stack.service.CurrentUser())
}

// TestLoginWithOAuth tests the browser-flow strategy.
func TestLoginWithOAuth(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)

	stack.client.EXPECT().GetUserProfile(gomock.Any()).Return(testProfile(), nil)

	ok := stack.service.LoginWithOAuth(context.Background(), "google")

	assert.True(t, ok)
	assert.Equal(t, StateAuthenticated, stack.service.CurrentState())
	assert.Equal(t, "oauth-token", stack.tokens.Get())
}

// TestLoginWithOAuth_FlowFails tests a failed browser flow.
func TestLoginWithOAuth_FlowFails(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)
	stack.oauth.err = errors.New("browser was closed")

	ok := stack.service.LoginWithOAuth(context.Background(), "google")

	assert.False(t, ok)
	assert.ErrorContains(t, stack.service.LastError(), "browser was closed")
}

// TestLoginWithDebugBypass_Disabled tests the bypass guard.
func TestLoginWithDebugBypass_Disabled(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)

	ok := stack.service.LoginWithDebugBypass(context.Background())

	assert.False(t, ok)
	assert.ErrorIs(t, stack.service.LastError(), ErrDebugLoginDisabled)
}

// TestLogin_SecondAttemptWhileInFlight tests that a second login is
// rejected while the first one is still running.
func TestLogin_SecondAttemptWhileInFlight(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)

	release := make(chan struct{})
	entered := make(chan struct{})

	stack.client.EXPECT().
		LoginWithTelegram(gomock.Any(), "first").
		DoAndReturn(func(_ context.Context, _ string) (string, error) {
			close(entered)
			<-release

			return "", errors.New("aborted")
		})

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()

		stack.service.LoginWithTelegram(context.Background(), "first")
	}()

	<-entered

	// The slot is taken: the second attempt fails fast.
	ok := stack.service.LoginWithTelegram(context.Background(), "second")
	assert.False(t, ok)
	assert.ErrorIs(t, stack.service.LastError(), ErrLoginInProgress)

	close(release)
	wg.Wait()
}

// TestLogout_Idempotent tests that logging out twice is harmless.
func TestLogout_Idempotent(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)
	stack.tokens.Set("persisted-token")

	stack.client.EXPECT().GetUserProfile(gomock.Any()).Return(testProfile(), nil)

	stack.service.Initialize(context.Background())
	require.Equal(t, StateAuthenticated, stack.service.CurrentState())

	stack.service.Logout(context.Background())
	stack.service.Logout(context.Background())

	assert.Equal(t, StateAnonymous, stack.service.CurrentState())
	assert.Nil(t, stack.service.CurrentUser())
	assert.Empty(t, stack.tokens.Get())
}

// TestRefreshToken_NoToken tests that refresh without a token is a no-op.
// No backend expectations are registered, so any call fails the test.
func TestRefreshToken_NoToken(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)

	assert.NoError(t, stack.service.RefreshToken(context.Background()))
}

// TestRefreshToken_ReplacesToken tests a successful refresh.
func TestRefreshToken_ReplacesToken(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)
	stack.tokens.Set("old-token")

	stack.client.EXPECT().RefreshToken(gomock.Any()).Return("new-token", nil)

	require.NoError(t, stack.service.RefreshToken(context.Background()))
	assert.Equal(t, "new-token", stack.tokens.Get())
}

// TestRefreshToken_FailureRecorded tests that a failed refresh records
// the error but leaves the authenticated session intact.
func TestRefreshToken_FailureRecorded(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)
	stack.tokens.Set("persisted-token")

	stack.client.EXPECT().GetUserProfile(gomock.Any()).Return(testProfile(), nil)
	stack.service.Initialize(context.Background())

	refreshErr := errors.New("backend exploded")
	stack.client.EXPECT().RefreshToken(gomock.Any()).Return("", refreshErr)

	err := stack.service.RefreshToken(context.Background())
	assert.ErrorIs(t, err, refreshErr)

	// Non-fatal: the error is observable, the session survives.
	assert.ErrorIs(t, stack.service.LastError(), refreshErr)
	assert.Equal(t, StateAuthenticated, stack.service.CurrentState())
	assert.Equal(t, "persisted-token", stack.tokens.Get())
}

// TestRefreshToken_RejectedDegradesSession tests that a refresh whose
// 401 cleared the token settles the session anonymous.
func TestRefreshToken_RejectedDegradesSession(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)
	stack.tokens.Set("persisted-token")

	stack.client.EXPECT().GetUserProfile(gomock.Any()).Return(testProfile(), nil)
	stack.service.Initialize(context.Background())

	stack.client.EXPECT().
		RefreshToken(gomock.Any()).
		DoAndReturn(func(_ context.Context) (string, error) {
			// Simulate the transport pipeline reacting to a 401.
			stack.tokens.Clear()

			return "", backend.ErrUnauthorized
		})

	err := stack.service.RefreshToken(context.Background())
	assert.ErrorIs(t, err, backend.ErrUnauthorized)
	assert.Equal(t, StateAnonymous, stack.service.CurrentState())
	assert.Nil(t, stack.service.CurrentUser())
}

// TestRefreshScheduler tests that the armed scheduler fires refreshes.
func TestRefreshScheduler(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)
	stack.cfg.ParsedTokenRefreshInterval = 10 * time.Millisecond
	stack.tokens.Set("persisted-token")

	refreshed := make(chan struct{})

	stack.client.EXPECT().GetUserProfile(gomock.Any()).Return(testProfile(), nil)
	stack.client.EXPECT().
		RefreshToken(gomock.Any()).
		DoAndReturn(func(_ context.Context) (string, error) {
			select {
			case refreshed <- struct{}{}:
			default:
			}

			return "new-token", nil
		}).
		MinTimes(1)

	stack.service.Initialize(context.Background())

	select {
	case <-refreshed:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled refresh never fired")
	}

	stack.service.Teardown()
}
