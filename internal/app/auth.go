package app

import (
	"context"

	"github.com/dustin/go-humanize"

	"github.com/artfusion-app/artfusion-cli/internal/config"
	"github.com/artfusion-app/artfusion-cli/internal/logger"
	"github.com/artfusion-app/artfusion-cli/internal/service/session"
)

// ProviderTelegram and ProviderDebug extend the OAuth provider set with
// the login strategies that do not go through a browser.
const (
	ProviderTelegram = "telegram"
	ProviderDebug    = "debug"
)

// ExecuteLoginCommand executes the login command for the given provider.
func ExecuteLoginCommand(ctx context.Context, cfg *config.Config, provider string) {
	stack, err := newAppStack(ctx, cfg)
	if err != nil {
		logger.Fatalf(ctx, "Failed to initialize application: %v", err)
	}

	defer stack.teardown()

	stack.session.Initialize(ctx)

	if stack.session.CurrentState() == session.StateAuthenticated {
		logger.Info(ctx, "Already logged in.")
		printProfile(ctx, stack)

		return
	}

	var ok bool

	switch provider {
	case ProviderTelegram:
		host := stack.detector.Detect(ctx)
		if !host.IsTelegram {
			logger.Fatalf(ctx, "No Telegram handover present in the environment")
		}

		ok = stack.session.LoginWithTelegram(ctx, host.InitData)
	case ProviderDebug:
		ok = stack.session.LoginWithDebugBypass(ctx)
	default:
		ok = stack.session.LoginWithOAuth(ctx, provider)
	}

	if !ok {
		logger.Fatalf(ctx, "Login failed: %v", stack.session.LastError())
	}

	logger.Info(ctx, "Login successful!")
	printProfile(ctx, stack)
}

// ExecuteLogoutCommand executes the logout command.
func ExecuteLogoutCommand(ctx context.Context, cfg *config.Config) {
	stack, err := newAppStack(ctx, cfg)
	if err != nil {
		logger.Fatalf(ctx, "Failed to initialize application: %v", err)
	}

	defer stack.teardown()

	stack.session.Logout(ctx)
	stack.credits.InvalidateCache()

	logger.Info(ctx, "Logged out.")
}

// ExecuteWhoamiCommand executes the whoami command.
func ExecuteWhoamiCommand(ctx context.Context, cfg *config.Config) {
	stack, err := newAppStack(ctx, cfg)
	if err != nil {
		logger.Fatalf(ctx, "Failed to initialize application: %v", err)
	}

	defer stack.teardown()

	stack.session.Initialize(ctx)

	if stack.session.CurrentState() != session.StateAuthenticated {
		logger.Info(ctx, "Not logged in.")

		return
	}

	printProfile(ctx, stack)
}

// ExecuteRefreshCommand executes the token refresh command.
func ExecuteRefreshCommand(ctx context.Context, cfg *config.Config) {
	stack, err := newAppStack(ctx, cfg)
	if err != nil {
		logger.Fatalf(ctx, "Failed to initialize application: %v", err)
	}

	defer stack.teardown()

	stack.session.Initialize(ctx)

	if stack.session.CurrentState() != session.StateAuthenticated {
		logger.Info(ctx, "Not logged in, nothing to refresh.")

		return
	}

	if err = stack.session.RefreshToken(ctx); err != nil {
		logger.Fatalf(ctx, "Token refresh failed: %v", err)
	}

	logger.Info(ctx, "Session token refreshed.")
}

// printProfile reports the authenticated user and their credit balance.
func printProfile(ctx context.Context, stack *appStack) {
	user := stack.session.CurrentUser()
	if user == nil {
		return
	}

	name := user.DisplayName
	if name == "" {
		name = user.Email
	}

	logger.Infof(ctx, "Logged in as: %s (id %d)", name, user.ID)

	if user.Email != "" && user.Email != name {
		logger.Infof(ctx, "Email: %s", user.Email)
	}

	balance, err := stack.credits.Balance(ctx)
	if err != nil {
		logger.Debugf(ctx, "Credit balance unavailable: %v", err)

		return
	}

	logger.Infof(ctx, "Credits: %s", humanize.Comma(balance))

	if user.Credits != nil && !user.Credits.UpdatedAt.IsZero() {
		logger.Infof(ctx, "Balance updated %s", humanize.Time(user.Credits.UpdatedAt))
	}
}
