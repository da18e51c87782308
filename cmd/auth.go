package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/artfusion-app/artfusion-cli/internal/app"
	"github.com/artfusion-app/artfusion-cli/internal/service/oauth"
)

// loginProviders lists the accepted login strategy names.
//
//nolint:gochecknoglobals // Shared between argument validation and help text.
var loginProviders = []string{
	app.ProviderTelegram,
	oauth.ProviderGoogle,
	oauth.ProviderYandex,
	oauth.ProviderVK,
	app.ProviderDebug,
}

var (
	//nolint:gochecknoglobals // Cobra command requires a global definition.
	loginCmd = &cobra.Command{
		Use:   "login {" + strings.Join(loginProviders, "|") + "}",
		Short: "Log in to Artfusion",
		Long: `Logs in to Artfusion with the chosen strategy.

Strategies:
  telegram  use the Telegram Mini App handover from the environment
  google    browser login with your Google account
  yandex    browser login with your Yandex account
  vk        browser login with your VK account (PKCE)
  debug     non-production bypass, requires debug_login in the config

Browser strategies open a visible browser window. Complete the provider's
login form there; the CLI picks up the redirect automatically.`,
		Args: validateLoginProvider,
		Run: func(cmd *cobra.Command, args []string) {
			app.ExecuteLoginCommand(cmd.Context(), appConfig, args[0])
		},
	}

	//nolint:gochecknoglobals // Cobra command requires a global definition.
	logoutCmd = &cobra.Command{
		Use:   "logout",
		Short: "Log out and forget the stored session token",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			app.ExecuteLogoutCommand(cmd.Context(), appConfig)
		},
	}

	//nolint:gochecknoglobals // Cobra command requires a global definition.
	whoamiCmd = &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user and credit balance",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			app.ExecuteWhoamiCommand(cmd.Context(), appConfig)
		},
	}

	//nolint:gochecknoglobals // Cobra command requires a global definition.
	refreshCmd = &cobra.Command{
		Use:   "refresh",
		Short: "Proactively refresh the session token",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			app.ExecuteRefreshCommand(cmd.Context(), appConfig)
		},
	}
)

// validateLoginProvider checks the single provider argument.
func validateLoginProvider(_ *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one provider, got %d", len(args))
	}

	for _, provider := range loginProviders {
		if args[0] == provider {
			return nil
		}
	}

	return fmt.Errorf("unknown provider %q, expected one of: %s",
		args[0], strings.Join(loginProviders, ", "))
}

//nolint:gochecknoinits // Cobra requires the init function to set up commands.
func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(refreshCmd)
}
