package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/artfusion-app/artfusion-cli/internal/app"
	"github.com/artfusion-app/artfusion-cli/internal/config"
	"github.com/artfusion-app/artfusion-cli/internal/logger"
	"github.com/artfusion-app/artfusion-cli/internal/version"
)

var (
	//nolint:gochecknoglobals // It is required for configuration initialization before the application starts.
	configFilenameFromFlag string

	//nolint:gochecknoglobals,lll // It is initialized once during the application's startup and shared across the command execution logic.
	appConfig *config.Config

	//nolint:gochecknoglobals,lll // Cobra command requires a global definition for proper command-line parsing and execution.
	rootCmd = &cobra.Command{
		Use:   "artfusion",
		Short: "Manage your Artfusion session from the terminal.",
		Long: `Artfusion CLI is the companion client for the Artfusion AI content
platform. It manages your session: logging in through Telegram or an
OAuth provider, keeping the token fresh, and showing who you are and
how many credits you have left.`,
		Version:          version.Full(),
		Args:             cobra.NoArgs,
		PersistentPreRun: initConfig,
		Run: func(cmd *cobra.Command, _ []string) {
			app.ExecuteStatusCommand(cmd.Context(), appConfig)
		},
	}
)

// Execute executes the root command.
func Execute() {
	signals := []os.Signal{syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM}
	ctx, stop := signal.NotifyContext(context.Background(), signals...)

	defer func() {
		_ = logger.Logger().Sync()
	}()

	defer stop()

	go func() {
		defer stop()

		err := rootCmd.ExecuteContext(ctx)
		cobra.CheckErr(err)
	}()

	<-ctx.Done()
}

//nolint:gochecknoinits // Cobra requires the init function to set up flags before the command is executed.
func init() {
	persistentFlags := rootCmd.PersistentFlags()

	persistentFlags.StringVarP(
		&configFilenameFromFlag,
		"config",
		"c",
		"",
		fmt.Sprintf("path to the configuration file (default is '%s')",
			config.DefaultConfigFilename))

	persistentFlags.String(
		"api-url",
		"",
		"override the backend API base URL.")

	persistentFlags.String(
		"log-level",
		"",
		"logging verbosity: debug, info, warn, error.")

	persistentFlags.Bool(
		"debug-login",
		false,
		"enable the non-production debug login strategy.")
}

func initConfig(cmd *cobra.Command, _ []string) {
	var err error

	appConfig, err = config.LoadConfig(configFilenameFromFlag)
	if err != nil {
		logger.Fatalf(cmd.Context(), "Failed to load configuration: %v", err)
	}

	if err = bindFlagsToConfig(cmd.Root().PersistentFlags(), appConfig); err != nil {
		logger.Fatalf(cmd.Context(), "Invalid configuration: %v", err)
	}

	logger.SetLevel(appConfig.ParsedLogLevel)
}

func bindFlagsToConfig(flags *pflag.FlagSet, cfg *config.Config) error {
	if flag := flags.Lookup("api-url"); flag != nil && flag.Changed {
		cfg.APIBaseURL, _ = flags.GetString("api-url")
	}

	if flag := flags.Lookup("log-level"); flag != nil && flag.Changed {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}

	if flag := flags.Lookup("debug-login"); flag != nil && flag.Changed {
		cfg.DebugLogin, _ = flags.GetBool("debug-login")
	}

	return config.ValidateConfig(cfg)
}
