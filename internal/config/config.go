package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/artfusion-app/artfusion-cli/internal/logger"
)

// Config holds all configuration settings.
type Config struct {
	// APIBaseURL is the base URL of the Artfusion backend API.
	APIBaseURL string `mapstructure:"api_base_url"`
	// TokenFilePath is the file where the session token is persisted.
	TokenFilePath string `mapstructure:"token_file_path"`
	// HandshakeFilePath is the file holding the in-flight OAuth handshake state.
	HandshakeFilePath string `mapstructure:"handshake_file_path"`
	// DebugLogin enables the non-production debug bypass login strategy.
	DebugLogin bool `mapstructure:"debug_login"`
	// CallbackPort is the loopback port the OAuth callback server listens on.
	CallbackPort int `mapstructure:"callback_port"`
	// TokenRefreshInterval is how often the session token is proactively refreshed (e.g. "72h").
	TokenRefreshInterval string `mapstructure:"token_refresh_interval"`
	// LoginTimeout is the maximum time to wait for an interactive browser login (e.g. "10m").
	LoginTimeout string `mapstructure:"login_timeout"`
	// LogLevel specifies the logging verbosity level.
	LogLevel string `mapstructure:"log_level"`

	// ParsedTokenRefreshInterval is the parsed refresh interval.
	ParsedTokenRefreshInterval time.Duration
	// ParsedLoginTimeout is the parsed interactive login timeout.
	ParsedLoginTimeout time.Duration
	// ParsedLogLevel is the parsed zap log level.
	ParsedLogLevel zapcore.Level
}

const (
	// DefaultAPIBaseURL is the base URL of the production Artfusion backend.
	DefaultAPIBaseURL = "https://api.artfusion.app"

	// DefaultConfigFilename is the default name of the configuration file.
	DefaultConfigFilename = ".artfusion.yaml"

	// DefaultStateDirName is the directory under the user's home where
	// the token and handshake files live.
	DefaultStateDirName = ".artfusion"

	// DefaultTokenFilename is the default session token file name.
	DefaultTokenFilename = "token.yaml"

	// DefaultHandshakeFilename is the default OAuth handshake state file name.
	DefaultHandshakeFilename = "oauth_handshake.yaml"

	// DefaultCallbackPort is the default loopback port for OAuth callbacks.
	// The backend registers redirect URIs on this port for every provider.
	DefaultCallbackPort = 54571

	// DefaultTokenRefreshInterval keeps long-lived sessions alive ahead of
	// silent server-side expiry.
	DefaultTokenRefreshInterval = 72 * time.Hour

	// DefaultLoginTimeout bounds how long an interactive browser login may take.
	DefaultLoginTimeout = 10 * time.Minute

	// DefaultMaxLogLength is the default maximum size (in bytes) for dumped
	// requests and responses in debug transport logs.
	DefaultMaxLogLength = 1 * 1024 * 1024 // 1 MB

	// minTokenRefreshInterval guards against hammering the refresh endpoint.
	minTokenRefreshInterval = time.Minute

	// maxPort is the highest valid TCP port.
	maxPort = 65535
)

// Static error definitions for better error handling.
var (
	// ErrEmptyAPIBaseURL indicates that the backend base URL is missing.
	ErrEmptyAPIBaseURL = errors.New("api_base_url cannot be empty")
	// ErrInvalidAPIBaseURL indicates that the backend base URL is not a valid absolute URL.
	ErrInvalidAPIBaseURL = errors.New("api_base_url must be a valid absolute URL")
	// ErrInvalidCallbackPort indicates that the callback port is out of range.
	ErrInvalidCallbackPort = errors.New("callback_port must be between 1 and 65535")
	// ErrInvalidRefreshInterval indicates that the refresh interval is invalid.
	ErrInvalidRefreshInterval = errors.New("token_refresh_interval must be at least one minute")
	// ErrInvalidLoginTimeout indicates that the login timeout is invalid.
	ErrInvalidLoginTimeout = errors.New("login_timeout must be positive")
	// ErrUnknownLogLevel indicates that the log level is not recognized.
	ErrUnknownLogLevel = errors.New("unknown log level")
)

// LoadConfig loads configuration settings from a YAML file.
// A missing default config file is not an error: the application falls back
// to defaults so that a first login works out of the box. An explicitly
// requested file that cannot be read is still fatal.
func LoadConfig(configFilename string) (*Config, error) {
	explicit := configFilename != ""
	if !explicit {
		configFilename = DefaultConfigFilename

		if home, err := os.UserHomeDir(); err == nil {
			configFilename = filepath.Join(home, DefaultConfigFilename)
		}
	}

	viper.SetConfigFile(configFilename)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError

		missing := errors.As(err, &notFound) || os.IsNotExist(err)
		if explicit || !missing {
			return nil, fmt.Errorf("failed to read config from file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// ValidateConfig checks the configuration for validity and sets derived fields.
func ValidateConfig(cfg *Config) error {
	if err := applyDefaults(cfg); err != nil {
		return err
	}

	baseURL := strings.TrimSpace(cfg.APIBaseURL)
	if baseURL == "" {
		return ErrEmptyAPIBaseURL
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil || !parsedURL.IsAbs() || parsedURL.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidAPIBaseURL, baseURL)
	}

	cfg.APIBaseURL = strings.TrimRight(baseURL, "/")

	if cfg.CallbackPort < 1 || cfg.CallbackPort > maxPort {
		return fmt.Errorf("%w: got %d", ErrInvalidCallbackPort, cfg.CallbackPort)
	}

	cfg.ParsedTokenRefreshInterval, err = time.ParseDuration(cfg.TokenRefreshInterval)
	if err != nil || cfg.ParsedTokenRefreshInterval < minTokenRefreshInterval {
		return fmt.Errorf("%w: %q", ErrInvalidRefreshInterval, cfg.TokenRefreshInterval)
	}

	cfg.ParsedLoginTimeout, err = time.ParseDuration(cfg.LoginTimeout)
	if err != nil || cfg.ParsedLoginTimeout <= 0 {
		return fmt.Errorf("%w: %q", ErrInvalidLoginTimeout, cfg.LoginTimeout)
	}

	level, ok := logger.ParseLogLevel(cfg.LogLevel)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownLogLevel, cfg.LogLevel)
	}

	cfg.ParsedLogLevel = level

	return nil
}

// applyDefaults fills in zero-valued settings with their defaults.
func applyDefaults(cfg *Config) error {
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}

	if cfg.CallbackPort == 0 {
		cfg.CallbackPort = DefaultCallbackPort
	}

	if strings.TrimSpace(cfg.TokenRefreshInterval) == "" {
		cfg.TokenRefreshInterval = DefaultTokenRefreshInterval.String()
	}

	if strings.TrimSpace(cfg.LoginTimeout) == "" {
		cfg.LoginTimeout = DefaultLoginTimeout.String()
	}

	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = "info"
	}

	if cfg.TokenFilePath == "" || cfg.HandshakeFilePath == "" {
		stateDir, err := defaultStateDir()
		if err != nil {
			return err
		}

		if cfg.TokenFilePath == "" {
			cfg.TokenFilePath = filepath.Join(stateDir, DefaultTokenFilename)
		}

		if cfg.HandshakeFilePath == "" {
			cfg.HandshakeFilePath = filepath.Join(stateDir, DefaultHandshakeFilename)
		}
	}

	return nil
}

// defaultStateDir returns the directory for token and handshake files,
// falling back to the working directory when the home directory is unknown.
func defaultStateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultStateDirName, nil //nolint:nilerr // Fallback path is a valid result.
	}

	return filepath.Join(home, DefaultStateDirName), nil
}
