// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// AppName is used for the config and user data directory names.
const AppName = "themectl"

// Default configuration values.
const (
	DefaultRetryBudget      = 5
	DefaultRetryDelay       = 500 * time.Millisecond
	DefaultFetchTimeout     = 30 * time.Second
	DefaultUserAgent        = "themectl/1.0"
	DefaultRateLimit        = 10.0
	DefaultBurst            = 5
	DefaultCircuitThreshold = 0
	DefaultCircuitTimeout   = 30 * time.Second
	DefaultPassphraseEnv    = "THEMECTL_PASSPHRASE"
	DefaultSaltFile         = "encryption.salt"
	DefaultReadyTimeout     = 10 * time.Second
	DefaultListen           = "127.0.0.1:7331"
)

// Directory names under the user data directory.
const (
	ThemesDirName     = "Themes"
	ExtensionsDirName = "Extensions"
	ChromeDirName     = "Chrome"
)

// Config represents the themectl configuration.
type Config struct {
	Paths      PathsConfig      `toml:"paths"`
	Imports    ImportsConfig    `toml:"imports"`
	Fetch      FetchConfig      `toml:"fetch"`
	Encryption EncryptionConfig `toml:"encryption"`
	Extensions ExtensionsConfig `toml:"extensions"`
	Serve      ServeConfig      `toml:"serve"`
}

// PathsConfig holds storage locations.
type PathsConfig struct {
	UserDataDir string `toml:"user_data_dir"` // Empty = ~/.config/themectl
}

// ImportsConfig holds @import resolution settings.
type ImportsConfig struct {
	RetryBudget int      `toml:"retry_budget"` // Failed passes retried per theme file
	RetryDelay  Duration `toml:"retry_delay"`  // Pause before a retried pass
}

// FetchConfig holds content fetcher settings.
type FetchConfig struct {
	Timeout          Duration `toml:"timeout"`
	UserAgent        string   `toml:"user_agent"`
	RateLimit        float64  `toml:"rate_limit"` // Remote requests per second (0 = unlimited)
	Burst            int      `toml:"burst"`
	CircuitThreshold int      `toml:"circuit_threshold"` // Consecutive failures before the breaker opens (0 = off)
	CircuitTimeout   Duration `toml:"circuit_timeout"`
	Decompress       bool     `toml:"decompress"`
}

// EncryptionConfig holds theme encryption settings.
type EncryptionConfig struct {
	Enabled         bool     `toml:"enabled"`
	PassphraseEnv   string   `toml:"passphrase_env"`   // Environment variable holding the passphrase
	SaltFile        string   `toml:"salt_file"`        // Relative to user data dir unless absolute
	AlwaysAvailable bool     `toml:"always_available"` // Skip waiting for key derivation
	ReadyTimeout    Duration `toml:"ready_timeout"`
}

// ExtensionsConfig holds unpacked extension settings.
type ExtensionsConfig struct {
	Persistent bool `toml:"persistent"` // Extensions only load into persistent sessions
}

// ServeConfig holds live stylesheet server settings.
type ServeConfig struct {
	Listen string `toml:"listen"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Imports: ImportsConfig{
			RetryBudget: DefaultRetryBudget,
			RetryDelay:  Duration(DefaultRetryDelay),
		},
		Fetch: FetchConfig{
			Timeout:          Duration(DefaultFetchTimeout),
			UserAgent:        DefaultUserAgent,
			RateLimit:        DefaultRateLimit,
			Burst:            DefaultBurst,
			CircuitThreshold: DefaultCircuitThreshold,
			CircuitTimeout:   Duration(DefaultCircuitTimeout),
			Decompress:       true,
		},
		Encryption: EncryptionConfig{
			Enabled:       false,
			PassphraseEnv: DefaultPassphraseEnv,
			SaltFile:      DefaultSaltFile,
			ReadyTimeout:  Duration(DefaultReadyTimeout),
		},
		Extensions: ExtensionsConfig{
			Persistent: true,
		},
		Serve: ServeConfig{
			Listen: DefaultListen,
		},
	}
}

// configHome returns XDG_CONFIG_HOME if set, otherwise ~/.config.
func configHome() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config")
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	return filepath.Join(configHome(), AppName, "config.toml")
}

// UserDataDir returns the root under which themes and extensions are stored.
func (c *Config) UserDataDir() string {
	if c.Paths.UserDataDir != "" {
		return expandPath(c.Paths.UserDataDir)
	}
	return filepath.Join(configHome(), AppName)
}

// ThemesDir returns the managed theme directory, <root>/Themes.
func (c *Config) ThemesDir() string {
	return filepath.Join(c.UserDataDir(), ThemesDirName)
}

// ExtensionsDir returns the unpacked extension directory, <root>/Extensions/Chrome.
func (c *Config) ExtensionsDir() string {
	return filepath.Join(c.UserDataDir(), ExtensionsDirName, ChromeDirName)
}

// SaltPath returns the absolute path of the key derivation salt file.
func (c *Config) SaltPath() string {
	p := expandPath(c.Encryption.SaltFile)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.UserDataDir(), p)
}

// Passphrase reads the encryption passphrase from the configured environment variable.
func (c *Config) Passphrase() string {
	if c.Encryption.PassphraseEnv == "" {
		return ""
	}
	return os.Getenv(c.Encryption.PassphraseEnv)
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Imports.RetryBudget < 0 {
		return fmt.Errorf("retry_budget must not be negative, got %d", c.Imports.RetryBudget)
	}
	if c.Imports.RetryDelay < 0 {
		return fmt.Errorf("retry_delay must not be negative, got %s", c.Imports.RetryDelay.Duration())
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive, got %s", c.Fetch.Timeout.Duration())
	}
	if c.Fetch.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative, got %g", c.Fetch.RateLimit)
	}
	if c.Fetch.RateLimit > 0 && c.Fetch.Burst < 1 {
		return fmt.Errorf("burst must be at least 1 when rate_limit is set, got %d", c.Fetch.Burst)
	}
	if c.Fetch.CircuitThreshold < 0 {
		return fmt.Errorf("circuit_threshold must not be negative, got %d", c.Fetch.CircuitThreshold)
	}
	// An open breaker must never consume the retry budget of an import that
	// would otherwise succeed on its last allowed attempt.
	if c.Fetch.CircuitThreshold > 0 {
		if c.Fetch.CircuitThreshold <= c.Imports.RetryBudget {
			return fmt.Errorf("circuit_threshold (%d) must exceed retry_budget (%d)",
				c.Fetch.CircuitThreshold, c.Imports.RetryBudget)
		}
		if c.Fetch.CircuitTimeout > c.Imports.RetryDelay {
			return fmt.Errorf("circuit_timeout (%s) must not exceed retry_delay (%s)",
				c.Fetch.CircuitTimeout.Duration(), c.Imports.RetryDelay.Duration())
		}
	}
	if c.Encryption.Enabled && c.Encryption.PassphraseEnv == "" {
		return errors.New("encryption enabled but passphrase_env is empty")
	}
	if c.Serve.Listen == "" {
		return errors.New("serve listen address must not be empty")
	}
	return nil
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
