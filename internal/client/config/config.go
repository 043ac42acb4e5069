package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// EnvPrefix is prepended to every environment variable the CLI reads.
const EnvPrefix = "GOPHAUTH_CLI_"

// Config holds runtime settings for the gophauth CLI.
//
// Fields:
//   - ServerURL: base URL of the gophauth HTTP API.
//   - DatabasePath: SQLite file that caches the current token pair.
//   - RequestTimeout: per-request HTTP timeout.
//   - OnlineCheckInterval: how often the REPL probes server reachability.
type Config struct {
	ServerURL           string        `env:"SERVER_URL"`
	DatabasePath        string        `env:"DATABASE_PATH"`
	RequestTimeout      time.Duration `env:"REQUEST_TIMEOUT"`
	OnlineCheckInterval time.Duration `env:"ONLINE_CHECK_INTERVAL"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.DatabasePath = "gophauth.db"
	c.RequestTimeout = 10 * time.Second
	c.OnlineCheckInterval = 3 * time.Second
}

// Validate reports settings the CLI cannot start with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("invalid server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid server url %q: scheme must be http or https", c.ServerURL)
	}
	if c.DatabasePath == "" {
		return errors.New("database path must not be empty")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request timeout must be positive")
	}
	if c.OnlineCheckInterval <= 0 {
		return errors.New("online check interval must be positive")
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), the environment and command-line flags. Later sources
// take precedence over earlier ones.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
