package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

const (
	DefaultRedirectPort = 3939
	DefaultRedirectPath = "redirect"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Redirect    RedirectConfig    `toml:"redirect"`
	Relay       RelayConfig       `toml:"relay"`
	Database    DatabaseConfig    `toml:"database"`
	Token       TokenConfig       `toml:"token"`
	Metrics     MetricsConfig     `toml:"metrics"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// RedirectConfig describes the local listener that receives the OAuth redirect.
type RedirectConfig struct {
	Host    string   `toml:"host"`
	Port    int      `toml:"port"`
	Path    string   `toml:"path"`
	Timeout Duration `toml:"timeout"`
}

// URI returns the redirect URI registered with the identity provider.
func (r RedirectConfig) URI() string {
	return fmt.Sprintf("http://localhost:%d/%s", r.Port, strings.TrimPrefix(r.Path, "/"))
}

// Addr returns the listen address for the callback server.
func (r RedirectConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// RelayConfig controls the currently-playing relay.
type RelayConfig struct {
	Interval      Duration `toml:"interval"`
	CallTimeout   Duration `toml:"call_timeout"`
	InboxCapacity int      `toml:"inbox_capacity"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// TokenConfig locates the persisted access token.
type TokenConfig struct {
	Path string `toml:"path"`
}

// ResolvedPath expands a leading ~ to the user's home directory.
func (t TokenConfig) ResolvedPath() string {
	return ExpandHome(t.Path)
}

// MetricsConfig enables the prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `toml:"addr"`
}

// Duration wraps [time.Duration] so it can be written as "5s" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, string(text), err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes the configuration back to path as TOML.
func SaveConfig(path string, config *Config) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ApplyEnv overrides file values with the SPOTIFY_* and REDIRECT_SERVER_* environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}

	if v := getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Credentials.Spotify.ClientID = v
	}
	if v := getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Credentials.Spotify.ClientSecret = v
	}
	if v := getenv("REDIRECT_SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: REDIRECT_SERVER_PORT=%q", ErrInvalidConfig, v)
		}
		c.Redirect.Port = port
	}
	if v := getenv("REDIRECT_SERVER_PATH"); v != "" {
		c.Redirect.Path = v
	}
	return nil
}

// Validate checks the settings needed for the authorization flow.
func (c *Config) Validate() error {
	spotify := c.Credentials.Spotify
	if spotify.ClientID == "" || spotify.ClientSecret == "" {
		return fmt.Errorf("%w: spotify client_id and client_secret must be set", ErrMissingCredentials)
	}
	if c.Redirect.Port <= 0 || c.Redirect.Port > 65535 {
		return fmt.Errorf("%w: redirect port %d out of range", ErrInvalidConfig, c.Redirect.Port)
	}
	if strings.Trim(c.Redirect.Path, "/") == "" {
		return fmt.Errorf("%w: redirect path must not be empty", ErrInvalidConfig)
	}
	if c.Redirect.Timeout.Duration < 0 {
		return fmt.Errorf("%w: redirect timeout must not be negative", ErrInvalidConfig)
	}
	if c.Relay.InboxCapacity < 0 {
		return fmt.Errorf("%w: relay inbox_capacity must not be negative", ErrInvalidConfig)
	}
	return nil
}

// ExpandHome replaces a leading "~" with the current user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
