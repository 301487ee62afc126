package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// TokenEnvVar overrides the configured AniList token when set.
const TokenEnvVar = "ALX_TOKEN"

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Migration   MigrationConfig   `toml:"migration"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	AniList AniListConfig `toml:"anilist"`
}

// AniListConfig contains AniList API client settings.
//
// ClientSecret is only needed for the authorization code flow; the implicit grant only needs ClientID.
type AniListConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	Endpoint     string `toml:"endpoint"`
	Token        string `toml:"token"`
	TokenPath    string `toml:"token_path"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MigrationConfig contains migration engine tuning.
type MigrationConfig struct {
	PageSize          int    `toml:"page_size"`
	SearchPageSize    int    `toml:"search_page_size"`
	MatchThreshold    int    `toml:"match_threshold"`
	SafetyMargin      int    `toml:"safety_margin"`
	DefaultIntervalMS int    `toml:"default_interval_ms"`
	DeletePolicy      string `toml:"delete_policy"`
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	m := c.Migration
	switch {
	case m.PageSize <= 0:
		return fmt.Errorf("%w: migration.page_size must be positive", ErrInvalidConfig)
	case m.SearchPageSize <= 0:
		return fmt.Errorf("%w: migration.search_page_size must be positive", ErrInvalidConfig)
	case m.MatchThreshold < 0 || m.MatchThreshold > 100:
		return fmt.Errorf("%w: migration.match_threshold must be within 0-100", ErrInvalidConfig)
	case m.SafetyMargin < 0:
		return fmt.Errorf("%w: migration.safety_margin must not be negative", ErrInvalidConfig)
	case m.DefaultIntervalMS <= 0:
		return fmt.Errorf("%w: migration.default_interval_ms must be positive", ErrInvalidConfig)
	}
	switch m.DeletePolicy {
	case "always", "on_match":
	default:
		return fmt.Errorf("%w: migration.delete_policy must be always or on_match, got %q", ErrInvalidConfig, m.DeletePolicy)
	}
	return nil
}

// ResolveToken returns the AniList token from the environment, the config, or the saved token file, in that order.
func (c *Config) ResolveToken() (string, error) {
	if tok := strings.TrimSpace(os.Getenv(TokenEnvVar)); tok != "" {
		return tok, nil
	}
	if tok := strings.TrimSpace(c.Credentials.AniList.Token); tok != "" {
		return tok, nil
	}
	if path := c.Credentials.AniList.TokenPath; path != "" {
		data, err := os.ReadFile(ExpandHome(path))
		if err == nil {
			if tok := strings.TrimSpace(string(data)); tok != "" {
				return tok, nil
			}
		} else if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to read token file: %w", err)
		}
	}
	return "", fmt.Errorf("%w: no AniList token (run 'alx auth login' or set %s)", ErrMissingCredentials, TokenEnvVar)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
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

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
