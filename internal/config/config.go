// ABOUTME: Configuration loading and parsing for mcp-hub
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the complete mcp-hub configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Admin     AdminConfig     `yaml:"admin"`
	Providers ProvidersConfig `yaml:"providers"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
	// BaseURL is the externally reachable URL of the gateway, used for OAuth
	// redirect URIs and discovery documents. Can be overridden at runtime via
	// the app_settings table.
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds authentication and credential-encryption configuration
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	// EncryptionKey is the master key for encrypting provider credentials at
	// rest. Changing it invalidates every stored secret.
	EncryptionKey string `yaml:"encryption_key"`

	AccessTokenTTL  time.Duration `yaml:"-"`
	RefreshTokenTTL time.Duration `yaml:"-"`
	// TokenRefreshMargin is the safety window before a provider token's
	// expiry at which it is treated as stale and refreshed.
	TokenRefreshMargin time.Duration `yaml:"-"`

	AccessTokenTTLRaw     string `yaml:"access_token_ttl"`
	RefreshTokenTTLRaw    string `yaml:"refresh_token_ttl"`
	TokenRefreshMarginRaw string `yaml:"token_refresh_margin"`
}

// AdminConfig holds the bootstrap admin account created on first start
type AdminConfig struct {
	Email    string `yaml:"email" validate:"omitempty,email"`
	Password string `yaml:"password"`
}

// ProvidersConfig holds per-provider OAuth/API credentials. Values here are
// defaults; admin-set overrides in the app_settings table take precedence.
type ProvidersConfig struct {
	Slack    OAuthClientConfig `yaml:"slack"`
	Teamwork OAuthClientConfig `yaml:"teamwork"`
	Miro     OAuthClientConfig `yaml:"miro"`
	Figma    OAuthClientConfig `yaml:"figma"`
	Telegram TelegramConfig    `yaml:"telegram"`
}

// OAuthClientConfig holds an OAuth2 client id/secret pair for one provider
type OAuthClientConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// TelegramConfig holds MTProto API credentials and the bridge sidecar address
type TelegramConfig struct {
	APIID     string `yaml:"api_id"`
	APIHash   string `yaml:"api_hash"`
	BridgeURL string `yaml:"bridge_url" validate:"omitempty,url"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// Defaults applied when the config file leaves fields unset.
const (
	DefaultHTTPAddr           = ":8080"
	DefaultBaseURL            = "http://localhost:8080"
	DefaultAccessTokenTTL     = 20 * 24 * time.Hour
	DefaultRefreshTokenTTL    = 30 * 24 * time.Hour
	DefaultTokenRefreshMargin = 5 * time.Minute
)

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

// Parse parses raw YAML configuration bytes.
func Parse(data []byte) (*Config, error) {
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = DefaultHTTPAddr
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = DefaultBaseURL
	}
	if c.Auth.AccessTokenTTL == 0 {
		c.Auth.AccessTokenTTL = DefaultAccessTokenTTL
	}
	if c.Auth.RefreshTokenTTL == 0 {
		c.Auth.RefreshTokenTTL = DefaultRefreshTokenTTL
	}
	if c.Auth.TokenRefreshMargin == 0 {
		c.Auth.TokenRefreshMargin = DefaultTokenRefreshMargin
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Auth.EncryptionKey == "" {
		return fmt.Errorf("auth.encryption_key is required")
	}

	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Auth.AccessTokenTTLRaw != "" {
		cfg.Auth.AccessTokenTTL, err = time.ParseDuration(cfg.Auth.AccessTokenTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing access_token_ttl %q: %w", cfg.Auth.AccessTokenTTLRaw, err)
		}
	}

	if cfg.Auth.RefreshTokenTTLRaw != "" {
		cfg.Auth.RefreshTokenTTL, err = time.ParseDuration(cfg.Auth.RefreshTokenTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing refresh_token_ttl %q: %w", cfg.Auth.RefreshTokenTTLRaw, err)
		}
	}

	if cfg.Auth.TokenRefreshMarginRaw != "" {
		cfg.Auth.TokenRefreshMargin, err = time.ParseDuration(cfg.Auth.TokenRefreshMarginRaw)
		if err != nil {
			return fmt.Errorf("parsing token_refresh_margin %q: %w", cfg.Auth.TokenRefreshMarginRaw, err)
		}
	}

	return nil
}
