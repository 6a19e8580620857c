package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config is the root application configuration, loaded from a YAML file and
// overridable via BARBERHQ_-prefixed environment variables.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	SSO       SSOConfig       `mapstructure:"sso"`
	Redis     RedisConfig     `mapstructure:"redis"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Cleanup   CleanupConfig   `mapstructure:"cleanup"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig selects and parameterises the storage driver.
type DatabaseConfig struct {
	Driver   string            `mapstructure:"driver"`
	Path     string            `mapstructure:"path"`
	DSN      string            `mapstructure:"dsn"`
	Host     string            `mapstructure:"host"`
	Port     int               `mapstructure:"port"`
	Name     string            `mapstructure:"name"`
	User     string            `mapstructure:"user"`
	Password string            `mapstructure:"password"`
	Options  map[string]string `mapstructure:"options"`
}

// AuthConfig holds token and session settings.
type AuthConfig struct {
	JWTSecret        string        `mapstructure:"jwt_secret"`
	Issuer           string        `mapstructure:"issuer"`
	AccessTokenTTL   time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL  time.Duration `mapstructure:"refresh_token_ttl"`
	ImpersonationTTL time.Duration `mapstructure:"impersonation_ttl"`
	EncryptionKey    string        `mapstructure:"encryption_key"`
	LockoutThreshold int           `mapstructure:"lockout_threshold"`
	LockoutDuration  time.Duration `mapstructure:"lockout_duration"`
}

// SSOConfig configures the optional OIDC provider.
type SSOConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	Issuer       string   `mapstructure:"issuer"`
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	RedirectURL  string   `mapstructure:"redirect_url"`
	Scopes       []string `mapstructure:"scopes"`
}

// RedisConfig configures the optional Redis cache backend.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SMTPConfig configures outbound invitation email.
type SMTPConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	UseTLS   bool   `mapstructure:"use_tls"`
}

// RateLimitConfig bounds request throughput per client.
type RateLimitConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

// CleanupConfig controls the background maintenance jobs.
type CleanupConfig struct {
	Schedule           string        `mapstructure:"schedule"`
	AuditRetentionDays int           `mapstructure:"audit_retention_days"`
	InviteRetention    time.Duration `mapstructure:"invite_retention"`
}

// LoggingConfig sets the log level.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// LoadConfig reads configuration from the optional file path plus environment.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/barberhq.db")
	v.SetDefault("auth.issuer", "barberhq")
	v.SetDefault("auth.access_token_ttl", "15m")
	v.SetDefault("auth.refresh_token_ttl", "720h")
	v.SetDefault("auth.impersonation_ttl", "1h")
	v.SetDefault("auth.lockout_threshold", 5)
	v.SetDefault("auth.lockout_duration", "15m")
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.max_requests", 300)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("cleanup.schedule", "@hourly")
	v.SetDefault("cleanup.audit_retention_days", 90)
	v.SetDefault("cleanup.invite_retention", "720h")
	v.SetDefault("logging.level", "info")

	v.SetEnvPrefix("BARBERHQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	decodeHook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook)); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return fmt.Errorf("config: auth.jwt_secret is required")
	}
	switch len(c.Auth.EncryptionKey) {
	case 0:
		return fmt.Errorf("config: auth.encryption_key is required")
	case 16, 24, 32:
	default:
		return fmt.Errorf("config: auth.encryption_key must be 16, 24, or 32 bytes")
	}
	if c.SSO.Enabled {
		if c.SSO.Issuer == "" || c.SSO.ClientID == "" || c.SSO.ClientSecret == "" || c.SSO.RedirectURL == "" {
			return fmt.Errorf("config: sso requires issuer, client_id, client_secret, and redirect_url")
		}
	}
	return nil
}

// Addr returns the listen address in host:port form.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
