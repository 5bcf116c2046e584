package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the Tide backend.
type Config struct {
	Server    ServerConfig      `mapstructure:"server"`
	Database  DatabaseConfig    `mapstructure:"database"`
	Cache     CacheConfig       `mapstructure:"cache"`
	Auth      AuthConfig        `mapstructure:"auth"`
	RateLimit RateLimitSettings `mapstructure:"ratelimit"`
	Audit     AuditSettings     `mapstructure:"audit"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// RateLimitSettings configures the fixed-window limiter groups.
type RateLimitSettings struct {
	Enabled bool           `mapstructure:"enabled"`
	API     RateLimitGroup `mapstructure:"api"`
	Auth    RateLimitGroup `mapstructure:"auth"`
}

// RateLimitGroup is one admission budget: Requests per Window.
type RateLimitGroup struct {
	Requests int64         `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// AuditSettings configures request auditing and retention.
type AuditSettings struct {
	ExcludedPaths []string      `mapstructure:"excluded_paths"`
	MaxBodyBytes  int64         `mapstructure:"max_body_bytes"`
	RetentionDays int           `mapstructure:"retention_days"`
	CleanupSpec   string        `mapstructure:"cleanup_schedule"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("TIDE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

// Validate checks invariants that cannot be defaulted away.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWT.Secret) == "" {
		return errors.New("config: auth.jwt.secret is required")
	}
	if c.Auth.JWT.TTL <= 0 {
		return errors.New("config: auth.jwt.access_token_ttl must be positive")
	}
	if c.Auth.Admin.ClientID != "" && c.Auth.Admin.ClientSecret == "" {
		return errors.New("config: auth.admin.client_secret is required when auth.admin.client_id is set")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/tide.sqlite")

	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.address", "127.0.0.1:6379")
	v.SetDefault("cache.redis.username", "")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.tls", false)
	v.SetDefault("cache.redis.timeout", "5s")

	v.SetDefault("auth.jwt.issuer", "tide")
	v.SetDefault("auth.jwt.access_token_ttl", "24h")
	v.SetDefault("auth.cookie.name", "tide_session")
	v.SetDefault("auth.cookie.secure", false)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.api.requests", 100)
	v.SetDefault("ratelimit.api.window", "1m")
	v.SetDefault("ratelimit.auth.requests", 10)
	v.SetDefault("ratelimit.auth.window", "1m")

	v.SetDefault("audit.excluded_paths", []string{"/health", "/metrics", "/favicon.ico"})
	v.SetDefault("audit.max_body_bytes", 10*1024)
	v.SetDefault("audit.retention_days", 90)
	v.SetDefault("audit.cleanup_schedule", "@daily")
	v.SetDefault("audit.write_timeout", "5s")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
