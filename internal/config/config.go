// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN; required when SESSION_STORE=postgres.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisAddr is the Redis address (host:port); required when SESSION_STORE=redis.
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// RedisPassword is the optional Redis password.
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	// SessionStore selects the session backend: "postgres" or "redis".
	SessionStore string `mapstructure:"SESSION_STORE"`
	// SessionSecret is the HMAC secret for signing session tokens. Required; startup fails without it.
	SessionSecret string `mapstructure:"SESSION_SECRET"`
	// SessionTTL is the token and session record lifetime (e.g. "24h").
	SessionTTL string `mapstructure:"SESSION_TTL"`
	// StoreTimeout bounds each session-store call on the request path (e.g. "300ms").
	StoreTimeout string `mapstructure:"STORE_TIMEOUT"`
	// ProtectedRoutes is a comma-separated list of exact paths that require authentication.
	ProtectedRoutes string `mapstructure:"PROTECTED_ROUTES"`
	// AuthRoutes is a comma-separated list of exact paths only unauthenticated users may visit (e.g. /login).
	AuthRoutes string `mapstructure:"AUTH_ROUTES"`
	// LoginURL is the redirect target for unauthenticated requests to protected routes.
	LoginURL string `mapstructure:"LOGIN_URL"`
	// LandingURL is the redirect target for authenticated requests to auth-only routes.
	LandingURL string `mapstructure:"LANDING_URL"`
	// SecureCookies controls the cookie Secure attribute; disable only for local HTTP development.
	SecureCookies bool `mapstructure:"SECURE_COOKIES"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// Env is the application environment (e.g. "development", "production"). Selects the logger profile.
	Env string `mapstructure:"APP_ENV"`

	// Events (optional). When Kafka brokers are set, login, logout, and denied
	// requests emit session events to Kafka.
	// EventsKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	EventsKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// EventsKafkaTopic is the Kafka topic for session events (default session-events).
	EventsKafkaTopic string `mapstructure:"EVENTS_KAFKA_TOPIC"`

	// OTLPEndpoint is the OTLP gRPC endpoint for metrics (e.g. http://localhost:4317). Empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("SESSION_STORE", "postgres")
	v.SetDefault("SESSION_SECRET", "")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("STORE_TIMEOUT", "300ms")
	v.SetDefault("PROTECTED_ROUTES", "/settings")
	v.SetDefault("AUTH_ROUTES", "/login")
	v.SetDefault("LOGIN_URL", "/login")
	v.SetDefault("LANDING_URL", "/dashboard")
	v.SetDefault("SECURE_COOKIES", true)
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("EVENTS_KAFKA_TOPIC", "session-events")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("config: SESSION_SECRET must be set")
	}
	switch cfg.SessionStore {
	case "postgres", "redis":
	default:
		return nil, fmt.Errorf("config: SESSION_STORE must be postgres or redis, got %q", cfg.SessionStore)
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	return &cfg, nil
}

// TTL parses SessionTTL as a time.Duration. Returns 24h if unset or invalid.
func (c *Config) TTL() time.Duration {
	d, err := time.ParseDuration(c.SessionTTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// StoreCallTimeout parses StoreTimeout as a time.Duration. Returns 300ms if unset or invalid.
func (c *Config) StoreCallTimeout() time.Duration {
	d, err := time.ParseDuration(c.StoreTimeout)
	if err != nil || d <= 0 {
		return 300 * time.Millisecond
	}
	return d
}

// ProtectedRouteList returns the exact protected paths from the comma-separated config.
func (c *Config) ProtectedRouteList() []string {
	return splitList(c.ProtectedRoutes)
}

// AuthRouteList returns the exact auth-only paths from the comma-separated config.
func (c *Config) AuthRouteList() []string {
	return splitList(c.AuthRoutes)
}

// EventsKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if events are enabled (non-empty list) and to create the producer.
func (c *Config) EventsKafkaBrokersList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.EventsKafkaBrokers)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
