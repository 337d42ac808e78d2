package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (KSTORE_ prefix), flags, or YAML config files.
type Config struct {
	Addr          string        `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL   string        `usage:"PostgreSQL connection URL (KSTORE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	RedisURL      string        `default:"redis://localhost:6379/0" usage:"Redis connection URL for cart storage" flag:"redis-url"`
	SessionPepper string        `usage:"HMAC pepper for session token hashing (KSTORE_SESSION_PEPPER)" flag:"session-pepper"`
	Currency      string        `default:"USD" usage:"ISO currency code for payment authorization"`
	CartTTL       time.Duration `default:"720h" usage:"Idle cart expiry; 0 disables" flag:"cart-ttl"`
	StripeKey     string        `usage:"Stripe secret key; card payments are disabled when empty" flag:"stripe-key"`
	SMTP          SMTPConfig
	Notify        NotifyConfig
	RateLimit     RateLimitConfig
	CORS          CORSConfig
	Graceful      GracefulConfig
}

// SMTPConfig controls the outbound email transport. Notifications are
// disabled entirely when Host is empty.
type SMTPConfig struct {
	Host     string `usage:"SMTP host; empty disables email notifications"`
	Port     int    `default:"587" usage:"SMTP port"`
	From     string `default:"orders@kstore.example" usage:"From address for buyer emails"`
	Username string `usage:"SMTP username; empty sends without AUTH"`
	Password string `usage:"SMTP password"`
}

// NotifyConfig tunes the notification worker.
type NotifyConfig struct {
	PollInterval time.Duration `default:"1s" usage:"Job queue poll interval" flag:"notify-poll-interval"`
	BatchSize    int           `default:"10" usage:"Jobs claimed per poll" flag:"notify-batch-size"`
	MaxAttempts  int           `default:"3" usage:"Delivery attempts before a job is parked" flag:"notify-max-attempts"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "KSTORE",
		Files:     []string{"config.yaml", "/etc/kstore/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set KSTORE_DATABASE_URL or DATABASE_URL")
	}
	if cfg.SessionPepper == "" {
		return nil, errors.New("session pepper is required: set KSTORE_SESSION_PEPPER")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables
// (Railway, Render, etc.) that use standard names like DATABASE_URL and
// PORT to the application's KSTORE_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if v := os.Getenv("REDIS_URL"); v != "" && c.RedisURL == "redis://localhost:6379/0" {
		c.RedisURL = v
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
