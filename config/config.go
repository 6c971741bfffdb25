package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

type Config struct {
	Port          string
	GinMode       string
	LogLevel      string
	PublicBaseURL string
	CORSOrigins   []string

	DB        DBConfig
	JWT       JWTConfig
	Redis     RedisConfig
	Minio     MinioConfig
	RateLimit RateLimitConfig

	BillingWebhookSecret string
	SessionMaxAge        time.Duration
	SubscriptionGrace    time.Duration
}

type DBConfig struct {
	Driver string // postgres, mysql, sqlite
	DSN    string
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled is false when no address is configured; the service then runs
// with an in-process hub and no cache.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

func (m MinioConfig) Enabled() bool {
	return m.Endpoint != ""
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// Load reads the configuration from the environment. Call godotenv.Load
// beforehand to pick up a .env file. Malformed values are reported rather
// than replaced by their defaults.
func Load() (*Config, error) {
	env := &envReader{}
	cfg := &Config{
		Port:          env.str("PORT", "8080"),
		GinMode:       env.str("GIN_MODE", "debug"),
		LogLevel:      env.str("LOG_LEVEL", "info"),
		PublicBaseURL: strings.TrimRight(env.str("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		CORSOrigins:   splitList(env.str("CORS_ORIGINS", "http://localhost:3000")),
		DB: DBConfig{
			Driver: env.str("DB_DRIVER", "postgres"),
			DSN:    env.str("DB_DSN", "host=localhost user=postgres password=postgres dbname=qrmenu port=5432 sslmode=disable"),
		},
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
			TTL:    env.duration("JWT_TTL", 24*time.Hour),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       env.integer("REDIS_DB", 0),
		},
		Minio: MinioConfig{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			AccessKey: env.str("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: env.str("MINIO_SECRET_KEY", "minioadmin"),
			Bucket:    env.str("MINIO_BUCKET", "qrmenu"),
			UseSSL:    env.boolean("MINIO_USE_SSL", false),
			PublicURL: strings.TrimRight(os.Getenv("MINIO_PUBLIC_URL"), "/"),
		},
		RateLimit: RateLimitConfig{
			RPS:   env.float("RATE_LIMIT_RPS", 20),
			Burst: env.integer("RATE_LIMIT_BURST", 40),
		},
		BillingWebhookSecret: os.Getenv("BILLING_WEBHOOK_SECRET"),
		SessionMaxAge:        env.duration("SESSION_MAX_AGE", 12*time.Hour),
		SubscriptionGrace:    env.duration("SUBSCRIPTION_GRACE", 72*time.Hour),
	}
	if err := env.err(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings that are only acceptable during development.
func (c *Config) Validate() error {
	if c.GinMode == gin.ReleaseMode && c.JWT.Secret == "" {
		return errors.New("JWT_SECRET must be set when GIN_MODE=release")
	}
	return nil
}

// envReader collects every malformed variable so they are reported together.
type envReader struct {
	errs []error
}

func (e *envReader) err() error {
	return errors.Join(e.errs...)
}

func (e *envReader) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *envReader) fail(key, value string, err error) {
	e.errs = append(e.errs, fmt.Errorf("invalid %s %q: %w", key, value, err))
}

func (e *envReader) str(key, fallback string) string {
	if v, ok := e.lookup(key); ok {
		return v
	}
	return fallback
}

func (e *envReader) integer(key string, fallback int) int {
	raw, ok := e.lookup(key)
	if !ok {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		e.fail(key, raw, err)
		return fallback
	}
	return v
}

func (e *envReader) float(key string, fallback float64) float64 {
	raw, ok := e.lookup(key)
	if !ok {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		e.fail(key, raw, err)
		return fallback
	}
	return v
}

func (e *envReader) boolean(key string, fallback bool) bool {
	raw, ok := e.lookup(key)
	if !ok {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		e.fail(key, raw, err)
		return fallback
	}
	return v
}

func (e *envReader) duration(key string, fallback time.Duration) time.Duration {
	raw, ok := e.lookup(key)
	if !ok {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		e.fail(key, raw, err)
		return fallback
	}
	if v <= 0 {
		e.fail(key, raw, errors.New("must be positive"))
		return fallback
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
