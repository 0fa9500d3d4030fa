package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	HTTPPort string
	LogLevel string

	DatabaseURL string

	TokenExpiration       time.Duration
	VerificationBaseURL   string
	TokenRateLimitPerMin  int
	IdempotencyTTL        time.Duration
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	NotifyKafkaBrokers    []string
	NotifyKafkaTopic      string
	ShutdownGracePeriod   time.Duration
	HTTPReadHeaderTimeout time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Env:                  getEnv("APP_ENV", "development"),
		HTTPPort:             getEnv("HTTP_PORT", "8080"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		VerificationBaseURL:  getEnv("VERIFICATION_BASE_URL", "http://localhost:3000"),
		TokenRateLimitPerMin: getEnvInt("TOKEN_RATE_LIMIT_PER_MIN", 60),
		RedisAddr:            strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		NotifyKafkaBrokers:   splitCSV(os.Getenv("NOTIFY_KAFKA_BROKERS")),
		NotifyKafkaTopic:     getEnv("NOTIFY_KAFKA_TOPIC", "drive-created"),
	}

	var err error
	if cfg.TokenExpiration, err = getEnvDuration("TOKEN_EXPIRATION", "72h"); err != nil {
		return nil, err
	}
	if cfg.IdempotencyTTL, err = getEnvDuration("IDEMPOTENCY_TTL", "24h"); err != nil {
		return nil, err
	}
	if cfg.ShutdownGracePeriod, err = getEnvDuration("SHUTDOWN_GRACE_PERIOD", "10s"); err != nil {
		return nil, err
	}
	if cfg.HTTPReadHeaderTimeout, err = getEnvDuration("HTTP_READ_HEADER_TIMEOUT", "5s"); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string
	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if c.TokenExpiration <= 0 {
		errs = append(errs, "TOKEN_EXPIRATION must be > 0")
	}
	if u, err := url.Parse(c.VerificationBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, "VERIFICATION_BASE_URL must be an absolute URL")
	}
	if c.TokenRateLimitPerMin <= 0 {
		errs = append(errs, "TOKEN_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.IdempotencyTTL <= 0 {
		errs = append(errs, "IDEMPOTENCY_TTL must be > 0")
	}
	if c.RedisDB < 0 {
		errs = append(errs, "REDIS_DB must be >= 0")
	}
	if len(c.NotifyKafkaBrokers) > 0 && strings.TrimSpace(c.NotifyKafkaTopic) == "" {
		errs = append(errs, "NOTIFY_KAFKA_TOPIC is required when NOTIFY_KAFKA_BROKERS is set")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, def))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trim := strings.TrimSpace(p)
		if trim != "" {
			out = append(out, trim)
		}
	}
	return out
}
