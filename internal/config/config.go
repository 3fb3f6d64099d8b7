// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var ErrJWTSecretRequired = errors.New("JWT_SECRET is not set")

type Config struct {
	HTTPAddr    string
	DatabaseURL string

	JWTSecret string
	JWTTTL    time.Duration

	LogLevel  string
	LogFormat string

	RateLimitRPS    float64
	RateLimitBurst  int
	RateLimitWindow time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	OTelExporter    string
	OTelServiceName string

	CORSAllowedOrigins []string

	// TrustProxy honours X-Forwarded-For / X-Real-IP as the client address.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxy bool
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from the given lookup function.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, fallback string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return fallback
	}

	cfg := Config{
		HTTPAddr:        get("HTTP_ADDR", ":8080"),
		DatabaseURL:     get("DATABASE_URL", "data/tasks.db"),
		JWTSecret:       get("JWT_SECRET", ""),
		LogLevel:        strings.ToLower(get("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(get("LOG_FORMAT", "json")),
		RedisAddr:       get("REDIS_ADDR", ""),
		RedisPassword:   get("REDIS_PASSWORD", ""),
		OTelExporter:    strings.ToLower(get("OTEL_EXPORTER", "none")),
		OTelServiceName: get("OTEL_SERVICE_NAME", "tasktracker-api"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, ErrJWTSecretRequired
	}

	var err error
	if cfg.JWTTTL, err = time.ParseDuration(get("JWT_TTL", "24h")); err != nil {
		return Config{}, fmt.Errorf("parse JWT_TTL: %w", err)
	}
	if cfg.JWTTTL <= 0 {
		return Config{}, fmt.Errorf("JWT_TTL must be positive, got %s", cfg.JWTTTL)
	}
	if cfg.RateLimitRPS, err = strconv.ParseFloat(get("RATE_LIMIT_RPS", "0"), 64); err != nil {
		return Config{}, fmt.Errorf("parse RATE_LIMIT_RPS: %w", err)
	}
	if cfg.RateLimitBurst, err = strconv.Atoi(get("RATE_LIMIT_BURST", "10")); err != nil {
		return Config{}, fmt.Errorf("parse RATE_LIMIT_BURST: %w", err)
	}
	if cfg.RateLimitWindow, err = time.ParseDuration(get("RATE_LIMIT_WINDOW", "1m")); err != nil {
		return Config{}, fmt.Errorf("parse RATE_LIMIT_WINDOW: %w", err)
	}
	if cfg.RedisDB, err = strconv.Atoi(get("REDIS_DB", "0")); err != nil {
		return Config{}, fmt.Errorf("parse REDIS_DB: %w", err)
	}

	if cfg.TrustProxy, err = strconv.ParseBool(get("TRUSTED_PROXY", "false")); err != nil {
		return Config{}, fmt.Errorf("parse TRUSTED_PROXY: %w", err)
	}

	switch cfg.OTelExporter {
	case "none", "stdout", "otlp":
	default:
		return Config{}, fmt.Errorf("unknown OTEL_EXPORTER %q", cfg.OTelExporter)
	}

	for _, o := range strings.Split(get("CORS_ALLOWED_ORIGINS", "*"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	return cfg, nil
}

// RedisRateLimitEnabled reports whether the fixed-window Redis limiter replaces the local one.
func (c Config) RedisRateLimitEnabled() bool {
	return c.RedisAddr != "" && c.RateLimitRPS > 0
}

// RateLimitMax is the request budget per RateLimitWindow for the Redis limiter.
func (c Config) RateLimitMax() int {
	n := int(c.RateLimitRPS * c.RateLimitWindow.Seconds())
	if n < 1 {
		n = 1
	}
	return n
}
