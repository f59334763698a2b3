// Package config содержит логику чтения конфигурации сервиса бронирования парковок.
package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/mmeshcher/tuparking/internal/model"
)

// Config содержит параметры конфигурации сервиса бронирования парковок.
type Config struct {
	RunAddress           string        `env:"RUN_ADDRESS"`
	DatabaseURI          string        `env:"DATABASE_URI"`
	JWTSecret            string        `env:"JWT_SECRET"`
	TokenTTL             time.Duration `env:"TOKEN_TTL"`
	RedisAddress         string        `env:"REDIS_ADDRESS"`
	DefaultPaymentMethod string        `env:"DEFAULT_PAYMENT_METHOD"`
	SweepInterval        time.Duration `env:"SWEEP_INTERVAL"`

	// Задаются только через окружение.
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Значения из окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envCfg := *cfg

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI, in-memory storage when empty")
	flag.StringVar(&cfg.JWTSecret, "s", "", "secret for signing access tokens")
	flag.DurationVar(&cfg.TokenTTL, "t", 168*time.Hour, "access token lifetime")
	flag.StringVar(&cfg.RedisAddress, "r", "", "redis address for token revocation")
	flag.StringVar(&cfg.DefaultPaymentMethod, "p", string(model.PaymentMethodCreditCard), "default payment method for recharges")
	flag.DurationVar(&cfg.SweepInterval, "i", time.Minute, "interval of overdue reservations sweep, 0 disables")

	flag.Parse()

	if envCfg.RunAddress != "" {
		cfg.RunAddress = envCfg.RunAddress
	}
	if envCfg.DatabaseURI != "" {
		cfg.DatabaseURI = envCfg.DatabaseURI
	}
	if envCfg.JWTSecret != "" {
		cfg.JWTSecret = envCfg.JWTSecret
	}
	if _, ok := os.LookupEnv("TOKEN_TTL"); ok {
		cfg.TokenTTL = envCfg.TokenTTL
	}
	if envCfg.RedisAddress != "" {
		cfg.RedisAddress = envCfg.RedisAddress
	}
	if envCfg.DefaultPaymentMethod != "" {
		cfg.DefaultPaymentMethod = envCfg.DefaultPaymentMethod
	}
	if _, ok := os.LookupEnv("SWEEP_INTERVAL"); ok {
		cfg.SweepInterval = envCfg.SweepInterval
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	method := model.NormalizePaymentMethod(cfg.DefaultPaymentMethod, "")
	if method == "" {
		return nil, fmt.Errorf("unknown default payment method %q", cfg.DefaultPaymentMethod)
	}
	cfg.DefaultPaymentMethod = string(method)

	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", cfg.TokenTTL)
	}
	if cfg.SweepInterval < 0 {
		return nil, fmt.Errorf("sweep interval must not be negative, got %s", cfg.SweepInterval)
	}

	return cfg, nil
}
