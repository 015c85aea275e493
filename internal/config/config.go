package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

var knownWeakSecrets = []string{
	"change-me", "your_jwt_secret", "secret", "admin", "password",
}

type Config struct {
	Port                int    `env:"PORT" envDefault:"3000"`
	Environment         string `env:"ENVIRONMENT" envDefault:"development"`
	DatabaseURL         string `env:"DATABASE_URL,required"`
	RedisURL            string `env:"REDIS_URL,required"`
	JWTSecret           string `env:"JWT_SECRET" envDefault:"your_jwt_secret"`
	JWTTTLHours         int    `env:"JWT_TTL_HOURS" envDefault:"24"`
	BridgeURL           string `env:"BRIDGE_URL" envDefault:"ws://127.0.0.1:3001"`
	QRMaxAttempts       int    `env:"QR_MAX_ATTEMPTS" envDefault:"30"`
	QRPollIntervalMs    int    `env:"QR_POLL_INTERVAL_MS" envDefault:"1000"`
	DefaultOrgID        int64  `env:"DEFAULT_ORG_ID" envDefault:"1"`
	DefaultLocation     string `env:"DEFAULT_LOCATION" envDefault:"Gurugram"`
	PairRateLimitPerMin int    `env:"PAIR_RATE_LIMIT_PER_MIN" envDefault:"10"`
	RunMigrations       bool   `env:"RUN_MIGRATIONS" envDefault:"true"`
	LogLevel            string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) JWTTTL() time.Duration {
	return time.Duration(c.JWTTTLHours) * time.Hour
}

func (c *Config) QRPollInterval() time.Duration {
	return time.Duration(c.QRPollIntervalMs) * time.Millisecond
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) Validate(isProduction bool) error {
	if c.QRMaxAttempts <= 0 {
		return fmt.Errorf("QR_MAX_ATTEMPTS must be positive")
	}
	if c.QRPollIntervalMs <= 0 {
		return fmt.Errorf("QR_POLL_INTERVAL_MS must be positive")
	}
	if !strings.HasPrefix(c.BridgeURL, "ws://") && !strings.HasPrefix(c.BridgeURL, "wss://") {
		return fmt.Errorf("BRIDGE_URL must use ws:// or wss://")
	}

	if isProduction {
		if err := validateSecret("JWT_SECRET", c.JWTSecret); err != nil {
			return err
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
		if strings.HasPrefix(c.BridgeURL, "ws://") {
			log.Warn().Msg("BRIDGE_URL uses ws:// (not TLS) in production: consider using wss://")
		}
	}

	return nil
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in production (generate with: openssl rand -base64 32)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret in production", name)
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
