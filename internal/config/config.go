package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "admin", "password",
}

type Config struct {
	Port                   int    `env:"PORT" envDefault:"8080"`
	Environment            string `env:"APP_ENV" envDefault:"development"`
	DatabaseURL            string `env:"DATABASE_URL"`
	RedisURL               string `env:"REDIS_URL"`
	InventoryFile          string `env:"INVENTORY_FILE"`
	IdentityJWTSecret      string `env:"IDENTITY_JWT_SECRET,required"`
	VoiceSessionTTLMinutes int    `env:"VOICE_SESSION_TTL_MINUTES" envDefault:"60"`
	VoiceRateLimit         int    `env:"VOICE_RATE_LIMIT" envDefault:"100"`
	VoiceRateWindowMinutes int    `env:"VOICE_RATE_WINDOW_MINUTES" envDefault:"15"`
	GoogleAgentUserID      string `env:"GOOGLE_AGENT_USER_ID" envDefault:"autovolt"`
	SiriWebhookSecret      string `env:"SIRI_WEBHOOK_SECRET"`
	ManufacturerName       string `env:"MANUFACTURER_NAME" envDefault:"AutoVolt IoT"`
	LogLevel               string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile                string `env:"LOG_FILE"`
	SweepIntervalSeconds   int    `env:"SWEEP_INTERVAL_SECONDS" envDefault:"300"`
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.VoiceSessionTTLMinutes) * time.Minute
}

func (c *Config) RateWindow() time.Duration {
	return time.Duration(c.VoiceRateWindowMinutes) * time.Minute
}

func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate(isProduction bool) error {
	if c.DatabaseURL == "" && c.InventoryFile == "" {
		return fmt.Errorf("either DATABASE_URL or INVENTORY_FILE must be set")
	}
	if c.VoiceSessionTTLMinutes <= 0 {
		return fmt.Errorf("VOICE_SESSION_TTL_MINUTES must be positive")
	}
	if c.VoiceRateLimit <= 0 || c.VoiceRateWindowMinutes <= 0 {
		return fmt.Errorf("VOICE_RATE_LIMIT and VOICE_RATE_WINDOW_MINUTES must be positive")
	}

	if isProduction {
		if err := validateSecret("IDENTITY_JWT_SECRET", c.IdentityJWTSecret); err != nil {
			return err
		}

		if c.SiriWebhookSecret == "" {
			log.Warn().Msg("SIRI_WEBHOOK_SECRET is empty in production: webhook signature verification disabled")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
		if c.RedisURL == "" {
			log.Warn().Msg("REDIS_URL is empty in production: voice sessions are kept in process memory")
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
