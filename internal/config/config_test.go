package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigMethods(t *testing.T) {
	t.Run("Addr returns formatted port", func(t *testing.T) {
		cfg := &Config{Port: 3000}
		assert.Equal(t, ":3000", cfg.Addr())
	})

	t.Run("SessionTTL converts minutes to duration", func(t *testing.T) {
		cfg := &Config{VoiceSessionTTLMinutes: 60}
		assert.Equal(t, time.Hour, cfg.SessionTTL())
	})

	t.Run("RateWindow converts minutes to duration", func(t *testing.T) {
		cfg := &Config{VoiceRateWindowMinutes: 15}
		assert.Equal(t, 15*time.Minute, cfg.RateWindow())
	})

	t.Run("SweepInterval converts seconds to duration", func(t *testing.T) {
		cfg := &Config{SweepIntervalSeconds: 300}
		assert.Equal(t, 5*time.Minute, cfg.SweepInterval())
	})
}

func TestLoad(t *testing.T) {
	keys := []string{
		"PORT", "DATABASE_URL", "REDIS_URL", "INVENTORY_FILE", "IDENTITY_JWT_SECRET",
		"VOICE_SESSION_TTL_MINUTES", "VOICE_RATE_LIMIT", "VOICE_RATE_WINDOW_MINUTES", "LOG_LEVEL",
	}
	originalEnv := make(map[string]string, len(keys))
	for _, k := range keys {
		originalEnv[k] = os.Getenv(k)
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	t.Run("loads config with defaults", func(t *testing.T) {
		os.Setenv("IDENTITY_JWT_SECRET", "test-secret")
		os.Setenv("INVENTORY_FILE", "devices.yaml")
		os.Unsetenv("PORT")
		os.Unsetenv("VOICE_SESSION_TTL_MINUTES")
		os.Unsetenv("VOICE_RATE_LIMIT")
		os.Unsetenv("VOICE_RATE_WINDOW_MINUTES")
		os.Unsetenv("LOG_LEVEL")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, 60, cfg.VoiceSessionTTLMinutes)
		assert.Equal(t, 100, cfg.VoiceRateLimit)
		assert.Equal(t, 15, cfg.VoiceRateWindowMinutes)
		assert.Equal(t, "AutoVolt IoT", cfg.ManufacturerName)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.NoError(t, cfg.Validate(false))
	})

	t.Run("loads custom values", func(t *testing.T) {
		os.Setenv("IDENTITY_JWT_SECRET", "test-secret")
		os.Setenv("PORT", "3000")
		os.Setenv("VOICE_RATE_LIMIT", "3")
		os.Setenv("LOG_LEVEL", "debug")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 3000, cfg.Port)
		assert.Equal(t, 3, cfg.VoiceRateLimit)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("fails without required IDENTITY_JWT_SECRET", func(t *testing.T) {
		os.Unsetenv("IDENTITY_JWT_SECRET")

		_, err := Load()
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			InventoryFile:          "devices.yaml",
			IdentityJWTSecret:      strings.Repeat("k", 32),
			VoiceSessionTTLMinutes: 60,
			VoiceRateLimit:         100,
			VoiceRateWindowMinutes: 15,
		}
	}

	t.Run("requires an inventory source", func(t *testing.T) {
		cfg := valid()
		cfg.InventoryFile = ""
		assert.Error(t, cfg.Validate(false))

		cfg.DatabaseURL = "postgres://localhost/test"
		assert.NoError(t, cfg.Validate(false))
	})

	t.Run("rejects non-positive limits", func(t *testing.T) {
		cfg := valid()
		cfg.VoiceRateLimit = 0
		assert.Error(t, cfg.Validate(false))
	})

	t.Run("rejects short secret in production", func(t *testing.T) {
		cfg := valid()
		cfg.IdentityJWTSecret = "secret"
		assert.NoError(t, cfg.Validate(false))
		assert.Error(t, cfg.Validate(true))
	})

	t.Run("accepts strong secret in production", func(t *testing.T) {
		assert.NoError(t, valid().Validate(true))
	})
}
