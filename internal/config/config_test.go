package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("POSTGRES_HOST", "testhost")
	t.Setenv("CACHE_TTL", "45s")
	t.Setenv("ENGINE_GROWTH_MULTIPLIER", "1.05")
	t.Setenv("ENGINE_CURRENCY", "eur")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "testhost", cfg.Database.Postgres.Host)
	assert.Equal(t, 45*time.Second, cfg.Cache.TTL)
	assert.True(t, cfg.Engine.GrowthMultiplier.Equal(decimal.RequireFromString("1.05")))
	assert.Equal(t, "EUR", cfg.Engine.Currency)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.Engine.GrowthMultiplier.Equal(DefaultGrowthMultiplier))
	assert.Equal(t, "USD", cfg.Engine.Currency)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 3, cfg.Source.RetryAttempts)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "non-positive growth multiplier", key: "ENGINE_GROWTH_MULTIPLIER", val: "-1"},
		{name: "unknown currency", key: "ENGINE_CURRENCY", val: "XYZQ"},
		{name: "zero rate limit", key: "RATE_LIMIT_RPS", val: "0"},
		{name: "no retry attempts", key: "SOURCE_RETRY_ATTEMPTS", val: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestPostgresConfig_URL(t *testing.T) {
	cfg := PostgresConfig{Host: "db", Port: "5432", Database: "recon", User: "u", Password: "p"}
	assert.Equal(t, "postgres://u:p@db:5432/recon?sslmode=disable", cfg.URL())
}

func TestGetEnvHelpers(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		check    func(t *testing.T)
	}{
		{
			name:     "int falls back on garbage",
			envValue: "not-a-number",
			check: func(t *testing.T) {
				assert.Equal(t, 7, getEnvAsInt("TEST_HELPER_VALUE", 7))
			},
		},
		{
			name:     "bool parses true",
			envValue: "true",
			check: func(t *testing.T) {
				assert.True(t, getEnvAsBool("TEST_HELPER_VALUE", false))
			},
		},
		{
			name:     "duration parses",
			envValue: "250ms",
			check: func(t *testing.T) {
				assert.Equal(t, 250*time.Millisecond, getEnvAsDuration("TEST_HELPER_VALUE", time.Second))
			},
		},
		{
			name:     "decimal falls back on garbage",
			envValue: "one point one",
			check: func(t *testing.T) {
				assert.True(t, getEnvAsDecimal("TEST_HELPER_VALUE", decimal.NewFromInt(2)).Equal(decimal.NewFromInt(2)))
			},
		},
		{
			name:     "string default when unset",
			envValue: "",
			check: func(t *testing.T) {
				assert.Equal(t, "fallback", getEnv("TEST_HELPER_VALUE", "fallback"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_HELPER_VALUE", tt.envValue)
			tt.check(t)
		})
	}
}
