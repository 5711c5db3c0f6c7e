package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "./rules.json", cfg.RulesPath)
	assert.Equal(t, "./settings.json", cfg.SettingsPath)
	assert.Equal(t, "./history.db", cfg.HistoryPath)
	assert.Empty(t, cfg.RedisAddress)
	assert.Empty(t, cfg.RefreshSchedule)
	assert.True(t, cfg.RateLimitEnabled)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("RULES_PATH", "/etc/autoresponder/rules.json")
	t.Setenv("REDIS_ADDRESS", "localhost:6379")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("RATE_LIMIT_ENABLED", "false")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "/etc/autoresponder/rules.json", cfg.RulesPath)
	assert.Equal(t, "localhost:6379", cfg.RedisAddress)
	assert.Equal(t, 3, cfg.RedisDBNumber())
	assert.False(t, cfg.RateLimitEnabled)

	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad port", func(c *Config) { c.Port = "not-a-port" }, "PORT"},
		{"port out of range", func(c *Config) { c.Port = "70000" }, "PORT"},
		{"empty rules path", func(c *Config) { c.RulesPath = "" }, "RULES_PATH"},
		{"empty settings path", func(c *Config) { c.SettingsPath = "" }, "SETTINGS_PATH"},
		{"redis db out of range", func(c *Config) { c.RedisDB = "16" }, "REDIS_DB"},
		{"zero rps", func(c *Config) { c.RateLimitRPS = "0" }, "RATE_LIMIT_RPS"},
		{"negative burst", func(c *Config) { c.RateLimitBurst = "-1" }, "RATE_LIMIT_BURST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestGetBoolEnv(t *testing.T) {
	t.Setenv("TEST_BOOL", "garbage")
	assert.True(t, getBoolEnv("TEST_BOOL", true), "unparseable values fall back to the default")

	t.Setenv("TEST_BOOL", "false")
	assert.False(t, getBoolEnv("TEST_BOOL", true))
}
