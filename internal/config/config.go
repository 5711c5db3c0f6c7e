// Package config provides configuration management for the auto-response
// engine. It handles loading configuration from environment variables with
// sensible defaults and validates the configuration so the process starts
// safely.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Admin API port (default: 8080)
//   - LOG_LEVEL: Logging level (default: info)
//   - LOG_FILE: Log file path (default: stdout)
//
// Durable files:
//   - RULES_PATH: Rule file path (default: ./rules.json)
//   - SETTINGS_PATH: Plugin settings file path (default: ./settings.json)
//   - HISTORY_PATH: Firing-history SQLite path; empty disables history
//     (default: ./history.db)
//
// Cooldown state:
//   - REDIS_ADDRESS: Enables the Redis-backed cooldown tracker when set
//   - REDIS_PASSWORD: Redis password
//   - REDIS_DB: Redis database number 0-15 (default: 0)
//
// Remote rule refresh:
//   - REFRESH_SCHEDULE: Cron schedule for subscription refresh; empty
//     disables the refresher (default: empty)
//
// Admin API rate limiting:
//   - RATE_LIMIT_ENABLED: Enable rate limiting (default: true)
//   - RATE_LIMIT_RPS: Requests per second per client (default: 5)
//   - RATE_LIMIT_BURST: Burst size per client (default: 10)
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration values for the auto-response engine.
type Config struct {
	// Application settings
	Port     string // Admin API port number
	LogLevel string // Logging level (debug, info, warn, error)

	// Durable file paths
	RulesPath    string // Rule file path
	SettingsPath string // Settings file path
	HistoryPath  string // Firing-history database path; empty disables history

	// Redis configuration for shared cooldown state
	RedisAddress  string // Redis server address (host:port); empty selects in-memory cooldowns
	RedisPassword string // Redis authentication password
	RedisDB       string // Redis database number (0-15)

	// Remote rule refresh
	RefreshSchedule string // Cron schedule; empty disables the refresher

	// Admin API rate limiting
	RateLimitEnabled bool   // Whether admin API rate limiting is enabled
	RateLimitRPS     string // Requests per second per client
	RateLimitBurst   string // Burst size per client
}

// Load creates a Config with values from environment variables, falling back
// to defaults. Call Validate before use.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		RulesPath:    getEnv("RULES_PATH", "./rules.json"),
		SettingsPath: getEnv("SETTINGS_PATH", "./settings.json"),
		HistoryPath:  getEnv("HISTORY_PATH", "./history.db"),

		RedisAddress:  getEnv("REDIS_ADDRESS", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnv("REDIS_DB", "0"),

		RefreshSchedule: getEnv("REFRESH_SCHEDULE", ""),

		RateLimitEnabled: getBoolEnv("RATE_LIMIT_ENABLED", true),
		RateLimitRPS:     getEnv("RATE_LIMIT_RPS", "5"),
		RateLimitBurst:   getEnv("RATE_LIMIT_BURST", "10"),
	}
}

// Validate checks that every configured value parses and makes sense.
func (c *Config) Validate() error {
	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid PORT %q", c.Port)
	}

	if c.RulesPath == "" {
		return fmt.Errorf("RULES_PATH must not be empty")
	}
	if c.SettingsPath == "" {
		return fmt.Errorf("SETTINGS_PATH must not be empty")
	}

	if db, err := strconv.Atoi(c.RedisDB); err != nil || db < 0 || db > 15 {
		return fmt.Errorf("invalid REDIS_DB %q", c.RedisDB)
	}

	if rps, err := strconv.ParseFloat(c.RateLimitRPS, 64); err != nil || rps <= 0 {
		return fmt.Errorf("invalid RATE_LIMIT_RPS %q", c.RateLimitRPS)
	}
	if burst, err := strconv.Atoi(c.RateLimitBurst); err != nil || burst <= 0 {
		return fmt.Errorf("invalid RATE_LIMIT_BURST %q", c.RateLimitBurst)
	}

	return nil
}

// RedisDBNumber returns the parsed Redis database number.
func (c *Config) RedisDBNumber() int {
	db, _ := strconv.Atoi(c.RedisDB)
	return db
}

// RateLimitRPSValue returns the parsed per-client rate.
func (c *Config) RateLimitRPSValue() float64 {
	rps, _ := strconv.ParseFloat(c.RateLimitRPS, 64)
	return rps
}

// RateLimitBurstValue returns the parsed burst size.
func (c *Config) RateLimitBurstValue() int {
	burst, _ := strconv.Atoi(c.RateLimitBurst)
	return burst
}

// getEnv retrieves an environment variable value or returns a default value
// if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnv retrieves a boolean environment variable value or returns a
// default value when unset or unparseable.
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
