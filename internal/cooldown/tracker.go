// Package cooldown tracks per-rule last-fired state so the same rule cannot
// fire again before its cooldown interval elapses.
//
// Two implementations exist: an in-memory tracker for the common
// single-instance case, and a Redis-backed tracker for deployments where
// several instances answer for the same networks and must share cooldown
// state. Both are cleared wholesale whenever the rule set is reloaded, since
// stale rule identities would otherwise never be touched again.
package cooldown

import (
	"time"

	"autoresponder/internal/rules"
)

// Tracker answers whether a rule is currently rate-limited and records
// firings. MarkFired is called the moment a rule is determined to fire,
// before any send delay, so a delayed send cannot be queued twice.
type Tracker interface {
	// IsOnCooldown reports whether the rule fired less than its cooldown
	// interval before now.
	IsOnCooldown(rule *rules.Rule, now time.Time) bool

	// MarkFired records a firing of the rule at now.
	MarkFired(rule *rules.Rule, now time.Time)

	// Reset clears all cooldown state.
	Reset()
}

// Config selects and configures a tracker implementation.
type Config struct {
	// RedisAddress enables the Redis-backed tracker when non-empty.
	RedisAddress  string `json:"redis_address"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`
	// KeyPrefix namespaces Redis keys; defaults to "autoresponder:cooldown".
	KeyPrefix string `json:"key_prefix"`
}

// NewTracker builds a tracker from config: Redis-backed when a Redis address
// is configured, in-memory otherwise.
func NewTracker(config Config) (Tracker, error) {
	if config.RedisAddress == "" {
		return NewLocalTracker(), nil
	}
	return NewRedisTracker(config)
}
