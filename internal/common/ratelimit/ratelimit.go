// Package ratelimit provides keyed token-bucket rate limiting built on
// golang.org/x/time/rate, used by the admin API to throttle per client.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config configures a keyed limiter.
type Config struct {
	Enabled           bool          `json:"enabled"`
	RequestsPerSecond float64       `json:"requests_per_second"`
	BurstSize         int           `json:"burst_size"`
	MaxKeys           int           `json:"max_keys"`
	CleanupPeriod     time.Duration `json:"cleanup_period"`
}

// DefaultConfig returns a limiter config suitable for a small admin API.
func DefaultConfig() Config {
	return Config{
		Enabled:           true,
		RequestsPerSecond: 5,
		BurstSize:         10,
		MaxKeys:           1000,
		CleanupPeriod:     10 * time.Minute,
	}
}

// Validate checks the config.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("RequestsPerSecond must be positive, got %v", c.RequestsPerSecond)
	}
	if c.BurstSize <= 0 {
		return fmt.Errorf("BurstSize must be positive, got %d", c.BurstSize)
	}
	if c.MaxKeys <= 0 {
		return fmt.Errorf("MaxKeys must be positive, got %d", c.MaxKeys)
	}
	if c.CleanupPeriod <= 0 {
		return fmt.Errorf("CleanupPeriod must be positive, got %v", c.CleanupPeriod)
	}
	return nil
}

// KeyedLimiter keeps one token bucket per key, evicting stale keys.
type KeyedLimiter struct {
	mu          sync.Mutex
	config      Config
	limiters    map[string]*limiterEntry
	lastCleanup time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// NewKeyedLimiter creates a keyed limiter.
func NewKeyedLimiter(config Config) (*KeyedLimiter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &KeyedLimiter{
		config:      config,
		limiters:    make(map[string]*limiterEntry),
		lastCleanup: time.Now(),
	}, nil
}

// Allow reports whether the given key may proceed now.
func (kl *KeyedLimiter) Allow(key string) bool {
	if !kl.config.Enabled {
		return true
	}
	return kl.limiterFor(key).Allow()
}

func (kl *KeyedLimiter) limiterFor(key string) *rate.Limiter {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	if time.Since(kl.lastCleanup) > kl.config.CleanupPeriod {
		kl.cleanup()
	}

	entry, exists := kl.limiters[key]
	if !exists {
		entry = &limiterEntry{
			limiter: rate.NewLimiter(rate.Limit(kl.config.RequestsPerSecond), kl.config.BurstSize),
		}
		kl.limiters[key] = entry

		if len(kl.limiters) > kl.config.MaxKeys {
			kl.cleanup()
		}
	}
	entry.lastUsed = time.Now()

	return entry.limiter
}

// cleanup removes limiters unused for a full cleanup period. Caller holds mu.
func (kl *KeyedLimiter) cleanup() {
	cutoff := time.Now().Add(-kl.config.CleanupPeriod)

	for key, entry := range kl.limiters {
		if entry.lastUsed.Before(cutoff) {
			delete(kl.limiters, key)
		}
	}

	kl.lastCleanup = time.Now()
}
