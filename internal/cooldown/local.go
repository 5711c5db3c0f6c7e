package cooldown

import (
	"sync"
	"time"

	"autoresponder/internal/rules"
)

// localTracker keeps last-fired timestamps in memory, keyed by rule identity.
type localTracker struct {
	mu        sync.RWMutex
	lastFired map[rules.Identity]time.Time
}

// NewLocalTracker creates an in-memory cooldown tracker.
func NewLocalTracker() Tracker {
	return &localTracker{
		lastFired: make(map[rules.Identity]time.Time),
	}
}

func (t *localTracker) IsOnCooldown(rule *rules.Rule, now time.Time) bool {
	t.mu.RLock()
	fired, exists := t.lastFired[rule.Identity()]
	t.mu.RUnlock()

	if !exists {
		return false
	}
	return now.Sub(fired) < rule.Cooldown()
}

func (t *localTracker) MarkFired(rule *rules.Rule, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastFired[rule.Identity()] = now
}

func (t *localTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastFired = make(map[rules.Identity]time.Time)
}
