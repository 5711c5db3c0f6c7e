package cooldown

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"autoresponder/internal/rules"
)

func testRule(trigger string, cooldownSeconds float64) *rules.Rule {
	return &rules.Rule{
		Server:          "Net",
		ListenChannel:   "#go",
		TriggerText:     trigger,
		ResponseText:    "pong",
		CooldownSeconds: &cooldownSeconds,
	}
}

func TestLocalTracker_Cycle(t *testing.T) {
	tracker := NewLocalTracker()
	rule := testRule("ping", 10)
	now := time.Now()

	assert.False(t, tracker.IsOnCooldown(rule, now), "never-fired rule is not on cooldown")

	tracker.MarkFired(rule, now)
	assert.True(t, tracker.IsOnCooldown(rule, now.Add(9*time.Second)))
	assert.False(t, tracker.IsOnCooldown(rule, now.Add(10*time.Second)), "cooldown has elapsed")
}

func TestLocalTracker_ZeroCooldown(t *testing.T) {
	tracker := NewLocalTracker()
	rule := testRule("ping", 0)
	now := time.Now()

	tracker.MarkFired(rule, now)
	assert.False(t, tracker.IsOnCooldown(rule, now))
}

func TestLocalTracker_KeyedByIdentity(t *testing.T) {
	tracker := NewLocalTracker()
	now := time.Now()

	fired := testRule("ping", 60)
	tracker.MarkFired(fired, now)

	// Same identity, different rule object.
	sameIdentity := testRule("ping", 60)
	assert.True(t, tracker.IsOnCooldown(sameIdentity, now.Add(time.Second)))

	other := testRule("pong", 60)
	assert.False(t, tracker.IsOnCooldown(other, now.Add(time.Second)))
}

func TestLocalTracker_Reset(t *testing.T) {
	tracker := NewLocalTracker()
	rule := testRule("ping", 60)
	now := time.Now()

	tracker.MarkFired(rule, now)
	assert.True(t, tracker.IsOnCooldown(rule, now.Add(time.Second)))

	tracker.Reset()
	assert.False(t, tracker.IsOnCooldown(rule, now.Add(time.Second)), "reset clears all cooldown state")
}
