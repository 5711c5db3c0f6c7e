package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRule_CooldownDefault(t *testing.T) {
	rule := mkRule("N", "#a", "ping", "pong")
	assert.Equal(t, 5*time.Second, rule.Cooldown())

	zero := float64(0)
	rule.CooldownSeconds = &zero
	assert.Equal(t, time.Duration(0), rule.Cooldown())

	half := 1.5
	rule.CooldownSeconds = &half
	assert.Equal(t, 1500*time.Millisecond, rule.Cooldown())
}

func TestRule_DelayDefault(t *testing.T) {
	rule := mkRule("N", "#a", "ping", "pong")
	assert.Equal(t, time.Duration(0), rule.Delay())

	two := float64(2)
	rule.DelaySeconds = &two
	assert.Equal(t, 2*time.Second, rule.Delay())
}

func TestRule_Destination(t *testing.T) {
	rule := mkRule("N", "#a", "ping", "pong")
	assert.Equal(t, "#a", rule.Destination())

	rule.ResponseChannel = "#b"
	assert.Equal(t, "#b", rule.Destination())
}

func TestRule_AppliesTo(t *testing.T) {
	rule := mkRule("Net", "#Go", "ping", "pong")

	assert.True(t, rule.AppliesTo("Net", "#go"))
	assert.True(t, rule.AppliesTo("Net", "#GO"))
	assert.False(t, rule.AppliesTo("net", "#go"), "server comparison is case-sensitive")
	assert.False(t, rule.AppliesTo("Net", "#other"))
}

func TestRule_Identity(t *testing.T) {
	a := mkRule("Net", "#Go", "ping", "pong1")
	b := mkRule("Net", "#go", "ping", "pong2")
	c := mkRule("Net", "#go", "pong", "x")

	assert.Equal(t, a.Identity(), b.Identity())
	assert.NotEqual(t, a.Identity(), c.Identity())
}
