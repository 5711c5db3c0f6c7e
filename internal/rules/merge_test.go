package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkRule(server, channel, trigger, response string) *Rule {
	return &Rule{
		Server:        server,
		ListenChannel: channel,
		TriggerText:   trigger,
		ResponseText:  response,
	}
}

func TestMerge_OverwritesByIdentity(t *testing.T) {
	existing := []*Rule{mkRule("N", "#a", "ping", "pong1")}
	incoming := []*Rule{mkRule("N", "#a", "ping", "pong2")}

	result := Merge(existing, incoming)

	require.Len(t, result.Rules, 1)
	assert.Equal(t, "pong2", result.Rules[0].ResponseText)
	assert.Equal(t, 0, result.Added)
	assert.Equal(t, 1, result.Overwritten)
}

func TestMerge_AppendsNewIdentities(t *testing.T) {
	existing := []*Rule{mkRule("N", "#a", "ping", "pong")}
	incoming := []*Rule{
		mkRule("N", "#a", "hello", "hi"),
		mkRule("M", "#a", "ping", "other network"),
	}

	result := Merge(existing, incoming)

	require.Len(t, result.Rules, 3)
	assert.Equal(t, 2, result.Added)
	assert.Equal(t, 0, result.Overwritten)
	// Appended in incoming order, after the existing entries.
	assert.Equal(t, "hello", result.Rules[1].TriggerText)
	assert.Equal(t, "M", result.Rules[2].Server)
}

func TestMerge_OverwriteKeepsPosition(t *testing.T) {
	existing := []*Rule{
		mkRule("N", "#a", "first", "1"),
		mkRule("N", "#a", "second", "2"),
		mkRule("N", "#a", "third", "3"),
	}
	incoming := []*Rule{mkRule("N", "#a", "second", "replaced")}

	result := Merge(existing, incoming)

	require.Len(t, result.Rules, 3)
	assert.Equal(t, "replaced", result.Rules[1].ResponseText)
	assert.Equal(t, "1", result.Rules[0].ResponseText)
	assert.Equal(t, "3", result.Rules[2].ResponseText)
}

func TestMerge_ChannelIdentityIsCaseInsensitive(t *testing.T) {
	existing := []*Rule{mkRule("N", "#Go", "ping", "pong1")}
	incoming := []*Rule{mkRule("N", "#go", "ping", "pong2")}

	result := Merge(existing, incoming)

	require.Len(t, result.Rules, 1)
	assert.Equal(t, 1, result.Overwritten)
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	existing := []*Rule{mkRule("N", "#a", "ping", "pong1")}
	incoming := []*Rule{mkRule("N", "#a", "ping", "pong2")}

	_ = Merge(existing, incoming)

	assert.Equal(t, "pong1", existing[0].ResponseText)
}

func TestMerge_DuplicateIdentityWithinIncoming(t *testing.T) {
	incoming := []*Rule{
		mkRule("N", "#a", "ping", "pong1"),
		mkRule("N", "#a", "ping", "pong2"),
	}

	result := Merge(nil, incoming)

	require.Len(t, result.Rules, 1)
	assert.Equal(t, "pong2", result.Rules[0].ResponseText)
	assert.Equal(t, 1, result.Added)
	assert.Equal(t, 1, result.Overwritten)
}
