// Package rules defines the auto-response rule schema and owns the canonical
// rule list: validation of externally supplied rule documents, load/save of
// the durable rule file, and identity-based merging of incoming rule batches.
package rules

import (
	"strings"
	"time"
)

// DefaultCooldownSeconds applies when a rule does not set cooldown_seconds.
const DefaultCooldownSeconds = 5

// Rule is a configured trigger/response pair scoped to a network and channel.
//
// The cooldown and delay fields are pointers so that an explicit zero can be
// told apart from an absent field: absent cooldown falls back to
// DefaultCooldownSeconds, absent delay means send immediately.
type Rule struct {
	// Server is the network identifier this rule applies to, matched exactly.
	Server string `json:"server"`
	// ListenChannel is the channel to watch, compared case-insensitively.
	ListenChannel string `json:"listen_channel"`
	// TriggerText is a regular-expression pattern. A literal substring is
	// valid regex syntax, so plain-text triggers work unchanged. May contain
	// the placeholder {{me}}, replaced with the bot's current nickname
	// before compilation.
	TriggerText string `json:"trigger_text"`
	// TriggerFlags holds regex flags such as "i" for case-insensitivity.
	TriggerFlags string `json:"trigger_flags,omitempty"`
	// ResponseText is the response template. May contain {{sender}} and
	// numbered capture-group references $1, $2, ...
	ResponseText string `json:"response_text"`
	// ResponseChannel overrides the destination; defaults to ListenChannel.
	ResponseChannel string `json:"response_channel,omitempty"`
	// CooldownSeconds is the minimum interval between successive firings.
	CooldownSeconds *float64 `json:"cooldown_seconds,omitempty"`
	// DelaySeconds delays the send, measured from the moment the rule fires.
	DelaySeconds *float64 `json:"delay_seconds,omitempty"`
}

// Identity is the (server, channel, trigger) triple that makes two rules the
// same logical rule for merge, dedup and cooldown purposes. The channel is
// folded to lower case to match its case-insensitive comparison semantics.
type Identity struct {
	Server  string
	Channel string
	Trigger string
}

// Identity returns the rule's merge/cooldown identity.
func (r *Rule) Identity() Identity {
	return Identity{
		Server:  r.Server,
		Channel: strings.ToLower(r.ListenChannel),
		Trigger: r.TriggerText,
	}
}

// Cooldown returns the effective cooldown duration.
func (r *Rule) Cooldown() time.Duration {
	seconds := float64(DefaultCooldownSeconds)
	if r.CooldownSeconds != nil {
		seconds = *r.CooldownSeconds
	}
	return time.Duration(seconds * float64(time.Second))
}

// Delay returns the effective send delay.
func (r *Rule) Delay() time.Duration {
	if r.DelaySeconds == nil {
		return 0
	}
	return time.Duration(*r.DelaySeconds * float64(time.Second))
}

// Destination returns the channel the response should go to.
func (r *Rule) Destination() string {
	if r.ResponseChannel != "" {
		return r.ResponseChannel
	}
	return r.ListenChannel
}

// AppliesTo reports whether the rule watches the given server and channel.
func (r *Rule) AppliesTo(server, channel string) bool {
	return r.Server == server && strings.EqualFold(r.ListenChannel, channel)
}
