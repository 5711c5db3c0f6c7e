package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoresponder/internal/cooldown"
	"autoresponder/internal/match"
	"autoresponder/internal/respond"
	"autoresponder/internal/rules"
)

type fakeSender struct {
	sent []string
}

func (s *fakeSender) Send(destinationID, text string) error {
	s.sent = append(s.sent, text)
	return nil
}

type fakeNicks map[string]string

func (n fakeNicks) Nickname(server string) string { return n[server] }

type recordedFiring struct {
	trigger  string
	response string
	delayed  bool
}

type fakeRecorder struct {
	firings []recordedFiring
}

func (r *fakeRecorder) RecordFiring(rule *rules.Rule, msg Message, response string, delayed bool) {
	r.firings = append(r.firings, recordedFiring{rule.TriggerText, response, delayed})
}

type fixture struct {
	handler *Handler
	store   *rules.Store
	sender  *fakeSender
	rec     *fakeRecorder
	clock   time.Time
}

func newFixture(t *testing.T, ruleList ...*rules.Rule) *fixture {
	t.Helper()

	store := rules.NewStore(t.TempDir()+"/rules.json", nil)
	store.SetRules(ruleList)

	directory := respond.NewStaticDirectory()
	directory.AddChannel("Net", "#go")
	directory.AddChannel("Net", "#other")

	sender := &fakeSender{}
	rec := &fakeRecorder{}

	f := &fixture{
		store:  store,
		sender: sender,
		rec:    rec,
		clock:  time.Now(),
	}

	f.handler = NewHandler(
		store,
		cooldown.NewLocalTracker(),
		match.NewMatcher(),
		respond.NewDispatcher(sender, directory, nil),
		fakeNicks{"Net": "Bot"},
		rec,
		nil,
	)
	f.handler.now = func() time.Time { return f.clock }

	return f
}

func (f *fixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func msg(text string) Message {
	return Message{Server: "Net", OriginChannel: "#go", SenderNick: "Alice", Text: text}
}

func rule(trigger, response string) *rules.Rule {
	return &rules.Rule{
		Server:        "Net",
		ListenChannel: "#go",
		TriggerText:   trigger,
		ResponseText:  response,
	}
}

func TestHandleMessage_FirstMatchWins(t *testing.T) {
	f := newFixture(t,
		rule("ping", "first"),
		rule("ping", "second"),
	)

	f.handler.HandleMessage(msg("ping"))

	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "first", f.sender.sent[0])
}

func TestHandleMessage_ContextMismatchSkips(t *testing.T) {
	wrongServer := rule("ping", "nope")
	wrongServer.Server = "OtherNet"
	wrongChannel := rule("ping", "nope")
	wrongChannel.ListenChannel = "#elsewhere"

	f := newFixture(t, wrongServer, wrongChannel, rule("ping", "yes"))

	f.handler.HandleMessage(msg("ping"))

	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "yes", f.sender.sent[0])
}

func TestHandleMessage_CooldownSuppressesRefire(t *testing.T) {
	f := newFixture(t, rule("ping", "pong"))

	f.handler.HandleMessage(msg("ping"))
	f.advance(time.Second)
	f.handler.HandleMessage(msg("ping"))

	assert.Len(t, f.sender.sent, 1, "second message arrived inside the cooldown window")

	// Default cooldown is 5 seconds; past it the rule fires again.
	f.advance(5 * time.Second)
	f.handler.HandleMessage(msg("ping"))
	assert.Len(t, f.sender.sent, 2)
}

func TestHandleMessage_CooldownDoesNotBlockLaterRules(t *testing.T) {
	f := newFixture(t,
		rule("ping", "first"),
		rule("ping", "fallback"),
	)

	f.handler.HandleMessage(msg("ping"))
	f.advance(time.Second)
	f.handler.HandleMessage(msg("ping"))

	// First firing used rule one; the second message finds rule one cooling
	// down and falls through to rule two instead of being dropped.
	require.Len(t, f.sender.sent, 2)
	assert.Equal(t, "first", f.sender.sent[0])
	assert.Equal(t, "fallback", f.sender.sent[1])
}

func TestHandleMessage_InvalidRegexDoesNotBlockLaterRules(t *testing.T) {
	f := newFixture(t,
		rule("broken (", "never"),
		rule("ping", "pong"),
	)

	f.handler.HandleMessage(msg("ping"))

	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "pong", f.sender.sent[0])
}

func TestHandleMessage_ReloadClearsCooldowns(t *testing.T) {
	f := newFixture(t, rule("ping", "pong"))

	f.handler.HandleMessage(msg("ping"))
	require.Len(t, f.sender.sent, 1)

	// Swap in an identical rule set within the cooldown window.
	f.store.SetRules([]*rules.Rule{rule("ping", "pong")})
	f.advance(time.Second)

	f.handler.HandleMessage(msg("ping"))
	assert.Len(t, f.sender.sent, 2, "reload must clear cooldown state")
}

func TestHandleMessage_DispatchFailureFallsThrough(t *testing.T) {
	bad := rule("ping", "lost")
	bad.ResponseChannel = "#unknown"

	f := newFixture(t, bad, rule("ping", "pong"))

	f.handler.HandleMessage(msg("ping"))

	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "pong", f.sender.sent[0])
}

func TestHandleMessage_SubstitutionEndToEnd(t *testing.T) {
	f := newFixture(t, rule(`order (\w+) and (\w+)`, "Ordering $1 and $2 for {{sender}}."))

	f.handler.HandleMessage(msg("order pizza and soda"))

	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "Ordering pizza and soda for Alice.", f.sender.sent[0])
}

func TestHandleMessage_MePlaceholderUsesNetworkNick(t *testing.T) {
	f := newFixture(t, rule("^{{me}}: status$", "all good"))

	f.handler.HandleMessage(msg("Bot: status"))
	f.handler.HandleMessage(msg("Other: status"))

	assert.Len(t, f.sender.sent, 1)
}

func TestHandleMessage_RecordsFirings(t *testing.T) {
	f := newFixture(t, rule("ping", "pong {{sender}}"))

	f.handler.HandleMessage(msg("ping"))

	require.Len(t, f.rec.firings, 1)
	assert.Equal(t, "ping", f.rec.firings[0].trigger)
	assert.Equal(t, "pong Alice", f.rec.firings[0].response)
	assert.False(t, f.rec.firings[0].delayed)
}

func TestHandleMessage_NoMatchNoSend(t *testing.T) {
	f := newFixture(t, rule("ping", "pong"))

	f.handler.HandleMessage(msg("nothing relevant"))

	assert.Empty(t, f.sender.sent)
	assert.Empty(t, f.rec.firings)
}
