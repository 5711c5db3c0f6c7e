package respond

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoresponder/internal/common/errors"
	"autoresponder/internal/match"
	"autoresponder/internal/rules"
)

type fakeSender struct {
	sent []sentMessage
	err  error
}

type sentMessage struct {
	destinationID string
	text          string
}

func (s *fakeSender) Send(destinationID, text string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentMessage{destinationID, text})
	return nil
}

func testDirectory() *StaticDirectory {
	dir := NewStaticDirectory()
	dir.AddChannel("Net", "#go")
	dir.AddChannel("Net", "#orders")
	return dir
}

func groups(values ...string) []*string {
	out := make([]*string, len(values))
	for i := range values {
		out[i] = &values[i]
	}
	return out
}

func TestRenderResponse(t *testing.T) {
	result := &match.Result{
		Full:   "order pizza and soda",
		Groups: groups("pizza", "soda"),
	}

	text := RenderResponse("Ordering $1 and $2 for {{sender}}.", "Alice", result)
	assert.Equal(t, "Ordering pizza and soda for Alice.", text)
}

func TestRenderResponse_UnmatchedGroupKeepsPlaceholder(t *testing.T) {
	result := &match.Result{Full: "ac", Groups: []*string{nil, strPtr("c")}}

	text := RenderResponse("got $1 then $2 then $3", "Alice", result)
	assert.Equal(t, "got $1 then c then $3", text)
}

func TestRenderResponse_NoGroups(t *testing.T) {
	text := RenderResponse("hi {{sender}}, that's $5 please", "Bob", &match.Result{Full: "x"})
	assert.Equal(t, "hi Bob, that's $5 please", text)
}

func strPtr(s string) *string { return &s }

func TestDispatch_ImmediateSend(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, testDirectory(), nil)

	rule := &rules.Rule{
		Server:        "Net",
		ListenChannel: "#go",
		TriggerText:   "ping",
		ResponseText:  "pong, {{sender}}!",
	}

	err := d.Dispatch(rule, &match.Result{Full: "ping"}, "Net", "#go", "Alice")
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "#go", sender.sent[0].destinationID)
	assert.Equal(t, "pong, Alice!", sender.sent[0].text)
}

func TestDispatch_ResponseChannelOverride(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, testDirectory(), nil)

	rule := &rules.Rule{
		Server:          "Net",
		ListenChannel:   "#go",
		TriggerText:     "order",
		ResponseText:    "noted",
		ResponseChannel: "#ORDERS", // resolved case-insensitively
	}

	err := d.Dispatch(rule, &match.Result{Full: "order"}, "Net", "#go", "Alice")
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "#orders", sender.sent[0].destinationID)
}

func TestDispatch_UnresolvableDestination(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, testDirectory(), nil)

	rule := &rules.Rule{
		Server:          "Net",
		ListenChannel:   "#go",
		TriggerText:     "ping",
		ResponseText:    "pong",
		ResponseChannel: "#nowhere",
	}

	err := d.Dispatch(rule, &match.Result{Full: "ping"}, "Net", "#go", "Alice")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
	// No silent fallback to the origin channel.
	assert.Empty(t, sender.sent)
}

func TestDispatch_DelayedSend(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, testDirectory(), nil)

	var armedDelay time.Duration
	var armed func()
	d.afterFunc = func(delay time.Duration, fn func()) *time.Timer {
		armedDelay = delay
		armed = fn
		return nil
	}

	delaySeconds := float64(3)
	rule := &rules.Rule{
		Server:        "Net",
		ListenChannel: "#go",
		TriggerText:   "ping",
		ResponseText:  "pong",
		DelaySeconds:  &delaySeconds,
	}

	err := d.Dispatch(rule, &match.Result{Full: "ping"}, "Net", "#go", "Alice")
	require.NoError(t, err)

	// Dispatch returned without sending; the armed closure sends later.
	assert.Empty(t, sender.sent)
	assert.Equal(t, 3*time.Second, armedDelay)
	require.NotNil(t, armed)

	armed()
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "pong", sender.sent[0].text)
}

func TestStaticDirectory_SetChannelsReplaces(t *testing.T) {
	dir := testDirectory()

	dir.SetChannels(map[string][]string{"Other": {"#misc"}})

	_, ok := dir.Resolve("Net", "#go")
	assert.False(t, ok)

	id, ok := dir.Resolve("Other", "#MISC")
	assert.True(t, ok)
	assert.Equal(t, "#misc", id)
}
