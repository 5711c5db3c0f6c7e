// Package engine orchestrates per-message rule evaluation: context check,
// trigger match, cooldown gate, dispatch, first fully-eligible rule wins.
package engine

import (
	"time"

	"autoresponder/internal/common/logging"
	"autoresponder/internal/cooldown"
	"autoresponder/internal/match"
	"autoresponder/internal/respond"
	"autoresponder/internal/rules"
)

// Message is an incoming chat line as delivered by the host. The engine does
// not parse wire protocol.
type Message struct {
	Server        string `json:"server"`
	OriginChannel string `json:"origin_channel"`
	SenderNick    string `json:"sender_nick"`
	Text          string `json:"text"`
}

// Recorder receives a record of every dispatched response. Implementations
// must not block message processing; recording failures are the recorder's
// problem.
type Recorder interface {
	RecordFiring(rule *rules.Rule, msg Message, response string, delayed bool)
}

// Handler evaluates each incoming message against the rule set in order.
type Handler struct {
	store      *rules.Store
	cooldowns  cooldown.Tracker
	matcher    *match.Matcher
	dispatcher *respond.Dispatcher
	nicknames  respond.NicknameSource
	recorder   Recorder
	logger     logging.Logger

	now func() time.Time
}

// NewHandler wires the orchestrator. recorder may be nil.
func NewHandler(
	store *rules.Store,
	cooldowns cooldown.Tracker,
	matcher *match.Matcher,
	dispatcher *respond.Dispatcher,
	nicknames respond.NicknameSource,
	recorder Recorder,
	logger logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	h := &Handler{
		store:      store,
		cooldowns:  cooldowns,
		matcher:    matcher,
		dispatcher: dispatcher,
		nicknames:  nicknames,
		recorder:   recorder,
		logger:     logger,
		now:        time.Now,
	}

	// A reload invalidates both cooldown state and cached patterns.
	store.OnReload(cooldowns.Reset)
	store.OnReload(matcher.ClearCache)

	return h
}

// HandleMessage runs one message through the rule set. At most one rule
// fires. Rules are visited in list order; a rule whose context or trigger
// does not match, whose pattern fails to compile, or which is on cooldown is
// skipped in favor of later rules. The first rule that matches and clears
// its cooldown fires, and evaluation stops there.
func (h *Handler) HandleMessage(msg Message) {
	botNick := h.nicknames.Nickname(msg.Server)
	now := h.now()

	for _, rule := range h.store.Rules() {
		if !rule.AppliesTo(msg.Server, msg.OriginChannel) {
			continue
		}

		result, err := h.matcher.Match(rule, msg.Text, botNick)
		if err != nil {
			// One malformed trigger must never block the rules after it.
			h.logger.Error("Skipping rule with invalid trigger", err,
				logging.String("server", rule.Server),
				logging.String("channel", rule.ListenChannel),
				logging.String("trigger", rule.TriggerText),
			)
			continue
		}
		if result == nil {
			continue
		}

		if h.cooldowns.IsOnCooldown(rule, now) {
			h.logger.Debug("Rule on cooldown",
				logging.String("trigger", rule.TriggerText),
				logging.String("channel", rule.ListenChannel),
			)
			continue
		}

		// Marked before dispatch so the delay window cannot queue a second
		// send for the same rule.
		h.cooldowns.MarkFired(rule, now)

		if err := h.dispatcher.Dispatch(rule, result, msg.Server, msg.OriginChannel, msg.SenderNick); err != nil {
			// Per-rule failure: skip this rule, keep evaluating the rest.
			continue
		}

		if h.recorder != nil {
			response := respond.RenderResponse(rule.ResponseText, msg.SenderNick, result)
			h.recorder.RecordFiring(rule, msg, response, rule.Delay() > 0)
		}

		h.logger.Debug("Rule fired",
			logging.String("server", msg.Server),
			logging.String("channel", msg.OriginChannel),
			logging.String("trigger", rule.TriggerText),
		)
		return
	}
}
