package respond

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"autoresponder/internal/common/errors"
	"autoresponder/internal/common/logging"
	"autoresponder/internal/match"
	"autoresponder/internal/rules"
)

const senderPlaceholder = "{{sender}}"

var groupRef = regexp.MustCompile(`\$(\d+)`)

// Dispatcher builds and sends responses for firing rules.
type Dispatcher struct {
	sender    Sender
	directory ChannelDirectory
	logger    logging.Logger

	// afterFunc is swapped out in tests to control delayed sends.
	afterFunc func(d time.Duration, fn func()) *time.Timer
}

// NewDispatcher creates a dispatcher over the host's send primitive and
// channel directory.
func NewDispatcher(sender Sender, directory ChannelDirectory, logger logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Dispatcher{
		sender:    sender,
		directory: directory,
		logger:    logger,
		afterFunc: time.AfterFunc,
	}
}

// Dispatch resolves the firing rule's destination, renders its response and
// sends it. A zero delay sends synchronously; otherwise the send is armed on
// a timer and Dispatch returns immediately so the message loop never blocks.
//
// An unresolvable destination aborts the firing with an error. There is
// deliberately no fallback to the origin channel: a silent fallback could
// deliver a response to the wrong party.
func (d *Dispatcher) Dispatch(rule *rules.Rule, result *match.Result, server, originChannel, senderNick string) error {
	destination := rule.Destination()
	if destination == "" {
		destination = originChannel
	}

	destinationID, ok := d.directory.Resolve(server, destination)
	if !ok {
		err := errors.NotFoundError("response destination").
			WithContext("server", server).
			WithContext("destination", destination)
		d.logger.Error("Cannot resolve response destination", err,
			logging.String("server", server),
			logging.String("destination", destination),
			logging.String("trigger", rule.TriggerText),
		)
		return err
	}

	text := RenderResponse(rule.ResponseText, senderNick, result)

	delay := rule.Delay()
	if delay <= 0 {
		return d.send(destinationID, text)
	}

	// The timer closure captures only the resolved destination and the
	// rendered text; it never touches the rule set or cooldown state, so a
	// concurrent reload cannot race it. Once armed it fires, even if the
	// rule that scheduled it has since been replaced.
	d.afterFunc(delay, func() {
		if err := d.send(destinationID, text); err != nil {
			d.logger.Error("Delayed send failed", err,
				logging.String("destination", destination),
			)
		}
	})

	d.logger.Debug("Scheduled delayed response",
		logging.String("destination", destination),
		logging.Duration("delay", delay),
	)
	return nil
}

func (d *Dispatcher) send(destinationID, text string) error {
	if err := d.sender.Send(destinationID, text); err != nil {
		return errors.InternalError("send failed", err).WithContext("destination", destinationID)
	}
	return nil
}

// RenderResponse substitutes {{sender}} with the triggering user's nickname,
// then replaces each $N reference with the N-th capture group. A reference
// to a group that did not participate in the match keeps its literal text:
// an unmatched group usually means a rule-authoring mistake, and a visible
// "$2" in channel is easier to diagnose than a silently empty string.
func RenderResponse(template, senderNick string, result *match.Result) string {
	text := strings.ReplaceAll(template, senderPlaceholder, senderNick)

	return groupRef.ReplaceAllStringFunc(text, func(ref string) string {
		n, err := strconv.Atoi(ref[1:])
		if err != nil || n < 1 || result == nil || n > len(result.Groups) {
			return ref
		}
		group := result.Groups[n-1]
		if group == nil {
			return ref
		}
		return *group
	})
}
