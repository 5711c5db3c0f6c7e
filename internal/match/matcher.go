// Package match compiles rule triggers into regular expressions and tests
// incoming messages against them.
package match

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"autoresponder/internal/common/errors"
	"autoresponder/internal/rules"
)

// mePlaceholder in a trigger is replaced with the bot's current nickname on
// the message's network before compilation, so "respond when addressed"
// rules survive nickname changes without edits to the rule file.
const mePlaceholder = "{{me}}"

// Result is the outcome of a successful match: the full matched substring
// and every capture group in order. A nil group entry means the group did
// not participate in the match, which is distinct from matching empty text.
type Result struct {
	Full   string
	Groups []*string
}

// Matcher tests messages against rule triggers, caching compiled patterns.
// All triggers are treated uniformly as regex: a literal substring is valid
// regex syntax, so there is no separate plain-text mode to diverge from.
type Matcher struct {
	mu    sync.RWMutex
	cache map[string]*regexp.Regexp
}

// NewMatcher creates a matcher with an empty pattern cache.
func NewMatcher() *Matcher {
	return &Matcher{
		cache: make(map[string]*regexp.Regexp),
	}
}

// Match tests text against the rule's trigger. botNick is the bot's current
// nickname on the rule's network, substituted for {{me}} before compilation.
//
// A nil Result with nil error means no match. A non-nil error means the
// trigger failed to compile; callers skip the rule and keep evaluating
// subsequent rules, since one malformed pattern must never block others.
func (m *Matcher) Match(rule *rules.Rule, text, botNick string) (*Result, error) {
	pattern := buildPattern(rule, botNick)

	re, err := m.compile(pattern)
	if err != nil {
		return nil, errors.PatternError("invalid trigger pattern", err).
			WithContext("trigger", rule.TriggerText).
			WithContext("flags", rule.TriggerFlags)
	}

	idx := re.FindStringSubmatchIndex(text)
	if idx == nil {
		return nil, nil
	}

	result := &Result{Full: text[idx[0]:idx[1]]}
	for g := 1; g < re.NumSubexp()+1; g++ {
		start, end := idx[2*g], idx[2*g+1]
		if start < 0 {
			result.Groups = append(result.Groups, nil)
			continue
		}
		group := text[start:end]
		result.Groups = append(result.Groups, &group)
	}

	return result, nil
}

// buildPattern substitutes {{me}} and prepends the flag group. Substitution
// is a pure string rewrite strictly prior to compilation; the nickname is
// quoted so its characters are matched literally.
func buildPattern(rule *rules.Rule, botNick string) string {
	pattern := strings.ReplaceAll(rule.TriggerText, mePlaceholder, regexp.QuoteMeta(botNick))

	flags := normalizeFlags(rule.TriggerFlags)
	if flags != "" {
		pattern = fmt.Sprintf("(?%s)%s", flags, pattern)
	}
	return pattern
}

// normalizeFlags drops the "g" flag, which describes repeat behavior rather
// than pattern syntax and is meaningless for a single find. Everything else
// passes through; an unsupported letter surfaces as a compile error on the
// rule, which is the per-rule recoverable path.
func normalizeFlags(flags string) string {
	return strings.ReplaceAll(flags, "g", "")
}

func (m *Matcher) compile(pattern string) (*regexp.Regexp, error) {
	m.mu.RLock()
	re, ok := m.cache[pattern]
	m.mu.RUnlock()
	if ok {
		return re, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.cache[pattern] = re
	m.mu.Unlock()
	return re, nil
}

// ClearCache drops all compiled patterns, typically after a rule reload.
func (m *Matcher) ClearCache() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = make(map[string]*regexp.Regexp)
}
