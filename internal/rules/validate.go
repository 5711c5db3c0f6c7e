package rules

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"autoresponder/internal/common/errors"
)

var requiredFields = []string{"server", "listen_channel", "trigger_text", "response_text"}

var numericFields = []string{"cooldown_seconds", "delay_seconds"}

// ValidateRules checks an arbitrary decoded JSON document against the rule
// schema. It returns nil on success or a single descriptive validation error
// naming the first failing rule (1-based) and field; it never aggregates.
//
// Numeric strings in cooldown_seconds and delay_seconds are coerced to
// numbers in place, a convenience for hand-edited rule files where numbers
// frequently arrive quoted.
func ValidateRules(doc interface{}) error {
	list, ok := doc.([]interface{})
	if !ok {
		return errors.ValidationError("rules document is not an array")
	}

	for i, item := range list {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return errors.ValidationError(fmt.Sprintf("rule %d is not an object", i+1))
		}

		for _, field := range requiredFields {
			value, ok := obj[field].(string)
			if !ok || strings.TrimSpace(value) == "" {
				return errors.ValidationError(fmt.Sprintf("rule %d: field %q is missing or empty", i+1, field))
			}
		}

		for _, field := range numericFields {
			raw, present := obj[field]
			if !present || raw == nil {
				continue
			}

			num, err := coerceNumber(raw)
			if err != nil {
				return errors.ValidationError(fmt.Sprintf("rule %d: field %q is not numeric (got %v)", i+1, field, raw))
			}
			if num < 0 {
				return errors.ValidationError(fmt.Sprintf("rule %d: field %q must not be negative (got %v)", i+1, field, raw))
			}
			obj[field] = num
		}
	}

	return nil
}

// coerceNumber accepts JSON numbers and numeric strings.
func coerceNumber(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case json.Number:
		return v.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to number", value)
	}
}

// FromDocument validates a decoded JSON document and converts it into typed
// rules. The document is coerced in place exactly as ValidateRules does.
func FromDocument(doc interface{}) ([]*Rule, error) {
	if err := ValidateRules(doc); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.InternalError("failed to re-encode rules document", err)
	}

	var parsed []*Rule
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, errors.InternalError("failed to decode rules document", err)
	}

	return parsed, nil
}
