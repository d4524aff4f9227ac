package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ValueType identifies which variant a Value holds.
type ValueType int8

const (
	ValueNone ValueType = iota
	ValueBool
	ValueText
	ValueNumber
)

// Value is a single submitted answer: a boolean, an enum string or a number.
// The zero Value is "no answer".
type Value struct {
	typ ValueType
	b   bool
	s   string
	n   float64
}

// BoolValue wraps a boolean answer.
func BoolValue(b bool) Value { return Value{typ: ValueBool, b: b} }

// TextValue wraps a string answer (enum option or "yes"/"no").
func TextValue(s string) Value { return Value{typ: ValueText, s: s} }

// NumberValue wraps a numeric answer.
func NumberValue(n float64) Value { return Value{typ: ValueNumber, n: n} }

// ValueOf converts a decoded JSON or YAML scalar into a Value.
func ValueOf(raw any) (Value, error) {
	switch v := raw.(type) {
	case nil:
		return Value{}, nil
	case Value:
		return v, nil
	case bool:
		return BoolValue(v), nil
	case string:
		return TextValue(v), nil
	case float64:
		return NumberValue(v), nil
	case float32:
		return NumberValue(float64(v)), nil
	case int:
		return NumberValue(float64(v)), nil
	case int64:
		return NumberValue(float64(v)), nil
	case int32:
		return NumberValue(float64(v)), nil
	case uint64:
		return NumberValue(float64(v)), nil
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", v, err)
		}
		return NumberValue(n), nil
	default:
		return Value{}, fmt.Errorf("unsupported answer type %T", raw)
	}
}

// Type returns the variant held by the value.
func (v Value) Type() ValueType { return v.typ }

// IsEmpty reports whether the value counts as unanswered: absent, or a blank string.
func (v Value) IsEmpty() bool {
	switch v.typ {
	case ValueNone:
		return true
	case ValueText:
		return strings.TrimSpace(v.s) == ""
	default:
		return false
	}
}

// Bool interprets the value as a yes/no answer. Text "yes", "no", "true" and "false"
// are accepted in any case.
func (v Value) Bool() (bool, bool) {
	switch v.typ {
	case ValueBool:
		return v.b, true
	case ValueText:
		switch strings.ToLower(strings.TrimSpace(v.s)) {
		case "yes", "true":
			return true, true
		case "no", "false":
			return false, true
		}
	}
	return false, false
}

// Text returns the trimmed string form of a text value.
func (v Value) Text() (string, bool) {
	if v.typ != ValueText {
		return "", false
	}
	return strings.TrimSpace(v.s), true
}

// Number interprets the value as a number. Numeric text is parsed, since form
// posts commonly carry numbers as strings.
func (v Value) Number() (float64, bool) {
	switch v.typ {
	case ValueNumber:
		return v.n, true
	case ValueText:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// Interface returns the underlying Go value (bool, string, float64 or nil).
func (v Value) Interface() any {
	switch v.typ {
	case ValueBool:
		return v.b
	case ValueText:
		return v.s
	case ValueNumber:
		return v.n
	default:
		return nil
	}
}

// Canonical returns the comparison form used by visibility predicates:
// booleans become "yes"/"no", numbers use the shortest decimal form.
func (v Value) Canonical() string {
	switch v.typ {
	case ValueBool:
		if v.b {
			return "yes"
		}
		return "no"
	case ValueText:
		return strings.TrimSpace(v.s)
	case ValueNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	default:
		return ""
	}
}

// String implements fmt.Stringer.
func (v Value) String() string {
	return v.Canonical()
}

// MarshalJSON encodes the value as its natural JSON scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON decodes a JSON scalar into the value.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// AnswerSet maps question field keys to submitted values.
type AnswerSet map[string]Value

// AnswerSetFromMap builds an answer set from decoded JSON/YAML data.
func AnswerSetFromMap(m map[string]any) (AnswerSet, error) {
	answers := make(AnswerSet, len(m))
	for key, raw := range m {
		v, err := ValueOf(raw)
		if err != nil {
			return nil, fmt.Errorf("answer %q: %w", key, err)
		}
		answers[key] = v
	}
	return answers, nil
}

// Has reports whether key holds a non-empty answer.
func (a AnswerSet) Has(key string) bool {
	v, ok := a[key]
	return ok && !v.IsEmpty()
}

// Clone returns an independent copy of the answer set. A nil set clones to an empty one.
func (a AnswerSet) Clone() AnswerSet {
	out := make(AnswerSet, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}
