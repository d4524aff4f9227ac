// Package domain contains the core entities of the symptom risk assessment flow:
// question schemas, answer sets, baseline profiles and assessment results, together
// with the typed errors every layer above the engine reports.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Tier represents the classified output of a disease risk score.
// Only three tiers exist; every schema must map its whole score range onto them.
type Tier string

const (
	TierLow      Tier = "Low"
	TierModerate Tier = "Moderate"
	TierHigh     Tier = "High"
)

// AllTiers lists tiers from lowest to highest rank.
var AllTiers = []Tier{TierLow, TierModerate, TierHigh}

// ErrInvalidTier is returned when a tier label cannot be parsed.
var ErrInvalidTier = errors.New("invalid risk tier")

// IsValid reports whether the tier is one of Low, Moderate or High.
func (t Tier) IsValid() bool {
	switch t {
	case TierLow, TierModerate, TierHigh:
		return true
	default:
		return false
	}
}

// String returns the string representation of the tier.
func (t Tier) String() string {
	return string(t)
}

// Rank orders tiers so that Low < Moderate < High. Unknown tiers rank -1.
func (t Tier) Rank() int {
	switch t {
	case TierLow:
		return 0
	case TierModerate:
		return 1
	case TierHigh:
		return 2
	default:
		return -1
	}
}

// RequiresFollowUp determines if the tier should surface the "find a doctor" and
// "find a hospital" affordances of the surrounding application.
func (t Tier) RequiresFollowUp() bool {
	return t == TierModerate || t == TierHigh
}

// LogFields returns structured logging fields for audit trails.
func (t Tier) LogFields() map[string]any {
	return map[string]any{
		"tier":               string(t),
		"tier_rank":          t.Rank(),
		"requires_follow_up": t.RequiresFollowUp(),
	}
}

// ParseTier parses a tier label case-insensitively ("high", "HIGH", "High").
func ParseTier(s string) (Tier, error) {
	for _, t := range AllTiers {
		if strings.EqualFold(strings.TrimSpace(s), string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTier, s)
}

// FieldKind represents the input type of a question field.
type FieldKind string

const (
	KindBoolean FieldKind = "boolean"
	KindEnum    FieldKind = "enum"
	KindNumeric FieldKind = "numeric"
)

// IsValid validates the field kind.
func (k FieldKind) IsValid() bool {
	switch k {
	case KindBoolean, KindEnum, KindNumeric:
		return true
	default:
		return false
	}
}

// State is a stage of the assessment workflow.
type State string

const (
	StateBaseline      State = "Baseline"
	StateQuestionnaire State = "Questionnaire"
	StateReport        State = "Report"
)

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// IsTerminal reports whether no further forward transition exists from the state.
func (s State) IsTerminal() bool {
	return s == StateReport
}
