package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSchema is returned when a schema violates the catalog invariants.
var ErrInvalidSchema = errors.New("invalid assessment schema")

// EnumOption is one selectable value of an enum field and the weight it carries.
type EnumOption struct {
	Value  string `json:"value" yaml:"value"`
	Label  string `json:"label,omitempty" yaml:"label,omitempty"`
	Weight int    `json:"weight" yaml:"weight"`
}

// NumericStep is one breakpoint of a numeric field's step function. A value at or
// above Threshold scores Weight, unless a greater threshold matched first.
type NumericStep struct {
	Threshold float64 `json:"threshold" yaml:"threshold"`
	Weight    int     `json:"weight" yaml:"weight"`
}

// PredicateOp is the comparison applied by a visibility predicate.
type PredicateOp string

const (
	OpEquals    PredicateOp = "equals"
	OpNotEquals PredicateOp = "not_equals"
	OpIn        PredicateOp = "in"
	OpNotIn     PredicateOp = "not_in"
)

// IsValid validates the predicate operation.
func (op PredicateOp) IsValid() bool {
	switch op {
	case OpEquals, OpNotEquals, OpIn, OpNotIn:
		return true
	default:
		return false
	}
}

// Predicate gates a field's visibility on the answer to an earlier field,
// e.g. gender equals female.
type Predicate struct {
	Field  string      `json:"field" yaml:"field"`
	Op     PredicateOp `json:"op" yaml:"op"`
	Values []string    `json:"values" yaml:"values"`
}

// Matches evaluates the predicate against a dependency answer. An empty answer never matches.
// Yes/no answers compare by truth value and numbers by magnitude, the same way
// validation and scoring read them.
func (p Predicate) Matches(v Value) bool {
	if v.IsEmpty() {
		return false
	}
	found := false
	for _, want := range p.Values {
		if answerEquals(v, strings.TrimSpace(want)) {
			found = true
			break
		}
	}
	switch p.Op {
	case OpEquals, OpIn:
		return found
	case OpNotEquals, OpNotIn:
		return !found
	default:
		return false
	}
}

func answerEquals(v Value, want string) bool {
	if got, ok := v.Bool(); ok {
		if expected, ok := TextValue(want).Bool(); ok {
			return got == expected
		}
	}
	if v.Type() == ValueNumber {
		if expected, ok := TextValue(want).Number(); ok {
			got, _ := v.Number()
			return got == expected
		}
	}
	return strings.EqualFold(v.Canonical(), want)
}

// String renders the predicate for logs and error messages.
func (p Predicate) String() string {
	return fmt.Sprintf("%s %s %s", p.Field, p.Op, strings.Join(p.Values, "|"))
}

// QuestionField is one input of an assessment schema.
type QuestionField struct {
	Key      string    `json:"key" yaml:"key"`
	Label    string    `json:"label" yaml:"label"`
	Kind     FieldKind `json:"kind" yaml:"kind"`
	Required bool      `json:"required" yaml:"required"`

	// Boolean fields: Weight applies when the answer equals RiskValue ("yes" or "no").
	RiskValue string `json:"risk_value,omitempty" yaml:"risk_value,omitempty"`
	Weight    int    `json:"weight,omitempty" yaml:"weight,omitempty"`

	// Enum fields.
	Options []EnumOption `json:"options,omitempty" yaml:"options,omitempty"`

	// Numeric fields. Steps are ordered greatest threshold first.
	Min   *float64      `json:"min,omitempty" yaml:"min,omitempty"`
	Max   *float64      `json:"max,omitempty" yaml:"max,omitempty"`
	Unit  string        `json:"unit,omitempty" yaml:"unit,omitempty"`
	Steps []NumericStep `json:"steps,omitempty" yaml:"steps,omitempty"`

	AppliesWhen *Predicate `json:"applies_when,omitempty" yaml:"applies_when,omitempty"`
}

// Option returns the declared enum option matching value, case-insensitively.
func (f QuestionField) Option(value string) (EnumOption, bool) {
	for _, opt := range f.Options {
		if strings.EqualFold(opt.Value, strings.TrimSpace(value)) {
			return opt, true
		}
	}
	return EnumOption{}, false
}

// InBounds reports whether n lies inside the field's declared [Min, Max] bound.
func (f QuestionField) InBounds(n float64) bool {
	if f.Min != nil && n < *f.Min {
		return false
	}
	if f.Max != nil && n > *f.Max {
		return false
	}
	return true
}

// Threshold maps every score at or above MinScore to Tier, unless a higher threshold matched.
type Threshold struct {
	MinScore int  `json:"min_score" yaml:"min_score"`
	Tier     Tier `json:"tier" yaml:"tier"`
}

// Recommendations holds the static advice text of a schema. Low gets Base only;
// Moderate and High append their own Additions.
type Recommendations struct {
	Base      []string          `json:"base" yaml:"base"`
	Additions map[Tier][]string `json:"additions,omitempty" yaml:"additions,omitempty"`
}

// AssessmentSchema is the declarative definition of one disease assessment.
type AssessmentSchema struct {
	ID              string          `json:"id" yaml:"id"`
	Name            string          `json:"name" yaml:"name"`
	Description     string          `json:"description,omitempty" yaml:"description,omitempty"`
	Version         string          `json:"version,omitempty" yaml:"version,omitempty"`
	Fields          []QuestionField `json:"fields" yaml:"fields"`
	Thresholds      []Threshold     `json:"thresholds" yaml:"thresholds"`
	Recommendations Recommendations `json:"recommendations" yaml:"recommendations"`
}

// SchemaSummary is the catalog listing entry of a schema.
type SchemaSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	FieldCount  int    `json:"field_count"`
}

// Summary returns the listing entry of the schema.
func (s *AssessmentSchema) Summary() SchemaSummary {
	return SchemaSummary{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		FieldCount:  len(s.Fields),
	}
}

// Field looks a field up by key.
func (s *AssessmentSchema) Field(key string) (QuestionField, bool) {
	for _, f := range s.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return QuestionField{}, false
}

// VisibleFields returns, in declaration order, the fields whose AppliesWhen predicate
// holds for the given partial answers. A field gated on a hidden field is hidden.
// A predicate naming an undeclared or later-declared field is a SchemaDependencyError.
func (s *AssessmentSchema) VisibleFields(answers AnswerSet) ([]QuestionField, error) {
	position := make(map[string]int, len(s.Fields))
	for i, f := range s.Fields {
		position[f.Key] = i
	}

	visible := make(map[string]bool, len(s.Fields))
	out := make([]QuestionField, 0, len(s.Fields))
	for i, f := range s.Fields {
		if f.AppliesWhen != nil {
			dep := f.AppliesWhen.Field
			idx, ok := position[dep]
			if !ok || idx >= i {
				return nil, NewSchemaDependencyError(f.Key, dep)
			}
			if !visible[dep] || !f.AppliesWhen.Matches(answers[dep]) {
				continue
			}
		}
		visible[f.Key] = true
		out = append(out, f)
	}
	return out, nil
}

// Validate checks the catalog invariants: unique keys, well-formed fields, backward-only
// predicates, thresholds strictly decreasing down to 0 over exactly {Low, Moderate, High},
// and additions only for Moderate and High.
func (s *AssessmentSchema) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidSchema)
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("%w: %s declares no fields", ErrInvalidSchema, s.ID)
	}

	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if err := s.validateField(f, seen); err != nil {
			return err
		}
		seen[f.Key] = true
	}

	if err := s.validateThresholds(); err != nil {
		return err
	}

	for tier := range s.Recommendations.Additions {
		if tier != TierModerate && tier != TierHigh {
			return fmt.Errorf("%w: %s declares additions for tier %q", ErrInvalidSchema, s.ID, tier)
		}
	}
	return nil
}

func (s *AssessmentSchema) validateField(f QuestionField, earlier map[string]bool) error {
	if strings.TrimSpace(f.Key) == "" {
		return fmt.Errorf("%w: %s has a field without key", ErrInvalidSchema, s.ID)
	}
	if earlier[f.Key] {
		return fmt.Errorf("%w: %s declares field %q twice", ErrInvalidSchema, s.ID, f.Key)
	}

	switch f.Kind {
	case KindBoolean:
		if rv := strings.ToLower(f.RiskValue); rv != "yes" && rv != "no" {
			return fmt.Errorf("%w: %s.%s risk value must be yes or no, got %q", ErrInvalidSchema, s.ID, f.Key, f.RiskValue)
		}
	case KindEnum:
		if len(f.Options) == 0 {
			return fmt.Errorf("%w: %s.%s declares no options", ErrInvalidSchema, s.ID, f.Key)
		}
		opts := make(map[string]bool, len(f.Options))
		for _, o := range f.Options {
			v := strings.ToLower(strings.TrimSpace(o.Value))
			if v == "" || opts[v] {
				return fmt.Errorf("%w: %s.%s has empty or duplicate option %q", ErrInvalidSchema, s.ID, f.Key, o.Value)
			}
			opts[v] = true
		}
	case KindNumeric:
		if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
			return fmt.Errorf("%w: %s.%s min %v exceeds max %v", ErrInvalidSchema, s.ID, f.Key, *f.Min, *f.Max)
		}
		for i := 1; i < len(f.Steps); i++ {
			if f.Steps[i].Threshold >= f.Steps[i-1].Threshold {
				return fmt.Errorf("%w: %s.%s steps must be ordered greatest threshold first", ErrInvalidSchema, s.ID, f.Key)
			}
		}
	default:
		return fmt.Errorf("%w: %s.%s has unknown kind %q", ErrInvalidSchema, s.ID, f.Key, f.Kind)
	}

	if p := f.AppliesWhen; p != nil {
		if !earlier[p.Field] {
			return NewSchemaDependencyError(f.Key, p.Field)
		}
		if !p.Op.IsValid() || len(p.Values) == 0 {
			return fmt.Errorf("%w: %s.%s has malformed predicate %s", ErrInvalidSchema, s.ID, f.Key, p)
		}
	}
	return nil
}

func (s *AssessmentSchema) validateThresholds() error {
	if len(s.Thresholds) != len(AllTiers) {
		return fmt.Errorf("%w: %s must declare exactly %d thresholds", ErrInvalidSchema, s.ID, len(AllTiers))
	}
	tiers := make(map[Tier]bool, len(s.Thresholds))
	for i, th := range s.Thresholds {
		if !th.Tier.IsValid() || tiers[th.Tier] {
			return fmt.Errorf("%w: %s has invalid or repeated tier %q", ErrInvalidSchema, s.ID, th.Tier)
		}
		tiers[th.Tier] = true
		if i > 0 {
			prev := s.Thresholds[i-1]
			if th.MinScore >= prev.MinScore {
				return fmt.Errorf("%w: %s thresholds must strictly decrease", ErrInvalidSchema, s.ID)
			}
			if th.Tier.Rank() >= prev.Tier.Rank() {
				return fmt.Errorf("%w: %s thresholds must be ordered High to Low", ErrInvalidSchema, s.ID)
			}
		}
	}
	if last := s.Thresholds[len(s.Thresholds)-1]; last.MinScore != 0 {
		return fmt.Errorf("%w: %s lowest threshold must be 0, got %d", ErrInvalidSchema, s.ID, last.MinScore)
	}
	return nil
}
