package service

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/symptom-risk-server/internal/domain"
)

// Validate checks a submitted answer set against a schema.
//
// Required fields are only enforced while visible. Every answered field is checked
// against its declared domain whether or not it is currently visible, because hidden
// answers still contribute to the score. Keys the schema does not declare are rejected.
// The first offending field in declaration order is reported; undeclared keys are
// reported after declared ones, in lexical order.
//
// Validate does not mutate answers and returns the same set on success.
func Validate(s *domain.AssessmentSchema, answers domain.AnswerSet) (domain.AnswerSet, error) {
	visible, err := s.VisibleFields(answers)
	if err != nil {
		return nil, err
	}
	shown := make(map[string]bool, len(visible))
	for _, f := range visible {
		shown[f.Key] = true
	}

	for _, f := range s.Fields {
		v, present := answers[f.Key]
		answered := present && !v.IsEmpty()

		if !answered {
			if f.Required && shown[f.Key] {
				return nil, domain.NewMissingRequiredField(f.Key)
			}
			continue
		}
		if err := checkValue(f, v); err != nil {
			return nil, err
		}
	}

	if unknown := undeclaredKeys(s, answers); len(unknown) > 0 {
		key := unknown[0]
		return nil, domain.NewInvalidValue(key, answers[key].Interface(),
			fmt.Sprintf("field is not part of the %s assessment", s.ID))
	}

	return answers, nil
}

func checkValue(f domain.QuestionField, v domain.Value) error {
	switch f.Kind {
	case domain.KindBoolean:
		if _, ok := v.Bool(); !ok {
			return domain.NewInvalidValue(f.Key, v.Interface(), "must be yes or no")
		}

	case domain.KindEnum:
		text, ok := v.Text()
		if !ok {
			return domain.NewInvalidValue(f.Key, v.Interface(), "must be one of "+optionList(f))
		}
		if _, ok := f.Option(text); !ok {
			return domain.NewInvalidValue(f.Key, v.Interface(), "must be one of "+optionList(f))
		}

	case domain.KindNumeric:
		n, ok := v.Number()
		if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
			return domain.NewInvalidValue(f.Key, v.Interface(), "must be a number")
		}
		if !f.InBounds(n) {
			return domain.NewInvalidValue(f.Key, v.Interface(), boundsMessage(f))
		}

	default:
		return domain.NewInvalidValue(f.Key, v.Interface(), fmt.Sprintf("unsupported field kind %q", f.Kind))
	}
	return nil
}

func undeclaredKeys(s *domain.AssessmentSchema, answers domain.AnswerSet) []string {
	var unknown []string
	for key := range answers {
		if _, ok := s.Field(key); !ok {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	return unknown
}

func optionList(f domain.QuestionField) string {
	values := make([]string, 0, len(f.Options))
	for _, o := range f.Options {
		values = append(values, o.Value)
	}
	return strings.Join(values, ", ")
}

func boundsMessage(f domain.QuestionField) string {
	switch {
	case f.Min != nil && f.Max != nil:
		return fmt.Sprintf("must be between %g and %g", *f.Min, *f.Max)
	case f.Min != nil:
		return fmt.Sprintf("must be at least %g", *f.Min)
	default:
		return fmt.Sprintf("must be at most %g", *f.Max)
	}
}
