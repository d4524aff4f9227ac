package service

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/symptom-risk-server/internal/domain"
)

// ResolveWeight returns the weight a single answer contributes under field f.
// Answers the field cannot interpret weigh 0.
func ResolveWeight(f domain.QuestionField, v domain.Value) int {
	if v.IsEmpty() {
		return 0
	}

	switch f.Kind {
	case domain.KindBoolean:
		b, ok := v.Bool()
		if !ok {
			return 0
		}
		if b == strings.EqualFold(f.RiskValue, "yes") {
			return f.Weight
		}
		return 0

	case domain.KindEnum:
		text, ok := v.Text()
		if !ok {
			return 0
		}
		opt, ok := f.Option(text)
		if !ok {
			return 0
		}
		return opt.Weight

	case domain.KindNumeric:
		n, ok := v.Number()
		if !ok {
			return 0
		}
		// Steps are ordered greatest threshold first
		for _, step := range f.Steps {
			if n >= step.Threshold {
				return step.Weight
			}
		}
		return 0
	}
	return 0
}

// Score sums the resolved weight of every answered field, visible or not.
// Weights may be negative and the total is not clamped.
func Score(s *domain.AssessmentSchema, answers domain.AnswerSet) int {
	total := 0
	for _, f := range s.Fields {
		if v, ok := answers[f.Key]; ok {
			total += ResolveWeight(f, v)
		}
	}
	return total
}

// Breakdown lists the contribution of each answered field in declaration order.
// The weights always sum to Score.
func Breakdown(s *domain.AssessmentSchema, answers domain.AnswerSet) []domain.Contribution {
	shown := make(map[string]bool, len(s.Fields))
	if visible, err := s.VisibleFields(answers); err == nil {
		for _, f := range visible {
			shown[f.Key] = true
		}
	}

	out := make([]domain.Contribution, 0, len(answers))
	for _, f := range s.Fields {
		v, ok := answers[f.Key]
		if !ok || v.IsEmpty() {
			continue
		}
		out = append(out, domain.Contribution{
			Field:   f.Key,
			Label:   f.Label,
			Value:   v,
			Weight:  ResolveWeight(f, v),
			Visible: shown[f.Key],
		})
	}
	return out
}

// Classify maps a score to a tier by walking thresholds highest first and returning
// the first whose MinScore is at or below score. Negative scores land in the lowest tier.
func Classify(s *domain.AssessmentSchema, score int) domain.Tier {
	if len(s.Thresholds) == 0 {
		return domain.TierLow
	}
	for _, th := range s.Thresholds {
		if score >= th.MinScore {
			return th.Tier
		}
	}
	return s.Thresholds[len(s.Thresholds)-1].Tier
}

// Evaluation is the combined output of scoring one answer set.
type Evaluation struct {
	Score     int
	Tier      domain.Tier
	Breakdown []domain.Contribution
}

// ScoringEngine evaluates weighted rule sets and logs the outcome
type ScoringEngine struct {
	logger *logrus.Logger
}

// NewScoringEngine creates a new scoring engine
func NewScoringEngine(logger *logrus.Logger) *ScoringEngine {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ScoringEngine{logger: logger}
}

// Evaluate scores and classifies answers under schema s.
func (e *ScoringEngine) Evaluate(s *domain.AssessmentSchema, answers domain.AnswerSet) Evaluation {
	breakdown := Breakdown(s, answers)

	score := 0
	for _, c := range breakdown {
		score += c.Weight
		if c.Weight != 0 {
			e.logger.WithFields(logrus.Fields{
				"disease": s.ID,
				"field":   c.Field,
				"weight":  c.Weight,
				"visible": c.Visible,
			}).Debug("Field contributed to score")
		}
	}
	tier := Classify(s, score)

	e.logger.WithFields(logrus.Fields{
		"disease":        s.ID,
		"score":          score,
		"tier":           tier,
		"answered":       len(breakdown),
		"contributing":   countContributing(breakdown),
		"requires_visit": tier.RequiresFollowUp(),
	}).Info("Completed risk scoring")

	return Evaluation{Score: score, Tier: tier, Breakdown: breakdown}
}

func countContributing(breakdown []domain.Contribution) int {
	count := 0
	for _, c := range breakdown {
		if c.Weight != 0 {
			count++
		}
	}
	return count
}
