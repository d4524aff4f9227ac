package service

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/symptom-risk-server/internal/domain"
)

// Recommendations composes the advice for tier: the schema's base list, followed by
// the tier's own additions for Moderate and High. Additions do not accumulate across
// tiers. The returned slice is always a fresh copy.
func Recommendations(s *domain.AssessmentSchema, tier domain.Tier) []string {
	out := make([]string, 0, len(s.Recommendations.Base)+len(s.Recommendations.Additions[tier]))
	out = append(out, s.Recommendations.Base...)
	if tier.RequiresFollowUp() {
		out = append(out, s.Recommendations.Additions[tier]...)
	}
	return out
}

// Assemble builds the immutable result of an assessment.
func Assemble(profile domain.BaselineProfile, answers domain.AnswerSet, s *domain.AssessmentSchema, score int, tier domain.Tier) domain.AssessmentResult {
	return domain.AssessmentResult{
		DiseaseID:           s.ID,
		DiseaseName:         s.Name,
		SchemaVersion:       s.Version,
		Profile:             profile,
		Answers:             answers.Clone(),
		Score:               score,
		Tier:                tier,
		Breakdown:           Breakdown(s, answers),
		Recommendations:     Recommendations(s, tier),
		FollowUpRecommended: tier.RequiresFollowUp(),
		AssessedAt:          time.Now().UTC(),
	}
}

// ReportAssembler serves recommendation lookups by disease id
type ReportAssembler struct {
	loader domain.SchemaLoader
	logger *logrus.Logger
}

// NewReportAssembler creates a new report assembler
func NewReportAssembler(loader domain.SchemaLoader, logger *logrus.Logger) *ReportAssembler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ReportAssembler{loader: loader, logger: logger}
}

// RecommendationsFor returns the advice for a disease at the given tier.
func (a *ReportAssembler) RecommendationsFor(diseaseID string, tier domain.Tier) ([]string, error) {
	if !tier.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidTier, tier)
	}
	s, err := a.loader.Load(diseaseID)
	if err != nil {
		return nil, err
	}

	recs := Recommendations(s, tier)
	a.logger.WithFields(logrus.Fields{
		"disease": s.ID,
		"tier":    tier,
		"count":   len(recs),
	}).Debug("Resolved recommendations")
	return recs, nil
}
