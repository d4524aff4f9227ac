package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/symptom-risk-server/internal/domain"
)

func TestRecommendations_TierComposition(t *testing.T) {
	s := loadSchema(t, "cold")
	base := s.Recommendations.Base

	low := Recommendations(s, domain.TierLow)
	moderate := Recommendations(s, domain.TierModerate)
	high := Recommendations(s, domain.TierHigh)

	assert.Equal(t, base, low)
	assert.Equal(t, append(append([]string{}, base...), s.Recommendations.Additions[domain.TierModerate]...), moderate)
	assert.Equal(t, append(append([]string{}, base...), s.Recommendations.Additions[domain.TierHigh]...), high)
	for _, rec := range s.Recommendations.Additions[domain.TierModerate] {
		assert.NotContains(t, high, rec, "additions are not cumulative")
	}
}

func TestRecommendations_LowSubsetOfHigherTiers(t *testing.T) {
	r := testRegistry(t)

	for _, summary := range r.List() {
		t.Run(summary.ID, func(t *testing.T) {
			s, err := r.Load(summary.ID)
			require.NoError(t, err)

			low := Recommendations(s, domain.TierLow)
			for _, tier := range []domain.Tier{domain.TierModerate, domain.TierHigh} {
				recs := Recommendations(s, tier)
				assert.Subset(t, recs, low)
				assert.Equal(t, low, recs[:len(low)], "base list comes first")
			}
		})
	}
}

func TestRecommendations_FreshCopy(t *testing.T) {
	s := loadSchema(t, "cold")
	original := s.Recommendations.Base[0]

	recs := Recommendations(s, domain.TierLow)
	recs[0] = "tampered"

	assert.Equal(t, original, s.Recommendations.Base[0])
}

func TestAssemble(t *testing.T) {
	s := loadSchema(t, "heart")
	answers := healthyHeartAnswers()
	answers["chestPain"] = domain.TextValue("typical")
	answers["smoking"] = domain.TextValue("current")

	result := Assemble(validProfile(), answers, s, 6, domain.TierModerate)

	assert.Equal(t, "heart", result.DiseaseID)
	assert.Equal(t, "Heart Disease", result.DiseaseName)
	assert.Equal(t, 6, result.Score)
	assert.Equal(t, domain.TierModerate, result.Tier)
	assert.True(t, result.FollowUpRecommended)
	assert.Equal(t, validProfile(), result.Profile)
	assert.Equal(t, Recommendations(s, domain.TierModerate), result.Recommendations)
	assert.False(t, result.AssessedAt.IsZero())

	answers["chestPain"] = domain.TextValue("none")
	assert.Equal(t, "typical", result.Answers["chestPain"].Canonical(), "result owns its own answers")
}

func TestAssemble_LowTierNoFollowUp(t *testing.T) {
	s := loadSchema(t, "cold")

	result := Assemble(validProfile(), coldAnswers(false, false, false, false, false, false), s, 0, domain.TierLow)

	assert.False(t, result.FollowUpRecommended)
	assert.Equal(t, s.Recommendations.Base, result.Recommendations)
}

func TestReportAssembler_RecommendationsFor(t *testing.T) {
	assembler := NewReportAssembler(testRegistry(t), nullLogger())

	recs, err := assembler.RecommendationsFor("COVID", domain.TierHigh)
	require.NoError(t, err)
	assert.NotEmpty(t, recs)

	_, err = assembler.RecommendationsFor("flu", domain.TierLow)
	assert.ErrorIs(t, err, domain.ErrUnknownDisease)

	_, err = assembler.RecommendationsFor("cold", domain.Tier("Severe"))
	assert.ErrorIs(t, err, domain.ErrInvalidTier)
}
