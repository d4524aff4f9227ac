package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/symptom-risk-server/internal/domain"
)

func TestScore_ColdScenarios(t *testing.T) {
	s := loadSchema(t, "cold")

	tests := []struct {
		name          string
		answers       domain.AnswerSet
		expectedScore int
		expectedTier  domain.Tier
	}{
		{"All symptoms but discomfort", coldAnswers(true, true, true, true, true, false), 11, domain.TierHigh},
		{"No symptoms", coldAnswers(false, false, false, false, false, false), 0, domain.TierLow},
		{"Fever and sneezing", coldAnswers(false, true, false, false, true, false), 5, domain.TierModerate},
		{"Just below high", coldAnswers(true, true, true, false, false, true), 7, domain.TierModerate},
		{"Exactly high", coldAnswers(true, true, true, false, true, false), 9, domain.TierHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := Score(s, tt.answers)
			assert.Equal(t, tt.expectedScore, score)
			assert.Equal(t, tt.expectedTier, Classify(s, score))
		})
	}
	assert.Equal(t, domain.TierHigh, Classify(s, 9))
	assert.Equal(t, domain.TierModerate, Classify(s, 8))
}

func TestScore_InvertedBooleanRiskValue(t *testing.T) {
	s := loadSchema(t, "heart")
	answers := healthyHeartAnswers()
	require.Equal(t, 0, Score(s, answers))

	answers["physicalActivity"] = no()
	assert.Equal(t, 1, Score(s, answers), "inactivity carries the weight, not activity")
}

func TestScore_NegativeWeights(t *testing.T) {
	s := loadSchema(t, "heart")
	answers := healthyHeartAnswers()
	answers["statinUse"] = yes()

	score := Score(s, answers)

	assert.Equal(t, -1, score)
	assert.Equal(t, domain.TierLow, Classify(s, score))
}

func TestScore_NumericSteps(t *testing.T) {
	s := loadSchema(t, "heart")
	bp, ok := s.Field("systolicBP")
	require.True(t, ok)

	tests := []struct {
		value    float64
		expected int
	}{
		{90, 0}, {129.9, 0}, {130, 1}, {139, 1}, {140, 2}, {159, 2}, {160, 3}, {200, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, ResolveWeight(bp, domain.NumberValue(tt.value)), "systolicBP=%v", tt.value)
	}
}

func TestScore_EnumWeights(t *testing.T) {
	s := loadSchema(t, "covid")
	f, ok := s.Field("vaccinationStatus")
	require.True(t, ok)

	assert.Equal(t, 1, ResolveWeight(f, domain.TextValue("none")))
	assert.Equal(t, -1, ResolveWeight(f, domain.TextValue("Full")))
	assert.Equal(t, 0, ResolveWeight(f, domain.TextValue("unlisted")))
}

func TestScore_HiddenAnswersContribute(t *testing.T) {
	s := loadSchema(t, "diabetes")
	answers := maleDiabetesAnswers()
	answers["pcos"] = yes()

	assert.Equal(t, 2, Score(s, answers))

	breakdown := Breakdown(s, answers)
	var pcos *domain.Contribution
	for i := range breakdown {
		if breakdown[i].Field == "pcos" {
			pcos = &breakdown[i]
		}
	}
	require.NotNil(t, pcos)
	assert.False(t, pcos.Visible)
	assert.Equal(t, 2, pcos.Weight)
}

func TestScore_IndependentWeightsAcrossSchemas(t *testing.T) {
	cancer := loadSchema(t, "cancer")
	malaria := loadSchema(t, "malaria")
	answers := domain.AnswerSet{"fatigue": yes()}

	assert.Equal(t, 1, Score(cancer, answers))
	assert.Equal(t, 2, Score(malaria, answers))
}

func TestScore_Deterministic(t *testing.T) {
	s := loadSchema(t, "dengue")
	answers := domain.AnswerSet{
		"highFever": yes(), "feverDays": domain.NumberValue(6), "rash": yes(), "bleedingGums": yes(),
	}

	first := Score(s, answers)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Score(s, answers))
	}
	assert.Equal(t, 10, first)
}

func TestBreakdown_SumsToScore(t *testing.T) {
	s := loadSchema(t, "covid")
	answers := domain.AnswerSet{
		"fever":             yes(),
		"dryCough":          yes(),
		"vaccinationStatus": domain.TextValue("full"),
		"spo2":              domain.NumberValue(91),
	}

	total := 0
	for _, c := range Breakdown(s, answers) {
		total += c.Weight
	}

	assert.Equal(t, Score(s, answers), total)
	assert.Equal(t, 7, total)
}

func TestClassify_Monotonic(t *testing.T) {
	r := testRegistry(t)

	for _, summary := range r.List() {
		t.Run(summary.ID, func(t *testing.T) {
			s, err := r.Load(summary.ID)
			require.NoError(t, err)

			prev := Classify(s, -50).Rank()
			assert.Equal(t, domain.TierLow, Classify(s, -50))
			for score := -49; score <= 60; score++ {
				rank := Classify(s, score).Rank()
				assert.GreaterOrEqual(t, rank, prev, "score %d", score)
				prev = rank
			}
			assert.Equal(t, domain.TierHigh, Classify(s, 60))
		})
	}
}

func TestScoringEngine_Evaluate(t *testing.T) {
	engine := NewScoringEngine(nullLogger())
	s := loadSchema(t, "cold")

	eval := engine.Evaluate(s, coldAnswers(true, true, true, true, true, false))

	assert.Equal(t, 11, eval.Score)
	assert.Equal(t, domain.TierHigh, eval.Tier)
	assert.Len(t, eval.Breakdown, 6)
}
