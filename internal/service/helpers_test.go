package service

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/symptom-risk-server/internal/domain"
	"github.com/symptom-risk-server/internal/schema"
)

func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	r, err := schema.NewRegistry(schema.WithLogger(nullLogger()))
	require.NoError(t, err)
	return r
}

func loadSchema(t *testing.T, id string) *domain.AssessmentSchema {
	t.Helper()
	s, err := testRegistry(t).Load(id)
	require.NoError(t, err)
	return s
}

func nullLogger() *logrus.Logger {
	logger, _ := test.NewNullLogger()
	return logger
}

func yes() domain.Value { return domain.BoolValue(true) }
func no() domain.Value  { return domain.BoolValue(false) }

func coldAnswers(runnyNose, sneezing, soreThroat, cough, mildFever, discomfort bool) domain.AnswerSet {
	return domain.AnswerSet{
		"runnyNose":  domain.BoolValue(runnyNose),
		"sneezing":   domain.BoolValue(sneezing),
		"soreThroat": domain.BoolValue(soreThroat),
		"cough":      domain.BoolValue(cough),
		"mildFever":  domain.BoolValue(mildFever),
		"discomfort": domain.BoolValue(discomfort),
	}
}

func maleDiabetesAnswers() domain.AnswerSet {
	return domain.AnswerSet{
		"gender":                domain.TextValue("male"),
		"frequentUrination":     no(),
		"excessiveThirst":       no(),
		"unexplainedWeightLoss": no(),
		"fatigue":               no(),
		"blurredVision":         no(),
		"slowHealing":           no(),
		"familyHistory":         no(),
		"physicalActivity":      yes(),
	}
}

func healthyHeartAnswers() domain.AnswerSet {
	return domain.AnswerSet{
		"chestPain":         domain.TextValue("none"),
		"shortnessOfBreath": no(),
		"systolicBP":        domain.NumberValue(120),
		"smoking":           domain.TextValue("never"),
		"diabetes":          no(),
		"familyHistory":     no(),
		"physicalActivity":  yes(),
		"palpitations":      no(),
	}
}

func validProfile() domain.BaselineProfile {
	return domain.BaselineProfile{
		Name:    "Ada Example",
		Age:     42,
		Gender:  "female",
		Contact: "ada@example.com",
	}
}
