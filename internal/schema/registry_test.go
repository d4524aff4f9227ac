package schema

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/symptom-risk-server/internal/domain"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	logger, _ := test.NewNullLogger()
	r, err := NewRegistry(WithLogger(logger))
	require.NoError(t, err)
	return r
}

func TestNewRegistry_BuiltInCatalog(t *testing.T) {
	r := newTestRegistry(t)

	ids := make([]string, 0)
	for _, s := range r.List() {
		ids = append(ids, s.ID)
	}

	// Sorted by id
	assert.Equal(t, []string{"cancer", "cold", "covid", "dengue", "diabetes", "heart", "malaria"}, ids)
	assert.Equal(t, 7, r.Len())
}

func TestBuiltInSchemas_ThresholdInvariant(t *testing.T) {
	r := newTestRegistry(t)

	for _, summary := range r.List() {
		t.Run(summary.ID, func(t *testing.T) {
			s, err := r.Load(summary.ID)
			require.NoError(t, err)

			require.Len(t, s.Thresholds, 3)
			for i := 1; i < len(s.Thresholds); i++ {
				assert.Less(t, s.Thresholds[i].MinScore, s.Thresholds[i-1].MinScore, "thresholds must strictly decrease")
			}
			assert.Equal(t, 0, s.Thresholds[len(s.Thresholds)-1].MinScore)

			tiers := map[domain.Tier]bool{}
			for _, th := range s.Thresholds {
				tiers[th.Tier] = true
			}
			assert.Equal(t, map[domain.Tier]bool{domain.TierLow: true, domain.TierModerate: true, domain.TierHigh: true}, tiers)
			assert.NotEmpty(t, s.Recommendations.Base)
		})
	}
}

func TestRegistry_Load_CaseInsensitive(t *testing.T) {
	r := newTestRegistry(t)

	s, err := r.Load("  COLD ")
	require.NoError(t, err)
	assert.Equal(t, "cold", s.ID)
}

func TestRegistry_Load_UnknownDisease(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Load("flu")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnknownDisease))
	var ud *domain.UnknownDiseaseError
	require.ErrorAs(t, err, &ud)
	assert.Equal(t, "flu", ud.DiseaseID)
}

func TestBuiltInSchemas_FixedContent(t *testing.T) {
	r := newTestRegistry(t)

	cold, err := r.Load("cold")
	require.NoError(t, err)
	weights := map[string]int{}
	for _, f := range cold.Fields {
		weights[f.Key] = f.Weight
	}
	assert.Equal(t, map[string]int{
		"runnyNose": 2, "sneezing": 2, "soreThroat": 2, "cough": 2, "mildFever": 3, "discomfort": 1,
	}, weights)
	assert.Equal(t, 9, cold.Thresholds[0].MinScore)

	heart, err := r.Load("heart")
	require.NoError(t, err)
	bp, ok := heart.Field("systolicBP")
	require.True(t, ok)
	require.NotNil(t, bp.Min)
	require.NotNil(t, bp.Max)
	assert.Equal(t, 90.0, *bp.Min)
	assert.Equal(t, 200.0, *bp.Max)
	statin, ok := heart.Field("statinUse")
	require.True(t, ok)
	assert.Equal(t, -1, statin.Weight)

	diabetes, err := r.Load("diabetes")
	require.NoError(t, err)
	for _, key := range []string{"pcos", "gestationalDiabetes", "largeBaby"} {
		f, ok := diabetes.Field(key)
		require.True(t, ok, key)
		require.NotNil(t, f.AppliesWhen, key)
		assert.Equal(t, "gender", f.AppliesWhen.Field)
		assert.Equal(t, []string{"female"}, f.AppliesWhen.Values)
	}

	cancer, err := r.Load("cancer")
	require.NoError(t, err)
	malaria, err := r.Load("malaria")
	require.NoError(t, err)
	cf, _ := cancer.Field("fatigue")
	mf, _ := malaria.Field("fatigue")
	assert.Equal(t, 1, cf.Weight)
	assert.Equal(t, 2, mf.Weight)
}

func TestRegistry_Register_RejectsInvalid(t *testing.T) {
	r := NewEmptyRegistry()

	err := r.Register(&domain.AssessmentSchema{ID: "broken"})

	assert.ErrorIs(t, err, domain.ErrInvalidSchema)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_LoadDir_Overrides(t *testing.T) {
	r := newTestRegistry(t)
	dir := t.TempDir()

	doc := `
id: Cold
name: Seasonal Cold
fields:
  - key: sneezing
    kind: boolean
    required: true
    risk_value: "yes"
    weight: 5
thresholds:
  - {min_score: 5, tier: High}
  - {min_score: 1, tier: Moderate}
  - {min_score: 0, tier: Low}
recommendations:
  base: [Rest]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cold.yaml"), []byte(doc), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("ignored"), 0o600))

	require.NoError(t, r.LoadDir(dir))

	s, err := r.Load("cold")
	require.NoError(t, err)
	assert.Equal(t, "Seasonal Cold", s.Name)
	assert.Len(t, s.Fields, 1)
	assert.Equal(t, 7, r.Len())
}

func TestRegistry_LoadFile_JSON(t *testing.T) {
	r := NewEmptyRegistry()
	path := filepath.Join(t.TempDir(), "flu.json")
	doc := `{"id":"flu","name":"Influenza","fields":[{"key":"fever","kind":"boolean","risk_value":"yes","weight":3}],
"thresholds":[{"min_score":3,"tier":"High"},{"min_score":1,"tier":"Moderate"},{"min_score":0,"tier":"Low"}],
"recommendations":{"base":["Rest"],"additions":{"High":["See a doctor"]}}}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	require.NoError(t, r.LoadFile(path))

	s, err := r.Load("flu")
	require.NoError(t, err)
	assert.Equal(t, []string{"See a doctor"}, s.Recommendations.Additions[domain.TierHigh])
}

func TestDecode_RejectsUnknownKeys(t *testing.T) {
	_, err := Decode([]byte("id: x\nname: X\nweights: {}\n"))
	assert.ErrorIs(t, err, domain.ErrInvalidSchema)

	_, err = Decode([]byte(""))
	assert.ErrorIs(t, err, domain.ErrInvalidSchema)
}
