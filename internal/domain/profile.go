package domain

import (
	"strings"
	"time"
)

// BaselineProfile is the demographics collected at the first stage of an assessment.
// Name, age, gender and contact are mandatory; medical history is free text and optional.
// An age outside 1..150 counts as missing.
type BaselineProfile struct {
	Name           string `json:"name" yaml:"name" validate:"required"`
	Age            int    `json:"age" yaml:"age" validate:"required,gte=0,lte=150"`
	Gender         string `json:"gender" yaml:"gender" validate:"required"`
	Contact        string `json:"contact" yaml:"contact" validate:"required"`
	MedicalHistory string `json:"medical_history,omitempty" yaml:"medical_history,omitempty"`
}

// Normalized returns a copy with surrounding whitespace removed from every text field,
// so that blank input counts as missing.
func (p BaselineProfile) Normalized() BaselineProfile {
	return BaselineProfile{
		Name:           strings.TrimSpace(p.Name),
		Age:            p.Age,
		Gender:         strings.TrimSpace(p.Gender),
		Contact:        strings.TrimSpace(p.Contact),
		MedicalHistory: strings.TrimSpace(p.MedicalHistory),
	}
}

// Contribution is the weight one answered field added to a score.
type Contribution struct {
	Field   string `json:"field"`
	Label   string `json:"label,omitempty"`
	Value   Value  `json:"value"`
	Weight  int    `json:"weight"`
	Visible bool   `json:"visible"`
}

// AssessmentResult is the terminal artifact of a workflow session. It is built once
// at the questionnaire-to-report transition and never mutated afterwards.
type AssessmentResult struct {
	DiseaseID           string          `json:"disease_id"`
	DiseaseName         string          `json:"disease_name"`
	SchemaVersion       string          `json:"schema_version,omitempty"`
	Profile             BaselineProfile `json:"profile"`
	Answers             AnswerSet       `json:"answers"`
	Score               int             `json:"score"`
	Tier                Tier            `json:"tier"`
	Breakdown           []Contribution  `json:"breakdown"`
	Recommendations     []string        `json:"recommendations"`
	FollowUpRecommended bool            `json:"follow_up_recommended"`
	AssessedAt          time.Time       `json:"assessed_at"`
}

// Copy returns a deep copy, so callers cannot alter a session's stored result.
func (r AssessmentResult) Copy() AssessmentResult {
	out := r
	out.Answers = r.Answers.Clone()
	out.Breakdown = append([]Contribution(nil), r.Breakdown...)
	out.Recommendations = append([]string(nil), r.Recommendations...)
	return out
}

// LogFields returns structured logging fields that carry no personal data.
func (r AssessmentResult) LogFields() map[string]any {
	return map[string]any{
		"disease":            r.DiseaseID,
		"score":              r.Score,
		"tier":               string(r.Tier),
		"answers":            len(r.Answers),
		"requires_follow_up": r.FollowUpRecommended,
	}
}
