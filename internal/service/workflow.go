package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/symptom-risk-server/internal/domain"
)

// baselineValidate checks BaselineProfile struct tags. Field names are reported
// by their json tag so errors read "name", "age" rather than Go field names.
var baselineValidate = newBaselineValidator()

func newBaselineValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Workflow drives one assessment session through Baseline, Questionnaire and Report.
// It owns the session's profile, answers and result; nothing is shared between
// workflows. A Workflow is not safe for concurrent use.
type Workflow struct {
	schema *domain.AssessmentSchema
	engine *ScoringEngine
	logger *logrus.Logger
	now    func() time.Time

	state   domain.State
	profile *domain.BaselineProfile
	answers domain.AnswerSet
	result  *domain.AssessmentResult
}

// WorkflowOption configures a Workflow
type WorkflowOption func(*Workflow)

// WithLogger sets the workflow logger
func WithLogger(logger *logrus.Logger) WorkflowOption {
	return func(w *Workflow) {
		w.logger = logger
	}
}

// WithClock overrides the time source used to stamp results
func WithClock(now func() time.Time) WorkflowOption {
	return func(w *Workflow) {
		w.now = now
	}
}

// NewWorkflow creates a workflow in the Baseline state for schema s.
func NewWorkflow(s *domain.AssessmentSchema, opts ...WorkflowOption) (*Workflow, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: workflow requires a schema", domain.ErrInvalidSchema)
	}

	w := &Workflow{
		schema: s,
		logger: logrus.StandardLogger(),
		now:    func() time.Time { return time.Now().UTC() },
		state:  domain.StateBaseline,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.engine = NewScoringEngine(w.logger)
	return w, nil
}

// State returns the current stage.
func (w *Workflow) State() domain.State {
	return w.state
}

// Schema returns the schema the workflow assesses against.
func (w *Workflow) Schema() *domain.AssessmentSchema {
	return w.schema
}

// Profile returns the accepted baseline profile, if any.
func (w *Workflow) Profile() (domain.BaselineProfile, bool) {
	if w.profile == nil {
		return domain.BaselineProfile{}, false
	}
	return *w.profile, true
}

// Result returns a copy of the terminal result once the workflow reached Report.
func (w *Workflow) Result() (domain.AssessmentResult, bool) {
	if w.result == nil {
		return domain.AssessmentResult{}, false
	}
	return w.result.Copy(), true
}

// VisibleFields returns the questions to show for the given partial answers.
func (w *Workflow) VisibleFields(answers domain.AnswerSet) ([]domain.QuestionField, error) {
	return w.schema.VisibleFields(answers)
}

// SubmitBaseline accepts the demographics and enters Questionnaire. Name, age, gender
// and contact must be present; on failure the workflow stays in Baseline.
func (w *Workflow) SubmitBaseline(profile domain.BaselineProfile) error {
	if w.state != domain.StateBaseline {
		return &domain.TransitionError{State: w.state, Operation: "submit baseline"}
	}

	normalized := profile.Normalized()
	if err := baselineValidate.Struct(normalized); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validating baseline: %w", err)
		}
		missing := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			missing = append(missing, fe.Field())
		}
		w.logger.WithFields(logrus.Fields{
			"disease": w.schema.ID,
			"missing": missing,
		}).Info("Baseline rejected")
		return &domain.IncompleteBaselineError{Missing: missing}
	}

	w.profile = &normalized
	w.answers = domain.AnswerSet{}
	w.state = domain.StateQuestionnaire

	w.logger.WithField("disease", w.schema.ID).Debug("Baseline accepted")
	return nil
}

// SubmitQuestionnaire validates the answers, scores them and enters Report.
// On validation failure the workflow stays in Questionnaire and the error is returned.
func (w *Workflow) SubmitQuestionnaire(answers domain.AnswerSet) (domain.AssessmentResult, error) {
	if w.state != domain.StateQuestionnaire {
		return domain.AssessmentResult{}, &domain.TransitionError{State: w.state, Operation: "submit questionnaire"}
	}

	validated, err := Validate(w.schema, answers)
	if err != nil {
		w.logger.WithFields(logrus.Fields{
			"disease": w.schema.ID,
			"code":    domain.ErrorCode(err),
		}).Info("Questionnaire rejected")
		return domain.AssessmentResult{}, err
	}

	w.answers = validated.Clone()
	eval := w.engine.Evaluate(w.schema, w.answers)

	result := Assemble(*w.profile, w.answers, w.schema, eval.Score, eval.Tier)
	result.Breakdown = eval.Breakdown
	result.AssessedAt = w.now()

	w.result = &result
	w.state = domain.StateReport

	w.logger.WithFields(logrus.Fields(result.LogFields())).Info("Assessment completed")
	return result.Copy(), nil
}

// Reset discards the profile, answers and result and returns to Baseline.
// It is allowed from any state.
func (w *Workflow) Reset() {
	prev := w.state
	w.profile = nil
	w.answers = nil
	w.result = nil
	w.state = domain.StateBaseline

	w.logger.WithFields(logrus.Fields{
		"disease": w.schema.ID,
		"from":    prev,
	}).Debug("Workflow reset")
}
