package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/symptom-risk-server/internal/domain"
	"github.com/symptom-risk-server/internal/feedback"
	"github.com/symptom-risk-server/internal/service"
	"github.com/symptom-risk-server/internal/session"
)

// errFeedbackDisabled is reported by the feedback tools when no store is configured
var errFeedbackDisabled = errors.New("feedback store is disabled")

// NoParams is the input of tools that take no arguments
type NoParams struct{}

// DiseaseParams names one disease
type DiseaseParams struct {
	DiseaseID string `json:"disease_id" jsonschema:"disease identifier such as cold or heart"`
}

// BaselineParams is the demographic profile collected before the questionnaire.
// Fields are optional at the protocol level so that the engine can report every
// missing one at once.
type BaselineParams struct {
	Name           string `json:"name,omitempty"`
	Age            int    `json:"age,omitempty"`
	Gender         string `json:"gender,omitempty"`
	Contact        string `json:"contact,omitempty"`
	MedicalHistory string `json:"medical_history,omitempty"`
}

func (b BaselineParams) profile() domain.BaselineProfile {
	return domain.BaselineProfile{
		Name:           b.Name,
		Age:            b.Age,
		Gender:         b.Gender,
		Contact:        b.Contact,
		MedicalHistory: b.MedicalHistory,
	}
}

// StartAssessmentParams defines parameters for start_assessment
type StartAssessmentParams struct {
	DiseaseID string         `json:"disease_id"`
	Baseline  BaselineParams `json:"baseline"`
}

// StartAssessmentResult is the session ready for its questionnaire
type StartAssessmentResult struct {
	Session       session.Info           `json:"session"`
	VisibleFields []domain.QuestionField `json:"visible_fields"`
}

// AnswersParams carries a session id and answers keyed by field. Values are
// yes/no booleans, option strings or numbers.
type AnswersParams struct {
	SessionID string         `json:"session_id"`
	Answers   map[string]any `json:"answers,omitempty"`
}

// SessionParams names one session
type SessionParams struct {
	SessionID string `json:"session_id"`
}

// RecommendationsParams defines parameters for get_recommendations
type RecommendationsParams struct {
	DiseaseID string `json:"disease_id"`
	Tier      string `json:"tier" jsonschema:"Low, Moderate or High"`
}

// FeedbackParams defines parameters for submit_feedback
type FeedbackParams struct {
	SessionID    string `json:"session_id"`
	ReviewerTier string `json:"reviewer_tier,omitempty" jsonschema:"tier the reviewer would assign; empty means agreement"`
	Notes        string `json:"notes,omitempty"`
}

// FeedbackStatsParams defines parameters for feedback_stats
type FeedbackStatsParams struct {
	Disease string `json:"disease"`
}

// ListDiseasesResult lists the registered questionnaires
type ListDiseasesResult struct {
	Diseases []domain.SchemaSummary `json:"diseases"`
}

// VisibleFieldsResult lists the questions that currently apply
type VisibleFieldsResult struct {
	VisibleFields []domain.QuestionField `json:"visible_fields"`
}

// RecommendationsResult is the advice a disease gives for one tier
type RecommendationsResult struct {
	DiseaseID       string      `json:"disease_id"`
	Tier            domain.Tier `json:"tier"`
	Recommendations []string    `json:"recommendations"`
}

// ExportFeedbackResult reports where the export was written
type ExportFeedbackResult struct {
	Path  string `json:"path"`
	Count int64  `json:"count"`
}

func (s *Server) handleListDiseases(ctx context.Context, req *mcp.CallToolRequest, _ NoParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "list_diseases").Info("Tool invoked")
	out := ListDiseasesResult{Diseases: s.deps.Registry.List()}
	return jsonResult(out), out, nil
}

func (s *Server) handleDescribeAssessment(ctx context.Context, req *mcp.CallToolRequest, params DiseaseParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithFields(logrus.Fields{"tool": "describe_assessment", "disease": params.DiseaseID}).Info("Tool invoked")

	schema, err := s.deps.Registry.Load(params.DiseaseID)
	if err != nil {
		return s.errorResult("describe_assessment", err), nil, nil
	}
	return jsonResult(schema), schema, nil
}

func (s *Server) handleStartAssessment(ctx context.Context, req *mcp.CallToolRequest, params StartAssessmentParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithFields(logrus.Fields{"tool": "start_assessment", "disease": params.DiseaseID}).Info("Tool invoked")

	info, err := s.deps.Sessions.Create(params.DiseaseID)
	if err != nil {
		return s.errorResult("start_assessment", err), nil, nil
	}

	var out StartAssessmentResult
	err = s.deps.Sessions.With(info.ID, func(w *service.Workflow) error {
		if err := w.SubmitBaseline(params.Baseline.profile()); err != nil {
			return err
		}
		fields, err := w.VisibleFields(domain.AnswerSet{})
		out.VisibleFields = fields
		return err
	})
	if err != nil {
		// A session that never got its baseline is of no use to the caller
		_ = s.deps.Sessions.Delete(info.ID)
		return s.errorResult("start_assessment", err), nil, nil
	}

	out.Session, err = s.deps.Sessions.Get(info.ID)
	if err != nil {
		return s.errorResult("start_assessment", err), nil, nil
	}
	return jsonResult(out), out, nil
}

func (s *Server) handleVisibleFields(ctx context.Context, req *mcp.CallToolRequest, params AnswersParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithFields(logrus.Fields{"tool": "visible_fields", "session_id": params.SessionID}).Debug("Tool invoked")

	answers, err := answerSet(params.Answers)
	if err != nil {
		return s.errorResult("visible_fields", err), nil, nil
	}

	var fields []domain.QuestionField
	err = s.deps.Sessions.With(params.SessionID, func(w *service.Workflow) error {
		var err error
		fields, err = w.VisibleFields(answers)
		return err
	})
	if err != nil {
		return s.errorResult("visible_fields", err), nil, nil
	}
	out := VisibleFieldsResult{VisibleFields: fields}
	return jsonResult(out), out, nil
}

func (s *Server) handleSubmitQuestionnaire(ctx context.Context, req *mcp.CallToolRequest, params AnswersParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithFields(logrus.Fields{"tool": "submit_questionnaire", "session_id": params.SessionID}).Info("Tool invoked")

	answers, err := answerSet(params.Answers)
	if err != nil {
		return s.errorResult("submit_questionnaire", err), nil, nil
	}

	var result domain.AssessmentResult
	err = s.deps.Sessions.With(params.SessionID, func(w *service.Workflow) error {
		var err error
		result, err = w.SubmitQuestionnaire(answers)
		return err
	})
	if err != nil {
		return s.errorResult("submit_questionnaire", err), nil, nil
	}
	return jsonResult(result), result, nil
}

func (s *Server) handleResetAssessment(ctx context.Context, req *mcp.CallToolRequest, params SessionParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithFields(logrus.Fields{"tool": "reset_assessment", "session_id": params.SessionID}).Info("Tool invoked")

	err := s.deps.Sessions.With(params.SessionID, func(w *service.Workflow) error {
		w.Reset()
		return nil
	})
	if err != nil {
		return s.errorResult("reset_assessment", err), nil, nil
	}
	info, err := s.deps.Sessions.Get(params.SessionID)
	if err != nil {
		return s.errorResult("reset_assessment", err), nil, nil
	}
	return jsonResult(info), info, nil
}

func (s *Server) handleGetRecommendations(ctx context.Context, req *mcp.CallToolRequest, params RecommendationsParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithFields(logrus.Fields{"tool": "get_recommendations", "disease": params.DiseaseID}).Info("Tool invoked")

	tier, err := domain.ParseTier(params.Tier)
	if err != nil {
		return s.errorResult("get_recommendations", err), nil, nil
	}
	recs, err := s.deps.Assembler.RecommendationsFor(params.DiseaseID, tier)
	if err != nil {
		return s.errorResult("get_recommendations", err), nil, nil
	}
	out := RecommendationsResult{DiseaseID: params.DiseaseID, Tier: tier, Recommendations: recs}
	return jsonResult(out), out, nil
}

func (s *Server) handleSubmitFeedback(ctx context.Context, req *mcp.CallToolRequest, params FeedbackParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithFields(logrus.Fields{"tool": "submit_feedback", "session_id": params.SessionID}).Info("Tool invoked")

	if s.deps.Feedback == nil {
		return s.errorResult("submit_feedback", errFeedbackDisabled), nil, nil
	}

	var result domain.AssessmentResult
	err := s.deps.Sessions.With(params.SessionID, func(w *service.Workflow) error {
		r, ok := w.Result()
		if !ok {
			return &domain.TransitionError{State: w.State(), Operation: "submit feedback"}
		}
		result = r
		return nil
	})
	if err != nil {
		return s.errorResult("submit_feedback", err), nil, nil
	}

	fb := feedback.FromResult(params.SessionID, result, domain.Tier(params.ReviewerTier), params.Notes)
	if err := s.deps.Feedback.Save(ctx, fb); err != nil {
		return s.errorResult("submit_feedback", err), nil, nil
	}
	return jsonResult(fb), fb, nil
}

func (s *Server) handleFeedbackStats(ctx context.Context, req *mcp.CallToolRequest, params FeedbackStatsParams) (*mcp.CallToolResult, any, error) {
	if s.deps.Feedback == nil {
		return s.errorResult("feedback_stats", errFeedbackDisabled), nil, nil
	}
	stats, err := s.deps.Feedback.Stats(ctx, params.Disease)
	if err != nil {
		return s.errorResult("feedback_stats", err), nil, nil
	}
	return jsonResult(stats), stats, nil
}

func (s *Server) handleExportFeedback(ctx context.Context, req *mcp.CallToolRequest, _ NoParams) (*mcp.CallToolResult, any, error) {
	if s.deps.Feedback == nil {
		return s.errorResult("export_feedback", errFeedbackDisabled), nil, nil
	}

	dir := s.config.Feedback.ExportDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return s.errorResult("export_feedback", fmt.Errorf("creating export directory: %w", err)), nil, nil
	}

	path := filepath.Join(dir, fmt.Sprintf("feedback_export_%s.json", time.Now().UTC().Format("20060102_150405")))
	file, err := os.Create(path)
	if err != nil {
		return s.errorResult("export_feedback", fmt.Errorf("creating export file: %w", err)), nil, nil
	}
	defer file.Close()

	if err := s.deps.Feedback.ExportJSON(ctx, file); err != nil {
		return s.errorResult("export_feedback", err), nil, nil
	}
	count, err := s.deps.Feedback.Count(ctx)
	if err != nil {
		return s.errorResult("export_feedback", err), nil, nil
	}

	out := ExportFeedbackResult{Path: path, Count: count}
	s.logger.WithFields(logrus.Fields{"path": path, "count": count}).Info("Feedback exported")
	return jsonResult(out), out, nil
}

func answerSet(raw map[string]any) (domain.AnswerSet, error) {
	answers, err := domain.AnswerSetFromMap(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidValue, err)
	}
	return answers, nil
}

// jsonResult renders v as indented JSON text content
func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		data = []byte(fmt.Sprintf("%v", v))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}

// errorResult reports a tool failure to the client as a ServiceError payload
func (s *Server) errorResult(tool string, err error) *mcp.CallToolResult {
	svcErr := domain.ServiceErrorFrom(err, "")
	if errors.Is(err, feedback.ErrInvalidFeedback) {
		svcErr.Code = domain.CodeInvalidInput
	}

	s.logger.WithFields(logrus.Fields{
		"tool":  tool,
		"code":  svcErr.Code,
		"error": err.Error(),
	}).Warn("Tool call failed")

	result := jsonResult(svcErr)
	result.IsError = true
	return result
}
