package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/symptom-risk-server/internal/domain"
	"github.com/symptom-risk-server/internal/feedback"
	"github.com/symptom-risk-server/internal/service"
	"github.com/symptom-risk-server/internal/session"
)

// CreateSessionRequest starts an assessment for one disease
type CreateSessionRequest struct {
	DiseaseID string `json:"disease_id" binding:"required"`
}

// AnswersRequest carries questionnaire answers keyed by field
type AnswersRequest struct {
	Answers domain.AnswerSet `json:"answers"`
}

// FeedbackRequest records a reviewer's verdict on a finished session
type FeedbackRequest struct {
	SessionID    string `json:"session_id" binding:"required"`
	ReviewerTier string `json:"reviewer_tier"`
	Notes        string `json:"notes"`
}

// SessionResponse describes a session and whatever stage output is available
type SessionResponse struct {
	Session       session.Info             `json:"session"`
	VisibleFields []domain.QuestionField   `json:"visible_fields,omitempty"`
	Result        *domain.AssessmentResult `json:"result,omitempty"`
}

func (s *Server) handleListDiseases(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"diseases": s.deps.Registry.List()})
}

func (s *Server) handleGetDisease(c *gin.Context) {
	schema, err := s.deps.Registry.Load(c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, schema)
}

func (s *Server) handleRecommendations(c *gin.Context) {
	tier, err := domain.ParseTier(c.Query("tier"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	recs, err := s.deps.Assembler.RecommendationsFor(c.Param("id"), tier)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"disease_id":      c.Param("id"),
		"tier":            tier,
		"recommendations": recs,
	})
}

func (s *Server) handleCreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	info, err := s.deps.Sessions.Create(req.DiseaseID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, SessionResponse{Session: info})
}

func (s *Server) handleGetSession(c *gin.Context) {
	resp, err := s.describe(c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleSubmitBaseline(c *gin.Context) {
	var profile domain.BaselineProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		s.badRequest(c, err)
		return
	}

	id := c.Param("id")
	err := s.deps.Sessions.With(id, func(w *service.Workflow) error {
		return w.SubmitBaseline(profile)
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	resp, err := s.describe(id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleVisibleFields(c *gin.Context) {
	var req AnswersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	var fields []domain.QuestionField
	err := s.deps.Sessions.With(c.Param("id"), func(w *service.Workflow) error {
		var err error
		fields, err = w.VisibleFields(req.Answers)
		return err
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"visible_fields": fields})
}

func (s *Server) handleSubmitQuestionnaire(c *gin.Context) {
	var req AnswersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	var result domain.AssessmentResult
	err := s.deps.Sessions.With(c.Param("id"), func(w *service.Workflow) error {
		var err error
		result, err = w.SubmitQuestionnaire(req.Answers)
		return err
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleReset(c *gin.Context) {
	id := c.Param("id")
	err := s.deps.Sessions.With(id, func(w *service.Workflow) error {
		w.Reset()
		return nil
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	resp, err := s.describe(id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	if err := s.deps.Sessions.Delete(c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSubmitFeedback(c *gin.Context) {
	if s.deps.Feedback == nil {
		s.feedbackDisabled(c)
		return
	}

	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	var result domain.AssessmentResult
	err := s.deps.Sessions.With(req.SessionID, func(w *service.Workflow) error {
		r, ok := w.Result()
		if !ok {
			return &domain.TransitionError{State: w.State(), Operation: "submit feedback"}
		}
		result = r
		return nil
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	fb := feedback.FromResult(req.SessionID, result, domain.Tier(req.ReviewerTier), req.Notes)
	if err := s.deps.Feedback.Save(c.Request.Context(), fb); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, fb)
}

func (s *Server) handleListFeedback(c *gin.Context) {
	if s.deps.Feedback == nil {
		s.feedbackDisabled(c)
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 500 {
		s.badRequest(c, fmt.Errorf("limit must be between 1 and 500"))
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		s.badRequest(c, fmt.Errorf("offset must be a non-negative integer"))
		return
	}

	entries, err := s.deps.Feedback.List(c.Request.Context(), limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}
	total, err := s.deps.Feedback.Count(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"feedback": entries,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

func (s *Server) handleFeedbackStats(c *gin.Context) {
	if s.deps.Feedback == nil {
		s.feedbackDisabled(c)
		return
	}
	stats, err := s.deps.Feedback.Stats(c.Request.Context(), c.Param("disease"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// describe snapshots a session. In the questionnaire stage it includes the fields
// visible before any answer is given; in the report stage it includes the result.
func (s *Server) describe(id string) (SessionResponse, error) {
	var resp SessionResponse
	err := s.deps.Sessions.With(id, func(w *service.Workflow) error {
		switch w.State() {
		case domain.StateQuestionnaire:
			fields, err := w.VisibleFields(domain.AnswerSet{})
			if err != nil {
				return err
			}
			resp.VisibleFields = fields
		case domain.StateReport:
			if r, ok := w.Result(); ok {
				resp.Result = &r
			}
		}
		return nil
	})
	if err != nil {
		return resp, err
	}
	info, err := s.deps.Sessions.Get(id)
	if err != nil {
		return resp, err
	}
	resp.Session = info
	return resp, nil
}
