package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/symptom-risk-server/internal/domain"
	"github.com/symptom-risk-server/internal/feedback"
	"github.com/symptom-risk-server/internal/middleware"
)

const codeFeedbackDisabled = "FEEDBACK_DISABLED"

// statusFor maps a wire code to its HTTP status
func statusFor(code string) int {
	switch code {
	case domain.CodeInvalidInput:
		return http.StatusBadRequest
	case domain.CodeUnknownDisease, domain.CodeSessionNotFound, domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeInvalidTransition:
		return http.StatusConflict
	case domain.CodeIncompleteBaseline, domain.CodeMissingRequiredField, domain.CodeInvalidValue:
		return http.StatusUnprocessableEntity
	case domain.CodeRateLimit:
		return http.StatusTooManyRequests
	case codeFeedbackDisabled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as a ServiceError with the matching status
func (s *Server) writeError(c *gin.Context, err error) {
	svcErr := domain.ServiceErrorFrom(err, middleware.RequestID(c))
	if errors.Is(err, feedback.ErrInvalidFeedback) {
		svcErr.Code = domain.CodeInvalidInput
	}
	status := statusFor(svcErr.Code)

	entry := s.logger.WithFields(logrus.Fields{
		"request_id": svcErr.RequestID,
		"code":       svcErr.Code,
		"status":     status,
	})
	if status >= http.StatusInternalServerError {
		// Internal detail stays in the log
		entry.WithError(err).Error("Request failed")
		svcErr.Message = "internal server error"
		svcErr.Details = nil
	} else {
		entry.Debug(svcErr.Message)
	}

	c.AbortWithStatusJSON(status, svcErr)
}

// badRequest reports a malformed request body or parameter
func (s *Server) badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, domain.NewServiceError(
		domain.CodeInvalidInput, err.Error(), nil, middleware.RequestID(c)))
}

func (s *Server) feedbackDisabled(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, domain.NewServiceError(
		codeFeedbackDisabled, "feedback store is disabled", nil, middleware.RequestID(c)))
}
