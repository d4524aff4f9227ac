package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/symptom-risk-server/internal/domain"
)

// RequestIDHeader carries the correlation id in and out of every request
const RequestIDHeader = "X-Request-ID"

// RequestIDKey is the gin context key holding the correlation id
const RequestIDKey = "request_id"

// SecurityHeaders adds security headers to all responses
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		// Responses carry health answers; never cache them
		c.Header("Cache-Control", "no-store")
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		c.Header("Referrer-Policy", "no-referrer")

		c.Next()
	}
}

// CorrelationID reuses the caller's X-Request-ID or assigns a fresh uuid
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()
	}
}

// RequestID returns the correlation id assigned by CorrelationID, if any
func RequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// AccessLog writes one structured entry per request. Query strings are left out so
// that answers passed as parameters never reach the log.
func AccessLog(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := logger.WithFields(logrus.Fields{
			"request_id": RequestID(c),
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     status,
			"latency":    time.Since(start).String(),
			"client_ip":  c.ClientIP(),
			"size":       c.Writer.Size(),
		})

		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("Request failed")
		case status >= http.StatusBadRequest:
			entry.Warn("Request rejected")
		default:
			entry.Info("Request handled")
		}
	}
}

// Recovery converts a panic into a 500 ServiceError and logs it
func Recovery(logger *logrus.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.WithFields(logrus.Fields{
			"request_id": RequestID(c),
			"path":       c.Request.URL.Path,
			"panic":      recovered,
		}).Error("Recovered from panic")

		c.AbortWithStatusJSON(http.StatusInternalServerError, domain.NewServiceError(
			domain.CodeInternalServer, "internal server error", nil, RequestID(c)))
	})
}
