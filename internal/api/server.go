package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/symptom-risk-server/internal/domain"
	"github.com/symptom-risk-server/internal/feedback"
	"github.com/symptom-risk-server/internal/middleware"
	"github.com/symptom-risk-server/internal/schema"
	"github.com/symptom-risk-server/internal/service"
	"github.com/symptom-risk-server/internal/session"
)

const healthCheckTimeout = 2 * time.Second

// Dependencies are the engine components the HTTP surface is served from.
// Feedback may be nil when the feedback store is disabled.
type Dependencies struct {
	Registry  *schema.Registry
	Sessions  *session.Manager
	Assembler *service.ReportAssembler
	Feedback  feedback.Store
}

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	deps          Dependencies
	logger        *logrus.Logger
	router        *gin.Engine
	server        *http.Server
	startedAt     time.Time
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, deps Dependencies, logger *logrus.Logger) *Server {
	cfg := configManager.GetConfig()

	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.CorrelationID())
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.AccessLog(logger))
	router.Use(middleware.SecurityHeaders())
	if cfg.RateLimit.Enabled {
		router.Use(middleware.NewRateLimiter(cfg.RateLimit).Middleware())
	}

	server := &Server{
		configManager: configManager,
		deps:          deps,
		logger:        logger,
		router:        router,
		startedAt:     time.Now(),
	}

	server.setupRoutes()

	return server
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	var handler http.Handler = s.router
	if cfg.RequestTimeout > 0 {
		handler = http.TimeoutHandler(handler, cfg.RequestTimeout, `{"code":"INTERNAL_SERVER_ERROR","message":"request timeout"}`)
	}

	s.server = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		var err error
		if cfg.TLSEnabled {
			err = s.server.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/diseases", s.handleListDiseases)
		v1.GET("/diseases/:id", s.handleGetDisease)
		v1.GET("/diseases/:id/recommendations", s.handleRecommendations)

		v1.POST("/sessions", s.handleCreateSession)
		v1.GET("/sessions/:id", s.handleGetSession)
		v1.POST("/sessions/:id/baseline", s.handleSubmitBaseline)
		v1.POST("/sessions/:id/visible-fields", s.handleVisibleFields)
		v1.POST("/sessions/:id/questionnaire", s.handleSubmitQuestionnaire)
		v1.POST("/sessions/:id/reset", s.handleReset)
		v1.DELETE("/sessions/:id", s.handleDeleteSession)

		v1.POST("/feedback", s.handleSubmitFeedback)
		v1.GET("/feedback", s.handleListFeedback)
		v1.GET("/feedback/stats/:disease", s.handleFeedbackStats)
	}
}

// handleHealth handles health check requests. An unreachable feedback store makes
// the service unhealthy.
func (s *Server) handleHealth(c *gin.Context) {
	status, code, store := "healthy", http.StatusOK, "disabled"
	if s.deps.Feedback != nil {
		store = "ok"
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()
		if err := s.deps.Feedback.Health(ctx); err != nil {
			s.logger.WithError(err).WithField(middleware.RequestIDKey, middleware.RequestID(c)).
				Error("Feedback store health check failed")
			status, code, store = "unhealthy", http.StatusServiceUnavailable, "unavailable"
		}
	}

	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"version":   s.configManager.GetConfig().MCP.ServerVersion,
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
		"diseases":  s.deps.Registry.Len(),
		"sessions":  s.deps.Sessions.Len(),
		"feedback":  store,
	})
}
