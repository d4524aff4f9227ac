// Package mcp exposes the assessment engine as Model Context Protocol tools.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/symptom-risk-server/internal/domain"
	"github.com/symptom-risk-server/internal/feedback"
	"github.com/symptom-risk-server/internal/schema"
	"github.com/symptom-risk-server/internal/service"
	"github.com/symptom-risk-server/internal/session"
)

// Dependencies are the engine components the tools run against. Feedback may be nil,
// in which case the feedback tools report that the store is disabled.
type Dependencies struct {
	Registry  *schema.Registry
	Sessions  *session.Manager
	Assembler *service.ReportAssembler
	Feedback  feedback.Store
}

// Server represents the symptom risk MCP server
type Server struct {
	config    *domain.Config
	mcpServer *mcp.Server
	deps      Dependencies
	logger    *logrus.Logger
}

// NewServer creates a new MCP server instance with every tool registered
func NewServer(cfg *domain.Config, deps Dependencies, logger *logrus.Logger) (*Server, error) {
	if deps.Registry == nil || deps.Sessions == nil || deps.Assembler == nil {
		return nil, errors.New("mcp server requires a registry, a session manager and a report assembler")
	}

	name := cfg.MCP.ServerName
	if name == "" {
		name = "symptom-risk-server"
	}
	version := cfg.MCP.ServerVersion
	if version == "" {
		version = "v0.1.0"
	}

	server := &Server{
		config:    cfg,
		mcpServer: mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil),
		deps:      deps,
		logger:    logger,
	}

	server.registerTools()
	return server, nil
}

// Start runs the server on the configured transport until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	transport := strings.ToLower(s.config.MCP.TransportType)
	s.logger.WithField("transport_type", transport).Info("Starting symptom risk MCP server")

	switch transport {
	case "", "stdio":
		if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("MCP server failed: %w", err)
		}
		return nil
	case "http":
		return s.serveHTTP(ctx)
	default:
		return fmt.Errorf("unsupported MCP transport %q", s.config.MCP.TransportType)
	}
}

// HTTPHandler serves the MCP streamable HTTP transport
func (s *Server) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)
}

func (s *Server) serveHTTP(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.MCP.HTTPHost, s.config.MCP.HTTPPort)

	mux := http.NewServeMux()
	mux.Handle("/mcp", s.HTTPHandler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("MCP streamable HTTP transport listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("MCP HTTP transport: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// registerTools registers every assessment and feedback tool
func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_diseases",
		Description: "List the diseases that have a risk assessment questionnaire",
	}, s.handleListDiseases)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "describe_assessment",
		Description: "Return the full questionnaire of a disease: fields, weights, thresholds and recommendations",
	}, s.handleDescribeAssessment)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "start_assessment",
		Description: "Start an assessment session from a baseline profile; returns the session id and the questions to ask",
	}, s.handleStartAssessment)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "visible_fields",
		Description: "List the questions that apply given the answers collected so far",
	}, s.handleVisibleFields)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "submit_questionnaire",
		Description: "Submit questionnaire answers and get the risk score, tier and recommendations",
	}, s.handleSubmitQuestionnaire)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "reset_assessment",
		Description: "Discard a session's baseline, answers and result and start over",
	}, s.handleResetAssessment)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_recommendations",
		Description: "Return the recommendations a disease gives for a risk tier",
	}, s.handleGetRecommendations)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "submit_feedback",
		Description: "Record whether a reviewer agrees with a finished assessment's tier",
	}, s.handleSubmitFeedback)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "feedback_stats",
		Description: "Report reviewer agreement with computed tiers for a disease",
	}, s.handleFeedbackStats)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "export_feedback",
		Description: "Write every feedback entry to a timestamped JSON file in the export directory",
	}, s.handleExportFeedback)

	s.logger.Debug("Registered MCP tools")
}
