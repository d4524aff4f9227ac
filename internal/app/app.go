// Package app wires the engine components shared by the HTTP and MCP binaries.
package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/symptom-risk-server/internal/domain"
	"github.com/symptom-risk-server/internal/feedback"
	"github.com/symptom-risk-server/internal/schema"
	"github.com/symptom-risk-server/internal/service"
	"github.com/symptom-risk-server/internal/session"
)

// App holds the long-lived components built from one configuration
type App struct {
	Registry  *schema.Registry
	Sessions  *session.Manager
	Assembler *service.ReportAssembler
	Feedback  feedback.Store

	closeFeedback func()
}

// New loads the schema catalog (plus the configured overlay directory), creates the
// session manager and opens the feedback store.
func New(ctx context.Context, cfg *domain.Config, logger *logrus.Logger) (*App, error) {
	registry, err := schema.NewRegistry(schema.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to load schema catalog: %w", err)
	}
	if cfg.Schemas.Dir != "" {
		if err := registry.LoadDir(cfg.Schemas.Dir); err != nil {
			return nil, fmt.Errorf("failed to load schemas from %s: %w", cfg.Schemas.Dir, err)
		}
	}

	store, closeStore, err := feedback.Open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open feedback store: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"diseases":     registry.Len(),
		"max_sessions": cfg.Sessions.MaxSessions,
		"session_ttl":  cfg.Sessions.TTL.String(),
	}).Info("Assessment engine ready")

	return &App{
		Registry:      registry,
		Sessions:      session.NewManager(registry, cfg.Sessions, logger),
		Assembler:     service.NewReportAssembler(registry, logger),
		Feedback:      store,
		closeFeedback: closeStore,
	}, nil
}

// Close releases the feedback store
func (a *App) Close() {
	if a.closeFeedback != nil {
		a.closeFeedback()
	}
}
