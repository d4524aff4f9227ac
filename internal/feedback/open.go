package feedback

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/symptom-risk-server/internal/database"
	"github.com/symptom-risk-server/internal/domain"
)

// Backends accepted by Open
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendNone     = "none"
)

// Open builds the store selected by cfg.Feedback.Backend. For the "none" backend it
// returns a nil store and nil error; callers treat feedback as disabled. The returned
// closer releases everything Open acquired, including the Postgres pool.
func Open(ctx context.Context, cfg *domain.Config, logger *logrus.Logger) (Store, func(), error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Feedback.Backend))

	switch backend {
	case BackendNone, "":
		logger.Info("Tier feedback store disabled")
		return nil, func() {}, nil

	case BackendSQLite:
		store, err := NewSQLiteStore(cfg.Feedback.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite feedback store: %w", err)
		}
		logger.WithField("path", cfg.Feedback.SQLitePath).Info("Tier feedback store opened")
		return store, func() {
			if err := store.Close(); err != nil {
				logger.WithError(err).Warn("Failed to close feedback store")
			}
		}, nil

	case BackendPostgres:
		if cfg.Database.RunMigrations {
			if err := database.Migrate(ctx, database.URL(cfg.Database), logger); err != nil {
				return nil, nil, fmt.Errorf("migrating feedback database: %w", err)
			}
		}
		db, err := database.NewConnection(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting feedback database: %w", err)
		}
		store, err := NewPostgresStore(ctx, db.Pool)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.WithField("database", cfg.Database.Database).Info("Tier feedback store opened")
		return store, db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown feedback backend %q", cfg.Feedback.Backend)
	}
}
