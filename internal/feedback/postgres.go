package feedback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/symptom-risk-server/internal/domain"
)

// PostgresStore implements the Store interface using PostgreSQL.
// The tier_feedback table is created by the database migrations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL feedback store on an existing pool.
// The pool stays owned by the caller.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Health pings the shared pool.
func (s *PostgresStore) Health(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func scanPgFeedback(row pgx.Row) (*Feedback, error) {
	fb := &Feedback{}
	var suggested, reviewer string
	err := row.Scan(
		&fb.ID, &fb.SessionID, &fb.Disease, &fb.Score, &suggested, &reviewer,
		&fb.Agreed, &fb.Notes, &fb.CreatedAt, &fb.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	fb.SuggestedTier = domain.Tier(suggested)
	fb.ReviewerTier = domain.Tier(reviewer)
	return fb, nil
}

// Save stores or updates the feedback for a session.
func (s *PostgresStore) Save(ctx context.Context, feedback *Feedback) error {
	if err := feedback.Normalize(); err != nil {
		return err
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO tier_feedback (
			session_id, disease, score, suggested_tier, reviewer_tier,
			agreed, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (session_id) DO UPDATE SET
			disease = EXCLUDED.disease,
			score = EXCLUDED.score,
			suggested_tier = EXCLUDED.suggested_tier,
			reviewer_tier = EXCLUDED.reviewer_tier,
			agreed = EXCLUDED.agreed,
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`

	err := s.pool.QueryRow(ctx, query,
		feedback.SessionID,
		feedback.Disease,
		feedback.Score,
		string(feedback.SuggestedTier),
		string(feedback.ReviewerTier),
		feedback.Agreed,
		feedback.Notes,
		now,
		now,
	).Scan(&feedback.ID, &feedback.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}

	feedback.UpdatedAt = now
	return nil
}

// Get retrieves the feedback recorded for a session.
func (s *PostgresStore) Get(ctx context.Context, sessionID string) (*Feedback, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+selectColumns+" FROM tier_feedback WHERE session_id = $1 LIMIT 1",
		sessionID,
	)

	fb, err := scanPgFeedback(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feedback: %w", err)
	}
	return fb, nil
}

// List returns feedback entries newest first.
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*Feedback, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+selectColumns+" FROM tier_feedback ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2",
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	var result []*Feedback
	for rows.Next() {
		fb, err := scanPgFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, fb)
	}
	return result, rows.Err()
}

// Count returns the total number of feedback entries.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM tier_feedback").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count feedback: %w", err)
	}
	return count, nil
}

// Delete removes a feedback entry by ID.
func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM tier_feedback WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to delete feedback: %w", err)
	}
	return nil
}

// Stats returns the agreement summary for a disease.
func (s *PostgresStore) Stats(ctx context.Context, disease string) (*Stats, error) {
	var total, agreed int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN agreed THEN 1 ELSE 0 END), 0)
		FROM tier_feedback WHERE disease = $1
	`, disease).Scan(&total, &agreed)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate feedback: %w", err)
	}
	st := newStats(disease, total, agreed)

	rows, err := s.pool.Query(ctx, `
		SELECT reviewer_tier, COUNT(*) FROM tier_feedback
		WHERE disease = $1 AND NOT agreed
		GROUP BY reviewer_tier
	`, disease)
	if err != nil {
		return nil, fmt.Errorf("failed to query corrections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tier string
		var n int64
		if err := rows.Scan(&tier, &n); err != nil {
			return nil, fmt.Errorf("failed to scan corrections: %w", err)
		}
		st.Corrections[domain.Tier(tier)] = n
	}
	return st, rows.Err()
}

// ExportJSON exports all feedback to a JSON writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	return exportAll(ctx, s, writer)
}

// ImportJSON imports feedback from a JSON reader.
func (s *PostgresStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	return importAll(ctx, s, reader)
}

// Close is a no-op; the pool belongs to the caller.
func (s *PostgresStore) Close() error {
	return nil
}
