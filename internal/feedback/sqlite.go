package feedback

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/symptom-risk-server/internal/domain"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite feedback store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL lets readers proceed while a reviewer submission is being written
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	store, err := newSQLiteStoreFromDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	store.dbPath = dbPath
	return store, nil
}

func newSQLiteStoreFromDB(db *sql.DB) (*SQLiteStore, error) {
	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

const selectColumns = `id, session_id, disease, score, suggested_tier, reviewer_tier,
	agreed, notes, created_at, updated_at`

func scanFeedback(s scanner) (*Feedback, error) {
	fb := &Feedback{}
	var suggested, reviewer string

	err := s.Scan(
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

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS tier_feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL UNIQUE,
		disease TEXT NOT NULL,
		score INTEGER NOT NULL,
		suggested_tier TEXT NOT NULL,
		reviewer_tier TEXT NOT NULL,
		agreed INTEGER NOT NULL DEFAULT 0,
		notes TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_tier_feedback_disease ON tier_feedback(disease);
	CREATE INDEX IF NOT EXISTS idx_tier_feedback_created_at ON tier_feedback(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Save stores or updates the feedback for a session.
func (s *SQLiteStore) Save(ctx context.Context, feedback *Feedback) error {
	if err := feedback.Normalize(); err != nil {
		return err
	}
	now := time.Now().UTC()

	var existingID int64
	var createdAt time.Time
	err := s.db.QueryRowContext(ctx,
		"SELECT id, created_at FROM tier_feedback WHERE session_id = ?",
		feedback.SessionID,
	).Scan(&existingID, &createdAt)

	if err == nil {
		_, err = s.db.ExecContext(ctx, `
			UPDATE tier_feedback SET
				disease = ?,
				score = ?,
				suggested_tier = ?,
				reviewer_tier = ?,
				agreed = ?,
				notes = ?,
				updated_at = ?
			WHERE id = ?
		`,
			feedback.Disease,
			feedback.Score,
			string(feedback.SuggestedTier),
			string(feedback.ReviewerTier),
			feedback.Agreed,
			feedback.Notes,
			now,
			existingID,
		)
		if err != nil {
			return fmt.Errorf("failed to update: %w", err)
		}
		feedback.ID = existingID
		feedback.CreatedAt = createdAt
		feedback.UpdatedAt = now
		return nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check existing: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO tier_feedback (
			session_id, disease, score, suggested_tier, reviewer_tier,
			agreed, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		feedback.SessionID,
		feedback.Disease,
		feedback.Score,
		string(feedback.SuggestedTier),
		string(feedback.ReviewerTier),
		feedback.Agreed,
		feedback.Notes,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	feedback.ID = id
	feedback.CreatedAt = now
	feedback.UpdatedAt = now
	return nil
}

// Get retrieves the feedback recorded for a session.
func (s *SQLiteStore) Get(ctx context.Context, sessionID string) (*Feedback, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM tier_feedback WHERE session_id = ? LIMIT 1",
		sessionID,
	)

	fb, err := scanFeedback(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return fb, nil
}

// List returns feedback entries newest first.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*Feedback, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+selectColumns+" FROM tier_feedback ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []*Feedback
	for rows.Next() {
		fb, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, fb)
	}
	return result, rows.Err()
}

// Count returns the total number of feedback entries.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tier_feedback").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count: %w", err)
	}
	return count, nil
}

// Delete removes a feedback entry by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM tier_feedback WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}
	return nil
}

// Stats returns the agreement summary for a disease.
func (s *SQLiteStore) Stats(ctx context.Context, disease string) (*Stats, error) {
	var total, agreed int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN agreed = 1 THEN 1 ELSE 0 END), 0)
		FROM tier_feedback WHERE disease = ?
	`, disease).Scan(&total, &agreed)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate: %w", err)
	}
	st := newStats(disease, total, agreed)

	rows, err := s.db.QueryContext(ctx, `
		SELECT reviewer_tier, COUNT(*) FROM tier_feedback
		WHERE disease = ? AND agreed = 0
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
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	return exportAll(ctx, s, writer)
}

// ImportJSON imports feedback from a JSON reader.
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	return importAll(ctx, s, reader)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
