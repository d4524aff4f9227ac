// Package feedback stores reviewer feedback on computed risk tiers. A reviewer either
// agrees with the suggested tier or records the tier they would have assigned, which
// is what threshold calibration works from. No baseline profile and no answers are kept.
package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/symptom-risk-server/internal/domain"
)

// ErrInvalidFeedback is returned when a feedback entry is incomplete or names an unknown tier.
var ErrInvalidFeedback = errors.New("invalid feedback")

// Feedback represents a reviewer's verdict on one assessment.
type Feedback struct {
	ID            int64       `json:"id,omitempty"`
	SessionID     string      `json:"session_id"`
	Disease       string      `json:"disease"`
	Score         int         `json:"score"`
	SuggestedTier domain.Tier `json:"suggested_tier"` // Engine's classification
	ReviewerTier  domain.Tier `json:"reviewer_tier"`  // Reviewer's decision
	Agreed        bool        `json:"agreed"`
	Notes         string      `json:"notes,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// FromResult builds the feedback entry for a finished assessment. The score and the
// suggested tier always come from the engine's result, never from the reviewer.
func FromResult(sessionID string, result domain.AssessmentResult, reviewerTier domain.Tier, notes string) *Feedback {
	return &Feedback{
		SessionID:     sessionID,
		Disease:       result.DiseaseID,
		Score:         result.Score,
		SuggestedTier: result.Tier,
		ReviewerTier:  reviewerTier,
		Notes:         notes,
	}
}

// Normalize fills defaults and checks the entry. A missing reviewer tier means the
// reviewer accepted the suggestion. Agreed is always derived from the two tiers.
func (f *Feedback) Normalize() error {
	f.SessionID = strings.TrimSpace(f.SessionID)
	f.Disease = strings.ToLower(strings.TrimSpace(f.Disease))
	if f.SessionID == "" {
		return fmt.Errorf("%w: session_id is required", ErrInvalidFeedback)
	}
	if f.Disease == "" {
		return fmt.Errorf("%w: disease is required", ErrInvalidFeedback)
	}

	suggested, err := domain.ParseTier(string(f.SuggestedTier))
	if err != nil {
		return fmt.Errorf("%w: suggested_tier: %v", ErrInvalidFeedback, err)
	}
	f.SuggestedTier = suggested

	if strings.TrimSpace(string(f.ReviewerTier)) == "" {
		f.ReviewerTier = suggested
	} else {
		reviewer, err := domain.ParseTier(string(f.ReviewerTier))
		if err != nil {
			return fmt.Errorf("%w: reviewer_tier: %v", ErrInvalidFeedback, err)
		}
		f.ReviewerTier = reviewer
	}
	f.Agreed = f.SuggestedTier == f.ReviewerTier
	return nil
}

// Stats summarizes reviewer agreement for one disease.
type Stats struct {
	Disease       string                `json:"disease"`
	Total         int64                 `json:"total"`
	Agreed        int64                 `json:"agreed"`
	AgreementRate float64               `json:"agreement_rate"`
	Corrections   map[domain.Tier]int64 `json:"corrections"` // Reviewer tier of each disagreement
}

func newStats(disease string, total, agreed int64) *Stats {
	st := &Stats{
		Disease:     disease,
		Total:       total,
		Agreed:      agreed,
		Corrections: make(map[domain.Tier]int64),
	}
	if total > 0 {
		st.AgreementRate = float64(agreed) / float64(total)
	}
	return st
}

// Store defines the interface for feedback storage operations.
type Store interface {
	// Save stores or updates feedback. Entries are unique per session.
	Save(ctx context.Context, feedback *Feedback) error

	// Get retrieves the feedback recorded for a session, or nil if there is none.
	Get(ctx context.Context, sessionID string) (*Feedback, error)

	// List returns feedback entries newest first.
	List(ctx context.Context, limit, offset int) ([]*Feedback, error)

	// Count returns the total number of feedback entries.
	Count(ctx context.Context) (int64, error)

	// Delete removes a feedback entry by ID.
	Delete(ctx context.Context, id int64) error

	// Stats returns the agreement summary for a disease.
	Stats(ctx context.Context, disease string) (*Stats, error)

	// ExportJSON exports all feedback to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON imports feedback from a JSON reader, skipping sessions already present.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Health reports whether the backing database is reachable.
	Health(ctx context.Context) error

	// Close closes the store and releases resources.
	Close() error
}

// Export represents the JSON export format.
type Export struct {
	Version    string      `json:"version"`
	ExportedAt time.Time   `json:"exported_at"`
	Count      int         `json:"count"`
	Feedback   []*Feedback `json:"feedback"`
}

const exportVersion = "1.0"

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

func exportAll(ctx context.Context, s Store, writer io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list feedback: %w", err)
	}
	if all == nil {
		all = []*Feedback{}
	}

	export := &Export{
		Version:    exportVersion,
		ExportedAt: time.Now().UTC(),
		Count:      len(all),
		Feedback:   all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

func importAll(ctx context.Context, s Store, reader io.Reader) (imported int, skipped int, err error) {
	var export Export
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, fb := range export.Feedback {
		if fb == nil {
			skipped++
			continue
		}
		existing, err := s.Get(ctx, fb.SessionID)
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}
		if existing != nil {
			skipped++
			continue
		}

		fb.ID = 0
		if err := s.Save(ctx, fb); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}
	return imported, skipped, nil
}
