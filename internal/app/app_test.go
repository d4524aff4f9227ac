package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/symptom-risk-server/internal/domain"
)

func TestNew(t *testing.T) {
	logger, _ := test.NewNullLogger()
	dir := t.TempDir()

	cfg := &domain.Config{
		Feedback: domain.FeedbackConfig{Backend: "sqlite", SQLitePath: filepath.Join(dir, "fb.db")},
		Sessions: domain.SessionConfig{MaxSessions: 5, TTL: time.Minute},
	}

	a, err := New(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, 7, a.Registry.Len())
	assert.NotNil(t, a.Feedback)
	assert.Zero(t, a.Sessions.Len())

	info, err := a.Sessions.Create("covid")
	require.NoError(t, err)
	assert.Equal(t, domain.StateBaseline, info.State)
}

func TestNew_Errors(t *testing.T) {
	logger, _ := test.NewNullLogger()

	t.Run("Bad schema directory", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("id: broken\nfields: []\n"), 0o600))

		_, err := New(context.Background(), &domain.Config{
			Schemas:  domain.SchemaConfig{Dir: dir},
			Feedback: domain.FeedbackConfig{Backend: "none"},
		}, logger)
		assert.ErrorIs(t, err, domain.ErrInvalidSchema)
	})

	t.Run("Unknown feedback backend", func(t *testing.T) {
		_, err := New(context.Background(), &domain.Config{
			Feedback: domain.FeedbackConfig{Backend: "mongo"},
		}, logger)
		assert.Error(t, err)
	})
}
