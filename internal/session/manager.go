// Package session hosts independent assessment workflows for concurrent users.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"github.com/symptom-risk-server/internal/domain"
	"github.com/symptom-risk-server/internal/service"
)

const (
	defaultMaxSessions = 1000
	defaultTTL         = 30 * time.Minute
)

// Session is one user's pass through an assessment. Its workflow is only reachable
// through Manager.With, which serializes access.
type Session struct {
	ID        string
	DiseaseID string
	CreatedAt time.Time

	mu       sync.Mutex
	workflow *service.Workflow
	deleted  bool
}

// Info is a point-in-time view of a session
type Info struct {
	ID        string       `json:"id"`
	DiseaseID string       `json:"disease_id"`
	State     domain.State `json:"state"`
	CreatedAt time.Time    `json:"created_at"`
}

// Manager keeps sessions in a bounded cache. Sessions idle for longer than the TTL,
// or evicted to make room for new ones, are gone for good.
type Manager struct {
	loader domain.SchemaLoader

	// mu orders cache lookups that refresh expiry against removals
	mu     sync.Mutex
	cache  *expirable.LRU[string, *Session]
	logger *logrus.Logger
	now    func() time.Time
}

// NewManager creates a session manager
func NewManager(loader domain.SchemaLoader, cfg domain.SessionConfig, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	size := cfg.MaxSessions
	if size <= 0 {
		size = defaultMaxSessions
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}

	m := &Manager{
		loader: loader,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	m.cache = expirable.NewLRU[string, *Session](size, m.onEvict, ttl)

	logger.WithFields(logrus.Fields{
		"max_sessions": size,
		"ttl":          ttl,
	}).Debug("Session manager initialized")
	return m
}

func (m *Manager) onEvict(id string, s *Session) {
	m.logger.WithFields(logrus.Fields{
		"session_id": id,
		"disease":    s.DiseaseID,
	}).Debug("Session evicted")
}

// Create starts a new session for diseaseID in the Baseline state.
func (m *Manager) Create(diseaseID string) (Info, error) {
	schema, err := m.loader.Load(diseaseID)
	if err != nil {
		return Info{}, err
	}
	w, err := service.NewWorkflow(schema, service.WithLogger(m.logger))
	if err != nil {
		return Info{}, fmt.Errorf("creating workflow: %w", err)
	}

	s := &Session{
		ID:        uuid.NewString(),
		DiseaseID: schema.ID,
		CreatedAt: m.now(),
		workflow:  w,
	}
	m.cache.Add(s.ID, s)

	m.logger.WithFields(logrus.Fields{
		"session_id": s.ID,
		"disease":    s.DiseaseID,
	}).Info("Assessment session created")

	return s.info(), nil
}

// Get returns a snapshot of the session.
func (m *Manager) Get(id string) (Info, error) {
	s, err := m.lookup(id)
	if err != nil {
		return Info{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info(), nil
}

// With runs fn against the session's workflow while holding the session lock, and
// refreshes the session's expiry. fn must not call back into the manager for the
// same session.
func (m *Manager) With(id string, fn func(w *service.Workflow) error) error {
	m.mu.Lock()
	s, err := m.lookup(id)
	if err == nil {
		// Re-adding moves the entry to the front and restarts its TTL
		m.cache.Add(id, s)
	}
	m.mu.Unlock()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleted {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return fn(s.workflow)
}

// Delete removes the session. Unknown ids report ErrSessionNotFound. A With call
// already holding the session finishes first; later ones see it as gone.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.cache.Peek(id)
	if ok {
		m.cache.Remove(id)
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}

	s.mu.Lock()
	s.deleted = true
	s.mu.Unlock()

	m.logger.WithField("session_id", id).Info("Assessment session deleted")
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	return m.cache.Len()
}

func (m *Manager) lookup(id string) (*Session, error) {
	s, ok := m.cache.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return s, nil
}

// info must be called with s.mu held, or before s is shared.
func (s *Session) info() Info {
	return Info{
		ID:        s.ID,
		DiseaseID: s.DiseaseID,
		State:     s.workflow.State(),
		CreatedAt: s.CreatedAt,
	}
}
