// Package schema holds the catalog of disease assessment schemas. The built-in
// catalog is embedded in the binary; operators may overlay their own YAML or JSON
// documents from a directory.
package schema

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/symptom-risk-server/internal/domain"
)

//go:embed catalog/*.yaml
var catalogFS embed.FS

// Registry resolves disease ids to validated schemas. It is safe for concurrent use.
// Returned schemas are shared and must be treated as read-only.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*domain.AssessmentSchema
	logger  *logrus.Logger
}

// Option configures a Registry
type Option func(*Registry)

// WithLogger sets the logger used to report catalog loading.
func WithLogger(logger *logrus.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates a registry pre-populated with the embedded catalog.
func NewRegistry(opts ...Option) (*Registry, error) {
	r := NewEmptyRegistry(opts...)
	if err := r.loadFS(catalogFS, "catalog"); err != nil {
		return nil, fmt.Errorf("loading built-in catalog: %w", err)
	}
	return r, nil
}

// NewEmptyRegistry creates a registry with no schemas registered.
func NewEmptyRegistry(opts ...Option) *Registry {
	r := &Registry{
		schemas: make(map[string]*domain.AssessmentSchema),
		logger:  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register validates s and adds it to the registry, replacing any schema with the same id.
func (r *Registry) Register(s *domain.AssessmentSchema) error {
	if s == nil {
		return fmt.Errorf("%w: nil schema", domain.ErrInvalidSchema)
	}
	if err := s.Validate(); err != nil {
		return err
	}

	id := normalizeID(s.ID)
	r.mu.Lock()
	_, replaced := r.schemas[id]
	r.schemas[id] = s
	r.mu.Unlock()

	r.logger.WithFields(logrus.Fields{
		"disease":  id,
		"fields":   len(s.Fields),
		"version":  s.Version,
		"replaced": replaced,
	}).Debug("Registered assessment schema")
	return nil
}

// Load returns the schema registered under diseaseID. Ids are case-insensitive.
func (r *Registry) Load(diseaseID string) (*domain.AssessmentSchema, error) {
	r.mu.RLock()
	s, ok := r.schemas[normalizeID(diseaseID)]
	r.mu.RUnlock()
	if !ok {
		return nil, &domain.UnknownDiseaseError{DiseaseID: diseaseID}
	}
	return s, nil
}

// List returns the summaries of all registered schemas sorted by id.
func (r *Registry) List() []domain.SchemaSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.SchemaSummary, 0, len(r.schemas))
	for _, s := range r.schemas {
		out = append(out, s.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of registered schemas.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.schemas)
}

func (r *Registry) loadFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !isSchemaFile(e.Name()) {
			continue
		}
		name := path.Join(dir, e.Name())
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading %s: %w", name, err)
		}
		s, err := Decode(data)
		if err != nil {
			return fmt.Errorf("decoding %s: %w", name, err)
		}
		if err := r.Register(s); err != nil {
			return fmt.Errorf("registering %s: %w", name, err)
		}
	}
	return nil
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

var _ domain.SchemaLoader = (*Registry)(nil)
