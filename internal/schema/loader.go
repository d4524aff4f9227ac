package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/symptom-risk-server/internal/domain"
)

// Decode parses one schema document. JSON is accepted as well, being a subset of YAML.
// Unknown keys are rejected so that typos in a catalog fail loudly.
func Decode(data []byte) (*domain.AssessmentSchema, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s domain.AssessmentSchema
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", domain.ErrInvalidSchema)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSchema, err)
	}
	return &s, nil
}

// LoadFile decodes and registers a single schema file.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading schema file: %w", err)
	}
	s, err := Decode(data)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	if err := r.Register(s); err != nil {
		return fmt.Errorf("registering %s: %w", path, err)
	}
	r.logger.WithField("file", path).Info("Loaded assessment schema")
	return nil
}

// LoadDir registers every .yaml, .yml and .json file found directly in dir. Schemas
// override any already registered under the same id.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading schema directory: %w", err)
	}

	loaded := 0
	for _, e := range entries {
		if e.IsDir() || !isSchemaFile(e.Name()) {
			continue
		}
		if err := r.LoadFile(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
		loaded++
	}

	r.logger.WithFields(logrus.Fields{
		"dir":    dir,
		"loaded": loaded,
	}).Info("Loaded schema directory")
	return nil
}

func isSchemaFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}
