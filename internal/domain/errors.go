package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors for the assessment engine. Typed errors below wrap one of these so
// callers can branch with errors.Is and still read the structured detail with errors.As.
var (
	ErrNotFound             = errors.New("not found")
	ErrIncompleteBaseline   = errors.New("incomplete baseline profile")
	ErrMissingRequiredField = errors.New("missing required field")
	ErrInvalidValue         = errors.New("invalid value")
	ErrUnknownDisease       = errors.New("unknown disease")
	ErrSchemaDependency     = errors.New("schema dependency error")
	ErrInvalidTransition    = errors.New("invalid state transition")
	ErrSessionNotFound      = errors.New("session not found")
)

// Error codes for the HTTP and MCP surfaces
const (
	CodeInvalidInput         = "INVALID_INPUT"
	CodeIncompleteBaseline   = "INCOMPLETE_BASELINE"
	CodeMissingRequiredField = "MISSING_REQUIRED_FIELD"
	CodeInvalidValue         = "INVALID_VALUE"
	CodeUnknownDisease       = "UNKNOWN_DISEASE"
	CodeSchemaDependency     = "SCHEMA_DEPENDENCY"
	CodeInvalidTransition    = "INVALID_TRANSITION"
	CodeSessionNotFound      = "SESSION_NOT_FOUND"
	CodeNotFound             = "NOT_FOUND"
	CodeRateLimit            = "RATE_LIMIT_EXCEEDED"
	CodeInternalServer       = "INTERNAL_SERVER_ERROR"
)

// ValidationError reports a problem with one answer: a missing required field,
// or a value outside the field's declared domain.
type ValidationError struct {
	Kind    error       `json:"-"`
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// Unwrap exposes the sentinel kind.
func (e *ValidationError) Unwrap() error {
	return e.Kind
}

// NewMissingRequiredField creates the error for a visible required field left empty.
func NewMissingRequiredField(field string) *ValidationError {
	return &ValidationError{
		Kind:    ErrMissingRequiredField,
		Field:   field,
		Message: "answer is required",
	}
}

// NewInvalidValue creates the error for a value outside the field's declared domain.
func NewInvalidValue(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Kind:    ErrInvalidValue,
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// IncompleteBaselineError lists the mandatory baseline fields that were left empty.
type IncompleteBaselineError struct {
	Missing []string `json:"missing"`
}

func (e *IncompleteBaselineError) Error() string {
	return fmt.Sprintf("incomplete baseline profile: missing %s", strings.Join(e.Missing, ", "))
}

func (e *IncompleteBaselineError) Unwrap() error { return ErrIncompleteBaseline }

// UnknownDiseaseError is returned when no schema is registered for a disease id.
type UnknownDiseaseError struct {
	DiseaseID string `json:"disease_id"`
}

func (e *UnknownDiseaseError) Error() string {
	return fmt.Sprintf("unknown disease %q", e.DiseaseID)
}

func (e *UnknownDiseaseError) Unwrap() error { return ErrUnknownDisease }

// SchemaDependencyError is returned when a field's visibility predicate references an
// answer that cannot have been collected before it.
type SchemaDependencyError struct {
	Field     string `json:"field"`
	DependsOn string `json:"depends_on"`
}

// NewSchemaDependencyError creates a SchemaDependencyError.
func NewSchemaDependencyError(field, dependsOn string) *SchemaDependencyError {
	return &SchemaDependencyError{Field: field, DependsOn: dependsOn}
}

func (e *SchemaDependencyError) Error() string {
	return fmt.Sprintf("field %q depends on %q, which is not declared before it", e.Field, e.DependsOn)
}

func (e *SchemaDependencyError) Unwrap() error { return ErrSchemaDependency }

// TransitionError is returned when a workflow operation is not allowed in the current state.
type TransitionError struct {
	State     State  `json:"state"`
	Operation string `json:"operation"`
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s while in %s state", e.Operation, e.State)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// ErrorCode maps an error to its wire code
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrIncompleteBaseline):
		return CodeIncompleteBaseline
	case errors.Is(err, ErrMissingRequiredField):
		return CodeMissingRequiredField
	case errors.Is(err, ErrInvalidValue):
		return CodeInvalidValue
	case errors.Is(err, ErrUnknownDisease):
		return CodeUnknownDisease
	case errors.Is(err, ErrSchemaDependency):
		return CodeSchemaDependency
	case errors.Is(err, ErrInvalidTransition):
		return CodeInvalidTransition
	case errors.Is(err, ErrSessionNotFound):
		return CodeSessionNotFound
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrInvalidTier):
		return CodeInvalidInput
	default:
		return CodeInternalServer
	}
}

// ServiceError represents a standardized error response
type ServiceError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewServiceError creates a new ServiceError with timestamp
func NewServiceError(code, message string, details interface{}, requestID string) *ServiceError {
	return &ServiceError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// ServiceErrorFrom builds the wire envelope for an engine error, carrying the
// structured detail of typed errors.
func ServiceErrorFrom(err error, requestID string) *ServiceError {
	var details interface{}

	var ve *ValidationError
	var ib *IncompleteBaselineError
	var ud *UnknownDiseaseError
	var sd *SchemaDependencyError
	var te *TransitionError
	switch {
	case errors.As(err, &ve):
		details = ve
	case errors.As(err, &ib):
		details = ib
	case errors.As(err, &ud):
		details = ud
	case errors.As(err, &sd):
		details = sd
	case errors.As(err, &te):
		details = te
	}

	return NewServiceError(ErrorCode(err), err.Error(), details, requestID)
}
