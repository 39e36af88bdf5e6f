package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// APIError represents a standardized API error with HTTP status code
type APIError struct {
	Type   string            `json:"type"`
	Title  string            `json:"title"`
	Status int               `json:"status"`
	Detail string            `json:"detail,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
	// Blockers lists the unfinished dependencies of a blocked stage
	Blockers []uuid.UUID `json:"blockers,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Title
}

// ValidationMessages provides human-readable validation error messages
// These map validator tags to user-friendly messages
var ValidationMessages = map[string]string{
	"required": "This field is required",
	"max":      "Exceeds maximum length",
	"min":      "Below minimum length",
	"gte":      "Must be greater than or equal to minimum value",
	"gt":       "Must be greater than minimum value",
	"lte":      "Must be less than or equal to maximum value",
	"lt":       "Must be less than maximum value",
	"uuid":     "Must be a valid UUID",
	"url":      "Must be a valid URL",
	"oneof":    "Must be one of the allowed values",
	"dive":     "Contains an invalid element",
}

// GetValidationMessage returns a human-readable message for a validation tag
func GetValidationMessage(tag string) string {
	if msg, ok := ValidationMessages[tag]; ok {
		return msg
	}
	return "Validation failed: " + tag
}

// Common error types for RFC 7807 Problem Details
const (
	ErrorTypeValidation         = "validation_error"
	ErrorTypeNotFound           = "not_found"
	ErrorTypeBadRequest         = "bad_request"
	ErrorTypeConflict           = "conflict"
	ErrorTypeInvalidTransition  = "invalid_transition"
	ErrorTypeBlocked            = "blocked"
	ErrorTypeCycleDetected      = "cycle_detected"
	ErrorTypeServiceUnavailable = "service_unavailable"
	ErrorTypeInternal           = "internal_error"
)

// Workflow error taxonomy. Concrete errors below wrap one of these so callers
// can use errors.Is.
var (
	ErrNotFound                   = errors.New("resource not found")
	ErrInvalidTransition          = errors.New("invalid transition")
	ErrBlocked                    = errors.New("stage is blocked")
	ErrCycleDetected              = errors.New("dependency cycle detected")
	ErrValidation                 = errors.New("validation failed")
	ErrExternalServiceUnavailable = errors.New("external service unavailable")
)

// TransitionError is returned when a lifecycle move is not permitted
type TransitionError struct {
	Entity string
	From   string
	To     string
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move %s from %s to %s: %s", e.Entity, e.From, e.To, e.Reason)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// BlockedError is returned when a stage has unfinished direct dependencies
type BlockedError struct {
	StageID  uuid.UUID
	Blockers []uuid.UUID
}

func (e *BlockedError) Error() string {
	ids := make([]string, len(e.Blockers))
	for i, id := range e.Blockers {
		ids[i] = id.String()
	}
	return fmt.Sprintf("stage %s is blocked by unfinished dependencies: %s", e.StageID, strings.Join(ids, ", "))
}

func (e *BlockedError) Unwrap() error { return ErrBlocked }

// CycleError is returned when a dependency edge would close a cycle
type CycleError struct {
	StageID     uuid.UUID
	DependsOnID uuid.UUID
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("stage %s cannot depend on %s: the dependency would create a cycle", e.StageID, e.DependsOnID)
}

func (e *CycleError) Unwrap() error { return ErrCycleDetected }

// ValidationError collects field-level problems with an input
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError creates a ValidationError for a single field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// Add records another field problem
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = message
}

// HasErrors reports whether any field problem was recorded
func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// UnavailableError is returned when an external collaborator (catalog,
// similarity scorer) failed or timed out
type UnavailableError struct {
	Service string
	Err     error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Service, e.Err)
}

func (e *UnavailableError) Unwrap() []error {
	return []error{ErrExternalServiceUnavailable, e.Err}
}
