package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Domain errors shared across services. Handlers map these onto response
// codes with errors.Is / errors.As.
var (
	ErrStagingNotFound    = errors.New("staging assessment not found or not pending")
	ErrAssessmentNotFound = errors.New("assessment not found")
	ErrSubjectNotFound    = errors.New("subject not found")
	ErrNotAvailable       = errors.New("assessment is not open for attempts")
)

// ValidationError carries field-level detail for malformed input rejected
// before any state mutation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func newValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}
