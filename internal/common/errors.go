// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
	"strings"
)

// Common application errors.
var (
	// ErrRunNotFound indicates a run ID with no persisted state.
	ErrRunNotFound = errors.New("run not found")
	// ErrMappingNotFound indicates a CFOP with no learned mapping.
	ErrMappingNotFound = errors.New("mapping not found")
	// ErrRunNotResumable indicates a resume call against a run that is not
	// suspended for review.
	ErrRunNotResumable = errors.New("run is not awaiting review")
)

// ExtractionError indicates the document was unreadable or a required
// structure was missing. Terminal for the run; the core never retries.
type ExtractionError struct {
	Err  error
	Path string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// NewExtractionError wraps err as a terminal extraction failure.
func NewExtractionError(path string, err error) error {
	return &ExtractionError{Path: path, Err: err}
}

// ValidationError carries the complete set of offending fields, never just
// the first.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("payload validation failed: %s", strings.Join(e.Fields, "; "))
}

// ReviewInputError indicates malformed human review input. Terminal for that
// resume attempt; the caller must re-prompt.
type ReviewInputError struct {
	Fields []string
}

func (e *ReviewInputError) Error() string {
	return fmt.Sprintf("review input invalid: %s", strings.Join(e.Fields, "; "))
}

// StoreError indicates the persistence layer failed. A decision that cannot
// be persisted must never be reported as successfully learned.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("learning store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
