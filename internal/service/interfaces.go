// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/notaflow/notaflow/internal/model"
)

// Storage defines the contract for the persistence layer: the learning store
// (CFOP mappings) and durable run state. Mappings are process-wide persisted
// state; a completed SaveMapping must be visible to every subsequent
// GetMapping, including from a different document's run.
type Storage interface {
	// Mapping operations (the learning store)
	GetMapping(ctx context.Context, cfop, regime string) (*model.MappingRecord, error)
	SaveMapping(ctx context.Context, record *model.MappingRecord) error
	GetAllMappings(ctx context.Context) ([]model.MappingRecord, error)
	DeleteMapping(ctx context.Context, cfop, regime string) error

	// Run operations (durable state across the review suspension boundary)
	SaveRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, status model.RunStatus) ([]model.Run, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// Extractor turns a raw document into a payload candidate or a structured
// failure. One implementation per document kind; callers select by kind,
// not by runtime type inspection.
type Extractor interface {
	Extract(ctx context.Context, path string) (*model.PayloadCandidate, error)
}

// Classifier maps a validated payload to an accounting decision.
type Classifier interface {
	Classify(ctx context.Context, payload *model.Payload, regime string) (*model.Classification, error)
	FromReview(payload *model.Payload, review *model.ReviewInput) *model.Classification
}

// RetryOptions configures retry behavior for collaborator calls.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
