// Package workflow drives a document through extraction, validation,
// classification and review as a strictly forward-progressing state
// machine. Run state is persisted at every transition so a suspended run
// survives process restarts.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/notaflow/notaflow/internal/common"
	"github.com/notaflow/notaflow/internal/model"
	"github.com/notaflow/notaflow/internal/service"
	"github.com/notaflow/notaflow/internal/validate"
)

// Workflow orchestrates single-document runs. Extractors are selected by
// document kind; the classifier and store are injected.
type Workflow struct {
	store      service.Storage
	extractors map[model.DocumentKind]service.Extractor
	classifier service.Classifier
}

// New creates a workflow over the given collaborators.
func New(store service.Storage, extractors map[model.DocumentKind]service.Extractor, classifier service.Classifier) *Workflow {
	return &Workflow{
		store:      store,
		extractors: extractors,
		classifier: classifier,
	}
}

// Run processes one document from raw bytes to a decision. It returns the
// run in its final (or suspended) state; the error is non-nil only when the
// run failed. A run suspended for review is not an error.
func (w *Workflow) Run(ctx context.Context, path string, kind model.DocumentKind, regime string) (*model.Run, error) {
	now := time.Now().UTC()
	run := &model.Run{
		ID:           uuid.NewString(),
		DocumentPath: path,
		Kind:         kind,
		Regime:       regime,
		Status:       model.StatusExtracting,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := w.store.SaveRun(ctx, run); err != nil {
		return run, &common.StoreError{Op: "save run", Err: err}
	}

	slog.Info("Run started", "run_id", run.ID, "path", path, "kind", kind)

	extractor, ok := w.extractors[kind]
	if !ok {
		return run, w.fail(ctx, run, fmt.Errorf("no extractor registered for document kind %q", kind))
	}

	candidate, err := extractor.Extract(ctx, path)
	if err != nil {
		return run, w.fail(ctx, run, err)
	}

	if err := w.transition(ctx, run, model.StatusValidating, "extraction complete"); err != nil {
		return run, err
	}

	payload, err := validate.Validate(candidate)
	if err != nil {
		return run, w.fail(ctx, run, err)
	}
	run.Payload = payload

	if err := w.transition(ctx, run, model.StatusClassifying, "payload validated"); err != nil {
		return run, err
	}

	result, err := w.classifier.Classify(ctx, payload, regime)
	if err != nil {
		return run, w.fail(ctx, run, err)
	}
	run.Result = result

	if result.NeedsReview {
		run.ReviewReason = result.ReviewReason
		if err := w.transition(ctx, run, model.StatusAwaitingReview, result.ReviewReason); err != nil {
			return run, err
		}
		slog.Info("Run suspended for review", "run_id", run.ID, "reason", result.ReviewReason)
		return run, nil
	}

	if err := w.transition(ctx, run, model.StatusFinalized, "auto-approved"); err != nil {
		return run, err
	}
	slog.Info("Run finalized", "run_id", run.ID, "confidence", result.Confidence)
	return run, nil
}

// Resume applies a human review decision to a suspended run. The mapping is
// persisted before the run finalizes: a decision that cannot be stored is
// never reported as learned, and the run stays suspended. A malformed review
// fails only the attempt; the run remains resumable.
func (w *Workflow) Resume(ctx context.Context, runID string, review *model.ReviewInput) (*model.Run, error) {
	run, err := w.store.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.Status != model.StatusAwaitingReview {
		return run, fmt.Errorf("%w: run %s is %s", common.ErrRunNotResumable, run.ID, run.Status)
	}

	review.Normalize()
	if review.Regime == "" {
		// Reviewer declared nothing; fall back to the regime hint from the
		// original submission, if any.
		review.Regime = run.Regime
		review.Normalize()
	}
	if problems := review.Problems(); len(problems) > 0 {
		return run, &common.ReviewInputError{Fields: problems}
	}

	record := &model.MappingRecord{
		CFOP:          run.Payload.CFOP,
		Regime:        review.StorableRegime(),
		DebitAccount:  review.DebitAccount,
		CreditAccount: review.CreditAccount,
		Rationale:     review.Rationale,
		Confidence:    review.Confidence,
		UpdatedAt:     time.Now().UTC(),
	}
	if err := w.store.SaveMapping(ctx, record); err != nil {
		return run, &common.StoreError{Op: "save mapping", Err: err}
	}

	slog.Info("Mapping learned", "cfop", record.CFOP, "regime", record.Regime,
		"debit", record.DebitAccount, "credit", record.CreditAccount)

	if err := w.transition(ctx, run, model.StatusReclassifying, "review received"); err != nil {
		return run, err
	}

	run.Review = review
	run.Result = w.classifier.FromReview(run.Payload, review)

	if err := w.transition(ctx, run, model.StatusFinalized, "review applied"); err != nil {
		return run, err
	}
	slog.Info("Run finalized after review", "run_id", run.ID)
	return run, nil
}

// transition advances the run to the next state, records the audit entry
// and persists.
func (w *Workflow) transition(ctx context.Context, run *model.Run, to model.RunStatus, note string) error {
	now := time.Now().UTC()
	run.Audit = append(run.Audit, model.StageTransition{
		From: run.Status,
		To:   to,
		Note: note,
		At:   now,
	})
	run.Status = to
	run.UpdatedAt = now
	if err := w.store.SaveRun(ctx, run); err != nil {
		return &common.StoreError{Op: "save run", Err: err}
	}
	return nil
}

// fail moves the run to FAILED with the causal error and returns that error.
func (w *Workflow) fail(ctx context.Context, run *model.Run, cause error) error {
	run.Error = cause.Error()
	if err := w.transition(ctx, run, model.StatusFailed, "run failed"); err != nil {
		slog.Error("Failed to persist failed run", "run_id", run.ID, "error", err)
	}
	slog.Error("Run failed", "run_id", run.ID, "error", cause)
	return cause
}
