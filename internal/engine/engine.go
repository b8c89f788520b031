// Package engine implements the classification engine that maps validated
// payloads to accounting entries.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/notaflow/notaflow/internal/common"
	"github.com/notaflow/notaflow/internal/model"
	"github.com/notaflow/notaflow/internal/service"
)

// DefaultConfidenceThreshold is the fixed cutoff for automatic acceptance.
// Decisions at or above it finalize without review; below it the workflow
// suspends for human input.
const DefaultConfidenceThreshold = 0.75

// Fallback scoring: a heuristic guess starts at the base and earns a bonus
// for each signal that narrows it down. The ceiling (0.65) stays below the
// acceptance threshold, so a mapping miss always goes to review.
const (
	fallbackBaseConfidence = 0.35
	fallbackPrefixBonus    = 0.15 // CFOP first digit determines operation direction
	fallbackRegimeBonus    = 0.15 // caller declared a tax regime
)

// Engine maps validated payloads to accounting decisions using the learned
// mapping store plus fallback heuristics. The store is an injected
// dependency; the engine holds no process-wide state.
type Engine struct {
	store service.Storage
}

// New creates a classification engine over the given learning store.
func New(store service.Storage) *Engine {
	return &Engine{store: store}
}

// Classify returns a scored decision for the payload. A direct hit on the
// learned mapping carries the stored confidence; a miss applies the
// first-digit fallback and always requires review.
func (e *Engine) Classify(ctx context.Context, payload *model.Payload, regime string) (*model.Classification, error) {
	regime = strings.ToLower(strings.TrimSpace(regime))

	record, err := e.store.GetMapping(ctx, payload.CFOP, regime)
	if err != nil && !errors.Is(err, common.ErrMappingNotFound) {
		return nil, &common.StoreError{Op: "lookup", Err: err}
	}

	nature := payload.Nature()
	result := &model.Classification{
		CFOP:   payload.CFOP,
		Nature: nature,
	}

	if record != nil {
		result.DebitAccount = record.DebitAccount
		result.CreditAccount = record.CreditAccount
		result.Confidence = record.Confidence
		result.Rationale = contextualize(record.Rationale, nature, payload.TotalValue)
		result.Source = model.SourceMapping
		if record.Confidence < DefaultConfidenceThreshold {
			result.NeedsReview = true
			result.ReviewReason = fmt.Sprintf("confidence below threshold (%.2f < %.2f) for CFOP %s",
				record.Confidence, DefaultConfidenceThreshold, payload.CFOP)
		}
	} else {
		debit, credit, rationale := fallbackAccounts(payload.CFOP)
		result.DebitAccount = debit
		result.CreditAccount = credit
		result.Confidence = fallbackConfidence(payload.CFOP, regime)
		result.Rationale = contextualize(rationale, nature, payload.TotalValue)
		result.Source = model.SourceFallback
		result.NeedsReview = true
		result.ReviewReason = fmt.Sprintf("unmapped operation code %s (regime=%s); fallback heuristic applied",
			payload.CFOP, orWildcard(regime))
	}

	slog.Info("Classification complete",
		"cfop", result.CFOP,
		"nature", result.Nature,
		"debit", result.DebitAccount,
		"credit", result.CreditAccount,
		"confidence", result.Confidence,
		"source", result.Source,
		"needs_review", result.NeedsReview)

	return result, nil
}

// FromReview builds the final decision from a resolved human review input.
// The human-declared pair and confidence are authoritative; no fallback
// heuristics apply.
func (e *Engine) FromReview(payload *model.Payload, review *model.ReviewInput) *model.Classification {
	nature := payload.Nature()
	return &model.Classification{
		CFOP:          payload.CFOP,
		Nature:        nature,
		DebitAccount:  review.DebitAccount,
		CreditAccount: review.CreditAccount,
		Rationale:     contextualize(review.Rationale, nature, payload.TotalValue),
		Confidence:    review.Confidence,
		NeedsReview:   false,
		Source:        model.SourceReview,
	}
}

// fallbackAccounts guesses an account pair from the CFOP first digit.
func fallbackAccounts(cfop string) (debit, credit, rationale string) {
	switch {
	case strings.HasPrefix(cfop, "1"), strings.HasPrefix(cfop, "2"):
		return "Estoques de Mercadorias", "Fornecedores",
			"Inbound (purchase) operation inferred from CFOP prefix 1/2."
	case strings.HasPrefix(cfop, "5"), strings.HasPrefix(cfop, "6"):
		return "Clientes", "Receita de Vendas",
			"Outbound (sale) operation inferred from CFOP prefix 5/6."
	default:
		return "Conta a Classificar (Débito)", "Conta a Classificar (Crédito)",
			"CFOP outside the known prefix ranges; detailed rules required."
	}
}

// fallbackConfidence scores a heuristic guess by its supporting signals.
func fallbackConfidence(cfop, regime string) float64 {
	confidence := fallbackBaseConfidence
	switch {
	case strings.HasPrefix(cfop, "1"), strings.HasPrefix(cfop, "2"),
		strings.HasPrefix(cfop, "5"), strings.HasPrefix(cfop, "6"):
		confidence += fallbackPrefixBonus
	}
	if regime != "" && regime != model.RegimeWildcard {
		confidence += fallbackRegimeBonus
	}
	return confidence
}

// contextualize appends operation nature and document total to a rationale.
func contextualize(base string, nature model.OperationNature, total float64) string {
	return fmt.Sprintf("%s Nature: %s. Document total: %.2f.", strings.TrimSpace(base), nature, total)
}

func orWildcard(regime string) string {
	if regime == "" {
		return model.RegimeWildcard
	}
	return regime
}
