package model

import "time"

// DocumentKind selects the extraction adapter for a run.
type DocumentKind string

// Document kind constants.
const (
	KindXML DocumentKind = "xml" // structural NF-e XML
	KindPDF DocumentKind = "pdf" // unstructured, text/OCR plus model-assisted structuring
)

// RunStatus is a workflow state. The machine is strictly forward-progressing:
// no state is re-entered after being left.
type RunStatus string

// Workflow states.
const (
	StatusExtracting     RunStatus = "EXTRACTING"
	StatusValidating     RunStatus = "VALIDATING"
	StatusClassifying    RunStatus = "CLASSIFYING"
	StatusAwaitingReview RunStatus = "AWAITING_REVIEW"
	StatusReclassifying  RunStatus = "RECLASSIFYING"
	StatusFinalized      RunStatus = "FINALIZED"
	StatusFailed         RunStatus = "FAILED"
)

// Terminal reports whether no further transition can occur.
func (s RunStatus) Terminal() bool {
	return s == StatusFinalized || s == StatusFailed
}

// StageTransition is one audit log entry for a run.
type StageTransition struct {
	From RunStatus `json:"from"`
	To   RunStatus `json:"to"`
	Note string    `json:"note,omitempty"`
	At   time.Time `json:"at"`
}

// Run is the shared state threaded through the workflow for one document's
// processing lifetime. It is created once at workflow entry, mutated in
// place by each stage, never shared across documents, and persisted across
// the review suspension boundary.
type Run struct {
	ID           string            `json:"id"`
	DocumentPath string            `json:"document_path"`
	Kind         DocumentKind      `json:"kind"`
	Regime       string            `json:"regime,omitempty"` // externally supplied tax-regime hint
	Status       RunStatus         `json:"status"`
	Payload      *Payload          `json:"payload,omitempty"`
	Result       *Classification   `json:"result,omitempty"`
	ReviewReason string            `json:"review_reason,omitempty"`
	Review       *ReviewInput      `json:"review,omitempty"`
	Error        string            `json:"error,omitempty"`
	Audit        []StageTransition `json:"audit"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}
