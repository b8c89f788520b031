package workflow

import "github.com/notaflow/notaflow/internal/model"

// Process exit codes. Callers driving runs from scripts distinguish a run
// that needs human attention from one that failed outright.
const (
	ExitSuccess       = 0
	ExitFailure       = 1
	ExitPendingReview = 2
)

// Artifact is the caller-facing summary of a run, suitable for JSON output.
type Artifact struct {
	RunID          string                `json:"run_id"`
	Success        bool                  `json:"success"`
	NeedsReview    bool                  `json:"needs_review"`
	ReviewReason   string                `json:"review_reason,omitempty"`
	Classification *model.Classification `json:"classification,omitempty"`
	Payload        *model.Payload        `json:"payload,omitempty"`
	Error          string                `json:"error,omitempty"`
}

// ArtifactFor summarizes a run's terminal (or suspended) state.
func ArtifactFor(run *model.Run) *Artifact {
	a := &Artifact{
		RunID:   run.ID,
		Payload: run.Payload,
	}
	switch run.Status {
	case model.StatusFinalized:
		a.Success = true
		a.Classification = run.Result
	case model.StatusAwaitingReview:
		a.NeedsReview = true
		a.ReviewReason = run.ReviewReason
		a.Classification = run.Result
	default:
		a.Error = run.Error
	}
	return a
}

// ExitCode maps the artifact to the process exit convention.
func (a *Artifact) ExitCode() int {
	switch {
	case a.Success:
		return ExitSuccess
	case a.NeedsReview:
		return ExitPendingReview
	default:
		return ExitFailure
	}
}
