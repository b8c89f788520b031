package model

// ClassificationSource indicates how an account pair was decided.
type ClassificationSource string

// Classification source constants.
const (
	SourceMapping  ClassificationSource = "MAPPING"  // direct hit on a learned CFOP mapping
	SourceFallback ClassificationSource = "FALLBACK" // heuristic best guess, always reviewed
	SourceReview   ClassificationSource = "REVIEW"   // human decision applied on resume
)

// OperationNature describes whether an operation crosses state lines.
type OperationNature string

// Operation nature constants.
const (
	NatureInternal   OperationNature = "interna"
	NatureInterstate OperationNature = "interestadual"
)

// Classification is the engine's decision for one document.
type Classification struct {
	CFOP          string               `json:"cfop"`
	Nature        OperationNature      `json:"nature"`
	DebitAccount  string               `json:"debit_account"`
	CreditAccount string               `json:"credit_account"`
	Rationale     string               `json:"rationale"`
	Confidence    float64              `json:"confidence"`
	NeedsReview   bool                 `json:"needs_review"`
	ReviewReason  string               `json:"review_reason,omitempty"`
	Source        ClassificationSource `json:"source"`
}
