// Package model defines the core domain models used throughout the application.
package model

// UF is a Brazilian state code as found on a fiscal document.
type UF string

// UFOther is the catch-all for region tokens outside the closed enumeration
// (foreign operations, free-form PDF extractions, and so on).
const UFOther UF = "OTHER"

var validUFs = map[UF]bool{
	"AC": true, "AL": true, "AP": true, "AM": true, "BA": true, "CE": true,
	"DF": true, "ES": true, "GO": true, "MA": true, "MT": true, "MS": true,
	"MG": true, "PA": true, "PB": true, "PR": true, "PE": true, "PI": true,
	"RJ": true, "RN": true, "RS": true, "RO": true, "RR": true, "SC": true,
	"SP": true, "SE": true, "TO": true,
}

// IsValid reports whether the UF belongs to the closed enumeration.
// UFOther is valid by definition.
func (u UF) IsValid() bool {
	return u == UFOther || validUFs[u]
}

// LineItem is one product line of a fiscal document.
type LineItem struct {
	Description string  `json:"description"`
	NCM         string  `json:"ncm,omitempty"` // 8-digit product classification code, empty when absent
	Value       float64 `json:"value"`
}

// Payload is the canonical, validated representation of one fiscal document.
// Every producer (XML adapter, PDF adapter) converges on this shape before
// classification.
type Payload struct {
	CFOP          string     `json:"cfop"` // exactly 4 digits after validation
	EmitterUF     UF         `json:"emitter_uf"`
	DestinationUF UF         `json:"destination_uf"`
	TotalValue    float64    `json:"total_value"`
	Items         []LineItem `json:"items"`
}

// Nature describes the jurisdiction relationship of an operation.
func (p *Payload) Nature() OperationNature {
	if p.EmitterUF == p.DestinationUF {
		return NatureInternal
	}
	return NatureInterstate
}

// PayloadCandidate is the pre-validation shape produced by extraction
// adapters. Fields are raw: the validator normalizes and rejects.
type PayloadCandidate struct {
	CFOP          string
	EmitterUF     string
	DestinationUF string
	TotalValue    float64
	Items         []LineItemCandidate
}

// LineItemCandidate is one unvalidated product line.
type LineItemCandidate struct {
	Description string
	NCM         string
	Value       float64
}
