package model

import (
	"fmt"
	"strings"
)

// RegimeIndeterminate is the "do not set" sentinel for the review regime
// field. Callers must strip it before constructing a ReviewInput; it is
// never a storable regime and never reaches the classification engine.
const RegimeIndeterminate = "indeterminado"

// ReviewInput carries a human reviewer's decision for a suspended run.
type ReviewInput struct {
	Regime        string  `json:"regime,omitempty"` // empty means undeclared, stored as wildcard
	DebitAccount  string  `json:"debit_account"`
	CreditAccount string  `json:"credit_account"`
	Rationale     string  `json:"rationale"`
	Confidence    float64 `json:"confidence"`
}

// Normalize lowercases the regime and collapses the indeterminate sentinel
// to empty so it can never be forwarded as a literal regime value.
func (r *ReviewInput) Normalize() {
	r.Regime = strings.ToLower(strings.TrimSpace(r.Regime))
	if r.Regime == RegimeIndeterminate {
		r.Regime = ""
	}
	r.DebitAccount = strings.TrimSpace(r.DebitAccount)
	r.CreditAccount = strings.TrimSpace(r.CreditAccount)
	r.Rationale = strings.TrimSpace(r.Rationale)
}

// Problems returns every malformed field, not just the first. An empty
// slice means the input is well-formed. Normalize must be called first.
func (r *ReviewInput) Problems() []string {
	var problems []string
	if r.Regime != "" && !ValidRegime(r.Regime) {
		problems = append(problems, fmt.Sprintf("regime: %q is not simples, presumido, real or empty", r.Regime))
	}
	if r.DebitAccount == "" {
		problems = append(problems, "debit_account: required")
	}
	if r.CreditAccount == "" {
		problems = append(problems, "credit_account: required")
	}
	if r.Rationale == "" {
		problems = append(problems, "rationale: required")
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		problems = append(problems, fmt.Sprintf("confidence: %.2f outside [0,1]", r.Confidence))
	}
	return problems
}

// StorableRegime returns the regime to persist: the declared one, or the
// wildcard when the reviewer declared none.
func (r *ReviewInput) StorableRegime() string {
	if r.Regime == "" {
		return RegimeWildcard
	}
	return r.Regime
}
