package model

import "time"

// RegimeWildcard matches any tax regime when looking up a mapping.
const RegimeWildcard = "*"

// Known tax regimes. The wildcard is stored when the reviewer declared none.
const (
	RegimeSimples   = "simples"
	RegimePresumido = "presumido"
	RegimeReal      = "real"
)

// ValidRegime reports whether s is a storable regime value.
func ValidRegime(s string) bool {
	switch s {
	case RegimeSimples, RegimePresumido, RegimeReal, RegimeWildcard:
		return true
	}
	return false
}

// MappingRecord is one learned CFOP→account-pair rule. Records are keyed by
// (CFOP, Regime); an upsert overwrites the prior record for that key, so the
// last human decision always wins.
type MappingRecord struct {
	CFOP          string    `json:"cfop"`
	Regime        string    `json:"regime"`
	DebitAccount  string    `json:"debit_account"`
	CreditAccount string    `json:"credit_account"`
	Rationale     string    `json:"rationale"`
	Confidence    float64   `json:"confidence"`
	UpdatedAt     time.Time `json:"updated_at"`
}
