// Package validate enforces the canonical payload invariants before a
// document may enter classification.
package validate

import (
	"fmt"
	"strings"

	"github.com/notaflow/notaflow/internal/common"
	"github.com/notaflow/notaflow/internal/extract"
	"github.com/notaflow/notaflow/internal/model"
)

// Validate checks a payload candidate against the canonical schema and
// returns a validated payload. It is pure and total: it never panics on
// data shape and always reports the complete set of offending fields.
func Validate(candidate *model.PayloadCandidate) (*model.Payload, error) {
	if candidate == nil {
		return nil, &common.ValidationError{Fields: []string{"payload: missing"}}
	}

	var fields []string

	cfop := strings.TrimSpace(candidate.CFOP)
	switch {
	case cfop == "":
		fields = append(fields, "cfop: required")
	case !allDigits(cfop):
		fields = append(fields, fmt.Sprintf("cfop: %q contains non-digit characters", cfop))
	case len(cfop) != 4:
		fields = append(fields, fmt.Sprintf("cfop: %q must be exactly 4 digits", cfop))
	}

	emitterUF, ok := normalizeUF(candidate.EmitterUF)
	if !ok {
		fields = append(fields, "emitter_uf: required")
	}
	destUF, ok := normalizeUF(candidate.DestinationUF)
	if !ok {
		fields = append(fields, "destination_uf: required")
	}

	if candidate.TotalValue < 0 {
		fields = append(fields, fmt.Sprintf("total_value: %.2f is negative", candidate.TotalValue))
	}

	items := make([]model.LineItem, 0, len(candidate.Items))
	for i, item := range candidate.Items {
		desc := strings.TrimSpace(item.Description)
		if desc == "" {
			fields = append(fields, fmt.Sprintf("items[%d].description: required", i))
		}
		if item.Value < 0 {
			fields = append(fields, fmt.Sprintf("items[%d].value: %.2f is negative", i, item.Value))
		}
		items = append(items, model.LineItem{
			Description: desc,
			NCM:         extract.SanitizeNCM(item.NCM), // malformed collapses to absent, never an error
			Value:       item.Value,
		})
	}

	if len(fields) > 0 {
		return nil, &common.ValidationError{Fields: fields}
	}

	return &model.Payload{
		CFOP:          cfop,
		EmitterUF:     emitterUF,
		DestinationUF: destUF,
		TotalValue:    candidate.TotalValue,
		Items:         items,
	}, nil
}

// normalizeUF maps a raw region token into the closed enumeration, falling
// back to UFOther for unknown non-empty tokens. A missing token is an error
// at the caller.
func normalizeUF(raw string) (model.UF, bool) {
	token := model.UF(strings.ToUpper(strings.TrimSpace(raw)))
	if token == "" {
		return "", false
	}
	if token.IsValid() {
		return token, true
	}
	return model.UFOther, true
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
