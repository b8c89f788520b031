package extract

import (
	"strconv"
	"strings"
)

// SanitizeNCM returns the 8-digit product classification code, or empty when
// the raw value is malformed. A bad NCM is never propagated and never an
// error; the field is not required for classification.
func SanitizeNCM(raw string) string {
	ncm := strings.TrimSpace(raw)
	if len(ncm) != 8 {
		return ""
	}
	for _, r := range ncm {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return ncm
}

// ParseDecimal parses a monetary value in either pt-BR ("1.234,56") or
// plain ("1234.56") notation.
func ParseDecimal(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	return strconv.ParseFloat(s, 64)
}

// OnlyDigits strips every non-digit rune.
func OnlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
