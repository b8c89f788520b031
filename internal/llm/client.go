// Package llm provides the model-assisted structuring clients used by the
// unstructured (PDF) extraction adapter.
package llm

import (
	"context"
)

// Client defines the interface for LLM providers.
type Client interface {
	// ExtractPayload turns raw document text into a structured payload
	// candidate. The call is nondeterministic; downstream sanitization and
	// validation make the pipeline deterministic from the candidate on.
	ExtractPayload(ctx context.Context, text string) (PayloadResponse, error)
}

// PayloadResponse is the structured result of an extraction call.
type PayloadResponse struct {
	CFOP          string         `json:"cfop"`
	EmitterUF     string         `json:"emitter_uf"`
	DestinationUF string         `json:"destination_uf"`
	TotalValue    float64        `json:"total_value"`
	Items         []ItemResponse `json:"items"`
}

// ItemResponse is one extracted product line.
type ItemResponse struct {
	Description string  `json:"description"`
	NCM         string  `json:"ncm"`
	Value       float64 `json:"value"`
}

// Config holds provider-agnostic client settings.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}
