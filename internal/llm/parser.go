package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// cleanMarkdownWrapper strips markdown code fences that models sometimes
// wrap around JSON despite instructions not to.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		if idx := strings.Index(content, "\n"); idx >= 0 {
			content = content[idx+1:]
		}
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}

	return strings.TrimSpace(content)
}

// parsePayloadResponse decodes the model's JSON answer into a
// PayloadResponse.
func parsePayloadResponse(content string) (PayloadResponse, error) {
	content = cleanMarkdownWrapper(content)

	var resp PayloadResponse
	if err := json.Unmarshal([]byte(content), &resp); err != nil {
		return PayloadResponse{}, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	if resp.CFOP == "" && resp.EmitterUF == "" && resp.DestinationUF == "" {
		return PayloadResponse{}, fmt.Errorf("no payload fields found in response")
	}

	return resp, nil
}
