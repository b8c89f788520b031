package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/notaflow/notaflow/internal/common"
	"github.com/notaflow/notaflow/internal/llm"
	"github.com/notaflow/notaflow/internal/model"
	"github.com/notaflow/notaflow/internal/service"
)

// PDFExtractor is the unstructured adapter: it pulls the text layer out of
// a DANFE PDF and asks an LLM to structure it. The model call is allowed to
// be nondeterministic; the output passes through the same sanitization as
// the structural path so both adapters converge on identical payload shape.
type PDFExtractor struct {
	client llm.Client
}

// NewPDFExtractor creates the unstructured PDF adapter.
func NewPDFExtractor(client llm.Client) *PDFExtractor {
	return &PDFExtractor{client: client}
}

// Extract reads the PDF text layer and structures it via the LLM client.
// Any collaborator failure is a terminal extraction error for this
// document; the core never retries beyond the transport-level attempts.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (*model.PayloadCandidate, error) {
	text, err := readTextLayer(path)
	if err != nil {
		return nil, common.NewExtractionError(path, err)
	}

	slog.Debug("PDF text layer extracted", "path", path, "chars", len(text))

	var resp llm.PayloadResponse
	retryErr := common.WithRetry(ctx, func() error {
		var callErr error
		resp, callErr = e.client.ExtractPayload(ctx, text)
		if callErr != nil {
			return &common.RetryableError{Err: callErr, Retryable: true}
		}
		return nil
	}, service.RetryOptions{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	})
	if retryErr != nil {
		return nil, common.NewExtractionError(path, fmt.Errorf("model-assisted structuring failed: %w", retryErr))
	}

	candidate := &model.PayloadCandidate{
		CFOP:          resp.CFOP,
		EmitterUF:     resp.EmitterUF,
		DestinationUF: resp.DestinationUF,
		TotalValue:    resp.TotalValue,
	}
	for _, item := range resp.Items {
		candidate.Items = append(candidate.Items, model.LineItemCandidate{
			Description: item.Description,
			NCM:         SanitizeNCM(item.NCM),
			Value:       item.Value,
		})
	}

	return candidate, nil
}

// readTextLayer extracts plain text from the PDF. A document without a text
// layer needs OCR, which is an external collaborator; here it is a terminal
// extraction error naming the problem.
func readTextLayer(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer func() { _ = f.Close() }()

	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract PDF text: %w", err)
	}

	raw, err := io.ReadAll(textReader)
	if err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}

	text := strings.TrimSpace(string(raw))
	if text == "" {
		return "", errors.New("PDF has no text layer (OCR required)")
	}

	return text, nil
}
