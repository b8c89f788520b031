package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/notaflow/notaflow/internal/common"
	"github.com/notaflow/notaflow/internal/llm"
)

// failingClient always errors; the adapter must give up after its retry
// budget and report a terminal extraction error.
type failingClient struct {
	calls int
}

func (c *failingClient) ExtractPayload(_ context.Context, _ string) (llm.PayloadResponse, error) {
	c.calls++
	return llm.PayloadResponse{}, errors.New("model unavailable")
}

func TestPDFExtractMissingFile(t *testing.T) {
	extractor := NewPDFExtractor(&failingClient{})
	_, err := extractor.Extract(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))

	var extErr *common.ExtractionError
	require.ErrorAs(t, err, &extErr)
}

func TestPDFExtractGarbageFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf at all"), 0600))

	client := &failingClient{}
	extractor := NewPDFExtractor(client)
	_, err := extractor.Extract(context.Background(), path)

	var extErr *common.ExtractionError
	require.ErrorAs(t, err, &extErr)
	// The text layer never materialized, so the model was never called.
	require.Zero(t, client.calls)
}
