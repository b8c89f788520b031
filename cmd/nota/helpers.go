package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/notaflow/notaflow/internal/config"
	"github.com/notaflow/notaflow/internal/engine"
	"github.com/notaflow/notaflow/internal/extract"
	"github.com/notaflow/notaflow/internal/llm"
	"github.com/notaflow/notaflow/internal/model"
	"github.com/notaflow/notaflow/internal/service"
	"github.com/notaflow/notaflow/internal/storage"
	"github.com/notaflow/notaflow/internal/workflow"
)

// initStorage initializes the storage service with proper path expansion.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/nota/nota.db"
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// buildExtractors registers one extraction adapter per document kind. The
// PDF adapter needs a configured LLM provider; it is registered only when
// one is available so XML-only setups work without an API key.
func buildExtractors() map[model.DocumentKind]service.Extractor {
	extractors := map[model.DocumentKind]service.Extractor{
		model.KindXML: extract.NewXMLExtractor(),
	}

	client, err := llm.NewClient(config.LoadLLMConfig())
	if err == nil {
		extractors[model.KindPDF] = extract.NewPDFExtractor(client)
	} else {
		slog.Debug("PDF adapter not registered", "reason", err)
	}

	return extractors
}

// buildWorkflow wires storage, extractors and the classification engine.
func buildWorkflow(store *storage.SQLiteStorage) *workflow.Workflow {
	return workflow.New(store, buildExtractors(), engine.New(store))
}

// detectKind picks the extraction adapter from the file extension.
func detectKind(path string) (model.DocumentKind, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return model.KindXML, nil
	case ".pdf":
		return model.KindPDF, nil
	default:
		return "", fmt.Errorf("unsupported document type %q (expected .xml or .pdf)", filepath.Ext(path))
	}
}

// normalizeRegime lowercases a --regime flag value and drops the
// indeterminate sentinel.
func normalizeRegime(regime string) (string, error) {
	regime = strings.ToLower(strings.TrimSpace(regime))
	if regime == model.RegimeIndeterminate {
		return "", nil
	}
	if regime != "" && !model.ValidRegime(regime) {
		return "", fmt.Errorf("invalid regime %q (expected simples, presumido or real)", regime)
	}
	return regime, nil
}
