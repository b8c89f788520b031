package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/notaflow/notaflow/internal/common"
	"github.com/notaflow/notaflow/internal/model"
)

// SaveRun upserts the full run state as JSON. Status is duplicated into its
// own column so suspended runs can be listed without decoding every row.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run *model.Run) error {
	if run == nil {
		return fmt.Errorf("run cannot be nil")
	}
	state, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run state: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, status, document_path, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			state = excluded.state,
			updated_at = excluded.updated_at`,
		run.ID, string(run.Status), run.DocumentPath, string(state),
		run.CreatedAt, run.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// GetRun loads one run by ID. Returns common.ErrRunNotFound when absent.
func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (*model.Run, error) {
	var state string
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM runs WHERE id = ?`, id).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var run model.Run
	if err := json.Unmarshal([]byte(state), &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run state: %w", err)
	}
	return &run, nil
}

// ListRuns returns runs filtered by status, newest first. An empty status
// returns everything.
func (s *SQLiteStorage) ListRuns(ctx context.Context, status model.RunStatus) ([]model.Run, error) {
	query := `SELECT state FROM runs ORDER BY updated_at DESC`
	args := []any{}
	if status != "" {
		query = `SELECT state FROM runs WHERE status = ? ORDER BY updated_at DESC`
		args = append(args, string(status))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []model.Run
	for rows.Next() {
		var state string
		if err := rows.Scan(&state); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		var run model.Run
		if err := json.Unmarshal([]byte(state), &run); err != nil {
			return nil, fmt.Errorf("failed to unmarshal run state: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
