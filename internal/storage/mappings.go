package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/notaflow/notaflow/internal/common"
	"github.com/notaflow/notaflow/internal/model"
)

// GetMapping looks up the learned rule for (cfop, regime). An exact regime
// match wins; the wildcard record is the fallback. Returns
// common.ErrMappingNotFound when neither exists.
func (s *SQLiteStorage) GetMapping(ctx context.Context, cfop, regime string) (*model.MappingRecord, error) {
	if regime != "" && regime != model.RegimeWildcard {
		record, err := s.getMappingExact(ctx, cfop, regime)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, common.ErrMappingNotFound) {
			return nil, err
		}
	}
	return s.getMappingExact(ctx, cfop, model.RegimeWildcard)
}

func (s *SQLiteStorage) getMappingExact(ctx context.Context, cfop, regime string) (*model.MappingRecord, error) {
	var record model.MappingRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT cfop, regime, debit_account, credit_account, rationale, confidence, updated_at
		FROM mappings
		WHERE cfop = ? AND regime = ?`, cfop, regime).Scan(
		&record.CFOP, &record.Regime, &record.DebitAccount, &record.CreditAccount,
		&record.Rationale, &record.Confidence, &record.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrMappingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mapping: %w", err)
	}
	return &record, nil
}

// SaveMapping upserts a learned rule. The last decision for a (cfop, regime)
// key always wins.
func (s *SQLiteStorage) SaveMapping(ctx context.Context, record *model.MappingRecord) error {
	if record == nil {
		return fmt.Errorf("mapping record cannot be nil")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mappings (cfop, regime, debit_account, credit_account, rationale, confidence, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(cfop, regime) DO UPDATE SET
			debit_account = excluded.debit_account,
			credit_account = excluded.credit_account,
			rationale = excluded.rationale,
			confidence = excluded.confidence,
			updated_at = excluded.updated_at`,
		record.CFOP, record.Regime, record.DebitAccount, record.CreditAccount,
		record.Rationale, record.Confidence, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save mapping: %w", err)
	}
	return nil
}

// GetAllMappings returns every learned rule ordered by CFOP then regime.
func (s *SQLiteStorage) GetAllMappings(ctx context.Context) ([]model.MappingRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cfop, regime, debit_account, credit_account, rationale, confidence, updated_at
		FROM mappings
		ORDER BY cfop, regime`)
	if err != nil {
		return nil, fmt.Errorf("failed to query mappings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.MappingRecord
	for rows.Next() {
		var record model.MappingRecord
		if err := rows.Scan(&record.CFOP, &record.Regime, &record.DebitAccount,
			&record.CreditAccount, &record.Rationale, &record.Confidence, &record.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan mapping: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// DeleteMapping removes the rule for (cfop, regime) if it exists.
func (s *SQLiteStorage) DeleteMapping(ctx context.Context, cfop, regime string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM mappings WHERE cfop = ? AND regime = ?`, cfop, regime)
	if err != nil {
		return fmt.Errorf("failed to delete mapping: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return common.ErrMappingNotFound
	}
	return nil
}
