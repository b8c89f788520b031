package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/notaflow/notaflow/internal/model"
)

// csvHeader is the interchange layout for mapping tables. Column names stay
// in Portuguese to match the spreadsheets accountants already maintain.
var csvHeader = []string{"cfop", "regime", "conta_debito", "conta_credito", "justificativa_base", "confianca"}

// ExportMappingsCSV writes every learned rule to w in the interchange layout.
func (s *SQLiteStorage) ExportMappingsCSV(ctx context.Context, w io.Writer) error {
	records, err := s.GetAllMappings(ctx)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, record := range records {
		row := []string{
			record.CFOP,
			record.Regime,
			record.DebitAccount,
			record.CreditAccount,
			record.Rationale,
			strconv.FormatFloat(record.Confidence, 'f', 2, 64),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ImportMappingsCSV upserts rules from r. Returns the number of rules
// imported. Rows with a malformed CFOP or confidence abort the import with
// an error naming the line.
func (s *SQLiteStorage) ImportMappingsCSV(ctx context.Context, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(csvHeader)

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("failed to read CSV header: %w", err)
	}
	if len(header) != len(csvHeader) || header[0] != "cfop" {
		return 0, fmt.Errorf("unexpected CSV header: %v", header)
	}

	imported := 0
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("failed to read CSV line %d: %w", line, err)
		}

		confidence, err := strconv.ParseFloat(row[5], 64)
		if err != nil {
			return imported, fmt.Errorf("line %d: invalid confidence %q: %w", line, row[5], err)
		}
		if len(row[0]) != 4 {
			return imported, fmt.Errorf("line %d: invalid CFOP %q", line, row[0])
		}
		regime := row[1]
		if regime == "" {
			regime = model.RegimeWildcard
		}
		if !model.ValidRegime(regime) {
			return imported, fmt.Errorf("line %d: invalid regime %q", line, row[1])
		}

		record := &model.MappingRecord{
			CFOP:          row[0],
			Regime:        regime,
			DebitAccount:  row[2],
			CreditAccount: row[3],
			Rationale:     row[4],
			Confidence:    confidence,
			UpdatedAt:     time.Now().UTC(),
		}
		if err := s.SaveMapping(ctx, record); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}
