package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/notaflow/notaflow/internal/cli"
	"github.com/notaflow/notaflow/internal/model"
)

func mappingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "Manage the learned CFOP mapping table",
	}

	cmd.AddCommand(mappingsListCmd())
	cmd.AddCommand(mappingsAddCmd())
	cmd.AddCommand(mappingsDeleteCmd())
	cmd.AddCommand(mappingsExportCmd())
	cmd.AddCommand(mappingsImportCmd())

	return cmd
}

func mappingsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all learned mappings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = store.Close() }()

			records, err := store.GetAllMappings(ctx)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No mappings learned yet."))
				return nil
			}

			header := []string{"CFOP", "REGIME", "DEBIT", "CREDIT", "CONF"}
			fmt.Println(cli.TableHeaderStyle.Render(strings.Join(header, "\t")))
			for _, record := range records {
				row := fmt.Sprintf("%s\t%s\t%s\t%s\t%.2f",
					record.CFOP, record.Regime, record.DebitAccount,
					record.CreditAccount, record.Confidence)
				fmt.Println(cli.TableCellStyle.Render(row))
			}
			return nil
		},
	}
}

func mappingsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <cfop>",
		Short: "Add or overwrite a mapping by hand",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfop := strings.TrimSpace(args[0])
			if len(cfop) != 4 {
				return fmt.Errorf("invalid CFOP %q (expected 4 digits)", cfop)
			}

			debit, _ := cmd.Flags().GetString("debit")
			credit, _ := cmd.Flags().GetString("credit")
			rationale, _ := cmd.Flags().GetString("rationale")
			confidence, _ := cmd.Flags().GetFloat64("confidence")
			regimeFlag, _ := cmd.Flags().GetString("regime")

			regime, err := normalizeRegime(regimeFlag)
			if err != nil {
				return err
			}
			if regime == "" {
				regime = model.RegimeWildcard
			}
			if confidence < 0 || confidence > 1 {
				return fmt.Errorf("confidence %.2f outside [0,1]", confidence)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = store.Close() }()

			record := &model.MappingRecord{
				CFOP:          cfop,
				Regime:        regime,
				DebitAccount:  debit,
				CreditAccount: credit,
				Rationale:     rationale,
				Confidence:    confidence,
				UpdatedAt:     time.Now().UTC(),
			}
			if err := store.SaveMapping(ctx, record); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Saved mapping %s (%s)", cfop, regime)))
			return nil
		},
	}

	cmd.Flags().String("debit", "", "debit account (required)")
	cmd.Flags().String("credit", "", "credit account (required)")
	cmd.Flags().String("rationale", "", "justification (required)")
	cmd.Flags().Float64("confidence", 0.9, "confidence in [0,1]")
	cmd.Flags().String("regime", "", "tax regime the rule applies to (empty stores the wildcard)")
	_ = cmd.MarkFlagRequired("debit")
	_ = cmd.MarkFlagRequired("credit")
	_ = cmd.MarkFlagRequired("rationale")

	return cmd
}

func mappingsDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <cfop>",
		Short: "Delete a mapping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			regimeFlag, _ := cmd.Flags().GetString("regime")
			regime, err := normalizeRegime(regimeFlag)
			if err != nil {
				return err
			}
			if regime == "" {
				regime = model.RegimeWildcard
			}

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteMapping(ctx, args[0], regime); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted mapping %s (%s)", args[0], regime)))
			return nil
		},
	}
	cmd.Flags().String("regime", "", "tax regime of the rule to delete (empty targets the wildcard)")
	return cmd
}

func mappingsExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Export mappings as CSV (stdout when no file given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = store.Close() }()

			out := os.Stdout
			if len(args) == 1 {
				f, err := os.Create(args[0])
				if err != nil {
					return fmt.Errorf("failed to create export file: %w", err)
				}
				defer func() { _ = f.Close() }()
				out = f
			}
			return store.ExportMappingsCSV(ctx, out)
		},
	}
}

func mappingsImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import mappings from CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open import file: %w", err)
			}
			defer func() { _ = f.Close() }()

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = store.Close() }()

			n, err := store.ImportMappingsCSV(ctx, f)
			if err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Imported %d mappings", n)))
			return nil
		},
	}
}
