package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/notaflow/notaflow/internal/cli"
	"github.com/notaflow/notaflow/internal/model"
)

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect document runs",
	}
	cmd.AddCommand(runsListCmd())
	cmd.AddCommand(runsShowCmd())
	return cmd
}

func runsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs, optionally filtered by status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			statusFlag, _ := cmd.Flags().GetString("status")
			status := model.RunStatus(strings.ToUpper(strings.TrimSpace(statusFlag)))

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = store.Close() }()

			runs, err := store.ListRuns(ctx, status)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No runs found."))
				return nil
			}

			header := []string{"ID", "STATUS", "DOCUMENT", "UPDATED"}
			fmt.Println(cli.TableHeaderStyle.Render(strings.Join(header, "\t")))
			for _, run := range runs {
				row := fmt.Sprintf("%s\t%s\t%s\t%s",
					run.ID, run.Status, run.DocumentPath,
					run.UpdatedAt.Format("2006-01-02 15:04:05"))
				fmt.Println(cli.TableCellStyle.Render(row))
			}
			return nil
		},
	}
	cmd.Flags().String("status", "", "filter by status (e.g. AWAITING_REVIEW, FINALIZED, FAILED)")
	return cmd
}

func runsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the full state of one run, including its audit trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = store.Close() }()

			run, err := store.GetRun(ctx, args[0])
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(run)
		},
	}
}
