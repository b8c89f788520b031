package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/notaflow/notaflow/internal/model"
	"github.com/notaflow/notaflow/internal/workflow"
)

func resumeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume <run-id>",
		Short: "Resume a run suspended for review",
		Long: `Apply a human review decision to a suspended run. The decision is
persisted to the learning store before the run finalizes, so the same
operation code never needs review again.

Examples:
  nota resume 4f7c... --debit "Clientes" --credit "Receita de Serviços" \
    --rationale "Outra saída classificada como serviço" --confidence 0.95
  nota resume 4f7c... --debit "Clientes" --credit "Receita de Vendas" \
    --rationale "Venda" --confidence 0.9 --regime indeterminado`,
		Args: cobra.ExactArgs(1),
		RunE: runResume,
	}

	cmd.Flags().String("debit", "", "debit account (required)")
	cmd.Flags().String("credit", "", "credit account (required)")
	cmd.Flags().String("rationale", "", "justification for the decision (required)")
	cmd.Flags().Float64("confidence", 0, "confidence in [0,1] (required)")
	cmd.Flags().String("regime", "", "tax regime the decision applies to (empty or 'indeterminado' stores the wildcard)")
	cmd.Flags().Bool("json", false, "print the run artifact as JSON")

	_ = cmd.MarkFlagRequired("debit")
	_ = cmd.MarkFlagRequired("credit")
	_ = cmd.MarkFlagRequired("rationale")
	_ = cmd.MarkFlagRequired("confidence")

	return cmd
}

func runResume(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	runID := args[0]

	debit, _ := cmd.Flags().GetString("debit")
	credit, _ := cmd.Flags().GetString("credit")
	rationale, _ := cmd.Flags().GetString("rationale")
	confidence, _ := cmd.Flags().GetFloat64("confidence")
	regime, _ := cmd.Flags().GetString("regime")

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	wf := buildWorkflow(store)
	run, err := wf.Resume(ctx, runID, &model.ReviewInput{
		Regime:        regime,
		DebitAccount:  debit,
		CreditAccount: credit,
		Rationale:     rationale,
		Confidence:    confidence,
	})
	if err != nil {
		return err
	}

	artifact := workflow.ArtifactFor(run)
	asJSON, _ := cmd.Flags().GetBool("json")
	if err := printArtifact(artifact, asJSON); err != nil {
		return err
	}
	if code := artifact.ExitCode(); code != 0 {
		_ = store.Close()
		os.Exit(code)
	}
	return nil
}
