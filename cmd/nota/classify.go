// Package main contains the nota CLI commands.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/notaflow/notaflow/internal/cli"
	"github.com/notaflow/notaflow/internal/model"
	"github.com/notaflow/notaflow/internal/workflow"
)

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify <document>",
		Short: "Classify one fiscal document",
		Long: `Classify one fiscal document (NF-e XML or DANFE PDF) into a
debit/credit account pair.

Exit codes:
  0  classified and finalized
  1  the run failed
  2  suspended for human review (resume with 'nota resume')

Examples:
  nota classify nota.xml
  nota classify nota.xml --regime simples
  nota classify danfe.pdf --json`,
		Args: cobra.ExactArgs(1),
		RunE: runClassifySingle,
	}

	cmd.Flags().String("regime", "", "tax regime hint (simples, presumido, real)")
	cmd.Flags().String("kind", "", "document kind override (xml, pdf); default auto-detects from the extension")
	cmd.Flags().Bool("json", false, "print the run artifact as JSON")
	cmd.Flags().String("output", "", "also write the run artifact JSON to a file")

	return cmd
}

func runClassifySingle(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	path := args[0]

	regimeFlag, _ := cmd.Flags().GetString("regime")
	regime, err := normalizeRegime(regimeFlag)
	if err != nil {
		return err
	}

	kindFlag, _ := cmd.Flags().GetString("kind")
	var kind model.DocumentKind
	switch strings.ToLower(strings.TrimSpace(kindFlag)) {
	case "":
		kind, err = detectKind(path)
		if err != nil {
			return err
		}
	case "xml":
		kind = model.KindXML
	case "pdf":
		kind = model.KindPDF
	default:
		return fmt.Errorf("invalid kind %q (expected xml or pdf)", kindFlag)
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	wf := buildWorkflow(store)
	run, _ := wf.Run(ctx, path, kind, regime)
	artifact := workflow.ArtifactFor(run)

	if outPath, _ := cmd.Flags().GetString("output"); outPath != "" {
		if err := writeArtifactFile(outPath, artifact); err != nil {
			_ = store.Close()
			return err
		}
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	if err := printArtifact(artifact, asJSON); err != nil {
		_ = store.Close()
		return err
	}

	_ = store.Close()
	os.Exit(artifact.ExitCode())
	return nil
}

// writeArtifactFile persists the artifact JSON for downstream tooling.
func writeArtifactFile(path string, artifact *workflow.Artifact) error {
	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("failed to write artifact file: %w", err)
	}
	return nil
}

// printArtifact writes the artifact to stdout, either as JSON or as a
// styled summary.
func printArtifact(artifact *workflow.Artifact, asJSON bool) error {
	if asJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(artifact)
	}

	switch {
	case artifact.Success:
		fmt.Println(cli.FormatSuccess(fmt.Sprintf("Classified: %s → debit %q / credit %q (confidence %.2f)",
			artifact.Classification.CFOP,
			artifact.Classification.DebitAccount,
			artifact.Classification.CreditAccount,
			artifact.Classification.Confidence)))
	case artifact.NeedsReview:
		fmt.Println(cli.FormatWarning(fmt.Sprintf("Needs review: %s", artifact.ReviewReason)))
		fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf("  suggested: debit %q / credit %q (confidence %.2f)",
			artifact.Classification.DebitAccount,
			artifact.Classification.CreditAccount,
			artifact.Classification.Confidence)))
		fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf("  resume with: nota resume %s --debit ... --credit ... --rationale ... --confidence ...", artifact.RunID)))
	default:
		fmt.Println(cli.FormatError(artifact.Error))
	}
	return nil
}
