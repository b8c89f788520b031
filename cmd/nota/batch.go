package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/notaflow/notaflow/internal/cli"
	"github.com/notaflow/notaflow/internal/workflow"
)

func batchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <directory>",
		Short: "Classify every fiscal document in a directory",
		Long: `Classify every .xml and .pdf document in a directory. Documents are
processed concurrently; each gets its own run, so documents suspended for
review can be resumed individually afterwards.

The exit code is 1 if any run failed, otherwise 2 if any run is awaiting
review, otherwise 0.`,
		Args: cobra.ExactArgs(1),
		RunE: runBatch,
	}

	cmd.Flags().String("regime", "", "tax regime hint applied to every document")
	cmd.Flags().Int("workers", 4, "number of documents processed concurrently")

	return cmd
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dir := args[0]

	regimeFlag, _ := cmd.Flags().GetString("regime")
	regime, err := normalizeRegime(regimeFlag)
	if err != nil {
		return err
	}
	workers, _ := cmd.Flags().GetInt("workers")
	if workers < 1 {
		workers = 1
	}

	paths, err := collectDocuments(dir)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no .xml or .pdf documents found in %s", dir)
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	wf := buildWorkflow(store)

	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetDescription("Classifying documents"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	var mu sync.Mutex
	var finalized, pending, failed int
	var pendingRuns []*workflow.Artifact

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, path := range paths {
		path := path
		g.Go(func() error {
			kind, kindErr := detectKind(path)
			var artifact *workflow.Artifact
			if kindErr != nil {
				artifact = &workflow.Artifact{Error: kindErr.Error()}
			} else {
				run, _ := wf.Run(gctx, path, kind, regime)
				artifact = workflow.ArtifactFor(run)
			}

			mu.Lock()
			switch {
			case artifact.Success:
				finalized++
			case artifact.NeedsReview:
				pending++
				pendingRuns = append(pendingRuns, artifact)
			default:
				failed++
			}
			mu.Unlock()
			_ = bar.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	_ = bar.Finish()

	fmt.Println(cli.BoldStyle.Render(fmt.Sprintf("Processed %d documents", len(paths))))
	fmt.Println(cli.FormatSuccess(fmt.Sprintf("%d finalized", finalized)))
	if pending > 0 {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("%d awaiting review", pending)))
		for _, artifact := range pendingRuns {
			fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf("  nota resume %s  # %s", artifact.RunID, artifact.ReviewReason)))
		}
	}
	if failed > 0 {
		fmt.Println(cli.FormatError(fmt.Sprintf("%d failed (see 'nota runs list --status FAILED')", failed)))
	}

	switch {
	case failed > 0:
		_ = store.Close()
		os.Exit(workflow.ExitFailure)
	case pending > 0:
		_ = store.Close()
		os.Exit(workflow.ExitPendingReview)
	}
	return nil
}

// collectDocuments returns the classifiable files in dir, sorted for
// deterministic ordering.
func collectDocuments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, err := detectKind(entry.Name()); err == nil {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}
