package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/studystack/campusrag/internal/progress"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Index all documents in the data directory",
	Long: `Loads every supported document from the data directory, splits it into
chunks, embeds them and commits them to the vector index. Documents whose
content is unchanged since the last run are skipped unless --force is given.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().Bool("force", false, "reindex documents even when their content is unchanged")
	seedCmd.Flags().Int("concurrency", 0, "max parallel documents (overrides config)")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	force, _ := cmd.Flags().GetBool("force")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if concurrency, _ := cmd.Flags().GetInt("concurrency"); concurrency > 0 {
		cfg.MaxConcurrency = concurrency
	}

	eng, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	loader := newLoader(cfg)
	inputs, err := loader.Load()
	if err != nil {
		return fmt.Errorf("loading corpus from %s: %w", cfg.DataDir, err)
	}
	if len(inputs) == 0 {
		fmt.Printf("No documents found in %s. Add files and run `campusrag seed` again.\n", cfg.DataDir)
		return nil
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Indexing %d documents from %s...\n", len(inputs), cfg.DataDir)
	}

	reporter := progress.NewReporter()
	reporter.Start(len(inputs))
	summary := eng.pipeline.ReindexAll(ctx, inputs, force, reporter.Document)
	reporter.Finish()

	fmt.Printf("Indexed %d documents in %s: %d succeeded, %d failed, %d skipped\n",
		summary.Total, summary.Duration().Round(time.Millisecond), summary.Succeeded, summary.Failed, summary.Skipped)

	if summary.Failed > 0 {
		for _, status := range summary.Statuses {
			if status.Failed() {
				fmt.Fprintf(os.Stderr, "  failed %s (%s): %v\n", status.SourcePath, status.FailedStage, status.Err)
			}
		}
		return fmt.Errorf("%d documents failed to index", summary.Failed)
	}
	return nil
}
