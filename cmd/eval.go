package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/studystack/campusrag/internal/evaluate"
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate retrieval quality against a labeled sample set",
	Long: `Runs every query in a YAML sample file against the index and reports
Recall@K, mean reciprocal rank, keyword coverage and latency. Exits
non-zero when the run falls below the quality bar.`,
	RunE: runEval,
}

func init() {
	evalCmd.Flags().String("samples", "eval_samples.yml", "path to the YAML evaluation samples")
	rootCmd.AddCommand(evalCmd)
}

func runEval(cmd *cobra.Command, args []string) error {
	samplesPath, _ := cmd.Flags().GetString("samples")

	samples, err := evaluate.LoadSamples(samplesPath)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	eng, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	if eng.store.Count() == 0 {
		return fmt.Errorf("the index is empty; run `campusrag seed` first")
	}

	report, err := evaluate.New(eng.retriever).Run(context.Background(), samples)
	if err != nil {
		return err
	}

	fmt.Print(report.Format())

	if !report.Passed() {
		return fmt.Errorf("evaluation failed: quality below threshold")
	}
	fmt.Println("Evaluation passed.")
	return nil
}
