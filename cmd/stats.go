package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Long:  `Prints document and chunk counts, the per-category breakdown and the most recent indexing run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		eng, err := openEngine(cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		stats, err := eng.manifest.Stats(context.Background())
		if err != nil {
			return fmt.Errorf("reading index stats: %w", err)
		}

		fmt.Printf("Documents: %d\n", stats.Documents)
		fmt.Printf("Chunks:    %d (%d vectors in store)\n", stats.Chunks, eng.store.Count())

		if len(stats.ByCategory) > 0 {
			fmt.Println("By category:")
			categories := make([]string, 0, len(stats.ByCategory))
			for category := range stats.ByCategory {
				categories = append(categories, category)
			}
			sort.Strings(categories)
			for _, category := range categories {
				fmt.Printf("  %-14s %d\n", category, stats.ByCategory[category])
			}
		}

		if stats.LastRun != nil {
			r := stats.LastRun
			fmt.Printf("Last run:  %s at %s (%d total, %d succeeded, %d failed, %d skipped)\n",
				r.RunID, r.FinishedAt.Format("2006-01-02 15:04:05"),
				r.Total, r.Succeeded, r.Failed, r.Skipped)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
