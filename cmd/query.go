package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/studystack/campusrag/internal/rag"
	"github.com/studystack/campusrag/internal/retriever"
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Semantically search the indexed documents",
	Long:  `Embeds a natural language query and returns the most relevant passages from the index, with their sources and similarity scores.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().Int("top-k", 0, "maximum number of results (overrides config)")
	queryCmd.Flags().Float64("threshold", -1, "minimum similarity score in [0,1] (overrides config)")
	queryCmd.Flags().String("category", "", "restrict results to one category, e.g. notices")
	queryCmd.Flags().Bool("json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	queryText := args[0]

	topK, _ := cmd.Flags().GetInt("top-k")
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	category, _ := cmd.Flags().GetString("category")
	jsonOutput, _ := cmd.Flags().GetBool("json")

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
		fmt.Println("The index is empty. Run `campusrag seed` first.")
		return nil
	}

	var calls []retriever.CallOption
	if topK > 0 {
		calls = append(calls, retriever.WithTopK(topK))
	}
	if threshold >= 0 {
		calls = append(calls, retriever.WithScoreThreshold(threshold))
	}
	if category != "" {
		calls = append(calls, retriever.WithCategory(category))
	}

	results, err := eng.retriever.Retrieve(ctx, queryText, calls...)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	if jsonOutput {
		return printQueryResultsJSON(results)
	}

	fmt.Print(retriever.FormatResults(results))
	return nil
}

type queryResultJSON struct {
	Rank     int     `json:"rank"`
	Score    float64 `json:"score"`
	Source   string  `json:"source"`
	Category string  `json:"category,omitempty"`
	Content  string  `json:"content"`
}

func printQueryResultsJSON(results []rag.SearchResult) error {
	var out []queryResultJSON
	for _, r := range results {
		out = append(out, queryResultJSON{
			Rank:     r.Rank,
			Score:    r.Score,
			Source:   r.Chunk.Meta.SourcePath,
			Category: r.Chunk.Meta.Category,
			Content:  r.Chunk.Content,
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
