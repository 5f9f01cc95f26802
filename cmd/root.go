package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "campusrag",
	Short: "Semantic search engine for campus documents",
	Long: `campusrag indexes campus documents (timetables, notices, syllabi,
exam schedules, regulations) into a semantic vector database and
answers natural language queries with the most relevant passages
and their sources. It serves an HTTP API and integrates with AI
agents via MCP.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Provider API keys may live in a local .env file.
		_ = godotenv.Load()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".campusrag.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
