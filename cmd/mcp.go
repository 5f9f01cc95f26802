package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/studystack/campusrag/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing document search and index stats tools for AI agents.`,
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

		if eng.store.Count() == 0 {
			fmt.Fprintln(os.Stderr, "Warning: the index is empty; search results will be empty. Run `campusrag seed` first.")
		}

		mcpserver.Version = Version

		fmt.Fprintf(os.Stderr, "campusrag MCP server started on stdio (documents=%d)\n", eng.store.Count())

		srv := mcpserver.NewServer(eng.retriever, eng.manifest)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
