package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/studystack/campusrag/internal/rag"
)

var removeCmd = &cobra.Command{
	Use:   "remove [document-id]",
	Short: "Remove a document and its chunks from the index",
	Long: `Deletes a document's chunks from the vector index and its manifest
record. Pass a document ID, or --path with the source path the document
was indexed under.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRemove,
}

func init() {
	removeCmd.Flags().String("path", "", "source path of the document to remove")
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	sourcePath, _ := cmd.Flags().GetString("path")

	var documentID string
	switch {
	case len(args) == 1 && sourcePath != "":
		return fmt.Errorf("pass either a document ID or --path, not both")
	case len(args) == 1:
		documentID = args[0]
	case sourcePath != "":
		documentID = rag.NewDocumentID(sourcePath)
	default:
		return fmt.Errorf("a document ID or --path is required")
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

	if err := eng.pipeline.Remove(context.Background(), documentID); err != nil {
		return fmt.Errorf("removing document %s: %w", documentID, err)
	}

	fmt.Printf("Removed document %s\n", documentID)
	return nil
}
