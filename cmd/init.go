package cmd

import (
	"github.com/spf13/cobra"

	"github.com/studystack/campusrag/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize campusrag configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure campusrag, creates the data directory layout and generates a .campusrag.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
