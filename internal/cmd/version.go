package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oarkflow/yambs"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit, and build date of YAMBS.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("yambs %s\n", yambs.Version)
		if yambs.GitCommit != "" {
			fmt.Printf("  Commit: %s\n", yambs.GitCommit)
		}
		if yambs.BuildDate != "" {
			fmt.Printf("  Built:  %s\n", yambs.BuildDate)
		}
	},
}
