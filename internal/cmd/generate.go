package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oarkflow/yambs/internal/layout"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Resolve and generate only, do not invoke the driver",
	RunE: func(cmd *cobra.Command, args []string) error {
		lay, err := layout.New(buildDir)
		if err != nil {
			return err
		}
		lock, err := layout.Acquire(lay)
		if err != nil {
			return err
		}
		defer lock.Release()

		_, _, err = resolveAndGenerate()
		return err
	},
}
