package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/oarkflow/yambs/internal/driver"
	"github.com/oarkflow/yambs/internal/layout"
	"github.com/oarkflow/yambs/internal/yambserr"
)

var remakeCmd = &cobra.Command{
	Use:   "remake",
	Short: "Re-invoke the build driver over an already-generated tree",
	Long: `Re-runs the build driver (YAMBS_BUILD_SYSTEM_EXECUTABLE) over an
existing build directory without resolving the manifest or regenerating
makefiles. Fails with UsageError if the build directory has no generated
Makefile for --config.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		buildSystem, err := requireEnv("YAMBS_BUILD_SYSTEM_EXECUTABLE")
		if err != nil {
			return err
		}

		lay, err := layout.New(buildDir)
		if err != nil {
			return err
		}

		if _, err := os.Stat(lay.MakefilePath(config)); err != nil {
			return yambserr.New(yambserr.UsageError, "no generated Makefile for config %q under %s; run `yambs generate` first", config, lay.ConfigDir(config))
		}

		lock, err := layout.Acquire(lay)
		if err != nil {
			return err
		}
		defer lock.Release()

		return driver.Run(cmd.Context(), driver.Options{
			ConfigDir:      lay.ConfigDir(config),
			Jobs:           jobs,
			LogPath:        lay.LogPath(),
			ExecutablePath: buildSystem,
		})
	},
}
