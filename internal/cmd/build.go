package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/oarkflow/yambs/internal/driver"
	"github.com/oarkflow/yambs/internal/layout"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Resolve, generate, and build",
	Long: `Acquires the build-root lock, resolves the dependency graph rooted at
--manifest-dir, generates a makefile project tree under the build
directory, and invokes the build driver named by
YAMBS_BUILD_SYSTEM_EXECUTABLE.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBuild(cmd.Context())
	},
}

func runBuild(ctx context.Context) error {
	buildSystem, err := requireEnv("YAMBS_BUILD_SYSTEM_EXECUTABLE")
	if err != nil {
		return err
	}

	lay, err := layout.New(buildDir)
	if err != nil {
		return err
	}

	lock, err := layout.Acquire(lay)
	if err != nil {
		return err
	}
	defer lock.Release()

	if _, _, err := resolveAndGenerate(); err != nil {
		return err
	}

	return driver.Run(ctx, driver.Options{
		ConfigDir:      lay.ConfigDir(config),
		Jobs:           jobs,
		LogPath:        lay.LogPath(),
		ExecutablePath: buildSystem,
	})
}
