package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/oarkflow/yambs/internal/manifest"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the manifest without generating",
	Long: `Parses and validates the yambs.toml under --manifest-dir: schema,
target names, flag tokens, and source file existence. Does not resolve
dependencies or touch the build directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := filepath.Join(manifestDir, "yambs.toml")
		m, err := manifest.Parse(path)
		if err != nil {
			return err
		}
		fmt.Printf("%s is valid: %d executable(s), %d librar(y/ies)\n", path, len(m.Executables), len(m.Libraries))
		return nil
	},
}
