/*
Package cmd provides the CLI commands for YAMBS.
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/oarkflow/yambs/internal/yambserr"
	"github.com/oarkflow/yambs/internal/yambslog"
)

var (
	buildDir     string
	manifestDir  string
	config       string
	cppStd       string
	jobs         int
	verbose      bool
	outputFormat string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "yambs",
	Short: "A meta build system for C++ projects",
	Long: `YAMBS resolves a C++ project's dependency graph from small TOML
manifests and generates a makefile project tree, then hands off to a
downstream build driver (make, by default).

Example:
  yambs build -b build            # resolve, generate, and build
  yambs generate -b build          # generate only
  yambs remake -b build            # re-invoke the driver over an existing tree
  yambs check                      # validate the manifest
  yambs cache stats                # inspect the project cache`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and runs it,
// translating any returned error into an exit code via yambserr.ExitCode.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		report(err)
		os.Exit(yambserr.ExitCode(err))
	}
	return nil
}

func init() {
	cobra.OnInitialize(func() {
		yambslog.Init()
		if verbose {
			log.SetLevel(log.DebugLevel)
		}
	})

	rootCmd.PersistentFlags().StringVarP(&buildDir, "build-dir", "b", "build", "build root directory")
	rootCmd.PersistentFlags().StringVar(&manifestDir, "manifest-dir", ".", "directory containing yambs.toml")
	rootCmd.PersistentFlags().StringVar(&config, "config", "debug", "build configuration: debug or release")
	rootCmd.PersistentFlags().StringVarP(&cppStd, "cppstd", "c", "", "C++ standard passed to the compiler, e.g. c++17")
	rootCmd.PersistentFlags().IntVarP(&jobs, "jobs", "j", 0, "parallel jobs handed to the build driver (0 = driver default)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose (debug-level) logging")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "text", "error output format: text or json")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(remakeCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(versionCmd)
}

// report prints a failing command's error per §7: a single-line summary in
// text mode, or a JSON object when --format=json was requested.
func report(err error) {
	if outputFormat == "json" {
		data, mErr := json.Marshal(yambserr.ToReport(err))
		if mErr == nil {
			fmt.Fprintln(os.Stderr, string(data))
			return
		}
	}
	log.Error(err.Error())
}
