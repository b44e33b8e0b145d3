/*
Package cmd provides cache management commands for YAMBS.
*/
package cmd

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/oarkflow/yambs/internal/cache"
	"github.com/oarkflow/yambs/internal/layout"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or maintain the project cache",
	Long: `Manage the per-build-root project cache (§4.4): compiler identity,
manifest content hashes, and per-target generation fingerprints used to
skip unchanged regeneration work.`,
}

func openCache() (*cache.ProjectCache, error) {
	lay, err := layout.New(buildDir)
	if err != nil {
		return nil, err
	}
	return cache.Open(lay.Root)
}

var cacheCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove every cached entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache()
		if err != nil {
			return err
		}
		if err := c.Clear(); err != nil {
			return err
		}
		log.Info("cache cleared")
		return nil
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove cache entries whose manifest no longer exists",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache()
		if err != nil {
			return err
		}
		if err := c.Prune(); err != nil {
			return err
		}
		log.Info("cache pruned")
		return nil
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache()
		if err != nil {
			return err
		}
		stats := c.Stats()
		fmt.Printf("Cache directory: %v\n", stats["cache_dir"])
		fmt.Printf("  compiler entries: %v\n", stats["compiler_entries"])
		fmt.Printf("  manifest entries: %v\n", stats["manifest_entries"])
		fmt.Printf("  target entries:   %v\n", stats["targets_entries"])
		fmt.Printf("  size (bytes):     %v\n", stats["size_bytes"])
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheCleanCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
}
