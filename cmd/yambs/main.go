/*
Package main provides the CLI entry point for YAMBS.
*/
package main

import (
	"os"

	"github.com/oarkflow/yambs/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
