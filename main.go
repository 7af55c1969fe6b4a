// Package main is the entry point for the doc-issues CLI application.
package main

import (
	"fmt"
	"os"

	"github.com/danielolaszy/doc-issues/cmd"
	"github.com/danielolaszy/doc-issues/internal/logging"
)

// main executes the root command and exits non-zero on failure.
func main() {
	if err := cmd.Execute(); err != nil {
		logging.Error("command execution failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
