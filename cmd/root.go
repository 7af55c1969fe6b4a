// Package cmd provides the command-line interface for doc-issues.
package cmd

import (
	"os"
	"strings"

	"github.com/danielolaszy/doc-issues/internal/config"
	"github.com/danielolaszy/doc-issues/internal/logging"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=v1.2.3".
var Version = ""

var rootCmd = &cobra.Command{
	Use:   "doc-issues",
	Short: "doc-issues collects documentation issues from GitHub",
	Long: `doc-issues collects GitHub issues labeled for living documentation,
merges them with their GitHub Projects board state and timeline events,
and writes one consolidated JSON document.

Repositories are configured as a JSON list:

  [{"organization-name": "org", "repository-name": "repo", "projects-title-filter": []}]`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	if Version != "" {
		rootCmd.Version = Version
	}
	return rootCmd.Execute()
}

func init() {
	// Add persistent flags that will be available to all commands
	rootCmd.PersistentFlags().String("domain", "", "GitHub domain, e.g. 'github.example.com' for GitHub Enterprise (default github.com)")
	rootCmd.PersistentFlags().StringP("repositories", "r", "", "repositories to collect, as a JSON or YAML list")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(validateCmd)
}

// setupLogging applies the configured verbosity. LOG_LEVEL is used unless
// verbose logging is enabled.
func setupLogging(cfg *config.Config) {
	level := logging.LogLevel(strings.ToLower(os.Getenv("LOG_LEVEL")))
	if level == "" {
		level = logging.LevelInfo
	}
	if cfg.VerboseLogging {
		level = logging.LevelDebug
	}
	format := logging.Format(strings.ToLower(os.Getenv("LOG_FORMAT")))
	logging.SetupLoggerWithFormat(os.Stderr, level, format)
}
