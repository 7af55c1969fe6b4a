package cmd

import (
	"fmt"

	"github.com/danielolaszy/doc-issues/internal/collector"
	"github.com/danielolaszy/doc-issues/internal/config"
	"github.com/danielolaszy/doc-issues/internal/consolidate"
	"github.com/danielolaszy/doc-issues/internal/github"
	"github.com/danielolaszy/doc-issues/internal/logging"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// collectCmd runs a full collection and writes output/doc-issues/doc-issues.json.
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect documentation issues into a JSON document",
	Long: `Collect documentation issues from every configured repository.

Issues labeled DocumentedFeature, DocumentedUserStory, DocumentedRequirement or
DocumentedFunctionality are fetched, merged with their project board state
(when --project-state-mining is set) and their timeline events, and written to
<output>/doc-issues/doc-issues.json.

A repository that cannot be read is skipped and the others are still written.
The command then fails, unless --allow-partial is set.

Example:
  doc-issues collect -r '[{"organization-name":"org","repository-name":"repo"}]' --project-state-mining`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cmd.Flags())
		if err != nil {
			return err
		}
		setupLogging(cfg)
		logging.With("collection_id", uuid.NewString())

		allowPartial, err := cmd.Flags().GetBool("allow-partial")
		if err != nil {
			return err
		}

		client, err := github.NewClient(cfg.GitHub)
		if err != nil {
			return fmt.Errorf("failed to initialize github client: %w", err)
		}

		c := collector.New(cfg, client)
		c.Version = Version

		report, err := c.Collect(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), report.Path)
		return partialError(report, allowPartial)
	},
}

func init() {
	collectCmd.Flags().Bool("project-state-mining", false, "include GitHub Projects board state")
	collectCmd.Flags().StringP("output", "o", "", "output root directory (default \"output\")")
	collectCmd.Flags().Int("repository-concurrency", 0, "repositories processed in parallel (default 4)")
	collectCmd.Flags().Int("issue-concurrency", 0, "issue lookups in parallel per repository (default 8)")
	collectCmd.Flags().String("metrics-file", "", "write Prometheus metrics to this textfile")
	collectCmd.Flags().Bool("allow-partial", false, "succeed even when some repositories could not be collected")
}

// partialError reports failed repositories as an error unless partial
// results are allowed.
func partialError(report collector.Report, allowPartial bool) error {
	if len(report.Failed) == 0 {
		return nil
	}
	if allowPartial {
		logging.Warn("some repositories could not be collected",
			"repositories", report.FailedRepositories())
		return nil
	}
	return fmt.Errorf("%d repositories could not be collected: %w",
		len(report.Failed), consolidate.FailedRepositoryError(report.Failed))
}
