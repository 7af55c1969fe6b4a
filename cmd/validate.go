package cmd

import (
	"context"
	"fmt"

	"github.com/danielolaszy/doc-issues/internal/config"
	"github.com/danielolaszy/doc-issues/internal/github"
	"github.com/danielolaszy/doc-issues/internal/logging"
	"github.com/spf13/cobra"
)

// validateCmd checks the configuration against GitHub without collecting.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the token and repository configuration",
	Long: `Validate the configuration without collecting anything.

The token is checked by fetching the authenticated user, and every configured
repository is checked for read access. All problems are logged before the
command fails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cmd.Flags())
		if err != nil {
			return err
		}
		setupLogging(cfg)

		client, err := github.NewClient(cfg.GitHub)
		if err != nil {
			return fmt.Errorf("failed to initialize github client: %w", err)
		}

		if err := validateAccess(cmd.Context(), client, cfg.DocIssues.Repositories); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
		return nil
	},
}

// accessChecker is the subset of the GitHub client validate needs.
type accessChecker interface {
	Authenticate(ctx context.Context) (string, error)
	CheckRepository(ctx context.Context, repository string) error
}

// validateAccess checks the token and then every repository, logging each
// failure. The returned error counts them.
func validateAccess(ctx context.Context, checker accessChecker, repositories []config.RepositoryConfig) error {
	login, err := checker.Authenticate(ctx)
	if err != nil {
		logging.Error("token validation failed", "error", err)
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	logging.Debug("token is valid", "login", login)

	if len(repositories) == 0 {
		logging.Error("no repositories configured")
		return fmt.Errorf("configuration validation failed: no repositories configured")
	}

	var failures int
	for _, r := range repositories {
		if err := checker.CheckRepository(ctx, r.ID()); err != nil {
			logging.Error("repository validation failed", "repository", r.ID(), "error", err)
			failures++
			continue
		}
		logging.Debug("repository is readable", "repository", r.ID())
	}

	if failures > 0 {
		return fmt.Errorf("configuration validation failed with %d errors", failures)
	}
	return nil
}
