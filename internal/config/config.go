// Package config provides centralized configuration management for the application.
package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/danielolaszy/doc-issues/pkg/models"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration parameters for the application.
type Config struct {
	GitHub      GitHubConfig
	DocIssues   DocIssuesConfig
	Output      OutputConfig
	Concurrency ConcurrencyConfig
	Run         RunConfig

	VerboseLogging bool
	MetricsFile    string
}

// GitHubConfig holds GitHub specific configuration.
type GitHubConfig struct {
	Token  string
	Domain string
}

// DocIssuesConfig holds the doc-issues mode inputs.
type DocIssuesConfig struct {
	Repositories       []RepositoryConfig
	ProjectStateMining bool
}

// OutputConfig holds where the collected data is written.
type OutputConfig struct {
	Path string
}

// ConcurrencyConfig bounds the parallel fetch pipelines.
type ConcurrencyConfig struct {
	Repositories int
	Issues       int
}

// RunConfig holds the GitHub Actions run context, empty outside of a runner.
type RunConfig struct {
	Workflow   string
	RunID      string
	RunAttempt string
	Actor      string
	Ref        string
	SHA        string
	ActionRef  string
}

// RepositoryConfig is one entry of the doc-issues-repositories input.
type RepositoryConfig struct {
	OrganizationName    string   `json:"organization-name" yaml:"organization-name"`
	RepositoryName      string   `json:"repository-name" yaml:"repository-name"`
	ProjectsTitleFilter []string `json:"projects-title-filter" yaml:"projects-title-filter"`
}

// ID returns the "owner/repo" identifier of the entry.
func (r RepositoryConfig) ID() string {
	return r.OrganizationName + "/" + r.RepositoryName
}

// Repository converts the entry to the model used by the fetchers.
func (r RepositoryConfig) Repository() models.Repository {
	return models.Repository{
		Owner:               r.OrganizationName,
		Name:                r.RepositoryName,
		ProjectsTitleFilter: r.ProjectsTitleFilter,
	}
}

// Repositories returns the configured repositories as fetcher models.
func (c *Config) Repositories() []models.Repository {
	out := make([]models.Repository, 0, len(c.DocIssues.Repositories))
	for _, r := range c.DocIssues.Repositories {
		out = append(out, r.Repository())
	}
	return out
}

// LoadConfig initializes and loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	return Load(nil)
}

// Load reads configuration from environment variables, letting any flag in
// flags that was set on the command line take precedence.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("github.domain", "github.com")
	v.SetDefault("doc_issues.repositories", "[]")
	v.SetDefault("doc_issues.project_state_mining", false)
	v.SetDefault("output.path", "output")
	v.SetDefault("concurrency.repositories", 4)
	v.SetDefault("concurrency.issues", 8)

	// Action inputs arrive as INPUT_<NAME> with the original dashes kept
	v.BindEnv("github.token", "INPUT_GITHUB-TOKEN", "GITHUB_TOKEN")
	v.BindEnv("github.domain", "GITHUB_DOMAIN")
	v.BindEnv("doc_issues.repositories", "INPUT_DOC-ISSUES-REPOSITORIES", "DOC_ISSUES_REPOSITORIES")
	v.BindEnv("doc_issues.project_state_mining", "INPUT_DOC-ISSUES-PROJECT-STATE-MINING", "DOC_ISSUES_PROJECT_STATE_MINING")
	v.BindEnv("verbose_logging", "INPUT_VERBOSE-LOGGING", "VERBOSE_LOGGING")
	v.BindEnv("output.path", "OUTPUT_PATH")
	v.BindEnv("concurrency.repositories", "REPOSITORY_CONCURRENCY")
	v.BindEnv("concurrency.issues", "ISSUE_CONCURRENCY")
	v.BindEnv("metrics.file", "METRICS_FILE")
	v.BindEnv("run.workflow", "GITHUB_WORKFLOW")
	v.BindEnv("run.run_id", "GITHUB_RUN_ID")
	v.BindEnv("run.run_attempt", "GITHUB_RUN_ATTEMPT")
	v.BindEnv("run.actor", "GITHUB_ACTOR")
	v.BindEnv("run.ref", "GITHUB_REF")
	v.BindEnv("run.sha", "GITHUB_SHA")
	v.BindEnv("run.action_ref", "GITHUB_ACTION_REF")

	if flags != nil {
		bindFlag(v, flags, "github.domain", "domain")
		bindFlag(v, flags, "doc_issues.repositories", "repositories")
		bindFlag(v, flags, "doc_issues.project_state_mining", "project-state-mining")
		bindFlag(v, flags, "verbose_logging", "verbose")
		bindFlag(v, flags, "output.path", "output")
		bindFlag(v, flags, "concurrency.repositories", "repository-concurrency")
		bindFlag(v, flags, "concurrency.issues", "issue-concurrency")
		bindFlag(v, flags, "metrics.file", "metrics-file")
	}

	repositories, err := ParseRepositories(v.GetString("doc_issues.repositories"))
	if err != nil {
		return nil, err
	}

	config := &Config{
		GitHub: GitHubConfig{
			Token:  v.GetString("github.token"),
			Domain: v.GetString("github.domain"),
		},
		DocIssues: DocIssuesConfig{
			Repositories:       repositories,
			ProjectStateMining: v.GetBool("doc_issues.project_state_mining"),
		},
		Output: OutputConfig{
			Path: v.GetString("output.path"),
		},
		Concurrency: ConcurrencyConfig{
			Repositories: v.GetInt("concurrency.repositories"),
			Issues:       v.GetInt("concurrency.issues"),
		},
		Run: RunConfig{
			Workflow:   v.GetString("run.workflow"),
			RunID:      v.GetString("run.run_id"),
			RunAttempt: v.GetString("run.run_attempt"),
			Actor:      v.GetString("run.actor"),
			Ref:        v.GetString("run.ref"),
			SHA:        v.GetString("run.sha"),
			ActionRef:  v.GetString("run.action_ref"),
		},
		VerboseLogging: v.GetBool("verbose_logging"),
		MetricsFile:    v.GetString("metrics.file"),
	}

	if config.GitHub.Domain == "" {
		config.GitHub.Domain = "github.com"
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// bindFlag binds key to the named flag when the flag set defines it.
func bindFlag(v *viper.Viper, flags *pflag.FlagSet, key, name string) {
	if f := flags.Lookup(name); f != nil {
		v.BindPFlag(key, f)
	}
}

// ParseRepositories parses the doc-issues-repositories input. The input is
// normally a JSON array; a YAML sequence is accepted as well.
func ParseRepositories(input string) ([]RepositoryConfig, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}

	var repositories []RepositoryConfig
	if strings.HasPrefix(input, "[") {
		if err := json.Unmarshal([]byte(input), &repositories); err != nil {
			return nil, fmt.Errorf("failed to parse repositories input: %w", err)
		}
	} else if err := yaml.Unmarshal([]byte(input), &repositories); err != nil {
		return nil, fmt.Errorf("failed to parse repositories input: %w", err)
	}

	seen := make(map[string]bool, len(repositories))
	for i, r := range repositories {
		r.OrganizationName = strings.TrimSpace(r.OrganizationName)
		r.RepositoryName = strings.TrimSpace(r.RepositoryName)
		if r.OrganizationName == "" || r.RepositoryName == "" {
			return nil, fmt.Errorf("repository entry %d: organization-name and repository-name are required", i)
		}
		key := strings.ToLower(r.ID())
		if seen[key] {
			return nil, fmt.Errorf("repository %s is configured more than once", r.ID())
		}
		seen[key] = true
		repositories[i] = r
	}

	return repositories, nil
}

// validateConfig ensures that all required configuration values are provided.
func validateConfig(config *Config) error {
	var missingVars []string

	// GitHub validation
	if config.GitHub.Token == "" {
		missingVars = append(missingVars, "GITHUB_TOKEN")
	}

	if len(missingVars) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missingVars)
	}

	if config.Concurrency.Repositories < 1 || config.Concurrency.Issues < 1 {
		return fmt.Errorf("concurrency limits must be at least 1, got repositories=%d issues=%d",
			config.Concurrency.Repositories, config.Concurrency.Issues)
	}

	return nil
}
