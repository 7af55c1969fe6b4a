// Package collector runs a complete collection: it consolidates every
// configured repository, builds the run metadata and writes the output.
package collector

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/danielolaszy/doc-issues/internal/config"
	"github.com/danielolaszy/doc-issues/internal/consolidate"
	"github.com/danielolaszy/doc-issues/internal/logging"
	"github.com/danielolaszy/doc-issues/internal/metadata"
	"github.com/danielolaszy/doc-issues/internal/metrics"
	"github.com/danielolaszy/doc-issues/internal/output"
	"github.com/danielolaszy/doc-issues/pkg/models"
)

// Source provides every piece of GitHub data a collection needs.
type Source interface {
	consolidate.IssueSource
	consolidate.ProjectSource
	consolidate.AuditSource
}

// Report summarizes a finished collection.
type Report struct {
	// Path is the written output file
	Path string

	// Issues is the number of consolidated issues written
	Issues int

	// Succeeded lists the repositories that produced base data
	Succeeded []string

	// Failed maps each repository that could not be fetched to its error
	Failed map[string]error
}

// FailedRepositories returns the failed repository identifiers, sorted.
func (r Report) FailedRepositories() []string {
	ids := make([]string, 0, len(r.Failed))
	for id := range r.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Collector runs collections for one configuration.
type Collector struct {
	cfg          *config.Config
	repositories []models.Repository
	engine       *consolidate.Engine
	writer       *output.Writer
	metrics      *metrics.Metrics

	// Version overrides the generator version written to the metadata
	Version string

	now func() time.Time
}

// New creates a Collector fetching from source.
func New(cfg *config.Config, source Source) *Collector {
	m := metrics.New()
	engine := consolidate.NewEngine(consolidate.Options{
		ProjectStateMining:    cfg.DocIssues.ProjectStateMining,
		Domain:                cfg.GitHub.Domain,
		RepositoryConcurrency: cfg.Concurrency.Repositories,
		IssueConcurrency:      cfg.Concurrency.Issues,
	}, source, source, source, m)

	return &Collector{
		cfg:          cfg,
		repositories: cfg.Repositories(),
		engine:       engine,
		writer:       output.NewWriter(cfg.Output.Path),
		metrics:      m,
		now:          time.Now,
	}
}

// Metrics returns the metrics recorded by the collector.
func (c *Collector) Metrics() *metrics.Metrics {
	return c.metrics
}

// Collect consolidates all repositories and writes the output document.
// Repositories that fail are reported in the Report; the returned error is
// only set when no output could be written.
func (c *Collector) Collect(ctx context.Context) (Report, error) {
	start := c.now()
	logging.Info("starting collection",
		"repositories", len(c.repositories),
		"project_state_mining", c.cfg.DocIssues.ProjectStateMining)

	if len(c.repositories) == 0 {
		logging.Warn("no repositories configured, writing an empty document")
	}

	outcome, err := c.engine.Consolidate(ctx, c.repositories)
	if err != nil {
		return Report{}, fmt.Errorf("collection interrupted: %w", err)
	}

	// Previous output is only removed once a replacement is ready
	if err := c.writer.Clean(); err != nil {
		return Report{}, err
	}

	meta := metadata.Build(metadata.RunContext{
		Now:                c.now(),
		Repositories:       outcome.Succeeded,
		Run:                c.cfg.Run,
		Version:            c.Version,
		ProjectStateMining: c.cfg.DocIssues.ProjectStateMining,
	})

	path, err := c.writer.Write(meta, outcome.Issues)
	c.metrics.ObserveRun(start, c.now(), err == nil)
	c.writeMetrics()
	if err != nil {
		return Report{}, err
	}

	report := Report{
		Path:      path,
		Issues:    len(outcome.Issues),
		Succeeded: outcome.Succeeded,
		Failed:    outcome.Failed,
	}

	logging.Info("collection finished",
		"path", path,
		"issues", report.Issues,
		"succeeded", len(report.Succeeded),
		"failed", report.FailedRepositories(),
		"duration", c.now().Sub(start).Round(time.Millisecond).String())
	return report, nil
}

// writeMetrics writes the metrics textfile when one is configured. Failures
// are logged only.
func (c *Collector) writeMetrics() {
	if c.cfg.MetricsFile == "" {
		return
	}
	if err := c.metrics.WriteToTextfile(c.cfg.MetricsFile); err != nil {
		logging.Warn("failed to write metrics", "error", err)
	}
}
