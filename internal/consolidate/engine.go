// Package consolidate merges repository issues, project board state and
// timeline data into one consolidated record per issue.
package consolidate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/danielolaszy/doc-issues/internal/logging"
	"github.com/danielolaszy/doc-issues/pkg/models"
	"golang.org/x/sync/errgroup"
)

// IssueSource fetches the base issues of a repository.
type IssueSource interface {
	FetchIssues(ctx context.Context, repository models.Repository) ([]models.RawIssue, error)
}

// ProjectSource fetches the project board rows of a repository's issues.
type ProjectSource interface {
	FetchProjectItems(ctx context.Context, repository models.Repository) ([]models.ProjectItem, error)
}

// AuditSource fetches the per-issue enrichment data.
type AuditSource interface {
	FetchIssueDetails(ctx context.Context, repository models.Repository, number int) (models.IssueDetails, error)
	FetchLastComment(ctx context.Context, repository models.Repository, number, commentsCount int) (models.Comment, bool, error)
	FetchTimeline(ctx context.Context, repository models.Repository, number int) ([]models.TimelineEntry, error)
}

// Degradation names the data that could not be fetched.
type Degradation string

const (
	DegradedProjects    Degradation = "projects"
	DegradedDetails     Degradation = "details"
	DegradedLastComment Degradation = "last_comment"
	DegradedTimeline    Degradation = "timeline"
)

// Observer is notified about the progress of a consolidation. Calls may come
// from several goroutines.
type Observer interface {
	IssueConsolidated(repository string)
	Degraded(repository string, what Degradation)
	RepositoryFailed(repository string)
}

// Options is the run-wide configuration of the engine.
type Options struct {
	// ProjectStateMining enables project board data in the output
	ProjectStateMining bool

	// Domain is the GitHub domain used to build issue URLs
	Domain string

	// RepositoryConcurrency bounds how many repositories are processed at once
	RepositoryConcurrency int

	// IssueConcurrency bounds the parallel enrichment calls per repository
	IssueConcurrency int
}

// Engine consolidates GitHub data per repository.
type Engine struct {
	opts     Options
	issues   IssueSource
	projects ProjectSource
	audit    AuditSource
	observer Observer
}

// NewEngine creates an Engine. observer may be nil.
func NewEngine(opts Options, issues IssueSource, projects ProjectSource, audit AuditSource, observer Observer) *Engine {
	if opts.RepositoryConcurrency < 1 {
		opts.RepositoryConcurrency = 1
	}
	if opts.IssueConcurrency < 1 {
		opts.IssueConcurrency = 1
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Engine{
		opts:     opts,
		issues:   issues,
		projects: projects,
		audit:    audit,
		observer: observer,
	}
}

// RepositoryResult is the outcome of consolidating one repository.
type RepositoryResult struct {
	Repository models.Repository
	Issues     []models.ConsolidatedIssue
	Err        error
}

// Outcome is the union of all repository results of a run.
type Outcome struct {
	// Issues maps "owner/repo#N" to the consolidated issue
	Issues map[string]models.ConsolidatedIssue

	// Succeeded lists, in configuration order, the repositories whose base
	// issues were fetched
	Succeeded []string

	// Failed maps each repository that could not be fetched to its error
	Failed map[string]error
}

// Consolidate processes every repository independently and unions the
// results. A failing repository is reported in Outcome.Failed and does not
// affect the others. The returned error is only set when ctx ends.
func (e *Engine) Consolidate(ctx context.Context, repositories []models.Repository) (Outcome, error) {
	results := make([]RepositoryResult, len(repositories))

	g := new(errgroup.Group)
	g.SetLimit(e.opts.RepositoryConcurrency)
	for i, repository := range repositories {
		i, repository := i, repository
		g.Go(func() error {
			issues, err := e.ConsolidateRepository(ctx, repository)
			results[i] = RepositoryResult{Repository: repository, Issues: issues, Err: err}
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	return Union(results), nil
}

// Union merges repository results into one mapping keyed globally. A key seen
// twice keeps the first issue.
func Union(results []RepositoryResult) Outcome {
	outcome := Outcome{
		Issues: make(map[string]models.ConsolidatedIssue),
		Failed: make(map[string]error),
	}

	for _, result := range results {
		repositoryID := result.Repository.ID()
		if result.Err != nil {
			outcome.Failed[repositoryID] = result.Err
			continue
		}
		outcome.Succeeded = append(outcome.Succeeded, repositoryID)

		for _, issue := range result.Issues {
			key := issue.Key()
			if _, exists := outcome.Issues[key]; exists {
				logging.Error("issue already consolidated, keeping the first occurrence", "issue", key)
				continue
			}
			outcome.Issues[key] = issue
		}
	}

	return outcome
}

// ConsolidateRepository fetches and merges the issues of one repository. An
// error means the repository's base issues could not be fetched; enrichment
// failures only degrade the affected issues.
func (e *Engine) ConsolidateRepository(ctx context.Context, repository models.Repository) ([]models.ConsolidatedIssue, error) {
	repositoryID := repository.ID()
	logging.Info("consolidating repository", "repository", repositoryID)

	raw, err := e.issues.FetchIssues(ctx, repository)
	if err != nil {
		logging.Error("failed to fetch repository issues, skipping repository",
			"repository", repositoryID,
			"error", err)
		e.observer.RepositoryFailed(repositoryID)
		return nil, fmt.Errorf("fetch issues of %s: %w", repositoryID, err)
	}

	statuses := e.projectStatuses(ctx, repository)

	consolidated := make([]models.ConsolidatedIssue, len(raw))
	g := new(errgroup.Group)
	g.SetLimit(e.opts.IssueConcurrency)
	for i, issue := range raw {
		i, issue := i, issue
		g.Go(func() error {
			enrichment := e.enrich(ctx, repository, issue.Number)
			consolidated[i] = Merge(repository, issue, statuses[issue.Number], enrichment, e.opts)
			e.observer.IssueConsolidated(repositoryID)
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(consolidated, func(i, j int) bool {
		return consolidated[i].IssueNumber < consolidated[j].IssueNumber
	})

	logging.Info("repository consolidated",
		"repository", repositoryID,
		"issues", len(consolidated))
	return consolidated, nil
}

// projectStatuses returns the board statuses of the repository's issues by
// issue number. Mining disabled or failed yields no statuses.
func (e *Engine) projectStatuses(ctx context.Context, repository models.Repository) map[int][]models.ProjectStatus {
	statuses := make(map[int][]models.ProjectStatus)
	if !e.opts.ProjectStateMining {
		logging.Debug("project state mining disabled", "repository", repository.ID())
		return statuses
	}

	items, err := e.projects.FetchProjectItems(ctx, repository)
	if err != nil {
		logging.Warn("failed to fetch project data, continuing without it",
			"repository", repository.ID(),
			"error", err)
		e.observer.Degraded(repository.ID(), DegradedProjects)
		return statuses
	}

	for _, item := range items {
		if !strings.EqualFold(item.Owner, repository.Owner) || !strings.EqualFold(item.Repository, repository.Name) {
			continue
		}
		statuses[item.IssueNumber] = append(statuses[item.IssueNumber], item.Status)
	}
	return statuses
}

// enrich fetches the optional per-issue data. Every failure is logged and
// recorded in the returned Enrichment; none is returned.
func (e *Engine) enrich(ctx context.Context, repository models.Repository, number int) Enrichment {
	repositoryID := repository.ID()
	key := models.Key(repositoryID, number)
	var enrichment Enrichment

	details, err := e.audit.FetchIssueDetails(ctx, repository, number)
	if err != nil {
		logging.Warn("issue details unavailable, omitting created_by, closed_by and comments_count",
			"issue", key,
			"error", err)
		e.observer.Degraded(repositoryID, DegradedDetails)
		enrichment.Details = models.Unavailable[models.IssueDetails](err)
	} else {
		enrichment.Details = models.Fetched(details)
	}

	switch {
	case !enrichment.Details.Available() || details.CommentsCount == 0:
		enrichment.LastComment = models.Unavailable[models.Comment](nil)
	default:
		comment, found, err := e.audit.FetchLastComment(ctx, repository, number, details.CommentsCount)
		switch {
		case err != nil:
			logging.Warn("last comment unavailable, omitting last_commented_at and last_commented_by",
				"issue", key,
				"error", err)
			e.observer.Degraded(repositoryID, DegradedLastComment)
			enrichment.LastComment = models.Unavailable[models.Comment](err)
		case !found:
			enrichment.LastComment = models.Empty[models.Comment]()
		default:
			enrichment.LastComment = models.Fetched(comment)
		}
	}

	entries, err := e.audit.FetchTimeline(ctx, repository, number)
	if err != nil {
		logging.Warn("timeline unavailable, omitting audit_events",
			"issue", key,
			"error", err)
		e.observer.Degraded(repositoryID, DegradedTimeline)
		enrichment.AuditEvents = models.Unavailable[[]models.AuditEvent](err)
	} else if events := AuditEvents(entries); len(events) > 0 {
		enrichment.AuditEvents = models.Fetched(events)
	} else {
		enrichment.AuditEvents = models.Empty[[]models.AuditEvent]()
	}

	return enrichment
}

type nopObserver struct{}

func (nopObserver) IssueConsolidated(string)     {}
func (nopObserver) Degraded(string, Degradation) {}
func (nopObserver) RepositoryFailed(string)      {}

// FailedRepositoryError joins the errors of failed repositories, sorted by
// repository, or returns nil.
func FailedRepositoryError(failed map[string]error) error {
	if len(failed) == 0 {
		return nil
	}
	ids := make([]string, 0, len(failed))
	for id := range failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	errs := make([]error, 0, len(ids))
	for _, id := range ids {
		errs = append(errs, fmt.Errorf("%s: %w", id, failed[id]))
	}
	return errors.Join(errs...)
}
