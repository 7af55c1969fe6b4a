package github

import (
	"context"
	"fmt"

	"github.com/danielolaszy/doc-issues/internal/logging"
	"github.com/danielolaszy/doc-issues/pkg/models"
	"github.com/google/go-github/v41/github"
)

// FetchIssues retrieves every issue, open or closed, that carries one of the
// documentation labels. Pull requests are skipped and an issue carrying
// several documentation labels is returned once.
func (c *Client) FetchIssues(ctx context.Context, repository models.Repository) ([]models.RawIssue, error) {
	owner, repo, err := splitRepository(repository.ID())
	if err != nil {
		return nil, err
	}

	var result []models.RawIssue
	seen := make(map[int]bool)
	for _, label := range models.DocumentationLabels() {
		logging.Debug("fetching issues with label", "repository", repository.ID(), "label", label)

		issues, err := listAll(ctx, c, "issues.list", func(ctx context.Context, lo *github.ListOptions) ([]*github.Issue, *github.Response, error) {
			opts := &github.IssueListByRepoOptions{
				State:       "all",
				Labels:      []string{label},
				ListOptions: *lo,
			}
			return c.client.Issues.ListByRepo(ctx, owner, repo, opts)
		})
		if err != nil {
			logging.Error("failed to fetch github issues", "repository", repository.ID(), "label", label, "error", err)
			return nil, fmt.Errorf("failed to fetch GitHub issues of %s: %w", repository.ID(), err)
		}

		for _, issue := range issues {
			// Skip pull requests (they're also returned by the Issues API)
			if issue.IsPullRequest() || seen[issue.GetNumber()] {
				continue
			}
			seen[issue.GetNumber()] = true

			raw, err := toRawIssue(issue)
			if err != nil {
				logging.Warn("skipping malformed issue", "repository", repository.ID(), "issue_number", issue.GetNumber(), "error", err)
				continue
			}
			result = append(result, raw)
		}
	}

	logging.Info("fetched repository issues", "repository", repository.ID(), "count", len(result))
	return result, nil
}

// toRawIssue converts a go-github issue to the internal model.
func toRawIssue(issue *github.Issue) (models.RawIssue, error) {
	state, err := models.ParseIssueState(issue.GetState())
	if err != nil {
		return models.RawIssue{}, err
	}

	labelNames := make([]string, 0, len(issue.Labels))
	for _, label := range issue.Labels {
		labelNames = append(labelNames, label.GetName())
	}

	raw := models.RawIssue{
		Number:    issue.GetNumber(),
		Title:     issue.GetTitle(),
		Body:      issue.Body,
		State:     state,
		CreatedAt: issue.GetCreatedAt(),
		UpdatedAt: issue.GetUpdatedAt(),
		HTMLURL:   issue.GetHTMLURL(),
		Labels:    labelNames,
	}
	if issue.ClosedAt != nil {
		closedAt := *issue.ClosedAt
		raw.ClosedAt = &closedAt
	}
	return raw, nil
}

// FetchIssueDetails retrieves the author, closer and comment count of an issue.
func (c *Client) FetchIssueDetails(ctx context.Context, repository models.Repository, number int) (models.IssueDetails, error) {
	owner, repo, err := splitRepository(repository.ID())
	if err != nil {
		return models.IssueDetails{}, err
	}

	var issue *github.Issue
	err = c.call(ctx, "issues.get", func(ctx context.Context) (*github.Response, error) {
		var resp *github.Response
		var err error
		issue, resp, err = c.client.Issues.Get(ctx, owner, repo, number)
		return resp, err
	})
	if err != nil {
		return models.IssueDetails{}, fmt.Errorf("failed to get issue %s#%d: %w", repository.ID(), number, err)
	}

	return models.IssueDetails{
		CreatedBy:     issue.GetUser().GetLogin(),
		ClosedBy:      issue.GetClosedBy().GetLogin(),
		CommentsCount: issue.GetComments(),
	}, nil
}

// FetchLastComment retrieves the most recent of an issue's commentsCount
// comments. Issue comments are listed oldest first, so a page of size one at
// position commentsCount holds the latest.
func (c *Client) FetchLastComment(ctx context.Context, repository models.Repository, number, commentsCount int) (models.Comment, bool, error) {
	owner, repo, err := splitRepository(repository.ID())
	if err != nil {
		return models.Comment{}, false, err
	}
	if commentsCount <= 0 {
		return models.Comment{}, false, nil
	}

	var comments []*github.IssueComment
	err = c.call(ctx, "issues.list_comments", func(ctx context.Context) (*github.Response, error) {
		opts := &github.IssueListCommentsOptions{
			ListOptions: github.ListOptions{PerPage: 1, Page: commentsCount},
		}
		var resp *github.Response
		var err error
		comments, resp, err = c.client.Issues.ListComments(ctx, owner, repo, number, opts)
		return resp, err
	})
	if err != nil {
		return models.Comment{}, false, fmt.Errorf("failed to list comments of %s#%d: %w", repository.ID(), number, err)
	}
	if len(comments) == 0 {
		return models.Comment{}, false, nil
	}

	last := comments[len(comments)-1]
	return models.Comment{
		Author:    last.GetUser().GetLogin(),
		CreatedAt: last.GetCreatedAt(),
	}, true, nil
}

// FetchTimeline retrieves the raw timeline of an issue. A permission or
// not-found failure is reported wrapped in ErrUnavailable.
func (c *Client) FetchTimeline(ctx context.Context, repository models.Repository, number int) ([]models.TimelineEntry, error) {
	owner, repo, err := splitRepository(repository.ID())
	if err != nil {
		return nil, err
	}

	events, err := listAll(ctx, c, "issues.list_timeline", func(ctx context.Context, lo *github.ListOptions) ([]*github.Timeline, *github.Response, error) {
		return c.client.Issues.ListIssueTimeline(ctx, owner, repo, number, lo)
	})
	if err != nil {
		if IsUnavailable(err) {
			return nil, fmt.Errorf("%w: timeline of %s#%d: %v", ErrUnavailable, repository.ID(), number, err)
		}
		return nil, fmt.Errorf("failed to list timeline of %s#%d: %w", repository.ID(), number, err)
	}

	entries := make([]models.TimelineEntry, 0, len(events))
	for _, event := range events {
		entries = append(entries, models.TimelineEntry{
			Event:     event.GetEvent(),
			Actor:     event.GetActor().GetLogin(),
			CreatedAt: event.GetCreatedAt(),
			Label:     event.GetLabel().GetName(),
			Assignee:  event.GetAssignee().GetLogin(),
			Milestone: event.GetMilestone().GetTitle(),
		})
	}
	return entries, nil
}
