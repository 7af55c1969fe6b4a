package consolidate

import (
	"github.com/danielolaszy/doc-issues/internal/logging"
	"github.com/danielolaszy/doc-issues/pkg/models"
)

// Enrichment holds the independently fetched optional data of one issue.
type Enrichment struct {
	Details     models.Result[models.IssueDetails]
	LastComment models.Result[models.Comment]
	AuditEvents models.Result[[]models.AuditEvent]
}

// Merge builds the consolidated record of one issue from its base data, the
// project statuses found for it and its enrichment.
func Merge(repository models.Repository, raw models.RawIssue, statuses []models.ProjectStatus, enrichment Enrichment, opts Options) models.ConsolidatedIssue {
	repositoryID := repository.ID()
	key := models.Key(repositoryID, raw.Number)

	issue := models.ConsolidatedIssue{
		Type:         classifyIssue(key, raw.Labels),
		RepositoryID: repositoryID,
		Title:        raw.Title,
		Body:         raw.Body,
		IssueNumber:  raw.Number,
		State:        raw.State,
		CreatedAt:    raw.CreatedAt,
		UpdatedAt:    raw.UpdatedAt,
		HTMLURL:      models.IssueURL(opts.Domain, repositoryID, raw.Number),
		Labels:       append([]string{}, raw.Labels...),
		Details:      enrichment.Details,
		AuditEvents:  enrichment.AuditEvents,
	}

	if issue.UpdatedAt.Before(issue.CreatedAt) {
		issue.UpdatedAt = issue.CreatedAt
	}

	switch raw.State {
	case models.StateClosed:
		if raw.ClosedAt != nil {
			closedAt := *raw.ClosedAt
			issue.ClosedAt = &closedAt
		} else {
			logging.Warn("closed issue without closed_at, using updated_at", "issue", key)
			closedAt := issue.UpdatedAt
			issue.ClosedAt = &closedAt
		}
	default:
		issue.ClosedAt = nil
		// GitHub keeps closed_by on reopened issues
		if details, ok := issue.Details.Get(); ok && details.ClosedBy != "" {
			details.ClosedBy = ""
			issue.Details.Value = details
		}
	}

	if opts.ProjectStateMining {
		issue.ProjectStatus = FilterProjects(statuses, repository.ProjectsTitleFilter)
	}
	if issue.ProjectStatus == nil {
		issue.ProjectStatus = []models.ProjectStatus{}
	}
	issue.LinkedToProject = len(issue.ProjectStatus) > 0

	// The last comment pair is only kept when the issue has comments and
	// both values were read.
	details, detailsOK := enrichment.Details.Get()
	comment, commentOK := enrichment.LastComment.Get()
	if detailsOK && details.CommentsCount > 0 && commentOK && comment.Author != "" && !comment.CreatedAt.IsZero() {
		issue.LastComment = enrichment.LastComment
	} else {
		issue.LastComment = models.Unavailable[models.Comment](enrichment.LastComment.Err)
	}

	return issue
}
