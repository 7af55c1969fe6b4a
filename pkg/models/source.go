package models

import (
	"fmt"
	"time"
)

// Repository identifies a configured repository and its project title filter.
type Repository struct {
	// Owner is the organization or user owning the repository
	Owner string

	// Name is the repository name
	Name string

	// ProjectsTitleFilter limits project state mining to boards with these titles.
	// Empty means every board.
	ProjectsTitleFilter []string
}

// ID returns the "owner/repo" identifier.
func (r Repository) ID() string {
	return fmt.Sprintf("%s/%s", r.Owner, r.Name)
}

// RawIssue is the base issue data returned by the Issues API.
type RawIssue struct {
	// Number is the issue number in GitHub (e.g., 42)
	Number int

	// Title is the issue's title or summary
	Title string

	// Body is the issue description, nil when the issue has none
	Body *string

	// State is the current state of the issue
	State IssueState

	// CreatedAt is the timestamp when the issue was created
	CreatedAt time.Time

	// UpdatedAt is the timestamp when the issue was last updated
	UpdatedAt time.Time

	// ClosedAt is the timestamp when the issue was closed
	ClosedAt *time.Time

	// HTMLURL is the web URL reported by the API, may be empty
	HTMLURL string

	// Labels is a slice of label names attached to the issue
	Labels []string
}

// IssueDetails holds the per-issue fields that need a separate lookup.
type IssueDetails struct {
	CreatedBy     string
	ClosedBy      string
	CommentsCount int
}

// Comment summarizes the most recent comment on an issue.
type Comment struct {
	Author    string
	CreatedAt time.Time
}

// TimelineEntry is one raw event from the issue timeline API.
type TimelineEntry struct {
	Event     string
	Actor     string
	CreatedAt time.Time
	Label     string
	Assignee  string
	Milestone string
}

// ProjectItem is an issue's row on a GitHub Projects board.
type ProjectItem struct {
	// Owner and Repository locate the issue the item points to
	Owner      string
	Repository string

	// IssueNumber is the number of the linked issue
	IssueNumber int

	// Status holds the board field values, tagged with the project title
	Status ProjectStatus
}

// Key returns the issue key the item belongs to.
func (p ProjectItem) Key() string {
	return Key(fmt.Sprintf("%s/%s", p.Owner, p.Repository), p.IssueNumber)
}
