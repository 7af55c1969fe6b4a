// Package models defines data structures shared across the application.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// IssueType is the documentation classification of a consolidated issue.
type IssueType int

const (
	// TypeIssue is the fallback for issues without a documentation label.
	TypeIssue IssueType = iota
	// TypeFeature marks an issue labeled DocumentedFeature.
	TypeFeature
	// TypeUserStory marks an issue labeled DocumentedUserStory.
	TypeUserStory
	// TypeFunctionality marks an issue labeled DocumentedRequirement.
	TypeFunctionality
)

var issueTypeNames = map[IssueType]string{
	TypeIssue:         "Issue",
	TypeFeature:       "FeatureIssue",
	TypeUserStory:     "UserStoryIssue",
	TypeFunctionality: "FunctionalityIssue",
}

func (t IssueType) String() string {
	if name, ok := issueTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("IssueType(%d)", int(t))
}

// MarshalText implements encoding.TextMarshaler.
func (t IssueType) MarshalText() ([]byte, error) {
	name, ok := issueTypeNames[t]
	if !ok {
		return nil, fmt.Errorf("unknown issue type %d", int(t))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *IssueType) UnmarshalText(text []byte) error {
	for k, name := range issueTypeNames {
		if name == string(text) {
			*t = k
			return nil
		}
	}
	return fmt.Errorf("unknown issue type %q", string(text))
}

// Documentation labels recognized on issues.
const (
	LabelDocumentedFeature       = "DocumentedFeature"
	LabelDocumentedUserStory     = "DocumentedUserStory"
	LabelDocumentedRequirement   = "DocumentedRequirement"
	LabelDocumentedFunctionality = "DocumentedFunctionality"
)

// DocumentationLabels lists the labels an issue is fetched by, in
// classification order.
func DocumentationLabels() []string {
	return []string{
		LabelDocumentedFeature,
		LabelDocumentedUserStory,
		LabelDocumentedRequirement,
		LabelDocumentedFunctionality,
	}
}

// IssueState is the GitHub state of an issue.
type IssueState string

const (
	StateOpen   IssueState = "open"
	StateClosed IssueState = "closed"
)

// ParseIssueState normalizes the state string returned by the REST or GraphQL API.
func ParseIssueState(s string) (IssueState, error) {
	switch strings.ToLower(s) {
	case "open":
		return StateOpen, nil
	case "closed":
		return StateClosed, nil
	}
	return "", fmt.Errorf("unknown issue state %q", s)
}

// ProjectStatus holds the board fields of an issue on one GitHub project.
type ProjectStatus struct {
	// ProjectTitle is the title of the project board
	ProjectTitle string `json:"project_title"`

	// Status is the value of the board's "Status" field
	Status string `json:"status"`

	// Priority is the value of the board's "Priority" field
	Priority string `json:"priority"`

	// Size is the value of the board's "Size" field
	Size string `json:"size"`

	// MoSCoW is the value of the board's "MoSCoW" field
	MoSCoW string `json:"moscow"`
}

// Key returns the run-wide unique key of an issue, e.g. "owner/repo#42".
func Key(repositoryID string, number int) string {
	return fmt.Sprintf("%s#%d", repositoryID, number)
}

// IssueURL derives the HTML URL of an issue from its repository and number.
func IssueURL(domain, repositoryID string, number int) string {
	if domain == "" {
		domain = "github.com"
	}
	return fmt.Sprintf("https://%s/%s/issues/%d", domain, repositoryID, number)
}

// TimeFormat is the timestamp layout used for every timestamp in the output.
const TimeFormat = time.RFC3339

// FormatTime renders t in UTC using TimeFormat.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// ConsolidatedIssue is the merged record of one GitHub issue, its project board
// state and its audit enrichment.
type ConsolidatedIssue struct {
	Type         IssueType
	RepositoryID string
	Title        string
	Body         *string
	IssueNumber  int
	State        IssueState
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ClosedAt     *time.Time
	HTMLURL      string
	Labels       []string

	LinkedToProject bool
	ProjectStatus   []ProjectStatus

	// Details is unavailable when the per-issue detail lookup failed; created_by,
	// closed_by and comments_count are then left out of the output.
	Details Result[IssueDetails]

	// LastComment is only fetched when the issue has comments.
	LastComment Result[Comment]

	// AuditEvents is unavailable when the timeline could not be read.
	AuditEvents Result[[]AuditEvent]
}

// Key returns the output key of the issue.
func (c ConsolidatedIssue) Key() string {
	return Key(c.RepositoryID, c.IssueNumber)
}

type issueJSON struct {
	Type            IssueType        `json:"type"`
	RepositoryID    string           `json:"repository_id"`
	Title           string           `json:"title"`
	IssueNumber     int              `json:"issue_number"`
	State           IssueState       `json:"state"`
	CreatedAt       string           `json:"created_at"`
	UpdatedAt       string           `json:"updated_at"`
	ClosedAt        *string          `json:"closed_at"`
	HTMLURL         string           `json:"html_url"`
	Body            *string          `json:"body"`
	Labels          []string         `json:"labels"`
	LinkedToProject bool             `json:"linked_to_project"`
	ProjectStatus   []ProjectStatus  `json:"project_status"`
	CreatedBy       *string          `json:"created_by,omitempty"`
	ClosedBy        *json.RawMessage `json:"closed_by,omitempty"`
	CommentsCount   *int             `json:"comments_count,omitempty"`
	LastCommentedAt *string          `json:"last_commented_at,omitempty"`
	LastCommentedBy *string          `json:"last_commented_by,omitempty"`
	AuditEvents     *[]AuditEvent    `json:"audit_events,omitempty"`
}

// MarshalJSON renders the issue in the doc-issues output shape. Fields whose
// enrichment was unavailable are absent rather than null.
func (c ConsolidatedIssue) MarshalJSON() ([]byte, error) {
	out := issueJSON{
		Type:            c.Type,
		RepositoryID:    c.RepositoryID,
		Title:           c.Title,
		IssueNumber:     c.IssueNumber,
		State:           c.State,
		CreatedAt:       FormatTime(c.CreatedAt),
		UpdatedAt:       FormatTime(c.UpdatedAt),
		HTMLURL:         c.HTMLURL,
		Body:            c.Body,
		Labels:          c.Labels,
		LinkedToProject: c.LinkedToProject,
		ProjectStatus:   c.ProjectStatus,
	}
	if out.Labels == nil {
		out.Labels = []string{}
	}
	if out.ProjectStatus == nil {
		out.ProjectStatus = []ProjectStatus{}
	}
	if c.ClosedAt != nil {
		closedAt := FormatTime(*c.ClosedAt)
		out.ClosedAt = &closedAt
	}

	if details, ok := c.Details.Get(); ok {
		createdBy := details.CreatedBy
		out.CreatedBy = &createdBy
		count := details.CommentsCount
		out.CommentsCount = &count

		closedBy := json.RawMessage("null")
		if details.ClosedBy != "" {
			encoded, err := marshal(details.ClosedBy)
			if err != nil {
				return nil, err
			}
			closedBy = encoded
		}
		out.ClosedBy = &closedBy
	}

	if comment, ok := c.LastComment.Get(); ok && comment.Author != "" && !comment.CreatedAt.IsZero() {
		at := FormatTime(comment.CreatedAt)
		by := comment.Author
		out.LastCommentedAt = &at
		out.LastCommentedBy = &by
	}

	if events, ok := c.AuditEvents.Get(); ok {
		if events == nil {
			events = []AuditEvent{}
		}
		out.AuditEvents = &events
	}

	return marshal(out)
}

// marshal encodes v without HTML escaping so titles and bodies stay readable.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
