package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseIssue() ConsolidatedIssue {
	return ConsolidatedIssue{
		Type:          TypeFeature,
		RepositoryID:  "fin-services/investment-app",
		Title:         "Feature <Title> & more",
		IssueNumber:   123,
		State:         StateOpen,
		CreatedAt:     time.Date(2024, 1, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600)),
		UpdatedAt:     time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC),
		HTMLURL:       IssueURL("github.com", "fin-services/investment-app", 123),
		Labels:        []string{"DocumentedFeature"},
		ProjectStatus: []ProjectStatus{},
	}
}

func decode(t *testing.T, issue ConsolidatedIssue) map[string]any {
	t.Helper()
	data, err := json.Marshal(issue)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestIssueTypeText(t *testing.T) {
	tests := []struct {
		typ  IssueType
		want string
	}{
		{TypeIssue, "Issue"},
		{TypeFeature, "FeatureIssue"},
		{TypeUserStory, "UserStoryIssue"},
		{TypeFunctionality, "FunctionalityIssue"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			text, err := tt.typ.MarshalText()
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(text))

			var parsed IssueType
			require.NoError(t, parsed.UnmarshalText(text))
			assert.Equal(t, tt.typ, parsed)
		})
	}

	_, err := IssueType(42).MarshalText()
	assert.Error(t, err)
}

func TestParseIssueState(t *testing.T) {
	state, err := ParseIssueState("CLOSED")
	require.NoError(t, err)
	assert.Equal(t, StateClosed, state)

	_, err = ParseIssueState("merged")
	assert.Error(t, err)
}

func TestMarshalUnavailableEnrichmentOmitsFields(t *testing.T) {
	out := decode(t, baseIssue())

	for _, key := range []string{"created_by", "closed_by", "comments_count", "last_commented_at", "last_commented_by", "audit_events"} {
		assert.NotContains(t, out, key)
	}
	assert.Equal(t, "FeatureIssue", out["type"])
	assert.Equal(t, "2024-01-01T09:00:00Z", out["created_at"])
	assert.Nil(t, out["closed_at"])
	assert.Contains(t, out, "closed_at")
	assert.Nil(t, out["body"])
	assert.Equal(t, []any{}, out["project_status"])
}

func TestMarshalDetails(t *testing.T) {
	issue := baseIssue()
	issue.Details = Fetched(IssueDetails{CreatedBy: "alice", CommentsCount: 0})
	out := decode(t, issue)

	assert.Equal(t, "alice", out["created_by"])
	assert.Contains(t, out, "closed_by")
	assert.Nil(t, out["closed_by"])
	assert.Equal(t, float64(0), out["comments_count"])

	issue.Details = Fetched(IssueDetails{CreatedBy: "alice", ClosedBy: "bob", CommentsCount: 3})
	out = decode(t, issue)
	assert.Equal(t, "bob", out["closed_by"])
}

func TestMarshalLastCommentPair(t *testing.T) {
	issue := baseIssue()
	issue.LastComment = Fetched(Comment{Author: "carol", CreatedAt: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)})
	out := decode(t, issue)
	assert.Equal(t, "carol", out["last_commented_by"])
	assert.Equal(t, "2024-01-03T00:00:00Z", out["last_commented_at"])

	issue.LastComment = Fetched(Comment{Author: "carol"})
	out = decode(t, issue)
	assert.NotContains(t, out, "last_commented_by")
	assert.NotContains(t, out, "last_commented_at")
}

func TestMarshalAuditEvents(t *testing.T) {
	issue := baseIssue()
	issue.AuditEvents = Empty[[]AuditEvent]()
	out := decode(t, issue)
	assert.Equal(t, []any{}, out["audit_events"])

	event, err := NewAuditEvent(ActionLabeled, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "alice", "DocumentedFeature")
	require.NoError(t, err)
	issue.AuditEvents = Fetched([]AuditEvent{event})
	out = decode(t, issue)
	require.Len(t, out["audit_events"], 1)
	assert.Equal(t, map[string]any{
		"action":    "labeled",
		"timestamp": "2024-01-01T00:00:00Z",
		"actor":     "alice",
		"label":     "DocumentedFeature",
	}, out["audit_events"].([]any)[0])
}

func TestMarshalDoesNotEscapeHTML(t *testing.T) {
	data, err := baseIssue().MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Feature <Title> & more"`)
}

func TestAuditEventPayloads(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		action  AuditAction
		wantKey string
	}{
		{ActionLabeled, "label"},
		{ActionUnlabeled, "label"},
		{ActionAssigned, "assignee"},
		{ActionUnassigned, "assignee"},
		{ActionMilestoned, "milestone"},
		{ActionDemilestoned, "milestone"},
		{ActionReopened, ""},
		{ActionClosed, ""},
	}
	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			event, err := NewAuditEvent(tt.action, ts, "alice", "value")
			require.NoError(t, err)

			data, err := json.Marshal(event)
			require.NoError(t, err)
			var out map[string]any
			require.NoError(t, json.Unmarshal(data, &out))

			for _, key := range []string{"label", "assignee", "milestone"} {
				if key == tt.wantKey {
					assert.Equal(t, "value", out[key])
				} else {
					assert.NotContains(t, out, key)
				}
			}
		})
	}

	_, err := NewAuditEvent(AuditAction("subscribed"), ts, "alice", "")
	assert.Error(t, err)
	_, ok := ParseAuditAction("mentioned")
	assert.False(t, ok)
}

func TestResult(t *testing.T) {
	var zero Result[int]
	assert.False(t, zero.Available())
	assert.Equal(t, "unavailable", zero.Outcome.String())

	failed := Unavailable[int](errors.New("boom"))
	_, ok := failed.Get()
	assert.False(t, ok)
	assert.EqualError(t, failed.Err, "boom")

	value, ok := Fetched(7).Get()
	assert.True(t, ok)
	assert.Equal(t, 7, value)

	assert.True(t, Empty[int]().Available())
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "org/repo#5", Key("org/repo", 5))
	assert.Equal(t, "org/repo#5", ProjectItem{Owner: "org", Repository: "repo", IssueNumber: 5}.Key())
	assert.Equal(t, "https://ghe.example.com/org/repo/issues/5", IssueURL("ghe.example.com", "org/repo", 5))
	assert.True(t, RunInfo{}.IsZero())
}
