package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danielolaszy/doc-issues/internal/config"
	"github.com/danielolaszy/doc-issues/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRepository = models.Repository{Owner: "fin-services", Name: "investment-app"}

// newTestClient starts a server that mimics a GitHub Enterprise instance,
// REST under /api/v3/ and GraphQL at /api/graphql.
func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := newClient(server.Client(), server.URL+"/api/v3/", "github.example.com")
	require.NoError(t, err)
	client.retryFloor = time.Millisecond
	client.retryCeil = 5 * time.Millisecond
	return client
}

// TestGitHubDomainToAPIURL tests the logic that converts a domain to an API URL
func TestGitHubDomainToAPIURL(t *testing.T) {
	testCases := []struct {
		name           string
		domain         string
		expectedAPIURL string
	}{
		{
			name:           "Default GitHub.com",
			domain:         "github.com",
			expectedAPIURL: "https://api.github.com/",
		},
		{
			name:           "GitHub Enterprise",
			domain:         "github.example.com",
			expectedAPIURL: "https://github.example.com/api/v3/",
		},
		{
			name:           "Empty Domain (should default to github.com)",
			domain:         "",
			expectedAPIURL: "https://api.github.com/",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			apiURL := apiURL(tc.domain)
			assert.Equal(t, tc.expectedAPIURL, apiURL)

			parsedURL, err := url.Parse(apiURL)
			require.NoError(t, err)
			assert.Equal(t, apiURL, parsedURL.String())
		})
	}
}

func TestGraphQLPathResolution(t *testing.T) {
	testCases := []struct {
		base     string
		expected string
	}{
		{base: "https://api.github.com/", expected: "https://api.github.com/graphql"},
		{base: "https://github.example.com/api/v3/", expected: "https://github.example.com/api/graphql"},
	}

	for _, tc := range testCases {
		base, err := url.Parse(tc.base)
		require.NoError(t, err)
		resolved, err := base.Parse(graphqlPath)
		require.NoError(t, err)
		assert.Equal(t, tc.expected, resolved.String())
	}
}

func TestNewClientRequiresToken(t *testing.T) {
	_, err := NewClient(config.GitHubConfig{Domain: "github.com"})
	assert.Error(t, err)
}

// TestRepositoryValidation tests the repository format validation shared by all fetchers
func TestRepositoryValidation(t *testing.T) {
	client := &Client{}

	_, err := client.FetchIssues(context.Background(), models.Repository{Owner: "", Name: "repo"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRepository))

	err = client.CheckRepository(context.Background(), "invalid-repo-format")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid repository format")
}

func TestFetchIssuesDeduplicatesAndSkipsPullRequests(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/fin-services/investment-app/issues", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "all", r.URL.Query().Get("state"))
		switch r.URL.Query().Get("labels") {
		case models.LabelDocumentedFeature:
			fmt.Fprint(w, `[
				{"number": 123, "title": "Feature Title", "state": "open", "body": "text",
				 "created_at": "2024-01-01T10:00:00Z", "updated_at": "2024-01-02T10:00:00Z",
				 "html_url": "https://github.com/fin-services/investment-app/issues/123",
				 "labels": [{"name": "DocumentedFeature"}, {"name": "DocumentedUserStory"}]},
				{"number": 124, "title": "A pull request", "state": "open",
				 "pull_request": {"url": "https://api.github.com/repos/fin-services/investment-app/pulls/124"}}
			]`)
		case models.LabelDocumentedUserStory:
			fmt.Fprint(w, `[
				{"number": 123, "title": "Feature Title", "state": "open",
				 "labels": [{"name": "DocumentedFeature"}, {"name": "DocumentedUserStory"}]},
				{"number": 7, "title": "Story", "state": "closed",
				 "created_at": "2024-01-01T10:00:00Z", "updated_at": "2024-01-03T10:00:00Z",
				 "closed_at": "2024-01-03T10:00:00Z", "labels": [{"name": "DocumentedUserStory"}]}
			]`)
		default:
			fmt.Fprint(w, `[]`)
		}
	})
	client := newTestClient(t, mux)

	issues, err := client.FetchIssues(context.Background(), testRepository)
	require.NoError(t, err)
	require.Len(t, issues, 2)

	assert.Equal(t, 123, issues[0].Number)
	assert.Equal(t, models.StateOpen, issues[0].State)
	require.NotNil(t, issues[0].Body)
	assert.Equal(t, "text", *issues[0].Body)
	assert.Nil(t, issues[0].ClosedAt)
	assert.Equal(t, []string{"DocumentedFeature", "DocumentedUserStory"}, issues[0].Labels)

	assert.Equal(t, 7, issues[1].Number)
	assert.Equal(t, models.StateClosed, issues[1].State)
	assert.Nil(t, issues[1].Body)
	require.NotNil(t, issues[1].ClosedAt)
}

func TestFetchIssuesRepositoryNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/fin-services/investment-app/issues", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "Not Found"}`)
	})
	client := newTestClient(t, mux)

	_, err := client.FetchIssues(context.Background(), testRepository)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestFetchIssueDetails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/fin-services/investment-app/issues/7", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"number": 7, "state": "closed", "comments": 3,
			"user": {"login": "author"}, "closed_by": {"login": "closer"}}`)
	})
	client := newTestClient(t, mux)

	details, err := client.FetchIssueDetails(context.Background(), testRepository, 7)
	require.NoError(t, err)
	assert.Equal(t, models.IssueDetails{CreatedBy: "author", ClosedBy: "closer", CommentsCount: 3}, details)
}

func TestFetchLastComment(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/fin-services/investment-app/issues/7/comments", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("per_page"))
		assert.Equal(t, "3", r.URL.Query().Get("page"))
		fmt.Fprint(w, `[{"user": {"login": "commenter"}, "created_at": "2024-02-01T08:30:00Z"}]`)
	})
	client := newTestClient(t, mux)

	comment, ok, err := client.FetchLastComment(context.Background(), testRepository, 7, 3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "commenter", comment.Author)
	assert.Equal(t, time.Date(2024, 2, 1, 8, 30, 0, 0, time.UTC), comment.CreatedAt.UTC())

	_, ok, err = client.FetchLastComment(context.Background(), testRepository, 7, 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFetchTimeline(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/fin-services/investment-app/issues/7/timeline", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"event": "labeled", "actor": {"login": "alice"}, "created_at": "2024-01-01T10:00:00Z", "label": {"name": "DocumentedUserStory"}},
			{"event": "assigned", "actor": {"login": "alice"}, "created_at": "2024-01-01T11:00:00Z", "assignee": {"login": "bob"}},
			{"event": "commented", "actor": {"login": "carol"}, "created_at": "2024-01-01T12:00:00Z"}
		]`)
	})
	mux.HandleFunc("/api/v3/repos/fin-services/investment-app/issues/8/timeline", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message": "Resource not accessible by integration"}`)
	})
	client := newTestClient(t, mux)

	entries, err := client.FetchTimeline(context.Background(), testRepository, 7)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "labeled", entries[0].Event)
	assert.Equal(t, "DocumentedUserStory", entries[0].Label)
	assert.Equal(t, "bob", entries[1].Assignee)
	assert.Equal(t, "commented", entries[2].Event)

	_, err = client.FetchTimeline(context.Background(), testRepository, 8)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.True(t, IsUnavailable(err))
}

func TestCallRetriesServerErrors(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/fin-services/investment-app/issues/7", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			fmt.Fprint(w, `{"message": "Bad Gateway"}`)
			return
		}
		fmt.Fprint(w, `{"number": 7, "user": {"login": "author"}}`)
	})
	client := newTestClient(t, mux)

	details, err := client.FetchIssueDetails(context.Background(), testRepository, 7)
	require.NoError(t, err)
	assert.Equal(t, "author", details.CreatedBy)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestCallDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/fin-services/investment-app/issues/7", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "Not Found"}`)
	})
	client := newTestClient(t, mux)

	_, err := client.FetchIssueDetails(context.Background(), testRepository, 7)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchProjectItems(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/graphql", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		body, err := io.ReadAll(r.Body)
		if !assert.NoError(t, err) {
			return
		}

		var req graphqlRequest
		if !assert.NoError(t, json.Unmarshal(body, &req)) {
			return
		}

		switch {
		case strings.Contains(req.Query, "projectsV2"):
			assert.Equal(t, "fin-services", req.Variables["owner"])
			fmt.Fprint(w, `{"data": {"repository": {"projectsV2": {"nodes": [
				{"id": "P1", "number": 1, "title": "Project Name"},
				{"id": "P2", "number": 2, "title": "Backlog"}
			]}}}}`)
		case req.Variables["id"] == "P1" && req.Variables["after"] == nil:
			fmt.Fprint(w, `{"data": {"node": {"items": {
				"pageInfo": {"endCursor": "c1", "hasNextPage": true},
				"nodes": [
					{"content": {"number": 123, "repository": {"name": "investment-app", "owner": {"login": "fin-services"}}},
					 "fieldValues": {"nodes": [
						{"__typename": "ProjectV2ItemFieldSingleSelectValue", "name": "In Progress", "field": {"name": "Status"}},
						{"__typename": "ProjectV2ItemFieldSingleSelectValue", "name": "High", "field": {"name": "Priority"}},
						{"__typename": "ProjectV2ItemFieldTextValue"}
					 ]}},
					{"content": {}, "fieldValues": {"nodes": []}}
				]}}}}`)
		case req.Variables["id"] == "P1":
			assert.Equal(t, "c1", req.Variables["after"])
			fmt.Fprint(w, `{"data": {"node": {"items": {
				"pageInfo": {"endCursor": "c2", "hasNextPage": false},
				"nodes": [
					{"content": {"number": 5, "repository": {"name": "other-app", "owner": {"login": "fin-services"}}},
					 "fieldValues": {"nodes": []}},
					{"content": {"number": 124, "repository": {"name": "investment-app", "owner": {"login": "fin-services"}}},
					 "fieldValues": {"nodes": [
						{"__typename": "ProjectV2ItemFieldSingleSelectValue", "name": "Must", "field": {"name": "MoSCoW"}},
						{"__typename": "ProjectV2ItemFieldSingleSelectValue", "name": "S", "field": {"name": "Size"}}
					 ]}}
				]}}}}`)
		default:
			t.Errorf("unexpected query for project %v", req.Variables["id"])
			fmt.Fprint(w, `{"data": {"node": null}}`)
		}
	})
	client := newTestClient(t, mux)

	repository := testRepository
	repository.ProjectsTitleFilter = []string{"Project Name"}
	items, err := client.FetchProjectItems(context.Background(), repository)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "fin-services/investment-app#123", items[0].Key())
	assert.Equal(t, models.ProjectStatus{ProjectTitle: "Project Name", Status: "In Progress", Priority: "High"}, items[0].Status)
	assert.Equal(t, models.ProjectStatus{ProjectTitle: "Project Name", Size: "S", MoSCoW: "Must"}, items[1].Status)
}

func TestGraphQLErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/graphql", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": {"repository": null}, "errors": [{"type": "NOT_FOUND",
			"message": "Could not resolve to a Repository with the name 'fin-services/investment-app'."}]}`)
	})
	client := newTestClient(t, mux)

	_, err := client.FetchProjectItems(context.Background(), testRepository)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
}
