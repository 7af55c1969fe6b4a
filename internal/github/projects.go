package github

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/danielolaszy/doc-issues/internal/logging"
	"github.com/danielolaszy/doc-issues/pkg/models"
	"github.com/google/go-github/v41/github"
)

// graphqlPath is resolved against the REST base URL: api.github.com/graphql on
// github.com and <host>/api/graphql on GitHub Enterprise.
const graphqlPath = "../graphql"

// Project field names mined from the board.
const (
	fieldStatus   = "Status"
	fieldPriority = "Priority"
	fieldSize     = "Size"
	fieldMoSCoW   = "MoSCoW"
)

const projectsFromRepositoryQuery = `
query($owner: String!, $name: String!) {
  repository(owner: $owner, name: $name) {
    projectsV2(first: 100) {
      nodes {
        id
        number
        title
      }
    }
  }
}`

const itemsFromProjectQuery = `
query($id: ID!, $first: Int!, $after: String) {
  node(id: $id) {
    ... on ProjectV2 {
      items(first: $first, after: $after) {
        pageInfo {
          endCursor
          hasNextPage
        }
        nodes {
          content {
            ... on Issue {
              number
              repository {
                name
                owner {
                  login
                }
              }
            }
          }
          fieldValues(first: 100) {
            nodes {
              __typename
              ... on ProjectV2ItemFieldSingleSelectValue {
                name
                field {
                  ... on ProjectV2FieldCommon {
                    name
                  }
                }
              }
            }
          }
        }
      }
    }
  }
}`

// Project is a GitHub Projects (v2) board linked to a repository.
type Project struct {
	ID     string `json:"id"`
	Number int    `json:"number"`
	Title  string `json:"title"`
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

type projectsData struct {
	Repository *struct {
		ProjectsV2 struct {
			Nodes []Project `json:"nodes"`
		} `json:"projectsV2"`
	} `json:"repository"`
}

type projectItemsData struct {
	Node *struct {
		Items struct {
			PageInfo struct {
				EndCursor   string `json:"endCursor"`
				HasNextPage bool   `json:"hasNextPage"`
			} `json:"pageInfo"`
			Nodes []projectItemNode `json:"nodes"`
		} `json:"items"`
	} `json:"node"`
}

type projectItemNode struct {
	Content *struct {
		Number     int `json:"number"`
		Repository *struct {
			Name  string `json:"name"`
			Owner struct {
				Login string `json:"login"`
			} `json:"owner"`
		} `json:"repository"`
	} `json:"content"`
	FieldValues struct {
		Nodes []struct {
			Typename string `json:"__typename"`
			Name     string `json:"name"`
			Field    *struct {
				Name string `json:"name"`
			} `json:"field"`
		} `json:"nodes"`
	} `json:"fieldValues"`
}

// query sends a GraphQL query through the go-github transport and decodes
// the data member into out.
func (c *Client) query(ctx context.Context, operation, query string, variables map[string]any, out any) error {
	var resp graphqlResponse
	err := c.call(ctx, operation, func(ctx context.Context) (*github.Response, error) {
		req, err := c.client.NewRequest("POST", graphqlPath, graphqlRequest{Query: query, Variables: variables})
		if err != nil {
			return nil, err
		}
		resp = graphqlResponse{}
		return c.client.Do(ctx, req, &resp)
	})
	if err != nil {
		return fmt.Errorf("graphql %s: %w", operation, err)
	}

	if len(resp.Errors) > 0 {
		messages := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			messages = append(messages, e.Message)
		}
		logging.Error("graphql query returned errors", "operation", operation, "errors", messages)
		if resp.Errors[0].Type == "NOT_FOUND" || resp.Errors[0].Type == "FORBIDDEN" {
			return fmt.Errorf("%w: graphql %s: %s", ErrUnavailable, operation, strings.Join(messages, "; "))
		}
		return fmt.Errorf("graphql %s: %s", operation, strings.Join(messages, "; "))
	}

	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("graphql %s: decode data: %w", operation, err)
	}
	return nil
}

// RepositoryProjects lists the project boards linked to a repository.
func (c *Client) RepositoryProjects(ctx context.Context, repository models.Repository) ([]Project, error) {
	var data projectsData
	err := c.query(ctx, "projects.list", projectsFromRepositoryQuery, map[string]any{
		"owner": repository.Owner,
		"name":  repository.Name,
	}, &data)
	if err != nil {
		return nil, err
	}
	if data.Repository == nil {
		return nil, fmt.Errorf("%w: repository %s not found", ErrUnavailable, repository.ID())
	}
	return data.Repository.ProjectsV2.Nodes, nil
}

// ProjectItems lists the issue items of a project board that belong to the
// given repository, with their single-select field values.
func (c *Client) ProjectItems(ctx context.Context, project Project, repository models.Repository) ([]models.ProjectItem, error) {
	var items []models.ProjectItem
	var after *string
	for {
		var data projectItemsData
		err := c.query(ctx, "projects.items", itemsFromProjectQuery, map[string]any{
			"id":    project.ID,
			"first": perPage,
			"after": after,
		}, &data)
		if err != nil {
			return nil, err
		}
		if data.Node == nil {
			return nil, fmt.Errorf("%w: project %q not found", ErrUnavailable, project.Title)
		}

		for _, node := range data.Node.Items.Nodes {
			item, ok := toProjectItem(node, project.Title)
			if !ok {
				continue
			}
			if !strings.EqualFold(item.Owner, repository.Owner) || !strings.EqualFold(item.Repository, repository.Name) {
				continue
			}
			items = append(items, item)
		}

		pageInfo := data.Node.Items.PageInfo
		if !pageInfo.HasNextPage {
			break
		}
		cursor := pageInfo.EndCursor
		after = &cursor
	}
	return items, nil
}

// toProjectItem converts an item node; drafts and pull requests have no
// issue content and are reported as not ok.
func toProjectItem(node projectItemNode, projectTitle string) (models.ProjectItem, bool) {
	if node.Content == nil || node.Content.Repository == nil || node.Content.Number == 0 {
		return models.ProjectItem{}, false
	}

	item := models.ProjectItem{
		Owner:       node.Content.Repository.Owner.Login,
		Repository:  node.Content.Repository.Name,
		IssueNumber: node.Content.Number,
		Status:      models.ProjectStatus{ProjectTitle: projectTitle},
	}
	for _, value := range node.FieldValues.Nodes {
		if value.Typename != "ProjectV2ItemFieldSingleSelectValue" || value.Field == nil {
			continue
		}
		switch value.Field.Name {
		case fieldStatus:
			item.Status.Status = value.Name
		case fieldPriority:
			item.Status.Priority = value.Name
		case fieldSize:
			item.Status.Size = value.Name
		case fieldMoSCoW:
			item.Status.MoSCoW = value.Name
		}
	}
	return item, true
}

// FetchProjectItems collects the board rows of the projects linked to the
// repository. Projects excluded by the repository's title filter are not
// queried; callers still apply the filter to the returned statuses.
func (c *Client) FetchProjectItems(ctx context.Context, repository models.Repository) ([]models.ProjectItem, error) {
	projects, err := c.RepositoryProjects(ctx, repository)
	if err != nil {
		return nil, err
	}

	if len(projects) == 0 {
		logging.Info("no project data found for repository", "repository", repository.ID())
		return nil, nil
	}
	logging.Info("found repository projects", "repository", repository.ID(), "count", len(projects))

	var all []models.ProjectItem
	for _, project := range projects {
		if !titleAllowed(project.Title, repository.ProjectsTitleFilter) {
			logging.Debug("skipping filtered project", "repository", repository.ID(), "project", project.Title)
			continue
		}
		logging.Debug("fetching project items", "repository", repository.ID(), "project", project.Title)
		items, err := c.ProjectItems(ctx, project, repository)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch items of project %q: %w", project.Title, err)
		}
		all = append(all, items...)
	}
	return all, nil
}

func titleAllowed(title string, filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, f := range filter {
		if f == title {
			return true
		}
	}
	return false
}
