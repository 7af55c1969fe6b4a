// Package github provides functionality for interacting with the GitHub API.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coder/retry"
	"github.com/danielolaszy/doc-issues/internal/config"
	"github.com/danielolaszy/doc-issues/internal/logging"
	"github.com/google/go-github/v41/github"
	"golang.org/x/oauth2"
)

const (
	// perPage is the page size used for every list call.
	perPage = 100

	defaultMaxAttempts = 4
)

// Client encapsulates the GitHub API client.
type Client struct {
	client *github.Client
	domain string

	maxAttempts int
	retryFloor  time.Duration
	retryCeil   time.Duration
}

// apiURL constructs the REST API URL for a GitHub domain.
func apiURL(domain string) string {
	if domain == "" || domain == "github.com" {
		return "https://api.github.com/"
	}
	return fmt.Sprintf("https://%s/api/v3/", domain)
}

// NewClient creates a GitHub API client authenticated with the configured token.
// Non github.com domains are treated as GitHub Enterprise instances.
func NewClient(cfg config.GitHubConfig) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("github token not found in configuration")
	}

	domain := cfg.Domain
	if domain == "" {
		domain = "github.com"
	}

	logging.Info("github configuration",
		"domain", domain,
		"api_url", apiURL(domain),
		"token", logging.MaskSensitive(cfg.Token))

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: cfg.Token},
	)
	tc := oauth2.NewClient(context.Background(), ts)

	return newClient(tc, apiURL(domain), domain)
}

// newClient builds a Client on top of an already authenticated HTTP client.
func newClient(httpClient *http.Client, baseURL, domain string) (*Client, error) {
	client := github.NewClient(httpClient)

	if baseURL != "https://api.github.com/" {
		parsedURL, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid github api url: %w", err)
		}
		if !strings.HasSuffix(parsedURL.Path, "/") {
			parsedURL.Path += "/"
		}
		client.BaseURL = parsedURL
		client.UploadURL = parsedURL
	}

	return &Client{
		client:      client,
		domain:      domain,
		maxAttempts: defaultMaxAttempts,
		retryFloor:  time.Second,
		retryCeil:   30 * time.Second,
	}, nil
}

// Domain returns the GitHub domain the client talks to.
func (c *Client) Domain() string {
	return c.domain
}

// Authenticate checks the token by fetching the authenticated user and
// returns its login.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	var user *github.User
	err := c.call(ctx, "users.get", func(ctx context.Context) (*github.Response, error) {
		var resp *github.Response
		var err error
		user, resp, err = c.client.Users.Get(ctx, "")
		return resp, err
	})
	if err != nil {
		return "", fmt.Errorf("error testing github token: %w", err)
	}

	logging.Info("github authentication successful", "username", user.GetLogin())
	return user.GetLogin(), nil
}

// CheckRepository verifies the repository exists and is readable.
func (c *Client) CheckRepository(ctx context.Context, repository string) error {
	owner, repo, err := splitRepository(repository)
	if err != nil {
		return err
	}

	err = c.call(ctx, "repositories.get", func(ctx context.Context) (*github.Response, error) {
		_, resp, err := c.client.Repositories.Get(ctx, owner, repo)
		return resp, err
	})
	if err != nil {
		if IsNotFound(err) {
			return fmt.Errorf("repository %s could not be found, verify it exists and the token can read it: %w", repository, err)
		}
		return fmt.Errorf("failed to validate repository %s: %w", repository, err)
	}
	return nil
}

// call runs fn, retrying with backoff while GitHub reports rate limiting or
// server errors. Other failures are returned immediately.
func (c *Client) call(ctx context.Context, operation string, fn func(context.Context) (*github.Response, error)) error {
	r := retry.New(c.retryFloor, c.retryCeil)
	for attempt := 1; ; attempt++ {
		_, err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= c.maxAttempts || !isRetryable(err) {
			return err
		}

		logging.Warn("retrying github call",
			"operation", operation,
			"attempt", attempt,
			"error", err)

		if !r.Wait(ctx) {
			return err
		}
	}
}

// splitRepository parses an "owner/repo" identifier.
func splitRepository(repository string) (string, string, error) {
	parts := strings.Split(repository, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %s, expected format: owner/repo", ErrInvalidRepository, repository)
	}
	return parts[0], parts[1], nil
}

// listAll collects every page of a go-github list call.
func listAll[T any](
	ctx context.Context,
	c *Client,
	operation string,
	get func(context.Context, *github.ListOptions) ([]T, *github.Response, error),
) ([]T, error) {
	var all []T
	opt := &github.ListOptions{PerPage: perPage}
	for {
		var (
			items []T
			resp  *github.Response
		)
		err := c.call(ctx, operation, func(ctx context.Context) (*github.Response, error) {
			var err error
			items, resp, err = get(ctx, opt)
			return resp, err
		})
		if err != nil {
			return nil, fmt.Errorf("list: %w", err)
		}
		all = append(all, items...)
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}
	return all, nil
}
