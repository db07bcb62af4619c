package github

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	gh "github.com/google/go-github/v68/github"
	"github.com/gregjones/httpcache"
	"golang.org/x/oauth2"

	"thoreinstein.com/designcheck/pkg/config"
	rigerrors "thoreinstein.com/designcheck/pkg/errors"
)

const commentsPerPage = 100

// APIClient implements Client using the GitHub REST API.
type APIClient struct {
	client *gh.Client
	owner  string
	repo   string
	logger *slog.Logger
}

// APIClientOption is a functional option for configuring APIClient.
type APIClientOption func(*APIClient)

// WithAPILogger sets a custom logger for the API client.
func WithAPILogger(logger *slog.Logger) APIClientOption {
	return func(c *APIClient) {
		c.logger = logger
	}
}

// NewAPIClient creates a GitHub API client for the configured repository.
// Requests pass through, outermost first:
//  1. oauth2 (token auth)
//  2. go-github-ratelimit (sleeps on secondary rate limits)
//  3. httpcache (ETag conditional requests)
func NewAPIClient(cfg *config.GitHubConfig, opts ...APIClientOption) (*APIClient, error) {
	if cfg == nil {
		return nil, rigerrors.NewGitHubError("NewAPIClient", "github config is required")
	}
	if cfg.Token == "" {
		return nil, rigerrors.NewGitHubError("NewAPIClient", "token is required")
	}
	owner, repo, err := cfg.OwnerRepo()
	if err != nil {
		return nil, err
	}

	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	tc := oauth2.NewClient(context.WithValue(context.Background(), oauth2.HTTPClient, rateLimitClient), ts)

	client := gh.NewClient(tc)
	if cfg.APIURL != "" {
		client, err = client.WithEnterpriseURLs(cfg.APIURL, cfg.APIURL)
		if err != nil {
			return nil, rigerrors.NewGitHubErrorWithCause("NewAPIClient", "invalid api_url "+cfg.APIURL, err)
		}
	}

	return newAPIClient(client, owner, repo, opts...), nil
}

// NewAPIClientWithHTTPClient creates an APIClient that sends every request
// through httpClient to baseURL. It exists for tests.
func NewAPIClientWithHTTPClient(httpClient *http.Client, baseURL, owner, repo string, opts ...APIClientOption) (*APIClient, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, rigerrors.NewGitHubErrorWithCause("NewAPIClient", "invalid base URL", err)
	}

	client := gh.NewClient(httpClient)
	client.BaseURL = u

	return newAPIClient(client, owner, repo, opts...), nil
}

func newAPIClient(client *gh.Client, owner, repo string, opts ...APIClientOption) *APIClient {
	c := &APIClient{
		client: client,
		owner:  owner,
		repo:   repo,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetPR retrieves pull request information by number.
func (c *APIClient) GetPR(ctx context.Context, number int) (*PRInfo, error) {
	c.logDebug("fetching pull request", "repo", c.owner+"/"+c.repo, "number", number)

	pr, resp, err := c.client.PullRequests.Get(ctx, c.owner, c.repo, number)
	if err != nil {
		return nil, toGitHubError("GetPR", resp, err)
	}

	return prInfoFromGitHub(pr), nil
}

// ListComments returns every issue comment on the pull request, following
// pagination until the last page.
func (c *APIClient) ListComments(ctx context.Context, number int) ([]Comment, error) {
	opts := &gh.IssueListCommentsOptions{
		ListOptions: gh.ListOptions{PerPage: commentsPerPage},
	}

	var all []Comment
	for {
		page, resp, err := c.client.Issues.ListComments(ctx, c.owner, c.repo, number, opts)
		if err != nil {
			return nil, toGitHubError("ListComments", resp, err)
		}
		for _, ic := range page {
			all = append(all, commentFromGitHub(ic))
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	c.logDebug("listed comments", "number", number, "count", len(all))
	return all, nil
}

// CreateComment posts a new comment on the pull request.
func (c *APIClient) CreateComment(ctx context.Context, number int, body string) (*Comment, error) {
	ic, resp, err := c.client.Issues.CreateComment(ctx, c.owner, c.repo, number, &gh.IssueComment{Body: gh.Ptr(body)})
	if err != nil {
		return nil, toGitHubError("CreateComment", resp, err)
	}

	comment := commentFromGitHub(ic)
	c.logDebug("created comment", "number", number, "id", comment.ID)
	return &comment, nil
}

// UpdateComment replaces the body of comment id.
func (c *APIClient) UpdateComment(ctx context.Context, id int64, body string) (*Comment, error) {
	ic, resp, err := c.client.Issues.EditComment(ctx, c.owner, c.repo, id, &gh.IssueComment{Body: gh.Ptr(body)})
	if err != nil {
		return nil, toGitHubError("UpdateComment", resp, err)
	}

	comment := commentFromGitHub(ic)
	c.logDebug("updated comment", "id", id)
	return &comment, nil
}

// CreateStatus sets a commit status on sha. Descriptions longer than GitHub
// accepts are truncated.
func (c *APIClient) CreateStatus(ctx context.Context, sha string, status Status) error {
	if sha == "" {
		return rigerrors.NewGitHubError("CreateStatus", "commit SHA is required")
	}

	rs := &gh.RepoStatus{
		State:       gh.Ptr(string(status.State)),
		Context:     gh.Ptr(status.Context),
		Description: gh.Ptr(truncate(status.Description, maxStatusDescription)),
	}
	if status.TargetURL != "" {
		rs.TargetURL = gh.Ptr(status.TargetURL)
	}

	_, resp, err := c.client.Repositories.CreateStatus(ctx, c.owner, c.repo, sha, rs)
	if err != nil {
		return toGitHubError("CreateStatus", resp, err)
	}

	c.logDebug("set commit status", "sha", sha, "context", status.Context, "state", status.State)
	return nil
}

// prInfoFromGitHub converts a go-github PullRequest to PRInfo.
func prInfoFromGitHub(pr *gh.PullRequest) *PRInfo {
	return &PRInfo{
		Number:     pr.GetNumber(),
		Title:      pr.GetTitle(),
		Body:       pr.GetBody(),
		State:      pr.GetState(),
		URL:        pr.GetHTMLURL(),
		HeadSHA:    pr.GetHead().GetSHA(),
		HeadBranch: pr.GetHead().GetRef(),
		BaseBranch: pr.GetBase().GetRef(),
		Author:     pr.GetUser().GetLogin(),
		CreatedAt:  pr.GetCreatedAt().Time,
		UpdatedAt:  pr.GetUpdatedAt().Time,
	}
}

func commentFromGitHub(ic *gh.IssueComment) Comment {
	user := ic.GetUser()
	return Comment{
		ID:        ic.GetID(),
		Body:      ic.GetBody(),
		Author:    user.GetLogin(),
		IsBot:     user.GetType() == "Bot" || strings.HasSuffix(user.GetLogin(), "[bot]"),
		URL:       ic.GetHTMLURL(),
		CreatedAt: ic.GetCreatedAt().Time,
		UpdatedAt: ic.GetUpdatedAt().Time,
	}
}

// toGitHubError converts a go-github error to a GitHubError.
func toGitHubError(operation string, resp *gh.Response, err error) error {
	if resp != nil && resp.StatusCode > 0 {
		return rigerrors.NewGitHubErrorWithStatus(operation, resp.StatusCode, err.Error())
	}
	return rigerrors.NewGitHubErrorWithCause(operation, "API request failed", err)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// logDebug logs a debug message if a logger is configured.
func (c *APIClient) logDebug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
