package jira

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"thoreinstein.com/designcheck/pkg/config"
	rigerrors "thoreinstein.com/designcheck/pkg/errors"
)

const defaultTimeout = 30 * time.Second

// Compile-time interface check
var _ JiraClient = (*APIClient)(nil)

// APIClient implements JiraClient using Jira Cloud REST API v3
type APIClient struct {
	baseURL    string
	email      string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewAPIClient creates a new API-based Jira client.
func NewAPIClient(cfg *config.JiraConfig, logger *slog.Logger) (*APIClient, error) {
	if cfg.BaseURL == "" {
		return nil, rigerrors.NewConfigError("jira.base_url", "jira base_url is required")
	}
	if cfg.Email == "" {
		return nil, rigerrors.NewConfigError("jira.email", "jira email is required")
	}
	if cfg.Token == "" {
		return nil, rigerrors.NewConfigError("jira.token", "jira token is required (set JIRA_API_TOKEN)")
	}

	return &APIClient{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		email:      cfg.Email,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}, nil
}

// SetHTTPClient replaces the HTTP client (used by tests).
func (c *APIClient) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// jiraIssueResponse represents the relevant parts of a Jira API v3 issue response.
type jiraIssueResponse struct {
	Key    string `json:"key"`
	Fields struct {
		Summary     string `json:"summary"`
		Description *Node  `json:"description"`
		Comment     *struct {
			Comments []jiraComment `json:"comments"`
		} `json:"comment"`
	} `json:"fields"`
}

type jiraComment struct {
	Author *struct {
		DisplayName string `json:"displayName"`
	} `json:"author"`
	Body *Node `json:"body"`
}

// GetTicketContent fetches the ticket and flattens its summary, description
// and comments into one text blob.
// GET /rest/api/3/issue/{issueKey}?fields=summary,description,comment
func (c *APIClient) GetTicketContent(ctx context.Context, key string) (*TicketContent, error) {
	endpoint := fmt.Sprintf("%s/rest/api/3/issue/%s?fields=%s",
		c.baseURL, url.PathEscape(key), url.QueryEscape("summary,description,comment"))

	c.logDebug("fetching jira ticket", "ticket", key)

	body, err := c.do(ctx, "GetTicket", key, http.MethodGet, endpoint, nil, http.StatusOK)
	if err != nil {
		return nil, err
	}

	var resp jiraIssueResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, rigerrors.NewJiraErrorWithCause("GetTicket", key, "failed to parse response", err)
	}

	content := &TicketContent{
		Key:     key,
		Summary: resp.Fields.Summary,
		Text:    buildTicketText(resp),
	}

	c.logDebug("fetched jira ticket", "ticket", key, "chars", len(content.Text))

	return content, nil
}

func buildTicketText(resp jiraIssueResponse) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Summary: %s\n", resp.Fields.Summary)

	if desc := Flatten(resp.Fields.Description); desc != "" {
		b.WriteString("\nDescription:\n")
		b.WriteString(desc)
		b.WriteString("\n")
	}

	if resp.Fields.Comment != nil {
		for i, cm := range resp.Fields.Comment.Comments {
			text := Flatten(cm.Body)
			if text == "" {
				continue
			}
			author := "unknown"
			if cm.Author != nil && cm.Author.DisplayName != "" {
				author = cm.Author.DisplayName
			}
			fmt.Fprintf(&b, "\nComment %d (%s):\n%s\n", i+1, author, text)
		}
	}

	return strings.TrimSpace(b.String())
}

// AddComment posts text to the ticket as an ADF document.
// POST /rest/api/3/issue/{issueKey}/comment
func (c *APIClient) AddComment(ctx context.Context, key, text string) error {
	endpoint := fmt.Sprintf("%s/rest/api/3/issue/%s/comment", c.baseURL, url.PathEscape(key))

	payload, err := json.Marshal(map[string]any{"body": TextDocument(text)})
	if err != nil {
		return rigerrors.NewJiraErrorWithCause("AddComment", key, "failed to marshal request body", err)
	}

	c.logDebug("adding jira comment", "ticket", key, "chars", len(text))

	_, err = c.do(ctx, "AddComment", key, http.MethodPost, endpoint, payload, http.StatusCreated)
	return err
}

// do executes one request and returns the body when the status matches want.
func (c *APIClient) do(ctx context.Context, op, ticket, method, endpoint string, payload []byte, want int) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, rigerrors.NewJiraErrorWithCause(op, ticket, "failed to create request", err)
	}

	// Basic Auth: base64(email:token)
	auth := base64.StdEncoding.EncodeToString([]byte(c.email + ":" + c.token))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, rigerrors.NewJiraErrorWithCause(op, ticket, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, rigerrors.NewJiraErrorWithCause(op, ticket, "failed to read response body", err)
	}

	if resp.StatusCode != want {
		return nil, handleHTTPError(op, ticket, resp.StatusCode, body)
	}

	return body, nil
}

// handleHTTPError returns a JiraError for non-success responses.
func handleHTTPError(op, ticket string, statusCode int, body []byte) error {
	switch statusCode {
	case http.StatusUnauthorized:
		return rigerrors.NewJiraErrorWithStatus(op, ticket, statusCode, "authentication failed: check your email and API token")
	case http.StatusForbidden:
		return rigerrors.NewJiraErrorWithStatus(op, ticket, statusCode, "access denied: check your permissions")
	case http.StatusNotFound:
		return rigerrors.NewJiraErrorWithStatus(op, ticket, statusCode, "ticket not found")
	}

	var errResp struct {
		ErrorMessages []string          `json:"errorMessages"`
		Errors        map[string]string `json:"errors"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil {
		msgs := append([]string{}, errResp.ErrorMessages...)
		for field, msg := range errResp.Errors {
			msgs = append(msgs, field+": "+msg)
		}
		if len(msgs) > 0 {
			return rigerrors.NewJiraErrorWithStatus(op, ticket, statusCode, strings.Join(msgs, "; "))
		}
	}
	return rigerrors.NewJiraErrorWithStatus(op, ticket, statusCode, http.StatusText(statusCode))
}

// logDebug logs a debug message if a logger is configured.
func (c *APIClient) logDebug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
