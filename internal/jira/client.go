package jira

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dt-pm-tools/jira-sync/internal/config"
)

// ErrNotFound is returned when JIRA answers 404. Callers treat it as an
// answer ("the issue does not exist"), not as a failure.
var ErrNotFound = errors.New("jira: not found")

// APIError is any other non-2xx response. It carries the raw body so the
// caller can log what JIRA complained about.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("JIRA API %s %s returned %d: %s", e.Method, e.Path, e.StatusCode, strings.TrimSpace(e.Body))
}

// DefaultTimeout bounds every request made by a Client.
const DefaultTimeout = 30 * time.Second

// Client is a JIRA REST API v3 client.
type Client struct {
	baseURL    string
	apiBase    string
	authHeader string
	httpClient *http.Client
}

// NewClient creates a new JIRA client from the given config.
func NewClient(cfg config.Config) *Client {
	creds := base64.StdEncoding.EncodeToString([]byte(cfg.Email + ":" + cfg.Token))
	baseURL := strings.TrimRight(cfg.URL, "/")
	return &Client{
		baseURL:    baseURL,
		apiBase:    baseURL + "/rest/api/3",
		authHeader: "Basic " + creds,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// BrowseURL returns the human-facing link for an issue key.
func (c *Client) BrowseURL(key string) string {
	return fmt.Sprintf("%s/browse/%s", c.baseURL, key)
}

// GetIssue fetches a single issue by key. It returns ErrNotFound when the
// issue does not exist (or is not visible to the configured user).
func (c *Client) GetIssue(ctx context.Context, key string) (*Issue, error) {
	path := fmt.Sprintf("/issue/%s?fields=summary,status,issuetype,updated", url.PathEscape(key))

	var issue Issue
	if err := c.do(ctx, http.MethodGet, path, nil, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// CreateIssue creates an issue from the given fields.
func (c *Client) CreateIssue(ctx context.Context, fields FieldSet) (*CreatedIssue, error) {
	var created CreatedIssue
	if err := c.do(ctx, http.MethodPost, "/issue", IssuePayload{Fields: fields}, &created); err != nil {
		return nil, err
	}
	if created.Key == "" {
		return nil, fmt.Errorf("create issue: response carried no key")
	}
	return &created, nil
}

// UpdateIssue updates an issue's fields.
func (c *Client) UpdateIssue(ctx context.Context, key string, fields FieldSet) error {
	path := fmt.Sprintf("/issue/%s", url.PathEscape(key))
	return c.do(ctx, http.MethodPut, path, IssuePayload{Fields: fields}, nil)
}

// GetProject fetches a project with its issue types.
func (c *Client) GetProject(ctx context.Context, key string) (*Project, error) {
	path := fmt.Sprintf("/project/%s", url.PathEscape(key))

	var project Project
	if err := c.do(ctx, http.MethodGet, path, nil, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// GetCreateMeta fetches the creatable fields per issue type for a project.
func (c *Client) GetCreateMeta(ctx context.Context, projectKey string) (*CreateMeta, error) {
	path := fmt.Sprintf("/issue/createmeta?projectKeys=%s&expand=projects.issuetypes.fields", url.QueryEscape(projectKey))

	var meta CreateMeta
	if err := c.do(ctx, http.MethodGet, path, nil, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// do executes one request against the API base. A nil out discards the
// response body; 204 and empty bodies are success.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshalling payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}
