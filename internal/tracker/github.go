package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/pytorch/alerting-infra/internal/alerterr"
	"github.com/pytorch/alerting-infra/internal/secrets"
)

// TokenSecretKey is the secrets-provider key holding the GitHub token.
const TokenSecretKey = "GITHUB_TOKEN"

// GitHubClient implements Client against the GitHub Issues REST API.
type GitHubClient struct {
	baseURL    string
	owner      string
	repo       string
	secrets    secrets.Provider
	httpClient *http.Client
	log        *log.Logger
}

// NewGitHubClient creates a client for owner/repo. baseURL defaults to
// the public API when empty.
func NewGitHubClient(baseURL, owner, repo string, sp secrets.Provider) *GitHubClient {
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	return &GitHubClient{
		baseURL: baseURL,
		owner:   owner,
		repo:    repo,
		secrets: sp,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log.With("component", "tracker"),
	}
}

type issueResponse struct {
	Number  int    `json:"number"`
	HTMLURL string `json:"html_url"`
	State   string `json:"state"`
}

// CreateIssue opens a new issue.
func (c *GitHubClient) CreateIssue(ctx context.Context, title, body string, labels []string) (IssueRef, error) {
	reqBody := map[string]interface{}{
		"title":  title,
		"body":   body,
		"labels": labels,
	}
	var issue issueResponse
	if err := c.do(ctx, http.MethodPost, c.issuesPath(""), reqBody, &issue); err != nil {
		return IssueRef{}, err
	}
	c.log.Info("issue created", "number", issue.Number, "title", title)
	return IssueRef{Number: issue.Number, URL: issue.HTMLURL}, nil
}

// CloseIssue closes an existing issue.
func (c *GitHubClient) CloseIssue(ctx context.Context, ref IssueRef) error {
	reqBody := map[string]interface{}{"state": "closed"}
	if err := c.do(ctx, http.MethodPatch, c.issuesPath(fmt.Sprintf("/%d", ref.Number)), reqBody, nil); err != nil {
		return err
	}
	c.log.Info("issue closed", "number", ref.Number)
	return nil
}

// CommentOnIssue appends a comment to an existing issue.
func (c *GitHubClient) CommentOnIssue(ctx context.Context, ref IssueRef, body string) error {
	reqBody := map[string]interface{}{"body": body}
	return c.do(ctx, http.MethodPost, c.issuesPath(fmt.Sprintf("/%d/comments", ref.Number)), reqBody, nil)
}

// EnsureLabelsExist creates missing labels. A 422 from the create call
// means the label already exists and is not an error.
func (c *GitHubClient) EnsureLabelsExist(ctx context.Context, labels []string) error {
	for _, label := range labels {
		reqBody := map[string]interface{}{"name": label, "color": "ededed"}
		err := c.do(ctx, http.MethodPost,
			fmt.Sprintf("/repos/%s/%s/labels", c.owner, c.repo), reqBody, nil)
		if err != nil {
			if he, ok := err.(*httpError); ok && he.status == http.StatusUnprocessableEntity {
				continue
			}
			return err
		}
	}
	return nil
}

// IssueState reports the tracker-side state of an issue.
func (c *GitHubClient) IssueState(ctx context.Context, ref IssueRef) (string, error) {
	var issue issueResponse
	if err := c.do(ctx, http.MethodGet, c.issuesPath(fmt.Sprintf("/%d", ref.Number)), nil, &issue); err != nil {
		return "", err
	}
	return issue.State, nil
}

func (c *GitHubClient) issuesPath(suffix string) string {
	return fmt.Sprintf("/repos/%s/%s/issues%s", c.owner, c.repo, suffix)
}

// httpError carries the response status for callers that branch on it.
type httpError struct {
	status int
	body   string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("tracker returned %d: %s", e.status, e.body)
}

// do executes one API call. Timeouts, 5xx and 429 responses are
// transient; other non-2xx responses surface with their status.
func (c *GitHubClient) do(ctx context.Context, method, path string, reqBody interface{}, out interface{}) error {
	token, err := c.secrets.Get(TokenSecretKey)
	if err != nil {
		return alerterr.Transient("tracker token unavailable", err)
	}

	var bodyReader io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal tracker request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("build tracker request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+token)
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return alerterr.Transient("tracker call failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return alerterr.Transient("tracker response unreadable", err)
	}

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return alerterr.Transient(fmt.Sprintf("tracker returned %d", resp.StatusCode), nil)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &httpError{status: resp.StatusCode, body: truncateBody(data)}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode tracker response: %w", err)
		}
	}
	return nil
}

func truncateBody(data []byte) string {
	const max = 256
	if len(data) > max {
		data = data[:max]
	}
	return string(data)
}
