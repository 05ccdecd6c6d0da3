// Package tracker is the issue-tracker client the lifecycle engine's
// actions are applied through. All mutating calls are routed through the
// resilience layer by the orchestrator.
package tracker

import "context"

// IssueRef identifies one external issue.
type IssueRef struct {
	Number int    `json:"number"`
	URL    string `json:"url"`
}

// Client is the consumed issue-tracker interface.
type Client interface {
	// CreateIssue opens a new issue and returns its reference.
	CreateIssue(ctx context.Context, title, body string, labels []string) (IssueRef, error)

	// CloseIssue closes an existing issue.
	CloseIssue(ctx context.Context, ref IssueRef) error

	// CommentOnIssue appends a comment to an existing issue.
	CommentOnIssue(ctx context.Context, ref IssueRef, body string) error

	// EnsureLabelsExist creates any missing labels; existing labels are
	// left untouched.
	EnsureLabelsExist(ctx context.Context, labels []string) error

	// IssueState reports the tracker-side state ("open" or "closed") of
	// an issue, used to detect out-of-band manual closure.
	IssueState(ctx context.Context, ref IssueRef) (string, error)
}
