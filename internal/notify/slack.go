// Package notify posts operator-facing Slack notices. Notification
// failures are logged and never propagate into pipeline results.
package notify

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/slack-go/slack"
)

// Notifier posts reconciliation notices to a Slack channel. A nil
// Notifier, or one built without a token, silently drops notices so the
// pipeline runs unchanged when Slack is not configured.
type Notifier struct {
	client  *slack.Client
	channel string
	log     *log.Logger
}

// NewNotifier creates a notifier for channel. An empty token disables it.
func NewNotifier(token, channel string) *Notifier {
	n := &Notifier{
		channel: channel,
		log:     log.With("component", "notify"),
	}
	if token != "" && channel != "" {
		n.client = slack.New(token)
	}
	return n
}

// Enabled reports whether notices will actually be sent.
func (n *Notifier) Enabled() bool {
	return n != nil && n.client != nil
}

// TrackerSyncFailed posts a notice that an alert's tracker update was
// skipped and its state needs reconciliation.
func (n *Notifier) TrackerSyncFailed(fingerprint, title, action string) {
	text := fmt.Sprintf(
		":warning: tracker sync failed for *%s* (action %s, fingerprint `%s`). State was saved; the issue needs manual reconciliation.",
		title, action, fingerprint,
	)
	n.post(text)
}

func (n *Notifier) post(text string) {
	if !n.Enabled() {
		return
	}
	_, _, err := n.client.PostMessage(n.channel, slack.MsgOptionText(text, false))
	if err != nil {
		n.log.Error("slack notice failed", "error", err)
	}
}
