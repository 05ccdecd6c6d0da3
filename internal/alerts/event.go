// Package alerts defines the canonical alert event model all provider
// adapters produce, plus the normalization helpers shared between them.
package alerts

import (
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pytorch/alerting-infra/internal/alerterr"
)

// SchemaVersion is the current canonical event schema version.
const SchemaVersion = 1

// Field bounds applied during normalization.
const (
	MaxTeams    = 10
	MaxTeamLen  = 50
	MaxTitleLen = 512
	MaxTextLen  = 4096
	MaxURLLen   = 2048
)

// State is the two-valued provider state after normalization.
type State string

const (
	StateFiring   State = "FIRING"
	StateResolved State = "RESOLVED"
)

// Priority is the required alert priority. There is no default: an event
// without a parseable priority fails validation.
type Priority string

const (
	PriorityP0 Priority = "P0"
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
	PriorityP3 Priority = "P3"
)

// ParsePriority maps provider text to a Priority.
func ParsePriority(raw string) (Priority, bool) {
	switch Priority(strings.ToUpper(strings.TrimSpace(raw))) {
	case PriorityP0:
		return PriorityP0, true
	case PriorityP1:
		return PriorityP1, true
	case PriorityP2:
		return PriorityP2, true
	case PriorityP3:
		return PriorityP3, true
	}
	return "", false
}

// Envelope carries transport metadata for one inbound message. It is used
// only as log/debug context and never participates in decisions.
type Envelope struct {
	ReceivedAt      time.Time
	IngestTopic     string
	IngestRegion    string
	DeliveryAttempt int
	EventID         string
}

// Links holds the optional operator URLs attached to an event. Each entry
// is either a validated http(s) URL or empty.
type Links struct {
	RunbookURL   string `json:"runbook_url,omitempty"`
	DashboardURL string `json:"dashboard_url,omitempty"`
	SourceURL    string `json:"source_url,omitempty"`
	SilenceURL   string `json:"silence_url,omitempty"`
}

// AlertEvent is the canonical event shape. Immutable once produced by an
// adapter: Title, Priority, Teams, OccurredAt and State are always set.
type AlertEvent struct {
	SchemaVersion int               `json:"schema_version"`
	Source        string            `json:"source"`
	State         State             `json:"state"`
	Title         string            `json:"title"`
	Description   string            `json:"description,omitempty"`
	Summary       string            `json:"summary,omitempty"`
	Reason        string            `json:"reason,omitempty"`
	Priority      Priority          `json:"priority"`
	OccurredAt    time.Time         `json:"occurred_at"`
	Teams         []string          `json:"teams"`
	Identity      map[string]string `json:"identity,omitempty"`
	Links         Links             `json:"links"`

	// RawProvider is the original payload, kept verbatim for debugging.
	// Never used in decisions.
	RawProvider []byte `json:"-"`
}

// NormalizedTitle returns the title as used for fingerprinting:
// trimmed and lower-cased. Display code keeps the original case.
func (e *AlertEvent) NormalizedTitle() string {
	return NormalizeTitle(e.Title)
}

// NormalizeTitle trims and lower-cases a title for fingerprinting.
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// NormalizeTeam lower-cases a team slug and collapses internal whitespace
// to hyphens.
func NormalizeTeam(team string) string {
	team = strings.ToLower(strings.TrimSpace(team))
	return strings.Join(strings.Fields(team), "-")
}

// ParseTeams parses a delimited team declaration ("a, b, c") into
// normalized slugs. Empty-after-trim entries are dropped. Zero surviving
// entries, more than MaxTeams entries, or any entry longer than MaxTeamLen
// is a validation error.
func ParseTeams(raw string) ([]string, error) {
	parts := strings.Split(raw, ",")
	teams := make([]string, 0, len(parts))
	for _, p := range parts {
		t := NormalizeTeam(p)
		if t == "" {
			continue
		}
		if len(t) > MaxTeamLen {
			return nil, alerterr.Validation("team name too long", "teams")
		}
		teams = append(teams, t)
	}
	if len(teams) == 0 {
		return nil, alerterr.Validation("no valid team names", "teams")
	}
	if len(teams) > MaxTeams {
		return nil, alerterr.Validation("too many teams", "teams")
	}
	return teams, nil
}

// ValidateURL checks that raw is a parseable, length-bounded http(s) URL.
// Returns the cleaned URL and whether it is usable.
func ValidateURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > MaxURLLen {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if u.Host == "" {
		return "", false
	}
	return u.String(), true
}

// Truncate bounds free-text fields to max bytes. A multi-byte rune at the
// cut point is dropped rather than split.
func Truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// Validate checks the event against the canonical contract and returns one
// aggregated validation error listing every violated field.
func (e *AlertEvent) Validate() error {
	var fields []string
	if e.SchemaVersion != SchemaVersion {
		fields = append(fields, "schema_version")
	}
	if strings.TrimSpace(e.Source) == "" {
		fields = append(fields, "source")
	}
	if e.State != StateFiring && e.State != StateResolved {
		fields = append(fields, "state")
	}
	if strings.TrimSpace(e.Title) == "" || len(e.Title) > MaxTitleLen {
		fields = append(fields, "title")
	}
	if _, ok := ParsePriority(string(e.Priority)); !ok {
		fields = append(fields, "priority")
	}
	if e.OccurredAt.IsZero() {
		fields = append(fields, "occurred_at")
	}
	if len(e.Teams) == 0 || len(e.Teams) > MaxTeams {
		fields = append(fields, "teams")
	} else {
		for _, t := range e.Teams {
			if t == "" || len(t) > MaxTeamLen {
				fields = append(fields, "teams")
				break
			}
		}
	}
	if len(e.Description) > MaxTextLen {
		fields = append(fields, "description")
	}
	if len(e.Summary) > MaxTextLen {
		fields = append(fields, "summary")
	}
	if len(e.Reason) > MaxTextLen {
		fields = append(fields, "reason")
	}
	if len(fields) > 0 {
		return alerterr.Validation("canonical event contract violated", fields...)
	}
	return nil
}
