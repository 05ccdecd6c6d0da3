package adapters

import (
	"encoding/json"
	"time"

	"github.com/pytorch/alerting-infra/internal/alerterr"
	"github.com/pytorch/alerting-infra/internal/alerts"
)

// CanonicalAdapter validates payloads that third-party emitters declare as
// already canonical. There is no extraction fallback here, so every
// violation is collected and the whole set reported in one error, and an
// invalid link is fatal rather than dropped.
type CanonicalAdapter struct{}

// NewCanonicalAdapter creates a new canonical pass-through adapter.
func NewCanonicalAdapter() *CanonicalAdapter {
	return &CanonicalAdapter{}
}

// Source returns the provider name used when the payload declares none.
func (a *CanonicalAdapter) Source() string { return "canonical" }

// canonicalEvent mirrors the wire shape of a pre-normalized event.
// The legacy singular "team" field is accepted for compatibility; the
// plural "teams" wins when both are present.
type canonicalEvent struct {
	SchemaVersion int               `json:"schema_version"`
	Source        string            `json:"source"`
	State         string            `json:"state"`
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	Summary       string            `json:"summary"`
	Reason        string            `json:"reason"`
	Priority      string            `json:"priority"`
	OccurredAt    string            `json:"occurred_at"`
	Teams         []string          `json:"teams"`
	Team          string            `json:"team"`
	Identity      map[string]string `json:"identity"`
	Links         struct {
		RunbookURL   string `json:"runbook_url"`
		DashboardURL string `json:"dashboard_url"`
		SourceURL    string `json:"source_url"`
		SilenceURL   string `json:"silence_url"`
	} `json:"links"`
}

// Transform structurally validates a self-declared canonical payload.
func (a *CanonicalAdapter) Transform(payload []byte, env alerts.Envelope) ([]alerts.AlertEvent, error) {
	var c canonicalEvent
	if err := json.Unmarshal(payload, &c); err != nil {
		return nil, withDebugContext(
			alerterr.Validation("unparseable canonical payload"),
			a.Source(), env, "", "", "")
	}

	var violations []string
	ev := alerts.AlertEvent{
		SchemaVersion: c.SchemaVersion,
		Source:        c.Source,
		Title:         alerts.Truncate(c.Title, alerts.MaxTitleLen),
		Description:   alerts.Truncate(c.Description, alerts.MaxTextLen),
		Summary:       alerts.Truncate(c.Summary, alerts.MaxTextLen),
		Reason:        alerts.Truncate(c.Reason, alerts.MaxTextLen),
		Identity:      c.Identity,
		RawProvider:   payload,
	}

	switch alerts.State(c.State) {
	case alerts.StateFiring, alerts.StateResolved:
		ev.State = alerts.State(c.State)
	default:
		violations = append(violations, "state")
	}

	if p, ok := alerts.ParsePriority(c.Priority); ok {
		ev.Priority = p
	} else {
		violations = append(violations, "priority")
	}

	if t, err := time.Parse(time.RFC3339, c.OccurredAt); err == nil {
		ev.OccurredAt = t.UTC()
	} else {
		violations = append(violations, "occurred_at")
	}

	teams, err := a.parseTeams(&c)
	if err != nil {
		violations = append(violations, "teams")
	} else {
		ev.Teams = teams
	}

	// Strict link rule: a declared but invalid URL has no fallback path,
	// so it fails validation instead of being dropped.
	violations = append(violations, a.parseLinks(&c, &ev)...)

	if len(violations) > 0 {
		return nil, withDebugContext(
			alerterr.Validation("canonical payload failed validation", dedupe(violations)...),
			a.Source(), env, c.Title, c.Team, c.Links.SourceURL)
	}

	if verr := ev.Validate(); verr != nil {
		if e, ok := verr.(*alerterr.Error); ok {
			return nil, withDebugContext(e, a.Source(), env, c.Title, c.Team, c.Links.SourceURL)
		}
		return nil, verr
	}
	return []alerts.AlertEvent{ev}, nil
}

func (a *CanonicalAdapter) parseTeams(c *canonicalEvent) ([]string, error) {
	if len(c.Teams) > 0 {
		normalized := make([]string, 0, len(c.Teams))
		for _, t := range c.Teams {
			if n := alerts.NormalizeTeam(t); n != "" {
				normalized = append(normalized, n)
			}
		}
		if len(normalized) == 0 || len(normalized) > alerts.MaxTeams {
			return nil, alerterr.Validation("invalid teams list", "teams")
		}
		for _, t := range normalized {
			if len(t) > alerts.MaxTeamLen {
				return nil, alerterr.Validation("team name too long", "teams")
			}
		}
		return normalized, nil
	}
	return alerts.ParseTeams(c.Team)
}

func (a *CanonicalAdapter) parseLinks(c *canonicalEvent, ev *alerts.AlertEvent) []string {
	var violations []string
	set := func(raw string, dst *string, field string) {
		if raw == "" {
			return
		}
		u, ok := alerts.ValidateURL(raw)
		if !ok {
			violations = append(violations, field)
			return
		}
		*dst = u
	}
	set(c.Links.RunbookURL, &ev.Links.RunbookURL, "links.runbook_url")
	set(c.Links.DashboardURL, &ev.Links.DashboardURL, "links.dashboard_url")
	set(c.Links.SourceURL, &ev.Links.SourceURL, "links.source_url")
	set(c.Links.SilenceURL, &ev.Links.SilenceURL, "links.silence_url")
	return violations
}

func dedupe(fields []string) []string {
	seen := make(map[string]bool, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}
