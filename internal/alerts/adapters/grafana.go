package adapters

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/pytorch/alerting-infra/internal/alerterr"
	"github.com/pytorch/alerting-infra/internal/alerts"
)

// GrafanaAdapter transforms Grafana unified-alerting webhook payloads.
type GrafanaAdapter struct{}

// NewGrafanaAdapter creates a new Grafana adapter.
func NewGrafanaAdapter() *GrafanaAdapter {
	return &GrafanaAdapter{}
}

// Source returns the provider name.
func (a *GrafanaAdapter) Source() string { return "grafana" }

// grafanaPayload is the unified-alerting webhook envelope.
type grafanaPayload struct {
	Receiver string         `json:"receiver"`
	Status   string         `json:"status"`
	OrgID    int64          `json:"orgId"`
	Alerts   []grafanaAlert `json:"alerts"`
}

// grafanaAlert is a single alert within a grouped webhook.
type grafanaAlert struct {
	Status       string            `json:"status"`
	Labels       map[string]string `json:"labels"`
	Annotations  map[string]string `json:"annotations"`
	StartsAt     string            `json:"startsAt"`
	EndsAt       string            `json:"endsAt"`
	Fingerprint  string            `json:"fingerprint"`
	GeneratorURL string            `json:"generatorURL"`
	DashboardURL string            `json:"dashboardURL"`
	PanelURL     string            `json:"panelURL"`
	SilenceURL   string            `json:"silenceURL"`
}

// Transform parses a Grafana webhook into canonical events, one per
// grouped alert.
func (a *GrafanaAdapter) Transform(payload []byte, env alerts.Envelope) ([]alerts.AlertEvent, error) {
	var p grafanaPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, withDebugContext(
			alerterr.Validation("unparseable grafana payload"),
			a.Source(), env, "", "", "")
	}
	if len(p.Alerts) == 0 {
		return nil, withDebugContext(
			alerterr.Validation("grafana payload contains no alerts", "alerts"),
			a.Source(), env, "", "", "")
	}

	events := make([]alerts.AlertEvent, 0, len(p.Alerts))
	for i := range p.Alerts {
		ev, err := a.transformAlert(&p, &p.Alerts[i], payload, env)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

func (a *GrafanaAdapter) transformAlert(p *grafanaPayload, al *grafanaAlert, raw []byte, env alerts.Envelope) (alerts.AlertEvent, error) {
	// Per-alert status wins over the group-level status.
	status := al.Status
	if status == "" {
		status = p.Status
	}
	state, ok := parseState(status)
	if !ok {
		return alerts.AlertEvent{}, withDebugContext(
			alerterr.Validationf("unrecognized grafana state %q", status),
			a.Source(), env, a.bestTitle(al), a.annotation(al, "team"), al.GeneratorURL)
	}

	// A rule-specific descriptive label beats the generic alertname.
	title := a.bestTitle(al)
	if title == "" {
		return alerts.AlertEvent{}, withDebugContext(
			alerterr.Validation("missing alert title", "title"),
			a.Source(), env, "", a.annotation(al, "team"), al.GeneratorURL)
	}
	title = alerts.Truncate(title, alerts.MaxTitleLen)

	priority, ok := alerts.ParsePriority(a.annotation(al, "priority"))
	if !ok {
		return alerts.AlertEvent{}, withDebugContext(
			alerterr.Validation("missing or invalid priority annotation", "priority"),
			a.Source(), env, title, a.annotation(al, "team"), al.GeneratorURL)
	}

	// The plural Teams annotation takes precedence over the legacy
	// singular Team.
	teamsRaw := a.annotation(al, "teams")
	if teamsRaw == "" {
		teamsRaw = a.annotation(al, "team")
	}
	teams, err := alerts.ParseTeams(teamsRaw)
	if err != nil {
		return alerts.AlertEvent{}, withDebugContext(
			asValidation(err, "teams"), a.Source(), env, title, teamsRaw, al.GeneratorURL)
	}

	occurredAt, err := a.occurredAt(al, state)
	if err != nil {
		return alerts.AlertEvent{}, withDebugContext(
			alerterr.Validation("missing or invalid state-change timestamp", "occurred_at"),
			a.Source(), env, title, teamsRaw, al.GeneratorURL)
	}

	identity := make(map[string]string)
	if p.OrgID > 0 {
		identity["org_id"] = strconv.FormatInt(p.OrgID, 10)
	}
	if uid := al.Labels["__alert_rule_uid__"]; uid != "" {
		identity["rule_id"] = uid
	} else if uid := al.Labels["rule_id"]; uid != "" {
		identity["rule_id"] = uid
	}

	links := alerts.Links{}
	if u, ok := alerts.ValidateURL(al.GeneratorURL); ok {
		links.SourceURL = u
	}
	if u, ok := alerts.ValidateURL(a.annotation(al, "runbook_url")); ok {
		links.RunbookURL = u
	}
	if u, ok := alerts.ValidateURL(al.DashboardURL); ok {
		links.DashboardURL = u
	}
	if u, ok := alerts.ValidateURL(al.SilenceURL); ok {
		links.SilenceURL = u
	}

	return alerts.AlertEvent{
		SchemaVersion: alerts.SchemaVersion,
		Source:        a.Source(),
		State:         state,
		Title:         title,
		Summary:       alerts.Truncate(a.annotation(al, "summary"), alerts.MaxTextLen),
		Description:   alerts.Truncate(a.annotation(al, "description"), alerts.MaxTextLen),
		Priority:      priority,
		OccurredAt:    occurredAt,
		Teams:         teams,
		Identity:      identity,
		Links:         links,
		RawProvider:   raw,
	}, nil
}

// bestTitle prefers the rule-specific rulename label over the generic
// alertname label. The order is fixed so extraction stays deterministic.
func (a *GrafanaAdapter) bestTitle(al *grafanaAlert) string {
	if v := al.Labels["rulename"]; v != "" {
		return v
	}
	return al.Labels["alertname"]
}

// annotation looks up an annotation by name, accepting the capitalized
// spellings Grafana rule authors commonly use ("Priority", "Team").
func (a *GrafanaAdapter) annotation(al *grafanaAlert, name string) string {
	if v := al.Annotations[name]; v != "" {
		return v
	}
	if v := al.Annotations[capitalize(name)]; v != "" {
		return v
	}
	return ""
}

// occurredAt picks the provider's state-change time: EndsAt for resolved
// alerts when Grafana populated it, StartsAt otherwise.
func (a *GrafanaAdapter) occurredAt(al *grafanaAlert, state alerts.State) (time.Time, error) {
	if state == alerts.StateResolved && al.EndsAt != "" {
		if t, err := time.Parse(time.RFC3339, al.EndsAt); err == nil && t.Year() > 1 {
			return t.UTC(), nil
		}
	}
	t, err := time.Parse(time.RFC3339, al.StartsAt)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-('a'-'A')) + s[1:]
}

// asValidation coerces a ParseTeams error into a typed validation error.
func asValidation(err error, field string) *alerterr.Error {
	if e, ok := err.(*alerterr.Error); ok {
		return e
	}
	return alerterr.Validation(err.Error(), field)
}
