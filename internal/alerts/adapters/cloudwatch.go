package adapters

import (
	"encoding/json"
	"time"

	"github.com/pytorch/alerting-infra/internal/alerterr"
	"github.com/pytorch/alerting-infra/internal/alerts"
)

// CloudWatch publishes StateChangeTime in a non-RFC3339 layout.
const cloudWatchTimeLayout = "2006-01-02T15:04:05.000-0700"

// CloudWatchAdapter transforms CloudWatch alarm state-change notifications,
// either raw or wrapped in an SNS envelope.
type CloudWatchAdapter struct{}

// NewCloudWatchAdapter creates a new CloudWatch adapter.
func NewCloudWatchAdapter() *CloudWatchAdapter {
	return &CloudWatchAdapter{}
}

// Source returns the provider name.
func (a *CloudWatchAdapter) Source() string { return "cloudwatch" }

// snsEnvelope is the SNS notification wrapper around an alarm message.
type snsEnvelope struct {
	Type    string `json:"Type"`
	Message string `json:"Message"`
}

// cloudWatchAlarm is the alarm state-change document.
type cloudWatchAlarm struct {
	AlarmName        string `json:"AlarmName"`
	AlarmDescription string `json:"AlarmDescription"`
	AlarmArn         string `json:"AlarmArn"`
	AWSAccountID     string `json:"AWSAccountId"`
	Region           string `json:"Region"`
	NewStateValue    string `json:"NewStateValue"`
	NewStateReason   string `json:"NewStateReason"`
	StateChangeTime  string `json:"StateChangeTime"`
}

// Transform parses a CloudWatch alarm notification into one canonical
// event. Routing metadata (teams, priority, runbook) is carried in the
// AlarmDescription mini-language.
func (a *CloudWatchAdapter) Transform(payload []byte, env alerts.Envelope) ([]alerts.AlertEvent, error) {
	alarm, err := a.unwrap(payload)
	if err != nil {
		return nil, withDebugContext(
			alerterr.Validation("unparseable cloudwatch payload"),
			a.Source(), env, "", "", "")
	}

	if alarm.AlarmName == "" {
		return nil, withDebugContext(
			alerterr.Validation("missing alarm name", "title"),
			a.Source(), env, "", "", "")
	}
	title := alerts.Truncate(alarm.AlarmName, alerts.MaxTitleLen)

	var state alerts.State
	switch alarm.NewStateValue {
	case "ALARM":
		state = alerts.StateFiring
	case "OK":
		state = alerts.StateResolved
	default:
		return nil, withDebugContext(
			alerterr.Validationf("unrecognized cloudwatch state %q", alarm.NewStateValue),
			a.Source(), env, title, "", "")
	}

	// TEAMS / PRIORITY / RUNBOOK ride in the alarm description. An
	// unparseable description simply yields no directives; the absence of
	// the required ones is what fails validation.
	directives, _ := ParseDirectives(alarm.AlarmDescription)

	teams, err := alerts.ParseTeams(directives["TEAMS"])
	if err != nil {
		return nil, withDebugContext(
			asValidation(err, "teams"), a.Source(), env, title, directives["TEAMS"], "")
	}

	priority, ok := alerts.ParsePriority(directives["PRIORITY"])
	if !ok {
		return nil, withDebugContext(
			alerterr.Validation("missing or invalid PRIORITY directive", "priority"),
			a.Source(), env, title, directives["TEAMS"], "")
	}

	occurredAt, err := a.parseStateChangeTime(alarm.StateChangeTime)
	if err != nil {
		return nil, withDebugContext(
			alerterr.Validation("missing or invalid StateChangeTime", "occurred_at"),
			a.Source(), env, title, directives["TEAMS"], "")
	}

	identity := make(map[string]string)
	if alarm.AWSAccountID != "" {
		identity["account_id"] = alarm.AWSAccountID
	}
	if alarm.Region != "" {
		identity["region"] = alarm.Region
	}
	if alarm.AlarmArn != "" {
		identity["alarm_arn"] = alarm.AlarmArn
	}

	links := alerts.Links{}
	if u, ok := alerts.ValidateURL(directives["RUNBOOK"]); ok {
		links.RunbookURL = u
	}
	if u, ok := alerts.ValidateURL(directives["DASHBOARD"]); ok {
		links.DashboardURL = u
	}

	return []alerts.AlertEvent{{
		SchemaVersion: alerts.SchemaVersion,
		Source:        a.Source(),
		State:         state,
		Title:         title,
		Description:   alerts.Truncate(alarm.AlarmDescription, alerts.MaxTextLen),
		Reason:        alerts.Truncate(alarm.NewStateReason, alerts.MaxTextLen),
		Priority:      priority,
		OccurredAt:    occurredAt,
		Teams:         teams,
		Identity:      identity,
		Links:         links,
		RawProvider:   payload,
	}}, nil
}

// unwrap peels an optional SNS envelope off the alarm document.
func (a *CloudWatchAdapter) unwrap(payload []byte) (*cloudWatchAlarm, error) {
	var env snsEnvelope
	if err := json.Unmarshal(payload, &env); err == nil && env.Message != "" {
		var alarm cloudWatchAlarm
		if err := json.Unmarshal([]byte(env.Message), &alarm); err == nil && alarm.AlarmName != "" {
			return &alarm, nil
		}
	}
	var alarm cloudWatchAlarm
	if err := json.Unmarshal(payload, &alarm); err != nil {
		return nil, err
	}
	return &alarm, nil
}

func (a *CloudWatchAdapter) parseStateChangeTime(raw string) (time.Time, error) {
	if t, err := time.Parse(cloudWatchTimeLayout, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
