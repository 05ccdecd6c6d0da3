// Package adapters transforms provider webhook payloads into canonical
// alert events. Each adapter is pure: same payload in, same events out,
// with typed validation errors on anything the contract rejects.
package adapters

import (
	"strconv"
	"strings"

	"github.com/pytorch/alerting-infra/internal/alerterr"
	"github.com/pytorch/alerting-infra/internal/alerts"
)

// Adapter is the interface every provider transformer implements.
type Adapter interface {
	// Source returns the canonical provider name.
	Source() string

	// Transform parses one payload into canonical events. Grouped
	// payloads yield one event per alert.
	Transform(payload []byte, env alerts.Envelope) ([]alerts.AlertEvent, error)
}

// parseState maps provider status text to a canonical state.
func parseState(raw string) (alerts.State, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "firing", "alerting", "alarm":
		return alerts.StateFiring, true
	case "resolved", "ok":
		return alerts.StateResolved, true
	}
	return "", false
}

// withDebugContext stamps bounded triage context onto a typed error:
// source, transport metadata and whatever best-effort title/team the
// adapter extracted before failing.
func withDebugContext(e *alerterr.Error, source string, env alerts.Envelope, title, team, generatorURL string) *alerterr.Error {
	e.WithContext("source", source)
	e.WithContext("event_id", env.EventID)
	e.WithContext("ingest_topic", env.IngestTopic)
	e.WithContext("ingest_region", env.IngestRegion)
	if env.DeliveryAttempt > 0 {
		e.WithContext("delivery_attempt", strconv.Itoa(env.DeliveryAttempt))
	}
	e.WithContext("title", alerts.Truncate(title, 256))
	e.WithContext("team", alerts.Truncate(team, 256))
	e.WithContext("generator_url", alerts.Truncate(generatorURL, 512))
	return e
}
