// Package pipeline wires adapters, the lifecycle engine, the state store
// and the tracker client into the end-to-end message processor.
package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/pytorch/alerting-infra/internal/alerterr"
	"github.com/pytorch/alerting-infra/internal/alerts"
	"github.com/pytorch/alerting-infra/internal/alerts/adapters"
	"github.com/pytorch/alerting-infra/internal/database"
	"github.com/pytorch/alerting-infra/internal/lifecycle"
	"github.com/pytorch/alerting-infra/internal/notify"
	"github.com/pytorch/alerting-infra/internal/resilience"
	"github.com/pytorch/alerting-infra/internal/store"
	"github.com/pytorch/alerting-infra/internal/tracker"
)

// Metadata is the transport metadata accompanying one inbound message.
type Metadata struct {
	ProviderHint string
	MessageID    string
	ReceiveCount int
	Topic        string
	Region       string
}

// Status is the message-level processing outcome.
type Status string

const (
	// StatusProcessed means every event reached a terminal decision. It
	// covers degraded successes where the tracker call was skipped.
	StatusProcessed Status = "processed"

	// StatusValidationFailed means the payload can never succeed and must
	// not be redelivered.
	StatusValidationFailed Status = "validation_failed"

	// StatusTransient means at least one event hit a retryable failure and
	// the message should be redelivered.
	StatusTransient Status = "transient"
)

// Outcome is the per-event result inside a message.
type Outcome struct {
	Action      lifecycle.Action `json:"action"`
	Fingerprint string           `json:"fingerprint"`
	IssueRef    string           `json:"issue_ref,omitempty"`
	Degraded    bool             `json:"degraded,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// Result is the processing result for one inbound message.
type Result struct {
	Status   Status    `json:"status"`
	Source   string    `json:"source,omitempty"`
	Outcomes []Outcome `json:"outcomes,omitempty"`
	Reason   string    `json:"reason,omitempty"`
}

// Processor runs the full ingest path for one message: detect the
// provider, transform to canonical events, decide lifecycle actions,
// apply tracker mutations through the resilience layer, and persist
// state with conditional writes.
type Processor struct {
	store        store.Store
	tracker      tracker.Client
	breaker      *resilience.Breaker
	limiter      *resilience.Limiter
	notifier     *notify.Notifier
	mutationWait time.Duration
	now          func() time.Time
	log          *log.Logger
}

// NewProcessor assembles a processor. mutationWait bounds how long a
// single tracker mutation may wait for a rate-limit token.
func NewProcessor(st store.Store, tc tracker.Client, br *resilience.Breaker, lim *resilience.Limiter, nf *notify.Notifier, mutationWait time.Duration) *Processor {
	return &Processor{
		store:        st,
		tracker:      tc,
		breaker:      br,
		limiter:      lim,
		notifier:     nf,
		mutationWait: mutationWait,
		now:          time.Now,
		log:          log.With("component", "pipeline"),
	}
}

// Process handles one inbound message end to end. A multi-alert payload
// yields one outcome per event; a transient failure on any event marks
// the whole message transient so the transport redelivers it.
func (p *Processor) Process(ctx context.Context, payload []byte, meta Metadata) Result {
	env := alerts.Envelope{
		ReceivedAt:      p.now().UTC(),
		IngestTopic:     meta.Topic,
		IngestRegion:    meta.Region,
		DeliveryAttempt: meta.ReceiveCount,
		EventID:         meta.MessageID,
	}
	if env.EventID == "" {
		env.EventID = uuid.NewString()
	}

	adapter := adapters.Detect(meta.ProviderHint, payload)
	events, err := adapter.Transform(payload, env)
	if err != nil {
		if alerterr.IsValidation(err) {
			metrics.GetOrCreateCounter(`alert_messages_total{status="validation_failed"}`).Inc()
			p.log.Warn("payload rejected", "source", adapter.Source(), "event_id", env.EventID, "error", err)
			return Result{Status: StatusValidationFailed, Source: adapter.Source(), Reason: err.Error()}
		}
		metrics.GetOrCreateCounter(`alert_messages_total{status="transient"}`).Inc()
		return Result{Status: StatusTransient, Source: adapter.Source(), Reason: err.Error()}
	}

	res := Result{Status: StatusProcessed, Source: adapter.Source()}
	for i := range events {
		ev := &events[i]
		metrics.GetOrCreateCounter(fmt.Sprintf(`alert_events_total{source=%q}`, ev.Source)).Inc()

		out := p.processEvent(ctx, ev, true)
		res.Outcomes = append(res.Outcomes, out)

		if out.Error != "" {
			res.Status = StatusTransient
			res.Reason = out.Error
		}
	}

	metrics.GetOrCreateCounter(fmt.Sprintf(`alert_messages_total{status=%q}`, string(res.Status))).Inc()
	return res
}

// processEvent runs one event to a terminal decision. retryOnConflict
// bounds recomputation to a single extra pass when a conditional write
// loses a race.
func (p *Processor) processEvent(ctx context.Context, ev *alerts.AlertEvent, retryOnConflict bool) Outcome {
	fp := alerts.Fingerprint(ev)
	out := Outcome{Fingerprint: fp}

	prior, err := p.store.Load(ctx, fp)
	if err != nil {
		out.Error = fmt.Sprintf("load state: %v", err)
		return out
	}

	p.detectManualClose(ctx, prior)

	decision := lifecycle.Decide(prior, ev, fp)
	out.Action = decision.Action
	metrics.GetOrCreateCounter(fmt.Sprintf(`lifecycle_actions_total{action=%q}`, string(decision.Action))).Inc()

	if decision.Action.Mutates() {
		ref, syncErr := p.applyTracker(ctx, ev, prior, &decision)
		if syncErr != nil {
			// Degraded success: state is still saved so redelivery stays
			// idempotent, and the gap is flagged for reconciliation.
			decision.State.TrackerSyncFailed = true
			out.Degraded = true
			metrics.GetOrCreateCounter("tracker_sync_failures_total").Inc()
			p.log.Error("tracker sync failed", "action", decision.Action, "fingerprint", fp, "error", syncErr)
			p.notifier.TrackerSyncFailed(fp, ev.Title, string(decision.Action))
		} else {
			decision.State.TrackerSyncFailed = false
			if ref != "" {
				decision.State.TrackerIssueRef = ref
			}
			out.IssueRef = decision.State.TrackerIssueRef
		}
	}

	if !decision.Persist {
		return out
	}

	var expected *uint
	if prior != nil {
		v := prior.Version
		expected = &v
	}
	if err := p.store.Save(ctx, &decision.State, expected); err != nil {
		if alerterr.IsConflict(err) {
			metrics.GetOrCreateCounter("state_write_conflicts_total").Inc()
			if retryOnConflict {
				// A concurrent writer advanced the state; recompute once
				// against the fresh record.
				p.log.Info("state write conflict, recomputing", "fingerprint", fp)
				return p.processEvent(ctx, ev, false)
			}
			out.Error = "state write conflict persisted after retry"
			return out
		}
		out.Error = fmt.Sprintf("save state: %v", err)
		return out
	}
	return out
}

// detectManualClose probes the tracker for issues our state believes are
// open. An operator closing the issue by hand must suppress automatic
// closure, so the flag is set before the decision runs. Probe failures
// are ignored: the lifecycle proceeds on persisted state alone.
func (p *Processor) detectManualClose(ctx context.Context, prior *database.AlertState) {
	if prior == nil || prior.Status != database.StateStatusOpen || prior.ManuallyClosed {
		return
	}
	ref, ok := parseIssueRef(prior.TrackerIssueRef)
	if !ok {
		return
	}
	var state string
	err := p.breaker.Do(func() error {
		var err error
		state, err = p.tracker.IssueState(ctx, ref)
		return err
	})
	if err != nil {
		p.log.Debug("manual-close probe skipped", "fingerprint", prior.Fingerprint, "error", err)
		return
	}
	if strings.EqualFold(state, "closed") {
		now := p.now().UTC()
		prior.ManuallyClosed = true
		prior.ManuallyClosedAt = &now
	}
}

// applyTracker performs the tracker mutation for a decision, throttled by
// the limiter and guarded by the breaker. For CREATE it returns the new
// issue reference.
func (p *Processor) applyTracker(ctx context.Context, ev *alerts.AlertEvent, prior *database.AlertState, decision *lifecycle.Decision) (string, error) {
	waitCtx, cancel := context.WithTimeout(ctx, p.mutationWait)
	defer cancel()
	if err := p.limiter.Wait(waitCtx); err != nil {
		return "", alerterr.Transient("tracker mutation throttled", err)
	}

	switch decision.Action {
	case lifecycle.ActionCreate:
		var created tracker.IssueRef
		err := p.breaker.Do(func() error {
			labels := issueLabels(ev)
			if err := p.tracker.EnsureLabelsExist(ctx, labels); err != nil {
				return err
			}
			var err error
			created, err = p.tracker.CreateIssue(ctx, ev.Title, issueBody(ev), labels)
			return err
		})
		if err != nil {
			return "", err
		}
		return strconv.Itoa(created.Number), nil

	case lifecycle.ActionComment:
		ref, ok := parseIssueRef(prior.TrackerIssueRef)
		if !ok {
			return "", alerterr.Transient("no issue reference for comment", nil)
		}
		return "", p.breaker.Do(func() error {
			return p.tracker.CommentOnIssue(ctx, ref, commentBody(ev))
		})

	case lifecycle.ActionClose:
		ref, ok := parseIssueRef(prior.TrackerIssueRef)
		if !ok {
			return "", alerterr.Transient("no issue reference for close", nil)
		}
		return "", p.breaker.Do(func() error {
			if err := p.tracker.CommentOnIssue(ctx, ref, resolvedBody(ev)); err != nil {
				return err
			}
			return p.tracker.CloseIssue(ctx, ref)
		})
	}
	return "", nil
}

func parseIssueRef(raw string) (tracker.IssueRef, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return tracker.IssueRef{}, false
	}
	return tracker.IssueRef{Number: n}, true
}

// issueLabels derives the tracker labels for an event: one per team plus
// the priority.
func issueLabels(ev *alerts.AlertEvent) []string {
	labels := make([]string, 0, len(ev.Teams)+1)
	for _, t := range ev.Teams {
		labels = append(labels, "team:"+t)
	}
	labels = append(labels, string(ev.Priority))
	return labels
}

// issueBody renders the markdown body for a new issue.
func issueBody(ev *alerts.AlertEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Priority:** %s\n", ev.Priority)
	fmt.Fprintf(&b, "**Teams:** %s\n", strings.Join(ev.Teams, ", "))
	fmt.Fprintf(&b, "**Source:** %s\n", ev.Source)
	fmt.Fprintf(&b, "**Occurred at:** %s\n", ev.OccurredAt.Format(time.RFC3339))
	if ev.Summary != "" {
		fmt.Fprintf(&b, "\n%s\n", ev.Summary)
	}
	if ev.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", ev.Description)
	}
	if ev.Reason != "" {
		fmt.Fprintf(&b, "\n**Reason:** %s\n", ev.Reason)
	}
	writeLink(&b, "Runbook", ev.Links.RunbookURL)
	writeLink(&b, "Dashboard", ev.Links.DashboardURL)
	writeLink(&b, "Source", ev.Links.SourceURL)
	writeLink(&b, "Silence", ev.Links.SilenceURL)
	return b.String()
}

func writeLink(b *strings.Builder, label, url string) {
	if url != "" {
		fmt.Fprintf(b, "\n[%s](%s)", label, url)
	}
}

// commentBody renders the recurrence comment for a still-firing alert.
func commentBody(ev *alerts.AlertEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Still firing at %s.", ev.OccurredAt.Format(time.RFC3339))
	if ev.Reason != "" {
		fmt.Fprintf(&b, "\n\n%s", ev.Reason)
	}
	return b.String()
}

// resolvedBody renders the closing comment.
func resolvedBody(ev *alerts.AlertEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Resolved at %s.", ev.OccurredAt.Format(time.RFC3339))
	if ev.Reason != "" {
		fmt.Fprintf(&b, "\n\n%s", ev.Reason)
	}
	return b.String()
}
