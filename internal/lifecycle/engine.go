// Package lifecycle turns an incoming canonical event plus prior persisted
// state into exactly one action and the state to persist. Decide is a pure
// function of its inputs: delivery is at-least-once, so re-running it with
// the same inputs must yield the same action and the same resulting state.
package lifecycle

import (
	"github.com/pytorch/alerting-infra/internal/alerts"
	"github.com/pytorch/alerting-infra/internal/database"
)

// Action is the single tracker-facing action a decision produces.
type Action string

const (
	ActionCreate          Action = "CREATE"
	ActionComment         Action = "COMMENT"
	ActionClose           Action = "CLOSE"
	ActionSkipStale       Action = "SKIP_STALE"
	ActionSkipManualClose Action = "SKIP_MANUAL_CLOSE"
	ActionSkipClosed      Action = "SKIP_CLOSED"
)

// Mutates reports whether the action requires a tracker mutation.
func (a Action) Mutates() bool {
	switch a {
	case ActionCreate, ActionComment, ActionClose:
		return true
	}
	return false
}

// Decision is the outcome of the state machine for one event.
type Decision struct {
	Action Action

	// State is the record to persist when Persist is true. For skip
	// actions other than SKIP_MANUAL_CLOSE the prior state is untouched.
	State   database.AlertState
	Persist bool
}

// Decide applies the lifecycle state machine.
//
// The out-of-order guard compares the event's provider timestamp against
// LastProviderStateAt and rejects stale updates. A manually closed issue
// suppresses automatic CLOSE but never automatic CREATE on recurrence,
// and recurrence after CLOSED always creates a fresh issue (never a
// reopen). All persisted timestamps derive from the event, not the wall
// clock, so the function stays deterministic.
func Decide(prior *database.AlertState, ev *alerts.AlertEvent, fingerprint string) Decision {
	if prior == nil {
		if ev.State == alerts.StateResolved {
			// Resolution for a condition we never opened.
			return Decision{Action: ActionSkipClosed}
		}
		return Decision{
			Action:  ActionCreate,
			State:   newState(ev, fingerprint),
			Persist: true,
		}
	}

	if prior.Status == database.StateStatusClosed {
		if ev.State == alerts.StateResolved {
			return Decision{Action: ActionSkipClosed}
		}
		// Recurrence: fresh issue, manual-close marker reset.
		st := newState(ev, fingerprint)
		st.FirstSeenAt = prior.FirstSeenAt
		st.Version = prior.Version
		return Decision{Action: ActionCreate, State: st, Persist: true}
	}

	// prior.Status == OPEN from here on.
	if prior.ManuallyClosed {
		if ev.State == alerts.StateFiring {
			// The operator closed the issue by hand but the condition
			// fired again: open a fresh issue rather than reopening.
			st := newState(ev, fingerprint)
			st.FirstSeenAt = prior.FirstSeenAt
			st.Version = prior.Version
			return Decision{Action: ActionCreate, State: st, Persist: true}
		}
		// Record that the resolution was observed; status unchanged.
		st := *prior
		st.LastSeenAt = ev.OccurredAt
		return Decision{Action: ActionSkipManualClose, State: st, Persist: true}
	}

	if ev.OccurredAt.Before(prior.LastProviderStateAt) {
		return Decision{Action: ActionSkipStale}
	}

	st := *prior
	st.LastProviderStateAt = ev.OccurredAt
	st.LastSeenAt = ev.OccurredAt
	st.Title = ev.Title
	st.Priority = string(ev.Priority)
	st.Teams = database.StringList(ev.Teams)

	if ev.State == alerts.StateResolved {
		st.Status = database.StateStatusClosed
		return Decision{Action: ActionClose, State: st, Persist: true}
	}
	return Decision{Action: ActionComment, State: st, Persist: true}
}

// newState builds the OPEN record a CREATE persists.
func newState(ev *alerts.AlertEvent, fingerprint string) database.AlertState {
	return database.AlertState{
		Fingerprint:         fingerprint,
		Status:              database.StateStatusOpen,
		Title:               ev.Title,
		Priority:            string(ev.Priority),
		Teams:               database.StringList(ev.Teams),
		LastProviderStateAt: ev.OccurredAt,
		FirstSeenAt:         ev.OccurredAt,
		LastSeenAt:          ev.OccurredAt,
		ManuallyClosed:      false,
	}
}
