package alerts

import (
	"testing"
	"time"
)

func baseEvent() *AlertEvent {
	return &AlertEvent{
		SchemaVersion: SchemaVersion,
		Source:        "grafana",
		State:         StateFiring,
		Title:         "Runners Scale Up Failure",
		Priority:      PriorityP1,
		OccurredAt:    time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		Teams:         []string{"dev-infra"},
		Identity:      map[string]string{"org_id": "1", "rule_id": "abc"},
	}
}

func TestFingerprint_Deterministic(t *testing.T) {
	a := Fingerprint(baseEvent())
	b := Fingerprint(baseEvent())
	if a != b {
		t.Fatalf("Expected identical fingerprints, got %s and %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("Expected 64 hex chars, got %d", len(a))
	}
}

func TestFingerprint_StableAcrossStateAndTime(t *testing.T) {
	firing := baseEvent()
	resolved := baseEvent()
	resolved.State = StateResolved
	resolved.OccurredAt = resolved.OccurredAt.Add(time.Hour)
	resolved.Priority = PriorityP0
	resolved.Teams = []string{"platform"}

	if Fingerprint(firing) != Fingerprint(resolved) {
		t.Error("Expected fingerprint to ignore state, time, priority and teams")
	}
}

func TestFingerprint_TitleCaseInsensitive(t *testing.T) {
	a := baseEvent()
	b := baseEvent()
	b.Title = "  RUNNERS SCALE UP FAILURE  "
	if Fingerprint(a) != Fingerprint(b) {
		t.Error("Expected case-folded titles to hash identically")
	}
}

func TestFingerprint_IdentityKeyOrderIrrelevant(t *testing.T) {
	a := baseEvent()
	b := baseEvent()
	b.Identity = map[string]string{"rule_id": "abc", "org_id": "1"}
	if Fingerprint(a) != Fingerprint(b) {
		t.Error("Expected identity key order to be irrelevant")
	}
}

func TestFingerprint_AbsentIdentityFieldsOmitted(t *testing.T) {
	a := baseEvent()
	a.Identity = map[string]string{"org_id": "1"}

	b := baseEvent()
	b.Identity = map[string]string{"org_id": "1", "rule_id": "  "}

	if Fingerprint(a) != Fingerprint(b) {
		t.Error("Expected blank identity values to be omitted, not hashed empty")
	}
}

func TestFingerprint_DistinctConditionsDiffer(t *testing.T) {
	a := baseEvent()
	b := baseEvent()
	b.Identity["rule_id"] = "other"
	if Fingerprint(a) == Fingerprint(b) {
		t.Error("Expected different rule_id to change the fingerprint")
	}

	c := baseEvent()
	c.Source = "cloudwatch"
	if Fingerprint(a) == Fingerprint(c) {
		t.Error("Expected different source to change the fingerprint")
	}
}
