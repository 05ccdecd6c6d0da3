package alerts

import (
	"strings"
	"testing"
	"time"
)

func TestParseTeams(t *testing.T) {
	teams, err := ParseTeams("dev-infra, platform, security")
	if err != nil {
		t.Fatalf("ParseTeams returned error: %v", err)
	}
	if len(teams) != 3 {
		t.Fatalf("Expected 3 teams, got %d", len(teams))
	}
	if teams[0] != "dev-infra" || teams[1] != "platform" || teams[2] != "security" {
		t.Errorf("Unexpected teams: %v", teams)
	}
}

func TestParseTeams_NormalizesCaseAndWhitespace(t *testing.T) {
	teams, err := ParseTeams("Dev Infra,  PLATFORM ")
	if err != nil {
		t.Fatalf("ParseTeams returned error: %v", err)
	}
	if teams[0] != "dev-infra" {
		t.Errorf("Expected 'dev-infra', got '%s'", teams[0])
	}
	if teams[1] != "platform" {
		t.Errorf("Expected 'platform', got '%s'", teams[1])
	}
}

func TestParseTeams_DropsEmptyEntries(t *testing.T) {
	teams, err := ParseTeams("a,, ,b")
	if err != nil {
		t.Fatalf("ParseTeams returned error: %v", err)
	}
	if len(teams) != 2 {
		t.Fatalf("Expected 2 teams, got %d: %v", len(teams), teams)
	}
}

func TestParseTeams_AllEmptyFails(t *testing.T) {
	if _, err := ParseTeams(", ,"); err == nil {
		t.Fatal("Expected error for all-empty team list")
	}
	if _, err := ParseTeams(""); err == nil {
		t.Fatal("Expected error for empty team string")
	}
}

func TestParseTeams_TooManyFails(t *testing.T) {
	raw := "a,b,c,d,e,f,g,h,i,j,k"
	if _, err := ParseTeams(raw); err == nil {
		t.Fatal("Expected error for 11 teams")
	}
}

func TestParseTeams_NameTooLongFails(t *testing.T) {
	long := strings.Repeat("x", MaxTeamLen+1)
	if _, err := ParseTeams("ok," + long); err == nil {
		t.Fatal("Expected error for over-long team name")
	}
}

func TestNormalizeTitle(t *testing.T) {
	if got := NormalizeTitle("  Runners Scale Up Failure "); got != "runners scale up failure" {
		t.Errorf("Unexpected normalized title: %q", got)
	}
}

func TestValidateURL(t *testing.T) {
	cases := []struct {
		raw string
		ok  bool
	}{
		{"https://example.com/runbook", true},
		{"http://example.com", true},
		{"ftp://example.com", false},
		{"javascript:alert(1)", false},
		{"https://", false},
		{"", false},
		{"not a url at all ://", false},
	}
	for _, c := range cases {
		if _, ok := ValidateURL(c.raw); ok != c.ok {
			t.Errorf("ValidateURL(%q) = %v, want %v", c.raw, ok, c.ok)
		}
	}
}

func TestValidateURL_TooLong(t *testing.T) {
	raw := "https://example.com/" + strings.Repeat("a", MaxURLLen)
	if _, ok := ValidateURL(raw); ok {
		t.Error("Expected over-long URL to be rejected")
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("  hello  ", 100); got != "hello" {
		t.Errorf("Expected trim without truncation, got %q", got)
	}
	if got := Truncate("abcdef", 4); got != "abcd" {
		t.Errorf("Expected 'abcd', got %q", got)
	}
}

func TestTruncate_DoesNotSplitRunes(t *testing.T) {
	// "héllo" with é at byte offsets 1-2; cutting at 2 lands mid-rune.
	got := Truncate("héllo", 2)
	if got != "h" {
		t.Errorf("Expected 'h', got %q", got)
	}
}

func TestAlertEventValidate_AggregatesFields(t *testing.T) {
	ev := &AlertEvent{SchemaVersion: SchemaVersion}
	err := ev.Validate()
	if err == nil {
		t.Fatal("Expected validation error for empty event")
	}
	msg := err.Error()
	for _, field := range []string{"source", "state", "title", "priority", "occurred_at", "teams"} {
		if !strings.Contains(msg, field) {
			t.Errorf("Expected error to name field %q, got %q", field, msg)
		}
	}
}

func TestAlertEventValidate_Passes(t *testing.T) {
	ev := &AlertEvent{
		SchemaVersion: SchemaVersion,
		Source:        "grafana",
		State:         StateFiring,
		Title:         "Runners Scale Up Failure",
		Priority:      PriorityP1,
		OccurredAt:    time.Now().UTC(),
		Teams:         []string{"dev-infra"},
	}
	if err := ev.Validate(); err != nil {
		t.Fatalf("Expected valid event, got error: %v", err)
	}
}

func TestParsePriority(t *testing.T) {
	for raw, want := range map[string]Priority{
		"P0": PriorityP0, "p1": PriorityP1, " P2 ": PriorityP2, "p3": PriorityP3,
	} {
		got, ok := ParsePriority(raw)
		if !ok || got != want {
			t.Errorf("ParsePriority(%q) = %q, %v; want %q", raw, got, ok, want)
		}
	}
	if _, ok := ParsePriority("P4"); ok {
		t.Error("Expected P4 to be rejected")
	}
	if _, ok := ParsePriority(""); ok {
		t.Error("Expected empty priority to be rejected")
	}
}
