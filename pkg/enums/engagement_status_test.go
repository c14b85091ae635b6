package enums

import "testing"

func TestParseEngagementStatus(t *testing.T) {
	cases := map[string]EngagementStatus{
		"pending":       EngagementStatusPending,
		" In-Progress ": EngagementStatusInProgress,
		"COMPLETED":     EngagementStatusCompleted,
		"rejected":      EngagementStatusRejected,
	}
	for raw, want := range cases {
		got, err := ParseEngagementStatus(raw)
		if err != nil {
			t.Fatalf("ParseEngagementStatus(%q) returned error: %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseEngagementStatus(%q) = %q, want %q", raw, got, want)
		}
	}

	for _, raw := range []string{"", "in progress", "done", "accepted"} {
		if _, err := ParseEngagementStatus(raw); err == nil {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}

func TestEngagementStatusIsTerminal(t *testing.T) {
	if EngagementStatusPending.IsTerminal() || EngagementStatusInProgress.IsTerminal() {
		t.Fatal("pending and in-progress must not be terminal")
	}
	if !EngagementStatusCompleted.IsTerminal() || !EngagementStatusRejected.IsTerminal() {
		t.Fatal("completed and rejected must be terminal")
	}
}
