package internship

import "testing"

func TestStatusTransitions(t *testing.T) {
	allowed := map[[2]Status]bool{
		{StatusPendingReview, StatusActive}:   true,
		{StatusPendingReview, StatusRejected}: true,
		{StatusActive, StatusClosed}:          true,
	}
	all := []Status{StatusPendingReview, StatusActive, StatusClosed, StatusRejected}
	for _, from := range all {
		for _, to := range all {
			if got := from.CanTransitionTo(to); got != allowed[[2]Status{from, to}] {
				t.Fatalf("%s -> %s: got %v", from, to, got)
			}
		}
	}
	if !StatusClosed.IsTerminal() || !StatusRejected.IsTerminal() || StatusActive.IsTerminal() {
		t.Fatal("unexpected terminal states")
	}
}

func TestParseStatus(t *testing.T) {
	if _, ok := ParseStatus("archived"); ok {
		t.Fatal("unknown status accepted")
	}
	if status, ok := ParseStatus("active"); !ok || status != StatusActive {
		t.Fatalf("expected active, got %q", status)
	}
}
