package domain

import "testing"

func TestPushNopeRestartsWindowUpToCap(t *testing.T) {
	g := &Game{Phase: PhaseInProgress}
	p := &Pending{Kind: PendingAction, Card: CardSkip}
	OpenWindow(g, p, 100, 4, 10)

	if p.WindowDeadline != 104 {
		t.Fatalf("deadline = %d, want 104", p.WindowDeadline)
	}
	if p.WindowCap != 110 {
		t.Fatalf("cap = %d, want 110", p.WindowCap)
	}
	if g.TurnPhase != TurnResolving {
		t.Fatalf("turn phase = %s, want resolving", g.TurnPhase)
	}

	PushNope(g, 1, 103, 4)
	if p.WindowDeadline != 107 {
		t.Fatalf("deadline after restart = %d, want 107", p.WindowDeadline)
	}

	// Further nopes push against the cap, never beyond it.
	PushNope(g, 2, 107, 4)
	if p.WindowDeadline != 110 {
		t.Fatalf("deadline near cap = %d, want 110", p.WindowDeadline)
	}
	PushNope(g, 1, 109, 4)
	if p.WindowDeadline != 110 {
		t.Fatalf("deadline past cap = %d, want clamped 110", p.WindowDeadline)
	}
	if len(p.Nopes) != 3 {
		t.Fatalf("nopes = %d, want 3", len(p.Nopes))
	}
}

func TestWindowExpired(t *testing.T) {
	g := &Game{Phase: PhaseInProgress}
	if WindowExpired(g, 50) {
		t.Fatalf("expired without a window")
	}

	OpenWindow(g, &Pending{Kind: PendingAction, Card: CardSkip}, 100, 4, 10)
	if WindowExpired(g, 103) {
		t.Fatalf("expired before the deadline")
	}
	if !WindowExpired(g, 104) {
		t.Fatalf("not expired at the deadline")
	}
}
