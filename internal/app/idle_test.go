package app

import (
	"testing"

	"github.com/AnAtoliy-AA/arcadeum-sub008/internal/domain"
)

func TestTickBeforeDeadlineIsNoop(t *testing.T) {
	svc := newTestService()
	g := newTestGame(
		[][]domain.CardKind{{domain.CardDefuse}, {domain.CardDefuse}},
		[]domain.CardKind{domain.CardSkip, domain.CardNope},
	)
	g.TurnAlarm = &domain.Alarm{Seq: g.TurnSeq, FireAtTick: 16}

	if evs := svc.Tick(g, 15); evs != nil {
		t.Fatalf("alarm fired early: %v", eventKinds(evs))
	}
	if g.TurnAlarm == nil {
		t.Fatalf("pending alarm discarded")
	}
}

func TestStaleAlarmIsDiscarded(t *testing.T) {
	svc := newTestService()
	g := newTestGame(
		[][]domain.CardKind{{domain.CardDefuse}, {domain.CardDefuse}},
		[]domain.CardKind{domain.CardSkip, domain.CardNope},
	)
	// An alarm captured before the state advanced carries an old sequence.
	g.TurnAlarm = &domain.Alarm{Seq: g.TurnSeq - 1, FireAtTick: 10}

	if evs := svc.Tick(g, 10); evs != nil {
		t.Fatalf("stale alarm produced events: %v", eventKinds(evs))
	}
	if g.TurnAlarm != nil {
		t.Fatalf("stale alarm not cleared")
	}
	if len(g.Seats[0].Hand) != 1 {
		t.Fatalf("stale alarm mutated a hand")
	}
}

func TestIdleDrawFiresAndFlagsSeat(t *testing.T) {
	svc := newTestService()
	g := newTestGame(
		[][]domain.CardKind{{domain.CardDefuse}, {domain.CardDefuse}},
		[]domain.CardKind{domain.CardSkip, domain.CardNope},
	)
	g.TurnAlarm = &domain.Alarm{Seq: g.TurnSeq, FireAtTick: 16}

	evs := svc.Tick(g, 16)
	if !hasKind(evs, EventCardDrawn) {
		t.Fatalf("idle default did not draw: %v", eventKinds(evs))
	}
	if !g.Seats[0].AutoplayTriggered {
		t.Fatalf("idle seat not flagged")
	}
	if g.Turn != 1 {
		t.Fatalf("turn = %d, want 1 after idle draw", g.Turn)
	}
	if g.TurnAlarm == nil || g.TurnAlarm.Seq != g.TurnSeq {
		t.Fatalf("next actor's alarm not armed")
	}
}

func TestManualActionClearsAutoplayFlag(t *testing.T) {
	svc := newTestService()
	g := newTestGame(
		[][]domain.CardKind{{domain.CardDefuse}, {domain.CardDefuse}},
		[]domain.CardKind{domain.CardSkip, domain.CardNope, domain.CardFavor, domain.CardShuffle},
	)
	g.TurnAlarm = &domain.Alarm{Seq: g.TurnSeq, FireAtTick: 16}

	svc.Tick(g, 16) // idle draw for seat 0
	if !g.Seats[0].AutoplayTriggered {
		t.Fatalf("idle seat not flagged")
	}

	if _, err := svc.Draw(g, "u2", 17); err != nil {
		t.Fatalf("draw: %v", err)
	}
	if _, err := svc.Draw(g, "u1", 18); err != nil {
		t.Fatalf("draw: %v", err)
	}
	if g.Seats[0].AutoplayTriggered {
		t.Fatalf("manual draw left the autoplay flag set")
	}
}

func TestIdleDefusePlacesExplosiveByPolicy(t *testing.T) {
	svc := newTestService()
	g := newTestGame(
		[][]domain.CardKind{
			{domain.CardDefuse, domain.CardExplosive},
			{domain.CardDefuse},
		},
		[]domain.CardKind{domain.CardSkip, domain.CardNope},
	)
	g.TurnPhase = domain.TurnAwaitingDefuse
	g.TurnAlarm = &domain.Alarm{Seq: g.TurnSeq, FireAtTick: 16}

	evs := svc.Tick(g, 16)
	// Default policy auto-defuses at depth 0: explosive back on top.
	if g.DrawPile[0] != domain.CardExplosive {
		t.Fatalf("pile = %v, want explosive on top", g.DrawPile)
	}
	if g.Seats[0].Eliminated {
		t.Fatalf("auto-defuse eliminated the seat")
	}
	if !g.Seats[0].AutoplayTriggered {
		t.Fatalf("idle seat not flagged")
	}
	if g.Turn != 1 {
		t.Fatalf("turn = %d, want 1", g.Turn)
	}
	if !hasKind(evs, EventActionResolved) {
		t.Fatalf("events = %v", eventKinds(evs))
	}
	if !g.ConservationHolds() {
		t.Fatalf("conservation broken by auto-defuse")
	}
}

func TestIdleGiveHandsOverFirstCard(t *testing.T) {
	svc := newTestService()
	g := newTestGame(
		[][]domain.CardKind{
			{domain.CardDefuse},
			{domain.CardNope, domain.CardDefuse},
		},
		[]domain.CardKind{domain.CardSkip},
	)
	g.TurnPhase = domain.TurnAwaitingGive
	g.Give = &domain.GiveRequest{FromSeat: 1, ToSeat: 0, Deadline: 16}
	g.TurnAlarm = &domain.Alarm{Seq: g.TurnSeq, FireAtTick: 16}

	evs := svc.Tick(g, 16)
	if !hasKind(evs, EventFavorGiven) {
		t.Fatalf("events = %v, want favor.given", eventKinds(evs))
	}
	if !domain.Contains(g.Seats[0].Hand, domain.CardNope) {
		t.Fatalf("first card not handed over")
	}
	if !g.Seats[1].AutoplayTriggered {
		t.Fatalf("idle giver not flagged")
	}
	if g.Give != nil || g.TurnPhase != domain.TurnAwaitingDraw {
		t.Fatalf("give state not cleared")
	}
}

func TestTickIgnoresCompletedGames(t *testing.T) {
	svc := newTestService()
	g := newTestGame(
		[][]domain.CardKind{{domain.CardDefuse}, {domain.CardDefuse}},
		[]domain.CardKind{domain.CardSkip},
	)
	g.Phase = domain.PhaseCompleted
	g.TurnAlarm = &domain.Alarm{Seq: g.TurnSeq, FireAtTick: 5}

	if evs := svc.Tick(g, 10); evs != nil {
		t.Fatalf("completed game still ticking: %v", eventKinds(evs))
	}
}
