package app

import (
	"github.com/AnAtoliy-AA/arcadeum-sub008/internal/domain"
)

// armAlarm schedules the idle default for the current turn phase. The alarm
// captures the live turn sequence; by the time it fires the sequence may have
// moved on, which makes the firing a validated no-op.
func (s *Service) armAlarm(g *domain.Game, now int64) int64 {
	deadline := now + int64(s.turnSeconds)
	g.TurnAlarm = &domain.Alarm{Seq: g.TurnSeq, FireAtTick: deadline}
	return deadline
}

// armGiveAlarm schedules the idle hand-over default. Give requests run on
// their own countdown, shorter than a full turn.
func (s *Service) armGiveAlarm(g *domain.Game, now int64) int64 {
	deadline := now + int64(s.favorSeconds)
	g.TurnAlarm = &domain.Alarm{Seq: g.TurnSeq, FireAtTick: deadline}
	return deadline
}

// armTurn schedules the idle default and announces the acting seat.
func (s *Service) armTurn(g *domain.Game, now int64) Event {
	deadline := s.armAlarm(g, now)
	seat := g.CurrentSeat()
	payload := TurnAdvancedPayload{
		Phase:     g.TurnPhase,
		Direction: g.Direction,
		Deadline:  deadline,
	}
	if seat != nil {
		payload.Seat = seat.Index
		payload.AutoplayTriggered = seat.AutoplayTriggered
	}
	return Event{Kind: EventTurnAdvanced, Payload: payload}
}

// Tick advances room time by one step: it closes expired counter windows and
// fires due idle alarms. Firing is routed through the same serialization
// point as ordinary commands, so a timer and a last-second human action can
// never interleave unsafely.
func (s *Service) Tick(g *domain.Game, now int64) []Event {
	if g.Phase != domain.PhaseInProgress {
		return nil
	}

	if g.Pending != nil {
		if !domain.WindowExpired(g, now) {
			return nil
		}
		return s.resolveWindow(g, now)
	}

	alarm := g.TurnAlarm
	if alarm == nil || now < alarm.FireAtTick {
		return nil
	}
	if alarm.Seq != g.TurnSeq {
		// Stale timer: the state advanced while the alarm was in flight.
		g.TurnAlarm = nil
		return nil
	}
	g.TurnAlarm = nil
	return s.autoplayDefault(g, now)
}

// resolveWindow closes the counter window and applies the held effect by
// nope parity.
func (s *Service) resolveWindow(g *domain.Game, now int64) []Event {
	p := g.Pending
	actor := g.Seats[p.ActorSeat]
	res := domain.ResolvePending(s.rng, g)

	events := []Event{{
		Kind: EventActionResolved,
		Payload: ActionResolvedPayload{
			Card:             res.Card,
			Applied:          res.Applied,
			NopeCount:        len(p.Nopes),
			DirectionFlipped: res.DirectionFlipped,
			PileShuffled:     res.PileShuffled,
			StolenFromSeat:   res.StoleFrom,
			ComboMiss:        res.ComboMiss,
		},
	}}

	if len(res.SeenFuture) > 0 {
		events = append(events, Event{
			Kind:       EventFutureSeen,
			Payload:    FutureSeenPayload{Seat: actor.Index, Cards: res.SeenFuture},
			Recipients: []string{actor.UserID},
		})
	}

	if res.GiveOpened {
		deadline := s.armGiveAlarm(g, now)
		g.Give.Deadline = deadline
		events = append(events, Event{
			Kind: EventFavorRequested,
			Payload: FavorRequestedPayload{
				FromSeat: g.Give.FromSeat,
				ToSeat:   g.Give.ToSeat,
				Deadline: deadline,
			},
		})
		return s.withConservationCheck(g, events)
	}

	events = append(events, s.armTurn(g, now))
	return s.withConservationCheck(g, events)
}

// autoplayDefault executes the deterministic default action for the seat
// that failed to act in time and marks it system-driven until it acts
// manually again.
func (s *Service) autoplayDefault(g *domain.Game, now int64) []Event {
	switch g.TurnPhase {
	case domain.TurnAwaitingDraw:
		seat := g.CurrentSeat()
		if seat == nil {
			return nil
		}
		events, err := s.Draw(g, seat.UserID, now)
		if err != nil {
			return nil
		}
		s.markAutoplay(g, seat)
		return events

	case domain.TurnAwaitingDefuse:
		seat := g.CurrentSeat()
		if seat == nil {
			return nil
		}
		if s.autoplay.AutoDefuse {
			events := s.applyDefuse(g, seat, s.autoplay.AutoDefuseDepth, now)
			s.markAutoplay(g, seat)
			return s.withConservationCheck(g, events)
		}
		// Policy says no auto-defuse: the held explosive goes off.
		hand, _ := domain.RemoveOne(seat.Hand, domain.CardExplosive)
		seat.Hand = hand
		g.DiscardPile = append(g.DiscardPile, domain.CardExplosive)
		events := s.eliminate(g, seat)
		events = append(events, s.endIfDecided(g)...)
		if g.Phase == domain.PhaseInProgress {
			events = append(events, s.armTurn(g, now))
		}
		return s.withConservationCheck(g, events)

	case domain.TurnAwaitingGive:
		if g.Give == nil {
			return nil
		}
		from := g.Seats[g.Give.FromSeat]
		if len(from.Hand) == 0 {
			return nil
		}
		events := s.applyGive(g, from, from.Hand[0], now)
		s.markAutoplay(g, from)
		return s.withConservationCheck(g, events)
	}
	return nil
}

// markAutoplay flags the seat as system-driven. The flag survives until the
// seat issues a valid manual command.
func (s *Service) markAutoplay(_ *domain.Game, seat *domain.Seat) {
	seat.AutoplayTriggered = true
}
