package app

import (
	"errors"
	"math/rand"
	"time"

	"github.com/AnAtoliy-AA/arcadeum-sub008/internal/config"
	"github.com/AnAtoliy-AA/arcadeum-sub008/internal/domain"
)

var (
	ErrUnknownHoldemAction = errors.New("unknown holdem action")
	ErrRaiseAmountRequired = errors.New("raise requires an amount")
)

// HoldemService contains holdem-variant use-cases. The hand evaluator is a
// pure collaborator invoked only at showdown.
type HoldemService struct {
	rng  *rand.Rand
	eval domain.HandEvaluator

	turnSeconds int
	autoplay    config.AutoplayPolicy
}

// NewHoldemService constructs a HoldemService with the provided rng or a
// time-seeded default.
func NewHoldemService(rng *rand.Rand, eval domain.HandEvaluator) *HoldemService {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &HoldemService{
		rng:         rng,
		eval:        eval,
		turnSeconds: config.TurnDurationSeconds(),
		autoplay:    config.Autoplay(),
	}
}

// StartHoldem deals a hand for the occupied seats in order.
func (s *HoldemService) StartHoldem(playerIDs []string, startingChips, smallBlind, bigBlind int64, now int64) (*domain.HoldemGame, []Event, error) {
	var userIDs []string
	for _, id := range playerIDs {
		if id != "" {
			userIDs = append(userIDs, id)
		}
	}

	game, err := domain.NewHoldemGame(s.rng, userIDs, startingChips, smallBlind, bigBlind)
	if err != nil {
		return nil, nil, err
	}

	events := make([]Event, 0, len(userIDs)+2)
	for _, seat := range game.Seats {
		events = append(events, Event{
			Kind:       EventHandDealt,
			Payload:    HoldemHolePayload{UserID: seat.UserID, Hole: append([]domain.HoldemCard{}, seat.Hole...)},
			Recipients: []string{seat.UserID},
		})
	}
	events = append(events, Event{
		Kind: EventHoldemStarted,
		Payload: HoldemStartedPayload{
			Seats:         userIDs,
			StartingChips: startingChips,
			SmallBlind:    smallBlind,
			BigBlind:      bigBlind,
			FirstTurn:     game.Turn,
		},
	})
	events = append(events, s.armTurn(game, now))
	return game, events, nil
}

// HoldemAction applies fold/check/call/raise for the acting seat, then closes
// the betting round and runs streets forward as far as the action allows.
func (s *HoldemService) HoldemAction(g *domain.HoldemGame, userID, action string, raiseTo int64, now int64) ([]Event, error) {
	if g.Phase != domain.PhaseInProgress {
		return nil, ErrNotInProgress
	}
	seat := g.SeatByUser(userID)
	if seat == nil {
		return nil, ErrUnknownPlayer
	}

	var err error
	switch action {
	case "fold":
		err = g.Fold(seat)
	case "check":
		err = g.Check(seat)
	case "call":
		err = g.Call(seat)
	case "raise":
		if raiseTo <= 0 {
			return nil, ErrRaiseAmountRequired
		}
		err = g.Raise(seat, raiseTo)
	default:
		return nil, ErrUnknownHoldemAction
	}
	if err != nil {
		return nil, err
	}
	seat.AutoplayTriggered = false

	events := []Event{{
		Kind: EventHoldemAction,
		Payload: HoldemActionPayload{
			Seat:     seat.Index,
			Action:   action,
			Amount:   seat.Committed,
			AllIn:    seat.AllIn,
			Pot:      g.Pot,
			NextTurn: g.Turn,
		},
	}}

	more, err := s.advance(g, now)
	if err != nil {
		return nil, err
	}
	return append(events, more...), nil
}

// advance closes finished betting rounds: it deals forward street by street,
// and settles the hand once only one seat contests or showdown is reached.
func (s *HoldemService) advance(g *domain.HoldemGame, now int64) ([]Event, error) {
	var events []Event

	if len(g.ContestedBy()) == 1 {
		return append(events, s.settle(g)...), nil
	}

	for g.RoundClosed() && g.Street != domain.StreetShowdown {
		g.AdvanceStreet()
		if g.Street == domain.StreetShowdown {
			break
		}
		events = append(events, Event{
			Kind: EventHoldemStreet,
			Payload: HoldemStreetPayload{
				Street: string(g.Street),
				Board:  append([]domain.HoldemCard{}, g.Board...),
				Pot:    g.Pot,
			},
		})
	}

	if g.Street == domain.StreetShowdown {
		return append(events, s.settle(g)...), nil
	}

	events = append(events, s.armTurn(g, now))
	return events, nil
}

// settle runs the showdown and emits the outcome with net balance changes.
func (s *HoldemService) settle(g *domain.HoldemGame) []Event {
	pots, winnings, err := g.Showdown(s.eval)
	if err != nil {
		// Evaluator failure is an engine invariant violation: surface it and
		// complete the room with an error outcome.
		g.Phase = domain.PhaseCompleted
		g.BumpTurnSeq()
		return []Event{{
			Kind:    EventGameEnded,
			Payload: GameEndedPayload{ErrorOutcome: err.Error()},
		}}
	}

	changes := make(map[string]int64, len(g.Seats))
	for _, seat := range g.Seats {
		changes[seat.UserID] = winnings[seat.UserID] - seat.TotalPaid
	}

	g.BumpTurnSeq()
	return []Event{
		{
			Kind: EventHoldemShowdown,
			Payload: HoldemShowdownPayload{
				Pots:     pots,
				Winnings: winnings,
				Board:    append([]domain.HoldemCard{}, g.Board...),
			},
		},
		{
			Kind:    EventGameEnded,
			Payload: GameEndedPayload{Ranking: holdemRanking(winnings), BalanceChanges: changes},
		},
	}
}

// holdemRanking orders user ids by winnings, best first.
func holdemRanking(winnings map[string]int64) []string {
	type entry struct {
		userID string
		amount int64
	}
	entries := make([]entry, 0, len(winnings))
	for userID, amount := range winnings {
		entries = append(entries, entry{userID, amount})
	}
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			if entries[j].amount > entries[i].amount {
				entries[i], entries[j] = entries[j], entries[i]
			}
		}
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.userID)
	}
	return out
}

// Leave folds the departing seat and lets the hand continue without it.
func (s *HoldemService) Leave(g *domain.HoldemGame, userID string, now int64) ([]Event, error) {
	if g.Phase != domain.PhaseInProgress {
		return nil, ErrNotInProgress
	}
	seat := g.SeatByUser(userID)
	if seat == nil {
		return nil, ErrUnknownPlayer
	}

	events := []Event{{
		Kind:    EventPlayerLeft,
		Payload: PlayerLeftPayload{UserID: userID},
	}}
	if !seat.Folded {
		seat.Folded = true
		if g.CurrentSeat() == seat {
			g.AdvanceActor()
		}
		more, err := s.advance(g, now)
		if err != nil {
			return nil, err
		}
		events = append(events, more...)
	}
	return events, nil
}

// armTurn schedules the idle default for the acting seat.
func (s *HoldemService) armTurn(g *domain.HoldemGame, now int64) Event {
	deadline := now + int64(s.turnSeconds)
	g.TurnAlarm = &domain.Alarm{Seq: g.TurnSeq, FireAtTick: deadline}
	seat := g.CurrentSeat()
	payload := TurnAdvancedPayload{Deadline: deadline}
	if seat != nil {
		payload.Seat = seat.Index
		payload.AutoplayTriggered = seat.AutoplayTriggered
	}
	return Event{Kind: EventTurnAdvanced, Payload: payload}
}

// Tick fires the idle default when the acting seat's alarm is due: check when
// nothing is owed (policy permitting), fold otherwise. A stale alarm is a
// validated no-op.
func (s *HoldemService) Tick(g *domain.HoldemGame, now int64) []Event {
	if g.Phase != domain.PhaseInProgress {
		return nil
	}
	alarm := g.TurnAlarm
	if alarm == nil || now < alarm.FireAtTick {
		return nil
	}
	if alarm.Seq != g.TurnSeq {
		g.TurnAlarm = nil
		return nil
	}
	g.TurnAlarm = nil

	seat := g.CurrentSeat()
	if seat == nil {
		return nil
	}
	action := "fold"
	if s.autoplay.HoldemCheckIfFree && g.Owed(seat) == 0 {
		action = "check"
	}
	events, err := s.HoldemAction(g, seat.UserID, action, 0, now)
	if err != nil {
		return nil
	}
	seat.AutoplayTriggered = true
	return events
}
