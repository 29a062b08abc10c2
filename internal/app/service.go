package app

import (
	"errors"
	"math/rand"
	"time"

	"github.com/AnAtoliy-AA/arcadeum-sub008/internal/config"
	"github.com/AnAtoliy-AA/arcadeum-sub008/internal/domain"
)

// Validation errors: rejected synchronously, room state unchanged.
var (
	ErrNotInProgress       = errors.New("game not in progress")
	ErrNotYourTurn         = errors.New("not your turn")
	ErrAlreadyDrawn        = errors.New("already drawn this turn")
	ErrCardNotInHand       = errors.New("card not in hand")
	ErrInvalidTarget       = errors.New("invalid target seat")
	ErrNotAnActionCard     = errors.New("card is not a playable action")
	ErrInsufficientSetSize = errors.New("not enough matching cards for combo")
	ErrTargetHasNoCards    = errors.New("target has no cards")
	ErrDesiredCardRequired = errors.New("combo mode requires a desired card")
	ErrNoPendingGive       = errors.New("no give request open for this seat")
	ErrNotDefusing         = errors.New("no defuse required")
	ErrUnknownPlayer       = errors.New("player not seated")
	ErrTooFewPlayers       = errors.New("not enough players to start")
	ErrDrawPileEmpty       = errors.New("draw pile is empty")
	ErrInvalidConfig       = errors.New("invalid room configuration")
)

// Conflict errors: the command raced a just-closed window; rejected as no-ops.
var (
	ErrNoOpenWindow = errors.New("no counter window open")
	ErrResolving    = errors.New("a counter window is open")
)

const fatalConservation = "card conservation violated"

// Service contains critical-variant use-cases operating on domain state.
// All methods run inside the owning room's serialization point; the tick
// argument is the room's current second counter.
type Service struct {
	rng *rand.Rand

	turnSeconds  int
	nopeSeconds  int
	nopeCap      int
	favorSeconds int
	autoplay     config.AutoplayPolicy
}

// NewService constructs a Service with the provided rng or a time-seeded
// default, reading timing policy from the loaded game config.
func NewService(rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{
		rng:          rng,
		turnSeconds:  config.TurnDurationSeconds(),
		nopeSeconds:  config.NopeWindowSeconds(),
		nopeCap:      config.NopeWindowCapSeconds(),
		favorSeconds: config.FavorResponseSeconds(),
		autoplay:     config.Autoplay(),
	}
}

// StartGame deals a new critical game for the occupied seats in order.
func (s *Service) StartGame(playerIDs []string, expansions []string, baseBet int64, now int64) (*domain.Game, []Event, error) {
	var userIDs []string
	for _, id := range playerIDs {
		if id != "" {
			userIDs = append(userIDs, id)
		}
	}
	if len(userIDs) < 2 {
		return nil, nil, ErrTooFewPlayers
	}
	for _, id := range expansions {
		if !domain.KnownExpansion(id) {
			return nil, nil, ErrInvalidConfig
		}
	}

	game := domain.NewGame(s.rng, userIDs, expansions)
	game.BaseBet = baseBet

	events := make([]Event, 0, len(userIDs)+2)
	for _, seat := range game.Seats {
		events = append(events, Event{
			Kind:       EventHandDealt,
			Payload:    HandDealtPayload{UserID: seat.UserID, Hand: append([]domain.CardKind{}, seat.Hand...)},
			Recipients: []string{seat.UserID},
		})
	}
	events = append(events, Event{
		Kind:    EventGameStarted,
		Payload: GameStartedPayload{Seats: userIDs, FirstTurn: game.Turn, Expansions: expansions},
	})
	events = append(events, s.armTurn(game, now))
	return game, events, nil
}

// Draw pops the draw pile for the current actor and either advances the turn,
// eliminates the seat, or enters the defuse sub-state.
func (s *Service) Draw(g *domain.Game, userID string, now int64) ([]Event, error) {
	seat, err := s.actorSeat(g, userID)
	if err != nil {
		return nil, err
	}
	if g.TurnPhase == domain.TurnResolving {
		return nil, ErrResolving
	}
	if g.TurnPhase != domain.TurnAwaitingDraw {
		return nil, ErrAlreadyDrawn
	}
	if len(g.DrawPile) == 0 {
		return nil, ErrDrawPileEmpty
	}
	s.clearAutoplay(seat)

	card, rest := domain.DrawTop(g.DrawPile)
	g.DrawPile = rest

	var events []Event
	if card == domain.CardExplosive {
		events = append(events, Event{
			Kind:    EventCardDrawn,
			Payload: CardDrawnPayload{Seat: seat.Index, Explosive: true},
		})
		if domain.Contains(seat.Hand, domain.CardDefuse) {
			// Hold the explosive in hand until the defuse placement arrives.
			seat.Hand = append(seat.Hand, card)
			g.TurnPhase = domain.TurnAwaitingDefuse
			g.BumpTurnSeq()
			deadline := s.armAlarm(g, now)
			events = append(events, Event{
				Kind:       EventDefuseRequired,
				Payload:    DefuseRequiredPayload{Seat: seat.Index, Deadline: deadline},
				Recipients: []string{seat.UserID},
			})
		} else {
			g.DiscardPile = append(g.DiscardPile, card)
			events = append(events, s.eliminate(g, seat)...)
			events = append(events, s.endIfDecided(g)...)
			if g.Phase == domain.PhaseInProgress {
				events = append(events, s.armTurn(g, now))
			}
		}
	} else {
		seat.Hand = append(seat.Hand, card)
		events = append(events, Event{
			Kind:    EventCardDrawn,
			Payload: CardDrawnPayload{Seat: seat.Index},
		})
		events = append(events, Event{
			Kind:       EventCardDrawn,
			Payload:    CardDrawnPayload{Seat: seat.Index, Card: card},
			Recipients: []string{seat.UserID},
		})
		domain.AdvanceTurn(g)
		events = append(events, s.armTurn(g, now))
	}

	return s.withConservationCheck(g, events), nil
}

// PlayDefuse reinserts the held explosive card at the chosen draw-pile depth
// and discards the defuse.
func (s *Service) PlayDefuse(g *domain.Game, userID string, position int, now int64) ([]Event, error) {
	seat, err := s.actorSeat(g, userID)
	if err != nil {
		return nil, err
	}
	if g.TurnPhase != domain.TurnAwaitingDefuse {
		return nil, ErrNotDefusing
	}
	s.clearAutoplay(seat)

	events := s.applyDefuse(g, seat, position, now)
	return s.withConservationCheck(g, events), nil
}

func (s *Service) applyDefuse(g *domain.Game, seat *domain.Seat, position int, now int64) []Event {
	hand, _ := domain.RemoveOne(seat.Hand, domain.CardDefuse)
	hand, _ = domain.RemoveOne(hand, domain.CardExplosive)
	seat.Hand = hand
	g.DiscardPile = append(g.DiscardPile, domain.CardDefuse)
	g.DrawPile = domain.InsertAt(g.DrawPile, domain.CardExplosive, position)

	events := []Event{{
		Kind:    EventActionResolved,
		Payload: ActionResolvedPayload{Card: domain.CardDefuse, Applied: true},
	}}
	domain.AdvanceTurn(g)
	events = append(events, s.armTurn(g, now))
	return events
}

// PlayAction plays a standalone action card. Counterable kinds open a nope
// window instead of applying immediately.
func (s *Service) PlayAction(g *domain.Game, userID string, card domain.CardKind, targetSeat int, now int64) ([]Event, error) {
	seat, err := s.actorSeat(g, userID)
	if err != nil {
		return nil, err
	}
	if g.TurnPhase == domain.TurnResolving {
		return nil, ErrResolving
	}
	if g.TurnPhase != domain.TurnAwaitingDraw {
		return nil, ErrNotYourTurn
	}
	if !domain.IsStandaloneAction(card) {
		return nil, ErrNotAnActionCard
	}
	if !domain.Contains(seat.Hand, card) {
		return nil, ErrCardNotInHand
	}
	if card == domain.CardFavor {
		if targetSeat < 0 || targetSeat >= len(g.Seats) || targetSeat == seat.Index {
			return nil, ErrInvalidTarget
		}
		target := g.Seats[targetSeat]
		if target.Eliminated || len(target.Hand) == 0 {
			return nil, ErrInvalidTarget
		}
	}
	s.clearAutoplay(seat)

	hand, _ := domain.RemoveOne(seat.Hand, card)
	seat.Hand = hand
	g.DiscardPile = append(g.DiscardPile, card)

	pending := &domain.Pending{
		Kind:       domain.PendingAction,
		Card:       card,
		ActorSeat:  seat.Index,
		TargetSeat: targetSeat,
	}
	domain.OpenWindow(g, pending, now, s.nopeSeconds, s.nopeCap)

	events := []Event{{
		Kind: EventActionPending,
		Payload: ActionPendingPayload{
			Seat:           seat.Index,
			Card:           card,
			TargetSeat:     targetSeat,
			WindowDeadline: pending.WindowDeadline,
		},
	}}
	return s.withConservationCheck(g, events), nil
}

// PlayNope counters the open window. Valid for any living seat holding a
// nope card, not just the current actor.
func (s *Service) PlayNope(g *domain.Game, userID string, now int64) ([]Event, error) {
	if g.Phase != domain.PhaseInProgress {
		return nil, ErrNotInProgress
	}
	seat := g.SeatByUser(userID)
	if seat == nil || seat.Eliminated {
		return nil, ErrUnknownPlayer
	}
	if g.Pending == nil {
		return nil, ErrNoOpenWindow
	}
	if !domain.Contains(seat.Hand, domain.CardNope) {
		return nil, ErrCardNotInHand
	}
	s.clearAutoplay(seat)

	hand, _ := domain.RemoveOne(seat.Hand, domain.CardNope)
	seat.Hand = hand
	g.DiscardPile = append(g.DiscardPile, domain.CardNope)
	domain.PushNope(g, seat.Index, now, s.nopeSeconds)

	events := []Event{{
		Kind: EventActionNoped,
		Payload: ActionNopedPayload{
			Seat:           seat.Index,
			NopeCount:      len(g.Pending.Nopes),
			WindowDeadline: g.Pending.WindowDeadline,
		},
	}}
	return s.withConservationCheck(g, events), nil
}

// PlayCatCombo spends a matching cat set to request a card from the target.
func (s *Service) PlayCatCombo(g *domain.Game, userID string, cat domain.CardKind, mode domain.ComboMode, targetSeat int, desiredCard domain.CardKind, now int64) ([]Event, error) {
	seat, err := s.actorSeat(g, userID)
	if err != nil {
		return nil, err
	}
	if g.TurnPhase == domain.TurnResolving {
		return nil, ErrResolving
	}
	if g.TurnPhase != domain.TurnAwaitingDraw {
		return nil, ErrNotYourTurn
	}
	if !domain.IsCat(cat) {
		return nil, ErrNotAnActionCard
	}
	if targetSeat < 0 || targetSeat >= len(g.Seats) || targetSeat == seat.Index {
		return nil, ErrInvalidTarget
	}
	target := g.Seats[targetSeat]
	if target.Eliminated {
		return nil, ErrInvalidTarget
	}
	if len(target.Hand) == 0 {
		return nil, ErrTargetHasNoCards
	}

	comboCards, err := comboSet(seat.Hand, cat, mode)
	if err != nil {
		return nil, err
	}
	if (mode == domain.ComboTriple || mode == domain.ComboThemed) && desiredCard == "" {
		return nil, ErrDesiredCardRequired
	}
	s.clearAutoplay(seat)

	for _, c := range comboCards {
		hand, _ := domain.RemoveOne(seat.Hand, c)
		seat.Hand = hand
		g.DiscardPile = append(g.DiscardPile, c)
	}

	pending := &domain.Pending{
		Kind:        domain.PendingCatCombo,
		Card:        cat,
		ActorSeat:   seat.Index,
		Mode:        mode,
		ComboCards:  comboCards,
		TargetSeat:  targetSeat,
		DesiredCard: desiredCard,
	}
	domain.OpenWindow(g, pending, now, s.nopeSeconds, s.nopeCap)

	events := []Event{{
		Kind: EventActionPending,
		Payload: ActionPendingPayload{
			Seat:           seat.Index,
			Card:           cat,
			TargetSeat:     targetSeat,
			WindowDeadline: pending.WindowDeadline,
		},
	}}
	return s.withConservationCheck(g, events), nil
}

// comboSet picks the cards a combo consumes from the hand.
func comboSet(hand []domain.CardKind, cat domain.CardKind, mode domain.ComboMode) ([]domain.CardKind, error) {
	switch mode {
	case domain.ComboPair:
		if domain.CountKind(hand, cat) < 2 {
			return nil, ErrInsufficientSetSize
		}
		return []domain.CardKind{cat, cat}, nil
	case domain.ComboTriple:
		if domain.CountKind(hand, cat) < 3 {
			return nil, ErrInsufficientSetSize
		}
		return []domain.CardKind{cat, cat, cat}, nil
	case domain.ComboThemed:
		// Two cards sharing the named cat's theme, the named cat first.
		if !domain.Contains(hand, cat) {
			return nil, ErrInsufficientSetSize
		}
		rest, _ := domain.RemoveOne(hand, cat)
		for _, c := range rest {
			if c == cat || domain.SameTheme(c, cat) {
				return []domain.CardKind{cat, c}, nil
			}
		}
		return nil, ErrInsufficientSetSize
	default:
		return nil, ErrInsufficientSetSize
	}
}

// GiveFavorCard resolves an open favor or pair-combo request: the targeted
// seat hands the chosen card to the requester.
func (s *Service) GiveFavorCard(g *domain.Game, userID string, card domain.CardKind, now int64) ([]Event, error) {
	if g.Phase != domain.PhaseInProgress {
		return nil, ErrNotInProgress
	}
	seat := g.SeatByUser(userID)
	if seat == nil || seat.Eliminated {
		return nil, ErrUnknownPlayer
	}
	if g.Give == nil || g.Give.FromSeat != seat.Index {
		return nil, ErrNoPendingGive
	}
	if !domain.Contains(seat.Hand, card) {
		return nil, ErrCardNotInHand
	}
	s.clearAutoplay(seat)

	events := s.applyGive(g, seat, card, now)
	return s.withConservationCheck(g, events), nil
}

func (s *Service) applyGive(g *domain.Game, from *domain.Seat, card domain.CardKind, now int64) []Event {
	to := g.Seats[g.Give.ToSeat]
	hand, _ := domain.RemoveOne(from.Hand, card)
	from.Hand = hand
	to.Hand = append(to.Hand, card)
	g.Give = nil
	g.TurnPhase = domain.TurnAwaitingDraw
	g.BumpTurnSeq()

	events := []Event{
		{
			Kind:    EventFavorGiven,
			Payload: FavorGivenPayload{FromSeat: from.Index, ToSeat: to.Index},
		},
		{
			Kind:       EventFavorGiven,
			Payload:    FavorGivenPayload{FromSeat: from.Index, ToSeat: to.Index, Card: card},
			Recipients: []string{from.UserID, to.UserID},
		},
	}
	// The original actor's turn resumes.
	events = append(events, s.armTurn(g, now))
	return events
}

// Leave removes a seat mid-game. If the seat was the current actor the turn
// advances as if an idle default had fired.
func (s *Service) Leave(g *domain.Game, userID string, now int64) ([]Event, error) {
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
	domain.RemoveSeat(g, userID)
	events = append(events, s.endIfDecided(g)...)
	if g.Phase == domain.PhaseInProgress {
		switch {
		case g.Pending != nil:
			// A window between surviving seats keeps its own deadline.
		case g.Give != nil:
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
		default:
			events = append(events, s.armTurn(g, now))
		}
	}
	return s.withConservationCheck(g, events), nil
}

// actorSeat validates the command comes from the current actor.
func (s *Service) actorSeat(g *domain.Game, userID string) (*domain.Seat, error) {
	if g.Phase != domain.PhaseInProgress {
		return nil, ErrNotInProgress
	}
	seat := g.SeatByUser(userID)
	if seat == nil || seat.Eliminated {
		return nil, ErrUnknownPlayer
	}
	if g.CurrentSeat() != seat {
		return nil, ErrNotYourTurn
	}
	return seat, nil
}

func (s *Service) clearAutoplay(seat *domain.Seat) {
	seat.AutoplayTriggered = false
}

// eliminate removes a seat from turn order after an undefused explosive.
func (s *Service) eliminate(g *domain.Game, seat *domain.Seat) []Event {
	domain.EliminateSeat(g, seat.Index)
	return []Event{{
		Kind:    EventPlayerEliminated,
		Payload: PlayerEliminatedPayload{Seat: seat.Index, UserID: seat.UserID},
	}}
}

// endIfDecided completes the game when at most one living seat remains.
func (s *Service) endIfDecided(g *domain.Game) []Event {
	if g.Phase != domain.PhaseInProgress {
		return nil
	}
	winner := domain.Winner(g)
	if winner == nil {
		return nil
	}
	g.FinishOrder = append(g.FinishOrder, winner.UserID)
	g.Phase = domain.PhaseCompleted
	g.BumpTurnSeq()

	return []Event{{
		Kind: EventGameEnded,
		Payload: GameEndedPayload{
			Ranking:        Ranking(g),
			BalanceChanges: s.settlement(g, winner.UserID),
		},
	}}
}

// Ranking returns user ids best first: the winner, then eliminations in
// reverse order.
func Ranking(g *domain.Game) []string {
	out := make([]string, 0, len(g.FinishOrder))
	for i := len(g.FinishOrder) - 1; i >= 0; i-- {
		out = append(out, g.FinishOrder[i])
	}
	return out
}

// settlement computes balance deltas: the winner collects the base bet from
// every other participant.
func (s *Service) settlement(g *domain.Game, winnerID string) map[string]int64 {
	if g.BaseBet <= 0 {
		return nil
	}
	changes := make(map[string]int64)
	for _, userID := range g.FinishOrder {
		if userID == winnerID {
			continue
		}
		changes[userID] = -g.BaseBet
		changes[winnerID] += g.BaseBet
	}
	return changes
}

// fatal force-completes the room on an invariant violation. The state is
// surfaced, never silently repaired.
func (s *Service) fatal(g *domain.Game, outcome string) []Event {
	g.Phase = domain.PhaseCompleted
	g.FatalOutcome = outcome
	g.Pending = nil
	g.Give = nil
	g.BumpTurnSeq()
	return []Event{{
		Kind:    EventGameEnded,
		Payload: GameEndedPayload{Ranking: Ranking(g), ErrorOutcome: outcome},
	}}
}

// withConservationCheck verifies the card-conservation invariant after a
// mutation and converts a violation into a fatal room outcome.
func (s *Service) withConservationCheck(g *domain.Game, events []Event) []Event {
	if g.Phase == domain.PhaseInProgress && !g.ConservationHolds() {
		return append(events, s.fatal(g, fatalConservation)...)
	}
	return events
}
