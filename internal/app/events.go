package app

import "github.com/AnAtoliy-AA/arcadeum-sub008/internal/domain"

// EventKind identifies emitted domain events for transport dispatch.
type EventKind string

const (
	EventRoomUpdate       EventKind = "room.update"
	EventPlayerJoined     EventKind = "player.joined"
	EventPlayerLeft       EventKind = "player.left"
	EventGameStarted      EventKind = "game.started"
	EventHandDealt        EventKind = "hand.dealt"
	EventCardDrawn        EventKind = "card.drawn"
	EventActionPending    EventKind = "action.pending"
	EventActionNoped      EventKind = "action.noped"
	EventActionResolved   EventKind = "action.resolved"
	EventFavorRequested   EventKind = "favor.requested"
	EventFavorGiven       EventKind = "favor.given"
	EventDefuseRequired   EventKind = "defuse.required"
	EventFutureSeen       EventKind = "future.seen"
	EventPlayerEliminated EventKind = "player.eliminated"
	EventTurnAdvanced     EventKind = "turn.advanced"
	EventGameEnded        EventKind = "game.ended"

	EventHoldemStarted  EventKind = "holdem.started"
	EventHoldemAction   EventKind = "holdem.action"
	EventHoldemStreet   EventKind = "holdem.street"
	EventHoldemShowdown EventKind = "holdem.showdown"

	EventRematchInvited EventKind = "rematch.invited"
	EventRematchUpdated EventKind = "rematch.updated"

	// EventException carries a rejected-command message to the offender.
	EventException EventKind = "exception"
)

// Event is an app-level event appended to the per-command outbox. The
// dispatcher delivers events after the mutation completes; empty Recipients
// means broadcast.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string
}

type GameStartedPayload struct {
	Seats      []string `json:"seats"`
	FirstTurn  int      `json:"first_turn"`
	Expansions []string `json:"expansions,omitempty"`
}

type PlayerJoinedPayload struct {
	UserID      string `json:"user_id"`
	Seat        int    `json:"seat"`
	DisplayName string `json:"display_name,omitempty"`
}

type PlayerLeftPayload struct {
	UserID string `json:"user_id"`
}

type HandDealtPayload struct {
	UserID string            `json:"user_id"`
	Hand   []domain.CardKind `json:"hand"`
}

type CardDrawnPayload struct {
	Seat int `json:"seat"`
	// Card is only present on the targeted copy sent to the drawer.
	Card      domain.CardKind `json:"card,omitempty"`
	Explosive bool            `json:"explosive,omitempty"`
}

type ActionPendingPayload struct {
	Seat           int             `json:"seat"`
	Card           domain.CardKind `json:"card"`
	TargetSeat     int             `json:"target_seat"`
	WindowDeadline int64           `json:"window_deadline"`
}

type ActionNopedPayload struct {
	Seat           int   `json:"seat"`
	NopeCount      int   `json:"nope_count"`
	WindowDeadline int64 `json:"window_deadline"`
}

type ActionResolvedPayload struct {
	Card             domain.CardKind `json:"card"`
	Applied          bool            `json:"applied"`
	NopeCount        int             `json:"nope_count"`
	DirectionFlipped bool            `json:"direction_flipped,omitempty"`
	PileShuffled     bool            `json:"pile_shuffled,omitempty"`
	StolenFromSeat   int             `json:"stolen_from_seat,omitempty"`
	ComboMiss        bool            `json:"combo_miss,omitempty"`
}

type FavorRequestedPayload struct {
	FromSeat int   `json:"from_seat"`
	ToSeat   int   `json:"to_seat"`
	Deadline int64 `json:"deadline"`
}

type FavorGivenPayload struct {
	FromSeat int `json:"from_seat"`
	ToSeat   int `json:"to_seat"`
	// Card appears only on the targeted copies for the two seats involved.
	Card domain.CardKind `json:"card,omitempty"`
}

type DefuseRequiredPayload struct {
	Seat     int   `json:"seat"`
	Deadline int64 `json:"deadline"`
}

type FutureSeenPayload struct {
	Seat  int               `json:"seat"`
	Cards []domain.CardKind `json:"cards"`
}

type PlayerEliminatedPayload struct {
	Seat   int    `json:"seat"`
	UserID string `json:"user_id"`
}

type TurnAdvancedPayload struct {
	Seat              int              `json:"seat"`
	Phase             domain.TurnPhase `json:"phase,omitempty"`
	Direction         int              `json:"direction,omitempty"`
	AutoplayTriggered bool             `json:"autoplay_triggered,omitempty"`
	Deadline          int64            `json:"deadline"`
}

type GameEndedPayload struct {
	// Ranking is best first.
	Ranking        []string         `json:"ranking,omitempty"`
	ErrorOutcome   string           `json:"error_outcome,omitempty"`
	BalanceChanges map[string]int64 `json:"balance_changes,omitempty"`
}

type HoldemStartedPayload struct {
	Seats         []string `json:"seats"`
	StartingChips int64    `json:"starting_chips"`
	SmallBlind    int64    `json:"small_blind"`
	BigBlind      int64    `json:"big_blind"`
	FirstTurn     int      `json:"first_turn"`
}

type HoldemHolePayload struct {
	UserID string              `json:"user_id"`
	Hole   []domain.HoldemCard `json:"hole"`
}

type HoldemActionPayload struct {
	Seat     int    `json:"seat"`
	Action   string `json:"action"`
	Amount   int64  `json:"amount"`
	AllIn    bool   `json:"all_in,omitempty"`
	Pot      int64  `json:"pot"`
	NextTurn int    `json:"next_turn"`
}

type HoldemStreetPayload struct {
	Street string              `json:"street"`
	Board  []domain.HoldemCard `json:"board"`
	Pot    int64               `json:"pot"`
}

type HoldemShowdownPayload struct {
	Pots     []domain.PotShare   `json:"pots"`
	Winnings map[string]int64    `json:"winnings"`
	Board    []domain.HoldemCard `json:"board"`
}

type ExceptionPayload struct {
	Message string `json:"message"`
}
