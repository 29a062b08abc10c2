package domain

// Phase represents the lifecycle stage of a room.
type Phase string

const (
	// PhaseLobby is the pre-game state where players can join.
	PhaseLobby Phase = "lobby"
	// PhaseInProgress is the active game state.
	PhaseInProgress Phase = "in_progress"
	// PhaseCompleted is the state after a game concludes.
	PhaseCompleted Phase = "completed"
)

// Variant identifies the game family a room runs.
type Variant string

const (
	VariantCritical  Variant = "critical"
	VariantHoldem    Variant = "holdem"
	VariantSeaBattle Variant = "sea_battle"
)

// TurnPhase is the per-turn sub-state of the critical engine.
type TurnPhase string

const (
	// TurnAwaitingDraw: the current actor must draw or play an action card.
	TurnAwaitingDraw TurnPhase = "awaiting_draw"
	// TurnResolving: an interactive card is inside its counter window.
	TurnResolving TurnPhase = "resolving"
	// TurnAwaitingDefuse: the current actor drew an explosive while holding a
	// defuse and must choose a reinsert depth.
	TurnAwaitingDefuse TurnPhase = "awaiting_defuse"
	// TurnAwaitingGive: a favor or pair-combo target must hand over a card.
	TurnAwaitingGive TurnPhase = "awaiting_give"
)

// Seat holds per-player state inside a running critical game.
type Seat struct {
	UserID string
	Index  int
	Hand   []CardKind

	Eliminated        bool
	AutoplayTriggered bool
	// ExtraTurns counts mandatory turns left beyond the current one,
	// accumulated by attack cards.
	ExtraTurns int
}

// PendingKind distinguishes what a counter window is protecting.
type PendingKind string

const (
	PendingAction   PendingKind = "action"
	PendingCatCombo PendingKind = "cat_combo"
)

// Pending is the action or combo whose effect is held open inside a counter
// window. The nope stack supports re-countering; parity decides the outcome.
type Pending struct {
	Kind      PendingKind
	Card      CardKind
	ActorSeat int

	// Combo fields.
	Mode        ComboMode
	ComboCards  []CardKind
	TargetSeat  int
	DesiredCard CardKind

	// Nopes holds the seat index of each counter in play order.
	Nopes []int

	// WindowDeadline / WindowCap are absolute ticks.
	WindowDeadline int64
	WindowCap      int64
}

// GiveRequest tracks an open favor or pair-combo hand-over.
type GiveRequest struct {
	FromSeat int // seat that must give a card
	ToSeat   int // seat that receives it
	Deadline int64
}

// Alarm is a scheduled timer owned by the room. Firing is routed through the
// same per-room serialization as ordinary commands; a stale Seq makes the
// firing a no-op.
type Alarm struct {
	Seq        int64
	FireAtTick int64
}

// Game is the authoritative state of one critical-variant room.
type Game struct {
	Phase      Phase
	Expansions []string

	Seats []*Seat
	// Turn is an index into Seats; Direction is +1 or -1. Removal repairs by
	// compaction, never by linked pointers.
	Turn      int
	Direction int
	TurnPhase TurnPhase

	DrawPile    []CardKind
	DiscardPile []CardKind

	Pending *Pending
	Give    *GiveRequest

	// TurnSeq increments whenever the actor or turn phase changes. Idle
	// alarms capture it at arm time and are ignored on mismatch.
	TurnSeq   int64
	TurnAlarm *Alarm

	// FinishOrder lists user ids from first eliminated to winner.
	FinishOrder []string

	// FatalOutcome is set when an internal invariant check failed and the
	// room was force-completed.
	FatalOutcome string

	BaseBet    int64
	TotalCards int
}

// LivingSeats returns the seats still in turn order.
func (g *Game) LivingSeats() []*Seat {
	out := make([]*Seat, 0, len(g.Seats))
	for _, s := range g.Seats {
		if !s.Eliminated {
			out = append(out, s)
		}
	}
	return out
}

// SeatByUser returns the seat for a user id, or nil.
func (g *Game) SeatByUser(userID string) *Seat {
	for _, s := range g.Seats {
		if s.UserID == userID {
			return s
		}
	}
	return nil
}

// CurrentSeat returns the current actor's seat.
func (g *Game) CurrentSeat() *Seat {
	if g.Turn < 0 || g.Turn >= len(g.Seats) {
		return nil
	}
	return g.Seats[g.Turn]
}

// CardCount sums the draw pile, discard pile and every hand. The conservation
// invariant requires it to equal TotalCards at every transition.
func (g *Game) CardCount() int {
	n := len(g.DrawPile) + len(g.DiscardPile)
	for _, s := range g.Seats {
		n += len(s.Hand)
	}
	return n
}

// ConservationHolds checks the card-conservation invariant.
func (g *Game) ConservationHolds() bool {
	return g.CardCount() == g.TotalCards
}

// BumpTurnSeq invalidates any armed alarm.
func (g *Game) BumpTurnSeq() {
	g.TurnSeq++
	g.TurnAlarm = nil
}
