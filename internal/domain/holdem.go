package domain

import (
	"errors"
	"math/rand"
	"sort"
)

// Street is the holdem betting stage.
type Street string

const (
	StreetPreflop  Street = "preflop"
	StreetFlop     Street = "flop"
	StreetTurn     Street = "turn"
	StreetRiver    Street = "river"
	StreetShowdown Street = "showdown"
)

// HoldemCard is a standard playing card. Rank 2..14 (ace high), suit 0..3.
type HoldemCard struct {
	Rank int `json:"rank"`
	Suit int `json:"suit"`
}

// NewHoldemDeck returns a shuffled 52-card deck.
func NewHoldemDeck(rng *rand.Rand) []HoldemCard {
	deck := make([]HoldemCard, 0, 52)
	for r := 2; r <= 14; r++ {
		for s := 0; s <= 3; s++ {
			deck = append(deck, HoldemCard{Rank: r, Suit: s})
		}
	}
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	return deck
}

// HandEvaluator ranks a 2-card hole against a 5-card board. It is a pure,
// bounded-time computation invoked only at showdown.
type HandEvaluator interface {
	// Score returns a comparable strength (higher wins) and a human-readable
	// description of the best 5-card hand.
	Score(hole []HoldemCard, board []HoldemCard) (int32, string, error)
}

// HoldemSeat is per-player state inside a hand.
type HoldemSeat struct {
	UserID string
	Index  int

	Stack     int64
	Committed int64 // chips committed this street
	TotalPaid int64 // chips committed this hand, drives side pots

	Hole   []HoldemCard
	Folded bool
	// AllIn is a distinct terminal per-seat state, not a fold: the seat stays
	// eligible for the pots it funded.
	AllIn bool
	// Acted reports whether the seat has acted this street. Posting a blind is
	// not an action, so the big blind keeps its preflop option.
	Acted bool

	AutoplayTriggered bool
}

// HoldemGame is the authoritative state of one holdem-variant room.
type HoldemGame struct {
	Phase  Phase
	Street Street

	Seats     []*HoldemSeat
	DealerIdx int
	Turn      int

	SmallBlind    int64
	BigBlind      int64
	Pot           int64
	CurrentBet    int64 // highest Committed this street
	LastRaiseSize int64 // last raise increment; an opening bet counts from 0

	Deck  []HoldemCard
	Board []HoldemCard

	TurnSeq   int64
	TurnAlarm *Alarm
}

var (
	ErrNotYourTurn   = errors.New("not your turn")
	ErrCheckOwed     = errors.New("cannot check while a call is owed")
	ErrNothingToCall = errors.New("nothing to call")
	ErrRaiseTooSmall = errors.New("raise below minimum increment")
	ErrSeatNotInHand = errors.New("seat not in hand")
	ErrHandNotActive = errors.New("hand not active")
	ErrTooFewPlayers = errors.New("not enough players to start")
	ErrInvalidBuyIn  = errors.New("starting chips must be positive")
)

// NewHoldemGame deals a hand, posts blinds and sets the first actor after the
// big blind.
func NewHoldemGame(rng *rand.Rand, userIDs []string, startingChips, smallBlind, bigBlind int64) (*HoldemGame, error) {
	if len(userIDs) < 2 {
		return nil, ErrTooFewPlayers
	}
	if startingChips <= 0 {
		return nil, ErrInvalidBuyIn
	}

	g := &HoldemGame{
		Phase:      PhaseInProgress,
		Street:     StreetPreflop,
		SmallBlind: smallBlind,
		BigBlind:   bigBlind,
		Deck:       NewHoldemDeck(rng),
	}
	for i, userID := range userIDs {
		g.Seats = append(g.Seats, &HoldemSeat{UserID: userID, Index: i, Stack: startingChips})
	}

	for _, seat := range g.Seats {
		seat.Hole = append(seat.Hole, g.Deck[:2]...)
		g.Deck = g.Deck[2:]
	}

	sbIdx := (g.DealerIdx + 1) % len(g.Seats)
	bbIdx := (g.DealerIdx + 2) % len(g.Seats)
	if len(g.Seats) == 2 {
		// Heads-up: dealer posts the small blind.
		sbIdx = g.DealerIdx
		bbIdx = (g.DealerIdx + 1) % len(g.Seats)
	}
	g.postBlind(g.Seats[sbIdx], smallBlind)
	g.postBlind(g.Seats[bbIdx], bigBlind)
	g.CurrentBet = bigBlind
	g.LastRaiseSize = bigBlind
	g.Turn = (bbIdx + 1) % len(g.Seats)
	g.skipIneligible()
	return g, nil
}

func (g *HoldemGame) postBlind(seat *HoldemSeat, amount int64) {
	pay := amount
	if seat.Stack <= pay {
		pay = seat.Stack
		seat.AllIn = true
	}
	seat.Stack -= pay
	seat.Committed += pay
	seat.TotalPaid += pay
	g.Pot += pay
}

// SeatByUser returns the seat for a user id, or nil.
func (g *HoldemGame) SeatByUser(userID string) *HoldemSeat {
	for _, s := range g.Seats {
		if s.UserID == userID {
			return s
		}
	}
	return nil
}

// CurrentSeat returns the acting seat.
func (g *HoldemGame) CurrentSeat() *HoldemSeat {
	if g.Turn < 0 || g.Turn >= len(g.Seats) {
		return nil
	}
	return g.Seats[g.Turn]
}

// BumpTurnSeq invalidates any armed alarm.
func (g *HoldemGame) BumpTurnSeq() {
	g.TurnSeq++
	g.TurnAlarm = nil
}

func (g *HoldemGame) eligible(seat *HoldemSeat) bool {
	return !seat.Folded && !seat.AllIn
}

// Owed returns how much the seat must add to match the current bet.
func (g *HoldemGame) Owed(seat *HoldemSeat) int64 {
	owed := g.CurrentBet - seat.Committed
	if owed < 0 {
		return 0
	}
	return owed
}

// countNeedToAct recomputes how many eligible seats still must act before the
// betting round closes.
func (g *HoldemGame) countNeedToAct() int {
	need := 0
	for _, seat := range g.Seats {
		if !g.eligible(seat) {
			continue
		}
		if !seat.Acted || seat.Committed < g.CurrentBet {
			need++
		}
	}
	return need
}

// RoundClosed reports whether betting is closed for this street: every
// non-folded, non-all-in seat has acted and matched the current bet.
func (g *HoldemGame) RoundClosed() bool {
	elig := 0
	for _, seat := range g.Seats {
		if g.eligible(seat) {
			elig++
		}
	}
	return g.countNeedToAct() == 0 || elig <= 1
}

// ContestedBy returns seats that have not folded.
func (g *HoldemGame) ContestedBy() []*HoldemSeat {
	out := make([]*HoldemSeat, 0, len(g.Seats))
	for _, seat := range g.Seats {
		if !seat.Folded {
			out = append(out, seat)
		}
	}
	return out
}

func (g *HoldemGame) skipIneligible() {
	for i := 0; i < len(g.Seats); i++ {
		if g.eligible(g.Seats[g.Turn]) {
			return
		}
		g.Turn = (g.Turn + 1) % len(g.Seats)
	}
}

// AdvanceActor moves the action to the next eligible seat.
func (g *HoldemGame) AdvanceActor() {
	g.Turn = (g.Turn + 1) % len(g.Seats)
	g.skipIneligible()
	g.BumpTurnSeq()
}

// Fold folds the acting seat.
func (g *HoldemGame) Fold(seat *HoldemSeat) error {
	if err := g.checkActor(seat); err != nil {
		return err
	}
	seat.Folded = true
	seat.Acted = true
	g.AdvanceActor()
	return nil
}

// Check passes the action; valid only when nothing is owed.
func (g *HoldemGame) Check(seat *HoldemSeat) error {
	if err := g.checkActor(seat); err != nil {
		return err
	}
	if g.Owed(seat) > 0 {
		return ErrCheckOwed
	}
	seat.Acted = true
	g.AdvanceActor()
	return nil
}

// Call matches the current bet; valid only when something is owed. A short
// stack calls all-in for the lesser amount.
func (g *HoldemGame) Call(seat *HoldemSeat) error {
	if err := g.checkActor(seat); err != nil {
		return err
	}
	owed := g.Owed(seat)
	if owed == 0 {
		return ErrNothingToCall
	}
	g.commit(seat, owed)
	seat.Acted = true
	g.AdvanceActor()
	return nil
}

// Raise raises to raiseTo total for this street. The raise increment must be
// at least the last raise size. A raise beyond the stack auto-downgrades to
// all-in for the remaining chips.
func (g *HoldemGame) Raise(seat *HoldemSeat, raiseTo int64) error {
	if err := g.checkActor(seat); err != nil {
		return err
	}
	maxTo := seat.Committed + seat.Stack
	allIn := false
	if raiseTo >= maxTo {
		raiseTo = maxTo
		allIn = true
	}
	if raiseTo <= g.CurrentBet {
		return ErrRaiseTooSmall
	}
	increment := raiseTo - g.CurrentBet
	if !allIn && increment < g.LastRaiseSize {
		return ErrRaiseTooSmall
	}
	g.commit(seat, raiseTo-seat.Committed)
	if increment >= g.LastRaiseSize {
		g.LastRaiseSize = increment
	}
	g.CurrentBet = raiseTo
	// A raise reopens the action for everyone still in.
	for _, other := range g.Seats {
		if other != seat {
			other.Acted = false
		}
	}
	seat.Acted = true
	g.AdvanceActor()
	return nil
}

func (g *HoldemGame) checkActor(seat *HoldemSeat) error {
	if seat == nil || seat.Folded {
		return ErrSeatNotInHand
	}
	if g.Street == StreetShowdown || g.Phase != PhaseInProgress {
		return ErrHandNotActive
	}
	if g.CurrentSeat() != seat {
		return ErrNotYourTurn
	}
	return nil
}

func (g *HoldemGame) commit(seat *HoldemSeat, amount int64) {
	if amount >= seat.Stack {
		amount = seat.Stack
		seat.AllIn = true
	}
	seat.Stack -= amount
	seat.Committed += amount
	seat.TotalPaid += amount
	g.Pot += amount
}

// AdvanceStreet deals the next street and resets per-street betting state.
// Returns the newly dealt board cards.
func (g *HoldemGame) AdvanceStreet() []HoldemCard {
	for _, seat := range g.Seats {
		seat.Committed = 0
		seat.Acted = false
	}
	g.CurrentBet = 0
	g.LastRaiseSize = g.BigBlind

	var dealt []HoldemCard
	switch g.Street {
	case StreetPreflop:
		dealt = g.Deck[:3]
		g.Street = StreetFlop
	case StreetFlop:
		dealt = g.Deck[:1]
		g.Street = StreetTurn
	case StreetTurn:
		dealt = g.Deck[:1]
		g.Street = StreetRiver
	case StreetRiver:
		g.Street = StreetShowdown
		return nil
	default:
		return nil
	}
	g.Board = append(g.Board, dealt...)
	g.Deck = g.Deck[len(dealt):]

	g.Turn = (g.DealerIdx + 1) % len(g.Seats)
	g.skipIneligible()
	g.BumpTurnSeq()
	return dealt
}

// PotShare is one pot layer with its winners.
type PotShare struct {
	Amount  int64
	Winners []string
}

// Showdown settles the hand with layered side pots. Each layer spans one
// distinct all-in level; folded seats fund layers but never win them.
func (g *HoldemGame) Showdown(eval HandEvaluator) ([]PotShare, map[string]int64, error) {
	contested := g.ContestedBy()
	winnings := make(map[string]int64)

	if len(contested) == 1 {
		// Everyone else folded; no evaluation needed.
		winnings[contested[0].UserID] = g.Pot
		g.Phase = PhaseCompleted
		return []PotShare{{Amount: g.Pot, Winners: []string{contested[0].UserID}}}, winnings, nil
	}

	scores := make(map[string]int32, len(contested))
	for _, seat := range contested {
		score, _, err := eval.Score(seat.Hole, g.Board)
		if err != nil {
			return nil, nil, err
		}
		scores[seat.UserID] = score
	}

	// Distinct contribution levels define the pot layers.
	levels := make([]int64, 0, len(g.Seats))
	seen := make(map[int64]bool)
	for _, seat := range g.Seats {
		if seat.TotalPaid > 0 && !seen[seat.TotalPaid] {
			seen[seat.TotalPaid] = true
			levels = append(levels, seat.TotalPaid)
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	var shares []PotShare
	prev := int64(0)
	for _, level := range levels {
		layer := int64(0)
		for _, seat := range g.Seats {
			paid := seat.TotalPaid
			if paid > level {
				paid = level
			}
			if paid > prev {
				layer += paid - prev
			}
		}

		var best int32
		var winners []string
		for _, seat := range contested {
			if seat.TotalPaid < level {
				continue
			}
			score := scores[seat.UserID]
			if len(winners) == 0 || score > best {
				best = score
				winners = []string{seat.UserID}
			} else if score == best {
				winners = append(winners, seat.UserID)
			}
		}
		if len(winners) > 0 && layer > 0 {
			share := layer / int64(len(winners))
			remainder := layer % int64(len(winners))
			for i, userID := range winners {
				amount := share
				if int64(i) < remainder {
					amount++
				}
				winnings[userID] += amount
			}
			shares = append(shares, PotShare{Amount: layer, Winners: winners})
		}
		prev = level
	}

	g.Phase = PhaseCompleted
	return shares, winnings, nil
}
