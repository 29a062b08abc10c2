package domain

import (
	"math/rand"
	"testing"
)

// fakeEval scores a hand by its first hole card so tests can rig outcomes.
type fakeEval struct{}

func (fakeEval) Score(hole []HoldemCard, board []HoldemCard) (int32, string, error) {
	return int32(hole[0].Rank), "rigged", nil
}

func newHoldemTestGame(t *testing.T, players int, chips int64) *HoldemGame {
	t.Helper()
	rng := rand.New(rand.NewSource(11))
	ids := []string{"a", "b", "c", "d"}[:players]
	g, err := NewHoldemGame(rng, ids, chips, 10, 20)
	if err != nil {
		t.Fatalf("new holdem game: %v", err)
	}
	return g
}

func TestNewHoldemGamePostsBlinds(t *testing.T) {
	g := newHoldemTestGame(t, 3, 200)

	// Dealer 0, small blind 1, big blind 2, action on 0.
	if g.Seats[1].Committed != 10 || g.Seats[2].Committed != 20 {
		t.Fatalf("blinds = %d/%d, want 10/20", g.Seats[1].Committed, g.Seats[2].Committed)
	}
	if g.Pot != 30 {
		t.Fatalf("pot = %d, want 30", g.Pot)
	}
	if g.Turn != 0 {
		t.Fatalf("first actor = %d, want 0", g.Turn)
	}
	for _, seat := range g.Seats {
		if len(seat.Hole) != 2 {
			t.Fatalf("seat %d hole = %d cards, want 2", seat.Index, len(seat.Hole))
		}
	}
}

func TestNewHoldemGameHeadsUpDealerPostsSmall(t *testing.T) {
	g := newHoldemTestGame(t, 2, 200)

	if g.Seats[0].Committed != 10 || g.Seats[1].Committed != 20 {
		t.Fatalf("heads-up blinds = %d/%d, want dealer 10 / other 20", g.Seats[0].Committed, g.Seats[1].Committed)
	}
	if g.Turn != 0 {
		t.Fatalf("heads-up first actor = %d, want dealer", g.Turn)
	}
}

func TestCheckRequiresNothingOwed(t *testing.T) {
	g := newHoldemTestGame(t, 3, 200)

	if err := g.Check(g.Seats[0]); err != ErrCheckOwed {
		t.Fatalf("check with a call owed = %v, want ErrCheckOwed", err)
	}
	if err := g.Call(g.Seats[0]); err != nil {
		t.Fatalf("call: %v", err)
	}
	if g.Seats[0].Committed != 20 {
		t.Fatalf("committed = %d, want 20", g.Seats[0].Committed)
	}
}

func TestShortStackRaiseBecomesAllIn(t *testing.T) {
	g := newHoldemTestGame(t, 2, 200)
	// Dealer already posted the small blind; cap the remaining stack so the
	// seat has 50 total behind this street.
	g.Seats[0].Stack = 40

	if err := g.Raise(g.Seats[0], 100); err != nil {
		t.Fatalf("raise: %v", err)
	}
	seat := g.Seats[0]
	if !seat.AllIn {
		t.Fatalf("short raise did not convert to all-in")
	}
	if seat.Committed != 50 || seat.Stack != 0 {
		t.Fatalf("committed = %d stack = %d, want 50/0", seat.Committed, seat.Stack)
	}
	if g.CurrentBet != 50 {
		t.Fatalf("current bet = %d, want the lesser all-in amount 50", g.CurrentBet)
	}
	if g.Pot != 70 {
		t.Fatalf("pot = %d, want 70", g.Pot)
	}
}

func TestRaiseBelowMinimumRejected(t *testing.T) {
	g := newHoldemTestGame(t, 3, 200)

	// Min raise over the 20 big blind is to 40.
	if err := g.Raise(g.Seats[0], 30); err != ErrRaiseTooSmall {
		t.Fatalf("undersized raise = %v, want ErrRaiseTooSmall", err)
	}
	if err := g.Raise(g.Seats[0], 40); err != nil {
		t.Fatalf("min raise: %v", err)
	}
	if g.LastRaiseSize != 20 {
		t.Fatalf("last raise size = %d, want 20", g.LastRaiseSize)
	}
}

func TestRoundClosedAndStreetAdvance(t *testing.T) {
	g := newHoldemTestGame(t, 3, 200)

	if g.RoundClosed() {
		t.Fatalf("round closed before anyone acted")
	}
	if err := g.Call(g.Seats[0]); err != nil {
		t.Fatalf("call: %v", err)
	}
	if err := g.Call(g.Seats[1]); err != nil {
		t.Fatalf("call: %v", err)
	}
	if err := g.Check(g.Seats[2]); err != nil {
		t.Fatalf("check: %v", err)
	}
	if !g.RoundClosed() {
		t.Fatalf("round not closed after everyone matched")
	}

	dealt := g.AdvanceStreet()
	if g.Street != StreetFlop || len(dealt) != 3 {
		t.Fatalf("street = %s dealt = %d, want flop/3", g.Street, len(dealt))
	}
	if g.CurrentBet != 0 {
		t.Fatalf("current bet not reset")
	}
	for _, seat := range g.Seats {
		if seat.Committed != 0 {
			t.Fatalf("seat %d committed not reset", seat.Index)
		}
	}
	// Post-flop action starts left of the dealer.
	if g.Turn != 1 {
		t.Fatalf("post-flop actor = %d, want 1", g.Turn)
	}
}

func TestFoldOutLeavesSingleWinner(t *testing.T) {
	g := newHoldemTestGame(t, 3, 200)

	if err := g.Fold(g.Seats[0]); err != nil {
		t.Fatalf("fold: %v", err)
	}
	if err := g.Fold(g.Seats[1]); err != nil {
		t.Fatalf("fold: %v", err)
	}

	shares, winnings, err := g.Showdown(fakeEval{})
	if err != nil {
		t.Fatalf("showdown: %v", err)
	}
	if winnings["c"] != 30 {
		t.Fatalf("winnings = %v, want c to take the pot", winnings)
	}
	if len(shares) != 1 || shares[0].Amount != 30 {
		t.Fatalf("shares = %+v", shares)
	}
	if g.Phase != PhaseCompleted {
		t.Fatalf("phase = %s, want completed", g.Phase)
	}
}

func TestShowdownLayersSidePots(t *testing.T) {
	g := newHoldemTestGame(t, 3, 200)
	// Rig holes: short stack has the best hand.
	g.Seats[0].Hole = []HoldemCard{{Rank: 14, Suit: 0}, {Rank: 2, Suit: 1}}
	g.Seats[1].Hole = []HoldemCard{{Rank: 13, Suit: 0}, {Rank: 2, Suit: 2}}
	g.Seats[2].Hole = []HoldemCard{{Rank: 12, Suit: 0}, {Rank: 2, Suit: 3}}
	g.Seats[0].Stack = 50

	if err := g.Raise(g.Seats[0], 100); err != nil { // clamps to all-in 50
		t.Fatalf("all-in raise: %v", err)
	}
	if err := g.Raise(g.Seats[1], 150); err != nil {
		t.Fatalf("re-raise: %v", err)
	}
	if err := g.Call(g.Seats[2]); err != nil {
		t.Fatalf("call: %v", err)
	}
	if !g.RoundClosed() {
		t.Fatalf("round should close with one all-in and two matched")
	}

	for g.Street != StreetShowdown {
		g.AdvanceStreet()
	}

	shares, winnings, err := g.Showdown(fakeEval{})
	if err != nil {
		t.Fatalf("showdown: %v", err)
	}
	// Main pot: 50 from each of three seats. Side pot: 100 more from the two
	// deep stacks.
	if len(shares) != 2 {
		t.Fatalf("shares = %+v, want 2 layers", shares)
	}
	if shares[0].Amount != 150 || shares[0].Winners[0] != "a" {
		t.Fatalf("main pot = %+v, want 150 to a", shares[0])
	}
	if shares[1].Amount != 200 || shares[1].Winners[0] != "b" {
		t.Fatalf("side pot = %+v, want 200 to b", shares[1])
	}
	if winnings["a"] != 150 || winnings["b"] != 200 {
		t.Fatalf("winnings = %v", winnings)
	}
}

func TestSplitPotRemainderGoesToEarliestWinner(t *testing.T) {
	g := newHoldemTestGame(t, 3, 200)
	g.Seats[0].Hole = []HoldemCard{{Rank: 14, Suit: 0}, {Rank: 2, Suit: 1}}
	g.Seats[1].Hole = []HoldemCard{{Rank: 14, Suit: 1}, {Rank: 2, Suit: 2}}
	g.Seats[2].Hole = []HoldemCard{{Rank: 3, Suit: 0}, {Rank: 2, Suit: 3}}

	// Everyone in for 25: odd pot of 75 splits 38/37.
	g.CurrentBet = 25
	for _, seat := range g.Seats {
		pay := int64(25) - seat.Committed
		seat.Stack -= pay
		seat.Committed += pay
		seat.TotalPaid += pay
		g.Pot += pay
	}
	for g.Street != StreetShowdown {
		g.AdvanceStreet()
	}

	_, winnings, err := g.Showdown(fakeEval{})
	if err != nil {
		t.Fatalf("showdown: %v", err)
	}
	if winnings["a"] != 38 || winnings["b"] != 37 {
		t.Fatalf("winnings = %v, want 38/37 split", winnings)
	}
	if winnings["c"] != 0 {
		t.Fatalf("loser won chips: %v", winnings)
	}
}
