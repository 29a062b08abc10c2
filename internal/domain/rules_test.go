package domain

import (
	"math/rand"
	"testing"
)

func testGame(t *testing.T, players int) *Game {
	t.Helper()
	rng := rand.New(rand.NewSource(7))
	ids := []string{"u1", "u2", "u3", "u4", "u5"}[:players]
	return NewGame(rng, ids, nil)
}

func TestNewGameDealsAndConserves(t *testing.T) {
	g := testGame(t, 4)

	if g.Phase != PhaseInProgress {
		t.Fatalf("phase = %s, want in_progress", g.Phase)
	}
	for _, seat := range g.Seats {
		if len(seat.Hand) != 5 {
			t.Fatalf("seat %d hand size = %d, want 5", seat.Index, len(seat.Hand))
		}
		if !Contains(seat.Hand, CardDefuse) {
			t.Fatalf("seat %d dealt no defuse", seat.Index)
		}
		if Contains(seat.Hand, CardExplosive) {
			t.Fatalf("seat %d dealt an explosive", seat.Index)
		}
	}

	if got := CountKind(g.DrawPile, CardExplosive); got != 3 {
		t.Fatalf("explosives in pile = %d, want 3", got)
	}
	// 4 dealt + 2 extra defuses for 4 seats.
	if got := CountKind(g.DrawPile, CardDefuse); got != 2 {
		t.Fatalf("defuses in pile = %d, want 2", got)
	}
	if !g.ConservationHolds() {
		t.Fatalf("card count = %d, want %d", g.CardCount(), g.TotalCards)
	}
}

func TestConservationSurvivesTransitions(t *testing.T) {
	g := testGame(t, 4)

	// Draw moves a card from pile to hand.
	card, rest := DrawTop(g.DrawPile)
	g.DrawPile = rest
	g.Seats[0].Hand = append(g.Seats[0].Hand, card)
	if !g.ConservationHolds() {
		t.Fatalf("conservation broken after draw")
	}

	// Elimination moves the hand to the discard pile.
	EliminateSeat(g, 1)
	if !g.ConservationHolds() {
		t.Fatalf("conservation broken after elimination")
	}

	// Leaving does the same through compaction.
	if !RemoveSeat(g, "u3") {
		t.Fatalf("remove seat failed")
	}
	if !g.ConservationHolds() {
		t.Fatalf("conservation broken after leave")
	}
}

func TestAdvanceTurnSkipsEliminated(t *testing.T) {
	g := testGame(t, 4)
	g.Seats[1].Eliminated = true

	g.Turn = 0
	AdvanceTurn(g)
	if g.Turn != 2 {
		t.Fatalf("turn = %d, want 2 (seat 1 eliminated)", g.Turn)
	}
}

func TestAdvanceTurnHonorsDirection(t *testing.T) {
	g := testGame(t, 4)
	g.Direction = -1
	g.Turn = 0
	AdvanceTurn(g)
	if g.Turn != 3 {
		t.Fatalf("turn = %d, want 3 with reversed direction", g.Turn)
	}
}

func TestAdvanceTurnConsumesExtraTurns(t *testing.T) {
	g := testGame(t, 3)
	g.Turn = 1
	g.Seats[1].ExtraTurns = 1

	AdvanceTurn(g)
	if g.Turn != 1 {
		t.Fatalf("turn = %d, want 1 (extra turn pending)", g.Turn)
	}
	if g.Seats[1].ExtraTurns != 0 {
		t.Fatalf("extra turns = %d, want 0", g.Seats[1].ExtraTurns)
	}

	AdvanceTurn(g)
	if g.Turn != 2 {
		t.Fatalf("turn = %d, want 2 after extra turns spent", g.Turn)
	}
}

func TestTurnSeqBumpsOnActorChange(t *testing.T) {
	g := testGame(t, 3)
	before := g.TurnSeq
	AdvanceTurn(g)
	if g.TurnSeq == before {
		t.Fatalf("turn seq did not change on advance")
	}
	if g.TurnAlarm != nil {
		t.Fatalf("armed alarm survived a seq bump")
	}
}

func TestResolvePendingNopeParity(t *testing.T) {
	cases := []struct {
		name    string
		nopes   []int
		applied bool
	}{
		{"no nopes", nil, true},
		{"single nope", []int{1}, false},
		{"nope the nope", []int{1, 2}, true},
		{"triple nope", []int{1, 2, 1}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := testGame(t, 4)
			g.Turn = 0
			g.Pending = &Pending{
				Kind:      PendingAction,
				Card:      CardSkip,
				ActorSeat: 0,
				Nopes:     append([]int{}, tc.nopes...),
			}
			g.TurnPhase = TurnResolving

			res := ResolvePending(rand.New(rand.NewSource(1)), g)
			if res.Applied != tc.applied {
				t.Fatalf("applied = %v, want %v for %d nopes", res.Applied, tc.applied, len(tc.nopes))
			}
			if g.Pending != nil {
				t.Fatalf("pending survived resolution")
			}
			if tc.applied && g.Turn == 0 {
				t.Fatalf("applied skip did not advance the turn")
			}
			if !tc.applied && g.Turn != 0 {
				t.Fatalf("suppressed skip advanced the turn")
			}
		})
	}
}

func TestResolveAttackStacksTurns(t *testing.T) {
	g := testGame(t, 3)
	g.Turn = 0
	g.Pending = &Pending{Kind: PendingAction, Card: CardAttack, ActorSeat: 0}

	res := ResolvePending(rand.New(rand.NewSource(1)), g)
	if !res.Applied || !res.EndsTurn {
		t.Fatalf("attack resolution = %+v, want applied and ending turn", res)
	}
	if g.Turn != 1 {
		t.Fatalf("turn = %d, want 1", g.Turn)
	}
	if g.Seats[1].ExtraTurns != 1 {
		t.Fatalf("target extra turns = %d, want 1", g.Seats[1].ExtraTurns)
	}

	// An attacked attacker passes the stack on.
	g.Pending = &Pending{Kind: PendingAction, Card: CardAttack, ActorSeat: 1}
	ResolvePending(rand.New(rand.NewSource(1)), g)
	if g.Seats[2].ExtraTurns != 2 {
		t.Fatalf("restacked extra turns = %d, want 2", g.Seats[2].ExtraTurns)
	}
	if g.Seats[1].ExtraTurns != 0 {
		t.Fatalf("attacker kept extra turns")
	}
}

func TestResolveReverseFlipsDirection(t *testing.T) {
	g := testGame(t, 4)
	g.Turn = 1
	g.Pending = &Pending{Kind: PendingAction, Card: CardReverse, ActorSeat: 1}

	res := ResolvePending(rand.New(rand.NewSource(1)), g)
	if !res.DirectionFlipped {
		t.Fatalf("direction not flipped")
	}
	if g.Direction != -1 {
		t.Fatalf("direction = %d, want -1", g.Direction)
	}
	if g.Turn != 0 {
		t.Fatalf("turn = %d, want 0 after reversed advance", g.Turn)
	}
}

func TestResolveShuffleKeepsPileContents(t *testing.T) {
	g := testGame(t, 4)
	before := make(map[CardKind]int)
	for _, c := range g.DrawPile {
		before[c]++
	}
	g.Pending = &Pending{Kind: PendingAction, Card: CardShuffle, ActorSeat: 0}

	res := ResolvePending(rand.New(rand.NewSource(3)), g)
	if !res.PileShuffled {
		t.Fatalf("pile not shuffled")
	}
	after := make(map[CardKind]int)
	for _, c := range g.DrawPile {
		after[c]++
	}
	for kind, n := range before {
		if after[kind] != n {
			t.Fatalf("shuffle changed count of %s: %d != %d", kind, after[kind], n)
		}
	}
}

func TestResolveSeeFuturePeeksThree(t *testing.T) {
	g := testGame(t, 4)
	g.Pending = &Pending{Kind: PendingAction, Card: CardSeeFuture, ActorSeat: 0}
	pileBefore := append([]CardKind{}, g.DrawPile...)

	res := ResolvePending(rand.New(rand.NewSource(1)), g)
	if len(res.SeenFuture) != 3 {
		t.Fatalf("seen = %d cards, want 3", len(res.SeenFuture))
	}
	for i, c := range res.SeenFuture {
		if pileBefore[i] != c {
			t.Fatalf("seen[%d] = %s, want %s", i, c, pileBefore[i])
		}
	}
	if len(g.DrawPile) != len(pileBefore) {
		t.Fatalf("peek mutated the pile")
	}
}

func TestResolveFavorOpensGive(t *testing.T) {
	g := testGame(t, 3)
	g.Turn = 0
	g.Pending = &Pending{Kind: PendingAction, Card: CardFavor, ActorSeat: 0, TargetSeat: 2}

	res := ResolvePending(rand.New(rand.NewSource(1)), g)
	if !res.GiveOpened {
		t.Fatalf("give not opened")
	}
	if g.Give == nil || g.Give.FromSeat != 2 || g.Give.ToSeat != 0 {
		t.Fatalf("give = %+v, want from 2 to 0", g.Give)
	}
	if g.TurnPhase != TurnAwaitingGive {
		t.Fatalf("turn phase = %s, want awaiting_give", g.TurnPhase)
	}
}

func TestResolveThemedComboNamedTransfer(t *testing.T) {
	g := testGame(t, 4)
	g.Turn = 1
	g.Seats[2].Hand = []CardKind{CardInsight, CardDefuse}
	g.Seats[1].Hand = []CardKind{CardDefuse}
	g.TotalCards = g.CardCount()

	g.Pending = &Pending{
		Kind:        PendingCatCombo,
		Card:        CardCatTaco,
		ActorSeat:   1,
		Mode:        ComboThemed,
		TargetSeat:  2,
		DesiredCard: CardInsight,
	}

	res := ResolvePending(rand.New(rand.NewSource(1)), g)
	if res.ComboMiss {
		t.Fatalf("combo missed although target held the card")
	}
	if res.StolenCard != CardInsight || res.StoleFrom != 2 {
		t.Fatalf("stolen = %s from %d, want insight from 2", res.StolenCard, res.StoleFrom)
	}
	if Contains(g.Seats[2].Hand, CardInsight) {
		t.Fatalf("card still in target hand")
	}
	if !Contains(g.Seats[1].Hand, CardInsight) {
		t.Fatalf("card not in actor hand")
	}
	if !g.ConservationHolds() {
		t.Fatalf("conservation broken by combo transfer")
	}
}

func TestResolveNamedComboMissIsRevealed(t *testing.T) {
	g := testGame(t, 3)
	g.Seats[2].Hand = []CardKind{CardDefuse}
	g.TotalCards = g.CardCount()
	g.Pending = &Pending{
		Kind:        PendingCatCombo,
		Card:        CardCatTaco,
		ActorSeat:   0,
		Mode:        ComboTriple,
		TargetSeat:  2,
		DesiredCard: CardInsight,
	}

	res := ResolvePending(rand.New(rand.NewSource(1)), g)
	if !res.ComboMiss {
		t.Fatalf("expected a miss")
	}
	if len(g.Seats[2].Hand) != 1 {
		t.Fatalf("miss mutated the target hand")
	}
}

func TestRemoveSeatRepairsTurnOrder(t *testing.T) {
	g := testGame(t, 4)
	g.Turn = 2

	RemoveSeat(g, "u2") // index 1, before the actor
	if len(g.Seats) != 3 {
		t.Fatalf("seats = %d, want 3", len(g.Seats))
	}
	if g.Turn != 1 {
		t.Fatalf("turn = %d, want 1 after compaction", g.Turn)
	}
	for i, seat := range g.Seats {
		if seat.Index != i {
			t.Fatalf("seat %d carries stale index %d", i, seat.Index)
		}
	}
}

func TestRemoveSeatKeepsBystanderWindow(t *testing.T) {
	g := testGame(t, 4)
	g.Turn = 2
	g.Pending = &Pending{
		Kind:      PendingAction,
		Card:      CardSkip,
		ActorSeat: 2,
		Nopes:     []int{3},
	}
	g.TurnPhase = TurnResolving

	RemoveSeat(g, "u2") // index 1, not part of the window
	if g.Pending == nil {
		t.Fatalf("bystander leave closed the window")
	}
	if g.TurnPhase != TurnResolving {
		t.Fatalf("turn phase = %s, want resolving", g.TurnPhase)
	}
	if g.Pending.ActorSeat != 1 {
		t.Fatalf("actor seat = %d, want 1 after compaction", g.Pending.ActorSeat)
	}
	if g.Pending.Nopes[0] != 2 {
		t.Fatalf("nope seat = %d, want 2 after compaction", g.Pending.Nopes[0])
	}
}

func TestRemoveSeatCancelsWindowOfParticipant(t *testing.T) {
	g := testGame(t, 3)
	g.Turn = 0
	g.Pending = &Pending{Kind: PendingAction, Card: CardFavor, ActorSeat: 0, TargetSeat: 2}
	g.TurnPhase = TurnResolving

	RemoveSeat(g, "u3") // the favor target
	if g.Pending != nil {
		t.Fatalf("window survived its target leaving")
	}
	if g.TurnPhase != TurnAwaitingDraw {
		t.Fatalf("turn phase = %s, want awaiting_draw", g.TurnPhase)
	}
}

func TestRemoveSeatRepairsOpenGive(t *testing.T) {
	g := testGame(t, 4)
	g.Turn = 0
	g.Give = &GiveRequest{FromSeat: 2, ToSeat: 0}
	g.TurnPhase = TurnAwaitingGive

	RemoveSeat(g, "u2") // index 1, a bystander
	if g.Give == nil {
		t.Fatalf("bystander leave cancelled the give request")
	}
	if g.Give.FromSeat != 1 || g.Give.ToSeat != 0 {
		t.Fatalf("give = %+v, want from 1 to 0 after compaction", g.Give)
	}
	if g.TurnPhase != TurnAwaitingGive {
		t.Fatalf("turn phase = %s, want awaiting_give", g.TurnPhase)
	}

	RemoveSeat(g, "u3") // now index 1, the giver
	if g.Give != nil {
		t.Fatalf("give survived its giver leaving")
	}
	if g.TurnPhase != TurnAwaitingDraw {
		t.Fatalf("turn phase = %s, want awaiting_draw", g.TurnPhase)
	}
}

func TestWinnerNeedsSingleSurvivor(t *testing.T) {
	g := testGame(t, 3)
	if Winner(g) != nil {
		t.Fatalf("winner declared while contested")
	}
	EliminateSeat(g, 0)
	EliminateSeat(g, 2)
	w := Winner(g)
	if w == nil || w.UserID != "u2" {
		t.Fatalf("winner = %v, want u2", w)
	}
}
