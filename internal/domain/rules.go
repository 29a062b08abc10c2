package domain

import "math/rand"

// NewGame deals a critical-variant game for the given user ids. Each seat
// receives handSize-1 cards plus one defuse; the remaining defuses and
// seats-1 explosives are shuffled into the draw pile.
func NewGame(rng *rand.Rand, userIDs []string, expansions []string) *Game {
	pile := BuildDrawPile(expansions)
	Shuffle(rng, pile)

	game := &Game{
		Phase:      PhaseInProgress,
		Expansions: append([]string{}, expansions...),
		Direction:  1,
		TurnPhase:  TurnAwaitingDraw,
		TotalCards: TotalCardsForConfig(len(userIDs), expansions),
	}

	for i, userID := range userIDs {
		seat := &Seat{UserID: userID, Index: i}
		seat.Hand = append(seat.Hand, pile[:handSize-1]...)
		pile = pile[handSize-1:]
		seat.Hand = append(seat.Hand, CardDefuse)
		game.Seats = append(game.Seats, seat)
	}

	for i := 0; i < DefusesForSeats(len(userIDs))-len(userIDs); i++ {
		pile = append(pile, CardDefuse)
	}
	for i := 0; i < ExplosivesForSeats(len(userIDs)); i++ {
		pile = append(pile, CardExplosive)
	}
	Shuffle(rng, pile)

	game.DrawPile = pile
	return game
}

// nextLivingIndex walks from the given index in the direction sign and
// returns the next seat still in turn order. Returns -1 when none remain.
func nextLivingIndex(g *Game, from int) int {
	if len(g.Seats) == 0 {
		return -1
	}
	idx := from
	for i := 0; i < len(g.Seats); i++ {
		idx = (idx + g.Direction + len(g.Seats)) % len(g.Seats)
		if !g.Seats[idx].Eliminated {
			return idx
		}
	}
	return -1
}

// AdvanceTurn moves the actor to the next living seat, honoring stacked
// mandatory turns from attack cards. Returns the new actor index.
func AdvanceTurn(g *Game) int {
	current := g.CurrentSeat()
	if current != nil && !current.Eliminated && current.ExtraTurns > 0 {
		current.ExtraTurns--
		g.TurnPhase = TurnAwaitingDraw
		g.BumpTurnSeq()
		return g.Turn
	}
	next := nextLivingIndex(g, g.Turn)
	if next >= 0 {
		g.Turn = next
	}
	g.TurnPhase = TurnAwaitingDraw
	g.BumpTurnSeq()
	return g.Turn
}

// EliminateSeat removes a seat from turn order. Its hand moves to the discard
// pile so the conservation invariant keeps holding. If the seat was the
// current actor the turn advances past it.
func EliminateSeat(g *Game, seatIdx int) {
	seat := g.Seats[seatIdx]
	seat.Eliminated = true
	seat.ExtraTurns = 0
	g.DiscardPile = append(g.DiscardPile, seat.Hand...)
	seat.Hand = nil
	g.FinishOrder = append(g.FinishOrder, seat.UserID)

	if g.Turn == seatIdx {
		next := nextLivingIndex(g, g.Turn)
		if next >= 0 {
			g.Turn = next
		}
		g.TurnPhase = TurnAwaitingDraw
	}
	g.BumpTurnSeq()
}

// RemoveSeat takes a seat out of the room entirely (leave semantics) and
// repairs turn order by compaction. The departing hand joins the discard
// pile so the card count is unchanged and conservation still holds.
func RemoveSeat(g *Game, userID string) bool {
	idx := -1
	for i, s := range g.Seats {
		if s.UserID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	seat := g.Seats[idx]
	wasCurrent := g.Turn == idx && !seat.Eliminated
	g.DiscardPile = append(g.DiscardPile, seat.Hand...)
	if !seat.Eliminated {
		g.FinishOrder = append(g.FinishOrder, seat.UserID)
	}

	g.Seats = append(g.Seats[:idx], g.Seats[idx+1:]...)
	for i := idx; i < len(g.Seats); i++ {
		g.Seats[i].Index = i
	}
	if g.Turn > idx {
		g.Turn--
	} else if g.Turn >= len(g.Seats) {
		g.Turn = 0
	}

	repairPendingAfterRemoval(g, idx)
	repairGiveAfterRemoval(g, idx)

	if wasCurrent && len(g.LivingSeats()) > 0 {
		if g.Seats[g.Turn].Eliminated {
			next := nextLivingIndex(g, g.Turn)
			if next >= 0 {
				g.Turn = next
			}
		}
		g.TurnPhase = TurnAwaitingDraw
	}
	g.BumpTurnSeq()
	return true
}

// repairPendingAfterRemoval keeps an open counter window alive across a
// bystander's removal by shifting stored seat indices past the compaction
// point. A window whose actor or target left is cancelled and the turn phase
// returned to awaiting_draw so the room never strands in resolving.
func repairPendingAfterRemoval(g *Game, removed int) {
	p := g.Pending
	if p == nil {
		return
	}
	targeted := p.Kind == PendingCatCombo || p.Card == CardFavor
	if p.ActorSeat == removed || (targeted && p.TargetSeat == removed) {
		g.Pending = nil
		if g.TurnPhase == TurnResolving {
			g.TurnPhase = TurnAwaitingDraw
		}
		return
	}
	if p.ActorSeat > removed {
		p.ActorSeat--
	}
	if p.TargetSeat > removed {
		p.TargetSeat--
	}
	for i, n := range p.Nopes {
		if n > removed {
			p.Nopes[i] = n - 1
		}
	}
}

// repairGiveAfterRemoval does the same for an open hand-over request.
func repairGiveAfterRemoval(g *Game, removed int) {
	gv := g.Give
	if gv == nil {
		return
	}
	if gv.FromSeat == removed || gv.ToSeat == removed {
		g.Give = nil
		if g.TurnPhase == TurnAwaitingGive {
			g.TurnPhase = TurnAwaitingDraw
		}
		return
	}
	if gv.FromSeat > removed {
		gv.FromSeat--
	}
	if gv.ToSeat > removed {
		gv.ToSeat--
	}
}

// Winner returns the last living seat, or nil while the game is contested.
func Winner(g *Game) *Seat {
	living := g.LivingSeats()
	if len(living) == 1 {
		return living[0]
	}
	return nil
}

// Resolution describes what a resolved pending action did to the game.
type Resolution struct {
	Card    CardKind
	Applied bool // false when an odd nope count suppressed the effect

	EndsTurn         bool
	DirectionFlipped bool
	PileShuffled     bool
	SeenFuture       []CardKind // top of pile, for the actor only
	GiveOpened       bool

	// Combo outcome.
	StolenCard CardKind
	StoleFrom  int
	ComboMiss  bool
}

type resolveFunc func(rng *rand.Rand, g *Game, p *Pending, res *Resolution)

// resolvers is the fixed dispatch table for counterable plays. Cat combos
// resolve through resolveCombo instead.
var resolvers = map[CardKind]resolveFunc{
	CardAttack:    resolveAttack,
	CardSkip:      resolveSkip,
	CardReverse:   resolveReverse,
	CardShuffle:   resolveShuffle,
	CardSeeFuture: resolveSeeFuture,
	CardFavor:     resolveFavor,
}

func resolveAttack(_ *rand.Rand, g *Game, p *Pending, res *Resolution) {
	actor := g.Seats[p.ActorSeat]
	target := nextLivingIndex(g, p.ActorSeat)
	if target < 0 {
		return
	}
	// An attacked attacker passes its remaining turns on top of the two new
	// mandatory ones (one current plus one extra).
	g.Seats[target].ExtraTurns += actor.ExtraTurns + 1
	actor.ExtraTurns = 0
	g.Turn = target
	g.TurnPhase = TurnAwaitingDraw
	g.BumpTurnSeq()
	res.EndsTurn = true
}

func resolveSkip(_ *rand.Rand, g *Game, p *Pending, res *Resolution) {
	AdvanceTurn(g)
	res.EndsTurn = true
}

func resolveReverse(_ *rand.Rand, g *Game, p *Pending, res *Resolution) {
	g.Direction = -g.Direction
	res.DirectionFlipped = true
	AdvanceTurn(g)
	res.EndsTurn = true
}

func resolveShuffle(rng *rand.Rand, g *Game, _ *Pending, res *Resolution) {
	// Shuffle permutes the draw pile only; discard and hands are untouched.
	Shuffle(rng, g.DrawPile)
	res.PileShuffled = true
}

func resolveSeeFuture(_ *rand.Rand, g *Game, _ *Pending, res *Resolution) {
	res.SeenFuture = PeekTop(g.DrawPile, 3)
}

func resolveFavor(_ *rand.Rand, g *Game, p *Pending, res *Resolution) {
	target := g.Seats[p.TargetSeat]
	if target.Eliminated || len(target.Hand) == 0 {
		return
	}
	g.Give = &GiveRequest{FromSeat: p.TargetSeat, ToSeat: p.ActorSeat}
	g.TurnPhase = TurnAwaitingGive
	g.BumpTurnSeq()
	res.GiveOpened = true
}

func resolveCombo(rng *rand.Rand, g *Game, p *Pending, res *Resolution) {
	target := g.Seats[p.TargetSeat]
	if target.Eliminated || len(target.Hand) == 0 {
		res.ComboMiss = true
		return
	}

	switch p.Mode {
	case ComboPair:
		g.Give = &GiveRequest{FromSeat: p.TargetSeat, ToSeat: p.ActorSeat}
		g.TurnPhase = TurnAwaitingGive
		g.BumpTurnSeq()
		res.GiveOpened = true
	case ComboTriple, ComboThemed:
		hand, ok := RemoveOne(target.Hand, p.DesiredCard)
		if !ok {
			// A named request is revealed either way; a miss costs the combo.
			res.ComboMiss = true
			return
		}
		target.Hand = hand
		actor := g.Seats[p.ActorSeat]
		actor.Hand = append(actor.Hand, p.DesiredCard)
		res.StolenCard = p.DesiredCard
		res.StoleFrom = p.TargetSeat
	}
}

// ResolvePending closes the open counter window and applies or suppresses the
// held effect by nope parity: an even number of counters leaves the original
// effect active, an odd number suppresses it.
func ResolvePending(rng *rand.Rand, g *Game) Resolution {
	p := g.Pending
	g.Pending = nil
	g.TurnPhase = TurnAwaitingDraw
	g.BumpTurnSeq()

	res := Resolution{Card: p.Card, Applied: len(p.Nopes)%2 == 0}
	if !res.Applied {
		return res
	}

	if p.Kind == PendingCatCombo {
		resolveCombo(rng, g, p, &res)
		return res
	}
	if fn, ok := resolvers[p.Card]; ok {
		fn(rng, g, p, &res)
	}
	return res
}
