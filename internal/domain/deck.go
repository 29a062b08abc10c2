package domain

import "math/rand"

// BuildDrawPile assembles the pre-deal pile for the base composition plus
// expansions, without explosives or defuses. Those are added by the dealer
// after hands go out.
func BuildDrawPile(expansions []string) []CardKind {
	var pile []CardKind
	for _, entry := range baseComposition {
		for i := 0; i < entry.Count; i++ {
			pile = append(pile, entry.Kind)
		}
	}
	for _, id := range expansions {
		for _, entry := range expansionCompositions[id] {
			for i := 0; i < entry.Count; i++ {
				pile = append(pile, entry.Kind)
			}
		}
	}
	return pile
}

// Shuffle permutes the pile in place using the provided rng.
func Shuffle(rng *rand.Rand, pile []CardKind) {
	rng.Shuffle(len(pile), func(i, j int) { pile[i], pile[j] = pile[j], pile[i] })
}

// DrawTop pops the top card. The caller must check the pile is non-empty.
func DrawTop(pile []CardKind) (CardKind, []CardKind) {
	return pile[0], pile[1:]
}

// PeekTop returns up to n cards from the top without mutating the pile.
func PeekTop(pile []CardKind, n int) []CardKind {
	if n > len(pile) {
		n = len(pile)
	}
	return append([]CardKind{}, pile[:n]...)
}

// InsertAt places a card at the given depth, clamped to the pile bounds.
// Depth 0 is the top of the pile.
func InsertAt(pile []CardKind, card CardKind, depth int) []CardKind {
	if depth < 0 {
		depth = 0
	}
	if depth > len(pile) {
		depth = len(pile)
	}
	out := make([]CardKind, 0, len(pile)+1)
	out = append(out, pile[:depth]...)
	out = append(out, card)
	out = append(out, pile[depth:]...)
	return out
}

// RemoveOne removes a single copy of kind from the hand and reports success.
func RemoveOne(hand []CardKind, kind CardKind) ([]CardKind, bool) {
	for i, c := range hand {
		if c == kind {
			return append(append([]CardKind{}, hand[:i]...), hand[i+1:]...), true
		}
	}
	return hand, false
}

// CountKind returns how many copies of kind the hand holds.
func CountKind(hand []CardKind, kind CardKind) int {
	n := 0
	for _, c := range hand {
		if c == kind {
			n++
		}
	}
	return n
}

// Contains reports whether the hand holds at least one copy of kind.
func Contains(hand []CardKind, kind CardKind) bool {
	return CountKind(hand, kind) > 0
}
