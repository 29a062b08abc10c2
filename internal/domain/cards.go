package domain

// CardKind is the tagged variant for every playable card. Dispatch happens
// through a fixed resolver table in rules.go so the set stays exhaustively
// checkable.
type CardKind string

const (
	CardExplosive CardKind = "explosive"
	CardDefuse    CardKind = "defuse"
	CardNope      CardKind = "nope"
	CardAttack    CardKind = "attack"
	CardSkip      CardKind = "skip"
	CardReverse   CardKind = "reverse"
	CardShuffle   CardKind = "shuffle"
	CardSeeFuture CardKind = "see_future"
	CardFavor     CardKind = "favor"

	// Cat cards have no standalone effect; they are only playable in combos.
	CardCatTaco    CardKind = "cat_taco"
	CardCatRainbow CardKind = "cat_rainbow"
	CardCatPotato  CardKind = "cat_potato"
	CardCatBeard   CardKind = "cat_beard"
	CardCatMelon   CardKind = "cat_melon"

	// Insight expansion.
	CardInsight CardKind = "insight"
)

// ComboMode selects the matching-set requirement for a cat combo.
type ComboMode string

const (
	// ComboPair: two identical cat cards; the target chooses which card to give.
	ComboPair ComboMode = "pair"
	// ComboTriple: three identical cat cards; the actor names the desired card,
	// revealed, transferred only when the target holds it.
	ComboTriple ComboMode = "triple"
	// ComboThemed: two cards sharing a theme; named request like a triple.
	ComboThemed ComboMode = "themed"
)

// catThemes groups cat kinds into themes for ComboThemed matching.
var catThemes = map[CardKind]string{
	CardCatTaco:    "food",
	CardCatPotato:  "food",
	CardCatMelon:   "food",
	CardCatRainbow: "mystic",
	CardCatBeard:   "mystic",
}

// IsCat reports whether the kind is a cat card.
func IsCat(kind CardKind) bool {
	_, ok := catThemes[kind]
	return ok
}

// SameTheme reports whether two cat kinds share a theme.
func SameTheme(a, b CardKind) bool {
	ta, ok1 := catThemes[a]
	tb, ok2 := catThemes[b]
	return ok1 && ok2 && ta == tb
}

// counterableKinds lists the action cards whose play opens a nope window.
var counterableKinds = map[CardKind]bool{
	CardAttack:    true,
	CardSkip:      true,
	CardReverse:   true,
	CardShuffle:   true,
	CardSeeFuture: true,
	CardFavor:     true,
}

// IsCounterable reports whether playing the kind opens a counter window.
func IsCounterable(kind CardKind) bool {
	return counterableKinds[kind]
}

// standaloneActions are kinds playable via the generic play-action command.
var standaloneActions = map[CardKind]bool{
	CardAttack:    true,
	CardSkip:      true,
	CardReverse:   true,
	CardShuffle:   true,
	CardSeeFuture: true,
	CardFavor:     true,
}

// IsStandaloneAction reports whether the kind is playable outside a combo.
func IsStandaloneAction(kind CardKind) bool {
	return standaloneActions[kind]
}

// deckEntry describes how many copies of a kind the base composition holds.
type deckEntry struct {
	Kind  CardKind
	Count int
}

// baseComposition excludes explosives and defuses, which are dealt and
// inserted separately depending on the seat count.
var baseComposition = []deckEntry{
	{CardNope, 5},
	{CardAttack, 4},
	{CardSkip, 4},
	{CardReverse, 4},
	{CardShuffle, 4},
	{CardSeeFuture, 5},
	{CardFavor, 4},
	{CardCatTaco, 4},
	{CardCatRainbow, 4},
	{CardCatPotato, 4},
	{CardCatBeard, 4},
	{CardCatMelon, 4},
}

// expansionCompositions maps expansion ids to the kinds they add.
var expansionCompositions = map[string][]deckEntry{
	"insight": {
		{CardInsight, 4},
		{CardNope, 1},
	},
}

// KnownExpansion reports whether the engine has a composition for the id.
func KnownExpansion(id string) bool {
	_, ok := expansionCompositions[id]
	return ok
}

const (
	// defusesPerGame counts defuse cards in play: one dealt per seat plus
	// extras shuffled into the draw pile.
	extraDefuses = 2
	// explosivesForSeats is seats-1 so exactly one seat can survive to the end.
	handSize = 5
)

// DefusesForSeats returns the number of defuse cards for a seat count.
func DefusesForSeats(seats int) int {
	return seats + extraDefuses
}

// ExplosivesForSeats returns the number of explosive cards for a seat count.
func ExplosivesForSeats(seats int) int {
	if seats < 2 {
		return 0
	}
	return seats - 1
}

// TotalCardsForConfig returns the fixed card count that the conservation
// invariant holds over for the given seat count and expansions.
func TotalCardsForConfig(seats int, expansions []string) int {
	total := 0
	for _, entry := range baseComposition {
		total += entry.Count
	}
	for _, id := range expansions {
		for _, entry := range expansionCompositions[id] {
			total += entry.Count
		}
	}
	return total + DefusesForSeats(seats) + ExplosivesForSeats(seats)
}
