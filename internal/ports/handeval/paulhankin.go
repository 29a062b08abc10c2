// Package handeval adapts the paulhankin/poker evaluator to the engine's
// HandEvaluator interface. Showdown math stays a pure, bounded-time lookup.
package handeval

import (
	"fmt"

	"github.com/paulhankin/poker"

	"github.com/AnAtoliy-AA/arcadeum-sub008/internal/domain"
)

// Evaluator scores 7-card holdem hands via poker.Eval7.
type Evaluator struct{}

// New returns a ready evaluator.
func New() *Evaluator {
	return &Evaluator{}
}

// Score ranks the hole cards against a complete 5-card board. Higher scores
// win. The description names the best 5-card hand.
func (e *Evaluator) Score(hole []domain.HoldemCard, board []domain.HoldemCard) (int32, string, error) {
	if len(hole) != 2 || len(board) != 5 {
		return 0, "", fmt.Errorf("showdown needs 2 hole and 5 board cards, got %d and %d", len(hole), len(board))
	}

	var final [7]poker.Card
	for i, c := range board {
		card, err := makeCard(c)
		if err != nil {
			return 0, "", fmt.Errorf("invalid board card %d: %w", i, err)
		}
		final[i] = card
	}
	for i, c := range hole {
		card, err := makeCard(c)
		if err != nil {
			return 0, "", fmt.Errorf("invalid hole card %d: %w", i, err)
		}
		final[5+i] = card
	}

	score := poker.Eval7(&final)
	desc, err := poker.Describe(final[:])
	if err != nil {
		return 0, "", fmt.Errorf("describe hand: %w", err)
	}
	return int32(score), desc, nil
}

// makeCard converts the engine's ace-high rank (2..14) to the evaluator's
// ace-low representation (1..13).
func makeCard(c domain.HoldemCard) (poker.Card, error) {
	rank := c.Rank
	if rank == 14 {
		rank = 1
	}
	return poker.MakeCard(poker.Suit(c.Suit), poker.Rank(rank))
}

var _ domain.HandEvaluator = (*Evaluator)(nil)
