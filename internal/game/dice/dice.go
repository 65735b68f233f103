// Package dice provides dice formula parsing, die-chain stepping and the
// randomness abstraction used by the combat resolution engine.
package dice

import (
	"fmt"
	"strings"
)

// GroupResult holds the kept dice of one "NdS" group within a rolled formula.
type GroupResult struct {
	Count    int   // dice rolled
	Sides    int   // faces per die
	Negative bool  // group is subtracted from the total
	Dice     []int // kept die results
}

// Sum returns the signed sum of the kept dice.
//
// Postcondition: return value == sum(g.Dice), negated when g.Negative.
func (g GroupResult) Sum() int {
	total := 0
	for _, d := range g.Dice {
		total += d
	}
	if g.Negative {
		return -total
	}
	return total
}

// RollResult holds the full audit trail for a single formula evaluation.
//
// Postcondition: Total() == sum(Groups[i].Sum()) + Modifier.
type RollResult struct {
	Expression string        // original formula string, e.g. "1d20+1d3+2"
	Groups     []GroupResult // one entry per dice group, in formula order
	Modifier   int           // net flat modifier (may be negative)
}

// Total returns the signed sum of all dice groups plus the modifier.
func (r RollResult) Total() int {
	total := r.Modifier
	for _, g := range r.Groups {
		total += g.Sum()
	}
	return total
}

// Dice returns every kept die value across all groups, in formula order.
func (r RollResult) Dice() []int {
	var out []int
	for _, g := range r.Groups {
		out = append(out, g.Dice...)
	}
	return out
}

// Natural returns the first die of the first group: the unmodified result of
// the leading die of the formula.
//
// Postcondition: ok is false when the formula had no dice.
func (r RollResult) Natural() (value int, ok bool) {
	if len(r.Groups) == 0 || len(r.Groups[0].Dice) == 0 {
		return 0, false
	}
	return r.Groups[0].Dice[0], true
}

// String returns a human-readable audit string in the format:
//
//	"1d20+1d3+2 → [14] [2] +2 = 18"
//
// Precondition: r.Expression is non-empty.
func (r RollResult) String() string {
	if r.Expression == "" {
		panic("dice: RollResult.String() precondition violated: Expression must be non-empty")
	}
	parts := make([]string, 0, len(r.Groups))
	for _, g := range r.Groups {
		s := fmt.Sprintf("%v", g.Dice)
		if g.Negative {
			s = "-" + s
		}
		parts = append(parts, s)
	}
	diceStr := strings.Join(parts, " ")
	if diceStr == "" {
		diceStr = "[]"
	}
	return fmt.Sprintf("%s → %s %+d = %d", r.Expression, diceStr, r.Modifier, r.Total())
}

// Source is the randomness provider for dice rolls.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}
