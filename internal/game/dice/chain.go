package dice

import (
	"errors"
	"fmt"
)

// Chain is an ordered list of single-die formulas with strictly increasing face
// counts, used to step a die up or down in severity.
//
// Invariant: len(links) >= 1; links[i].Sides < links[i+1].Sides. A Chain is
// immutable after construction and safe for concurrent use.
type Chain struct {
	links []Expression
}

// NewChain builds a Chain from single-die formulas such as "1d3" or "d20".
//
// Precondition: formulas is non-empty; each entry is exactly one die with no modifier.
// Postcondition: Returns a Chain whose entries are in the given order, or an error
// when an entry is malformed or face counts are not strictly increasing.
func NewChain(formulas []string) (*Chain, error) {
	if len(formulas) == 0 {
		return nil, errors.New("dice: die chain must not be empty")
	}
	links := make([]Expression, 0, len(formulas))
	for i, f := range formulas {
		sides, ok := Faces(f)
		if !ok {
			return nil, fmt.Errorf("dice: die chain entry %d %q is not a single die", i, f)
		}
		if i > 0 && sides <= links[i-1].Sides {
			return nil, fmt.Errorf("dice: die chain entry %d %q must have more faces than %q", i, f, links[i-1].Die())
		}
		links = append(links, Expression{Raw: f, Count: 1, Sides: sides})
	}
	return &Chain{links: links}, nil
}

// MustChain is NewChain that panics on error.
//
// Precondition: formulas must form a valid chain.
func MustChain(formulas []string) *Chain {
	c, err := NewChain(formulas)
	if err != nil {
		panic(err.Error())
	}
	return c
}

// Len returns the number of dice in the chain.
func (c *Chain) Len() int { return len(c.links) }

// Formulas returns the canonical "1dN" notation of every link, smallest first.
func (c *Chain) Formulas() []string {
	out := make([]string, len(c.links))
	for i, l := range c.links {
		out[i] = l.Die()
	}
	return out
}

// Smallest returns the first (fewest faces) die of the chain.
func (c *Chain) Smallest() string { return c.links[0].Die() }

// Largest returns the last (most faces) die of the chain.
func (c *Chain) Largest() string { return c.links[len(c.links)-1].Die() }

// Index returns the position of formula in the chain, or -1 when formula is not a
// single die present in the chain. "d10" and "1d10" are the same link.
func (c *Chain) Index(formula string) int {
	sides, ok := Faces(formula)
	if !ok {
		return -1
	}
	for i, l := range c.links {
		if l.Sides == sides {
			return i
		}
	}
	return -1
}

// Bump steps formula along the chain: positive steps move toward larger dice,
// negative toward smaller. Results past either end clamp to that end.
//
// Postcondition: when formula is in the chain and steps != 0 the result is a
// chain entry; otherwise formula is returned unchanged.
func (c *Chain) Bump(formula string, steps int) string {
	idx := c.Index(formula)
	if idx < 0 || steps == 0 {
		return formula
	}
	target := idx + steps
	switch {
	case steps > 0 && target < idx: // overflow
		target = len(c.links) - 1
	case steps < 0 && target > idx:
		target = 0
	}
	target = max(0, min(target, len(c.links)-1))
	return c.links[target].Die()
}
