package combat

import (
	"fmt"

	"github.com/cory-johannsen/dccqol/internal/game/dice"
)

// Luck adjustments read the TARGET's luck modifier, not the attacker's. A lucky
// target makes the attacker's fumble die larger and the attacker's crit damage
// smaller; an unlucky target does the opposite.
const (
	// targetLuckFumbleSign: chain steps per point of target luck on the fumble die.
	targetLuckFumbleSign = +1
	// targetLuckCritSign: flat crit damage per point of target luck.
	targetLuckCritSign = -1
)

// FumbleDie returns the attacker's fumble die stepped along chain by the
// target's luck modifier.
//
// Postcondition: FumbleDie(c, "1d10", +1) == "1d12"; FumbleDie(c, "1d10", -1) == "1d8"
// on the standard chain; bases outside the chain are returned unchanged.
func FumbleDie(chain *dice.Chain, base string, targetLuck int) string {
	return chain.Bump(base, targetLuckFumbleSign*targetLuck)
}

// ApplyCritLuckPenalty appends the negated target luck to a crit formula:
// "1d6+4" with luck +1 becomes "1d6+4-1"; with luck -2 it becomes "1d6+4+2".
//
// Postcondition: formula is returned unchanged when it is empty or targetLuck is 0.
func ApplyCritLuckPenalty(formula string, targetLuck int) string {
	if formula == "" || targetLuck == 0 {
		return formula
	}
	return formula + fmt.Sprintf("%+d", targetLuckCritSign*targetLuck)
}
