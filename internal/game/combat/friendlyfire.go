package combat

import (
	"strconv"

	"github.com/cory-johannsen/dccqol/internal/game/dice"
	"github.com/cory-johannsen/dccqol/internal/game/inventory"
)

// FriendlyFireThreshold is the highest d100 result that causes a friendly-fire
// incident.
const FriendlyFireThreshold = 50

// Source is the subset of dice.Source used by the engine.
// Using a local interface keeps callers free to pass any Intn provider.
type Source interface {
	Intn(n int) int
}

// FriendlyFireAttack is the simplified 1d20 + bonus attack against the victim.
type FriendlyFireAttack struct {
	Formula string    `json:"formula"`
	Roll    int       `json:"roll"`
	Bonus   int       `json:"bonus"`
	Total   int       `json:"total"`
	AC      int       `json:"ac"`
	Hit     HitResult `json:"hit"`
}

// FriendlyFireResult reports the secondary friendly-fire check.
type FriendlyFireResult struct {
	Occurred bool                `json:"occurred"`
	Check    int                 `json:"check"`
	Victim   *Combatant          `json:"victim,omitempty"`
	Attack   *FriendlyFireAttack `json:"attack,omitempty"`
}

// AlliesNear returns the attacker's allies (same disposition) within melee reach of
// target, excluding the attacker, the target and downed combatants.
//
// Postcondition: returned combatants preserve candidates order.
func AlliesNear(attacker, target *Combatant, candidates []*Combatant, g Grid) []*Combatant {
	if attacker == nil || target == nil {
		return nil
	}
	var out []*Combatant
	for _, c := range candidates {
		if c == nil || c == attacker || c == target || (c.ID != "" && (c.ID == attacker.ID || c.ID == target.ID)) {
			continue
		}
		if c.Disposition != attacker.Disposition || c.IsDown() {
			continue
		}
		if Distance(c.Position, target.Position, g) <= g.MeleeReach() {
			out = append(out, c)
		}
	}
	return out
}

// ResolveFriendlyFire rolls d100 after a missed ranged attack; a result at or
// below FriendlyFireThreshold hits an ally chosen uniformly from allies with a
// simplified 1d20 + attack bonus roll against the ally's AC.
//
// Precondition: src is non-nil; weapon is non-nil.
// Postcondition: Occurred is false when allies is empty or the check fails; on
// occurrence Victim and Attack are set. Returns a *RejectionError when the
// weapon's to-hit formula is invalid.
func ResolveFriendlyFire(attacker *Combatant, weapon *inventory.WeaponDef, allies []*Combatant, src Source) (FriendlyFireResult, error) {
	if len(allies) == 0 {
		return FriendlyFireResult{}, nil
	}
	check := src.Intn(100) + 1
	if check > FriendlyFireThreshold {
		return FriendlyFireResult{Check: check}, nil
	}

	victim := allies[src.Intn(len(allies))]

	toHit := weapon.ToHitWith(strconv.Itoa(attacker.AttackBonus))
	f, err := dice.ParseFormula(toHit)
	if err != nil {
		return FriendlyFireResult{}, reject(ErrInvalidFormula, "friendly fire to-hit %q: %v", toHit, err)
	}
	bonusRoll, err := dice.RollFormula(f, src)
	if err != nil {
		return FriendlyFireResult{}, err
	}
	roll := src.Intn(20) + 1
	atk := &FriendlyFireAttack{
		Formula: "1d20" + signed(toHit),
		Roll:    roll,
		Bonus:   bonusRoll.Total(),
		AC:      victim.AC,
	}
	atk.Total = atk.Roll + atk.Bonus
	switch {
	case !victim.HasAC():
		atk.Hit = HitUndetermined
	case atk.Total >= victim.AC:
		atk.Hit = Hit
	default:
		atk.Hit = Miss
	}
	return FriendlyFireResult{
		Occurred: true,
		Check:    check,
		Victim:   victim,
		Attack:   atk,
	}, nil
}

func signed(frag string) string {
	if frag == "" || frag[0] == '+' || frag[0] == '-' {
		return frag
	}
	return "+" + frag
}
