package combat

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cory-johannsen/dccqol/internal/game/dice"
	"github.com/cory-johannsen/dccqol/internal/game/inventory"
)

// mediumRangePenalty is the flat to-hit penalty at medium range.
const mediumRangePenalty = -2

// firingIntoMeleePenalty is the flat to-hit penalty for shooting at a target
// engaged with the attacker's allies.
const firingIntoMeleePenalty = -1

// AttackContext is everything known about one attack before rolling.
type AttackContext struct {
	Attacker *Combatant
	Weapon   *inventory.WeaponDef
	// Target is optional; without it the outcome's hit state is undetermined.
	Target *Combatant
	// Bystanders are the other combatants on the scene, used to detect firing
	// into melee and to pick friendly-fire victims.
	Bystanders []*Combatant

	Backstab        bool
	FiringIntoMelee bool
	UsesDeedDie     bool
	// ModifierDialog forces the to-hit term even when its bonus is zero.
	ModifierDialog bool

	// Distance and Band are filled in by the resolver.
	Distance float64
	Band     RangeBand
}

// Assembly is the output of BuildAttackTerms.
type Assembly struct {
	Terms Terms
	// BaseActionDie is the action die before untrained/long-range steps.
	BaseActionDie string
	// ActionDie is the die actually rolled.
	ActionDie string
	// CritRange is the crit threshold adjusted for any change in action die faces.
	CritRange int
	// DeedDie is the deed die substituted into the to-hit term, if any.
	DeedDie string
	// DeedGroup is the index of the deed die among the dice groups of the
	// rendered formula. Only meaningful when DeedDie is set.
	DeedGroup int
}

// BuildAttackTerms assembles the ordered roll terms for an attack:
//
//  1. action die (stepped down when untrained or at long range)
//  2. to-hit compound term, with the deed die substituted when applicable
//  3. backstab bonus
//  4. medium range penalty
//  5. strength (melee) or agility (ranged) modifier
//  6. firing into melee penalty
//  7. lucky weapon modifier
//
// Precondition: rules.Chain is non-nil.
// Postcondition: Returns an Assembly, or a *RejectionError when the attacker or
// weapon is missing or a formula is invalid.
func BuildAttackTerms(ac *AttackContext, rules Rules, settings Settings) (Assembly, error) {
	if ac.Attacker == nil {
		return Assembly{}, reject(ErrMissingAttacker, "")
	}
	if ac.Weapon == nil {
		return Assembly{}, reject(ErrMissingWeapon, "attacker %q", ac.Attacker.Name)
	}
	attacker, w := ac.Attacker, ac.Weapon
	traits := rules.Traits(attacker.Class.SheetClass)

	base := firstNonEmpty(w.ActionDie, attacker.ActionDie, rules.DefaultActionDie)
	baseFaces, ok := dice.Faces(base)
	if !ok {
		return Assembly{}, reject(ErrInvalidFormula, "action die %q", base)
	}
	steps := 0
	if !w.Trained && settings.UntrainedPenalty {
		steps--
	}
	if ac.Band == BandLong {
		steps--
	}
	actionDie := rules.Chain.Bump(base, steps)
	finalFaces, _ := dice.Faces(actionDie)

	terms := Terms{DieTerm(LabelActionDie, actionDie)}

	bonus := strconv.Itoa(attacker.AttackBonus)
	deed, deedGroup := "", 0
	if traits.DeedDie && settings.DeedDie && ac.UsesDeedDie && attacker.Class.DeedDie != "" &&
		strings.Contains(w.ToHit, inventory.AttackBonusPlaceholder) {
		deed = attacker.Class.DeedDie
		bonus = deed
		// The action die is group 0; the to-hit dice follow in order.
		deedGroup = 1 + groupsBefore(w.ToHit, inventory.AttackBonusPlaceholder)
	}
	toHit := w.ToHitWith(bonus)
	f, err := dice.ParseFormula(toHit)
	if err != nil {
		return Assembly{}, reject(ErrInvalidFormula, "to-hit %q: %v", toHit, err)
	}
	if f.HasDice() || f.Modifier != 0 || ac.ModifierDialog {
		terms = append(terms, compoundFrom(LabelToHit, f))
	}

	if ac.Backstab && attacker.Class.Backstab != 0 {
		terms = append(terms, ModifierTerm(LabelBackstab, attacker.Class.Backstab))
	}

	if ac.Band == BandMedium {
		terms = append(terms, ModifierTerm(LabelMediumRange, mediumRangePenalty))
	}

	if settings.AbilityModifiers {
		label, mod := LabelAgility, attacker.Abilities.Agl
		if w.Melee {
			label, mod = LabelStrength, attacker.Abilities.Str
		}
		if mod != 0 {
			terms = append(terms, ModifierTerm(label, mod))
		}
	}

	if settings.FiringIntoMelee && w.IsRanged() && ac.Target != nil && ac.FiringIntoMelee {
		terms = append(terms, ModifierTerm(LabelFiringIntoMelee, firingIntoMeleePenalty))
	}

	if traits.LuckyWeapon && isLuckyWeapon(w.Name, attacker.Class.LuckyWeapon) {
		if v, ok := luckyWeaponBonus(settings.LuckyWeapon, attacker.Abilities.Lck); ok && v != 0 {
			terms = append(terms, ModifierTerm(LabelLuckyWeapon, v))
		}
	}

	critRange := firstPositive(w.CritRange, attacker.CritRange, rules.DefaultCritRange)
	return Assembly{
		Terms:         terms,
		BaseActionDie: base,
		ActionDie:     actionDie,
		CritRange:     AdjustCritRange(critRange, baseFaces, finalFaces),
		DeedDie:       deed,
		DeedGroup:     deedGroup,
	}, nil
}

// groupsBefore counts the dice groups that precede the first placeholder in a
// to-hit formula.
func groupsBefore(toHit, placeholder string) int {
	s := strings.Join(strings.Fields(toHit), "")
	prefix := s[:strings.Index(s, placeholder)]
	if prefix == "" {
		return 0
	}
	f, err := dice.ParseFormula(prefix + "0")
	if err != nil {
		return 0
	}
	return len(f.Groups)
}

// compoundFrom splits a parsed to-hit formula into its dice and flat parts.
func compoundFrom(label string, f dice.Formula) RollTerm {
	dicePart := ""
	if f.HasDice() {
		dicePart = dice.Formula{Groups: f.Groups}.String()
	}
	mod := ""
	if f.Modifier != 0 || !f.HasDice() {
		mod = fmt.Sprintf("%+d", f.Modifier)
	}
	return CompoundTerm(label, dicePart, mod)
}

// isLuckyWeapon matches the weapon name against the lucky weapon, case-insensitively
// and by substring.
func isLuckyWeapon(weaponName, lucky string) bool {
	lucky = strings.TrimSpace(lucky)
	if lucky == "" {
		return false
	}
	return strings.Contains(strings.ToLower(weaponName), strings.ToLower(lucky))
}

// luckyWeaponBonus computes the lucky-weapon modifier. ok is false for modes that
// add nothing automatically.
func luckyWeaponBonus(mode LuckyWeaponMode, luck int) (int, bool) {
	switch mode {
	case LuckyStandard:
		return luck, true
	case LuckyPlus1:
		return 1, true
	case LuckyPositive:
		return max(0, luck), true
	default:
		return 0, false
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
