package combat_test

import (
	"github.com/cory-johannsen/dccqol/internal/game/combat"
	"github.com/cory-johannsen/dccqol/internal/game/dice"
	"github.com/cory-johannsen/dccqol/internal/game/inventory"
)

// fixedSrc always returns min(v, n-1), enabling deterministic test rolls.
type fixedSrc struct{ v int }

func (f fixedSrc) Intn(n int) int {
	if f.v >= n {
		return n - 1
	}
	return f.v
}

// seqSrc returns vals in order, clamped to n-1, and repeats the last value once
// exhausted.
type seqSrc struct {
	vals []int
	i    int
}

func (s *seqSrc) Intn(n int) int {
	v := s.vals[min(s.i, len(s.vals)-1)]
	s.i++
	return min(v, n-1)
}

var dccChain = dice.MustChain([]string{
	"1d3", "1d4", "1d5", "1d6", "1d7", "1d8", "1d10",
	"1d12", "1d14", "1d16", "1d20", "1d24", "1d30",
})

func testRules() combat.Rules {
	return combat.Rules{
		Chain:            dccChain,
		DefaultActionDie: "1d20",
		DefaultFumbleDie: "1d4",
		DefaultCritRange: 20,
		Classes: map[string]combat.ClassTraits{
			"warrior": {DeedDie: true, LuckyWeapon: true},
			"dwarf":   {DeedDie: true, LuckyWeapon: true},
			"thief":   {},
		},
	}
}

func allSettings() combat.Settings {
	return combat.Settings{
		UntrainedPenalty: true,
		RangeChecks:      true,
		AbilityModifiers: true,
		FiringIntoMelee:  true,
		LuckyWeapon:      combat.LuckyStandard,
		MonsterCritLuck:  true,
		FumbleLuck:       true,
		DeedDie:          true,
		FriendlyFire:     true,
		Grid:             combat.DefaultGrid,
	}
}

// square converts grid squares to scene units on the default grid.
func square(n float64) float64 { return n * combat.DefaultGrid.UnitSize }

func newPC(id string, at combat.Position) *combat.Combatant {
	at.Size = max(at.Size, 1)
	return &combat.Combatant{
		ID:          id,
		Name:        id,
		Category:    combat.PlayerCharacter,
		Disposition: combat.Friendly,
		AttackBonus: 2,
		FumbleDie:   "1d10",
		Critical:    combat.Critical{Die: "1d12", Table: "III"},
		AC:          14,
		HP:          combat.HitPoints{Value: 10, Max: 10},
		Class:       combat.ClassInfo{SheetClass: "Warrior"},
		Position:    at,
	}
}

func newNPC(id string, at combat.Position) *combat.Combatant {
	at.Size = max(at.Size, 1)
	return &combat.Combatant{
		ID:          id,
		Name:        id,
		Category:    combat.NonPlayerCharacter,
		Disposition: combat.Hostile,
		AttackBonus: 1,
		Critical:    combat.Critical{Die: "1d6+4", Table: "M"},
		AC:          12,
		HP:          combat.HitPoints{Value: 5, Max: 5},
		Position:    at,
	}
}

func longsword() *inventory.WeaponDef {
	return &inventory.WeaponDef{
		ID:       "longsword",
		Name:     "Longsword",
		Damage:   "1d8",
		Melee:    true,
		Trained:  true,
		Equipped: true,
		ToHit:    "+@ab",
	}
}

func shortbow() *inventory.WeaponDef {
	return &inventory.WeaponDef{
		ID:       "shortbow",
		Name:     "Shortbow",
		Damage:   "1d6",
		Range:    inventory.RangeBands{Short: 30, Medium: 60, Long: 90},
		Trained:  true,
		Equipped: true,
		ToHit:    "+@ab",
	}
}
