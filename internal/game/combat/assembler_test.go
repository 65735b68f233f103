package combat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/dccqol/internal/game/combat"
)

func labels(ts combat.Terms) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Label
	}
	return out
}

func TestBuildAttackTerms_Basic(t *testing.T) {
	pc := newPC("pc", combat.Position{})
	pc.Abilities.Str = 1
	ac := &combat.AttackContext{Attacker: pc, Weapon: longsword()}

	asm, err := combat.BuildAttackTerms(ac, testRules(), allSettings())
	require.NoError(t, err)
	assert.Equal(t, []string{combat.LabelActionDie, combat.LabelToHit, combat.LabelStrength}, labels(asm.Terms))
	assert.Equal(t, "1d20+2+1", asm.Terms.Formula())
	assert.Equal(t, "1d20", asm.ActionDie)
	assert.Equal(t, 20, asm.CritRange)
	assert.Empty(t, asm.DeedDie)
}

func TestBuildAttackTerms_ActionDieSteps(t *testing.T) {
	tests := []struct {
		name     string
		trained  bool
		band     combat.RangeBand
		wantDie  string
		wantCrit int
	}{
		{"trained short", true, combat.BandShort, "1d20", 20},
		{"untrained", false, combat.BandShort, "1d16", 16},
		{"long range", true, combat.BandLong, "1d16", 16},
		{"untrained at long range", false, combat.BandLong, "1d14", 14},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := shortbow()
			w.Trained = tc.trained
			ac := &combat.AttackContext{Attacker: newPC("pc", combat.Position{}), Weapon: w, Band: tc.band}
			asm, err := combat.BuildAttackTerms(ac, testRules(), allSettings())
			require.NoError(t, err)
			assert.Equal(t, "1d20", asm.BaseActionDie)
			assert.Equal(t, tc.wantDie, asm.ActionDie)
			assert.Equal(t, tc.wantCrit, asm.CritRange)
		})
	}
}

func TestBuildAttackTerms_UntrainedPenaltyDisabled(t *testing.T) {
	w := longsword()
	w.Trained = false
	s := allSettings()
	s.UntrainedPenalty = false
	asm, err := combat.BuildAttackTerms(&combat.AttackContext{Attacker: newPC("pc", combat.Position{}), Weapon: w}, testRules(), s)
	require.NoError(t, err)
	assert.Equal(t, "1d20", asm.ActionDie)
}

func TestBuildAttackTerms_WeaponActionDieWins(t *testing.T) {
	w := longsword()
	w.ActionDie = "1d24"
	pc := newPC("pc", combat.Position{})
	pc.ActionDie = "1d16"
	asm, err := combat.BuildAttackTerms(&combat.AttackContext{Attacker: pc, Weapon: w}, testRules(), allSettings())
	require.NoError(t, err)
	assert.Equal(t, "1d24", asm.ActionDie)
}

func TestBuildAttackTerms_CritRangeAdjustsWithDie(t *testing.T) {
	w := longsword()
	w.Trained = false
	w.CritRange = 19
	asm, err := combat.BuildAttackTerms(&combat.AttackContext{Attacker: newPC("pc", combat.Position{}), Weapon: w}, testRules(), allSettings())
	require.NoError(t, err)
	assert.Equal(t, "1d16", asm.ActionDie)
	assert.Equal(t, 15, asm.CritRange)
}

func TestBuildAttackTerms_InvalidActionDie(t *testing.T) {
	w := longsword()
	w.ActionDie = "2d6"
	_, err := combat.BuildAttackTerms(&combat.AttackContext{Attacker: newPC("pc", combat.Position{}), Weapon: w}, testRules(), allSettings())
	require.Error(t, err)
	assert.ErrorIs(t, err, combat.ErrRejected)
	assert.ErrorIs(t, err, combat.ErrInvalidFormula)
}

func TestBuildAttackTerms_InvalidToHit(t *testing.T) {
	w := longsword()
	w.ToHit = "+@ab+"
	_, err := combat.BuildAttackTerms(&combat.AttackContext{Attacker: newPC("pc", combat.Position{}), Weapon: w}, testRules(), allSettings())
	assert.ErrorIs(t, err, combat.ErrInvalidFormula)
}

func TestBuildAttackTerms_MissingInputs(t *testing.T) {
	_, err := combat.BuildAttackTerms(&combat.AttackContext{Weapon: longsword()}, testRules(), allSettings())
	assert.ErrorIs(t, err, combat.ErrMissingAttacker)
	_, err = combat.BuildAttackTerms(&combat.AttackContext{Attacker: newPC("pc", combat.Position{})}, testRules(), allSettings())
	assert.ErrorIs(t, err, combat.ErrMissingWeapon)
}

func TestBuildAttackTerms_NegativeBonus(t *testing.T) {
	pc := newPC("pc", combat.Position{})
	pc.AttackBonus = -2
	asm, err := combat.BuildAttackTerms(&combat.AttackContext{Attacker: pc, Weapon: longsword()}, testRules(), combat.Settings{})
	require.NoError(t, err)
	assert.Equal(t, "1d20-2", asm.Terms.Formula())
}

func TestBuildAttackTerms_ZeroBonusOmittedUnlessDialog(t *testing.T) {
	pc := newPC("pc", combat.Position{})
	pc.AttackBonus = 0
	ac := &combat.AttackContext{Attacker: pc, Weapon: longsword()}
	asm, err := combat.BuildAttackTerms(ac, testRules(), combat.Settings{})
	require.NoError(t, err)
	assert.Equal(t, "1d20", asm.Terms.Formula())

	ac.ModifierDialog = true
	asm, err = combat.BuildAttackTerms(ac, testRules(), combat.Settings{})
	require.NoError(t, err)
	assert.Equal(t, "1d20+0", asm.Terms.Formula())
	term, ok := asm.Terms.Find(combat.LabelToHit)
	require.True(t, ok)
	assert.Equal(t, combat.TermCompound, term.Kind)
}

func TestBuildAttackTerms_DeedDie(t *testing.T) {
	pc := newPC("pc", combat.Position{})
	pc.Class.DeedDie = "1d3"
	ac := &combat.AttackContext{Attacker: pc, Weapon: longsword(), UsesDeedDie: true}

	asm, err := combat.BuildAttackTerms(ac, testRules(), allSettings())
	require.NoError(t, err)
	assert.Equal(t, "1d3", asm.DeedDie)
	assert.Equal(t, "1d20+1d3", asm.Terms.Formula())
	term, _ := asm.Terms.Find(combat.LabelToHit)
	assert.Equal(t, "1d3", term.DieFormula)
	assert.Equal(t, 1, asm.DeedGroup)
}

func TestBuildAttackTerms_DeedGroupAfterWeaponDice(t *testing.T) {
	pc := newPC("pc", combat.Position{})
	pc.Class.DeedDie = "1d3"
	w := longsword()
	w.ToHit = "1d4 + @ab"
	ac := &combat.AttackContext{Attacker: pc, Weapon: w, UsesDeedDie: true}

	asm, err := combat.BuildAttackTerms(ac, testRules(), allSettings())
	require.NoError(t, err)
	assert.Equal(t, "1d20+1d4+1d3", asm.Terms.Formula())
	assert.Equal(t, 2, asm.DeedGroup)
}

func TestBuildAttackTerms_DeedDieRequiresEverySwitch(t *testing.T) {
	base := func() (*combat.AttackContext, combat.Settings) {
		pc := newPC("pc", combat.Position{})
		pc.Class.DeedDie = "1d3"
		return &combat.AttackContext{Attacker: pc, Weapon: longsword(), UsesDeedDie: true}, allSettings()
	}
	mutations := map[string]func(*combat.AttackContext, *combat.Settings){
		"setting off":         func(_ *combat.AttackContext, s *combat.Settings) { s.DeedDie = false },
		"not requested":       func(ac *combat.AttackContext, _ *combat.Settings) { ac.UsesDeedDie = false },
		"class without deeds": func(ac *combat.AttackContext, _ *combat.Settings) { ac.Attacker.Class.SheetClass = "Thief" },
		"no deed die":         func(ac *combat.AttackContext, _ *combat.Settings) { ac.Attacker.Class.DeedDie = "" },
		"no placeholder":      func(ac *combat.AttackContext, _ *combat.Settings) { ac.Weapon.ToHit = "+1" },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			ac, s := base()
			mutate(ac, &s)
			asm, err := combat.BuildAttackTerms(ac, testRules(), s)
			require.NoError(t, err)
			assert.Empty(t, asm.DeedDie)
		})
	}
}

func TestBuildAttackTerms_Backstab(t *testing.T) {
	pc := newPC("pc", combat.Position{})
	pc.Class = combat.ClassInfo{SheetClass: "Thief", Backstab: 3}
	ac := &combat.AttackContext{Attacker: pc, Weapon: longsword(), Backstab: true}
	asm, err := combat.BuildAttackTerms(ac, testRules(), combat.Settings{})
	require.NoError(t, err)
	term, ok := asm.Terms.Find(combat.LabelBackstab)
	require.True(t, ok)
	assert.Equal(t, 3, term.Value)

	ac.Backstab = false
	asm, err = combat.BuildAttackTerms(ac, testRules(), combat.Settings{})
	require.NoError(t, err)
	_, ok = asm.Terms.Find(combat.LabelBackstab)
	assert.False(t, ok)
}

func TestBuildAttackTerms_MediumRange(t *testing.T) {
	ac := &combat.AttackContext{Attacker: newPC("pc", combat.Position{}), Weapon: shortbow(), Band: combat.BandMedium}
	asm, err := combat.BuildAttackTerms(ac, testRules(), combat.Settings{})
	require.NoError(t, err)
	assert.Equal(t, "1d20+2-2", asm.Terms.Formula())
}

func TestBuildAttackTerms_AbilityModifier(t *testing.T) {
	pc := newPC("pc", combat.Position{})
	pc.Abilities = combat.Abilities{Str: 2, Agl: -1}

	asm, err := combat.BuildAttackTerms(&combat.AttackContext{Attacker: pc, Weapon: shortbow()}, testRules(), allSettings())
	require.NoError(t, err)
	term, ok := asm.Terms.Find(combat.LabelAgility)
	require.True(t, ok)
	assert.Equal(t, -1, term.Value)
	_, ok = asm.Terms.Find(combat.LabelStrength)
	assert.False(t, ok)

	s := allSettings()
	s.AbilityModifiers = false
	asm, err = combat.BuildAttackTerms(&combat.AttackContext{Attacker: pc, Weapon: longsword()}, testRules(), s)
	require.NoError(t, err)
	_, ok = asm.Terms.Find(combat.LabelStrength)
	assert.False(t, ok)
}

func TestBuildAttackTerms_FiringIntoMelee(t *testing.T) {
	target := newNPC("gob", combat.Position{X: square(3)})
	ac := &combat.AttackContext{
		Attacker:        newPC("pc", combat.Position{}),
		Weapon:          shortbow(),
		Target:          target,
		FiringIntoMelee: true,
	}
	asm, err := combat.BuildAttackTerms(ac, testRules(), allSettings())
	require.NoError(t, err)
	term, ok := asm.Terms.Find(combat.LabelFiringIntoMelee)
	require.True(t, ok)
	assert.Equal(t, -1, term.Value)

	ac.Weapon = longsword()
	asm, err = combat.BuildAttackTerms(ac, testRules(), allSettings())
	require.NoError(t, err)
	_, ok = asm.Terms.Find(combat.LabelFiringIntoMelee)
	assert.False(t, ok, "melee attacks never take the firing-into-melee penalty")
}

func TestBuildAttackTerms_LuckyWeapon(t *testing.T) {
	tests := []struct {
		mode combat.LuckyWeaponMode
		luck int
		want int
		has  bool
	}{
		{combat.LuckyStandard, 2, 2, true},
		{combat.LuckyStandard, -1, -1, true},
		{combat.LuckyStandard, 0, 0, false},
		{combat.LuckyPlus1, -3, 1, true},
		{combat.LuckyPositive, 2, 2, true},
		{combat.LuckyPositive, -2, 0, false},
		{combat.LuckyManual, 2, 0, false},
		{combat.LuckyNone, 2, 0, false},
	}
	for _, tc := range tests {
		t.Run(string(tc.mode), func(t *testing.T) {
			pc := newPC("pc", combat.Position{})
			pc.Abilities.Lck = tc.luck
			pc.Class.LuckyWeapon = "sword"
			s := combat.Settings{LuckyWeapon: tc.mode}
			asm, err := combat.BuildAttackTerms(&combat.AttackContext{Attacker: pc, Weapon: longsword()}, testRules(), s)
			require.NoError(t, err)
			term, ok := asm.Terms.Find(combat.LabelLuckyWeapon)
			assert.Equal(t, tc.has, ok)
			if tc.has {
				assert.Equal(t, tc.want, term.Value)
			}
		})
	}
}

func TestBuildAttackTerms_LuckyWeaponNeedsMatchAndClass(t *testing.T) {
	pc := newPC("pc", combat.Position{})
	pc.Abilities.Lck = 2
	pc.Class.LuckyWeapon = "axe"
	s := combat.Settings{LuckyWeapon: combat.LuckyStandard}
	asm, err := combat.BuildAttackTerms(&combat.AttackContext{Attacker: pc, Weapon: longsword()}, testRules(), s)
	require.NoError(t, err)
	_, ok := asm.Terms.Find(combat.LabelLuckyWeapon)
	assert.False(t, ok)

	pc.Class = combat.ClassInfo{SheetClass: "Thief", LuckyWeapon: "LONGSWORD"}
	asm, err = combat.BuildAttackTerms(&combat.AttackContext{Attacker: pc, Weapon: longsword()}, testRules(), s)
	require.NoError(t, err)
	_, ok = asm.Terms.Find(combat.LabelLuckyWeapon)
	assert.False(t, ok)
}

func TestBuildAttackTerms_Order(t *testing.T) {
	pc := newPC("pc", combat.Position{})
	pc.Abilities = combat.Abilities{Agl: 1, Lck: 1}
	pc.Class = combat.ClassInfo{SheetClass: "Warrior", Backstab: 1, LuckyWeapon: "bow"}
	ac := &combat.AttackContext{
		Attacker:        pc,
		Weapon:          shortbow(),
		Target:          newNPC("gob", combat.Position{X: square(8)}),
		Backstab:        true,
		FiringIntoMelee: true,
		Band:            combat.BandMedium,
	}
	asm, err := combat.BuildAttackTerms(ac, testRules(), allSettings())
	require.NoError(t, err)
	assert.Equal(t, []string{
		combat.LabelActionDie,
		combat.LabelToHit,
		combat.LabelBackstab,
		combat.LabelMediumRange,
		combat.LabelAgility,
		combat.LabelFiringIntoMelee,
		combat.LabelLuckyWeapon,
	}, labels(asm.Terms))
	assert.Equal(t, "1d20+2+1-2+1-1+1", asm.Terms.Formula())
}
