package scripting

import (
	"context"
	"math"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// DefaultModifierLabel labels a bare number returned by pre_attack.
const DefaultModifierLabel = "Situational"

// CombatantInfo is a snapshot of a combatant passed to Lua hooks.
type CombatantInfo struct {
	ID          string
	Name        string
	Category    string
	Disposition string
	Str, Agl    int
	Lck         int
	AC          int
	HP, MaxHP   int
}

// WeaponInfo is a snapshot of the attacking weapon passed to Lua hooks.
type WeaponInfo struct {
	ID    string
	Name  string
	Melee bool
}

// AttackInfo is the attack snapshot passed to pre_attack.
type AttackInfo struct {
	Attacker CombatantInfo
	// Target is nil for untargeted attacks.
	Target   *CombatantInfo
	Weapon   WeaponInfo
	Distance float64
	Band     string
	Backstab bool
}

// Modifier is one labelled flat modifier returned by a hook.
type Modifier struct {
	Label string
	Value int
}

// PreAttack calls pre_attack(info) in sceneID's VM and collects the modifiers
// it returns. The hook may return a number or an array of {label=, value=}
// tables; entries without a numeric value are skipped with a warning.
//
// Postcondition: Returns nil when no VM or hook exists or the script fails.
func (m *Manager) PreAttack(ctx context.Context, sceneID string, info AttackInfo) ([]Modifier, error) {
	var mods []Modifier
	build := func(L *lua.LState) []lua.LValue {
		return []lua.LValue{attackTable(L, info)}
	}
	read := func(ret lua.LValue) {
		mods = m.readModifiers(sceneID, ret)
	}
	if _, err := m.call(ctx, sceneID, PreAttackHook, build, read); err != nil {
		return nil, err
	}
	return mods, nil
}

func (m *Manager) readModifiers(sceneID string, ret lua.LValue) []Modifier {
	switch v := ret.(type) {
	case lua.LNumber:
		n, ok := modifierValue(v)
		if !ok {
			m.logger.Warn("scripting: pre_attack returned a non-integer modifier", zap.String("scene", sceneID), zap.Float64("value", float64(v)))
			return nil
		}
		if n == 0 {
			return nil
		}
		return []Modifier{{Label: DefaultModifierLabel, Value: n}}
	case *lua.LTable:
		var mods []Modifier
		v.ForEach(func(_, entry lua.LValue) {
			t, ok := entry.(*lua.LTable)
			if !ok {
				m.logger.Warn("scripting: pre_attack entry is not a table", zap.String("scene", sceneID))
				return
			}
			raw, ok := t.RawGetString("value").(lua.LNumber)
			if !ok {
				m.logger.Warn("scripting: pre_attack entry has no numeric value", zap.String("scene", sceneID))
				return
			}
			n, ok := modifierValue(raw)
			if !ok {
				m.logger.Warn("scripting: pre_attack entry value is not an integer", zap.String("scene", sceneID), zap.Float64("value", float64(raw)))
				return
			}
			label := DefaultModifierLabel
			if s, ok := t.RawGetString("label").(lua.LString); ok && s != "" {
				label = string(s)
			}
			mods = append(mods, Modifier{Label: label, Value: n})
		})
		return mods
	default:
		return nil
	}
}

// modifierValue converts a Lua number to a modifier. Fractions, NaN and values
// outside the int32 range are refused.
func modifierValue(v lua.LNumber) (int, bool) {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func attackTable(L *lua.LState, info AttackInfo) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("attacker", combatantTable(L, info.Attacker))
	if info.Target != nil {
		t.RawSetString("target", combatantTable(L, *info.Target))
	}
	w := L.NewTable()
	w.RawSetString("id", lua.LString(info.Weapon.ID))
	w.RawSetString("name", lua.LString(info.Weapon.Name))
	w.RawSetString("melee", lua.LBool(info.Weapon.Melee))
	t.RawSetString("weapon", w)
	t.RawSetString("distance", lua.LNumber(info.Distance))
	t.RawSetString("band", lua.LString(info.Band))
	t.RawSetString("backstab", lua.LBool(info.Backstab))
	return t
}

func combatantTable(L *lua.LState, c CombatantInfo) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("id", lua.LString(c.ID))
	t.RawSetString("name", lua.LString(c.Name))
	t.RawSetString("category", lua.LString(c.Category))
	t.RawSetString("disposition", lua.LString(c.Disposition))
	t.RawSetString("str", lua.LNumber(c.Str))
	t.RawSetString("agl", lua.LNumber(c.Agl))
	t.RawSetString("lck", lua.LNumber(c.Lck))
	t.RawSetString("ac", lua.LNumber(c.AC))
	t.RawSetString("hp", lua.LNumber(c.HP))
	t.RawSetString("max_hp", lua.LNumber(c.MaxHP))
	return t
}
