package automation

import (
	"context"

	"github.com/cory-johannsen/dccqol/internal/game/combat"
	"github.com/cory-johannsen/dccqol/internal/scripting"
)

type sceneKey struct{}

// WithScene returns a context carrying the scene whose scripts supply
// situational modifiers.
func WithScene(ctx context.Context, sceneID string) context.Context {
	return context.WithValue(ctx, sceneKey{}, sceneID)
}

// SceneFrom returns the scene carried by ctx, or "".
func SceneFrom(ctx context.Context) string {
	s, _ := ctx.Value(sceneKey{}).(string)
	return s
}

// ScriptModifiers adapts the pre_attack Lua hook to combat.ModifierSource.
type ScriptModifiers struct {
	scripts *scripting.Manager
}

var _ combat.ModifierSource = (*ScriptModifiers)(nil)

// NewScriptModifiers creates a ScriptModifiers.
//
// Precondition: scripts must be non-nil.
func NewScriptModifiers(scripts *scripting.Manager) *ScriptModifiers {
	return &ScriptModifiers{scripts: scripts}
}

// Modifiers runs pre_attack for the scene in ctx and returns its non-zero
// modifiers as flat terms, in the order the script returned them.
func (s *ScriptModifiers) Modifiers(ctx context.Context, ac *combat.AttackContext) ([]combat.RollTerm, error) {
	mods, err := s.scripts.PreAttack(ctx, SceneFrom(ctx), attackInfo(ac))
	if err != nil {
		return nil, err
	}
	var terms []combat.RollTerm
	for _, m := range mods {
		if m.Value == 0 {
			continue
		}
		terms = append(terms, combat.ModifierTerm(m.Label, m.Value))
	}
	return terms, nil
}

func attackInfo(ac *combat.AttackContext) scripting.AttackInfo {
	info := scripting.AttackInfo{
		Attacker: combatantInfo(ac.Attacker),
		Weapon: scripting.WeaponInfo{
			ID:    ac.Weapon.ID,
			Name:  ac.Weapon.Name,
			Melee: ac.Weapon.Melee,
		},
		Distance: ac.Distance,
		Band:     string(ac.Band),
		Backstab: ac.Backstab,
	}
	if ac.Target != nil {
		t := combatantInfo(ac.Target)
		info.Target = &t
	}
	return info
}

func combatantInfo(c *combat.Combatant) scripting.CombatantInfo {
	return scripting.CombatantInfo{
		ID:          c.ID,
		Name:        c.Name,
		Category:    string(c.Category),
		Disposition: string(c.Disposition),
		Str:         c.Abilities.Str,
		Agl:         c.Abilities.Agl,
		Lck:         c.Abilities.Lck,
		AC:          c.AC,
		HP:          c.HP.Value,
		MaxHP:       c.HP.Max,
	}
}
