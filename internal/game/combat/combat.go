// Package combat implements the attack resolution engine: range classification,
// attack roll assembly, outcome classification, luck adjustments and friendly fire.
//
// Every calculator in this package is a pure function of its inputs; the only
// suspension point is the Evaluator call inside Resolver.Resolve.
package combat

// Category distinguishes player characters from non-player characters.
type Category string

const (
	PlayerCharacter    Category = "PlayerCharacter"
	NonPlayerCharacter Category = "NonPlayerCharacter"
)

// Disposition is a combatant's allegiance as seen by the host.
type Disposition string

const (
	Friendly Disposition = "friendly"
	Hostile  Disposition = "hostile"
	Neutral  Disposition = "neutral"
)

// Abilities holds the ability modifiers the engine reads.
type Abilities struct {
	Str int `yaml:"str" json:"str"`
	Agl int `yaml:"agl" json:"agl"`
	Lck int `yaml:"lck" json:"lck"`
}

// Critical names the combatant's crit die and crit table.
type Critical struct {
	Die   string `yaml:"die" json:"die"`
	Table string `yaml:"table" json:"table"`
}

// HitPoints holds current and maximum hit points.
type HitPoints struct {
	Value int `yaml:"value" json:"value"`
	Max   int `yaml:"max" json:"max"`
}

// ClassInfo is the class metadata of a combatant's sheet.
type ClassInfo struct {
	SheetClass string `yaml:"sheet_class" json:"sheetClass"`
	// Backstab is the flat to-hit bonus granted when backstabbing.
	Backstab int `yaml:"backstab" json:"backstab"`
	// LuckyWeapon is the name (or name fragment) of the designated lucky weapon.
	LuckyWeapon string `yaml:"lucky_weapon" json:"luckyWeapon"`
	// DeedDie is the combatant's current deed die expression, e.g. "1d3".
	DeedDie string `yaml:"deed_die" json:"deedDie"`
}

// Position is a combatant's centre on the scene in scene units, with its
// footprint size in grid squares (1 = medium, 2 = large, 0.5 = tiny).
type Position struct {
	X    float64 `yaml:"x" json:"x"`
	Y    float64 `yaml:"y" json:"y"`
	Size float64 `yaml:"size" json:"size"`
}

// Combatant is a snapshot of one participant, built fresh per resolution.
type Combatant struct {
	ID          string      `yaml:"id" json:"id"`
	Name        string      `yaml:"name" json:"name"`
	Category    Category    `yaml:"category" json:"category"`
	Disposition Disposition `yaml:"disposition" json:"disposition"`
	Abilities   Abilities   `yaml:"abilities" json:"abilities"`
	// AttackBonus is the host-computed attack bonus substituted into to-hit formulas.
	AttackBonus int      `yaml:"attack_bonus" json:"attackBonus"`
	ActionDie   string   `yaml:"action_die" json:"actionDie"`
	FumbleDie   string   `yaml:"fumble_die" json:"fumbleDie"`
	Critical    Critical `yaml:"critical" json:"critical"`
	// CritRange is the minimum natural action die result that crits; 0 = ruleset default.
	CritRange int `yaml:"crit_range" json:"critRange"`
	// AC is the armor class; a value <= 0 means the AC is unavailable.
	AC       int       `yaml:"ac" json:"ac"`
	HP       HitPoints `yaml:"hp" json:"hp"`
	Class    ClassInfo `yaml:"class" json:"class"`
	Position Position  `yaml:"position" json:"position"`
}

// IsPlayer reports whether this combatant is a player character.
// Postcondition: Returns true iff Category == PlayerCharacter.
func (c *Combatant) IsPlayer() bool { return c.Category == PlayerCharacter }

// HasAC reports whether the combatant's armor class is known.
func (c *Combatant) HasAC() bool { return c.AC > 0 }

// IsDown reports whether a combatant with tracked hit points is at zero or below.
func (c *Combatant) IsDown() bool { return c.HP.Max > 0 && c.HP.Value <= 0 }

// ApplyDamage reduces HP.Value by amount, flooring at zero.
// Precondition: amount must be >= 0.
// Postcondition: HP.Value >= 0.
func (c *Combatant) ApplyDamage(amount int) {
	c.HP.Value -= amount
	if c.HP.Value < 0 {
		c.HP.Value = 0
	}
}
