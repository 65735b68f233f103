package combat

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/dccqol/internal/game/dice"
)

// LuckyWeaponMode selects how the lucky-weapon modifier is computed.
type LuckyWeaponMode string

const (
	LuckyNone     LuckyWeaponMode = "none"
	LuckyManual   LuckyWeaponMode = "manual"
	LuckyStandard LuckyWeaponMode = "standard"
	LuckyPlus1    LuckyWeaponMode = "plus1"
	LuckyPositive LuckyWeaponMode = "positive"
)

// Valid reports whether m is a known mode.
func (m LuckyWeaponMode) Valid() bool {
	switch m {
	case LuckyNone, LuckyManual, LuckyStandard, LuckyPlus1, LuckyPositive:
		return true
	}
	return false
}

// Settings are the automation switches the engine reads. They are plain values
// owned by the configuration layer.
type Settings struct {
	UntrainedPenalty bool
	RangeChecks      bool
	AbilityModifiers bool
	FiringIntoMelee  bool
	LuckyWeapon      LuckyWeaponMode
	MonsterCritLuck  bool
	FumbleLuck       bool
	DeedDie          bool
	FriendlyFire     bool
	Grid             Grid
}

// ClassTraits are the ruleset facts about a sheet class.
type ClassTraits struct {
	DeedDie     bool
	LuckyWeapon bool
}

// Rules is the immutable ruleset configuration shared by every resolution.
type Rules struct {
	Chain            *dice.Chain
	DefaultActionDie string
	DefaultFumbleDie string
	DefaultCritRange int
	Classes          map[string]ClassTraits // keyed by lower-case sheet class
}

// Traits returns the traits of sheetClass; unknown classes have none.
func (r Rules) Traits(sheetClass string) ClassTraits {
	return r.Classes[strings.ToLower(sheetClass)]
}

// Validate checks that the rules can drive a resolution.
func (r Rules) Validate() error {
	if r.Chain == nil {
		return fmt.Errorf("rules: die chain is required")
	}
	if _, ok := dice.Faces(r.DefaultActionDie); !ok {
		return fmt.Errorf("rules: default action die %q must be a single die", r.DefaultActionDie)
	}
	if _, ok := dice.Faces(r.DefaultFumbleDie); !ok {
		return fmt.Errorf("rules: default fumble die %q must be a single die", r.DefaultFumbleDie)
	}
	if r.DefaultCritRange < 2 {
		return fmt.Errorf("rules: default crit range must be >= 2, got %d", r.DefaultCritRange)
	}
	return nil
}
