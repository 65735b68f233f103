// Package ruleset loads the YAML content that parameterizes combat resolution:
// the die chain, default dice, class traits and the weapon catalogue.
package ruleset

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/cory-johannsen/dccqol/internal/game/combat"
	"github.com/cory-johannsen/dccqol/internal/game/dice"
	"github.com/cory-johannsen/dccqol/internal/game/inventory"
)

//go:embed defaults
var defaults embed.FS

const (
	rulesetFile = "ruleset.yaml"
	classesDir  = "classes"
	weaponsDir  = "weapons"
)

// File is the on-disk shape of ruleset.yaml.
type File struct {
	DieChain         []string `yaml:"die_chain"`
	DefaultActionDie string   `yaml:"default_action_die"`
	DefaultFumbleDie string   `yaml:"default_fumble_die"`
	DefaultCritRange int      `yaml:"default_crit_range"`
}

// Ruleset is a loaded ruleset directory.
type Ruleset struct {
	File    File
	Classes *ClassRegistry
	Weapons *inventory.Registry
	chain   *dice.Chain
}

// Load reads a ruleset directory from disk. An empty dir loads the built-in
// DCC defaults.
//
// Postcondition: Returns a validated Ruleset or a non-nil error.
func Load(dir string) (*Ruleset, error) {
	if dir == "" {
		return Default()
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("ruleset: %w", err)
	}
	return LoadFS(os.DirFS(dir))
}

// Default returns the built-in DCC ruleset.
func Default() (*Ruleset, error) {
	sub, err := fs.Sub(defaults, "defaults")
	if err != nil {
		return nil, err
	}
	return LoadFS(sub)
}

// MustDefault is Default that panics on error.
func MustDefault() *Ruleset {
	rs, err := Default()
	if err != nil {
		panic(err.Error())
	}
	return rs
}

// LoadFS reads ruleset.yaml plus the optional classes/ and weapons/ directories
// from fsys.
//
// Postcondition: Returns a validated Ruleset or a non-nil error.
func LoadFS(fsys fs.FS) (*Ruleset, error) {
	var f File
	if err := decodeStrict(fsys, rulesetFile, &f); err != nil {
		return nil, fmt.Errorf("ruleset: %w", err)
	}
	chain, err := dice.NewChain(f.DieChain)
	if err != nil {
		return nil, fmt.Errorf("ruleset: %w", err)
	}

	rs := &Ruleset{
		File:    f,
		Classes: NewClassRegistry(),
		Weapons: inventory.NewRegistry(),
		chain:   chain,
	}

	if exists(fsys, classesDir) {
		classes, err := LoadClasses(fsys, classesDir)
		if err != nil {
			return nil, fmt.Errorf("ruleset: %w", err)
		}
		for _, c := range classes {
			rs.Classes.Register(c)
		}
	}

	if exists(fsys, weaponsDir) {
		ws, err := inventory.LoadWeaponsFS(fsys, weaponsDir)
		if err != nil {
			return nil, fmt.Errorf("ruleset: %w", err)
		}
		if rs.Weapons, err = inventory.NewRegistryFrom(ws); err != nil {
			return nil, fmt.Errorf("ruleset: %w", err)
		}
	}

	if err := rs.Rules().Validate(); err != nil {
		return nil, fmt.Errorf("ruleset: %w", err)
	}
	return rs, nil
}

// Chain returns the configured die chain.
func (rs *Ruleset) Chain() *dice.Chain { return rs.chain }

// Rules converts the ruleset into the engine's immutable configuration.
func (rs *Ruleset) Rules() combat.Rules {
	return combat.Rules{
		Chain:            rs.chain,
		DefaultActionDie: rs.File.DefaultActionDie,
		DefaultFumbleDie: rs.File.DefaultFumbleDie,
		DefaultCritRange: rs.File.DefaultCritRange,
		Classes:          rs.Classes.Traits(),
	}
}

func exists(fsys fs.FS, dir string) bool {
	st, err := fs.Stat(fsys, dir)
	if errors.Is(err, fs.ErrNotExist) {
		return false
	}
	return err == nil && st.IsDir()
}
