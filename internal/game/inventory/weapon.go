// Package inventory provides the canonical weapon record consumed by the combat
// engine, plus the normalization of loosely shaped host weapon snapshots.
package inventory

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/dccqol/internal/game/dice"
)

// AttackBonusPlaceholder is the token in a to-hit formula that stands for the
// wielder's computed attack bonus (or deed die).
const AttackBonusPlaceholder = "@ab"

// RangeBands holds the short/medium/long range limits of a ranged weapon in
// world distance units.
//
// Invariant: for a ranged weapon 0 < Short < Medium < Long.
type RangeBands struct {
	Short  int
	Medium int
	Long   int
}

// IsZero reports whether no range bands are set.
func (r RangeBands) IsZero() bool { return r == RangeBands{} }

// String renders the bands in the host's "short/medium/long" notation.
func (r RangeBands) String() string {
	return fmt.Sprintf("%d/%d/%d", r.Short, r.Medium, r.Long)
}

// Validate checks the strict ordering invariant.
func (r RangeBands) Validate() error {
	if r.Short <= 0 || r.Medium <= r.Short || r.Long <= r.Medium {
		return fmt.Errorf("range bands %s must be strictly increasing and positive", r)
	}
	return nil
}

// ParseRangeBands parses "30/60/90" or "30:60:90". An empty string yields zero bands.
//
// Postcondition: Returns bands satisfying Validate, zero bands for "", or an error.
func ParseRangeBands(s string) (RangeBands, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return RangeBands{}, nil
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '/' || r == ':' })
	if len(parts) != 3 {
		return RangeBands{}, fmt.Errorf("range %q must have three bands", s)
	}
	var vals [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return RangeBands{}, fmt.Errorf("range %q: invalid band %q: %w", s, p, err)
		}
		vals[i] = n
	}
	r := RangeBands{Short: vals[0], Medium: vals[1], Long: vals[2]}
	if err := r.Validate(); err != nil {
		return RangeBands{}, err
	}
	return r, nil
}

// UnmarshalYAML accepts the host's string notation.
func (r *RangeBands) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("range: %w", err)
	}
	parsed, err := ParseRangeBands(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// UnmarshalJSON accepts the host's string notation.
func (r *RangeBands) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("range: %w", err)
	}
	parsed, err := ParseRangeBands(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// MarshalJSON writes the host's string notation; zero bands marshal as "".
func (r RangeBands) MarshalJSON() ([]byte, error) {
	if r.IsZero() {
		return json.Marshal("")
	}
	return json.Marshal(r.String())
}

// DamageFormula is a damage dice formula. Host snapshots store it either as a
// plain string or as an object with a "value" field; both decode to the string.
type DamageFormula string

type damageObject struct {
	Value string `yaml:"value" json:"value"`
}

// UnmarshalYAML accepts a scalar formula or a {value: formula} mapping.
func (d *DamageFormula) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.MappingNode {
		var obj damageObject
		if err := node.Decode(&obj); err != nil {
			return fmt.Errorf("damage: %w", err)
		}
		*d = DamageFormula(obj.Value)
		return nil
	}
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("damage: %w", err)
	}
	*d = DamageFormula(s)
	return nil
}

// UnmarshalJSON accepts a string formula or a {"value": formula} object.
func (d *DamageFormula) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var obj damageObject
		if err := json.Unmarshal(data, &obj); err != nil {
			return fmt.Errorf("damage: %w", err)
		}
		*d = DamageFormula(obj.Value)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("damage: %w", err)
	}
	*d = DamageFormula(s)
	return nil
}

// WeaponDef is the canonical, strictly typed weapon record.
type WeaponDef struct {
	ID        string        `yaml:"id" json:"id"`
	Name      string        `yaml:"name" json:"name"`
	Damage    DamageFormula `yaml:"damage" json:"damage"`
	Melee     bool          `yaml:"melee" json:"melee"`
	Range     RangeBands    `yaml:"range" json:"range"`
	Equipped  bool          `yaml:"equipped" json:"equipped"`
	Trained   bool          `yaml:"trained" json:"trained"`
	TwoHanded bool          `yaml:"two_handed" json:"twoHanded"`
	// ToHit is the to-hit formula; AttackBonusPlaceholder marks where the
	// wielder's attack bonus is substituted.
	ToHit string `yaml:"to_hit" json:"toHit"`
	// CritRange overrides the wielder's crit range when > 0.
	CritRange int `yaml:"crit_range" json:"critRange"`
	// ActionDie overrides the wielder's action die when non-empty.
	ActionDie string `yaml:"action_die" json:"actionDie"`
}

// IsRanged reports whether the weapon is a ranged weapon.
func (w *WeaponDef) IsRanged() bool { return !w.Melee }

// signFolder collapses the doubled signs produced by substituting a signed value
// after an operator, e.g. "+@ab" with "-2".
var signFolder = strings.NewReplacer("+-", "-", "-+", "-", "--", "+", "++", "+")

// ToHitWith substitutes bonus for the attack bonus placeholder in ToHit. An
// empty ToHit yields "+0".
func (w *WeaponDef) ToHitWith(bonus string) string {
	if strings.TrimSpace(w.ToHit) == "" {
		return "+0"
	}
	s := strings.Join(strings.Fields(w.ToHit), "")
	return signFolder.Replace(strings.ReplaceAll(s, AttackBonusPlaceholder, bonus))
}

// Validate checks that the WeaponDef satisfies its invariants.
// Precondition: w is non-nil.
// Postcondition: returns nil iff all fields are valid.
func (w *WeaponDef) Validate() error {
	var errs []error
	if w.Name == "" {
		errs = append(errs, errors.New("Name must not be empty"))
	}
	if w.Damage == "" {
		errs = append(errs, errors.New("Damage must not be empty"))
	} else if _, err := dice.ParseFormula(string(w.Damage)); err != nil {
		errs = append(errs, fmt.Errorf("Damage: %w", err))
	}
	if _, err := dice.ParseFormula(w.ToHitWith("0")); err != nil {
		errs = append(errs, fmt.Errorf("ToHit: %w", err))
	}
	if w.IsRanged() {
		if err := w.Range.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if w.CritRange < 0 {
		errs = append(errs, errors.New("CritRange must not be negative"))
	}
	if w.ActionDie != "" {
		if _, err := dice.Parse(w.ActionDie); err != nil {
			errs = append(errs, fmt.Errorf("ActionDie: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("weapon validation failed: %w", errors.Join(errs...))
	}
	return nil
}

// DecodeWeaponJSON normalizes a host weapon snapshot into a validated WeaponDef.
//
// Postcondition: Returns a WeaponDef satisfying Validate, or an error.
func DecodeWeaponJSON(data []byte) (*WeaponDef, error) {
	var w WeaponDef
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decoding weapon: %w", err)
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &w, nil
}

// LoadWeapons reads all *.yaml files from dir, parses each as a WeaponDef,
// validates it, and returns the collected slice.
// Precondition: dir is a readable directory path.
// Postcondition: returns all valid WeaponDefs or the first encountered error.
func LoadWeapons(dir string) ([]*WeaponDef, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("LoadWeapons: cannot read directory %q: %w", dir, err)
	}
	return LoadWeaponsFS(os.DirFS(dir), ".")
}

// LoadWeaponsFS is LoadWeapons over an fs.FS, used for embedded content.
func LoadWeaponsFS(fsys fs.FS, dir string) ([]*WeaponDef, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("LoadWeapons: cannot read directory %q: %w", dir, err)
	}

	var weapons []*WeaponDef
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".yaml" {
			continue
		}
		p := path.Join(dir, entry.Name())
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("LoadWeapons: cannot read file %q: %w", p, err)
		}
		var w WeaponDef
		if err := yaml.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("LoadWeapons: cannot parse file %q: %w", p, err)
		}
		if err := w.Validate(); err != nil {
			return nil, fmt.Errorf("LoadWeapons: invalid weapon in %q: %w", p, err)
		}
		weapons = append(weapons, &w)
	}
	return weapons, nil
}
