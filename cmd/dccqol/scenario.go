package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/dccqol/internal/automation"
	"github.com/cory-johannsen/dccqol/internal/game/combat"
	"github.com/cory-johannsen/dccqol/internal/game/inventory"
)

// Scenario is one attack described in YAML.
//
// The weapon is either a reference into the ruleset catalogue (Weapon, by ID
// or name) or a full inline definition (WeaponDef).
type Scenario struct {
	Key    string `yaml:"key"`
	Scene  string `yaml:"scene"`
	Weapon string `yaml:"weapon"`
	// WeaponDef takes precedence over Weapon.
	WeaponDef  *inventory.WeaponDef `yaml:"weapon_def"`
	Attacker   *combat.Combatant    `yaml:"attacker"`
	Target     *combat.Combatant    `yaml:"target"`
	Bystanders []*combat.Combatant  `yaml:"bystanders"`

	Backstab        bool `yaml:"backstab"`
	FiringIntoMelee bool `yaml:"firing_into_melee"`
	UsesDeedDie     bool `yaml:"uses_deed_die"`
	ModifierDialog  bool `yaml:"modifier_dialog"`
}

// LoadScenario reads and strictly decodes a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	return DecodeScenario(data)
}

// DecodeScenario strictly decodes scenario YAML; unknown fields are errors.
func DecodeScenario(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var s Scenario
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("scenario is empty")
		}
		return nil, fmt.Errorf("decoding scenario: %w", err)
	}
	if s.Attacker == nil {
		return nil, errors.New("scenario: attacker is required")
	}
	return &s, nil
}

// ResolveWeapon returns the inline weapon or looks the reference up in reg.
func (s *Scenario) ResolveWeapon(reg *inventory.Registry) (*inventory.WeaponDef, error) {
	if s.WeaponDef != nil {
		if err := s.WeaponDef.Validate(); err != nil {
			return nil, fmt.Errorf("scenario weapon_def: %w", err)
		}
		return s.WeaponDef, nil
	}
	if s.Weapon == "" {
		return nil, errors.New("scenario: weapon or weapon_def is required")
	}
	w, ok := reg.Lookup(s.Weapon)
	if !ok {
		return nil, fmt.Errorf("scenario: unknown weapon %q", s.Weapon)
	}
	return w, nil
}

// Request converts the scenario into a service request.
func (s *Scenario) Request(w *inventory.WeaponDef) automation.Request {
	return automation.Request{
		Key:     s.Key,
		SceneID: s.Scene,
		Attack: combat.AttackContext{
			Attacker:        s.Attacker,
			Weapon:          w,
			Target:          s.Target,
			Bystanders:      s.Bystanders,
			Backstab:        s.Backstab,
			FiringIntoMelee: s.FiringIntoMelee,
			UsesDeedDie:     s.UsesDeedDie,
			ModifierDialog:  s.ModifierDialog,
		},
	}
}
