package inventory

import (
	"fmt"
	"sort"
	"strings"
)

// Registry holds loaded weapon definitions indexed by ID.
type Registry struct {
	weapons map[string]*WeaponDef
}

// NewRegistry returns an empty Registry.
//
// Postcondition: the internal map is initialised.
func NewRegistry() *Registry {
	return &Registry{weapons: make(map[string]*WeaponDef)}
}

// NewRegistryFrom registers every weapon in ws.
//
// Postcondition: Returns an error on the first duplicate ID.
func NewRegistryFrom(ws []*WeaponDef) (*Registry, error) {
	r := NewRegistry()
	for _, w := range ws {
		if err := r.RegisterWeapon(w); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// RegisterWeapon adds w to the registry.
//
// Precondition:  w must not be nil.
// Postcondition: Weapon(w.ID) returns w; returns error if w.ID already registered.
func (r *Registry) RegisterWeapon(w *WeaponDef) error {
	if _, exists := r.weapons[w.ID]; exists {
		return fmt.Errorf("inventory: Registry.RegisterWeapon: weapon ID %q already registered", w.ID)
	}
	r.weapons[w.ID] = w
	return nil
}

// Weapon returns the WeaponDef for the given id, or nil if not found.
func (r *Registry) Weapon(id string) *WeaponDef {
	return r.weapons[id]
}

// Lookup finds a weapon by ID, falling back to a case-insensitive name match.
//
// Postcondition: ok is true iff a weapon matched.
func (r *Registry) Lookup(ref string) (*WeaponDef, bool) {
	if w, ok := r.weapons[ref]; ok {
		return w, true
	}
	for _, w := range r.AllWeapons() {
		if strings.EqualFold(w.Name, ref) {
			return w, true
		}
	}
	return nil, false
}

// AllWeapons returns all registered WeaponDefs sorted by ID.
//
// Postcondition: len(result) == number of registered weapons.
func (r *Registry) AllWeapons() []*WeaponDef {
	out := make([]*WeaponDef, 0, len(r.weapons))
	for _, w := range r.weapons {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
