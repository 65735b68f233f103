package ruleset

import (
	"strings"

	"github.com/cory-johannsen/dccqol/internal/game/combat"
)

// ClassRegistry provides lookup of class traits by sheet class name or ID.
type ClassRegistry struct {
	classes map[string]*Class
}

// NewClassRegistry returns an empty ClassRegistry.
//
// Postcondition: Returns a non-nil *ClassRegistry ready to accept registrations.
func NewClassRegistry() *ClassRegistry {
	return &ClassRegistry{classes: make(map[string]*Class)}
}

// Register adds a Class under its lower-cased ID and name.
//
// Precondition: class must be non-nil with a non-empty ID.
// Postcondition: Class(id) and Class(name) return class; the last registration wins.
func (r *ClassRegistry) Register(class *Class) {
	if class == nil {
		panic("ClassRegistry.Register: precondition violated: class must be non-nil")
	}
	if class.ID == "" {
		panic("ClassRegistry.Register: precondition violated: class ID must be non-empty")
	}
	r.classes[strings.ToLower(class.ID)] = class
	if class.Name != "" {
		r.classes[strings.ToLower(class.Name)] = class
	}
}

// Class returns the Class registered under key, case-insensitively.
//
// Postcondition: Returns the registered Class and true, or nil and false if not found.
func (r *ClassRegistry) Class(key string) (*Class, bool) {
	c, ok := r.classes[strings.ToLower(key)]
	return c, ok
}

// Traits returns the combat traits keyed the way combat.Rules expects.
func (r *ClassRegistry) Traits() map[string]combat.ClassTraits {
	out := make(map[string]combat.ClassTraits, len(r.classes))
	for key, c := range r.classes {
		out[key] = combat.ClassTraits{DeedDie: c.DeedDie, LuckyWeapon: c.LuckyWeapon}
	}
	return out
}
