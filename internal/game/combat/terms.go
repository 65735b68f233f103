package combat

import (
	"fmt"
	"strings"
)

// TermKind tags a RollTerm.
type TermKind int

const (
	TermDie TermKind = iota
	TermModifier
	TermCompound
)

// String returns the wire name of the kind.
func (k TermKind) String() string {
	switch k {
	case TermDie:
		return "die"
	case TermModifier:
		return "modifier"
	case TermCompound:
		return "compound"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name.
func (k TermKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText decodes a kind name.
func (k *TermKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "die":
		*k = TermDie
	case "modifier":
		*k = TermModifier
	case "compound":
		*k = TermCompound
	default:
		return fmt.Errorf("unknown term kind %q", b)
	}
	return nil
}

// RollTerm is one labelled piece of an attack roll.
//
//   - TermDie uses DieFormula.
//   - TermModifier uses Value.
//   - TermCompound uses DieFormula (may be empty) and ModifierFormula (may be empty).
type RollTerm struct {
	Kind            TermKind `json:"kind"`
	Label           string   `json:"label"`
	DieFormula      string   `json:"dieFormula,omitempty"`
	ModifierFormula string   `json:"modifierFormula,omitempty"`
	Value           int      `json:"value,omitempty"`
}

// DieTerm returns a single-die term.
func DieTerm(label, formula string) RollTerm {
	return RollTerm{Kind: TermDie, Label: label, DieFormula: formula}
}

// ModifierTerm returns a flat modifier term.
func ModifierTerm(label string, value int) RollTerm {
	return RollTerm{Kind: TermModifier, Label: label, Value: value}
}

// CompoundTerm returns a term mixing dice and flat modifiers.
func CompoundTerm(label, dieFormula, modifierFormula string) RollTerm {
	return RollTerm{Kind: TermCompound, Label: label, DieFormula: dieFormula, ModifierFormula: modifierFormula}
}

// Fragment renders the term as a formula fragment.
func (t RollTerm) Fragment() string {
	switch t.Kind {
	case TermDie:
		return t.DieFormula
	case TermModifier:
		return fmt.Sprintf("%+d", t.Value)
	case TermCompound:
		s := t.DieFormula + t.ModifierFormula
		if s == "" {
			return "+0"
		}
		return s
	default:
		return ""
	}
}

// Terms is the ordered term list of an attack roll. Order affects display only.
type Terms []RollTerm

// Formula joins the fragments into one evaluable formula.
//
// Postcondition: the result evaluates to the sum of all terms.
func (ts Terms) Formula() string {
	var b strings.Builder
	for i, t := range ts {
		frag := t.Fragment()
		if frag == "" {
			continue
		}
		if i > 0 && frag[0] != '+' && frag[0] != '-' {
			b.WriteByte('+')
		}
		b.WriteString(frag)
	}
	return b.String()
}

// Find returns the first term with the given label.
func (ts Terms) Find(label string) (RollTerm, bool) {
	for _, t := range ts {
		if t.Label == label {
			return t, true
		}
	}
	return RollTerm{}, false
}

// Term labels.
const (
	LabelActionDie       = "Action Die"
	LabelToHit           = "To Hit"
	LabelBackstab        = "Backstab"
	LabelMediumRange     = "Medium Range"
	LabelStrength        = "Strength"
	LabelAgility         = "Agility"
	LabelFiringIntoMelee = "Firing Into Melee"
	LabelLuckyWeapon     = "Lucky Weapon"
)
