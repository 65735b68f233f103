package dice

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxDiceCount and MaxDieSides bound a single dice group so that a formula
// from untrusted content cannot allocate unbounded memory when rolled.
const (
	MaxDiceCount = 1000
	MaxDieSides  = 1000
)

// Expression is a single dice group, optionally carrying a flat modifier when
// produced by Parse.
//
// Precondition: 1 <= Count <= MaxDiceCount and 2 <= Sides <= MaxDieSides after
// successful parsing.
type Expression struct {
	Raw         string // original input string
	Count       int    // number of dice
	Sides       int    // faces per die
	Modifier    int    // flat modifier (may be negative); always 0 inside a Formula
	KeepHighest int    // if > 0, keep only the N highest dice (e.g. 4d6kh3)
	Negative    bool   // group is subtracted; only set inside a Formula
}

// Die returns the canonical "NdS[khK]" notation of the group without sign or modifier.
func (e Expression) Die() string {
	s := fmt.Sprintf("%dd%d", e.Count, e.Sides)
	if e.KeepHighest > 0 {
		s += fmt.Sprintf("kh%d", e.KeepHighest)
	}
	return s
}

// Formula is a parsed sum of dice groups and flat numbers, e.g. "1d20+1d3-1+2".
type Formula struct {
	Raw      string
	Groups   []Expression
	Modifier int // net of all flat terms
}

// HasDice reports whether the formula contains at least one dice group.
func (f Formula) HasDice() bool { return len(f.Groups) > 0 }

// String renders the formula in canonical form: dice groups in order followed by
// the net modifier. A leading positive group carries no sign.
//
// Postcondition: ParseFormula(f.String()) yields an equivalent Formula.
func (f Formula) String() string {
	var b strings.Builder
	for i, g := range f.Groups {
		switch {
		case g.Negative:
			b.WriteByte('-')
		case i > 0:
			b.WriteByte('+')
		}
		b.WriteString(g.Die())
	}
	if f.Modifier != 0 || b.Len() == 0 {
		if b.Len() == 0 {
			b.WriteString(strconv.Itoa(f.Modifier))
		} else {
			fmt.Fprintf(&b, "%+d", f.Modifier)
		}
	}
	return b.String()
}

// ParseFormula parses a dice formula made of "+" / "-" separated terms, each of
// which is a dice group ("d20", "2d6", "4d6kh3") or an integer. A leading sign is
// allowed so that bonus fragments such as "+2" or "-1d4" parse on their own.
// Whitespace is ignored.
//
// Precondition: formula must be a non-empty string.
// Postcondition: Returns a Formula or a descriptive error.
func ParseFormula(formula string) (Formula, error) {
	s := strings.ToLower(strings.Join(strings.Fields(formula), ""))
	if s == "" {
		return Formula{}, fmt.Errorf("dice: empty formula")
	}

	f := Formula{Raw: formula}
	i := 0
	for i < len(s) {
		negative := false
		switch s[i] {
		case '+':
			i++
		case '-':
			negative = true
			i++
		}
		j := i
		for j < len(s) && s[j] != '+' && s[j] != '-' {
			j++
		}
		tok := s[i:j]
		if tok == "" {
			return Formula{}, fmt.Errorf("dice: dangling operator in %q", formula)
		}
		if strings.Contains(tok, "d") {
			e, err := parseGroup(tok, formula)
			if err != nil {
				return Formula{}, err
			}
			e.Negative = negative
			f.Groups = append(f.Groups, e)
		} else {
			n, err := strconv.Atoi(tok)
			if err != nil {
				return Formula{}, fmt.Errorf("dice: invalid term %q in %q: %w", tok, formula, err)
			}
			if negative {
				n = -n
			}
			f.Modifier += n
		}
		i = j
	}
	return f, nil
}

// parseGroup parses one unsigned "NdS" or "NdSkhK" token.
func parseGroup(tok, raw string) (Expression, error) {
	dIdx := strings.Index(tok, "d")

	count := 1
	if countStr := tok[:dIdx]; countStr != "" {
		var err error
		count, err = strconv.Atoi(countStr)
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid die count in %q: %w", raw, err)
		}
		if count <= 0 || count > MaxDiceCount {
			return Expression{}, fmt.Errorf("dice: invalid die count in %q: must be between 1 and %d", raw, MaxDiceCount)
		}
	}

	rest := tok[dIdx+1:]
	keepHighest := 0
	if khIdx := strings.Index(rest, "kh"); khIdx >= 0 {
		kh, err := strconv.Atoi(rest[khIdx+2:])
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid kh value in %q: %w", raw, err)
		}
		if kh <= 0 || kh >= count {
			return Expression{}, fmt.Errorf("dice: kh value %d must be > 0 and < count %d in %q", kh, count, raw)
		}
		keepHighest = kh
		rest = rest[:khIdx]
	}

	sides, err := strconv.Atoi(rest)
	if err != nil {
		return Expression{}, fmt.Errorf("dice: invalid die sides in %q: %w", raw, err)
	}
	if sides < 2 || sides > MaxDieSides {
		return Expression{}, fmt.Errorf("dice: invalid die sides in %q: must be between 2 and %d", raw, MaxDieSides)
	}

	return Expression{
		Raw:         tok,
		Count:       count,
		Sides:       sides,
		KeepHighest: keepHighest,
	}, nil
}

// Parse parses a single dice group with an optional flat modifier.
// Supported forms: "d20", "2d6", "2d6+3", "4d8-2", "4d6kh3".
//
// Precondition: expr must be a non-empty string.
// Postcondition: Returns an Expression or a descriptive error; formulas with more
// than one dice group or a subtracted group are rejected.
func Parse(expr string) (Expression, error) {
	f, err := ParseFormula(expr)
	if err != nil {
		return Expression{}, err
	}
	if len(f.Groups) != 1 {
		return Expression{}, fmt.Errorf("dice: expected exactly one dice group in %q, got %d", expr, len(f.Groups))
	}
	e := f.Groups[0]
	if e.Negative {
		return Expression{}, fmt.Errorf("dice: negative dice group in %q", expr)
	}
	e.Raw = expr
	e.Modifier = f.Modifier
	return e, nil
}

// Faces returns the face count of a single-die formula such as "1d20" or "d16".
//
// Postcondition: ok is false when formula is not exactly one die with no modifier.
func Faces(formula string) (sides int, ok bool) {
	e, err := Parse(formula)
	if err != nil || e.Count != 1 || e.Modifier != 0 || e.KeepHighest != 0 {
		return 0, false
	}
	return e.Sides, true
}
