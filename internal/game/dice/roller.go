package dice

import "sort"

// rollGroup rolls one dice group, applying keep-highest when requested.
func rollGroup(e Expression, src Source) GroupResult {
	rolled := make([]int, e.Count)
	for i := range rolled {
		rolled[i] = src.Intn(e.Sides) + 1
	}

	kept := rolled
	if e.KeepHighest > 0 {
		sorted := make([]int, len(rolled))
		copy(sorted, rolled)
		sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
		kept = sorted[:e.KeepHighest]
	}

	return GroupResult{
		Count:    e.Count,
		Sides:    e.Sides,
		Negative: e.Negative,
		Dice:     kept,
	}
}

// RollFormula evaluates a parsed Formula using the given Source.
//
// Precondition: f must come from ParseFormula; src must be non-nil.
// Postcondition: len(result.Groups) == len(f.Groups), groups in formula order;
// result.Total() == sum of signed groups + f.Modifier.
func RollFormula(f Formula, src Source) (RollResult, error) {
	groups := make([]GroupResult, 0, len(f.Groups))
	for _, g := range f.Groups {
		groups = append(groups, rollGroup(g, src))
	}
	return RollResult{
		Expression: f.Raw,
		Groups:     groups,
		Modifier:   f.Modifier,
	}, nil
}

// Roll evaluates a single Expression using the given Source.
//
// Precondition: expr must come from Parse (Count >= 1, Sides >= 2); src must be non-nil.
// Postcondition: result has exactly one group; result.Total() == group sum + expr.Modifier.
func Roll(expr Expression, src Source) (RollResult, error) {
	return RollResult{
		Expression: expr.Raw,
		Groups:     []GroupResult{rollGroup(expr, src)},
		Modifier:   expr.Modifier,
	}, nil
}

// RollExpr parses formula and rolls it using src in a single call.
//
// Precondition: formula must be a valid dice formula; src must be non-nil.
// Postcondition: Returns a RollResult or a parse error.
func RollExpr(formula string, src Source) (RollResult, error) {
	f, err := ParseFormula(formula)
	if err != nil {
		return RollResult{}, err
	}
	return RollFormula(f, src)
}

// MustParse parses expr and panics on error. Useful for package-level constants.
//
// Precondition: expr must be a valid dice expression.
func MustParse(expr string) Expression {
	e, err := Parse(expr)
	if err != nil {
		panic("dice: MustParse failed for expression " + expr + ": " + err.Error())
	}
	return e
}
