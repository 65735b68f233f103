package dice

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Roller wraps a Source and logger to provide logged dice evaluation.
// All evaluations are logged at debug level with expression, dice values, modifier, and total.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that rolls with src and logs each roll to logger.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// Source returns the randomness provider backing this Roller.
func (r *Roller) Source() Source { return r.src }

// Evaluate parses and rolls formula. It is the engine's single suspension point:
// a cancelled ctx fails the evaluation before any die is rolled.
//
// Precondition: ctx must be non-nil.
// Postcondition: Returns a fully populated RollResult, or an error and no partial result.
func (r *Roller) Evaluate(ctx context.Context, formula string) (RollResult, error) {
	if err := ctx.Err(); err != nil {
		return RollResult{}, fmt.Errorf("dice: evaluating %q: %w", formula, err)
	}
	f, err := ParseFormula(formula)
	if err != nil {
		return RollResult{}, err
	}
	result, err := RollFormula(f, r.src)
	if err != nil {
		return RollResult{}, err
	}
	r.log(result)
	return result, nil
}

// RollExpr parses expr and rolls it, logging the result.
//
// Precondition: expr must be a valid dice formula.
// Postcondition: Returns a RollResult or a parse error.
func (r *Roller) RollExpr(expr string) (RollResult, error) {
	return r.Evaluate(context.Background(), expr)
}

func (r *Roller) log(result RollResult) {
	r.logger.Debug("dice roll",
		zap.String("expression", result.Expression),
		zap.Ints("dice", result.Dice()),
		zap.Int("modifier", result.Modifier),
		zap.Int("total", result.Total()),
	)
}
