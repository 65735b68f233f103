package combat

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dccqol/internal/game/dice"
	"github.com/cory-johannsen/dccqol/internal/game/inventory"
)

//go:generate mockgen -destination=mock/mock_evaluator.go -package=combatmock github.com/cory-johannsen/dccqol/internal/game/combat Evaluator

// MightyDeedThreshold is the lowest deed die result that succeeds.
const MightyDeedThreshold = 3

// Evaluator rolls an assembled formula. It is the host dice engine and the only
// suspension point of a resolution.
type Evaluator interface {
	Evaluate(ctx context.Context, formula string) (dice.RollResult, error)
}

// ModifierSource contributes extra situational terms after the built-in ones.
// An error aborts the resolution before rolling.
type ModifierSource interface {
	Modifiers(ctx context.Context, ac *AttackContext) ([]RollTerm, error)
}

// Resolution is the full result of one attack.
type Resolution struct {
	AttackerID string        `json:"attackerId"`
	TargetID   string        `json:"targetId,omitempty"`
	Weapon     string        `json:"weapon"`
	Distance   float64       `json:"distance"`
	Band       RangeBand     `json:"band"`
	Terms      Terms         `json:"terms"`
	ActionDie  string        `json:"actionDie"`
	Outcome    AttackOutcome `json:"outcome"`
	Dice       []int         `json:"dice"`

	DeedDie     string `json:"deedDie,omitempty"`
	DeedRoll    int    `json:"deedRoll,omitempty"`
	DeedSuccess bool   `json:"deedSuccess,omitempty"`

	FumbleFormula string `json:"fumbleFormula,omitempty"`
	CritFormula   string `json:"critFormula,omitempty"`
	CritTable     string `json:"critTable,omitempty"`

	FriendlyFire *FriendlyFireResult `json:"friendlyFire,omitempty"`
}

// Resolver runs the attack pipeline: range classification, term assembly,
// evaluation, classification, luck follow-ups and friendly fire.
//
// A Resolver holds only immutable configuration and is safe for concurrent use
// when its Evaluator, Source and ModifierSources are.
type Resolver struct {
	rules    Rules
	settings Settings
	eval     Evaluator
	src      Source
	hooks    []ModifierSource
	logger   *zap.Logger
}

// NewResolver creates a Resolver.
//
// Precondition: rules.Validate() == nil; eval, src and logger are non-nil.
// Postcondition: Returns a non-nil Resolver.
func NewResolver(rules Rules, settings Settings, eval Evaluator, src Source, logger *zap.Logger, hooks ...ModifierSource) *Resolver {
	if settings.Grid.UnitSize <= 0 {
		settings.Grid = DefaultGrid
	}
	return &Resolver{
		rules:    rules,
		settings: settings,
		eval:     eval,
		src:      src,
		hooks:    hooks,
		logger:   logger,
	}
}

// Settings returns the automation settings in effect.
func (r *Resolver) Settings() Settings { return r.settings }

// Rules returns the ruleset in effect.
func (r *Resolver) Rules() Rules { return r.rules }

// Resolve resolves one attack. ac is taken by value; its Distance and Band are
// computed here.
//
// Postcondition: on error no Resolution is returned. Errors matching ErrRejected
// were raised before rolling; errors matching ErrEvaluation came from the
// evaluator.
func (r *Resolver) Resolve(ctx context.Context, ac AttackContext) (*Resolution, error) {
	if ac.Attacker == nil {
		return nil, reject(ErrMissingAttacker, "")
	}
	if ac.Weapon == nil {
		return nil, reject(ErrMissingWeapon, "attacker %q", ac.Attacker.Name)
	}
	attacker, target, w := ac.Attacker, ac.Target, ac.Weapon

	targetAC := 0
	var allies []*Combatant
	if target == nil {
		ac.Distance, ac.Band = 0, BandUnchecked
	} else {
		if !target.HasAC() {
			return nil, reject(ErrTargetACUnavailable, "target %q", target.Name)
		}
		targetAC = target.AC
		if err := r.classifyRange(&ac); err != nil {
			return nil, err
		}
		if w.IsRanged() {
			allies = AlliesNear(attacker, target, ac.Bystanders, r.settings.Grid)
			ac.FiringIntoMelee = ac.FiringIntoMelee || len(allies) > 0
		}
	}

	asm, err := BuildAttackTerms(&ac, r.rules, r.settings)
	if err != nil {
		return nil, err
	}
	for _, h := range r.hooks {
		extra, err := h.Modifiers(ctx, &ac)
		if err != nil {
			return nil, reject(ErrModifierSource, "%v", err)
		}
		asm.Terms = append(asm.Terms, extra...)
	}

	formula := asm.Terms.Formula()
	if _, err := dice.ParseFormula(formula); err != nil {
		return nil, reject(ErrInvalidFormula, "attack formula %q: %v", formula, err)
	}

	roll, err := r.eval.Evaluate(ctx, formula)
	if err != nil {
		r.logger.Warn("attack roll evaluation failed",
			zap.String("attacker", attacker.ID),
			zap.String("formula", formula),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrEvaluation, err)
	}
	natural, ok := roll.Natural()
	if !ok {
		return nil, fmt.Errorf("%w: formula %q produced no action die", ErrEvaluation, formula)
	}

	outcome := Classify(natural, roll.Total(), asm.CritRange, targetAC)
	outcome.Formula = formula

	res := &Resolution{
		AttackerID: attacker.ID,
		Weapon:     w.Name,
		Distance:   ac.Distance,
		Band:       ac.Band,
		Terms:      asm.Terms,
		ActionDie:  asm.ActionDie,
		Outcome:    outcome,
		Dice:       roll.Dice(),
	}
	if target != nil {
		res.TargetID = target.ID
	}

	if g := asm.DeedGroup; asm.DeedDie != "" && g > 0 && g < len(roll.Groups) && len(roll.Groups[g].Dice) > 0 {
		res.DeedDie = asm.DeedDie
		res.DeedRoll = roll.Groups[g].Dice[0]
		res.DeedSuccess = res.DeedRoll >= MightyDeedThreshold
	}

	if outcome.IsFumble {
		res.FumbleFormula = r.fumbleFormula(attacker, target)
	}
	if outcome.IsCrit {
		res.CritFormula = r.critFormula(attacker, target)
		res.CritTable = attacker.Critical.Table
	}

	if r.settings.FriendlyFire && w.IsRanged() && outcome.Hit == Miss && len(allies) > 0 {
		ff, err := ResolveFriendlyFire(attacker, w, allies, r.src)
		if err != nil {
			return nil, err
		}
		res.FriendlyFire = &ff
	}

	r.logger.Debug("attack resolved",
		zap.String("attacker", attacker.ID),
		zap.String("target", res.TargetID),
		zap.String("formula", formula),
		zap.Int("natural", outcome.Natural),
		zap.Int("total", outcome.Total),
		zap.Stringer("hit", outcome.Hit),
		zap.Bool("fumble", outcome.IsFumble),
		zap.Bool("crit", outcome.IsCrit),
	)
	return res, nil
}

// classifyRange fills ac.Distance and ac.Band. With range checks disabled the
// band stays unchecked and no range penalties apply.
func (r *Resolver) classifyRange(ac *AttackContext) error {
	g := r.settings.Grid
	ac.Distance = Distance(ac.Attacker.Position, ac.Target.Position, g)
	if !r.settings.RangeChecks {
		ac.Band = BandUnchecked
		return nil
	}
	ac.Band = ClassifyRangeBand(ac.Distance, ac.Weapon.Melee, ac.Weapon.Range, g.MeleeReach())
	if ac.Band == BandOutOfRange {
		return reject(ErrOutOfRange, "%s at %.0f", ac.Weapon.Name, ac.Distance)
	}
	return nil
}

func (r *Resolver) fumbleFormula(attacker, target *Combatant) string {
	base := firstNonEmpty(attacker.FumbleDie, r.rules.DefaultFumbleDie)
	if r.settings.FumbleLuck && target != nil && target.IsPlayer() {
		return FumbleDie(r.rules.Chain, base, target.Abilities.Lck)
	}
	return base
}

func (r *Resolver) critFormula(attacker, target *Combatant) string {
	f := attacker.Critical.Die
	if r.settings.MonsterCritLuck && !attacker.IsPlayer() && target != nil && target.IsPlayer() {
		return ApplyCritLuckPenalty(f, target.Abilities.Lck)
	}
	return f
}

// DamageRoll is the evaluated damage of a hit.
type DamageRoll struct {
	Formula string `json:"formula"`
	Dice    []int  `json:"dice"`
	Total   int    `json:"total"`
}

// RollDamage evaluates the weapon's damage for a resolved hit. Damage is at least 1.
//
// Precondition: res came from Resolve with the same weapon.
// Postcondition: Returns a *RejectionError when res is not a hit.
func (r *Resolver) RollDamage(ctx context.Context, res *Resolution, w *inventory.WeaponDef) (DamageRoll, error) {
	if w == nil {
		return DamageRoll{}, reject(ErrMissingWeapon, "damage roll")
	}
	if res == nil || res.Outcome.Hit != Hit {
		return DamageRoll{}, reject(ErrNotAHit, "damage roll")
	}
	formula := string(w.Damage)
	if _, err := dice.ParseFormula(formula); err != nil {
		return DamageRoll{}, reject(ErrInvalidFormula, "damage %q: %v", formula, err)
	}
	roll, err := r.eval.Evaluate(ctx, formula)
	if err != nil {
		return DamageRoll{}, fmt.Errorf("%w: %w", ErrEvaluation, err)
	}
	return DamageRoll{
		Formula: formula,
		Dice:    roll.Dice(),
		Total:   max(1, roll.Total()),
	}, nil
}
