// Package automation is the entry point hosts call to resolve attacks. It
// composes the ruleset, the resolver, the idempotency journal and the
// situational modifier scripts.
package automation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dccqol/internal/game/combat"
	"github.com/cory-johannsen/dccqol/internal/game/inventory"
	"github.com/cory-johannsen/dccqol/internal/game/ruleset"
	"github.com/cory-johannsen/dccqol/internal/journal"
	"github.com/cory-johannsen/dccqol/internal/scripting"
)

// ErrAlreadyResolved is matched by errors returned for a repeated idempotency key.
var ErrAlreadyResolved = errors.New("attack already resolved")

// ErrResolutionPending is returned by Recorded while a key is still in flight.
var ErrResolutionPending = errors.New("resolution still pending")

// AlreadyResolvedError carries the journal entry stored for a repeated key.
// Entry is nil when the claim vanished before it could be read.
type AlreadyResolvedError struct {
	Key   string
	Entry *journal.Entry
}

func (e *AlreadyResolvedError) Error() string {
	if e.Entry == nil {
		return fmt.Sprintf("%s: key %q", ErrAlreadyResolved, e.Key)
	}
	return fmt.Sprintf("%s: key %q is %s", ErrAlreadyResolved, e.Key, e.Entry.Status)
}

// Is reports whether target is ErrAlreadyResolved.
func (e *AlreadyResolvedError) Is(target error) bool { return target == ErrAlreadyResolved }

// Unwrap returns journal.ErrDuplicateKey.
func (e *AlreadyResolvedError) Unwrap() error { return journal.ErrDuplicateKey }

// Deps are the collaborators of a Service.
type Deps struct {
	Ruleset   *ruleset.Ruleset
	Settings  combat.Settings
	Evaluator combat.Evaluator
	Source    combat.Source
	Logger    *zap.Logger
	// Journal is optional; without it idempotency keys are ignored.
	Journal journal.Store
	// Scripts is optional; without it no situational modifiers apply.
	Scripts *scripting.Manager
}

// Validate ensures all required dependencies are provided.
func (d *Deps) Validate() error {
	var errs []error
	if d.Ruleset == nil {
		errs = append(errs, errors.New("ruleset is required"))
	}
	if d.Evaluator == nil {
		errs = append(errs, errors.New("evaluator is required"))
	}
	if d.Source == nil {
		errs = append(errs, errors.New("source is required"))
	}
	if d.Logger == nil {
		errs = append(errs, errors.New("logger is required"))
	}
	return errors.Join(errs...)
}

// Request is one attack submitted by a host.
type Request struct {
	// Key is the optional idempotency key. A key that was already claimed is
	// never rolled again.
	Key string
	// SceneID selects the scene scripts consulted for situational modifiers.
	SceneID string
	Attack  combat.AttackContext
}

// Service resolves attacks on behalf of hosts.
type Service struct {
	rs       *ruleset.Ruleset
	resolver *combat.Resolver
	journal  journal.Store
	logger   *zap.Logger
}

// NewService creates a Service.
//
// Postcondition: Returns a Service or the validation error of d.
func NewService(d Deps) (*Service, error) {
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("automation: %w", err)
	}
	var hooks []combat.ModifierSource
	if d.Scripts != nil {
		hooks = append(hooks, NewScriptModifiers(d.Scripts))
	}
	return &Service{
		rs:       d.Ruleset,
		resolver: combat.NewResolver(d.Ruleset.Rules(), d.Settings, d.Evaluator, d.Source, d.Logger, hooks...),
		journal:  d.Journal,
		logger:   d.Logger,
	}, nil
}

// Ruleset returns the loaded ruleset.
func (s *Service) Ruleset() *ruleset.Ruleset { return s.rs }

// Settings returns the automation settings in effect.
func (s *Service) Settings() combat.Settings { return s.resolver.Settings() }

// Resolve claims req.Key, resolves the attack and records the resolution.
// A failed resolution releases its claim so the key can be retried.
//
// Postcondition: A repeated key returns an *AlreadyResolvedError matching
// ErrAlreadyResolved; rejections match combat.ErrRejected.
func (s *Service) Resolve(ctx context.Context, req Request) (*combat.Resolution, error) {
	keyed := req.Key != "" && s.journal != nil
	if keyed {
		entry, err := s.journal.Claim(ctx, req.Key)
		if errors.Is(err, journal.ErrDuplicateKey) {
			return nil, &AlreadyResolvedError{Key: req.Key, Entry: entry}
		}
		if err != nil {
			return nil, fmt.Errorf("claiming %q: %w", req.Key, err)
		}
	}

	res, err := s.resolver.Resolve(WithScene(ctx, req.SceneID), req.Attack)
	if err != nil {
		if keyed {
			s.release(ctx, req.Key)
		}
		if combat.IsRejection(err) {
			s.logger.Info("attack rejected",
				zap.String("key", req.Key),
				zap.String("attacker", attackerID(req.Attack)),
				zap.Error(err),
			)
		}
		return nil, err
	}

	if keyed {
		data, err := json.Marshal(res)
		if err == nil {
			_, err = s.journal.Complete(ctx, req.Key, data)
		}
		if err != nil {
			s.release(ctx, req.Key)
			return nil, fmt.Errorf("recording %q: %w", req.Key, err)
		}
	}
	return res, nil
}

// Recorded returns the resolution stored for key.
//
// Postcondition: Returns journal.ErrNotFound for unknown keys and
// ErrResolutionPending while the key is in flight.
func (s *Service) Recorded(ctx context.Context, key string) (*combat.Resolution, error) {
	if s.journal == nil {
		return nil, journal.ErrNotFound
	}
	e, err := s.journal.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if e.Status != journal.StatusResolved {
		return nil, ErrResolutionPending
	}
	var res combat.Resolution
	if err := json.Unmarshal(e.Resolution, &res); err != nil {
		return nil, fmt.Errorf("decoding resolution %q: %w", key, err)
	}
	return &res, nil
}

// RollDamage rolls w's damage for a resolved hit.
func (s *Service) RollDamage(ctx context.Context, res *combat.Resolution, w *inventory.WeaponDef) (combat.DamageRoll, error) {
	return s.resolver.RollDamage(ctx, res, w)
}

// BumpDie steps formula along the ruleset's die chain.
func (s *Service) BumpDie(formula string, steps int) string {
	return s.rs.Chain().Bump(formula, steps)
}

// Distance measures between two positions on the configured grid.
func (s *Service) Distance(a, b combat.Position) float64 {
	return combat.Distance(a, b, s.Settings().Grid)
}

// RangeBand classifies distance for w on the configured grid.
func (s *Service) RangeBand(distance float64, w *inventory.WeaponDef) combat.RangeBand {
	g := s.Settings().Grid
	return combat.ClassifyRangeBand(distance, w.Melee, w.Range, g.MeleeReach())
}

// release drops a claim even when ctx is already cancelled.
func (s *Service) release(ctx context.Context, key string) {
	if err := s.journal.Release(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Warn("releasing journal key", zap.String("key", key), zap.Error(err))
	}
}

func attackerID(ac combat.AttackContext) string {
	if ac.Attacker == nil {
		return ""
	}
	return ac.Attacker.ID
}
