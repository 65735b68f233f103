package combat

import (
	"errors"
	"fmt"
)

// ErrRejected marks an attack refused before any die was rolled.
var ErrRejected = errors.New("attack rejected")

// ErrEvaluation marks an attack whose dice evaluation failed after assembly.
var ErrEvaluation = errors.New("roll evaluation failed")

// Rejection reasons.
var (
	ErrMissingAttacker     = errors.New("missing attacker")
	ErrMissingWeapon       = errors.New("missing weapon")
	ErrInvalidFormula      = errors.New("invalid dice formula")
	ErrTargetACUnavailable = errors.New("target armor class unavailable")
	ErrOutOfRange          = errors.New("target out of range")
	ErrNotAHit             = errors.New("attack did not hit")
	ErrModifierSource      = errors.New("situational modifiers unavailable")
)

// RejectionError is a non-fatal validation failure. It matches both ErrRejected
// and its Reason under errors.Is.
type RejectionError struct {
	Reason error
	Detail string
}

func (e *RejectionError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", ErrRejected, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrRejected, e.Reason, e.Detail)
}

// Is reports whether target is ErrRejected.
func (e *RejectionError) Is(target error) bool { return target == ErrRejected }

// Unwrap returns the rejection reason.
func (e *RejectionError) Unwrap() error { return e.Reason }

func reject(reason error, format string, args ...any) error {
	return &RejectionError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// IsRejection reports whether err was produced before rolling.
func IsRejection(err error) bool { return errors.Is(err, ErrRejected) }
