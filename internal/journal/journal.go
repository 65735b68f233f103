// Package journal records which attack requests have been resolved so a
// request carrying the same idempotency key is never rolled twice.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a journal entry.
type Status string

const (
	// StatusPending marks a claimed key whose resolution is in flight.
	StatusPending Status = "pending"
	// StatusResolved marks a key whose resolution has been recorded.
	StatusResolved Status = "resolved"
)

var (
	// ErrEmptyKey is returned when an operation is given an empty key.
	ErrEmptyKey = errors.New("journal: empty key")
	// ErrDuplicateKey is returned by Claim when the key is already claimed.
	ErrDuplicateKey = errors.New("journal: key already claimed")
	// ErrNotFound is returned when no entry exists for a key.
	ErrNotFound = errors.New("journal: entry not found")
	// ErrNotPending is returned when completing a key that is not pending.
	ErrNotPending = errors.New("journal: entry is not pending")
)

// Entry is one journalled attack request.
type Entry struct {
	ID         uuid.UUID       `json:"id"`
	Key        string          `json:"key"`
	Status     Status          `json:"status"`
	Resolution json.RawMessage `json:"resolution,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	ResolvedAt time.Time       `json:"resolvedAt,omitzero"`
}

// NewEntry returns a pending entry for key with a fresh ID.
func NewEntry(key string, now time.Time) *Entry {
	return &Entry{
		ID:        uuid.New(),
		Key:       key,
		Status:    StatusPending,
		CreatedAt: now.UTC(),
	}
}

// Store persists journal entries.
//
// Implementations must make Claim atomic: of any number of concurrent claims
// for the same key exactly one succeeds.
type Store interface {
	// Claim creates a pending entry for key. When the key is already claimed
	// it returns the stored entry together with ErrDuplicateKey.
	Claim(ctx context.Context, key string) (*Entry, error)
	// Complete records the resolution of a pending key.
	Complete(ctx context.Context, key string, resolution json.RawMessage) (*Entry, error)
	// Release drops a pending claim so the key can be claimed again. Releasing
	// an unknown or resolved key is a no-op.
	Release(ctx context.Context, key string) error
	// Get returns the entry for key or ErrNotFound.
	Get(ctx context.Context, key string) (*Entry, error)
}
