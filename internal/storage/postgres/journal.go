package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/dccqol/internal/journal"
)

const journalColumns = `id, idempotency_key, status, resolution, created_at, resolved_at`

// JournalRepository is a journal.Store backed by the attack_journal table.
// Entries are kept until removed by an operator.
type JournalRepository struct {
	db *pgxpool.Pool
}

var _ journal.Store = (*JournalRepository)(nil)

// NewJournalRepository creates a JournalRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool with the schema migrated.
func NewJournalRepository(db *pgxpool.Pool) *JournalRepository {
	return &JournalRepository{db: db}
}

// Claim inserts a pending entry. The unique key constraint makes concurrent
// claims race-free.
//
// Postcondition: Returns the new entry, or the stored entry with
// journal.ErrDuplicateKey.
func (r *JournalRepository) Claim(ctx context.Context, key string) (*journal.Entry, error) {
	if key == "" {
		return nil, journal.ErrEmptyKey
	}
	e := journal.NewEntry(key, time.Now())
	out, err := scanEntry(r.db.QueryRow(ctx, `
		INSERT INTO attack_journal (id, idempotency_key, status, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING `+journalColumns,
		e.ID, e.Key, string(e.Status), e.CreatedAt,
	))
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("claiming journal key: %w", err)
	}
	existing, err := r.Get(ctx, key)
	if errors.Is(err, journal.ErrNotFound) {
		// Released between the insert and the read.
		return nil, journal.ErrDuplicateKey
	}
	if err != nil {
		return nil, err
	}
	return existing, journal.ErrDuplicateKey
}

// Complete marks a pending key resolved and stores its resolution.
//
// Postcondition: Returns journal.ErrNotFound for unknown keys and
// journal.ErrNotPending for keys already resolved.
func (r *JournalRepository) Complete(ctx context.Context, key string, resolution json.RawMessage) (*journal.Entry, error) {
	if key == "" {
		return nil, journal.ErrEmptyKey
	}
	out, err := scanEntry(r.db.QueryRow(ctx, `
		UPDATE attack_journal
		SET status = $2, resolution = $3, resolved_at = $4
		WHERE idempotency_key = $1 AND status = $5
		RETURNING `+journalColumns,
		key, string(journal.StatusResolved), resolution, time.Now().UTC(), string(journal.StatusPending),
	))
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("completing journal entry: %w", err)
	}
	if _, err := r.Get(ctx, key); err != nil {
		return nil, err
	}
	return nil, journal.ErrNotPending
}

// Release deletes a pending claim.
func (r *JournalRepository) Release(ctx context.Context, key string) error {
	if key == "" {
		return journal.ErrEmptyKey
	}
	_, err := r.db.Exec(ctx,
		`DELETE FROM attack_journal WHERE idempotency_key = $1 AND status = $2`,
		key, string(journal.StatusPending),
	)
	if err != nil {
		return fmt.Errorf("releasing journal key: %w", err)
	}
	return nil
}

// Get retrieves the entry for key.
//
// Postcondition: Returns the entry or journal.ErrNotFound.
func (r *JournalRepository) Get(ctx context.Context, key string) (*journal.Entry, error) {
	if key == "" {
		return nil, journal.ErrEmptyKey
	}
	e, err := scanEntry(r.db.QueryRow(ctx,
		`SELECT `+journalColumns+` FROM attack_journal WHERE idempotency_key = $1`, key,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, journal.ErrNotFound
		}
		return nil, fmt.Errorf("querying journal entry: %w", err)
	}
	return e, nil
}

func scanEntry(row pgx.Row) (*journal.Entry, error) {
	var (
		e          journal.Entry
		status     string
		resolution []byte
		resolvedAt *time.Time
	)
	if err := row.Scan(&e.ID, &e.Key, &status, &resolution, &e.CreatedAt, &resolvedAt); err != nil {
		return nil, err
	}
	e.Status = journal.Status(status)
	if len(resolution) > 0 {
		e.Resolution = json.RawMessage(resolution)
	}
	e.CreatedAt = e.CreatedAt.UTC()
	if resolvedAt != nil {
		e.ResolvedAt = resolvedAt.UTC()
	}
	return &e, nil
}
