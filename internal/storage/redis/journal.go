package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/cory-johannsen/dccqol/internal/journal"
)

// Key pattern: {prefix}journal:{idempotency key}
const journalKeySegment = "journal:"

// maxTxRetries bounds optimistic-lock retries for Complete and Release.
const maxTxRetries = 5

// JournalConfig holds the dependencies of a JournalRepository.
type JournalConfig struct {
	Client goredis.UniversalClient
	// KeyPrefix namespaces every key, e.g. "dccqol:".
	KeyPrefix string
	// TTL expires entries; 0 keeps them forever.
	TTL time.Duration
}

// Validate ensures all required dependencies are provided.
func (c *JournalConfig) Validate() error {
	if c.Client == nil {
		return errors.New("redis client is required")
	}
	if c.TTL < 0 {
		return errors.New("ttl must be >= 0")
	}
	return nil
}

// JournalRepository is a journal.Store keeping each entry as a JSON string.
type JournalRepository struct {
	client goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ journal.Store = (*JournalRepository)(nil)

// NewJournalRepository creates a JournalRepository.
//
// Postcondition: Returns a repository or the validation error of cfg.
func NewJournalRepository(cfg *JournalConfig) (*JournalRepository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &JournalRepository{
		client: cfg.Client,
		prefix: cfg.KeyPrefix,
		ttl:    cfg.TTL,
	}, nil
}

// Claim stores a pending entry with SET NX so only one claim wins.
func (r *JournalRepository) Claim(ctx context.Context, key string) (*journal.Entry, error) {
	if key == "" {
		return nil, journal.ErrEmptyKey
	}
	e := journal.NewEntry(key, time.Now())
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshaling journal entry: %w", err)
	}
	ok, err := r.client.SetNX(ctx, r.buildKey(key), data, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("claiming journal key: %w", err)
	}
	if ok {
		return e, nil
	}
	existing, err := r.Get(ctx, key)
	if errors.Is(err, journal.ErrNotFound) {
		return nil, journal.ErrDuplicateKey
	}
	if err != nil {
		return nil, err
	}
	return existing, journal.ErrDuplicateKey
}

// Complete rewrites a pending entry as resolved, keeping its remaining TTL.
func (r *JournalRepository) Complete(ctx context.Context, key string, resolution json.RawMessage) (*journal.Entry, error) {
	if key == "" {
		return nil, journal.ErrEmptyKey
	}
	k := r.buildKey(key)
	var out *journal.Entry
	err := r.withRetry(ctx, k, func(tx *goredis.Tx) error {
		e, err := r.read(ctx, tx, k)
		if err != nil {
			return err
		}
		if e.Status != journal.StatusPending {
			return journal.ErrNotPending
		}
		e.Status = journal.StatusResolved
		e.Resolution = resolution
		e.ResolvedAt = time.Now().UTC()
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshaling journal entry: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(p goredis.Pipeliner) error {
			p.Set(ctx, k, data, goredis.KeepTTL)
			return nil
		})
		out = e
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Release deletes the entry when it is still pending.
func (r *JournalRepository) Release(ctx context.Context, key string) error {
	if key == "" {
		return journal.ErrEmptyKey
	}
	k := r.buildKey(key)
	err := r.withRetry(ctx, k, func(tx *goredis.Tx) error {
		e, err := r.read(ctx, tx, k)
		if err != nil {
			return err
		}
		if e.Status != journal.StatusPending {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(p goredis.Pipeliner) error {
			p.Del(ctx, k)
			return nil
		})
		return err
	})
	if errors.Is(err, journal.ErrNotFound) {
		return nil
	}
	return err
}

// Get retrieves the entry for key.
func (r *JournalRepository) Get(ctx context.Context, key string) (*journal.Entry, error) {
	if key == "" {
		return nil, journal.ErrEmptyKey
	}
	return r.read(ctx, r.client, r.buildKey(key))
}

// getter is satisfied by both the client and a WATCH transaction.
type getter interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
}

func (r *JournalRepository) read(ctx context.Context, c getter, k string) (*journal.Entry, error) {
	raw, err := c.Get(ctx, k).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, journal.ErrNotFound
		}
		return nil, fmt.Errorf("reading journal entry: %w", err)
	}
	var e journal.Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("decoding journal entry: %w", err)
	}
	return &e, nil
}

// withRetry runs fn under WATCH k, retrying when another client changed k.
func (r *JournalRepository) withRetry(ctx context.Context, k string, fn func(tx *goredis.Tx) error) error {
	for i := 0; i < maxTxRetries; i++ {
		err := r.client.Watch(ctx, fn, k)
		if !errors.Is(err, goredis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("journal key %q: %w", k, goredis.TxFailedErr)
}

func (r *JournalRepository) buildKey(key string) string {
	return r.prefix + journalKeySegment + key
}
