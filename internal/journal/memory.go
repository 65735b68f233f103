package journal

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemoryStore is an in-process Store. Entries older than the TTL are treated
// as absent and dropped lazily.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*Entry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore creates a MemoryStore. A ttl <= 0 keeps entries forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*Entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// WithClock replaces the store's time source. Intended for tests.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

// Claim implements Store.
func (s *MemoryStore) Claim(_ context.Context, key string) (*Entry, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.live(key); ok {
		return e.clone(), ErrDuplicateKey
	}
	e := NewEntry(key, s.now())
	s.entries[key] = e
	return e.clone(), nil
}

// Complete implements Store.
func (s *MemoryStore) Complete(_ context.Context, key string, resolution json.RawMessage) (*Entry, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	if !ok {
		return nil, ErrNotFound
	}
	if e.Status != StatusPending {
		return nil, ErrNotPending
	}
	e.Status = StatusResolved
	e.Resolution = append(json.RawMessage(nil), resolution...)
	e.ResolvedAt = s.now().UTC()
	return e.clone(), nil
}

// Release implements Store.
func (s *MemoryStore) Release(_ context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok && e.Status == StatusPending {
		delete(s.entries, key)
	}
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) (*Entry, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	if !ok {
		return nil, ErrNotFound
	}
	return e.clone(), nil
}

// live returns the unexpired entry for key. Caller must hold s.mu.
func (s *MemoryStore) live(key string) (*Entry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if s.ttl > 0 && s.now().Sub(e.CreatedAt) >= s.ttl {
		delete(s.entries, key)
		return nil, false
	}
	return e, true
}

func (e *Entry) clone() *Entry {
	c := *e
	c.Resolution = append(json.RawMessage(nil), e.Resolution...)
	return &c
}
