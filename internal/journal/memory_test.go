package journal_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/dccqol/internal/journal"
	"github.com/cory-johannsen/dccqol/internal/journal/journaltest"
)

func TestMemoryStore(t *testing.T) {
	journaltest.Run(t, func(t *testing.T) journal.Store {
		return journal.NewMemoryStore(0)
	})
}

func TestMemoryStore_ExpiredEntriesAreAbsent(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := journal.NewMemoryStore(time.Hour).WithClock(func() time.Time { return now })
	ctx := context.Background()

	first, err := s.Claim(ctx, "k")
	require.NoError(t, err)

	now = now.Add(59 * time.Minute)
	_, err = s.Claim(ctx, "k")
	require.ErrorIs(t, err, journal.ErrDuplicateKey)

	now = now.Add(time.Minute)
	_, err = s.Get(ctx, "k")
	require.ErrorIs(t, err, journal.ErrNotFound)

	second, err := s.Claim(ctx, "k")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestMemoryStore_ReturnedEntriesAreCopies(t *testing.T) {
	s := journal.NewMemoryStore(0)
	ctx := context.Background()
	_, err := s.Claim(ctx, "k")
	require.NoError(t, err)
	e, err := s.Complete(ctx, "k", []byte(`{"a":1}`))
	require.NoError(t, err)

	e.Resolution[0] = 'X'
	e.Status = journal.StatusPending

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, journal.StatusResolved, got.Status)
	assert.JSONEq(t, `{"a":1}`, string(got.Resolution))
}

func TestNewEntry(t *testing.T) {
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.FixedZone("x", 3600))
	e := journal.NewEntry("abc", now)
	assert.Equal(t, "abc", e.Key)
	assert.Equal(t, journal.StatusPending, e.Status)
	assert.Equal(t, time.UTC, e.CreatedAt.Location())
	assert.True(t, e.CreatedAt.Equal(now))
	assert.NotEqual(t, [16]byte{}, [16]byte(e.ID))
}

func TestProperty_MemoryStore_ClaimOnceUntilReleased(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := journal.NewMemoryStore(0)
		ctx := context.Background()
		keys := rapid.SliceOfN(rapid.StringMatching(`[a-z]{1,4}`), 1, 20).Draw(rt, "keys")
		claimed := map[string]bool{}
		for _, k := range keys {
			_, err := s.Claim(ctx, k)
			if claimed[k] {
				if err == nil {
					rt.Fatalf("key %q claimed twice", k)
				}
				continue
			}
			if err != nil {
				rt.Fatalf("first claim of %q: %v", k, err)
			}
			claimed[k] = true
		}
	})
}
