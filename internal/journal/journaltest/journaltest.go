// Package journaltest holds the behaviour every journal.Store must share.
package journaltest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/dccqol/internal/journal"
)

// Run exercises a Store implementation. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) journal.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("ClaimThenGet", func(t *testing.T) {
		s := newStore(t)
		claimed, err := s.Claim(ctx, "k1")
		require.NoError(t, err)
		assert.Equal(t, "k1", claimed.Key)
		assert.Equal(t, journal.StatusPending, claimed.Status)
		assert.False(t, claimed.CreatedAt.IsZero())

		got, err := s.Get(ctx, "k1")
		require.NoError(t, err)
		assert.Equal(t, claimed.ID, got.ID)
		assert.Equal(t, journal.StatusPending, got.Status)
	})

	t.Run("DuplicateClaimReturnsStoredEntry", func(t *testing.T) {
		s := newStore(t)
		first, err := s.Claim(ctx, "dup")
		require.NoError(t, err)

		again, err := s.Claim(ctx, "dup")
		require.ErrorIs(t, err, journal.ErrDuplicateKey)
		require.NotNil(t, again)
		assert.Equal(t, first.ID, again.ID)
	})

	t.Run("CompleteRecordsResolution", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Claim(ctx, "done")
		require.NoError(t, err)

		payload := json.RawMessage(`{"outcome":{"hit":"hit","total":17}}`)
		e, err := s.Complete(ctx, "done", payload)
		require.NoError(t, err)
		assert.Equal(t, journal.StatusResolved, e.Status)
		assert.False(t, e.ResolvedAt.IsZero())

		got, err := s.Get(ctx, "done")
		require.NoError(t, err)
		assert.Equal(t, journal.StatusResolved, got.Status)
		assert.JSONEq(t, string(payload), string(got.Resolution))

		_, err = s.Claim(ctx, "done")
		assert.ErrorIs(t, err, journal.ErrDuplicateKey)
	})

	t.Run("CompleteUnknownKey", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Complete(ctx, "missing", json.RawMessage(`{}`))
		assert.ErrorIs(t, err, journal.ErrNotFound)
	})

	t.Run("CompleteTwice", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Claim(ctx, "twice")
		require.NoError(t, err)
		_, err = s.Complete(ctx, "twice", json.RawMessage(`{}`))
		require.NoError(t, err)
		_, err = s.Complete(ctx, "twice", json.RawMessage(`{}`))
		assert.ErrorIs(t, err, journal.ErrNotPending)
	})

	t.Run("ReleaseAllowsReclaim", func(t *testing.T) {
		s := newStore(t)
		first, err := s.Claim(ctx, "retry")
		require.NoError(t, err)
		require.NoError(t, s.Release(ctx, "retry"))

		_, err = s.Get(ctx, "retry")
		assert.ErrorIs(t, err, journal.ErrNotFound)

		second, err := s.Claim(ctx, "retry")
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)
	})

	t.Run("ReleaseKeepsResolvedEntries", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Claim(ctx, "kept")
		require.NoError(t, err)
		_, err = s.Complete(ctx, "kept", json.RawMessage(`{"a":1}`))
		require.NoError(t, err)

		require.NoError(t, s.Release(ctx, "kept"))
		got, err := s.Get(ctx, "kept")
		require.NoError(t, err)
		assert.Equal(t, journal.StatusResolved, got.Status)
	})

	t.Run("ReleaseUnknownKey", func(t *testing.T) {
		s := newStore(t)
		assert.NoError(t, s.Release(ctx, "nobody"))
	})

	t.Run("EmptyKey", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Claim(ctx, "")
		assert.ErrorIs(t, err, journal.ErrEmptyKey)
		_, err = s.Complete(ctx, "", nil)
		assert.ErrorIs(t, err, journal.ErrEmptyKey)
		assert.ErrorIs(t, s.Release(ctx, ""), journal.ErrEmptyKey)
		_, err = s.Get(ctx, "")
		assert.ErrorIs(t, err, journal.ErrEmptyKey)
	})

	t.Run("ConcurrentClaimsHaveOneWinner", func(t *testing.T) {
		s := newStore(t)
		const n = 16
		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := s.Claim(ctx, "race"); err == nil {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())
	})

	t.Run("KeysAreIndependent", func(t *testing.T) {
		s := newStore(t)
		for i := 0; i < 5; i++ {
			_, err := s.Claim(ctx, fmt.Sprintf("attack-%d", i))
			require.NoError(t, err)
		}
		_, err := s.Get(ctx, "attack-5")
		assert.ErrorIs(t, err, journal.ErrNotFound)
	})
}
