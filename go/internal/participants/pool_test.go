package participants

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newIDs(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return ids
}

func TestPoolAcquireUntilExhausted(t *testing.T) {
	ids := newIDs(3)
	pool := NewPool(ids)
	require.Equal(t, 3, pool.Size())
	require.Equal(t, 3, pool.FreeCount())

	seen := make(map[uuid.UUID]bool)
	for i := 0; i < 3; i++ {
		id, ok := pool.Acquire()
		require.True(t, ok)
		require.False(t, seen[id], "an id is never handed out twice")
		seen[id] = true
	}
	require.Equal(t, 0, pool.FreeCount())

	id, ok := pool.Acquire()
	require.False(t, ok)
	require.Equal(t, uuid.Nil, id)
	require.Equal(t, uint64(1), pool.ExhaustedCount())
}

func TestPoolReleaseMakesIDAcquirable(t *testing.T) {
	ids := newIDs(1)
	pool := NewPool(ids)

	id, ok := pool.Acquire()
	require.True(t, ok)
	require.Equal(t, 0, pool.FreeCount())

	pool.Release(id)
	require.Equal(t, 1, pool.FreeCount())

	again, ok := pool.Acquire()
	require.True(t, ok)
	require.Equal(t, id, again)
}

func TestPoolReleaseIsIdempotent(t *testing.T) {
	ids := newIDs(2)
	pool := NewPool(ids)

	pool.Release(ids[0])
	pool.Release(uuid.New()) // unmanaged id
	require.Equal(t, 2, pool.FreeCount())
}

func TestPoolMarkBusy(t *testing.T) {
	ids := newIDs(2)
	pool := NewPool(ids)

	pool.MarkBusy(ids[0])
	pool.MarkBusy(ids[0])
	require.Equal(t, 1, pool.FreeCount())

	id, ok := pool.Acquire()
	require.True(t, ok)
	require.Equal(t, ids[1], id)
}

func TestPoolReconcile(t *testing.T) {
	ids := newIDs(3)
	pool := NewPool(ids)

	// Stale in-memory state: everything busy.
	for range ids {
		pool.Acquire()
	}
	require.Equal(t, 0, pool.FreeCount())

	// Durable truth says one bot is drafting; unmanaged ids are ignored.
	pool.Reconcile([]uuid.UUID{ids[1], uuid.New()})
	require.Equal(t, 2, pool.FreeCount())

	seen := make(map[uuid.UUID]bool)
	for i := 0; i < 2; i++ {
		id, ok := pool.Acquire()
		require.True(t, ok)
		seen[id] = true
	}
	require.True(t, seen[ids[0]])
	require.True(t, seen[ids[2]])
}
