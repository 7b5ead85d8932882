package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chart-engine-service/internal/charts/adapters/memory"
	"chart-engine-service/internal/charts/core/domain"
)

func TestLocker_TimeoutAndReclaim(t *testing.T) {
	t.Parallel()
	l := memory.NewLocker()
	ctx := context.Background()

	held, err := l.Acquire(ctx, "k", 40*time.Millisecond)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "k", 10*time.Millisecond)
	require.ErrorIs(t, err, domain.ErrLockTimeout)

	// The holder never released; after its timeout the lock is reclaimed.
	next, err := l.Acquire(ctx, "k", time.Second)
	require.NoError(t, err)

	require.NoError(t, held.Release(ctx))
	_, err = l.Acquire(ctx, "k", 10*time.Millisecond)
	require.ErrorIs(t, err, domain.ErrLockTimeout, "stale release must not free the new holder")

	require.NoError(t, next.Release(ctx))
	again, err := l.Acquire(ctx, "k", 10*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestLocker_KeysAreIndependent(t *testing.T) {
	t.Parallel()
	l := memory.NewLocker()
	ctx := context.Background()

	a, err := l.Acquire(ctx, "chart:x:a", time.Second)
	require.NoError(t, err)
	b, err := l.Acquire(ctx, "chart:x:b", 10*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, a.Release(ctx))
	require.NoError(t, b.Release(ctx))
}
