package ports

import (
	"context"
	"time"
)

// Lock is a held named lock.
type Lock interface {
	Release(ctx context.Context) error
}

// LockProviderPort grants cluster-wide named mutual exclusion.
//
// Acquire blocks until the lock is held or timeout elapses, in which case it
// returns domain.ErrLockTimeout. A holder that does not release within timeout
// loses the lock.
type LockProviderPort interface {
	Acquire(ctx context.Context, key string, timeout time.Duration) (Lock, error)
}
