package memory

import (
	"context"
	"sync"
	"time"

	"chart-engine-service/internal/charts/core/domain"
	"chart-engine-service/internal/charts/core/ports"
)

const defaultRetryDelay = 5 * time.Millisecond

// Locker is an in-process LockProviderPort. Holders that outlive their
// timeout are reclaimed by the next Acquire.
type Locker struct {
	mu         sync.Mutex
	held       map[string]heldLock
	next       uint64
	retryDelay time.Duration
}

type heldLock struct {
	id      uint64
	expires time.Time
}

var _ ports.LockProviderPort = (*Locker)(nil)

func NewLocker() *Locker {
	return &Locker{
		held:       map[string]heldLock{},
		retryDelay: defaultRetryDelay,
	}
}

func (l *Locker) Acquire(ctx context.Context, key string, timeout time.Duration) (ports.Lock, error) {
	deadline := time.Now().Add(timeout)
	for {
		if lk, ok := l.tryAcquire(key, timeout); ok {
			return lk, nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, domain.ErrLockTimeout
		}

		t := time.NewTimer(min(l.retryDelay, remaining))
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

func (l *Locker) tryAcquire(key string, timeout time.Duration) (*lock, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if h, ok := l.held[key]; ok && now.Before(h.expires) {
		return nil, false
	}
	l.next++
	l.held[key] = heldLock{id: l.next, expires: now.Add(timeout)}
	return &lock{owner: l, key: key, id: l.next}, true
}

type lock struct {
	owner *Locker
	key   string
	id    uint64
}

func (lk *lock) Release(context.Context) error {
	l := lk.owner
	l.mu.Lock()
	defer l.mu.Unlock()

	// A reclaimed lock belongs to someone else now.
	if h, ok := l.held[lk.key]; ok && h.id == lk.id {
		delete(l.held, lk.key)
	}
	return nil
}
