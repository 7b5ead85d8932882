// Package redislock implements the chart lock on Redis with SET NX PX and a
// token-checked release.
package redislock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"chart-engine-service/internal/charts/core/domain"
	"chart-engine-service/internal/charts/core/ports"
)

const (
	DefaultPrefix     = "lock:"
	DefaultRetryDelay = 50 * time.Millisecond
)

// releaseScript deletes the key only while it still holds our token, so a
// lock reclaimed after its timeout is never released by the old holder.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

type Option func(*Locker)

func WithPrefix(p string) Option {
	return func(l *Locker) { l.prefix = p }
}

func WithRetryDelay(d time.Duration) Option {
	return func(l *Locker) {
		if d > 0 {
			l.retryDelay = d
		}
	}
}

type Locker struct {
	client     redis.UniversalClient
	prefix     string
	retryDelay time.Duration
}

var _ ports.LockProviderPort = (*Locker)(nil)

func New(client redis.UniversalClient, opts ...Option) *Locker {
	l := &Locker{
		client:     client,
		prefix:     DefaultPrefix,
		retryDelay: DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire polls SET NX PX until it wins or timeout elapses. The key expires
// after timeout, which bounds how long a crashed holder can block others.
func (l *Locker) Acquire(ctx context.Context, key string, timeout time.Duration) (ports.Lock, error) {
	redisKey := l.prefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(timeout)

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, timeout).Result()
		if err != nil {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			return &lock{client: l.client, key: redisKey, token: token}, nil
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

type lock struct {
	client redis.UniversalClient
	key    string
	token  string
}

func (lk *lock) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, lk.client, []string{lk.key}, lk.token).Err(); err != nil {
		return fmt.Errorf("redis unlock %s: %w", lk.key, err)
	}
	return nil
}
