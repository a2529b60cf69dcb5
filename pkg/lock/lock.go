// Package lock provides named, TTL-bound exclusive locks used to serialise
// schedule generation and travel rebuilds per academic year.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when the key is already held by another run.
var ErrNotAcquired = errors.New("lock already held")

// Locker acquires exclusive named locks.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error)
}

// Release frees a previously acquired lock. It is safe to call more than once.
type Release func(ctx context.Context) error

const keyPrefix = "campus-planner:lock:"

// compare-and-delete so a run never frees a lock taken over after its TTL expired.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with SET NX PX.
type RedisLocker struct {
	client redis.UniversalClient
}

// NewRedisLocker constructs a Redis backed locker.
func NewRedisLocker(client redis.UniversalClient) *RedisLocker {
	return &RedisLocker{client: client}
}

// Acquire sets the key if absent. ErrNotAcquired signals contention.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, keyPrefix+key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}

	var once sync.Once
	return func(ctx context.Context) error {
		var relErr error
		once.Do(func() {
			relErr = releaseScript.Run(ctx, l.client, []string{keyPrefix + key}, token).Err()
			if errors.Is(relErr, redis.Nil) {
				relErr = nil
			}
		})
		return relErr
	}, nil
}

// MemoryLocker is the in-process fallback used when Redis is disabled.
type MemoryLocker struct {
	mu    sync.Mutex
	held  map[string]entry
	clock func() time.Time
}

type entry struct {
	token   string
	expires time.Time
}

// NewMemoryLocker constructs an in-process locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]entry), clock: time.Now}
}

// Acquire takes the key unless another holder's TTL is still running.
func (l *MemoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (Release, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if current, ok := l.held[key]; ok && (current.expires.IsZero() || now.Before(current.expires)) {
		return nil, ErrNotAcquired
	}

	e := entry{token: uuid.NewString()}
	if ttl > 0 {
		e.expires = now.Add(ttl)
	}
	l.held[key] = e

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if current, ok := l.held[key]; ok && current.token == e.token {
			delete(l.held, key)
		}
		return nil
	}, nil
}
