package state

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/m3rciful/pdfbot/core/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker serializes session mutations of a single user.
type Locker interface {
	// Lock blocks until the user's lock is held or ctx is done.
	Lock(ctx context.Context, userID int64) (unlock func(), err error)
}

type keyedLock struct {
	ch   chan struct{}
	refs int
}

// KeyedLocker is an in-process Locker with one lock per user.
// Locks are dropped once no goroutine holds or waits for them.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[int64]*keyedLock
}

// NewKeyedLocker returns an empty KeyedLocker.
func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{locks: make(map[int64]*keyedLock)}
}

func (l *KeyedLocker) Lock(ctx context.Context, userID int64) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[userID]
	if !ok {
		kl = &keyedLock{ch: make(chan struct{}, 1)}
		l.locks[userID] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(userID, kl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.ch
			l.release(userID, kl)
		})
	}, nil
}

func (l *KeyedLocker) release(userID int64, kl *keyedLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, userID)
	}
}

// RedisLocker is a Locker shared by several bot instances through Redis.
type RedisLocker struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	poll   time.Duration
}

// NewRedisLocker builds a RedisLocker. ttl bounds how long a crashed holder keeps the lock.
func NewRedisLocker(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisLocker {
	if prefix == "" {
		prefix = "pdfbot:"
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{client: client, prefix: prefix, ttl: ttl, poll: 50 * time.Millisecond}
}

const unlockScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

// Lock acquires the user's lock with SET NX PX, polling until ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, userID int64) (func(), error) {
	key := l.prefix + "lock:" + strconv.FormatInt(userID, 10)
	token := uuid.NewString()

	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis lock %d: %w", userID, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			uctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := l.client.Eval(uctx, unlockScript, []string{key}, token).Err(); err != nil {
				logger.Warn(ctx, "session", "lock.release",
					slog.String("status", "fail"),
					slog.Int64("user_id", userID),
					slog.String("err", err.Error()),
				)
			}
		})
	}, nil
}
