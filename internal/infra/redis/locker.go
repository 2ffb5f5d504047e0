package redis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockTTL is returned by NewLocker for a non-positive lease.
var ErrLockTTL = errors.New("lock ttl must be positive")

// release only deletes the key while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a Redis lease lock shared by every instance using the same
// database. The lease expires after ttl so a crashed holder cannot block a
// game forever.
type Locker struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
}

func NewLocker(client *redis.Client, ttl time.Duration) (*Locker, error) {
	if ttl <= 0 {
		return nil, ErrLockTTL
	}
	return &Locker{client: client, ttl: ttl, retry: 25 * time.Millisecond}, nil
}

func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := "quiz:lock:" + key
	token := uuid.NewString()
	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			break
		}
		timer := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := releaseScript.Run(context.Background(), l.client, []string{lockKey}, token).Err(); err != nil {
				log.Printf("release lock %s: %v", key, err)
			}
		})
	}, nil
}
