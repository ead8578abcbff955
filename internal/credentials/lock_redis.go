package credentials

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lease only if the caller still owns it, so a
// holder that outlives its TTL cannot release a lease re-acquired elsewhere.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// RedisLock serialises credential use across processes with a SET NX lease.
type RedisLock struct {
	client    *redis.Client
	ttl       time.Duration
	pollEvery time.Duration
}

// NewRedisLock builds a distributed lock with the given lease TTL.
func NewRedisLock(client *redis.Client, ttl time.Duration) *RedisLock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLock{client: client, ttl: ttl, pollEvery: 50 * time.Millisecond}
}

func (l *RedisLock) AcquireLock(ctx context.Context, credID string) (func(), error) {
	key := fmt.Sprintf("commwatch:credlock:%s", credID)
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire credential lock: %w", err)
		}
		if ok {
			release := func() {
				bg, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = l.client.Eval(bg, releaseScript, []string{key}, token).Err()
			}
			return release, nil
		}

		select {
		case <-time.After(l.pollEvery):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
