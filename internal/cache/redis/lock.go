package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// unlockLua deletes the key only while it still holds the caller's token
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

const defaultRetry = 25 * time.Millisecond

// MarketLocker serializes calls per market across processes with SETNX and a
// TTL. The TTL must outlast the slowest mutating call.
type MarketLocker struct {
	rdb      *redis.Client
	ttl      time.Duration
	retry    time.Duration
	unlockSc *redis.Script
}

func NewMarketLocker(c *Client, ttl time.Duration) *MarketLocker {
	return &MarketLocker{
		rdb:      c.Underlying(),
		ttl:      ttl,
		retry:    defaultRetry,
		unlockSc: redis.NewScript(unlockLua),
	}
}

func lockKey(marketID string) string {
	return "lock:market:" + marketID
}

// Lock polls until the market's key is free or ctx is done. The returned
// unlock is safe to call more than once.
func (l *MarketLocker) Lock(ctx context.Context, marketID string) (func(), error) {
	token := uuid.NewString()
	key := lockKey(marketID)

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()
	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis: acquire lock %s: %w", marketID, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("redis: lock %s: %w", marketID, ctx.Err())
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// the caller's ctx may already be cancelled
			unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = l.unlockSc.Run(unlockCtx, l.rdb, []string{key}, token).Err()
		})
	}, nil
}
