package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// NonceStore keeps login challenges in Redis so any instance can redeem a
// nonce issued by another. Expiry is left to the key TTL.
type NonceStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewNonceStore(c *Client, ttl time.Duration) *NonceStore {
	return &NonceStore{rdb: c.Underlying(), ttl: ttl}
}

func nonceKey(wallet, nonce string) string {
	return "auth:nonce:" + wallet + ":" + nonce
}

func (s *NonceStore) Issue(ctx context.Context, wallet string) (string, time.Time, error) {
	nonce := uuid.NewString()
	exp := time.Now().Add(s.ttl)
	if err := s.rdb.Set(ctx, nonceKey(wallet, nonce), 1, s.ttl).Err(); err != nil {
		return "", time.Time{}, fmt.Errorf("redis: issue nonce: %w", err)
	}
	return nonce, exp, nil
}

// Consume deletes the challenge; only the caller whose DEL removed it wins
func (s *NonceStore) Consume(ctx context.Context, wallet, nonce string) (bool, error) {
	n, err := s.rdb.Del(ctx, nonceKey(wallet, nonce)).Result()
	if err != nil {
		return false, fmt.Errorf("redis: consume nonce: %w", err)
	}
	return n == 1, nil
}
