package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amm-market/internal/config"
	"amm-market/internal/models"
)

// newTestClient connects to REDIS_TEST_ADDR or skips
func newTestClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	c, err := New(context.Background(), config.RedisConfig{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestMarketLockerExcludes(t *testing.T) {
	c := newTestClient(t)
	l := NewMarketLocker(c, 5*time.Second)
	market := uuid.NewString()

	unlock, err := l.Lock(context.Background(), market)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, market)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock()
	again, err := l.Lock(context.Background(), market)
	require.NoError(t, err)
	again()
}

func TestTransferPublisherPersistsWithoutConsumers(t *testing.T) {
	c := newTestClient(t)
	stream := "transfers:" + uuid.NewString()
	t.Cleanup(func() { c.Underlying().Del(context.Background(), stream) })

	// nobody is reading yet; the entry must still be stored
	p := NewTransferPublisher(c, stream)
	require.NoError(t, p.Settle(context.Background(), models.TransferInstruction{ID: "t-1", Recipient: "alice"}))
	require.NoError(t, p.Settle(context.Background(), models.TransferInstruction{ID: "t-2", Recipient: "bob"}))

	entries, err := c.Underlying().XRange(context.Background(), stream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "t-1", entries[0].Values["transfer_id"])
	assert.Contains(t, entries[0].Values["payload"], `"alice"`)

	// a consumer group created afterwards still sees both from the start
	require.NoError(t, c.Underlying().XGroupCreate(context.Background(), stream, "settlers", "0").Err())
	res, err := c.Underlying().XReadGroup(context.Background(), &goredis.XReadGroupArgs{
		Group:    "settlers",
		Consumer: "w1",
		Streams:  []string{stream, ">"},
		Count:    10,
	}).Result()
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Len(t, res[0].Messages, 2)
}

func TestNonceStoreSingleUse(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	s := NewNonceStore(c, time.Minute)

	nonce, _, err := s.Issue(ctx, "alice")
	require.NoError(t, err)

	ok, err := s.Consume(ctx, "bob", nonce)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Consume(ctx, "alice", nonce)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Consume(ctx, "alice", nonce)
	require.NoError(t, err)
	assert.False(t, ok)
}
