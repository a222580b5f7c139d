package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"amm-market/internal/models"
)

// transferMaxLen caps the stream so acknowledged history does not grow forever.
// Trimming is approximate and only drops the oldest entries.
const transferMaxLen = 100_000

// TransferPublisher appends transfer instructions to a Redis stream that the
// settlement worker reads through a consumer group. Entries persist whether or
// not a worker is connected.
type TransferPublisher struct {
	rdb    *redis.Client
	stream string
}

func NewTransferPublisher(c *Client, stream string) *TransferPublisher {
	return &TransferPublisher{rdb: c.Underlying(), stream: stream}
}

// Settle appends t as JSON. It returns nil only once Redis has stored the
// entry; the dispatcher retries on error, so workers may see an instruction
// more than once and must dedupe on its id.
func (p *TransferPublisher) Settle(ctx context.Context, t models.TransferInstruction) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("redis: encode transfer %s: %w", t.ID, err)
	}
	id, err := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: transferMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"transfer_id": t.ID,
			"payload":     string(payload),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("redis: xadd %s: %w", p.stream, err)
	}
	if id == "" {
		return fmt.Errorf("redis: xadd %s returned no entry id for %s", p.stream, t.ID)
	}
	return nil
}
