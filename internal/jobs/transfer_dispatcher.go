package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"amm-market/internal/models"
	"amm-market/internal/repository"
)

// DefaultMaxAttempts is how often an instruction is retried before it is
// parked as failed.
const DefaultMaxAttempts = 5

// Settler hands a transfer instruction to whatever moves the funds
type Settler interface {
	Settle(ctx context.Context, t models.TransferInstruction) error
}

// LogSettler only logs instructions. It is the settler when no external
// worker is configured.
type LogSettler struct {
	Log *zap.Logger
}

func (s LogSettler) Settle(_ context.Context, t models.TransferInstruction) error {
	s.Log.Info("transfer ready",
		zap.String("id", t.ID),
		zap.String("market", t.MarketID),
		zap.String("recipient", t.Recipient),
		zap.String("kind", string(t.Kind)),
		zap.String("denom", t.Denom),
		zap.Stringer("amount", t.Amount),
	)
	return nil
}

// TransferDispatcher drains the pending transfer outbox into a Settler
type TransferDispatcher struct {
	repo        *repository.Repository
	settler     Settler
	batch       int
	maxAttempts int
	now         func() time.Time
	log         *zap.Logger
}

func NewTransferDispatcher(repo *repository.Repository, settler Settler, batch int, log *zap.Logger) *TransferDispatcher {
	if batch <= 0 {
		batch = 100
	}
	return &TransferDispatcher{
		repo:        repo,
		settler:     settler,
		batch:       batch,
		maxAttempts: DefaultMaxAttempts,
		now:         time.Now,
		log:         log.Named("dispatcher"),
	}
}

// Run dispatches one batch. It is meant to be scheduled on a Runner.
func (d *TransferDispatcher) Run(ctx context.Context) {
	sent, failed, err := d.DispatchPending(ctx)
	if err != nil {
		d.log.Error("dispatch pending transfers", zap.Error(err))
		return
	}
	if sent+failed > 0 {
		d.log.Info("dispatched transfers", zap.Int("sent", sent), zap.Int("failed", failed))
	}
}

// DispatchPending settles up to one batch of pending instructions, oldest
// first. A settler failure is recorded on the instruction and does not stop
// the batch.
func (d *TransferDispatcher) DispatchPending(ctx context.Context) (sent, failed int, err error) {
	pending, err := d.repo.PendingTransfers(ctx, d.batch)
	if err != nil {
		return 0, 0, err
	}
	for _, t := range pending {
		if ctx.Err() != nil {
			return sent, failed, ctx.Err()
		}
		if serr := d.settler.Settle(ctx, t); serr != nil {
			failed++
			d.log.Warn("settle transfer", zap.String("id", t.ID), zap.Int("attempt", t.Attempts+1), zap.Error(serr))
			if err := d.repo.MarkTransferAttemptFailed(ctx, t.ID, serr.Error(), d.maxAttempts); err != nil {
				return sent, failed, err
			}
			continue
		}
		if err := d.repo.MarkTransferDispatched(ctx, t.ID, d.now()); err != nil {
			return sent, failed, err
		}
		sent++
	}
	return sent, failed, nil
}
