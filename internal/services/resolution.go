package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"amm-market/internal/fixedpoint"
	"amm-market/internal/models"
)

// Resolve settles the market on outcome. resolver must own the market or be a
// registry admin. marketIndex is the market's position in the registry's
// active set; the registry rejects a stale index and the whole call aborts.
func (e *MarketEngine) Resolve(ctx context.Context, caller, marketID string, outcome models.Outcome, resolver string, marketIndex uint64) (*Result, error) {
	res, err := e.mutate(ctx, caller, marketID, "", func(c *call) error {
		if err := c.requireOwnerOrAdmin(resolver, "only the market owner or an admin can resolve the market"); err != nil {
			return err
		}
		if err := applyResolve(c.market, outcome, c.now); err != nil {
			return err
		}
		if err := e.registry.RecordResolution(c.ctx, c.market.ID, resolver, marketIndex); err != nil {
			return externalCall("record resolution", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("market resolved",
		zap.String("market", marketID),
		zap.String("resolver", resolver),
		zap.Stringer("outcome", outcome),
		zap.Uint64("market_index", marketIndex),
	)
	return res, nil
}

func applyResolve(m *models.Market, outcome models.Outcome, now time.Time) error {
	if now.Unix() < m.MarketEnd {
		return precondition("market has not ended yet")
	}
	if !outcome.Valid() {
		return invalidParam("outcome must be 0 (No) or 1 (Yes)")
	}
	if m.Resolved {
		return precondition("market is already resolved")
	}

	*m.Price(outcome) = models.Scale
	*m.Price(outcome.Other()) = fixedpoint.Zero()
	m.Resolved = true
	m.ResolvedTo = outcome
	return nil
}
