package services

import (
	"context"

	"go.uber.org/zap"

	"amm-market/internal/fixedpoint"
	"amm-market/internal/models"
)

// Claim redeems beneficiary's winning shares at the winning price. The payout
// is retired from both reserves in proportion to their sizes.
func (e *MarketEngine) Claim(ctx context.Context, caller, marketID string, outcome models.Outcome, beneficiary string) (*Result, error) {
	res, err := e.mutate(ctx, caller, marketID, beneficiary, func(c *call) error {
		bal, err := c.balance(beneficiary)
		if err != nil {
			return err
		}
		payout, err := applyClaim(c.market, bal, outcome)
		if err != nil {
			return err
		}
		c.pay(beneficiary, payout, models.TransferClaimPayout)
		c.result.Payout = payout
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("winnings claimed",
		zap.String("market", marketID),
		zap.String("account", beneficiary),
		zap.Stringer("outcome", outcome),
		zap.Stringer("payout", res.Payout),
	)
	return res, nil
}

func applyClaim(m *models.Market, bal *models.ShareBalance, outcome models.Outcome) (fixedpoint.U128, error) {
	if !m.Resolved {
		return fixedpoint.Zero(), precondition("market has not been resolved")
	}
	if !outcome.Valid() {
		return fixedpoint.Zero(), invalidParam("outcome must be 0 (No) or 1 (Yes)")
	}
	if outcome != m.ResolvedTo {
		return fixedpoint.Zero(), precondition("must claim winning outcome")
	}
	owned := *bal.Shares(outcome)
	if owned.IsZero() {
		return fixedpoint.Zero(), economic("must own shares to claim")
	}

	payout := owned.MulDiv(*m.Price(outcome), models.Scale)
	total := m.YesLiquidity.Add(m.NoLiquidity)
	if !total.IsZero() {
		if payout.Gt(total) {
			return fixedpoint.Zero(), economic("claim exceeds pool reserves")
		}
		yesOut := m.YesLiquidity.MulDiv(payout, total)
		noOut := m.NoLiquidity.MulDiv(payout, total)
		m.YesLiquidity = m.YesLiquidity.Sub(yesOut)
		m.NoLiquidity = m.NoLiquidity.Sub(noOut)
	}

	*m.Shares(outcome) = m.Shares(outcome).Sub(owned)
	*bal.Shares(outcome) = fixedpoint.Zero()
	return payout, nil
}
