package services

import (
	"context"

	"go.uber.org/zap"

	"amm-market/internal/fixedpoint"
	"amm-market/internal/models"
)

// ============================================================================
// TRADING
// ============================================================================

// PlaceOrder buys or sells outcome shares for beneficiary.
//
// Half of the fee goes to the registry's fee account: on a buy it is minted as
// outcome shares, on a sell it is paid out as currency. The other half stays in
// the pool in both cases.
func (e *MarketEngine) PlaceOrder(ctx context.Context, caller, marketID string, outcome models.Outcome, side models.Side, amount fixedpoint.U128, beneficiary string) (*Result, error) {
	res, err := e.mutate(ctx, caller, marketID, beneficiary, func(c *call) error {
		m := c.market
		if m.InResolutionWindow(c.now) {
			return precondition("trading is paused during the resolution window")
		}
		if amount.IsZero() {
			return invalidParam("amount must be greater than 0")
		}
		if m.Resolved {
			return precondition("market is already resolved")
		}
		if !outcome.Valid() {
			return invalidParam("outcome must be 0 (No) or 1 (Yes)")
		}
		if !side.Valid() {
			return invalidParam("side must be 0 (Sell) or 1 (Buy)")
		}

		feeAccount, err := e.registry.FeesAddress(c.ctx)
		if err != nil {
			return externalCall("query fees address", err)
		}
		bal, err := c.balance(beneficiary)
		if err != nil {
			return err
		}

		var q models.QuoteResult
		var volume fixedpoint.U128
		if side == models.SideBuy {
			feeBal, err := c.balance(feeAccount)
			if err != nil {
				return err
			}
			if q, err = applyBuy(m, bal, feeBal, outcome, amount); err != nil {
				return err
			}
			c.receive(amount)
			volume = amount
		} else {
			if q, err = applySell(m, bal, outcome, amount); err != nil {
				return err
			}
			c.pay(feeAccount, q.Fee.Div(two), models.TransferSaleFee)
			c.pay(beneficiary, q.AmountOut, models.TransferSaleProceeds)
			c.result.Payout = q.AmountOut
			volume = q.AmountOut
		}
		c.recordOrder()

		err = e.registry.RecordVolume(c.ctx, m.ID, VolumeStats{
			Account: beneficiary,
			Outcome: outcome,
			Side:    side,
			Price:   q.Price,
			Volume:  volume,
		})
		if err != nil {
			return externalCall("record trade statistics", err)
		}
		c.result.Quote = &q
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("order executed",
		zap.String("market", marketID),
		zap.String("account", beneficiary),
		zap.Stringer("outcome", outcome),
		zap.Stringer("side", side),
		zap.Stringer("amount", amount),
		zap.Stringer("amount_out", res.Quote.AmountOut),
		zap.Stringer("price", res.Quote.Price),
	)
	return res, nil
}

func checkImpact(q models.QuoteResult) error {
	if q.PriceImpact.Gt(models.MaxImpactBP) {
		return economic("price impact exceeds 5%")
	}
	return nil
}

// applyBuy credits amount_out shares to bal and fee/2 shares to feeBal. bal and
// feeBal may be the same balance.
func applyBuy(m *models.Market, bal, feeBal *models.ShareBalance, outcome models.Outcome, amount fixedpoint.U128) (models.QuoteResult, error) {
	q, err := CalculateQuote(m, outcome, models.SideBuy, amount)
	if err != nil {
		return q, err
	}
	if err := checkImpact(q); err != nil {
		return q, err
	}

	feeShares := q.Fee.Div(two)
	*bal.Shares(outcome) = bal.Shares(outcome).Add(q.AmountOut)
	*feeBal.Shares(outcome) = feeBal.Shares(outcome).Add(feeShares)
	*m.Shares(outcome) = m.Shares(outcome).Add(q.AmountOut.Add(feeShares))
	*m.Liquidity(outcome) = m.Liquidity(outcome).Add(amount)
	setPrice(m, outcome, q.Price)
	return q, nil
}

// applySell burns amount shares from bal. The reserve gives up amount_out plus
// the fee half paid to the fee account.
func applySell(m *models.Market, bal *models.ShareBalance, outcome models.Outcome, amount fixedpoint.U128) (models.QuoteResult, error) {
	held, ok := bal.Shares(outcome).CheckedSub(amount)
	if !ok {
		return models.QuoteResult{}, economic("insufficient shares to sell")
	}
	q, err := CalculateQuote(m, outcome, models.SideSell, amount)
	if err != nil {
		return q, err
	}
	if err := checkImpact(q); err != nil {
		return q, err
	}

	*bal.Shares(outcome) = held
	*m.Shares(outcome) = m.Shares(outcome).Sub(amount)
	*m.Liquidity(outcome) = m.Liquidity(outcome).Sub(q.AmountOut.Add(q.Fee.Div(two)))
	setPrice(m, outcome, q.Price)
	return q, nil
}

func setPrice(m *models.Market, outcome models.Outcome, price fixedpoint.U128) {
	*m.Price(outcome) = price
	*m.Price(outcome.Other()) = models.Scale.Sub(price)
}
