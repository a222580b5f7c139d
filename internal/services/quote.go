package services

import (
	"amm-market/internal/fixedpoint"
	"amm-market/internal/models"
)

var (
	feePercent = fixedpoint.New(models.FeePercent)
	hundred    = fixedpoint.New(100)
	two        = fixedpoint.New(2)
)

// CalculateQuote models a trade of amount against the market's current
// reserves without changing them.
//
// A buy adds amount of settlement currency to the outcome's reserve and mints
// amount*SCALE/new_price shares. A sell redeems amount shares; the currency
// equivalent at the current price leaves the reserve and the payout is priced
// at the reduced reserve. Either way 2% of the output is withheld as fee.
func CalculateQuote(m *models.Market, outcome models.Outcome, side models.Side, amount fixedpoint.U128) (q models.QuoteResult, err error) {
	if !outcome.Valid() {
		return q, invalidParam("outcome must be 0 (No) or 1 (Yes)")
	}
	if !side.Valid() {
		return q, invalidParam("side must be 0 (Sell) or 1 (Buy)")
	}
	if !m.Initialized() {
		return q, precondition("liquidity has not been initialized")
	}
	err = fixedpoint.Try(func() error {
		var qerr error
		q, qerr = quote(m, outcome, side, amount)
		return qerr
	})
	return q, arithmetic(err)
}

func quote(m *models.Market, outcome models.Outcome, side models.Side, amount fixedpoint.U128) (models.QuoteResult, error) {
	reserve := *m.Liquidity(outcome)
	other := *m.Liquidity(outcome.Other())
	if reserve.IsZero() {
		return models.QuoteResult{}, economic("outcome reserve is empty")
	}

	var moved, price, output fixedpoint.U128
	if side == models.SideBuy {
		moved = amount
		grown := reserve.Add(amount)
		price = models.Scale.MulDiv(grown, grown.Add(other))
		if price.IsZero() {
			return models.QuoteResult{}, economic("trade price rounds to zero")
		}
		output = amount.MulDiv(models.Scale, price)
	} else {
		moved = amount.MulDiv(*m.Price(outcome), models.Scale)
		remaining, ok := reserve.CheckedSub(moved)
		if !ok {
			return models.QuoteResult{}, economic("sale exceeds outcome reserve")
		}
		total := remaining.Add(other)
		if total.IsZero() {
			return models.QuoteResult{}, economic("sale would empty the pool")
		}
		price = models.Scale.MulDiv(remaining, total)
		output = amount.MulDiv(price, models.Scale)
	}

	fee := output.MulDiv(feePercent, hundred)
	return models.QuoteResult{
		AmountOut:   output.Sub(fee),
		PriceImpact: priceImpact(reserve, moved),
		Price:       price,
		Fee:         fee,
	}, nil
}

// priceImpact is the growth in basis points of reserve when moved is added to
// it: SCALE_BP*(reserve+moved)/reserve - SCALE_BP.
func priceImpact(reserve, moved fixedpoint.U128) fixedpoint.U128 {
	return models.ScaleBP.MulDiv(reserve.Add(moved), reserve).Sub(models.ScaleBP)
}
