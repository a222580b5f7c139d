package services

import (
	"context"

	"go.uber.org/zap"

	"amm-market/internal/fixedpoint"
	"amm-market/internal/models"
)

// ============================================================================
// LIQUIDITY OPERATIONS
// ============================================================================

// Bootstrap seeds the pool once: the deposit is split by the initial Yes price
// and isqrt(yes_liquidity*no_liquidity) liquidity shares go to beneficiary,
// who must own the market or be a registry admin.
func (e *MarketEngine) Bootstrap(ctx context.Context, caller, marketID string, yesPrice, deposit fixedpoint.U128, beneficiary string) (*Result, error) {
	res, err := e.mutate(ctx, caller, marketID, beneficiary, func(c *call) error {
		if err := c.requireOwnerOrAdmin(beneficiary, "only the market owner or an admin can initialize liquidity"); err != nil {
			return err
		}
		bal, err := c.balance(beneficiary)
		if err != nil {
			return err
		}
		minted, err := applyBootstrap(c.market, bal, yesPrice, deposit)
		if err != nil {
			return err
		}
		c.recordOrder()
		c.receive(deposit)
		c.result.Minted = minted
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("liquidity initialized",
		zap.String("market", marketID),
		zap.String("account", beneficiary),
		zap.Stringer("yes_price", yesPrice),
		zap.Stringer("deposit", deposit),
		zap.Stringer("minted", res.Minted),
	)
	return res, nil
}

// AddLiquidity splits amount by the current prices and mints the smaller of
// the two pro-rata share counts.
func (e *MarketEngine) AddLiquidity(ctx context.Context, caller, marketID string, amount fixedpoint.U128, beneficiary string) (*Result, error) {
	res, err := e.mutate(ctx, caller, marketID, beneficiary, func(c *call) error {
		bal, err := c.balance(beneficiary)
		if err != nil {
			return err
		}
		minted, err := applyAddLiquidity(c.market, bal, amount)
		if err != nil {
			return err
		}
		c.receive(amount)
		c.result.Minted = minted
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("liquidity added",
		zap.String("market", marketID),
		zap.String("account", beneficiary),
		zap.Stringer("amount", amount),
		zap.Stringer("minted", res.Minted),
	)
	return res, nil
}

// RemoveLiquidity burns shares for a pro-rata slice of both reserves. The
// payout is capped at what the market actually holds.
func (e *MarketEngine) RemoveLiquidity(ctx context.Context, caller, marketID string, shares fixedpoint.U128, beneficiary string) (*Result, error) {
	res, err := e.mutate(ctx, caller, marketID, beneficiary, func(c *call) error {
		bal, err := c.balance(beneficiary)
		if err != nil {
			return err
		}
		available, err := e.balances.SettlementBalance(c.ctx, c.market)
		if err != nil {
			return externalCall("query settlement balance", err)
		}
		payout, err := applyRemoveLiquidity(c.market, bal, shares, available)
		if err != nil {
			return err
		}
		c.pay(beneficiary, payout, models.TransferLiquidityWithdrawal)
		c.result.Payout = payout
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("liquidity removed",
		zap.String("market", marketID),
		zap.String("account", beneficiary),
		zap.Stringer("shares", shares),
		zap.Stringer("payout", res.Payout),
	)
	return res, nil
}

func applyBootstrap(m *models.Market, bal *models.ShareBalance, yesPrice, deposit fixedpoint.U128) (fixedpoint.U128, error) {
	if deposit.Lt(models.MinLiquidity) {
		return fixedpoint.Zero(), invalidParam("liquidity must be at least 10 units")
	}
	if m.Resolved {
		return fixedpoint.Zero(), precondition("market is already resolved")
	}
	if m.Initialized() {
		return fixedpoint.Zero(), precondition("liquidity has already been initialized")
	}
	if yesPrice.Lt(models.MinBootstrap) || yesPrice.Gt(models.MaxBootstrap) {
		return fixedpoint.Zero(), invalidParam("initial price must be between 10% and 90%")
	}

	m.YesPrice = yesPrice
	m.NoPrice = models.Scale.Sub(yesPrice)
	m.YesLiquidity = m.YesPrice.MulDiv(deposit, models.Scale)
	m.NoLiquidity = m.NoPrice.MulDiv(deposit, models.Scale)

	minted := m.YesLiquidity.Mul(m.NoLiquidity).Isqrt()
	m.LiquidityShares = m.LiquidityShares.Add(minted)
	bal.LiquidityShares = bal.LiquidityShares.Add(minted)
	return minted, nil
}

func applyAddLiquidity(m *models.Market, bal *models.ShareBalance, amount fixedpoint.U128) (fixedpoint.U128, error) {
	if !m.Initialized() {
		return fixedpoint.Zero(), precondition("liquidity has not been initialized")
	}
	if m.Resolved {
		return fixedpoint.Zero(), precondition("market is already resolved")
	}
	if m.YesLiquidity.IsZero() || m.NoLiquidity.IsZero() {
		return fixedpoint.Zero(), economic("pool reserves are empty")
	}

	yes := m.YesPrice.MulDiv(amount, models.Scale)
	no := m.NoPrice.MulDiv(amount, models.Scale)
	minted := fixedpoint.Min(
		yes.MulDiv(m.LiquidityShares, m.YesLiquidity),
		no.MulDiv(m.LiquidityShares, m.NoLiquidity),
	)
	if minted.IsZero() {
		return fixedpoint.Zero(), economic("deposit too small, must use higher deposit limit")
	}

	m.YesLiquidity = m.YesLiquidity.Add(yes)
	m.NoLiquidity = m.NoLiquidity.Add(no)
	m.LiquidityShares = m.LiquidityShares.Add(minted)
	bal.LiquidityShares = bal.LiquidityShares.Add(minted)
	return minted, nil
}

func applyRemoveLiquidity(m *models.Market, bal *models.ShareBalance, shares, available fixedpoint.U128) (fixedpoint.U128, error) {
	held, ok := bal.LiquidityShares.CheckedSub(shares)
	if !ok {
		return fixedpoint.Zero(), economic("insufficient liquidity shares")
	}
	if m.LiquidityShares.IsZero() {
		return fixedpoint.Zero(), economic("no liquidity to remove")
	}

	yesOut := shares.MulDiv(m.YesLiquidity, m.LiquidityShares)
	noOut := shares.MulDiv(m.NoLiquidity, m.LiquidityShares)
	amount := yesOut.Add(noOut)
	if amount.IsZero() {
		return fixedpoint.Zero(), economic("shares too small to withdraw")
	}

	payout := fixedpoint.Min(amount, available)
	if payout.IsZero() {
		return fixedpoint.Zero(), economic("market holds no settlement balance")
	}
	if !m.Resolved {
		remaining := m.YesLiquidity.Add(m.NoLiquidity).Sub(payout)
		if remaining.Lt(models.MinLiquidity) {
			return fixedpoint.Zero(), economic("remaining liquidity would fall below the 10 unit minimum")
		}
	}

	m.YesLiquidity = m.YesLiquidity.Sub(yesOut)
	m.NoLiquidity = m.NoLiquidity.Sub(noOut)
	m.LiquidityShares = m.LiquidityShares.Sub(shares)
	bal.LiquidityShares = held
	return payout, nil
}
