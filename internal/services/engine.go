package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"amm-market/internal/database"
	"amm-market/internal/fixedpoint"
	"amm-market/internal/models"
	"amm-market/internal/repository"
)

// Registry is the collaborator that creates markets and forwards end-user
// intents. The engine consults it synchronously; any error aborts the call.
type Registry interface {
	IsAdmin(ctx context.Context, account string) (bool, error)
	FeesAddress(ctx context.Context) (string, error)
	RecordVolume(ctx context.Context, marketID string, stats VolumeStats) error
	RecordResolution(ctx context.Context, marketID, resolver string, marketIndex uint64) error
}

// VolumeStats describes one executed trade
type VolumeStats struct {
	Account string
	Outcome models.Outcome
	Side    models.Side
	Price   fixedpoint.U128 // post-trade price of the traded outcome
	Volume  fixedpoint.U128 // currency paid on a buy, delivered on a sell
}

// BalanceQuerier reports how much settlement currency a market actually holds
type BalanceQuerier interface {
	SettlementBalance(ctx context.Context, market *models.Market) (fixedpoint.U128, error)
}

// Result is the outcome of a successful mutating call
type Result struct {
	Market    models.Market                `json:"market"`
	Balance   models.ShareBalance          `json:"balance"`
	Quote     *models.QuoteResult          `json:"quote,omitempty"`
	Minted    fixedpoint.U128              `json:"minted"`
	Payout    fixedpoint.U128              `json:"payout"`
	Transfers []models.TransferInstruction `json:"transfers"`
}

// MarketEngine is the pricing and settlement core. Only the principal stored
// as a market's Registry may call its mutating methods.
type MarketEngine struct {
	db       *gorm.DB
	repo     *repository.Repository
	registry Registry
	escrow   *EscrowLedger
	balances BalanceQuerier
	locker   MarketLocker
	now      func() time.Time
	log      *zap.Logger
}

// EngineOption customizes a MarketEngine
type EngineOption func(*MarketEngine)

// WithClock replaces time.Now
func WithClock(now func() time.Time) EngineOption {
	return func(e *MarketEngine) { e.now = now }
}

// WithBalanceQuerier replaces the escrow ledger as the source of the
// remove-liquidity payout cap.
func WithBalanceQuerier(q BalanceQuerier) EngineOption {
	return func(e *MarketEngine) { e.balances = q }
}

// WithLocker replaces the in-process per-market lock
func WithLocker(l MarketLocker) EngineOption {
	return func(e *MarketEngine) { e.locker = l }
}

func NewMarketEngine(db *gorm.DB, registry Registry, log *zap.Logger, opts ...EngineOption) *MarketEngine {
	repo := repository.NewRepository(db)
	e := &MarketEngine{
		db:       db,
		repo:     repo,
		registry: registry,
		escrow:   NewEscrowLedger(repo),
		locker:   NewLocalLocker(),
		now:      time.Now,
		log:      log,
	}
	e.balances = e.escrow
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// call is the working set of one mutating operation. Everything it touches is
// written back in commit, inside the operation's transaction.
type call struct {
	ctx         context.Context
	engine      *MarketEngine
	market      *models.Market
	now         time.Time
	beneficiary string
	balances    map[string]*models.ShareBalance
	touched     []string
	orders      []models.MarketOrder
	transfers   []models.TransferInstruction
	deposit     fixedpoint.U128
	result      Result
}

func (c *call) balance(account string) (*models.ShareBalance, error) {
	if b, ok := c.balances[account]; ok {
		return b, nil
	}
	b, err := c.engine.repo.GetBalance(c.ctx, c.market.ID, account)
	if err != nil {
		return nil, fmt.Errorf("load balance of %s: %w", account, err)
	}
	c.balances[account] = b
	c.touched = append(c.touched, account)
	return b, nil
}

// recordOrder appends the current Yes price to the order ledger
func (c *call) recordOrder() {
	c.market.TotalOrders++
	c.orders = append(c.orders, models.MarketOrder{
		MarketID:   c.market.ID,
		OrderIndex: c.market.TotalOrders,
		Timestamp:  c.now.Unix(),
		YesPrice:   c.market.YesPrice,
	})
}

// receive notes settlement currency deposited by the caller
func (c *call) receive(amount fixedpoint.U128) {
	c.deposit = c.deposit.Add(amount)
}

// pay queues an outbound transfer. Zero amounts are dropped.
func (c *call) pay(recipient string, amount fixedpoint.U128, kind models.TransferKind) {
	if amount.IsZero() {
		return
	}
	c.transfers = append(c.transfers, models.TransferInstruction{
		ID:        uuid.NewString(),
		MarketID:  c.market.ID,
		Recipient: recipient,
		Denom:     c.market.SettlementDenom,
		Amount:    amount,
		Kind:      kind,
		Status:    models.TransferPending,
		CreatedAt: c.now,
	})
}

// requireOwnerOrAdmin admits the market owner, or an account the registry
// attests is an admin.
func (c *call) requireOwnerOrAdmin(account, reason string) error {
	if account == c.market.Owner {
		return nil
	}
	ok, err := c.engine.registry.IsAdmin(c.ctx, account)
	if err != nil {
		return externalCall("query admin status", err)
	}
	if !ok {
		return unauthorized(reason)
	}
	return nil
}

func (c *call) commit() error {
	repo := c.engine.repo
	if err := repo.SaveMarket(c.ctx, c.market); err != nil {
		return fmt.Errorf("save market: %w", err)
	}
	for _, account := range c.touched {
		if err := repo.SaveBalance(c.ctx, c.balances[account]); err != nil {
			return fmt.Errorf("save balance of %s: %w", account, err)
		}
	}
	if err := repo.AppendOrders(c.ctx, c.orders); err != nil {
		return fmt.Errorf("append orders: %w", err)
	}
	if !c.deposit.IsZero() {
		if err := c.engine.escrow.Credit(c.ctx, c.market, c.deposit); err != nil {
			return err
		}
	}
	if err := c.engine.escrow.Disburse(c.ctx, c.market, c.transfers); err != nil {
		return err
	}

	c.result.Market = *c.market
	if c.beneficiary != "" {
		c.result.Balance = *c.balances[c.beneficiary]
	}
	c.result.Transfers = c.transfers
	return nil
}

// mutate runs fn as one all-or-nothing operation on marketID. Calls for the
// same market are serialized by the locker and, on Postgres, the row lock.
func (e *MarketEngine) mutate(ctx context.Context, caller, marketID, beneficiary string, fn func(c *call) error) (*Result, error) {
	unlock, err := e.locker.Lock(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("lock market %s: %w", marketID, err)
	}
	defer unlock()

	var res Result
	err = database.InTx(ctx, e.db, func(ctx context.Context) error {
		market, err := e.repo.LockMarket(ctx, marketID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("market not found")
		}
		if err != nil {
			return fmt.Errorf("load market %s: %w", marketID, err)
		}
		if caller != market.Registry {
			return unauthorized("caller is not the market registry")
		}

		c := &call{
			ctx:         ctx,
			engine:      e,
			market:      market,
			now:         e.now(),
			beneficiary: beneficiary,
			balances:    make(map[string]*models.ShareBalance),
		}
		if beneficiary != "" {
			if _, err := c.balance(beneficiary); err != nil {
				return err
			}
		}
		err = fixedpoint.Try(func() error {
			if err := fn(c); err != nil {
				return err
			}
			return c.commit()
		})
		if err != nil {
			return arithmetic(err)
		}
		res = c.result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// ============================================================================
// READS
// ============================================================================

// GetMarket returns a market record
func (e *MarketEngine) GetMarket(ctx context.Context, marketID string) (*models.Market, error) {
	market, err := e.repo.GetMarket(ctx, marketID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("market not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load market %s: %w", marketID, err)
	}
	return market, nil
}

// GetMarketAndBalance returns a market and the holdings of account in it.
// Unknown accounts report zero balances.
func (e *MarketEngine) GetMarketAndBalance(ctx context.Context, marketID, account string) (*models.MarketAndBalance, error) {
	market, err := e.GetMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	balance, err := e.repo.GetBalance(ctx, marketID, account)
	if err != nil {
		return nil, fmt.Errorf("load balance: %w", err)
	}
	return &models.MarketAndBalance{Market: *market, Balance: *balance}, nil
}

// Quote models a trade against the market's current reserves
func (e *MarketEngine) Quote(ctx context.Context, marketID string, outcome models.Outcome, side models.Side, amount fixedpoint.U128) (models.QuoteResult, error) {
	market, err := e.GetMarket(ctx, marketID)
	if err != nil {
		return models.QuoteResult{}, err
	}
	return CalculateQuote(market, outcome, side, amount)
}

// GetTotalOrders returns the number of order-ledger entries
func (e *MarketEngine) GetTotalOrders(ctx context.Context, marketID string) (uint64, error) {
	market, err := e.GetMarket(ctx, marketID)
	if err != nil {
		return 0, err
	}
	return market.TotalOrders, nil
}

func paginationError(err error) error {
	return &MarketError{Kind: ErrInvalidParameter, Reason: "invalid page", Err: err}
}
