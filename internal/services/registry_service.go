package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"amm-market/internal/database"
	"amm-market/internal/fixedpoint"
	"amm-market/internal/models"
	"amm-market/internal/pagination"
	"amm-market/internal/repository"
)

// IncentivePointsPerOrder is credited to an account for every order it places
const IncentivePointsPerOrder = 10

// RegistryConfig configures the in-process registry
type RegistryConfig struct {
	Principal       string // identity the registry presents to the engine
	FeesAddress     string
	SettlementDenom string
}

// RegistryService creates markets, keeps admin membership, statistics and the
// all/active/completed market sets, and forwards user intents to the engine
// as the markets' trusted caller.
type RegistryService struct {
	db     *gorm.DB
	repo   *repository.Repository
	cfg    RegistryConfig
	engine *MarketEngine
	now    func() time.Time
	log    *zap.Logger
}

func NewRegistryService(db *gorm.DB, cfg RegistryConfig, log *zap.Logger) *RegistryService {
	return &RegistryService{
		db:   db,
		repo: repository.NewRepository(db),
		cfg:  cfg,
		now:  time.Now,
		log:  log.Named("registry"),
	}
}

// Bind attaches the engine the forwarders call into
func (r *RegistryService) Bind(engine *MarketEngine) {
	r.engine = engine
	r.now = engine.now
}

// ============================================================================
// ADMINS
// ============================================================================

// EnsureAdmins seeds the admin set at startup
func (r *RegistryService) EnsureAdmins(ctx context.Context, addresses []string) error {
	for _, addr := range addresses {
		if err := r.repo.SaveAdmin(ctx, &models.RegistryAdmin{Address: addr, Active: true, AddedBy: "config"}); err != nil {
			return fmt.Errorf("seed admin %s: %w", addr, err)
		}
	}
	return nil
}

// IsAdmin implements Registry
func (r *RegistryService) IsAdmin(ctx context.Context, account string) (bool, error) {
	return r.repo.IsAdmin(ctx, account)
}

// FeesAddress implements Registry
func (r *RegistryService) FeesAddress(ctx context.Context) (string, error) {
	if r.cfg.FeesAddress == "" {
		return "", errors.New("fees address is not configured")
	}
	return r.cfg.FeesAddress, nil
}

// AddAdmin grants admin rights. Only admins may call it.
func (r *RegistryService) AddAdmin(ctx context.Context, sender, account string) error {
	if strings.TrimSpace(account) == "" {
		return invalidParam("account is required")
	}
	ok, err := r.repo.IsAdmin(ctx, sender)
	if err != nil {
		return fmt.Errorf("check admin: %w", err)
	}
	if !ok {
		return unauthorized("only admins can add new admins")
	}
	if err := r.repo.SaveAdmin(ctx, &models.RegistryAdmin{Address: account, Active: true, AddedBy: sender}); err != nil {
		return fmt.Errorf("save admin: %w", err)
	}
	r.log.Info("admin added", zap.String("account", account), zap.String("by", sender))
	return nil
}

// RemoveAdmin revokes admin rights. Only admins may call it.
func (r *RegistryService) RemoveAdmin(ctx context.Context, sender, account string) error {
	ok, err := r.repo.IsAdmin(ctx, sender)
	if err != nil {
		return fmt.Errorf("check admin: %w", err)
	}
	if !ok {
		return unauthorized("only admins can remove admins")
	}
	if err := r.repo.SaveAdmin(ctx, &models.RegistryAdmin{Address: account, Active: false, AddedBy: sender}); err != nil {
		return fmt.Errorf("save admin: %w", err)
	}
	r.log.Info("admin removed", zap.String("account", account), zap.String("by", sender))
	return nil
}

// ============================================================================
// MARKETS
// ============================================================================

// CreateMarket instantiates a market owned by creator, who must be an admin.
// The market is appended to the all and active sets.
func (r *RegistryService) CreateMarket(ctx context.Context, creator string, req models.CreateMarketRequest) (*models.Market, error) {
	now := r.now()
	if req.EndDate <= now.Unix() {
		return nil, invalidParam("end date must be a date in the future")
	}
	ok, err := r.repo.IsAdmin(ctx, creator)
	if err != nil {
		return nil, fmt.Errorf("check admin: %w", err)
	}
	if !ok {
		return nil, unauthorized("only admins can create markets")
	}

	market := &models.Market{
		ID:              uuid.NewString(),
		Title:           req.Title,
		Description:     req.Description,
		Categories:      datatypes.JSONSlice[string](req.Categories),
		SettlementDenom: r.cfg.SettlementDenom,
		Owner:           creator,
		Registry:        r.cfg.Principal,
		MarketCreated:   now.Unix(),
		MarketEnd:       req.EndDate,
	}
	err = database.InTx(ctx, r.db, func(ctx context.Context) error {
		if err := r.repo.CreateMarket(ctx, market); err != nil {
			return fmt.Errorf("create market: %w", err)
		}
		if err := r.repo.CreateRegistryMarket(ctx, &models.RegistryMarket{
			MarketID: market.ID,
			Creator:  creator,
			Media:    datatypes.JSONSlice[string](req.Media[:]),
		}); err != nil {
			return fmt.Errorf("create registry record: %w", err)
		}

		stats, err := r.repo.LockStats(ctx)
		if err != nil {
			return fmt.Errorf("lock stats: %w", err)
		}
		stats.TotalPools++
		stats.ActiveEvents++
		if err := r.repo.PutSlot(ctx, &models.RegistrySlot{Set: models.MarketSetActive, Position: stats.ActiveEvents, MarketID: market.ID}); err != nil {
			return fmt.Errorf("index active market: %w", err)
		}
		if err := r.repo.PutSlot(ctx, &models.RegistrySlot{Set: models.MarketSetAll, Position: stats.TotalPools, MarketID: market.ID}); err != nil {
			return fmt.Errorf("index market: %w", err)
		}
		return r.repo.SaveStats(ctx, stats)
	})
	if err != nil {
		return nil, err
	}

	r.log.Info("market created",
		zap.String("market", market.ID),
		zap.String("creator", creator),
		zap.Int64("market_end", market.MarketEnd),
	)
	return market, nil
}

// RecordVolume implements Registry. Only markets this registry created may
// report.
func (r *RegistryService) RecordVolume(ctx context.Context, marketID string, s VolumeStats) error {
	rm, err := r.knownMarket(ctx, marketID)
	if err != nil {
		return err
	}
	rm.Volume = rm.Volume.Add(s.Volume)
	if err := r.repo.SaveRegistryMarket(ctx, rm); err != nil {
		return fmt.Errorf("save market volume: %w", err)
	}

	stats, err := r.repo.LockStats(ctx)
	if err != nil {
		return fmt.Errorf("lock stats: %w", err)
	}
	stats.Volume = stats.Volume.Add(s.Volume)
	first, err := r.repo.AddWallet(ctx, s.Account)
	if err != nil {
		return fmt.Errorf("record wallet: %w", err)
	}
	if first {
		stats.UniqueWallets++
	}
	if err := r.repo.SaveStats(ctx, stats); err != nil {
		return fmt.Errorf("save stats: %w", err)
	}

	r.log.Debug("order recorded",
		zap.String("market", marketID),
		zap.String("account", s.Account),
		zap.Uint8("outcome", uint8(s.Outcome)),
		zap.Uint8("side", uint8(s.Side)),
		zap.Stringer("price", s.Price),
		zap.Stringer("volume", s.Volume),
	)
	return nil
}

// RecordResolution implements Registry. It moves the market from the active
// set to the end of the completed set.
//
// The active set is kept dense by swap-remove: the market at the last position
// moves into the vacated one. Callers learn positions from FetchMarkets, and an
// index that no longer points at marketID is an integrity error.
func (r *RegistryService) RecordResolution(ctx context.Context, marketID, resolver string, marketIndex uint64) error {
	if _, err := r.knownMarket(ctx, marketID); err != nil {
		return err
	}
	stats, err := r.repo.LockStats(ctx)
	if err != nil {
		return fmt.Errorf("lock stats: %w", err)
	}

	slot, err := r.repo.GetSlot(ctx, models.MarketSetActive, marketIndex)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("load active slot: %w", err)
	}
	if slot == nil || slot.MarketID != marketID {
		return integrity("market index does not match intended market")
	}

	last, err := r.repo.GetSlot(ctx, models.MarketSetActive, stats.ActiveEvents)
	if err != nil {
		return fmt.Errorf("load last active slot: %w", err)
	}
	if err := r.repo.PutSlot(ctx, &models.RegistrySlot{Set: models.MarketSetActive, Position: marketIndex, MarketID: last.MarketID}); err != nil {
		return fmt.Errorf("move last active market: %w", err)
	}
	if err := r.repo.DeleteSlot(ctx, models.MarketSetActive, stats.ActiveEvents); err != nil {
		return fmt.Errorf("trim active set: %w", err)
	}
	stats.ActiveEvents--
	stats.CompletedEvents++
	if err := r.repo.PutSlot(ctx, &models.RegistrySlot{Set: models.MarketSetCompleted, Position: stats.CompletedEvents, MarketID: marketID}); err != nil {
		return fmt.Errorf("index completed market: %w", err)
	}
	if err := r.repo.SaveStats(ctx, stats); err != nil {
		return fmt.Errorf("save stats: %w", err)
	}

	r.log.Info("market completed", zap.String("market", marketID), zap.String("resolver", resolver))
	return nil
}

func (r *RegistryService) knownMarket(ctx context.Context, marketID string) (*models.RegistryMarket, error) {
	rm, err := r.repo.GetRegistryMarket(ctx, marketID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, unauthorized("call must be made from a known market")
	}
	if err != nil {
		return nil, fmt.Errorf("load registry market: %w", err)
	}
	return rm, nil
}

// ============================================================================
// FORWARDERS
// ============================================================================

// forward runs fn against the engine for a market this registry created. The
// registry's own writes share fn's transaction.
func (r *RegistryService) forward(ctx context.Context, marketID string, fn func(ctx context.Context) error) error {
	return database.InTx(ctx, r.db, func(ctx context.Context) error {
		if _, err := r.repo.GetRegistryMarket(ctx, marketID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("incorrect market")
			}
			return fmt.Errorf("load registry market: %w", err)
		}
		return fn(ctx)
	})
}

// InitializeLiquidity forwards a bootstrap deposit from account
func (r *RegistryService) InitializeLiquidity(ctx context.Context, account, marketID string, yesPrice, liquidity fixedpoint.U128) (*Result, error) {
	var res *Result
	err := r.forward(ctx, marketID, func(ctx context.Context) (err error) {
		res, err = r.engine.Bootstrap(ctx, r.cfg.Principal, marketID, yesPrice, liquidity, account)
		return err
	})
	return res, err
}

// AddLiquidity forwards a deposit from account
func (r *RegistryService) AddLiquidity(ctx context.Context, account, marketID string, amount fixedpoint.U128) (*Result, error) {
	var res *Result
	err := r.forward(ctx, marketID, func(ctx context.Context) (err error) {
		res, err = r.engine.AddLiquidity(ctx, r.cfg.Principal, marketID, amount, account)
		return err
	})
	return res, err
}

// RemoveLiquidity forwards a withdrawal by account
func (r *RegistryService) RemoveLiquidity(ctx context.Context, account, marketID string, shares fixedpoint.U128) (*Result, error) {
	var res *Result
	err := r.forward(ctx, marketID, func(ctx context.Context) (err error) {
		res, err = r.engine.RemoveLiquidity(ctx, r.cfg.Principal, marketID, shares, account)
		return err
	})
	return res, err
}

// Claim forwards a winnings claim by account
func (r *RegistryService) Claim(ctx context.Context, account, marketID string, outcome models.Outcome) (*Result, error) {
	var res *Result
	err := r.forward(ctx, marketID, func(ctx context.Context) (err error) {
		res, err = r.engine.Claim(ctx, r.cfg.Principal, marketID, outcome, account)
		return err
	})
	return res, err
}

// ResolveMarket forwards a resolution by account
func (r *RegistryService) ResolveMarket(ctx context.Context, account, marketID string, outcome models.Outcome, marketIndex uint64) (*Result, error) {
	var res *Result
	err := r.forward(ctx, marketID, func(ctx context.Context) (err error) {
		res, err = r.engine.Resolve(ctx, r.cfg.Principal, marketID, outcome, account, marketIndex)
		return err
	})
	return res, err
}

// PlaceOrder forwards a trade by account and credits its incentive points
func (r *RegistryService) PlaceOrder(ctx context.Context, account, marketID string, outcome models.Outcome, side models.Side, amount fixedpoint.U128) (*Result, error) {
	var res *Result
	err := r.forward(ctx, marketID, func(ctx context.Context) (err error) {
		res, err = r.engine.PlaceOrder(ctx, r.cfg.Principal, marketID, outcome, side, amount, account)
		if err != nil {
			return err
		}
		if err := r.repo.AddIncentive(ctx, account, IncentivePointsPerOrder); err != nil {
			return fmt.Errorf("credit incentives: %w", err)
		}
		return nil
	})
	return res, err
}

// ============================================================================
// QUERIES
// ============================================================================

// Quote forwards a quote request
func (r *RegistryService) Quote(ctx context.Context, marketID string, outcome models.Outcome, side models.Side, amount fixedpoint.U128) (models.QuoteResult, error) {
	return r.engine.Quote(ctx, marketID, outcome, side, amount)
}

// GetMarketInfo returns a market with its volume, media and account's holdings
func (r *RegistryService) GetMarketInfo(ctx context.Context, marketID, account string) (*models.MarketResponse, error) {
	mb, err := r.engine.GetMarketAndBalance(ctx, marketID, account)
	if err != nil {
		return nil, err
	}
	resp := models.NewMarketResponse(mb.Market, r.now())
	resp.Balance = &mb.Balance
	resp.Media = []string{"", ""}

	rm, err := r.repo.GetRegistryMarket(ctx, marketID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load registry market: %w", err)
	}
	if rm != nil {
		resp.Volume = rm.Volume
		if len(rm.Media) > 0 {
			resp.Media = rm.Media
		}
	}
	if slot, err := r.repo.FindSlot(ctx, models.MarketSetActive, marketID); err == nil {
		resp.Index = slot.Position
	}
	return &resp, nil
}

// FetchMarkets returns one page of set, newest position first. When account
// is set each entry carries that account's holdings. Indexes are the
// positions within set.
func (r *RegistryService) FetchMarkets(ctx context.Context, page, perPage uint64, account string, set models.MarketSet) (*models.MarketList, error) {
	stats, err := r.repo.GetStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}
	total := stats.Count(set)
	window, err := pagination.Window(total, page, perPage)
	if err != nil {
		return nil, paginationError(err)
	}

	slots, err := r.repo.GetSlotRange(ctx, set, window.Oldest, window.Newest)
	if err != nil {
		return nil, fmt.Errorf("load %s markets: %w", set, err)
	}
	ids := make([]string, len(slots))
	for i, s := range slots {
		ids[i] = s.MarketID
	}
	markets, err := r.repo.GetMarketsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load markets: %w", err)
	}
	rms, err := r.repo.GetRegistryMarketsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load registry markets: %w", err)
	}

	now := r.now()
	list := &models.MarketList{Page: page, Pages: pagination.Pages(total, perPage)}
	for _, s := range slots {
		m, ok := markets[s.MarketID]
		if !ok {
			return nil, fmt.Errorf("%s set position %d points at missing market %s", set, s.Position, s.MarketID)
		}
		resp := models.NewMarketResponse(m, now)
		resp.Index = s.Position
		if rm, ok := rms[s.MarketID]; ok {
			resp.Volume = rm.Volume
			resp.Media = rm.Media
		}
		if account != "" {
			bal, err := r.repo.GetBalance(ctx, m.ID, account)
			if err != nil {
				return nil, fmt.Errorf("load balance: %w", err)
			}
			resp.Balance = bal
		}
		list.Markets = append(list.Markets, resp)
		list.Indexes = append(list.Indexes, s.Position)
	}
	return list, nil
}

// Statistics returns the registry counters
func (r *RegistryService) Statistics(ctx context.Context) (*models.RegistryStats, error) {
	return r.repo.GetStats(ctx)
}

// GetIncentives returns account's incentive points
func (r *RegistryService) GetIncentives(ctx context.Context, account string) (uint64, error) {
	return r.repo.GetIncentive(ctx, account)
}
