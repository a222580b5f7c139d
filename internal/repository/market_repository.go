package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"amm-market/internal/database"
	"amm-market/internal/models"
)

// Repository reads and writes market state. Every method goes through the
// transaction carried by ctx when there is one.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) conn(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, r.db)
}

// CreateMarket inserts a new market
func (r *Repository) CreateMarket(ctx context.Context, market *models.Market) error {
	return r.conn(ctx).Create(market).Error
}

// GetMarket retrieves a market by ID
func (r *Repository) GetMarket(ctx context.Context, id string) (*models.Market, error) {
	var market models.Market
	err := r.conn(ctx).Where("id = ?", id).First(&market).Error
	if err != nil {
		return nil, err
	}
	return &market, nil
}

// LockMarket retrieves a market and, on Postgres, holds its row lock until the
// surrounding transaction ends.
func (r *Repository) LockMarket(ctx context.Context, id string) (*models.Market, error) {
	q := r.conn(ctx)
	if q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var market models.Market
	if err := q.Where("id = ?", id).First(&market).Error; err != nil {
		return nil, err
	}
	return &market, nil
}

// SaveMarket writes every column of market
func (r *Repository) SaveMarket(ctx context.Context, market *models.Market) error {
	return r.conn(ctx).Save(market).Error
}

// GetMarketsByIDs loads markets keyed by ID
func (r *Repository) GetMarketsByIDs(ctx context.Context, ids []string) (map[string]models.Market, error) {
	var markets []models.Market
	if err := r.conn(ctx).Where("id IN ?", ids).Find(&markets).Error; err != nil {
		return nil, err
	}
	out := make(map[string]models.Market, len(markets))
	for _, m := range markets {
		out[m.ID] = m
	}
	return out, nil
}

// GetBalance returns an account's holdings. Unknown accounts get a zero balance.
func (r *Repository) GetBalance(ctx context.Context, marketID, account string) (*models.ShareBalance, error) {
	var balance models.ShareBalance
	err := r.conn(ctx).Where("market_id = ? AND account = ?", marketID, account).First(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.ShareBalance{MarketID: marketID, Account: account}, nil
	}
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

// SaveBalance upserts a balance row
func (r *Repository) SaveBalance(ctx context.Context, balance *models.ShareBalance) error {
	return r.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "market_id"}, {Name: "account"}},
		UpdateAll: true,
	}).Create(balance).Error
}

// ListBalances returns every balance row of a market
func (r *Repository) ListBalances(ctx context.Context, marketID string) ([]models.ShareBalance, error) {
	var balances []models.ShareBalance
	err := r.conn(ctx).Where("market_id = ?", marketID).Order("account ASC").Find(&balances).Error
	return balances, err
}

// AppendOrders inserts ledger entries
func (r *Repository) AppendOrders(ctx context.Context, orders []models.MarketOrder) error {
	if len(orders) == 0 {
		return nil
	}
	return r.conn(ctx).Create(&orders).Error
}

// GetOrderRange returns ledger entries with newest >= index >= oldest, newest first
func (r *Repository) GetOrderRange(ctx context.Context, marketID string, oldest, newest uint64) ([]models.MarketOrder, error) {
	var orders []models.MarketOrder
	err := r.conn(ctx).
		Where("market_id = ? AND order_index BETWEEN ? AND ?", marketID, oldest, newest).
		Order("order_index DESC").
		Find(&orders).Error
	return orders, err
}

// GetOrdersBetween returns ledger entries with from <= timestamp < to, oldest first
func (r *Repository) GetOrdersBetween(ctx context.Context, marketID string, from, to int64) ([]models.MarketOrder, error) {
	var orders []models.MarketOrder
	err := r.conn(ctx).
		Where("market_id = ? AND timestamp >= ? AND timestamp < ?", marketID, from, to).
		Order("order_index ASC").
		Find(&orders).Error
	return orders, err
}
