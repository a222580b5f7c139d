package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"amm-market/internal/models"
)

// IsAdmin reports whether address is an active registry admin
func (r *Repository) IsAdmin(ctx context.Context, address string) (bool, error) {
	var admin models.RegistryAdmin
	err := r.conn(ctx).Where("address = ?", address).First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return admin.Active, nil
}

// SaveAdmin upserts an admin row. An existing row takes admin's Active flag
// as given, false included.
func (r *Repository) SaveAdmin(ctx context.Context, admin *models.RegistryAdmin) error {
	return r.conn(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "address"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"active":     admin.Active,
			"added_by":   admin.AddedBy,
			"updated_at": time.Now(),
		}),
	}).Create(admin).Error
}

// GetStats returns the registry counters, creating the row on first use
func (r *Repository) GetStats(ctx context.Context) (*models.RegistryStats, error) {
	stats := models.RegistryStats{ID: 1}
	err := r.conn(ctx).Where(models.RegistryStats{ID: 1}).FirstOrCreate(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// LockStats returns the registry counters for update. On Postgres the row
// stays locked until the surrounding transaction ends, so concurrent writers
// of the counters and the slot positions derived from them run one at a time.
func (r *Repository) LockStats(ctx context.Context) (*models.RegistryStats, error) {
	db := r.conn(ctx)
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.RegistryStats{ID: 1}).Error; err != nil {
		return nil, err
	}
	q := db
	if q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var stats models.RegistryStats
	if err := q.First(&stats, 1).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}

// SaveStats writes the registry counters
func (r *Repository) SaveStats(ctx context.Context, stats *models.RegistryStats) error {
	return r.conn(ctx).Save(stats).Error
}

// GetSlot returns the market at position of set
func (r *Repository) GetSlot(ctx context.Context, set models.MarketSet, position uint64) (*models.RegistrySlot, error) {
	var slot models.RegistrySlot
	err := r.conn(ctx).Where("set_name = ? AND position = ?", set, position).First(&slot).Error
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// PutSlot places a market at a position, replacing any previous occupant
func (r *Repository) PutSlot(ctx context.Context, slot *models.RegistrySlot) error {
	return r.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "set_name"}, {Name: "position"}},
		DoUpdates: clause.AssignmentColumns([]string{"market_id"}),
	}).Create(slot).Error
}

// DeleteSlot clears a position
func (r *Repository) DeleteSlot(ctx context.Context, set models.MarketSet, position uint64) error {
	return r.conn(ctx).Where("set_name = ? AND position = ?", set, position).Delete(&models.RegistrySlot{}).Error
}

// GetSlotRange returns positions newest >= p >= oldest of set, highest first
func (r *Repository) GetSlotRange(ctx context.Context, set models.MarketSet, oldest, newest uint64) ([]models.RegistrySlot, error) {
	var slots []models.RegistrySlot
	err := r.conn(ctx).
		Where("set_name = ? AND position BETWEEN ? AND ?", set, oldest, newest).
		Order("position DESC").
		Find(&slots).Error
	return slots, err
}

// FindSlot returns the position of marketID in set
func (r *Repository) FindSlot(ctx context.Context, set models.MarketSet, marketID string) (*models.RegistrySlot, error) {
	var slot models.RegistrySlot
	err := r.conn(ctx).Where("set_name = ? AND market_id = ?", set, marketID).First(&slot).Error
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// CreateRegistryMarket records a market created through the registry
func (r *Repository) CreateRegistryMarket(ctx context.Context, rm *models.RegistryMarket) error {
	return r.conn(ctx).Create(rm).Error
}

// GetRegistryMarket returns the registry record of a market
func (r *Repository) GetRegistryMarket(ctx context.Context, marketID string) (*models.RegistryMarket, error) {
	var rm models.RegistryMarket
	err := r.conn(ctx).Where("market_id = ?", marketID).First(&rm).Error
	if err != nil {
		return nil, err
	}
	return &rm, nil
}

// GetRegistryMarketsByIDs loads registry records keyed by market ID
func (r *Repository) GetRegistryMarketsByIDs(ctx context.Context, ids []string) (map[string]models.RegistryMarket, error) {
	var rms []models.RegistryMarket
	if err := r.conn(ctx).Where("market_id IN ?", ids).Find(&rms).Error; err != nil {
		return nil, err
	}
	out := make(map[string]models.RegistryMarket, len(rms))
	for _, rm := range rms {
		out[rm.MarketID] = rm
	}
	return out, nil
}

// SaveRegistryMarket writes a registry record
func (r *Repository) SaveRegistryMarket(ctx context.Context, rm *models.RegistryMarket) error {
	return r.conn(ctx).Save(rm).Error
}

// AddWallet records address as a trader. It returns true the first time.
func (r *Repository) AddWallet(ctx context.Context, address string) (bool, error) {
	res := r.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.RegistryWallet{Address: address})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// AddIncentive credits points to an account
func (r *Repository) AddIncentive(ctx context.Context, account string, points uint64) error {
	return r.conn(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"points":     gorm.Expr("registry_incentives.points + ?", points),
			"updated_at": gorm.Expr("excluded.updated_at"),
		}),
	}).Create(&models.RegistryIncentive{Account: account, Points: points}).Error
}

// GetIncentive returns the points of account, zero when unseen
func (r *Repository) GetIncentive(ctx context.Context, account string) (uint64, error) {
	var inc models.RegistryIncentive
	err := r.conn(ctx).Where("account = ?", account).First(&inc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return inc.Points, nil
}
