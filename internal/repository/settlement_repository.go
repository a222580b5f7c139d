package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"amm-market/internal/models"
)

// GetEscrow returns a market's escrow row, zero-valued when none exists yet
func (r *Repository) GetEscrow(ctx context.Context, marketID string) (*models.EscrowAccount, error) {
	var escrow models.EscrowAccount
	err := r.conn(ctx).Where("market_id = ?", marketID).First(&escrow).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.EscrowAccount{MarketID: marketID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &escrow, nil
}

// SaveEscrow upserts an escrow row
func (r *Repository) SaveEscrow(ctx context.Context, escrow *models.EscrowAccount) error {
	return r.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "market_id"}},
		UpdateAll: true,
	}).Create(escrow).Error
}

// CreateTransfers records outbound transfer instructions
func (r *Repository) CreateTransfers(ctx context.Context, transfers []models.TransferInstruction) error {
	if len(transfers) == 0 {
		return nil
	}
	return r.conn(ctx).Create(&transfers).Error
}

// PendingTransfers returns up to limit undispatched instructions, oldest first
func (r *Repository) PendingTransfers(ctx context.Context, limit int) ([]models.TransferInstruction, error) {
	var transfers []models.TransferInstruction
	err := r.conn(ctx).
		Where("status = ?", models.TransferPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&transfers).Error
	return transfers, err
}

// MarkTransferDispatched flags an instruction as handed to the settler
func (r *Repository) MarkTransferDispatched(ctx context.Context, id string, at time.Time) error {
	return r.conn(ctx).Model(&models.TransferInstruction{}).
		Where("id = ? AND status = ?", id, models.TransferPending).
		Updates(map[string]interface{}{
			"status":        models.TransferDispatched,
			"dispatched_at": at,
			"attempts":      gorm.Expr("attempts + 1"),
			"last_error":    "",
		}).Error
}

// MarkTransferAttemptFailed records a failed attempt. After maxAttempts the
// instruction is parked as failed for manual follow-up.
func (r *Repository) MarkTransferAttemptFailed(ctx context.Context, id string, cause string, maxAttempts int) error {
	return r.conn(ctx).Model(&models.TransferInstruction{}).
		Where("id = ? AND status = ?", id, models.TransferPending).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": cause,
			"status": gorm.Expr("CASE WHEN attempts + 1 >= ? THEN ? ELSE status END",
				maxAttempts, string(models.TransferFailed)),
		}).Error
}

// ListTransfers returns instructions for a market, newest first
func (r *Repository) ListTransfers(ctx context.Context, marketID string) ([]models.TransferInstruction, error) {
	var transfers []models.TransferInstruction
	err := r.conn(ctx).Where("market_id = ?", marketID).Order("created_at DESC").Find(&transfers).Error
	return transfers, err
}
