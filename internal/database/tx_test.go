package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"amm-market/internal/fixedpoint"
	"amm-market/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db, zap.NewNop()))
	return db
}

func TestInTxRollsBackJoinedWrites(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	boom := errors.New("collaborator failed")

	err := InTx(ctx, db, func(ctx context.Context) error {
		require.True(t, InTransaction(ctx))
		if err := Conn(ctx, db).Create(&models.EscrowAccount{MarketID: "m1", Denom: "usdc", Balance: fixedpoint.New(5)}).Error; err != nil {
			return err
		}
		// A nested call joins the outer transaction instead of committing on its own.
		return InTx(ctx, db, func(ctx context.Context) error {
			if err := Conn(ctx, db).Create(&models.EscrowAccount{MarketID: "m2", Denom: "usdc"}).Error; err != nil {
				return err
			}
			return boom
		})
	})
	assert.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, db.Model(&models.EscrowAccount{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestInTxCommits(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, InTx(ctx, db, func(ctx context.Context) error {
		return Conn(ctx, db).Create(&models.EscrowAccount{MarketID: "m1", Denom: "usdc", Balance: fixedpoint.New(42)}).Error
	}))

	var got models.EscrowAccount
	require.NoError(t, db.First(&got, "market_id = ?", "m1").Error)
	assert.Equal(t, uint64(42), got.Balance.Uint64())
	assert.False(t, InTransaction(ctx))
}
