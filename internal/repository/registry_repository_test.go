package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"amm-market/internal/database"
	"amm-market/internal/models"
)

func newTestRepository(t *testing.T) (*Repository, *gorm.DB) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db, zap.NewNop()))
	return NewRepository(db), db
}

func TestSaveAdminStoresInactiveFlag(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveAdmin(ctx, &models.RegistryAdmin{Address: "carol", Active: true, AddedBy: "admin"}))
	ok, err := repo.IsAdmin(ctx, "carol")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.SaveAdmin(ctx, &models.RegistryAdmin{Address: "carol", Active: false, AddedBy: "dave"}))
	ok, err = repo.IsAdmin(ctx, "carol")
	require.NoError(t, err)
	assert.False(t, ok)

	// a first write that is already inactive is not turned into a grant
	require.NoError(t, repo.SaveAdmin(ctx, &models.RegistryAdmin{Address: "erin", Active: false, AddedBy: "admin"}))
	ok, err = repo.IsAdmin(ctx, "erin")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLockStatsCreatesSingleRow(t *testing.T) {
	repo, db := newTestRepository(t)

	err := database.InTx(context.Background(), db, func(ctx context.Context) error {
		stats, err := repo.LockStats(ctx)
		if err != nil {
			return err
		}
		stats.TotalPools = 3
		return repo.SaveStats(ctx, stats)
	})
	require.NoError(t, err)

	err = database.InTx(context.Background(), db, func(ctx context.Context) error {
		stats, err := repo.LockStats(ctx)
		if err != nil {
			return err
		}
		assert.Equal(t, uint64(3), stats.TotalPools)
		return nil
	})
	require.NoError(t, err)

	var rows int64
	require.NoError(t, db.Model(&models.RegistryStats{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}
