package database

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"amm-market/internal/config"
	"amm-market/internal/models"
)

// Connect opens the configured database. DB_DRIVER selects postgres (default)
// or sqlite, the latter for local runs.
func Connect(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.Database.Path)
	case "postgres", "":
		dialector = postgres.Open(cfg.GetDSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Error),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info("database connection established", zap.String("driver", db.Dialector.Name()))
	return db, nil
}

// AutoMigrate runs automatic migrations for all models
func AutoMigrate(db *gorm.DB, log *zap.Logger) error {
	groups := []struct {
		name   string
		models []interface{}
	}{
		{"market", []interface{}{
			&models.Market{},
			&models.ShareBalance{},
			&models.MarketOrder{},
		}},
		{"settlement", []interface{}{
			&models.TransferInstruction{},
			&models.EscrowAccount{},
		}},
		{"registry", []interface{}{
			&models.RegistryAdmin{},
			&models.RegistryMarket{},
			&models.RegistrySlot{},
			&models.RegistryStats{},
			&models.RegistryWallet{},
			&models.RegistryIncentive{},
		}},
	}

	for _, g := range groups {
		if err := db.AutoMigrate(g.models...); err != nil {
			return fmt.Errorf("migrate %s models: %w", g.name, err)
		}
		log.Debug("migrated models", zap.String("group", g.name), zap.Int("tables", len(g.models)))
	}

	log.Info("database migrations completed")
	return nil
}
