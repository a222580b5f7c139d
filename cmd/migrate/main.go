package main

import (
	"log"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"amm-market/internal/config"
	"amm-market/internal/database"
	"amm-market/internal/logger"
)

// migrate creates the schema and then applies any SQL files named on the
// command line, in order.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck

	db, err := database.Connect(cfg, zlog)
	if err != nil {
		zlog.Fatal("connect", zap.Error(err))
	}
	if err := database.AutoMigrate(db, zlog); err != nil {
		zlog.Fatal("auto migrate", zap.Error(err))
	}

	for _, path := range os.Args[1:] {
		sqlBytes, err := os.ReadFile(path)
		if err != nil {
			zlog.Fatal("read migration", zap.String("file", path), zap.Error(err))
		}
		zlog.Info("applying migration", zap.String("file", filepath.Base(path)))
		if err := db.Exec(string(sqlBytes)).Error; err != nil {
			zlog.Fatal("apply migration", zap.String("file", path), zap.Error(err))
		}
	}

	zlog.Info("migrations applied", zap.Int("files", len(os.Args)-1))
}
