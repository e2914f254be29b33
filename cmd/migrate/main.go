package main

import (
	"flag"

	"go.uber.org/zap"

	"github.com/pageza/mealplanner/backend/config"
	"github.com/pageza/mealplanner/backend/internal/database"
	"github.com/pageza/mealplanner/backend/internal/logger"
)

func main() {
	rollback := flag.Bool("rollback", false, "Rollback the last migration")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		zap.NewExample().Fatal("Failed to load configuration", zap.Error(err))
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: "console"})
	defer func() { _ = log.Sync() }()

	db, err := database.Open(cfg, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()

	if !*rollback {
		if err := database.RunMigrations(db, log); err != nil {
			log.Fatal("Migration failed", zap.Error(err))
		}
		return
	}

	if db.Dialector.Name() != "postgres" {
		log.Fatal("Rollback is only supported on postgres")
	}
	m, err := database.NewMigrator(db, log)
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := m.Down(); err != nil {
		log.Fatal("Rollback failed", zap.Error(err))
	}
}
