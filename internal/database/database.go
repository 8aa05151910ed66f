package database

import (
	"fmt"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"trade-analytics-terminal/internal/config"
	"trade-analytics-terminal/internal/models"
)

// NewDatabase creates a new database connection and performs auto-migration.
func NewDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(cfg.Database.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Every connection to an in-memory sqlite database sees its own empty
	// database, so the pool is pinned to one connection.
	if strings.Contains(cfg.Database.DSN, ":memory:") {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := AutoMigrate(db, cfg); err != nil {
		return nil, err
	}

	return db, nil
}

// AutoMigrate creates or updates the tables and seeds the default settings row.
// Existing journal data is never dropped.
func AutoMigrate(db *gorm.DB, cfg *config.Config) error {
	if err := db.AutoMigrate(&models.Trade{}, &models.Settings{}, &models.MarketPrice{}, &models.DailyPackage{}); err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	d := cfg.Defaults
	seed := models.Settings{
		ID:                  models.DefaultSettingsID,
		BrentFeePerBbl:      d.BrentFeePerBbl,
		GasFeePerMMBtu:      d.GasFeePerMMBtu,
		ExchangeRateRMB:     d.ExchangeRateRMB,
		InitialRealizedPL:   d.InitialRealizedPL,
		ReconciliationBase:  d.ReconciliationBase,
		ReconciliationOther: d.ReconciliationOther,
		TTFMultiplier:       d.TTFMultiplier,
	}
	if err := db.FirstOrCreate(&seed, models.Settings{ID: models.DefaultSettingsID}).Error; err != nil {
		return fmt.Errorf("failed to seed default settings: %w", err)
	}

	return nil
}
