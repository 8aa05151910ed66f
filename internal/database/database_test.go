package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-analytics-terminal/internal/config"
	"trade-analytics-terminal/internal/models"
)

func TestNewDatabase(t *testing.T) {
	cfg := &config.Config{
		Database: config.Database{DSN: "file::memory:"},
		Defaults: config.Defaults{ExchangeRateRMB: 7.13, TTFMultiplier: 3412, ReconciliationBase: 156170},
	}

	db, err := NewDatabase(cfg)
	require.NoError(t, err)

	var settings models.Settings
	require.NoError(t, db.First(&settings, "id = ?", models.DefaultSettingsID).Error)
	assert.Equal(t, 7.13, settings.ExchangeRateRMB)
	assert.Equal(t, 3412.0, settings.TTFMultiplier)
	assert.Equal(t, 156170.0, settings.ReconciliationBase)
}

func TestAutoMigrate_KeepsExistingSettings(t *testing.T) {
	cfg := &config.Config{
		Database: config.Database{DSN: "file::memory:"},
		Defaults: config.Defaults{ExchangeRateRMB: 7.13},
	}
	db, err := NewDatabase(cfg)
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.Settings{}).Where("id = ?", models.DefaultSettingsID).Update("exchange_rate_rmb", 6.96).Error)
	require.NoError(t, db.Create(&models.Trade{ID: "t1", Trader: "W", Product: "Brent", Contract: "2605", Quantity: 1, Price: 80}).Error)

	// A second migration must not reset edited settings or drop trades.
	require.NoError(t, AutoMigrate(db, cfg))

	var settings models.Settings
	require.NoError(t, db.First(&settings, "id = ?", models.DefaultSettingsID).Error)
	assert.Equal(t, 6.96, settings.ExchangeRateRMB)

	var count int64
	require.NoError(t, db.Model(&models.Trade{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
