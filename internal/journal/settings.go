package journal

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"trade-analytics-terminal/internal/models"
)

// SettingsUpdate carries a partial settings change. Nil fields are left alone.
type SettingsUpdate struct {
	BrentFeePerBbl      *float64 `json:"brent_fee_per_bbl,omitempty"`
	GasFeePerMMBtu      *float64 `json:"gas_fee_per_mmbtu,omitempty"`
	ExchangeRateRMB     *float64 `json:"exchange_rate_rmb,omitempty"`
	InitialRealizedPL   *float64 `json:"initial_realized_pl,omitempty"`
	ReconciliationBase  *float64 `json:"reconciliation_base,omitempty"`
	ReconciliationOther *float64 `json:"reconciliation_other,omitempty"`
	TTFMultiplier       *float64 `json:"ttf_multiplier,omitempty"`
}

func (u SettingsUpdate) apply(s *models.Settings) {
	set := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	set(&s.BrentFeePerBbl, u.BrentFeePerBbl)
	set(&s.GasFeePerMMBtu, u.GasFeePerMMBtu)
	set(&s.ExchangeRateRMB, u.ExchangeRateRMB)
	set(&s.InitialRealizedPL, u.InitialRealizedPL)
	set(&s.ReconciliationBase, u.ReconciliationBase)
	set(&s.ReconciliationOther, u.ReconciliationOther)
	set(&s.TTFMultiplier, u.TTFMultiplier)
}

// SettingsStore reads and writes the singleton settings row.
type SettingsStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSettingsStore creates a new SettingsStore.
func NewSettingsStore(db *gorm.DB, logger *zap.Logger) *SettingsStore {
	return &SettingsStore{db: db, logger: logger.Named("settings")}
}

// Load returns the current settings.
func (s *SettingsStore) Load(ctx context.Context) (models.Settings, error) {
	var settings models.Settings
	err := s.db.WithContext(ctx).First(&settings, "id = ?", models.DefaultSettingsID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Settings{}, fmt.Errorf("settings row %q missing, run migrations", models.DefaultSettingsID)
	}
	if err != nil {
		return models.Settings{}, fmt.Errorf("failed to load settings: %w", err)
	}
	return settings, nil
}

// Update applies a partial change and returns the stored result.
func (s *SettingsStore) Update(ctx context.Context, u SettingsUpdate) (models.Settings, error) {
	settings, err := s.Load(ctx)
	if err != nil {
		return models.Settings{}, err
	}
	u.apply(&settings)

	if err := s.db.WithContext(ctx).Save(&settings).Error; err != nil {
		return models.Settings{}, fmt.Errorf("failed to save settings: %w", err)
	}
	s.logger.Info("Updated settings",
		zap.Float64("exchange_rate_rmb", settings.ExchangeRateRMB),
		zap.Float64("initial_realized_pl", settings.InitialRealizedPL),
	)
	return settings, nil
}
