// Package backup exports and restores the whole terminal state as one JSON document.
package backup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"trade-analytics-terminal/internal/models"
)

// Version is the current snapshot format.
const Version = 1

// ErrInvalidBackup is returned when a snapshot cannot be restored.
var ErrInvalidBackup = errors.New("invalid backup")

// Snapshot is the backup document. MarketPrices is keyed by product::contract.
type Snapshot struct {
	Version            int                `json:"version"`
	ExportedAt         Timestamp          `json:"exported_at"`
	Trades             []TradeRecord      `json:"trades"`
	MarketPrices       map[string]float64 `json:"market_prices"`
	ExternalMarketData *DailyRecord       `json:"external_market_data,omitempty"`
}

// TradeRecord is a journal entry as written to a backup.
type TradeRecord struct {
	ID       string             `json:"id"`
	Date     Timestamp          `json:"date"`
	Trader   string             `json:"trader"`
	Product  string             `json:"product"`
	Contract string             `json:"contract"`
	Quantity float64            `json:"quantity"`
	Price    float64            `json:"price"`
	Status   models.TradeStatus `json:"status"`
	Type     models.TradeType   `json:"type"`
}

// DailyRecord is a daily market package as written to a backup.
type DailyRecord struct {
	Date      string             `json:"date"`
	Prices    map[string]float64 `json:"prices"`
	NewsText  string             `json:"news_text"`
	CreatedAt Timestamp          `json:"created_at"`
}

// RestoreResult counts what a restore wrote.
type RestoreResult struct {
	Trades       int  `json:"trades"`
	MarketPrices int  `json:"market_prices"`
	DailyPackage bool `json:"daily_package"`
}

// Service exports and restores snapshots.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService creates a new backup Service.
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger.Named("backup")}
}

// Export captures every trade, every price and the latest daily package.
func (s *Service) Export(ctx context.Context) (*Snapshot, error) {
	db := s.db.WithContext(ctx)
	snap := &Snapshot{
		Version:      Version,
		ExportedAt:   Timestamp{time.Now().UTC()},
		Trades:       []TradeRecord{},
		MarketPrices: map[string]float64{},
	}

	var trades []models.Trade
	if err := db.Order("date asc").Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to export trades: %w", err)
	}
	for _, t := range trades {
		snap.Trades = append(snap.Trades, TradeRecord{
			ID:       t.ID,
			Date:     Timestamp{t.Date.UTC()},
			Trader:   t.Trader,
			Product:  t.Product,
			Contract: t.Contract,
			Quantity: t.Quantity,
			Price:    t.Price,
			Status:   t.Status,
			Type:     t.Type,
		})
	}

	var prices []models.MarketPrice
	if err := db.Find(&prices).Error; err != nil {
		return nil, fmt.Errorf("failed to export prices: %w", err)
	}
	for _, p := range prices {
		snap.MarketPrices[models.ScopedKey(p.Product, p.Contract)] = p.Price
	}

	var pkg models.DailyPackage
	err := db.Order("created_at desc").First(&pkg).Error
	switch {
	case err == nil:
		snap.ExternalMarketData = &DailyRecord{
			Date:      pkg.Date,
			Prices:    pkg.Prices,
			NewsText:  pkg.NewsText,
			CreatedAt: Timestamp{pkg.CreatedAt.UTC()},
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("failed to export daily package: %w", err)
	}

	s.logger.Info("Exported backup", zap.Int("trades", len(snap.Trades)), zap.Int("prices", len(snap.MarketPrices)))
	return snap, nil
}

// Restore replaces trades and prices with the snapshot's in one transaction.
// A daily package in the snapshot replaces the package of its date.
func (s *Service) Restore(ctx context.Context, snap *Snapshot) (RestoreResult, error) {
	if snap == nil || (snap.Trades == nil && snap.MarketPrices == nil) {
		return RestoreResult{}, fmt.Errorf("%w: no trades or market_prices", ErrInvalidBackup)
	}
	if snap.Version > Version {
		return RestoreResult{}, fmt.Errorf("%w: unsupported version %d", ErrInvalidBackup, snap.Version)
	}

	trades, err := normalizeTrades(snap.Trades)
	if err != nil {
		return RestoreResult{}, err
	}
	prices := make([]models.MarketPrice, 0, len(snap.MarketPrices))
	now := time.Now().UTC()
	for key, px := range snap.MarketPrices {
		product, contract, scoped := strings.Cut(key, "::")
		if !scoped {
			product, contract = models.GenericProduct, key
		}
		prices = append(prices, models.MarketPrice{
			ID:        models.ScopedKey(product, contract),
			Product:   product,
			Contract:  contract,
			Price:     px,
			UpdatedAt: now,
		})
	}

	res := RestoreResult{Trades: len(trades), MarketPrices: len(prices)}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		if err := all.Delete(&models.Trade{}).Error; err != nil {
			return fmt.Errorf("failed to clear trades: %w", err)
		}
		if err := all.Delete(&models.MarketPrice{}).Error; err != nil {
			return fmt.Errorf("failed to clear prices: %w", err)
		}
		if len(trades) > 0 {
			if err := tx.CreateInBatches(&trades, 200).Error; err != nil {
				return fmt.Errorf("failed to restore trades: %w", err)
			}
		}
		if len(prices) > 0 {
			if err := tx.CreateInBatches(&prices, 200).Error; err != nil {
				return fmt.Errorf("failed to restore prices: %w", err)
			}
		}

		if pkg := snap.ExternalMarketData; pkg != nil && pkg.Date != "" && len(pkg.Prices) > 0 {
			restored := models.DailyPackage{
				ID:        "daily_" + pkg.Date,
				Date:      pkg.Date,
				Prices:    pkg.Prices,
				NewsText:  pkg.NewsText,
				CreatedAt: pkg.CreatedAt.UTC(),
			}
			if err := tx.Where("date = ?", pkg.Date).Delete(&models.DailyPackage{}).Error; err != nil {
				return fmt.Errorf("failed to replace daily package: %w", err)
			}
			if err := tx.Create(&restored).Error; err != nil {
				return fmt.Errorf("failed to restore daily package: %w", err)
			}
			res.DailyPackage = true
		}
		return nil
	})
	if err != nil {
		return RestoreResult{}, err
	}

	s.logger.Warn("Restored backup", zap.Int("trades", res.Trades), zap.Int("prices", res.MarketPrices))
	return res, nil
}

// normalizeTrades validates the records and fills in defaults. Dates are
// stored in UTC like every other journal write.
func normalizeTrades(in []TradeRecord) ([]models.Trade, error) {
	seen := make(map[string]struct{}, len(in))
	out := make([]models.Trade, 0, len(in))
	for i, r := range in {
		t := models.Trade{
			ID:       r.ID,
			Date:     r.Date.UTC(),
			Trader:   r.Trader,
			Product:  r.Product,
			Contract: r.Contract,
			Quantity: r.Quantity,
			Price:    r.Price,
			Status:   r.Status,
			Type:     r.Type,
		}
		if t.Trader == "" || t.Product == "" || t.Contract == "" {
			return nil, fmt.Errorf("%w: trade %d is missing trader, product or contract", ErrInvalidBackup, i)
		}
		if strings.Contains(t.Trader, "-") || strings.Contains(t.Product, "-") {
			return nil, fmt.Errorf("%w: trade %d has a dash in trader or product", ErrInvalidBackup, i)
		}
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if _, dup := seen[t.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate trade id %s", ErrInvalidBackup, t.ID)
		}
		seen[t.ID] = struct{}{}
		if t.Status == "" {
			t.Status = models.TradeStatusActive
		}
		if t.Type == "" {
			t.Type = models.TradeTypeRegular
		}
		if r.Date.IsZero() {
			t.Date = time.Now().UTC()
		}
		out = append(out, t)
	}
	return out, nil
}
