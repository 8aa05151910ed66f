// Package market stores mark-to-market prices and daily market packages.
package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"trade-analytics-terminal/internal/ledger"
	"trade-analytics-terminal/internal/models"
)

var (
	// ErrInvalidPrices is returned when an MTM import is not a JSON object of prices.
	ErrInvalidPrices = errors.New("invalid price data")
	// ErrInvalidPackage is returned when a daily package lacks its date or prices.
	ErrInvalidPackage = errors.New("invalid daily package")
	// ErrNoDailyPackage is returned when no daily package was ever imported.
	ErrNoDailyPackage = errors.New("no daily package imported")
)

// wrapperKey is the optional envelope some exports put around the price map.
const wrapperKey = "marketPrices"

// Service reads and writes market prices.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService creates a new market data Service.
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger.Named("market")}
}

// GetMTM returns the price for product and contract, falling back to the
// GENERIC price of the contract. ok is false when neither exists.
func (s *Service) GetMTM(ctx context.Context, product, contract string) (price float64, ok bool, err error) {
	for _, p := range []string{product, models.GenericProduct} {
		var mp models.MarketPrice
		err := s.db.WithContext(ctx).First(&mp, "id = ?", models.ScopedKey(p, contract)).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return 0, false, fmt.Errorf("failed to get price %s::%s: %w", p, contract, err)
		}
		return mp.Price, true, nil
	}
	return 0, false, nil
}

// SetMTM inserts or replaces the price of product and contract.
func (s *Service) SetMTM(ctx context.Context, product, contract string, price float64) (*models.MarketPrice, error) {
	if strings.TrimSpace(product) == "" || strings.TrimSpace(contract) == "" {
		return nil, fmt.Errorf("%w: product and contract are required", ErrInvalidPrices)
	}
	mp := newPrice(product, contract, price)
	if err := upsert(s.db.WithContext(ctx), []models.MarketPrice{mp}); err != nil {
		return nil, err
	}
	return &mp, nil
}

func newPrice(product, contract string, price float64) models.MarketPrice {
	return models.MarketPrice{
		ID:        models.ScopedKey(product, contract),
		Product:   product,
		Contract:  contract,
		Price:     price,
		UpdatedAt: time.Now().UTC(),
	}
}

func upsert(db *gorm.DB, prices []models.MarketPrice) error {
	if len(prices) == 0 {
		return nil
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"price", "updated_at"}),
	}).Create(&prices).Error
	if err != nil {
		return fmt.Errorf("failed to upsert %d prices: %w", len(prices), err)
	}
	return nil
}

// Prices lists stored prices, optionally filtered by product and contract.
func (s *Service) Prices(ctx context.Context, product, contract string) ([]models.MarketPrice, error) {
	q := s.db.WithContext(ctx).Model(&models.MarketPrice{})
	if product != "" {
		q = q.Where("product = ?", product)
	}
	if contract != "" {
		q = q.Where("contract = ?", contract)
	}
	var prices []models.MarketPrice
	if err := q.Order("product, contract").Find(&prices).Error; err != nil {
		return nil, fmt.Errorf("failed to list prices: %w", err)
	}
	return prices, nil
}

// PriceMap loads every stored price into a ledger price book.
func (s *Service) PriceMap(ctx context.Context) (ledger.PriceBook, error) {
	prices, err := s.Prices(ctx, "", "")
	if err != nil {
		return nil, err
	}
	book := make(ledger.PriceBook, len(prices))
	for _, p := range prices {
		book[models.ScopedKey(p.Product, p.Contract)] = p.Price
	}
	return book, nil
}

// ImportMTM stores the prices in data and returns how many were written.
// Accepted shapes, mixed freely and optionally wrapped in "marketPrices":
//
//	{"Brent": {"2605": 85.5}}
//	{"Brent::2605": 85.5}
//	{"2605": 85.5}              // GENERIC
func (s *Service) ImportMTM(ctx context.Context, data map[string]any) (int, error) {
	if inner, ok := data[wrapperKey].(map[string]any); ok {
		data = inner
	}

	var prices []models.MarketPrice
	for key, value := range data {
		if nested, ok := value.(map[string]any); ok {
			for contract, raw := range nested {
				px, err := toFloat(raw)
				if err != nil {
					return 0, fmt.Errorf("%w: %s::%s: %v", ErrInvalidPrices, key, contract, err)
				}
				prices = append(prices, newPrice(key, contract, px))
			}
			continue
		}

		px, err := toFloat(value)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrInvalidPrices, key, err)
		}
		if product, contract, scoped := strings.Cut(key, "::"); scoped {
			prices = append(prices, newPrice(product, contract, px))
		} else {
			prices = append(prices, newPrice(models.GenericProduct, key, px))
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return upsert(tx, prices)
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("Imported market prices", zap.Int("count", len(prices)))
	return len(prices), nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0, fmt.Errorf("unsupported price value %v", v)
	}
}

// DailyPackageInput is an imported daily_data.json document.
type DailyPackageInput struct {
	Date     string             `json:"date"`
	Prices   map[string]float64 `json:"prices"`
	NewsText string             `json:"news_text"`
}

// ImportDailyPackage stores a daily package, replacing any package of the same date.
func (s *Service) ImportDailyPackage(ctx context.Context, in DailyPackageInput) (*models.DailyPackage, error) {
	if strings.TrimSpace(in.Date) == "" || len(in.Prices) == 0 {
		return nil, fmt.Errorf("%w: date and prices are required", ErrInvalidPackage)
	}

	pkg := models.DailyPackage{
		ID:       "daily_" + in.Date,
		Date:     in.Date,
		Prices:   in.Prices,
		NewsText: in.NewsText,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("date = ?", in.Date).Delete(&models.DailyPackage{}).Error; err != nil {
			return fmt.Errorf("failed to replace daily package %s: %w", in.Date, err)
		}
		if err := tx.Create(&pkg).Error; err != nil {
			return fmt.Errorf("failed to store daily package %s: %w", in.Date, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Imported daily package", zap.String("date", pkg.Date), zap.Int("prices", len(pkg.Prices)))
	return &pkg, nil
}

// LatestDailyPackage returns the most recently imported daily package.
func (s *Service) LatestDailyPackage(ctx context.Context) (*models.DailyPackage, error) {
	var pkg models.DailyPackage
	err := s.db.WithContext(ctx).Order("created_at desc").First(&pkg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoDailyPackage
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest daily package: %w", err)
	}
	return &pkg, nil
}

// Clear deletes every stored price.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.MarketPrice{}).Error; err != nil {
		return fmt.Errorf("failed to clear prices: %w", err)
	}
	s.logger.Warn("Cleared market prices")
	return nil
}
