// Package journal persists the trade journal the ledger is rebuilt from.
package journal

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
	"trade-analytics-terminal/internal/parser"
)

// DefaultLimit caps List when the caller gives no limit.
const DefaultLimit = 500

var (
	// ErrTradeNotFound is returned when a trade id or position key has no active trade.
	ErrTradeNotFound = errors.New("trade not found")
	// ErrInvalidTrade is returned for trades missing a field or with zero quantity.
	ErrInvalidTrade = errors.New("invalid trade")
)

// NewTrade is the input for recording a trade.
type NewTrade struct {
	Trader   string           `json:"trader"`
	Product  string           `json:"product"`
	Contract string           `json:"contract"`
	Quantity float64          `json:"quantity"`
	Price    float64          `json:"price"`
	Type     models.TradeType `json:"type,omitempty"`
	// Date defaults to the time of recording.
	Date *time.Time `json:"date,omitempty"`
}

func (n NewTrade) validate() error {
	switch {
	case strings.TrimSpace(n.Trader) == "":
		return fmt.Errorf("%w: trader is required", ErrInvalidTrade)
	case strings.TrimSpace(n.Product) == "":
		return fmt.Errorf("%w: product is required", ErrInvalidTrade)
	case strings.TrimSpace(n.Contract) == "":
		return fmt.Errorf("%w: contract is required", ErrInvalidTrade)
	case strings.Contains(n.Trader, "-") || strings.Contains(n.Product, "-"):
		return fmt.Errorf("%w: trader and product must not contain %q", ErrInvalidTrade, "-")
	case n.Quantity == 0:
		return fmt.Errorf("%w: quantity must not be zero", ErrInvalidTrade)
	case n.Type != "" && n.Type != models.TradeTypeRegular && n.Type != models.TradeTypeAdjustment:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidTrade, n.Type)
	}
	return nil
}

// Journal records, lists and reverses trades.
type Journal struct {
	db     *gorm.DB
	logger *zap.Logger
	parser *parser.Parser
	now    func() time.Time
}

// NewJournal creates a new Journal.
func NewJournal(db *gorm.DB, logger *zap.Logger, p *parser.Parser) *Journal {
	return &Journal{
		db:     db,
		logger: logger.Named("journal"),
		parser: p,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (j *Journal) build(n NewTrade) (models.Trade, error) {
	if err := n.validate(); err != nil {
		return models.Trade{}, err
	}
	date := j.now()
	if n.Date != nil && !n.Date.IsZero() {
		date = n.Date.UTC()
	}
	tradeType := n.Type
	if tradeType == "" {
		tradeType = models.TradeTypeRegular
	}
	return models.Trade{
		ID:       uuid.NewString(),
		Date:     date,
		Trader:   n.Trader,
		Product:  n.Product,
		Contract: n.Contract,
		Quantity: n.Quantity,
		Price:    n.Price,
		Status:   models.TradeStatusActive,
		Type:     tradeType,
	}, nil
}

// Create records a single trade.
func (j *Journal) Create(ctx context.Context, n NewTrade) (*models.Trade, error) {
	t, err := j.build(n)
	if err != nil {
		return nil, err
	}
	if err := j.db.WithContext(ctx).Create(&t).Error; err != nil {
		return nil, fmt.Errorf("failed to create trade: %w", err)
	}
	j.logger.Info("Recorded trade",
		zap.String("id", t.ID),
		zap.String("key", t.PositionKey()),
		zap.Float64("quantity", t.Quantity),
		zap.Float64("price", t.Price),
	)
	return &t, nil
}

// CreateBatch records all trades or none.
func (j *Journal) CreateBatch(ctx context.Context, batch []NewTrade) ([]models.Trade, error) {
	trades := make([]models.Trade, 0, len(batch))
	for i, n := range batch {
		t, err := j.build(n)
		if err != nil {
			return nil, fmt.Errorf("trade %d: %w", i, err)
		}
		trades = append(trades, t)
	}
	if len(trades) == 0 {
		return trades, nil
	}

	if err := j.db.WithContext(ctx).Create(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to create trade batch: %w", err)
	}
	j.logger.Info("Recorded trade batch", zap.Int("count", len(trades)))
	return trades, nil
}

// ParseResult holds what the parser found and what was recorded from it.
type ParseResult struct {
	Parsed  []parser.ParsedTrade `json:"parsed"`
	Created []models.Trade       `json:"created"`
}

// Parse parses confirmation text without recording anything.
func (j *Journal) Parse(text string) []parser.ParsedTrade {
	return j.parser.ParseText(text)
}

// ParseAndCreate parses confirmation text and records every valid trade.
func (j *Journal) ParseAndCreate(ctx context.Context, text string) (ParseResult, error) {
	parsed := j.parser.ParseText(text)

	var batch []NewTrade
	for _, p := range parsed {
		if !p.Valid || p.Quantity == 0 || p.Price == 0 {
			continue
		}
		batch = append(batch, NewTrade{
			Trader:   p.Trader,
			Product:  p.Product,
			Contract: p.Contract,
			Quantity: p.Quantity,
			Price:    p.Price,
			Type:     models.TradeTypeRegular,
		})
	}

	created, err := j.CreateBatch(ctx, batch)
	if err != nil {
		return ParseResult{Parsed: parsed}, err
	}
	return ParseResult{Parsed: parsed, Created: created}, nil
}

// Reverse soft-deletes a trade by marking it reversed.
func (j *Journal) Reverse(ctx context.Context, id string) error {
	res := j.db.WithContext(ctx).Model(&models.Trade{}).
		Where("id = ?", id).
		Update("status", models.TradeStatusReversed)
	if res.Error != nil {
		return fmt.Errorf("failed to reverse trade %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrTradeNotFound, id)
	}
	j.logger.Info("Reversed trade", zap.String("id", id))
	return nil
}

// ReverseLatest reverses the most recent active trade of a position key
// (trader-product-contract). Trader and product never contain "-", so the
// contract is everything after the second dash.
func (j *Journal) ReverseLatest(ctx context.Context, key string) (*models.Trade, error) {
	parts := strings.SplitN(key, "-", 3)
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: malformed position key %q", ErrTradeNotFound, key)
	}

	var t models.Trade
	err := j.db.WithContext(ctx).
		Where("trader = ? AND product = ? AND contract = ? AND status = ?", parts[0], parts[1], parts[2], models.TradeStatusActive).
		Order("date desc").
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: no active trade for %s", ErrTradeNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find latest trade for %s: %w", key, err)
	}

	if err := j.Reverse(ctx, t.ID); err != nil {
		return nil, err
	}
	t.Status = models.TradeStatusReversed
	return &t, nil
}

// Filter narrows List.
type Filter struct {
	Status models.TradeStatus
	Since  time.Time
	Search string
	Skip   int
	Limit  int
}

// List returns trades newest first.
func (j *Journal) List(ctx context.Context, f Filter) ([]models.Trade, error) {
	q := j.db.WithContext(ctx).Model(&models.Trade{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if !f.Since.IsZero() {
		q = q.Where("date >= ?", f.Since)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(trader) LIKE ? OR LOWER(product) LIKE ? OR LOWER(contract) LIKE ? OR LOWER(status) LIKE ?", like, like, like, like)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	var trades []models.Trade
	if err := q.Order("date desc").Offset(f.Skip).Limit(limit).Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	return trades, nil
}

// Active returns the active trades on or after since, oldest first.
// A zero since returns all of them.
func (j *Journal) Active(ctx context.Context, since time.Time) ([]models.Trade, error) {
	q := j.db.WithContext(ctx).Where("status = ?", models.TradeStatusActive)
	if !since.IsZero() {
		q = q.Where("date >= ?", since)
	}
	var trades []models.Trade
	if err := q.Order("date asc").Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to load active trades: %w", err)
	}
	return trades, nil
}

// Clear deletes every trade.
func (j *Journal) Clear(ctx context.Context) error {
	if err := j.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Trade{}).Error; err != nil {
		return fmt.Errorf("failed to clear trades: %w", err)
	}
	j.logger.Warn("Cleared trade journal")
	return nil
}
