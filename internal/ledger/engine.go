// Package ledger rebuilds positions and realized P&L from the trade journal.
package ledger

import (
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"trade-analytics-terminal/internal/models"
)

const (
	// quantityEpsilon is the size below which a position counts as flat.
	quantityEpsilon = 0.0001
	// defaultMultiplier applies to products missing from the catalogue.
	defaultMultiplier = 1000
	// ttfProduct is scaled by the TTF multiplier setting on top of its base.
	ttfProduct   = "TTF"
	brentProduct = "Brent"
)

// Position is the open exposure of one trader in one contract.
// TotalValue is the sum of quantity*price over the open lots.
type Position struct {
	Key        string  `json:"key"`
	Trader     string  `json:"trader"`
	Product    string  `json:"product"`
	Contract   string  `json:"contract"`
	Quantity   float64 `json:"quantity"`
	TotalValue float64 `json:"total_value"`
	AvgPrice   float64 `json:"avg_price"`
}

// ClosedTrade records the realized result of closing part or all of a position.
type ClosedTrade struct {
	Date           time.Time `json:"date"`
	Trader         string    `json:"trader"`
	Product        string    `json:"product"`
	Contract       string    `json:"contract"`
	ClosedQuantity float64   `json:"closed_quantity"`
	OpenPrice      float64   `json:"open_price"`
	ClosePrice     float64   `json:"close_price"`
	RealizedPL     float64   `json:"realized_pl"`
	Multiplier     float64   `json:"multiplier"`
	Fee            float64   `json:"fee"`
}

// Engine replays trades into positions using average cost.
type Engine struct {
	logger      *zap.Logger
	multipliers map[string]float64
}

// NewEngine creates a new Engine with base contract multipliers per product.
func NewEngine(logger *zap.Logger, multipliers map[string]float64) *Engine {
	return &Engine{
		logger:      logger.Named("ledger"),
		multipliers: multipliers,
	}
}

// Rebuild replays the active trades in date order and returns the open
// positions together with the closes realized along the way.
func (e *Engine) Rebuild(trades []models.Trade, settings models.Settings) ([]Position, []ClosedTrade) {
	active := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if t.Status == models.TradeStatusActive {
			active = append(active, t)
		}
	}
	sort.SliceStable(active, func(i, j int) bool { return active[i].Date.Before(active[j].Date) })

	open := make(map[string]*Position)
	var order []string
	var history []ClosedTrade

	for _, trade := range active {
		key := trade.PositionKey()
		pos, ok := open[key]
		if !ok {
			pos = &Position{
				Key:      key,
				Trader:   trade.Trader,
				Product:  trade.Product,
				Contract: trade.Contract,
			}
			open[key] = pos
			order = append(order, key)
		}

		reducing := pos.Quantity != 0 && pos.Quantity*trade.Quantity < 0
		if !reducing || trade.Type != models.TradeTypeRegular {
			pos.TotalValue += trade.Quantity * trade.Price
			pos.Quantity += trade.Quantity
			continue
		}

		multiplier := e.Multiplier(trade.Product, settings.TTFMultiplier)
		closeQty := math.Min(math.Abs(pos.Quantity), math.Abs(trade.Quantity))
		direction := 1.0
		if pos.Quantity < 0 {
			direction = -1
		}
		avgPrice := pos.TotalValue / pos.Quantity

		gross := (trade.Price - avgPrice) * closeQty * direction * multiplier
		fee := RoundTripFee(closeQty, multiplier, FeeRate(trade.Product, settings))

		history = append(history, ClosedTrade{
			Date:           trade.Date,
			Trader:         trade.Trader,
			Product:        trade.Product,
			Contract:       trade.Contract,
			ClosedQuantity: -closeQty * direction,
			OpenPrice:      avgPrice,
			ClosePrice:     trade.Price,
			RealizedPL:     gross - fee,
			Multiplier:     multiplier,
			Fee:            fee,
		})

		// Keep the cost of the lots that stay open. A flip leaves the
		// residual opposite quantity with zero cost.
		if remaining := math.Abs(pos.Quantity) - closeQty; remaining > quantityEpsilon {
			pos.TotalValue *= remaining / math.Abs(pos.Quantity)
		} else {
			pos.TotalValue = 0
		}
		pos.Quantity += trade.Quantity
	}

	positions := make([]Position, 0, len(order))
	for _, key := range order {
		p := *open[key]
		if math.Abs(p.Quantity) <= quantityEpsilon {
			continue
		}
		p.AvgPrice = p.TotalValue / p.Quantity
		positions = append(positions, p)
	}

	e.logger.Debug("Rebuilt positions",
		zap.Int("trades", len(active)),
		zap.Int("positions", len(positions)),
		zap.Int("closes", len(history)),
	)
	return positions, history
}

// Multiplier returns the contract multiplier of a product. TTF is scaled by
// the TTF multiplier setting.
func (e *Engine) Multiplier(product string, ttfMultiplier float64) float64 {
	base, ok := e.multipliers[product]
	if !ok || base == 0 {
		base = defaultMultiplier
	}
	if product == ttfProduct {
		return base * ttfMultiplier
	}
	return base
}

// FeeRate returns the per-unit fee of a product: Brent uses the per-barrel
// fee, every gas product the per-MMBtu fee.
func FeeRate(product string, settings models.Settings) float64 {
	if product == brentProduct {
		return settings.BrentFeePerBbl
	}
	return settings.GasFeePerMMBtu
}

// FloatingPnL marks a position to mtm, net of the fee to close it.
func (e *Engine) FloatingPnL(pos Position, mtm float64, settings models.Settings) float64 {
	multiplier := e.Multiplier(pos.Product, settings.TTFMultiplier)
	gross := (mtm*pos.Quantity - pos.TotalValue) * multiplier
	return gross - TradeFee(pos.Quantity, multiplier, FeeRate(pos.Product, settings))
}

// TotalFloating sums FloatingPnL over positions, marking each at its book
// price or, when none is known, at its average price.
func (e *Engine) TotalFloating(positions []Position, book PriceBook, settings models.Settings) float64 {
	total := 0.0
	for _, pos := range positions {
		total += e.FloatingPnL(pos, book.MarkFor(pos), settings)
	}
	return total
}

// Shock is a uniform price move per product family.
type Shock struct {
	Brent float64 `json:"brent"`
	Gas   float64 `json:"gas"`
	TTF   float64 `json:"ttf"`
}

// StressChange returns the P&L change of the positions under the shock.
// Henry Hub and JKM move with the gas delta, unknown products with TTF.
func (e *Engine) StressChange(positions []Position, shock Shock, settings models.Settings) float64 {
	total := 0.0
	for _, p := range positions {
		var delta float64
		switch p.Product {
		case brentProduct:
			delta = shock.Brent
		case "Henry Hub", "JKM":
			delta = shock.Gas
		default:
			delta = shock.TTF
		}
		total += delta * p.Quantity * e.Multiplier(p.Product, settings.TTFMultiplier)
	}
	return total
}

// PriceBook maps product::contract keys to mark-to-market prices.
type PriceBook map[string]float64

// Lookup finds the price of a contract, falling back to the generic price
// of the contract code.
func (b PriceBook) Lookup(product, contract string) (float64, bool) {
	if px, ok := b[models.ScopedKey(product, contract)]; ok {
		return px, true
	}
	px, ok := b[models.ScopedKey(models.GenericProduct, contract)]
	return px, ok
}

// MarkFor returns the mark of a position, defaulting to its average price.
func (b PriceBook) MarkFor(pos Position) float64 {
	if px, ok := b.Lookup(pos.Product, pos.Contract); ok {
		return px
	}
	return pos.AvgPrice
}
