package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trade-analytics-terminal/internal/models"
)

var testMultipliers = map[string]float64{
	"Brent":     1000,
	"Henry Hub": 10000,
	"JKM":       10000,
	"TTF":       10000,
}

var day0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newTestEngine() *Engine {
	return NewEngine(zap.NewNop(), testMultipliers)
}

func trade(id string, offset time.Duration, trader, product, contract string, qty, price float64) models.Trade {
	return models.Trade{
		ID:       id,
		Date:     day0.Add(offset),
		Trader:   trader,
		Product:  product,
		Contract: contract,
		Quantity: qty,
		Price:    price,
		Status:   models.TradeStatusActive,
		Type:     models.TradeTypeRegular,
	}
}

func TestRebuild_PartialClose(t *testing.T) {
	// Arrange
	e := newTestEngine()
	settings := models.Settings{BrentFeePerBbl: 0.01, TTFMultiplier: 3412}
	trades := []models.Trade{
		// Out of order on purpose: the engine sorts by date.
		trade("t2", time.Hour, "W", "Brent", "2605", -4, 85),
		trade("t1", 0, "W", "Brent", "2605", 10, 80),
	}

	// Act
	positions, history := e.Rebuild(trades, settings)

	// Assert
	require.Len(t, positions, 1)
	pos := positions[0]
	assert.Equal(t, "W-Brent-2605", pos.Key)
	assert.InDelta(t, 6, pos.Quantity, 1e-9)
	assert.InDelta(t, 480, pos.TotalValue, 1e-9)
	assert.InDelta(t, 80, pos.AvgPrice, 1e-9)

	require.Len(t, history, 1)
	h := history[0]
	assert.InDelta(t, -4, h.ClosedQuantity, 1e-9)
	assert.InDelta(t, 80, h.OpenPrice, 1e-9)
	assert.InDelta(t, 85, h.ClosePrice, 1e-9)
	assert.InDelta(t, 80, h.Fee, 1e-9)
	assert.InDelta(t, 19920, h.RealizedPL, 1e-6)
	assert.Equal(t, 1000.0, h.Multiplier)
	assert.Equal(t, day0.Add(time.Hour), h.Date)
}

func TestRebuild_ShortFullyClosed(t *testing.T) {
	e := newTestEngine()
	trades := []models.Trade{
		trade("t1", 0, "D", "Henry Hub", "HH2601", -10, 3),
		trade("t2", time.Minute, "D", "Henry Hub", "HH2601", 10, 2.5),
	}

	positions, history := e.Rebuild(trades, models.Settings{})

	assert.Empty(t, positions)
	require.Len(t, history, 1)
	assert.InDelta(t, 10, history[0].ClosedQuantity, 1e-9)
	assert.InDelta(t, 50000, history[0].RealizedPL, 1e-6)
}

func TestRebuild_FlipLeavesZeroCost(t *testing.T) {
	e := newTestEngine()
	trades := []models.Trade{
		trade("t1", 0, "W", "Brent", "2605", 5, 80),
		trade("t2", time.Minute, "W", "Brent", "2605", -8, 90),
	}

	positions, history := e.Rebuild(trades, models.Settings{})

	require.Len(t, history, 1)
	assert.InDelta(t, 50000, history[0].RealizedPL, 1e-6)
	require.Len(t, positions, 1)
	assert.InDelta(t, -3, positions[0].Quantity, 1e-9)
	assert.Equal(t, 0.0, positions[0].TotalValue)
	assert.Equal(t, 0.0, positions[0].AvgPrice)
}

func TestRebuild_AdjustmentAndReversed(t *testing.T) {
	e := newTestEngine()
	adj := trade("t2", time.Minute, "W", "Brent", "2605", -2, 70)
	adj.Type = models.TradeTypeAdjustment
	reversed := trade("t3", 2*time.Minute, "W", "Brent", "2605", -3, 99)
	reversed.Status = models.TradeStatusReversed

	trades := []models.Trade{
		trade("t1", 0, "W", "Brent", "2605", 5, 80),
		adj,
		reversed,
	}

	positions, history := e.Rebuild(trades, models.Settings{})

	assert.Empty(t, history)
	require.Len(t, positions, 1)
	assert.InDelta(t, 3, positions[0].Quantity, 1e-9)
	assert.InDelta(t, 260, positions[0].TotalValue, 1e-9)
}

func TestRebuild_KeepsFirstSeenOrder(t *testing.T) {
	e := newTestEngine()
	trades := []models.Trade{
		trade("t1", 0, "L", "JKM", "2602", 1, 12),
		trade("t2", time.Minute, "W", "Brent", "2605", 1, 80),
		trade("t3", 2*time.Minute, "L", "JKM", "2602", 1, 13),
	}

	positions, _ := e.Rebuild(trades, models.Settings{})

	require.Len(t, positions, 2)
	assert.Equal(t, "L-JKM-2602", positions[0].Key)
	assert.InDelta(t, 12.5, positions[0].AvgPrice, 1e-9)
	assert.Equal(t, "W-Brent-2605", positions[1].Key)
}

func TestMultiplier(t *testing.T) {
	e := newTestEngine()

	assert.Equal(t, 1000.0, e.Multiplier("Brent", 3412))
	assert.Equal(t, 10000.0, e.Multiplier("Henry Hub", 3412))
	assert.Equal(t, 34120000.0, e.Multiplier("TTF", 3412))
	assert.Equal(t, 1000.0, e.Multiplier("Unknown", 3412))
}

func TestFloatingPnL(t *testing.T) {
	e := newTestEngine()
	settings := models.Settings{BrentFeePerBbl: 0.01, GasFeePerMMBtu: 0.002}
	pos := Position{Product: "Brent", Contract: "2605", Quantity: 6, TotalValue: 480, AvgPrice: 80}

	assert.InDelta(t, 59940, e.FloatingPnL(pos, 90, settings), 1e-6)

	gas := Position{Product: "JKM", Contract: "2602", Quantity: -2, TotalValue: -24, AvgPrice: 12}
	// (11*-2 - -24) * 10000 - 2*10000*0.002
	assert.InDelta(t, 19960, e.FloatingPnL(gas, 11, settings), 1e-6)
}

func TestTotalFloating_PriceFallbacks(t *testing.T) {
	e := newTestEngine()
	positions := []Position{
		{Product: "Brent", Contract: "2605", Quantity: 1, TotalValue: 80, AvgPrice: 80},
		{Product: "JKM", Contract: "2602", Quantity: 1, TotalValue: 12, AvgPrice: 12},
		{Product: "Brent", Contract: "2606", Quantity: 1, TotalValue: 81, AvgPrice: 81},
	}
	book := PriceBook{
		"Brent::2605":   82,
		"GENERIC::2602": 12.5,
	}

	// 2*1000 + 0.5*10000 + 0 (marked at average)
	assert.InDelta(t, 7000, e.TotalFloating(positions, book, models.Settings{}), 1e-6)
}

func TestPriceBookLookup(t *testing.T) {
	book := PriceBook{"Brent::2605": 82, "GENERIC::2605": 70, "GENERIC::2606": 71}

	px, ok := book.Lookup("Brent", "2605")
	assert.True(t, ok)
	assert.Equal(t, 82.0, px)

	px, ok = book.Lookup("JKM", "2606")
	assert.True(t, ok)
	assert.Equal(t, 71.0, px)

	_, ok = book.Lookup("JKM", "2607")
	assert.False(t, ok)
}

func TestStressChange(t *testing.T) {
	e := newTestEngine()
	positions := []Position{
		{Product: "Brent", Quantity: 6},
		{Product: "Henry Hub", Quantity: -2},
		{Product: "TTF", Quantity: 1},
	}

	change := e.StressChange(positions, Shock{Brent: 1, Gas: 0.5, TTF: 0.1}, models.Settings{TTFMultiplier: 3412})

	assert.InDelta(t, 3408000, change, 1e-6)
}

func TestFees(t *testing.T) {
	assert.InDelta(t, 40, TradeFee(-4, 1000, 0.01), 1e-9)
	assert.InDelta(t, 80, RoundTripFee(4, 1000, 0.01), 1e-9)
}

func TestLandedCost(t *testing.T) {
	assert.InDelta(t, 2.81673, LandedCost("Brent", 80, 7.13), 1e-4)
	assert.InDelta(t, (3*1.15+4.5)*7.13/28.3, LandedCost("Henry Hub", 3, 7.13), 1e-9)
	assert.Equal(t, 0.0, LandedCost("JKM", 12, 7.13))
}
