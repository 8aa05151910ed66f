package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-analytics-terminal/internal/models"
)

func sampleHistory() []ClosedTrade {
	return []ClosedTrade{
		{Date: day0, Trader: "W", Product: "Brent", RealizedPL: 100},
		{Date: day0.Add(2 * time.Hour), Trader: "L", Product: "JKM", RealizedPL: -50},
		{Date: day0.AddDate(0, 0, 1), Trader: "W", Product: "JKM", RealizedPL: 250},
	}
}

func TestRealizedTotal(t *testing.T) {
	history := sampleHistory()

	assert.InDelta(t, 1300, RealizedTotal(history, 1000, time.Time{}), 1e-9)
	assert.InDelta(t, 250, RealizedTotal(history, 0, day0.AddDate(0, 0, 1)), 1e-9)
	assert.InDelta(t, 500, RealizedTotal(nil, 500, time.Time{}), 1e-9)
}

func TestDailyBreakdown(t *testing.T) {
	history := sampleHistory()

	daily := DailyBreakdown(history, 30)
	require.Len(t, daily, 2)
	assert.Equal(t, DailyPnL{Day: "2026-03-03", RealizedPL: 250}, daily[0])
	assert.Equal(t, DailyPnL{Day: "2026-03-02", RealizedPL: 50}, daily[1])

	limited := DailyBreakdown(history, 1)
	require.Len(t, limited, 1)
	assert.Equal(t, "2026-03-03", limited[0].Day)
}

func TestTraderAndProductPnL(t *testing.T) {
	history := sampleHistory()

	assert.Equal(t, map[string]float64{"W": 350, "L": -50}, TraderPnL(history))
	assert.Equal(t, map[string]float64{"Brent": 100, "JKM": 200}, ProductPnL(history))
}

func TestStats(t *testing.T) {
	t.Run("Empty history", func(t *testing.T) {
		detail, err := Stats(nil)
		assert.NoError(t, err)
		assert.Equal(t, StatsDetail{}, detail)
	})

	t.Run("Distribution", func(t *testing.T) {
		detail, err := Stats(sampleHistory())
		require.NoError(t, err)

		assert.Equal(t, 3, detail.TotalCloses)
		assert.Equal(t, 2, detail.ProfitableCloses)
		assert.InDelta(t, 2.0/3.0, detail.WinRate, 1e-9)
		assert.InDelta(t, 300, detail.TotalPL, 1e-9)
		assert.InDelta(t, 100, detail.MeanPL, 1e-9)
		assert.InDelta(t, 100, detail.MedianPL, 1e-9)
		assert.InDelta(t, 122.4745, detail.StdDevPL, 1e-3)
		assert.InDelta(t, 250, detail.BestPL, 1e-9)
		assert.InDelta(t, -50, detail.WorstPL, 1e-9)
	})
}

func TestReconcile(t *testing.T) {
	settings := models.Settings{ReconciliationBase: 156170, ReconciliationOther: 45800}

	rec := Reconcile(200000, 10000, settings)
	assert.InDelta(t, 8030, rec.NetValue, 1e-9)
	assert.Equal(t, 156170.0, rec.ReconciliationBase)

	ok := Check(8030.5, rec.NetValue)
	assert.True(t, ok.Match)
	assert.Equal(t, "matched", ok.Status)
	assert.InDelta(t, 0.5, ok.Diff, 1e-9)

	bad := Check(8040, rec.NetValue)
	assert.False(t, bad.Match)
	assert.Equal(t, "mismatch", bad.Status)
}

func TestValue(t *testing.T) {
	e := newTestEngine()
	settings := models.Settings{ExchangeRateRMB: 7.13}
	positions := []Position{
		{Key: "W-Brent-2605", Product: "Brent", Contract: "2605", Quantity: 2, TotalValue: 160, AvgPrice: 80},
		{Key: "L-JKM-2602", Product: "JKM", Contract: "2602", Quantity: -1, TotalValue: -12, AvgPrice: 12},
		{Key: "L-Brent-2605", Product: "Brent", Contract: "2605", Quantity: 2, TotalValue: 170, AvgPrice: 85},
	}
	book := PriceBook{"Brent::2605": 84}

	v := e.Value(positions, book, settings)

	assert.Equal(t, 3, v.Count)
	require.Len(t, v.Positions, 3)
	assert.Equal(t, 84.0, v.Positions[0].Mtm)
	assert.InDelta(t, 8000, v.Positions[0].FloatingPL, 1e-6)
	assert.Equal(t, 12.0, v.Positions[1].Mtm)
	assert.InDelta(t, LandedCost("Brent", 80, 7.13), v.Positions[0].LandedCost, 1e-9)

	require.Len(t, v.Groups, 2)
	assert.Equal(t, "Brent", v.Groups[0].Product)
	assert.Len(t, v.Groups[0].Positions, 2)
	assert.InDelta(t, 4, v.Groups[0].TotalQuantity, 1e-9)
	assert.InDelta(t, 82.5, v.Groups[0].WeightedAvg, 1e-9)
	// 8000 + (84*2-170)*1000
	assert.InDelta(t, 6000, v.Groups[0].TotalFloating, 1e-6)
	assert.Equal(t, "JKM", v.Groups[1].Product)
	assert.InDelta(t, 6000, v.TotalFloating, 1e-6)
	assert.InDelta(t, 3, v.TotalQuantity, 1e-9)
}
