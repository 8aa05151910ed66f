package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-analytics-terminal/internal/ledger"
	"trade-analytics-terminal/internal/models"
)

var day0 = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

func sampleValuation() ledger.Valuation {
	brent := ledger.ValuedPosition{
		Position:   ledger.Position{Key: "W-Brent-2605", Trader: "W", Product: "Brent", Contract: "2605", Quantity: 6, TotalValue: 480, AvgPrice: 80},
		Mtm:        85,
		FloatingPL: 30000,
	}
	return ledger.Valuation{
		Positions:     []ledger.ValuedPosition{brent},
		Groups:        []ledger.ProductGroup{{Product: "Brent", Positions: []ledger.ValuedPosition{brent}, TotalQuantity: 6, TotalFloating: 30000, WeightedAvg: 80}},
		TotalFloating: 30000,
		TotalQuantity: 6,
		Count:         1,
	}
}

func sampleHistory() []ledger.ClosedTrade {
	return []ledger.ClosedTrade{
		{Date: day0.AddDate(0, 0, -1), Trader: "L", Contract: "2602", ClosedQuantity: 2, RealizedPL: -1500},
		{Date: day0, Trader: "W", Contract: "2605", ClosedQuantity: -4, RealizedPL: 19920},
	}
}

func TestPositionsCSV(t *testing.T) {
	var buf bytes.Buffer

	err := PositionsCSV(&buf, []ledger.Position{
		{Trader: "W", Contract: "2605", Quantity: 6, AvgPrice: 80.12345, TotalValue: 480.555},
	})

	require.NoError(t, err)
	assert.Equal(t, "contract,trader,quantity,avg_price,total_value\n2605,W,6.000,80.123,480.56\n", buf.String())
}

func TestPositionsCSV_EmptyWritesHeader(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, PositionsCSV(&buf, nil))

	assert.Equal(t, "contract,trader,quantity,avg_price,total_value\n", buf.String())
}

func TestHistoryCSV(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, HistoryCSV(&buf, sampleHistory()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "date,trader,contract,closed_quantity,realized_pl", lines[0])
	assert.Equal(t, "2026-03-01,L,2602,2.000,-1500.00", lines[1])
	assert.Equal(t, "2026-03-02,W,2605,-4.000,19920.00", lines[2])
}

func TestLogsAndLedgerCSV(t *testing.T) {
	trades := []models.Trade{
		{Date: day0, Trader: "W", Product: "Brent", Contract: "2605", Quantity: -4, Price: 85.5, Type: models.TradeTypeRegular},
	}

	var logs, book bytes.Buffer
	require.NoError(t, LogsCSV(&logs, trades))
	require.NoError(t, LedgerCSV(&book, trades))

	assert.Equal(t, "time,trader,contract,quantity,price,type\n2026-03-02T09:30:00,W,2605,-4.000,85.500,regular\n", logs.String())
	assert.Equal(t, "date,product,contract,quantity,price,type\n2026-03-02,Brent,2605,-4.000,85.500,regular\n", book.String())
}

func TestAIContext(t *testing.T) {
	text := AIContext(ContextInput{
		Generated: day0,
		Valuation: sampleValuation(),
		History:   sampleHistory(),
		Realized:  118420,
		Prices:    []models.MarketPrice{{Product: "Brent", Contract: "2605", Price: 85.5}},
	})

	assert.Contains(t, text, "# Trading Analysis Context")
	assert.Contains(t, text, "- 2026-03-02 09:30:00")
	assert.Contains(t, text, "- Brent: net 6.000 lots, weighted average 80.0000")
	assert.Contains(t, text, "- Realized P&L to date: $118,420.00")
	assert.Contains(t, text, "- Brent::2605: 85.5")

	// Latest close first.
	newest := strings.Index(text, "2026-03-02: W closed 2605 4.000 lots, P&L $19,920.00")
	older := strings.Index(text, "2026-03-01: L closed 2602 2.000 lots, P&L -$1,500.00")
	require.NotEqual(t, -1, newest)
	require.NotEqual(t, -1, older)
	assert.Less(t, newest, older)
}

func TestAIContext_Limits(t *testing.T) {
	var history []ledger.ClosedTrade
	for i := 0; i < 60; i++ {
		history = append(history, ledger.ClosedTrade{Date: day0.Add(time.Duration(i) * time.Minute), Trader: "W", Contract: "2605", RealizedPL: 1})
	}
	var prices []models.MarketPrice
	for i := 0; i < 25; i++ {
		prices = append(prices, models.MarketPrice{Product: "Brent", Contract: "2605", Price: 1})
	}

	text := AIContext(ContextInput{Generated: day0, History: history, Prices: prices})

	assert.Equal(t, contextCloses, strings.Count(text, " closed 2605 "))
	assert.Equal(t, contextPrices, strings.Count(text, "- Brent::2605: 1\n"))
}

func TestHTML(t *testing.T) {
	html, err := HTML("# Title\n\n- item\n")

	require.NoError(t, err)
	assert.Contains(t, html, "<h1>Title</h1>")
	assert.Contains(t, html, "<li>item</li>")
}

func TestTerminal(t *testing.T) {
	out, err := Terminal("# Title\n\n- item\n")

	require.NoError(t, err)
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "item")
}

func TestDashboard(t *testing.T) {
	text := Dashboard(DashboardInput{
		Now:        day0,
		FilterDate: "2026-03-01",
		Valuation:  sampleValuation(),
		History:    sampleHistory(),
		Realized:   118420,
		Settings:   models.Settings{ReconciliationOther: 45800},
		Daily:      &models.DailyPackage{Date: "2026-03-02", Prices: map[string]float64{"WTI": 77.1, "Brent": 81}},
	})

	assert.Contains(t, text, "=== Trading Review Dashboard [2026-03-02] ===")
	assert.Contains(t, text, "(window starts 2026-03-01)")
	assert.Contains(t, text, "Realized P&L less reconciliation other: $72,620.00")
	assert.Contains(t, text, "Floating P&L: $30,000.00")
	assert.Contains(t, text, "2605 | 4.0 lots | P&L: 19,920")
	assert.NotContains(t, text, "2602 |", "only today's closes are listed")
	assert.Contains(t, text, "PRODUCT", "tablewriter upper-cases headers")
	assert.Contains(t, text, "6.000")
	assert.Contains(t, text, "--- Market snapshot (2026-03-02) ---\nBrent: 81\nWTI: 77.1\n")
}

func TestDashboard_Empty(t *testing.T) {
	text := Dashboard(DashboardInput{Now: day0})

	assert.Contains(t, text, "--- Closes today ---\nnone\n")
	assert.Contains(t, text, "--- Net positions ---\nnone\n")
	assert.NotContains(t, text, "Market snapshot")
}
