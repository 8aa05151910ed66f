package report

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"trade-analytics-terminal/internal/ledger"
	"trade-analytics-terminal/internal/models"
)

type positionRow struct {
	Contract   string `csv:"contract"`
	Trader     string `csv:"trader"`
	Quantity   string `csv:"quantity"`
	AvgPrice   string `csv:"avg_price"`
	TotalValue string `csv:"total_value"`
}

type historyRow struct {
	Date           string `csv:"date"`
	Trader         string `csv:"trader"`
	Contract       string `csv:"contract"`
	ClosedQuantity string `csv:"closed_quantity"`
	RealizedPL     string `csv:"realized_pl"`
}

type logRow struct {
	Time     string `csv:"time"`
	Trader   string `csv:"trader"`
	Contract string `csv:"contract"`
	Quantity string `csv:"quantity"`
	Price    string `csv:"price"`
	Type     string `csv:"type"`
}

type ledgerRow struct {
	Date     string `csv:"date"`
	Product  string `csv:"product"`
	Contract string `csv:"contract"`
	Quantity string `csv:"quantity"`
	Price    string `csv:"price"`
	Type     string `csv:"type"`
}

// PositionsCSV writes open positions.
func PositionsCSV(w io.Writer, positions []ledger.Position) error {
	rows := make([]positionRow, 0, len(positions))
	for _, p := range positions {
		rows = append(rows, positionRow{
			Contract:   p.Contract,
			Trader:     p.Trader,
			Quantity:   fixed(p.Quantity, 3),
			AvgPrice:   fixed(p.AvgPrice, 3),
			TotalValue: fixed(p.TotalValue, 2),
		})
	}
	return marshal(w, &rows, "positions")
}

// HistoryCSV writes closed trades.
func HistoryCSV(w io.Writer, history []ledger.ClosedTrade) error {
	rows := make([]historyRow, 0, len(history))
	for _, h := range history {
		rows = append(rows, historyRow{
			Date:           h.Date.Format(dateLayout),
			Trader:         h.Trader,
			Contract:       h.Contract,
			ClosedQuantity: fixed(h.ClosedQuantity, 3),
			RealizedPL:     fixed(h.RealizedPL, 2),
		})
	}
	return marshal(w, &rows, "history")
}

// LogsCSV writes the trade log in the order given.
func LogsCSV(w io.Writer, trades []models.Trade) error {
	rows := make([]logRow, 0, len(trades))
	for _, t := range trades {
		rows = append(rows, logRow{
			Time:     t.Date.Format(dateTimeLayout),
			Trader:   t.Trader,
			Contract: t.Contract,
			Quantity: fixed(t.Quantity, 3),
			Price:    fixed(t.Price, 3),
			Type:     string(t.Type),
		})
	}
	return marshal(w, &rows, "logs")
}

// LedgerCSV writes the day-by-day trade ledger in the order given.
func LedgerCSV(w io.Writer, trades []models.Trade) error {
	rows := make([]ledgerRow, 0, len(trades))
	for _, t := range trades {
		rows = append(rows, ledgerRow{
			Date:     t.Date.Format(dateLayout),
			Product:  t.Product,
			Contract: t.Contract,
			Quantity: fixed(t.Quantity, 3),
			Price:    fixed(t.Price, 3),
			Type:     string(t.Type),
		})
	}
	return marshal(w, &rows, "ledger")
}

func marshal(w io.Writer, rows any, name string) error {
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("failed to write %s csv: %w", name, err)
	}
	return nil
}
