package report

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/yuin/goldmark"

	"trade-analytics-terminal/internal/ledger"
	"trade-analytics-terminal/internal/models"
)

const (
	contextCloses = 50
	contextPrices = 20
)

// ContextInput is everything the AI context export summarises.
type ContextInput struct {
	Generated time.Time
	Valuation ledger.Valuation
	History   []ledger.ClosedTrade
	// Realized is the realized P&L including the initial balance.
	Realized float64
	Prices   []models.MarketPrice
}

// AIContext renders a markdown briefing of the book for pasting into an assistant.
func AIContext(in ContextInput) string {
	var b strings.Builder

	b.WriteString("# Trading Analysis Context\n\n")
	b.WriteString("## 1. Generated\n\n")
	fmt.Fprintf(&b, "- %s\n\n", in.Generated.Format(stampLayout))

	b.WriteString("## 2. Account Overview\n\n")
	for _, g := range in.Valuation.Groups {
		fmt.Fprintf(&b, "- %s: net %s lots, weighted average %s\n",
			g.Product, grouped(g.TotalQuantity, 3), fixed(g.WeightedAvg, 4))
	}
	fmt.Fprintf(&b, "- Realized P&L to date: %s\n\n", usd(in.Realized))

	fmt.Fprintf(&b, "## 3. Closed Trades (latest %d)\n\n", contextCloses)
	recent := make([]ledger.ClosedTrade, len(in.History))
	copy(recent, in.History)
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].Date.After(recent[j].Date) })
	if len(recent) > contextCloses {
		recent = recent[:contextCloses]
	}
	if len(recent) == 0 {
		b.WriteString("- none\n")
	}
	for _, h := range recent {
		fmt.Fprintf(&b, "- %s: %s closed %s %s lots, P&L %s\n",
			h.Date.Format(dateLayout), h.Trader, h.Contract, grouped(math.Abs(h.ClosedQuantity), 3), usd(h.RealizedPL))
	}

	if len(in.Prices) > 0 {
		b.WriteString("\n## 4. Market Snapshot\n\n")
		prices := in.Prices
		if len(prices) > contextPrices {
			prices = prices[:contextPrices]
		}
		for _, p := range prices {
			fmt.Fprintf(&b, "- %s: %s\n", models.ScopedKey(p.Product, p.Contract), decimalString(p.Price))
		}
	}

	return b.String()
}

// HTML converts a markdown report to an HTML fragment.
func HTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("failed to render html: %w", err)
	}
	return buf.String(), nil
}

// Terminal renders a markdown report for an ANSI terminal.
func Terminal(markdown string) (string, error) {
	out, err := glamour.Render(markdown, "dark")
	if err != nil {
		return "", fmt.Errorf("failed to render for terminal: %w", err)
	}
	return out, nil
}
