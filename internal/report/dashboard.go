package report

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"trade-analytics-terminal/internal/ledger"
	"trade-analytics-terminal/internal/models"
)

// DashboardInput is everything the dashboard report summarises.
type DashboardInput struct {
	Now time.Time
	// FilterDate is the optional YYYY-MM-DD start of the reporting window.
	FilterDate string
	Valuation  ledger.Valuation
	History    []ledger.ClosedTrade
	// Realized is the realized P&L within the window including the initial balance.
	Realized float64
	Settings models.Settings
	Daily    *models.DailyPackage
}

// Dashboard renders the plain text review board.
func Dashboard(in DashboardInput) string {
	today := in.Now.Format(dateLayout)
	var b strings.Builder

	fmt.Fprintf(&b, "=== Trading Review Dashboard [%s] ===\n", today)
	if in.FilterDate != "" {
		fmt.Fprintf(&b, "(window starts %s)\n", in.FilterDate)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Realized P&L less reconciliation other: %s\n", usd(in.Realized-in.Settings.ReconciliationOther))
	fmt.Fprintf(&b, "Floating P&L: %s\n", usd(in.Valuation.TotalFloating))

	b.WriteString("\n--- Closes today ---\n")
	var closes int
	for _, h := range in.History {
		if h.Date.Format(dateLayout) != today {
			continue
		}
		closes++
		fmt.Fprintf(&b, "%s | %s lots | P&L: %s\n", h.Contract, grouped(math.Abs(h.ClosedQuantity), 1), grouped(h.RealizedPL, 0))
	}
	if closes == 0 {
		b.WriteString("none\n")
	}

	b.WriteString("\n--- Net positions ---\n")
	if len(in.Valuation.Groups) == 0 {
		b.WriteString("none\n")
	} else {
		table := tablewriter.NewWriter(&b)
		table.SetHeader([]string{"Product", "Net Qty", "Weighted Avg", "Floating P&L"})
		for _, g := range in.Valuation.Groups {
			table.Append([]string{
				g.Product,
				grouped(g.TotalQuantity, 3),
				fixed(g.WeightedAvg, 4),
				usd(g.TotalFloating),
			})
		}
		table.Render()
	}

	if in.Daily != nil && len(in.Daily.Prices) > 0 {
		fmt.Fprintf(&b, "\n--- Market snapshot (%s) ---\n", in.Daily.Date)
		keys := make([]string, 0, len(in.Daily.Prices))
		for k := range in.Daily.Prices {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "%s: %s\n", k, decimalString(in.Daily.Prices[k]))
		}
	}

	return b.String()
}
