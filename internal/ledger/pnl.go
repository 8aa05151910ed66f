package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/montanaflynn/stats"
)

// DayLayout formats the day a close belongs to.
const DayLayout = "2006-01-02"

// RealizedTotal adds the realized P&L of the closes to initial. A non-zero
// since keeps only closes on or after it.
func RealizedTotal(history []ClosedTrade, initial float64, since time.Time) float64 {
	total := initial
	for _, h := range history {
		if !since.IsZero() && h.Date.Before(since) {
			continue
		}
		total += h.RealizedPL
	}
	return total
}

// DailyPnL is the realized P&L of one day.
type DailyPnL struct {
	Day        string  `json:"day"`
	RealizedPL float64 `json:"realized_pl"`
}

// DailyBreakdown sums realized P&L per day and returns the most recent days
// first, at most days entries.
func DailyBreakdown(history []ClosedTrade, days int) []DailyPnL {
	sums := make(map[string]float64)
	for _, h := range history {
		sums[h.Date.Format(DayLayout)] += h.RealizedPL
	}

	result := make([]DailyPnL, 0, len(sums))
	for day, pl := range sums {
		result = append(result, DailyPnL{Day: day, RealizedPL: pl})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Day > result[j].Day })

	if days > 0 && len(result) > days {
		result = result[:days]
	}
	return result
}

// TraderPnL sums realized P&L per trader.
func TraderPnL(history []ClosedTrade) map[string]float64 {
	result := make(map[string]float64)
	for _, h := range history {
		result[h.Trader] += h.RealizedPL
	}
	return result
}

// ProductPnL sums realized P&L per product.
func ProductPnL(history []ClosedTrade) map[string]float64 {
	result := make(map[string]float64)
	for _, h := range history {
		result[h.Product] += h.RealizedPL
	}
	return result
}

// StatsDetail holds statistics over a set of closes.
type StatsDetail struct {
	TotalCloses      int     `json:"total_closes"`
	ProfitableCloses int     `json:"profitable_closes"`
	WinRate          float64 `json:"win_rate"`
	TotalPL          float64 `json:"total_pl"`
	MeanPL           float64 `json:"mean_pl"`
	MedianPL         float64 `json:"median_pl"`
	StdDevPL         float64 `json:"stddev_pl"`
	BestPL           float64 `json:"best_pl"`
	WorstPL          float64 `json:"worst_pl"`
}

// Stats computes win rate and distribution figures of realized P&L.
func Stats(history []ClosedTrade) (StatsDetail, error) {
	detail := StatsDetail{TotalCloses: len(history)}
	if len(history) == 0 {
		return detail, nil
	}

	data := make(stats.Float64Data, 0, len(history))
	for _, h := range history {
		data = append(data, h.RealizedPL)
		if h.RealizedPL > 0 {
			detail.ProfitableCloses++
		}
	}
	detail.WinRate = float64(detail.ProfitableCloses) / float64(detail.TotalCloses)

	var err error
	if detail.TotalPL, err = data.Sum(); err != nil {
		return detail, fmt.Errorf("sum: %w", err)
	}
	if detail.MeanPL, err = data.Mean(); err != nil {
		return detail, fmt.Errorf("mean: %w", err)
	}
	if detail.MedianPL, err = data.Median(); err != nil {
		return detail, fmt.Errorf("median: %w", err)
	}
	if detail.StdDevPL, err = data.StandardDeviation(); err != nil {
		return detail, fmt.Errorf("standard deviation: %w", err)
	}
	if detail.BestPL, err = data.Max(); err != nil {
		return detail, fmt.Errorf("max: %w", err)
	}
	if detail.WorstPL, err = data.Min(); err != nil {
		return detail, fmt.Errorf("min: %w", err)
	}
	return detail, nil
}
