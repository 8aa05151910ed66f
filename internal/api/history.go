package api

import (
	"net/http"
	"sort"
	"time"

	"trade-analytics-terminal/internal/journal"
	"trade-analytics-terminal/internal/ledger"
)

// dailyWindow is how many days the daily breakdown covers.
const dailyWindow = 30

type historyResponse struct {
	History       []ledger.ClosedTrade `json:"history"`
	TotalRealized float64              `json:"total_realized"`
	DailyPnL      []ledger.DailyPnL    `json:"daily_pnl"`
	TraderPnL     map[string]float64   `json:"trader_pnl"`
	ProductPnL    map[string]float64   `json:"product_pnl"`
	Count         int                  `json:"count"`
}

// StatisticsResponse is the structure for the /api/history/stats endpoint.
type StatisticsResponse struct {
	Since24h ledger.StatsDetail `json:"since_24h"`
	AllTime  ledger.StatsDetail `json:"all_time"`
}

// HistoryHandler returns closes newest first with P&L breakdowns.
func (h *Handler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", journal.DefaultLimit)
	if err != nil {
		h.setServiceError("getHistory: invalid query", err, w)
		return
	}
	if limit <= 0 {
		limit = journal.DefaultLimit
	}
	b, err := h.loadBook(r.Context(), r)
	if err != nil {
		h.setServiceError("getHistory: failed to build history", err, w)
		return
	}

	history := make([]ledger.ClosedTrade, len(b.history))
	copy(history, b.history)
	sort.SliceStable(history, func(i, j int) bool { return history[i].Date.After(history[j].Date) })
	count := len(history)
	if limit < len(history) {
		history = history[:limit]
	}

	h.setResponse(historyResponse{
		History:       history,
		TotalRealized: b.realized,
		DailyPnL:      ledger.DailyBreakdown(b.history, dailyWindow),
		TraderPnL:     ledger.TraderPnL(b.history),
		ProductPnL:    ledger.ProductPnL(b.history),
		Count:         count,
	}, w)
}

// StatisticsHandler calculates close statistics for the last 24 hours and all time.
func (h *Handler) StatisticsHandler(w http.ResponseWriter, r *http.Request) {
	b, err := h.loadBook(r.Context(), r)
	if err != nil {
		h.setServiceError("getStatistics: failed to build history", err, w)
		return
	}

	since24h := h.now().Add(-24 * time.Hour)
	var recent []ledger.ClosedTrade
	for _, c := range b.history {
		if c.Date.After(since24h) {
			recent = append(recent, c)
		}
	}

	allTime, err := ledger.Stats(b.history)
	if err != nil {
		h.setServiceError("getStatistics: failed to calculate statistics", err, w)
		return
	}
	last24h, err := ledger.Stats(recent)
	if err != nil {
		h.setServiceError("getStatistics: failed to calculate statistics", err, w)
		return
	}
	h.setResponse(StatisticsResponse{Since24h: last24h, AllTime: allTime}, w)
}
