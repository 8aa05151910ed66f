package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"trade-analytics-terminal/internal/backup"
	"trade-analytics-terminal/internal/journal"
	"trade-analytics-terminal/internal/market"
	"trade-analytics-terminal/internal/models"
	"trade-analytics-terminal/internal/report"
)

const (
	csvType  = "text/csv; charset=utf-8"
	textType = "text/plain; charset=utf-8"
	htmlType = "text/html; charset=utf-8"
)

// ExportPositionsCSVHandler downloads open positions.
func (h *Handler) ExportPositionsCSVHandler(w http.ResponseWriter, r *http.Request) {
	b, err := h.loadBook(r.Context(), r)
	if err != nil {
		h.setServiceError("exportPositions: failed to build positions", err, w)
		return
	}
	var buf bytes.Buffer
	if err := report.PositionsCSV(&buf, b.positions); err != nil {
		h.setServiceError("exportPositions: failed to write csv", err, w)
		return
	}
	h.setDownload(w, csvType, "positions.csv", buf.Bytes())
}

// ExportHistoryCSVHandler downloads closed trades.
func (h *Handler) ExportHistoryCSVHandler(w http.ResponseWriter, r *http.Request) {
	b, err := h.loadBook(r.Context(), r)
	if err != nil {
		h.setServiceError("exportHistory: failed to build history", err, w)
		return
	}
	var buf bytes.Buffer
	if err := report.HistoryCSV(&buf, b.history); err != nil {
		h.setServiceError("exportHistory: failed to write csv", err, w)
		return
	}
	h.setDownload(w, csvType, "history.csv", buf.Bytes())
}

// ExportLogsCSVHandler downloads the newest active journal entries.
func (h *Handler) ExportLogsCSVHandler(w http.ResponseWriter, r *http.Request) {
	trades, err := h.journal.List(r.Context(), journal.Filter{Status: models.TradeStatusActive, Limit: journal.DefaultLimit})
	if err != nil {
		h.setServiceError("exportLogs: failed to list trades", err, w)
		return
	}
	var buf bytes.Buffer
	if err := report.LogsCSV(&buf, trades); err != nil {
		h.setServiceError("exportLogs: failed to write csv", err, w)
		return
	}
	h.setDownload(w, csvType, "logs.csv", buf.Bytes())
}

// ExportLedgerCSVHandler downloads every active journal entry, oldest first.
func (h *Handler) ExportLedgerCSVHandler(w http.ResponseWriter, r *http.Request) {
	trades, err := h.journal.Active(r.Context(), time.Time{})
	if err != nil {
		h.setServiceError("exportLedger: failed to list trades", err, w)
		return
	}
	var buf bytes.Buffer
	if err := report.LedgerCSV(&buf, trades); err != nil {
		h.setServiceError("exportLedger: failed to write csv", err, w)
		return
	}
	h.setDownload(w, csvType, "ledger.csv", buf.Bytes())
}

func (h *Handler) aiContext(r *http.Request) (string, error) {
	b, err := h.loadBook(r.Context(), r)
	if err != nil {
		return "", err
	}
	prices, err := h.market.Prices(r.Context(), "", "")
	if err != nil {
		return "", err
	}
	return report.AIContext(report.ContextInput{
		Generated: h.now(),
		Valuation: b.valuation,
		History:   b.history,
		Realized:  b.realized,
		Prices:    prices,
	}), nil
}

// ExportAIContextHandler downloads the AI context briefing as markdown text.
func (h *Handler) ExportAIContextHandler(w http.ResponseWriter, r *http.Request) {
	text, err := h.aiContext(r)
	if err != nil {
		h.setServiceError("exportAIContext: failed to build context", err, w)
		return
	}
	h.setDownload(w, textType, "trading_context.txt", []byte(text))
}

// ExportAIContextHTMLHandler renders the AI context briefing as HTML.
func (h *Handler) ExportAIContextHTMLHandler(w http.ResponseWriter, r *http.Request) {
	text, err := h.aiContext(r)
	if err != nil {
		h.setServiceError("exportAIContextHTML: failed to build context", err, w)
		return
	}
	html, err := report.HTML(text)
	if err != nil {
		h.setServiceError("exportAIContextHTML: failed to render", err, w)
		return
	}
	h.setDownload(w, htmlType, "", []byte(html))
}

// ExportDashboardHandler downloads the dashboard review text.
func (h *Handler) ExportDashboardHandler(w http.ResponseWriter, r *http.Request) {
	b, err := h.loadBook(r.Context(), r)
	if err != nil {
		h.setServiceError("exportDashboard: failed to build book", err, w)
		return
	}
	daily, err := h.market.LatestDailyPackage(r.Context())
	if err != nil && !errors.Is(err, market.ErrNoDailyPackage) {
		h.setServiceError("exportDashboard: failed to load daily package", err, w)
		return
	}
	text := report.Dashboard(report.DashboardInput{
		Now:        h.now(),
		FilterDate: b.filterDate,
		Valuation:  b.valuation,
		History:    b.history,
		Realized:   b.realized,
		Settings:   b.settings,
		Daily:      daily,
	})
	h.setDownload(w, textType, "dashboard.txt", []byte(text))
}

// ExportBackupHandler downloads the full JSON backup.
func (h *Handler) ExportBackupHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := h.backup.Export(r.Context())
	if err != nil {
		h.setServiceError("exportBackup: failed to export", err, w)
		return
	}
	body, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		h.setServiceError("exportBackup: failed to encode", err, w)
		return
	}
	filename := fmt.Sprintf("trade_terminal_backup_%s.json", h.now().Format("20060102_150405"))
	h.setDownload(w, "application/json", filename, body)
}

// RestoreBackupHandler replaces trades and prices with an uploaded backup.
func (h *Handler) RestoreBackupHandler(w http.ResponseWriter, r *http.Request) {
	body, err := readUpload(r)
	if err != nil {
		h.setServiceError("restoreBackup: invalid upload", err, w)
		return
	}
	var snap backup.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		h.setServiceError("restoreBackup: invalid upload", fmt.Errorf("%w: %v", backup.ErrInvalidBackup, err), w)
		return
	}
	res, err := h.backup.Restore(r.Context(), &snap)
	if err != nil {
		h.setServiceError("restoreBackup: failed to restore", err, w)
		return
	}
	h.setResponse(res, w)
}

// ClearDataHandler deletes every trade and price.
func (h *Handler) ClearDataHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.journal.Clear(r.Context()); err != nil {
		h.setServiceError("clearData: failed to clear trades", err, w)
		return
	}
	if err := h.market.Clear(r.Context()); err != nil {
		h.setServiceError("clearData: failed to clear prices", err, w)
		return
	}
	h.setResponse(statusResponse{Status: "cleared"}, w)
}
