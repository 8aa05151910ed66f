package api

import (
	"fmt"
	"net/http"

	"trade-analytics-terminal/internal/journal"
	"trade-analytics-terminal/internal/ledger"
)

type positionDetail struct {
	Contract   string  `json:"contract"`
	Product    string  `json:"product"`
	Quantity   float64 `json:"quantity"`
	AvgPrice   float64 `json:"avg_price"`
	Mtm        float64 `json:"mtm"`
	FloatingPL float64 `json:"floating_pnl"`
}

type reconciliationResponse struct {
	ledger.Reconciliation
	PositionDetails []positionDetail `json:"position_details"`
}

type checkRequest struct {
	StatementValue *float64 `json:"statement_value"`
}

// ReconciliationHandler returns the net value the broker statement should show.
func (h *Handler) ReconciliationHandler(w http.ResponseWriter, r *http.Request) {
	b, err := h.loadBook(r.Context(), r)
	if err != nil {
		h.setServiceError("getReconciliation: failed to build positions", err, w)
		return
	}

	details := make([]positionDetail, 0, len(b.valuation.Positions))
	for _, p := range b.valuation.Positions {
		details = append(details, positionDetail{
			Contract:   p.Contract,
			Product:    p.Product,
			Quantity:   p.Quantity,
			AvgPrice:   p.AvgPrice,
			Mtm:        p.Mtm,
			FloatingPL: p.FloatingPL,
		})
	}
	h.setResponse(reconciliationResponse{
		Reconciliation:  ledger.Reconcile(b.realized, b.valuation.TotalFloating, b.settings),
		PositionDetails: details,
	}, w)
}

// CheckReconciliationHandler compares a statement value with the net value.
// The value comes from the statement_value query parameter or JSON body.
func (h *Handler) CheckReconciliationHandler(w http.ResponseWriter, r *http.Request) {
	statement, ok, err := floatParam(r, "statement_value")
	if err != nil {
		h.setServiceError("checkReconciliation: invalid query", err, w)
		return
	}
	if !ok {
		var req checkRequest
		if err := decodeJSON(r, &req); err != nil || req.StatementValue == nil {
			h.setServiceError("checkReconciliation: invalid request",
				fmt.Errorf("%w: statement_value is required", errBadRequest), w)
			return
		}
		statement = *req.StatementValue
	}

	b, err := h.loadBook(r.Context(), r)
	if err != nil {
		h.setServiceError("checkReconciliation: failed to build positions", err, w)
		return
	}
	rec := ledger.Reconcile(b.realized, b.valuation.TotalFloating, b.settings)
	h.setResponse(ledger.Check(statement, rec.NetValue), w)
}

// SettingsHandler returns the desk settings.
func (h *Handler) SettingsHandler(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.Load(r.Context())
	if err != nil {
		h.setServiceError("getSettings: failed to load settings", err, w)
		return
	}
	h.setResponse(settings, w)
}

// UpdateSettingsHandler applies a partial settings change.
func (h *Handler) UpdateSettingsHandler(w http.ResponseWriter, r *http.Request) {
	var req journal.SettingsUpdate
	if err := decodeJSON(r, &req); err != nil {
		h.setServiceError("updateSettings: invalid request", err, w)
		return
	}
	settings, err := h.settings.Update(r.Context(), req)
	if err != nil {
		h.setServiceError("updateSettings: failed to save settings", err, w)
		return
	}
	h.setResponse(settings, w)
}
