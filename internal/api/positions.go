package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"trade-analytics-terminal/internal/ledger"
	"trade-analytics-terminal/internal/models"
)

type mtmUpdate struct {
	Product  string   `json:"product"`
	Contract string   `json:"contract"`
	Price    *float64 `json:"price"`
}

type stressResponse struct {
	Shock         ledger.Shock `json:"shock"`
	Change        float64      `json:"change"`
	TotalFloating float64      `json:"total_floating"`
	NewFloating   float64      `json:"new_floating"`
}

// PositionsHandler returns the marked book.
func (h *Handler) PositionsHandler(w http.ResponseWriter, r *http.Request) {
	b, err := h.loadBook(r.Context(), r)
	if err != nil {
		h.setServiceError("getPositions: failed to build positions", err, w)
		return
	}
	if b.valuation.Positions == nil {
		b.valuation.Positions = []ledger.ValuedPosition{}
	}
	if b.valuation.Groups == nil {
		b.valuation.Groups = []ledger.ProductGroup{}
	}
	h.setResponse(b.valuation, w)
}

// UpdateMTMHandler sets the mark of one product contract.
func (h *Handler) UpdateMTMHandler(w http.ResponseWriter, r *http.Request) {
	var req mtmUpdate
	if err := decodeJSON(r, &req); err != nil {
		h.setServiceError("updateMTM: invalid request", err, w)
		return
	}
	if req.Price == nil {
		h.setServiceError("updateMTM: invalid request", fmt.Errorf("%w: price is required", errBadRequest), w)
		return
	}
	if _, err := h.market.SetMTM(r.Context(), req.Product, req.Contract, *req.Price); err != nil {
		h.setServiceError("updateMTM: failed to set price", err, w)
		return
	}
	h.setResponse(statusResponse{Status: "updated", Key: models.ScopedKey(req.Product, req.Contract)}, w)
}

// ReverseLatestHandler reverses the newest active trade of a position.
func (h *Handler) ReverseLatestHandler(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	trade, err := h.journal.ReverseLatest(r.Context(), key)
	if err != nil {
		h.setServiceError("reverseLatest: failed to reverse trade", err, w)
		return
	}
	h.setResponse(statusResponse{Status: "reversed", ID: trade.ID, Key: key}, w)
}

// StressHandler applies uniform price shocks (brent, gas, ttf) to the open book.
func (h *Handler) StressHandler(w http.ResponseWriter, r *http.Request) {
	var shock ledger.Shock
	for name, dst := range map[string]*float64{"brent": &shock.Brent, "gas": &shock.Gas, "ttf": &shock.TTF} {
		v, _, err := floatParam(r, name)
		if err != nil {
			h.setServiceError("stress: invalid query", err, w)
			return
		}
		*dst = v
	}

	b, err := h.loadBook(r.Context(), r)
	if err != nil {
		h.setServiceError("stress: failed to build positions", err, w)
		return
	}
	change := h.engine.StressChange(b.positions, shock, b.settings)
	h.setResponse(stressResponse{
		Shock:         shock,
		Change:        change,
		TotalFloating: b.valuation.TotalFloating,
		NewFloating:   b.valuation.TotalFloating + change,
	}, w)
}
