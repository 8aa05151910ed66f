package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"trade-analytics-terminal/internal/market"
	"trade-analytics-terminal/internal/models"
)

type pricesResponse struct {
	Count  int                  `json:"count"`
	Prices []models.MarketPrice `json:"prices"`
}

type importResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count,omitempty"`
	Date    string `json:"date,omitempty"`
}

// MarketPricesHandler lists stored marks, optionally filtered by product and contract.
func (h *Handler) MarketPricesHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	prices, err := h.market.Prices(r.Context(), q.Get("product"), q.Get("contract"))
	if err != nil {
		h.setServiceError("getMarketPrices: failed to list prices", err, w)
		return
	}
	if prices == nil {
		prices = []models.MarketPrice{}
	}
	h.setResponse(pricesResponse{Count: len(prices), Prices: prices}, w)
}

// ImportPricesHandler imports an MTM price file, uploaded or posted as JSON.
func (h *Handler) ImportPricesHandler(w http.ResponseWriter, r *http.Request) {
	body, err := readUpload(r)
	if err != nil {
		h.setServiceError("importPrices: invalid upload", err, w)
		return
	}
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil || data == nil {
		h.setServiceError("importPrices: invalid upload", fmt.Errorf("%w: expected a JSON object", market.ErrInvalidPrices), w)
		return
	}
	count, err := h.market.ImportMTM(r.Context(), data)
	if err != nil {
		h.setServiceError("importPrices: failed to import prices", err, w)
		return
	}
	h.setResponse(importResponse{Message: fmt.Sprintf("imported %d prices", count), Count: count}, w)
}

// ImportDailyHandler imports a daily market package.
func (h *Handler) ImportDailyHandler(w http.ResponseWriter, r *http.Request) {
	body, err := readUpload(r)
	if err != nil {
		h.setServiceError("importDaily: invalid upload", err, w)
		return
	}
	var in market.DailyPackageInput
	if err := json.Unmarshal(body, &in); err != nil {
		h.setServiceError("importDaily: invalid upload", fmt.Errorf("%w: %v", market.ErrInvalidPackage, err), w)
		return
	}
	pkg, err := h.market.ImportDailyPackage(r.Context(), in)
	if err != nil {
		h.setServiceError("importDaily: failed to import package", err, w)
		return
	}
	h.setResponse(importResponse{Message: "imported daily package " + pkg.Date, Date: pkg.Date}, w)
}

// LatestDailyHandler returns the newest daily package.
func (h *Handler) LatestDailyHandler(w http.ResponseWriter, r *http.Request) {
	pkg, err := h.market.LatestDailyPackage(r.Context())
	if err != nil {
		h.setServiceError("getLatestDaily: no package", err, w)
		return
	}
	h.setResponse(pkg, w)
}
