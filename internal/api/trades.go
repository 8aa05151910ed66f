package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"trade-analytics-terminal/internal/journal"
	"trade-analytics-terminal/internal/models"
	"trade-analytics-terminal/internal/parser"
)

type parseRequest struct {
	Text string `json:"text"`
}

type parseResponse struct {
	Count      int                  `json:"count"`
	ValidCount int                  `json:"valid_count"`
	Trades     []parser.ParsedTrade `json:"trades"`
}

type parseAndCreateResponse struct {
	Count       int                  `json:"count"`
	ParsedCount int                  `json:"parsed_count"`
	Parsed      []parser.ParsedTrade `json:"parsed"`
	Created     []models.Trade       `json:"created"`
}

type statusResponse struct {
	Status string `json:"status"`
	ID     string `json:"id,omitempty"`
	Key    string `json:"key,omitempty"`
}

// CreateTradeHandler records a single trade.
func (h *Handler) CreateTradeHandler(w http.ResponseWriter, r *http.Request) {
	var req journal.NewTrade
	if err := decodeJSON(r, &req); err != nil {
		h.setServiceError("createTrade: invalid request", err, w)
		return
	}
	trade, err := h.journal.Create(r.Context(), req)
	if err != nil {
		h.setServiceError("createTrade: failed to create trade", err, w)
		return
	}
	h.setStatusResponse(http.StatusCreated, trade, w)
}

// BatchCreateTradesHandler records a list of trades atomically.
func (h *Handler) BatchCreateTradesHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Trades []journal.NewTrade `json:"trades"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.setServiceError("batchCreateTrades: invalid request", err, w)
		return
	}
	trades, err := h.journal.CreateBatch(r.Context(), req.Trades)
	if err != nil {
		h.setServiceError("batchCreateTrades: failed to create trades", err, w)
		return
	}
	h.setStatusResponse(http.StatusCreated, trades, w)
}

// ParseTradesHandler parses confirmation text without recording it.
func (h *Handler) ParseTradesHandler(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := decodeJSON(r, &req); err != nil {
		h.setServiceError("parseTrades: invalid request", err, w)
		return
	}
	parsed := h.journal.Parse(req.Text)
	if parsed == nil {
		parsed = []parser.ParsedTrade{}
	}
	resp := parseResponse{Count: len(parsed), Trades: parsed}
	for _, p := range parsed {
		if p.Valid {
			resp.ValidCount++
		}
	}
	h.setResponse(resp, w)
}

// ParseAndCreateHandler parses confirmation text and records the valid trades.
func (h *Handler) ParseAndCreateHandler(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := decodeJSON(r, &req); err != nil {
		h.setServiceError("parseAndCreate: invalid request", err, w)
		return
	}
	res, err := h.journal.ParseAndCreate(r.Context(), req.Text)
	if err != nil {
		h.setServiceError("parseAndCreate: failed to create trades", err, w)
		return
	}
	if res.Parsed == nil {
		res.Parsed = []parser.ParsedTrade{}
	}
	if res.Created == nil {
		res.Created = []models.Trade{}
	}
	h.setResponse(parseAndCreateResponse{
		Count:       len(res.Created),
		ParsedCount: len(res.Parsed),
		Parsed:      res.Parsed,
		Created:     res.Created,
	}, w)
}

// ReverseTradeHandler marks a trade reversed.
func (h *Handler) ReverseTradeHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.journal.Reverse(r.Context(), id); err != nil {
		h.setServiceError("reverseTrade: failed to reverse trade", err, w)
		return
	}
	h.setResponse(statusResponse{Status: "reversed", ID: id}, w)
}

// TradesHandler lists journal entries, newest first.
func (h *Handler) TradesHandler(w http.ResponseWriter, r *http.Request) {
	_, since, err := filterDate(r)
	if err != nil {
		h.setServiceError("getTrades: invalid query", err, w)
		return
	}
	skip, err := intParam(r, "skip", 0)
	if err != nil {
		h.setServiceError("getTrades: invalid query", err, w)
		return
	}
	limit, err := intParam(r, "limit", journal.DefaultLimit)
	if err != nil {
		h.setServiceError("getTrades: invalid query", err, w)
		return
	}

	q := r.URL.Query()
	trades, err := h.journal.List(r.Context(), journal.Filter{
		Status: models.TradeStatus(q.Get("status")),
		Since:  since,
		Search: q.Get("search"),
		Skip:   skip,
		Limit:  limit,
	})
	if err != nil {
		h.setServiceError("getTrades: failed to list trades", err, w)
		return
	}
	h.setResponse(trades, w)
}
