// Package api exposes the terminal over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"trade-analytics-terminal/internal/backup"
	"trade-analytics-terminal/internal/config"
	"trade-analytics-terminal/internal/journal"
	"trade-analytics-terminal/internal/ledger"
	"trade-analytics-terminal/internal/market"
	"trade-analytics-terminal/internal/models"
)

// maxUploadBytes caps import and restore payloads.
const maxUploadBytes = 32 << 20

// errBadRequest marks malformed query parameters and bodies.
var errBadRequest = errors.New("bad request")

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Handler holds dependencies for the API endpoints.
type Handler struct {
	log       *zap.Logger
	catalogue config.Contracts
	journal   *journal.Journal
	settings  *journal.SettingsStore
	market    *market.Service
	backup    *backup.Service
	engine    *ledger.Engine
	now       func() time.Time
}

// NewHandler creates a new Handler. The catalogue lists the products,
// contract series and traders offered for manual entry.
func NewHandler(log *zap.Logger, catalogue config.Contracts, j *journal.Journal, s *journal.SettingsStore, m *market.Service, b *backup.Service, e *ledger.Engine) *Handler {
	return &Handler{
		log:       log.Named("api"),
		catalogue: catalogue,
		journal:   j,
		settings:  s,
		market:    m,
		backup:    b,
		engine:    e,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (h *Handler) setResponse(response any, w http.ResponseWriter) {
	h.setStatusResponse(http.StatusOK, response, w)
}

func (h *Handler) setStatusResponse(status int, response any, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error("Failed to write response", zap.Error(err))
	}
}

func (h *Handler) setErrorResponse(errType string, statusCode int, err error, w http.ResponseWriter) {
	if statusCode >= http.StatusInternalServerError {
		h.log.Error(errType, zap.Error(err))
	} else {
		h.log.Debug(errType, zap.Error(err))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if encodeErr := json.NewEncoder(w).Encode(ErrorResponse{Type: errType, Message: err.Error()}); encodeErr != nil {
		h.log.Error("Failed to write error response", zap.Error(encodeErr))
	}
}

// setServiceError maps domain errors onto HTTP statuses.
func (h *Handler) setServiceError(errType string, err error, w http.ResponseWriter) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, journal.ErrInvalidTrade),
		errors.Is(err, market.ErrInvalidPrices),
		errors.Is(err, market.ErrInvalidPackage),
		errors.Is(err, backup.ErrInvalidBackup):
		status = http.StatusBadRequest
	case errors.Is(err, journal.ErrTradeNotFound),
		errors.Is(err, market.ErrNoDailyPackage):
		status = http.StatusNotFound
	}
	h.setErrorResponse(errType, status, err, w)
}

func (h *Handler) setDownload(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	if filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		h.log.Error("Failed to write download", zap.String("file", filename), zap.Error(err))
	}
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid json body: %v", errBadRequest, err)
	}
	return nil
}

// readUpload returns the uploaded "file" part of a multipart form, or the raw
// body for any other content type.
func readUpload(r *http.Request) ([]byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read body: %v", errBadRequest, err)
		}
		return body, nil
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, fmt.Errorf("%w: invalid multipart form: %v", errBadRequest, err)
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("%w: missing file field: %v", errBadRequest, err)
	}
	defer file.Close()
	body, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read file: %v", errBadRequest, err)
	}
	return body, nil
}

// filterDate parses the optional filter_date=YYYY-MM-DD query parameter.
func filterDate(r *http.Request) (string, time.Time, error) {
	raw := r.URL.Query().Get("filter_date")
	if raw == "" {
		return "", time.Time{}, nil
	}
	since, err := time.Parse(ledger.DayLayout, raw)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: filter_date must be YYYY-MM-DD", errBadRequest)
	}
	return raw, since, nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", errBadRequest, name)
	}
	return v, nil
}

func floatParam(r *http.Request, name string) (float64, bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %s must be a number", errBadRequest, name)
	}
	return v, true, nil
}

// book is the state derived from the journal for one request.
type book struct {
	filterDate string
	since      time.Time
	settings   models.Settings
	positions  []ledger.Position
	history    []ledger.ClosedTrade
	prices     ledger.PriceBook
	valuation  ledger.Valuation
	// realized includes the initial balance only when no filter is applied.
	realized float64
}

// loadBook rebuilds positions, closes and marks from the journal.
func (h *Handler) loadBook(ctx context.Context, r *http.Request) (*book, error) {
	raw, since, err := filterDate(r)
	if err != nil {
		return nil, err
	}
	settings, err := h.settings.Load(ctx)
	if err != nil {
		return nil, err
	}
	trades, err := h.journal.Active(ctx, since)
	if err != nil {
		return nil, err
	}
	prices, err := h.market.PriceMap(ctx)
	if err != nil {
		return nil, err
	}

	positions, history := h.engine.Rebuild(trades, settings)
	initial := settings.InitialRealizedPL
	if raw != "" {
		initial = 0
	}
	return &book{
		filterDate: raw,
		since:      since,
		settings:   settings,
		positions:  positions,
		history:    history,
		prices:     prices,
		valuation:  h.engine.Value(positions, prices, settings),
		realized:   ledger.RealizedTotal(history, initial, since),
	}, nil
}
