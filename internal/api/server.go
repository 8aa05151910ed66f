package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Version is reported by the index endpoint.
const Version = "1.0.0"

// SetupHandler registers every route on router. A non-empty staticDir that
// exists is served under /ui/.
func SetupHandler(router *mux.Router, h *Handler, staticDir string) {
	router.HandleFunc("/", h.IndexHandler).Methods(http.MethodGet)
	router.HandleFunc("/health", h.HealthHandler).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/contracts", h.ContractsHandler).Methods(http.MethodGet)

	trades := api.PathPrefix("/trades").Subrouter()
	trades.HandleFunc("", h.TradesHandler).Methods(http.MethodGet)
	trades.HandleFunc("", h.CreateTradeHandler).Methods(http.MethodPost)
	trades.HandleFunc("/batch", h.BatchCreateTradesHandler).Methods(http.MethodPost)
	trades.HandleFunc("/parse", h.ParseTradesHandler).Methods(http.MethodPost)
	trades.HandleFunc("/parse-and-create", h.ParseAndCreateHandler).Methods(http.MethodPost)
	trades.HandleFunc("/{id}", h.ReverseTradeHandler).Methods(http.MethodDelete)

	positions := api.PathPrefix("/positions").Subrouter()
	positions.HandleFunc("", h.PositionsHandler).Methods(http.MethodGet)
	positions.HandleFunc("/mtm", h.UpdateMTMHandler).Methods(http.MethodPut)
	positions.HandleFunc("/stress", h.StressHandler).Methods(http.MethodGet)
	positions.HandleFunc("/{key}/reverse-latest", h.ReverseLatestHandler).Methods(http.MethodPost)

	history := api.PathPrefix("/history").Subrouter()
	history.HandleFunc("", h.HistoryHandler).Methods(http.MethodGet)
	history.HandleFunc("/stats", h.StatisticsHandler).Methods(http.MethodGet)

	mkt := api.PathPrefix("/market").Subrouter()
	mkt.HandleFunc("/prices", h.MarketPricesHandler).Methods(http.MethodGet)
	mkt.HandleFunc("/prices/import", h.ImportPricesHandler).Methods(http.MethodPost)
	mkt.HandleFunc("/daily/import", h.ImportDailyHandler).Methods(http.MethodPost)
	mkt.HandleFunc("/daily/latest", h.LatestDailyHandler).Methods(http.MethodGet)

	rec := api.PathPrefix("/reconciliation").Subrouter()
	rec.HandleFunc("", h.ReconciliationHandler).Methods(http.MethodGet)
	rec.HandleFunc("/check", h.CheckReconciliationHandler).Methods(http.MethodPost)

	api.HandleFunc("/settings", h.SettingsHandler).Methods(http.MethodGet)
	api.HandleFunc("/settings", h.UpdateSettingsHandler).Methods(http.MethodPut)

	export := api.PathPrefix("/export").Subrouter()
	export.HandleFunc("/positions/csv", h.ExportPositionsCSVHandler).Methods(http.MethodGet)
	export.HandleFunc("/history/csv", h.ExportHistoryCSVHandler).Methods(http.MethodGet)
	export.HandleFunc("/logs/csv", h.ExportLogsCSVHandler).Methods(http.MethodGet)
	export.HandleFunc("/ledger/csv", h.ExportLedgerCSVHandler).Methods(http.MethodGet)
	export.HandleFunc("/ai-context/txt", h.ExportAIContextHandler).Methods(http.MethodGet)
	export.HandleFunc("/ai-context/html", h.ExportAIContextHTMLHandler).Methods(http.MethodGet)
	export.HandleFunc("/dashboard/txt", h.ExportDashboardHandler).Methods(http.MethodGet)
	export.HandleFunc("/backup", h.ExportBackupHandler).Methods(http.MethodGet)
	export.HandleFunc("/restore", h.RestoreBackupHandler).Methods(http.MethodPost)

	api.HandleFunc("/data", h.ClearDataHandler).Methods(http.MethodDelete)

	if staticDir != "" {
		if info, err := os.Stat(staticDir); err == nil && info.IsDir() {
			router.PathPrefix("/ui/").Handler(http.StripPrefix("/ui/", http.FileServer(http.Dir(staticDir))))
		} else {
			h.log.Warn("Static directory not found, UI disabled", zap.String("dir", staticDir))
		}
	}
}

// IndexHandler describes the service.
func (h *Handler) IndexHandler(w http.ResponseWriter, r *http.Request) {
	h.setResponse(map[string]string{
		"message": "Contract Trade Analytics Terminal API",
		"version": Version,
		"ui":      "/ui/",
	}, w)
}

// HealthHandler reports liveness.
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.setResponse(map[string]string{"status": "healthy"}, w)
}

// APIServer provides the HTTP interface of the terminal.
type APIServer struct {
	server *http.Server
	logger *zap.Logger
}

// NewAPIServer creates a new APIServer listening on port.
func NewAPIServer(port int, h *Handler, staticDir string, logger *zap.Logger) *APIServer {
	router := mux.NewRouter()
	SetupHandler(router, h, staticDir)

	return &APIServer{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger.Named("api-server"),
	}
}

// Start runs the HTTP server in a new goroutine. errCh receives the error
// if the server stops for any reason other than Stop.
func (s *APIServer) Start(errCh chan<- error) {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server failed", zap.Error(err))
			errCh <- err
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *APIServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}
