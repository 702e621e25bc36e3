package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/onevault-finance/onevault/internal/logger"
	"github.com/onevault-finance/onevault/internal/state"
	"github.com/onevault-finance/onevault/internal/types"
	"github.com/onevault-finance/onevault/internal/vault"
)

var webLogger = logger.GetForComponent("web_server")

// WebServer exposes the vault's read-only query surface over HTTP. All
// state-changing operations stay on the engine API; nothing here mutates.
type WebServer struct {
	router *mux.Router
	engine *vault.Engine
	port   string
}

// NewWebServer creates a new web server instance around the engine.
func NewWebServer(port string, engine *vault.Engine) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router: mux.NewRouter(),
		engine: engine,
		port:   port,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/vault/summary", ws.handleGetVaultSummary).Methods("GET")
	api.HandleFunc("/vault/events", ws.handleGetEvents).Methods("GET")
	api.HandleFunc("/position-key", ws.handleGetPositionKey).Methods("GET")
	api.HandleFunc("/strategies", ws.handleGetStrategies).Methods("GET")
	api.HandleFunc("/strategies/{key}", ws.handleGetStrategy).Methods("GET")
	api.HandleFunc("/accounts/{address}", ws.handleGetAccount).Methods("GET")
	api.HandleFunc("/snapshots/latest", ws.handleGetLatestSnapshot).Methods("GET")

	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth returns server and vault health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":       "ok",
		"vault_status": ws.engine.Status().String(),
		"timestamp":    time.Now().UTC(),
	}
	ws.writeJSONResponse(w, http.StatusOK, status)
}

// handleGetVaultSummary returns the consolidated accounting view
func (ws *WebServer) handleGetVaultSummary(w http.ResponseWriter, r *http.Request) {
	totalValue, err := ws.engine.TotalPoolValue()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to compute total pool value")
		ws.writeErrorResponse(w, http.StatusServiceUnavailable, "Pool value unavailable")
		return
	}

	summary := map[string]interface{}{
		"status":            ws.engine.Status().String(),
		"cash_on_hand":      ws.engine.CashOnHand().String(),
		"total_pool_value":  totalValue.String(),
		"total_shares":      ws.engine.TotalShares().String(),
		"active_strategies": ws.engine.NumberOfStrategies(),
		"total_allocation":  ws.engine.TotalAllocation(),
		"max_total_deposit": ws.engine.MaxTotalDeposit().String(),
		"timestamp":         time.Now().UTC(),
	}

	ws.writeJSONResponse(w, http.StatusOK, summary)
}

// maxEventsLimit caps the events query, matching the recorder's window.
const maxEventsLimit = 512

// handleGetPositionKey computes the deterministic position key for a
// (platform, protocol, pair) triple
func (ws *WebServer) handleGetPositionKey(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	platform := query.Get("platform")
	protocol := query.Get("protocol")
	pair := query.Get("pair")
	if platform == "" || protocol == "" || pair == "" {
		ws.writeErrorResponse(w, http.StatusBadRequest, "platform, protocol and pair are required")
		return
	}

	key := types.PositionKeyFor(platform, protocol, pair)
	response := map[string]interface{}{
		"platform":     platform,
		"protocol":     protocol,
		"pair":         pair,
		"position_key": key,
		"created":      ws.engine.HasBeenCreated(key),
		"active":       ws.engine.IsActive(key),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetEvents returns recent vault events, in-memory window first and the
// database log as fallback for deeper history
func (ws *WebServer) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxEventsLimit {
		limit = maxEventsLimit
	}

	events := ws.engine.RecentEvents(limit)
	if len(events) == 0 && state.DB != nil {
		stored, err := state.RecentEvents(limit)
		if err == nil {
			events = stored
		}
	}

	response := map[string]interface{}{
		"events": events,
		"count":  len(events),
		"limit":  limit,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetStrategies returns every registered strategy record
func (ws *WebServer) handleGetStrategies(w http.ResponseWriter, r *http.Request) {
	records := ws.engine.Strategies()

	response := map[string]interface{}{
		"strategies":       records,
		"count":            len(records),
		"total_allocation": ws.engine.TotalAllocation(),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetStrategy returns one strategy by position key
func (ws *WebServer) handleGetStrategy(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	key := types.PositionKey(vars["key"])

	if !ws.engine.HasBeenCreated(key) {
		ws.writeErrorResponse(w, http.StatusNotFound, "Strategy not found")
		return
	}

	index, active := ws.engine.IndexOf(key)
	response := map[string]interface{}{
		"position_key":   key,
		"active":         active,
		"allocation_bps": ws.engine.AllocationOf(key),
	}
	if active {
		response["activation_index"] = index
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetAccount returns an address's share balance and current position
func (ws *WebServer) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	address := vars["address"]

	position, err := ws.engine.CalculatePosition(address)
	if err != nil {
		webLogger.Error().Err(err).Str("address", address).Msg("Failed to value position")
		ws.writeErrorResponse(w, http.StatusServiceUnavailable, "Position valuation unavailable")
		return
	}

	response := map[string]interface{}{
		"address":        address,
		"shares":         ws.engine.BalanceOf(address).String(),
		"position_value": position.String(),
		"fee_exempt":     ws.engine.FeeExempt(address),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetLatestSnapshot returns the most recent persisted snapshot
func (ws *WebServer) handleGetLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := state.LatestSnapshot()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to load latest snapshot")
		ws.writeErrorResponse(w, http.StatusNotFound, "No snapshots found")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, snapshot)
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
