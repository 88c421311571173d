package web

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/gorilla/mux"

	"github.com/basketfi/svp/internal/logger"
	"github.com/basketfi/svp/internal/pool"
	"github.com/basketfi/svp/internal/state"
)

var webLogger = logger.GetForComponent("web_server")

// WebServer exposes pool data, quotes and operation entry points over HTTP.
type WebServer struct {
	router   *mux.Router
	port     string
	poolName string
	pool     *pool.Pool
}

// NewWebServer creates a new web server instance
func NewWebServer(port, poolName string, p *pool.Pool) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router:   mux.NewRouter(),
		port:     port,
		poolName: poolName,
		pool:     p,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Health endpoint (direct route)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	// API endpoints
	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/basket", ws.handleGetBasket).Methods("GET")
	api.HandleFunc("/basket/{address}", ws.handleGetBasset).Methods("GET")
	api.HandleFunc("/config", ws.handleGetConfig).Methods("GET")
	api.HandleFunc("/snapshots/latest", ws.handleGetLatestSnapshot).Methods("GET")
	api.HandleFunc("/quotes/mint", ws.handleQuoteMint).Methods("GET")
	api.HandleFunc("/quotes/swap", ws.handleQuoteSwap).Methods("GET")
	api.HandleFunc("/quotes/redeem", ws.handleQuoteRedeem).Methods("GET")

	// Operation entry points
	ops := api.PathPrefix("/operations").Subrouter()
	ops.HandleFunc("/mint", ws.handleMint).Methods("POST")
	ops.HandleFunc("/swap", ws.handleSwap).Methods("POST")
	ops.HandleFunc("/redeem", ws.handleRedeem).Methods("POST")

	// Governed parameter changes
	api.HandleFunc("/admin/fees", ws.handleSetFees).Methods("POST")

	// Add CORS middleware
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

// handleHealth returns server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	dbHealthy := true
	if err := state.TestDBConnection(); err != nil {
		dbHealthy = false
	}

	collectionNumber := 0
	if dbHealthy {
		if n, err := state.GetCurrentCollectionNumber(); err == nil {
			collectionNumber = n
		}
	}

	basketView := ws.pool.GetBasket()
	poolHealthy := !basketView.Failed && !basketView.UndergoingRecollateralisation

	overallStatus := "OK"
	statusCode := http.StatusOK
	if !dbHealthy || !poolHealthy {
		overallStatus = "DEGRADED"
		statusCode = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"gc_cycles":        memStats.NumGC,
		},
		"pool_status": map[string]interface{}{
			"pool_name":                       ws.poolName,
			"database_healthy":                dbHealthy,
			"failed":                          basketView.Failed,
			"undergoing_recollateralisation":  basketView.UndergoingRecollateralisation,
			"asset_count":                     len(basketView.Bassets),
			"collection_number":               collectionNumber,
		},
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// handleGetBasket returns the basket composition and health flags
func (ws *WebServer) handleGetBasket(w http.ResponseWriter, r *http.Request) {
	ws.writeJSONResponse(w, http.StatusOK, ws.pool.GetBasket())
}

// handleGetBasset returns a single basket asset
func (ws *WebServer) handleGetBasset(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	b, err := ws.pool.GetBasset(vars["address"])
	if err != nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "Asset not in basket")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, b)
}

// handleGetConfig returns the live pool parameters
func (ws *WebServer) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := ws.pool.GetConfig()
	response := map[string]interface{}{
		"a":      cfg.A.String(),
		"amp":    cfg.Amp,
		"fees":   cfg.Fees,
		"limits": cfg.Limits,
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetLatestSnapshot returns the most recent persisted snapshot
func (ws *WebServer) handleGetLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := state.LoadLatestPoolSnapshot(ws.poolName)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to load latest snapshot")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve snapshot")
		return
	}
	if snap == nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "No snapshot found")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, snap)
}

// handleQuoteMint quotes pool tokens for a single-asset deposit
func (ws *WebServer) handleQuoteMint(w http.ResponseWriter, r *http.Request) {
	asset := r.URL.Query().Get("asset")
	qty, ok := parseQty(r.URL.Query().Get("qty"))
	if asset == "" || !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "asset and positive integer qty are required")
		return
	}
	minted, err := ws.pool.GetMintOutput(asset, qty)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"asset":  asset,
		"qty":    qty.String(),
		"minted": minted.String(),
	})
}

// handleQuoteSwap quotes the native output of a swap
func (ws *WebServer) handleQuoteSwap(w http.ResponseWriter, r *http.Request) {
	input := r.URL.Query().Get("input")
	output := r.URL.Query().Get("output")
	qty, ok := parseQty(r.URL.Query().Get("qty"))
	if input == "" || output == "" || !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "input, output and positive integer qty are required")
		return
	}
	out, err := ws.pool.GetSwapOutput(input, output, qty)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"input":      input,
		"output":     output,
		"qty":        qty.String(),
		"output_qty": out.String(),
	})
}

// handleQuoteRedeem quotes the native output of a single-asset redemption
func (ws *WebServer) handleQuoteRedeem(w http.ResponseWriter, r *http.Request) {
	asset := r.URL.Query().Get("asset")
	qty, ok := parseQty(r.URL.Query().Get("qty"))
	if asset == "" || !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "asset and positive integer qty are required")
		return
	}
	out, err := ws.pool.GetRedeemOutput(asset, qty)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"asset":      asset,
		"qty":        qty.String(),
		"output_qty": out.String(),
	})
}

func parseQty(s string) (sdkmath.Int, bool) {
	qty, ok := sdkmath.NewIntFromString(s)
	if !ok || !qty.IsPositive() {
		return sdkmath.Int{}, false
	}
	return qty, true
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
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
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

		// Create a response writer wrapper to capture status code
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
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
