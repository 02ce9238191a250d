package api

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/vp-back/internal/cache"
	"github.com/vp-back/internal/database"
	"github.com/vp-back/internal/indicator/vp"
	"github.com/vp-back/internal/messaging"
	"github.com/vp-back/internal/websocket"
	"github.com/vp-back/pkg/config"
)

// Server represents the HTTP API server
type Server struct {
	cfg        *config.Config
	logger     *logrus.Logger
	router     *mux.Router
	httpServer *http.Server

	// Dependencies
	influxDB   *database.InfluxClient
	mysqlDB    *database.MySQLClient
	redisCache *cache.RedisClient
	natsClient *messaging.NATSClient
	calculator *vp.Calculator
	wsHub      *websocket.Hub
}

// NewServer creates a new API server
func NewServer(
	cfg *config.Config,
	logger *logrus.Logger,
	influxDB *database.InfluxClient,
	mysqlDB *database.MySQLClient,
	redisCache *cache.RedisClient,
	natsClient *messaging.NATSClient,
	calculator *vp.Calculator,
	wsHub *websocket.Hub,
) *Server {
	s := &Server{
		cfg:        cfg,
		logger:     logger,
		influxDB:   influxDB,
		mysqlDB:    mysqlDB,
		redisCache: redisCache,
		natsClient: natsClient,
		calculator: calculator,
		wsHub:      wsHub,
	}

	s.setupRoutes()

	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()

	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoveryMiddleware)

	if s.cfg.Security.CORSEnabled {
		s.router.Use(s.corsMiddleware)
	}

	apiV1 := s.router.PathPrefix("/api/v1").Subrouter()

	apiV1.HandleFunc("/health", s.handleHealth).Methods("GET")

	if s.cfg.WebSocket.Enabled {
		apiV1.HandleFunc("/ws", s.handleWebSocket).Methods("GET")
	}

	apiV1.HandleFunc("/symbols", s.handleGetSymbols).Methods("GET")
	apiV1.HandleFunc("/symbols/{symbol}/candles", s.handleGetCandles).Methods("GET")
	apiV1.HandleFunc("/symbols/{symbol}/profile", s.handleGetProfile).Methods("GET")
	apiV1.HandleFunc("/symbols/{symbol}/signal", s.handleGetSignal).Methods("GET")
	apiV1.HandleFunc("/symbols/{symbol}/levels", s.handleGetLevelHistory).Methods("GET")
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := s.cfg.Server.Addr()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	s.logger.WithField("address", addr).Info("Starting HTTP server")

	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Middleware functions

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		s.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   wrapped.statusCode,
			"duration": time.Since(start),
			"remote":   r.RemoteAddr,
		}).Info("HTTP request")
	})
}

func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.WithFields(logrus.Fields{
					"error": err,
					"path":  r.URL.Path,
				}).Error("Panic recovered")

				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return handlers.CORS(
		handlers.AllowedOrigins(s.cfg.Security.CORSOrigins),
		handlers.AllowedMethods(s.cfg.Security.CORSMethods),
		handlers.AllowedHeaders(s.cfg.Security.CORSHeaders),
		handlers.AllowCredentials(),
	)(next)
}

// handleHealth checks the health status of all system components
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	services := map[string]bool{
		"redis": s.redisCache != nil && s.redisCache.Health(ctx) == nil,
		"nats":  s.natsClient != nil && s.natsClient.IsConnected(),
	}
	if s.influxDB != nil {
		services["influx"] = s.influxDB.Health(ctx) == nil
	}
	if s.mysqlDB != nil {
		services["mysql"] = s.mysqlDB.Health(ctx) == nil
	}

	status := "healthy"
	for _, ok := range services {
		if !ok {
			status = "degraded"
			break
		}
	}

	health := map[string]interface{}{
		"status":    status,
		"services":  services,
		"timestamp": time.Now().Unix(),
	}
	if s.wsHub != nil {
		health["websocket_clients"] = s.wsHub.ClientCount()
	}

	writeJSON(w, http.StatusOK, health)
}

// handleWebSocket establishes a WebSocket connection for real-time updates
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.wsHub == nil {
		http.Error(w, "WebSocket service unavailable", http.StatusServiceUnavailable)
		return
	}
	s.wsHub.HandleWS(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack implements the http.Hijacker interface to support WebSocket upgrades
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, fmt.Errorf("ResponseWriter does not implement http.Hijacker")
}
