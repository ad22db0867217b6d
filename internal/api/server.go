package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"ForecastChart/internal/config"
	"ForecastChart/internal/service"
)

const (
	maxQueryLimit   = 500
	maxChartSidePx  = 4000
	maxPixelRatio   = 4
	maxRequestBytes = 1 << 16
)

type Server struct {
	svc        *service.Service
	log        *zap.Logger
	httpServer *http.Server
}

func NewServer(svc *service.Service, cfg config.ServerConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{svc: svc, log: logger}

	mux := http.NewServeMux()

	// Prediction routes
	mux.HandleFunc("POST /v1/predict", s.handlePredict)
	mux.HandleFunc("GET /v1/session", s.handleSession)
	mux.HandleFunc("GET /v1/history", s.handleHistory)

	// Chart routes
	mux.HandleFunc("GET /v1/chart", s.handleChart)
	mux.HandleFunc("PUT /v1/mode", s.handleSetMode)

	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      corsMiddleware(mux, cfg.CORSAllowOrigin),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler exposes the routed handler for tests and embedding.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	s.log.Info("api server started", zap.String("addr", s.httpServer.Addr))
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// --- middleware ---

func corsMiddleware(next http.Handler, allowOrigin string) http.Handler {
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- validation helpers ---

func parseLimit(r *http.Request, defaultLimit int) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return defaultLimit
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return defaultLimit
	}
	if n > maxQueryLimit {
		return maxQueryLimit
	}
	return n
}

// parseBounded reads a positive float query parameter no larger than limit.
// A missing parameter yields 0.
func parseBounded(r *http.Request, name string, limit float64) (float64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 || f > limit {
		return 0, errors.New("invalid " + name)
	}
	return f, nil
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
