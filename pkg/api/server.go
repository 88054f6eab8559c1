// Package api serves account inspection over HTTP.
//
// All routes live under /api/v1 and require the X-API-Key header. Prometheus
// metrics are served unauthenticated at /metrics.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// NewRouter builds the HTTP handler with all routes configured
func NewRouter(server *Server, gatherer prometheus.Gatherer) http.Handler {
	metrics := server.metrics
	logger := server.config.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(metrics.InstrumentAuthMiddleware(apiKeyMiddleware(server.config.APIKey)))

		r.Get("/health", metrics.InstrumentHandler("GET", "/api/v1/health", server.handleHealth))

		r.Post("/decode", metrics.InstrumentHandler("POST", "/api/v1/decode", server.handleDecode))
		r.Get("/accounts/{address}", metrics.InstrumentHandler("GET", "/api/v1/accounts/{address}", server.handleAccount))
		r.Get("/blocks/{slot}/record", metrics.InstrumentHandler("GET", "/api/v1/blocks/{slot}/record", server.handleBlockRecord))

		r.Get("/reports", metrics.InstrumentHandler("GET", "/api/v1/reports", server.handleListReports))
		r.Get("/reports/{id}", metrics.InstrumentHandler("GET", "/api/v1/reports/{id}", server.handleReport))
	})

	return r
}

// StartServer serves the API until ctx is cancelled, then shuts down
// gracefully
func StartServer(ctx context.Context, inspector Inspector, config ServerConfig) error {
	if config.APIKey == "" || config.APIKey == "auto" {
		return fmt.Errorf("an API key is required; run init or set server.api_key")
	}

	var (
		reg      prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if config.Registry != nil {
		reg, gatherer = config.Registry, config.Registry
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop().Sugar()
	}

	server := NewServer(inspector, config, NewMetrics(reg))

	addr := net.JoinHostPort(config.Bind, strconv.Itoa(config.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(server, gatherer),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		config.Logger.Infow("starting sasinspect API server",
			"addr", addr,
			"metrics", fmt.Sprintf("http://%s/metrics", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	config.Logger.Infow("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
