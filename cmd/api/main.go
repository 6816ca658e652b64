package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bimakw/chain-analytics/internal/application/services"
	"github.com/bimakw/chain-analytics/internal/config"
	"github.com/bimakw/chain-analytics/internal/infrastructure/gateway"
	"github.com/bimakw/chain-analytics/internal/infrastructure/metrics"
	"github.com/bimakw/chain-analytics/internal/logger"
	"github.com/bimakw/chain-analytics/internal/presentation/handlers"
	"github.com/bimakw/chain-analytics/internal/presentation/middleware"
)

func main() {
	configPath := flag.String("config", envOr("CONFIG_FILE", "config/config.yaml"), "path to the YAML config file")
	flag.Parse()

	// A missing .env file is fine, the environment may already be set
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting chain-analytics API",
		zap.Int("port", cfg.API.Port),
		zap.String("config_file", cfg.File),
	)

	if cfg.File == "" {
		log.Warn("Config file not found, using environment and defaults", zap.String("path", *configPath))
	}

	reg := prometheus.DefaultRegisterer

	// Indexer access: client, retries and optional cache
	gw := gateway.New(cfg, reg, log)
	defer gw.Close()

	// Create services
	serviceMetrics := metrics.NewServiceMetrics(reg)
	chainService := services.NewChainService(gw.Repository, serviceMetrics, log)
	portfolioService := services.NewPortfolioService(chainService, cfg.Portfolio, serviceMetrics, log)
	anomalyService := services.NewAnomalyService(cfg.Anomaly, serviceMetrics, log)

	// Create handlers
	chainHandler := handlers.NewChainHandler(chainService, anomalyService, log)
	portfolioHandler := handlers.NewPortfolioHandler(portfolioService, log)
	anomalyHandler := handlers.NewAnomalyHandler(anomalyService, log)

	var cacheChecker handlers.HealthChecker
	if gw.Cache != nil {
		cacheChecker = gw.Cache
	}
	healthHandler := handlers.NewHealthHandler(
		handlers.Dependency{Name: "indexer", Checker: gw, Critical: true},
		handlers.Dependency{Name: "cache", Checker: cacheChecker},
	)

	// Setup router
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Metrics(middleware.NewHTTPMetrics(reg)))
	r.Use(chimiddleware.Recoverer)

	// Health endpoints (no rate limiting)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Get("/live", healthHandler.Live)
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimiter(cfg.API.RateLimitRPS))
		chainHandler.RegisterRoutes(r)
		portfolioHandler.RegisterRoutes(r)
		anomalyHandler.RegisterRoutes(r)
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
	}

	// Run server in goroutine
	go func() {
		log.Info("API server starting", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Received shutdown signal, shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}

	log.Info("Server stopped")
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
