// Package main runs the API gateway for the real-estate tokenization
// backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	app "github.com/estatelink/tre-backend/internal/app"
	"github.com/estatelink/tre-backend/internal/app/httpapi"
	"github.com/estatelink/tre-backend/internal/app/metrics"
	"github.com/estatelink/tre-backend/internal/app/storage/supabase"
	"github.com/estatelink/tre-backend/internal/config"
	"github.com/estatelink/tre-backend/internal/middleware"
	"github.com/estatelink/tre-backend/internal/token"
	"github.com/estatelink/tre-backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("gateway", cfg.LogLevel, cfg.LogFormat)

	signer, err := token.NewSigner(cfg.JWTSecret, cfg.JWTExpiry)
	if err != nil {
		log.WithError(err).Fatal("configure token signer")
	}

	var stores app.Stores
	if cfg.SupabaseURL != "" {
		client, err := supabase.NewClient(supabase.Config{
			URL:        cfg.SupabaseURL,
			ServiceKey: cfg.SupabaseServiceKey,
		})
		if err != nil {
			log.WithError(err).Fatal("configure supabase client")
		}
		store := supabase.NewStore(client, log)
		stores = app.Stores{
			Admins:    store,
			Nodes:     store,
			Users:     store,
			Positions: store,
			Ledger:    store,
			Health:    store.Health,
		}
		log.Info("using supabase store")
	} else {
		log.Warn("SUPABASE_URL not set; using in-memory store")
	}

	application, err := app.New(stores, signer, log)
	if err != nil {
		log.WithError(err).Fatal("initialise application")
	}

	handler := httpapi.NewHandler(httpapi.Config{
		Auth:      application.Auth,
		Admins:    application.Admins,
		Nodes:     application.Nodes,
		Users:     application.Users,
		Positions: application.Positions,
		Ledger:    application.Ledger,
		Signer:    signer,
		APIKey:    cfg.APIKey,
		Health:    application.Health,
		Metrics:   metrics.Handler(),
		Log:       log,
	})

	chain := buildMiddleware(cfg, log, handler)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           chain,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("gateway listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

// buildMiddleware assembles the outer chain: tracing first so every later
// stage logs with a request ID, then CORS, rate limiting, and metrics.
func buildMiddleware(cfg *config.Config, log *logger.Logger, handler http.Handler) http.Handler {
	writeErr := httpapi.ErrorWriter(log)

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst, log, writeErr)
	limiter.StartCleanup(10 * time.Minute)

	chain := metrics.InstrumentHandler(handler)
	chain = limiter.Handler(chain)
	if len(cfg.AllowedOrigins) > 0 {
		chain = middleware.NewCORSMiddleware(cfg.AllowedOrigins).Handler(chain)
	}
	chain = middleware.NewTracing(log).Handler(chain)
	return chain
}
