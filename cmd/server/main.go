package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/walletwire/walletwire/internal/api"
	"github.com/walletwire/walletwire/internal/broker"
	"github.com/walletwire/walletwire/internal/config"
	"github.com/walletwire/walletwire/internal/handlers"
	"github.com/walletwire/walletwire/internal/ledger"
	"github.com/walletwire/walletwire/internal/relay"
	"github.com/walletwire/walletwire/internal/store"
	"github.com/walletwire/walletwire/internal/transport/ws"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx := context.Background()

	// Relay core: registry, store, presence
	rly := relay.New(logger, relay.Config{
		InboxDepth:            cfg.InboxDepth,
		RequireSignedRegister: cfg.RequireSignedRegister,
	})

	// WebSocket transport
	wsCfg := ws.DefaultConfig()
	wsCfg.SendBuffer = cfg.SendBuffer
	wsHandler := ws.NewHandler(logger, rly, wsCfg)

	// Optional Redis (rate limiting, IP blocking)
	var redisStore *store.RedisStore
	if cfg.RedisURL != "" {
		var err error
		redisStore, err = store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisStore.Close()
		logger.Info().Msg("connected to Redis")
	}

	// Optional channel broker
	var bridge *broker.Bridge
	if cfg.NatsURL != "" {
		var err error
		bridge, err = broker.Dial(logger, rly, cfg.NatsURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("broker connection failed")
		}
		defer bridge.Close()
	}

	// Optional ledger service
	var ledgerClient *ledger.Client
	if cfg.LedgerURL != "" {
		ledgerClient = ledger.New(cfg.LedgerURL)
		logger.Info().Str("url", cfg.LedgerURL).Msg("ledger service configured")
	}

	// Pingers for health checks; typed nils must stay nil interfaces
	var redisPinger, brokerPinger handlers.Pinger
	if redisStore != nil {
		redisPinger = redisStore
	}
	if bridge != nil {
		brokerPinger = bridge
	}

	h := handlers.NewHandler(rly, redisPinger, brokerPinger, ledgerClient)
	router := api.NewRouter(logger, cfg, h, wsHandler, redisStore)

	// Create server
	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: websocket sessions outlive any sane value.
		IdleTimeout: 60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Msg("starting walletwire relay")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown with 30 second timeout. In-flight deliveries are
	// dropped with the process; buffered messages are not persisted.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
