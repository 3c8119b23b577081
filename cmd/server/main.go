// CryptoClash - Multiplayer Crypto Trading Party Game
// Copyright 2026 boldnotbasic
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/boldnotbasic/cryptoclash-app-sub001

// Command server runs the CryptoClash sync service: the room ledger,
// device reconciler, and sync monitor behind an HTTP/WebSocket gateway.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/api"
	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/config"
	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/device"
	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/ledger"
	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/logging"
	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/monitor"
	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/orchestrator"
	ws "github.com/boldnotbasic/cryptoclash-app-sub001/internal/websocket"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("server exited")
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file (default: search standard locations)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	logging.Info().Str("addr", cfg.Server.Addr).Msg("starting cryptoclash sync service")

	clock := clockwork.NewRealClock()
	registry := ledger.NewRegistry(clock)
	reconciler := device.NewReconciler(clock, cfg.Sync.DeviceCapacity)
	mon := monitor.New(clock)
	orch := orchestrator.New(registry, reconciler, mon)

	hub := ws.NewHub()

	// Every room snapshot and resolved conflict feeds the live client feed.
	registry.OnRoomCreated(func(room *ledger.Room) {
		room.Subscribe(hub.BroadcastRoomState)
	})
	unsubConflicts := reconciler.OnConflict(hub.BroadcastConflict)
	defer unsubConflicts()

	root, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hubDone := make(chan error, 1)
	go func() { hubDone <- hub.Run(root) }()

	// Periodic maintenance: purge old sync events and push metrics to
	// connected clients.
	if cfg.Sync.EventPurgeInterval > 0 {
		go func() {
			ticker := clock.NewTicker(cfg.Sync.EventPurgeInterval)
			defer ticker.Stop()
			for {
				select {
				case <-root.Done():
					return
				case <-ticker.Chan():
					mon.ClearEvents(cfg.Sync.EventMaxAge)
					hub.BroadcastMetrics(mon.Metrics())
				}
			}
		}()
	}

	handler := api.NewHandler(registry, reconciler, mon, orch, hub)
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewRouter(handler, routerConfig(cfg)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	case <-root.Done():
	}

	logging.Info().Dur("drain", cfg.Server.ShutdownTimeout).Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("graceful shutdown incomplete, closing")
		_ = server.Close()
	}

	<-hubDone
	logging.Info().Msg("shutdown complete")
	return nil
}

func routerConfig(cfg *config.Config) api.RouterConfig {
	return api.RouterConfig{
		CORSOrigins:     cfg.Server.CORSOrigins,
		RateLimit:       cfg.Server.RateLimit,
		RateLimitWindow: cfg.Server.RateLimitWindow,
		MetricsEnabled:  cfg.Metrics.Enabled,
		MetricsPath:     cfg.Metrics.Path,
	}
}
