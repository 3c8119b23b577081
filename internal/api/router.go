// CryptoClash - Multiplayer Crypto Trading Party Game
// Copyright 2026 boldnotbasic
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/boldnotbasic/cryptoclash-app-sub001

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig carries the transport knobs the router needs.
type RouterConfig struct {
	// CORSOrigins lists allowed origins. Empty disables cross-origin
	// access entirely.
	CORSOrigins []string

	// RateLimit caps requests per client IP per RateLimitWindow. Zero
	// disables rate limiting.
	RateLimit       int
	RateLimitWindow time.Duration

	// MetricsEnabled exposes Prometheus metrics at MetricsPath.
	MetricsEnabled bool
	MetricsPath    string
}

// NewRouter builds the full chi route tree over the handler.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", deviceIDHeader},
		MaxAge:         86400,
	}))

	r.Get("/healthz", h.Healthz)
	if cfg.MetricsEnabled {
		r.Method(http.MethodGet, cfg.MetricsPath, promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimit > 0 {
			window := cfg.RateLimitWindow
			if window <= 0 {
				window = time.Minute
			}
			r.Use(httprate.LimitByRealIP(cfg.RateLimit, window))
		}
		r.Use(prometheusMetrics)

		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", h.Rooms)
			r.Route("/{code}", func(r chi.Router) {
				r.Get("/", h.RoomState)
				r.Delete("/", h.DestroyRoom)
				r.Get("/leaderboard", h.Leaderboard)
				r.Put("/prices", h.UpdatePrices)
				r.Get("/ws", h.WebSocket)
				r.Post("/players/{id}", h.UpdatePlayer)
				r.Delete("/players/{id}", h.RemovePlayer)
			})
		})

		r.Post("/devices", h.RegisterDevice)
		r.Post("/conflict/compare", h.CompareStates)

		r.Route("/players/{id}", func(r chi.Router) {
			r.Get("/conflicts", h.PlayerConflicts)
			r.Delete("/conflicts", h.ClearPlayerConflicts)
			r.Get("/consistency", h.PlayerConsistency)
			r.Get("/patterns", h.PlayerPatterns)
		})

		r.Route("/sync", func(r chi.Router) {
			r.Get("/metrics", h.SyncMetrics)
			r.Get("/events", h.SyncEvents)
		})
	})

	return r
}
