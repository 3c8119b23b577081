// CryptoClash - Multiplayer Crypto Trading Party Game
// Copyright 2026 boldnotbasic
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/boldnotbasic/cryptoclash-app-sub001

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/models"
)

// Prometheus instrumentation for the sync service:
// - Room ledger activity (rooms, players, price ticks, rejections)
// - Device reconciliation (conflicts, evictions, snapshot count)
// - Sync monitor health (event volume, consistency rate)
// - Gateway activity (API requests, websocket clients)

var (
	// Room Ledger Metrics
	ActiveRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cryptoclash_active_rooms",
			Help: "Current number of live room ledgers",
		},
	)

	RoomPlayers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cryptoclash_room_players",
			Help: "Current number of players per room",
		},
		[]string{"room_code"},
	)

	UpdateRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cryptoclash_update_rejections_total",
			Help: "Total player updates dropped by validation",
		},
	)

	ArithmeticCorrections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cryptoclash_arithmetic_corrections_total",
			Help: "Total values recomputed because total_value disagreed with its components",
		},
	)

	PriceTickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cryptoclash_price_tick_duration_seconds",
			Help:    "Duration of per-room price tick recomputation",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
	)

	// Device Reconciler Metrics
	ConflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptoclash_conflicts_total",
			Help: "Total divergence conflicts detected, by resolution tag",
		},
		[]string{"resolution"}, // "local", "remote", "calculated"
	)

	DeviceSnapshots = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cryptoclash_device_snapshots",
			Help: "Current number of device snapshots held by the reconciler",
		},
	)

	DeviceEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cryptoclash_device_evictions_total",
			Help: "Total device snapshots evicted by the least-recently-seen policy",
		},
	)

	// Sync Monitor Metrics
	SyncEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptoclash_sync_events_total",
			Help: "Total sync events logged, by kind and source",
		},
		[]string{"kind", "source"},
	)

	ConsistencyRate = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cryptoclash_consistency_rate",
			Help: "Percentage of non-conflict events in the rolling window",
		},
	)

	EventLogSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cryptoclash_event_log_size",
			Help: "Current number of events held in the sync monitor ring buffer",
		},
	)

	// Subscriber fan-out
	SubscriberPanics = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptoclash_subscriber_panics_total",
			Help: "Total subscriber callbacks that panicked during notification",
		},
		[]string{"component"}, // "ledger", "reconciler", "monitor"
	)

	// Gateway Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptoclash_api_requests_total",
			Help: "Total API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cryptoclash_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "endpoint"},
	)

	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cryptoclash_websocket_clients",
			Help: "Current number of connected websocket clients",
		},
	)
)

// RecordSyncEvent increments the event counter for a finished sync event.
func RecordSyncEvent(kind models.EventKind, source models.EventSource) {
	SyncEventsTotal.WithLabelValues(string(kind), string(source)).Inc()
}

// RecordConflict increments the conflict counter for a resolution tag.
func RecordConflict(resolution models.Resolution) {
	ConflictsTotal.WithLabelValues(string(resolution)).Inc()
}

// RecordPriceTick observes the duration of one price tick recomputation.
func RecordPriceTick(d time.Duration) {
	PriceTickDuration.Observe(d.Seconds())
}

// RecordSubscriberPanic counts a recovered subscriber panic for a component.
func RecordSubscriberPanic(component string) {
	SubscriberPanics.WithLabelValues(component).Inc()
}
