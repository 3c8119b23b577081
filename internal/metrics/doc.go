// CryptoClash - Multiplayer Crypto Trading Party Game
// Copyright 2026 boldnotbasic
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/boldnotbasic/cryptoclash-app-sub001

// Package metrics provides Prometheus instrumentation for the sync service.
//
// Collectors are registered via promauto at package load and exposed by the
// gateway at /metrics. The sync monitor additionally maintains its own
// application-level rolling metrics (models.SyncMetrics); the collectors
// here are the operational mirror of those numbers.
package metrics
