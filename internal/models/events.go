// CryptoClash - Multiplayer Crypto Trading Party Game
// Copyright 2026 boldnotbasic
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/boldnotbasic/cryptoclash-app-sub001

package models

import "time"

// EventKind classifies a sync event.
type EventKind string

const (
	EventSend       EventKind = "send"
	EventReceive    EventKind = "receive"
	EventConflict   EventKind = "conflict"
	EventResolution EventKind = "resolution"
)

// EventSource identifies which side of the wire produced an event.
type EventSource string

const (
	SourceClient EventSource = "client"
	SourceServer EventSource = "server"
)

// EventData is the financial payload carried by a sync event.
type EventData struct {
	TotalValue     float64            `json:"total_value"`
	PortfolioValue float64            `json:"portfolio_value"`
	CashBalance    float64            `json:"cash_balance"`
	Portfolio      map[string]float64 `json:"portfolio,omitempty"`
}

// SyncEvent is one entry in the sync monitor's bounded event log. The
// monitor assigns ID and Timestamp on append.
type SyncEvent struct {
	ID        string      `json:"id"`
	Kind      EventKind   `json:"kind"`
	PlayerID  string      `json:"player_id"`
	DeviceID  string      `json:"device_id"`
	RoomCode  string      `json:"room_code"`
	Data      EventData   `json:"data"`
	Source    EventSource `json:"source"`
	Timestamp time.Time   `json:"timestamp"`
	Version   int64       `json:"version,omitempty"`
}

// SyncMetrics is the monitor's rolling health summary, maintained
// incrementally on every append.
type SyncMetrics struct {
	// TotalEvents counts every event ever logged, including evicted ones.
	TotalEvents int64 `json:"total_events"`
	Conflicts   int64 `json:"conflicts"`
	Resolutions int64 `json:"resolutions"`
	// ConsistencyRate is the percentage of non-conflict events among the
	// most recent ConsistencyWindow events.
	ConsistencyRate float64 `json:"consistency_rate"`
	// DeviceCount is the number of distinct device IDs among the most
	// recent DeviceWindow events.
	DeviceCount int `json:"device_count"`
}

// SyncHealth grades a player's sync behavior.
type SyncHealth string

const (
	HealthGood     SyncHealth = "good"
	HealthWarning  SyncHealth = "warning"
	HealthCritical SyncHealth = "critical"
)

// SyncPattern is the result of analyzing one player's recent events.
type SyncPattern struct {
	// AvgTimeBetweenUpdates is the mean interval between consecutive
	// send-kind events in the analysis window; zero when fewer than two
	// sends were observed.
	AvgTimeBetweenUpdates time.Duration `json:"avg_time_between_updates_ms"`
	// ConflictRate is conflicts over total events in the window, percent.
	ConflictRate       float64    `json:"conflict_rate"`
	MostRecentConflict *SyncEvent `json:"most_recent_conflict,omitempty"`
	SyncHealth         SyncHealth `json:"sync_health"`
}
