// CryptoClash - Multiplayer Crypto Trading Party Game
// Copyright 2026 boldnotbasic
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/boldnotbasic/cryptoclash-app-sub001

package models

import "time"

// DeviceSnapshot records "what device D last reported for player P".
// A player may be signed in on more than one device; each device reports
// snapshots independently and the reconciler diffs consecutive snapshots
// from the same device.
type DeviceSnapshot struct {
	DeviceID       string             `json:"device_id"`
	PlayerID       string             `json:"player_id"`
	PlayerName     string             `json:"player_name"`
	CashBalance    float64            `json:"cash_balance"`
	PortfolioValue float64            `json:"portfolio_value"`
	TotalValue     float64            `json:"total_value"`
	Portfolio      map[string]float64 `json:"portfolio"`
	Timestamp      time.Time          `json:"timestamp"`
	// Version is a caller-supplied sequence number used as a tie-breaker
	// when two snapshots are concurrent within TimestampTolerance.
	Version int64 `json:"version"`
}

// Clone returns a deep copy of the snapshot.
func (s DeviceSnapshot) Clone() DeviceSnapshot {
	out := s
	out.Portfolio = clonePortfolio(s.Portfolio)
	return out
}

// Resolution tags how a conflict was decided.
type Resolution string

const (
	// ResolutionLocal means the previously stored snapshot was the later
	// writer and wins the last-write-wins comparison.
	ResolutionLocal Resolution = "local"

	// ResolutionRemote means the incoming snapshot wins.
	ResolutionRemote Resolution = "remote"

	// ResolutionCalculated means neither timestamps nor versions settle the
	// conflict; the caller should derive an authoritative value from the
	// portfolio and the current price table.
	ResolutionCalculated Resolution = "calculated"
)

// FieldDiff is one diverging field inside a Conflict.
type FieldDiff struct {
	Field      string  `json:"field"`
	Local      float64 `json:"local"`
	Remote     float64 `json:"remote"`
	Difference float64 `json:"difference"`
}

// Conflict is produced when a device's new snapshot diverges from that same
// device's previous snapshot beyond tolerance. It is a self-comparison
// across time for one device, not a cross-device comparison.
//
// The resolution tag is advisory telemetry: the reconciler stores the newer
// snapshot regardless of which side "wins".
type Conflict struct {
	PlayerID   string      `json:"player_id"`
	PlayerName string      `json:"player_name"`
	Fields     []FieldDiff `json:"fields"`
	Resolution Resolution  `json:"resolution"`
	Timestamp  time.Time   `json:"timestamp"`
}

// ConsistencyReport summarizes agreement between every device reporting for
// one player.
type ConsistencyReport struct {
	IsConsistent bool       `json:"is_consistent"`
	Conflicts    []Conflict `json:"conflicts"`
	// RecommendedState is the snapshot from the device with the latest
	// timestamp, or nil when the player has no devices.
	RecommendedState *DeviceSnapshot `json:"recommended_state,omitempty"`
}
