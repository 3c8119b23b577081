// CryptoClash - Multiplayer Crypto Trading Party Game
// Copyright 2026 boldnotbasic
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/boldnotbasic/cryptoclash-app-sub001

package monitor

import (
	"time"

	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/models"
)

// Conflict-rate thresholds (percent) grading a player's sync health.
const (
	criticalConflictRate = 20
	warningConflictRate  = 5
)

// AnalyzePatterns computes sync statistics over the most recent
// models.PatternWindow events for a player:
//
//   - AvgTimeBetweenUpdates: mean interval between consecutive send-kind
//     events (zero when fewer than two sends exist)
//   - ConflictRate: conflicts over total events in the window, percent
//   - MostRecentConflict: the latest conflict event, if any
//   - SyncHealth: critical when ConflictRate > 20, warning when > 5,
//     good otherwise
func (m *Monitor) AnalyzePatterns(playerID string) models.SyncPattern {
	recent := m.PlayerEvents(playerID, models.PatternWindow)

	pattern := models.SyncPattern{SyncHealth: models.HealthGood}
	if len(recent) == 0 {
		return pattern
	}

	// PlayerEvents is most-recent-first; walk back to chronological order.
	chrono := make([]models.SyncEvent, len(recent))
	for i, e := range recent {
		chrono[len(recent)-1-i] = e
	}

	var sendGaps time.Duration
	gapCount := 0
	var lastSend *time.Time
	conflicts := 0

	for i := range chrono {
		e := chrono[i]
		switch e.Kind {
		case models.EventSend:
			if lastSend != nil {
				sendGaps += e.Timestamp.Sub(*lastSend)
				gapCount++
			}
			ts := e.Timestamp
			lastSend = &ts
		case models.EventConflict:
			conflicts++
			c := chrono[i]
			pattern.MostRecentConflict = &c
		}
	}

	if gapCount > 0 {
		pattern.AvgTimeBetweenUpdates = sendGaps / time.Duration(gapCount)
	}
	pattern.ConflictRate = float64(conflicts) / float64(len(chrono)) * 100

	switch {
	case pattern.ConflictRate > criticalConflictRate:
		pattern.SyncHealth = models.HealthCritical
	case pattern.ConflictRate > warningConflictRate:
		pattern.SyncHealth = models.HealthWarning
	}

	return pattern
}
