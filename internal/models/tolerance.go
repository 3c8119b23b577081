// CryptoClash - Multiplayer Crypto Trading Party Game
// Copyright 2026 boldnotbasic
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/boldnotbasic/cryptoclash-app-sub001

package models

import (
	"math"
	"time"
)

// Numeric tolerances shared by every comparison site in the system.
// Hoisted here so the ledger, the reconciler, and the conflict utilities
// cannot silently drift apart.
const (
	// MoneyTolerance is the maximum absolute difference between two currency
	// amounts (cash balance, portfolio value, total value) still treated as
	// equal. Currency is tracked at 2-decimal precision.
	MoneyTolerance = 0.01

	// QuantityTolerance is the maximum absolute difference between two asset
	// quantities still treated as equal. Quantities are fractional and are
	// never rounded, so the tolerance is an order of magnitude tighter.
	QuantityTolerance = 0.001

	// TimestampTolerance is the window within which two snapshot timestamps
	// are considered concurrent. Outside the window, last-write-wins applies
	// outright; inside it, resolution falls through to version comparison.
	TimestampTolerance = time.Second
)

// Bookkeeping bounds for the sync monitor and the device reconciler.
const (
	// EventLogCapacity caps the sync monitor's ring buffer.
	EventLogCapacity = 1000

	// ConsistencyWindow is the number of most recent events over which the
	// rolling consistency rate is computed.
	ConsistencyWindow = 100

	// DeviceWindow is the number of most recent events over which the
	// distinct-device count is computed.
	DeviceWindow = 50

	// PatternWindow is the number of most recent per-player events analyzed
	// for sync patterns.
	PatternWindow = 100

	// DefaultEventMaxAge is the default retention applied when purging the
	// sync monitor's event log.
	DefaultEventMaxAge = 5 * time.Minute

	// DefaultDeviceCapacity bounds the reconciler's per-device snapshot map.
	// The least-recently-seen device is evicted once the map is full.
	DefaultDeviceCapacity = 512
)

// DefaultAvatar is assigned to player records that arrive without one.
const DefaultAvatar = "🪙"

// RoundMoney rounds a currency amount to 2 decimal places, half away
// from zero.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// MoneyEqual reports whether two currency amounts agree within MoneyTolerance.
func MoneyEqual(a, b float64) bool {
	return math.Abs(a-b) <= MoneyTolerance
}

// QuantityEqual reports whether two asset quantities agree within
// QuantityTolerance.
func QuantityEqual(a, b float64) bool {
	return math.Abs(a-b) <= QuantityTolerance
}
