// CryptoClash - Multiplayer Crypto Trading Party Game
// Copyright 2026 boldnotbasic
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/boldnotbasic/cryptoclash-app-sub001

package models

import "time"

// PlayerRecord is the canonical financial state of one player in a room.
//
// Invariant: TotalValue equals PortfolioValue + CashBalance within
// MoneyTolerance after rounding to 2 decimals. The ledger corrects
// violations on write rather than rejecting them.
type PlayerRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Avatar is a display glyph; defaulted to DefaultAvatar when absent.
	Avatar string `json:"avatar"`
	// Portfolio maps asset symbol to held quantity. Quantities are
	// fractional and are stored verbatim, never rounded.
	Portfolio      map[string]float64 `json:"portfolio"`
	CashBalance    float64            `json:"cash_balance"`
	PortfolioValue float64            `json:"portfolio_value"`
	TotalValue     float64            `json:"total_value"`
	LastUpdate     time.Time          `json:"last_update"`
}

// Clone returns a deep copy of the record. The portfolio map is copied so
// the clone can be handed to subscribers without aliasing ledger state.
func (p PlayerRecord) Clone() PlayerRecord {
	out := p
	out.Portfolio = clonePortfolio(p.Portfolio)
	return out
}

// RankedPlayer is a PlayerRecord annotated with its 1-based leaderboard
// position. Ranks are assigned strictly by sorted position: no gaps, no
// shared ranks for ties.
type RankedPlayer struct {
	PlayerRecord
	Rank int `json:"rank"`
}

// RoomState is an immutable snapshot of one room's authoritative state.
type RoomState struct {
	RoomCode string                  `json:"room_code"`
	Players  map[string]PlayerRecord `json:"players"`
	// Prices maps asset symbol to unit price. The table is replaced
	// wholesale on every price tick.
	Prices   map[string]float64 `json:"prices"`
	LastSync time.Time          `json:"last_sync"`
	// Version increments by exactly 1 on every room mutation.
	Version int64 `json:"version"`
}

func clonePortfolio(in map[string]float64) map[string]float64 {
	if in == nil {
		return nil
	}
	out := make(map[string]float64, len(in))
	for sym, qty := range in {
		out[sym] = qty
	}
	return out
}
