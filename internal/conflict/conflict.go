// CryptoClash - Multiplayer Crypto Trading Party Game
// Copyright 2026 boldnotbasic
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/boldnotbasic/cryptoclash-app-sub001

// Package conflict provides stateless pairwise comparison of player
// snapshots: a deterministic fingerprint, a human-readable diff, and a
// last-write-wins resolution.
package conflict

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/models"
)

// fingerprintLen is the number of hex characters kept from the digest.
const fingerprintLen = 16

// holding is one portfolio entry in canonical serialization order.
type holding struct {
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
}

// Fingerprint returns a short deterministic digest over the record's name,
// money fields, and portfolio. The portfolio is serialized with
// lexicographically sorted symbol keys, so two logically equal portfolios
// with different insertion order always hash identically.
func Fingerprint(r models.PlayerRecord) string {
	holdings := make([]holding, 0, len(r.Portfolio))
	for sym, qty := range r.Portfolio {
		holdings = append(holdings, holding{Symbol: sym, Quantity: qty})
	}
	sort.Slice(holdings, func(i, j int) bool {
		return holdings[i].Symbol < holdings[j].Symbol
	})

	// marshaling a sorted slice of structs cannot fail
	serialized, _ := json.Marshal(holdings)

	var b strings.Builder
	b.WriteString(r.Name)
	b.WriteByte('|')
	b.WriteString(formatMoney(r.CashBalance))
	b.WriteByte('|')
	b.WriteString(formatMoney(r.PortfolioValue))
	b.WriteByte('|')
	b.WriteString(formatMoney(r.TotalValue))
	b.WriteByte('|')
	b.Write(serialized)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])[:fingerprintLen]
}

// Diff returns a human-readable line for each money field that differs
// between the two records by more than models.MoneyTolerance.
func Diff(a, b models.PlayerRecord) []string {
	var lines []string

	fields := []struct {
		name     string
		av, bv   float64
	}{
		{"cash_balance", a.CashBalance, b.CashBalance},
		{"portfolio_value", a.PortfolioValue, b.PortfolioValue},
		{"total_value", a.TotalValue, b.TotalValue},
	}

	for _, f := range fields {
		if !models.MoneyEqual(f.av, f.bv) {
			lines = append(lines, fmt.Sprintf("%s: %s vs %s",
				f.name, formatMoney(f.av), formatMoney(f.bv)))
		}
	}

	return lines
}

// Resolve picks a winner by last-write-wins on LastUpdate. When the
// timestamps are exactly equal, a wins; the tie-break is deterministic by
// contract, not an accident of evaluation order.
func Resolve(a, b models.PlayerRecord) models.PlayerRecord {
	if b.LastUpdate.After(a.LastUpdate) {
		return b
	}
	return a
}

func formatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
