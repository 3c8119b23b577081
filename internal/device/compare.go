// CryptoClash - Multiplayer Crypto Trading Party Game
// Copyright 2026 boldnotbasic
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/boldnotbasic/cryptoclash-app-sub001

package device

import (
	"math"
	"sort"

	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/models"
)

// diffSnapshots compares two snapshots field by field: money fields use
// models.MoneyTolerance, portfolio quantities use models.QuantityTolerance
// over the union of symbol keys. A quantity present on only one side is
// compared against an implicit 0. Local is the previously stored side,
// remote the incoming one.
func diffSnapshots(local, remote models.DeviceSnapshot) []models.FieldDiff {
	var diffs []models.FieldDiff

	money := []struct {
		name   string
		lv, rv float64
	}{
		{"cash_balance", local.CashBalance, remote.CashBalance},
		{"portfolio_value", local.PortfolioValue, remote.PortfolioValue},
		{"total_value", local.TotalValue, remote.TotalValue},
	}
	for _, f := range money {
		if !models.MoneyEqual(f.lv, f.rv) {
			diffs = append(diffs, models.FieldDiff{
				Field:      f.name,
				Local:      f.lv,
				Remote:     f.rv,
				Difference: math.Abs(f.lv - f.rv),
			})
		}
	}

	symbols := make(map[string]struct{}, len(local.Portfolio)+len(remote.Portfolio))
	for sym := range local.Portfolio {
		symbols[sym] = struct{}{}
	}
	for sym := range remote.Portfolio {
		symbols[sym] = struct{}{}
	}
	ordered := make([]string, 0, len(symbols))
	for sym := range symbols {
		ordered = append(ordered, sym)
	}
	sort.Strings(ordered)

	for _, sym := range ordered {
		lq := local.Portfolio[sym]
		rq := remote.Portfolio[sym]
		if !models.QuantityEqual(lq, rq) {
			diffs = append(diffs, models.FieldDiff{
				Field:      "portfolio." + sym,
				Local:      lq,
				Remote:     rq,
				Difference: math.Abs(lq - rq),
			})
		}
	}

	return diffs
}

// resolveSnapshots computes the advisory resolution tag for a diverging
// pair:
//
//  1. timestamps more than models.TimestampTolerance apart: the later
//     writer wins outright ("remote" for the incoming snapshot, "local"
//     for the stored one)
//  2. otherwise the higher version wins
//  3. otherwise "calculated": the reconciler does not recompute, the
//     caller derives an authoritative value from portfolio and prices
func resolveSnapshots(local, remote models.DeviceSnapshot) models.Resolution {
	gap := remote.Timestamp.Sub(local.Timestamp)
	if gap > models.TimestampTolerance {
		return models.ResolutionRemote
	}
	if gap < -models.TimestampTolerance {
		return models.ResolutionLocal
	}

	switch {
	case remote.Version > local.Version:
		return models.ResolutionRemote
	case local.Version > remote.Version:
		return models.ResolutionLocal
	default:
		return models.ResolutionCalculated
	}
}
