// CryptoClash - Multiplayer Crypto Trading Party Game
// Copyright 2026 boldnotbasic
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/boldnotbasic/cryptoclash-app-sub001

package ledger

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/models"
	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/validation"
)

func testRoom(t *testing.T) (*Room, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Unix(1700000000, 0))
	reg := NewRegistry(clock)
	return reg.Room("ABC"), clock
}

func update(name string, cash, pv, tv float64, portfolio map[string]float64) validation.PlayerUpdate {
	return validation.PlayerUpdate{
		Name:           name,
		CashBalance:    cash,
		PortfolioValue: pv,
		TotalValue:     tv,
		Portfolio:      portfolio,
	}
}

func TestUpdatePlayerAccepted(t *testing.T) {
	room, clock := testRoom(t)

	ok := room.UpdatePlayer("p1", update("Dana", 100, 200, 300, map[string]float64{"BTC": 2}))
	if !ok {
		t.Fatal("valid update should be accepted")
	}

	got, found := room.Player("p1")
	if !found {
		t.Fatal("player should be stored")
	}
	if got.ID != "p1" {
		t.Errorf("ID = %q, want p1", got.ID)
	}
	if got.TotalValue != 300 {
		t.Errorf("TotalValue = %v, want 300", got.TotalValue)
	}
	if !got.LastUpdate.Equal(clock.Now()) {
		t.Errorf("LastUpdate = %v, want %v", got.LastUpdate, clock.Now())
	}
	if room.Version() != 1 {
		t.Errorf("version = %d, want 1", room.Version())
	}
}

func TestUpdatePlayerRejectedPreservesPriorState(t *testing.T) {
	room, _ := testRoom(t)

	room.UpdatePlayer("p1", update("Dana", 100, 200, 300, nil))
	before, _ := room.Player("p1")
	versionBefore := room.Version()

	tests := []struct {
		name string
		u    validation.PlayerUpdate
	}{
		{"negative cash", update("Dana", -5, 200, 300, nil)},
		{"empty name", update("", 100, 200, 300, nil)},
		{"negative quantity", update("Dana", 100, 200, 300, map[string]float64{"BTC": -1})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if room.UpdatePlayer("p1", tt.u) {
				t.Fatal("invalid update should be rejected")
			}

			after, _ := room.Player("p1")
			if after.CashBalance != before.CashBalance ||
				after.TotalValue != before.TotalValue ||
				!after.LastUpdate.Equal(before.LastUpdate) {
				t.Error("stored record must be unchanged after rejection")
			}
			if room.Version() != versionBefore {
				t.Error("version must not change on rejection")
			}
		})
	}
}

func TestUpdatePlayerCorrectsTotal(t *testing.T) {
	room, _ := testRoom(t)

	// Total disagrees with components by far more than tolerance.
	room.UpdatePlayer("p1", update("Dana", 100, 200, 999, nil))

	got, _ := room.Player("p1")
	if got.TotalValue != 300 {
		t.Errorf("TotalValue = %v, want corrected 300", got.TotalValue)
	}
}

func TestUpdatePlayerKeepsTotalWithinTolerance(t *testing.T) {
	room, _ := testRoom(t)

	// Deviation of exactly 0.01 is within tolerance and kept as reported.
	room.UpdatePlayer("p1", update("Dana", 100, 200, 300.01, nil))

	got, _ := room.Player("p1")
	if got.TotalValue != 300.01 {
		t.Errorf("TotalValue = %v, want 300.01 kept", got.TotalValue)
	}
}

func TestPlayersRanking(t *testing.T) {
	room, _ := testRoom(t)

	room.UpdatePlayer("low", update("Low", 0, 0, 100, nil))
	room.UpdatePlayer("tieA", update("TieA", 0, 0, 200, nil))
	room.UpdatePlayer("high", update("High", 0, 0, 300, nil))
	room.UpdatePlayer("tieB", update("TieB", 0, 0, 200, nil))

	players := room.Players()
	if len(players) != 4 {
		t.Fatalf("expected 4 players, got %d", len(players))
	}

	wantOrder := []string{"high", "tieA", "tieB", "low"}
	for i, want := range wantOrder {
		if players[i].ID != want {
			t.Errorf("position %d: got %q, want %q", i, players[i].ID, want)
		}
		if players[i].Rank != i+1 {
			t.Errorf("position %d: rank = %d, want %d", i, players[i].Rank, i+1)
		}
	}
}

func TestPlayersTieStability(t *testing.T) {
	room, _ := testRoom(t)

	// Insert ties in a known order; re-updating tieA later must not move
	// it behind tieB.
	room.UpdatePlayer("tieA", update("TieA", 0, 0, 200, nil))
	room.UpdatePlayer("tieB", update("TieB", 0, 0, 200, nil))
	room.UpdatePlayer("tieA", update("TieA", 0, 0, 200, nil))

	players := room.Players()
	if players[0].ID != "tieA" || players[1].ID != "tieB" {
		t.Errorf("ties must retain insertion order, got %q then %q", players[0].ID, players[1].ID)
	}
}

func TestUpdatePricesRecompute(t *testing.T) {
	room, clock := testRoom(t)

	room.UpdatePlayer("p1", update("Dana", 50, 0, 50, map[string]float64{"BTC": 2}))
	stampedAt := clock.Now()

	clock.Advance(time.Second)
	room.UpdatePrices(map[string]float64{"BTC": 100})

	got, _ := room.Player("p1")
	if got.PortfolioValue != 200 {
		t.Errorf("PortfolioValue = %v, want 200", got.PortfolioValue)
	}
	if got.TotalValue != 250 {
		t.Errorf("TotalValue = %v, want 250", got.TotalValue)
	}
	if !got.LastUpdate.After(stampedAt) {
		t.Error("LastUpdate should bump when portfolio value moves beyond tolerance")
	}
}

func TestUpdatePricesNoBumpWithinTolerance(t *testing.T) {
	room, clock := testRoom(t)

	room.UpdatePlayer("p1", update("Dana", 50, 200, 250, map[string]float64{"BTC": 2}))
	stampedAt := clock.Now()

	clock.Advance(time.Second)
	// 2 × 100.005 = 200.01, within 0.01 of the stored 200.
	room.UpdatePrices(map[string]float64{"BTC": 100.005})

	got, _ := room.Player("p1")
	if !got.LastUpdate.Equal(stampedAt) {
		t.Error("LastUpdate must not bump for moves within tolerance")
	}
	if got.PortfolioValue != 200.01 {
		t.Errorf("PortfolioValue = %v, want 200.01 (still recomputed)", got.PortfolioValue)
	}
}

func TestUpdatePricesUnknownSymbolContributesZero(t *testing.T) {
	room, _ := testRoom(t)

	room.UpdatePlayer("p1", update("Dana", 10, 0, 10, map[string]float64{"BTC": 2, "OBSCURE": 5}))
	room.UpdatePrices(map[string]float64{"BTC": 100})

	got, _ := room.Player("p1")
	if got.PortfolioValue != 200 {
		t.Errorf("PortfolioValue = %v, want 200 (unpriced symbol contributes 0)", got.PortfolioValue)
	}
}

func TestUpdatePricesEmptyRoom(t *testing.T) {
	room, _ := testRoom(t)

	notifications := 0
	room.Subscribe(func(models.RoomState) { notifications++ })

	before := room.Version()
	room.UpdatePrices(map[string]float64{"ETH": 10})

	if room.Version() != before+1 {
		t.Errorf("version = %d, want %d", room.Version(), before+1)
	}
	if notifications != 1 {
		t.Errorf("subscribers invoked %d times, want exactly 1", notifications)
	}
}

func TestUpdatePricesNotifiesOncePerCall(t *testing.T) {
	room, _ := testRoom(t)

	room.UpdatePlayer("p1", update("A", 0, 0, 0, map[string]float64{"BTC": 1}))
	room.UpdatePlayer("p2", update("B", 0, 0, 0, map[string]float64{"BTC": 2}))
	room.UpdatePlayer("p3", update("C", 0, 0, 0, map[string]float64{"ETH": 3}))

	notifications := 0
	room.Subscribe(func(models.RoomState) { notifications++ })

	room.UpdatePrices(map[string]float64{"BTC": 10, "ETH": 20})

	if notifications != 1 {
		t.Errorf("subscribers invoked %d times, want exactly 1 regardless of changed players", notifications)
	}
}

func TestRemovePlayer(t *testing.T) {
	room, _ := testRoom(t)

	room.UpdatePlayer("p1", update("Dana", 100, 0, 100, nil))
	before := room.Version()

	room.RemovePlayer("p1")

	if _, found := room.Player("p1"); found {
		t.Error("player should be removed")
	}
	if room.Version() != before+1 {
		t.Errorf("version = %d, want %d", room.Version(), before+1)
	}
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	room, _ := testRoom(t)

	var got []models.RoomState
	unsubscribe := room.Subscribe(func(s models.RoomState) { got = append(got, s) })

	room.UpdatePlayer("p1", update("Dana", 100, 0, 100, nil))
	if len(got) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(got))
	}
	if got[0].Version != 1 {
		t.Errorf("snapshot version = %d, want 1", got[0].Version)
	}
	if got[0].Players["p1"].Name != "Dana" {
		t.Error("snapshot should carry the stored player")
	}

	unsubscribe()
	room.UpdatePlayer("p1", update("Dana", 50, 0, 50, nil))
	if len(got) != 1 {
		t.Error("unsubscribed callback must not be invoked")
	}
}

func TestSnapshotImmutability(t *testing.T) {
	room, _ := testRoom(t)

	var snap models.RoomState
	room.Subscribe(func(s models.RoomState) { snap = s })

	room.UpdatePlayer("p1", update("Dana", 100, 0, 100, map[string]float64{"BTC": 1}))
	room.UpdatePlayer("p1", update("Dana", 500, 0, 500, map[string]float64{"BTC": 9}))

	// snap now holds the second snapshot; mutate its maps and verify the
	// ledger is unaffected.
	snap.Players["p1"].Portfolio["BTC"] = 0
	snap.Prices["HACK"] = 1

	got, _ := room.Player("p1")
	if got.Portfolio["BTC"] != 9 {
		t.Error("mutating a snapshot must not affect ledger state")
	}
	if _, ok := room.State().Prices["HACK"]; ok {
		t.Error("mutating a snapshot price table must not affect ledger state")
	}
}

func TestReentrantMutationDeliversInOrder(t *testing.T) {
	room, _ := testRoom(t)

	var versions []int64
	room.Subscribe(func(s models.RoomState) {
		versions = append(versions, s.Version)
		// Reentrant mutation on the first notification: must be queued,
		// not recursed into.
		if s.Version == 1 {
			room.UpdatePlayer("p2", update("Reentrant", 1, 0, 1, nil))
		}
	})

	room.UpdatePlayer("p1", update("Dana", 100, 0, 100, nil))

	if len(versions) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(versions))
	}
	if versions[0] != 1 || versions[1] != 2 {
		t.Errorf("snapshots delivered out of order: %v", versions)
	}
}

func TestSubscriberPanicIsolated(t *testing.T) {
	room, _ := testRoom(t)

	room.Subscribe(func(models.RoomState) { panic("bad subscriber") })
	secondRan := false
	room.Subscribe(func(models.RoomState) { secondRan = true })

	room.UpdatePlayer("p1", update("Dana", 100, 0, 100, nil))

	if !secondRan {
		t.Error("a panicking subscriber must not abort the notification chain")
	}
}
