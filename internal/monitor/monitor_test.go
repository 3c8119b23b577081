// CryptoClash - Multiplayer Crypto Trading Party Game
// Copyright 2026 boldnotbasic
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/boldnotbasic/cryptoclash-app-sub001

package monitor

import (
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/models"
)

func newTestMonitor() (*Monitor, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(time.Unix(1700000000, 0))
	return New(clock), clock
}

func sendEvent(playerID, deviceID, roomCode string) EventInput {
	return EventInput{
		Kind:     models.EventSend,
		PlayerID: playerID,
		DeviceID: deviceID,
		RoomCode: roomCode,
		Data:     models.EventData{TotalValue: 100},
		Source:   models.SourceClient,
	}
}

func TestLogEventAssignsIDAndTimestamp(t *testing.T) {
	m, clock := newTestMonitor()

	a := m.LogEvent(sendEvent("p1", "d1", "ABC"))
	b := m.LogEvent(sendEvent("p1", "d1", "ABC"))

	if a.ID == "" || b.ID == "" {
		t.Error("events must get IDs")
	}
	if a.ID == b.ID {
		t.Error("event IDs must be unique")
	}
	if !a.Timestamp.Equal(clock.Now()) {
		t.Errorf("timestamp = %v, want clock time %v", a.Timestamp, clock.Now())
	}
}

func TestMetricsCounters(t *testing.T) {
	m, _ := newTestMonitor()

	m.LogEvent(sendEvent("p1", "d1", "ABC"))
	m.LogEvent(EventInput{Kind: models.EventReceive, PlayerID: "p1", DeviceID: "d1"})
	m.LogEvent(EventInput{Kind: models.EventConflict, PlayerID: "p1", DeviceID: "d1"})
	m.LogEvent(EventInput{Kind: models.EventResolution, PlayerID: "p1", DeviceID: "d1"})

	got := m.Metrics()
	if got.TotalEvents != 4 {
		t.Errorf("TotalEvents = %d, want 4", got.TotalEvents)
	}
	if got.Conflicts != 1 {
		t.Errorf("Conflicts = %d, want 1", got.Conflicts)
	}
	if got.Resolutions != 1 {
		t.Errorf("Resolutions = %d, want 1", got.Resolutions)
	}
	// 3 of 4 events are non-conflict.
	if got.ConsistencyRate != 75 {
		t.Errorf("ConsistencyRate = %v, want 75", got.ConsistencyRate)
	}
	if got.DeviceCount != 1 {
		t.Errorf("DeviceCount = %d, want 1", got.DeviceCount)
	}
}

func TestConsistencyRateWindow(t *testing.T) {
	m, _ := newTestMonitor()

	// 50 conflicts, then 150 sends: the most recent 100 events are all
	// sends, so the rate reads 100 even though conflicts happened earlier.
	for i := 0; i < 50; i++ {
		m.LogEvent(EventInput{Kind: models.EventConflict, PlayerID: "p1"})
	}
	for i := 0; i < 150; i++ {
		m.LogEvent(sendEvent("p1", "d1", "ABC"))
	}

	if got := m.Metrics().ConsistencyRate; got != 100 {
		t.Errorf("ConsistencyRate = %v, want 100 (conflicts outside window)", got)
	}
}

func TestDeviceCountWindow(t *testing.T) {
	m, _ := newTestMonitor()

	// Device "old" appears once, then 50 events from other devices push
	// it out of the 50-event window.
	m.LogEvent(sendEvent("p1", "old", "ABC"))
	for i := 0; i < 50; i++ {
		m.LogEvent(sendEvent("p1", fmt.Sprintf("d%d", i%5), "ABC"))
	}

	if got := m.Metrics().DeviceCount; got != 5 {
		t.Errorf("DeviceCount = %d, want 5", got)
	}
}

func TestRingBufferEviction(t *testing.T) {
	m, _ := newTestMonitor()

	for i := 0; i < models.EventLogCapacity+100; i++ {
		m.LogEvent(sendEvent("p1", "d1", fmt.Sprintf("room-%d", i)))
	}

	events := m.PlayerEvents("p1", 0)
	if len(events) != models.EventLogCapacity {
		t.Fatalf("log size = %d, want capped at %d", len(events), models.EventLogCapacity)
	}

	// Oldest surviving event is the 100th logged; the most recent is last.
	if events[0].RoomCode != fmt.Sprintf("room-%d", models.EventLogCapacity+99) {
		t.Errorf("newest event = %q, want room-%d", events[0].RoomCode, models.EventLogCapacity+99)
	}
	if events[len(events)-1].RoomCode != "room-100" {
		t.Errorf("oldest surviving event = %q, want room-100", events[len(events)-1].RoomCode)
	}

	// TotalEvents keeps counting past eviction.
	if got := m.Metrics().TotalEvents; got != int64(models.EventLogCapacity+100) {
		t.Errorf("TotalEvents = %d, want %d", got, models.EventLogCapacity+100)
	}
}

func TestPlayerAndRoomEventFilters(t *testing.T) {
	m, _ := newTestMonitor()

	m.LogEvent(sendEvent("p1", "d1", "ABC"))
	m.LogEvent(sendEvent("p2", "d2", "ABC"))
	m.LogEvent(sendEvent("p1", "d1", "XYZ"))

	if got := len(m.PlayerEvents("p1", 0)); got != 2 {
		t.Errorf("p1 events = %d, want 2", got)
	}
	if got := len(m.RoomEvents("ABC", 0)); got != 2 {
		t.Errorf("ABC events = %d, want 2", got)
	}
	if got := len(m.RoomEvents("ABC", 1)); got != 1 {
		t.Errorf("limited ABC events = %d, want 1", got)
	}

	// Most recent first.
	p1 := m.PlayerEvents("p1", 0)
	if p1[0].RoomCode != "XYZ" {
		t.Errorf("first event room = %q, want most recent XYZ", p1[0].RoomCode)
	}
}

func TestClearEventsZeroEmptiesLog(t *testing.T) {
	m, _ := newTestMonitor()

	m.LogEvent(sendEvent("p1", "d1", "ABC"))
	m.LogEvent(sendEvent("p2", "d2", "XYZ"))

	m.ClearEvents(0)

	if got := len(m.RoomEvents("ABC", 0)); got != 0 {
		t.Errorf("ABC events after clear = %d, want 0", got)
	}
	if got := len(m.RoomEvents("XYZ", 0)); got != 0 {
		t.Errorf("XYZ events after clear = %d, want 0", got)
	}
}

func TestClearEventsKeepsRecent(t *testing.T) {
	m, clock := newTestMonitor()

	m.LogEvent(sendEvent("p1", "d1", "OLD"))
	clock.Advance(10 * time.Minute)
	m.LogEvent(sendEvent("p1", "d1", "NEW"))

	m.ClearEvents(5 * time.Minute)

	if got := len(m.RoomEvents("OLD", 0)); got != 0 {
		t.Error("event older than max age should be purged")
	}
	if got := len(m.RoomEvents("NEW", 0)); got != 1 {
		t.Error("recent event should survive the purge")
	}
}

func TestSubscribeReceivesFinishedEvent(t *testing.T) {
	m, _ := newTestMonitor()

	var got []models.SyncEvent
	unsubscribe := m.Subscribe(func(e models.SyncEvent) { got = append(got, e) })

	m.LogEvent(sendEvent("p1", "d1", "ABC"))
	if len(got) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(got))
	}
	if got[0].ID == "" || got[0].Timestamp.IsZero() {
		t.Error("subscriber must receive the finished event with ID and timestamp")
	}

	unsubscribe()
	m.LogEvent(sendEvent("p1", "d1", "ABC"))
	if len(got) != 1 {
		t.Error("unsubscribed callback must not be invoked")
	}
}

func TestSubscriberPanicIsolated(t *testing.T) {
	m, _ := newTestMonitor()

	m.Subscribe(func(models.SyncEvent) { panic("bad subscriber") })
	secondRan := false
	m.Subscribe(func(models.SyncEvent) { secondRan = true })

	m.LogEvent(sendEvent("p1", "d1", "ABC"))

	if !secondRan {
		t.Error("a panicking subscriber must not abort the notification chain")
	}
}

func TestEmptyLogMetrics(t *testing.T) {
	m, _ := newTestMonitor()

	got := m.Metrics()
	if got.TotalEvents != 0 || got.Conflicts != 0 {
		t.Error("fresh monitor must have zero counters")
	}
	if got.ConsistencyRate != 100 {
		t.Errorf("empty log consistency rate = %v, want 100", got.ConsistencyRate)
	}
	if got.DeviceCount != 0 {
		t.Errorf("empty log device count = %d, want 0", got.DeviceCount)
	}
}
