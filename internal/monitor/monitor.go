// CryptoClash - Multiplayer Crypto Trading Party Game
// Copyright 2026 boldnotbasic
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/boldnotbasic/cryptoclash-app-sub001

/*
Package monitor keeps an append-only bounded log of sync events plus
rolling health metrics and pattern analysis, for diagnosing the room
ledger and the device reconciler.

The event log is a fixed-capacity ring buffer (models.EventLogCapacity);
the oldest entry is evicted first. Metrics are maintained incrementally on
every append. Unlike the ledger and the reconciler, the monitor has always
isolated subscriber failures; that guard is kept here and mirrored by the
other two components.
*/
package monitor

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/logging"
	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/metrics"
	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/models"
)

// EventSubscriber receives every finished event the monitor logs.
type EventSubscriber func(models.SyncEvent)

// EventInput is a sync event before the monitor assigns its ID and
// timestamp.
type EventInput struct {
	Kind     models.EventKind
	PlayerID string
	DeviceID string
	RoomCode string
	Data     models.EventData
	Source   models.EventSource
	Version  int64
}

// Monitor is the append-only sync event log.
type Monitor struct {
	clock    clockwork.Clock
	capacity int

	// mu guards the ring buffer and the rolling counters.
	mu     sync.Mutex
	events []models.SyncEvent
	head   int // index of the oldest entry
	size   int

	totalEvents int64
	conflicts   int64
	resolutions int64

	// subMu guards the subscriber set.
	subMu     sync.Mutex
	subs      map[int64]EventSubscriber
	nextSubID int64
}

// New creates a Monitor with the standard ring capacity.
func New(clock clockwork.Clock) *Monitor {
	return newWithCapacity(clock, models.EventLogCapacity)
}

func newWithCapacity(clock clockwork.Clock, capacity int) *Monitor {
	return &Monitor{
		clock:    clock,
		capacity: capacity,
		events:   make([]models.SyncEvent, capacity),
		subs:     make(map[int64]EventSubscriber),
	}
}

// LogEvent assigns a unique ID and the current timestamp, appends the
// event to the ring buffer (evicting the oldest entry when full), updates
// the rolling metrics, and invokes every subscriber with the finished
// event. A subscriber that panics is caught and logged and does not
// prevent the remaining subscribers from running.
func (m *Monitor) LogEvent(in EventInput) models.SyncEvent {
	event := models.SyncEvent{
		ID:        uuid.NewString(),
		Kind:      in.Kind,
		PlayerID:  in.PlayerID,
		DeviceID:  in.DeviceID,
		RoomCode:  in.RoomCode,
		Data:      in.Data,
		Source:    in.Source,
		Timestamp: m.clock.Now(),
		Version:   in.Version,
	}

	m.mu.Lock()
	m.appendLocked(event)
	m.totalEvents++
	switch event.Kind {
	case models.EventConflict:
		m.conflicts++
	case models.EventResolution:
		m.resolutions++
	}
	rate := m.consistencyRateLocked()
	size := m.size
	m.mu.Unlock()

	metrics.RecordSyncEvent(event.Kind, event.Source)
	metrics.ConsistencyRate.Set(rate)
	metrics.EventLogSize.Set(float64(size))

	m.notify(event)
	return event
}

// Subscribe registers a callback for every logged event. The returned
// function deregisters it.
func (m *Monitor) Subscribe(fn EventSubscriber) func() {
	m.subMu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subs[id] = fn
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}
}

// Metrics returns the current rolling health summary.
func (m *Monitor) Metrics() models.SyncMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	return models.SyncMetrics{
		TotalEvents:     m.totalEvents,
		Conflicts:       m.conflicts,
		Resolutions:     m.resolutions,
		ConsistencyRate: m.consistencyRateLocked(),
		DeviceCount:     m.deviceCountLocked(),
	}
}

// PlayerEvents returns up to limit events for a player, most recent first.
// A non-positive limit means no bound.
func (m *Monitor) PlayerEvents(playerID string, limit int) []models.SyncEvent {
	return m.filter(limit, func(e models.SyncEvent) bool { return e.PlayerID == playerID })
}

// RoomEvents returns up to limit events for a room, most recent first.
// A non-positive limit means no bound.
func (m *Monitor) RoomEvents(roomCode string, limit int) []models.SyncEvent {
	return m.filter(limit, func(e models.SyncEvent) bool { return e.RoomCode == roomCode })
}

// ClearEvents purges events older than maxAge. A negative maxAge applies
// models.DefaultEventMaxAge; ClearEvents(0) empties the log.
func (m *Monitor) ClearEvents(maxAge time.Duration) {
	if maxAge < 0 {
		maxAge = models.DefaultEventMaxAge
	}
	cutoff := m.clock.Now().Add(-maxAge)

	m.mu.Lock()
	kept := make([]models.SyncEvent, 0, m.size)
	m.iterateLocked(func(e models.SyncEvent) {
		if e.Timestamp.After(cutoff) {
			kept = append(kept, e)
		}
	})

	m.events = make([]models.SyncEvent, m.capacity)
	m.head = 0
	m.size = 0
	for _, e := range kept {
		m.appendLocked(e)
	}
	size := m.size
	m.mu.Unlock()

	metrics.EventLogSize.Set(float64(size))
}

// appendLocked inserts the event, evicting the oldest entry when the ring
// is full. Caller holds mu.
func (m *Monitor) appendLocked(e models.SyncEvent) {
	idx := (m.head + m.size) % m.capacity
	m.events[idx] = e
	if m.size == m.capacity {
		m.head = (m.head + 1) % m.capacity
	} else {
		m.size++
	}
}

// iterateLocked visits events oldest to newest. Caller holds mu.
func (m *Monitor) iterateLocked(fn func(models.SyncEvent)) {
	for i := 0; i < m.size; i++ {
		fn(m.events[(m.head+i)%m.capacity])
	}
}

// lastLocked returns the most recent n events, oldest first. Caller
// holds mu.
func (m *Monitor) lastLocked(n int) []models.SyncEvent {
	if n > m.size {
		n = m.size
	}
	out := make([]models.SyncEvent, 0, n)
	for i := m.size - n; i < m.size; i++ {
		out = append(out, m.events[(m.head+i)%m.capacity])
	}
	return out
}

// consistencyRateLocked is the percentage of non-conflict events among the
// most recent models.ConsistencyWindow events. An empty log reads 100.
func (m *Monitor) consistencyRateLocked() float64 {
	window := m.lastLocked(models.ConsistencyWindow)
	if len(window) == 0 {
		return 100
	}
	clean := 0
	for _, e := range window {
		if e.Kind != models.EventConflict {
			clean++
		}
	}
	return float64(clean) / float64(len(window)) * 100
}

// deviceCountLocked counts distinct device IDs among the most recent
// models.DeviceWindow events. Caller holds mu.
func (m *Monitor) deviceCountLocked() int {
	seen := make(map[string]struct{})
	for _, e := range m.lastLocked(models.DeviceWindow) {
		if e.DeviceID != "" {
			seen[e.DeviceID] = struct{}{}
		}
	}
	return len(seen)
}

func (m *Monitor) filter(limit int, keep func(models.SyncEvent) bool) []models.SyncEvent {
	m.mu.Lock()
	var matched []models.SyncEvent
	m.iterateLocked(func(e models.SyncEvent) {
		if keep(e) {
			matched = append(matched, e)
		}
	})
	m.mu.Unlock()

	// most recent first
	for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
		matched[i], matched[j] = matched[j], matched[i]
	}
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched
}

// notify fans the event out to subscribers in registration order,
// isolating panics.
func (m *Monitor) notify(e models.SyncEvent) {
	m.subMu.Lock()
	ids := make([]int64, 0, len(m.subs))
	for id := range m.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	subs := make([]EventSubscriber, len(ids))
	for i, id := range ids {
		subs[i] = m.subs[id]
	}
	m.subMu.Unlock()

	for _, fn := range subs {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					metrics.RecordSubscriberPanic("monitor")
					logging.Error().
						Interface("panic", rec).
						Str("event_id", e.ID).
						Msg("sync event subscriber panicked")
				}
			}()
			fn(e)
		}()
	}
}
