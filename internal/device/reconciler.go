// CryptoClash - Multiplayer Crypto Trading Party Game
// Copyright 2026 boldnotbasic
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/boldnotbasic/cryptoclash-app-sub001

/*
Package device tracks the last snapshot reported by each device and detects
per-field divergence between consecutive snapshots from the same device.

A conflict is a self-comparison across time for one device: the new
snapshot against that device's previous snapshot. Cross-device agreement
for a player is checked separately by ValidateConsistency.

Resolution is telemetry, not enforcement: the newer snapshot always
overwrites storage regardless of which side the resolution tag says "wins".
Callers that need enforcement apply ConsistencyReport.RecommendedState
themselves.

The snapshot map is bounded: once it holds Capacity devices, registering a
new device evicts the least-recently-seen one.
*/
package device

import (
	"math"
	"sort"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/logging"
	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/metrics"
	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/models"
)

// ConflictSubscriber receives every conflict the reconciler records.
type ConflictSubscriber func(models.Conflict)

// Reconciler tracks one snapshot per device and records divergence
// conflicts.
type Reconciler struct {
	clock    clockwork.Clock
	capacity int

	// mu guards devices, lastSeen, seenSeq, and conflicts.
	mu        sync.Mutex
	devices   map[string]models.DeviceSnapshot
	lastSeen  map[string]int64
	seenSeq   int64
	conflicts []models.Conflict

	// subMu guards the subscriber set.
	subMu     sync.Mutex
	subs      map[int64]ConflictSubscriber
	nextSubID int64
}

// NewReconciler creates a Reconciler holding at most capacity device
// snapshots. A capacity of zero or less falls back to
// models.DefaultDeviceCapacity.
func NewReconciler(clock clockwork.Clock, capacity int) *Reconciler {
	if capacity <= 0 {
		capacity = models.DefaultDeviceCapacity
	}
	return &Reconciler{
		clock:    clock,
		capacity: capacity,
		devices:  make(map[string]models.DeviceSnapshot),
		lastSeen: make(map[string]int64),
		subs:     make(map[int64]ConflictSubscriber),
	}
}

// RegisterDevice ingests a new snapshot for snap.DeviceID. If a prior
// snapshot exists for the same device and any field diverges beyond
// tolerance, a Conflict is recorded, subscribers are notified, and the
// conflict is returned. The stored snapshot is unconditionally overwritten
// with the new one either way.
func (r *Reconciler) RegisterDevice(snap models.DeviceSnapshot) *models.Conflict {
	stored := snap.Clone()

	r.mu.Lock()
	prev, seen := r.devices[snap.DeviceID]

	if !seen && len(r.devices) >= r.capacity {
		r.evictLocked()
	}

	r.devices[snap.DeviceID] = stored
	r.seenSeq++
	r.lastSeen[snap.DeviceID] = r.seenSeq
	metrics.DeviceSnapshots.Set(float64(len(r.devices)))

	var conflict *models.Conflict
	if seen {
		if fields := diffSnapshots(prev, stored); len(fields) > 0 {
			c := models.Conflict{
				PlayerID:   stored.PlayerID,
				PlayerName: stored.PlayerName,
				Fields:     fields,
				Resolution: resolveSnapshots(prev, stored),
				Timestamp:  r.clock.Now(),
			}
			r.conflicts = append(r.conflicts, c)
			conflict = &c
		}
	}
	r.mu.Unlock()

	if conflict != nil {
		metrics.RecordConflict(conflict.Resolution)
		logging.Warn().
			Str("device_id", snap.DeviceID).
			Str("player_id", conflict.PlayerID).
			Int("diverging_fields", len(conflict.Fields)).
			Str("resolution", string(conflict.Resolution)).
			Msg("device snapshot diverged from previous report")
		r.notify(*conflict)
	}

	return conflict
}

// OnConflict registers a callback invoked synchronously for every recorded
// conflict. The returned function deregisters it.
func (r *Reconciler) OnConflict(fn ConflictSubscriber) func() {
	r.subMu.Lock()
	id := r.nextSubID
	r.nextSubID++
	r.subs[id] = fn
	r.subMu.Unlock()

	return func() {
		r.subMu.Lock()
		delete(r.subs, id)
		r.subMu.Unlock()
	}
}

// Conflicts returns the recorded conflicts for a player, oldest first.
func (r *Reconciler) Conflicts(playerID string) []models.Conflict {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Conflict
	for _, c := range r.conflicts {
		if c.PlayerID == playerID {
			out = append(out, c)
		}
	}
	return out
}

// ClearConflicts removes all recorded conflicts for a player.
func (r *Reconciler) ClearConflicts(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.conflicts[:0]
	for _, c := range r.conflicts {
		if c.PlayerID != playerID {
			kept = append(kept, c)
		}
	}
	r.conflicts = kept
}

// DeviceState returns the last snapshot stored for a device.
func (r *Reconciler) DeviceState(deviceID string) (models.DeviceSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap, ok := r.devices[deviceID]
	if !ok {
		return models.DeviceSnapshot{}, false
	}
	return snap.Clone(), true
}

// PlayerDevices returns the snapshots of every device reporting for a
// player, sorted by device ID.
func (r *Reconciler) PlayerDevices(playerID string) []models.DeviceSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.playerDevicesLocked(playerID)
}

// ValidateConsistency diffs every device reporting for a player against
// the device with the latest timestamp. IsConsistent is true iff the
// player has at most one device or no field diverges beyond tolerance.
// RecommendedState is always the reference snapshot.
func (r *Reconciler) ValidateConsistency(playerID string) models.ConsistencyReport {
	r.mu.Lock()
	defer r.mu.Unlock()

	snaps := r.playerDevicesLocked(playerID)
	if len(snaps) == 0 {
		return models.ConsistencyReport{IsConsistent: true}
	}

	// Reference is the latest timestamp; exact ties keep the smaller
	// device ID, which playerDevicesLocked already ordered first.
	ref := snaps[0]
	for _, s := range snaps[1:] {
		if s.Timestamp.After(ref.Timestamp) {
			ref = s
		}
	}

	report := models.ConsistencyReport{
		IsConsistent:     true,
		RecommendedState: &ref,
	}

	for _, s := range snaps {
		if s.DeviceID == ref.DeviceID {
			continue
		}
		if fields := diffSnapshots(s, ref); len(fields) > 0 {
			report.Conflicts = append(report.Conflicts, models.Conflict{
				PlayerID:   playerID,
				PlayerName: ref.PlayerName,
				Fields:     fields,
				Resolution: resolveSnapshots(s, ref),
				Timestamp:  r.clock.Now(),
			})
		}
	}

	report.IsConsistent = len(report.Conflicts) == 0
	return report
}

// playerDevicesLocked filters snapshots by player, sorted by device ID.
// Caller holds mu.
func (r *Reconciler) playerDevicesLocked(playerID string) []models.DeviceSnapshot {
	var out []models.DeviceSnapshot
	for _, snap := range r.devices {
		if snap.PlayerID == playerID {
			out = append(out, snap.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out
}

// evictLocked drops the least-recently-seen device. Caller holds mu.
func (r *Reconciler) evictLocked() {
	var victim string
	var oldest int64 = math.MaxInt64
	for id, seen := range r.lastSeen {
		if seen < oldest {
			victim, oldest = id, seen
		}
	}
	if victim == "" {
		return
	}

	delete(r.devices, victim)
	delete(r.lastSeen, victim)
	metrics.DeviceEvictions.Inc()
	logging.Debug().Str("device_id", victim).Msg("evicted least-recently-seen device snapshot")
}

// notify fans the conflict out to subscribers, isolating panics so one
// failing subscriber cannot abort the chain.
func (r *Reconciler) notify(c models.Conflict) {
	r.subMu.Lock()
	ids := make([]int64, 0, len(r.subs))
	for id := range r.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	subs := make([]ConflictSubscriber, len(ids))
	for i, id := range ids {
		subs[i] = r.subs[id]
	}
	r.subMu.Unlock()

	for _, fn := range subs {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					metrics.RecordSubscriberPanic("reconciler")
					logging.Error().
						Interface("panic", rec).
						Str("player_id", c.PlayerID).
						Msg("conflict subscriber panicked")
				}
			}()
			fn(c)
		}()
	}
}
