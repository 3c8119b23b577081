// CryptoClash - Multiplayer Crypto Trading Party Game
// Copyright 2026 boldnotbasic
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/boldnotbasic/cryptoclash-app-sub001

package ledger

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/logging"
	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/metrics"
	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/models"
	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/validation"
)

// Subscriber receives a fresh immutable state snapshot on every room
// mutation.
type Subscriber func(models.RoomState)

// Room is the authoritative ledger for one room code.
type Room struct {
	code      string
	clock     clockwork.Clock
	sanitizer *validation.Sanitizer

	// mu guards players, seq, prices, lastSync, and version.
	mu       sync.Mutex
	players  map[string]models.PlayerRecord
	seq      map[string]int64 // insertion sequence, for stable leaderboard ties
	nextSeq  int64
	prices   map[string]float64
	lastSync int64 // unix nanos of last mutation; 0 until first mutation
	version  int64

	// subMu guards the subscriber set.
	subMu     sync.Mutex
	subs      map[int64]Subscriber
	nextSubID int64

	// notifyMu guards pending and flushing. Lock order: mu before notifyMu.
	notifyMu sync.Mutex
	pending  []models.RoomState
	flushing bool
}

func newRoom(code string, clock clockwork.Clock, sanitizer *validation.Sanitizer) *Room {
	return &Room{
		code:      code,
		clock:     clock,
		sanitizer: sanitizer,
		players:   make(map[string]models.PlayerRecord),
		seq:       make(map[string]int64),
		prices:    make(map[string]float64),
		subs:      make(map[int64]Subscriber),
	}
}

// Code returns the room code.
func (r *Room) Code() string {
	return r.code
}

// UpdatePlayer runs the partial update through sanitization and, on
// acceptance, replaces the stored record for playerID. Rejected updates
// leave prior state untouched and return false.
//
// If the sanitized total value deviates from portfolio value + cash balance
// by more than models.MoneyTolerance, the total is silently recomputed from
// its components before storage. The correction is logged as a warning; the
// update is never rejected for it.
func (r *Room) UpdatePlayer(playerID string, update validation.PlayerUpdate) bool {
	record, err := r.sanitizer.Sanitize(update)
	if err != nil {
		metrics.UpdateRejections.Inc()
		logging.Warn().
			Err(err).
			Str("room_code", r.code).
			Str("player_id", playerID).
			Msg("player update rejected")
		return false
	}
	record.ID = playerID

	if math.Abs(record.TotalValue-(record.PortfolioValue+record.CashBalance)) > models.MoneyTolerance {
		corrected := models.RoundMoney(record.PortfolioValue + record.CashBalance)
		metrics.ArithmeticCorrections.Inc()
		logging.Warn().
			Str("room_code", r.code).
			Str("player_id", playerID).
			Float64("reported_total", record.TotalValue).
			Float64("corrected_total", corrected).
			Msg("total value disagrees with components, recomputed")
		record.TotalValue = corrected
	}

	r.mu.Lock()
	if _, known := r.seq[playerID]; !known {
		r.seq[playerID] = r.nextSeq
		r.nextSeq++
	}
	r.players[playerID] = record
	r.bumpLocked()
	metrics.RoomPlayers.WithLabelValues(r.code).Set(float64(len(r.players)))
	r.enqueueLocked()
	r.mu.Unlock()

	r.flush()
	return true
}

// Player returns the stored record for playerID.
func (r *Room) Player(playerID string) (models.PlayerRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[playerID]
	if !ok {
		return models.PlayerRecord{}, false
	}
	return p.Clone(), true
}

// Players returns all player records sorted descending by total value,
// with ties retaining original insertion order. Ranks are 1-based and
// assigned strictly by sorted position: no gaps, no shared ranks.
func (r *Room) Players() []models.RankedPlayer {
	r.mu.Lock()
	ranked := make([]models.RankedPlayer, 0, len(r.players))
	seq := make(map[string]int64, len(r.seq))
	for id, p := range r.players {
		ranked = append(ranked, models.RankedPlayer{PlayerRecord: p.Clone()})
		seq[id] = r.seq[id]
	}
	r.mu.Unlock()

	// Pre-sort by insertion sequence so the stable sort preserves stored
	// order for equal totals.
	sort.Slice(ranked, func(i, j int) bool {
		return seq[ranked[i].ID] < seq[ranked[j].ID]
	})
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalValue > ranked[j].TotalValue
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// UpdatePrices replaces the price table wholesale and recomputes every
// player's portfolio value and total value against it. A player's
// LastUpdate is bumped only when the recomputed portfolio value moves by
// more than models.MoneyTolerance, so float noise does not churn
// downstream consumers. Subscribers are notified exactly once per call and
// the version increments by exactly 1, players or no players.
func (r *Room) UpdatePrices(prices map[string]float64) {
	start := r.clock.Now()

	fresh := make(map[string]float64, len(prices))
	for sym, price := range prices {
		fresh[sym] = price
	}

	r.mu.Lock()
	r.prices = fresh

	for id, p := range r.players {
		var sum float64
		for sym, qty := range p.Portfolio {
			sum += qty * fresh[sym]
		}
		newPV := models.RoundMoney(sum)

		if math.Abs(newPV-p.PortfolioValue) > models.MoneyTolerance {
			p.LastUpdate = r.clock.Now()
		}
		p.PortfolioValue = newPV
		p.TotalValue = models.RoundMoney(newPV + p.CashBalance)
		r.players[id] = p
	}

	r.bumpLocked()
	r.enqueueLocked()
	r.mu.Unlock()

	metrics.RecordPriceTick(r.clock.Since(start))
	r.flush()
}

// RemovePlayer deletes the entry for playerID, notifies subscribers, and
// increments the version.
func (r *Room) RemovePlayer(playerID string) {
	r.mu.Lock()
	delete(r.players, playerID)
	delete(r.seq, playerID)
	r.bumpLocked()
	metrics.RoomPlayers.WithLabelValues(r.code).Set(float64(len(r.players)))
	r.enqueueLocked()
	r.mu.Unlock()

	r.flush()
}

// Subscribe registers a callback invoked with a full state snapshot on
// every mutation. The returned function deregisters it.
func (r *Room) Subscribe(fn Subscriber) func() {
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

// State returns an immutable snapshot of the full room state.
func (r *Room) State() models.RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Version returns the room's mutation counter.
func (r *Room) Version() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.version
}

// bumpLocked stamps lastSync and increments version. Caller holds mu.
func (r *Room) bumpLocked() {
	r.version++
	r.lastSync = r.clock.Now().UnixNano()
}

// snapshotLocked deep-copies the room state. Caller holds mu.
func (r *Room) snapshotLocked() models.RoomState {
	players := make(map[string]models.PlayerRecord, len(r.players))
	for id, p := range r.players {
		players[id] = p.Clone()
	}
	prices := make(map[string]float64, len(r.prices))
	for sym, price := range r.prices {
		prices[sym] = price
	}

	state := models.RoomState{
		RoomCode: r.code,
		Players:  players,
		Prices:   prices,
		Version:  r.version,
	}
	if r.lastSync != 0 {
		state.LastSync = time.Unix(0, r.lastSync)
	}
	return state
}

// enqueueLocked appends the current snapshot to the pending notification
// queue. Caller holds mu; notifyMu nests inside mu so that queue order
// matches mutation order.
func (r *Room) enqueueLocked() {
	state := r.snapshotLocked()
	r.notifyMu.Lock()
	r.pending = append(r.pending, state)
	r.notifyMu.Unlock()
}

// flush drains the pending queue, delivering snapshots to subscribers in
// mutation order. Only one frame drains at a time: a reentrant mutation
// performed by a subscriber enqueues its snapshot and returns immediately,
// and the outer flush delivers it next.
func (r *Room) flush() {
	r.notifyMu.Lock()
	if r.flushing {
		r.notifyMu.Unlock()
		return
	}
	r.flushing = true
	r.notifyMu.Unlock()

	for {
		r.notifyMu.Lock()
		if len(r.pending) == 0 {
			r.flushing = false
			r.notifyMu.Unlock()
			return
		}
		state := r.pending[0]
		r.pending = r.pending[1:]
		r.notifyMu.Unlock()

		r.deliver(state)
	}
}

// deliver invokes every subscriber with the snapshot, isolating panics so
// one failing subscriber cannot abort the notification chain.
func (r *Room) deliver(state models.RoomState) {
	r.subMu.Lock()
	ids := make([]int64, 0, len(r.subs))
	for id := range r.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	subs := make([]Subscriber, len(ids))
	for i, id := range ids {
		subs[i] = r.subs[id]
	}
	r.subMu.Unlock()

	for _, fn := range subs {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					metrics.RecordSubscriberPanic("ledger")
					logging.Error().
						Interface("panic", rec).
						Str("room_code", r.code).
						Msg("room subscriber panicked")
				}
			}()
			fn(state)
		}()
	}
}

// dropSubscribers clears the subscriber set; used when the registry
// destroys the room.
func (r *Room) dropSubscribers() {
	r.subMu.Lock()
	r.subs = make(map[int64]Subscriber)
	r.subMu.Unlock()
}
