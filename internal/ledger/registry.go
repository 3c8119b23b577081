// CryptoClash - Multiplayer Crypto Trading Party Game
// Copyright 2026 boldnotbasic
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/boldnotbasic/cryptoclash-app-sub001

package ledger

import (
	"sort"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/logging"
	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/metrics"
	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/validation"
)

// Registry owns the room-code to Room mapping. It is an explicit object
// with a documented create/destroy lifecycle: construct one in main and
// pass it by reference to every collaborator.
type Registry struct {
	clock     clockwork.Clock
	sanitizer *validation.Sanitizer

	mu        sync.Mutex
	rooms     map[string]*Room
	onCreated []func(*Room)
}

// NewRegistry creates an empty Registry. All rooms it creates share the
// given clock and a sanitizer derived from it.
func NewRegistry(clock clockwork.Clock) *Registry {
	return &Registry{
		clock:     clock,
		sanitizer: validation.NewSanitizer(clock),
		rooms:     make(map[string]*Room),
	}
}

// OnRoomCreated registers a hook run for every room the registry
// creates from this point on. Used to attach shared subscribers, such
// as the WebSocket hub. Not safe to call once rooms are being created.
func (g *Registry) OnRoomCreated(fn func(*Room)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onCreated = append(g.onCreated, fn)
}

// Room returns the ledger for the given room code, creating it lazily.
func (g *Registry) Room(code string) *Room {
	g.mu.Lock()

	if room, ok := g.rooms[code]; ok {
		g.mu.Unlock()
		return room
	}

	room := newRoom(code, g.clock, g.sanitizer)
	g.rooms[code] = room
	metrics.ActiveRooms.Set(float64(len(g.rooms)))
	hooks := g.onCreated
	g.mu.Unlock()

	for _, fn := range hooks {
		fn(room)
	}
	logging.Info().Str("room_code", code).Msg("room created")
	return room
}

// Lookup returns the ledger for the given room code without creating one.
func (g *Registry) Lookup(code string) (*Room, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	room, ok := g.rooms[code]
	return room, ok
}

// Destroy removes the room and its subscriber set. Returns false when no
// room exists for the code.
func (g *Registry) Destroy(code string) bool {
	g.mu.Lock()
	room, ok := g.rooms[code]
	if ok {
		delete(g.rooms, code)
		metrics.ActiveRooms.Set(float64(len(g.rooms)))
	}
	g.mu.Unlock()

	if !ok {
		return false
	}

	room.dropSubscribers()
	metrics.RoomPlayers.DeleteLabelValues(code)
	logging.Info().Str("room_code", code).Msg("room destroyed")
	return true
}

// Codes returns the sorted codes of all live rooms.
func (g *Registry) Codes() []string {
	g.mu.Lock()
	codes := make([]string, 0, len(g.rooms))
	for code := range g.rooms {
		codes = append(codes, code)
	}
	g.mu.Unlock()

	sort.Strings(codes)
	return codes
}
