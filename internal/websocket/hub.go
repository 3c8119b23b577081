// CryptoClash - Multiplayer Crypto Trading Party Game
// Copyright 2026 boldnotbasic
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/boldnotbasic/cryptoclash-app-sub001

// Package websocket pushes room snapshots, conflict alerts, and sync
// metrics to connected game clients over gorilla/websocket.
//
// Each client is pinned to one room at upgrade time. Room state
// broadcasts reach only that room's viewers; conflict alerts and
// metrics updates reach everyone.
package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/logging"
	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/metrics"
	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/models"
)

// Message types pushed to game clients.
const (
	MessageTypeRoomState     = "room_state"
	MessageTypeConflictAlert = "conflict_alert"
	MessageTypeMetricsUpdate = "metrics_update"
	MessageTypePing          = "ping"
	MessageTypePong          = "pong"
)

// Message is one WebSocket frame. Room is set on room-scoped messages
// so clients can sanity-check routing.
type Message struct {
	Type string `json:"type"`
	Room string `json:"room,omitempty"`
	Data any    `json:"data,omitempty"`
}

// Hub maintains the set of active clients and fans messages out to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates an empty hub. Call Run or RunWithContext to start it.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Run starts the hub loop and blocks until ctx is canceled, then closes
// every connected client and returns ctx.Err().
//
// Lifecycle events are drained before broadcasts so client state is
// settled when a message fans out; Go's select picks randomly between
// ready channels, so the priority is enforced with a non-blocking check
// first.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.register:
			h.addClient(client)
			continue
		case client := <-h.unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case message := <-h.broadcast:
			h.fanOut(message)
		}
	}
}

// BroadcastRoomState pushes a room snapshot to that room's viewers.
func (h *Hub) BroadcastRoomState(state models.RoomState) {
	h.enqueue(Message{
		Type: MessageTypeRoomState,
		Room: state.RoomCode,
		Data: state,
	})
}

// BroadcastConflict alerts all viewers to a resolved device conflict.
func (h *Hub) BroadcastConflict(c models.Conflict) {
	h.enqueue(Message{
		Type: MessageTypeConflictAlert,
		Data: c,
	})
}

// BroadcastMetrics pushes a sync health summary to all viewers.
func (h *Hub) BroadcastMetrics(m models.SyncMetrics) {
	h.enqueue(Message{
		Type: MessageTypeMetricsUpdate,
		Data: m,
	})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) enqueue(message Message) {
	select {
	case h.broadcast <- message:
	default:
		logging.Warn().Str("message_type", message.Type).Msg("broadcast channel full, dropping message")
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()
	metrics.WebSocketClients.Set(float64(total))
	logging.Info().Str("room_code", client.room).Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()
	metrics.WebSocketClients.Set(float64(total))
	logging.Info().Str("room_code", client.room).Int("total_clients", total).Msg("websocket client disconnected")
}

// fanOut delivers a message to matching clients in client-ID order, so
// delivery order is reproducible across runs.
func (h *Hub) fanOut(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		if message.Room != "" && client.room != message.Room {
			continue
		}
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- message:
		default:
			// Slow consumer, drop it rather than stall the hub.
			toRemove = append(toRemove, client)
		}
	}
	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
	}
	if len(toRemove) > 0 {
		metrics.WebSocketClients.Set(float64(len(h.clients)))
	}
}

// shutdown closes every client in ID order.
func (h *Hub) shutdown() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	for _, client := range clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.mu.Unlock()

	metrics.WebSocketClients.Set(0)
	logging.Info().
		Str("component", "websocket-hub").
		Int("clients_closed", len(clients)).
		Msg("websocket hub stopped")
}
