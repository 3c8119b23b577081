// CryptoClash - Multiplayer Crypto Trading Party Game
// Copyright 2026 boldnotbasic
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/boldnotbasic/cryptoclash-app-sub001

// Package api exposes the sync engine over HTTP using the chi router.
//
// All read paths 404 on unknown rooms instead of creating them; only
// player update ingestion may create a room.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/conflict"
	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/device"
	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/ledger"
	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/models"
	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/monitor"
	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/orchestrator"
	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/validation"
	ws "github.com/boldnotbasic/cryptoclash-app-sub001/internal/websocket"
)

// deviceIDHeader carries the reporting device's identifier on player
// update requests. Optional; without it device reconciliation is
// skipped for the update.
const deviceIDHeader = "X-Device-ID"

// Handler contains dependencies for the API endpoints.
type Handler struct {
	registry   *ledger.Registry
	reconciler *device.Reconciler
	monitor    *monitor.Monitor
	orch       *orchestrator.Orchestrator
	hub        *ws.Hub
	startTime  time.Time
}

// NewHandler creates an API handler over the sync engine components.
// hub may be nil when WebSocket support is disabled (tests).
func NewHandler(registry *ledger.Registry, reconciler *device.Reconciler, mon *monitor.Monitor, orch *orchestrator.Orchestrator, hub *ws.Hub) *Handler {
	return &Handler{
		registry:   registry,
		reconciler: reconciler,
		monitor:    mon,
		orch:       orch,
		hub:        hub,
		startTime:  time.Now(),
	}
}

// UpdatePlayer ingests a partial player update into a room.
// POST /api/v1/rooms/{code}/players/{id}
func (h *Handler) UpdatePlayer(w http.ResponseWriter, r *http.Request) {
	roomCode := chi.URLParam(r, "code")
	playerID := chi.URLParam(r, "id")

	var update validation.PlayerUpdate
	if err := decodeBody(w, r, &update); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed JSON body", err)
		return
	}

	res, err := h.orch.Ingest(roomCode, playerID, r.Header.Get(deviceIDHeader), update)
	if err != nil {
		if errors.Is(err, orchestrator.ErrRejected) {
			respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "update failed validation", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to apply update", err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// RoomState returns the full snapshot of a room.
// GET /api/v1/rooms/{code}
func (h *Handler) RoomState(w http.ResponseWriter, r *http.Request) {
	room, ok := h.registry.Lookup(chi.URLParam(r, "code"))
	if !ok {
		respondError(w, http.StatusNotFound, "ROOM_NOT_FOUND", "no such room", nil)
		return
	}
	respondJSON(w, http.StatusOK, room.State())
}

// Leaderboard returns players ranked by total value.
// GET /api/v1/rooms/{code}/leaderboard
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	room, ok := h.registry.Lookup(chi.URLParam(r, "code"))
	if !ok {
		respondError(w, http.StatusNotFound, "ROOM_NOT_FOUND", "no such room", nil)
		return
	}
	players := room.Players()
	if players == nil {
		players = []models.RankedPlayer{}
	}
	respondJSON(w, http.StatusOK, players)
}

// UpdatePrices replaces the room's price board and revalues portfolios.
// PUT /api/v1/rooms/{code}/prices
func (h *Handler) UpdatePrices(w http.ResponseWriter, r *http.Request) {
	room, ok := h.registry.Lookup(chi.URLParam(r, "code"))
	if !ok {
		respondError(w, http.StatusNotFound, "ROOM_NOT_FOUND", "no such room", nil)
		return
	}

	var prices map[string]float64
	if err := decodeBody(w, r, &prices); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed JSON body", err)
		return
	}
	for sym, price := range prices {
		if sym == "" || price < 0 {
			respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "prices must have non-empty symbols and non-negative values", nil)
			return
		}
	}

	room.UpdatePrices(prices)
	respondJSON(w, http.StatusOK, room.State())
}

// RemovePlayer removes a player from a room.
// DELETE /api/v1/rooms/{code}/players/{id}
func (h *Handler) RemovePlayer(w http.ResponseWriter, r *http.Request) {
	room, ok := h.registry.Lookup(chi.URLParam(r, "code"))
	if !ok {
		respondError(w, http.StatusNotFound, "ROOM_NOT_FOUND", "no such room", nil)
		return
	}
	room.RemovePlayer(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// DestroyRoom tears down a room and disconnects its subscribers.
// DELETE /api/v1/rooms/{code}
func (h *Handler) DestroyRoom(w http.ResponseWriter, r *http.Request) {
	if !h.registry.Destroy(chi.URLParam(r, "code")) {
		respondError(w, http.StatusNotFound, "ROOM_NOT_FOUND", "no such room", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Rooms lists active room codes.
// GET /api/v1/rooms
func (h *Handler) Rooms(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.registry.Codes())
}

// RegisterDevice records a raw device snapshot for reconciliation.
// POST /api/v1/devices
func (h *Handler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var snap models.DeviceSnapshot
	if err := decodeBody(w, r, &snap); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed JSON body", err)
		return
	}
	if snap.DeviceID == "" || snap.PlayerID == "" {
		respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "device_id and player_id are required", nil)
		return
	}
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now()
	}

	conflict := h.orch.RegisterSnapshot(snap)
	respondJSON(w, http.StatusOK, struct {
		Conflict *models.Conflict `json:"conflict"`
	}{Conflict: conflict})
}

// PlayerConflicts returns the conflict log for a player.
// GET /api/v1/players/{id}/conflicts
func (h *Handler) PlayerConflicts(w http.ResponseWriter, r *http.Request) {
	conflicts := h.reconciler.Conflicts(chi.URLParam(r, "id"))
	if conflicts == nil {
		conflicts = []models.Conflict{}
	}
	respondJSON(w, http.StatusOK, conflicts)
}

// ClearPlayerConflicts empties a player's conflict log.
// DELETE /api/v1/players/{id}/conflicts
func (h *Handler) ClearPlayerConflicts(w http.ResponseWriter, r *http.Request) {
	h.reconciler.ClearConflicts(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// PlayerConsistency cross-checks all of a player's device snapshots.
// GET /api/v1/players/{id}/consistency
func (h *Handler) PlayerConsistency(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.reconciler.ValidateConsistency(chi.URLParam(r, "id")))
}

// PlayerPatterns returns sync health analysis for a player.
// GET /api/v1/players/{id}/patterns
func (h *Handler) PlayerPatterns(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.monitor.AnalyzePatterns(chi.URLParam(r, "id")))
}

// SyncMetrics returns the rolling sync health summary.
// GET /api/v1/sync/metrics
func (h *Handler) SyncMetrics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.monitor.Metrics())
}

// SyncEvents returns recent sync events, most recent first, filtered by
// the room or player query parameters.
// GET /api/v1/sync/events?room=CODE&player=ID&limit=N
func (h *Handler) SyncEvents(w http.ResponseWriter, r *http.Request) {
	limit := getIntParam(r, "limit", 100)
	roomCode := r.URL.Query().Get("room")
	playerID := r.URL.Query().Get("player")

	var events []models.SyncEvent
	switch {
	case playerID != "":
		events = h.monitor.PlayerEvents(playerID, limit)
	case roomCode != "":
		events = h.monitor.RoomEvents(roomCode, limit)
	default:
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "room or player query parameter is required", nil)
		return
	}
	if events == nil {
		events = []models.SyncEvent{}
	}
	respondJSON(w, http.StatusOK, events)
}

// WebSocket upgrades the connection for a room's live feed.
// GET /api/v1/rooms/{code}/ws
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	roomCode := chi.URLParam(r, "code")
	if _, ok := h.registry.Lookup(roomCode); !ok {
		respondError(w, http.StatusNotFound, "ROOM_NOT_FOUND", "no such room", nil)
		return
	}
	if h.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "WS_DISABLED", "websocket support is disabled", nil)
		return
	}
	h.hub.ServeWS(w, r, roomCode)
}

// compareRequest carries two player states for server-side comparison.
type compareRequest struct {
	Local  models.PlayerRecord `json:"local"`
	Remote models.PlayerRecord `json:"remote"`
}

// compareResponse reports fingerprints, field-level differences, and
// the last-write-wins winner for two player states.
type compareResponse struct {
	LocalFingerprint  string              `json:"local_fingerprint"`
	RemoteFingerprint string              `json:"remote_fingerprint"`
	Equal             bool                `json:"equal"`
	Differences       []string            `json:"differences"`
	Resolved          models.PlayerRecord `json:"resolved"`
}

// CompareStates runs the conflict utilities over two client-submitted
// player states, so thin clients can defer divergence checks to the
// server.
// POST /api/v1/conflict/compare
func (h *Handler) CompareStates(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "malformed JSON body", err)
		return
	}

	diffs := conflict.Diff(req.Local, req.Remote)
	if diffs == nil {
		diffs = []string{}
	}
	respondJSON(w, http.StatusOK, compareResponse{
		LocalFingerprint:  conflict.Fingerprint(req.Local),
		RemoteFingerprint: conflict.Fingerprint(req.Remote),
		Equal:             len(diffs) == 0,
		Differences:       diffs,
		Resolved:          conflict.Resolve(req.Local, req.Remote),
	})
}

// Healthz reports process liveness and uptime.
// GET /healthz
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
		Uptime string `json:"uptime"`
	}{
		Status: "ok",
		Uptime: time.Since(h.startTime).Round(time.Second).String(),
	})
}
