// CryptoClash - Multiplayer Crypto Trading Party Game
// Copyright 2026 boldnotbasic
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/boldnotbasic/cryptoclash-app-sub001

/*
Package orchestrator ties the sync engine's pieces together for each
inbound player update.

Ingest runs the full pipeline for one update: log the receive, apply it
to the room ledger, register the resulting state as a device snapshot
with the reconciler, and log conflict/resolution/send events as they
happen. The reconciler's conflict stream is also bridged into the event
log so divergence shows up in sync metrics without the transport doing
any bookkeeping.
*/
package orchestrator

import (
	"errors"

	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/device"
	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/ledger"
	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/logging"
	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/models"
	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/monitor"
	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/validation"
)

// ErrRejected is returned when an update fails validation and is not
// applied to the room.
var ErrRejected = errors.New("update rejected")

// Orchestrator fans inbound updates across the ledger, reconciler, and
// sync monitor.
type Orchestrator struct {
	registry   *ledger.Registry
	reconciler *device.Reconciler
	monitor    *monitor.Monitor
}

// New wires an Orchestrator over the given engine components.
func New(registry *ledger.Registry, reconciler *device.Reconciler, mon *monitor.Monitor) *Orchestrator {
	return &Orchestrator{
		registry:   registry,
		reconciler: reconciler,
		monitor:    mon,
	}
}

// Result describes what one Ingest call did.
type Result struct {
	Player   models.PlayerRecord `json:"player"`
	Version  int64               `json:"version"`
	Conflict *models.Conflict    `json:"conflict,omitempty"`
}

// Ingest applies one inbound player update end to end. The deviceID
// identifies the reporting client for reconciliation; an empty deviceID
// skips device registration. Returns ErrRejected when the update fails
// validation.
func (o *Orchestrator) Ingest(roomCode, playerID, deviceID string, update validation.PlayerUpdate) (Result, error) {
	o.monitor.LogEvent(monitor.EventInput{
		Kind:     models.EventReceive,
		PlayerID: playerID,
		DeviceID: deviceID,
		RoomCode: roomCode,
		Data: models.EventData{
			TotalValue:     update.TotalValue,
			PortfolioValue: update.PortfolioValue,
			CashBalance:    update.CashBalance,
		},
		Source: models.SourceClient,
	})

	room := o.registry.Room(roomCode)
	if !room.UpdatePlayer(playerID, update) {
		return Result{}, ErrRejected
	}

	record, _ := room.Player(playerID)
	version := room.Version()
	res := Result{Player: record, Version: version}

	if deviceID != "" {
		conflict := o.reconciler.RegisterDevice(models.DeviceSnapshot{
			DeviceID:       deviceID,
			PlayerID:       record.ID,
			PlayerName:     record.Name,
			CashBalance:    record.CashBalance,
			PortfolioValue: record.PortfolioValue,
			TotalValue:     record.TotalValue,
			Portfolio:      record.Portfolio,
			Timestamp:      record.LastUpdate,
			Version:        version,
		})
		if conflict != nil {
			res.Conflict = conflict
			o.logConflict(roomCode, deviceID, *conflict, record)
		}
	}

	// Server-side broadcast of the applied state.
	o.monitor.LogEvent(monitor.EventInput{
		Kind:     models.EventSend,
		PlayerID: record.ID,
		DeviceID: deviceID,
		RoomCode: roomCode,
		Data: models.EventData{
			TotalValue:     record.TotalValue,
			PortfolioValue: record.PortfolioValue,
			CashBalance:    record.CashBalance,
		},
		Source:  models.SourceServer,
		Version: version,
	})

	return res, nil
}

// RegisterSnapshot records a raw device snapshot with the reconciler and
// logs any resulting conflict. Used by clients that report device state
// without a player update attached.
func (o *Orchestrator) RegisterSnapshot(snap models.DeviceSnapshot) *models.Conflict {
	conflict := o.reconciler.RegisterDevice(snap)
	if conflict != nil {
		o.logConflict("", snap.DeviceID, *conflict, models.PlayerRecord{
			ID:             snap.PlayerID,
			TotalValue:     snap.TotalValue,
			PortfolioValue: snap.PortfolioValue,
			CashBalance:    snap.CashBalance,
		})
	}
	return conflict
}

// logConflict records both the conflict and its resolution in the event
// log.
func (o *Orchestrator) logConflict(roomCode, deviceID string, c models.Conflict, record models.PlayerRecord) {
	o.monitor.LogEvent(monitor.EventInput{
		Kind:     models.EventConflict,
		PlayerID: c.PlayerID,
		DeviceID: deviceID,
		RoomCode: roomCode,
		Data: models.EventData{
			TotalValue:     record.TotalValue,
			PortfolioValue: record.PortfolioValue,
			CashBalance:    record.CashBalance,
		},
		Source: models.SourceServer,
	})
	o.monitor.LogEvent(monitor.EventInput{
		Kind:     models.EventResolution,
		PlayerID: c.PlayerID,
		DeviceID: deviceID,
		RoomCode: roomCode,
		Data: models.EventData{
			TotalValue:     record.TotalValue,
			PortfolioValue: record.PortfolioValue,
			CashBalance:    record.CashBalance,
		},
		Source: models.SourceServer,
	})
	logging.Warn().
		Str("player_id", c.PlayerID).
		Str("device_id", deviceID).
		Str("resolution", string(c.Resolution)).
		Int("fields", len(c.Fields)).
		Msg("Device conflict resolved")
}
