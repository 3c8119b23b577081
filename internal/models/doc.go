// CryptoClash - Multiplayer Crypto Trading Party Game
// Copyright 2026 boldnotbasic
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/boldnotbasic/cryptoclash-app-sub001

/*
Package models defines the shared record types exchanged between the room
ledger, the device reconciler, the sync monitor, and the HTTP/WebSocket
gateway.

Record Categories:

  - Player state: PlayerRecord, RankedPlayer, RoomState
  - Device reconciliation: DeviceSnapshot, Conflict, FieldDiff, ConsistencyReport
  - Sync observability: SyncEvent, SyncMetrics, SyncPattern

Tolerance Constants:

All numeric comparison sites share the named tolerances declared in
tolerance.go (MoneyTolerance, QuantityTolerance, TimestampTolerance) rather
than scattering literals across components. Two currency amounts within
MoneyTolerance of each other are considered equal everywhere in the system;
the same holds for asset quantities and QuantityTolerance.

Ownership:

Records in this package are value types. Components hand out copies (maps
included) so that a snapshot held by a subscriber is never mutated behind
its back by a later room update.
*/
package models
