// CryptoClash - Multiplayer Crypto Trading Party Game
// Copyright 2026 boldnotbasic
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/boldnotbasic/cryptoclash-app-sub001

/*
Package ledger maintains the authoritative per-room registry of players and
prices. Each Room is the single source of truth for its room code: it
validates inbound partial updates, owns derived-field recomputation, and
fans out immutable state snapshots to subscribers on every mutation.

Lifecycle:

Rooms are obtained from an explicit Registry (no package-level singleton).
Room(code) creates lazily; Destroy(code) removes the room together with its
subscriber set. The Registry is constructed once in main and passed by
reference to every collaborator.

Concurrency:

Each Room carries its own mutex, so concurrent mutations of the same room
serialize and mutations of different rooms proceed independently.

Notification discipline:

Subscriber fan-out is synchronous but runs through a deferred-notification
queue: a mutation appends its snapshot to a pending queue while holding the
state lock, and the queue is drained after the lock is released. A
subscriber that mutates the room from inside its callback therefore
enqueues rather than recurses, and snapshots are always delivered in
mutation order. Subscriber panics are recovered, logged, and counted; the
remaining subscribers still run.
*/
package ledger
