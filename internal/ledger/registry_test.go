// CryptoClash - Multiplayer Crypto Trading Party Game
// Copyright 2026 boldnotbasic
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/boldnotbasic/cryptoclash-app-sub001

package ledger

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/models"
)

func TestRegistryGetOrCreate(t *testing.T) {
	reg := NewRegistry(clockwork.NewFakeClock())

	a := reg.Room("ABC")
	b := reg.Room("ABC")
	if a != b {
		t.Error("same code must yield the same Room instance")
	}

	c := reg.Room("XYZ")
	if a == c {
		t.Error("different codes must yield different rooms")
	}
}

func TestRegistryLookupDoesNotCreate(t *testing.T) {
	reg := NewRegistry(clockwork.NewFakeClock())

	if _, ok := reg.Lookup("NOPE"); ok {
		t.Error("lookup must not create rooms")
	}
	if len(reg.Codes()) != 0 {
		t.Error("lookup must leave the registry empty")
	}
}

func TestRegistryDestroy(t *testing.T) {
	reg := NewRegistry(clockwork.NewFakeClockAt(time.Unix(1700000000, 0)))

	room := reg.Room("ABC")
	notified := 0
	room.Subscribe(func(models.RoomState) { notified++ })

	if !reg.Destroy("ABC") {
		t.Fatal("destroy of existing room should return true")
	}
	if reg.Destroy("ABC") {
		t.Error("destroy of missing room should return false")
	}
	if _, ok := reg.Lookup("ABC"); ok {
		t.Error("destroyed room must not be resolvable")
	}

	// The old instance's subscriber set was dropped; mutating the orphan
	// must not call the old subscriber.
	room.UpdatePlayer("p1", update("Dana", 1, 0, 1, nil))
	if notified != 0 {
		t.Error("destroy must drop the subscriber set")
	}

	// A fresh room under the same code starts clean.
	fresh := reg.Room("ABC")
	if fresh.Version() != 0 {
		t.Error("recreated room must start at version 0")
	}
}

func TestRegistryCodesSorted(t *testing.T) {
	reg := NewRegistry(clockwork.NewFakeClock())

	for _, code := range []string{"ZZZ", "AAA", "MMM"} {
		reg.Room(code)
	}

	codes := reg.Codes()
	want := []string{"AAA", "MMM", "ZZZ"}
	for i, code := range want {
		if codes[i] != code {
			t.Fatalf("codes = %v, want %v", codes, want)
		}
	}
}

func TestRegistryOnRoomCreated(t *testing.T) {
	reg := NewRegistry(clockwork.NewFakeClock())

	var created []string
	reg.OnRoomCreated(func(r *Room) {
		created = append(created, r.Code())
		r.Subscribe(func(models.RoomState) {})
	})

	reg.Room("ROOM1")
	reg.Room("ROOM1") // existing room, hook must not rerun
	reg.Room("ROOM2")

	want := []string{"ROOM1", "ROOM2"}
	if len(created) != len(want) {
		t.Fatalf("hook ran for %v, want %v", created, want)
	}
	for i := range want {
		if created[i] != want[i] {
			t.Errorf("created[%d] = %s, want %s", i, created[i], want[i])
		}
	}
}
