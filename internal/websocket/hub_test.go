// CryptoClash - Multiplayer Crypto Trading Party Game
// Copyright 2026 boldnotbasic
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/boldnotbasic/cryptoclash-app-sub001

package websocket

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boldnotbasic/cryptoclash-app-sub001/internal/models"
)

func newTestClient(h *Hub, room string) *Client {
	return &Client{
		id:   clientIDCounter.Add(1),
		hub:  h,
		room: room,
		send: make(chan Message, 256),
	}
}

func TestFanOutRoomScoping(t *testing.T) {
	h := NewHub()
	a := newTestClient(h, "ROOM1")
	b := newTestClient(h, "ROOM2")
	h.addClient(a)
	h.addClient(b)

	h.fanOut(Message{Type: MessageTypeRoomState, Room: "ROOM1", Data: models.RoomState{RoomCode: "ROOM1"}})

	select {
	case msg := <-a.send:
		if msg.Type != MessageTypeRoomState || msg.Room != "ROOM1" {
			t.Errorf("got %+v", msg)
		}
	default:
		t.Error("ROOM1 viewer did not receive room state")
	}
	select {
	case msg := <-b.send:
		t.Errorf("ROOM2 viewer received %+v", msg)
	default:
	}
}

func TestFanOutUnscopedReachesAll(t *testing.T) {
	h := NewHub()
	a := newTestClient(h, "ROOM1")
	b := newTestClient(h, "ROOM2")
	h.addClient(a)
	h.addClient(b)

	h.fanOut(Message{Type: MessageTypeConflictAlert, Data: models.Conflict{PlayerID: "p1"}})

	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.send:
			if msg.Type != MessageTypeConflictAlert {
				t.Errorf("got type %s", msg.Type)
			}
		default:
			t.Errorf("client in %s missed conflict alert", c.room)
		}
	}
}

func TestFanOutDropsSlowConsumer(t *testing.T) {
	h := NewHub()
	slow := newTestClient(h, "ROOM1")
	slow.send = make(chan Message) // unbuffered, never read
	h.addClient(slow)

	h.fanOut(Message{Type: MessageTypeMetricsUpdate})

	if got := h.ClientCount(); got != 0 {
		t.Errorf("ClientCount = %d, want 0 after dropping slow consumer", got)
	}
	// Channel must be closed so the write pump exits.
	if _, ok := <-slow.send; ok {
		t.Error("slow consumer's send channel not closed")
	}
}

func TestRunLifecycle(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	c := newTestClient(h, "ROOM1")
	h.register <- c
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	h.BroadcastRoomState(models.RoomState{RoomCode: "ROOM1", Version: 3})
	select {
	case msg := <-c.send:
		state, ok := msg.Data.(models.RoomState)
		if !ok || state.Version != 3 {
			t.Errorf("got %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast not delivered")
	}

	h.unregister <- c
	waitFor(t, func() bool { return h.ClientCount() == 0 })

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}

func TestShutdownClosesClients(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	c := newTestClient(h, "ROOM1")
	h.register <- c
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	cancel()
	<-done

	select {
	case _, ok := <-c.send:
		if ok {
			t.Error("expected closed send channel after shutdown")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("send channel not closed")
	}
	if got := h.ClientCount(); got != 0 {
		t.Errorf("ClientCount = %d after shutdown, want 0", got)
	}
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	h := NewHub()
	for i := 0; i < cap(h.broadcast)+10; i++ {
		h.BroadcastMetrics(models.SyncMetrics{})
	}
	// No hub loop is running; enqueue must not block or panic.
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}
