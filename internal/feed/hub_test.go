// SentinelMap - Honeypot Security Event Dashboard and Live Attack Map
// Copyright 2026 J. Mercer (jmercer)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmercer/sentinelmap

package feed

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/jmercer/sentinelmap/internal/models"
)

// newTestClient builds a client without a real connection. The hub only ever
// touches id and send.
func newTestClient(bufferSize int) *Client {
	return &Client{
		id:   clientIDCounter.Add(1),
		send: make(chan Message, bufferSize),
	}
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub("honeypot")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.RunWithContext(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("hub did not stop after context cancellation")
		}
	})
	return hub, cancel
}

func waitForClientCount(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for hub.ClientCount() != want {
		select {
		case <-deadline:
			t.Fatalf("client count = %d, want %d", hub.ClientCount(), want)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func recvMessage(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		if !ok {
			t.Fatal("send channel closed unexpectedly")
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func wireEvent(id string) models.WireEvent {
	return models.WireEvent{
		ID:         id,
		Timestamp:  time.Now().UTC(),
		SourceTag:  "cowrie",
		SrcLat:     52.37,
		SrcLon:     4.89,
		SrcCountry: "NL",
	}
}

func TestHubBroadcastReachesAllClients(t *testing.T) {
	hub, _ := startHub(t)

	clients := []*Client{newTestClient(8), newTestClient(8), newTestClient(8)}
	for _, c := range clients {
		hub.Register <- c
	}
	waitForClientCount(t, hub, 3)

	hub.BroadcastAttack(wireEvent("evt-1"))

	for i, c := range clients {
		msg := recvMessage(t, c)
		if msg.Type != MessageTypeAttack {
			t.Errorf("client %d message type = %q", i, msg.Type)
		}
		if msg.Event == nil || msg.Event.ID != "evt-1" {
			t.Errorf("client %d event = %+v", i, msg.Event)
		}
	}

	// Exactly one delivery per client.
	for i, c := range clients {
		select {
		case extra := <-c.send:
			t.Errorf("client %d received extra message %+v", i, extra)
		default:
		}
	}
}

func TestHubSlowClientDroppedOthersUnaffected(t *testing.T) {
	hub, _ := startHub(t)

	slow := newTestClient(1) // fills after one message
	healthy := newTestClient(64)
	hub.Register <- slow
	hub.Register <- healthy
	waitForClientCount(t, hub, 2)

	// First event fills the slow client's buffer. Second event finds it
	// full and disconnects it; the healthy client receives both.
	hub.BroadcastAttack(wireEvent("evt-1"))
	hub.BroadcastAttack(wireEvent("evt-2"))

	if got := recvMessage(t, healthy); got.Event.ID != "evt-1" {
		t.Errorf("healthy client first event = %q", got.Event.ID)
	}
	if got := recvMessage(t, healthy); got.Event.ID != "evt-2" {
		t.Errorf("healthy client second event = %q", got.Event.ID)
	}

	waitForClientCount(t, hub, 1)

	// The slow client's channel must be closed after its buffered message.
	if got := recvMessage(t, slow); got.Event.ID != "evt-1" {
		t.Errorf("slow client buffered event = %q", got.Event.ID)
	}
	select {
	case _, ok := <-slow.send:
		if ok {
			t.Error("slow client received a message after being dropped")
		}
	case <-time.After(time.Second):
		t.Error("slow client channel was not closed")
	}
}

func TestHubUnregisterClosesSendChannel(t *testing.T) {
	hub, _ := startHub(t)

	c := newTestClient(8)
	hub.Register <- c
	waitForClientCount(t, hub, 1)

	hub.Unregister <- c
	waitForClientCount(t, hub, 0)

	select {
	case _, ok := <-c.send:
		if ok {
			t.Error("expected closed channel, got message")
		}
	case <-time.After(time.Second):
		t.Error("send channel not closed on unregister")
	}
}

func TestHubShutdownClosesAllClients(t *testing.T) {
	hub, cancel := startHub(t)

	clients := []*Client{newTestClient(8), newTestClient(8)}
	for _, c := range clients {
		hub.Register <- c
	}
	waitForClientCount(t, hub, 2)

	cancel()

	for i, c := range clients {
		select {
		case _, ok := <-c.send:
			if ok {
				t.Errorf("client %d got message instead of close", i)
			}
		case <-time.After(2 * time.Second):
			t.Errorf("client %d channel not closed on shutdown", i)
		}
	}
}

func TestHubBroadcastStats(t *testing.T) {
	hub, _ := startHub(t)

	c := newTestClient(8)
	hub.Register <- c
	waitForClientCount(t, hub, 1)

	hub.BroadcastStats(models.StatsSnapshot{TotalCount: 7, UniqueSourceCount: 3})

	msg := recvMessage(t, c)
	if msg.Type != MessageTypeStats {
		t.Errorf("message type = %q", msg.Type)
	}
	if msg.Stats == nil || msg.Stats.TotalCount != 7 {
		t.Errorf("stats = %+v", msg.Stats)
	}
}

func TestStatsMessageSpreadsSnapshotFields(t *testing.T) {
	msg := Message{Type: MessageTypeStats, Stats: &models.StatsSnapshot{
		WindowSeconds: 3600,
		TotalCount:    7,
	}}
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	for _, want := range []string{`"type":"stats"`, `"window":3600`, `"total_count":7`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("stats frame missing %s: %s", want, data)
		}
	}
	if strings.Contains(string(data), `"stats":{`) {
		t.Errorf("snapshot fields must sit at the top level, not nested: %s", data)
	}

	var decoded Message
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded.Stats == nil || decoded.Stats.TotalCount != 7 || decoded.Stats.WindowSeconds != 3600 {
		t.Errorf("round-tripped stats = %+v", decoded.Stats)
	}
}

func TestGetStatsFailureSendsNothing(t *testing.T) {
	c := newTestClient(8)
	c.statsFn = func(context.Context) (models.StatsSnapshot, error) {
		return models.StatsSnapshot{}, errors.New("store down")
	}

	// A failed computation is logged and dropped; no frame of any kind
	// reaches the client.
	c.handleGetStats()

	select {
	case msg := <-c.send:
		t.Errorf("failed stats computation produced a frame: %+v", msg)
	default:
	}
}

func TestAttackMessageNestsEvent(t *testing.T) {
	msg := Message{Type: MessageTypeAttack, Event: &models.WireEvent{ID: "evt-1"}}
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(data), `"event":{`) {
		t.Errorf("attack frame must nest its event: %s", data)
	}
}

func TestHubBroadcastWithNoClients(t *testing.T) {
	hub, _ := startHub(t)

	// Must not panic or block.
	hub.BroadcastAttack(wireEvent("evt-1"))
	hub.BroadcastStats(models.StatsSnapshot{})

	if hub.ClientCount() != 0 {
		t.Errorf("client count = %d", hub.ClientCount())
	}
}
