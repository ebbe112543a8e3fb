// SentinelMap - Honeypot Security Event Dashboard and Live Attack Map
// Copyright 2026 J. Mercer (jmercer)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmercer/sentinelmap

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jmercer/sentinelmap/internal/eventstore"
	"github.com/jmercer/sentinelmap/internal/feed"
)

// startTestServer builds the full router over a running honeypot feed and
// returns the test server.
func startTestServer(t *testing.T, store eventstore.Store) *httptest.Server {
	t.Helper()
	cfg := testConfig()
	f := feed.New(feed.HoneypotKind(&cfg.Feeds), store, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = f.Serve(ctx) }()

	handler := NewHandler(cfg, store, map[string]*feed.Feed{"honeypot": f}, nil, nil)
	srv := httptest.NewServer(NewRouter(handler).Setup())
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return srv
}

func TestRouterHealthEndpoints(t *testing.T) {
	srv := startTestServer(t, &stubStore{})

	for _, path := range []string{"/api/v1/health", "/api/v1/health/live", "/api/v1/health/ready"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d", path, resp.StatusCode)
		}
	}
}

func TestRouterMetricsEndpoint(t *testing.T) {
	srv := startTestServer(t, &stubStore{})
	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /metrics = %d", resp.StatusCode)
	}
}

func TestRouterUnknownFeed404(t *testing.T) {
	srv := startTestServer(t, &stubStore{})
	resp, err := http.Get(srv.URL + "/api/v1/map/nonsense/ws")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestMapFeedWebSocket(t *testing.T) {
	store := &stubStore{records: []eventstore.RawRecord{
		honeypotRecord("evt-1"),
		honeypotRecord("evt-2"),
	}}
	srv := startTestServer(t, store)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/map/honeypot/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close() }()
	_ = resp.Body.Close()

	// The initial stats snapshot arrives first, before the replay backlog.
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var hello feed.Message
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("read initial stats: %v", err)
	}
	if hello.Type != feed.MessageTypeStats || hello.Stats == nil || hello.Stats.TotalCount != 2 {
		t.Fatalf("first message = %+v", hello)
	}

	// Then the replay backlog, oldest first.
	var first feed.Message
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read replay: %v", err)
	}
	if first.Type != feed.MessageTypeAttack || first.Event == nil || first.Event.ID != "evt-1" {
		t.Fatalf("second message = %+v", first)
	}

	var second feed.Message
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatalf("read replay: %v", err)
	}
	if second.Event == nil || second.Event.ID != "evt-2" {
		t.Fatalf("third message = %+v", second)
	}

	// Facility coordinates attached as the arc destination.
	if first.Event.DstLat != 40.71 || first.Event.DstLon != -74.0 {
		t.Errorf("destination = %v,%v", first.Event.DstLat, first.Event.DstLon)
	}

	// On-demand stats request.
	if err := conn.WriteJSON(feed.Message{Type: feed.MessageTypeGetStats}); err != nil {
		t.Fatalf("write get_stats: %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for {
		if time.Now().After(deadline) {
			t.Fatal("no stats reply")
		}
		var msg feed.Message
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read stats: %v", err)
		}
		if msg.Type == feed.MessageTypeStats {
			if msg.Stats == nil || msg.Stats.TotalCount != 2 {
				t.Errorf("stats = %+v", msg.Stats)
			}
			break
		}
		// Live broadcasts of the same fixture records may interleave.
	}
}

func TestMapFeedIgnoresMalformedControlFrames(t *testing.T) {
	store := &stubStore{}
	srv := startTestServer(t, store)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/map/honeypot/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close() }()
	_ = resp.Body.Close()

	// Swallow the initial stats snapshot so the reply below can only come
	// from the get_stats request sent after the garbage.
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var hello feed.Message
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("read initial stats: %v", err)
	}

	// Garbage control frames must be ignored, not tear the connection down.
	for _, payload := range []string{"{not json", `"just a string"`, `{"type":42}`} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
			t.Fatalf("write %q: %v", payload, err)
		}
	}

	// The connection still serves a get_stats request afterwards.
	if err := conn.WriteJSON(feed.Message{Type: feed.MessageTypeGetStats}); err != nil {
		t.Fatalf("write get_stats: %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for {
		if time.Now().After(deadline) {
			t.Fatal("no stats reply after malformed frames")
		}
		_ = conn.SetReadDeadline(deadline)
		var msg feed.Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("connection dropped after malformed frame: %v", err)
		}
		if msg.Type == feed.MessageTypeStats && msg.Stats != nil {
			break
		}
	}
}

func TestMapFeedTwoClientsBothReceive(t *testing.T) {
	// Start with an empty store so no replay interferes, then let the live
	// poller pick up a record and verify both clients get it exactly once.
	store := &stubStore{}
	srv := startTestServer(t, store)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/map/honeypot/ws"
	connA, respA, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial A: %v", err)
	}
	defer func() { _ = connA.Close() }()
	_ = respA.Body.Close()

	connB, respB, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial B: %v", err)
	}
	defer func() { _ = connB.Close() }()
	_ = respB.Body.Close()

	// Now the next poll tick finds a record.
	store.setRecords([]eventstore.RawRecord{honeypotRecord("evt-live")})

	for name, conn := range map[string]*websocket.Conn{"A": connA, "B": connB} {
		// Stats frames (initial snapshot, periodic pushes) may precede the
		// live event; only the attack frame is asserted.
		deadline := time.Now().Add(5 * time.Second)
		for {
			if time.Now().After(deadline) {
				t.Fatalf("client %s never received the live event", name)
			}
			_ = conn.SetReadDeadline(deadline)
			var msg feed.Message
			if err := conn.ReadJSON(&msg); err != nil {
				t.Fatalf("client %s read: %v", name, err)
			}
			if msg.Type != feed.MessageTypeAttack {
				continue
			}
			if msg.Event == nil || msg.Event.ID != "evt-live" {
				t.Errorf("client %s message = %+v", name, msg)
			}
			break
		}
	}
}
