// SentinelMap - Honeypot Security Event Dashboard and Live Attack Map
// Copyright 2026 J. Mercer (jmercer)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmercer/sentinelmap

package feed

import (
	"context"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	"github.com/jmercer/sentinelmap/internal/logging"
	"github.com/jmercer/sentinelmap/internal/metrics"
	"github.com/jmercer/sentinelmap/internal/models"
)

// Message types on the feed wire.
const (
	MessageTypeAttack   = "attack"
	MessageTypeStats    = "stats"
	MessageTypeGetStats = "get_stats"
)

// Message is one feed wire message. Attack messages nest their event under
// "event"; stats messages spread the snapshot fields at the top level beside
// "type", which the marshal methods below take care of.
type Message struct {
	Type  string                `json:"type"`
	Event *models.WireEvent     `json:"event,omitempty"`
	Stats *models.StatsSnapshot `json:"-"`
}

// statsFrame is the flat wire shape of a stats message.
type statsFrame struct {
	Type string `json:"type"`
	models.StatsSnapshot
}

// MarshalJSON inlines the snapshot fields for stats messages.
func (m Message) MarshalJSON() ([]byte, error) {
	if m.Type == MessageTypeStats && m.Stats != nil {
		return json.Marshal(statsFrame{Type: m.Type, StatsSnapshot: *m.Stats})
	}
	type plain Message
	return json.Marshal(plain(m))
}

// UnmarshalJSON restores the Stats field from a flat stats frame.
func (m *Message) UnmarshalJSON(data []byte) error {
	type plain Message
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*m = Message(p)
	if m.Type == MessageTypeStats {
		var snapshot models.StatsSnapshot
		if err := json.Unmarshal(data, &snapshot); err != nil {
			return err
		}
		m.Stats = &snapshot
	}
	return nil
}

// Hub maintains the set of connected map clients for one feed and fans
// messages out to all of them. One event is broadcast once regardless of how
// many clients are connected; per-client work is limited to a channel send.
type Hub struct {
	feedName string

	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a hub for the named feed.
func NewHub(feedName string) *Hub {
	return &Hub{
		feedName:   feedName,
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// RunWithContext runs the hub loop until the context is canceled, then closes
// every client and returns ctx.Err(). Channel selection is prioritized:
// shutdown first, then client lifecycle, then broadcasts, so client state is
// consistent before any message is fanned out.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()

		case client := <-h.Register:
			h.addClient(client)

		case client := <-h.Unregister:
			h.removeClient(client)

		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()
	metrics.FeedClients.WithLabelValues(h.feedName).Set(float64(total))
	logging.Info().Str("feed", h.feedName).Int("total_clients", total).Msg("map client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()
	metrics.FeedClients.WithLabelValues(h.feedName).Set(float64(total))
	logging.Info().Str("feed", h.feedName).Int("total_clients", total).Msg("map client disconnected")
}

// broadcastToClients delivers one message to every connected client in client
// ID order. A client whose send buffer is full is disconnected rather than
// allowed to stall the loop; a stalled reader must never slow the other
// clients down.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
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
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
		metrics.FeedClientsDropped.WithLabelValues(h.feedName).Inc()
		logging.Warn().
			Str("feed", h.feedName).
			Uint64("client_id", client.id).
			Msg("dropping slow map client, send buffer full")
	}
	if len(toRemove) > 0 {
		metrics.FeedClients.WithLabelValues(h.feedName).Set(float64(len(h.clients)))
	}
}

// shutdown closes all clients in ID order and logs the stop. Context
// cancellation is expected behavior, not an error.
func (h *Hub) shutdown(ctx context.Context) {
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

	reason := "context_canceled"
	if ctx.Err() == context.DeadlineExceeded {
		reason = "context_deadline"
	}
	logging.Info().
		Str("feed", h.feedName).
		Str("reason", reason).
		Int("clients_closed", len(clients)).
		Msg("feed hub stopped")
}

// BroadcastAttack queues one attack event for delivery to every client. If
// the broadcast buffer is full the event is dropped; the map is a live view,
// not a durable log.
func (h *Hub) BroadcastAttack(event models.WireEvent) {
	message := Message{Type: MessageTypeAttack, Event: &event}
	select {
	case h.broadcast <- message:
	default:
		logging.Warn().Str("feed", h.feedName).Msg("broadcast channel full, dropping attack event")
	}
}

// BroadcastStats queues a stats snapshot for delivery to every client.
func (h *Hub) BroadcastStats(stats models.StatsSnapshot) {
	message := Message{Type: MessageTypeStats, Stats: &stats}
	select {
	case h.broadcast <- message:
	default:
		logging.Warn().Str("feed", h.feedName).Msg("broadcast channel full, dropping stats update")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
