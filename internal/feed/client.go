// SentinelMap - Honeypot Security Event Dashboard and Live Attack Map
// Copyright 2026 J. Mercer (jmercer)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmercer/sentinelmap

package feed

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/jmercer/sentinelmap/internal/logging"
	"github.com/jmercer/sentinelmap/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024 // control messages only; clients never send events
)

// clientIDCounter assigns unique, monotonically increasing IDs so the hub can
// iterate clients in a stable order.
var clientIDCounter atomic.Uint64

// StatsFunc computes a fresh stats snapshot on demand for get_stats requests.
type StatsFunc func(ctx context.Context) (models.StatsSnapshot, error)

// Client is one connected map viewer: the middleman between a websocket
// connection and the feed hub.
type Client struct {
	id      uint64
	hub     *Hub
	conn    *websocket.Conn
	send    chan Message
	statsFn StatsFunc

	// hello is the stats snapshot written first, before the replay backlog.
	// replay is paced by limiter so a reconnect burst does not hit the
	// browser as one frame flood.
	hello   *models.StatsSnapshot
	replay  []models.WireEvent
	limiter *rate.Limiter
}

// NewClient wraps an upgraded connection. The initial snapshot, the replay
// backlog, and its pacing limiter are fixed at construction; live messages
// follow via the hub.
func NewClient(hub *Hub, conn *websocket.Conn, statsFn StatsFunc, hello *models.StatsSnapshot, replay []models.WireEvent, replayPerSec float64) *Client {
	burst := int(replayPerSec)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		id:      clientIDCounter.Add(1),
		hub:     hub,
		conn:    conn,
		send:    make(chan Message, 256),
		statsFn: statsFn,
		hello:   hello,
		replay:  replay,
		limiter: rate.NewLimiter(rate.Limit(replayPerSec), burst),
	}
}

// ID returns the client's unique identifier.
func (c *Client) ID() uint64 {
	return c.id
}

// Start registers the client with the hub and begins both pumps.
func (c *Client) Start() {
	c.hub.Register <- c
	go c.writePump()
	go c.readPump()
}

// readPump consumes control messages from the client until the connection
// drops, then unregisters. The only request clients send is get_stats;
// anything else, including frames that do not parse, is ignored. Only a
// transport-level read failure ends the connection.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				logging.Debug().Err(err).Uint64("client_id", c.id).Msg("unexpected websocket close")
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			logging.Debug().Uint64("client_id", c.id).Msg("ignoring malformed control message")
			continue
		}

		if msg.Type == MessageTypeGetStats {
			c.handleGetStats()
		}
	}
}

// handleGetStats computes a snapshot and queues it to this client only.
// Other clients are unaffected; a full send buffer drops the reply rather
// than blocking the read pump. A failed computation is logged and the reply
// simply not sent; store trouble is never surfaced on the live channel.
func (c *Client) handleGetStats() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	snapshot, err := c.statsFn(ctx)
	if err != nil {
		logging.Warn().Err(err).Uint64("client_id", c.id).Msg("stats snapshot failed")
		return
	}

	select {
	case c.send <- Message{Type: MessageTypeStats, Stats: &snapshot}:
	default:
		logging.Debug().Uint64("client_id", c.id).Msg("send buffer full, dropping stats reply")
	}
}

// writePump writes the initial stats snapshot and the paced replay backlog,
// then pumps live messages and pings until the hub closes the send channel or
// a write fails.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	if !c.writeHello() {
		return
	}
	if !c.writeReplay() {
		return
	}

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}
			if !ok {
				// Hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				logging.Debug().Err(err).Uint64("client_id", c.id).Msg("failed to write feed message")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// writeHello writes the initial stats snapshot, if one was computed, before
// anything else so the map renders its counters right away.
func (c *Client) writeHello() bool {
	if c.hello == nil {
		return true
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return false
	}
	if err := c.conn.WriteJSON(Message{Type: MessageTypeStats, Stats: c.hello}); err != nil {
		logging.Debug().Err(err).Uint64("client_id", c.id).Msg("initial stats write failed")
		return false
	}
	c.hello = nil
	return true
}

// writeReplay writes the backlog oldest first, rate limited, so the map can
// animate recent history instead of rendering it as a single burst. Returns
// false when the connection died mid-replay.
func (c *Client) writeReplay() bool {
	for i := range c.replay {
		if err := c.limiter.Wait(context.Background()); err != nil {
			return false
		}
		if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return false
		}
		message := Message{Type: MessageTypeAttack, Event: &c.replay[i]}
		if err := c.conn.WriteJSON(message); err != nil {
			logging.Debug().Err(err).Uint64("client_id", c.id).Msg("replay write failed")
			return false
		}
	}
	c.replay = nil
	return true
}
