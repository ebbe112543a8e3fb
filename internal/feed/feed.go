// SentinelMap - Honeypot Security Event Dashboard and Live Attack Map
// Copyright 2026 J. Mercer (jmercer)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmercer/sentinelmap

// Package feed implements the live attack map engine: a single shared poller
// per feed reads new events from the store, a dedup cache suppresses repeats
// across overlapping poll windows, and a hub fans each surviving event out to
// every connected WebSocket client. Ingest cost is constant in the number of
// clients.
package feed

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jmercer/sentinelmap/internal/config"
	"github.com/jmercer/sentinelmap/internal/eventstore"
	"github.com/jmercer/sentinelmap/internal/logging"
	"github.com/jmercer/sentinelmap/internal/metrics"
	"github.com/jmercer/sentinelmap/internal/models"
)

// Feed wires one kind's poller, dedup cache, hub, and stats provider into a
// single supervised service.
type Feed struct {
	kind   Kind
	hub    *Hub
	poller *Poller
	stats  *StatsProvider

	statsInterval time.Duration
	replayWindow  time.Duration
	replayLimit   int
	replayPerSec  float64
}

// New assembles a feed of the given kind on top of the shared store.
func New(kind Kind, store eventstore.Store, cfg *config.Config) *Feed {
	hub := NewHub(kind.Name)
	normalizer := NewNormalizer(&cfg.Feeds)
	dedup := NewDedupCache(cfg.Feeds.DedupCapacity)

	poller := NewPoller(kind, store, normalizer, dedup, hub,
		cfg.Feeds.PollInterval, cfg.Feeds.WindowLength, cfg.Feeds.BatchLimit,
		cfg.Server.Latitude, cfg.Server.Longitude)

	return &Feed{
		kind:          kind,
		hub:           hub,
		poller:        poller,
		stats:         NewStatsProvider(kind, store, cfg.Feeds.StatsWindow),
		statsInterval: cfg.Feeds.StatsInterval,
		replayWindow:  cfg.Feeds.ReplayWindow,
		replayLimit:   cfg.Feeds.ReplayLimit,
		replayPerSec:  cfg.Feeds.ReplayPerSec,
	}
}

// Name returns the feed's wire name.
func (f *Feed) Name() string {
	return f.kind.Name
}

// Serve runs the feed until the context is canceled: the poller and the
// periodic stats broadcaster as goroutines, the hub loop in the calling
// goroutine. Designed to run under suture supervision.
func (f *Feed) Serve(ctx context.Context) error {
	logging.Info().Str("feed", f.kind.Name).Msg("feed starting")
	go f.poller.Run(ctx)
	go f.statsLoop(ctx)
	return f.hub.RunWithContext(ctx)
}

// String identifies the service in supervisor logs.
func (f *Feed) String() string {
	return "feed-" + f.kind.Name
}

// statsLoop pushes a fresh snapshot to all clients on a fixed cadence, in
// addition to the on-demand get_stats path. Broadcasting is skipped while
// nobody is connected; the queries are pointless without an audience.
func (f *Feed) statsLoop(ctx context.Context) {
	ticker := time.NewTicker(f.statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if f.hub.ClientCount() == 0 {
				continue
			}
			snapCtx, cancel := context.WithTimeout(ctx, f.statsInterval)
			snapshot, err := f.stats.Snapshot(snapCtx)
			cancel()
			if err != nil {
				logging.Warn().Err(err).Str("feed", f.kind.Name).Msg("periodic stats snapshot failed")
				continue
			}
			f.hub.BroadcastStats(snapshot)
		}
	}
}

// Connect attaches an upgraded WebSocket connection to the feed: computes an
// initial stats snapshot, fetches the replay backlog, registers the client,
// and starts its pumps. The snapshot is written before the replay; if it
// cannot be computed the client simply starts with the replay alone.
func (f *Feed) Connect(ctx context.Context, conn *websocket.Conn) *Client {
	var hello *models.StatsSnapshot
	if snapshot, err := f.stats.Snapshot(ctx); err == nil {
		hello = &snapshot
	} else {
		logging.Warn().Err(err).Str("feed", f.kind.Name).Msg("initial stats snapshot failed")
	}

	backlog := f.poller.Backlog(ctx, f.replayWindow, f.replayLimit)
	metrics.FeedReplayEvents.WithLabelValues(f.kind.Name).Add(float64(len(backlog)))

	client := NewClient(f.hub, conn, f.Snapshot, hello, backlog, f.replayPerSec)
	client.Start()
	return client
}

// Snapshot exposes the feed's stats provider for on-demand requests.
func (f *Feed) Snapshot(ctx context.Context) (models.StatsSnapshot, error) {
	return f.stats.Snapshot(ctx)
}

// Dashboard exposes the feed's dashboard aggregates for the REST API.
func (f *Feed) Dashboard(ctx context.Context, topN int) (models.DashboardStats, error) {
	return f.stats.Dashboard(ctx, topN)
}

// Backlog exposes the replay batch for the REST bootstrap endpoint.
func (f *Feed) Backlog(ctx context.Context) []models.WireEvent {
	return f.poller.Backlog(ctx, f.replayWindow, f.replayLimit)
}

// ClientCount returns the number of connected map clients.
func (f *Feed) ClientCount() int {
	return f.hub.ClientCount()
}
