// SentinelMap - Honeypot Security Event Dashboard and Live Attack Map
// Copyright 2026 J. Mercer (jmercer)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmercer/sentinelmap

package feed

import (
	"context"
	"time"

	"github.com/jmercer/sentinelmap/internal/eventstore"
	"github.com/jmercer/sentinelmap/internal/logging"
	"github.com/jmercer/sentinelmap/internal/metrics"
	"github.com/jmercer/sentinelmap/internal/models"
)

// Poller is the single shared ingest loop for one feed. Each tick it queries
// a trailing window, normalizes the batch, claims each event in the dedup
// cache, and broadcasts the winners. There is exactly one poller per feed no
// matter how many clients are connected; the windows of consecutive ticks
// overlap on purpose and the dedup cache absorbs the overlap.
type Poller struct {
	kind       Kind
	store      eventstore.Store
	normalizer *Normalizer
	dedup      *DedupCache
	hub        *Hub

	interval   time.Duration
	window     time.Duration
	batchLimit int

	// Facility coordinates attached as the destination end of every arc.
	dstLat, dstLon float64
}

// NewPoller assembles the ingest loop for one feed kind.
func NewPoller(kind Kind, store eventstore.Store, normalizer *Normalizer, dedup *DedupCache, hub *Hub,
	interval, window time.Duration, batchLimit int, dstLat, dstLon float64) *Poller {
	return &Poller{
		kind:       kind,
		store:      store,
		normalizer: normalizer,
		dedup:      dedup,
		hub:        hub,
		interval:   interval,
		window:     window,
		batchLimit: batchLimit,
		dstLat:     dstLat,
		dstLon:     dstLon,
	}
}

// Run polls until the context is canceled. One poll happens immediately so a
// fresh start does not wait a full interval for the first events.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			logging.Info().Str("feed", p.kind.Name).Msg("feed poller stopped")
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// poll runs one ingest cycle. Store errors were already degraded to an empty
// batch by the resilient store wrapper; an empty batch is simply a quiet tick.
func (p *Poller) poll(ctx context.Context) {
	queryCtx, cancel := context.WithTimeout(ctx, p.interval)
	defer cancel()

	window := eventstore.TrailingWindow(p.window)
	records, err := p.store.Search(queryCtx, window, p.kind.Predicate(), p.batchLimit)
	if err != nil {
		logging.Warn().Err(err).Str("feed", p.kind.Name).Msg("feed poll failed")
		return
	}

	broadcast := 0
	for _, rec := range records {
		event, ok := p.normalizer.Normalize(rec)
		if !ok {
			continue
		}
		if !p.dedup.Claim(event.ID) {
			continue
		}
		p.hub.BroadcastAttack(event.ToWire(p.dstLat, p.dstLon))
		broadcast++
	}

	metrics.FeedEventsBroadcast.WithLabelValues(p.kind.Name).Add(float64(broadcast))
	metrics.FeedDedupCacheSize.WithLabelValues(p.kind.Name).Set(float64(p.dedup.Len()))

	if broadcast > 0 {
		logging.Debug().
			Str("feed", p.kind.Name).
			Int("records", len(records)).
			Int("broadcast", broadcast).
			Msg("feed poll cycle")
	}
}

// Backlog fetches the replay batch for a freshly connected client: the most
// recent in-scope events, oldest first, capped at limit. The dedup cache is
// not consulted; replay is a per-client bootstrap, not a live broadcast.
func (p *Poller) Backlog(ctx context.Context, replayWindow time.Duration, limit int) []models.WireEvent {
	if limit <= 0 {
		return nil
	}

	window := eventstore.TrailingWindow(replayWindow)
	records, err := p.store.Search(ctx, window, p.kind.Predicate(), p.batchLimit)
	if err != nil {
		logging.Warn().Err(err).Str("feed", p.kind.Name).Msg("backlog fetch failed")
		return nil
	}

	seen := make(map[string]bool, len(records))
	events := make([]models.WireEvent, 0, limit)
	for _, rec := range records {
		event, ok := p.normalizer.Normalize(rec)
		if !ok || seen[event.ID] {
			continue
		}
		seen[event.ID] = true
		events = append(events, event.ToWire(p.dstLat, p.dstLon))
	}

	// Keep the newest events when over the cap; records arrive oldest first.
	if len(events) > limit {
		events = events[len(events)-limit:]
	}
	return events
}
