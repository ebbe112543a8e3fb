// SentinelMap - Honeypot Security Event Dashboard and Live Attack Map
// Copyright 2026 J. Mercer (jmercer)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmercer/sentinelmap

package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/jmercer/sentinelmap/internal/eventstore"
	"github.com/jmercer/sentinelmap/internal/models"
)

// StatsProvider computes summary statistics for one feed over a fixed
// trailing window. Snapshots are always computed fresh from the store; a
// cached count going stale is worse than the three cheap aggregate queries.
type StatsProvider struct {
	kind   Kind
	store  eventstore.Store
	window time.Duration
}

// NewStatsProvider builds a provider for the feed kind over the given window.
func NewStatsProvider(kind Kind, store eventstore.Store, window time.Duration) *StatsProvider {
	return &StatsProvider{kind: kind, store: store, window: window}
}

// Snapshot computes the current stats: total events, unique source IPs, and
// unique source countries over the trailing window.
func (s *StatsProvider) Snapshot(ctx context.Context) (models.StatsSnapshot, error) {
	window := eventstore.TrailingWindow(s.window)

	total, err := s.store.Count(ctx, window, s.kind.Predicate())
	if err != nil {
		return models.StatsSnapshot{}, fmt.Errorf("count failed: %w", err)
	}
	sources, err := s.store.CountDistinct(ctx, "src_ip", window, s.kind.Predicate())
	if err != nil {
		return models.StatsSnapshot{}, fmt.Errorf("distinct sources failed: %w", err)
	}
	countries, err := s.store.CountDistinct(ctx, "src_country", window, s.kind.Predicate())
	if err != nil {
		return models.StatsSnapshot{}, fmt.Errorf("distinct countries failed: %w", err)
	}

	return models.StatsSnapshot{
		WindowSeconds:      window.Seconds(),
		TotalCount:         total,
		UniqueSourceCount:  sources,
		UniqueCountryCount: countries,
		AsOf:               window.End,
	}, nil
}

// Dashboard computes the snapshot plus the top-N breakdowns the REST stats
// endpoint renders as charts.
func (s *StatsProvider) Dashboard(ctx context.Context, topN int) (models.DashboardStats, error) {
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return models.DashboardStats{}, err
	}

	window := eventstore.TrailingWindow(s.window)
	countries, err := s.store.Terms(ctx, "src_country", window, topN, s.kind.Predicate())
	if err != nil {
		return models.DashboardStats{}, fmt.Errorf("top countries failed: %w", err)
	}
	sensors, err := s.store.Terms(ctx, "sensor", window, topN, s.kind.Predicate())
	if err != nil {
		return models.DashboardStats{}, fmt.Errorf("top sensors failed: %w", err)
	}
	ports, err := s.store.Terms(ctx, "dst_port", window, topN, s.kind.Predicate())
	if err != nil {
		return models.DashboardStats{}, fmt.Errorf("top ports failed: %w", err)
	}

	return models.DashboardStats{
		StatsSnapshot: snapshot,
		TopCountries:  countries,
		TopSourceTags: sensors,
		TopPorts:      ports,
	}, nil
}
