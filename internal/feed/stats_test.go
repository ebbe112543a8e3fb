// SentinelMap - Honeypot Security Event Dashboard and Live Attack Map
// Copyright 2026 J. Mercer (jmercer)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmercer/sentinelmap

package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmercer/sentinelmap/internal/config"
	"github.com/jmercer/sentinelmap/internal/eventstore"
	"github.com/jmercer/sentinelmap/internal/models"
)

// aggStore returns canned aggregate values per field.
type aggStore struct {
	total     int
	distincts map[string]int
	terms     map[string][]models.TermCount
	err       error
}

func (a *aggStore) Search(_ context.Context, _ eventstore.TimeWindow, _ *eventstore.Predicate, _ int) ([]eventstore.RawRecord, error) {
	return nil, a.err
}

func (a *aggStore) Count(_ context.Context, _ eventstore.TimeWindow, _ *eventstore.Predicate) (int, error) {
	return a.total, a.err
}

func (a *aggStore) CountDistinct(_ context.Context, field string, _ eventstore.TimeWindow, _ *eventstore.Predicate) (int, error) {
	return a.distincts[field], a.err
}

func (a *aggStore) Terms(_ context.Context, field string, _ eventstore.TimeWindow, _ int, _ *eventstore.Predicate) ([]models.TermCount, error) {
	return a.terms[field], a.err
}

func (a *aggStore) Ping(_ context.Context) error { return a.err }
func (a *aggStore) Close() error                 { return nil }

func TestStatsSnapshot(t *testing.T) {
	store := &aggStore{
		total:     1234,
		distincts: map[string]int{"src_ip": 87, "src_country": 23},
	}
	kind := HoneypotKind(&config.FeedsConfig{HoneypotSensors: []string{"cowrie"}})
	provider := NewStatsProvider(kind, store, 24*time.Hour)

	snapshot, err := provider.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if snapshot.TotalCount != 1234 {
		t.Errorf("total = %d", snapshot.TotalCount)
	}
	if snapshot.UniqueSourceCount != 87 {
		t.Errorf("unique sources = %d", snapshot.UniqueSourceCount)
	}
	if snapshot.UniqueCountryCount != 23 {
		t.Errorf("unique countries = %d", snapshot.UniqueCountryCount)
	}
	if snapshot.WindowSeconds != 86400 {
		t.Errorf("window seconds = %d", snapshot.WindowSeconds)
	}
	if snapshot.AsOf.IsZero() {
		t.Error("AsOf not set")
	}
}

func TestStatsSnapshotSurfacesError(t *testing.T) {
	store := &aggStore{err: errors.New("store down")}
	kind := HoneypotKind(&config.FeedsConfig{HoneypotSensors: []string{"cowrie"}})
	provider := NewStatsProvider(kind, store, time.Hour)

	if _, err := provider.Snapshot(context.Background()); err == nil {
		t.Error("Snapshot() = nil error with failing store")
	}
}

func TestStatsDashboard(t *testing.T) {
	store := &aggStore{
		total:     50,
		distincts: map[string]int{"src_ip": 10, "src_country": 4},
		terms: map[string][]models.TermCount{
			"src_country": {{Value: "CN", Count: 20}, {Value: "RU", Count: 15}},
			"sensor":      {{Value: "cowrie", Count: 45}},
			"dst_port":    {{Value: "22", Count: 30}, {Value: "23", Count: 12}},
		},
	}
	kind := HoneypotKind(&config.FeedsConfig{HoneypotSensors: []string{"cowrie"}})
	provider := NewStatsProvider(kind, store, time.Hour)

	stats, err := provider.Dashboard(context.Background(), 10)
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if stats.TotalCount != 50 {
		t.Errorf("total = %d", stats.TotalCount)
	}
	if len(stats.TopCountries) != 2 || stats.TopCountries[0].Value != "CN" {
		t.Errorf("top countries = %v", stats.TopCountries)
	}
	if len(stats.TopSourceTags) != 1 || stats.TopSourceTags[0].Value != "cowrie" {
		t.Errorf("top source tags = %v", stats.TopSourceTags)
	}
	if len(stats.TopPorts) != 2 || stats.TopPorts[0].Value != "22" {
		t.Errorf("top ports = %v", stats.TopPorts)
	}
}
