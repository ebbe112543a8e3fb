// SentinelMap - Honeypot Security Event Dashboard and Live Attack Map
// Copyright 2026 J. Mercer (jmercer)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmercer/sentinelmap

package models

import (
	"time"
)

// StatsSnapshot is a summary of event volume over a fixed trailing window.
// It is always recomputed fresh from the event store; the feed engine never
// caches one, since staleness is not tolerated here unlike in the dedup cache.
type StatsSnapshot struct {
	WindowSeconds      int       `json:"window"`
	TotalCount         int       `json:"total_count"`
	UniqueSourceCount  int       `json:"unique_source_count"`
	UniqueCountryCount int       `json:"unique_country_count"`
	AsOf               time.Time `json:"as_of"`
}

// TermCount is one bucket of a terms aggregation (value plus occurrence count).
type TermCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// DashboardStats is the standalone stats endpoint payload: the snapshot plus
// top-N breakdowns that the REST dashboard renders as charts.
type DashboardStats struct {
	StatsSnapshot
	TopCountries  []TermCount `json:"top_countries"`
	TopSourceTags []TermCount `json:"top_source_tags"`
	TopPorts      []TermCount `json:"top_ports"`
}

// HealthStatus represents the health check response.
type HealthStatus struct {
	Status         string  `json:"status"`
	Version        string  `json:"version"`
	StoreConnected bool    `json:"store_connected"`
	FeedClients    int     `json:"feed_clients"`
	Uptime         float64 `json:"uptime_seconds"`
}
