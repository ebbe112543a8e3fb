// SentinelMap - Honeypot Security Event Dashboard and Live Attack Map
// Copyright 2026 J. Mercer (jmercer)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmercer/sentinelmap

package feed

import (
	"github.com/jmercer/sentinelmap/internal/config"
	"github.com/jmercer/sentinelmap/internal/eventstore"
)

// Kind defines the scope of one map feed: its name on the wire and the store
// predicate selecting which records belong to it. Both feeds share the same
// engine; only the Kind differs.
type Kind struct {
	// Name identifies the feed in URLs, logs, and metrics labels.
	Name string

	// predicate is the stored inclusion rule. Callers get clones so per-query
	// extensions cannot mutate the shared predicate.
	predicate *eventstore.Predicate
}

// Predicate returns an independent copy of the feed's inclusion predicate.
func (k Kind) Predicate() *eventstore.Predicate {
	return k.predicate.Clone()
}

// HoneypotKind scopes the honeypot feed: records written by any sensor in the
// honeypot fleet that carry source coordinates.
func HoneypotKind(cfg *config.FeedsConfig) Kind {
	return Kind{
		Name: "honeypot",
		predicate: eventstore.NewPredicate().
			AddSensors(cfg.HoneypotSensors).
			RequireGeolocation(),
	}
}

// FirewallKind scopes the firewall feed: records from the firewall exporter
// where traffic was either blocked coming in or allowed going out. Inbound
// passes and outbound blocks are routine and would drown the map.
func FirewallKind(cfg *config.FeedsConfig) Kind {
	inboundBlocked := eventstore.NewPredicate().
		AddFieldEquals("direction", "inbound").
		AddFieldEquals("action", "blocked")
	outboundPassed := eventstore.NewPredicate().
		AddFieldEquals("direction", "outbound").
		AddFieldEquals("action", "passed")

	return Kind{
		Name: "firewall",
		predicate: eventstore.NewPredicate().
			AddSensors([]string{cfg.FirewallSensor}).
			Or(inboundBlocked, outboundPassed).
			RequireGeolocation(),
	}
}
