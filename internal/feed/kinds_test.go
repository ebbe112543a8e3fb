// SentinelMap - Honeypot Security Event Dashboard and Live Attack Map
// Copyright 2026 J. Mercer (jmercer)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmercer/sentinelmap

package feed

import (
	"strings"
	"testing"

	"github.com/jmercer/sentinelmap/internal/config"
)

func TestHoneypotKindPredicate(t *testing.T) {
	kind := HoneypotKind(&config.FeedsConfig{
		HoneypotSensors: []string{"cowrie", "dionaea", "heralding"},
	})
	if kind.Name != "honeypot" {
		t.Errorf("name = %q", kind.Name)
	}

	clause, args := kind.Predicate().Build()
	if !strings.Contains(clause, "sensor IN (?, ?, ?)") {
		t.Errorf("clause missing sensor scope: %q", clause)
	}
	if !strings.Contains(clause, "src_lat") {
		t.Errorf("clause missing geolocation requirement: %q", clause)
	}
	if len(args) != 3 || args[0] != "cowrie" {
		t.Errorf("args = %v", args)
	}
}

func TestFirewallKindPredicate(t *testing.T) {
	kind := FirewallKind(&config.FeedsConfig{FirewallSensor: "opnsense"})
	if kind.Name != "firewall" {
		t.Errorf("name = %q", kind.Name)
	}

	clause, args := kind.Predicate().Build()
	if !strings.Contains(clause, "sensor IN (?)") {
		t.Errorf("clause missing sensor scope: %q", clause)
	}
	if !strings.Contains(clause, " OR ") {
		t.Errorf("clause missing direction/action disjunction: %q", clause)
	}
	if !strings.Contains(clause, "src_lat") {
		t.Errorf("clause missing geolocation requirement: %q", clause)
	}

	want := []interface{}{"opnsense", "inbound", "blocked", "outbound", "passed"}
	if len(args) != len(want) {
		t.Fatalf("args = %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("args[%d] = %v, want %v", i, args[i], want[i])
		}
	}
}

func TestKindPredicateIsolation(t *testing.T) {
	kind := HoneypotKind(&config.FeedsConfig{HoneypotSensors: []string{"cowrie"}})

	// Extending one returned predicate must not leak into the next.
	kind.Predicate().AddFieldEquals("protocol", "ssh")
	clause, _ := kind.Predicate().Build()
	if strings.Contains(clause, "protocol") {
		t.Errorf("shared predicate was mutated: %q", clause)
	}
}
