// SentinelMap - Honeypot Security Event Dashboard and Live Attack Map
// Copyright 2026 J. Mercer (jmercer)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmercer/sentinelmap

// Package eventstore provides read-only, bounded-window access to the ingested
// sensor log store. The feed engine and the REST handlers never talk to the
// database directly; everything goes through the Store interface so the
// backing store can be swapped (or faked in tests) without touching callers.
package eventstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmercer/sentinelmap/internal/models"
)

// RawRecord is one stored sensor record as a decoded JSON document. Field
// layout differs per sensor kind; the feed normalizer resolves the layout.
type RawRecord map[string]interface{}

// TimeWindow is a bounded query time range. Feeds use trailing windows ending
// "now" in place of a durable cursor.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// TrailingWindow returns a window of the given length ending now.
func TrailingWindow(length time.Duration) TimeWindow {
	now := time.Now().UTC()
	return TimeWindow{Start: now.Add(-length), End: now}
}

// Seconds returns the window length in whole seconds.
func (w TimeWindow) Seconds() int {
	return int(w.End.Sub(w.Start) / time.Second)
}

// Store is the upstream collaborator interface: strictly read-only,
// bounded-window queries against the ingested sensor logs.
type Store interface {
	// Search returns raw records in the window matching the predicate,
	// ordered by timestamp ascending, up to limit.
	Search(ctx context.Context, window TimeWindow, pred *Predicate, limit int) ([]RawRecord, error)

	// Count returns the number of records in the window matching the predicate.
	Count(ctx context.Context, window TimeWindow, pred *Predicate) (int, error)

	// CountDistinct returns the number of distinct values of a payload field
	// in the window.
	CountDistinct(ctx context.Context, field string, window TimeWindow, pred *Predicate) (int, error)

	// Terms returns the most frequent values of a payload field in the window.
	Terms(ctx context.Context, field string, window TimeWindow, limit int, pred *Predicate) ([]models.TermCount, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}

// Predicate constructs SQL WHERE fragments with parameterized arguments for
// feed-specific inclusion rules. It ensures consistent parameter handling and
// keeps raw user input out of query text.
//
// Example:
//
//	pred := eventstore.NewPredicate().
//	    AddSensors([]string{"cowrie", "dionaea"}).
//	    RequireGeolocation()
//	clause, args := pred.Build()
type Predicate struct {
	clauses []string
	args    []interface{}
}

// NewPredicate creates an empty predicate.
func NewPredicate() *Predicate {
	return &Predicate{}
}

// AddClause adds a raw condition fragment with its arguments. Useful for
// feed-specific conditions not covered by helper methods.
func (p *Predicate) AddClause(clause string, args ...interface{}) *Predicate {
	p.clauses = append(p.clauses, clause)
	p.args = append(p.args, args...)
	return p
}

// AddSensors restricts results to the given sensor tags using an IN clause.
// An empty slice is skipped.
func (p *Predicate) AddSensors(sensors []string) *Predicate {
	if len(sensors) == 0 {
		return p
	}
	placeholders := make([]string, len(sensors))
	for i, s := range sensors {
		placeholders[i] = "?"
		p.args = append(p.args, s)
	}
	p.clauses = append(p.clauses, fmt.Sprintf("sensor IN (%s)", strings.Join(placeholders, ", ")))
	return p
}

// RequireGeolocation keeps only records that carry source coordinates.
// Records without coordinates cannot be plotted on the map.
func (p *Predicate) RequireGeolocation() *Predicate {
	p.clauses = append(p.clauses,
		"json_extract(payload, '$.src_lat') IS NOT NULL",
		"json_extract(payload, '$.src_lon') IS NOT NULL")
	return p
}

// AddFieldEquals adds an equality condition on a payload field. Callers pass
// literal field names only; values are bound as parameters.
func (p *Predicate) AddFieldEquals(field string, value interface{}) *Predicate {
	p.clauses = append(p.clauses, fmt.Sprintf("json_extract_string(payload, '$.%s') = ?", field))
	p.args = append(p.args, value)
	return p
}

// Or combines the given predicates into a single parenthesized disjunction
// and appends it as one clause.
func (p *Predicate) Or(alternatives ...*Predicate) *Predicate {
	parts := make([]string, 0, len(alternatives))
	for _, alt := range alternatives {
		if len(alt.clauses) == 0 {
			continue
		}
		parts = append(parts, "("+strings.Join(alt.clauses, " AND ")+")")
		p.args = append(p.args, alt.args...)
	}
	if len(parts) > 0 {
		p.clauses = append(p.clauses, "("+strings.Join(parts, " OR ")+")")
	}
	return p
}

// Build constructs the final WHERE fragment and its arguments. Clauses are
// joined with AND. Returns ("1=1", nil-safe args) when no clauses were added
// so callers can always interpolate the fragment.
func (p *Predicate) Build() (string, []interface{}) {
	if p == nil || len(p.clauses) == 0 {
		return "1=1", nil
	}
	return strings.Join(p.clauses, " AND "), p.args
}

// Clone returns an independent copy so shared feed predicates can be extended
// per query without mutating the original.
func (p *Predicate) Clone() *Predicate {
	if p == nil {
		return NewPredicate()
	}
	clone := &Predicate{
		clauses: make([]string, len(p.clauses)),
		args:    make([]interface{}, len(p.args)),
	}
	copy(clone.clauses, p.clauses)
	copy(clone.args, p.args)
	return clone
}

// validFields is the allowlist of payload fields that may appear in
// aggregation queries. Field names are interpolated into SQL (JSON paths
// cannot be bound as parameters), so anything outside this set is rejected.
var validFields = map[string]bool{
	"src_ip":      true,
	"src_country": true,
	"src_lat":     true,
	"src_lon":     true,
	"dst_port":    true,
	"protocol":    true,
	"action":      true,
	"direction":   true,
	"sensor":      true,
}

// ValidField reports whether a payload field may be used in aggregations.
func ValidField(field string) bool {
	return validFields[field]
}
