// SentinelMap - Honeypot Security Event Dashboard and Live Attack Map
// Copyright 2026 J. Mercer (jmercer)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmercer/sentinelmap

package eventstore

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/jmercer/sentinelmap/internal/logging"
	"github.com/jmercer/sentinelmap/internal/metrics"
	"github.com/jmercer/sentinelmap/internal/models"
)

// ErrStoreUnavailable is returned by aggregation calls while the breaker is
// open. Feed search calls never see it; they degrade to an empty batch.
var ErrStoreUnavailable = errors.New("event store unavailable")

// Resilient wraps a Store with a circuit breaker. A failing or unreachable
// store must never take the map feeds down with it: Search degrades to an
// empty batch while the breaker is open, so connected clients simply see a
// quiet map until the store recovers. Aggregation calls surface the error to
// their HTTP handlers instead.
type Resilient struct {
	store   Store
	breaker *gobreaker.CircuitBreaker[interface{}]
}

// NewResilient wraps the store with breaker settings tuned for a polling
// workload: trip after 5 consecutive failures, probe again after 30s.
func NewResilient(store Store) *Resilient {
	settings := gobreaker.Settings{
		Name:        "eventstore",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("event store circuit breaker state changed")
		},
	}
	return &Resilient{
		store:   store,
		breaker: gobreaker.NewCircuitBreaker[interface{}](settings),
	}
}

// Search degrades to an empty batch when the store fails or the breaker is
// open. The empty batch is indistinguishable from a quiet window, which is
// exactly the behavior the feeds want.
func (r *Resilient) Search(ctx context.Context, window TimeWindow, pred *Predicate, limit int) ([]RawRecord, error) {
	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.store.Search(ctx, window, pred, limit)
	})
	if err != nil {
		logging.Warn().Err(err).Msg("event store search degraded to empty batch")
		return nil, nil
	}
	records, _ := result.([]RawRecord)
	return records, nil
}

// Count surfaces store failures; stats handlers report them to the caller.
func (r *Resilient) Count(ctx context.Context, window TimeWindow, pred *Predicate) (int, error) {
	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.store.Count(ctx, window, pred)
	})
	if err != nil {
		return 0, r.wrapErr(err)
	}
	count, _ := result.(int)
	return count, nil
}

// CountDistinct surfaces store failures.
func (r *Resilient) CountDistinct(ctx context.Context, field string, window TimeWindow, pred *Predicate) (int, error) {
	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.store.CountDistinct(ctx, field, window, pred)
	})
	if err != nil {
		return 0, r.wrapErr(err)
	}
	count, _ := result.(int)
	return count, nil
}

// Terms surfaces store failures.
func (r *Resilient) Terms(ctx context.Context, field string, window TimeWindow, limit int, pred *Predicate) ([]models.TermCount, error) {
	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.store.Terms(ctx, field, window, limit, pred)
	})
	if err != nil {
		return nil, r.wrapErr(err)
	}
	terms, _ := result.([]models.TermCount)
	return terms, nil
}

// Ping bypasses the breaker so health checks observe the real store state.
func (r *Resilient) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

// Close closes the underlying store.
func (r *Resilient) Close() error {
	return r.store.Close()
}

// State exposes the current breaker state for the readiness endpoint.
func (r *Resilient) State() gobreaker.State {
	return r.breaker.State()
}

func (r *Resilient) wrapErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrStoreUnavailable
	}
	return err
}
