// SentinelMap - Honeypot Security Event Dashboard and Live Attack Map
// Copyright 2026 J. Mercer (jmercer)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmercer/sentinelmap

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/jmercer/sentinelmap/internal/eventstore"
	"github.com/jmercer/sentinelmap/internal/models"
)

// Stats returns dashboard statistics. With ?feed= it returns one feed's
// aggregates; without, every feed keyed by name.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	topN := getIntParam(r, "top", 10, 1, 50)

	if name := r.URL.Query().Get("feed"); name != "" {
		f, ok := h.feedByName(w, name)
		if !ok {
			return
		}
		stats, err := f.Dashboard(r.Context(), topN)
		if err != nil {
			h.respondStoreError(w, err)
			return
		}
		respondSuccess(w, stats, started)
		return
	}

	all := make(map[string]models.DashboardStats, len(h.feeds))
	for name, f := range h.feeds {
		stats, err := f.Dashboard(r.Context(), topN)
		if err != nil {
			h.respondStoreError(w, err)
			return
		}
		all[name] = stats
	}
	respondSuccess(w, all, started)
}

// RecentEvents returns the bootstrap batch for one feed: the same recent
// in-scope events a connecting WebSocket client would have replayed. Useful
// for dashboards that render the map before the socket is up.
func (h *Handler) RecentEvents(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	name := r.URL.Query().Get("feed")
	if name == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "feed parameter is required", nil)
		return
	}
	f, ok := h.feedByName(w, name)
	if !ok {
		return
	}

	events := f.Backlog(r.Context())
	if limit := getIntParam(r, "limit", len(events), 1, 1000); limit < len(events) {
		events = events[len(events)-limit:]
	}

	respondSuccess(w, models.RecentEventsResponse{
		Events: events,
		Count:  len(events),
	}, started)
}

// respondStoreError maps store failures to the right status: an open breaker
// is a temporary outage, anything else is a server error.
func (h *Handler) respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, eventstore.ErrStoreUnavailable) {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "event store temporarily unavailable", err)
		return
	}
	respondError(w, http.StatusInternalServerError, "STORE_ERROR", "event store query failed", err)
}
