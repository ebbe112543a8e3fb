// SentinelMap - Honeypot Security Event Dashboard and Live Attack Map
// Copyright 2026 J. Mercer (jmercer)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmercer/sentinelmap

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jmercer/sentinelmap/internal/models"
)

// Health reports full service health including store connectivity and the
// total number of connected map clients.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	storeConnected := h.store.Ping(ctx) == nil

	clients := 0
	for _, f := range h.feeds {
		clients += f.ClientCount()
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !storeConnected {
		// Feeds degrade to a quiet map during an outage; the service is up
		// but not fully functional.
		status = "degraded"
	}

	respondJSON(w, httpStatus, &models.APIResponse{
		Status: "success",
		Data: models.HealthStatus{
			Status:         status,
			Version:        Version,
			StoreConnected: storeConnected,
			FeedClients:    clients,
			Uptime:         time.Since(h.start).Seconds(),
		},
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(started).Milliseconds(),
		},
	})
}

// HealthLive is the liveness probe: the process is running.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"alive"}`))
}

// HealthReady is the readiness probe: the store must answer before traffic
// is routed here.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "event store not reachable", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}
