// SentinelMap - Honeypot Security Event Dashboard and Live Attack Map
// Copyright 2026 J. Mercer (jmercer)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmercer/sentinelmap

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jmercer/sentinelmap/internal/logging"
)

// MapFeed upgrades the connection and attaches it to the feed named in the
// URL. The feed handles replay and live delivery from there; this handler
// returns as soon as the client pumps are running.
func (h *Handler) MapFeed(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "feed")
	f, ok := h.feedByName(w, name)
	if !ok {
		return
	}

	upgrader := h.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		logging.Warn().Err(err).Str("feed", name).Msg("websocket upgrade failed")
		return
	}

	client := f.Connect(r.Context(), conn)
	logging.Debug().
		Str("feed", name).
		Uint64("client_id", client.ID()).
		Str("remote", sanitizeLogValue(r.RemoteAddr)).
		Msg("map feed client attached")
}
