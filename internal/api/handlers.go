// SentinelMap - Honeypot Security Event Dashboard and Live Attack Map
// Copyright 2026 J. Mercer (jmercer)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmercer/sentinelmap

// Package api implements the HTTP surface: REST endpoints for auth, stats,
// and event bootstrap, plus the WebSocket attack map feeds. Routing uses chi.
package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jmercer/sentinelmap/internal/auth"
	"github.com/jmercer/sentinelmap/internal/config"
	"github.com/jmercer/sentinelmap/internal/eventstore"
	"github.com/jmercer/sentinelmap/internal/feed"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// Handler holds the dependencies shared by all HTTP handlers.
type Handler struct {
	cfg   *config.Config
	store eventstore.Store
	feeds map[string]*feed.Feed
	jwt   *auth.JWTManager
	authn *auth.Authenticator
	start time.Time
}

// NewHandler wires the handler set. feeds is keyed by feed name; jwt and
// authn may be nil in development mode, which disables the login endpoint
// and authentication checks.
func NewHandler(cfg *config.Config, store eventstore.Store, feeds map[string]*feed.Feed,
	jwt *auth.JWTManager, authn *auth.Authenticator) *Handler {
	return &Handler{
		cfg:   cfg,
		store: store,
		feeds: feeds,
		jwt:   jwt,
		authn: authn,
		start: time.Now(),
	}
}

// upgrader builds the WebSocket upgrader with origin checks derived from the
// CORS configuration. A wildcard origin list accepts every origin.
func (h *Handler) upgrader() websocket.Upgrader {
	allowed := h.cfg.Security.CORSOrigins
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true // non-browser client
			}
			for _, o := range allowed {
				if o == "*" || o == origin {
					return true
				}
			}
			return false
		},
	}
}

// feedByName resolves a feed, writing the error response itself when the
// name is unknown.
func (h *Handler) feedByName(w http.ResponseWriter, name string) (*feed.Feed, bool) {
	f, ok := h.feeds[name]
	if !ok {
		respondError(w, http.StatusNotFound, "VALIDATION_ERROR", "unknown feed", nil)
		return nil, false
	}
	return f, true
}
