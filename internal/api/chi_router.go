// SentinelMap - Honeypot Security Event Dashboard and Live Attack Map
// Copyright 2026 J. Mercer (jmercer)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmercer/sentinelmap

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jmercer/sentinelmap/internal/auth"
	"github.com/jmercer/sentinelmap/internal/middleware"
)

// Router bundles the handler set with its middleware factories.
type Router struct {
	handler *Handler
	mw      *ChiMiddleware
}

// NewRouter creates the router for the handler set.
func NewRouter(handler *Handler) *Router {
	return &Router{
		handler: handler,
		mw:      NewChiMiddleware(&handler.cfg.Security),
	}
}

// Setup builds the full route tree.
//
// Route groups:
//   - /api/v1/health: permissive rate limit, no auth (probes)
//   - /api/v1/auth:   strict login rate limit, no auth
//   - /api/v1:        data endpoints and map feeds, authenticated when a JWT
//     manager is configured
//   - /metrics:       Prometheus scrape endpoint, no auth (bind-protected)
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.mw.CORS())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.mw.RateLimitHealth())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
		r.Get("/", router.handler.Health)
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(router.mw.RateLimitLogin()).Post("/login", router.handler.Login)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.mw.RateLimit())
		r.Use(middleware.Prometheus)
		if router.handler.jwt != nil {
			r.Use(auth.Middleware(router.handler.jwt))
		}

		r.Get("/stats", router.handler.Stats)
		r.Get("/events/recent", router.handler.RecentEvents)
		r.Get("/map/{feed}/ws", router.handler.MapFeed)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
