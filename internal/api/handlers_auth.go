// SentinelMap - Honeypot Security Event Dashboard and Live Attack Map
// Copyright 2026 J. Mercer (jmercer)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmercer/sentinelmap

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/jmercer/sentinelmap/internal/logging"
	"github.com/jmercer/sentinelmap/internal/models"
	"github.com/jmercer/sentinelmap/internal/validation"
)

// Login authenticates the admin account and returns a signed JWT.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.jwt == nil || h.authn == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "authentication is not configured", nil)
		return
	}

	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body", err)
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid credentials payload", err)
		return
	}

	if err := h.authn.Authenticate(req.Username, req.Password); err != nil {
		logging.Warn().Str("username", sanitizeLogValue(req.Username)).Msg("failed login attempt")
		respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "invalid username or password", nil)
		return
	}

	token, expiresAt, err := h.jwt.GenerateToken(req.Username, "admin")
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to issue token", err)
		return
	}

	logging.Info().Str("username", sanitizeLogValue(req.Username)).Msg("login successful")
	respondSuccess(w, models.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Username:  req.Username,
	}, time.Now())
}
