// SentinelMap - Honeypot Security Event Dashboard and Live Attack Map
// Copyright 2026 J. Mercer (jmercer)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmercer/sentinelmap

package auth

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/jmercer/sentinelmap/internal/config"
)

// ErrInvalidCredentials is returned for any authentication failure. Callers
// must not distinguish unknown user from wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Authenticator checks login credentials against the configured admin
// account. The password is stored as a bcrypt hash, never plaintext.
type Authenticator struct {
	username     string
	passwordHash []byte
}

// NewAuthenticator builds an authenticator from the security configuration.
func NewAuthenticator(cfg *config.SecurityConfig) (*Authenticator, error) {
	if cfg.AdminUsername == "" || cfg.AdminPasswordHash == "" {
		return nil, errors.New("admin username and password hash must be configured")
	}
	// Fail fast on a malformed hash rather than rejecting every login later.
	if _, err := bcrypt.Cost([]byte(cfg.AdminPasswordHash)); err != nil {
		return nil, errors.New("admin password hash is not a valid bcrypt hash")
	}
	return &Authenticator{
		username:     cfg.AdminUsername,
		passwordHash: []byte(cfg.AdminPasswordHash),
	}, nil
}

// Authenticate verifies a username/password pair. Both checks always run so
// response timing does not reveal whether the username matched.
func (a *Authenticator) Authenticate(username, password string) error {
	userMatch := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passErr := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password))
	if !userMatch || passErr != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// HashPassword produces a bcrypt hash for operator tooling (initial setup,
// password rotation).
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
