// SentinelMap - Honeypot Security Event Dashboard and Live Attack Map
// Copyright 2026 J. Mercer (jmercer)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmercer/sentinelmap

// Package config loads and validates the application configuration from
// layered sources: built-in defaults, an optional YAML file, then environment
// variables. Precedence is ENV > file > defaults.
package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/jmercer/sentinelmap/internal/validation"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Store    StoreConfig    `koanf:"store"`
	Feeds    FeedsConfig    `koanf:"feeds"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds the HTTP listener settings plus the fixed facility
// coordinates that map clients draw as the destination end of attack arcs.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout     time.Duration `koanf:"timeout"`
	Latitude    float64       `koanf:"latitude" validate:"min=-90,max=90"`
	Longitude   float64       `koanf:"longitude" validate:"min=-180,max=180"`
	Environment string        `koanf:"environment" validate:"oneof=development production"`
}

// StoreConfig holds the DuckDB event store settings.
type StoreConfig struct {
	Path      string `koanf:"path" validate:"required"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads" validate:"min=0"`
}

// FeedsConfig tunes the live feed engine shared by every map connection.
type FeedsConfig struct {
	PollInterval  time.Duration `koanf:"poll_interval" validate:"required"`
	WindowLength  time.Duration `koanf:"window_length" validate:"required"`
	BatchLimit    int           `koanf:"batch_limit" validate:"min=1,max=10000"`
	DedupCapacity int           `koanf:"dedup_capacity" validate:"min=2"`
	StatsInterval time.Duration `koanf:"stats_interval" validate:"required"`
	StatsWindow   time.Duration `koanf:"stats_window" validate:"required"`

	// Backlog replay for freshly connected clients.
	ReplayLimit  int           `koanf:"replay_limit" validate:"min=0,max=1000"`
	ReplayWindow time.Duration `koanf:"replay_window"`
	ReplayPerSec float64       `koanf:"replay_per_sec" validate:"min=1"`

	// Honeypot feed scope: which sensor tags belong to the honeypot fleet.
	HoneypotSensors []string `koanf:"honeypot_sensors" validate:"min=1"`

	// Firewall feed scope: the sensor tag the firewall exporter writes under.
	FirewallSensor string `koanf:"firewall_sensor" validate:"required"`

	// Sources excluded from every feed: exact IPs and CIDR ranges
	// (monitoring hosts, the facility's own egress, RFC1918 scanners).
	ExcludedIPs   []string `koanf:"excluded_ips"`
	ExcludedCIDRs []string `koanf:"excluded_cidrs"`
}

// SecurityConfig holds authentication and HTTP protection settings.
type SecurityConfig struct {
	JWTSecret         string        `koanf:"jwt_secret"`
	SessionTimeout    time.Duration `koanf:"session_timeout"`
	AdminUsername     string        `koanf:"admin_username"`
	AdminPasswordHash string        `koanf:"admin_password_hash"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs" validate:"min=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Validate checks cross-field constraints that struct tags cannot express.
// Tag-level validation runs first via the shared validator.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Server.Environment == "production" {
		if c.Security.JWTSecret == "" {
			return fmt.Errorf("security.jwt_secret is required in production")
		}
		if len(c.Security.JWTSecret) < 32 {
			return fmt.Errorf("security.jwt_secret must be at least 32 characters, got %d", len(c.Security.JWTSecret))
		}
		if c.Security.AdminUsername == "" || c.Security.AdminPasswordHash == "" {
			return fmt.Errorf("security.admin_username and security.admin_password_hash are required in production")
		}
	}

	if c.Feeds.WindowLength < c.Feeds.PollInterval {
		return fmt.Errorf("feeds.window_length (%s) must cover at least one poll interval (%s)",
			c.Feeds.WindowLength, c.Feeds.PollInterval)
	}

	for _, ip := range c.Feeds.ExcludedIPs {
		if net.ParseIP(ip) == nil {
			return fmt.Errorf("feeds.excluded_ips contains invalid IP %q", ip)
		}
	}
	for _, cidr := range c.Feeds.ExcludedCIDRs {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			return fmt.Errorf("feeds.excluded_cidrs contains invalid CIDR %q: %w", cidr, err)
		}
	}

	for _, sensor := range c.Feeds.HoneypotSensors {
		if strings.TrimSpace(sensor) == "" {
			return fmt.Errorf("feeds.honeypot_sensors contains an empty sensor tag")
		}
	}

	return nil
}

// ListenAddr returns the host:port the HTTP server binds to.
func (c *ServerConfig) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsProduction reports whether the server runs in production mode.
func (c *ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}
