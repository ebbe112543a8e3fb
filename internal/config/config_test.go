// SentinelMap - Honeypot Security Event Dashboard and Live Attack Map
// Copyright 2026 J. Mercer (jmercer)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmercer/sentinelmap

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8472 {
		t.Errorf("default port = %d, want 8472", cfg.Server.Port)
	}
	if cfg.Feeds.PollInterval != 2*time.Second {
		t.Errorf("default poll interval = %v, want 2s", cfg.Feeds.PollInterval)
	}
	if cfg.Feeds.DedupCapacity != 2000 {
		t.Errorf("default dedup capacity = %d, want 2000", cfg.Feeds.DedupCapacity)
	}
	if len(cfg.Feeds.HoneypotSensors) == 0 {
		t.Error("default honeypot sensor list is empty")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("DUCKDB_PATH", "/tmp/test.duckdb")
	t.Setenv("HONEYPOT_SENSORS", "cowrie, glastopf")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000 from env", cfg.Server.Port)
	}
	if cfg.Store.Path != "/tmp/test.duckdb" {
		t.Errorf("store path = %q, want env override", cfg.Store.Path)
	}
	if len(cfg.Feeds.HoneypotSensors) != 2 || cfg.Feeds.HoneypotSensors[1] != "glastopf" {
		t.Errorf("honeypot sensors = %v, want [cowrie glastopf]", cfg.Feeds.HoneypotSensors)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: 8081
  latitude: 51.5
  longitude: -0.12
feeds:
  firewall_sensor: opnsense
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8081 {
		t.Errorf("port = %d, want 8081 from file", cfg.Server.Port)
	}
	if cfg.Server.Latitude != 51.5 || cfg.Server.Longitude != -0.12 {
		t.Errorf("facility coords = %v,%v", cfg.Server.Latitude, cfg.Server.Longitude)
	}
	if cfg.Feeds.FirewallSensor != "opnsense" {
		t.Errorf("firewall sensor = %q, want opnsense", cfg.Feeds.FirewallSensor)
	}
	// Untouched sections keep defaults.
	if cfg.Feeds.BatchLimit != 500 {
		t.Errorf("batch limit = %d, want default 500", cfg.Feeds.BatchLimit)
	}
}

func TestEnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 8081\n"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("HTTP_PORT", "9999")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d, env must beat file", cfg.Server.Port)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
		{"latitude out of range", func(c *Config) { c.Server.Latitude = 91 }},
		{"bad environment", func(c *Config) { c.Server.Environment = "staging" }},
		{"empty store path", func(c *Config) { c.Store.Path = "" }},
		{"window shorter than poll", func(c *Config) {
			c.Feeds.PollInterval = 10 * time.Second
			c.Feeds.WindowLength = 2 * time.Second
		}},
		{"invalid excluded IP", func(c *Config) { c.Feeds.ExcludedIPs = []string{"not-an-ip"} }},
		{"invalid excluded CIDR", func(c *Config) { c.Feeds.ExcludedCIDRs = []string{"10.0.0.0/99"} }},
		{"empty honeypot sensor tag", func(c *Config) { c.Feeds.HoneypotSensors = []string{"  "} }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestValidateProductionRequiresCredentials(t *testing.T) {
	cfg := defaultConfig()
	cfg.Server.Environment = "production"
	if err := cfg.Validate(); err == nil {
		t.Fatal("production config without JWT secret must fail validation")
	}

	cfg.Security.JWTSecret = "0123456789abcdef0123456789abcdef"
	if err := cfg.Validate(); err == nil {
		t.Fatal("production config without admin credentials must fail validation")
	}

	cfg.Security.AdminUsername = "admin"
	cfg.Security.AdminPasswordHash = "$2a$10$abcdefghijklmnopqrstuvwxyz012345678901234567890123456"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("complete production config failed validation: %v", err)
	}
}

func TestListenAddr(t *testing.T) {
	sc := ServerConfig{Host: "127.0.0.1", Port: 8472}
	if got := sc.ListenAddr(); got != "127.0.0.1:8472" {
		t.Errorf("ListenAddr() = %q", got)
	}
}
