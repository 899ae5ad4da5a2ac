// ob-reports - Onboarding Funnel Analytics over BigQuery Event Exports
// Copyright 2026 Anshul Vish (anshulvish)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/anshulvish/ob-reports

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()

	if cfg.Server.Port != 5227 {
		t.Errorf("default port = %d, want 5227", cfg.Server.Port)
	}
	if cfg.Warehouse.QueryTimeout != 5*time.Minute {
		t.Errorf("default query timeout = %v, want 5m", cfg.Warehouse.QueryTimeout)
	}
	if cfg.Catalog.RefreshInterval != 30*time.Minute {
		t.Errorf("default refresh interval = %v, want 30m", cfg.Catalog.RefreshInterval)
	}
	if cfg.Cache.MetricsTTL != 15*time.Minute {
		t.Errorf("default metrics TTL = %v, want 15m", cfg.Cache.MetricsTTL)
	}
	if cfg.API.MaxResponseRows != 100 {
		t.Errorf("default max response rows = %d, want 100", cfg.API.MaxResponseRows)
	}

	s := cfg.Engagement.Scoring
	if s.StageWeight != 5 || s.TimeCap != 30 || s.RevisitWeight != 3 || s.CompletionBonus != 20 {
		t.Errorf("unexpected default scoring weights: %+v", s)
	}
	if s.HighThreshold != 80 || s.ModerateThreshold != 50 || s.LightThreshold != 20 {
		t.Errorf("unexpected default thresholds: %+v", s)
	}
}

func TestDefaultsValidate(t *testing.T) {
	t.Parallel()

	if err := defaultConfig().Validate(); err != nil {
		t.Errorf("default config should validate, got: %v", err)
	}
}

func TestWarehouseConfigured(t *testing.T) {
	t.Parallel()

	w := WarehouseConfig{}
	if w.Configured() {
		t.Error("empty warehouse config should not be configured")
	}

	w.Path = "/data/export.duckdb"
	if w.Configured() {
		t.Error("path without dataset should not be configured")
	}

	w.DatasetID = "analytics_123"
	if !w.Configured() {
		t.Error("path plus dataset should be configured")
	}
}

func TestValidateErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"bad timeout", func(c *Config) { c.Server.Timeout = 0 }, "server.timeout"},
		{"bad query timeout", func(c *Config) { c.Warehouse.QueryTimeout = -time.Second }, "warehouse.query_timeout"},
		{"bad max results", func(c *Config) { c.Warehouse.MaxResults = 0 }, "warehouse.max_results"},
		{"bad refresh interval", func(c *Config) { c.Catalog.RefreshInterval = 0 }, "catalog.refresh_interval"},
		{"bad response rows", func(c *Config) { c.API.MaxResponseRows = 0 }, "api.max_response_rows"},
		{"unordered thresholds", func(c *Config) {
			c.Engagement.Scoring.ModerateThreshold = 90
		}, "thresholds"},
		{"negative weight", func(c *Config) {
			c.Engagement.Scoring.StageWeight = -1
		}, "non-negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"OBR_SERVER__PORT", "server.port"},
		{"OBR_WAREHOUSE__QUERY_TIMEOUT", "warehouse.query_timeout"},
		{"OBR_ENGAGEMENT__SCORING__HIGH_THRESHOLD", "engagement.scoring.high_threshold"},
		{"OBR_LOGGING__LEVEL", "logging.level"},
	}

	for _, tt := range tests {
		if got := envTransformFunc(tt.in); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("OBR_SERVER__PORT", "8080")
	t.Setenv("OBR_WAREHOUSE__DATASET_ID", "analytics_987654")
	t.Setenv("OBR_WAREHOUSE__QUERY_TIMEOUT", "2m")
	t.Setenv("OBR_SERVER__CORS_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Warehouse.DatasetID != "analytics_987654" {
		t.Errorf("dataset = %q", cfg.Warehouse.DatasetID)
	}
	if cfg.Warehouse.QueryTimeout != 2*time.Minute {
		t.Errorf("query timeout = %v, want 2m", cfg.Warehouse.QueryTimeout)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example.com" {
		t.Errorf("cors origins = %v", cfg.Server.CORSOrigins)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9090
warehouse:
  project_id: demo-project
  dataset_id: analytics_111
catalog:
  refresh_interval: 10m
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Warehouse.ProjectID != "demo-project" {
		t.Errorf("project = %q", cfg.Warehouse.ProjectID)
	}
	if cfg.Catalog.RefreshInterval != 10*time.Minute {
		t.Errorf("refresh interval = %v, want 10m", cfg.Catalog.RefreshInterval)
	}
	// Untouched values keep their defaults.
	if cfg.API.MaxResponseRows != 100 {
		t.Errorf("max response rows = %d, want default 100", cfg.API.MaxResponseRows)
	}
}

func TestLoadEnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("OBR_SERVER__PORT", "7070")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d, want env override 7070", cfg.Server.Port)
	}
}
