// ob-reports - Onboarding Funnel Analytics over BigQuery Event Exports
// Copyright 2026 Anshul Vish (anshulvish)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/anshulvish/ob-reports

// Package config loads layered configuration for ob-reports using Koanf v2.
//
// Precedence, lowest to highest:
//  1. Built-in defaults
//  2. Optional YAML config file (CONFIG_PATH or the default search paths)
//  3. Environment variables with the OBR_ prefix, using "__" as the
//     nesting separator (OBR_WAREHOUSE__QUERY_TIMEOUT -> warehouse.query_timeout)
package config

import (
	"time"

	"github.com/anshulvish/ob-reports/internal/funnel"
)

// Config is the root configuration for the service.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Warehouse  WarehouseConfig  `koanf:"warehouse"`
	Catalog    CatalogConfig    `koanf:"catalog"`
	Cache      CacheConfig      `koanf:"cache"`
	Engagement EngagementConfig `koanf:"engagement"`
	API        APIConfig        `koanf:"api"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_requests"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// WarehouseConfig holds settings for the analytics warehouse holding the
// GA4-style event export tables.
//
// ProjectID, DatasetID and Location describe the export dataset. Path points
// the embedded DuckDB engine at a local database that mirrors the export;
// when Path is empty the service starts in degraded mode and data endpoints
// return a "not available" error instead of failing startup.
type WarehouseConfig struct {
	ProjectID string `koanf:"project_id"`
	DatasetID string `koanf:"dataset_id"`
	Location  string `koanf:"location"`
	Path      string `koanf:"path"`

	QueryTimeout time.Duration `koanf:"query_timeout"`
	MaxResults   int           `koanf:"max_results"`

	// Client-side throttling and circuit breaking.
	QueriesPerSecond float64       `koanf:"queries_per_second"`
	QueryBurst       int           `koanf:"query_burst"`
	BreakerThreshold uint32        `koanf:"breaker_threshold"`
	BreakerCooldown  time.Duration `koanf:"breaker_cooldown"`
}

// Configured reports whether enough warehouse settings are present to
// open a client. The service still starts when this is false.
func (w WarehouseConfig) Configured() bool {
	return w.Path != "" && w.DatasetID != ""
}

// CatalogConfig holds table-catalog refresh settings.
type CatalogConfig struct {
	// RefreshInterval gates how often a catalog refresh may hit the
	// warehouse metadata API. Forced refreshes bypass the gate.
	RefreshInterval time.Duration `koanf:"refresh_interval"`

	// ListTimeout bounds a single table-listing call.
	ListTimeout time.Duration `koanf:"list_timeout"`
}

// CacheConfig holds response-cache TTLs per endpoint family.
type CacheConfig struct {
	MetricsTTL      time.Duration `koanf:"metrics_ttl"`
	SessionsTTL     time.Duration `koanf:"sessions_ttl"`
	HealthTTL       time.Duration `koanf:"health_ttl"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
}

// EngagementConfig wraps the funnel scoring weights and thresholds.
type EngagementConfig struct {
	Scoring funnel.ScoringConfig `koanf:"scoring"`
}

// APIConfig holds request/response shaping limits.
type APIConfig struct {
	// MaxResponseRows caps rows returned by the raw query endpoint.
	MaxResponseRows int `koanf:"max_response_rows"`

	// DefaultQueryLimit is the per-table row limit used when a raw query
	// request does not set one.
	DefaultQueryLimit int `koanf:"default_query_limit"`

	// SessionLimit caps sessions returned by the user-sessions endpoint.
	SessionLimit int `koanf:"session_limit"`

	// JourneyLookbackDays bounds the table range scanned when fetching a
	// single user's journey without an explicit date range.
	JourneyLookbackDays int `koanf:"journey_lookback_days"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Default returns a Config with all default values applied, without reading
// the config file or environment.
func Default() *Config {
	return defaultConfig()
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            5227,
			Timeout:         30 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: 1 * time.Minute,
		},
		Warehouse: WarehouseConfig{
			ProjectID:        "",
			DatasetID:        "",
			Location:         "US",
			Path:             "",
			QueryTimeout:     5 * time.Minute,
			MaxResults:       100000,
			QueriesPerSecond: 8,
			QueryBurst:       4,
			BreakerThreshold: 5,
			BreakerCooldown:  30 * time.Second,
		},
		Catalog: CatalogConfig{
			RefreshInterval: 30 * time.Minute,
			ListTimeout:     1 * time.Minute,
		},
		Cache: CacheConfig{
			MetricsTTL:      15 * time.Minute,
			SessionsTTL:     10 * time.Minute,
			HealthTTL:       2 * time.Minute,
			CleanupInterval: 5 * time.Minute,
		},
		Engagement: EngagementConfig{
			Scoring: funnel.DefaultScoringConfig(),
		},
		API: APIConfig{
			MaxResponseRows:     100,
			DefaultQueryLimit:   1000,
			SessionLimit:        100,
			JourneyLookbackDays: 90,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}
