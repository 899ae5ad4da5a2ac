// ob-reports - Onboarding Funnel Analytics over BigQuery Event Exports
// Copyright 2026 Anshul Vish (anshulvish)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/anshulvish/ob-reports

package cache

import (
	"strings"
	"testing"
	"time"
)

func newTestCache(ttl time.Duration) *Cache {
	return New(ttl, time.Hour)
}

func TestCacheBasicOperations(t *testing.T) {
	c := newTestCache(1 * time.Minute)

	c.Set("key1", "value1")
	value, exists := c.Get("key1")
	if !exists {
		t.Error("Expected key1 to exist")
	}
	if value != "value1" {
		t.Errorf("Expected value1, got %v", value)
	}

	_, exists = c.Get("key2")
	if exists {
		t.Error("Expected key2 to not exist")
	}
}

func TestCacheExpiration(t *testing.T) {
	c := newTestCache(100 * time.Millisecond)

	c.Set("key1", "value1")

	_, exists := c.Get("key1")
	if !exists {
		t.Error("Expected key1 to exist immediately after set")
	}

	time.Sleep(150 * time.Millisecond)

	_, exists = c.Get("key1")
	if exists {
		t.Error("Expected key1 to be expired")
	}
}

func TestCacheDelete(t *testing.T) {
	c := newTestCache(1 * time.Minute)

	c.Set("key1", "value1")
	c.Delete("key1")

	if _, exists := c.Get("key1"); exists {
		t.Error("Expected key1 to be deleted")
	}
}

func TestCacheClear(t *testing.T) {
	c := newTestCache(1 * time.Minute)

	c.Set("key1", "value1")
	c.Set("key2", "value2")
	c.Set("key3", "value3")

	c.Clear()

	for _, key := range []string{"key1", "key2", "key3"} {
		if _, exists := c.Get(key); exists {
			t.Errorf("Expected %s to be cleared", key)
		}
	}
}

func TestCacheStats(t *testing.T) {
	c := newTestCache(1 * time.Minute)

	c.Set("key1", "value1")
	c.Get("key1") // hit
	c.Get("key2") // miss
	c.Get("key1") // hit

	stats := c.GetStats()

	if stats.Hits != 2 {
		t.Errorf("Expected 2 hits, got %d", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Expected 1 miss, got %d", stats.Misses)
	}

	hitRate := c.HitRate()
	expectedHitRate := 66.66666666666667 // 2/3 * 100
	if hitRate < expectedHitRate-0.01 || hitRate > expectedHitRate+0.01 {
		t.Errorf("Expected hit rate around %.2f%%, got %.2f%%", expectedHitRate, hitRate)
	}
}

func TestCacheSetWithTTL(t *testing.T) {
	c := newTestCache(1 * time.Minute)

	c.SetWithTTL("key1", "value1", 100*time.Millisecond)

	if _, exists := c.Get("key1"); !exists {
		t.Error("Expected key1 to exist")
	}

	time.Sleep(150 * time.Millisecond)

	if _, exists := c.Get("key1"); exists {
		t.Error("Expected key1 to be expired before default TTL")
	}
}

func TestCacheCleanup(t *testing.T) {
	c := newTestCache(50 * time.Millisecond)

	c.Set("key1", "value1")
	c.Set("key2", "value2")

	time.Sleep(80 * time.Millisecond)
	c.cleanup()

	stats := c.GetStats()
	if stats.TotalKeys != 0 {
		t.Errorf("Expected 0 keys after cleanup, got %d", stats.TotalKeys)
	}
	if stats.Evictions < 2 {
		t.Errorf("Expected at least 2 evictions, got %d", stats.Evictions)
	}
}

func TestGenerateKeyDeterministic(t *testing.T) {
	type params struct {
		StartDate string
		EndDate   string
		Limit     int
	}

	p := params{StartDate: "2024-01-01", EndDate: "2024-01-31", Limit: 100}

	k1 := GenerateKey("engagement_metrics", p)
	k2 := GenerateKey("engagement_metrics", p)
	if k1 != k2 {
		t.Errorf("identical params should share a key: %s vs %s", k1, k2)
	}
	if !strings.HasPrefix(k1, "engagement_metrics:") {
		t.Errorf("key should be prefixed with the method name: %s", k1)
	}

	k3 := GenerateKey("engagement_metrics", params{StartDate: "2024-01-02", EndDate: "2024-01-31", Limit: 100})
	if k1 == k3 {
		t.Error("different params should not share a key")
	}

	k4 := GenerateKey("user_sessions", p)
	if k1 == k4 {
		t.Error("different methods should not share a key")
	}
}
