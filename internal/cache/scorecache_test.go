package cache_test

import (
	"path/filepath"
	"testing"

	"github.com/memgate/engine/internal/cache"
)

func newTestScoreCache(t *testing.T) *cache.ScoreCache {
	t.Helper()
	dir := t.TempDir()
	c, err := cache.NewScoreCache(filepath.Join(dir, "scores.db"), 100)
	if err != nil {
		t.Fatalf("NewScoreCache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestScoreCacheMiss(t *testing.T) {
	c := newTestScoreCache(t)
	_, ok, err := c.Get(cache.ContentHash("hello"), "Task.Time")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Errorf("expected cache miss on empty cache")
	}
}

func TestScoreCachePutGet(t *testing.T) {
	c := newTestScoreCache(t)
	hash := cache.ContentHash("let's meet tomorrow")

	if err := c.Put(hash, "Task.Time", 0.87); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := c.Get(hash, "Task.Time")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if got != 0.87 {
		t.Errorf("Get = %v, want 0.87", got)
	}
}

func TestScoreCacheOverwrite(t *testing.T) {
	c := newTestScoreCache(t)
	hash := cache.ContentHash("hi there")

	if err := c.Put(hash, "Conversational.Phatic", 0.5); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := c.Put(hash, "Conversational.Phatic", 0.9); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}

	got, ok, err := c.Get(hash, "Conversational.Phatic")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || got != 0.9 {
		t.Errorf("Get after overwrite = (%v, %v), want (0.9, true)", got, ok)
	}
}

func TestScoreCacheIsolatedByLabel(t *testing.T) {
	c := newTestScoreCache(t)
	hash := cache.ContentHash("same text, two labels")

	if err := c.Put(hash, "Task.Time", 0.2); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := c.Put(hash, "Conversational.Phatic", 0.8); err != nil {
		t.Fatalf("Put: %v", err)
	}

	time_, _, _ := c.Get(hash, "Task.Time")
	phatic, _, _ := c.Get(hash, "Conversational.Phatic")
	if time_ != 0.2 || phatic != 0.8 {
		t.Errorf("cross-label contamination: Task.Time=%v Conversational.Phatic=%v", time_, phatic)
	}
}

func TestScoreCacheStatsAndClear(t *testing.T) {
	c := newTestScoreCache(t)
	for i := 0; i < 5; i++ {
		hash := cache.ContentHash(string(rune('a' + i)))
		if err := c.Put(hash, "Task.Time", float64(i)/10); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	stats, err := c.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Entries != 5 {
		t.Errorf("Entries = %d, want 5", stats.Entries)
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	stats, err = c.Stats()
	if err != nil {
		t.Fatalf("Stats after Clear: %v", err)
	}
	if stats.Entries != 0 {
		t.Errorf("Entries after Clear = %d, want 0", stats.Entries)
	}
}
