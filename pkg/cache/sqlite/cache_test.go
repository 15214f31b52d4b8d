package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "cache_test.db")
	c, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestPutAndGet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if err := c.Put(ctx, "artist-style:nirvana", []byte(`{"genre":"grunge"}`)); err != nil {
		t.Fatal(err)
	}

	data, ok, err := c.Get(ctx, "artist-style:nirvana")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if string(data) != `{"genre":"grunge"}` {
		t.Errorf("unexpected value: %s", data)
	}

	_, ok, err = c.Get(ctx, "artist-style:hole")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected cache miss for unknown key")
	}
}

func TestPutReplaces(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	_ = c.Put(ctx, "k", []byte("one"))
	_ = c.Put(ctx, "k", []byte("two"))

	data, _, _ := c.Get(ctx, "k")
	if string(data) != "two" {
		t.Errorf("expected replaced value, got %s", data)
	}
	stats, _ := c.Stats()
	if stats.Entries != 1 {
		t.Errorf("expected 1 entry, got %d", stats.Entries)
	}
}

func TestSurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	c, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Put(ctx, "k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	_ = c.Close()

	c2, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer c2.Close()

	data, ok, err := c2.Get(ctx, "k")
	if err != nil || !ok || string(data) != "v" {
		t.Fatalf("expected persisted value, got %q ok=%v err=%v", data, ok, err)
	}
}

func TestStats(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	_ = c.Put(ctx, "h1", []byte("data"))
	_, _, _ = c.Get(ctx, "h1") // hit
	_, _, _ = c.Get(ctx, "h2") // miss

	stats, err := c.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Entries != 1 {
		t.Errorf("expected 1 entry, got %d", stats.Entries)
	}
	if stats.Hits != 1 {
		t.Errorf("expected 1 hit, got %d", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("expected 1 miss, got %d", stats.Misses)
	}
}

func TestDeleteAndClear(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	_ = c.Put(ctx, "h1", []byte("data"))
	_ = c.Put(ctx, "h2", []byte("data"))

	if err := c.Delete(ctx, "h1"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Get(ctx, "h1"); ok {
		t.Error("expected h1 deleted")
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	stats, _ := c.Stats()
	if stats.Entries != 0 {
		t.Errorf("expected 0 entries after clear, got %d", stats.Entries)
	}
}

func TestPrune(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }
	_ = c.Put(ctx, "old", []byte("x"))

	c.now = func() time.Time { return base.Add(48 * time.Hour) }
	_ = c.Put(ctx, "new", []byte("y"))

	n, err := c.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 pruned row, got %d", n)
	}
	if _, ok, _ := c.Get(ctx, "old"); ok {
		t.Error("expected old entry pruned")
	}
	if _, ok, _ := c.Get(ctx, "new"); !ok {
		t.Error("expected new entry kept")
	}
}

func TestOpenSetsSharingPragmas(t *testing.T) {
	c := newTestCache(t)

	var timeout int
	if err := c.db.QueryRow("PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatal(err)
	}
	if timeout != 5000 {
		t.Errorf("busy_timeout = %d, want 5000", timeout)
	}
	var mode string
	if err := c.db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatal(err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}
