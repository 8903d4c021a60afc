package services

import (
	"context"
	"testing"
	"time"

	"github.com/ethosradar/backend/internal/config"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func exerciseCache(t *testing.T, c Cache, clk *clock) {
	ctx := context.Background()

	if _, ok, err := c.Get(ctx, "r4r:profileId:1"); ok || err != nil {
		t.Fatalf("empty cache Get = %v, %v", ok, err)
	}

	if err := c.Set(ctx, "r4r:profileId:1", []byte(`{"r4rScore":52.5}`), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := c.Set(ctx, "r4r:profileId:2", []byte(`{}`), time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, ok, err := c.Get(ctx, "r4r:profileId:1")
	if err != nil || !ok || string(got) != `{"r4rScore":52.5}` {
		t.Fatalf("Get() = %s, %v, %v", got, ok, err)
	}

	// overwrite
	if err := c.Set(ctx, "r4r:profileId:1", []byte(`{"r4rScore":60}`), time.Minute); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}
	got, _, _ = c.Get(ctx, "r4r:profileId:1")
	if string(got) != `{"r4rScore":60}` {
		t.Errorf("overwrite not applied, got %s", got)
	}

	clk.advance(2 * time.Minute)
	if _, ok, _ := c.Get(ctx, "r4r:profileId:1"); ok {
		t.Error("expired entry should not be returned")
	}
	n, err := c.PurgeExpired(ctx)
	if err != nil || n != 1 {
		t.Errorf("PurgeExpired() = %d, %v; expected 1", n, err)
	}

	if err := c.Delete(ctx, "r4r:profileId:2", "missing"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok, _ := c.Get(ctx, "r4r:profileId:2"); ok {
		t.Error("deleted entry should be gone")
	}

	c.Set(ctx, "a", []byte("1"), time.Hour)
	c.Set(ctx, "b", []byte("2"), time.Hour)
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, ok, _ := c.Get(ctx, "a"); ok {
		t.Error("Clear should remove everything")
	}
}

func TestMemoryCache(t *testing.T) {
	clk := &clock{t: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	c := NewMemoryCache()
	c.now = clk.now
	exerciseCache(t, c, clk)
}

func TestDBCache(t *testing.T) {
	clk := &clock{t: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	c := NewDBCache(newTestDB(t))
	c.now = clk.now
	exerciseCache(t, c, clk)
}

func TestCacheJSONHelpers(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	type payload struct {
		Score float64 `json:"score"`
	}
	setJSON(ctx, c, "k", payload{Score: 12.5}, time.Minute)

	var out payload
	if !getJSON(ctx, c, "k", &out) || out.Score != 12.5 {
		t.Errorf("getJSON = %+v", out)
	}

	c.Set(ctx, "bad", []byte("{not json"), time.Minute)
	if getJSON(ctx, c, "bad", &out) {
		t.Error("undecodable entry should miss")
	}
	if c.Len() != 1 {
		t.Errorf("undecodable entry should be dropped, %d entries left", c.Len())
	}
}

func TestNewCache_Drivers(t *testing.T) {
	cfg := config.DefaultConfig()

	if c := NewCache(cfg, nil); c.Name() != "memory" {
		t.Errorf("default driver = %s, expected memory", c.Name())
	}

	cfg.Cache.Driver = "database"
	if c := NewCache(cfg, newTestDB(t)); c.Name() != "database" {
		t.Errorf("database driver = %s", c.Name())
	}
	if c := NewCache(cfg, nil); c.Name() != "memory" {
		t.Errorf("database driver without db should fall back, got %s", c.Name())
	}

	cfg.Cache.Driver = "redis"
	cfg.Redis.Addr = "127.0.0.1:1"
	if c := NewCache(cfg, nil); c.Name() != "memory" {
		t.Errorf("unreachable redis should fall back, got %s", c.Name())
	}
}
