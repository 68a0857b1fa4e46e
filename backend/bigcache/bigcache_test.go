package bigcache

import (
	"context"
	"sync"
	"testing"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/memocache/backend"
	"github.com/unkn0wn-root/memocache/backend/backendtest"
)

func sharedCache(t *testing.T) *bc.BigCache {
	t.Helper()
	c, err := bc.New(context.Background(), bc.DefaultConfig(time.Minute))
	if err != nil {
		t.Fatalf("bigcache.New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestConformanceSharedCache(t *testing.T) {
	c := sharedCache(t)
	backendtest.Run(t, func(t *testing.T, ns string) backend.Backend {
		return NewWithCache(c, ns, nil)
	}, backendtest.Options{})
}

func TestOwnedCacheClosesOnClose(t *testing.T) {
	b, err := New(Config{Namespace: "owned", LifeWindow: time.Minute})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b.Set("k", []byte("v"), 0)
	if !b.Has("k") {
		t.Fatalf("expected hit")
	}
	if err := b.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestCorruptEntrySelfHeals(t *testing.T) {
	c := sharedCache(t)
	var mu sync.Mutex
	var ops []string
	b := NewWithCache(c, "ns", func(op, _ string, _ error) {
		mu.Lock()
		ops = append(ops, op)
		mu.Unlock()
	})

	k := backend.Key("ns", "bad")
	if err := c.Set(k, []byte("not-wire-format")); err != nil {
		t.Fatalf("inject: %v", err)
	}
	if _, ok := b.Get("bad"); ok {
		t.Fatalf("corrupt entry must read as a miss")
	}
	if _, err := c.Get(k); err == nil {
		t.Fatalf("corrupt entry was not deleted")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(ops) != 1 || ops[0] != "get" {
		t.Fatalf("reported ops = %v", ops)
	}
}

func TestExpiryUsesFramedInstant(t *testing.T) {
	c := sharedCache(t)
	b := NewWithCache(c, "ns", nil)
	now := time.Unix(1_700_000_000, 0)
	b.now = func() time.Time { return now }

	b.Set("k", []byte("v"), time.Second)
	now = now.Add(time.Second)
	if _, ok := b.Get("k"); !ok {
		t.Fatalf("entry must be live at its expiry instant")
	}
	now = now.Add(time.Millisecond)
	if _, ok := b.Get("k"); ok {
		t.Fatalf("entry must be stale after its expiry instant")
	}
	if _, err := c.Get(backend.Key("ns", "k")); err == nil {
		t.Fatalf("stale entry should be deleted on read")
	}
}
