// Package backendtest is a conformance suite for backend.Backend
// implementations. Each backend package runs it from its own tests.
package backendtest

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/unkn0wn-root/memocache/backend"
)

// Factory returns a fresh backend bound to namespace. Backends built by the
// same Factory within one test may share a physical keyspace; namespaces
// must keep them apart.
type Factory func(t *testing.T, namespace string) backend.Backend

type Options struct {
	TTL        time.Duration // expiry window used by the TTL tests; 0 => 100ms
	SkipExpiry bool          // skip tests that sleep past a TTL
}

// Run executes the suite.
func Run(t *testing.T, newBackend Factory, opts Options) {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 100 * time.Millisecond
	}

	t.Run("RoundTrip", func(t *testing.T) {
		b := open(t, newBackend, "rt")
		b.Set("foo", []byte("bar"), 0)
		mustGet(t, b, "foo", []byte("bar"))

		ctx := context.Background()
		if err := b.SetContext(ctx, "baz", []byte("qux"), time.Minute); err != nil {
			t.Fatalf("SetContext: %v", err)
		}
		got, ok, err := b.GetContext(ctx, "baz")
		if err != nil || !ok || !bytes.Equal(got, []byte("qux")) {
			t.Fatalf("GetContext: got=%q ok=%v err=%v", got, ok, err)
		}
	})

	t.Run("MissIsNotAnError", func(t *testing.T) {
		b := open(t, newBackend, "miss")
		if v, ok := b.Get("nope"); ok {
			t.Fatalf("expected miss, got %q", v)
		}
		v, ok, err := b.GetContext(context.Background(), "nope")
		if err != nil || ok {
			t.Fatalf("expected miss, got %q ok=%v err=%v", v, ok, err)
		}
	})

	t.Run("OverwriteUnconditional", func(t *testing.T) {
		b := open(t, newBackend, "ow")
		b.Set("k", []byte("v1"), time.Minute)
		b.Set("k", []byte("v2"), 0)
		mustGet(t, b, "k", []byte("v2"))
	})

	t.Run("ValuesAreCopied", func(t *testing.T) {
		b := open(t, newBackend, "copy")
		in := []byte("hello")
		b.Set("k", in, 0)
		in[0] = 'J'
		got, ok := b.Get("k")
		if !ok || string(got) != "hello" {
			t.Fatalf("after mutating the Set input: got %q ok=%v", got, ok)
		}
		got[0] = 'J'
		mustGet(t, b, "k", []byte("hello"))
	})

	t.Run("EmptyValueIsHit", func(t *testing.T) {
		b := open(t, newBackend, "empty")
		b.Set("k", []byte{}, 0)
		if v, ok := b.Get("k"); !ok || len(v) != 0 {
			t.Fatalf("expected empty hit, got %q ok=%v", v, ok)
		}
	})

	t.Run("Has", func(t *testing.T) {
		b := open(t, newBackend, "has")
		b.Set("foo", []byte("bar"), 0)
		if !b.Has("foo") {
			t.Fatalf("Has: expected true")
		}
		b.Delete("foo")
		if b.Has("foo") {
			t.Fatalf("Has after Delete: expected false")
		}
		ok, err := b.HasContext(context.Background(), "foo")
		if err != nil || ok {
			t.Fatalf("HasContext after Delete: ok=%v err=%v", ok, err)
		}
	})

	t.Run("DeleteIdempotent", func(t *testing.T) {
		b := open(t, newBackend, "del")
		b.Set("keep", []byte("1"), 0)
		b.Delete("absent")
		if err := b.DeleteContext(context.Background(), "absent"); err != nil {
			t.Fatalf("DeleteContext on absent key: %v", err)
		}
		mustGet(t, b, "keep", []byte("1"))
	})

	t.Run("NamespaceIsolation", func(t *testing.T) {
		a := open(t, newBackend, "ns-a")
		b := open(t, newBackend, "ns-b")
		a.Set("same", []byte("from-a"), 0)
		b.Set("same", []byte("from-b"), 0)
		mustGet(t, a, "same", []byte("from-a"))
		mustGet(t, b, "same", []byte("from-b"))
	})

	t.Run("ClearScope", func(t *testing.T) {
		a := open(t, newBackend, "clear-a")
		b := open(t, newBackend, "clear-b")
		a.Set("foo", []byte("1"), 0)
		a.Set("baz", []byte("2"), 0)
		b.Set("foo", []byte("3"), 0)

		a.Clear()
		if _, ok := a.Get("foo"); ok {
			t.Fatalf("foo survived Clear")
		}
		if _, ok := a.Get("baz"); ok {
			t.Fatalf("baz survived Clear")
		}
		mustGet(t, b, "foo", []byte("3"))

		if err := b.ClearContext(context.Background()); err != nil {
			t.Fatalf("ClearContext: %v", err)
		}
		if _, ok := b.Get("foo"); ok {
			t.Fatalf("foo survived ClearContext")
		}
	})

	if opts.SkipExpiry {
		return
	}

	t.Run("Expiry", func(t *testing.T) {
		b := open(t, newBackend, "exp")
		b.Set("short", []byte("v"), ttl)
		b.Set("forever", []byte("v"), 0)
		mustGet(t, b, "short", []byte("v"))

		time.Sleep(ttl + ttl/2 + 50*time.Millisecond)

		if _, ok := b.Get("short"); ok {
			t.Fatalf("expected short to expire after %v", ttl)
		}
		if b.Has("short") {
			t.Fatalf("Has reported an expired key")
		}
		mustGet(t, b, "forever", []byte("v"))
	})
}

func open(t *testing.T, newBackend Factory, ns string) backend.Backend {
	t.Helper()
	b := newBackend(t, ns)
	t.Cleanup(func() {
		b.Clear()
		_ = b.Close(context.Background())
	})
	return b
}

func mustGet(t *testing.T, b backend.Store, key string, want []byte) {
	t.Helper()
	got, ok := b.Get(key)
	if !ok {
		t.Fatalf("Get(%q): miss, want %q", key, want)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("Get(%q) = %q, want %q", key, got, want)
	}
}
