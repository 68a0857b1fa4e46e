package prom

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/unkn0wn-root/memocache"
	"github.com/unkn0wn-root/memocache/backend/memory"
)

func TestCountsMemoizerEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := New("app", reg)

	m := memocache.New(memocache.Options{Hooks: h})
	double := memocache.Wrap(m, func(a memocache.Args) (int, error) {
		return 2 * a.Positional[0].(int), nil
	}, memocache.Config[int]{Name: "double"})

	_, _ = double(memocache.Call(1)) // not configured
	m.Register(memory.New(memory.Options{}), 0)
	defer m.Close(context.Background())
	_, _ = double(memocache.Call(1))
	_, _ = double(memocache.Call(1))
	_, _ = double(memocache.Call(1).With(memocache.SkipCacheArg, true))

	if got := testutil.ToFloat64(h.Lookups.WithLabelValues("double", "hit")); got != 1 {
		t.Fatalf("hits = %v", got)
	}
	if got := testutil.ToFloat64(h.Lookups.WithLabelValues("double", "miss")); got != 1 {
		t.Fatalf("misses = %v", got)
	}
	if got := testutil.ToFloat64(h.Bypasses.WithLabelValues("double", memocache.ReasonNotConfigured)); got != 1 {
		t.Fatalf("not_configured = %v", got)
	}
	if got := testutil.ToFloat64(h.Bypasses.WithLabelValues("double", memocache.ReasonSkipCache)); got != 1 {
		t.Fatalf("skip_cache = %v", got)
	}
}

func TestErrorCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := New("", reg)
	h.StoreError("op", "get", errors.New("x"))
	h.GenError("users", errors.New("x"))
	h.EncodeError("op", errors.New("x"))
	h.SelfHeal("op", "k", errors.New("x"))

	n, err := testutil.GatherAndCount(reg)
	if err != nil || n != 4 {
		t.Fatalf("series = %d (%v), want 4", n, err)
	}
	if got := testutil.ToFloat64(h.StoreErrs.WithLabelValues("op", "get")); got != 1 {
		t.Fatalf("store errors = %v", got)
	}
}
