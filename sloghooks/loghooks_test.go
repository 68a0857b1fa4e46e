package sloghooks

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/unkn0wn-root/memocache"
)

func newBuf() (*bytes.Buffer, *slog.Logger) {
	var buf bytes.Buffer
	return &buf, slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestKeysAreRedacted(t *testing.T) {
	buf, l := newBuf()
	h := New(l, Options{})
	h.SelfHeal("sq", `sq:["secret"]:{}`, errors.New("bad json"))

	out := buf.String()
	if strings.Contains(out, "secret") {
		t.Fatalf("raw key leaked: %s", out)
	}
	if !strings.Contains(out, "memocache.self_heal") || !strings.Contains(out, "op=sq") {
		t.Fatalf("output = %s", out)
	}
}

func TestHitsOffByDefaultAndSampled(t *testing.T) {
	buf, l := newBuf()
	New(l, Options{}).Hit("op", "k")
	if buf.Len() != 0 {
		t.Fatalf("hit logged without LogHits: %s", buf.String())
	}

	h := New(l, Options{LogHits: true, HitEvery: 3})
	for i := 0; i < 9; i++ {
		h.Hit("op", "k")
	}
	if n := strings.Count(buf.String(), "memocache.hit"); n != 3 {
		t.Fatalf("sampled hits = %d, want 3", n)
	}
}

func TestSkipCacheBypassIsQuiet(t *testing.T) {
	buf, l := newBuf()
	h := New(l, Options{})
	h.Bypass("op", memocache.ReasonSkipCache)
	h.Bypass("op", memocache.ReasonNotConfigured)
	if n := strings.Count(buf.String(), "memocache.bypass"); n != 1 {
		t.Fatalf("bypass records = %d, want 1", n)
	}
}

func TestNilLoggerIsNoop(t *testing.T) {
	h := New(nil, Options{LogHits: true})
	h.Hit("op", "k")
	h.GenError("ns", errors.New("x"))
}
