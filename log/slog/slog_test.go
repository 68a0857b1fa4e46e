package slog

import (
	"bytes"
	stdslog "log/slog"
	"strings"
	"testing"

	"github.com/unkn0wn-root/memocache"
)

func TestLevelFilteringAndOrder(t *testing.T) {
	var buf bytes.Buffer
	l := Logger{L: stdslog.New(stdslog.NewTextHandler(&buf, &stdslog.HandlerOptions{Level: stdslog.LevelInfo}))}

	l.Debug("hidden", memocache.Fields{"a": 1})
	l.Warn("backend error", memocache.Fields{"op": "sq", "key": "k"})

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line leaked: %s", out)
	}
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "key=k op=sq") {
		t.Fatalf("unexpected output: %s", out)
	}
}
