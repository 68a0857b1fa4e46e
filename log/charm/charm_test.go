package charm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/unkn0wn-root/memocache"
)

func TestKeyvalsSorted(t *testing.T) {
	got := keyvals(memocache.Fields{"op": "sq", "key": "k"})
	if len(got) != 4 || got[0] != "key" || got[2] != "op" {
		t.Fatalf("keyvals = %v", got)
	}
	if keyvals(nil) != nil {
		t.Fatalf("nil fields must yield nil")
	}
}

func TestWritesThroughCharm(t *testing.T) {
	var buf bytes.Buffer
	l := Logger{L: log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel, Formatter: log.LogfmtFormatter})}

	l.Info("backend registered", memocache.Fields{"defaultTTL": "2m0s"})
	out := buf.String()
	if !strings.Contains(out, "backend registered") || !strings.Contains(out, "defaultTTL=2m0s") {
		t.Fatalf("output = %q", out)
	}
}
