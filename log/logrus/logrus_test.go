package logrus

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/unkn0wn-root/memocache"
)

func TestFieldsAndComponent(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	l := New(base)

	l.Info("backend registered", memocache.Fields{"defaultTTL": "2m0s"})
	l.Debug("no fields", nil)

	if len(hook.Entries) != 2 {
		t.Fatalf("entries = %d", len(hook.Entries))
	}
	e := hook.Entries[0]
	if e.Level != logrus.InfoLevel || e.Data["component"] != "memocache" || e.Data["defaultTTL"] != "2m0s" {
		t.Fatalf("entry = %+v", e)
	}
	if hook.LastEntry().Message != "no fields" {
		t.Fatalf("last = %q", hook.LastEntry().Message)
	}
}
