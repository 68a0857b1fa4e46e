// Package charm adapts a charmbracelet/log logger to memocache.Logger.
package charm

import (
	"maps"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/unkn0wn-root/memocache"
)

var _ memocache.Logger = Logger{}

type Logger struct{ L *log.Logger }

// Default wraps the charm package logger with a "memocache" prefix.
func Default() Logger { return Logger{L: log.Default().WithPrefix("memocache")} }

func (c Logger) Debug(msg string, f memocache.Fields) { c.L.Debug(msg, keyvals(f)...) }
func (c Logger) Info(msg string, f memocache.Fields)  { c.L.Info(msg, keyvals(f)...) }
func (c Logger) Warn(msg string, f memocache.Fields)  { c.L.Warn(msg, keyvals(f)...) }
func (c Logger) Error(msg string, f memocache.Fields) { c.L.Error(msg, keyvals(f)...) }

func keyvals(f memocache.Fields) []any {
	if len(f) == 0 {
		return nil
	}
	out := make([]any, 0, 2*len(f))
	for _, k := range slices.Sorted(maps.Keys(f)) {
		out = append(out, k, f[k])
	}
	return out
}
