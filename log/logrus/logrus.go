// Package logrus adapts a logrus entry to memocache.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/memocache"
)

var _ memocache.Logger = Logger{}

type Logger struct{ E *logrus.Entry }

// New tags every line with component=memocache.
func New(l *logrus.Logger) Logger {
	return Logger{E: l.WithField("component", "memocache")}
}

func (l Logger) Debug(msg string, f memocache.Fields) { l.with(f).Debug(msg) }
func (l Logger) Info(msg string, f memocache.Fields)  { l.with(f).Info(msg) }
func (l Logger) Warn(msg string, f memocache.Fields)  { l.with(f).Warn(msg) }
func (l Logger) Error(msg string, f memocache.Fields) { l.with(f).Error(msg) }

func (l Logger) with(f memocache.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	return l.E.WithFields(logrus.Fields(f))
}
