// Package sloghooks reports memoizer events as slog records.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/memocache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	HitEvery  uint64
	MissEvery uint64
	// LogHits enables hit/miss records at all (debug level). Off by default.
	LogHits bool
	// Optional key redactor. Defaults to a SHA-256 prefix, since keys carry
	// rendered call arguments.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	hitCtr  atomic.Uint64
	missCtr atomic.Uint64
}

var _ memocache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n <= 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) Hit(name, key string) {
	if h.l == nil || !h.opts.LogHits || !sample(h.opts.HitEvery, &h.hitCtr) {
		return
	}
	h.l.Debug("memocache.hit", "op", name, "key", h.redact(key))
}

func (h *Hooks) Miss(name, key string) {
	if h.l == nil || !h.opts.LogHits || !sample(h.opts.MissEvery, &h.missCtr) {
		return
	}
	h.l.Debug("memocache.miss", "op", name, "key", h.redact(key))
}

func (h *Hooks) Bypass(name, reason string) {
	if h.l == nil || reason == memocache.ReasonSkipCache {
		return
	}
	h.l.Debug("memocache.bypass", "op", name, "reason", reason)
}

func (h *Hooks) SelfHeal(name, key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Info("memocache.self_heal", "op", name, "key", h.redact(key), "err", err)
}

func (h *Hooks) EncodeError(name string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("memocache.encode_error", "op", name, "err", err)
}

func (h *Hooks) StoreError(name, op string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("memocache.store_error", "op", name, "backend_op", op, "err", err)
}

func (h *Hooks) GenError(ns string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("memocache.gen_error", "namespace", ns, "err", err)
}
