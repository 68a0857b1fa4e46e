// Package asynchook moves hook delivery off the call path.
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{HitEvery: 100})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	m := memocache.New(memocache.Options{Hooks: hooks})
//
// Events are dropped, never queued unboundedly, when the workers fall behind.
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/memocache"
)

type Hooks struct {
	inner   memocache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex // guards closed against sends on a closed q
	closed  bool
	dropped atomic.Uint64
}

var _ memocache.Hooks = (*Hooks)(nil)

func New(inner memocache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events after Close
// are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped reports how many events were discarded.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) Hit(name, key string)  { h.try(func() { h.inner.Hit(name, key) }) }
func (h *Hooks) Miss(name, key string) { h.try(func() { h.inner.Miss(name, key) }) }
func (h *Hooks) Bypass(name, reason string) {
	h.try(func() { h.inner.Bypass(name, reason) })
}
func (h *Hooks) SelfHeal(name, key string, err error) {
	h.try(func() { h.inner.SelfHeal(name, key, err) })
}
func (h *Hooks) EncodeError(name string, err error) {
	h.try(func() { h.inner.EncodeError(name, err) })
}
func (h *Hooks) StoreError(name, op string, err error) {
	h.try(func() { h.inner.StoreError(name, op, err) })
}
func (h *Hooks) GenError(ns string, err error) { h.try(func() { h.inner.GenError(ns, err) }) }
