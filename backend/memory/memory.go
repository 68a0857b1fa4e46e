// Package memory is the in-process backend: a namespaced entry store with
// lazy expiration, an opportunistic sweep on every write, an optional
// background sweeper and least-recently-used eviction under a size bound.
package memory

import (
	"bytes"
	"container/list"
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/unkn0wn-root/memocache/backend"
)

// DefaultSweepInterval is the background sweeper period.
const DefaultSweepInterval = 60 * time.Second

// EvictReason tells an OnEvict observer why an entry left the store.
type EvictReason uint8

const (
	// Expired entries were found stale on access or by a sweep.
	Expired EvictReason = iota + 1
	// Capacity entries were trimmed from the least-recently-used end.
	Capacity
)

func (r EvictReason) String() string {
	switch r {
	case Expired:
		return "expired"
	case Capacity:
		return "capacity"
	default:
		return "unknown"
	}
}

// Options configure a Store. The zero value is usable.
type Options struct {
	Namespace     string        // "" => backend.DefaultNamespace
	MaxSize       int           // <= 0 => unbounded
	SweepInterval time.Duration // <= 0 => DefaultSweepInterval
	// Clock returns the current instant. Readings from time.Now carry the
	// monotonic clock, so expiry is immune to wall-clock adjustments.
	Clock func() time.Time
	// OnEvict is called with the storage key while the store lock is held.
	// It must not call back into the store.
	OnEvict func(storageKey string, reason EvictReason)
}

type entry struct {
	key       string
	value     []byte
	expiresAt time.Time // zero => never expires
}

// Store is safe for concurrent use. Blocking and context-aware calls share
// one lock, so their read-modify-write sections never interleave.
type Store struct {
	ns            string
	prefix        string
	maxSize       int
	sweepInterval time.Duration
	now           func() time.Time
	onEvict       func(string, EvictReason)

	// sem is the single lock (weight 1) guarding items and order.
	sem   *semaphore.Weighted
	items map[string]*list.Element
	order *list.List // front = least recently used, back = most recently used

	// sweeper lifecycle
	life   sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	closed bool
}

var _ backend.Backend = (*Store)(nil)

func New(opts Options) *Store {
	ns := coalesce(opts.Namespace, backend.DefaultNamespace)
	s := &Store{
		ns:            ns,
		prefix:        backend.Prefix(ns),
		maxSize:       opts.MaxSize,
		sweepInterval: opts.SweepInterval,
		now:           opts.Clock,
		onEvict:       opts.OnEvict,
		sem:           semaphore.NewWeighted(1),
		items:         make(map[string]*list.Element),
		order:         list.New(),
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.sweepInterval <= 0 {
		s.sweepInterval = DefaultSweepInterval
	}
	return s
}

// Namespace returns the namespace this store prefixes keys with.
func (s *Store) Namespace() string { return s.ns }

func (s *Store) lock() {
	// Acquire with a background context only fails if the semaphore is
	// misused (n > size), which cannot happen with n=1.
	_ = s.sem.Acquire(context.Background(), 1)
}

func (s *Store) lockContext(ctx context.Context) error { return s.sem.Acquire(ctx, 1) }

func (s *Store) unlock() { s.sem.Release(1) }

func (s *Store) expireAt(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(ttl)
}

// ---- blocking family ----

func (s *Store) Get(key string) ([]byte, bool) {
	k := backend.Key(s.ns, key)
	s.lock()
	defer s.unlock()
	return s.get(k)
}

func (s *Store) Set(key string, value []byte, ttl time.Duration) {
	k := backend.Key(s.ns, key)
	exp := s.expireAt(ttl)
	s.lock()
	defer s.unlock()
	s.set(k, value, exp)
}

func (s *Store) Delete(key string) {
	k := backend.Key(s.ns, key)
	s.lock()
	defer s.unlock()
	s.remove(k)
}

func (s *Store) Has(key string) bool {
	k := backend.Key(s.ns, key)
	s.lock()
	defer s.unlock()
	_, ok := s.get(k)
	return ok
}

func (s *Store) Clear() {
	s.lock()
	defer s.unlock()
	s.clear()
}

// ---- context family ----

func (s *Store) GetContext(ctx context.Context, key string) ([]byte, bool, error) {
	k := backend.Key(s.ns, key)
	if err := s.lockContext(ctx); err != nil {
		return nil, false, err
	}
	defer s.unlock()
	v, ok := s.get(k)
	return v, ok, nil
}

// SetContext behaves like Set and also makes sure the background sweeper is
// running (see Start).
func (s *Store) SetContext(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	k := backend.Key(s.ns, key)
	exp := s.expireAt(ttl)
	if err := s.lockContext(ctx); err != nil {
		return err
	}
	s.set(k, value, exp)
	s.unlock()
	s.Start()
	return nil
}

func (s *Store) DeleteContext(ctx context.Context, key string) error {
	k := backend.Key(s.ns, key)
	if err := s.lockContext(ctx); err != nil {
		return err
	}
	defer s.unlock()
	s.remove(k)
	return nil
}

func (s *Store) HasContext(ctx context.Context, key string) (bool, error) {
	k := backend.Key(s.ns, key)
	if err := s.lockContext(ctx); err != nil {
		return false, err
	}
	defer s.unlock()
	_, ok := s.get(k)
	return ok, nil
}

func (s *Store) ClearContext(ctx context.Context) error {
	if err := s.lockContext(ctx); err != nil {
		return err
	}
	defer s.unlock()
	s.clear()
	return nil
}

// ---- maintenance ----

// Len returns the number of physically stored entries, stale ones included.
func (s *Store) Len() int {
	s.lock()
	defer s.unlock()
	return len(s.items)
}

// Sweep removes every stale entry and returns how many were removed.
func (s *Store) Sweep() int {
	s.lock()
	defer s.unlock()
	return s.sweep(s.now())
}

// ---- unlocked internals; callers hold the lock ----

func (s *Store) get(k string) ([]byte, bool) {
	el, ok := s.items[k]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry)
	if stale(e, s.now()) {
		s.drop(el, Expired)
		return nil, false
	}
	s.order.MoveToBack(el)
	return bytes.Clone(e.value), true
}

// set keeps its own copy of v.
func (s *Store) set(k string, v []byte, exp time.Time) {
	v = bytes.Clone(v)
	if el, ok := s.items[k]; ok {
		e := el.Value.(*entry)
		e.value = v
		e.expiresAt = exp
		s.order.MoveToBack(el)
	} else {
		s.items[k] = s.order.PushBack(&entry{key: k, value: v, expiresAt: exp})
	}
	// capacity first, regardless of staleness; then the opportunistic sweep
	if s.maxSize > 0 {
		for len(s.items) > s.maxSize {
			s.drop(s.order.Front(), Capacity)
		}
	}
	s.sweep(s.now())
}

func (s *Store) remove(k string) {
	if el, ok := s.items[k]; ok {
		s.order.Remove(el)
		delete(s.items, k)
	}
}

func (s *Store) clear() {
	for el := s.order.Front(); el != nil; {
		next := el.Next()
		if e := el.Value.(*entry); strings.HasPrefix(e.key, s.prefix) {
			s.order.Remove(el)
			delete(s.items, e.key)
		}
		el = next
	}
}

func (s *Store) sweep(now time.Time) int {
	removed := 0
	for el := s.order.Front(); el != nil; {
		next := el.Next()
		if stale(el.Value.(*entry), now) {
			s.drop(el, Expired)
			removed++
		}
		el = next
	}
	return removed
}

func (s *Store) drop(el *list.Element, reason EvictReason) {
	e := s.order.Remove(el).(*entry)
	delete(s.items, e.key)
	if s.onEvict != nil {
		s.onEvict(e.key, reason)
	}
}

func stale(e *entry, now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
