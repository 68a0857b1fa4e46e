package memocache

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/memocache/backend"
	"github.com/unkn0wn-root/memocache/codec"
	"github.com/unkn0wn-root/memocache/genstore"
)

// registration is swapped as a whole so backend and default TTL always
// change together.
type registration struct {
	b   backend.Backend
	ttl time.Duration
}

// Memoizer holds the backend that wrapped operations read from and write to.
// With no backend registered every wrapped call runs uncached.
type Memoizer struct {
	reg   atomic.Pointer[registration]
	log   Logger
	hooks Hooks
	gens  genstore.GenStore
}

// Register installs b and the default TTL for wrapped operations that set
// none, replacing any previous registration. defaultTTL <= 0 stores without
// expiry. The previous backend is not closed.
func (m *Memoizer) Register(b backend.Backend, defaultTTL time.Duration) {
	if b == nil {
		m.Unregister()
		return
	}
	m.reg.Store(&registration{b: b, ttl: defaultTTL})
	m.log.Info("backend registered", Fields{"defaultTTL": defaultTTL})
}

// Unregister removes the backend; wrapped calls run uncached afterwards.
func (m *Memoizer) Unregister() { m.reg.Store(nil) }

// Backend returns the registered backend, for direct use next to wrapped calls.
func (m *Memoizer) Backend() (backend.Backend, bool) {
	r := m.reg.Load()
	if r == nil {
		return nil, false
	}
	return r.b, true
}

// Close unregisters and closes the backend and the generation store.
func (m *Memoizer) Close(ctx context.Context) error {
	var errs []error
	if m.gens != nil {
		if err := m.gens.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if r := m.reg.Swap(nil); r != nil {
		if err := r.b.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Forget deletes the entry a wrapped operation stored under key in
// namespace. key is the derived key: DefaultKey or the KeyBuilder result,
// after ShortKey when MaxKeyLen is set.
func (m *Memoizer) Forget(ctx context.Context, namespace, key string) error {
	r := m.reg.Load()
	if r == nil {
		return nil
	}
	k, err := m.storageKey(ctx, namespace, key)
	if err != nil {
		return err
	}
	return r.b.DeleteContext(ctx, k)
}

// InvalidateNamespace makes every entry stored under namespace unreachable
// by bumping its generation. Old entries stay in the backend until they
// expire or get evicted.
func (m *Memoizer) InvalidateNamespace(ctx context.Context, namespace string) error {
	if m.gens == nil {
		return ErrNoGenerations
	}
	g, err := m.gens.Bump(ctx, namespace)
	if err != nil {
		m.hooks.GenError(namespace, err)
		m.log.Error("generation bump error", Fields{"namespace": namespace, "err": err})
		return err
	}
	m.log.Debug("namespace invalidated", Fields{"namespace": namespace, "gen": g})
	return nil
}

func (m *Memoizer) storageKey(ctx context.Context, namespace, key string) (string, error) {
	if namespace == "" {
		return key, nil
	}
	if m.gens == nil {
		return namespace + ":" + key, nil
	}
	g, err := m.gens.Snapshot(ctx, namespace)
	if err != nil {
		m.hooks.GenError(namespace, err)
		m.log.Warn("generation snapshot error", Fields{"namespace": namespace, "err": err})
		return "", err
	}
	return namespace + ":g" + strconv.FormatUint(g, 10) + ":" + key, nil
}

// Wrap memoizes a blocking operation through the blocking backend methods.
func Wrap[V any](m *Memoizer, fn Func[V], cfg Config[V]) Func[V] {
	if fn == nil {
		return func(Args) (V, error) {
			var zero V
			return zero, ErrNilFunc
		}
	}
	w := newWrapper(m, cfg, funcName(fn))
	return func(args Args) (V, error) {
		return w.call(context.Background(), args, blockingFamily, fn)
	}
}

// WrapContext memoizes a context-aware operation through the context-aware
// backend methods.
func WrapContext[V any](m *Memoizer, fn ContextFunc[V], cfg Config[V]) ContextFunc[V] {
	if fn == nil {
		return func(context.Context, Args) (V, error) {
			var zero V
			return zero, ErrNilFunc
		}
	}
	w := newWrapper(m, cfg, funcName(fn))
	return func(ctx context.Context, args Args) (V, error) {
		return w.call(ctx, args, contextFamily, func(a Args) (V, error) { return fn(ctx, a) })
	}
}

type wrapper[V any] struct {
	m         *Memoizer
	name      string
	ttl       time.Duration
	keyOf     KeyBuilder
	ns        string
	codec     codec.Codec[V]
	maxKeyLen int
}

func newWrapper[V any](m *Memoizer, cfg Config[V], fallbackName string) *wrapper[V] {
	w := &wrapper[V]{
		m:         m,
		name:      coalesce(cfg.Name, fallbackName),
		ttl:       cfg.TTL,
		keyOf:     cfg.KeyBuilder,
		ns:        cfg.Namespace,
		codec:     cfg.Codec,
		maxKeyLen: cfg.MaxKeyLen,
	}
	if w.codec == nil {
		w.codec = codec.JSON[V]{}
	}
	if w.keyOf == nil {
		w.keyOf = func(a Args) (string, error) { return DefaultKey(w.name, a), nil }
	}
	return w
}

func (w *wrapper[V]) call(ctx context.Context, args Args, family func(context.Context, backend.Backend) store, run func(Args) (V, error)) (V, error) {
	var zero V
	args, skip := stripSkip(args)

	r := w.m.reg.Load()
	if r == nil {
		w.bypass(ReasonNotConfigured)
		return run(args)
	}
	if skip {
		w.bypass(ReasonSkipCache)
		return run(args)
	}

	key, err := w.keyOf(args)
	if err != nil {
		return zero, err
	}
	key, err = w.m.storageKey(ctx, w.ns, ShortKey(w.name, key, w.maxKeyLen))
	if err != nil {
		w.bypass(ReasonGenError)
		return run(args)
	}

	s := family(ctx, r.b)
	if raw, ok, err := s.get(key); err != nil {
		w.storeErr("get", key, err)
	} else if ok {
		v, err := w.codec.Decode(raw)
		if err == nil {
			w.m.hooks.Hit(w.name, key)
			return v, nil
		}
		w.m.hooks.SelfHeal(w.name, key, err)
		w.m.log.Warn("cached value decode failed; deleting", Fields{"op": w.name, "key": key, "err": err})
		if err := s.del(key); err != nil {
			w.storeErr("delete", key, err)
		}
	}

	w.m.hooks.Miss(w.name, key)
	v, err := run(args)
	if err != nil {
		return v, err
	}
	raw, err := w.codec.Encode(v)
	if err != nil {
		w.m.hooks.EncodeError(w.name, err)
		w.m.log.Warn("result encode failed; not cached", Fields{"op": w.name, "key": key, "err": err})
		return v, nil
	}
	if err := s.set(key, raw, w.effectiveTTL(r.ttl)); err != nil {
		w.storeErr("set", key, err)
	}
	return v, nil
}

func (w *wrapper[V]) effectiveTTL(def time.Duration) time.Duration {
	switch {
	case w.ttl > 0:
		return w.ttl
	case w.ttl < 0:
		return 0
	default:
		return def
	}
}

func (w *wrapper[V]) bypass(reason string) {
	w.m.hooks.Bypass(w.name, reason)
	w.m.log.Debug("cache bypassed", Fields{"op": w.name, "reason": reason})
}

func (w *wrapper[V]) storeErr(op, key string, err error) {
	w.m.hooks.StoreError(w.name, op, err)
	w.m.log.Warn("backend error", Fields{"op": w.name, "backendOp": op, "key": key, "err": err})
}

// store is the backend family a wrapper talks to.
type store interface {
	get(key string) ([]byte, bool, error)
	set(key string, value []byte, ttl time.Duration) error
	del(key string) error
}

type blockingStore struct{ b backend.Store }

func blockingFamily(_ context.Context, b backend.Backend) store { return blockingStore{b} }

func (s blockingStore) get(key string) ([]byte, bool, error) {
	v, ok := s.b.Get(key)
	return v, ok, nil
}

func (s blockingStore) set(key string, value []byte, ttl time.Duration) error {
	s.b.Set(key, value, ttl)
	return nil
}

func (s blockingStore) del(key string) error {
	s.b.Delete(key)
	return nil
}

type contextStore struct {
	ctx context.Context
	b   backend.ContextStore
}

func contextFamily(ctx context.Context, b backend.Backend) store { return contextStore{ctx, b} }

func (s contextStore) get(key string) ([]byte, bool, error) { return s.b.GetContext(s.ctx, key) }

func (s contextStore) set(key string, value []byte, ttl time.Duration) error {
	return s.b.SetContext(s.ctx, key, value, ttl)
}

func (s contextStore) del(key string) error { return s.b.DeleteContext(s.ctx, key) }
