package bigcache

import (
	"context"
	"errors"
	"strings"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/memocache/backend"
	"github.com/unkn0wn-root/memocache/internal/wire"
)

// Bigcache stores entries in an allegro/bigcache instance. BigCache has one
// global LifeWindow and no per-entry TTL, so values are framed with their
// absolute expiry (internal/wire) and checked on read. Entries without a TTL
// still leave the store once LifeWindow elapses.
//
// Several backends with different namespaces may share one BigCache.
type Bigcache struct {
	c     *bc.BigCache
	ns    string
	owns  bool
	now   func() time.Time
	onErr backend.ErrorFunc
}

var _ backend.Backend = (*Bigcache)(nil)

type Config struct {
	Namespace          string
	LifeWindow         time.Duration // 0 => 10m
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
	OnError            backend.ErrorFunc
}

// New creates a backend that owns its BigCache.
func New(cfg Config) (*Bigcache, error) {
	life := cfg.LifeWindow
	if life <= 0 {
		life = 10 * time.Minute
	}
	conf := bc.DefaultConfig(life)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.New(context.Background(), conf)
	if err != nil {
		return nil, err
	}
	b := NewWithCache(c, cfg.Namespace, cfg.OnError)
	b.owns = true
	return b, nil
}

// NewWithCache wraps a BigCache the caller keeps ownership of.
func NewWithCache(c *bc.BigCache, namespace string, onErr backend.ErrorFunc) *Bigcache {
	if namespace == "" {
		namespace = backend.DefaultNamespace
	}
	if onErr == nil {
		onErr = backend.NopErrorFunc
	}
	return &Bigcache{c: c, ns: namespace, now: time.Now, onErr: onErr}
}

func (b *Bigcache) Get(key string) ([]byte, bool) {
	k := backend.Key(b.ns, key)
	raw, err := b.c.Get(k)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, false
	}
	if err != nil {
		b.onErr("get", k, err)
		return nil, false
	}
	exp, payload, err := wire.DecodeEntry(raw)
	if err != nil {
		b.onErr("get", k, err)
		_ = b.c.Delete(k) // self-heal corrupt
		return nil, false
	}
	if wire.Expired(exp, b.now()) {
		_ = b.c.Delete(k)
		return nil, false
	}
	return payload, true
}

func (b *Bigcache) Set(key string, value []byte, ttl time.Duration) {
	k := backend.Key(b.ns, key)
	var exp time.Time
	if ttl > 0 {
		exp = b.now().Add(ttl)
	}
	if err := b.c.Set(k, wire.EncodeEntry(exp, value)); err != nil {
		b.onErr("set", k, err)
	}
}

func (b *Bigcache) Delete(key string) {
	k := backend.Key(b.ns, key)
	if err := b.c.Delete(k); err != nil && !errors.Is(err, bc.ErrEntryNotFound) {
		b.onErr("delete", k, err)
	}
}

func (b *Bigcache) Has(key string) bool {
	_, ok := b.Get(key)
	return ok
}

// Clear walks the shards and deletes every key under this namespace.
func (b *Bigcache) Clear() {
	prefix := backend.Prefix(b.ns)
	var keys []string
	it := b.c.Iterator()
	for it.SetNext() {
		e, err := it.Value()
		if err != nil {
			b.onErr("clear", prefix, err)
			continue
		}
		if k := e.Key(); strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	for _, k := range keys {
		if err := b.c.Delete(k); err != nil && !errors.Is(err, bc.ErrEntryNotFound) {
			b.onErr("clear", k, err)
		}
	}
}

func (b *Bigcache) GetContext(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	v, ok := b.Get(key)
	return v, ok, nil
}

func (b *Bigcache) SetContext(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.Set(key, value, ttl)
	return nil
}

func (b *Bigcache) DeleteContext(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.Delete(key)
	return nil
}

func (b *Bigcache) HasContext(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return b.Has(key), nil
}

func (b *Bigcache) ClearContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.Clear()
	return nil
}

// Close closes the BigCache only when this backend created it.
func (b *Bigcache) Close(_ context.Context) error {
	if b.owns {
		return b.c.Close()
	}
	return nil
}
