package ristretto

import (
	"bytes"
	"context"
	"errors"
	"time"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/memocache/backend"
)

// Ristretto is an in-process alternative to backend/memory with cost-based
// TinyLFU admission instead of strict LRU. Writes may be refused under
// pressure; a refused write is a silent no-op like any swallowed failure.
//
// Ristretto cannot enumerate keys, so Clear drops the whole instance: give
// each namespace its own Ristretto.
type Ristretto struct {
	c     *rc.Cache
	ns    string
	cost  func(key string, value []byte) int64
	onErr backend.ErrorFunc
}

var _ backend.Backend = (*Ristretto)(nil)

// ErrRejected is reported to OnError when ristretto refuses a write.
var ErrRejected = errors.New("ristretto backend: write rejected")

type Config struct {
	Namespace   string
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
	// Cost of an entry; nil => 1 per entry (MaxCost is then an entry count).
	Cost    func(key string, value []byte) int64
	OnError backend.ErrorFunc
}

func New(cfg Config) (*Ristretto, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	r := &Ristretto{c: c, ns: cfg.Namespace, cost: cfg.Cost, onErr: cfg.OnError}
	if r.ns == "" {
		r.ns = backend.DefaultNamespace
	}
	if r.cost == nil {
		r.cost = func(string, []byte) int64 { return 1 }
	}
	if r.onErr == nil {
		r.onErr = backend.NopErrorFunc
	}
	return r, nil
}

func (r *Ristretto) Get(key string) ([]byte, bool) {
	k := backend.Key(r.ns, key)
	v, ok := r.c.Get(k)
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	if !ok {
		// self-heal: drop unexpected entry shape
		r.c.Del(k)
		return nil, false
	}
	return bytes.Clone(b), true
}

func (r *Ristretto) Set(key string, value []byte, ttl time.Duration) {
	k := backend.Key(r.ns, key)
	value = append([]byte{}, value...)
	if ttl < 0 {
		ttl = 0 // ristretto: 0 => no expiry
	}
	if !r.c.SetWithTTL(k, value, r.cost(k, value), ttl) {
		r.onErr("set", k, ErrRejected)
		return
	}
	// writes are buffered; wait so the entry is visible to the next Get
	r.c.Wait()
}

func (r *Ristretto) Delete(key string) { r.c.Del(backend.Key(r.ns, key)) }

func (r *Ristretto) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

func (r *Ristretto) Clear() { r.c.Clear() }

func (r *Ristretto) GetContext(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	v, ok := r.Get(key)
	return v, ok, nil
}

func (r *Ristretto) SetContext(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.Set(key, value, ttl)
	return nil
}

func (r *Ristretto) DeleteContext(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.Delete(key)
	return nil
}

func (r *Ristretto) HasContext(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return r.Has(key), nil
}

func (r *Ristretto) ClearContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.Clear()
	return nil
}

func (r *Ristretto) Close(_ context.Context) error {
	r.c.Wait()
	r.c.Close()
	return nil
}

// Metrics exposes ristretto's counters (nil unless Config.Metrics is set).
func (r *Ristretto) Metrics() *rc.Metrics { return r.c.Metrics }
