package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/memocache/backend"
)

var ErrNilClient = errors.New("redis backend: nil client")

const defaultScanCount = 100

// Redis stores entries as plain Redis strings with native expiry.
// Failures are swallowed and reported to OnError.
type Redis struct {
	rdb         goredis.UniversalClient
	ns          string
	scanCount   int64
	closeClient bool
	onErr       backend.ErrorFunc
}

var _ backend.Backend = (*Redis)(nil)

type Config struct {
	Client      goredis.UniversalClient
	Namespace   string // "" => backend.DefaultNamespace
	CloseClient bool   // set true only if this backend exclusively owns the client
	ScanCount   int64  // SCAN COUNT hint used by Clear; 0 => 100
	OnError     backend.ErrorFunc
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	r := &Redis{
		rdb:         cfg.Client,
		ns:          cfg.Namespace,
		scanCount:   cfg.ScanCount,
		closeClient: cfg.CloseClient,
		onErr:       cfg.OnError,
	}
	if r.ns == "" {
		r.ns = backend.DefaultNamespace
	}
	if r.scanCount <= 0 {
		r.scanCount = defaultScanCount
	}
	if r.onErr == nil {
		r.onErr = backend.NopErrorFunc
	}
	return r, nil
}

// NewFromURL dials lazily from a redis:// URL. The backend owns the client.
func NewFromURL(url, namespace string, onErr backend.ErrorFunc) (*Redis, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return New(Config{
		Client:      goredis.NewClient(opts),
		Namespace:   namespace,
		CloseClient: true,
		OnError:     onErr,
	})
}

func (r *Redis) key(k string) string { return backend.Key(r.ns, k) }

func (r *Redis) fail(ctx context.Context, op, key string, err error) error {
	r.onErr(op, key, err)
	return backend.CtxErr(ctx, err)
}

func (r *Redis) GetContext(ctx context.Context, key string) ([]byte, bool, error) {
	k := r.key(key)
	b, err := r.rdb.Get(ctx, k).Bytes()
	if err == goredis.Nil {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, r.fail(ctx, "get", k, err)
	}
	return b, true, nil
}

func (r *Redis) SetContext(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = 0 // no expiry; go-redis reserves negative values for KEEPTTL
	}
	k := r.key(key)
	if err := r.rdb.Set(ctx, k, value, ttl).Err(); err != nil {
		return r.fail(ctx, "set", k, err)
	}
	return nil
}

func (r *Redis) DeleteContext(ctx context.Context, key string) error {
	k := r.key(key)
	if err := r.rdb.Del(ctx, k).Err(); err != nil {
		return r.fail(ctx, "delete", k, err)
	}
	return nil
}

func (r *Redis) HasContext(ctx context.Context, key string) (bool, error) {
	k := r.key(key)
	n, err := r.rdb.Exists(ctx, k).Result()
	if err != nil {
		return false, r.fail(ctx, "has", k, err)
	}
	return n > 0, nil
}

// ClearContext deletes every key matching "<namespace>:*" using SCAN, so it
// never blocks the server the way KEYS would. On a cluster client every
// master is scanned.
func (r *Redis) ClearContext(ctx context.Context) error {
	pattern := escapeGlob(backend.Prefix(r.ns)) + "*"
	var err error
	if cc, ok := r.rdb.(*goredis.ClusterClient); ok {
		err = cc.ForEachMaster(ctx, func(ctx context.Context, node *goredis.Client) error {
			return r.scanDelete(ctx, node, pattern)
		})
	} else {
		err = r.scanDelete(ctx, r.rdb, pattern)
	}
	if err != nil {
		return r.fail(ctx, "clear", pattern, err)
	}
	return nil
}

func (r *Redis) scanDelete(ctx context.Context, c goredis.Cmdable, pattern string) error {
	var cursor uint64
	for {
		keys, next, err := c.Scan(ctx, cursor, pattern, r.scanCount).Result()
		if err != nil {
			return err
		}
		for _, k := range keys {
			// single-key DEL keeps cluster slots happy
			if err := c.Del(ctx, k).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (r *Redis) Get(key string) ([]byte, bool) {
	v, ok, _ := r.GetContext(context.Background(), key)
	return v, ok
}

func (r *Redis) Set(key string, value []byte, ttl time.Duration) {
	_ = r.SetContext(context.Background(), key, value, ttl)
}

func (r *Redis) Delete(key string) { _ = r.DeleteContext(context.Background(), key) }

func (r *Redis) Has(key string) bool {
	ok, _ := r.HasContext(context.Background(), key)
	return ok
}

func (r *Redis) Clear() { _ = r.ClearContext(context.Background()) }

// Close releases the underlying redis client only when this backend owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (r *Redis) Close(context.Context) error {
	if r.closeClient {
		if err := r.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

// escapeGlob quotes the characters SCAN MATCH treats specially.
func escapeGlob(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
