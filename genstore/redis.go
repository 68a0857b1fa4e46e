package genstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis shares namespace generations across processes and survives restarts.
// An optional TTL (refreshed on every bump) bounds key growth; an expired
// generation reads as 0 and entries written under older generations
// become reachable again, so keep the TTL above the longest entry TTL.
type Redis struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
	owns   bool
}

var _ GenStore = (*Redis)(nil)

// NewRedis stores generations under "<prefix>:gen:<namespace>".
// prefix "" => "memocache". ttl <= 0 => keys never expire.
func NewRedis(client redis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = "memocache"
	}
	return &Redis{rdb: client, prefix: prefix, ttl: ttl}
}

// OwnClient makes Close close the Redis client.
func (s *Redis) OwnClient() *Redis {
	s.owns = true
	return s
}

func (s *Redis) key(ns string) string { return s.prefix + ":gen:" + ns }

func (s *Redis) Snapshot(ctx context.Context, ns string) (uint64, error) {
	res, err := s.rdb.Get(ctx, s.key(ns)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	u, err := strconv.ParseUint(res, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("redis gen parse %s: %w", ns, err)
	}
	return u, nil
}

// Bump pipelines INCR and EXPIRE in one round-trip when a TTL is set.
func (s *Redis) Bump(ctx context.Context, ns string) (uint64, error) {
	k := s.key(ns)
	if s.ttl <= 0 {
		v, err := s.rdb.Incr(ctx, k).Result()
		if err != nil {
			return 0, err
		}
		return uint64(v), nil
	}

	var incr *redis.IntCmd
	_, err := s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		p.Expire(ctx, k, s.ttl)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return uint64(incr.Val()), nil
}

// Cleanup is a no-op: Redis expires keys itself when a TTL is set.
func (s *Redis) Cleanup(time.Duration) {}

func (s *Redis) Close(context.Context) error {
	if !s.owns {
		return nil
	}
	if err := s.rdb.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}
