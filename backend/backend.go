// Package backend defines the storage contract used by memocache.
//
// Every backend exposes the same five operations twice: a blocking family
// (Store) and a context-aware family (ContextStore) with identical semantics.
// The context family may wait only while acquiring the backend's own
// synchronization primitive or, for remote stores, on the network call; when
// the context ends first it returns ctx.Err(). That is the only error a
// ContextStore method ever returns.
//
// Implementations MUST be byte-for-byte transparent: Get returns exactly the
// bytes previously passed to Set for that key.
//
// Keys are namespaced: every backend stores a caller key k under
// "<namespace>:<k>" and Clear removes only keys carrying its own prefix, so
// two backends with different namespaces never observe each other's keys even
// when they share one physical keyspace.
//
// Remote implementations suppress storage and transport failures: Get and Has
// report a miss, Set, Delete and Clear become no-ops. Failures are reported to
// an ErrorFunc so callers can still log or count them.
package backend

import (
	"context"
	"time"
)

// DefaultNamespace is used when a backend is constructed without a namespace.
const DefaultNamespace = "memocache"

// Store is the blocking operation family.
type Store interface {
	// Get returns the stored value if present and live. Missing or stale keys
	// report ok=false.
	Get(key string) (value []byte, ok bool)

	// Set stores value under key, overwriting any existing entry.
	// ttl <= 0 means the entry never expires.
	Set(key string, value []byte, ttl time.Duration)

	// Delete removes key. Deleting a missing key is a no-op.
	Delete(key string)

	// Has reports whether key is present and live.
	Has(key string) bool

	// Clear removes every entry under this backend's namespace.
	Clear()
}

// ContextStore is the context-aware operation family. Semantics match Store;
// the returned error is non-nil only when ctx ended before the operation
// could run.
type ContextStore interface {
	GetContext(ctx context.Context, key string) (value []byte, ok bool, err error)
	SetContext(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteContext(ctx context.Context, key string) error
	HasContext(ctx context.Context, key string) (bool, error)
	ClearContext(ctx context.Context) error
}

// Backend is the full contract every storage implementation satisfies.
type Backend interface {
	Store
	ContextStore

	// Close releases resources (background tasks, owned clients).
	Close(ctx context.Context) error
}

// ErrorFunc observes a failure that a backend swallowed.
// op is one of "get", "set", "delete", "has", "clear".
type ErrorFunc func(op, key string, err error)

// NopErrorFunc discards failures.
func NopErrorFunc(string, string, error) {}

// Key returns the storage key for key under namespace.
func Key(namespace, key string) string { return namespace + ":" + key }

// Prefix returns the storage prefix owned by namespace.
func Prefix(namespace string) string { return namespace + ":" }

// CtxErr returns ctx.Err() when err was caused by the context ending.
// Remote backends use it to tell caller cancellation apart from failures they
// must swallow.
func CtxErr(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	return ctx.Err()
}
