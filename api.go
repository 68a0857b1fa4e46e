package memocache

import (
	"context"
	"time"

	"github.com/unkn0wn-root/memocache/codec"
	"github.com/unkn0wn-root/memocache/genstore"
)

// Func is a memoizable blocking operation.
type Func[V any] func(Args) (V, error)

// ContextFunc is a memoizable context-aware operation.
type ContextFunc[V any] func(context.Context, Args) (V, error)

// KeyBuilder derives the cache key from call arguments. Errors are returned
// to the caller unchanged and the operation is not run.
type KeyBuilder func(Args) (string, error)

// Options configure a Memoizer. All fields are optional.
type Options struct {
	Logger Logger // nil => NopLogger
	Hooks  Hooks  // nil => NopHooks
	// Generations enables InvalidateNamespace. nil => namespaces are plain
	// key prefixes and can only be dropped through the backend's Clear.
	Generations genstore.GenStore
}

// Config describes one wrapped operation.
type Config[V any] struct {
	// Name is the operation identity in default keys, hooks and logs.
	// "" => the runtime name of the wrapped function (pkg/path.Func).
	Name string
	// TTL of stored results; 0 => the default registered with the backend,
	// < 0 => stored without expiry.
	TTL        time.Duration
	KeyBuilder KeyBuilder // nil => DefaultKey
	Namespace  string
	Codec      codec.Codec[V] // nil => codec.JSON[V]
	// MaxKeyLen > 0 hashes derived keys longer than this (see ShortKey).
	MaxKeyLen int
}

func New(opts Options) *Memoizer {
	return &Memoizer{
		log:   coalesce[Logger](opts.Logger, NopLogger{}),
		hooks: coalesce[Hooks](opts.Hooks, NopHooks{}),
		gens:  opts.Generations,
	}
}
