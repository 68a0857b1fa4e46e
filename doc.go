// Package memocache memoizes function calls on top of a pluggable byte store.
//
// Components:
//   - backend.Backend: the five-operation store contract in blocking and
//     context-aware form (backend/memory, backend/redis, backend/ristretto,
//     backend/bigcache, backend/sql).
//   - codec.Codec[V]: (de)serializes results V <-> []byte. JSON by default.
//   - Memoizer: holds the registered backend and default TTL. Several
//     Memoizers may coexist (one per test, one per subsystem).
//   - genstore.GenStore: optional per-namespace generations so a whole
//     namespace can be invalidated without scanning the backend.
//
// Keys:
//
//	<name>:[<positional>]:{<keyword>}        - default derivation
//	<namespace>:<key>                         - with Config.Namespace
//	<namespace>:g<gen>:<key>                  - with Options.Generations
//
// Usage:
//
//	m := memocache.New(memocache.Options{})
//	m.Register(memory.New(memory.Options{Namespace: "app"}), 2*time.Minute)
//
//	square := memocache.Wrap(m, func(a memocache.Args) (int, error) {
//	    n := a.Positional[0].(int)
//	    return n * n, nil
//	}, memocache.Config[int]{Name: "square"})
//
//	v, err := square(memocache.Call(4))
//	v, err = square(memocache.Call(4).With(memocache.SkipCacheArg, true)) // bypass
package memocache
