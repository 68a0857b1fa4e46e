package memocache

import "errors"

var (
	// ErrNilFunc is returned by every call of a wrapper built around a nil function.
	ErrNilFunc = errors.New("memocache: nil function")
	// ErrNoGenerations is returned by InvalidateNamespace when the Memoizer
	// was built without a generation store.
	ErrNoGenerations = errors.New("memocache: no generation store configured")
)
