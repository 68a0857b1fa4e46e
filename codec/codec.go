// Package codec turns memoized results into bytes and back.
package codec

// Codec encodes/decodes values V to []byte for storage.
// Decode errors make the memoizer drop the entry and recompute.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
