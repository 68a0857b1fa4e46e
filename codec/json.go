package codec

import "encoding/json"

// JSON is the default codec. The zero value is ready to use.
// Results round-trip through encoding/json, so unexported fields are lost
// and interface-typed results decode to map[string]any.
type JSON[V any] struct{}

var _ Codec[int] = JSON[int]{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }
func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}
