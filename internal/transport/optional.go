package transport

import (
	"bytes"
	"encoding/json"
)

// Optional distinguishes a field that was left out of a JSON body from one
// that was sent, including one sent as null.
type Optional[T any] struct {
	Value   T
	Present bool
	Null    bool
}

// UnmarshalJSON is only called when the key exists in the body.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Present = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		var zero T
		o.Value = zero
		return nil
	}
	o.Null = false
	return json.Unmarshal(data, &o.Value)
}

// Ptr returns nil when the field was absent.
func (o Optional[T]) Ptr() *T {
	if !o.Present || o.Null {
		return nil
	}
	v := o.Value
	return &v
}
