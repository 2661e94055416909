package models

import (
	"bytes"
	"encoding/json"
)

// Optional holds a value that may be absent. The zero value is absent and
// encodes as JSON null.
type Optional[T any] struct {
	value T
	set   bool
}

// Some wraps a present value.
func Some[T any](v T) Optional[T] { return Optional[T]{value: v, set: true} }

// None returns an absent value.
func None[T any]() Optional[T] { return Optional[T]{} }

// Present reports whether a value is held.
func (o Optional[T]) Present() bool { return o.set }

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) { return o.value, o.set }

// OrElse returns the held value or def.
func (o Optional[T]) OrElse(def T) T {
	if !o.set {
		return def
	}
	return o.value
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.set {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = None[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// UnmarshalParam lets Echo bind the value from a query or path parameter.
func (o *Optional[T]) UnmarshalParam(param string) error {
	var v T
	switch p := any(&v).(type) {
	case *string:
		*p = param
	default:
		if err := json.Unmarshal([]byte(param), &v); err != nil {
			return err
		}
	}
	*o = Some(v)
	return nil
}
