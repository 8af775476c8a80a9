package domain

import (
	"bytes"
	"encoding/json"
)

// Optional is an explicitly tagged value. The zero Optional is unset.
//
// It marshals to the bare value when set and to null otherwise; pair it
// with the `omitzero` struct tag to drop unset fields entirely.
type Optional[T any] struct {
	value T
	ok    bool
}

func Some[T any](v T) Optional[T] { return Optional[T]{value: v, ok: true} }
func None[T any]() Optional[T]    { return Optional[T]{} }

// Get returns the value and whether it is set.
func (o Optional[T]) Get() (T, bool) { return o.value, o.ok }

func (o Optional[T]) IsSet() bool  { return o.ok }
func (o Optional[T]) IsZero() bool { return !o.ok }

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*o = Optional[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}
