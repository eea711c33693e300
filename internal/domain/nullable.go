package domain

import (
	"bytes"
	"encoding/json"
)

// Nullable is a three-state field: absent, explicit null, or a value.
// When used in a JSON request body, a missing key leaves Set false and
// `null` sets Set with Valid false.
type Nullable[T any] struct {
	Set   bool
	Valid bool
	Value T
}

// Some returns a Nullable holding v.
func Some[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Valid: true, Value: v}
}

// Null returns a Nullable that explicitly clears the field.
func Null[T any]() Nullable[T] {
	return Nullable[T]{Set: true}
}

// Ptr returns the value as a pointer, nil for null or absent.
func (n Nullable[T]) Ptr() *T {
	if !n.Set || !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

// Apply returns the patched value of cur.
func (n Nullable[T]) Apply(cur *T) *T {
	if !n.Set {
		return cur
	}
	return n.Ptr()
}

func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		n.Valid = false
		n.Value = zero
		return nil
	}
	if err := json.Unmarshal(data, &n.Value); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}
