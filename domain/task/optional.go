package task

import (
	"bytes"
	"encoding/json"
)

// Optional is a tri-state field: absent, explicitly null, or present with a value.
// The zero value is absent.
type Optional[T any] struct {
	set   bool
	null  bool
	value T
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{set: true, value: v}
}

// Null returns an Optional that is present but explicitly null.
func Null[T any]() Optional[T] {
	return Optional[T]{set: true, null: true}
}

// IsAbsent reports whether the field was not supplied at all.
func (o Optional[T]) IsAbsent() bool { return !o.set }

// IsNull reports whether the field was supplied as null.
func (o Optional[T]) IsNull() bool { return o.set && o.null }

// Get returns the value and true when the field holds a non-null value.
func (o Optional[T]) Get() (T, bool) {
	if !o.set || o.null {
		var zero T
		return zero, false
	}
	return o.value, true
}

// IsZero lets encoding/json omit absent fields under the omitzero option.
func (o Optional[T]) IsZero() bool { return !o.set }

// UnmarshalJSON is only invoked for keys present in the document, which is what
// separates absent from null.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.null = true
		var zero T
		o.value = zero
		return nil
	}
	o.null = false
	return json.Unmarshal(data, &o.value)
}

// MarshalJSON writes null for null and absent fields; use omitzero to drop absent ones.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.set || o.null {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}
