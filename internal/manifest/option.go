package manifest

import (
	"bytes"
	"encoding/json"
)

// Option models an optional update to a metadata field with three
// distinct states: absent (leave the current value alone), cleared
// (remove the current value), and set (replace it). Presence checks
// on raw maps conflate absent and cleared; Option keeps the three
// states explicit.
//
// JSON mapping: an absent Option is omitted (omitzero), a cleared
// Option is null, a set Option is the value itself.
type Option[T any] struct {
	state optionState
	value T
}

type optionState uint8

const (
	absent optionState = iota
	cleared
	set
)

// Set returns an Option carrying a replacement value.
func Set[T any](v T) Option[T] {
	return Option[T]{state: set, value: v}
}

// Cleared returns an Option that removes the current value.
func Cleared[T any]() Option[T] {
	return Option[T]{state: cleared}
}

// Absent returns an Option that leaves the current value unchanged.
func Absent[T any]() Option[T] {
	return Option[T]{}
}

// IsSet reports whether the Option carries a replacement value.
func (o Option[T]) IsSet() bool { return o.state == set }

// IsCleared reports whether the Option removes the current value.
func (o Option[T]) IsCleared() bool { return o.state == cleared }

// IsZero reports whether the Option is absent. Satisfies the omitzero
// contract so absent options disappear from JSON.
func (o Option[T]) IsZero() bool { return o.state == absent }

// Get returns the carried value and whether one is set.
func (o Option[T]) Get() (T, bool) {
	return o.value, o.state == set
}

// Apply resolves the Option against the current value: absent keeps
// current, cleared returns the zero value, set returns the carried
// value.
func (o Option[T]) Apply(current T) T {
	switch o.state {
	case set:
		return o.value
	case cleared:
		var zero T
		return zero
	default:
		return current
	}
}

// MarshalJSON encodes cleared as null and set as the value. Absent
// options are expected to be omitted by the caller via omitzero.
func (o Option[T]) MarshalJSON() ([]byte, error) {
	if o.state != set {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

// UnmarshalJSON decodes null as cleared and any value as set. It is
// only invoked for present fields, so absence survives naturally.
func (o *Option[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = Option[T]{state: cleared}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Option[T]{state: set, value: v}
	return nil
}
