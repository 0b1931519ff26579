package query

import "reflect"

// Text is a Value wrapper around a plain string, used for file contents
// and similar leaf inputs.
type Text string

func (t Text) Equal(v Value) bool {
	o, ok := v.(Text)
	return ok && t == o
}

// Bool is a Value wrapper around a plain bool (e.g. a source root's
// is_local flag).
type Bool bool

func (b Bool) Equal(v Value) bool {
	o, ok := v.(Bool)
	return ok && b == o
}

// Opaque wraps any comparable-by-deep-equal Go value as a Value, for
// inputs and derived results that don't warrant a hand-written Equal (crate
// graphs, source root file maps). reflect.DeepEqual is more expensive than
// a hand-rolled comparison, so hot paths — the symbol index and inference
// results — define their own Equal instead; see internal/index.
type Opaque struct {
	V any
}

func (o Opaque) Equal(v Value) bool {
	other, ok := v.(Opaque)
	if !ok {
		return false
	}
	return reflect.DeepEqual(o.V, other.V)
}
