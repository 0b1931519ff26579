package query

import "fmt"

// Set installs a new value for an input query slot, advancing the engine's
// global revision by exactly one (spec §4.1 "Input queries"). It is a
// convenience wrapper around WriteBatch for the single-slot case.
func (e *Engine) Set(kind Kind, key Key, value Value) {
	e.WriteBatch([]PendingSet{{Kind: kind, Key: key, Value: value}})
}

// SetDurable installs a value for a "constant" input slot (spec §4.1
// "Input-with-durability"): once set, it is never re-verified. A derived
// query depending on it still walks its dependency list after a revision
// change, but the durable slot answers at once with its original
// changedAt, so it never causes a recomputation. Used for
// library-provided symbol indices (§4.3).
func (e *Engine) SetDurable(kind Kind, key Key, value Value) {
	e.WriteBatch([]PendingSet{{Kind: kind, Key: key, Value: value, Durable: true}})
}

// PendingSet is one input mutation within a WriteBatch call.
type PendingSet struct {
	Kind    Kind
	Key     Key
	Value   Value
	Durable bool
}

// WriteBatch applies a slice of pending Set operations as a single atomic
// unit: the global revision advances by exactly one, not once per entry,
// matching spec §6's "apply_change is atomic: it advances the revision
// exactly once regardless of how many inputs were touched." It also
// enforces spec §4.1/§5's write-exclusivity rule: new Snapshots are blocked
// for the whole call, the cancellation tokens of outstanding ones fire
// first so any in-flight query on them observes cancellation at its next
// cooperative check point, and the mutation is applied only once every
// outstanding Snapshot has been released.
func (e *Engine) WriteBatch(sets []PendingSet) {
	e.writeLock.Lock()
	defer e.writeLock.Unlock()

	e.cancelMu.Lock()
	close(e.cancel)
	e.cancel = make(chan struct{})
	e.cancelMu.Unlock()
	e.readersWG.Wait()

	next := Revision(e.revision.Add(1))
	for _, ps := range sets {
		id := ident{kind: ps.Kind, key: ps.Key}
		s := e.getOrCreateSlot(id)
		s.mu.Lock()
		if ps.Durable {
			if s.hasValue {
				s.mu.Unlock()
				panic(BugError{Msg: fmt.Sprintf("query: SetDurable on %v after first set", id)})
			}
			s.durable = true
		} else if s.durable && s.hasValue {
			s.mu.Unlock()
			panic(BugError{Msg: fmt.Sprintf("query: Set on durable slot %v after first set", id)})
		}
		changed := next
		if s.hasValue && ps.Value != nil && s.value != nil && s.value.Equal(ps.Value) {
			// "Setting to a value equal to the existing one still advances
			// the revision of the slot but consumers may short-circuit via
			// the changed-at check" (spec §4.1) — so changedAt stays put
			// even though verifiedAt has moved on to next.
			changed = s.changedAt
		}
		s.hasValue = true
		s.value = ps.Value
		s.verifiedAt = next
		s.changedAt = changed
		s.mu.Unlock()
	}
}
