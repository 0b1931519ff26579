package query

import "context"

// Execution is passed to a query Func so it can fetch its dependencies
// through the engine (recording them) instead of reaching into storage
// directly. This is what lets the engine record "every dependency it
// fetches" per spec §4.1 step 1.
type Execution struct {
	snap *Snapshot
	id   ident
	deps []depEdge
}

// Get demands (kind, key), recording it as a dependency of the query
// currently executing, and returns its up-to-date value.
func (x *Execution) Get(ctx context.Context, kind Kind, key Key) (Value, error) {
	val, changedAt, err := x.snap.engine.demand(ctx, x.snap, ident{kind: kind, key: key})
	if err != nil {
		return nil, err
	}
	x.deps = append(x.deps, depEdge{id: ident{kind: kind, key: key}, changedAt: changedAt})
	return val, nil
}

// demand is Execute's recursive core (spec §4.1 "Execution"). It returns
// the current value plus the revision at which that value last changed.
func (e *Engine) demand(ctx context.Context, snap *Snapshot, id ident) (Value, Revision, error) {
	if err := snap.checkCancelled(); err != nil {
		return nil, 0, err
	}

	s := e.getOrCreateSlot(id)
	current := snap.revision

	s.mu.Lock()
	if !s.hasValue {
		// Step 1: nothing cached yet — compute from scratch.
		s.mu.Unlock()
		return e.computeAndStore(ctx, snap, id, s, nil)
	}
	if s.durable || s.verifiedAt == current {
		// Step 2: already verified at this revision (or never changes).
		val, changed := s.value, s.changedAt
		s.mu.Unlock()
		e.metrics.cacheHits.Inc()
		return val, changed, nil
	}
	deps := append([]depEdge(nil), s.deps...)
	oldValue := s.value
	oldChanged := s.changedAt
	s.mu.Unlock()

	// Step 3: re-verify dependencies. If none has changed since our last
	// verification, we're still valid; bump verifiedAt and return as-is.
	stale := false
	for _, d := range deps {
		_, depChanged, err := e.demand(ctx, snap, d.id)
		if err != nil {
			return nil, 0, err
		}
		if depChanged > d.changedAt {
			stale = true
			break
		}
	}
	if !stale {
		s.mu.Lock()
		if s.verifiedAt < current {
			s.verifiedAt = current
		}
		s.mu.Unlock()
		e.metrics.cacheHits.Inc()
		return oldValue, oldChanged, nil
	}

	return e.computeAndStore(ctx, snap, id, s, &oldValue)
}

// computeAndStore runs the query function for id, clears its old
// dependency set, and applies early cutoff against prior (possibly nil).
func (e *Engine) computeAndStore(ctx context.Context, snap *Snapshot, id ident, s *slot, prior *Value) (Value, Revision, error) {
	e.funcsMu.RLock()
	fn, ok := e.funcs[id.kind]
	e.funcsMu.RUnlock()
	if !ok {
		panic(BugError{Msg: "query: no function registered for kind " + string(id.kind)})
	}

	x := &Execution{snap: snap, id: id}
	e.metrics.queriesExecuted.Inc()
	val, err := fn(ctx, x, id.key)
	if err != nil {
		return nil, 0, err
	}

	current := snap.revision
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := current
	if prior != nil && *prior != nil && val != nil && (*prior).Equal(val) {
		// Early cutoff: recomputed value equals the old one, so this
		// slot's changedAt does not advance even though we just reran it.
		changed = s.changedAt
		e.metrics.earlyCutoffs.Inc()
	} else if s.hasValue && val != nil && s.value != nil && s.value.Equal(val) {
		changed = s.changedAt
		e.metrics.earlyCutoffs.Inc()
	}

	s.hasValue = true
	s.value = val
	s.deps = x.deps
	s.verifiedAt = current
	s.changedAt = changed
	return val, changed, nil
}

// Execute runs (kind, key) to completion against snap and returns its
// current value. This is the entry point callers (the analysis façade) use
// to demand a top-level answer; Func bodies use Execution.Get instead so
// their fetches are recorded as dependencies.
func Execute(ctx context.Context, snap *Snapshot, kind Kind, key Key) (Value, error) {
	val, _, err := snap.engine.demand(ctx, snap, ident{kind: kind, key: key})
	return val, err
}
