package query

import "context"

// Snapshot is a read-only, reference-counted view of an Engine, safe for
// concurrent use from parallel worker goroutines (spec §4.1 "Snapshots").
// It pins the revision it was taken at — "snapshot isolation" (§8) means
// every query run through a Snapshot sees that revision's inputs, even for
// queries first executed after a later write landed on the Engine.
type Snapshot struct {
	engine   *Engine
	revision Revision
	cancel   <-chan struct{}
}

// Snapshot takes a new read-only view of e at its current revision. The
// Engine's readers wait-group is incremented for the lifetime of the
// Snapshot; callers must call Release when done so writers aren't blocked
// forever. While a write is being applied, Snapshot waits for it to finish.
func (e *Engine) Snapshot() *Snapshot {
	e.writeLock.Lock()
	defer e.writeLock.Unlock()

	e.cancelMu.Lock()
	cancel := e.cancel
	e.cancelMu.Unlock()

	e.readersWG.Add(1)
	e.outstanding.Add(1)
	return &Snapshot{
		engine:   e,
		revision: e.CurrentRevision(),
		cancel:   cancel,
	}
}

// Release drops this Snapshot's hold on the Engine's reader count. Safe to
// call exactly once; callers typically defer it immediately after
// Snapshot().
func (s *Snapshot) Release() {
	s.engine.outstanding.Add(-1)
	s.engine.readersWG.Done()
}

// Revision reports the global revision this Snapshot is pinned to.
func (s *Snapshot) Revision() Revision { return s.revision }

// checkCancelled is the cooperative check point queries consult at loop
// headers and at the start of every derived query (spec §5 "Suspension
// points"). It never blocks.
func (s *Snapshot) checkCancelled() error {
	select {
	case <-s.cancel:
		return ErrCancelled
	default:
		return nil
	}
}

// CheckCancelled exposes the same check to query Func bodies and to
// indexing-query code that fans out across a worker pool (spec §5: "Long
// running queries call a cooperative check_canceled at loop headers").
func (x *Execution) CheckCancelled() error {
	return x.snap.checkCancelled()
}

// CheckCancelled exposes the Snapshot's cancellation check directly, for
// worker-pool loops that don't go through an Execution (e.g. the parallel
// file_symbols fan-out in internal/index).
func (s *Snapshot) CheckCancelled() error {
	return s.checkCancelled()
}

// Done returns a channel that closes when this Snapshot's Engine starts a
// new write, for callers that want to select on cancellation rather than
// poll it — context.Context-shaped, without requiring one.
func (s *Snapshot) Done() <-chan struct{} { return s.cancel }

// WithCancel returns a context.Context that is cancelled when this
// Snapshot observes a write, so query code that already takes a
// context.Context (e.g. internal/syntax parsing, internal/macro script
// execution) can be cancelled uniformly.
func (s *Snapshot) WithCancel(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-s.cancel:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
