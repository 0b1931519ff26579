package ferro

import (
	"context"

	"github.com/jward/ferrotree/internal/query"
)

// Snapshot is a read-only, reference-counted view of a Host, usable by
// parallel readers, carrying a cancellation token (spec §4.1/§5's
// GLOSSARY entry for "Snapshot"). It wraps internal/query.Snapshot with
// the Host the caller needs to run façade operations against.
type Snapshot struct {
	host *Host
	qs   *query.Snapshot
}

// Snapshot takes a new read-only view of h's current state (spec §4.6).
// Never errors: taking a snapshot cannot fail.
func (h *Host) Snapshot() *Snapshot {
	return &Snapshot{host: h, qs: h.engine.Snapshot()}
}

// Release drops the snapshot, allowing a pending ApplyChange to proceed
// once every outstanding snapshot has done the same.
func (s *Snapshot) Release() {
	s.qs.Release()
}

// Done returns a channel closed when s is cancelled (an ApplyChange
// occurred while s was outstanding).
func (s *Snapshot) Done() <-chan struct{} {
	return s.qs.Done()
}

// checkCancelled is the cooperative check-point façade operations call at
// their own loop headers and before demanding each derived query, per
// spec §5's "cooperative check_canceled at loop headers."
func (s *Snapshot) checkCancelled() error {
	return s.qs.CheckCancelled()
}

func (s *Snapshot) get(ctx context.Context, kind query.Kind, key query.Key) (query.Value, error) {
	return query.Execute(ctx, s.qs, kind, key)
}
