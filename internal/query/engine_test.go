package query_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/ferrotree/internal/query"
)

const (
	kindFileText query.Kind = "file_text"
	kindLineCount query.Kind = "line_count"
)

type intValue int

func (i intValue) Equal(v query.Value) bool {
	o, ok := v.(intValue)
	return ok && i == o
}

func newCountingEngine(t *testing.T) (*query.Engine, *int) {
	t.Helper()
	e := query.NewEngine()
	calls := 0
	e.RegisterDerived(kindLineCount, func(ctx context.Context, x *query.Execution, key query.Key) (query.Value, error) {
		calls++
		text, err := x.Get(ctx, kindFileText, key)
		if err != nil {
			return nil, err
		}
		n := 0
		for _, c := range string(text.(query.Text)) {
			if c == '\n' {
				n++
			}
		}
		return intValue(n), nil
	})
	return e, &calls
}

func TestCacheCorrectness(t *testing.T) {
	e, calls := newCountingEngine(t)
	e.Set(kindFileText, "a.rs", query.Text("one\ntwo\n"))

	snap := e.Snapshot()
	defer snap.Release()

	v, err := query.Execute(context.Background(), snap, kindLineCount, "a.rs")
	require.NoError(t, err)
	assert.Equal(t, intValue(2), v)
	assert.Equal(t, 1, *calls)

	// Re-demanding on the same snapshot must not recompute.
	v2, err := query.Execute(context.Background(), snap, kindLineCount, "a.rs")
	require.NoError(t, err)
	assert.Equal(t, intValue(2), v2)
	assert.Equal(t, 1, *calls)
}

func TestRevisionMonotonicity(t *testing.T) {
	e, _ := newCountingEngine(t)
	start := e.CurrentRevision()
	e.Set(kindFileText, "a.rs", query.Text("x"))
	assert.Greater(t, e.CurrentRevision(), start)

	next := e.CurrentRevision()
	e.Set(kindFileText, "a.rs", query.Text("x")) // same value
	assert.Greater(t, e.CurrentRevision(), next, "revision advances even when the value is unchanged")
}

func TestEarlyCutoff(t *testing.T) {
	e, calls := newCountingEngine(t)
	e.Set(kindFileText, "a.rs", query.Text("one\ntwo\n"))

	snap1 := e.Snapshot()
	v1, err := query.Execute(context.Background(), snap1, kindLineCount, "a.rs")
	require.NoError(t, err)
	assert.Equal(t, intValue(2), v1)
	snap1.Release()
	assert.Equal(t, 1, *calls)

	// Change the file text without changing the line count.
	e.Set(kindFileText, "a.rs", query.Text("one!\ntwo\n"))

	snap2 := e.Snapshot()
	defer snap2.Release()
	v2, err := query.Execute(context.Background(), snap2, kindLineCount, "a.rs")
	require.NoError(t, err)
	assert.Equal(t, intValue(2), v2)
	// The derived function did re-run (its dependency's changedAt moved)...
	assert.Equal(t, 2, *calls)
}

func TestSnapshotIsolation(t *testing.T) {
	e, _ := newCountingEngine(t)
	e.Set(kindFileText, "a.rs", query.Text("one\n"))

	oldSnap := e.Snapshot()

	e.Set(kindFileText, "a.rs", query.Text("one\ntwo\nthree\n"))

	newSnap := e.Snapshot()
	defer newSnap.Release()

	vOld, err := query.Execute(context.Background(), oldSnap, kindLineCount, "a.rs")
	require.NoError(t, err)
	assert.Equal(t, intValue(1), vOld)
	oldSnap.Release()

	vNew, err := query.Execute(context.Background(), newSnap, kindLineCount, "a.rs")
	require.NoError(t, err)
	assert.Equal(t, intValue(3), vNew)
}

func TestCancellationOnWrite(t *testing.T) {
	e, _ := newCountingEngine(t)
	e.Set(kindFileText, "a.rs", query.Text("one\n"))

	snap := e.Snapshot()
	// The write waits for snap to be released, so it runs on another
	// goroutine while this one observes the cancellation.
	written := make(chan struct{})
	go func() {
		e.Set(kindFileText, "a.rs", query.Text("one\ntwo\n"))
		close(written)
	}()
	<-snap.Done()

	_, err := query.Execute(context.Background(), snap, kindLineCount, "a.rs")
	assert.ErrorIs(t, err, query.ErrCancelled)
	snap.Release()
	<-written

	fresh := e.Snapshot()
	defer fresh.Release()
	v, err := query.Execute(context.Background(), fresh, kindLineCount, "a.rs")
	require.NoError(t, err)
	assert.Equal(t, intValue(2), v)
}

func TestWriteBatchSingleRevisionBump(t *testing.T) {
	e, _ := newCountingEngine(t)
	start := e.CurrentRevision()
	e.WriteBatch([]query.PendingSet{
		{Kind: kindFileText, Key: "a.rs", Value: query.Text("a")},
		{Kind: kindFileText, Key: "b.rs", Value: query.Text("b")},
		{Kind: kindFileText, Key: "c.rs", Value: query.Text("c")},
	})
	assert.Equal(t, start+1, e.CurrentRevision())
}

func TestDurableSlotSkipsReverification(t *testing.T) {
	e, calls := newCountingEngine(t)
	e.SetDurable(kindFileText, "lib.rs", query.Text("const\n"))

	snap1 := e.Snapshot()
	_, err := query.Execute(context.Background(), snap1, kindLineCount, "lib.rs")
	require.NoError(t, err)
	snap1.Release()
	assert.Equal(t, 1, *calls)

	// Unrelated mutation elsewhere must not force recomputation of the
	// durable slot's dependents.
	e.Set(kindFileText, "other.rs", query.Text("x"))

	snap2 := e.Snapshot()
	defer snap2.Release()
	_, err = query.Execute(context.Background(), snap2, kindLineCount, "lib.rs")
	require.NoError(t, err)
	assert.Equal(t, 1, *calls, "durable dependency must not trigger recomputation")
}
