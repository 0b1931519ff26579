package index_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/ferrotree/internal/index"
	"github.com/jward/ferrotree/internal/intern"
	"github.com/jward/ferrotree/internal/query"
)

type fakeBodySource struct {
	scopes map[intern.DefId][]index.Scope
	exprs  map[intern.DefId][]index.BodyExpr
}

func (f *fakeBodySource) ScopesForDef(ctx context.Context, def intern.DefId) ([]index.Scope, error) {
	return f.scopes[def], nil
}

func (f *fakeBodySource) BodyExprs(ctx context.Context, def intern.DefId) ([]index.BodyExpr, error) {
	return f.exprs[def], nil
}

func newInferEngine(t *testing.T, body *fakeBodySource) *query.Engine {
	t.Helper()
	e := query.NewEngine()
	index.RegisterFnScopes(e, body, func(intern.DefId) (intern.FileId, bool) { return 0, false })
	index.RegisterItemMap(e) // unused here but infer always demands item_map
	e.RegisterDerived(index.KindModuleTree, func(ctx context.Context, x *query.Execution, key query.Key) (query.Value, error) {
		return &index.ModuleTree{}, nil
	})
	e.RegisterDerived(index.KindModuleItems, func(ctx context.Context, x *query.Execution, key query.Key) (query.Value, error) {
		return &index.ModuleItems{}, nil
	})
	index.RegisterInfer(e, body, func(intern.DefId) intern.SourceRootId { return 1 })
	return e
}

func TestInferLiteralType(t *testing.T) {
	def := intern.DefId(1)
	body := &fakeBodySource{
		exprs: map[intern.DefId][]index.BodyExpr{
			def: {{Range: index.NodeRange{Start: 0, End: 1}, Literal: "i32"}},
		},
	}
	e := newInferEngine(t, body)

	snap := e.Snapshot()
	defer snap.Release()
	v, err := query.Execute(context.Background(), snap, index.KindInfer, def)
	require.NoError(t, err)

	ir := v.(*index.InferenceResult)
	ty := ir.TypeOf(index.NodeRange{Start: 0, End: 1})
	assert.Equal(t, "i32", ty.Name)
	assert.False(t, ty.Unknown())
}

func TestInferPathResolvesViaScopeBinding(t *testing.T) {
	def := intern.DefId(2)
	litRange := index.NodeRange{Start: 0, End: 1}
	pathRange := index.NodeRange{Start: 10, End: 11}
	body := &fakeBodySource{
		scopes: map[intern.DefId][]index.Scope{
			def: {{Parent: -1, Bindings: []index.Binding{{Name: "x", Range: litRange}}}},
		},
		exprs: map[intern.DefId][]index.BodyExpr{
			def: {
				{Range: litRange, Literal: "i32", Scope: 0},
				{Range: pathRange, PathName: "x", Scope: 0},
			},
		},
	}
	e := newInferEngine(t, body)

	snap := e.Snapshot()
	defer snap.Release()
	v, err := query.Execute(context.Background(), snap, index.KindInfer, def)
	require.NoError(t, err)

	ir := v.(*index.InferenceResult)
	assert.Equal(t, "i32", ir.TypeOf(pathRange).Name)
}

func TestInferUnresolvedPathIsUnknown(t *testing.T) {
	def := intern.DefId(3)
	pathRange := index.NodeRange{Start: 5, End: 6}
	body := &fakeBodySource{
		exprs: map[intern.DefId][]index.BodyExpr{
			def: {{Range: pathRange, PathName: "nope", Scope: 0}},
		},
		scopes: map[intern.DefId][]index.Scope{
			def: {{Parent: -1}},
		},
	}
	e := newInferEngine(t, body)

	snap := e.Snapshot()
	defer snap.Release()
	v, err := query.Execute(context.Background(), snap, index.KindInfer, def)
	require.NoError(t, err)

	ir := v.(*index.InferenceResult)
	assert.True(t, ir.TypeOf(pathRange).Unknown())
}

func TestTypeOfMissingRangeIsUnknown(t *testing.T) {
	ir := &index.InferenceResult{Types: map[index.NodeRange]index.Type{}}
	assert.True(t, ir.TypeOf(index.NodeRange{Start: 0, End: 1}).Unknown())
}
