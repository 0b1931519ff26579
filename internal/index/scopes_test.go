package index_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jward/ferrotree/internal/index"
)

func TestScopeTreeChainWalksToRoot(t *testing.T) {
	st := &index.ScopeTree{
		Scopes: []index.Scope{
			{Parent: -1},
			{Parent: 0},
			{Parent: 1},
		},
	}
	assert.Equal(t, []int{2, 1, 0}, st.Chain(2))
}

func TestScopeTreeResolveHonorsShadowing(t *testing.T) {
	st := &index.ScopeTree{
		Scopes: []index.Scope{
			{Parent: -1, Bindings: []index.Binding{{Name: "x", Range: index.NodeRange{Start: 0, End: 1}}}},
			{Parent: 0, Bindings: []index.Binding{{Name: "x", Range: index.NodeRange{Start: 10, End: 11}}}},
		},
	}
	b, ok := st.Resolve(1, "x")
	assert.True(t, ok)
	assert.Equal(t, index.NodeRange{Start: 10, End: 11}, b.Range, "innermost binding should win")
}

func TestScopeTreeResolveFallsThroughToOuterScope(t *testing.T) {
	st := &index.ScopeTree{
		Scopes: []index.Scope{
			{Parent: -1, Bindings: []index.Binding{{Name: "y", Range: index.NodeRange{Start: 0, End: 1}}}},
			{Parent: 0, Bindings: nil},
		},
	}
	b, ok := st.Resolve(1, "y")
	assert.True(t, ok)
	assert.Equal(t, "y", b.Name)
}

func TestScopeTreeResolveMissing(t *testing.T) {
	st := &index.ScopeTree{Scopes: []index.Scope{{Parent: -1}}}
	_, ok := st.Resolve(0, "nope")
	assert.False(t, ok)
}

func TestScopeTreeEqual(t *testing.T) {
	a := &index.ScopeTree{Scopes: []index.Scope{{Parent: -1, Bindings: []index.Binding{{Name: "x"}}}}}
	b := &index.ScopeTree{Scopes: []index.Scope{{Parent: -1, Bindings: []index.Binding{{Name: "x"}}}}}
	c := &index.ScopeTree{Scopes: []index.Scope{{Parent: -1, Bindings: []index.Binding{{Name: "y"}}}}}
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}
