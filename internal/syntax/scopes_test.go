package syntax_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/ferrotree/internal/index"
	"github.com/jward/ferrotree/internal/intern"
	"github.com/jward/ferrotree/internal/syntax"
)

const fnSource = `
fn compute(x: i32) -> i32 {
    let y = x + 1;
    {
        let z = y;
        z
    }
}
`

func functionRange(t *testing.T, tree *syntax.Tree, name string) index.NodeRange {
	t.Helper()
	symbols, err := tree.Symbols(context.Background())
	require.NoError(t, err)
	for _, s := range symbols {
		if s.Name == name && s.Kind == index.SymbolKindFunction {
			return s.NodeRange
		}
	}
	t.Fatalf("function %q not found", name)
	return index.NodeRange{}
}

func TestFunctionScopesCollectsParamAndLetBindings(t *testing.T) {
	tree, err := syntax.Parse(context.Background(), intern.FileId(1), []byte(fnSource))
	require.NoError(t, err)
	defer tree.Close()

	rng := functionRange(t, tree, "compute")
	scopes, err := tree.FunctionScopes(context.Background(), rng)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(scopes), 3, "expected param scope + outer block + inner block")

	assert.Equal(t, -1, scopes[0].Parent)
	require.Len(t, scopes[0].Bindings, 1)
	assert.Equal(t, "x", scopes[0].Bindings[0].Name)

	// The outer function body block should bind y.
	var foundY, foundZ bool
	for i, s := range scopes {
		for _, b := range s.Bindings {
			if b.Name == "y" {
				foundY = true
				assert.Equal(t, 0, s.Parent, "y's scope should be the top-level block, child of the param scope")
			}
			if b.Name == "z" {
				foundZ = true
				assert.NotEqual(t, 0, i, "z's scope should be the nested block, not the param scope")
			}
		}
	}
	assert.True(t, foundY, "expected a binding for y")
	assert.True(t, foundZ, "expected a binding for z")
}

func TestFunctionBodyExprsCollectsPathsAndLiterals(t *testing.T) {
	tree, err := syntax.Parse(context.Background(), intern.FileId(1), []byte(fnSource))
	require.NoError(t, err)
	defer tree.Close()

	rng := functionRange(t, tree, "compute")
	exprs, err := tree.FunctionBodyExprs(context.Background(), rng)
	require.NoError(t, err)

	var sawX, sawLiteral bool
	for _, e := range exprs {
		if e.PathName == "x" {
			sawX = true
		}
		if e.Literal == "i32" {
			sawLiteral = true
		}
	}
	assert.True(t, sawX, "expected a path reference to x")
	assert.True(t, sawLiteral, "expected the integer literal 1 to be collected")
}

func TestFunctionScopesErrorsWhenRangeNotFound(t *testing.T) {
	tree, err := syntax.Parse(context.Background(), intern.FileId(1), []byte(fnSource))
	require.NoError(t, err)
	defer tree.Close()

	_, err = tree.FunctionScopes(context.Background(), index.NodeRange{Start: 9999, End: 10000})
	assert.Error(t, err)
}

func TestModuleDeclsOfAndFileSymbolsOf(t *testing.T) {
	store := syntax.NewStore()
	symbols, err := store.FileSymbols(context.Background(), intern.FileId(1), "fn foo() {}")
	require.NoError(t, err)
	require.Len(t, symbols, 1)
	assert.Equal(t, "foo", symbols[0].Name)

	decls, err := syntax.ModuleDeclsOf(context.Background(), intern.FileId(1), "mod bar;")
	require.NoError(t, err)
	require.Len(t, decls, 1)
	assert.Equal(t, "bar", decls[0].Name)
}
