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

const sampleRust = `
mod sub;
mod inline_mod {
    fn inner() {}
}

struct Widget {
    name: String,
}

enum Color {
    Red,
    Blue,
}

trait Greet {
    fn hello(&self);
}

fn top_level(x: i32) -> i32 {
    x + 1
}

const MAX: i32 = 10;
`

func TestParseAndSymbolsFindsTopLevelItems(t *testing.T) {
	tree, err := syntax.Parse(context.Background(), intern.FileId(1), []byte(sampleRust))
	require.NoError(t, err)
	defer tree.Close()

	symbols, err := tree.Symbols(context.Background())
	require.NoError(t, err)

	byName := make(map[string]index.SymbolKind)
	for _, s := range symbols {
		byName[s.Name] = s.Kind
	}

	assert.Equal(t, index.SymbolKindStruct, byName["Widget"])
	assert.Equal(t, index.SymbolKindEnum, byName["Color"])
	assert.Equal(t, index.SymbolKindTrait, byName["Greet"])
	assert.Equal(t, index.SymbolKindFunction, byName["top_level"])
	assert.Equal(t, index.SymbolKindConst, byName["MAX"])
	assert.Equal(t, index.SymbolKindModule, byName["inline_mod"])
}

func TestModuleDeclsDistinguishesInlineFromDeclOnly(t *testing.T) {
	tree, err := syntax.Parse(context.Background(), intern.FileId(1), []byte(sampleRust))
	require.NoError(t, err)
	defer tree.Close()

	decls, err := tree.ModuleDecls(context.Background())
	require.NoError(t, err)

	byName := make(map[string]bool)
	for _, d := range decls {
		byName[d.Name] = d.Inline
	}
	require.Contains(t, byName, "sub")
	require.Contains(t, byName, "inline_mod")
	assert.False(t, byName["sub"], "mod sub; has no body")
	assert.True(t, byName["inline_mod"], "mod inline_mod { ... } has a body")
}

func TestLinesTracksLineStarts(t *testing.T) {
	offsets := syntax.Lines([]byte("abc\ndef\nghi"))
	assert.Equal(t, []int{0, 4, 8}, offsets)
}

func TestLinesEmptySource(t *testing.T) {
	assert.Equal(t, []int{0}, syntax.Lines(nil))
}
