package index_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/ferrotree/internal/index"
	"github.com/jward/ferrotree/internal/intern"
)

func sym(file intern.FileId, name string, kind index.SymbolKind) index.FileSymbol {
	return index.FileSymbol{File: file, Symbol: index.Symbol{Name: name, Kind: kind}}
}

func TestBuildSymbolIndexEmpty(t *testing.T) {
	si, err := index.BuildSymbolIndex(nil)
	require.NoError(t, err)
	assert.Empty(t, si.Entries())
	assert.Nil(t, si.Search(index.Query{Text: "x"}))
}

func TestSymbolIndexSearchCaseInsensitive(t *testing.T) {
	si, err := index.BuildSymbolIndex([]index.FileSymbol{
		sym(1, "Widget", index.SymbolKindStruct),
		sym(2, "widgetFactory", index.SymbolKindFunction),
	})
	require.NoError(t, err)

	got := si.Search(index.Query{Text: "widget"})
	assert.Len(t, got, 2)
}

func TestSymbolIndexSearchExact(t *testing.T) {
	si, err := index.BuildSymbolIndex([]index.FileSymbol{
		sym(1, "Widget", index.SymbolKindStruct),
		sym(2, "widgetFactory", index.SymbolKindFunction),
	})
	require.NoError(t, err)

	got := si.Search(index.Query{Text: "Widget", Exact: true})
	require.Len(t, got, 1)
	assert.Equal(t, "Widget", got[0].Symbol.Name)
}

func TestSymbolIndexSearchOnlyTypes(t *testing.T) {
	si, err := index.BuildSymbolIndex([]index.FileSymbol{
		sym(1, "widget", index.SymbolKindStruct),
		sym(2, "widgetFn", index.SymbolKindFunction),
	})
	require.NoError(t, err)

	got := si.Search(index.Query{Text: "widget", OnlyTypes: true})
	require.Len(t, got, 1)
	assert.Equal(t, index.SymbolKindStruct, got[0].Symbol.Kind)
}

func TestSymbolIndexSearchLimit(t *testing.T) {
	si, err := index.BuildSymbolIndex([]index.FileSymbol{
		sym(1, "widgetA", index.SymbolKindFunction),
		sym(2, "widgetB", index.SymbolKindFunction),
		sym(3, "widgetC", index.SymbolKindFunction),
	})
	require.NoError(t, err)

	got := si.Search(index.Query{Text: "widget", Limit: 2})
	assert.Len(t, got, 2)
}

func TestSymbolIndexDedupesDuplicates(t *testing.T) {
	si, err := index.BuildSymbolIndex([]index.FileSymbol{
		sym(1, "widget", index.SymbolKindStruct),
		sym(1, "widget", index.SymbolKindStruct),
	})
	require.NoError(t, err)
	assert.Len(t, si.Entries(), 1)
}

func TestSymbolIndexEqual(t *testing.T) {
	a, err := index.BuildSymbolIndex([]index.FileSymbol{sym(1, "widget", index.SymbolKindStruct)})
	require.NoError(t, err)
	b, err := index.BuildSymbolIndex([]index.FileSymbol{sym(1, "widget", index.SymbolKindStruct)})
	require.NoError(t, err)
	c, err := index.BuildSymbolIndex([]index.FileSymbol{sym(1, "gadget", index.SymbolKindStruct)})
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestMergeSearchUnionsAcrossIndices(t *testing.T) {
	a, err := index.BuildSymbolIndex([]index.FileSymbol{sym(1, "widgetA", index.SymbolKindFunction)})
	require.NoError(t, err)
	b, err := index.BuildSymbolIndex([]index.FileSymbol{sym(2, "widgetB", index.SymbolKindFunction)})
	require.NoError(t, err)

	got := index.MergeSearch([]*index.SymbolIndex{a, b}, index.Query{Text: "widget"})
	assert.Len(t, got, 2)
}

func TestMergeSearchRespectsLimitAcrossIndices(t *testing.T) {
	a, err := index.BuildSymbolIndex([]index.FileSymbol{sym(1, "widgetA", index.SymbolKindFunction)})
	require.NoError(t, err)
	b, err := index.BuildSymbolIndex([]index.FileSymbol{sym(2, "widgetB", index.SymbolKindFunction)})
	require.NoError(t, err)

	got := index.MergeSearch([]*index.SymbolIndex{a, b}, index.Query{Text: "widget", Limit: 1})
	assert.Len(t, got, 1)
}

func TestIsTypeDefining(t *testing.T) {
	assert.True(t, index.SymbolKindStruct.IsTypeDefining())
	assert.True(t, index.SymbolKindTrait.IsTypeDefining())
	assert.False(t, index.SymbolKindFunction.IsTypeDefining())
}
