package syntax

import (
	"context"

	"github.com/jward/ferrotree/internal/index"
	"github.com/jward/ferrotree/internal/intern"
)

// Store adapts this package's Parse/Symbols functions to
// index.SourceStore, the narrow interface the indexing queries depend on.
// It holds no state of its own: every file's text comes from the caller
// (the query engine's source_file input), matching the spec's framing of
// the syntax tree as a pure function of that text, not a thing with its
// own cache.
type Store struct{}

// NewStore returns a Store. It takes no arguments because Parse is a pure
// function of (file, text); there is nothing to configure.
func NewStore() *Store {
	return &Store{}
}

// FileSymbols implements index.SourceStore.
func (s *Store) FileSymbols(ctx context.Context, file intern.FileId, text string) ([]index.Symbol, error) {
	tree, err := Parse(ctx, file, []byte(text))
	if err != nil {
		return nil, err
	}
	defer tree.Close()
	return tree.Symbols(ctx)
}

// ModuleDeclsOf parses text and returns its "mod name" declarations, for
// Host's index.FileSet implementation to call against each file's current
// text.
func ModuleDeclsOf(ctx context.Context, file intern.FileId, text string) ([]index.ModuleDecl, error) {
	tree, err := Parse(ctx, file, []byte(text))
	if err != nil {
		return nil, err
	}
	defer tree.Close()
	return tree.ModuleDecls(ctx)
}
