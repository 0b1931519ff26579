package index

import (
	"strings"

	"github.com/jward/ferrotree/internal/intern"
	"github.com/jward/ferrotree/internal/query"
)

// SymbolIndex is the spec's §3/§4.3 symbol index: a sorted (FileId, Symbol)
// vector plus an FST from lowercased name to index into that vector.
// Per-file indices (file_symbols) and whole-library indices
// (library_symbols) share exactly this shape, as the spec requires.
type SymbolIndex struct {
	entries []FileSymbol // sorted by lowercased name, duplicates collapsed
	fst     *vellumOrNil // nil only for an empty index
}

// vellumOrNil avoids importing vellum's concrete type into this file's
// public surface; see fst.go for the type itself.
type vellumOrNil = fstHandle

// Equal gives SymbolIndex structural, not pointer, equality for the query
// engine's early-cutoff check (spec §9 "Equality-based cutoff") — two
// indices built from identical symbol sets compare equal even if they are
// different *SymbolIndex values, so an edit that doesn't change a file's
// symbol set doesn't propagate a "changed" signal to item_map/scopes/infer.
func (si *SymbolIndex) Equal(v query.Value) bool {
	other, ok := v.(*SymbolIndex)
	if !ok || other == nil {
		return false
	}
	if len(si.entries) != len(other.entries) {
		return false
	}
	for i := range si.entries {
		if !si.entries[i].equal(other.entries[i]) {
			return false
		}
	}
	return true
}

// BuildSymbolIndex sorts symbols by lowercased name, collapses adjacent
// duplicates (first wins — spec §4.3 dedup rule), and builds the backing
// FST. symbols need not be pre-sorted.
func BuildSymbolIndex(symbols []FileSymbol) (*SymbolIndex, error) {
	if len(symbols) == 0 {
		return &SymbolIndex{}, nil
	}
	names := make([]string, len(symbols))
	for i, fs := range symbols {
		names[i] = strings.ToLower(fs.Symbol.Name)
	}
	fst, order, err := buildFST(names)
	if err != nil {
		return nil, err
	}
	entries := make([]FileSymbol, len(order))
	for i, origIdx := range order {
		entries[i] = symbols[origIdx]
	}
	return &SymbolIndex{entries: entries, fst: wrapFST(fst)}, nil
}

// Query is the spec's §4.3 search request shape.
type Query struct {
	Text      string
	Exact     bool
	OnlyTypes bool
	Limit     int
	Libs      bool // search library indices instead of local-root file indices
}

// Search streams matches for q out of si, applying the filters and limit
// spec §4.3 step 5-6 describe, in the union order the transducer produces
// (not a relevance ranking — spec is explicit results are unordered beyond
// that).
func (si *SymbolIndex) Search(q Query) []FileSymbol {
	if si == nil || si.fst == nil || q.Text == "" {
		return nil
	}
	needle := strings.ToLower(q.Text)
	var out []FileSymbol
	si.fst.search(needle, func(idx uint64) bool {
		fs := si.entries[idx]
		if q.OnlyTypes && !fs.Symbol.Kind.IsTypeDefining() {
			return true // keep streaming
		}
		if q.Exact && fs.Symbol.Name != q.Text {
			return true
		}
		out = append(out, fs)
		return len(out) < q.Limit || q.Limit <= 0
	})
	return out
}

// Entries returns the index's sorted, deduplicated (FileId, Symbol) pairs,
// for callers (module tree / item map construction) that need the full set
// rather than a filtered search.
func (si *SymbolIndex) Entries() []FileSymbol {
	if si == nil {
		return nil
	}
	return si.entries
}

// MergeSearch unions the search results of several indices, stopping once
// limit accepted results have been collected across all of them — spec
// §4.3 step 3-4's "stream matches... merge streams by union."
func MergeSearch(indices []*SymbolIndex, q Query) []FileSymbol {
	var out []FileSymbol
	limit := q.Limit
	for _, si := range indices {
		if limit > 0 && len(out) >= limit {
			break
		}
		remaining := q
		if limit > 0 {
			remaining.Limit = limit - len(out)
		}
		out = append(out, si.Search(remaining)...)
	}
	return out
}

// FileSymbolsKey is the key type for the file_symbols derived query.
type FileSymbolsKey = intern.FileId

// LibrarySymbolsKey is the key type for the library_symbols input query.
type LibrarySymbolsKey = intern.SourceRootId
