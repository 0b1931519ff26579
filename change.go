package ferro

import (
	"reflect"
	"sort"

	"github.com/jward/ferrotree/internal/index"
	"github.com/jward/ferrotree/internal/intern"
	"github.com/jward/ferrotree/internal/query"
)

// RootChange describes files added to or removed from a source root, one
// entry of ChangeSet.RootsChanged (spec §6).
type RootChange struct {
	Added   []AddedFile
	Removed []intern.FileId
}

// AddedFile is one file newly belonging to a source root.
type AddedFile struct {
	File intern.FileId
	Path string
	Text string
}

// LibraryAdded ships a pre-built library symbol index as an input value
// (spec §6 "libraries ship their pre-built symbol index as an input
// value") rather than something computed from source, matching §4.3's
// framing of library_symbols as an input query.
type LibraryAdded struct {
	Root        intern.SourceRootId
	SymbolIndex *index.SymbolIndex
	RootChange  RootChange
}

// ChangeSet is the single atomic mutation unit accepted by ApplyChange
// (spec §6). Every field is optional; a zero-value field leaves its
// corresponding inputs untouched. Grounded on the teacher's batch-commit
// shape (internal/store's CommitBatch, invoked once per parallel worker's
// results) but generalized to the host's full input surface rather than
// just symbols/scopes/references.
type ChangeSet struct {
	NewRoots       []NewRoot
	RootsChanged   map[intern.SourceRootId]RootChange
	FilesChanged   map[intern.FileId]string
	LibrariesAdded []LibraryAdded
	CrateGraph     *CrateGraph
}

// NewRoot declares a source root (spec §6 "new_roots").
type NewRoot struct {
	Root    intern.SourceRootId
	IsLocal bool
}

// CrateGraph is an opaque, caller-supplied crate dependency graph; the
// core only threads it through to crate_for, it never interprets crate
// dependency edges itself (spec §4's "leaves" framing — crate topology is
// an input, not something the core computes). Stored as the crate_graph
// engine input (see host.go's kindCrateGraph) rather than a plain Host
// field, so reads go through Snapshot isolation instead of racing a write.
type CrateGraph struct {
	Crates map[intern.CrateId][]intern.SourceRootId
}

// Equal gives CrateGraph the query.Value shape crate_graph's input slot
// needs. reflect.DeepEqual is fine here: ApplyChange only happens on an
// explicit CrateGraph change, not on every batch, so this isn't a hot path
// the way file_symbols/infer's hand-rolled Equal methods are.
func (cg *CrateGraph) Equal(v query.Value) bool {
	other, ok := v.(*CrateGraph)
	if !ok || other == nil {
		return false
	}
	return reflect.DeepEqual(cg.Crates, other.Crates)
}

// ApplyChange applies set as one atomic mutation (spec §6): the engine's
// revision advances exactly once regardless of how many inputs were
// touched, via query.Engine.WriteBatch.
func (h *Host) ApplyChange(set ChangeSet) {
	var pending []query.PendingSet

	for _, nr := range set.NewRoots {
		pending = append(pending, query.PendingSet{
			Kind: kindRootIsLocal, Key: nr.Root, Value: query.Bool(nr.IsLocal),
		})
		// root_files needs a value from the moment the root exists, or a
		// module_tree demand before any RootsChanged for it would panic on
		// an unset input (see host.go's kindCrateGraph comment for why).
		pending = append(pending, query.PendingSet{
			Kind: index.KindRootFiles, Key: nr.Root, Value: query.Opaque{V: sortedFileIds(h.rootFiles(nr.Root))},
		})
	}

	for root, rc := range set.RootsChanged {
		for _, f := range rc.Added {
			pending = append(pending, query.PendingSet{Kind: kindSourceFile, Key: f.File, Value: query.Text(f.Text)})
			h.registerFilePath(f.File, f.Path, root)
			h.setText(f.File, f.Text)
		}
		for _, f := range rc.Removed {
			pending = append(pending, query.PendingSet{Kind: kindSourceFile, Key: f, Value: query.Text("")})
			h.unregisterFile(f)
		}
		// module_tree depends on root_files (modules.go's RegisterModuleTree),
		// so publishing the post-change membership here is what makes a
		// newly added file — the one a previously unresolved "mod foo;"
		// needed — actually invalidate the cached tree.
		pending = append(pending, query.PendingSet{
			Kind: index.KindRootFiles, Key: root, Value: query.Opaque{V: sortedFileIds(h.rootFiles(root))},
		})
	}

	for file, text := range set.FilesChanged {
		pending = append(pending, query.PendingSet{Kind: kindSourceFile, Key: file, Value: query.Text(text)})
		h.setText(file, text)
	}

	for _, lib := range set.LibrariesAdded {
		pending = append(pending, query.PendingSet{
			Kind: index.KindLibrarySymbols, Key: intern.SourceRootId(lib.Root), Value: lib.SymbolIndex, Durable: true,
		})
		for _, f := range lib.RootChange.Added {
			h.registerFilePath(f.File, f.Path, lib.Root)
		}
	}

	if set.CrateGraph != nil {
		pending = append(pending, query.PendingSet{Kind: kindCrateGraph, Key: crateGraphKey{}, Value: set.CrateGraph})
	}

	if len(pending) > 0 {
		h.engine.WriteBatch(pending)
	}
}

// sortedFileIds returns a deterministically ordered copy of fs, so
// root_files' Opaque value compares equal across recomputations that
// didn't actually change membership (early cutoff relies on this).
func sortedFileIds(fs []intern.FileId) []intern.FileId {
	out := append([]intern.FileId(nil), fs...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
