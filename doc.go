// Package ferro implements an incremental analysis core for an
// IDE-oriented code analyzer: a demand-driven, memoized query engine
// (internal/query) carrying a code-indexing subsystem (internal/index) on
// top of it, exposed through the Host façade this package defines.
//
// # Pipeline
//
// ferro has no extract/resolve phases over a persisted store. Instead it
// holds everything as (query_kind, key) -> value slots in memory:
//
//  1. ApplyChange feeds new or edited file text, source-root membership,
//     pre-built library symbol indices, and crate-graph edges into the
//     engine's input slots as one atomic batch, advancing the engine's
//     revision by exactly one.
//
//  2. Snapshot takes a read-only, cancellation-aware view of the current
//     revision. Derived queries (file_symbols, module_tree, item_map,
//     fn_scopes, infer) run lazily against a snapshot and memoize their
//     result; a later ApplyChange invalidates only the queries whose
//     recorded dependencies actually changed value, not everything
//     downstream of a touched file.
//
// # Usage
//
//	h := ferro.New(ferro.WithScriptsDir("scripts"))
//	h.ApplyChange(ferro.ChangeSet{
//		NewRoots: []ferro.NewRoot{{Root: root, IsLocal: true}},
//		RootsChanged: map[intern.SourceRootId]ferro.RootChange{
//			root: {Added: []ferro.AddedFile{{File: file, Path: "src/lib.rs", Text: text}}},
//		},
//	})
//
//	snap := h.Snapshot()
//	defer snap.Release()
//	syms, err := snap.WorldSymbols(ctx, index.Query{Text: "parse", Limit: 20})
//
// # Façade operations
//
// [Host.Snapshot] returns a [Snapshot] carrying the ten analysis
// operations:
//
//   - [Snapshot.WorldSymbols] — fuzzy symbol search across the workspace
//     or its libraries.
//   - [Snapshot.ParentModule] — the "mod" declaration that brought a file's
//     module into the tree.
//   - [Snapshot.CrateFor] — which crates a source root belongs to.
//   - [Snapshot.Completions] — visible bindings and resolvable item names
//     at a position.
//   - [Snapshot.ApproximatelyResolveSymbol] — best-effort go-to-definition.
//   - [Snapshot.FindAllRefs] — every reference to a binding within its
//     enclosing function.
//   - [Snapshot.Diagnostics] — module resolution problems for a file.
//   - [Snapshot.Assists] — applicable editor assists at a range.
//   - [Snapshot.ResolveCallable] — signature help at a call site.
//   - [Snapshot.TypeOf] — the best-effort inferred type at a range.
//
// # Scripts
//
// Macro expansion and editor assists are implemented as Risor scripts
// under the configured scripts directory:
//
//   - scripts/expand/{name}.risor — macro expansion scripts
//   - scripts/assist/{name}.risor — editor assist scripts
//
// Scripts receive plain text and offsets, never a syntax-tree proxy or a
// store handle; internal/macro and internal/assist are pure functions
// over text, independent of the query engine.
package ferro
