package ferro

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/jward/ferrotree/internal/assist"
	"github.com/jward/ferrotree/internal/index"
	"github.com/jward/ferrotree/internal/intern"
	"github.com/jward/ferrotree/internal/macro"
	"github.com/jward/ferrotree/internal/query"
	"github.com/jward/ferrotree/internal/syntax"
)

// kindSourceFile is the source_file(file_id) -> text input query every
// derived query in internal/index ultimately depends on.
const kindSourceFile = index.KindSourceFile

// kindRootIsLocal is the is_local flag set per source root in
// ChangeSet.NewRoots.
const kindRootIsLocal query.Kind = "root_is_local"

// kindCrateGraph is the crate_graph input query (spec §2 component 3): the
// caller-supplied crate dependency graph, tracked as an engine input like
// any other rather than held in a plain Host field, so crate_for
// participates in snapshot isolation and WriteBatch's write-exclusivity
// protocol instead of racing a bare pointer read/write.
const kindCrateGraph query.Kind = "crate_graph"

// crateGraphKey is the single slot crate_graph is stored at: one graph per
// Host, not one per source root.
type crateGraphKey struct{}

// Host is the analysis façade (spec §4.6): it owns the query engine, the
// interning store, and the concrete external collaborators (syntax,
// macro, assist), and hands out Snapshots, on which the ten façade
// operations are methods.
// Grounded on the teacher's Engine: a functional-options constructor that
// wires several subsystems (store, runtime) behind one entry point,
// generalized from "SQLite store + Risor runtime" to "query engine +
// interning store + syntax/macro/assist collaborators".
type Host struct {
	engine   *query.Engine
	interner *intern.Store
	source   *syntax.Store
	expander *macro.Expander
	assists  *assist.Runner

	mu          sync.RWMutex
	texts       map[intern.FileId]string
	pathByFile  map[intern.FileId]string
	fileByPath  map[string]intern.FileId
	rootByFile  map[intern.FileId]intern.SourceRootId
	filesByRoot map[intern.SourceRootId][]intern.FileId
	defRange    map[intern.DefId]index.NodeRange
}

// Option configures a Host.
type Option func(*Host)

// WithScriptsDir configures the directory internal/macro and
// internal/assist load *.risor scripts from.
func WithScriptsDir(dir string) Option {
	return func(h *Host) {
		h.expander = macro.NewExpander(dir)
		h.assists = assist.NewRunner(dir)
	}
}

// New creates a Host with a fresh query engine, interning store, and the
// default tree-sitter-backed syntax collaborator, wires the indexing
// queries (file_symbols, module_tree, item_map, fn_scopes, infer) against
// the engine, and applies opts.
func New(opts ...Option) *Host {
	h := &Host{
		engine:      query.NewEngine(),
		interner:    intern.NewStore(),
		source:      syntax.NewStore(),
		texts:       make(map[intern.FileId]string),
		pathByFile:  make(map[intern.FileId]string),
		fileByPath:  make(map[string]intern.FileId),
		rootByFile:  make(map[intern.FileId]intern.SourceRootId),
		filesByRoot: make(map[intern.SourceRootId][]intern.FileId),
		defRange:    make(map[intern.DefId]index.NodeRange),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.expander == nil {
		h.expander = macro.NewExpander("scripts")
	}
	if h.assists == nil {
		h.assists = assist.NewRunner("scripts")
	}

	index.RegisterQueries(h.engine, h.source, h.interner, h)
	index.RegisterModuleTree(h.engine, h.fileSetFor)
	h.registerModuleItems()
	index.RegisterItemMap(h.engine)
	index.RegisterFnScopes(h.engine, h, h.fileOfDef)
	index.RegisterInfer(h.engine, h, h.rootOfDef)

	// crate_graph has no registered derived function (it's a pure input,
	// like source_file), so it must carry a value from the start or the
	// very first crate_for demand would panic before any ApplyChange ever
	// supplies a CrateGraph.
	h.engine.Set(kindCrateGraph, crateGraphKey{}, &CrateGraph{})

	return h
}

// registerModuleItems installs the input_module_items derived query
// item_map's fixpoint (index.RegisterItemMap) demands per module: a
// module's locals are its file's own symbols, keyed by name. "use" imports
// aren't parsed by internal/syntax, so every module's Imports table is
// always empty — item_map's fixpoint still runs, it just never has
// anything to resolve.
func (h *Host) registerModuleItems() {
	h.engine.RegisterDerived(index.KindModuleItems, func(ctx context.Context, x *query.Execution, key query.Key) (query.Value, error) {
		mik, ok := key.(index.ModuleItemsKey)
		if !ok {
			return nil, fmt.Errorf("input_module_items: key %v is not a ModuleItemsKey", key)
		}
		treeVal, err := x.Get(ctx, index.KindModuleTree, mik.Root)
		if err != nil {
			return nil, err
		}
		tree, ok := treeVal.(*index.ModuleTree)
		if !ok || mik.Module < 0 || mik.Module >= len(tree.Nodes) {
			return &index.ModuleItems{}, nil
		}

		symVal, err := x.Get(ctx, index.KindFileSymbols, tree.Nodes[mik.Module].File)
		if err != nil {
			return nil, err
		}
		si, ok := symVal.(*index.SymbolIndex)
		if !ok {
			return &index.ModuleItems{}, nil
		}
		locals := make(map[string]intern.DefId, len(si.Entries()))
		for _, fs := range si.Entries() {
			if fs.Symbol.Kind == index.SymbolKindModule {
				// Submodule declarations are tracked by module_tree's own
				// node/child links, not as an item_map entry.
				continue
			}
			locals[fs.Symbol.Name] = fs.Symbol.Def
		}
		return &index.ModuleItems{Locals: locals}, nil
	})
}

// Engine exposes the underlying query engine for callers (cmd/ferro,
// tests) that need to call Snapshot/Set directly rather than through the
// façade's higher-level operations.
func (h *Host) Engine() *query.Engine {
	return h.engine
}

func (h *Host) registerFilePath(file intern.FileId, filePath string, root intern.SourceRootId) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pathByFile[file] = filePath
	h.fileByPath[filePath] = file
	h.rootByFile[file] = root
	h.filesByRoot[root] = append(h.filesByRoot[root], file)
}

func (h *Host) setText(file intern.FileId, text string) {
	h.mu.Lock()
	h.texts[file] = text
	h.mu.Unlock()
}

// RecordSymbols implements index.SymbolRecorder, maintaining the
// DefId -> NodeRange side index ScopesForDef/BodyExprs need to locate a
// function's body in its file's syntax tree.
func (h *Host) RecordSymbols(file intern.FileId, symbols []index.FileSymbol) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, fs := range symbols {
		h.defRange[fs.Symbol.Def] = fs.Symbol.NodeRange
	}
}

// ScopesForDef implements index.FnBodySource.
func (h *Host) ScopesForDef(ctx context.Context, def intern.DefId) ([]index.Scope, error) {
	tree, rng, err := h.parseDefFile(ctx, def)
	if err != nil {
		return nil, err
	}
	defer tree.Close()
	return tree.FunctionScopes(ctx, rng)
}

// BodyExprs implements index.Inferencer.
func (h *Host) BodyExprs(ctx context.Context, def intern.DefId) ([]index.BodyExpr, error) {
	tree, rng, err := h.parseDefFile(ctx, def)
	if err != nil {
		return nil, err
	}
	defer tree.Close()
	return tree.FunctionBodyExprs(ctx, rng)
}

func (h *Host) parseDefFile(ctx context.Context, def intern.DefId) (*syntax.Tree, index.NodeRange, error) {
	loc, ok := h.interner.Lookup(def)
	if !ok {
		return nil, index.NodeRange{}, fmt.Errorf("ferro: unknown def %d", def)
	}
	h.mu.RLock()
	rng, hasRange := h.defRange[def]
	text := h.texts[loc.Item.FileId]
	h.mu.RUnlock()
	if !hasRange {
		return nil, index.NodeRange{}, fmt.Errorf("ferro: no recorded range for def %d", def)
	}
	tree, err := syntax.Parse(ctx, loc.Item.FileId, []byte(text))
	if err != nil {
		return nil, index.NodeRange{}, err
	}
	return tree, rng, nil
}

func (h *Host) unregisterFile(file intern.FileId) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if p, ok := h.pathByFile[file]; ok {
		delete(h.fileByPath, p)
	}
	delete(h.pathByFile, file)
	delete(h.texts, file)
	if root, ok := h.rootByFile[file]; ok {
		files := h.filesByRoot[root]
		for i, f := range files {
			if f == file {
				h.filesByRoot[root] = append(files[:i], files[i+1:]...)
				break
			}
		}
	}
	delete(h.rootByFile, file)
}

// fileSetFor implements index.RegisterModuleTree's files callback,
// returning a Go-convention index.FileSet view of root scoped to h's
// current path bookkeeping.
func (h *Host) fileSetFor(root intern.SourceRootId) index.FileSet {
	return &hostFileSet{host: h, root: root}
}

func (h *Host) rootOf(file intern.FileId) intern.SourceRootId {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rootByFile[file]
}

func (h *Host) pathOf(file intern.FileId) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.pathByFile[file]
}

func (h *Host) textOf(file intern.FileId) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.texts[file]
}

// Text returns file's current text, for callers (cmd/ferro's diff
// preview) that need to render a SourceChange against the text it was
// computed from rather than re-reading the file from disk.
func (h *Host) Text(file intern.FileId) string {
	return h.textOf(file)
}

// Path returns file's registered path, or "" if unknown.
func (h *Host) Path(file intern.FileId) string {
	return h.pathOf(file)
}

func (h *Host) rootOfDef(def intern.DefId) intern.SourceRootId {
	loc, ok := h.interner.Lookup(def)
	if !ok {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rootByFile[loc.Item.FileId]
}

// fileOfDef implements RegisterFnScopes' fileOfDef callback, resolving def
// to the file its DefLoc was interned against.
func (h *Host) fileOfDef(def intern.DefId) (intern.FileId, bool) {
	loc, ok := h.interner.Lookup(def)
	if !ok {
		return 0, false
	}
	return loc.Item.FileId, true
}

// rootFiles returns a snapshot copy of root's currently registered files,
// for ApplyChange to publish as the root_files input after it updates
// filesByRoot.
func (h *Host) rootFiles(root intern.SourceRootId) []intern.FileId {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]intern.FileId(nil), h.filesByRoot[root]...)
}

// hostFileSet adapts Host's path bookkeeping plus internal/syntax parsing
// to index.FileSet, the narrow layout view module_tree needs.
type hostFileSet struct {
	host *Host
	root intern.SourceRootId
}

func (fs *hostFileSet) CrateRoots() []intern.FileId {
	fs.host.mu.RLock()
	defer fs.host.mu.RUnlock()
	var roots []intern.FileId
	for _, f := range fs.host.filesByRoot[fs.root] {
		switch path.Base(fs.host.pathByFile[f]) {
		case "lib.rs", "main.rs":
			roots = append(roots, f)
		}
	}
	return roots
}

func (fs *hostFileSet) ModuleDecls(ctx context.Context, file intern.FileId) ([]index.ModuleDecl, error) {
	fs.host.mu.RLock()
	text := fs.host.texts[file]
	fs.host.mu.RUnlock()
	return syntax.ModuleDeclsOf(ctx, file, text)
}

// Resolve implements the spec's §4.4 declaration-to-file resolution: a
// "mod name" in a file whose path is dir/stem.rs resolves to the first
// existing one of dir/name.rs, dir/stem/name.rs (skipped when stem is mod,
// lib or main) and dir/name/mod.rs. When none exists it reports
// dir/stem/name.rs as the candidate path.
func (fs *hostFileSet) Resolve(file intern.FileId, name string) (intern.FileId, string, bool) {
	fs.host.mu.RLock()
	defer fs.host.mu.RUnlock()
	p, ok := fs.host.pathByFile[file]
	if !ok {
		return 0, "", false
	}
	dir := path.Dir(p)
	stem := strings.TrimSuffix(path.Base(p), ".rs")

	if target, ok := fs.host.fileByPath[path.Join(dir, name+".rs")]; ok {
		return target, "", true
	}
	if stem != "mod" && stem != "lib" && stem != "main" {
		if target, ok := fs.host.fileByPath[path.Join(dir, stem, name+".rs")]; ok {
			return target, "", true
		}
	}
	if target, ok := fs.host.fileByPath[path.Join(dir, name, "mod.rs")]; ok {
		return target, "", true
	}

	moveTo := path.Join(dir, stem, name+".rs")
	return 0, moveTo, false
}

// IsDirOwner implements the 2018-edition "name.rs owns name/" convention,
// with the one disallowed case: a file already reached as dir/stem/stem.rs
// cannot itself own a further stem/ subdirectory (ambiguous with a
// dir/stem/mod.rs sibling) — the source of a genuine NotDirOwner problem.
func (fs *hostFileSet) IsDirOwner(file intern.FileId) bool {
	fs.host.mu.RLock()
	defer fs.host.mu.RUnlock()
	p := fs.host.pathByFile[file]
	base := path.Base(p)
	switch base {
	case "mod.rs", "lib.rs", "main.rs":
		return true
	}
	stem := strings.TrimSuffix(base, ".rs")
	parentDir := path.Base(path.Dir(p))
	return parentDir != stem
}
