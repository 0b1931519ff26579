package index

import (
	"context"
	"fmt"
	"sort"

	"github.com/jward/ferrotree/internal/intern"
	"github.com/jward/ferrotree/internal/query"
)

// KindModuleTree is the module_tree(source_root) derived query (spec §4.4).
const KindModuleTree query.Kind = "module_tree"

// KindItemMap is the item_map(source_root) derived query (spec §4.4).
const KindItemMap query.Kind = "item_map"

// KindModuleItems is the input_module_items(ModuleItemsKey) query the
// spec's item_map fixpoint iterates over: one module's locals and imports.
// It is a derived query whose function the host registers, not an input.
const KindModuleItems query.Kind = "input_module_items"

// KindRootFiles is the root_files(source_root) input query: the set of
// files currently registered to a source root. module_tree depends on it
// so that adding or removing a file — e.g. the very file a "mod foo;"
// declaration needed to resolve — invalidates the cached tree, not just an
// edit to a file the tree has already visited.
const KindRootFiles query.Kind = "root_files"

// ModuleItemsKey is the key type for KindModuleItems: a module is
// addressed by (source root, node index within that root's module_tree).
type ModuleItemsKey struct {
	Root   intern.SourceRootId
	Module int
}

// ModuleDecl is one "mod name" item found while walking a file's syntax,
// before it has been resolved to a child file or flagged as a Problem.
type ModuleDecl struct {
	Name   string
	Inline bool // body present in the same file, vs. declaration-only
}

// FileSet is the narrow view module_tree needs of a source root's files and
// syntax, kept this way so internal/index depends on an interface rather
// than on a concrete filesystem/syntax layer (SPEC_FULL §6).
type FileSet interface {
	// CrateRoots returns the file(s) serving as crate roots in the source
	// root.
	CrateRoots() []intern.FileId
	// ModuleDecls returns the "mod name" declarations found in file.
	ModuleDecls(ctx context.Context, file intern.FileId) ([]ModuleDecl, error)
	// Resolve finds the file implementing the submodule named name,
	// declared from file. ok is false if no such file exists; moveTo is
	// then the candidate path for the submodule's file, used both as a
	// NotDirOwner move target and as an unresolved module's candidate.
	Resolve(file intern.FileId, name string) (target intern.FileId, moveTo string, ok bool)
	// IsDirOwner reports whether file is allowed to own a submodule
	// directory (e.g. mod.rs / lib.rs / the file itself for name.rs -> name/).
	IsDirOwner(file intern.FileId) bool
}

// Problem is a module resolution failure recorded alongside the tree
// (spec §4.4).
type Problem struct {
	// Exactly one of UnresolvedModule or NotDirOwner is non-empty/set.
	UnresolvedModulePath string
	// UnresolvedModuleCandidate is the path a new file could be created at
	// to resolve UnresolvedModulePath (spec §7/§8 scenario 4's "fix that
	// creates a file at the candidate path").
	UnresolvedModuleCandidate string
	NotDirOwnerMoveTo         string
	NotDirOwnerCandidate      string
}

func (p Problem) equal(o Problem) bool {
	return p == o
}

// ModuleNode is one module in the tree: a file plus its declared
// submodules, resolved to child node indices where possible.
type ModuleNode struct {
	File     intern.FileId
	Name     string // "" for a crate root
	Children []int  // indices into ModuleTree.Nodes
}

// ModuleTree is the result of module_tree(source_root): every module
// reachable from a crate root through resolved "mod" declarations, linked
// where resolvable, plus the Problems encountered along the way. Files in
// the root that no crate root reaches are not included.
type ModuleTree struct {
	Nodes    []ModuleNode
	Roots    []int // indices into Nodes that are crate roots
	Problems []Problem
}

// Equal gives ModuleTree structural equality for the query engine's
// early-cutoff check: a reparse that doesn't change the discovered module
// shape shouldn't propagate a "changed" signal to item_map.
func (mt *ModuleTree) Equal(v query.Value) bool {
	other, ok := v.(*ModuleTree)
	if !ok || other == nil {
		return false
	}
	if len(mt.Nodes) != len(other.Nodes) || len(mt.Roots) != len(other.Roots) || len(mt.Problems) != len(other.Problems) {
		return false
	}
	for i := range mt.Nodes {
		a, b := mt.Nodes[i], other.Nodes[i]
		if a.File != b.File || a.Name != b.Name || len(a.Children) != len(b.Children) {
			return false
		}
		for j := range a.Children {
			if a.Children[j] != b.Children[j] {
				return false
			}
		}
	}
	for i := range mt.Roots {
		if mt.Roots[i] != other.Roots[i] {
			return false
		}
	}
	for i := range mt.Problems {
		if !mt.Problems[i].equal(other.Problems[i]) {
			return false
		}
	}
	return true
}

// RegisterModuleTree installs the module_tree derived query against e.
// files supplies the FileSet for every source root the query is demanded
// on; in practice this is a single object closing over the whole project's
// layout, since module_tree's key is the source root it's asked about.
func RegisterModuleTree(e *query.Engine, files func(intern.SourceRootId) FileSet) {
	e.RegisterDerived(KindModuleTree, func(ctx context.Context, x *query.Execution, key query.Key) (query.Value, error) {
		root, ok := key.(intern.SourceRootId)
		if !ok {
			return nil, fmt.Errorf("module_tree: key %v is not a SourceRootId", key)
		}
		if _, err := x.Get(ctx, KindRootFiles, root); err != nil {
			return nil, err
		}
		fs := files(root)
		if fs == nil {
			return nil, fmt.Errorf("module_tree: no FileSet for source root %d", root)
		}
		return buildModuleTree(ctx, x, fs)
	})
}

func buildModuleTree(ctx context.Context, x *query.Execution, fs FileSet) (*ModuleTree, error) {
	tree := &ModuleTree{}
	nodeByFile := make(map[intern.FileId]int)

	var visit func(file intern.FileId, name string) (int, error)
	visit = func(file intern.FileId, name string) (int, error) {
		if err := ctx.Err(); err != nil {
			return -1, err
		}
		if idx, ok := nodeByFile[file]; ok {
			return idx, nil
		}
		// Recorded as a real dependency (rather than read straight from the
		// FileSet's backing store) so an edit to file's text invalidates
		// module_tree the next time it's demanded.
		if _, err := x.Get(ctx, KindSourceFile, file); err != nil {
			return -1, fmt.Errorf("module_tree: reading %d: %w", file, err)
		}
		idx := len(tree.Nodes)
		tree.Nodes = append(tree.Nodes, ModuleNode{File: file, Name: name})
		nodeByFile[file] = idx

		decls, err := fs.ModuleDecls(ctx, file)
		if err != nil {
			return -1, fmt.Errorf("module_tree: walking %d: %w", file, err)
		}
		for _, d := range decls {
			if d.Inline {
				// Inline submodules live in the same file; they don't
				// need a separate node unless later queries want to
				// address them individually, which is out of scope here.
				continue
			}
			target, moveTo, ok := fs.Resolve(file, d.Name)
			if !ok {
				if !fs.IsDirOwner(file) && moveTo != "" {
					tree.Problems = append(tree.Problems, Problem{
						NotDirOwnerMoveTo:    moveTo,
						NotDirOwnerCandidate: d.Name,
					})
				} else {
					tree.Problems = append(tree.Problems, Problem{
						UnresolvedModulePath:      d.Name,
						UnresolvedModuleCandidate: moveTo,
					})
				}
				continue
			}
			childIdx, err := visit(target, d.Name)
			if err != nil {
				return -1, err
			}
			tree.Nodes[idx].Children = append(tree.Nodes[idx].Children, childIdx)
		}
		return idx, nil
	}

	for _, root := range fs.CrateRoots() {
		idx, err := visit(root, "")
		if err != nil {
			return nil, err
		}
		tree.Roots = append(tree.Roots, idx)
	}
	return tree, nil
}

// ItemTarget is what a name in item_map resolves to: either a local
// definition or an import pointing at another module's name.
type ItemTarget struct {
	Def        intern.DefId // valid iff !IsImport
	IsImport   bool
	ImportMod  int // module node index the import refers to
	ImportName string
}

func (t ItemTarget) equal(o ItemTarget) bool {
	return t == o
}

// ItemMap is the item_map(source_root) result: for every module (indexed
// the same way as ModuleTree.Nodes), a name -> ItemTarget table.
type ItemMap struct {
	Tables []map[string]ItemTarget // Tables[i] corresponds to ModuleTree.Nodes[i]
}

// Equal gives ItemMap structural equality for early cutoff.
func (im *ItemMap) Equal(v query.Value) bool {
	other, ok := v.(*ItemMap)
	if !ok || other == nil || len(im.Tables) != len(other.Tables) {
		return false
	}
	for i, table := range im.Tables {
		o := other.Tables[i]
		if len(table) != len(o) {
			return false
		}
		for name, target := range table {
			oTarget, ok := o[name]
			if !ok || !target.equal(oTarget) {
				return false
			}
		}
	}
	return true
}

// ModuleItems is one module's raw item list, the input_module_items the
// spec's item_map fixpoint iterates over: local definitions plus
// unresolved "use" references to resolve against sibling modules.
type ModuleItems struct {
	Locals  map[string]intern.DefId
	Imports map[string]struct{ Module, Name string } // local name -> (module path, remote name)
}

func (mi *ModuleItems) Equal(v query.Value) bool {
	other, ok := v.(*ModuleItems)
	if !ok || other == nil {
		return false
	}
	if len(mi.Locals) != len(other.Locals) || len(mi.Imports) != len(other.Imports) {
		return false
	}
	for k, v := range mi.Locals {
		if other.Locals[k] != v {
			return false
		}
	}
	for k, v := range mi.Imports {
		if other.Imports[k] != v {
			return false
		}
	}
	return true
}

// RegisterItemMap installs the item_map derived query, which resolves
// input_module_items (§4.4) in passes until a fixpoint: each pass resolves
// imports whose targets became known in the previous one.
func RegisterItemMap(e *query.Engine) {
	e.RegisterDerived(KindItemMap, func(ctx context.Context, x *query.Execution, key query.Key) (query.Value, error) {
		root, ok := key.(intern.SourceRootId)
		if !ok {
			return nil, fmt.Errorf("item_map: key %v is not a SourceRootId", key)
		}
		treeVal, err := x.Get(ctx, KindModuleTree, root)
		if err != nil {
			return nil, err
		}
		tree, ok := treeVal.(*ModuleTree)
		if !ok {
			return nil, fmt.Errorf("item_map: module_tree(%d) did not return a *ModuleTree", root)
		}

		nameByModule := make(map[int]string, len(tree.Nodes))
		moduleByName := make(map[string]int, len(tree.Nodes))
		for i, n := range tree.Nodes {
			nameByModule[i] = n.Name
			moduleByName[n.Name] = i
		}

		tables := make([]map[string]ItemTarget, len(tree.Nodes))
		pendingImports := make([]map[string]struct{ Module, Name string }, len(tree.Nodes))
		for i := range tree.Nodes {
			if err := x.CheckCancelled(); err != nil {
				return nil, err
			}
			itemsVal, err := x.Get(ctx, KindModuleItems, ModuleItemsKey{Root: root, Module: i})
			if err != nil {
				return nil, err
			}
			items, ok := itemsVal.(*ModuleItems)
			if !ok {
				return nil, fmt.Errorf("item_map: input_module_items(%d,%d) did not return *ModuleItems", root, i)
			}
			table := make(map[string]ItemTarget, len(items.Locals))
			for name, def := range items.Locals {
				table[name] = ItemTarget{Def: def}
			}
			tables[i] = table
			pendingImports[i] = items.Imports
		}

		// Fixpoint: each pass resolves imports whose target module/name is
		// now present in that module's table; stop when a full pass
		// resolves nothing.
		for {
			progressed := false
			for i, imports := range pendingImports {
				for localName, ref := range imports {
					targetMod, ok := moduleByName[ref.Module]
					if !ok {
						continue
					}
					resolved, ok := tables[targetMod][ref.Name]
					if !ok {
						continue
					}
					tables[i][localName] = resolved
					delete(pendingImports[i], localName)
					progressed = true
				}
			}
			if !progressed {
				break
			}
		}
		return &ItemMap{Tables: tables}, nil
	})
}

// SortedModuleNames returns tree's module names in a deterministic order,
// for callers that want to present modules stably rather than in Nodes'
// discovery order.
func SortedModuleNames(tree *ModuleTree) []string {
	names := make([]string, 0, len(tree.Nodes))
	for _, n := range tree.Nodes {
		if n.Name != "" {
			names = append(names, n.Name)
		}
	}
	sort.Strings(names)
	return names
}
