package ferro

import (
	"context"
	"fmt"
	"strings"

	"github.com/jward/ferrotree/internal/assist"
	"github.com/jward/ferrotree/internal/index"
	"github.com/jward/ferrotree/internal/intern"
)

// FilePosition is a single byte offset into a file, the input shape for
// most façade operations (spec §4.6).
type FilePosition struct {
	File   intern.FileId
	Offset int
}

// FileRange is a byte span within a file.
type FileRange struct {
	File       intern.FileId
	Start, End int
}

// CompletionItem is one candidate the `completions` operation offers.
type CompletionItem struct {
	Label string
	Kind  index.SymbolKind
}

// Resolution is the result of approximately_resolve_symbol: zero, one, or
// (rarely) more candidate definitions, plus whether they came from an
// index lookup. Every Resolution ApproximatelyResolveSymbol returns has
// ViaIndex set, since its candidates always come from the symbol index.
type Resolution struct {
	Defs     []intern.DefId
	ViaIndex bool
}

// RefResult is find_all_refs' output: the resolved binding's range plus
// every identifier in the same function's body spelled like the binding.
// Which binding each of those resolves to is not checked, so uses of a
// shadowing binding with the same name are included too.
type RefResult struct {
	Binding FileRange
	Refs    []FileRange
}

// Diagnostic is one diagnostic record (spec §7): severity, range, message,
// and an optional fix expressed as a SourceChange.
type Diagnostic struct {
	Severity string
	Range    FileRange
	Message  string
	Fix      *SourceChange
}

// FileOpKind distinguishes the file-system-level operations a SourceChange
// can carry alongside its text edits (spec §7 "file-text edits plus
// file-system operations — create/move/delete").
type FileOpKind string

const (
	FileOpCreate FileOpKind = "create"
	FileOpMove   FileOpKind = "move"
	FileOpDelete FileOpKind = "delete"
)

// FileOp is one file-system-level operation: creating, moving, or deleting
// a file, as opposed to a text edit within one.
type FileOp struct {
	Kind FileOpKind
	Path string // the file being created/moved/deleted
	// NewPath is the destination path; only meaningful for FileOpMove.
	NewPath string
	// Text is the new file's initial contents; only meaningful for
	// FileOpCreate.
	Text string
}

// SourceChange is a named set of edits to one file plus any file-system
// operations (create/move/delete) the fix requires, the shape `assists`
// and a diagnostic's optional fix both return (spec §7).
type SourceChange struct {
	File  intern.FileId
	Label string
	Edits []assist.TextEdit
	Ops   []FileOp
}

// Signature is resolve_callable's result: the resolved function's
// definition plus which parameter the cursor is currently in.
type Signature struct {
	Def              intern.DefId
	CurrentParameter int
}

// WorldSymbols implements the `world_symbols` operation (spec §4.6/§4.3):
// searches every local-root file index (or every library index, when
// q.Libs) in scope and merges matches.
func (s *Snapshot) WorldSymbols(ctx context.Context, q index.Query) ([]index.FileSymbol, error) {
	if err := s.checkCancelled(); err != nil {
		return nil, err
	}
	files := s.host.filesInScope(q.Libs)
	var indices []*index.SymbolIndex
	for _, f := range files {
		if err := s.checkCancelled(); err != nil {
			return nil, err
		}
		kind, key := index.KindFileSymbols, any(f)
		if q.Libs {
			kind, key = index.KindLibrarySymbols, any(intern.SourceRootId(f))
		}
		v, err := s.get(ctx, kind, key)
		if err != nil {
			return nil, err
		}
		if si, ok := v.(*index.SymbolIndex); ok {
			indices = append(indices, si)
		}
	}
	return index.MergeSearch(indices, q), nil
}

// filesInScope returns either every known local file or every known
// library-root key, for WorldSymbols to iterate. Library indices are
// keyed by SourceRootId rather than FileId, so libs=true returns root ids
// converted to FileId, which WorldSymbols converts back to SourceRootId
// keys for library_symbols.
func (h *Host) filesInScope(libs bool) []intern.FileId {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if libs {
		out := make([]intern.FileId, 0, len(h.filesByRoot))
		for root := range h.filesByRoot {
			out = append(out, intern.FileId(root))
		}
		return out
	}
	out := make([]intern.FileId, 0, len(h.pathByFile))
	for f := range h.pathByFile {
		out = append(out, f)
	}
	return out
}

// ParentModule implements `parent_module` (spec §4.6): at most one
// (FileId, Symbol) — the "mod <name>" declaration in the parent that
// brought pos.File's module into the tree.
func (s *Snapshot) ParentModule(ctx context.Context, pos FilePosition) ([]index.FileSymbol, error) {
	if err := s.checkCancelled(); err != nil {
		return nil, err
	}
	root := s.host.rootOf(pos.File)
	treeVal, err := s.get(ctx, index.KindModuleTree, root)
	if err != nil {
		return nil, err
	}
	tree, ok := treeVal.(*index.ModuleTree)
	if !ok {
		return nil, fmt.Errorf("parent_module: module_tree did not return *ModuleTree")
	}

	childIdx := -1
	for i, n := range tree.Nodes {
		if n.File == pos.File {
			childIdx = i
			break
		}
	}
	if childIdx < 0 {
		return nil, nil
	}
	parentIdx, childName := -1, tree.Nodes[childIdx].Name
	for i, n := range tree.Nodes {
		for _, c := range n.Children {
			if c == childIdx {
				parentIdx = i
			}
		}
	}
	if parentIdx < 0 || childName == "" {
		return nil, nil
	}

	symVal, err := s.get(ctx, index.KindFileSymbols, tree.Nodes[parentIdx].File)
	if err != nil {
		return nil, err
	}
	si, ok := symVal.(*index.SymbolIndex)
	if !ok {
		return nil, nil
	}
	for _, fs := range si.Entries() {
		if fs.Symbol.Kind == index.SymbolKindModule && fs.Symbol.Name == childName {
			return []index.FileSymbol{fs}, nil
		}
	}
	return nil, nil
}

// CrateFor implements `crate_for` (spec §4.6): every crate whose graph
// includes file's source root.
func (s *Snapshot) CrateFor(ctx context.Context, file intern.FileId) ([]intern.CrateId, error) {
	if err := s.checkCancelled(); err != nil {
		return nil, err
	}
	cgVal, err := s.get(ctx, kindCrateGraph, crateGraphKey{})
	if err != nil {
		return nil, err
	}
	cg, ok := cgVal.(*CrateGraph)
	if !ok || cg == nil {
		return nil, nil
	}
	root := s.host.rootOf(file)
	var out []intern.CrateId
	for crate, roots := range cg.Crates {
		for _, r := range roots {
			if r == root {
				out = append(out, crate)
				break
			}
		}
	}
	return out, nil
}

// enclosingFunction finds the Function symbol in pos.File whose range
// contains pos.Offset, the entry point `completions`, `find_all_refs`,
// `resolve_callable`, and `type_of` all need before consulting fn_scopes.
func (s *Snapshot) enclosingFunction(ctx context.Context, pos FilePosition) (index.Symbol, bool, error) {
	v, err := s.get(ctx, index.KindFileSymbols, pos.File)
	if err != nil {
		return index.Symbol{}, false, err
	}
	si, ok := v.(*index.SymbolIndex)
	if !ok {
		return index.Symbol{}, false, nil
	}
	for _, fs := range si.Entries() {
		if fs.Symbol.Kind != index.SymbolKindFunction {
			continue
		}
		if fs.Symbol.NodeRange.Start <= pos.Offset && pos.Offset <= fs.Symbol.NodeRange.End {
			return fs.Symbol, true, nil
		}
	}
	return index.Symbol{}, false, nil
}

// innermostScope picks the deepest scope in tree whose range contains
// offset, for shadowing-aware lookups.
func innermostScope(tree *index.ScopeTree, offset int) int {
	best, bestSize := 0, -1
	for i, sc := range tree.Scopes {
		if sc.Range.Start <= offset && offset <= sc.Range.End {
			size := sc.Range.End - sc.Range.Start
			if bestSize == -1 || size < bestSize {
				best, bestSize = i, size
			}
		}
	}
	return best
}

// Completions implements `completions` (spec §4.6): every binding
// visible from pos's innermost scope, plus every name in every module
// table of the item_map for pos.File's source root (not only the
// enclosing module's table).
func (s *Snapshot) Completions(ctx context.Context, pos FilePosition) ([]CompletionItem, error) {
	if err := s.checkCancelled(); err != nil {
		return nil, err
	}
	fn, ok, err := s.enclosingFunction(ctx, pos)
	if err != nil {
		return nil, err
	}
	var items []CompletionItem
	if ok {
		scopesVal, err := s.get(ctx, index.KindFnScopes, fn.Def)
		if err != nil {
			return nil, err
		}
		if tree, ok := scopesVal.(*index.ScopeTree); ok {
			scope := innermostScope(tree, pos.Offset)
			for _, idx := range tree.Chain(scope) {
				for _, b := range tree.Scopes[idx].Bindings {
					items = append(items, CompletionItem{Label: b.Name})
				}
			}
		}
	}

	root := s.host.rootOf(pos.File)
	itemsVal, err := s.get(ctx, index.KindItemMap, root)
	if err != nil {
		return nil, err
	}
	if im, ok := itemsVal.(*index.ItemMap); ok {
		for _, table := range im.Tables {
			for name := range table {
				items = append(items, CompletionItem{Label: name})
			}
		}
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items, nil
}

// ApproximatelyResolveSymbol implements `approximately_resolve_symbol`
// (spec §4.6's "Resolve algorithm"): the name at pos is looked up in the
// enclosing function's scope tree first, but the candidates always come
// from an exact, limit-4 symbol-index query for that name, whether or not
// it resolved locally. A name bound only by a local let or parameter
// therefore yields no Defs unless an indexed item shares its name.
func (s *Snapshot) ApproximatelyResolveSymbol(ctx context.Context, pos FilePosition) (Resolution, error) {
	if err := s.checkCancelled(); err != nil {
		return Resolution{}, err
	}
	name, ok := s.nameRefAt(ctx, pos)
	if !ok {
		return Resolution{}, nil
	}

	fn, inFn, err := s.enclosingFunction(ctx, pos)
	if err != nil {
		return Resolution{}, err
	}
	if inFn {
		scopesVal, err := s.get(ctx, index.KindFnScopes, fn.Def)
		if err != nil {
			return Resolution{}, err
		}
		if tree, ok := scopesVal.(*index.ScopeTree); ok {
			scope := innermostScope(tree, pos.Offset)
			if _, ok := tree.Resolve(scope, name); ok {
				// Local bindings have no DefId of their own (they're not
				// interned definitions); report via the index fallback so
				// callers always get a DefId-shaped answer.
				return s.resolveViaIndex(ctx, name)
			}
		}
	}
	return s.resolveViaIndex(ctx, name)
}

func (s *Snapshot) resolveViaIndex(ctx context.Context, name string) (Resolution, error) {
	matches, err := s.WorldSymbols(ctx, index.Query{Text: name, Exact: true, Limit: 4})
	if err != nil {
		return Resolution{}, err
	}
	res := Resolution{ViaIndex: true}
	for _, m := range matches {
		res.Defs = append(res.Defs, m.Symbol.Def)
	}
	return res, nil
}

// nameRefAt returns the identifier text covering pos.Offset in pos.File's
// current text, by scanning identifier bytes either side of the offset:
// a best-effort, not a cached lookup, since
// the spec frames name-reference location as part of the resolve
// algorithm rather than a query of its own.
func (s *Snapshot) nameRefAt(ctx context.Context, pos FilePosition) (string, bool) {
	text := s.host.textOf(pos.File)
	if text == "" || pos.Offset < 0 || pos.Offset > len(text) {
		return "", false
	}
	isIdent := func(b byte) bool {
		return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
	}
	start, end := pos.Offset, pos.Offset
	for start > 0 && isIdent(text[start-1]) {
		start--
	}
	for end < len(text) && isIdent(text[end]) {
		end++
	}
	if start == end {
		return "", false
	}
	return text[start:end], true
}

// FindAllRefs implements `find_all_refs` (spec §4.6): locates a binding at
// pos (or a reference resolving locally to one) and returns every
// identifier in the same function's body with the binding's name, in no
// particular order and without checking which binding each resolves to.
// Cross-function
// references are not reported, per spec.
func (s *Snapshot) FindAllRefs(ctx context.Context, pos FilePosition) (*RefResult, error) {
	if err := s.checkCancelled(); err != nil {
		return nil, err
	}
	name, ok := s.nameRefAt(ctx, pos)
	if !ok {
		return nil, nil
	}
	fn, ok, err := s.enclosingFunction(ctx, pos)
	if err != nil || !ok {
		return nil, err
	}
	scopesVal, err := s.get(ctx, index.KindFnScopes, fn.Def)
	if err != nil {
		return nil, err
	}
	tree, ok := scopesVal.(*index.ScopeTree)
	if !ok {
		return nil, nil
	}
	scope := innermostScope(tree, pos.Offset)
	binding, ok := tree.Resolve(scope, name)
	if !ok {
		return nil, nil
	}

	exprsVal, err := s.get(ctx, index.KindInfer, fn.Def)
	if err != nil {
		return nil, err
	}
	result := &RefResult{Binding: FileRange{File: pos.File, Start: binding.Range.Start, End: binding.Range.End}}
	if ir, ok := exprsVal.(*index.InferenceResult); ok {
		for rng := range ir.Types {
			text := s.host.textOf(pos.File)
			if rng.Start >= 0 && rng.End <= len(text) && text[rng.Start:rng.End] == name {
				result.Refs = append(result.Refs, FileRange{File: pos.File, Start: rng.Start, End: rng.End})
			}
		}
	}
	return result, nil
}

// Diagnostics implements `diagnostics` (spec §4.6): currently reports
// module resolution Problems (spec §4.4) surfaced by module_tree for
// file's source root.
func (s *Snapshot) Diagnostics(ctx context.Context, file intern.FileId) ([]Diagnostic, error) {
	if err := s.checkCancelled(); err != nil {
		return nil, err
	}
	root := s.host.rootOf(file)
	treeVal, err := s.get(ctx, index.KindModuleTree, root)
	if err != nil {
		return nil, err
	}
	tree, ok := treeVal.(*index.ModuleTree)
	if !ok {
		return nil, nil
	}

	var diags []Diagnostic
	for _, p := range tree.Problems {
		switch {
		case p.UnresolvedModulePath != "":
			diags = append(diags, Diagnostic{
				Severity: "error",
				Range:    FileRange{File: file},
				Message:  fmt.Sprintf("unresolved module %q", p.UnresolvedModulePath),
				Fix: &SourceChange{
					File:  file,
					Label: fmt.Sprintf("create %s", p.UnresolvedModuleCandidate),
					Ops:   []FileOp{{Kind: FileOpCreate, Path: p.UnresolvedModuleCandidate}},
				},
			})
		case p.NotDirOwnerCandidate != "":
			diags = append(diags, Diagnostic{
				Severity: "error",
				Range:    FileRange{File: file},
				Message:  fmt.Sprintf("module %q: file is not a directory owner; move to %s", p.NotDirOwnerCandidate, p.NotDirOwnerMoveTo),
				Fix: &SourceChange{
					File:  file,
					Label: fmt.Sprintf("move to %s", p.NotDirOwnerMoveTo),
					Ops:   []FileOp{{Kind: FileOpMove, Path: s.host.Path(file), NewPath: p.NotDirOwnerMoveTo}},
				},
			})
		}
	}
	return diags, nil
}

// Assists implements `assists` (spec §4.6): runs every configured assist
// script over rng's enclosing file text and offset, collecting whichever
// ones report an applicable change. Never cancels (spec's table marks
// `assists`' error column "never").
func (s *Snapshot) Assists(ctx context.Context, rng FileRange, names []string) ([]SourceChange, error) {
	text := s.host.textOf(rng.File)
	var out []SourceChange
	for _, name := range names {
		a, ok, err := s.host.assists.Run(ctx, name, assist.Context{Text: text, Offset: rng.Start})
		if err != nil {
			return nil, fmt.Errorf("assists: %s: %w", name, err)
		}
		if !ok {
			continue
		}
		out = append(out, SourceChange{File: rng.File, Label: a.Label, Edits: a.Edits})
	}
	return out, nil
}

// ResolveCallable implements `resolve_callable` (spec §4.6): finds the
// enclosing call expression's callee, resolves it through
// ApproximatelyResolveSymbol, and computes current_parameter by counting
// commas in the argument-list text up to pos.Offset, +1 for method calls
// to skip the receiver — kept exactly as the spec describes, not
// "improved" with AST-accurate argument boundary tracking (see
// DESIGN.md's Open Question decisions).
func (s *Snapshot) ResolveCallable(ctx context.Context, pos FilePosition) (*Signature, error) {
	if err := s.checkCancelled(); err != nil {
		return nil, err
	}
	text := s.host.textOf(pos.File)
	callStart, isMethod, ok := findEnclosingCall(text, pos.Offset)
	if !ok {
		return nil, nil
	}
	res, err := s.ApproximatelyResolveSymbol(ctx, FilePosition{File: pos.File, Offset: callStart})
	if err != nil || len(res.Defs) == 0 {
		return nil, err
	}

	argsText := text[callStart:pos.Offset]
	current := strings.Count(argsText, ",")
	if isMethod {
		current++
	}
	return &Signature{Def: res.Defs[0], CurrentParameter: current}, nil
}

// findEnclosingCall walks back from offset to the nearest unmatched '('
// preceded by an identifier, reporting whether that identifier followed a
// '.' (a method call).
func findEnclosingCall(text string, offset int) (calleeStart int, isMethod bool, ok bool) {
	depth := 0
	for i := offset - 1; i >= 0; i-- {
		switch text[i] {
		case ')':
			depth++
		case '(':
			if depth == 0 {
				end := i
				start := end
				for start > 0 && isIdentByte(text[start-1]) {
					start--
				}
				if start == end {
					return 0, false, false
				}
				method := start > 0 && text[start-1] == '.'
				return start, method, true
			}
			depth--
		}
	}
	return 0, false, false
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// TypeOf implements `type_of` (spec §4.6): the inferred type text for
// rng, or none if rng falls outside any function body infer() covers.
func (s *Snapshot) TypeOf(ctx context.Context, rng FileRange) (string, bool, error) {
	if err := s.checkCancelled(); err != nil {
		return "", false, err
	}
	fn, ok, err := s.enclosingFunction(ctx, FilePosition{File: rng.File, Offset: rng.Start})
	if err != nil || !ok {
		return "", false, err
	}
	v, err := s.get(ctx, index.KindInfer, fn.Def)
	if err != nil {
		return "", false, err
	}
	ir, ok := v.(*index.InferenceResult)
	if !ok {
		return "", false, nil
	}
	t := ir.TypeOf(index.NodeRange{Start: rng.Start, End: rng.End})
	if t.Unknown() {
		return "", false, nil
	}
	return t.Name, true, nil
}
