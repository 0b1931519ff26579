package index

import (
	"context"
	"fmt"

	"github.com/jward/ferrotree/internal/intern"
	"github.com/jward/ferrotree/internal/query"
)

// KindFnScopes is the fn_scopes(def_id) derived query (spec §4.5).
const KindFnScopes query.Kind = "fn_scopes"

// Binding is one name introduced within a scope: the name plus a
// back-pointer into the function's syntax (spec §4.5 "name + syntax
// back-pointer").
type Binding struct {
	Name  string
	Range NodeRange
}

// Scope is one node in a function's scope tree: a set of bindings plus a
// parent link, mirroring the teacher's parent_scope_id chain
// (internal/store.Scope / ScopeChain) but held as an in-memory tree rather
// than SQL rows.
type Scope struct {
	Range    NodeRange
	Bindings []Binding
	Parent   int // index into ScopeTree.Scopes, -1 for the root
}

// ScopeTree is fn_scopes(def_id)'s result.
type ScopeTree struct {
	Scopes []Scope
}

// Equal gives ScopeTree structural equality for early cutoff.
func (st *ScopeTree) Equal(v query.Value) bool {
	other, ok := v.(*ScopeTree)
	if !ok || other == nil || len(st.Scopes) != len(other.Scopes) {
		return false
	}
	for i, s := range st.Scopes {
		o := other.Scopes[i]
		if s.Range != o.Range || s.Parent != o.Parent || len(s.Bindings) != len(o.Bindings) {
			return false
		}
		for j := range s.Bindings {
			if s.Bindings[j] != o.Bindings[j] {
				return false
			}
		}
	}
	return true
}

// Chain walks from scope up to the root, mirroring the teacher's
// ScopeChain — used by Resolve to honor shadowing (innermost binding
// wins).
func (st *ScopeTree) Chain(scope int) []int {
	var chain []int
	for scope >= 0 {
		chain = append(chain, scope)
		scope = st.Scopes[scope].Parent
	}
	return chain
}

// Resolve walks from scope up through parent scopes looking for name,
// honoring shadowing: the innermost binding with a matching name wins
// (spec §4.5 "walk from the name-reference up through scopes, shadowing
// honored").
func (st *ScopeTree) Resolve(scope int, name string) (Binding, bool) {
	for _, s := range st.Chain(scope) {
		for _, b := range st.Scopes[s].Bindings {
			if b.Name == name {
				return b, true
			}
		}
	}
	return Binding{}, false
}

// FnBodySource is the narrow view fn_scopes needs of a function's syntax:
// enough to walk nested blocks and the bindings they introduce, without
// depending on tree-sitter types directly.
type FnBodySource interface {
	// ScopesForDef returns the function body's scope tree as a flat list
	// already ordered parent-before-child, with Parent set to each
	// scope's index in that list (-1 for the outermost scope, which holds the parameters and
	// encloses the body block).
	ScopesForDef(ctx context.Context, def intern.DefId) ([]Scope, error)
}

// RegisterFnScopes installs the fn_scopes derived query against e. fileOfDef
// resolves def to the file its body lives in; fn_scopes demands that file's
// source_file input before reading the body through bodies, so an edit to
// the function's containing file correctly invalidates the cached scope
// tree (and, transitively through its own KindFnScopes dependency, infer).
// fileOfDef's second return value is false for an unknown def, in which
// case no dependency is recorded rather than failing the query.
func RegisterFnScopes(e *query.Engine, bodies FnBodySource, fileOfDef func(intern.DefId) (intern.FileId, bool)) {
	e.RegisterDerived(KindFnScopes, func(ctx context.Context, x *query.Execution, key query.Key) (query.Value, error) {
		def, ok := key.(intern.DefId)
		if !ok {
			return nil, fmt.Errorf("fn_scopes: key %v is not a DefId", key)
		}
		if file, ok := fileOfDef(def); ok {
			if _, err := x.Get(ctx, KindSourceFile, file); err != nil {
				return nil, err
			}
		}
		if err := x.CheckCancelled(); err != nil {
			return nil, err
		}
		scopes, err := bodies.ScopesForDef(ctx, def)
		if err != nil {
			return nil, fmt.Errorf("fn_scopes(%d): %w", def, err)
		}
		return &ScopeTree{Scopes: scopes}, nil
	})
}
