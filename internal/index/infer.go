package index

import (
	"context"
	"fmt"

	"github.com/jward/ferrotree/internal/intern"
	"github.com/jward/ferrotree/internal/query"
)

// KindInfer is the infer(def_id) derived query (spec §4.5).
const KindInfer query.Kind = "infer"

// KindTypeForDef is the type_for_def(def_id) query infer depends on for a
// definition's declared type. RegisterInfer gives it a function that
// yields an unknown type for any key not set as an input.
const KindTypeForDef query.Kind = "type_for_def"

// KindTypeForField is the type_for_field(def_id, field_name) query infer
// depends on for field-access typing, with the same unknown-type fallback.
const KindTypeForField query.Kind = "type_for_field"

// Type is a best-effort inferred type. Unknown is the zero value, matching
// the spec's "unsupported constructs yield an unknown type rather than
// failing" (§4.5).
type Type struct {
	Name   string // "" means Unknown
	Def    intern.DefId
	HasDef bool
}

// Unknown reports whether t carries no usable type information.
func (t Type) Unknown() bool { return t.Name == "" }

func (t Type) equal(o Type) bool { return t == o }

// InferenceResult maps each expression/pattern node (identified by its
// byte range, since this package has no AST node identity of its own
// beyond position) to its inferred Type.
type InferenceResult struct {
	Types map[NodeRange]Type
}

// Equal gives InferenceResult structural equality for early cutoff.
func (ir *InferenceResult) Equal(v query.Value) bool {
	other, ok := v.(*InferenceResult)
	if !ok || other == nil || len(ir.Types) != len(other.Types) {
		return false
	}
	for rng, t := range ir.Types {
		o, ok := other.Types[rng]
		if !ok || !t.equal(o) {
			return false
		}
	}
	return true
}

// TypeOf returns the inferred type at rng, or the zero Type (Unknown) if
// rng wasn't visited by inference.
func (ir *InferenceResult) TypeOf(rng NodeRange) Type {
	if ir == nil {
		return Type{}
	}
	return ir.Types[rng]
}

// BodyExpr is one expression or pattern node inference walks, with enough
// structure to resolve paths, field access, and scope lookups — the
// minimal surface a best-effort inferencer needs without becoming a full
// type checker.
type BodyExpr struct {
	Range NodeRange
	Scope int // scope index (see ScopeTree) this node is evaluated in

	// Exactly one of the following describes the expression's shape.
	PathName  string     // a bare name reference, resolved via scope then item_map
	FieldOf   *NodeRange // a.b: Range of `a`; FieldName names the field
	FieldName string
	Literal   string // "" unless this node is a literal with a known builtin type
}

// Inferencer is the narrow view infer needs of a function's body: the
// scope tree (already produced by fn_scopes) plus the flat list of
// expression nodes to type.
type Inferencer interface {
	BodyExprs(ctx context.Context, def intern.DefId) ([]BodyExpr, error)
}

// RegisterInfer installs the infer derived query against e. root supplies
// the source root a DefId's owning module lives in, needed to demand
// item_map for path resolution.
func RegisterInfer(e *query.Engine, bodies Inferencer, root func(intern.DefId) intern.SourceRootId) {
	e.RegisterDerived(KindInfer, func(ctx context.Context, x *query.Execution, key query.Key) (query.Value, error) {
		def, ok := key.(intern.DefId)
		if !ok {
			return nil, fmt.Errorf("infer: key %v is not a DefId", key)
		}

		scopesVal, err := x.Get(ctx, KindFnScopes, def)
		if err != nil {
			return nil, err
		}
		scopes, ok := scopesVal.(*ScopeTree)
		if !ok {
			return nil, fmt.Errorf("infer: fn_scopes(%d) did not return *ScopeTree", def)
		}

		itemsVal, err := x.Get(ctx, KindItemMap, root(def))
		if err != nil {
			return nil, err
		}
		items, ok := itemsVal.(*ItemMap)
		if !ok {
			return nil, fmt.Errorf("infer: item_map did not return *ItemMap")
		}

		exprs, err := bodies.BodyExprs(ctx, def)
		if err != nil {
			return nil, fmt.Errorf("infer(%d): %w", def, err)
		}

		result := &InferenceResult{Types: make(map[NodeRange]Type, len(exprs))}
		for _, e := range exprs {
			if err := x.CheckCancelled(); err != nil {
				return nil, err
			}
			result.Types[e.Range] = inferExpr(x, ctx, e, scopes, items, result, def)
		}
		return result, nil
	})

	// A type_for_def or type_for_field key that has never been set yields
	// an unknown type instead of reaching the engine's unregistered-kind
	// panic.
	unknown := func(ctx context.Context, x *query.Execution, key query.Key) (query.Value, error) {
		return typeValue{}, nil
	}
	e.RegisterDerived(KindTypeForDef, unknown)
	e.RegisterDerived(KindTypeForField, unknown)
}

// inferExpr infers a single node's type. Anything it cannot resolve
// becomes the zero Type (Unknown), per spec §4.5's best-effort contract —
// it never returns an error for an unsupported construct.
func inferExpr(x *query.Execution, ctx context.Context, e BodyExpr, scopes *ScopeTree, items *ItemMap, result *InferenceResult, def intern.DefId) Type {
	switch {
	case e.Literal != "":
		return Type{Name: e.Literal}

	case e.PathName != "":
		if b, ok := scopes.Resolve(e.Scope, e.PathName); ok {
			if t, ok := result.Types[b.Range]; ok {
				return t
			}
			return Type{}
		}
		for _, table := range items.Tables {
			if target, ok := table[e.PathName]; ok && !target.IsImport {
				tv, err := x.Get(ctx, KindTypeForDef, target.Def)
				if err != nil {
					return Type{}
				}
				if t, ok := tv.(typeValue); ok {
					return Type{Name: t.Name, Def: target.Def, HasDef: true}
				}
			}
		}
		return Type{}

	case e.FieldOf != nil:
		base, ok := result.Types[*e.FieldOf]
		if !ok || !base.HasDef {
			return Type{}
		}
		tv, err := x.Get(ctx, KindTypeForField, fieldKey{Def: base.Def, Field: e.FieldName})
		if err != nil {
			return Type{}
		}
		if t, ok := tv.(typeValue); ok {
			return Type{Name: t.Name, Def: t.Def, HasDef: t.HasDef}
		}
		return Type{}

	default:
		return Type{}
	}
}

// fieldKey is the key type for type_for_field.
type fieldKey struct {
	Def   intern.DefId
	Field string
}

// typeValue is the Value wrapper type_for_def / type_for_field inputs are
// set with.
type typeValue struct {
	Name   string
	Def    intern.DefId
	HasDef bool
}

func (t typeValue) Equal(v query.Value) bool {
	o, ok := v.(typeValue)
	return ok && t == o
}
