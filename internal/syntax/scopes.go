package syntax

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/ferrotree/internal/index"
)

// FunctionScopes walks the function_item node spanning fnRange within t,
// producing the flat, parent-indexed scope list index.FnBodySource
// promises: one scope for the parameter list plus one per nested block,
// each carrying the let-bindings and parameters introduced there. Ordered
// parent-before-child so callers can use the list index directly as
// index.ScopeTree.Scopes' Parent field.
func (t *Tree) FunctionScopes(ctx context.Context, fnRange index.NodeRange) ([]index.Scope, error) {
	fn := nodeAt(t.tree.RootNode(), fnRange)
	if fn == nil {
		return nil, fmt.Errorf("syntax: no function_item at range %v", fnRange)
	}

	var scopes []index.Scope
	root := index.Scope{Range: rangeOf(fn), Parent: -1}
	if params := fn.ChildByFieldName("parameters"); params != nil {
		root.Bindings = append(root.Bindings, paramBindings(params, t.Src)...)
	}
	scopes = append(scopes, root)

	body := fn.ChildByFieldName("body")
	if body != nil {
		if err := t.walkBlocks(ctx, body, 0, &scopes); err != nil {
			return nil, err
		}
	}
	return scopes, nil
}

func (t *Tree) walkBlocks(ctx context.Context, n *sitter.Node, parent int, scopes *[]index.Scope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	idx := parent
	if n.Type() == "block" {
		idx = len(*scopes)
		*scopes = append(*scopes, index.Scope{Range: rangeOf(n), Parent: parent})
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		if child.Type() == "let_declaration" {
			if pat := child.ChildByFieldName("pattern"); pat != nil && pat.Type() == "identifier" {
				(*scopes)[idx].Bindings = append((*scopes)[idx].Bindings, index.Binding{
					Name:  pat.Content(t.Src),
					Range: rangeOf(pat),
				})
			}
		}
		if err := t.walkBlocks(ctx, child, idx, scopes); err != nil {
			return err
		}
	}
	return nil
}

func paramBindings(params *sitter.Node, src []byte) []index.Binding {
	var out []index.Binding
	for i := 0; i < int(params.ChildCount()); i++ {
		p := params.Child(i)
		if p == nil || p.Type() != "parameter" {
			continue
		}
		if pat := p.ChildByFieldName("pattern"); pat != nil && pat.Type() == "identifier" {
			out = append(out, index.Binding{Name: pat.Content(src), Range: rangeOf(pat)})
		}
	}
	return out
}

// FunctionBodyExprs walks fnRange's body collecting the name references,
// field accesses, and literals infer() types, each tagged with the
// innermost enclosing block's index in the ScopeTree FunctionScopes
// produced for the same fnRange — a best-effort subset of real
// expression-level inference (spec §4.5's "unsupported constructs yield
// unknown rather than failing" extends to node shapes this walker doesn't
// recognize at all).
func (t *Tree) FunctionBodyExprs(ctx context.Context, fnRange index.NodeRange) ([]index.BodyExpr, error) {
	fn := nodeAt(t.tree.RootNode(), fnRange)
	if fn == nil {
		return nil, fmt.Errorf("syntax: no function_item at range %v", fnRange)
	}
	body := fn.ChildByFieldName("body")
	if body == nil {
		return nil, nil
	}

	var out []index.BodyExpr
	nextBlockScope := 1 // 0 is the parameter/root scope FunctionScopes always emits first
	var walk func(n *sitter.Node, scope int) error
	walk = func(n *sitter.Node, scope int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch n.Type() {
		case "block":
			// Scope indices are assigned by FunctionScopes in the same
			// depth-first order walkBlocks uses, so this call's own
			// depth-first block counter stays in sync with it.
			scope = nextBlockScope
			nextBlockScope++
		case "identifier":
			if n.Parent() == nil || n.Parent().Type() != "let_declaration" {
				out = append(out, index.BodyExpr{Range: rangeOf(n), Scope: scope, PathName: n.Content(t.Src)})
			}
		case "field_expression":
			value := n.ChildByFieldName("value")
			field := n.ChildByFieldName("field")
			if value != nil && field != nil {
				r := rangeOf(value)
				out = append(out, index.BodyExpr{
					Range: rangeOf(n), Scope: scope,
					FieldOf: &r, FieldName: field.Content(t.Src),
				})
			}
		case "integer_literal":
			out = append(out, index.BodyExpr{Range: rangeOf(n), Scope: scope, Literal: "i32"})
		case "string_literal":
			out = append(out, index.BodyExpr{Range: rangeOf(n), Scope: scope, Literal: "&str"})
		case "boolean_literal":
			out = append(out, index.BodyExpr{Range: rangeOf(n), Scope: scope, Literal: "bool"})
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if c := n.Child(i); c != nil {
				if err := walk(c, scope); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return out, walk(body, 0)
}

func rangeOf(n *sitter.Node) index.NodeRange {
	return index.NodeRange{Start: int(n.StartByte()), End: int(n.EndByte())}
}

func nodeAt(root *sitter.Node, rng index.NodeRange) *sitter.Node {
	var found *sitter.Node
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if found != nil {
			return
		}
		if int(n.StartByte()) == rng.Start && int(n.EndByte()) == rng.End {
			found = n
			return
		}
		if int(n.StartByte()) > rng.Start || int(n.EndByte()) < rng.End {
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if c := n.Child(i); c != nil {
				walk(c)
			}
		}
	}
	walk(root)
	return found
}
