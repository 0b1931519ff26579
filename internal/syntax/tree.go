// Package syntax is the concrete implementation of the spec's "syntax
// tree" external collaborator (§1/§6): a thin consumer of
// github.com/smacker/go-tree-sitter that supplies source_file, file_lines,
// and file_symbols extraction. It never builds its own lexer or parser —
// the spec's non-goal that the parser is an external black box holds; this
// package just gives that box a concrete shape so the core is runnable.
//
// Grounded on the teacher's internal/runtime/hostfuncs.go (parse/node_text/
// query/node_child) and languages.go (extension → grammar table), adapted
// from Risor host functions operating on proxied *sitter.Node values to
// plain Go functions operating on *sitter.Node directly — this package has
// no Risor dependency of its own.
package syntax

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"

	"github.com/jward/ferrotree/internal/index"
	"github.com/jward/ferrotree/internal/intern"
)

// language is fixed to Rust: the spec models its target "systems
// programming language" on rust-analyzer throughout, and go-tree-sitter's
// rust grammar is the one pack repos actually vendor a grammar set
// alongside (languages.go enumerates it among ten).
func language() *sitter.Language {
	return rust.GetLanguage()
}

// Tree wraps a parsed file: the tree-sitter tree plus the source bytes it
// was parsed from, since smacker/go-tree-sitter nodes don't carry their
// source with them (Node.Content requires the caller to supply it back).
type Tree struct {
	File intern.FileId
	Src  []byte
	tree *sitter.Tree
}

// Close releases the underlying tree-sitter tree. Trees are cheap to
// reparse, so callers are not required to call Close before dropping a
// Tree, but doing so frees the C-allocated node arena promptly.
func (t *Tree) Close() {
	if t.tree != nil {
		t.tree.Close()
	}
}

// Parse parses src as Rust source for file, matching the spec's
// source_file(file_id) -> SourceFile collaborator (§3/§6).
func Parse(ctx context.Context, file intern.FileId, src []byte) (*Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(language())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("syntax: parsing file %d: %w", file, err)
	}
	return &Tree{File: file, Src: src, tree: tree}, nil
}

// Lines returns the byte offset at which each source line begins, matching
// the spec's file_lines(file_id) -> LineIndex collaborator. Offsets are
// sufficient for the façade's line/column <-> byte-offset conversions; it
// carries no other state.
func Lines(src []byte) []int {
	offsets := []int{0}
	for i, b := range src {
		if b == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

// topLevelQuery captures the named top-level and nested item kinds the
// spec's file_symbols wants extracted: functions, structs, enums, traits,
// type aliases, consts, statics, modules, impls, and the fields/variants
// nested inside them.
const topLevelQuery = `
(function_item name: (identifier) @name) @item
(struct_item name: (type_identifier) @name) @item
(enum_item name: (type_identifier) @name) @item
(trait_item name: (type_identifier) @name) @item
(type_item name: (type_identifier) @name) @item
(const_item name: (identifier) @name) @item
(static_item name: (identifier) @name) @item
(mod_item name: (identifier) @name) @item
(impl_item type: (type_identifier) @name) @item
(field_declaration name: (field_identifier) @name) @item
(enum_variant name: (identifier) @name) @item
`

var nodeKindToSymbolKind = map[string]index.SymbolKind{
	"function_item":     index.SymbolKindFunction,
	"struct_item":       index.SymbolKindStruct,
	"enum_item":         index.SymbolKindEnum,
	"trait_item":        index.SymbolKindTrait,
	"type_item":         index.SymbolKindTypeAlias,
	"const_item":        index.SymbolKindConst,
	"static_item":       index.SymbolKindStatic,
	"mod_item":          index.SymbolKindModule,
	"impl_item":         index.SymbolKindImpl,
	"field_declaration": index.SymbolKindField,
	"enum_variant":      index.SymbolKindVariant,
}

const modDeclQuery = `(mod_item name: (identifier) @name) @mod`

// ModuleDecls returns every "mod name" declaration in t, distinguishing
// declaration-only ("mod foo;") from inline ("mod foo { ... }") by whether
// the mod_item node has a declaration_list child — matching the spec's
// §4.4 "header terminated by a delimiter" vs. "body present" distinction.
func (t *Tree) ModuleDecls(ctx context.Context) ([]index.ModuleDecl, error) {
	q, err := sitter.NewQuery([]byte(modDeclQuery), language())
	if err != nil {
		return nil, fmt.Errorf("syntax: compiling mod-decl query: %w", err)
	}
	defer q.Close()

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	cursor.Exec(q, t.tree.RootNode())

	var out []index.ModuleDecl
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		match, ok := cursor.NextMatch()
		if !ok {
			break
		}
		var modNode, nameNode *sitter.Node
		for _, cap := range match.Captures {
			switch q.CaptureNameForId(cap.Index) {
			case "mod":
				modNode = cap.Node
			case "name":
				nameNode = cap.Node
			}
		}
		if modNode == nil || nameNode == nil {
			continue
		}
		inline := modNode.ChildByFieldName("body") != nil
		out = append(out, index.ModuleDecl{Name: nameNode.Content(t.Src), Inline: inline})
	}
	return out, nil
}

// Symbols walks t's tree looking for named items, matching the spec's
// file_symbols(file_id) -> [Symbol] collaborator — the source this
// package's caller (internal/index) wraps as a derived query. Intern
// identities are not assigned here: that's the index layer's job, via the
// intern.Store it's given.
func (t *Tree) Symbols(ctx context.Context) ([]index.Symbol, error) {
	q, err := sitter.NewQuery([]byte(topLevelQuery), language())
	if err != nil {
		return nil, fmt.Errorf("syntax: compiling item query: %w", err)
	}
	defer q.Close()

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	cursor.Exec(q, t.tree.RootNode())

	var out []index.Symbol
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		match, ok := cursor.NextMatch()
		if !ok {
			break
		}
		match = cursor.FilterPredicates(match, t.Src)

		var itemNode, nameNode *sitter.Node
		for _, cap := range match.Captures {
			switch q.CaptureNameForId(cap.Index) {
			case "item":
				itemNode = cap.Node
			case "name":
				nameNode = cap.Node
			}
		}
		if itemNode == nil || nameNode == nil {
			continue
		}
		kind, ok := nodeKindToSymbolKind[itemNode.Type()]
		if !ok {
			continue
		}
		out = append(out, index.Symbol{
			Name: nameNode.Content(t.Src),
			NodeRange: index.NodeRange{
				Start: int(itemNode.StartByte()),
				End:   int(itemNode.EndByte()),
			},
			Kind: kind,
		})
	}
	return out, nil
}
