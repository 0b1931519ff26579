package index

import "github.com/jward/ferrotree/internal/intern"

// SymbolKind is the syntactic kind of a top-level or nested named item
// (spec §3 "Symbol"). Kept as a small closed set rather than a free-form
// string — unlike the teacher's SQL symbols.kind column, which has to
// accept whatever a Risor extraction script hands it, an in-process index
// can afford a real enum.
type SymbolKind int

const (
	SymbolKindUnknown SymbolKind = iota
	SymbolKindFunction
	SymbolKindStruct
	SymbolKindEnum
	SymbolKindTrait
	SymbolKindTypeAlias
	SymbolKindConst
	SymbolKindStatic
	SymbolKindModule
	SymbolKindImpl
	SymbolKindField
	SymbolKindVariant
)

// IsTypeDefining reports whether kind defines a type, per spec §4.3 step 5
// ("drop if only_types and the symbol kind is not a type-defining kind
// (struct/enum/trait/type-alias)").
func (k SymbolKind) IsTypeDefining() bool {
	switch k {
	case SymbolKindStruct, SymbolKindEnum, SymbolKindTrait, SymbolKindTypeAlias:
		return true
	default:
		return false
	}
}

// NodeRange is a half-open [Start,End) byte range into a file's syntax
// tree, valid "at the time the symbol index was computed" (spec §3
// invariants) — callers re-validate against current text, the engine does
// not.
type NodeRange struct {
	Start, End int
}

// Symbol is the spec's {name, node_range, kind} triple (§3), plus the
// DefId of the definition it names so facade operations can resolve
// straight through to a cached inference/item-map entry without a second
// lookup.
type Symbol struct {
	Name      string
	NodeRange NodeRange
	Kind      SymbolKind
	Def       intern.DefId
}

func (s Symbol) equal(o Symbol) bool {
	return s.Name == o.Name && s.NodeRange == o.NodeRange && s.Kind == o.Kind && s.Def == o.Def
}

// FileSymbol pairs a Symbol with the file it was found in, matching the
// spec's "(FileId, Symbol)" pairs used throughout §4.3.
type FileSymbol struct {
	File   intern.FileId
	Symbol Symbol
}

func (fs FileSymbol) equal(o FileSymbol) bool {
	return fs.File == o.File && fs.Symbol.equal(o.Symbol)
}
