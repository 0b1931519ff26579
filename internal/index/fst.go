// Package index implements the derived indexing queries that sit on top of
// the query engine: the per-file and per-library symbol index (§4.3), the
// module tree and item map (§4.4), and function scope trees plus best-effort
// type inference (§4.5).
//
// fst.go supplies the finite-state transducer the spec calls for in §4.3
// ("a sorted vector of (FileId, Symbol) and a finite-state transducer
// mapping lowercased name -> index into that vector"). No repo in the
// retrieval pack vendors an FST library (the teacher included — its
// closest analogue is a plain SQLite index on symbols.name), so this uses
// github.com/blevesearch/vellum, the Go ecosystem's standard FST
// implementation, named as an out-of-pack dependency in DESIGN.md.
package index

import (
	"bytes"
	"sort"

	"github.com/blevesearch/vellum"
)

// buildFST constructs a finite-state transducer over the distinct names in
// names, sorting a copy of them and collapsing adjacent duplicates so the
// first (lowest original index) wins — exactly the dedup rule spec §4.3
// describes ("the first wins... duplicates are recovered by
// substring-search").
//
// names itself is not modified. The returned order slice holds, for each
// kept name in sorted order, its index in names; the FST maps a name to
// its position in order. Callers keep that slice alongside the
// *vellum.FST.
func buildFST(names []string) (*vellum.FST, []int, error) {
	type pair struct {
		name string
		orig int
	}
	pairs := make([]pair, len(names))
	for i, n := range names {
		pairs[i] = pair{name: n, orig: i}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].name != pairs[j].name {
			return pairs[i].name < pairs[j].name
		}
		return pairs[i].orig < pairs[j].orig
	})

	var buf bytes.Buffer
	builder, err := vellum.New(&buf, nil)
	if err != nil {
		return nil, nil, err
	}

	var order []int
	var lastName string
	haveLast := false
	for _, p := range pairs {
		if haveLast && p.name == lastName {
			continue // adjacent duplicate: first (lowest orig) wins
		}
		if err := builder.Insert([]byte(p.name), uint64(len(order))); err != nil {
			return nil, nil, err
		}
		order = append(order, p.orig)
		lastName = p.name
		haveLast = true
	}
	if err := builder.Close(); err != nil {
		return nil, nil, err
	}

	fst, err := vellum.Load(buf.Bytes())
	if err != nil {
		return nil, nil, err
	}
	return fst, order, nil
}

// subsequenceAutomaton implements vellum.Automaton for "needle appears as a
// subsequence of the FST key currently being explored," which is what spec
// §4.3 step 2-3 calls for: "Build a subsequence automaton over needle...
// stream matches from its transducer through the automaton." State is the
// number of needle bytes matched so far; IsMatch reports whether every
// needle byte has been consumed (state == len(needle)), and because a
// subsequence automaton can always consume more input after a match
// (there may be trailing characters after the needle is exhausted),
// WillAlwaysMatch returns true once state == len(needle) too, so vellum's
// search doesn't prune children of a state that has already matched.
type subsequenceAutomaton struct {
	needle []byte
}

func newSubsequenceAutomaton(needle string) *subsequenceAutomaton {
	return &subsequenceAutomaton{needle: []byte(needle)}
}

func (a *subsequenceAutomaton) Start() int { return 0 }

func (a *subsequenceAutomaton) IsMatch(state int) bool {
	return state >= len(a.needle)
}

func (a *subsequenceAutomaton) CanMatch(state int) bool {
	return state >= 0
}

func (a *subsequenceAutomaton) WillAlwaysMatch(state int) bool {
	return state >= len(a.needle)
}

func (a *subsequenceAutomaton) Accept(state int, b byte) int {
	if state < 0 {
		return -1
	}
	if state >= len(a.needle) {
		return state // already matched; keep consuming, stay matched
	}
	if a.needle[state] == b {
		return state + 1
	}
	return state
}

// fstHandle wraps a built *vellum.FST so symbols.go can drive a search
// without naming vellum types in its own signatures.
type fstHandle struct {
	fst *vellum.FST
}

func wrapFST(fst *vellum.FST) *fstHandle {
	if fst == nil {
		return nil
	}
	return &fstHandle{fst: fst}
}

// search streams every index whose key subsequence-matches needle, in
// transducer order, invoking visit(idx) for each. visit returns false to
// stop the search early (the limit has been reached).
func (h *fstHandle) search(needle string, visit func(idx uint64) bool) {
	if h == nil || h.fst == nil {
		return
	}
	itr, err := h.fst.Search(newSubsequenceAutomaton(needle), nil, nil)
	for err == nil {
		_, idx := itr.Current()
		if !visit(idx) {
			return
		}
		err = itr.Next()
	}
}
