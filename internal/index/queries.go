package index

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/jward/ferrotree/internal/intern"
	"github.com/jward/ferrotree/internal/query"
)

// KindFileSymbols is the file_symbols(file_id) -> SymbolIndex derived query
// (spec §4.3): parses the file's current text via a SourceStore collaborator
// and indexes its named items. Registered once per engine by RegisterQueries.
const KindFileSymbols query.Kind = "file_symbols"

// KindLibrarySymbols is the library_symbols(source_root_id) -> SymbolIndex
// input query: libraries ship a pre-built index (internal/libindex), so
// this is set via Engine.SetDurable rather than computed, per spec §4.3
// ("library symbol tables... are inputs, not derived").
const KindLibrarySymbols query.Kind = "library_symbols"

// KindSourceFile is the upstream input query this package's derived
// functions depend on: the current text of a file, keyed by FileId.
// internal/syntax's Tree parses that text; this package never touches a
// filesystem path directly.
const KindSourceFile query.Kind = "source_file"

// SourceStore is the narrow interface file_symbols needs from the concrete
// syntax adapter (internal/syntax), kept this way so internal/index depends
// on an interface rather than on tree-sitter types directly (SPEC_FULL §6).
type SourceStore interface {
	// FileSymbols returns the named items found in file's current text.
	FileSymbols(ctx context.Context, file intern.FileId, text string) ([]Symbol, error)
}

// SymbolRecorder receives every (FileId, Symbol) pair as soon as a
// file_symbols recomputation produces it, so a caller (Host) can maintain
// a DefId -> NodeRange side index without the query engine itself needing
// to expose one — fn_scopes/infer key off DefId but need the originating
// node's byte range to locate it in the syntax tree.
type SymbolRecorder interface {
	RecordSymbols(file intern.FileId, symbols []FileSymbol)
}

// RegisterQueries installs the file_symbols derived query against e, using
// store to do the actual parsing/extraction and interner to assign DefIds
// to newly discovered symbols. recorder may be nil.
func RegisterQueries(e *query.Engine, store SourceStore, interner *intern.Store, recorder SymbolRecorder) {
	e.RegisterDerived(KindFileSymbols, func(ctx context.Context, x *query.Execution, key query.Key) (query.Value, error) {
		file, ok := key.(intern.FileId)
		if !ok {
			return nil, fmt.Errorf("file_symbols: key %v is not a FileId", key)
		}
		textVal, err := x.Get(ctx, KindSourceFile, file)
		if err != nil {
			return nil, err
		}
		text, ok := textVal.(query.Text)
		if !ok {
			return nil, fmt.Errorf("file_symbols: source_file(%d) did not return Text", file)
		}
		if err := x.CheckCancelled(); err != nil {
			return nil, err
		}
		symbols, err := store.FileSymbols(ctx, file, string(text))
		if err != nil {
			return nil, fmt.Errorf("file_symbols(%d): %w", file, err)
		}
		fileSymbols := make([]FileSymbol, len(symbols))
		for i, sym := range symbols {
			sym.Def = interner.Intern(intern.DefLoc{
				Item: intern.SourceItemId{FileId: file, ItemIndex: intern.ItemIndex(i)},
				Kind: internDefKind(sym.Kind),
			})
			fileSymbols[i] = FileSymbol{File: file, Symbol: sym}
		}
		if recorder != nil {
			recorder.RecordSymbols(file, fileSymbols)
		}
		return BuildSymbolIndex(fileSymbols)
	})
}

func internDefKind(k SymbolKind) intern.DefKind {
	switch k {
	case SymbolKindFunction:
		return intern.DefKindFunction
	case SymbolKindStruct:
		return intern.DefKindStruct
	case SymbolKindEnum:
		return intern.DefKindEnum
	case SymbolKindTrait:
		return intern.DefKindTrait
	case SymbolKindTypeAlias:
		return intern.DefKindTypeAlias
	case SymbolKindConst:
		return intern.DefKindConst
	case SymbolKindStatic:
		return intern.DefKindStatic
	case SymbolKindModule:
		return intern.DefKindModule
	case SymbolKindImpl:
		return intern.DefKindImpl
	default:
		return intern.DefKindUnknown
	}
}

// ComputeAllParallel recomputes file_symbols for every file in files against
// snap, fanning out across runtime.NumCPU() workers and folding the results
// into one merged SymbolIndex — the spec's §4.3 "computed in parallel" and
// §5's expansion onto the teacher's three-phase engine_parallel.go shape:
// serial prepare (here: just the file list), parallel compute, serial
// ordered collection. Cancellation is checked at each worker's loop head so
// a write elsewhere stops the fan-out promptly instead of grinding through
// every remaining file.
func ComputeAllParallel(ctx context.Context, snap *query.Snapshot, files []intern.FileId) (*SymbolIndex, error) {
	if len(files) == 0 {
		return &SymbolIndex{}, nil
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	type job struct {
		idx  int
		file intern.FileId
	}
	type result struct {
		idx     int
		symbols []FileSymbol
		err     error
	}

	jobs := make(chan job, len(files))
	for i, f := range files {
		jobs <- job{idx: i, file: f}
	}
	close(jobs)

	results := make(chan result, len(files))
	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if err := ctx.Err(); err != nil {
					results <- result{idx: j.idx, err: err}
					continue
				}
				v, err := query.Execute(ctx, snap, KindFileSymbols, j.file)
				if err != nil {
					results <- result{idx: j.idx, err: err}
					continue
				}
				si, ok := v.(*SymbolIndex)
				if !ok {
					results <- result{idx: j.idx, err: fmt.Errorf("file_symbols(%d): unexpected value type", j.file)}
					continue
				}
				results <- result{idx: j.idx, symbols: si.Entries()}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([][]FileSymbol, len(files))
	var firstErr error
	for res := range results {
		if res.err != nil && firstErr == nil {
			firstErr = res.err
			continue
		}
		ordered[res.idx] = res.symbols
	}
	if firstErr != nil {
		return nil, firstErr
	}

	var merged []FileSymbol
	for _, part := range ordered {
		merged = append(merged, part...)
	}
	return BuildSymbolIndex(merged)
}
