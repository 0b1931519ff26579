package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/ferrotree"
	"github.com/jward/ferrotree/internal/index"
	"github.com/jward/ferrotree/internal/intern"
)

// --- Shared helpers ---

// indexAndSnapshot indexes --root and returns a live Host and Snapshot.
// Progress is only written to stderr in text mode; json mode keeps stdout
// (and, by convention here, stderr) free of anything but the result
// document so a caller piping output doesn't have to filter noise.
func indexAndSnapshot(ctx context.Context) (*ferro.Host, *ferro.Snapshot, error) {
	var progress io.Writer
	if flagFormat == "text" {
		progress = os.Stderr
	}
	h, err := indexPath(ctx, flagRoot, progress)
	if err != nil {
		return nil, nil, fmt.Errorf("indexing %s: %w", flagRoot, err)
	}
	return h, h.Snapshot(), nil
}

func parseFilePosition(fileArg, offsetArg string) (ferro.FilePosition, error) {
	file, err := strconv.Atoi(fileArg)
	if err != nil {
		return ferro.FilePosition{}, fmt.Errorf("invalid file id %q: %w", fileArg, err)
	}
	offset, err := strconv.Atoi(offsetArg)
	if err != nil {
		return ferro.FilePosition{}, fmt.Errorf("invalid offset %q: %w", offsetArg, err)
	}
	return ferro.FilePosition{File: intern.FileId(file), Offset: offset}, nil
}

func parseFileRange(fileArg, startArg, endArg string) (ferro.FileRange, error) {
	file, err := strconv.Atoi(fileArg)
	if err != nil {
		return ferro.FileRange{}, fmt.Errorf("invalid file id %q: %w", fileArg, err)
	}
	start, err := strconv.Atoi(startArg)
	if err != nil {
		return ferro.FileRange{}, fmt.Errorf("invalid start %q: %w", startArg, err)
	}
	end, err := strconv.Atoi(endArg)
	if err != nil {
		return ferro.FileRange{}, fmt.Errorf("invalid end %q: %w", endArg, err)
	}
	return ferro.FileRange{File: intern.FileId(file), Start: start, End: end}, nil
}

func symbolKindName(k index.SymbolKind) string {
	switch k {
	case index.SymbolKindFunction:
		return "function"
	case index.SymbolKindStruct:
		return "struct"
	case index.SymbolKindEnum:
		return "enum"
	case index.SymbolKindTrait:
		return "trait"
	case index.SymbolKindTypeAlias:
		return "type_alias"
	case index.SymbolKindConst:
		return "const"
	case index.SymbolKindStatic:
		return "static"
	case index.SymbolKindModule:
		return "module"
	case index.SymbolKindImpl:
		return "impl"
	case index.SymbolKindField:
		return "field"
	case index.SymbolKindVariant:
		return "variant"
	default:
		return "unknown"
	}
}

func cliSymbol(fs index.FileSymbol) CLISymbol {
	return CLISymbol{
		File:      int32(fs.File),
		Name:      fs.Symbol.Name,
		Kind:      symbolKindName(fs.Symbol.Kind),
		Def:       int32(fs.Symbol.Def),
		StartByte: fs.Symbol.NodeRange.Start,
		EndByte:   fs.Symbol.NodeRange.End,
	}
}

func cliRange(r ferro.FileRange) CLIRange {
	return CLIRange{File: int32(r.File), Start: r.Start, End: r.End}
}

// outputResult marshals a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so
// RunE can propagate it to cobra.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(CLIResult{Command: command, Error: err.Error()})
	return err
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}

// --- world-symbols ---

var (
	flagExact     bool
	flagOnlyTypes bool
	flagLimit     int
	flagLibs      bool
)

var worldSymbolsCmd = &cobra.Command{
	Use:   "world-symbols <query>",
	Short: "Fuzzy symbol search across the indexed workspace",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorldSymbols,
}

func init() {
	worldSymbolsCmd.Flags().BoolVar(&flagExact, "exact", false, "require an exact name match")
	worldSymbolsCmd.Flags().BoolVar(&flagOnlyTypes, "only-types", false, "only struct/enum/trait/type-alias symbols")
	worldSymbolsCmd.Flags().IntVar(&flagLimit, "limit", 50, "maximum results")
	worldSymbolsCmd.Flags().BoolVar(&flagLibs, "libs", false, "search library indices instead of local files")
}

func runWorldSymbols(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	_, snap, err := indexAndSnapshot(ctx)
	if err != nil {
		return outputError("world-symbols", err)
	}
	defer snap.Release()

	syms, err := snap.WorldSymbols(ctx, index.Query{
		Text: args[0], Exact: flagExact, OnlyTypes: flagOnlyTypes, Limit: flagLimit, Libs: flagLibs,
	})
	if err != nil {
		return outputError("world-symbols", err)
	}

	cliSyms := make([]CLISymbol, len(syms))
	for i, s := range syms {
		cliSyms[i] = cliSymbol(s)
	}
	count := len(cliSyms)
	return outputResult(CLIResult{Command: "world-symbols", Results: cliSyms, TotalCount: &count})
}

// --- parent-module ---

var parentModuleCmd = &cobra.Command{
	Use:   "parent-module <file>",
	Short: "Find the mod declaration that brought a file's module into the tree",
	Args:  cobra.ExactArgs(1),
	RunE:  runParentModule,
}

func runParentModule(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	file, err := strconv.Atoi(args[0])
	if err != nil {
		return outputError("parent-module", fmt.Errorf("invalid file id %q: %w", args[0], err))
	}
	_, snap, err := indexAndSnapshot(ctx)
	if err != nil {
		return outputError("parent-module", err)
	}
	defer snap.Release()

	syms, err := snap.ParentModule(ctx, ferro.FilePosition{File: intern.FileId(file)})
	if err != nil {
		return outputError("parent-module", err)
	}
	cliSyms := make([]CLISymbol, len(syms))
	for i, s := range syms {
		cliSyms[i] = cliSymbol(s)
	}
	count := len(cliSyms)
	return outputResult(CLIResult{Command: "parent-module", Results: cliSyms, TotalCount: &count})
}

// --- crate-for ---

var crateForCmd = &cobra.Command{
	Use:   "crate-for <file>",
	Short: "Report which crates a file's source root belongs to",
	Args:  cobra.ExactArgs(1),
	RunE:  runCrateFor,
}

func runCrateFor(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	file, err := strconv.Atoi(args[0])
	if err != nil {
		return outputError("crate-for", fmt.Errorf("invalid file id %q: %w", args[0], err))
	}
	_, snap, err := indexAndSnapshot(ctx)
	if err != nil {
		return outputError("crate-for", err)
	}
	defer snap.Release()

	crates, err := snap.CrateFor(ctx, intern.FileId(file))
	if err != nil {
		return outputError("crate-for", err)
	}
	ids := make([]int32, len(crates))
	for i, c := range crates {
		ids[i] = int32(c)
	}
	count := len(ids)
	return outputResult(CLIResult{Command: "crate-for", Results: ids, TotalCount: &count})
}

// --- completions ---

var completionsCmd = &cobra.Command{
	Use:   "completions <file> <offset>",
	Short: "List bindings and item names visible at a position",
	Args:  cobra.ExactArgs(2),
	RunE:  runCompletions,
}

func runCompletions(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	pos, err := parseFilePosition(args[0], args[1])
	if err != nil {
		return outputError("completions", err)
	}
	_, snap, err := indexAndSnapshot(ctx)
	if err != nil {
		return outputError("completions", err)
	}
	defer snap.Release()

	items, err := snap.Completions(ctx, pos)
	if err != nil {
		return outputError("completions", err)
	}
	cliItems := make([]CLICompletionItem, len(items))
	for i, it := range items {
		cliItems[i] = CLICompletionItem{Label: it.Label, Kind: symbolKindName(it.Kind)}
	}
	count := len(cliItems)
	return outputResult(CLIResult{Command: "completions", Results: cliItems, TotalCount: &count})
}

// --- resolve (approximately_resolve_symbol) ---

var resolveCmd = &cobra.Command{
	Use:   "resolve <file> <offset>",
	Short: "Best-effort go-to-definition at a position",
	Args:  cobra.ExactArgs(2),
	RunE:  runResolve,
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	pos, err := parseFilePosition(args[0], args[1])
	if err != nil {
		return outputError("resolve", err)
	}
	_, snap, err := indexAndSnapshot(ctx)
	if err != nil {
		return outputError("resolve", err)
	}
	defer snap.Release()

	res, err := snap.ApproximatelyResolveSymbol(ctx, pos)
	if err != nil {
		return outputError("resolve", err)
	}
	defs := make([]int32, len(res.Defs))
	for i, d := range res.Defs {
		defs[i] = int32(d)
	}
	return outputResult(CLIResult{Command: "resolve", Results: CLIResolution{Defs: defs, ViaIndex: res.ViaIndex}})
}

// --- refs (find_all_refs) ---

var refsCmd = &cobra.Command{
	Use:   "refs <file> <offset>",
	Short: "Find all references to the binding at a position within its function",
	Args:  cobra.ExactArgs(2),
	RunE:  runRefs,
}

func runRefs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	pos, err := parseFilePosition(args[0], args[1])
	if err != nil {
		return outputError("refs", err)
	}
	_, snap, err := indexAndSnapshot(ctx)
	if err != nil {
		return outputError("refs", err)
	}
	defer snap.Release()

	res, err := snap.FindAllRefs(ctx, pos)
	if err != nil {
		return outputError("refs", err)
	}
	if res == nil {
		return outputResult(CLIResult{Command: "refs", Results: nil})
	}
	refs := make([]CLIRange, len(res.Refs))
	for i, r := range res.Refs {
		refs[i] = cliRange(r)
	}
	return outputResult(CLIResult{
		Command: "refs",
		Results: CLIRefResult{Binding: cliRange(res.Binding), Refs: refs},
	})
}

// --- diagnostics ---

var diagnosticsCmd = &cobra.Command{
	Use:   "diagnostics <file>",
	Short: "Report module-resolution problems for a file's source root",
	Args:  cobra.ExactArgs(1),
	RunE:  runDiagnostics,
}

func runDiagnostics(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	file, err := strconv.Atoi(args[0])
	if err != nil {
		return outputError("diagnostics", fmt.Errorf("invalid file id %q: %w", args[0], err))
	}
	_, snap, err := indexAndSnapshot(ctx)
	if err != nil {
		return outputError("diagnostics", err)
	}
	defer snap.Release()

	diags, err := snap.Diagnostics(ctx, intern.FileId(file))
	if err != nil {
		return outputError("diagnostics", err)
	}
	cliDiags := make([]CLIDiagnostic, len(diags))
	for i, d := range diags {
		cd := CLIDiagnostic{Severity: d.Severity, Range: cliRange(d.Range), Message: d.Message}
		if d.Fix != nil {
			cd.Fix = &CLISourceFix{File: int32(d.Fix.File), Label: d.Fix.Label}
		}
		cliDiags[i] = cd
	}
	count := len(cliDiags)
	return outputResult(CLIResult{Command: "diagnostics", Results: cliDiags, TotalCount: &count})
}

// --- assists ---

var flagAssists string

var assistsCmd = &cobra.Command{
	Use:   "assists <file> <start> <end>",
	Short: "Run the configured editor assists over a range and report applicable ones",
	Args:  cobra.ExactArgs(3),
	RunE:  runAssists,
}

func init() {
	assistsCmd.Flags().StringVar(&flagAssists, "assists", "", "comma-separated assist script names to try")
}

func runAssists(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rng, err := parseFileRange(args[0], args[1], args[2])
	if err != nil {
		return outputError("assists", err)
	}
	if flagAssists == "" {
		return outputError("assists", fmt.Errorf("--assists is required: no default assist list"))
	}
	names := strings.Split(flagAssists, ",")
	for i := range names {
		names[i] = strings.TrimSpace(names[i])
	}

	h, snap, err := indexAndSnapshot(ctx)
	if err != nil {
		return outputError("assists", err)
	}
	defer snap.Release()

	changes, err := snap.Assists(ctx, rng, names)
	if err != nil {
		return outputError("assists", err)
	}
	cliChanges := make([]CLISourceFix, len(changes))
	for i, c := range changes {
		edits := make([]CLITextEdit, len(c.Edits))
		for j, e := range c.Edits {
			edits[j] = CLITextEdit{Start: e.Start, End: e.End, NewText: e.NewText}
		}
		before := h.Text(c.File)
		after := applyEdits(before, c.Edits)
		diff, diffErr := unifiedDiff(h.Path(c.File), before, after)
		if diffErr != nil {
			return outputError("assists", diffErr)
		}
		cliChanges[i] = CLISourceFix{File: int32(c.File), Label: c.Label, Edits: edits, Diff: diff}
	}
	count := len(cliChanges)
	return outputResult(CLIResult{Command: "assists", Results: cliChanges, TotalCount: &count})
}

// --- resolve-callable ---

var resolveCallableCmd = &cobra.Command{
	Use:   "resolve-callable <file> <offset>",
	Short: "Signature help: resolve the enclosing call and the current parameter",
	Args:  cobra.ExactArgs(2),
	RunE:  runResolveCallable,
}

func runResolveCallable(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	pos, err := parseFilePosition(args[0], args[1])
	if err != nil {
		return outputError("resolve-callable", err)
	}
	_, snap, err := indexAndSnapshot(ctx)
	if err != nil {
		return outputError("resolve-callable", err)
	}
	defer snap.Release()

	sig, err := snap.ResolveCallable(ctx, pos)
	if err != nil {
		return outputError("resolve-callable", err)
	}
	if sig == nil {
		return outputResult(CLIResult{Command: "resolve-callable", Results: nil})
	}
	return outputResult(CLIResult{
		Command: "resolve-callable",
		Results: CLISignature{Def: int32(sig.Def), CurrentParameter: sig.CurrentParameter},
	})
}

// --- type-of ---

var typeOfCmd = &cobra.Command{
	Use:   "type-of <file> <start> <end>",
	Short: "Best-effort inferred type for a byte range",
	Args:  cobra.ExactArgs(3),
	RunE:  runTypeOf,
}

func runTypeOf(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rng, err := parseFileRange(args[0], args[1], args[2])
	if err != nil {
		return outputError("type-of", err)
	}
	_, snap, err := indexAndSnapshot(ctx)
	if err != nil {
		return outputError("type-of", err)
	}
	defer snap.Release()

	t, ok, err := snap.TypeOf(ctx, rng)
	if err != nil {
		return outputError("type-of", err)
	}
	return outputResult(CLIResult{Command: "type-of", Results: CLITypeOf{Type: t, Unknown: !ok}})
}
