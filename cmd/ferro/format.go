package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
)

// formatSymbolsText formats CLISymbol results as aligned columns.
func formatSymbolsText(w io.Writer, syms []CLISymbol) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tNAME\tKIND\tDEF\tRANGE")
	for _, s := range syms {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d:%d\n", s.File, s.Name, s.Kind, s.Def, s.StartByte, s.EndByte)
	}
	tw.Flush()
}

// formatCompletionsText formats CLICompletionItem results as aligned columns.
func formatCompletionsText(w io.Writer, items []CLICompletionItem) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LABEL\tKIND")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\n", it.Label, it.Kind)
	}
	tw.Flush()
}

// formatResolutionText formats a CLIResolution.
func formatResolutionText(w io.Writer, r CLIResolution) {
	if len(r.Defs) == 0 {
		fmt.Fprintln(w, "no resolution")
		return
	}
	source := "scope"
	if r.ViaIndex {
		source = "symbol index"
	}
	for _, d := range r.Defs {
		fmt.Fprintf(w, "def %d (via %s)\n", d, source)
	}
}

// formatRefResultText formats a CLIRefResult.
func formatRefResultText(w io.Writer, r CLIRefResult) {
	fmt.Fprintf(w, "binding: file %d %d:%d\n", r.Binding.File, r.Binding.Start, r.Binding.End)
	if len(r.Refs) == 0 {
		return
	}
	fmt.Fprintln(w, "refs:")
	for _, rf := range r.Refs {
		fmt.Fprintf(w, "  file %d %d:%d\n", rf.File, rf.Start, rf.End)
	}
}

// formatDiagnosticsText formats CLIDiagnostic results, coloring by
// severity the way vjache-cie colors its CLI status lines.
func formatDiagnosticsText(w io.Writer, diags []CLIDiagnostic) {
	errColor := color.New(color.FgRed, color.Bold)
	warnColor := color.New(color.FgYellow)
	for _, d := range diags {
		sev := d.Severity
		switch d.Severity {
		case "error":
			sev = errColor.Sprint(d.Severity)
		case "warning":
			sev = warnColor.Sprint(d.Severity)
		}
		fmt.Fprintf(w, "%s: file %d %d:%d: %s\n", sev, d.Range.File, d.Range.Start, d.Range.End, d.Message)
		if d.Fix != nil {
			fmt.Fprintf(w, "  fix: %s\n", d.Fix.Label)
		}
	}
}

// formatSourceFixesText formats []CLISourceFix (the `assists` result).
func formatSourceFixesText(w io.Writer, fixes []CLISourceFix) {
	for _, f := range fixes {
		fmt.Fprintf(w, "%s (file %d)\n", f.Label, f.File)
		if f.Diff != "" {
			fmt.Fprint(w, f.Diff)
			continue
		}
		for _, e := range f.Edits {
			fmt.Fprintf(w, "  [%d,%d) -> %q\n", e.Start, e.End, e.NewText)
		}
	}
}

// formatSignatureText formats a CLISignature.
func formatSignatureText(w io.Writer, sig CLISignature) {
	fmt.Fprintf(w, "def %d, parameter %d\n", sig.Def, sig.CurrentParameter)
}

// formatTypeOfText formats a CLITypeOf.
func formatTypeOfText(w io.Writer, t CLITypeOf) {
	if t.Unknown {
		fmt.Fprintln(w, "unknown")
		return
	}
	fmt.Fprintln(w, t.Type)
}

// outputResultText dispatches to the appropriate text formatter based on
// the result type. It writes to os.Stdout.
func outputResultText(result CLIResult) error {
	w := io.Writer(os.Stdout)

	switch v := result.Results.(type) {
	case []CLISymbol:
		formatSymbolsText(w, v)
	case []CLICompletionItem:
		formatCompletionsText(w, v)
	case CLIResolution:
		formatResolutionText(w, v)
	case CLIRefResult:
		formatRefResultText(w, v)
	case []CLIDiagnostic:
		formatDiagnosticsText(w, v)
	case []CLISourceFix:
		formatSourceFixesText(w, v)
	case CLISignature:
		formatSignatureText(w, v)
	case CLITypeOf:
		formatTypeOfText(w, v)
	case []int32:
		for _, id := range v {
			fmt.Fprintln(w, id)
		}
	case nil:
		fmt.Fprintln(w, "(no result)")
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}

	if result.TotalCount != nil {
		fmt.Fprintf(w, "\n%d result(s)\n", *result.TotalCount)
	}
	return nil
}
