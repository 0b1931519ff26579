package main

import (
	"sort"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/jward/ferrotree/internal/assist"
)

// applyEdits splices edits into text, applying them in reverse Start order
// so earlier offsets stay valid while later ones are spliced in.
func applyEdits(text string, edits []assist.TextEdit) string {
	sorted := append([]assist.TextEdit(nil), edits...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start > sorted[j].Start })
	for _, e := range sorted {
		if e.Start < 0 || e.End > len(text) || e.Start > e.End {
			continue
		}
		text = text[:e.Start] + e.NewText + text[e.End:]
	}
	return text
}

// unifiedDiff renders a unified diff between before and after, labeled
// with path, for the assists command's fix preview (each change's diff
// field).
func unifiedDiff(path, before, after string) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: path,
		ToFile:   path + " (fixed)",
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(diff)
}
