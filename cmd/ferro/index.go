package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/schollz/progressbar/v3"

	"github.com/jward/ferrotree"
	"github.com/jward/ferrotree/internal/index"
	"github.com/jward/ferrotree/internal/intern"
)

// defaultIgnoreGlobs skips directories no analysis run needs to see,
// mirroring the teacher's skipDirs set but expressed as doublestar
// patterns. The list is fixed; no CLI flag extends it.
var defaultIgnoreGlobs = []string{
	"**/.git/**",
	"**/target/**",
	"**/node_modules/**",
}

// localRoot is the one source root every `ferro` CLI invocation indexes:
// the CLI has no multi-root/workspace concept, unlike the library-facing
// Host.ApplyChange API it drives.
const localRoot intern.SourceRootId = 1

// indexPath walks dir for *.rs files, interns a FileId per file in
// deterministic (sorted) order, and applies one ChangeSet declaring a
// single local source root containing them all. It reports progress on
// progress (nil to disable, as a --format json invocation does, keeping
// stdout a clean JSON document).
func indexPath(ctx context.Context, dir string, progress io.Writer) (*ferro.Host, error) {
	paths, err := discoverRustFiles(dir)
	if err != nil {
		return nil, err
	}

	h := ferro.New(ferro.WithScriptsDir(flagScriptsDir))

	var bar *progressbar.ProgressBar
	if progress != nil {
		bar = progressbar.NewOptions64(int64(len(paths)),
			progressbar.OptionSetDescription("indexing"),
			progressbar.OptionSetWriter(progress),
			progressbar.OptionClearOnFinish(),
		)
	}

	added := make([]ferro.AddedFile, 0, len(paths))
	var nextFile intern.FileId = 1
	for _, p := range paths {
		text, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		added = append(added, ferro.AddedFile{File: nextFile, Path: p, Text: string(text)})
		nextFile++
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}

	h.ApplyChange(ferro.ChangeSet{
		NewRoots: []ferro.NewRoot{{Root: localRoot, IsLocal: true}},
		RootsChanged: map[intern.SourceRootId]ferro.RootChange{
			localRoot: {Added: added},
		},
	})

	// Warm the file_symbols cache for every indexed file up front so the
	// first query issued against the resulting Host doesn't pay for
	// parsing serially; ComputeAllParallel is the same fan-out the spec's
	// §4.3 "computed in parallel" note describes for a workspace-wide scan.
	files := make([]intern.FileId, len(added))
	for i, f := range added {
		files[i] = f.File
	}
	snap := h.Engine().Snapshot()
	_, err = index.ComputeAllParallel(ctx, snap, files)
	snap.Release()
	if err != nil {
		return nil, fmt.Errorf("warming file_symbols: %w", err)
	}

	return h, nil
}

// discoverRustFiles walks dir for *.rs files, skipping anything matching
// defaultIgnoreGlobs, and returns them sorted for deterministic FileId
// assignment across runs.
func discoverRustFiles(dir string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			rel = path
		}
		if d.IsDir() {
			if isIgnored(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".rs" {
			return nil
		}
		if isIgnored(rel) {
			return nil
		}
		out = append(out, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	sort.Strings(out)
	return out, nil
}

func isIgnored(relPath string) bool {
	for _, pattern := range defaultIgnoreGlobs {
		if matched, _ := doublestar.Match(pattern, filepath.ToSlash(relPath)); matched {
			return true
		}
	}
	return false
}
