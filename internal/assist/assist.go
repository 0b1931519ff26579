// Package assist implements editor assists (the façade's `assists`
// operation, spec §4.6) as Risor scripts producing source edits — the same
// script-runner shape as internal/macro, a second script family
// (assist/*.risor) standing in for the teacher's extract/resolve pair.
package assist

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"
)

// TextEdit is a single replacement of [Start,End) in a file's text with
// NewText, the smallest unit of change an assist can propose.
type TextEdit struct {
	Start, End int
	NewText    string
}

// Assist is one applicable fix or refactor: a human-readable label plus
// the edits applying it makes, matching spec §4.6/§7's "diagnostics carry
// ... an optional fix" and the `assists` operation's own output shape.
type Assist struct {
	ID    string
	Label string
	Edits []TextEdit
}

// Context is what an assist script receives: the file text plus the byte
// offset the assist was requested at (a cursor position or selection
// start). Scripts only see this — no database handle, no
// syntax-tree proxy — keeping assists pure functions over text, same as
// internal/macro's expansion scripts.
type Context struct {
	Text   string
	Offset int
}

// Runner loads and executes assist/<name>.risor scripts.
type Runner struct {
	scriptsDir string
	fsys       fs.FS
}

// Option configures a Runner.
type Option func(*Runner)

// WithFS configures the Runner to load scripts from an fs.FS.
func WithFS(fsys fs.FS) Option {
	return func(r *Runner) { r.fsys = fsys }
}

// NewRunner returns a Runner loading assist/*.risor scripts from
// scriptsDir (or an fs.FS set via WithFS).
func NewRunner(scriptsDir string, opts ...Option) *Runner {
	r := &Runner{scriptsDir: scriptsDir}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ScriptPath returns the path to an assist's script.
func ScriptPath(name string) string {
	return filepath.Join("assist", name+".risor")
}

// Run executes name's script against ctx. A script that finds no
// applicable assist at ctx.Offset returns Risor nil; Run reports that as
// (nil, false, nil) rather than an error, matching spec §4.6's "list of
// completion items or none" pattern used elsewhere in the façade.
func (r *Runner) Run(ctx context.Context, name string, input Context) (*Assist, bool, error) {
	src, err := r.loadScript(ScriptPath(name))
	if err != nil {
		return nil, false, err
	}

	opts := []risor.Option{
		risor.WithGlobal("text", input.Text),
		risor.WithGlobal("offset", int64(input.Offset)),
	}
	if imp := r.buildImporter(); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	result, err := risor.Eval(ctx, src, opts...)
	if err != nil {
		return nil, false, fmt.Errorf("assist: running %s: %w", name, err)
	}
	if result == object.Nil {
		return nil, false, nil
	}

	m, ok := result.(*object.Map)
	if !ok {
		return nil, false, fmt.Errorf("assist: %s did not return a map or nil (got %s)", name, result.Type())
	}
	a, err := decodeAssist(name, m)
	if err != nil {
		return nil, false, err
	}
	return a, true, nil
}

func decodeAssist(name string, m *object.Map) (*Assist, error) {
	fields := m.Value()
	label, ok := fields["label"].(*object.String)
	if !ok {
		return nil, fmt.Errorf("assist: %s: result map missing string \"label\"", name)
	}
	editsList, ok := fields["edits"].(*object.List)
	if !ok {
		return nil, fmt.Errorf("assist: %s: result map missing list \"edits\"", name)
	}

	a := &Assist{ID: name, Label: label.Value()}
	for _, item := range editsList.Value() {
		em, ok := item.(*object.Map)
		if !ok {
			return nil, fmt.Errorf("assist: %s: edit entry is not a map", name)
		}
		ef := em.Value()
		start, sok := ef["start"].(*object.Int)
		end, eok := ef["end"].(*object.Int)
		text, tok := ef["new_text"].(*object.String)
		if !sok || !eok || !tok {
			return nil, fmt.Errorf("assist: %s: edit entry missing start/end/new_text", name)
		}
		a.Edits = append(a.Edits, TextEdit{
			Start:   int(start.Value()),
			End:     int(end.Value()),
			NewText: text.Value(),
		})
	}
	return a, nil
}

func (r *Runner) buildImporter() importer.Importer {
	names := []string{"text", "offset"}
	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: names,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: names,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

func (r *Runner) loadScript(path string) (string, error) {
	if r.fsys != nil {
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("assist: loading script %s: %w", fsPath, err)
		}
		return string(data), nil
	}
	full := path
	if !filepath.IsAbs(path) {
		full = filepath.Join(r.scriptsDir, path)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("assist: loading script %s: %w", full, err)
	}
	return string(data), nil
}
