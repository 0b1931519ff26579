// Package macro implements macro expansion as Risor scripts: a pure
// function from a syntax fragment plus invocation arguments to an expanded
// syntax fragment, exactly the contract the spec's §1/§6 "macro expansion"
// external collaborator describes. Grounded directly on the teacher's
// internal/runtime/runtime.go (script loading, risor.WithImporter,
// risor.WithGlobal), with its own script family (expand/*.risor) standing
// in for the teacher's extract/resolve pair.
package macro

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

// Fragment is the plain-text syntax a macro invocation expands from or to.
// Byte offsets are relative to the fragment, not the owning file — the
// caller (internal/index or the façade) is responsible for splicing the
// result back into the file's text.
type Fragment struct {
	Text string
}

// Expander runs one named macro's expand/<name>.risor script over a
// Fragment. Scripts are pure: the only globals exposed are the fragment
// text (as input) and the macro's arguments, with no database or syntax-tree
// handles, matching the spec's "macro expansion... is a pure function"
// framing.
type Expander struct {
	scriptsDir string
	fsys       fs.FS
}

// Option configures an Expander.
type Option func(*Expander)

// WithFS configures the Expander to load scripts from an fs.FS (e.g. an
// embed.FS) instead of a directory on disk.
func WithFS(fsys fs.FS) Option {
	return func(e *Expander) { e.fsys = fsys }
}

// NewExpander returns an Expander loading expand/*.risor scripts from
// scriptsDir (or an fs.FS set via WithFS).
func NewExpander(scriptsDir string, opts ...Option) *Expander {
	e := &Expander{scriptsDir: scriptsDir}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ScriptPath returns the path to a macro's expansion script, mirroring the
// teacher's ExtractionScriptPath/ResolutionScriptPath helpers.
func ScriptPath(macroName string) string {
	return filepath.Join("expand", macroName+".risor")
}

// Expand runs macro's expand script against input, with args bound as
// Risor globals under their given names. The script's last expression
// becomes the expanded Fragment's text.
func (e *Expander) Expand(ctx context.Context, macroName string, input Fragment, args map[string]any) (Fragment, error) {
	src, err := e.loadScript(ScriptPath(macroName))
	if err != nil {
		return Fragment{}, err
	}

	var opts []risor.Option
	opts = append(opts, risor.WithGlobal("input", input.Text))
	for name, val := range args {
		opts = append(opts, risor.WithGlobal(name, val))
	}
	if imp := e.buildImporter(args); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	result, err := risor.Eval(ctx, src, opts...)
	if err != nil {
		return Fragment{}, fmt.Errorf("macro: expanding %s: %w", macroName, err)
	}

	s, ok := result.(*object.String)
	if !ok {
		return Fragment{}, fmt.Errorf("macro: %s did not return a string (got %s)", macroName, result.Type())
	}
	return Fragment{Text: s.Value()}, nil
}

func (e *Expander) buildImporter(args map[string]any) importer.Importer {
	names := make([]string, 0, len(args)+1)
	names = append(names, "input")
	for name := range args {
		names = append(names, name)
	}
	if e.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: names,
			SourceFS:    e.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if e.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: names,
			SourceDir:   e.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

func (e *Expander) loadScript(path string) (string, error) {
	if e.fsys != nil {
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(e.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("macro: loading script %s: %w", fsPath, err)
		}
		return string(data), nil
	}
	full := path
	if !filepath.IsAbs(path) {
		full = filepath.Join(e.scriptsDir, path)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("macro: loading script %s: %w", full, err)
	}
	return string(data), nil
}
