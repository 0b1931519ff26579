package index_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/ferrotree/internal/index"
	"github.com/jward/ferrotree/internal/intern"
	"github.com/jward/ferrotree/internal/query"
)

// fakeFileSet is a small, hand-built index.FileSet for module_tree tests,
// avoiding any dependency on a real syntax layer.
type fakeFileSet struct {
	roots   []intern.FileId
	decls   map[intern.FileId][]index.ModuleDecl
	targets map[string]intern.FileId // "file:name" -> target file
	dirOwner map[intern.FileId]bool
}

func (f *fakeFileSet) CrateRoots() []intern.FileId { return f.roots }

func (f *fakeFileSet) ModuleDecls(ctx context.Context, file intern.FileId) ([]index.ModuleDecl, error) {
	return f.decls[file], nil
}

func (f *fakeFileSet) Resolve(file intern.FileId, name string) (intern.FileId, string, bool) {
	key := moduleKey(file, name)
	target, ok := f.targets[key]
	if !ok {
		if !f.dirOwner[file] {
			return 0, name + "/mod.rs", false
		}
		return 0, "", false
	}
	return target, "", true
}

func (f *fakeFileSet) IsDirOwner(file intern.FileId) bool { return f.dirOwner[file] }

func moduleKey(file intern.FileId, name string) string {
	return fmt.Sprintf("%d:%s", file, name)
}

// seedFiles publishes the source_file and root_files inputs module_tree now
// depends on, so demanding module_tree against a bare test engine doesn't
// panic on an unset input.
func seedFiles(e *query.Engine, root intern.SourceRootId, files []intern.FileId) {
	for _, f := range files {
		e.Set(index.KindSourceFile, f, query.Text(""))
	}
	e.Set(index.KindRootFiles, root, query.Opaque{V: files})
}

func TestBuildModuleTreeResolvesChildren(t *testing.T) {
	root := intern.FileId(1)
	child := intern.FileId(2)
	fs := &fakeFileSet{
		roots: []intern.FileId{root},
		decls: map[intern.FileId][]index.ModuleDecl{
			root: {{Name: "foo"}},
		},
		targets:  map[string]intern.FileId{moduleKey(root, "foo"): child},
		dirOwner: map[intern.FileId]bool{root: true},
	}

	e := query.NewEngine()
	index.RegisterModuleTree(e, func(intern.SourceRootId) index.FileSet { return fs })
	seedFiles(e, intern.SourceRootId(1), []intern.FileId{root, child})

	snap := e.Snapshot()
	defer snap.Release()
	v, err := query.Execute(context.Background(), snap, index.KindModuleTree, intern.SourceRootId(1))
	require.NoError(t, err)

	tree := v.(*index.ModuleTree)
	require.Len(t, tree.Nodes, 2)
	assert.Equal(t, root, tree.Nodes[0].File)
	assert.Equal(t, child, tree.Nodes[1].File)
	assert.Equal(t, []int{1}, tree.Nodes[0].Children)
	assert.Empty(t, tree.Problems)
}

func TestBuildModuleTreeRecordsUnresolvedProblem(t *testing.T) {
	root := intern.FileId(1)
	fs := &fakeFileSet{
		roots: []intern.FileId{root},
		decls: map[intern.FileId][]index.ModuleDecl{
			root: {{Name: "missing"}},
		},
		targets:  map[string]intern.FileId{},
		dirOwner: map[intern.FileId]bool{root: true},
	}

	e := query.NewEngine()
	index.RegisterModuleTree(e, func(intern.SourceRootId) index.FileSet { return fs })
	seedFiles(e, intern.SourceRootId(1), []intern.FileId{root})

	snap := e.Snapshot()
	defer snap.Release()
	v, err := query.Execute(context.Background(), snap, index.KindModuleTree, intern.SourceRootId(1))
	require.NoError(t, err)

	tree := v.(*index.ModuleTree)
	require.Len(t, tree.Problems, 1)
	assert.Equal(t, "missing", tree.Problems[0].UnresolvedModulePath)
}

func TestBuildModuleTreeRecordsNotDirOwnerProblem(t *testing.T) {
	root := intern.FileId(1)
	fs := &fakeFileSet{
		roots: []intern.FileId{root},
		decls: map[intern.FileId][]index.ModuleDecl{
			root: {{Name: "sub"}},
		},
		targets:  map[string]intern.FileId{},
		dirOwner: map[intern.FileId]bool{root: false},
	}

	e := query.NewEngine()
	index.RegisterModuleTree(e, func(intern.SourceRootId) index.FileSet { return fs })
	seedFiles(e, intern.SourceRootId(1), []intern.FileId{root})

	snap := e.Snapshot()
	defer snap.Release()
	v, err := query.Execute(context.Background(), snap, index.KindModuleTree, intern.SourceRootId(1))
	require.NoError(t, err)

	tree := v.(*index.ModuleTree)
	require.Len(t, tree.Problems, 1)
	assert.Equal(t, "sub", tree.Problems[0].NotDirOwnerCandidate)
	assert.Equal(t, "sub/mod.rs", tree.Problems[0].NotDirOwnerMoveTo)
}

func TestItemMapFixpointResolvesImports(t *testing.T) {
	root := intern.FileId(1)
	child := intern.FileId(2)
	fs := &fakeFileSet{
		roots: []intern.FileId{root},
		decls: map[intern.FileId][]index.ModuleDecl{
			root: {{Name: "sub"}},
		},
		targets:  map[string]intern.FileId{moduleKey(root, "sub"): child},
		dirOwner: map[intern.FileId]bool{root: true},
	}

	e := query.NewEngine()
	index.RegisterModuleTree(e, func(intern.SourceRootId) index.FileSet { return fs })
	index.RegisterItemMap(e)
	seedFiles(e, intern.SourceRootId(1), []intern.FileId{root, child})

	fooDef := intern.DefId(42)
	e.RegisterDerived(index.KindModuleItems, func(ctx context.Context, x *query.Execution, key query.Key) (query.Value, error) {
		k := key.(index.ModuleItemsKey)
		if k.Module == 1 { // "sub" module: defines Foo
			return &index.ModuleItems{Locals: map[string]intern.DefId{"Foo": fooDef}}, nil
		}
		// root module: imports Foo from sub
		return &index.ModuleItems{
			Imports: map[string]struct{ Module, Name string }{
				"Foo": {Module: "sub", Name: "Foo"},
			},
		}, nil
	})

	snap := e.Snapshot()
	defer snap.Release()
	v, err := query.Execute(context.Background(), snap, index.KindItemMap, intern.SourceRootId(1))
	require.NoError(t, err)

	im := v.(*index.ItemMap)
	require.Len(t, im.Tables, 2)
	resolved, ok := im.Tables[0]["Foo"]
	require.True(t, ok, "root module's import of Foo should resolve via the fixpoint")
	assert.Equal(t, fooDef, resolved.Def)
}

func TestSortedModuleNames(t *testing.T) {
	tree := &index.ModuleTree{
		Nodes: []index.ModuleNode{
			{Name: ""},
			{Name: "zeta"},
			{Name: "alpha"},
		},
	}
	assert.Equal(t, []string{"alpha", "zeta"}, index.SortedModuleNames(tree))
}
