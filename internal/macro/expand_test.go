package macro_test

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/ferrotree/internal/macro"
)

func newExpander(scripts map[string]string) *macro.Expander {
	fsys := fstest.MapFS{}
	for name, src := range scripts {
		fsys[macro.ScriptPath(name)] = &fstest.MapFile{Data: []byte(src)}
	}
	return macro.NewExpander("", macro.WithFS(fsys))
}

func TestExpandReturnsScriptResult(t *testing.T) {
	e := newExpander(map[string]string{"upper": `input + "!"`})

	out, err := e.Expand(context.Background(), "upper", macro.Fragment{Text: "hello"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello!", out.Text)
}

func TestExpandBindsArgsAsGlobals(t *testing.T) {
	e := newExpander(map[string]string{"repeat": `input + suffix`})

	out, err := e.Expand(context.Background(), "repeat", macro.Fragment{Text: "a"}, map[string]any{"suffix": "bc"})
	require.NoError(t, err)
	assert.Equal(t, "abc", out.Text)
}

func TestExpandErrorsOnNonStringResult(t *testing.T) {
	e := newExpander(map[string]string{"bad": `42`})
	_, err := e.Expand(context.Background(), "bad", macro.Fragment{Text: "x"}, nil)
	assert.Error(t, err)
}

func TestExpandErrorsOnMissingScript(t *testing.T) {
	e := newExpander(nil)
	_, err := e.Expand(context.Background(), "missing", macro.Fragment{Text: "x"}, nil)
	assert.Error(t, err)
}

func TestScriptPathJoinsExpandDir(t *testing.T) {
	assert.Equal(t, "expand/foo.risor", macro.ScriptPath("foo"))
}
