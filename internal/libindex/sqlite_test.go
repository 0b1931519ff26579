package libindex_test

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/ferrotree/internal/intern"
	"github.com/jward/ferrotree/internal/libindex"
)

func seedDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lib.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE library_symbols (
		id INTEGER PRIMARY KEY,
		file_path TEXT NOT NULL,
		name TEXT NOT NULL,
		kind INTEGER NOT NULL,
		start_byte INTEGER NOT NULL,
		end_byte INTEGER NOT NULL
	)`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO library_symbols (file_path, name, kind, start_byte, end_byte) VALUES
		(?, ?, ?, ?, ?), (?, ?, ?, ?, ?)`,
		"lib/widget.rs", "Widget", int(intern.DefKindStruct), 0, 10,
		"lib/widget.rs", "make_widget", int(intern.DefKindFunction), 12, 30,
	)
	require.NoError(t, err)
	return path
}

func TestLoadAllReadsRowsAndInterns(t *testing.T) {
	path := seedDB(t)

	store, err := libindex.Open(path)
	require.NoError(t, err)
	defer store.Close()

	interner := intern.NewStore()
	fileOf := func(p string) intern.FileId { return 100 }

	symbols, err := store.LoadAll(fileOf, interner)
	require.NoError(t, err)
	require.Len(t, symbols, 2)

	byName := make(map[string]intern.FileId)
	for _, s := range symbols {
		byName[s.Symbol.Name] = s.File
		assert.NotZero(t, s.Symbol.Def)
	}
	assert.Equal(t, intern.FileId(100), byName["Widget"])
	assert.Equal(t, intern.FileId(100), byName["make_widget"])
	assert.Equal(t, 2, interner.Len())
}

func TestOpenNonexistentFileFails(t *testing.T) {
	dir := t.TempDir()
	_, err := libindex.Open(filepath.Join(dir, "does-not-exist.db"))
	assert.Error(t, err, "mode=ro against a nonexistent file should fail")
}
