// Package libindex loads library-provided symbol indices shipped as
// read-only SQLite databases — a separate on-disk shipping format from the
// live in-memory query cache, never the cache itself (spec §4.3's library
// indices are "inputs, not derived"; the engine keeps no disk cache of its
// own, per the spec's non-goals). Grounded directly on the teacher's
// internal/store/store.go (NewStore, WAL-mode open, idempotent
// CREATE TABLE IF NOT EXISTS migration).
package libindex

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jward/ferrotree/internal/index"
	"github.com/jward/ferrotree/internal/intern"
)

// Store is a read-only handle onto one library's shipped symbol index.
type Store struct {
	db *sql.DB
}

// Open opens the SQLite database at path read-only, in WAL mode, matching
// the teacher's connection string shape. Library index files are built
// offline (outside this repo's scope) and only ever read here.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?mode=ro&_journal_mode=WAL&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("libindex: opening %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("libindex: pinging %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the library_symbols table if this file is being used as
// a scratch build target rather than a pre-shipped index. Idempotent, like
// the teacher's Migrate.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("libindex: migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS library_symbols (
  id         INTEGER PRIMARY KEY,
  file_path  TEXT NOT NULL,
  name       TEXT NOT NULL,
  kind       INTEGER NOT NULL,
  start_byte INTEGER NOT NULL,
  end_byte   INTEGER NOT NULL
);
`

// LoadAll reads every row of library_symbols, assigning each a synthetic
// FileId (one per distinct file_path, via fileOf) and interning its
// definition location, producing the (FileId, Symbol) pairs
// index.BuildSymbolIndex expects.
func (s *Store) LoadAll(fileOf func(path string) intern.FileId, interner *intern.Store) ([]index.FileSymbol, error) {
	rows, err := s.db.Query(`SELECT file_path, name, kind, start_byte, end_byte FROM library_symbols`)
	if err != nil {
		return nil, fmt.Errorf("libindex: query: %w", err)
	}
	defer rows.Close()

	var out []index.FileSymbol
	perFileCount := make(map[intern.FileId]int)
	for rows.Next() {
		var path, name string
		var kind, start, end int
		if err := rows.Scan(&path, &name, &kind, &start, &end); err != nil {
			return nil, fmt.Errorf("libindex: scan: %w", err)
		}
		file := fileOf(path)
		itemIdx := perFileCount[file]
		perFileCount[file]++

		def := interner.Intern(intern.DefLoc{
			Item: intern.SourceItemId{FileId: file, ItemIndex: intern.ItemIndex(itemIdx)},
			Kind: intern.DefKind(kind),
		})
		out = append(out, index.FileSymbol{
			File: file,
			Symbol: index.Symbol{
				Name:      name,
				NodeRange: index.NodeRange{Start: start, End: end},
				Kind:      index.SymbolKind(kind),
				Def:       def,
			},
		})
	}
	return out, rows.Err()
}
