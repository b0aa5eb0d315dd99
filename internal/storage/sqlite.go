package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/matsen/r2t2/internal/reference"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
//
// The database is an ephemeral query index; the JSONL bibliography is the
// source of truth and the index is rebuilt from it.
type DB struct {
	db *sql.DB
}

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// createSchema creates the database schema if it doesn't exist.
func createSchema(db *sql.DB) error {
	schema := `
		-- One row per documented function site
		CREATE TABLE IF NOT EXISTS function_refs (
			key TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			source TEXT NOT NULL,
			line INTEGER NOT NULL,
			short_purpose_json TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_function_refs_source ON function_refs(source);

		-- Reference URLs in discovery order
		CREATE TABLE IF NOT EXISTS function_ref_urls (
			key TEXT NOT NULL,
			position INTEGER NOT NULL,
			url TEXT NOT NULL,
			PRIMARY KEY (key, position)
		);

		CREATE INDEX IF NOT EXISTS idx_function_ref_urls_url ON function_ref_urls(url);
	`

	_, err := db.Exec(schema)
	return err
}

// RebuildResult counts what a rebuild indexed.
type RebuildResult struct {
	Entries    int `json:"entries"`
	References int `json:"references"`
}

// RebuildFromJSONL clears the database and rebuilds it from a JSONL file.
func (d *DB) RebuildFromJSONL(jsonlPath string) (RebuildResult, error) {
	biblio, err := Load(jsonlPath)
	if err != nil {
		return RebuildResult{}, fmt.Errorf("reading JSONL: %w", err)
	}
	return d.Rebuild(biblio.Entries())
}

// Rebuild replaces the index contents with entries in one transaction.
func (d *DB) Rebuild(entries []reference.Entry) (RebuildResult, error) {
	var result RebuildResult

	tx, err := d.db.Begin()
	if err != nil {
		return result, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM function_refs"); err != nil {
		return result, fmt.Errorf("clearing function_refs table: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM function_ref_urls"); err != nil {
		return result, fmt.Errorf("clearing function_ref_urls table: %w", err)
	}

	refStmt, err := tx.Prepare(`
		INSERT INTO function_refs (key, name, source, line, short_purpose_json)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return result, fmt.Errorf("preparing function_refs insert: %w", err)
	}
	defer refStmt.Close()

	urlStmt, err := tx.Prepare(`
		INSERT INTO function_ref_urls (key, position, url)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return result, fmt.Errorf("preparing function_ref_urls insert: %w", err)
	}
	defer urlStmt.Close()

	for _, e := range entries {
		purposeJSON, err := json.Marshal(e.Reference.ShortPurpose)
		if err != nil {
			return result, fmt.Errorf("marshaling short purpose for %s: %w", e.Key, err)
		}

		ref := e.Reference
		if _, err := refStmt.Exec(e.Key, ref.Name, ref.Source, ref.Line, string(purposeJSON)); err != nil {
			return result, fmt.Errorf("inserting %s: %w", e.Key, err)
		}

		for i, url := range ref.References {
			if _, err := urlStmt.Exec(e.Key, i, url); err != nil {
				return result, fmt.Errorf("inserting reference %d for %s: %w", i, e.Key, err)
			}
		}

		result.Entries++
		result.References += len(ref.References)
	}

	if err := tx.Commit(); err != nil {
		return RebuildResult{}, fmt.Errorf("committing rebuild: %w", err)
	}
	return result, nil
}

// Count returns the number of indexed function sites.
func (d *DB) Count() (int, error) {
	var n int
	if err := d.db.QueryRow("SELECT COUNT(*) FROM function_refs").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting entries: %w", err)
	}
	return n, nil
}

// GetByKey retrieves the entry for a function-site key.
// Returns nil (not an error) if the key is not indexed.
func (d *DB) GetByKey(key string) (*reference.FunctionReference, error) {
	var ref reference.FunctionReference
	var purposeJSON string

	err := d.db.QueryRow(`
		SELECT name, source, line, short_purpose_json
		FROM function_refs WHERE key = ?`, key,
	).Scan(&ref.Name, &ref.Source, &ref.Line, &purposeJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(purposeJSON), &ref.ShortPurpose); err != nil {
		return nil, fmt.Errorf("parsing short purpose for %s: %w", key, err)
	}

	rows, err := d.db.Query(`
		SELECT url FROM function_ref_urls
		WHERE key = ? ORDER BY position`, key)
	if err != nil {
		return nil, fmt.Errorf("querying references for %s: %w", key, err)
	}
	defer rows.Close()

	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("scanning reference: %w", err)
		}
		ref.References = append(ref.References, url)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating references: %w", err)
	}

	return &ref, nil
}

// FindByURL returns the entries citing a reference URL, sorted by key.
func (d *DB) FindByURL(url string) ([]reference.Entry, error) {
	return d.findEntries(`
		SELECT DISTINCT key FROM function_ref_urls
		WHERE url = ? ORDER BY key`, url)
}

// FindBySource returns the entries found in a source file, sorted by line.
func (d *DB) FindBySource(source string) ([]reference.Entry, error) {
	return d.findEntries(`
		SELECT key FROM function_refs
		WHERE source = ? ORDER BY line, key`, source)
}

// findEntries loads the entries for the keys returned by query.
func (d *DB) findEntries(query string, args ...any) ([]reference.Entry, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying keys: %w", err)
	}

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning key: %w", err)
		}
		keys = append(keys, key)
	}
	// Close before issuing more queries on the single connection.
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating keys: %w", err)
	}

	entries := make([]reference.Entry, 0, len(keys))
	for _, key := range keys {
		ref, err := d.GetByKey(key)
		if err != nil {
			return nil, err
		}
		if ref != nil {
			entries = append(entries, reference.Entry{Key: key, Reference: *ref})
		}
	}
	return entries, nil
}
