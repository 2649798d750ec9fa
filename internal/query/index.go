package query

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/linetrace/linetrace/internal/annotation"
	"github.com/linetrace/linetrace/internal/gitplumb"
	"github.com/linetrace/linetrace/internal/project"
	"github.com/linetrace/linetrace/internal/rangeset"
)

// Index is a rebuildable sqlite cache of every commit's annotation
// ranges, so enumerating across many commits and files doesn't mean
// walking the metadata ref's whole blob list on every query — the same
// staleness-by-ref-SHA design the teacher's reason index used, keyed
// here on the annotation ref's HEAD instead of the log directory's
// mtimes.
type Index struct {
	db *sql.DB
}

// OpenIndex opens (creating if absent) the sqlite cache at paths.IndexDB.
func OpenIndex(paths project.Paths) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(paths.IndexDB), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", paths.IndexDB)
	if err != nil {
		return nil, err
	}
	schema := `
	CREATE TABLE IF NOT EXISTS ranges (
		commit_id TEXT NOT NULL,
		path      TEXT NOT NULL,
		ranges    TEXT NOT NULL,
		PRIMARY KEY (commit_id, path)
	);
	CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Index{db: db}, nil
}

// Close closes the underlying database handle.
func (ix *Index) Close() error { return ix.db.Close() }

// IsStale reports whether the annotations ref has moved past what this
// index was last rebuilt from.
func (ix *Index) IsStale(root string) bool {
	stored := ix.metaGet("ref_sha")
	if stored == "" {
		return true
	}
	current, err := gitplumb.RevParse(root, annotation.RefName)
	if err != nil {
		return true
	}
	return stored != current
}

// Rebuild repopulates the cache from every annotated commit currently
// on the metadata ref.
func (ix *Index) Rebuild(root string) error {
	ids, err := annotation.List(root)
	if err != nil {
		return err
	}

	tx, err := ix.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM ranges"); err != nil {
		tx.Rollback()
		return err
	}
	for _, id := range ids {
		rec, ok, err := annotation.Read(root, id)
		if err != nil || !ok {
			continue
		}
		for path, ranges := range rec.Files() {
			if _, err := tx.Exec(
				"INSERT INTO ranges (commit_id, path, ranges) VALUES (?, ?, ?)",
				id, path, ranges.String(),
			); err != nil {
				tx.Rollback()
				return err
			}
		}
	}

	ref, err := gitplumb.RevParse(root, annotation.RefName)
	if err != nil {
		ref = ""
	}
	if _, err := tx.Exec(
		"INSERT INTO meta (key, value) VALUES ('ref_sha', ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		ref,
	); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Lookup returns the cached range set for commitID/path, if present.
func (ix *Index) Lookup(commitID, path string) (rangeset.RangeSet, bool, error) {
	var encoded string
	err := ix.db.QueryRow(
		"SELECT ranges FROM ranges WHERE commit_id = ? AND path = ?", commitID, path,
	).Scan(&encoded)
	if err == sql.ErrNoRows {
		return rangeset.RangeSet{}, false, nil
	}
	if err != nil {
		return rangeset.RangeSet{}, false, fmt.Errorf("index lookup %s/%s: %w", commitID, path, err)
	}
	rs, err := rangeset.FromString(encoded)
	if err != nil {
		return rangeset.RangeSet{}, false, err
	}
	return rs, true, nil
}

// CommitsFor returns the id of every commit the cache has an entry for
// path under, ordered by commit id.
func (ix *Index) CommitsFor(path string) ([]string, error) {
	rows, err := ix.db.Query("SELECT commit_id FROM ranges WHERE path = ? ORDER BY commit_id", path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (ix *Index) metaGet(key string) string {
	var value string
	if err := ix.db.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value); err != nil {
		return ""
	}
	return value
}
