// Package stage implements the staging store spec §3/§4.2/§9 describes:
// one JSON file per tracked path under the tracking directory, holding
// the range set of post-image lines an AI tool has claimed since the
// last commit. Writes are atomic (temp file + rename) and the whole
// directory is guarded by an advisory lock for cross-process exclusion
// (spec §5 "Shared resources").
package stage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/linetrace/linetrace/internal/event"
	"github.com/linetrace/linetrace/internal/rangeset"
)

// Entry is one staging record: a tracked path and the lines claimed for
// it since the last commit.
type Entry struct {
	Path  string            `json:"path"`
	Lines rangeset.RangeSet `json:"lines"`
}

// pathToFile maps a repository-relative path to its staging file under
// dir, preserving the path's own directory structure (spec §6:
// "<tracking-dir>/<path>.json").
func pathToFile(dir, path string) string {
	return filepath.Join(dir, filepath.FromSlash(path)+".json")
}

// Get reads the staging entry for path, if any.
func Get(dir, path string) (Entry, bool, error) {
	data, err := os.ReadFile(pathToFile(dir, path))
	if err != nil {
		if os.IsNotExist(err) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

// Put atomically writes (or replaces) the staging entry for e.Path.
func Put(dir string, e Entry) error {
	file := pathToFile(dir, e.Path)
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return AtomicWrite(file, data)
}

// Remove deletes the staging entry for path, if present.
func Remove(dir, path string) error {
	err := os.Remove(pathToFile(dir, path))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// All enumerates every staging entry currently in dir. Result is sorted
// by path for deterministic iteration.
func All(dir string) ([]Entry, error) {
	var entries []Entry
	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(p, ".json") {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil // skip unreadable entries rather than fail the whole scan
		}
		var e Entry
		if err := json.Unmarshal(data, &e); err != nil {
			return nil // skip corrupt entries
		}
		entries = append(entries, e)
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// Apply is the Event Ingestor algorithm (spec §4.2): given an extraction
// for path, remap any existing staging entry forward through this
// event's own diff, then union in the lines newly claimed by this event,
// and persist the result.
//
// A create-file event (Kind == event.KindCreateFile) supersedes any
// prior claim outright, matching the rule that a whole-file rewrite
// invalidates previously-tracked positions for that path.
func Apply(dir string, ext *event.Extraction) error {
	prev, ok, err := Get(dir, ext.Path)
	if err != nil {
		return err
	}

	var carried rangeset.RangeSet
	if ok && ext.Kind != event.KindCreateFile {
		carried = rangeset.Remap(prev.Lines, ext.Hunks)
	}

	merged := carried.Union(ext.LinesNew)
	if merged.IsEmpty() {
		return Remove(dir, ext.Path)
	}
	return Put(dir, Entry{Path: ext.Path, Lines: merged})
}

// AtomicWrite replaces path's contents via a temp file plus rename, so a
// reader never observes a partially written file (spec §4.2/§4.3's
// atomicity requirement for staging and pending-record writes).
func AtomicWrite(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
