// Package annotation implements the Commit Annotation Protocol (C4):
// the canonical on-commit JSON record, and the pending-commit record C3
// produces and C4 consumes (spec §3, §4.4).
package annotation

import (
	"encoding/json"

	"github.com/linetrace/linetrace/internal/rangeset"
)

// Version is the annotation record format version written to every
// commit's record, spec §3.
const Version = "1.0"

// FileRecord is one file's entry inside a Record's "files" map.
type FileRecord struct {
	Ranges rangeset.RangeSet `json:"ranges"`
}

// core is the value of the "claude_was_here" key.
type core struct {
	Version string                `json:"version"`
	Files   map[string]FileRecord `json:"files"`
}

// Record is the canonical per-commit annotation blob, spec §3:
//
//	{ "claude_was_here": { "version": "1.0",
//	                       "files": { <path>: { "ranges": [[s,e], ...] } } } }
//
// encoding/json sorts map keys when marshaling, so Files is always
// emitted in lexicographic path order without any extra bookkeeping.
type Record struct {
	inner core
}

// NewRecord builds a Record from a path → ranges map.
func NewRecord(files map[string]rangeset.RangeSet) Record {
	m := make(map[string]FileRecord, len(files))
	for path, ranges := range files {
		m[path] = FileRecord{Ranges: ranges}
	}
	return Record{inner: core{Version: Version, Files: m}}
}

// IsEmpty reports whether the record has no files at all, meaning this
// commit introduced no AI-authored lines and need not be written.
func (r Record) IsEmpty() bool { return len(r.inner.Files) == 0 }

// Files returns the path → ranges map.
func (r Record) Files() map[string]rangeset.RangeSet {
	out := make(map[string]rangeset.RangeSet, len(r.inner.Files))
	for path, fr := range r.inner.Files {
		out[path] = fr.Ranges
	}
	return out
}

type wireRecord struct {
	ClaudeWasHere core `json:"claude_was_here"`
}

// MarshalJSON emits the wire shape with "claude_was_here" as the sole
// outer key.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireRecord{ClaudeWasHere: r.inner})
}

// UnmarshalJSON parses the wire shape.
func (r *Record) UnmarshalJSON(data []byte) error {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.inner = w.ClaudeWasHere
	return nil
}

// Totals is the pending record's summary, spec §3.
type Totals struct {
	Files int `json:"files"`
	Lines int `json:"lines"`
}

// PendingRecord is C3's output: the lines surviving reconciliation for
// the commit about to be created, scoped to exactly one upcoming commit
// and discarded once C4 annotates it.
//
// ReconciledPaths lists every staged path C3 reconciled, independent of
// Files: a path whose surviving claim came out empty (fully overwritten
// by the user, or the whole file deleted) still had a staging entry
// that must be cleared once this commit lands, per spec §6's "until the
// next successful commit." Files alone only tracks what got annotated;
// ReconciledPaths tracks what must be cleaned up.
type PendingRecord struct {
	Files           map[string]FileRecord `json:"files"`
	Totals          Totals                `json:"totals"`
	ReconciledPaths []string              `json:"reconciled_paths,omitempty"`
}

// NewPendingRecord builds a PendingRecord from reconciled path → ranges,
// computing Totals.
func NewPendingRecord(files map[string]rangeset.RangeSet) PendingRecord {
	m := make(map[string]FileRecord, len(files))
	lines := 0
	for path, ranges := range files {
		if ranges.IsEmpty() {
			continue
		}
		m[path] = FileRecord{Ranges: ranges}
		lines += ranges.Len()
	}
	return PendingRecord{Files: m, Totals: Totals{Files: len(m), Lines: lines}}
}

// IsEmpty reports whether the pending record carries no surviving lines.
func (p PendingRecord) IsEmpty() bool { return len(p.Files) == 0 }

// ToRecord converts a pending record into the final annotation Record
// C4 writes to the metadata ref.
func (p PendingRecord) ToRecord() Record {
	files := make(map[string]rangeset.RangeSet, len(p.Files))
	for path, fr := range p.Files {
		files[path] = fr.Ranges
	}
	return NewRecord(files)
}
