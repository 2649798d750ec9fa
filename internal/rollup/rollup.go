// Package rollup implements the Rollup Engine (C6): computing the
// squash-merge annotation for a sequence of commits C_1..C_k applied on
// top of a base B, per spec §4.6.
package rollup

import (
	"github.com/linetrace/linetrace/internal/annotation"
	"github.com/linetrace/linetrace/internal/gitplumb"
	"github.com/linetrace/linetrace/internal/rangeset"
)

// Lookup resolves a commit id's annotation, analogous to
// annotation.Read but pluggable so rollup-squash can supply a
// pre-collected annotation set instead of reading the metadata ref live
// (e.g. when squashing on a CI runner that fetched annotations once up
// front).
type Lookup func(commitID string) (annotation.Record, bool, error)

// FromRef builds a Lookup backed by the repository's own metadata ref.
func FromRef(root string) Lookup {
	return func(commitID string) (annotation.Record, bool, error) {
		return annotation.Read(root, commitID)
	}
}

// FromMap builds a Lookup over a pre-collected commit id → Record map,
// used by rollup-squash when annotations were gathered ahead of time.
func FromMap(m map[string]annotation.Record) Lookup {
	return func(commitID string) (annotation.Record, bool, error) {
		rec, ok := m[commitID]
		return rec, ok, nil
	}
}

// Run computes the squash annotation for commits (ordered C_1..C_k,
// oldest first) applied on top of base, per spec §4.6's per-path
// forward-remap-then-union loop. Each path carries its own range set
// independently across the whole commit sequence.
func Run(root, base string, commits []string, lookup Lookup) (annotation.Record, error) {
	carry := make(map[string]rangeset.RangeSet)
	prev := base

	for _, c := range commits {
		changed, err := gitplumb.ChangedFiles(root, prev, c)
		if err != nil {
			return annotation.Record{}, err
		}

		paths := make(map[string]struct{}, len(changed)+len(carry))
		for _, p := range changed {
			paths[p] = struct{}{}
		}
		for p := range carry {
			paths[p] = struct{}{}
		}

		for p := range paths {
			hunks, err := gitplumb.DiffHunks(root, prev, c, p)
			if err != nil {
				// A path git can't diff as text (binary, etc.) simply
				// can't carry authorship through this step.
				delete(carry, p)
				continue
			}
			carry[p] = rangeset.Remap(carry[p], hunks)
		}

		rec, ok, err := lookup(c)
		if err != nil {
			return annotation.Record{}, err
		}
		if ok {
			for p, ranges := range rec.Files() {
				carry[p] = carry[p].Union(ranges)
			}
		}

		prev = c
	}

	final := make(map[string]rangeset.RangeSet, len(carry))
	for p, ranges := range carry {
		if !ranges.IsEmpty() {
			final[p] = ranges
		}
	}
	return annotation.NewRecord(final), nil
}
