// Package reconcile implements the Pre-Commit Reconciler (C3): for each
// staged path with a staging entry, it discards AI-claimed lines the
// diff between the parent blob and the staged blob doesn't actually
// touch, producing the pending-commit record C4 will later annotate
// with (spec §4.3).
package reconcile

import (
	"github.com/linetrace/linetrace/internal/annotation"
	"github.com/linetrace/linetrace/internal/gitplumb"
	"github.com/linetrace/linetrace/internal/linediff"
	"github.com/linetrace/linetrace/internal/rangeset"
	"github.com/linetrace/linetrace/internal/stage"
)

// Run reconciles every staged path against its staging entry and
// returns the pending record to persist. It never returns an error for
// an individual path's diff failure — per spec §4.3, "on any
// unrecoverable error the commit is still allowed to proceed without an
// annotation" — so a path that cannot be diffed is simply dropped from
// the record, and the returned error is non-nil only when listing the
// staged paths fails. A staging entry that cannot be read is skipped like
// a path with no entry.
//
// The returned PendingRecord.ReconciledPaths lists every staged path
// that had a staging entry at all, independent of whether its surviving
// claim was non-empty — spec §6 says a staging entry lives "until the
// next successful commit," not "until the next commit with a non-empty
// claim," so post-commit must clear all of them, not just the ones that
// made it into PendingRecord.Files.
func Run(root, trackingDir string) (annotation.PendingRecord, error) {
	staged, err := gitplumb.StagedPaths(root)
	if err != nil {
		return annotation.PendingRecord{}, err
	}

	files := make(map[string]rangeset.RangeSet, len(staged))
	var reconciled []string
	for _, path := range staged {
		entry, ok, err := stage.Get(trackingDir, path)
		if err != nil || !ok {
			// No staging entry: not an AI-touched path, or the entry is
			// unreadable — spec §4.3 "paths staged without staging
			// entries are not attributed."
			continue
		}
		reconciled = append(reconciled, path)

		committed, ok := committedRanges(root, path, entry.Lines)
		if !ok {
			continue
		}
		if !committed.IsEmpty() {
			files[path] = committed
		}
	}

	pending := annotation.NewPendingRecord(files)
	pending.ReconciledPaths = reconciled
	return pending, nil
}

// committedRanges computes A_committed = intersect(A_P, touched) for one
// path, per spec §4.3 steps 1-3. The bool result is false only when
// reading the parent blob returns an error, which ShowParentBlob does not
// do (a path or HEAD that does not exist reads as empty content); the
// caller treats a false result as unattributed rather than failing the
// whole commit.
func committedRanges(root, path string, claimed rangeset.RangeSet) (rangeset.RangeSet, bool) {
	parent, err := gitplumb.ShowParentBlob(root, path)
	if err != nil {
		return rangeset.RangeSet{}, false
	}
	staged, err := gitplumb.ShowStagedBlob(root, path)
	if err != nil {
		// Deleted path: nothing survives to attribute.
		return rangeset.RangeSet{}, true
	}

	hunks := linediff.Hunks(parent, staged)
	touched := rangeset.TouchedLines(hunks)
	return claimed.Intersect(touched), true
}
