// Package query implements the Query API (C7): answering "is line L of
// file F AI-authored?" for a commit or the working tree, and
// enumerating ranges per file (spec §4.7).
package query

import (
	"os"
	"path/filepath"

	"github.com/linetrace/linetrace/internal/annotation"
	"github.com/linetrace/linetrace/internal/gitplumb"
	"github.com/linetrace/linetrace/internal/linediff"
	"github.com/linetrace/linetrace/internal/rangeset"
	"github.com/linetrace/linetrace/internal/stage"
)

// Authorship returns the AI-authored range set for path as of commitID,
// the empty set if the commit has no annotation or the path isn't in it.
func Authorship(root, commitID, path string) (rangeset.RangeSet, error) {
	rec, ok, err := annotation.Read(root, commitID)
	if err != nil {
		return rangeset.RangeSet{}, err
	}
	if !ok {
		return rangeset.RangeSet{}, nil
	}
	return rec.Files()[path], nil
}

// AuthorshipWorkingTree returns the AI-authored range set for path as it
// stands on disk right now: HEAD's annotation remapped through the
// working-copy diff against HEAD, unioned with whatever the staging
// store already claims for lines already on disk but not yet committed
// (spec §4.7).
func AuthorshipWorkingTree(root, trackingDir, path string) (rangeset.RangeSet, error) {
	head := gitplumb.HeadSHA(root)
	var base rangeset.RangeSet
	var err error
	if head != "" {
		base, err = Authorship(root, head, path)
		if err != nil {
			return rangeset.RangeSet{}, err
		}
	}

	oldContent, _ := gitplumb.ShowParentBlob(root, path)
	newContent, readErr := os.ReadFile(filepath.Join(root, filepath.FromSlash(path)))
	if readErr != nil {
		// File deleted from the working tree: nothing survives.
		return rangeset.RangeSet{}, nil
	}

	hunks := linediff.Hunks(oldContent, string(newContent))
	remapped := rangeset.Remap(base, hunks)

	entry, ok, err := stage.Get(trackingDir, path)
	if err != nil {
		return rangeset.RangeSet{}, err
	}
	if ok {
		remapped = remapped.Union(entry.Lines)
	}
	return remapped, nil
}

// IsAI reports whether line of path was AI-authored as of commit,
// O(log n) over the sorted range list (RangeSet.Contains).
func IsAI(root, commit, path string, line int) (bool, error) {
	ranges, err := Authorship(root, commit, path)
	if err != nil {
		return false, err
	}
	return ranges.Contains(line), nil
}
