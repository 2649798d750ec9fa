// Package linediff computes line-level diffs between two text versions:
// hunks (for remapping range claims through subsequent edits, spec §4.1/
// §4.6) and the set of "new or changed" lines in a post-image (for
// attributing a single tool edit's own output, spec §4.2).
package linediff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/linetrace/linetrace/internal/rangeset"
)

// Hunks computes the line-level edit script turning oldText into newText,
// expressed as a sequence of Hunk values ordered by position, the same
// shape as tool_response.structuredPatch entries and as "git diff" hunks.
// It runs diffmatchpatch's Myers diff in line mode (each line encoded as
// one character) and then collapses the runs of deleted and inserted lines
// between equal runs into hunks.
func Hunks(oldText, newText string) []rangeset.Hunk {
	if oldText == newText {
		return nil
	}

	oldLines := splitLines(oldText)
	newLines := splitLines(newText)

	join := func(lines []string) string {
		if len(lines) == 0 {
			return ""
		}
		return strings.Join(lines, "\n") + "\n"
	}
	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(join(oldLines), join(newLines))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lineArray)

	type op struct {
		kind string // "equal", "delete", "insert"
		n    int    // number of lines
	}
	var ops []op
	for _, d := range diffs {
		n := strings.Count(d.Text, "\n")
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			ops = append(ops, op{"equal", n})
		case diffmatchpatch.DiffDelete:
			ops = append(ops, op{"delete", n})
		case diffmatchpatch.DiffInsert:
			ops = append(ops, op{"insert", n})
		}
	}

	var hunks []rangeset.Hunk
	oldPos, newPos := 1, 1
	i := 0
	for i < len(ops) {
		if ops[i].kind == "equal" {
			oldPos += ops[i].n
			newPos += ops[i].n
			i++
			continue
		}
		oldStart, newStart := oldPos, newPos
		oldLen, newLen := 0, 0
		for i < len(ops) && ops[i].kind != "equal" {
			if ops[i].kind == "delete" {
				oldLen += ops[i].n
			} else {
				newLen += ops[i].n
			}
			i++
		}
		hunks = append(hunks, rangeset.Hunk{
			OldStart: oldStart,
			OldLines: oldLen,
			NewStart: newStart,
			NewLines: newLen,
		})
		oldPos += oldLen
		newPos += newLen
	}
	return hunks
}

// maxLCSCells bounds the O(m*n) dynamic-programming table ChangedLines
// builds; above this, the exact computation is skipped in favor of a
// bounding-range fallback to keep a single tool event bounded in cost.
const maxLCSCells = 10000

// ChangedLines returns the set of line numbers in newText (relative to
// newStartLine, the 1-based line at which newText begins within whatever
// larger file it came from) that are new or modified relative to oldText.
// It is grounded on a classic LCS table: lines present unchanged, in
// order, in both texts are "matched" and excluded; everything else in
// newText is "changed". Two guards mirror the ones needed for a CLI tool
// operating on arbitrary file sizes:
//   - if oldText is empty, the whole of newText is new
//   - if the DP table would exceed maxLCSCells, or the exact algorithm
//     finds no changed lines despite oldText != newText (a pure deletion
//     at the boundary), fall back to the full bounding range
func ChangedLines(oldText, newText string, newStartLine int) rangeset.RangeSet {
	if oldText == newText {
		return rangeset.RangeSet{}
	}

	oldLines := splitLines(oldText)
	newLines := splitLines(newText)

	if len(newLines) == 0 {
		return rangeset.RangeSet{}
	}

	bounding := func() rangeset.RangeSet {
		return rangeset.FromRange(newStartLine, newStartLine+len(newLines)-1)
	}

	if len(oldLines) == 0 {
		return bounding()
	}
	if len(oldLines)*len(newLines) > maxLCSCells {
		return bounding()
	}

	matchedNew := lcsMatchedNew(oldLines, newLines)

	var changed []int
	for i := range newLines {
		if !matchedNew[i] {
			changed = append(changed, newStartLine+i)
		}
	}
	if len(changed) == 0 {
		// Strings differ but every new-side line matched: a pure deletion
		// at the tail/head. Fall back to the bounding range so the event
		// still claims something.
		return bounding()
	}
	return rangeset.Compact(changed)
}

// lcsMatchedNew runs the standard LCS DP table over oldLines/newLines and
// returns, for each index into newLines, whether that line participates
// in the longest common subsequence with oldLines (i.e. is unchanged).
func lcsMatchedNew(oldLines, newLines []string) []bool {
	m, n := len(oldLines), len(newLines)
	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if oldLines[i-1] == newLines[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else if dp[i-1][j] >= dp[i][j-1] {
				dp[i][j] = dp[i-1][j]
			} else {
				dp[i][j] = dp[i][j-1]
			}
		}
	}

	matched := make([]bool, n)
	i, j := m, n
	for i > 0 && j > 0 {
		switch {
		case oldLines[i-1] == newLines[j-1]:
			matched[j-1] = true
			i--
			j--
		case dp[i-1][j] >= dp[i][j-1]:
			i--
		default:
			j--
		}
	}
	return matched
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
