package rangeset

// Hunk describes one contiguous edit region in a unified-diff sense: the
// OldLines lines starting at OldStart in the prior file version were
// replaced by NewLines lines starting at NewStart in the new version. It
// mirrors the shape of tool_response.structuredPatch entries (spec §6) and
// of a parsed `git diff` hunk header. A side with zero lines has its Start
// at the line just after the edit point (a pure insertion before old line
// 4 has OldStart 4); gitplumb converts git's own numbering to this.
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
}

// delta is how much every line after this hunk shifts.
func (h Hunk) delta() int { return h.NewLines - h.OldLines }

// Remap carries a RangeSet computed against an old file version forward
// through a sequence of hunks (oldest first) describing how that file
// changed, per the policy in spec §4.1:
//   - a line strictly before the hunk's edited region is unchanged
//   - a line inside the edited (old) region is dropped: the content it
//     named no longer exists verbatim
//   - a line strictly after the edited region shifts by the hunk's delta
//     (NewLines - OldLines)
//   - Remap never adds lines: a hunk's insertions are not claimed just
//     because they sit near a previously-claimed range
//
// This is the same forward-simulation linemap.AdjustLinePositions performs
// for a single record against later edits, generalized to an arbitrary
// RangeSet and an arbitrary ordered hunk list (e.g. the hunks of one
// intervening commit's diff, for the rollup engine). Hunks are applied in
// order and each one's edited region is located at its NewStart, i.e. in
// the numbering left by every earlier hunk of the list; this holds for one
// diff's hunks in file order as well as for a chain of successive edits.
func Remap(rs RangeSet, hunks []Hunk) RangeSet {
	for _, h := range hunks {
		rs = remapOne(rs, h)
		if rs.IsEmpty() {
			return rs
		}
	}
	return rs
}

func remapOne(rs RangeSet, h Hunk) RangeSet {
	if h.OldLines == 0 {
		// Pure insertion: nothing in the old file's region is touched, so
		// every pre-existing claimed line at or after the insertion point
		// simply shifts down; lines before are untouched.
		var lines []int
		for _, l := range rs.Expand() {
			if l >= h.NewStart {
				lines = append(lines, l+h.NewLines)
			} else {
				lines = append(lines, l)
			}
		}
		return Compact(lines)
	}

	editStart := h.NewStart
	editEnd := h.NewStart + h.OldLines - 1
	delta := h.delta()

	var lines []int
	for _, l := range rs.Expand() {
		switch {
		case l < editStart:
			lines = append(lines, l)
		case l <= editEnd:
			// inside the overwritten region: dropped
		default:
			lines = append(lines, l+delta)
		}
	}
	return Compact(lines)
}

// TouchedLines returns the union, over hunks, of the post-image line
// ranges each hunk actually wrote (its NewStart..NewStart+NewLines-1),
// i.e. the set a pre-commit reconciler intersects a staged claim against
// (spec §4.3 "set_of_post_image_lines_touched_by_diff"). A hunk with
// NewLines == 0 (a pure deletion) touches nothing on the post-image side.
func TouchedLines(hunks []Hunk) RangeSet {
	var touched RangeSet
	for _, h := range hunks {
		if h.NewLines <= 0 {
			continue
		}
		touched = touched.Union(FromRange(h.NewStart, h.NewStart+h.NewLines-1))
	}
	return touched
}
