// Package rangeset implements set arithmetic over 1-based inclusive line
// ranges: compaction, union, intersection, subtraction and shifting. A
// RangeSet is the in-memory form of the "ranges" field of an annotation
// record (spec §3); MarshalJSON/UnmarshalJSON match the wire format
// ([[start,end], ...]) exactly, while String/FromString give a compact
// notation ("5,7-8,12") used by the sqlite query index, CLI output and
// tests.
package rangeset

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Range is an inclusive, 1-based line range.
type Range struct {
	Start int
	End   int
}

// RangeSet is a sorted, non-overlapping, non-adjacent (merged) list of
// Ranges. The zero value is the empty set.
type RangeSet struct {
	ranges []Range
}

// Compact builds a RangeSet from arbitrary (possibly unsorted, possibly
// duplicated) individual line numbers, merging adjacent and overlapping
// runs into ranges.
func Compact(lines []int) RangeSet {
	if len(lines) == 0 {
		return RangeSet{}
	}
	sorted := append([]int(nil), lines...)
	sort.Ints(sorted)

	var out []Range
	start := sorted[0]
	end := sorted[0]
	for _, n := range sorted[1:] {
		switch {
		case n == end || n == end+1:
			end = n
		case n > end+1:
			out = append(out, Range{start, end})
			start, end = n, n
		}
	}
	out = append(out, Range{start, end})
	return RangeSet{ranges: out}
}

// FromPairs builds a RangeSet directly from [start,end] pairs, normalizing
// overlaps exactly like Compact.
func FromPairs(pairs [][2]int) RangeSet {
	var rs RangeSet
	for _, p := range pairs {
		rs = rs.Union(single(p[0], p[1]))
	}
	return rs
}

// FromRange builds a RangeSet covering a single inclusive range.
func FromRange(start, end int) RangeSet {
	return single(start, end)
}

func single(start, end int) RangeSet {
	if end < start || start <= 0 {
		return RangeSet{}
	}
	return RangeSet{ranges: []Range{{start, end}}}
}

// IsEmpty reports whether the set contains no lines.
func (rs RangeSet) IsEmpty() bool { return len(rs.ranges) == 0 }

// Ranges returns the underlying sorted, merged ranges. Callers must not
// mutate the returned slice.
func (rs RangeSet) Ranges() []Range { return rs.ranges }

// Len returns the total count of individual lines covered.
func (rs RangeSet) Len() int {
	n := 0
	for _, r := range rs.ranges {
		n += r.End - r.Start + 1
	}
	return n
}

// Min returns the smallest line in the set, or 0 if empty.
func (rs RangeSet) Min() int {
	if len(rs.ranges) == 0 {
		return 0
	}
	return rs.ranges[0].Start
}

// Max returns the largest line in the set, or 0 if empty.
func (rs RangeSet) Max() int {
	if len(rs.ranges) == 0 {
		return 0
	}
	return rs.ranges[len(rs.ranges)-1].End
}

// Contains reports whether line is a member of the set.
func (rs RangeSet) Contains(line int) bool {
	i := sort.Search(len(rs.ranges), func(i int) bool { return rs.ranges[i].End >= line })
	return i < len(rs.ranges) && rs.ranges[i].Start <= line
}

// Expand materializes every individual line number in the set, in order.
func (rs RangeSet) Expand() []int {
	var out []int
	for _, r := range rs.ranges {
		for i := r.Start; i <= r.End; i++ {
			out = append(out, i)
		}
	}
	return out
}

// Union returns the set of lines present in rs or other.
func (rs RangeSet) Union(other RangeSet) RangeSet {
	merged := append(append([]Range(nil), rs.ranges...), other.ranges...)
	if len(merged) == 0 {
		return RangeSet{}
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Start < merged[j].Start })

	out := []Range{merged[0]}
	for _, r := range merged[1:] {
		last := &out[len(out)-1]
		if r.Start <= last.End+1 {
			if r.End > last.End {
				last.End = r.End
			}
			continue
		}
		out = append(out, r)
	}
	return RangeSet{ranges: out}
}

// Intersect returns the set of lines present in both rs and other.
func (rs RangeSet) Intersect(other RangeSet) RangeSet {
	var out []Range
	i, j := 0, 0
	for i < len(rs.ranges) && j < len(other.ranges) {
		a, b := rs.ranges[i], other.ranges[j]
		start := max(a.Start, b.Start)
		end := min(a.End, b.End)
		if start <= end {
			out = append(out, Range{start, end})
		}
		if a.End < b.End {
			i++
		} else {
			j++
		}
	}
	return RangeSet{ranges: out}
}

// Subtract returns the lines present in rs but not in other.
func (rs RangeSet) Subtract(other RangeSet) RangeSet {
	var out []Range
	for _, a := range rs.ranges {
		cur := []Range{a}
		for _, b := range other.ranges {
			var next []Range
			for _, c := range cur {
				if b.End < c.Start || b.Start > c.End {
					next = append(next, c)
					continue
				}
				if b.Start > c.Start {
					next = append(next, Range{c.Start, b.Start - 1})
				}
				if b.End < c.End {
					next = append(next, Range{b.End + 1, c.End})
				}
			}
			cur = next
		}
		out = append(out, cur...)
	}
	return RangeSet{ranges: out}.normalized()
}

// normalized re-sorts and re-merges; Subtract can emit ranges out of
// global order across multiple source ranges.
func (rs RangeSet) normalized() RangeSet {
	if len(rs.ranges) == 0 {
		return RangeSet{}
	}
	var empty RangeSet
	return empty.Union(rs)
}

// Shift translates every line in the set by delta (which may be negative).
// Ranges that end below 1 after shifting are dropped; a range that
// straddles zero is clipped to start at 1.
func (rs RangeSet) Shift(delta int) RangeSet {
	var out []Range
	for _, r := range rs.ranges {
		s, e := r.Start+delta, r.End+delta
		if e < 1 {
			continue
		}
		if s < 1 {
			s = 1
		}
		out = append(out, Range{s, e})
	}
	return RangeSet{ranges: out}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// String renders the compact notation "5,7-8,12".
func (rs RangeSet) String() string {
	if len(rs.ranges) == 0 {
		return ""
	}
	parts := make([]string, 0, len(rs.ranges))
	for _, r := range rs.ranges {
		if r.Start == r.End {
			parts = append(parts, strconv.Itoa(r.Start))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", r.Start, r.End))
		}
	}
	return strings.Join(parts, ",")
}

// FromString parses compact notation like "5", "5-7", or "5,7-8,12".
func FromString(s string) (RangeSet, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return RangeSet{}, nil
	}
	var lines []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if idx := strings.Index(part, "-"); idx >= 0 {
			start, err := strconv.Atoi(strings.TrimSpace(part[:idx]))
			if err != nil {
				return RangeSet{}, fmt.Errorf("invalid range start %q: %w", part[:idx], err)
			}
			end, err := strconv.Atoi(strings.TrimSpace(part[idx+1:]))
			if err != nil {
				return RangeSet{}, fmt.Errorf("invalid range end %q: %w", part[idx+1:], err)
			}
			if end < start {
				return RangeSet{}, fmt.Errorf("invalid range %d-%d", start, end)
			}
			lines = append(lines, start, end)
			for i := start; i <= end; i++ {
				lines = append(lines, i)
			}
		} else {
			n, err := strconv.Atoi(part)
			if err != nil {
				return RangeSet{}, fmt.Errorf("invalid line number %q: %w", part, err)
			}
			lines = append(lines, n)
		}
	}
	return Compact(lines), nil
}

// MarshalJSON serializes as [[start,end], ...], the wire format spec §3
// mandates for an annotation record's "ranges" field.
func (rs RangeSet) MarshalJSON() ([]byte, error) {
	pairs := make([][2]int, len(rs.ranges))
	for i, r := range rs.ranges {
		pairs[i] = [2]int{r.Start, r.End}
	}
	if pairs == nil {
		pairs = [][2]int{}
	}
	return json.Marshal(pairs)
}

// UnmarshalJSON accepts the [[start,end], ...] wire format.
func (rs *RangeSet) UnmarshalJSON(data []byte) error {
	var pairs [][2]int
	if err := json.Unmarshal(data, &pairs); err != nil {
		return err
	}
	*rs = FromPairs(pairs)
	return nil
}
