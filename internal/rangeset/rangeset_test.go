package rangeset

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestCompact(t *testing.T) {
	cases := []struct {
		name  string
		lines []int
		want  string
	}{
		{"empty", nil, ""},
		{"single", []int{5}, "5"},
		{"contiguous", []int{5, 6, 7, 8}, "5-8"},
		{"gap", []int{5, 7, 8, 12}, "5,7-8,12"},
		{"unsorted dup", []int{8, 5, 7, 7, 8}, "5,7-8"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Compact(c.lines).String()
			if got != c.want {
				t.Errorf("Compact(%v) = %q, want %q", c.lines, got, c.want)
			}
		})
	}
}

func TestFromStringRoundTrip(t *testing.T) {
	for _, s := range []string{"", "5", "5-8", "5,7-8,12"} {
		rs, err := FromString(s)
		if err != nil {
			t.Fatalf("FromString(%q): %v", s, err)
		}
		if got := rs.String(); got != s {
			t.Errorf("FromString(%q).String() = %q", s, got)
		}
	}
}

func TestUnion(t *testing.T) {
	a := Compact([]int{1, 2, 3})
	b := Compact([]int{3, 4, 5})
	if got := a.Union(b).String(); got != "1-5" {
		t.Errorf("Union = %q, want 1-5", got)
	}

	c := Compact([]int{1, 2})
	d := Compact([]int{10, 11})
	if got := c.Union(d).String(); got != "1-2,10-11" {
		t.Errorf("Union disjoint = %q, want 1-2,10-11", got)
	}
}

func TestIntersect(t *testing.T) {
	a := Compact([]int{1, 2, 3, 4, 5})
	b := Compact([]int{3, 4, 5, 6, 7})
	if got := a.Intersect(b).String(); got != "3-5" {
		t.Errorf("Intersect = %q, want 3-5", got)
	}
	if got := a.Intersect(Compact([]int{100})).String(); got != "" {
		t.Errorf("Intersect disjoint = %q, want empty", got)
	}
}

func TestSubtract(t *testing.T) {
	a := Compact([]int{1, 2, 3, 4, 5})
	b := Compact([]int{2, 3})
	if got := a.Subtract(b).String(); got != "1,4-5" {
		t.Errorf("Subtract = %q, want 1,4-5", got)
	}
	if got := a.Subtract(Compact([]int{1, 2, 3, 4, 5})).String(); got != "" {
		t.Errorf("Subtract all = %q, want empty", got)
	}
}

func TestShift(t *testing.T) {
	a := Compact([]int{5, 6, 7})
	if got := a.Shift(2).String(); got != "7-9" {
		t.Errorf("Shift(+2) = %q, want 7-9", got)
	}
	if got := a.Shift(-4).String(); got != "1-3" {
		t.Errorf("Shift(-4) = %q, want 1-3", got)
	}
	if got := a.Shift(-10).String(); got != "" {
		t.Errorf("Shift below zero = %q, want empty", got)
	}
}

func TestContains(t *testing.T) {
	a := Compact([]int{5, 7, 8, 12})
	for _, line := range []int{5, 7, 8, 12} {
		if !a.Contains(line) {
			t.Errorf("Contains(%d) = false, want true", line)
		}
	}
	for _, line := range []int{1, 6, 9, 13} {
		if a.Contains(line) {
			t.Errorf("Contains(%d) = true, want false", line)
		}
	}
}

func TestMarshalJSON(t *testing.T) {
	rs := Compact([]int{5, 7, 8, 12})
	b, err := json.Marshal(rs)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(b), "[[5,5],[7,8],[12,12]]"; got != want {
		t.Errorf("MarshalJSON = %s, want %s", got, want)
	}

	var back RangeSet
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(back.Expand(), rs.Expand()) {
		t.Errorf("round trip = %v, want %v", back.Expand(), rs.Expand())
	}
}

func TestMarshalJSONEmpty(t *testing.T) {
	var rs RangeSet
	b, err := json.Marshal(rs)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "[]" {
		t.Errorf("MarshalJSON empty = %s, want []", string(b))
	}
}
