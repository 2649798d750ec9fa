package stage

import (
	"path/filepath"
	"testing"

	"github.com/linetrace/linetrace/internal/event"
	"github.com/linetrace/linetrace/internal/rangeset"
)

func TestPutGetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	e := Entry{Path: "src/a.go", Lines: rangeset.Compact([]int{1, 2, 5})}
	if err := Put(dir, e); err != nil {
		t.Fatal(err)
	}
	got, ok, err := Get(dir, "src/a.go")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatalf("expected entry to exist")
	}
	if got.Lines.String() != "1-2,5" {
		t.Errorf("Lines = %q, want 1-2,5", got.Lines.String())
	}
	if _, err := filepath.Glob(filepath.Join(dir, "src", "a.go.json")); err != nil {
		t.Fatal(err)
	}
}

func TestGetMissing(t *testing.T) {
	dir := t.TempDir()
	_, ok, err := Get(dir, "nope.go")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Errorf("expected no entry")
	}
}

func TestAllSortedByPath(t *testing.T) {
	dir := t.TempDir()
	Put(dir, Entry{Path: "b.go", Lines: rangeset.Compact([]int{1})})
	Put(dir, Entry{Path: "a.go", Lines: rangeset.Compact([]int{1})})
	all, err := All(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].Path != "a.go" || all[1].Path != "b.go" {
		t.Errorf("All = %v", all)
	}
}

func TestApplyFirstEvent(t *testing.T) {
	dir := t.TempDir()
	ext := &event.Extraction{Path: "a.go", Kind: event.KindEditFile, LinesNew: rangeset.Compact([]int{3, 4})}
	if err := Apply(dir, ext); err != nil {
		t.Fatal(err)
	}
	got, ok, _ := Get(dir, "a.go")
	if !ok || got.Lines.String() != "3-4" {
		t.Errorf("got = %+v", got)
	}
}

func TestApplyRemapsPriorEntryThenUnions(t *testing.T) {
	dir := t.TempDir()
	Put(dir, Entry{Path: "a.go", Lines: rangeset.Compact([]int{10})})

	// A later edit inserts 2 lines at line 1, then claims line 20 (new
	// position, post-insertion) as newly changed.
	ext := &event.Extraction{
		Path:     "a.go",
		Kind:     event.KindEditFile,
		LinesNew: rangeset.Compact([]int{20}),
		Hunks:    []rangeset.Hunk{{OldStart: 1, OldLines: 0, NewStart: 1, NewLines: 2}},
	}
	if err := Apply(dir, ext); err != nil {
		t.Fatal(err)
	}
	got, _, _ := Get(dir, "a.go")
	if got.Lines.String() != "12,20" {
		t.Errorf("Lines = %q, want 12,20", got.Lines.String())
	}
}

func TestApplyCreateFileSupersedesPriorClaim(t *testing.T) {
	dir := t.TempDir()
	Put(dir, Entry{Path: "a.go", Lines: rangeset.Compact([]int{1, 2, 3})})

	ext := &event.Extraction{Path: "a.go", Kind: event.KindCreateFile, LinesNew: rangeset.FromRange(1, 5)}
	if err := Apply(dir, ext); err != nil {
		t.Fatal(err)
	}
	got, _, _ := Get(dir, "a.go")
	if got.Lines.String() != "1-5" {
		t.Errorf("Lines = %q, want 1-5", got.Lines.String())
	}
}

func TestApplyEmptyResultRemovesEntry(t *testing.T) {
	dir := t.TempDir()
	Put(dir, Entry{Path: "a.go", Lines: rangeset.Compact([]int{5})})

	// The whole claimed region gets overwritten and nothing new is claimed.
	ext := &event.Extraction{
		Path:  "a.go",
		Kind:  event.KindEditFile,
		Hunks: []rangeset.Hunk{{OldStart: 5, OldLines: 1, NewStart: 5, NewLines: 1}},
	}
	if err := Apply(dir, ext); err != nil {
		t.Fatal(err)
	}
	_, ok, _ := Get(dir, "a.go")
	if ok {
		t.Errorf("expected entry to be removed")
	}
}
