package query

import (
	"os"
	"testing"

	"github.com/linetrace/linetrace/internal/annotation"
	"github.com/linetrace/linetrace/internal/project"
	"github.com/linetrace/linetrace/internal/rangeset"
)

func testPaths(t *testing.T, dir string) project.Paths {
	t.Helper()
	paths := project.NewPaths(dir)
	if err := os.MkdirAll(paths.TrackingDir, 0o755); err != nil {
		t.Fatal(err)
	}
	return paths
}

func TestIndexRebuildAndLookup(t *testing.T) {
	dir, gitDir := initRepo(t)
	head := commitFile(t, dir, "a.go", "one\ntwo\n")
	rec := annotation.NewRecord(map[string]rangeset.RangeSet{"a.go": rangeset.Compact([]int{1})})
	if err := annotation.Write(dir, gitDir, head, rec); err != nil {
		t.Fatal(err)
	}

	ix, err := OpenIndex(testPaths(t, dir))
	if err != nil {
		t.Fatal(err)
	}
	defer ix.Close()

	if !ix.IsStale(dir) {
		t.Fatalf("freshly opened index should be stale")
	}
	if err := ix.Rebuild(dir); err != nil {
		t.Fatal(err)
	}
	if ix.IsStale(dir) {
		t.Fatalf("index should not be stale immediately after Rebuild")
	}

	got, ok, err := ix.Lookup(head, "a.go")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || got.String() != "1" {
		t.Errorf("Lookup = %q, %v, want 1, true", got.String(), ok)
	}
}

func TestIndexBecomesStaleAfterNewAnnotation(t *testing.T) {
	dir, gitDir := initRepo(t)
	head1 := commitFile(t, dir, "a.go", "one\n")
	annotation.Write(dir, gitDir, head1, annotation.NewRecord(map[string]rangeset.RangeSet{
		"a.go": rangeset.Compact([]int{1}),
	}))

	ix, err := OpenIndex(testPaths(t, dir))
	if err != nil {
		t.Fatal(err)
	}
	defer ix.Close()
	if err := ix.Rebuild(dir); err != nil {
		t.Fatal(err)
	}

	head2 := commitFile(t, dir, "b.go", "two\n")
	annotation.Write(dir, gitDir, head2, annotation.NewRecord(map[string]rangeset.RangeSet{
		"b.go": rangeset.Compact([]int{1}),
	}))

	if !ix.IsStale(dir) {
		t.Errorf("expected index to be stale after a new annotation")
	}
}
