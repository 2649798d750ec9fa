package annotation

import (
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/linetrace/linetrace/internal/rangeset"
)

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	run("init", "-q")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "Test User")
	run("commit", "--allow-empty", "-q", "-m", "first")
	return dir
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	dir := initRepo(t)
	gitDir := filepath.Join(dir, ".git")

	rec := NewRecord(map[string]rangeset.RangeSet{"a.go": rangeset.Compact([]int{1, 2, 3})})
	if err := Write(dir, gitDir, "c1", rec); err != nil {
		t.Fatal(err)
	}
	got, ok, err := Read(dir, "c1")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatalf("expected record to exist")
	}
	if got.Files()["a.go"].String() != "1-3" {
		t.Errorf("ranges = %q", got.Files()["a.go"].String())
	}
}

func TestWriteIdenticalBlobIsNoOp(t *testing.T) {
	dir := initRepo(t)
	gitDir := filepath.Join(dir, ".git")
	rec := NewRecord(map[string]rangeset.RangeSet{"a.go": rangeset.Compact([]int{1})})

	if err := Write(dir, gitDir, "c1", rec); err != nil {
		t.Fatal(err)
	}
	headBefore := refHead(t, dir)
	if err := Write(dir, gitDir, "c1", rec); err != nil {
		t.Fatal(err)
	}
	if refHead(t, dir) != headBefore {
		t.Errorf("identical re-annotation should not move the ref")
	}
}

func TestWriteDifferentBlobAppendsReconciliationEntry(t *testing.T) {
	dir := initRepo(t)
	gitDir := filepath.Join(dir, ".git")

	rec1 := NewRecord(map[string]rangeset.RangeSet{"a.go": rangeset.Compact([]int{1})})
	rec2 := NewRecord(map[string]rangeset.RangeSet{"a.go": rangeset.Compact([]int{1, 2})})

	if err := Write(dir, gitDir, "c1", rec1); err != nil {
		t.Fatal(err)
	}
	if err := Write(dir, gitDir, "c1", rec2); err != nil {
		t.Fatal(err)
	}

	got, ok, err := Read(dir, "c1")
	if err != nil || !ok {
		t.Fatalf("Read = %v, %v, %v", got, ok, err)
	}
	if got.Files()["a.go"].String() != "1-2" {
		t.Errorf("expected newer blob to win, got %q", got.Files()["a.go"].String())
	}

	cmd := exec.Command("git", "show", RefName+":reconciliation-log.jsonl")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		t.Fatalf("expected reconciliation log to exist: %v", err)
	}
	if len(out) == 0 {
		t.Errorf("expected non-empty reconciliation log")
	}
}

func TestListSortedCommitIDs(t *testing.T) {
	dir := initRepo(t)
	gitDir := filepath.Join(dir, ".git")
	rec := NewRecord(map[string]rangeset.RangeSet{"a.go": rangeset.Compact([]int{1})})

	Write(dir, gitDir, "zzz", rec)
	Write(dir, gitDir, "aaa", rec)

	ids, err := List(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != "aaa" || ids[1] != "zzz" {
		t.Errorf("List = %v", ids)
	}
}

func refHead(t *testing.T, dir string) string {
	t.Helper()
	cmd := exec.Command("git", "rev-parse", RefName)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		t.Fatal(err)
	}
	return string(out)
}
