package cmd

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/linetrace/linetrace/internal/annotation"
	"github.com/linetrace/linetrace/internal/rangeset"
)

func annotatedCommit(t *testing.T, dir string) string {
	t.Helper()
	writeFile(t, dir, "a.go", "alpha\nbeta\ngamma\n")
	gitAdd(t, dir, "a.go")
	commitID := gitCommit(t, dir, "add a.go")
	files := map[string]rangeset.RangeSet{"a.go": rangeset.FromRange(1, 2)}
	if err := annotation.Write(dir, filepath.Join(dir, ".git"), commitID, annotation.NewRecord(files)); err != nil {
		t.Fatal(err)
	}
	return commitID
}

func TestQueryAuthorshipJSON(t *testing.T) {
	dir := initRepo(t)
	commitID := annotatedCommit(t, dir)

	out := runCmd(t, "", "query", "authorship", "a.go", "--commit", commitID, "--json")

	var got map[string]any
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, out)
	}
	if got["path"] != "a.go" {
		t.Errorf("path = %v, want a.go", got["path"])
	}
	if got["ranges"] != "1-2" {
		t.Errorf("ranges = %v, want 1-2", got["ranges"])
	}
}

func TestQueryAuthorshipText(t *testing.T) {
	dir := initRepo(t)
	commitID := annotatedCommit(t, dir)

	out := runCmd(t, "", "query", "authorship", "a.go", "--commit", commitID)
	if !strings.Contains(out, "a.go") || !strings.Contains(out, "1-2") {
		t.Errorf("text output = %q, want it to mention a.go and 1-2", out)
	}
}

func TestQueryIsAI(t *testing.T) {
	dir := initRepo(t)
	commitID := annotatedCommit(t, dir)

	yes := runCmd(t, "", "query", "is-ai", "a.go", "1", "--commit", commitID, "--json")
	var gotYes map[string]any
	if err := json.Unmarshal([]byte(yes), &gotYes); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, yes)
	}
	if gotYes["is_ai"] != true {
		t.Errorf("is_ai for line 1 = %v, want true", gotYes["is_ai"])
	}

	no := runCmd(t, "", "query", "is-ai", "a.go", "3", "--commit", commitID, "--json")
	var gotNo map[string]any
	if err := json.Unmarshal([]byte(no), &gotNo); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, no)
	}
	if gotNo["is_ai"] != false {
		t.Errorf("is_ai for line 3 = %v, want false", gotNo["is_ai"])
	}
}

func TestQueryStatsNoAnnotation(t *testing.T) {
	dir := initRepo(t)
	writeFile(t, dir, "a.go", "alpha\n")
	gitAdd(t, dir, "a.go")
	gitCommit(t, dir, "add a.go")

	out := runCmd(t, "", "query", "stats")
	if !strings.Contains(out, "no annotation") {
		t.Errorf("stats output = %q, want it to report no annotation", out)
	}
}

func TestQueryStatsJSON(t *testing.T) {
	dir := initRepo(t)
	commitID := annotatedCommit(t, dir)

	out := runCmd(t, "", "query", "stats", "--commit", commitID, "--json")
	var got map[string]any
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, out)
	}
	if got["commit"] != commitID {
		t.Errorf("commit = %v, want %v", got["commit"], commitID)
	}
	if got["total_ai_lines"] != float64(2) {
		t.Errorf("total_ai_lines = %v, want 2", got["total_ai_lines"])
	}
}

func TestQueryLogJSON(t *testing.T) {
	dir := initRepo(t)
	commitID := annotatedCommit(t, dir)

	out := runCmd(t, "", "query", "log", "a.go", "--json")
	var got map[string]any
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, out)
	}
	commits, ok := got["commits"].([]any)
	if !ok || len(commits) != 1 || commits[0] != commitID {
		t.Errorf("commits = %v, want [%s]", got["commits"], commitID)
	}
}
