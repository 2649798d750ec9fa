package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// initRepo creates a throwaway git repository with an initial commit so
// HEAD always resolves, and points CLAUDE_PROJECT_DIR at it so loadPaths
// resolves here instead of walking up from the test binary's cwd.
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

	writeFile(t, dir, "README.md", "init\n")
	gitAdd(t, dir, "README.md")
	gitCommit(t, dir, "initial commit")

	t.Setenv("CLAUDE_PROJECT_DIR", dir)
	return dir
}

func writeFile(t *testing.T, dir, path, content string) {
	t.Helper()
	full := filepath.Join(dir, path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func gitAdd(t *testing.T, dir, path string) {
	t.Helper()
	cmd := exec.Command("git", "add", path)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git add: %v\n%s", err, out)
	}
}

func gitCommit(t *testing.T, dir, message string) string {
	t.Helper()
	cmd := exec.Command("git", "commit", "-q", "-m", message)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git commit: %v\n%s", err, out)
	}
	cmd = exec.Command("git", "rev-parse", "HEAD")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		t.Fatal(err)
	}
	return string(bytes.TrimSpace(out))
}

// runCmd executes the CLI with args, feeding stdin to whichever
// subcommand reads it, and returns captured stdout. Query flags are
// reset first since BoolVar/StringVar bind directly to package-level
// vars that cobra does not restore to their zero value between runs.
func runCmd(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	queryJSON = false
	queryCommit = ""

	if stdin != "" {
		oldStdin := os.Stdin
		r, w, err := os.Pipe()
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.WriteString(stdin); err != nil {
			t.Fatal(err)
		}
		w.Close()
		os.Stdin = r
		defer func() { os.Stdin = oldStdin }()
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("linetrace %v: %v\n%s", args, err, out.String())
	}
	return out.String()
}

// writeEvent builds a minimal Write-tool track-changes payload claiming
// the whole of content as AI-authored (spec §3's create-file kind).
func writeEvent(absPath, content string) string {
	return fmt.Sprintf(`{"hook_event_name":"PostToolUse","tool_name":"Write","tool_input":{"file_path":%q,"content":%q},"tool_response":{}}`,
		absPath, content)
}
