// Package gitplumb wraps the git plumbing commands linetrace needs,
// always invoked as a subprocess with a fixed vocabulary (rev-parse, show,
// diff, mktree, hash-object, update-index, write-tree, commit-tree,
// update-ref, push, fetch, merge-base) and never replaced by an in-process
// git library — the tool only ever observes the repository the ambient
// git binary already manages.
package gitplumb

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/linetrace/linetrace/internal/rangeset"
)

// ErrRefConflict indicates a ref's tip moved between the caller's read
// of it and this write's compare-and-swap, per spec §7's
// RefUpdateConflict: "C4's compare-and-swap loses." Callers retry.
var ErrRefConflict = errors.New("gitplumb: ref update conflict")

func run(root string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Author returns the git user.name config value.
func Author(root string) string {
	name, err := run(root, "config", "user.name")
	if err != nil || name == "" {
		return "unknown"
	}
	return name
}

// RevParseTopLevel returns the git repo root.
func RevParseTopLevel() (string, error) {
	out, err := exec.Command("git", "rev-parse", "--show-toplevel").Output()
	if err != nil {
		return "", fmt.Errorf("not inside a git repository")
	}
	return strings.TrimSpace(string(out)), nil
}

// HeadSHA returns the current HEAD commit SHA, or "" if there is none yet
// (e.g. the very first commit in a fresh repository).
func HeadSHA(root string) string {
	sha, err := run(root, "rev-parse", "HEAD")
	if err != nil {
		return ""
	}
	return sha
}

// CommitTime returns the author date of commit, zero-valued if it
// cannot be resolved.
func CommitTime(root, commit string) time.Time {
	out, err := run(root, "show", "-s", "--format=%at", commit)
	if err != nil || out == "" {
		return time.Time{}
	}
	sec, err := strconv.ParseInt(out, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}

// RevParse resolves an arbitrary ref to a commit SHA.
func RevParse(root, ref string) (string, error) {
	return run(root, "rev-parse", ref)
}

// MergeBase returns the best common ancestor of a and b.
func MergeBase(root, a, b string) (string, error) {
	return run(root, "merge-base", a, b)
}

// ShowBlob retrieves file content at ref:path (e.g. "HEAD:main.go").
func ShowBlob(root, ref, path string) (string, error) {
	out, err := run(root, "show", ref+":"+path)
	if err != nil {
		return "", err
	}
	return out, nil
}

// StagedPaths returns the paths currently staged for commit
// (--cached), used by the pre-commit reconciler to enumerate what it
// must reconcile.
func StagedPaths(root string) ([]string, error) {
	out, err := run(root, "diff", "--cached", "--name-only")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// ShowStagedBlob reads a path's content from the index (stage 0), i.e.
// what will actually be committed, independent of the working tree.
func ShowStagedBlob(root, path string) (string, error) {
	return run(root, "show", ":"+path)
}

// ShowParentBlob reads a path's content at HEAD, or "" if the path does
// not exist there yet (new file) or there is no HEAD yet (first commit).
func ShowParentBlob(root, path string) (string, error) {
	if HeadSHA(root) == "" {
		return "", nil
	}
	content, err := ShowBlob(root, "HEAD", path)
	if err != nil {
		return "", nil
	}
	return content, nil
}

// StageFile runs git add for a single file. No linetrace command calls
// it; linetrace never stages tracked file content on the user's behalf.
func StageFile(root, relPath string) error {
	cmd := exec.Command("git", "add", relPath)
	cmd.Dir = root
	return cmd.Run()
}

// RevList returns the commits in (base, head], oldest first — the
// sequence C_1..C_k the rollup engine walks forward over (spec §4.6).
func RevList(root, base, head string) ([]string, error) {
	out, err := run(root, "rev-list", "--reverse", base+".."+head)
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// ChangedFiles returns the set of paths that differ between base and head
// (--name-only; with git's default rename detection a renamed file is
// listed under its new path only). DiffHunks, limited to one path, still
// sees a rename as a deletion of the old path and an addition of the new.
func ChangedFiles(root, base, head string) ([]string, error) {
	out, err := run(root, "diff", "--name-only", base, head)
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// DiffHunks computes the hunks of path between two refs using
// `git diff --unified=0`, parsing the "@@ -a,b +c,d @@" headers it emits.
// A present-only-on-one-side path (new or deleted file) yields a single
// hunk spanning the whole file.
func DiffHunks(root, base, head, path string) ([]rangeset.Hunk, error) {
	cmd := exec.Command("git", "diff", "--unified=0", "--no-color", base, head, "--", path)
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git diff %s %s -- %s: %w", base, head, path, err)
	}
	return parseUnifiedHunks(string(out)), nil
}

func parseUnifiedHunks(diffText string) []rangeset.Hunk {
	var hunks []rangeset.Hunk
	for _, line := range strings.Split(diffText, "\n") {
		if !strings.HasPrefix(line, "@@ ") {
			continue
		}
		// "@@ -a,b +c,d @@ ..."
		end := strings.Index(line[3:], " @@")
		if end < 0 {
			continue
		}
		header := line[3 : 3+end]
		parts := strings.Fields(header)
		if len(parts) != 2 {
			continue
		}
		oldStart, oldLen := parseHunkSide(parts[0], '-')
		newStart, newLen := parseHunkSide(parts[1], '+')
		// git numbers a zero-length side by the line before the edit
		// point; rangeset.Hunk numbers it by the line after it.
		if oldLen == 0 {
			oldStart++
		}
		if newLen == 0 {
			newStart++
		}
		hunks = append(hunks, rangeset.Hunk{
			OldStart: oldStart,
			OldLines: oldLen,
			NewStart: newStart,
			NewLines: newLen,
		})
	}
	return hunks
}

func parseHunkSide(s string, prefix byte) (start, length int) {
	s = strings.TrimPrefix(s, string(prefix))
	if idx := strings.Index(s, ","); idx >= 0 {
		start, _ = strconv.Atoi(s[:idx])
		length, _ = strconv.Atoi(s[idx+1:])
		return start, length
	}
	start, _ = strconv.Atoi(s)
	length = 1
	if start == 0 {
		length = 0
	}
	return start, length
}

// --- orphan-branch metadata-ref plumbing ---
// The same mktree/hash-object/update-index/write-tree/commit-tree/
// update-ref sequence the provenance branch uses, generalized to an
// arbitrary ref name and blob path so it can serve any out-of-band
// metadata ref, not just one hardcoded branch.

// RefExists returns true if refName resolves to a commit.
func RefExists(root, refName string) bool {
	cmd := exec.Command("git", "rev-parse", "--verify", "--quiet", refName)
	cmd.Dir = root
	return cmd.Run() == nil
}

// InitOrphanRef creates refName pointing at a root commit over an empty
// tree, if it does not already exist. Idempotent.
func InitOrphanRef(root, refName, message string) error {
	if RefExists(root, refName) {
		return nil
	}
	mktree := exec.Command("git", "mktree")
	mktree.Dir = root
	mktree.Stdin = strings.NewReader("")
	treeOut, err := mktree.Output()
	if err != nil {
		return fmt.Errorf("mktree: %w", err)
	}
	treeSHA := strings.TrimSpace(string(treeOut))

	commitSHA, err := run(root, "commit-tree", treeSHA, "-m", message)
	if err != nil {
		return fmt.Errorf("commit-tree: %w", err)
	}
	updateRef := exec.Command("git", "update-ref", refName, commitSHA)
	updateRef.Dir = root
	return updateRef.Run()
}

// WriteBlobAt writes data to path on refName via plumbing only, never
// touching the working tree or the user's index, and returns the new
// commit SHA. expectedOldSHA is the ref tip the caller read before
// deciding to write (e.g. annotation.Write's Read at the top of its
// retry loop); the final ref update is a genuine compare-and-swap
// against it, not a blind update-ref, so a racing writer is detected
// rather than silently clobbered. Returns ErrRefConflict if the ref
// moved in the meantime.
func WriteBlobAt(root, gitDir, refName, expectedOldSHA, path string, data []byte, message string) (string, error) {
	indexFile := filepath.Join(gitDir, "linetrace-index")
	defer os.Remove(indexFile)
	env := append(os.Environ(), "GIT_INDEX_FILE="+indexFile)

	run := func(args ...string) (string, error) {
		cmd := exec.Command("git", args...)
		cmd.Dir = root
		cmd.Env = env
		out, err := cmd.Output()
		if err != nil {
			return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
		}
		return strings.TrimSpace(string(out)), nil
	}

	if _, err := run("read-tree", expectedOldSHA); err != nil {
		return "", fmt.Errorf("read-tree: %w", err)
	}

	hashCmd := exec.Command("git", "hash-object", "-w", "--stdin")
	hashCmd.Dir = root
	hashCmd.Env = env
	hashCmd.Stdin = strings.NewReader(string(data))
	blobOut, err := hashCmd.Output()
	if err != nil {
		return "", fmt.Errorf("hash-object: %w", err)
	}
	blobSHA := strings.TrimSpace(string(blobOut))

	if _, err := run("update-index", "--add", "--cacheinfo", fmt.Sprintf("100644,%s,%s", blobSHA, path)); err != nil {
		return "", fmt.Errorf("update-index: %w", err)
	}

	treeSHA, err := run("write-tree")
	if err != nil {
		return "", fmt.Errorf("write-tree: %w", err)
	}

	commitSHA, err := run("commit-tree", treeSHA, "-p", expectedOldSHA, "-m", message)
	if err != nil {
		return "", fmt.Errorf("commit-tree: %w", err)
	}

	if err := CompareAndSwapRef(root, refName, commitSHA, expectedOldSHA); err != nil {
		return "", fmt.Errorf("%s: %w", refName, ErrRefConflict)
	}
	return commitSHA, nil
}

// RemoveBlobAt removes path from refName via plumbing only, if present.
// A no-op (returning the current HEAD of refName) when path does not
// currently exist there. expectedOldSHA is treated exactly as in
// WriteBlobAt: the final ref update is a compare-and-swap against it,
// returning ErrRefConflict if the ref moved since the caller read it.
func RemoveBlobAt(root, gitDir, refName, expectedOldSHA, path, message string) (string, error) {
	indexFile := filepath.Join(gitDir, "linetrace-index")
	defer os.Remove(indexFile)
	env := append(os.Environ(), "GIT_INDEX_FILE="+indexFile)

	run := func(args ...string) (string, error) {
		cmd := exec.Command("git", args...)
		cmd.Dir = root
		cmd.Env = env
		out, err := cmd.Output()
		if err != nil {
			return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
		}
		return strings.TrimSpace(string(out)), nil
	}

	if _, err := run("read-tree", expectedOldSHA); err != nil {
		return "", fmt.Errorf("read-tree: %w", err)
	}

	if _, err := ReadBlobAt(root, expectedOldSHA, path); err != nil {
		if cur, err := RevParse(root, refName); err != nil || cur != expectedOldSHA {
			return "", fmt.Errorf("%s: %w", refName, ErrRefConflict)
		}
		return expectedOldSHA, nil
	}

	if _, err := run("update-index", "--remove", path); err != nil {
		return "", fmt.Errorf("update-index --remove: %w", err)
	}

	treeSHA, err := run("write-tree")
	if err != nil {
		return "", fmt.Errorf("write-tree: %w", err)
	}

	commitSHA, err := run("commit-tree", treeSHA, "-p", expectedOldSHA, "-m", message)
	if err != nil {
		return "", fmt.Errorf("commit-tree: %w", err)
	}

	if err := CompareAndSwapRef(root, refName, commitSHA, expectedOldSHA); err != nil {
		return "", fmt.Errorf("%s: %w", refName, ErrRefConflict)
	}
	return commitSHA, nil
}

// CompareAndSwapRef updates refName to newSHA only if it currently points
// at expectedOldSHA, the compare-and-swap primitive spec §5 requires for
// concurrent metadata-ref writers.
func CompareAndSwapRef(root, refName, newSHA, expectedOldSHA string) error {
	cmd := exec.Command("git", "update-ref", refName, newSHA, expectedOldSHA)
	cmd.Dir = root
	return cmd.Run()
}

// ReadBlobAt reads path from refName without checkout.
func ReadBlobAt(root, refName, path string) ([]byte, error) {
	cmd := exec.Command("git", "show", refName+":"+path)
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("read %s:%s: %w", refName, path, err)
	}
	return out, nil
}

// ListBlobsAt lists blob paths under dirPrefix on refName.
func ListBlobsAt(root, refName, dirPrefix string) ([]string, error) {
	if !RefExists(root, refName) {
		return nil, nil
	}
	cmd := exec.Command("git", "ls-tree", "--name-only", "-r", refName, dirPrefix)
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" {
		return nil, nil
	}
	return strings.Split(trimmed, "\n"), nil
}

// Push pushes refName to remote. Returns nil without error if no remote
// is configured (hooks must never fail the user's git operation on this).
func Push(root, remote, refName string) error {
	if remote == "" {
		remote = "origin"
	}
	check := exec.Command("git", "remote", "get-url", remote)
	check.Dir = root
	if check.Run() != nil {
		return nil
	}
	cmd := exec.Command("git", "push", remote, refName)
	cmd.Dir = root
	return cmd.Run()
}

// Fetch fetches refName from remote into FETCH_HEAD.
func Fetch(root, remote, refName string) error {
	cmd := exec.Command("git", "fetch", remote, refName)
	cmd.Dir = root
	return cmd.Run()
}

// FetchHeadSHA returns FETCH_HEAD after a Fetch.
func FetchHeadSHA(root string) (string, error) {
	return run(root, "rev-parse", "FETCH_HEAD")
}
