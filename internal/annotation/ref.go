package annotation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/linetrace/linetrace/internal/gitplumb"
)

// RefName is the dedicated orphan branch used as the metadata ref (spec
// §3 "out-of-band metadata ref"). A plain orphan branch of blobs, rather
// than native git notes, gives full control over the CAS retry and
// union-on-fetch reconciliation policy spec §4.4/§4.5/§5 require.
const RefName = "refs/heads/linetrace-annotations"

const annotationsDir = "annotations"
const reconciliationLogPath = "reconciliation-log.jsonl"

func blobPath(commitID string) string {
	return annotationsDir + "/" + commitID + ".json"
}

// EnsureRef creates RefName if it does not already exist.
func EnsureRef(root string) error {
	return gitplumb.InitOrphanRef(root, RefName, "initialize linetrace annotations ref")
}

// Read retrieves the annotation record for commitID, if one exists, from
// the repository's own metadata ref.
func Read(root, commitID string) (Record, bool, error) {
	return ReadAt(root, RefName, commitID)
}

// ReadAt retrieves the annotation record for commitID from an arbitrary
// ref or commit-ish (e.g. FETCH_HEAD, for reading a remote's metadata
// ref before it has been merged into the local one — spec §4.5 fetch).
func ReadAt(root, ref, commitID string) (Record, bool, error) {
	if !gitplumb.RefExists(root, ref) {
		return Record{}, false, nil
	}
	data, err := gitplumb.ReadBlobAt(root, ref, blobPath(commitID))
	if err != nil {
		return Record{}, false, nil
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, false, fmt.Errorf("annotation: parse record for %s: %w", commitID, err)
	}
	return rec, true, nil
}

// ReconciliationEntry is one line of the append-only reconciliation log,
// written whenever Write detects a conflicting blob already recorded for
// a commit id (spec §4.4 "a reconciliation entry is appended").
type ReconciliationEntry struct {
	ID       string    `json:"id"`
	CommitID string    `json:"commit_id"`
	At       time.Time `json:"at"`
	Reason   string    `json:"reason"`
}

// Write idempotently annotates commitID with rec (spec §4.4 C4): writing
// the identical blob again is a no-op; writing a different blob lets the
// new one win and appends a reconciliation log entry. The ref update is
// a genuine compare-and-swap against the tip read at the top of this
// attempt (gitplumb.WriteBlobAt), so a racing writer is detected rather
// than clobbered; on gitplumb.ErrRefConflict the whole attempt — re-read,
// re-diff, re-write — retries up to 3 times total, per spec §5 and §7's
// RefUpdateConflict.
func Write(root, gitDir, commitID string, rec Record) error {
	if err := EnsureRef(root); err != nil {
		return err
	}

	newData, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	const maxAttempts = 3
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		baseSHA, err := gitplumb.RevParse(root, RefName)
		if err != nil {
			return err
		}

		existing, ok, err := ReadAt(root, baseSHA, commitID)
		if err != nil {
			return err
		}
		if ok {
			existingData, err := json.Marshal(existing)
			if err != nil {
				return err
			}
			if bytes.Equal(existingData, newData) {
				return nil
			}
			next, err := appendReconciliationEntry(root, gitDir, baseSHA, commitID, "conflicting annotation blob, new write wins")
			if err != nil {
				if errors.Is(err, gitplumb.ErrRefConflict) {
					lastErr = err
					continue
				}
				return err
			}
			baseSHA = next
		}

		if _, err := gitplumb.WriteBlobAt(root, gitDir, RefName, baseSHA, blobPath(commitID), newData,
			"annotate "+commitID); err != nil {
			if errors.Is(err, gitplumb.ErrRefConflict) {
				lastErr = err
				continue
			}
			return err
		}
		return nil
	}
	return fmt.Errorf("annotation: write %s: exhausted retries: %w", commitID, lastErr)
}

// appendReconciliationEntry appends one line to the reconciliation log
// on top of baseSHA and returns the ref's new tip, or gitplumb.ErrRefConflict
// if baseSHA was no longer current.
func appendReconciliationEntry(root, gitDir, baseSHA, commitID, reason string) (string, error) {
	entry := ReconciliationEntry{
		ID:       uuid.NewString(),
		CommitID: commitID,
		At:       time.Now().UTC(),
		Reason:   reason,
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return "", err
	}

	existing, _ := gitplumb.ReadBlobAt(root, baseSHA, reconciliationLogPath)
	var buf bytes.Buffer
	buf.Write(existing)
	if len(existing) > 0 && !bytes.HasSuffix(existing, []byte("\n")) {
		buf.WriteByte('\n')
	}
	buf.Write(line)
	buf.WriteByte('\n')

	return gitplumb.WriteBlobAt(root, gitDir, RefName, baseSHA, reconciliationLogPath, buf.Bytes(),
		"record reconciliation for "+commitID)
}

// Delete removes a commit's annotation blob, used when a rollup
// supersedes the individual per-commit annotations it squashed. Retries
// on gitplumb.ErrRefConflict exactly like Write, since it is the same
// compare-and-swap ref update under the hood.
func Delete(root, gitDir, commitID string) error {
	const maxAttempts = 3
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		baseSHA, err := gitplumb.RevParse(root, RefName)
		if err != nil {
			return err
		}
		_, err = gitplumb.RemoveBlobAt(root, gitDir, RefName, baseSHA, blobPath(commitID),
			"remove superseded annotation for "+commitID)
		if err != nil {
			if errors.Is(err, gitplumb.ErrRefConflict) {
				lastErr = err
				continue
			}
			return err
		}
		return nil
	}
	return fmt.Errorf("annotation: delete %s: exhausted retries: %w", commitID, lastErr)
}

// List returns every commit id with an annotation currently recorded on
// the repository's own metadata ref, sorted for deterministic iteration.
func List(root string) ([]string, error) {
	return ListAt(root, RefName)
}

// ListAt is List generalized to an arbitrary ref or commit-ish.
func ListAt(root, ref string) ([]string, error) {
	paths, err := gitplumb.ListBlobsAt(root, ref, annotationsDir)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(paths))
	for _, p := range paths {
		name := strings.TrimPrefix(p, annotationsDir+"/")
		name = strings.TrimSuffix(name, ".json")
		if name != "" {
			ids = append(ids, name)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
