// Package sync implements Remote Sync (C5): pushing the metadata ref and
// reconciling it against a remote's divergent copy on fetch (spec §4.5).
package sync

import (
	"github.com/linetrace/linetrace/internal/annotation"
	"github.com/linetrace/linetrace/internal/gitplumb"
	"github.com/linetrace/linetrace/internal/rangeset"
)

// Push transmits the metadata ref to remote. Failure is non-fatal and
// must be logged by the caller, never surfaced as a failed push of the
// user's own objects (spec §4.5).
func Push(root, remote string) error {
	if err := annotation.EnsureRef(root); err != nil {
		return err
	}
	return gitplumb.Push(root, remote, annotation.RefName)
}

// Reconciliation summarizes what Fetch did, for logging.
type Reconciliation struct {
	Agreed  []string // local and remote already matched
	Adopted []string // only the remote side had this commit
	Unioned []string // both sides differed; ranges were unioned locally
}

// Fetch retrieves the remote's metadata ref and reconciles it against
// the local one, per spec §4.5's divergence policy: per commit id, if
// local and remote agree, no-op; if only one side has it, adopt it; if
// both have non-identical annotations, union the range sets per file
// and write the result back locally (the remote is updated on next
// Push).
func Fetch(root, gitDir, remote string) (Reconciliation, error) {
	var result Reconciliation

	if err := gitplumb.Fetch(root, remote, annotation.RefName); err != nil {
		return result, err
	}
	remoteRef, err := gitplumb.FetchHeadSHA(root)
	if err != nil {
		return result, err
	}

	remoteIDs, err := annotation.ListAt(root, remoteRef)
	if err != nil {
		return result, err
	}

	for _, id := range remoteIDs {
		remoteRec, ok, err := annotation.ReadAt(root, remoteRef, id)
		if err != nil || !ok {
			continue
		}

		localRec, hasLocal, err := annotation.Read(root, id)
		if err != nil {
			return result, err
		}

		switch {
		case !hasLocal:
			if err := annotation.Write(root, gitDir, id, remoteRec); err != nil {
				return result, err
			}
			result.Adopted = append(result.Adopted, id)

		case recordsEqual(localRec, remoteRec):
			result.Agreed = append(result.Agreed, id)

		default:
			merged := unionRecords(localRec, remoteRec)
			if err := annotation.Write(root, gitDir, id, merged); err != nil {
				return result, err
			}
			result.Unioned = append(result.Unioned, id)
		}
	}

	return result, nil
}

func recordsEqual(a, b annotation.Record) bool {
	af, bf := a.Files(), b.Files()
	if len(af) != len(bf) {
		return false
	}
	for path, ranges := range af {
		other, ok := bf[path]
		if !ok || ranges.String() != other.String() {
			return false
		}
	}
	return true
}

func unionRecords(a, b annotation.Record) annotation.Record {
	af, bf := a.Files(), b.Files()
	merged := make(map[string]rangeset.RangeSet, len(af)+len(bf))
	for path, ranges := range af {
		merged[path] = ranges
	}
	for path, ranges := range bf {
		merged[path] = merged[path].Union(ranges)
	}
	return annotation.NewRecord(merged)
}
