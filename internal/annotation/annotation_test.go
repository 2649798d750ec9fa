package annotation

import (
	"encoding/json"
	"testing"

	"github.com/linetrace/linetrace/internal/rangeset"
)

func TestRecordMarshalWireShape(t *testing.T) {
	rec := NewRecord(map[string]rangeset.RangeSet{
		"file1.js": rangeset.Compact([]int{1, 2, 3}),
		"file2.py": rangeset.Compact([]int{5, 7, 8, 9, 10}),
	})
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"claude_was_here":{"version":"1.0","files":{"file1.js":{"ranges":[[1,3]]},"file2.py":{"ranges":[[5,5],[7,10]]}}}}`
	if string(data) != want {
		t.Errorf("got  %s\nwant %s", data, want)
	}
}

func TestRecordUnmarshalRoundTrip(t *testing.T) {
	src := `{"claude_was_here":{"version":"1.0","files":{"a.go":{"ranges":[[1,4]]}}}}`
	var rec Record
	if err := json.Unmarshal([]byte(src), &rec); err != nil {
		t.Fatal(err)
	}
	files := rec.Files()
	if got := files["a.go"].String(); got != "1-4" {
		t.Errorf("ranges = %q, want 1-4", got)
	}
}

func TestRecordIsEmpty(t *testing.T) {
	if !NewRecord(nil).IsEmpty() {
		t.Errorf("expected empty record for nil files")
	}
}

func TestNewPendingRecordComputesTotals(t *testing.T) {
	p := NewPendingRecord(map[string]rangeset.RangeSet{
		"file1.js": rangeset.Compact([]int{1, 2, 3}),
		"file2.py": rangeset.Compact([]int{5, 7, 8, 9, 10}),
		"file3.rb": rangeset.RangeSet{},
	})
	if p.Totals.Files != 2 {
		t.Errorf("Totals.Files = %d, want 2", p.Totals.Files)
	}
	if p.Totals.Lines != 8 {
		t.Errorf("Totals.Lines = %d, want 8", p.Totals.Lines)
	}
	if _, ok := p.Files["file3.rb"]; ok {
		t.Errorf("expected empty-range file to be dropped")
	}
}

func TestPendingRecordToRecord(t *testing.T) {
	p := NewPendingRecord(map[string]rangeset.RangeSet{"a.go": rangeset.Compact([]int{1})})
	rec := p.ToRecord()
	if rec.IsEmpty() {
		t.Errorf("expected non-empty record")
	}
}
