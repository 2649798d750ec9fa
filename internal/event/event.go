// Package event implements the Line-Range Tracking Engine's ingest half
// (spec §4.2, C2): parsing a tool-event payload and computing lines_new —
// the set of post-image line numbers a single AI edit introduced or
// changed — plus the hunks needed to remap any staging entry that came
// before it.
package event

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/linetrace/linetrace/internal/linediff"
	"github.com/linetrace/linetrace/internal/pathutil"
	"github.com/linetrace/linetrace/internal/rangeset"
)

// Kind is the tagged variant over tool_name spec §3/§9 calls for.
type Kind string

const (
	KindCreateFile Kind = "create-file"
	KindEditFile   Kind = "edit-file"
)

// PatchHunk mirrors one entry of tool_response.structuredPatch.
type PatchHunk struct {
	OldStart int      `json:"oldStart"`
	OldLines int      `json:"oldLines"`
	NewStart int      `json:"newStart"`
	NewLines int      `json:"newLines"`
	Lines    []string `json:"lines,omitempty"`
}

// ToolEvent is the raw wire-format payload, spec §6.
type ToolEvent struct {
	HookEventName string          `json:"hook_event_name"`
	ToolName      string          `json:"tool_name"`
	Cwd           string          `json:"cwd"`
	ToolInput     json.RawMessage `json:"tool_input"`
	ToolResponse  struct {
		StructuredPatch []PatchHunk `json:"structuredPatch"`
	} `json:"tool_response"`
}

// ErrInvalidEvent wraps any reason a tool event could not be parsed or
// lacked required fields (spec §7 InvalidEvent): logged and dropped,
// never surfaced to the user's editor/hook.
type ErrInvalidEvent struct {
	Reason string
}

func (e *ErrInvalidEvent) Error() string { return "invalid tool event: " + e.Reason }

// Parse decodes a tool-event JSON payload from r.
func Parse(r io.Reader) (*ToolEvent, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, &ErrInvalidEvent{Reason: err.Error()}
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, &ErrInvalidEvent{Reason: "empty payload"}
	}
	var ev ToolEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, &ErrInvalidEvent{Reason: err.Error()}
	}
	switch ev.ToolName {
	case "Write", "Edit", "MultiEdit":
	default:
		return nil, &ErrInvalidEvent{Reason: "unsupported tool_name " + ev.ToolName}
	}
	return &ev, nil
}

// Extraction is the result of interpreting a ToolEvent: the file it
// touched, its tool kind, the lines it newly introduced or changed, and
// the hunks describing the transformation (for remapping any earlier
// staging entry for the same file forward through this event, §4.2).
type Extraction struct {
	Path     string
	Kind     Kind
	LinesNew rangeset.RangeSet
	Hunks    []rangeset.Hunk
}

// Extract dispatches on tool_name and computes an Extraction. Malformed
// tool_input, a missing file_path or an unsupported tool_name returns
// ErrInvalidEvent so the caller can log and drop the event.
func Extract(ev *ToolEvent, projectDir string) (*Extraction, error) {
	var input map[string]any
	if err := json.Unmarshal(ev.ToolInput, &input); err != nil {
		return nil, &ErrInvalidEvent{Reason: "tool_input: " + err.Error()}
	}

	path := relPath(input, projectDir)
	if path == "" {
		return nil, &ErrInvalidEvent{Reason: "missing file_path"}
	}

	switch ev.ToolName {
	case "Write":
		return extractWrite(path, input)
	case "Edit":
		return extractEdit(path, input, ev.ToolResponse.StructuredPatch)
	case "MultiEdit":
		return extractMultiEdit(path, input, ev.ToolResponse.StructuredPatch)
	default:
		return nil, &ErrInvalidEvent{Reason: "unsupported tool_name " + ev.ToolName}
	}
}

func relPath(input map[string]any, projectDir string) string {
	fp, _ := input["file_path"].(string)
	if fp == "" {
		fp, _ = input["path"].(string)
	}
	if fp == "" {
		return ""
	}
	if projectDir == "" {
		return fp
	}
	return pathutil.Relativize(fp, projectDir)
}

// extractWrite treats the tool as spec's create-file kind: the whole
// post-image is new content regardless of whether it overwrote an
// existing file, matching spec §3's "for create-file, the full new
// content" and the teacher's own rule that a later Write supersedes all
// prior claims for that path.
func extractWrite(path string, input map[string]any) (*Extraction, error) {
	content, _ := input["content"].(string)
	n := countLines(content)
	return &Extraction{
		Path:     path,
		Kind:     KindCreateFile,
		LinesNew: rangeset.FromRange(1, n),
	}, nil
}

func extractEdit(path string, input map[string]any, patch []PatchHunk) (*Extraction, error) {
	oldStr, _ := input["old_string"].(string)
	newStr, _ := input["new_string"].(string)

	newStart := 1
	var hunks []rangeset.Hunk
	if len(patch) > 0 {
		newStart = patch[0].NewStart
		for _, p := range patch {
			hunks = append(hunks, rangeset.Hunk{
				OldStart: p.OldStart, OldLines: p.OldLines,
				NewStart: p.NewStart, NewLines: p.NewLines,
			})
		}
	} else {
		hunks = linediff.Hunks(oldStr, newStr)
	}

	lines := linediff.ChangedLines(oldStr, newStr, newStart)
	return &Extraction{Path: path, Kind: KindEditFile, LinesNew: lines, Hunks: hunks}, nil
}

func extractMultiEdit(path string, input map[string]any, patch []PatchHunk) (*Extraction, error) {
	rawEdits, _ := input["edits"].([]any)
	var lines rangeset.RangeSet
	var hunks []rangeset.Hunk

	for i, re := range rawEdits {
		edit, ok := re.(map[string]any)
		if !ok {
			continue
		}
		oldStr, _ := edit["old_string"].(string)
		newStr, _ := edit["new_string"].(string)

		newStart := 1
		if i < len(patch) {
			p := patch[i]
			newStart = p.NewStart
			hunks = append(hunks, rangeset.Hunk{
				OldStart: p.OldStart, OldLines: p.OldLines,
				NewStart: p.NewStart, NewLines: p.NewLines,
			})
		} else {
			hunks = append(hunks, linediff.Hunks(oldStr, newStr)...)
		}
		lines = lines.Union(linediff.ChangedLines(oldStr, newStr, newStart))
	}

	if lines.IsEmpty() && len(hunks) == 0 {
		return nil, &ErrInvalidEvent{Reason: "MultiEdit with no edits"}
	}
	return &Extraction{Path: path, Kind: KindEditFile, LinesNew: lines, Hunks: hunks}, nil
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return len(strings.Split(s, "\n"))
}

// Summary renders a short human-readable description of what an edit
// changed, for debug logging — not part of any wire format.
func Summary(oldStr, newStr string) string {
	const maxLen = 200
	flatten := func(s string) string {
		s = strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
		if len(s) > maxLen {
			s = s[:maxLen] + "…"
		}
		return s
	}
	switch {
	case oldStr == "" && newStr != "":
		return "added: " + flatten(newStr)
	case oldStr != "" && newStr == "":
		return "removed: " + flatten(oldStr)
	default:
		return fmt.Sprintf("%s → %s", flatten(oldStr), flatten(newStr))
	}
}
