package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/linetrace/linetrace/internal/annotation"
	"github.com/linetrace/linetrace/internal/format"
	"github.com/linetrace/linetrace/internal/gitplumb"
	"github.com/linetrace/linetrace/internal/project"
	"github.com/linetrace/linetrace/internal/query"
	"github.com/linetrace/linetrace/internal/rangeset"
)

var (
	queryJSON   bool
	queryCommit string
)

// queryCmd groups the Query API (C7) subcommands: authorship ranges for
// a file, a yes/no check for one line, and the commit log of a path
// drawn from the sqlite cache (spec §4.7).
var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Ask which lines of a file were AI-authored (C7)",
}

var queryAuthorshipCmd = &cobra.Command{
	Use:   "authorship <path>",
	Short: "Show the AI-authored line ranges for a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := loadPaths()
		if err != nil {
			return err
		}
		path := args[0]

		ranges, err := resolveAuthorship(paths, path)
		if err != nil {
			return err
		}

		if queryJSON {
			return printJSON(cmd, map[string]interface{}{
				"path":   path,
				"commit": displayCommit(queryCommit),
				"ranges": ranges.String(),
			})
		}

		if ranges.IsEmpty() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: no AI-authored lines\n", path)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s%s%s (%s) %s%s%s\n",
			format.Bold, path, format.Reset,
			displayCommit(queryCommit),
			format.Cyan, ranges.String(), format.Reset)
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", format.LineCount(ranges.Len()))
		return nil
	},
}

var queryIsAICmd = &cobra.Command{
	Use:   "is-ai <path> <line>",
	Short: "Report whether a single line was AI-authored",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := loadPaths()
		if err != nil {
			return err
		}
		path := args[0]
		line, err := strconv.Atoi(args[1])
		if err != nil || line < 1 {
			return &usageError{"line must be a positive integer"}
		}

		commit := queryCommit
		if commit == "" {
			commit = gitplumb.HeadSHA(paths.Root)
		}

		isAI, err := query.IsAI(paths.Root, commit, path, line)
		if err != nil {
			return err
		}

		if queryJSON {
			return printJSON(cmd, map[string]interface{}{
				"path": path, "line": line, "commit": commit, "is_ai": isAI,
			})
		}
		verdict := format.Red + "no" + format.Reset
		if isAI {
			verdict = format.Green + "yes" + format.Reset
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s:%d (%s) AI-authored: %s\n", path, line, commit, verdict)
		return nil
	},
}

var queryLogCmd = &cobra.Command{
	Use:   "log <path>",
	Short: "List the commits with an annotation touching a file, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := loadPaths()
		if err != nil {
			return err
		}
		path := args[0]

		ix, err := openFreshIndex(paths)
		if err != nil {
			return err
		}
		defer ix.Close()

		commits, err := ix.CommitsFor(path)
		if err != nil {
			return err
		}
		sort.SliceStable(commits, func(i, j int) bool {
			return gitplumb.CommitTime(paths.Root, commits[i]).Before(gitplumb.CommitTime(paths.Root, commits[j]))
		})

		if queryJSON {
			return printJSON(cmd, map[string]interface{}{"path": path, "commits": commits})
		}
		if len(commits) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: no annotated commits\n", path)
			return nil
		}
		for i := len(commits) - 1; i >= 0; i-- {
			sha := commits[i]
			fmt.Fprintf(cmd.OutOrStdout(), "%s%s%s %s\n", format.Yellow, shortSHA(sha), format.Reset, path)
		}
		return nil
	},
}

var queryStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize a commit's AI-authored footprint, file by file",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := loadPaths()
		if err != nil {
			return err
		}
		commit := queryCommit
		if commit == "" {
			commit = gitplumb.HeadSHA(paths.Root)
		}
		if commit == "" {
			return &usageError{"no commit to summarize"}
		}

		rec, ok, err := annotation.Read(paths.Root, commit)
		if err != nil {
			return err
		}
		if !ok || rec.IsEmpty() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: no annotation\n", commit)
			return nil
		}

		files := rec.Files()
		paths2 := make([]string, 0, len(files))
		for p := range files {
			paths2 = append(paths2, p)
		}
		sort.Strings(paths2)

		type fileStat struct {
			path       string
			aiLines    int
			totalLines int
		}
		stats := make([]fileStat, 0, len(paths2))
		totalAI, totalLines := 0, 0
		for _, p := range paths2 {
			ai := files[p].Len()
			total := countLines(filepath.Join(paths.Root, filepath.FromSlash(p)))
			stats = append(stats, fileStat{p, ai, total})
			totalAI += ai
			totalLines += total
		}

		when := gitplumb.CommitTime(paths.Root, commit)

		if queryJSON {
			out := make([]map[string]interface{}, len(stats))
			for i, s := range stats {
				out[i] = map[string]interface{}{"path": s.path, "ai_lines": s.aiLines, "total_lines": s.totalLines}
			}
			return printJSON(cmd, map[string]interface{}{
				"commit": commit, "files": out, "total_ai_lines": totalAI,
			})
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s%s%s", format.Bold, commit, format.Reset)
		if !when.IsZero() {
			fmt.Fprintf(cmd.OutOrStdout(), " (%s)", format.RelativeTime(when))
		}
		fmt.Fprintln(cmd.OutOrStdout())
		for _, s := range stats {
			fmt.Fprintf(cmd.OutOrStdout(), "  %-40s %s  %s\n", s.path, format.LineCount(s.aiLines), format.Percent(s.aiLines, s.totalLines))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%stotal: %s across %d file(s)%s\n", format.Dim, format.LineCount(totalAI), len(stats), format.Reset)
		return nil
	},
}

func countLines(absPath string) int {
	data, err := os.ReadFile(absPath)
	if err != nil {
		return 0
	}
	if len(data) == 0 {
		return 0
	}
	return len(strings.Split(strings.TrimRight(string(data), "\n"), "\n"))
}

func shortSHA(sha string) string {
	if len(sha) < 12 {
		return sha
	}
	return sha[:12]
}

func resolveAuthorship(paths project.Paths, path string) (rangeset.RangeSet, error) {
	if queryCommit != "" {
		return query.Authorship(paths.Root, queryCommit, path)
	}
	return query.AuthorshipWorkingTree(paths.Root, paths.TrackingDir, path)
}

func displayCommit(commit string) string {
	if commit == "" {
		return "working tree"
	}
	return commit
}

func openFreshIndex(paths project.Paths) (*query.Index, error) {
	ix, err := query.OpenIndex(paths)
	if err != nil {
		return nil, err
	}
	if ix.IsStale(paths.Root) {
		if err := ix.Rebuild(paths.Root); err != nil {
			ix.Close()
			return nil, err
		}
	}
	return ix, nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	queryCmd.PersistentFlags().BoolVar(&queryJSON, "json", false, "output machine-readable JSON")
	queryCmd.PersistentFlags().StringVar(&queryCommit, "commit", "", "commit to query (default: working tree for authorship, HEAD for is-ai)")
	queryCmd.AddCommand(queryAuthorshipCmd, queryIsAICmd, queryLogCmd, queryStatsCmd)
	rootCmd.AddCommand(queryCmd)
}
