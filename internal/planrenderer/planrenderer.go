// Package planrenderer implements PlanRenderer: a dry-run preview of what
// a sync job would do, without transferring anything (spec.md §4.6).
package planrenderer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/fatih/color"

	"github.com/pdbsync/pdbsync/internal/flagbag"
	"github.com/pdbsync/pdbsync/internal/rsync"
	"github.com/pdbsync/pdbsync/internal/runctx"
)

// PlanSummary is the result of a dry-run preview, matching the JSON
// shape of spec.md §4.6.
type PlanSummary struct {
	Name          string   `json:"name"`
	URL           string   `json:"url"`
	Dest          string   `json:"dest"`
	WouldCreate   int      `json:"would_create"`
	WouldUpdate   int      `json:"would_update"`
	WouldDelete   int      `json:"would_delete"`
	TotalBytes    int64    `json:"total_bytes"`
	SampleChanges []string `json:"sample_changes"`
	CountsUnknown bool     `json:"counts_unknown"`
	RawOutput     string   `json:"-"`
}

const sampleLimit = 20

// Renderer runs rsync in forced dry-run mode to produce a PlanSummary.
type Renderer struct {
	Bin string // defaults to "rsync"

	// KeepRunTmp keeps the scratch directory holding rsync's raw
	// dry-run output around after Plan returns, instead of deleting it
	// (useful for debugging a parse failure on a huge archive listing).
	KeepRunTmp bool
}

func (r *Renderer) bin() string {
	if r.Bin != "" {
		return r.Bin
	}
	return "rsync"
}

// Plan forces --dry-run --stats --itemize-changes onto job's already
// resolved flags (regardless of whether dry_run was set) and parses the
// output into a PlanSummary. Parsing failures degrade to
// CountsUnknown=true with RawOutput preserved, per spec.md §4.6.
func (r *Renderer) Plan(ctx context.Context, job rsync.Job) (PlanSummary, error) {
	forced := job.Flags
	forced.DryRun = flagbag.WithBool(true)
	forced.ItemizeChanges = flagbag.WithBool(true)

	argv := flagbag.ToArgv(forced)
	argv = append(argv, "--stats", job.SourceURL, ensureTrailingSlash(job.AbsoluteDest))

	// A full-archive dry run can itemize millions of lines; spool rsync's
	// combined output to a scratch file instead of growing an in-memory
	// buffer for the lifetime of the subprocess.
	rc, err := runctx.New("pdbsync-plan-", r.KeepRunTmp)
	if err != nil {
		return PlanSummary{}, fmt.Errorf("planrenderer: scratch dir: %w", err)
	}
	defer func() {
		if cerr := rc.Cleanup(); cerr != nil {
			_ = cerr
		}
	}()

	outPath := rc.Path("dry-run.out")
	outFile, err := os.Create(outPath)
	if err != nil {
		return PlanSummary{}, fmt.Errorf("planrenderer: create scratch file: %w", err)
	}

	cmd := exec.CommandContext(ctx, r.bin(), argv...)
	cmd.Stdout = outFile
	cmd.Stderr = outFile

	runErr := cmd.Run()
	outFile.Close()

	raw, readErr := os.ReadFile(outPath)
	if readErr != nil {
		return PlanSummary{}, fmt.Errorf("planrenderer: read scratch file: %w", readErr)
	}

	summary := PlanSummary{Name: job.Name, URL: job.SourceURL, Dest: job.AbsoluteDest, RawOutput: string(raw)}

	itemized, stats, parseErr := parseOutput(raw)
	if parseErr != nil {
		summary.CountsUnknown = true
		return summary, runErr
	}

	for _, line := range itemized {
		switch changeKind(line) {
		case created:
			summary.WouldCreate++
		case updated:
			summary.WouldUpdate++
		case deleted:
			summary.WouldDelete++
		}
	}
	if len(itemized) > sampleLimit {
		summary.SampleChanges = itemized[:sampleLimit]
	} else {
		summary.SampleChanges = itemized
	}
	summary.TotalBytes = stats.TotalTransferredSize

	return summary, runErr
}

type change int

const (
	created change = iota
	updated
	deleted
	other
)

// changeKind interprets rsync's --itemize-changes prefix (e.g. ">f+++++++++",
// "*deleting", "cd+++++++++") into a coarse create/update/delete bucket.
func changeKind(line string) change {
	if strings.HasPrefix(line, "*deleting") {
		return deleted
	}
	if len(line) < 2 {
		return other
	}
	update := line[1]
	rest := line[2:]
	if strings.Contains(rest, "+") {
		return created
	}
	switch update {
	case 'f', 'd', 'L', 'D', 'S':
		return updated
	default:
		return other
	}
}

func parseOutput(raw []byte) ([]string, rsync.Stats, error) {
	var itemized []string
	sc := bufio.NewScanner(bytes.NewReader(raw))
	sc.Buffer(make([]byte, 64*1024), 1<<20)

	var statsLines bytes.Buffer
	for sc.Scan() {
		line := sc.Text()
		if isItemizeLine(line) {
			itemized = append(itemized, line)
			continue
		}
		statsLines.WriteString(line)
		statsLines.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return nil, rsync.Stats{}, err
	}

	stats, err := rsync.ParseStats(bufio.NewScanner(bytes.NewReader(statsLines.Bytes())))
	if err != nil {
		return nil, rsync.Stats{}, err
	}
	return itemized, stats, nil
}

// isItemizeLine recognizes rsync's --itemize-changes 11-char prefix
// format (e.g. ">f+++++++++", "*deleting  ", "cd+++++++++").
func isItemizeLine(line string) bool {
	if strings.HasPrefix(line, "*deleting") {
		return true
	}
	if len(line) < 11 {
		return false
	}
	switch line[0] {
	case '>', '<', 'c', 'h', '.', '*':
		return true
	default:
		return false
	}
}

func ensureTrailingSlash(p string) string {
	if strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}

// RenderHuman writes a colorized human-readable block to w, matching the
// informal style of the teacher's progress output (bold section labels,
// green for creates, yellow for updates, red for deletes).
func RenderHuman(w io.Writer, s PlanSummary) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)

	bold.Fprintf(w, "Plan for %s\n", s.Name)
	fmt.Fprintf(w, "  source: %s\n", s.URL)
	fmt.Fprintf(w, "  dest:   %s\n", s.Dest)
	if s.CountsUnknown {
		fmt.Fprintln(w, "  counts: unknown (could not parse rsync output)")
		return
	}
	green.Fprintf(w, "  would create: %d\n", s.WouldCreate)
	yellow.Fprintf(w, "  would update: %d\n", s.WouldUpdate)
	red.Fprintf(w, "  would delete: %d\n", s.WouldDelete)
	fmt.Fprintf(w, "  total bytes:  %d\n", s.TotalBytes)
	if len(s.SampleChanges) > 0 {
		fmt.Fprintln(w, "  sample changes:")
		for _, line := range s.SampleChanges {
			fmt.Fprintf(w, "    %s\n", line)
		}
	}
}

// RenderJSON writes s as a JSON object to w.
func RenderJSON(w io.Writer, s PlanSummary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
