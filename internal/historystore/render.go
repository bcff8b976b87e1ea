package historystore

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/pdbsync/pdbsync/internal/rsync"
)

// RenderJSON writes runs as a JSON array, the shape `sync history
// --json` / `sync status --json` emit.
func RenderJSON(w io.Writer, runs []Run) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(runs)
}

// RenderTable writes a human-readable table: one row per run, newest
// first, with a per-job breakdown of status/attempts.
func RenderTable(w io.Writer, runs []Run) {
	bold := color.New(color.Bold)
	ok := color.New(color.FgGreen)
	warn := color.New(color.FgYellow)
	bad := color.New(color.FgRed)

	if len(runs) == 0 {
		fmt.Fprintln(w, "no sync history recorded")
		return
	}

	for _, run := range runs {
		bold.Fprintf(w, "%s  (started %s, took %s)\n",
			run.Command, run.StartedAt.Format(time.RFC3339), run.FinishedAt.Sub(run.StartedAt))
		for _, res := range run.Results {
			switch res.Status {
			case rsync.Success:
				ok.Fprintf(w, "  %-20s success", res.Job)
			case rsync.FailureRetriable:
				warn.Fprintf(w, "  %-20s retriable failure (exit %d)", res.Job, res.ExitCode)
			default:
				bad.Fprintf(w, "  %-20s failed (exit %d)", res.Job, res.ExitCode)
			}
			fmt.Fprintf(w, "  attempts=%d duration=%s\n", res.Attempts, res.Duration)
		}
	}
}
