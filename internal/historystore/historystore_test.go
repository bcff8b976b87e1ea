package historystore_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/pdbsync/pdbsync/internal/historystore"
	"github.com/pdbsync/pdbsync/internal/rsync"
)

func sampleRun(start time.Time) historystore.Run {
	return historystore.Run{
		StartedAt:  start,
		FinishedAt: start.Add(5 * time.Minute),
		Command:    "pdbsync sync --all",
		Results: []rsync.Result{
			{Job: "weekly", Status: rsync.Success, Attempts: 1},
		},
	}
}

func TestAppendAndList(t *testing.T) {
	store, err := historystore.New(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := store.Append(sampleRun(base), "aaaaaaaa"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Append(sampleRun(base.Add(time.Hour)), "bbbbbbbb"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	runs, err := store.List(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	// newest first
	if !runs[0].StartedAt.After(runs[1].StartedAt) {
		t.Fatalf("expected newest-first ordering, got %+v", runs)
	}
}

func TestAppendPrunesBeyondRetention(t *testing.T) {
	store, err := historystore.New(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	store.Retention = 2
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		id := string(rune('a' + i))
		id = strings.Repeat(id, 8)
		if _, err := store.Append(sampleRun(base.Add(time.Duration(i)*time.Hour)), id); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	runs, err := store.List(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected retention to prune down to 2 runs, got %d", len(runs))
	}
	// the two survivors should be the most recent ones (hour offsets 3, 4)
	if runs[0].StartedAt.Before(runs[1].StartedAt) {
		t.Fatalf("expected newest-first ordering after prune, got %+v", runs)
	}
}

func TestListRespectsLimit(t *testing.T) {
	store, _ := historystore.New(t.TempDir())
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		id := strings.Repeat(string(rune('a'+i)), 8)
		if _, err := store.Append(sampleRun(base.Add(time.Duration(i)*time.Hour)), id); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	runs, err := store.List(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected limit=1 to return 1 run, got %d", len(runs))
	}
}

func TestLatestReturnsFalseWhenEmpty(t *testing.T) {
	store, _ := historystore.New(t.TempDir())
	_, ok, err := store.Latest()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for empty store")
	}
}

func TestRunExitCode(t *testing.T) {
	run := sampleRun(time.Now().UTC())
	if run.ExitCode() != 0 {
		t.Fatalf("expected exit code 0 for all-success run")
	}
	run.Results = append(run.Results, rsync.Result{Job: "other", Status: rsync.FailureFatal})
	if run.ExitCode() != 1 {
		t.Fatalf("expected exit code 1 once a job fails")
	}
}

func TestRenderTableIncludesJobNames(t *testing.T) {
	var buf bytes.Buffer
	historystore.RenderTable(&buf, []historystore.Run{sampleRun(time.Now().UTC())})
	if !strings.Contains(buf.String(), "weekly") {
		t.Fatalf("expected job name in rendered table, got %q", buf.String())
	}
}

func TestRenderJSONProducesArray(t *testing.T) {
	var buf bytes.Buffer
	if err := historystore.RenderJSON(&buf, []historystore.Run{sampleRun(time.Now().UTC())}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "\"weekly\"") {
		t.Fatalf("expected job name in JSON output, got %q", buf.String())
	}
}
