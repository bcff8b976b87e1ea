// Package historystore implements HistoryStore: append-only run-history
// snapshots consumed by `sync status`/`sync history` (spec.md §4.8).
package historystore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pdbsync/pdbsync/internal/rsync"
)

// DefaultRetention is the number of most-recent run records kept when a
// Store's Retention is left at zero.
const DefaultRetention = 200

// Run is one completed sync invocation, matching spec.md §6.5's
// "<ISO8601>-<id>.json" RunReport snapshot schema.
type Run struct {
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Command    string        `json:"command"`
	Results    []rsync.Result `json:"results"`
}

// ExitCode mirrors RunReport.ExitCode: 0 if every result succeeded.
func (r Run) ExitCode() int {
	for _, res := range r.Results {
		if res.Status != rsync.Success {
			return 1
		}
	}
	return 0
}

// Store persists Run snapshots under <history_dir>.
type Store struct {
	Dir       string
	Retention int // most-recent records to keep; 0 means DefaultRetention
}

// New returns a Store rooted at historyDir, creating it if needed.
func New(historyDir string) (*Store, error) {
	if err := os.MkdirAll(historyDir, 0o755); err != nil {
		return nil, fmt.Errorf("historystore: mkdir %s: %w", historyDir, err)
	}
	return &Store{Dir: historyDir}, nil
}

func (s *Store) retention() int {
	if s.Retention > 0 {
		return s.Retention
	}
	return DefaultRetention
}

// Append writes run as a new history file and prunes older files beyond
// the store's retention, matching spec.md §4.8: "the history store is
// written by exactly one writer per process (the main orchestrator after
// all jobs finish)".
func (s *Store) Append(run Run, id string) (string, error) {
	name := fmt.Sprintf("%s-%s.json", run.StartedAt.UTC().Format("20060102T150405Z"), id)
	path := filepath.Join(s.Dir, name)

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return "", fmt.Errorf("historystore: marshal run: %w", err)
	}
	tmp, err := os.CreateTemp(s.Dir, ".run-*.json")
	if err != nil {
		return "", fmt.Errorf("historystore: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("historystore: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("historystore: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return "", fmt.Errorf("historystore: rename into place: %w", err)
	}

	if err := s.prune(); err != nil {
		return path, err
	}
	return path, nil
}

// prune deletes the oldest history files beyond s.retention(), relying
// on the "<ISO8601>-<id>.json" naming scheme sorting lexicographically
// in chronological order.
func (s *Store) prune() error {
	names, err := s.fileNames()
	if err != nil {
		return err
	}
	if len(names) <= s.retention() {
		return nil
	}
	excess := names[:len(names)-s.retention()]
	for _, name := range excess {
		if err := os.Remove(filepath.Join(s.Dir, name)); err != nil {
			return fmt.Errorf("historystore: prune %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) fileNames() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("historystore: read dir %s: %w", s.Dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// List returns up to limit most recent runs, newest first. limit <= 0
// means no limit.
func (s *Store) List(limit int) ([]Run, error) {
	names, err := s.fileNames()
	if err != nil {
		return nil, err
	}
	// names is oldest-first; reverse to newest-first.
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}

	runs := make([]Run, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(s.Dir, name))
		if err != nil {
			return nil, fmt.Errorf("historystore: read %s: %w", name, err)
		}
		var run Run
		if err := json.Unmarshal(data, &run); err != nil {
			return nil, fmt.Errorf("historystore: unmarshal %s: %w", name, err)
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// Latest returns the most recent run, if any.
func (s *Store) Latest() (Run, bool, error) {
	runs, err := s.List(1)
	if err != nil {
		return Run{}, false, err
	}
	if len(runs) == 0 {
		return Run{}, false, nil
	}
	return runs[0], true, nil
}
