// Package resolver implements ConfigResolver: it turns a parsed config,
// CLI overrides, and the environment into a concrete, validated list of
// ResolvedSync jobs (spec.md §4.3).
package resolver

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdbsync/pdbsync/internal/config"
	"github.com/pdbsync/pdbsync/internal/flagbag"
	"github.com/pdbsync/pdbsync/internal/preset"
)

// ResolvedSync is one fully-merged, validated sync job ready for
// RsyncInvoker.
type ResolvedSync struct {
	Name        string
	SourceURL   string
	AbsoluteDest string
	Flags       flagbag.Bag
	Description string
}

// Selection describes which jobs the CLI asked for.
type Selection struct {
	Name string // empty if unset
	All  bool
}

// CLIOverrides is the final precedence layer: CLI flags. A nil pointer
// field means "not passed on the command line".
type CLIOverrides struct {
	Dest  string
	Flags flagbag.Bag
}

// ErrKind classifies a resolution failure.
type ErrKind int

const (
	UnknownJob ErrKind = iota
	InvalidURL
	InvalidDest
	FlagValidation
)

func (k ErrKind) String() string {
	switch k {
	case UnknownJob:
		return "UnknownJob"
	case InvalidURL:
		return "InvalidURL"
	case InvalidDest:
		return "InvalidDest"
	case FlagValidation:
		return "FlagValidation"
	default:
		return "Unknown"
	}
}

// Error is a typed resolution failure naming the job it concerns.
type Error struct {
	Kind ErrKind
	Job  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resolver: %s: job %q: %v", e.Kind, e.Job, e.Err)
	}
	return fmt.Sprintf("resolver: %s: job %q", e.Kind, e.Job)
}

func (e *Error) Unwrap() error { return e.Err }

// Resolve is ResolveContext with context.Background(), for callers that
// don't need cancellation (mirror auto-selection is the only step in the
// chain that can block on network I/O).
func Resolve(cfg *config.Config, sel Selection, cli CLIOverrides) ([]ResolvedSync, error) {
	return ResolveContext(context.Background(), cfg, sel, cli)
}

// ResolveContext implements the six-layer precedence chain of spec.md
// §4.3 for every job named by sel, merging flags via flagbag.Merge and
// validating the result, plus the mirror_selection.auto_select pre-step
// (SPEC_FULL.md §C) that can substitute a job's url host for the fastest
// responding mirror. Jobs are returned in sorted name order when sel.All
// or no name is given, matching spec.md's reproducibility requirement.
func ResolveContext(ctx context.Context, cfg *config.Config, sel Selection, cli CLIOverrides) ([]ResolvedSync, error) {
	names, err := selectNames(cfg, sel)
	if err != nil {
		return nil, err
	}

	pdbDir := config.ResolvePDBDir(cli.Dest, cfg)

	out := make([]ResolvedSync, 0, len(names))
	for _, name := range names {
		job := cfg.Sync.Custom[name]

		merged, err := MergeJobFlags(cfg, job, cli.Flags)
		if err != nil {
			return nil, &Error{Kind: FlagValidation, Job: name, Err: err}
		}

		if err := flagbag.Validate(merged); err != nil {
			return nil, &Error{Kind: FlagValidation, Job: name, Err: err}
		}

		dest, err := ResolveDest(pdbDir, job.Dest)
		if err != nil {
			return nil, &Error{Kind: InvalidDest, Job: name, Err: err}
		}

		if err := ValidateURL(job.URL); err != nil {
			return nil, &Error{Kind: InvalidURL, Job: name, Err: err}
		}

		url := applyMirrorSelection(ctx, cfg.MirrorSelection, job.URL)

		out = append(out, ResolvedSync{
			Name:         name,
			SourceURL:    url,
			AbsoluteDest: dest,
			Flags:        merged,
			Description:  job.Description,
		})
	}
	return out, nil
}

func selectNames(cfg *config.Config, sel Selection) ([]string, error) {
	if sel.Name != "" {
		if _, ok := cfg.Sync.Custom[sel.Name]; !ok {
			return nil, &Error{Kind: UnknownJob, Job: sel.Name}
		}
		return []string{sel.Name}, nil
	}
	names := make([]string, 0, len(cfg.Sync.Custom))
	for n := range cfg.Sync.Custom {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// MergeJobFlags runs layers 1-5 of spec.md §4.3's precedence chain
// (built-in defaults, legacy rsync_* fields, sync.defaults, named
// preset, per-job options) plus an optional final cliOverride layer, and
// returns the merged bag without performing dest/URL validation. Used by
// Resolve for the full pipeline and by internal/validate to reuse the
// same merge logic offline.
func MergeJobFlags(cfg *config.Config, job config.CustomSync, cliOverride flagbag.Bag) (flagbag.Bag, error) {
	merged := flagbag.Bag{} // layer 1: built-in defaults
	merged = flagbag.Merge(merged, legacyBag(job))
	merged = flagbag.Merge(merged, defaultsBag(cfg))
	if job.Preset != "" {
		p, ok := preset.Get(job.Preset)
		if !ok {
			return flagbag.Bag{}, fmt.Errorf("unknown preset %q", job.Preset)
		}
		merged = flagbag.Merge(merged, p)
	}
	merged = flagbag.Merge(merged, optionsBag(job))
	merged = flagbag.Merge(merged, cliOverride)
	return merged, nil
}

func legacyBag(job config.CustomSync) flagbag.Bag {
	l := job.LegacyFields
	return flagbag.Bag{
		Delete: l.RsyncDelete, Compress: l.RsyncCompress, Checksum: l.RsyncChecksum,
		SizeOnly: l.RsyncSizeOnly, IgnoreTimes: l.RsyncIgnoreTimes, Partial: l.RsyncPartial,
		Backup: l.RsyncBackup, Verbose: l.RsyncVerbose, Quiet: l.RsyncQuiet,
		ItemizeChanges: l.RsyncItemizeChanges, BWLimit: l.RsyncBWLimit, Timeout: l.RsyncTimeout,
		Exclude: l.RsyncExclude,
	}
}

func defaultsBag(cfg *config.Config) flagbag.Bag {
	f := cfg.Sync.Defaults
	return fieldsToBag(f)
}

func optionsBag(job config.CustomSync) flagbag.Bag {
	return fieldsToBag(job.Options)
}

func fieldsToBag(f config.FlagFields) flagbag.Bag {
	return flagbag.Bag{
		Delete: f.Delete, Compress: f.Compress, Checksum: f.Checksum,
		SizeOnly: f.SizeOnly, IgnoreTimes: f.IgnoreTimes, ModifyWindow: f.ModifyWindow,
		Partial: f.Partial, PartialDir: f.PartialDir, Backup: f.Backup, BackupDir: f.BackupDir,
		Chmod: f.Chmod, MaxSize: f.MaxSize, MinSize: f.MinSize, Timeout: f.Timeout,
		ContTimeout: f.ContTimeout, BWLimit: f.BWLimit, Exclude: f.Exclude, Include: f.Include,
		ExcludeFrom: f.ExcludeFrom, IncludeFrom: f.IncludeFrom, Verbose: f.Verbose,
		Quiet: f.Quiet, ItemizeChanges: f.ItemizeChanges,
	}
}

// ResolveDest rejects absolute paths and ".." segments in dest, then
// joins it under pdbDir (spec.md §4.3 "Destination resolution"). Exported
// so internal/validate can reuse the same dest-escape check offline.
func ResolveDest(pdbDir, dest string) (string, error) {
	if dest == "" {
		return "", fmt.Errorf("dest is required")
	}
	if filepath.IsAbs(dest) {
		return "", fmt.Errorf("dest %q must be relative", dest)
	}
	clean := filepath.Clean(dest)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("dest %q must not escape pdb_dir", dest)
	}
	return filepath.Join(pdbDir, clean), nil
}

// ValidateURL enforces spec.md §4.3's "URL resolution" syntactic checks:
// rsync:// scheme or "::" daemon-module syntax, a module present, and no
// shell metacharacters that would need escaping if ever passed to a
// shell (defense in depth; pdbsync always execs argv directly, never a
// shell, but a malformed URL is still rejected early with a clear error).
// Exported so internal/validate's ConfigValidator can run the same check
// offline, without a full Resolve.
func ValidateURL(url string) error {
	if url == "" {
		return fmt.Errorf("url is required")
	}
	for _, bad := range []string{";", "`", "$(", "\n"} {
		if strings.Contains(url, bad) {
			return fmt.Errorf("url contains disallowed sequence %q", bad)
		}
	}
	switch {
	case strings.HasPrefix(url, "rsync://"):
		rest := strings.TrimPrefix(url, "rsync://")
		slash := strings.Index(rest, "/")
		if slash < 0 || slash == len(rest)-1 {
			return fmt.Errorf("url %q missing module", url)
		}
	case strings.Contains(url, "::"):
		idx := strings.Index(url, "::")
		if idx == len(url)-2 {
			return fmt.Errorf("url %q missing module", url)
		}
	default:
		return fmt.Errorf("url %q must start with rsync:// or contain ::", url)
	}
	return nil
}
