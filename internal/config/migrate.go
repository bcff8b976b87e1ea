package config

import (
	"bytes"
	"fmt"
	"os"
	"reflect"

	"github.com/BurntSushi/toml"
	"github.com/pdbsync/pdbsync/internal/flagbag"
	"github.com/pdbsync/pdbsync/internal/preset"
)

// MigrationResult reports what `config migrate` changed for one job.
type MigrationResult struct {
	Job          string
	MatchedPreset string // set if the legacy fields matched a preset exactly
	Migrated      bool   // always true: Migrate reports only jobs that had legacy fields
}

// legacyToBag converts a job's LegacyFields into a flagbag.Bag, leaving
// every field the legacy block didn't mention unset.
func legacyToBag(l LegacyFields) flagbag.Bag {
	return flagbag.Bag{
		Delete:         l.RsyncDelete,
		Compress:       l.RsyncCompress,
		Checksum:       l.RsyncChecksum,
		SizeOnly:       l.RsyncSizeOnly,
		IgnoreTimes:    l.RsyncIgnoreTimes,
		Partial:        l.RsyncPartial,
		Backup:         l.RsyncBackup,
		Verbose:        l.RsyncVerbose,
		Quiet:          l.RsyncQuiet,
		ItemizeChanges: l.RsyncItemizeChanges,
		BWLimit:        l.RsyncBWLimit,
		Timeout:        l.RsyncTimeout,
		Exclude:        l.RsyncExclude,
	}
}

func bagToFields(b flagbag.Bag) FlagFields {
	return FlagFields{
		Delete: b.Delete, Compress: b.Compress, Checksum: b.Checksum,
		SizeOnly: b.SizeOnly, IgnoreTimes: b.IgnoreTimes, ModifyWindow: b.ModifyWindow,
		Partial: b.Partial, PartialDir: b.PartialDir, Backup: b.Backup, BackupDir: b.BackupDir,
		Chmod: b.Chmod, MaxSize: b.MaxSize, MinSize: b.MinSize, Timeout: b.Timeout,
		ContTimeout: b.ContTimeout, BWLimit: b.BWLimit, Exclude: b.Exclude, Include: b.Include,
		ExcludeFrom: b.ExcludeFrom, IncludeFrom: b.IncludeFrom, Verbose: b.Verbose,
		Quiet: b.Quiet, ItemizeChanges: b.ItemizeChanges,
	}
}

func fieldsToBag(f FlagFields) flagbag.Bag {
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

// matchesPreset reports whether bag is field-for-field identical to one
// of the built-in presets: it sets exactly the fields presets set, with
// the same values. A bag that also sets any other flag matches no preset.
func matchesPreset(bag flagbag.Bag) (string, bool) {
	rest := bag
	rest.Delete, rest.Compress, rest.Checksum, rest.Partial = nil, nil, nil, nil
	rest.Backup, rest.Verbose, rest.Quiet = nil, nil, nil
	if len(rest.Exclude) == 0 && len(rest.Include) == 0 {
		rest.Exclude, rest.Include = nil, nil
	}
	if !reflect.DeepEqual(rest, flagbag.Bag{}) {
		return "", false
	}
	for _, d := range preset.List() {
		p := preset.MustGet(d.Name)
		if boolEq(p.Delete, bag.Delete) && boolEq(p.Compress, bag.Compress) &&
			boolEq(p.Checksum, bag.Checksum) && boolEq(p.Partial, bag.Partial) &&
			boolEq(p.Backup, bag.Backup) && boolEq(p.Verbose, bag.Verbose) &&
			boolEq(p.Quiet, bag.Quiet) {
			return d.Name, true
		}
	}
	return "", false
}

func boolEq(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Migrate converts every legacy rsync_* block in cfg into either a named
// preset (when the flags match one exactly) or a nested options table,
// per spec.md §9. It mutates cfg.File in place and returns one result per
// job that had legacy fields. Jobs without legacy fields are untouched
// and not reported, which is what makes a second run a no-op.
func Migrate(cfg *Config) []MigrationResult {
	var results []MigrationResult
	for name, job := range cfg.Sync.Custom {
		bag := legacyToBag(job.LegacyFields)
		if isZeroLegacy(job.LegacyFields) {
			continue
		}

		merged := flagbag.Merge(bag, fieldsToBag(job.Options))

		res := MigrationResult{Job: name, Migrated: true}
		if name, ok := matchesPreset(merged); ok {
			job.Preset = name
			job.Options = FlagFields{}
			res.MatchedPreset = name
		} else {
			job.Options = bagToFields(merged)
		}
		job.LegacyFields = LegacyFields{}
		cfg.Sync.Custom[name] = job
		results = append(results, res)
	}
	return results
}

func isZeroLegacy(l LegacyFields) bool {
	return l.RsyncDelete == nil && l.RsyncCompress == nil && l.RsyncChecksum == nil &&
		l.RsyncSizeOnly == nil && l.RsyncIgnoreTimes == nil && l.RsyncPartial == nil &&
		l.RsyncBackup == nil && l.RsyncVerbose == nil && l.RsyncQuiet == nil &&
		l.RsyncItemizeChanges == nil && l.RsyncBWLimit == nil && l.RsyncTimeout == nil &&
		len(l.RsyncExclude) == 0
}

// SaveWithBackup writes cfg to its Path via temp+rename, first copying the
// existing file to Path+".bak" if one exists. Used by `config migrate`
// (non-dry-run mode).
func (c *Config) SaveWithBackup() error {
	if data, err := os.ReadFile(c.Path); err == nil {
		if err := os.WriteFile(c.Path+".bak", data, 0o644); err != nil {
			return fmt.Errorf("config: write backup: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("config: read existing for backup: %w", err)
	}
	return c.Save()
}

// Render encodes the in-memory File as TOML text without touching disk,
// used by `config migrate --dry-run` to preview the result.
func (c *Config) Render() (string, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(c.File); err != nil {
		return "", err
	}
	return buf.String(), nil
}
