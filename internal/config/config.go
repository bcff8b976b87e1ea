// Package config loads and represents pdbsync's TOML configuration file
// (spec.md §6.1), including the legacy rsync_* per-job fields and the
// env-var overrides layered on top of it.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
)

// FlagFields mirrors flagbag.Bag's shape using TOML-tagged pointer fields,
// so it can appear nested as [sync.custom.<NAME>.options]/[sync.defaults].
// The inline legacy rsync_* keys are held by LegacyFields instead.
type FlagFields struct {
	Delete         *bool    `toml:"delete"`
	Compress       *bool    `toml:"compress"`
	Checksum       *bool    `toml:"checksum"`
	SizeOnly       *bool    `toml:"size_only"`
	IgnoreTimes    *bool    `toml:"ignore_times"`
	ModifyWindow   *int     `toml:"modify_window"`
	Partial        *bool    `toml:"partial"`
	PartialDir     *string  `toml:"partial_dir"`
	Backup         *bool    `toml:"backup"`
	BackupDir      *string  `toml:"backup_dir"`
	Chmod          *string  `toml:"chmod"`
	MaxSize        *string  `toml:"max_size"`
	MinSize        *string  `toml:"min_size"`
	Timeout        *int     `toml:"timeout"`
	ContTimeout    *int     `toml:"contimeout"`
	BWLimit        *int     `toml:"bwlimit"`
	Exclude        []string `toml:"exclude"`
	Include        []string `toml:"include"`
	ExcludeFrom    *string  `toml:"exclude_from"`
	IncludeFrom    *string  `toml:"include_from"`
	Verbose        *bool    `toml:"verbose"`
	Quiet          *bool    `toml:"quiet"`
	ItemizeChanges *bool    `toml:"itemize_changes"`
}

// LegacyFields holds the backward-compatible rsync_* top-level shortcuts
// on a [sync.custom.<NAME>] block (spec.md §6.1, §4.3 step 2).
type LegacyFields struct {
	RsyncDelete         *bool    `toml:"rsync_delete"`
	RsyncCompress       *bool    `toml:"rsync_compress"`
	RsyncChecksum       *bool    `toml:"rsync_checksum"`
	RsyncSizeOnly       *bool    `toml:"rsync_size_only"`
	RsyncIgnoreTimes    *bool    `toml:"rsync_ignore_times"`
	RsyncPartial        *bool    `toml:"rsync_partial"`
	RsyncBackup         *bool    `toml:"rsync_backup"`
	RsyncVerbose        *bool    `toml:"rsync_verbose"`
	RsyncQuiet          *bool    `toml:"rsync_quiet"`
	RsyncItemizeChanges *bool    `toml:"rsync_itemize_changes"`
	RsyncBWLimit        *int     `toml:"rsync_bwlimit"`
	RsyncTimeout        *int     `toml:"rsync_timeout"`
	RsyncExclude        []string `toml:"rsync_exclude"`
}

// CustomSync is one [sync.custom.<NAME>] table.
type CustomSync struct {
	URL         string     `toml:"url"`
	Dest        string     `toml:"dest"`
	Description string     `toml:"description"`
	Preset      string     `toml:"preset"`
	DataTypes   []string   `toml:"data_types"`
	LegacyFields
	Options FlagFields `toml:"options"`
}

// MirrorSelection is the [mirror_selection] table.
type MirrorSelection struct {
	AutoSelect      bool   `toml:"auto_select"`
	PreferredRegion string `toml:"preferred_region"`
	LatencyCacheTTL int    `toml:"latency_cache_ttl"`
}

// Paths is the [paths] table.
type Paths struct {
	PDBDir       string            `toml:"pdb_dir"`
	DataTypeDirs map[string]string `toml:"data_type_dirs"`
}

// Sync is the [sync] table.
type Sync struct {
	Mirror   string                `toml:"mirror"`
	Defaults FlagFields            `toml:"defaults"`
	Custom   map[string]CustomSync `toml:"custom"`
}

// File is the root shape of config.toml, matching spec.md §6.1.
type File struct {
	Paths           Paths           `toml:"paths"`
	Sync            Sync            `toml:"sync"`
	MirrorSelection MirrorSelection `toml:"mirror_selection"`
}

// Config wraps the parsed File with the path it was loaded from, so
// `config migrate` can write back to the same location.
type Config struct {
	File
	Path string
}

// DefaultDir returns the XDG-conformant config directory for pdbsync,
// honoring $XDG_CONFIG_HOME and falling back to the platform default
// (spec.md §6.1).
func DefaultDir() string {
	return filepath.Join(xdg.ConfigHome, "pdb-sync")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.toml")
}

// DefaultStateDir returns the XDG-conformant state directory under which
// JobStore and HistoryStore live (spec.md §6.5's <state_dir>).
func DefaultStateDir() string {
	return filepath.Join(xdg.StateHome, "pdb-sync")
}

// DefaultHistoryDir returns <state_dir>/history.
func DefaultHistoryDir(stateDir string) string {
	return filepath.Join(stateDir, "history")
}

// ResolvePath applies the PDB_SYNC_CONFIG env override over DefaultPath.
func ResolvePath(envOverride string) string {
	if envOverride != "" {
		return envOverride
	}
	if v := os.Getenv("PDB_SYNC_CONFIG"); v != "" {
		return v
	}
	return DefaultPath()
}

// ParseError wraps a TOML syntax or schema error with the offending
// path, satisfying the ConfigParse failure mode of spec.md §7.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("config: parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Load reads and decodes the TOML file at path. A missing file is not an
// error: it returns a zero-value Config so that callers fall through to
// built-in defaults, matching rsync-sync's "config is optional" posture.
func Load(path string) (*Config, error) {
	cfg := &Config{Path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, &ParseError{Path: path, Err: err}
	}
	if _, err := toml.Decode(string(data), &cfg.File); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return cfg, nil
}

// Save atomically writes cfg back to its Path (temp file + rename), used
// by `config migrate`.
func (c *Config) Save() error {
	dir := filepath.Dir(c.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config: mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".config-*.toml")
	if err != nil {
		return fmt.Errorf("config: create temp: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	enc := toml.NewEncoder(tmp)
	if err := enc.Encode(c.File); err != nil {
		tmp.Close()
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("config: close temp: %w", err)
	}
	if err := os.Rename(tmpPath, c.Path); err != nil {
		return fmt.Errorf("config: rename into place: %w", err)
	}
	return nil
}

// ResolvePDBDir applies the precedence from spec.md §4.3: CLI --dest >
// env PDB_DIR > config.paths.pdb_dir > platform default.
func ResolvePDBDir(cliDest string, cfg *Config) string {
	if cliDest != "" {
		return cliDest
	}
	if v := os.Getenv("PDB_DIR"); v != "" {
		return v
	}
	if cfg != nil && cfg.Paths.PDBDir != "" {
		return cfg.Paths.PDBDir
	}
	return filepath.Join(xdg.DataHome, "pdb-sync", "data")
}

// ResolveMirror applies env PDB_SYNC_MIRROR over config.sync.mirror.
func ResolveMirror(cfg *Config) string {
	if v := os.Getenv("PDB_SYNC_MIRROR"); v != "" {
		return v
	}
	if cfg != nil {
		return cfg.Sync.Mirror
	}
	return ""
}
