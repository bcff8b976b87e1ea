package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pdbsync/pdbsync/internal/config"
	"github.com/pdbsync/pdbsync/internal/flagbag"
)

func TestLoadMissingFileReturnsZeroValue(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Sync.Mirror != "" {
		t.Fatalf("expected zero-value config, got %+v", cfg)
	}
}

func TestLoadParsesJobs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := `
[paths]
pdb_dir = "/data/pdb"

[sync]
mirror = "rcsb"

[sync.custom.weekly]
url = "rsync.rcsb.org::ftp_data/structures/divided/mmCIF"
dest = "mmcif"
preset = "safe"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	job, ok := cfg.Sync.Custom["weekly"]
	if !ok {
		t.Fatal("expected job \"weekly\" to be present")
	}
	if job.Preset != "safe" {
		t.Fatalf("got preset %q, want safe", job.Preset)
	}
}

func TestLoadRejectsBadSyntax(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("not = [valid toml"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := config.Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestResolvePDBDirPrecedence(t *testing.T) {
	t.Setenv("PDB_DIR", "/from/env")
	cfg := &config.Config{File: config.File{Paths: config.Paths{PDBDir: "/from/config"}}}

	if got := config.ResolvePDBDir("/from/cli", cfg); got != "/from/cli" {
		t.Fatalf("CLI should win, got %q", got)
	}
	if got := config.ResolvePDBDir("", cfg); got != "/from/env" {
		t.Fatalf("env should win over config, got %q", got)
	}

	t.Setenv("PDB_DIR", "")
	if got := config.ResolvePDBDir("", cfg); got != "/from/config" {
		t.Fatalf("config should win over platform default, got %q", got)
	}
}

func TestMigrateConvertsLegacyToPresetWhenExactMatch(t *testing.T) {
	cfg := &config.Config{File: config.File{Sync: config.Sync{Custom: map[string]config.CustomSync{
		"weekly": {
			URL: "rsync.rcsb.org::mmCIF", Dest: "mmcif",
			LegacyFields: config.LegacyFields{
				RsyncDelete: flagbag.WithBool(false), RsyncCompress: flagbag.WithBool(true),
				RsyncChecksum: flagbag.WithBool(true), RsyncPartial: flagbag.WithBool(true),
				RsyncBackup: flagbag.WithBool(false), RsyncVerbose: flagbag.WithBool(true),
				RsyncQuiet: flagbag.WithBool(false),
			},
		},
	}}}}

	results := config.Migrate(cfg)
	if len(results) != 1 || results[0].MatchedPreset != "safe" {
		t.Fatalf("expected job to migrate to preset safe, got %+v", results)
	}
	job := cfg.Sync.Custom["weekly"]
	if job.Preset != "safe" {
		t.Fatalf("expected job.Preset=safe, got %q", job.Preset)
	}
	if job.RsyncDelete != nil {
		t.Fatal("expected legacy fields cleared after migration")
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	cfg := &config.Config{File: config.File{Sync: config.Sync{Custom: map[string]config.CustomSync{
		"weekly": {
			URL: "rsync.rcsb.org::mmCIF", Dest: "mmcif",
			LegacyFields: config.LegacyFields{RsyncDelete: flagbag.WithBool(true)},
		},
	}}}}

	first := config.Migrate(cfg)
	second := config.Migrate(cfg)
	if len(first) != 1 {
		t.Fatalf("expected first migrate to report 1 job, got %d", len(first))
	}
	if len(second) != 0 {
		t.Fatalf("expected second migrate to be a no-op, got %+v", second)
	}
}

func TestMigrateNonMatchingFallsBackToOptions(t *testing.T) {
	cfg := &config.Config{File: config.File{Sync: config.Sync{Custom: map[string]config.CustomSync{
		"odd": {
			URL: "rsync.rcsb.org::mmCIF", Dest: "mmcif",
			LegacyFields: config.LegacyFields{
				RsyncDelete: flagbag.WithBool(true), RsyncBWLimit: flagbag.WithInt(500),
			},
		},
	}}}}
	results := config.Migrate(cfg)
	if len(results) != 1 || results[0].MatchedPreset != "" {
		t.Fatalf("expected no preset match, got %+v", results)
	}
	job := cfg.Sync.Custom["odd"]
	if job.Options.Delete == nil || !*job.Options.Delete {
		t.Fatal("expected options.delete=true to survive migration")
	}
	if job.Options.BWLimit == nil || *job.Options.BWLimit != 500 {
		t.Fatal("expected options.bwlimit=500 to survive migration")
	}
}
