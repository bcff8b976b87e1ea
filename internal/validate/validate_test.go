package validate_test

import (
	"testing"

	"github.com/pdbsync/pdbsync/internal/config"
	"github.com/pdbsync/pdbsync/internal/validate"
)

func baseCfg(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		File: config.File{
			Paths: config.Paths{PDBDir: t.TempDir()},
			Sync: config.Sync{
				Custom: map[string]config.CustomSync{
					"weekly": {
						URL:  "rsync.rcsb.org::ftp_data",
						Dest: "structures",
					},
				},
			},
		},
	}
}

func TestValidateConfigAcceptsCleanJob(t *testing.T) {
	cfg := baseCfg(t)
	report := validate.ValidateConfig(cfg)
	if report.HasErrors() {
		t.Fatalf("expected no errors, got %+v", report.Issues)
	}
}

func TestValidateConfigRejectsBadURL(t *testing.T) {
	cfg := baseCfg(t)
	job := cfg.Sync.Custom["weekly"]
	job.URL = "not-a-url"
	cfg.Sync.Custom["weekly"] = job

	report := validate.ValidateConfig(cfg)
	if !report.HasErrors() {
		t.Fatal("expected an error for malformed url")
	}
}

func TestValidateConfigRejectsEscapingDest(t *testing.T) {
	cfg := baseCfg(t)
	job := cfg.Sync.Custom["weekly"]
	job.Dest = "../escape"
	cfg.Sync.Custom["weekly"] = job

	report := validate.ValidateConfig(cfg)
	if !report.HasErrors() {
		t.Fatal("expected an error for dest escaping pdb_dir")
	}
}

func TestValidateConfigRejectsUnknownDataType(t *testing.T) {
	cfg := baseCfg(t)
	job := cfg.Sync.Custom["weekly"]
	job.DataTypes = []string{"not-a-real-type"}
	cfg.Sync.Custom["weekly"] = job

	report := validate.ValidateConfig(cfg)
	if !report.HasErrors() {
		t.Fatal("expected an error for unresolvable data type alias")
	}
}

func TestValidateConfigRejectsUnknownPreset(t *testing.T) {
	cfg := baseCfg(t)
	job := cfg.Sync.Custom["weekly"]
	job.Preset = "nonexistent"
	cfg.Sync.Custom["weekly"] = job

	report := validate.ValidateConfig(cfg)
	if !report.HasErrors() {
		t.Fatal("expected an error for unknown preset name")
	}
}

func TestValidateConfigWarnsOnMissingPartialDirParent(t *testing.T) {
	cfg := baseCfg(t)
	job := cfg.Sync.Custom["weekly"]
	missing := "/definitely/not/a/real/path/partial"
	job.Options.PartialDir = &missing
	cfg.Sync.Custom["weekly"] = job

	report := validate.ValidateConfig(cfg)
	if !report.HasWarnings() {
		t.Fatal("expected a warning for a partial_dir parent that does not exist")
	}
}
