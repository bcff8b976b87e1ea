package validate

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pdbsync/pdbsync/internal/config"
	"github.com/pdbsync/pdbsync/internal/process"
	"github.com/pdbsync/pdbsync/internal/util/disk"
)

// minFreeBytes is the free-space floor below which EnvDoctor warns
// about pdb_dir; the full PDB archive runs into the terabytes, so
// anything tighter than this is worth flagging before a long sync
// fills the disk mid-run.
const minFreeBytes = 5 << 30 // 5 GiB

// DoctorOptions configures an EnvDoctor pass.
type DoctorOptions struct {
	RsyncBin   string // defaults to "rsync"
	ConfigPath string
	PDBDir     string
}

// ExitCode implements spec.md §4.9's EnvDoctor exit-code rule: 0 if all
// pass, 2 if any warn (no errors), 1 if any error.
func (r Report) ExitCode() int {
	switch {
	case r.HasErrors():
		return 1
	case r.HasWarnings():
		return 2
	default:
		return 0
	}
}

// Doctor runs the EnvDoctor checks of spec.md §4.9: rsync on PATH and
// invocable, the config file readable, and pdb_dir writable.
func Doctor(ctx context.Context, opts DoctorOptions) Report {
	var report Report

	bin := opts.RsyncBin
	if bin == "" {
		bin = "rsync"
	}
	if path, err := lookPath(bin); err != nil {
		report.Issues = append(report.Issues, Issue{
			Severity: SeverityError, Section: "rsync",
			Message:    fmt.Sprintf("%s not found on PATH", bin),
			Suggestion: "install rsync or set PATH appropriately",
		})
	} else {
		res := process.RunLogged(ctx, path, "--version")
		if res.Err != nil || res.ExitCode != 0 {
			report.Issues = append(report.Issues, Issue{
				Severity: SeverityError, Section: "rsync",
				Message: fmt.Sprintf("%s --version failed: %v (exit %d)", path, res.Err, res.ExitCode),
			})
		}
	}

	for _, optionalBin := range []string{"gemmi", "aria2c"} {
		path, err := lookPath(optionalBin)
		if err != nil {
			report.Issues = append(report.Issues, Issue{
				Severity: SeverityWarn, Section: optionalBin,
				Message:    fmt.Sprintf("%s not found on PATH", optionalBin),
				Suggestion: fmt.Sprintf("install %s to enable its optional fallback, or ignore this if you don't need it", optionalBin),
			})
			continue
		}
		res := process.RunLogged(ctx, path, "--version")
		if res.Err != nil || res.ExitCode != 0 {
			report.Issues = append(report.Issues, Issue{
				Severity: SeverityWarn, Section: optionalBin,
				Message: fmt.Sprintf("%s --version failed: %v (exit %d)", path, res.Err, res.ExitCode),
			})
		}
	}

	if opts.ConfigPath != "" {
		if info, err := os.Stat(opts.ConfigPath); err != nil {
			report.Issues = append(report.Issues, Issue{
				Severity: SeverityWarn, Section: "config",
				Message:    fmt.Sprintf("config file %q: %v", opts.ConfigPath, err),
				Suggestion: "run with defaults or create the config file",
			})
		} else if info.IsDir() {
			report.Issues = append(report.Issues, Issue{
				Severity: SeverityError, Section: "config",
				Message: fmt.Sprintf("config path %q is a directory", opts.ConfigPath),
			})
		} else if f, err := os.Open(opts.ConfigPath); err != nil {
			report.Issues = append(report.Issues, Issue{
				Severity: SeverityError, Section: "config",
				Message: fmt.Sprintf("config file %q is not readable: %v", opts.ConfigPath, err),
			})
		} else {
			f.Close()
		}
	}

	pdbDir := opts.PDBDir
	if pdbDir == "" {
		pdbDir = config.ResolvePDBDir("", &config.Config{})
	}
	if err := checkWritable(pdbDir); err != nil {
		report.Issues = append(report.Issues, Issue{
			Severity: SeverityError, Section: "paths.pdb_dir",
			Message:    fmt.Sprintf("pdb_dir %q is not writable: %v", pdbDir, err),
			Suggestion: "create the directory or choose a writable pdb_dir",
		})
	} else if sp, err := disk.FreeBytes(pdbDir); err == nil && sp.Free < minFreeBytes {
		report.Issues = append(report.Issues, Issue{
			Severity: SeverityWarn, Section: "paths.pdb_dir",
			Message:    fmt.Sprintf("pdb_dir %q has only %.1f GB free", pdbDir, float64(sp.Free)/(1<<30)),
			Suggestion: "free up space or point pdb_dir at a larger filesystem before syncing",
		})
	}

	return report
}

// checkWritable confirms dir exists (creating it if missing) and is
// writable, by writing and deleting a temp file, per spec.md §4.9.
func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".pdbsync-doctor-*")
	if err != nil {
		return err
	}
	path := f.Name()
	f.Close()
	return os.Remove(path)
}

func lookPath(bin string) (string, error) {
	if filepath.IsAbs(bin) {
		if _, err := os.Stat(bin); err != nil {
			return "", err
		}
		return bin, nil
	}
	return exec.LookPath(bin)
}
