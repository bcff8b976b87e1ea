// Package validate implements ConfigValidator and EnvDoctor: offline
// checks of a parsed config and of the runtime environment (spec.md
// §4.9), surfaced by `config validate` and `env doctor`.
package validate

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pdbsync/pdbsync/internal/config"
	"github.com/pdbsync/pdbsync/internal/datatype"
	"github.com/pdbsync/pdbsync/internal/flagbag"
	"github.com/pdbsync/pdbsync/internal/preset"
	"github.com/pdbsync/pdbsync/internal/resolver"
)

// Severity classifies an Issue.
type Severity string

const (
	SeverityError Severity = "Error"
	SeverityWarn  Severity = "Warn"
)

// Issue is one finding from ConfigValidator or EnvDoctor.
type Issue struct {
	Severity   Severity `json:"severity"`
	Section    string   `json:"section"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// Report is the full result of a validation pass.
type Report struct {
	Issues []Issue `json:"issues"`
}

// HasErrors reports whether any issue is an Error.
func (r Report) HasErrors() bool {
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// HasWarnings reports whether any issue is a Warn.
func (r Report) HasWarnings() bool {
	for _, i := range r.Issues {
		if i.Severity == SeverityWarn {
			return true
		}
	}
	return false
}

// ValidateConfig checks every [sync.custom.<NAME>] job against spec.md
// §4.9's ConfigValidator rules. It never mutates cfg, and no caller
// applies its suggestions back to the config file.
func ValidateConfig(cfg *config.Config) Report {
	var report Report
	pdbDir := config.ResolvePDBDir("", cfg)

	names := make([]string, 0, len(cfg.Sync.Custom))
	for n := range cfg.Sync.Custom {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, name := range names {
		job := cfg.Sync.Custom[name]
		section := fmt.Sprintf("sync.custom.%s", name)

		if err := resolver.ValidateURL(job.URL); err != nil {
			report.Issues = append(report.Issues, Issue{
				Severity: SeverityError, Section: section,
				Message:    err.Error(),
				Suggestion: "use an rsync:// URL or host::module syntax",
			})
		}

		if _, err := resolver.ResolveDest(pdbDir, job.Dest); err != nil {
			report.Issues = append(report.Issues, Issue{
				Severity: SeverityError, Section: section,
				Message:    err.Error(),
				Suggestion: "use a relative dest with no .. segments",
			})
		}

		for _, alias := range job.DataTypes {
			if _, err := datatype.Resolve(alias); err != nil {
				report.Issues = append(report.Issues, Issue{
					Severity: SeverityError, Section: section,
					Message: err.Error(),
				})
			}
		}

		if job.Preset != "" {
			if _, ok := preset.Get(job.Preset); !ok {
				report.Issues = append(report.Issues, Issue{
					Severity: SeverityError, Section: section,
					Message:    fmt.Sprintf("unknown preset %q", job.Preset),
					Suggestion: "run `config presets` to see valid names",
				})
			}
		}

		if bag, err := resolver.MergeJobFlags(cfg, job, flagbag.Bag{}); err != nil {
			report.Issues = append(report.Issues, Issue{
				Severity: SeverityError, Section: section,
				Message: err.Error(),
			})
		} else if err := flagbag.Validate(bag); err != nil {
			report.Issues = append(report.Issues, Issue{
				Severity: SeverityError, Section: section,
				Message: err.Error(),
			})
		}

		for _, p := range []struct {
			label string
			path  *string
		}{
			{"exclude_from", job.Options.ExcludeFrom},
			{"include_from", job.Options.IncludeFrom},
			{"partial_dir", job.Options.PartialDir},
		} {
			if p.path == nil || *p.path == "" {
				continue
			}
			parent := filepath.Dir(*p.path)
			if _, err := os.Stat(parent); err != nil {
				report.Issues = append(report.Issues, Issue{
					Severity:   SeverityWarn,
					Section:    section,
					Message:    fmt.Sprintf("%s parent %q does not exist: %v", p.label, parent, err),
					Suggestion: "create the directory before running sync",
				})
			}
		}
	}

	return report
}
