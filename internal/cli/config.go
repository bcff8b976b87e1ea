package cli

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pdbsync/pdbsync/internal/config"
	"github.com/pdbsync/pdbsync/internal/preset"
	"github.com/pdbsync/pdbsync/internal/validate"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or migrate pdbsync's configuration file",
	}
	cmd.AddCommand(newConfigValidateCmd(), newConfigMigrateCmd(), newConfigPresetsCmd())
	return cmd
}

func newConfigValidateCmd() *cobra.Command {
	var format string
	var fix bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check config.toml for syntax and semantic errors",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			report := validate.ValidateConfig(cfg)

			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				renderIssues(cmd, report.Issues)
			}

			if fix {
				fmt.Fprintln(cmd.OutOrStdout(), "note: --fix writes no changes; run `config migrate` to rewrite legacy rsync_* fields")
			}

			if report.HasErrors() {
				return errExitCode(1)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "output format: text|json")
	cmd.Flags().BoolVar(&fix, "fix", false, "print a pointer to `config migrate`; no changes are applied or written")
	return cmd
}

func newConfigMigrateCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Collapse legacy rsync_* fields into presets or nested options",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			results := config.Migrate(cfg)
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no legacy fields found; nothing to migrate")
				return nil
			}

			for _, r := range results {
				if r.MatchedPreset != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: migrated to preset %q\n", r.Job, r.MatchedPreset)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: migrated to nested options table\n", r.Job)
				}
			}

			if dryRun {
				rendered, err := cfg.Render()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "--- resulting config.toml (not written, --dry-run) ---")
				fmt.Fprintln(cmd.OutOrStdout(), rendered)
				return nil
			}

			return cfg.SaveWithBackup()
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the migrated config without writing it")
	return cmd
}

func newConfigPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the built-in rsync flag presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, d := range preset.List() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-14s %s\n", d.Name, d.Summary)
			}
			return nil
		},
	}
}

func renderIssues(cmd *cobra.Command, issues []validate.Issue) {
	if len(issues) == 0 {
		color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "config OK: no issues found")
		return
	}
	for _, iss := range issues {
		c := color.New(color.FgYellow)
		if iss.Severity == validate.SeverityError {
			c = color.New(color.FgRed)
		}
		c.Fprintf(cmd.OutOrStdout(), "[%s] %s: %s\n", iss.Severity, iss.Section, iss.Message)
		if iss.Suggestion != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "    suggestion: %s\n", iss.Suggestion)
		}
	}
}
