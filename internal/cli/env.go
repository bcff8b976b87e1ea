package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdbsync/pdbsync/internal/config"
	"github.com/pdbsync/pdbsync/internal/validate"
)

func newEnvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Inspect the runtime environment pdbsync depends on",
	}
	cmd.AddCommand(newEnvDoctorCmd())
	return cmd
}

func newEnvDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that rsync is installed and paths are usable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			opts := validate.DoctorOptions{
				RsyncBin:   global.RsyncBin,
				ConfigPath: config.ResolvePath(global.ConfigPath),
				PDBDir:     config.ResolvePDBDir("", cfg),
			}
			report := validate.Doctor(context.Background(), opts)

			if global.JSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				renderIssues(cmd, report.Issues)
				if len(report.Issues) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "environment OK")
				}
			}

			if code := report.ExitCode(); code != 0 {
				return errExitCode(code)
			}
			return nil
		},
	}
}
