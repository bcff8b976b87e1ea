// Package cli wires cobra's command tree onto the sync orchestration
// subsystem: `sync`, `config validate|migrate|presets`, `env doctor`,
// `sync status|history`, and `jobs status|log|cancel|clean` (spec.md
// §6.3).
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pdbsync/pdbsync/internal/config"
	"github.com/pdbsync/pdbsync/internal/log"
)

// globalFlags holds the persistent flags shared by every subcommand.
type globalFlags struct {
	ConfigPath string
	StateDir   string
	HistoryDir string
	RsyncBin   string
	Debug      bool
	Verbose    bool
	JSON       bool
}

var global = &globalFlags{}

// RootCmd is the entry point invoked from cmd/pdbsync.
var RootCmd = &cobra.Command{
	Use:           "pdbsync",
	Short:         "Acquire and maintain a local mirror of the Protein Data Bank archive",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.Setup(global.Debug, global.Verbose)
	},
}

// Execute parses flags and runs the selected subcommand.
func Execute() error { return RootCmd.Execute() }

func init() {
	f := RootCmd.PersistentFlags()
	f.StringVar(&global.ConfigPath, "config", "", "path to config.toml (default: $PDB_SYNC_CONFIG or XDG config dir)")
	f.StringVar(&global.StateDir, "state-dir", "", "directory for job/history state (default: XDG state dir)")
	f.StringVar(&global.RsyncBin, "rsync-bin", "", "path to the rsync binary (default: look up \"rsync\" on PATH)")
	f.BoolVar(&global.Debug, "debug", false, "enable debug logging")
	f.BoolVar(&global.Verbose, "verbose", false, "enable verbose logging")
	f.BoolVar(&global.JSON, "json", false, "emit machine-readable JSON output where supported")

	RootCmd.AddCommand(newSyncCmd())
	RootCmd.AddCommand(newConfigCmd())
	RootCmd.AddCommand(newEnvCmd())
	RootCmd.AddCommand(newJobsCmd())
}

// loadConfig resolves and parses config.toml, returning a zero Config
// (not an error) when the file does not exist, per internal/config.Load's
// contract.
func loadConfig() (*config.Config, error) {
	path := config.ResolvePath(global.ConfigPath)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	slog.Debug("loaded config", "path", path)
	return cfg, nil
}

func stateDir() string {
	if global.StateDir != "" {
		return global.StateDir
	}
	return config.DefaultStateDir()
}
