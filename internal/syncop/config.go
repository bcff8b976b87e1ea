// Package syncop implements the top-level orchestration behind the
// `sync` command: resolve jobs, optionally render a plan and return, or
// dispatch through SyncRunner, record history, and print a summary.
package syncop

import (
	"github.com/pdbsync/pdbsync/internal/config"
	"github.com/pdbsync/pdbsync/internal/resolver"
	"github.com/pdbsync/pdbsync/internal/syncrunner"
)

// Config collects everything Run needs, mirroring a parsed CLI
// invocation plus the loaded config.
type Config struct {
	Cfg *config.Config

	Selection resolver.Selection
	CLI       resolver.CLIOverrides

	Plan    bool // render a PlanSummary per job and stop, no transfer
	JSON    bool // emit machine-readable output instead of human text

	Mode     syncrunner.ExecutionMode
	Retry    syncrunner.RetryPolicy
	FailFast bool

	StateDir   string
	HistoryDir string

	RsyncBin string
}

func (c Config) retryPolicy() syncrunner.RetryPolicy {
	if c.Retry.MaxAttempts == 0 {
		return syncrunner.RetryPolicy{MaxAttempts: 1}
	}
	return c.Retry
}
