package syncop

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/pdbsync/pdbsync/internal/debug"
	"github.com/pdbsync/pdbsync/internal/historystore"
	"github.com/pdbsync/pdbsync/internal/lock"
	"github.com/pdbsync/pdbsync/internal/planrenderer"
	"github.com/pdbsync/pdbsync/internal/resolver"
	"github.com/pdbsync/pdbsync/internal/rsync"
	"github.com/pdbsync/pdbsync/internal/syncrunner"
	"github.com/pdbsync/pdbsync/internal/util/fs"
)

// Orchestrator keeps state across the steps of one `sync` invocation.
type Orchestrator struct {
	cfg Config

	out io.Writer
}

// Close releases external resources; safe to call multiple times. Kept
// for symmetry with the step-based lifecycle even though syncop holds
// no long-lived handles today.
func (o *Orchestrator) Close() {}

// Result is what Run hands back to the CLI layer: the full report (the
// zero value when Plan was requested) or, for a plan-only run, the
// rendered plans.
type Result struct {
	Plans  []planrenderer.PlanSummary
	Report syncrunner.RunReport
	Planned bool
}

// ExitCode mirrors spec.md §6.3's sync exit-code contract.
func (r Result) ExitCode() int {
	if r.Planned {
		return 0
	}
	return r.Report.ExitCode()
}

// Run executes the full sync pipeline: resolve jobs, either render
// plans and stop, or dispatch through SyncRunner and persist a history
// record.
func Run(ctx context.Context, cfg Config, out io.Writer) (Result, error) {
	o := &Orchestrator{cfg: cfg, out: out}
	defer o.Close()

	resolved, err := o.stepResolve(ctx)
	if err != nil {
		return Result{}, err
	}

	if cfg.Plan {
		plans, err := o.stepPlan(ctx, resolved)
		return Result{Plans: plans, Planned: true}, err
	}

	report, err := o.stepDispatch(ctx, resolved)
	if err != nil {
		return Result{}, err
	}

	if err := o.stepRecordHistory(report); err != nil {
		slog.Warn("sync: failed to write history record", "err", err)
	}

	return Result{Report: report}, nil
}

// stepResolve applies ConfigResolver's six-layer precedence chain to
// every job the CLI selected, including the mirror_selection.auto_select
// latency probe, which needs ctx to bound its dials.
func (o *Orchestrator) stepResolve(ctx context.Context) ([]resolver.ResolvedSync, error) {
	return resolver.ResolveContext(ctx, o.cfg.Cfg, o.cfg.Selection, o.cfg.CLI)
}

// stepPlan renders a dry-run PlanSummary for each resolved job without
// transferring anything, per spec.md §4.6.
func (o *Orchestrator) stepPlan(ctx context.Context, jobs []resolver.ResolvedSync) ([]planrenderer.PlanSummary, error) {
	r := &planrenderer.Renderer{Bin: o.cfg.RsyncBin}
	summaries := make([]planrenderer.PlanSummary, 0, len(jobs))
	for _, j := range jobs {
		summary, err := r.Plan(ctx, rsync.Job{Name: j.Name, SourceURL: j.SourceURL, AbsoluteDest: j.AbsoluteDest, Flags: j.Flags})
		if err != nil {
			return summaries, fmt.Errorf("syncop: plan job %q: %w", j.Name, err)
		}
		summaries = append(summaries, summary)
		if o.cfg.JSON {
			_ = planrenderer.RenderJSON(o.out, summary)
		} else {
			planrenderer.RenderHuman(o.out, summary)
		}
	}
	return summaries, nil
}

// stepDispatch runs every resolved job through SyncRunner, sequentially
// or with bounded parallelism per the configured ExecutionMode. Each
// job's destination is file-locked for the duration of the run so two
// pdbsync invocations can never write into the same tree at once.
func (o *Orchestrator) stepDispatch(ctx context.Context, resolved []resolver.ResolvedSync) (syncrunner.RunReport, error) {
	debug.StopIf("before-dispatch")

	jobs := make([]rsync.Job, 0, len(resolved))
	locks := make([]*lock.FileLock, 0, len(resolved))
	defer func() {
		for _, lk := range locks {
			_ = lk.Unlock()
		}
	}()

	for _, j := range resolved {
		if err := fs.MkdirP(j.AbsoluteDest); err != nil {
			return syncrunner.RunReport{}, fmt.Errorf("syncop: create destination %q: %w", j.AbsoluteDest, err)
		}
		lk := lock.New(j.AbsoluteDest)
		ok, err := lk.TryLock()
		if err != nil {
			return syncrunner.RunReport{}, fmt.Errorf("syncop: acquire lock for %q: %w", j.Name, err)
		}
		if !ok {
			return syncrunner.RunReport{}, fmt.Errorf("syncop: another pdbsync sync is already running against %s", j.AbsoluteDest)
		}
		locks = append(locks, lk)
		jobs = append(jobs, rsync.Job{Name: j.Name, SourceURL: j.SourceURL, AbsoluteDest: j.AbsoluteDest, Flags: j.Flags})
	}

	sink := rsync.NewLineSink(o.out)
	runner := &syncrunner.Runner{Invoker: &rsync.Invoker{Bin: o.cfg.RsyncBin}}
	report := runner.Run(ctx, jobs, o.cfg.Mode, o.cfg.retryPolicy(), sink, o.cfg.FailFast)
	return report, nil
}

// stepRecordHistory writes one HistoryStore snapshot for the run,
// pruning older records beyond retention (spec.md §4.8).
func (o *Orchestrator) stepRecordHistory(report syncrunner.RunReport) error {
	if o.cfg.HistoryDir == "" {
		return nil
	}
	store, err := historystore.New(o.cfg.HistoryDir)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	run := historystore.Run{
		StartedAt:  now.Add(-report.TotalDuration),
		FinishedAt: now,
		Command:    "pdbsync sync",
		Results:    report.Results,
	}
	id, err := randomID()
	if err != nil {
		return err
	}
	_, err = store.Append(run, id)
	return err
}
