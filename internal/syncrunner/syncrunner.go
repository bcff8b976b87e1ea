// Package syncrunner implements SyncRunner: dispatching a set of resolved
// sync jobs sequentially or with bounded parallelism, retrying retriable
// failures, and aggregating a RunReport (spec.md §4.5).
package syncrunner

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/semaphore"

	"github.com/pdbsync/pdbsync/internal/rsync"
)

// ExecutionMode selects Sequential (N=1) or Parallel(N) dispatch.
type ExecutionMode struct {
	Parallelism int // 1..100; Sequential is Parallelism==1
}

// Sequential is shorthand for ExecutionMode{Parallelism: 1}.
func Sequential() ExecutionMode { return ExecutionMode{Parallelism: 1} }

// Parallel is shorthand for ExecutionMode{Parallelism: n}.
func Parallel(n int) ExecutionMode { return ExecutionMode{Parallelism: n} }

// DelayKind selects between a fixed inter-attempt delay and exponential
// backoff.
type DelayKind int

const (
	Fixed DelayKind = iota
	ExponentialBackoff
)

// RetryPolicy governs how SyncRunner retries retriable failures.
type RetryPolicy struct {
	MaxAttempts int
	Delay       DelayKind
	FixedDelay  time.Duration // used when Delay == Fixed
	Base        time.Duration // used when Delay == ExponentialBackoff; defaults to 1s
	Cap         time.Duration // 0 means no cap
}

func (r RetryPolicy) maxAttempts() int {
	if r.MaxAttempts <= 0 {
		return 1
	}
	return r.MaxAttempts
}

// newBackOff builds a fresh exponential backoff generator for one job's
// retry sequence; callers call NextBackOff() once per retry.
func (r RetryPolicy) newBackOff() *backoff.ExponentialBackOff {
	base := r.Base
	if base <= 0 {
		base = time.Second
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = base
	if r.Cap > 0 {
		bo.MaxInterval = r.Cap
	}
	return bo
}

// RunReport aggregates every job's outcome.
type RunReport struct {
	Results       []rsync.Result
	TotalDuration time.Duration
}

// ExitCode implements spec.md §4.5's "overall process exit code": 0 if
// every result is Success, 1 otherwise.
func (r RunReport) ExitCode() int {
	for _, res := range r.Results {
		if res.Status != rsync.Success {
			return 1
		}
	}
	return 0
}

// AggregateStats folds every job's rsync.Stats into one, via Stats.Add,
// for the end-of-run summary block (spec.md §7's "Summary block").
func (r RunReport) AggregateStats() rsync.Stats {
	var total rsync.Stats
	for _, res := range r.Results {
		total = total.Add(res.Stats)
	}
	return total
}

// Counts tallies Results by outcome, for the "Total: X | Success: S |
// Failed: F" line of spec.md §7's summary block.
func (r RunReport) Counts() (total, success, failed int) {
	total = len(r.Results)
	for _, res := range r.Results {
		if res.Status == rsync.Success {
			success++
		} else {
			failed++
		}
	}
	return total, success, failed
}

// Runner dispatches jobs through an Invoker.
type Runner struct {
	Invoker *rsync.Invoker
}

// Run executes jobs under mode, retrying per retry, writing all output
// lines to sink, and honoring failFast (cancel remaining jobs on first
// non-Success result). It blocks until every job has finished, been
// retried out, or been cancelled.
func (run *Runner) Run(ctx context.Context, jobs []rsync.Job, mode ExecutionMode, retry RetryPolicy, sink rsync.OutputSink, failFast bool) RunReport {
	start := time.Now()

	n := mode.Parallelism
	if n <= 0 {
		n = 1
	}
	if n > 100 {
		n = 100
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := semaphore.NewWeighted(int64(n))
	results := make([]rsync.Result, len(jobs))
	var wg sync.WaitGroup
	var failOnce sync.Once

	for i, job := range jobs {
		i, job := i, job
		if err := sem.Acquire(runCtx, 1); err != nil {
			// context already cancelled (fail-fast or caller cancellation);
			// record the remaining jobs as not started.
			results[i] = rsync.Result{Job: job.Name, Status: rsync.FailureFatal, Message: "not started: run cancelled"}
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			res := run.runWithRetry(runCtx, job, sink, retry)
			results[i] = res

			if failFast && res.Status != rsync.Success {
				failOnce.Do(cancel)
			}
		}()
	}
	wg.Wait()

	return RunReport{Results: results, TotalDuration: time.Since(start)}
}

func (run *Runner) runWithRetry(ctx context.Context, job rsync.Job, sink rsync.OutputSink, retry RetryPolicy) rsync.Result {
	var last rsync.Result
	max := retry.maxAttempts()
	bo := retry.newBackOff()
	for attempt := 1; attempt <= max; attempt++ {
		last = run.Invoker.Run(ctx, job, sink)
		last.Attempts = attempt
		if last.Status == rsync.Success || last.Status == rsync.FailureFatal || last.Cancelled {
			return last
		}
		if attempt == max {
			break
		}
		d := retry.FixedDelay
		if retry.Delay == ExponentialBackoff {
			d = bo.NextBackOff()
		}
		sink.WriteLine(fmt.Sprintf("[%s] retrying in %s (attempt %d/%d)", job.Name, d, attempt+1, max))
		select {
		case <-ctx.Done():
			last.Cancelled = true
			return last
		case <-time.After(d):
		}
	}
	return last
}

// SortedJobNames is a small helper for callers building deterministic
// output ordering in reports; not required for Run itself.
func SortedJobNames(jobs []rsync.Job) []string {
	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.Name)
	}
	sort.Strings(names)
	return names
}
