package cli

import (
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdbsync/pdbsync/internal/config"
	"github.com/pdbsync/pdbsync/internal/flagbag"
	"github.com/pdbsync/pdbsync/internal/historystore"
	"github.com/pdbsync/pdbsync/internal/jobstore"
	"github.com/pdbsync/pdbsync/internal/resolver"
	"github.com/pdbsync/pdbsync/internal/rsync"
	"github.com/pdbsync/pdbsync/internal/syncop"
	"github.com/pdbsync/pdbsync/internal/syncrunner"
	"github.com/pdbsync/pdbsync/internal/util/signalctx"
)

// syncFlags mirrors the `sync` subcommand's flag surface (spec.md §6.3).
// Every rsync mode flag is registered as a --name/--no-name pair; toBag
// only applies a field when cobra reports it was actually passed, so
// "neither passed" correctly stays unset in the merged flagbag.Bag
// (spec.md §4.3's "CLI wins only when set" rule).
type syncFlags struct {
	all        bool
	dest       string
	list       bool
	plan       bool
	dryRun     bool
	failFast   bool
	parallel   int
	retry      int
	retryDelay   int
	retryBackoff bool
	bg           bool
	bgJobID      string

	delete, noDelete             bool
	compress, noCompress         bool
	checksum, noChecksum         bool
	sizeOnly, noSizeOnly         bool
	ignoreTimes, noIgnoreTimes   bool
	modifyWindow                 int
	partial, noPartial           bool
	partialDir                   string
	maxSize, minSize              string
	timeout, contimeout          int
	backup, noBackup             bool
	backupDir                    string
	chmod                        string
	bwlimit                      int
	exclude, include             []string
	excludeFrom, includeFrom     string
	rsyncVerbose, noRsyncVerbose bool
	rsyncQuiet, noRsyncQuiet     bool
	itemizeChanges, noItemizeChanges bool
	verbose                      bool
}

func newSyncCmd() *cobra.Command {
	sf := &syncFlags{}
	cmd := registerSyncFlags(sf)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runSync(cmd, args, sf)
	}
	cmd.AddCommand(newSyncStatusCmd(), newSyncHistoryCmd())
	return cmd
}

// registerSyncFlags builds the bare `sync` command and binds every flag
// to sf, without a RunE; split out from newSyncCmd so tests can parse
// flags into a known syncFlags value without exercising the full
// command tree.
func registerSyncFlags(sf *syncFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync [NAME]",
		Short: "Run or preview rsync-based mirror syncs",
		Args:  cobra.MaximumNArgs(1),
	}

	f := cmd.Flags()
	f.BoolVar(&sf.all, "all", false, "run every configured job")
	f.StringVar(&sf.dest, "dest", "", "override destination directory")
	f.BoolVar(&sf.list, "list", false, "list configured job names and exit")
	f.BoolVar(&sf.plan, "plan", false, "preview changes without transferring")
	f.BoolVarP(&sf.dryRun, "dry-run", "n", false, "alias for --plan")
	f.BoolVar(&sf.failFast, "fail-fast", false, "cancel remaining jobs on first failure")
	f.IntVar(&sf.parallel, "parallel", 1, "number of jobs to run concurrently (1..100)")
	f.IntVar(&sf.retry, "retry", 1, "max attempts per job")
	f.IntVar(&sf.retryDelay, "retry-delay", 1, "seconds between retry attempts")
	f.BoolVar(&sf.retryBackoff, "retry-backoff", false, "use exponential backoff between retries instead of a fixed delay")
	f.BoolVar(&sf.bg, "bg", false, "spawn the sync as a detached background job and print its job id")
	f.StringVar(&sf.bgJobID, "internal-bg-job-id", "", "internal: identifies the detached child to its own job record")
	f.MarkHidden("internal-bg-job-id")

	f.BoolVar(&sf.delete, "delete", false, "rsync --delete")
	f.BoolVar(&sf.noDelete, "no-delete", false, "force rsync --delete off")
	f.BoolVarP(&sf.compress, "compress", "z", false, "rsync --compress")
	f.BoolVar(&sf.noCompress, "no-compress", false, "force rsync --compress off")
	f.BoolVarP(&sf.checksum, "checksum", "c", false, "rsync --checksum")
	f.BoolVar(&sf.noChecksum, "no-checksum", false, "force rsync --checksum off")
	f.BoolVar(&sf.sizeOnly, "size-only", false, "rsync --size-only")
	f.BoolVar(&sf.noSizeOnly, "no-size-only", false, "force rsync --size-only off")
	f.BoolVar(&sf.ignoreTimes, "ignore-times", false, "rsync --ignore-times")
	f.BoolVar(&sf.noIgnoreTimes, "no-ignore-times", false, "force rsync --ignore-times off")
	f.IntVar(&sf.modifyWindow, "modify-window", 0, "rsync --modify-window seconds")
	f.BoolVar(&sf.partial, "partial", false, "rsync --partial")
	f.BoolVar(&sf.noPartial, "no-partial", false, "force rsync --partial off")
	f.StringVar(&sf.partialDir, "partial-dir", "", "rsync --partial-dir")
	f.StringVar(&sf.maxSize, "max-size", "", "rsync --max-size")
	f.StringVar(&sf.minSize, "min-size", "", "rsync --min-size")
	f.IntVar(&sf.timeout, "timeout", 0, "rsync --timeout seconds")
	f.IntVar(&sf.contimeout, "contimeout", 0, "rsync --contimeout seconds")
	f.BoolVar(&sf.backup, "backup", false, "rsync --backup")
	f.BoolVar(&sf.noBackup, "no-backup", false, "force rsync --backup off")
	f.StringVar(&sf.backupDir, "backup-dir", "", "rsync --backup-dir")
	f.StringVar(&sf.chmod, "chmod", "", "rsync --chmod")
	f.IntVar(&sf.bwlimit, "bwlimit", 0, "rsync --bwlimit KB/s")
	f.StringArrayVar(&sf.exclude, "exclude", nil, "rsync --exclude pattern (repeatable)")
	f.StringArrayVar(&sf.include, "include", nil, "rsync --include pattern (repeatable)")
	f.StringVar(&sf.excludeFrom, "exclude-from", "", "rsync --exclude-from file")
	f.StringVar(&sf.includeFrom, "include-from", "", "rsync --include-from file")
	f.BoolVar(&sf.rsyncVerbose, "rsync-verbose", false, "rsync --verbose")
	f.BoolVar(&sf.noRsyncVerbose, "no-rsync-verbose", false, "force rsync --verbose off")
	f.BoolVar(&sf.rsyncQuiet, "rsync-quiet", false, "rsync --quiet")
	f.BoolVar(&sf.noRsyncQuiet, "no-rsync-quiet", false, "force rsync --quiet off")
	f.BoolVar(&sf.itemizeChanges, "itemize-changes", false, "rsync --itemize-changes")
	f.BoolVar(&sf.noItemizeChanges, "no-itemize-changes", false, "force rsync --itemize-changes off")
	f.BoolVarP(&sf.verbose, "verbose", "v", false, "verbose pdbsync output (distinct from --rsync-verbose)")

	return cmd
}

func runSync(cmd *cobra.Command, args []string, sf *syncFlags) error {
	if sf.parallel < 1 || sf.parallel > 100 {
		return fmt.Errorf("sync: --parallel must be between 1 and 100, got %d", sf.parallel)
	}

	if sf.bg && sf.bgJobID == "" {
		return spawnBackground(cmd)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if sf.list {
		for _, name := range sortedJobNames(cfg) {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	}

	sel := resolver.Selection{All: sf.all}
	if len(args) == 1 {
		sel.Name = args[0]
	}
	if !sf.all && sel.Name == "" {
		return fmt.Errorf("sync: specify a job NAME or pass --all")
	}

	cli := resolver.CLIOverrides{Dest: sf.dest, Flags: sf.toBag(cmd)}

	mode := syncrunner.Sequential()
	if sf.parallel > 1 {
		mode = syncrunner.Parallel(sf.parallel)
	}

	retry := syncrunner.RetryPolicy{
		MaxAttempts: sf.retry,
		Delay:       syncrunner.Fixed,
		FixedDelay:  time.Duration(sf.retryDelay) * time.Second,
	}
	if sf.retryBackoff {
		retry.Delay = syncrunner.ExponentialBackoff
		retry.Base = time.Duration(sf.retryDelay) * time.Second
	}

	sd := stateDir()
	opCfg := syncop.Config{
		Cfg:        cfg,
		Selection:  sel,
		CLI:        cli,
		Plan:       sf.plan || sf.dryRun,
		JSON:       global.JSON,
		Mode:       mode,
		Retry:      retry,
		FailFast:   sf.failFast,
		StateDir:   sd,
		HistoryDir: config.DefaultHistoryDir(sd),
		RsyncBin:   global.RsyncBin,
	}

	ctx, cancel, _ := signalctx.WithSignals(cmd.Context())
	defer cancel()

	result, runErr := syncop.Run(ctx, opCfg, cmd.OutOrStdout())

	if sf.bgJobID != "" {
		return finishBackgroundJob(sf.bgJobID, result, runErr)
	}

	if runErr != nil {
		return runErr
	}

	if !result.Planned {
		printRunSummary(cmd, result.Report)
	}

	if code := result.ExitCode(); code != 0 {
		os.Exit(code)
	}
	return nil
}

// spawnBackground implements spec.md §4.7's spawn step: the CLI
// re-invokes itself without --bg as a detached child whose stdio is
// redirected to the job's log files, writes the initial Running
// meta.json with the child's real pid, and returns immediately,
// printing the job id.
func spawnBackground(cmd *cobra.Command) error {
	store, err := openJobStore()
	if err != nil {
		return err
	}
	id, err := store.NewID()
	if err != nil {
		return err
	}
	stdoutPath, stderrPath, err := store.PrepareDir(id)
	if err != nil {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("sync --bg: resolve own executable: %w", err)
	}

	childArgs := make([]string, 0, len(os.Args))
	for _, a := range os.Args[1:] {
		if a == "--bg" {
			continue
		}
		childArgs = append(childArgs, a)
	}
	childArgs = append(childArgs, "--internal-bg-job-id", id)

	outF, err := os.OpenFile(stdoutPath, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer outF.Close()
	errF, err := os.OpenFile(stderrPath, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer errF.Close()

	child := exec.Command(exe, childArgs...)
	child.Stdout = outF
	child.Stderr = errF
	child.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := child.Start(); err != nil {
		return fmt.Errorf("sync --bg: spawn detached child: %w", err)
	}
	command := "pdbsync " + strings.Join(childArgs[:len(childArgs)-2], " ")
	if _, err := store.Bind(id, strings.TrimSpace(command), child.Process.Pid); err != nil {
		return err
	}
	if err := child.Process.Release(); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}

// finishBackgroundJob is the detached child's completion step: it
// rewrites its own job record to a terminal status, then exits with
// the run's exit code so the job's stored pid can be reconciled.
func finishBackgroundJob(id string, result syncop.Result, runErr error) error {
	store, err := openJobStore()
	if err != nil {
		return err
	}
	status := jobstore.StatusCompleted
	code := 0
	switch {
	case runErr != nil:
		status = jobstore.StatusFailed
		code = 1
	case result.ExitCode() != 0:
		status = jobstore.StatusFailed
		code = result.ExitCode()
	}
	if ferr := store.Finish(id, status, code); ferr != nil {
		return ferr
	}
	os.Exit(code)
	return nil
}

// printRunSummary prints the per-line job outcomes plus the spec.md §7
// summary block: a "Total: X | Success: S | Failed: F" line, the failing
// job names with their error kind, total and average duration, and the
// aggregated rsync byte-transfer stats.
func printRunSummary(cmd *cobra.Command, report syncrunner.RunReport) {
	out := cmd.OutOrStdout()

	var failing []rsync.Result
	for _, res := range report.Results {
		fmt.Fprintf(out, "[%s] %s (attempts=%d duration=%s)\n", res.Job, res.Status, res.Attempts, res.Duration)
		if res.Status != rsync.Success {
			failing = append(failing, res)
		}
	}

	total, success, failed := report.Counts()
	fmt.Fprintf(out, "Total: %d | Success: %d | Failed: %d\n", total, success, failed)
	for _, res := range failing {
		fmt.Fprintf(out, "  failed: %s (%s): %s\n", res.Job, res.Status, res.Message)
	}

	avg := time.Duration(0)
	if total > 0 {
		avg = report.TotalDuration / time.Duration(total)
	}
	fmt.Fprintf(out, "Duration: total=%s average=%s\n", report.TotalDuration, avg)

	fmt.Fprintln(out, report.AggregateStats().Summary(report.TotalDuration))
}

func sortedJobNames(cfg *config.Config) []string {
	names := make([]string, 0, len(cfg.Sync.Custom))
	for n := range cfg.Sync.Custom {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// toBag converts every --name/--no-name pair the user actually passed
// into the final CLI override layer (spec.md §4.3's topmost precedence
// layer); pairs neither side of which was passed stay unset.
func (sf *syncFlags) toBag(cmd *cobra.Command) flagbag.Bag {
	b := flagbag.Bag{}
	changed := cmd.Flags().Changed

	applyPair(&b.Delete, sf.delete, sf.noDelete, changed("delete"), changed("no-delete"))
	applyPair(&b.Compress, sf.compress, sf.noCompress, changed("compress"), changed("no-compress"))
	applyPair(&b.Checksum, sf.checksum, sf.noChecksum, changed("checksum"), changed("no-checksum"))
	applyPair(&b.SizeOnly, sf.sizeOnly, sf.noSizeOnly, changed("size-only"), changed("no-size-only"))
	applyPair(&b.IgnoreTimes, sf.ignoreTimes, sf.noIgnoreTimes, changed("ignore-times"), changed("no-ignore-times"))
	applyPair(&b.Partial, sf.partial, sf.noPartial, changed("partial"), changed("no-partial"))
	applyPair(&b.Backup, sf.backup, sf.noBackup, changed("backup"), changed("no-backup"))
	applyPair(&b.Verbose, sf.rsyncVerbose, sf.noRsyncVerbose, changed("rsync-verbose"), changed("no-rsync-verbose"))
	applyPair(&b.Quiet, sf.rsyncQuiet, sf.noRsyncQuiet, changed("rsync-quiet"), changed("no-rsync-quiet"))
	applyPair(&b.ItemizeChanges, sf.itemizeChanges, sf.noItemizeChanges, changed("itemize-changes"), changed("no-itemize-changes"))

	if changed("modify-window") {
		b.ModifyWindow = flagbag.WithInt(sf.modifyWindow)
	}
	if changed("partial-dir") {
		b.PartialDir = flagbag.WithString(sf.partialDir)
	}
	if changed("max-size") {
		b.MaxSize = flagbag.WithString(sf.maxSize)
	}
	if changed("min-size") {
		b.MinSize = flagbag.WithString(sf.minSize)
	}
	if changed("timeout") {
		b.Timeout = flagbag.WithInt(sf.timeout)
	}
	if changed("contimeout") {
		b.ContTimeout = flagbag.WithInt(sf.contimeout)
	}
	if changed("backup-dir") {
		b.BackupDir = flagbag.WithString(sf.backupDir)
	}
	if changed("chmod") {
		b.Chmod = flagbag.WithString(sf.chmod)
	}
	if changed("bwlimit") {
		b.BWLimit = flagbag.WithInt(sf.bwlimit)
	}
	if len(sf.exclude) > 0 {
		b.Exclude = sf.exclude
	}
	if len(sf.include) > 0 {
		b.Include = sf.include
	}
	if changed("exclude-from") {
		b.ExcludeFrom = flagbag.WithString(sf.excludeFrom)
	}
	if changed("include-from") {
		b.IncludeFrom = flagbag.WithString(sf.includeFrom)
	}
	return b
}

// applyPair resolves a --name/--no-name pair into *field: --no-name wins
// if both were somehow passed, since it is the more conservative choice.
func applyPair(field **bool, posVal, negVal, posChanged, negChanged bool) {
	switch {
	case negChanged:
		*field = flagbag.WithBool(!negVal)
	case posChanged:
		*field = flagbag.WithBool(posVal)
	}
}

// newSyncStatusCmd implements `sync status` (most recent run).
func newSyncStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the most recent sync run",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := historystore.New(config.DefaultHistoryDir(stateDir()))
			if err != nil {
				return err
			}
			run, ok, err := store.Latest()
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "no sync history recorded")
				return nil
			}
			if global.JSON {
				return historystore.RenderJSON(cmd.OutOrStdout(), []historystore.Run{run})
			}
			historystore.RenderTable(cmd.OutOrStdout(), []historystore.Run{run})
			return nil
		},
	}
}

// newSyncHistoryCmd implements `sync history` (full retained history).
func newSyncHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show retained sync run history",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := historystore.New(config.DefaultHistoryDir(stateDir()))
			if err != nil {
				return err
			}
			runs, err := store.List(0)
			if err != nil {
				return err
			}
			if global.JSON {
				return historystore.RenderJSON(cmd.OutOrStdout(), runs)
			}
			historystore.RenderTable(cmd.OutOrStdout(), runs)
			return nil
		},
	}
}
