package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pdbsync/pdbsync/internal/jobstore"
	"github.com/pdbsync/pdbsync/internal/util/signalctx"
)

func readFileOrEmpty(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	return data, err
}

func newJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and control background sync jobs",
	}
	cmd.AddCommand(newJobsStatusCmd(), newJobsLogCmd(), newJobsCancelCmd(), newJobsCleanCmd())
	return cmd
}

func openJobStore() (*jobstore.Store, error) {
	return jobstore.New(stateDir())
}

func newJobsStatusCmd() *cobra.Command {
	var all, running bool
	cmd := &cobra.Command{
		Use:   "status [ID]",
		Short: "Show one job's record, or list every job",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openJobStore()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				rec, err := store.Get(args[0])
				if err != nil {
					return fmt.Errorf("jobs status: %w", err)
				}
				return renderJobRecords(cmd, []jobstore.Record{rec})
			}
			filter := jobstore.Status("")
			if running && !all {
				filter = jobstore.StatusRunning
			}
			recs, err := store.List(filter)
			if err != nil {
				return err
			}
			return renderJobRecords(cmd, recs)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "list every job regardless of status")
	cmd.Flags().BoolVar(&running, "running", false, "list only running jobs")
	return cmd
}

func renderJobRecords(cmd *cobra.Command, recs []jobstore.Record) error {
	if global.JSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	}
	if len(recs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no jobs recorded")
		return nil
	}
	for _, rec := range recs {
		c := color.New(color.FgYellow)
		switch rec.Status {
		case jobstore.StatusCompleted:
			c = color.New(color.FgGreen)
		case jobstore.StatusFailed, jobstore.StatusCancelled:
			c = color.New(color.FgRed)
		}
		c.Fprintf(cmd.OutOrStdout(), "%s  %-9s  %s\n", rec.ID, rec.Status, rec.Command)
	}
	return nil
}

func newJobsLogCmd() *cobra.Command {
	var follow bool
	var stderr bool
	cmd := &cobra.Command{
		Use:   "log ID",
		Short: "Print a job's captured stdout (or stderr with --stderr)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openJobStore()
			if err != nil {
				return err
			}
			id := args[0]
			if _, err := store.Get(id); err != nil {
				return fmt.Errorf("jobs log: %w", err)
			}
			path := store.StdoutPath(id)
			if stderr {
				path = store.StderrPath(id)
			}
			if !follow {
				data, err := readFileOrEmpty(path)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			ctx, cancel, _ := signalctx.WithSignals(cmd.Context())
			defer cancel()
			return jobstore.Follow(ctx, path, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&follow, "follow", false, "keep streaming as the job writes more output")
	cmd.Flags().BoolVar(&stderr, "stderr", false, "show stderr instead of stdout")
	return cmd
}

func newJobsCancelCmd() *cobra.Command {
	var grace time.Duration
	cmd := &cobra.Command{
		Use:   "cancel ID",
		Short: "SIGTERM a running job, escalating to SIGKILL after a grace period",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openJobStore()
			if err != nil {
				return err
			}
			if err := store.Cancel(args[0], grace); err != nil {
				return fmt.Errorf("jobs cancel: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: cancelled\n", args[0])
			return nil
		},
	}
	cmd.Flags().DurationVar(&grace, "grace", 10*time.Second, "time to wait after SIGTERM before SIGKILL")
	return cmd
}

func newJobsCleanCmd() *cobra.Command {
	var olderThan time.Duration
	var all, running bool
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete finished job directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openJobStore()
			if err != nil {
				return err
			}
			filter := jobstore.Status("")
			if running {
				filter = jobstore.StatusRunning
			}
			_ = all
			removed, err := store.Clean(olderThan, filter)
			if err != nil {
				return err
			}
			if len(removed) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to clean")
				return nil
			}
			for _, id := range removed {
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", id)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "only remove jobs started before this long ago")
	cmd.Flags().BoolVar(&all, "all", false, "no-op, kept for symmetry with `jobs status`'s --all/--running pair")
	cmd.Flags().BoolVar(&running, "running", false, "restrict to jobs recorded as running; clean never removes a running job, so this removes nothing")
	return cmd
}
