package cmd

import (
	"context"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/cadence/internal/board"
	"github.com/twiced-technology-gmbh/cadence/internal/clierr"
	"github.com/twiced-technology-gmbh/cadence/internal/lifecycle"
	"github.com/twiced-technology-gmbh/cadence/internal/output"
	"github.com/twiced-technology-gmbh/cadence/internal/task"
)

var statusCmd = &cobra.Command{
	Use:     "status ID[,ID,...] [STATUS]",
	Aliases: []string{"move"},
	Short:   "Change the status of tasks",
	Long: `Changes the status of one or more tasks. Provide the new status directly,
or use --next/--prev to move along the status order. Completing a recurring
task creates its next occurrence.`,
	Args: cobra.RangeArgs(1, 2), //nolint:mnd // 1 or 2 positional args
	RunE: runStatus,
}

var completeCmd = &cobra.Command{
	Use:     "complete ID[,ID,...]",
	Aliases: []string{"done"},
	Short:   "Complete tasks, late if past their due date",
	Args:    cobra.ExactArgs(1),
	RunE:    runComplete,
}

func init() {
	statusCmd.Flags().Bool("next", false, "move to next status")
	statusCmd.Flags().Bool("prev", false, "move to previous status")
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(completeCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args[0])
	if err != nil {
		return err
	}
	next, _ := cmd.Flags().GetBool("next")
	prev, _ := cmd.Flags().GetBool("prev")
	target := ""
	if len(args) > 1 {
		target = args[1]
	}
	switch {
	case next && prev:
		return clierr.New(clierr.InvalidInput, "--next and --prev are mutually exclusive")
	case target != "" && (next || prev):
		return clierr.New(clierr.InvalidInput, "give a status or --next/--prev, not both")
	case target == "" && !next && !prev:
		return clierr.New(clierr.InvalidInput, "a target status (or --next/--prev) is required")
	}
	if target != "" {
		if _, err := task.ValidateStatus(target); err != nil {
			return err
		}
	}

	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	return transitionEach(ctx, ids, func(ctx context.Context, id int) (*lifecycle.Transition, error) {
		st := target
		if st == "" {
			t, err := a.mgr.Get(ctx, id)
			if err != nil {
				return nil, err
			}
			adj, err := adjacentStatus(t.Status, next)
			if err != nil {
				return nil, err
			}
			st = string(adj)
		}
		return a.mgr.TransitionStatus(ctx, id, st, a.actor)
	})
}

func runComplete(_ *cobra.Command, args []string) error {
	ids, err := parseIDs(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	today := a.mgr.Today()
	return transitionEach(ctx, ids, func(ctx context.Context, id int) (*lifecycle.Transition, error) {
		t, err := a.mgr.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return a.mgr.TransitionStatus(ctx, id, string(board.CompletionFor(t, today)), a.actor)
	})
}

// adjacentStatus steps along the status order. Audited tasks step back
// into the order from Completed.
func adjacentStatus(current task.Status, forward bool) (task.Status, error) {
	order := task.Statuses()
	if current == task.StatusAudited {
		current = task.StatusCompleted
	}
	idx := slices.Index(order, current)
	if idx < 0 {
		return "", clierr.Newf(clierr.InvalidStatus, "task has unknown status %q", current)
	}
	if forward {
		if idx == len(order)-1 {
			return "", clierr.Newf(clierr.InvalidInput, "no status after %q", current)
		}
		return order[idx+1], nil
	}
	if idx == 0 {
		return "", clierr.Newf(clierr.InvalidInput, "no status before %q", current)
	}
	return order[idx-1], nil
}

// transitionEach runs fn for a single id with full output, or for several
// ids as a batch.
func transitionEach(ctx context.Context, ids []int, fn func(context.Context, int) (*lifecycle.Transition, error)) error {
	if len(ids) > 1 {
		return runBatch(ctx, ids, fn)
	}

	tr, err := fn(ctx, ids[0])
	if tr != nil {
		if outputFormat() == output.FormatJSON && err == nil {
			return output.JSON(os.Stdout, tr)
		}
		output.TransitionResult(os.Stdout, tr)
	}
	return err
}
