package cmd

import (
	"context"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/cadence/internal/board"
	"github.com/twiced-technology-gmbh/cadence/internal/clierr"
	"github.com/twiced-technology-gmbh/cadence/internal/date"
	"github.com/twiced-technology-gmbh/cadence/internal/output"
	"github.com/twiced-technology-gmbh/cadence/internal/task"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks",
	Long: `Lists tasks with optional filtering, sorting, and output format control.
Not Required tasks are hidden unless --status or --all is given.`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringSlice("status", nil, "filter by status (comma-separated)")
	listCmd.Flags().String("worker", "", "filter by worker")
	listCmd.Flags().String("client", "", "filter by client")
	listCmd.Flags().StringP("frequency", "f", "", "filter by frequency")
	listCmd.Flags().String("audit-status", "", "filter by audit status (Pending, Approved, Reopened)")
	listCmd.Flags().Bool("overdue", false, "show only open tasks past their due date")
	listCmd.Flags().Int("parent", 0, "show only occurrences spawned from this task")
	listCmd.Flags().StringP("search", "s", "", "search title, client and remarks (case-insensitive)")
	listCmd.Flags().Bool("all", false, "include Not Required tasks")
	listCmd.Flags().String("sort", "id", "sort field ("+strings.Join(board.SortFields, ", ")+")")
	listCmd.Flags().BoolP("reverse", "r", false, "reverse sort order")
	listCmd.Flags().IntP("limit", "n", 0, "limit number of results")
	listCmd.Flags().String("group-by", "", "group results by field ("+strings.Join(board.ValidGroupByFields(), ", ")+")")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	sortBy, _ := cmd.Flags().GetString("sort")
	reverse, _ := cmd.Flags().GetBool("reverse")
	limit, _ := cmd.Flags().GetInt("limit")
	groupBy, _ := cmd.Flags().GetString("group-by")

	if groupBy != "" && !slices.Contains(board.ValidGroupByFields(), groupBy) {
		return clierr.Newf(clierr.InvalidGroupBy, "invalid --group-by field %q; valid: %s",
			groupBy, strings.Join(board.ValidGroupByFields(), ", "))
	}
	if !slices.Contains(board.SortFields, sortBy) {
		return clierr.Newf(clierr.InvalidInput, "invalid --sort field %q; valid: %s",
			sortBy, strings.Join(board.SortFields, ", "))
	}

	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	filter, err := listFilter(cmd, a.mgr.Today())
	if err != nil {
		return err
	}

	all, err := a.mgr.List(ctx)
	if err != nil {
		return err
	}
	columns := a.cfg.ColumnStatuses()
	tasks := board.List(all, columns, board.ListOptions{
		Filter:  filter,
		SortBy:  sortBy,
		Reverse: reverse,
		Limit:   limit,
	})

	if groupBy != "" {
		return outputGroupedList(tasks, groupBy, columns)
	}
	return outputTaskList(tasks, a.mgr.Today())
}

func listFilter(cmd *cobra.Command, today date.Date) (board.FilterOptions, error) {
	f := board.FilterOptions{}
	f.Worker, _ = cmd.Flags().GetString("worker")
	f.Client, _ = cmd.Flags().GetString("client")
	f.Search, _ = cmd.Flags().GetString("search")

	statuses, _ := cmd.Flags().GetStringSlice("status")
	for _, s := range statuses {
		st, err := task.ValidateAuditTarget(s)
		if err != nil {
			return f, err
		}
		f.Statuses = append(f.Statuses, st)
	}
	if all, _ := cmd.Flags().GetBool("all"); !all && len(f.Statuses) == 0 {
		f.ExcludeStatuses = []task.Status{task.StatusNotRequired}
	}

	if v, _ := cmd.Flags().GetString("frequency"); v != "" {
		freq, err := task.ValidateFrequency(v)
		if err != nil {
			return f, err
		}
		f.Frequency = freq
	}
	if v, _ := cmd.Flags().GetString("audit-status"); v != "" {
		as, err := task.ValidateAuditStatus(v)
		if err != nil {
			return f, err
		}
		f.AuditStatus = as
	}
	if overdue, _ := cmd.Flags().GetBool("overdue"); overdue {
		f.Overdue = true
		f.Today = today
	}
	if cmd.Flags().Changed("parent") {
		parent, _ := cmd.Flags().GetInt("parent")
		f.ParentID = &parent
	}
	return f, nil
}

func outputGroupedList(tasks []*task.Task, groupBy string, columns []task.Status) error {
	grouped := board.GroupBy(tasks, groupBy, columns)
	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, grouped)
	}
	output.GroupedTable(os.Stdout, grouped)
	return nil
}

func outputTaskList(tasks []*task.Task, today date.Date) error {
	format := outputFormat()
	if format == output.FormatJSON {
		if tasks == nil {
			tasks = []*task.Task{}
		}
		return output.JSON(os.Stdout, tasks)
	}
	if format == output.FormatCompact {
		output.TaskCompact(os.Stdout, tasks)
		return nil
	}

	output.TaskTable(os.Stdout, tasks, today)
	return nil
}
