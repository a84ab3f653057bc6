package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/cadence/internal/board"
	"github.com/twiced-technology-gmbh/cadence/internal/clierr"
	"github.com/twiced-technology-gmbh/cadence/internal/config"
	"github.com/twiced-technology-gmbh/cadence/internal/output"
	"github.com/twiced-technology-gmbh/cadence/internal/store/filestore"
	"github.com/twiced-technology-gmbh/cadence/internal/task"
	"github.com/twiced-technology-gmbh/cadence/internal/watcher"
)

// pollInterval refreshes watched views on backends without local files.
const pollInterval = 5 * time.Second

var flagWatch bool

var boardCmd = &cobra.Command{
	Use:     "board",
	Aliases: []string{"summary"},
	Short:   "Show board summary",
	Long: `Displays a summary of the board: task counts per status, overdue tasks,
and completed tasks awaiting audit.

Use --watch to keep the display live-updating. File boards re-render whenever
task files change on disk; database boards are re-read every few seconds.
Press Ctrl+C to stop.`,
	RunE: runBoard,
}

func init() {
	rootCmd.AddCommand(boardCmd)
	boardCmd.Flags().BoolVarP(&flagWatch, "watch", "w", false, "live-update the board on changes")
	boardCmd.Flags().String("group-by", "", "group board by field ("+strings.Join(board.ValidGroupByFields(), ", ")+")")
}

func runBoard(cmd *cobra.Command, _ []string) error {
	groupBy, _ := cmd.Flags().GetString("group-by")
	if groupBy != "" && !slices.Contains(board.ValidGroupByFields(), groupBy) {
		return clierr.Newf(clierr.InvalidGroupBy, "invalid --group-by field %q; valid: %s",
			groupBy, strings.Join(board.ValidGroupByFields(), ", "))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := renderBoard(ctx, a, groupBy); err != nil {
		return err
	}
	if !flagWatch {
		return nil
	}

	fmt.Fprintln(os.Stderr, "Watching for changes... (Ctrl+C to stop)")
	return watchBoard(ctx, a.cfg, func() {
		clearScreen()
		if renderErr := renderBoard(ctx, a, groupBy); renderErr != nil {
			warnf("rendering board: %v", renderErr)
		}
	})
}

func renderBoard(ctx context.Context, a *app, groupBy string) error {
	tasks, err := a.mgr.List(ctx)
	if err != nil {
		return err
	}
	columns := a.cfg.ColumnStatuses()

	if groupBy != "" {
		open := board.Filter(tasks, board.FilterOptions{ExcludeStatuses: []task.Status{task.StatusNotRequired}})
		return outputGroupedList(open, groupBy, columns)
	}

	summary := board.Summary(a.cfg.Board.Name, columns, tasks, a.mgr.Today())

	format := outputFormat()
	if format == output.FormatJSON {
		return output.JSON(os.Stdout, summary)
	}
	if format == output.FormatCompact {
		output.OverviewCompact(os.Stdout, summary)
		return nil
	}

	output.OverviewTable(os.Stdout, summary)
	return nil
}

// watchBoard calls refresh whenever the board may have changed, until ctx
// is canceled. File boards are watched; other backends are polled.
func watchBoard(ctx context.Context, cfg *config.Config, refresh func()) error {
	if cfg.Store.Backend != config.BackendFile && cfg.Store.Backend != config.BackendSQLite {
		watcher.Poll(ctx, pollInterval, refresh)
		return nil
	}

	w, err := watcher.New([]string{cfg.TasksPath(), cfg.Dir()}, refresh,
		watcher.WithIgnore(filestore.LockFileName, filepath.Base(cfg.LogPath())))
	if err != nil {
		return fmt.Errorf("starting file watcher: %w", err)
	}
	defer w.Close()

	w.Run(ctx, func(watchErr error) {
		warnf("file watcher: %v", watchErr)
	})
	return nil
}

// clearScreen sends ANSI escape codes to clear the terminal and move the
// cursor to the top-left corner.
func clearScreen() {
	fmt.Fprint(os.Stdout, "\033[2J\033[H")
}
