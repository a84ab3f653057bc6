package cmd

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/twiced-technology-gmbh/cadence/internal/clierr"
	"github.com/twiced-technology-gmbh/cadence/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive agenda board",
	Long: `Shows one column per configured status. Keys: c complete, a approve,
r reopen, s next status, enter history, ? help, q quit.`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) { //nolint:gosec // fd fits in int
		return clierr.New(clierr.InvalidInput, "the board needs a terminal; use 'cadence board' or 'cadence list' instead")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	model := tui.NewBoard(a.mgr, a.cfg.Board.Name, a.cfg.ColumnStatuses(), a.actor)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())

	go func() {
		// Non-fatal: the board works without live refresh.
		_ = watchBoard(ctx, a.cfg, func() { p.Send(tui.ReloadMsg{}) })
	}()

	_, err = p.Run()
	return err
}
