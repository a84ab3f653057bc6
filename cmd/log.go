package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/cadence/internal/logbook"
	"github.com/twiced-technology-gmbh/cadence/internal/output"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show the most recent logbook entries",
	Args:  cobra.NoArgs,
	RunE:  runLog,
}

func init() {
	logCmd.Flags().IntP("lines", "n", 20, "number of lines to show") //nolint:mnd // default tail
	rootCmd.AddCommand(logCmd)
}

func runLog(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	lb, err := logbook.New(cfg.LogPath())
	if err != nil {
		return fmt.Errorf("opening logbook: %w", err)
	}

	n, _ := cmd.Flags().GetInt("lines")
	lines := lb.Tail(n)
	if outputFormat() == output.FormatJSON {
		if lines == nil {
			lines = []string{}
		}
		return output.JSON(os.Stdout, lines)
	}
	for _, l := range lines {
		fmt.Fprintln(os.Stdout, l)
	}
	return nil
}
