package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/cadence/internal/date"
	"github.com/twiced-technology-gmbh/cadence/internal/output"
	"github.com/twiced-technology-gmbh/cadence/internal/recurrence"
	"github.com/twiced-technology-gmbh/cadence/internal/task"
)

var nextCmd = &cobra.Command{
	Use:   "next FREQUENCY",
	Short: "Preview the next due dates of a recurrence rule",
	Long: `Computes the next due dates of a rule without touching the board.

  cadence next Monthly --date-of-month 31 --from 2024-01-31 -n 3
  cadence next "Specific Day's" --occurrence Last --day Friday`,
	Args: cobra.ExactArgs(1),
	RunE: runNext,
}

func init() {
	addRecurrenceFlags(nextCmd.Flags())
	nextCmd.Flags().String("from", "", "reference date (YYYY-MM-DD, default today)")
	nextCmd.Flags().IntP("count", "n", 1, "number of occurrences to compute")
	rootCmd.AddCommand(nextCmd)
}

type nextResult struct {
	Frequency recurrence.Frequency `json:"frequency"`
	Rule      string               `json:"rule,omitempty"`
	From      date.Date            `json:"from"`
	Dates     []date.Date          `json:"dates"`
	// Instants are the dates as start-of-day UTC timestamps.
	Instants []string `json:"instants"`
}

// upcoming steps the rule forward from from, stopping early for rules
// that do not advance.
func upcoming(freq recurrence.Frequency, params recurrence.Params, from date.Date, count int) nextResult {
	res := nextResult{Frequency: freq, Rule: output.ParamsSummary(params), From: from}
	ref := from
	for range max(count, 1) {
		next := recurrence.NextDueDate(ref.Time, freq, params)
		res.Dates = append(res.Dates, next)
		res.Instants = append(res.Instants, next.ISO())
		if !freq.Recurs() || next.Equal(ref) {
			break
		}
		ref = next
	}
	return res
}

func runNext(cmd *cobra.Command, args []string) error {
	freq, params, err := recurrenceFromFlags(cmd.Flags(), args[0])
	if err != nil {
		return err
	}
	if err := task.ValidateParams(freq, params); err != nil {
		warnf("%v; defaults apply", err)
	}

	from := date.Today(time.Local)
	if v, _ := cmd.Flags().GetString("from"); v != "" {
		if from, err = date.Parse(v); err != nil {
			return task.ValidateDate("from", v, err)
		}
	}
	count, _ := cmd.Flags().GetInt("count")
	res := upcoming(freq, params, from, count)

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, res)
	}
	for _, d := range res.Dates {
		output.Messagef(os.Stdout, "%s  %s", d, d.Weekday())
	}
	return nil
}
