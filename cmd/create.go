package cmd

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/twiced-technology-gmbh/cadence/internal/clierr"
	"github.com/twiced-technology-gmbh/cadence/internal/date"
	"github.com/twiced-technology-gmbh/cadence/internal/lifecycle"
	"github.com/twiced-technology-gmbh/cadence/internal/output"
	"github.com/twiced-technology-gmbh/cadence/internal/recurrence"
	"github.com/twiced-technology-gmbh/cadence/internal/task"
)

var createCmd = &cobra.Command{
	Use:     "create [TITLE]",
	Aliases: []string{"add"},
	Short:   "Create a new task",
	Long: `Creates a task in Not Started.

Title can be provided as a positional argument or via --title flag.
A recurring task is due on its first occurrence after today. The rule is
given either with the per-field flags or as a JSON object with --params:

  cadence create "Payroll" --client Acme -f Monthly --date-of-month 25
  cadence create "VAT return" -f "Specific Day's" --occurrence Last --day Friday
  cadence create "Annual filing" -f "One Time" --date 2024-06-30
  cadence create "Timesheets" -f Weekly --params '{"dayOfWeek":"Friday"}'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCreate,
}

func init() {
	createCmd.Flags().String("title", "", "task title (alternative to positional argument)")
	createCmd.Flags().String("worker", "", "assigned worker")
	createCmd.Flags().String("client", "", "client the obligation belongs to")
	createCmd.Flags().String("remarks", "", "free-form remarks (markdown)")
	createCmd.Flags().StringP("frequency", "f", string(recurrence.OneTime),
		"recurrence ("+frequencyNames()+")")
	addRecurrenceFlags(createCmd.Flags())
	rootCmd.AddCommand(createCmd)
}

func frequencyNames() string {
	names := make([]string, 0, len(recurrence.Frequencies()))
	for _, f := range recurrence.Frequencies() {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}

// addRecurrenceFlags registers the per-field rule flags shared by create
// and next.
func addRecurrenceFlags(fs *pflag.FlagSet) {
	fs.String("params", "", "rule parameters as a JSON object (overrides the field flags)")
	fs.String("day-of-week", "", "Weekly: weekday of each occurrence")
	fs.Int("date-of-month", 0, "Monthly: day of month, clamped to the month length")
	fs.String("occurrence", "", "Specific Day's: 1st, 2nd, 3rd, 4th or Last")
	fs.String("day", "", "Specific Day's: weekday")
	fs.String("period", "", "Specific Day's: period label kept for display")
	fs.String("first-date", "", "Quarterly, Half-yearly, Yearly: first occurrence (YYYY-MM-DD)")
	fs.String("date", "", "One Time: due date (YYYY-MM-DD)")
}

// recurrenceFromFlags resolves the frequency label and its params.
func recurrenceFromFlags(fs *pflag.FlagSet, label string) (recurrence.Frequency, recurrence.Params, error) {
	freq, err := task.ValidateFrequency(label)
	if err != nil {
		return "", nil, err
	}

	if raw, _ := fs.GetString("params"); raw != "" {
		return freq, recurrence.Decode(freq, []byte(raw)), nil
	}

	m := map[string]any{}
	if v, _ := fs.GetString("day-of-week"); v != "" {
		m["dayOfWeek"] = v
	}
	if v, _ := fs.GetInt("date-of-month"); v != 0 {
		m["dateOfMonth"] = v
	}
	if v, _ := fs.GetString("occurrence"); v != "" {
		m["occurrence"] = v
	}
	if v, _ := fs.GetString("day"); v != "" {
		m["day"] = v
	}
	if v, _ := fs.GetString("period"); v != "" {
		m["period"] = v
	}
	for flag, key := range map[string]string{"first-date": "firstDate", "date": "date"} {
		v, _ := fs.GetString(flag)
		if v == "" {
			continue
		}
		if _, err := date.Parse(v); err != nil {
			return "", nil, task.ValidateDate(flag, v, err)
		}
		m[key] = v
	}
	return freq, recurrence.FromMap(freq, m), nil
}

func runCreate(cmd *cobra.Command, args []string) error {
	title, err := resolveCreateTitle(cmd, args)
	if err != nil {
		return err
	}
	label, _ := cmd.Flags().GetString("frequency")
	freq, params, err := recurrenceFromFlags(cmd.Flags(), label)
	if err != nil {
		return err
	}
	worker, _ := cmd.Flags().GetString("worker")
	client, _ := cmd.Flags().GetString("client")
	remarks, _ := cmd.Flags().GetString("remarks")

	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.mgr.CreateTask(ctx, lifecycle.NewTask{
		Title:     title,
		Worker:    worker,
		Client:    client,
		Frequency: string(freq),
		Params:    params,
		Remarks:   remarks,
	}, a.actor)
	if err != nil {
		return err
	}

	format := outputFormat()
	if format == output.FormatJSON {
		return output.JSON(os.Stdout, t)
	}
	if format == output.FormatCompact {
		output.TaskDetailCompact(os.Stdout, t)
		return nil
	}
	due := "--"
	if t.Due != nil {
		due = t.Due.String()
	}
	output.Messagef(os.Stdout, "Created task #%d: %s (%s, due %s)", t.ID, t.Title, t.Frequency, due)
	return nil
}

// resolveCreateTitle gets the title from the positional arg or --title flag.
func resolveCreateTitle(cmd *cobra.Command, args []string) (string, error) {
	titleFlag, _ := cmd.Flags().GetString("title")
	switch {
	case len(args) > 0 && titleFlag != "":
		return "", clierr.New(clierr.InvalidInput, "provide title as positional argument or --title, not both")
	case len(args) > 0:
		return args[0], nil
	case titleFlag != "":
		return titleFlag, nil
	default:
		return "", clierr.New(clierr.InvalidInput, "title is required (as positional argument or --title)")
	}
}
