package output

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/twiced-technology-gmbh/cadence/internal/board"
	"github.com/twiced-technology-gmbh/cadence/internal/date"
	"github.com/twiced-technology-gmbh/cadence/internal/history"
	"github.com/twiced-technology-gmbh/cadence/internal/lifecycle"
	"github.com/twiced-technology-gmbh/cadence/internal/recurrence"
	"github.com/twiced-technology-gmbh/cadence/internal/task"
)

const timeLayout = "2006-01-02 15:04"

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("244"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	overdueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	// Status colors aligned with the TUI column-header palette.
	statusStyles = map[string]lipgloss.Style{
		string(task.StatusNotStarted):       lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		string(task.StatusInProgress):       lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
		string(task.StatusWaitingForClient): lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		string(task.StatusFiled):            lipgloss.NewStyle().Foreground(lipgloss.Color("110")),
		string(task.StatusOnHold):           lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
		string(task.StatusPending):          lipgloss.NewStyle().Foreground(lipgloss.Color("62")),
		string(task.StatusCompleted):        lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
		string(task.StatusCompletedLate):    lipgloss.NewStyle().Foreground(lipgloss.Color("136")),
		string(task.StatusNotRequired):      lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		string(task.StatusAudited):          lipgloss.NewStyle().Foreground(lipgloss.Color("35")).Bold(true),
	}

	auditStyles = map[string]lipgloss.Style{
		string(task.AuditPending):  lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
		string(task.AuditApproved): lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
		string(task.AuditReopened): lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
	}
)

// DisableColor strips all styling from table output.
func DisableColor() {
	headerStyle = lipgloss.NewStyle()
	dimStyle = lipgloss.NewStyle()
	overdueStyle = lipgloss.NewStyle()
	statusStyles = map[string]lipgloss.Style{}
	auditStyles = map[string]lipgloss.Style{}
	plainMarkdown = true
}

// StatusStyle returns the color used for s, shared with the TUI.
func StatusStyle(s task.Status) lipgloss.Style {
	if st, ok := statusStyles[string(s)]; ok {
		return st
	}
	return lipgloss.NewStyle()
}

// TaskTable renders a list of tasks as a formatted table. Due dates before
// today are highlighted for tasks that still need work.
func TaskTable(w io.Writer, tasks []*task.Task, today date.Date) {
	if len(tasks) == 0 {
		fmt.Fprintln(os.Stderr, "No tasks found.")
		return
	}

	const pad = 2
	idW, statusW, titleW, clientW, workerW, freqW, dueW := 4, 8, 5, 8, 8, 11, 12
	for _, t := range tasks {
		idW = max(idW, len(strconv.Itoa(t.ID))+pad)
		statusW = max(statusW, len(t.Status)+pad)
		titleW = max(titleW, min(len(t.Title)+pad, 50)) //nolint:mnd // max title column width
		clientW = max(clientW, min(len(t.Client)+pad, 24)) //nolint:mnd // max client column width
		workerW = max(workerW, len(t.Worker)+pad)
		freqW = max(freqW, len(t.Frequency)+pad)
	}

	header := fmt.Sprintf("%-*s %-*s %-*s %-*s %-*s %-*s %-*s %s",
		idW, "ID", statusW, "STATUS", titleW, "TITLE", clientW, "CLIENT",
		workerW, "WORKER", freqW, "FREQUENCY", dueW, "DUE", "AUDIT")
	fmt.Fprintln(w, headerStyle.Render(strings.TrimRight(header, " ")))

	for _, t := range tasks {
		due := dimStyle.Render("--")
		if t.Due != nil {
			due = t.Due.String()
			if t.IsOverdue(today) {
				due = overdueStyle.Render(due)
			}
		}

		row := fmt.Sprintf("%-*d %s %s %s %s %s %s %s",
			idW, t.ID,
			padRight(styledValue(string(t.Status), statusStyles), statusW),
			padRight(truncate(t.Title, 48), titleW), //nolint:mnd // max visible title
			padRight(stringOrDash(truncate(t.Client, 22)), clientW), //nolint:mnd // max visible client
			padRight(stringOrDash(t.Worker), workerW),
			padRight(string(t.Frequency), freqW),
			padRight(due, dueW),
			styledValue(string(t.AuditStatus), auditStyles))
		fmt.Fprintln(w, strings.TrimRight(row, " "))
	}
}

// TaskDetail renders a single task with full detail. Remarks are rendered
// as markdown.
func TaskDetail(w io.Writer, t *task.Task) {
	titleLine := fmt.Sprintf("Task #%d: %s", t.ID, t.Title)
	fmt.Fprintln(w, lipgloss.NewStyle().Bold(true).Render(titleLine))
	fmt.Fprintln(w, strings.Repeat("─", lipgloss.Width(titleLine)))

	printField(w, "Status", styledValue(string(t.Status), statusStyles))
	printField(w, "Client", stringOrDash(t.Client))
	printField(w, "Worker", stringOrDash(t.Worker))
	printField(w, "Frequency", string(t.Frequency))
	if rule := ParamsSummary(t.Params); rule != "" {
		printField(w, "Rule", rule)
	}
	if t.Due != nil {
		printField(w, "Due", t.Due.String())
	} else {
		printField(w, "Due", dimStyle.Render("--"))
	}
	if t.CompletedAt != nil {
		printField(w, "Completed", t.CompletedAt.Format(timeLayout))
	}
	printField(w, "Audit", styledValue(string(t.AuditStatus), auditStyles))
	if t.Auditor != "" {
		printField(w, "Auditor", t.Auditor)
	}
	if t.AuditRemarks != "" {
		printField(w, "Audit notes", t.AuditRemarks)
	}
	if t.Parent != nil {
		printField(w, "Spawned from", "#"+strconv.Itoa(*t.Parent))
	}
	printField(w, "Created", t.Created.Format(timeLayout))
	printField(w, "Updated", t.Updated.Format(timeLayout))

	if t.Remarks != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, Markdown(t.Remarks))
	}
}

// TransitionResult prints the outcome of a status change.
func TransitionResult(w io.Writer, tr *lifecycle.Transition) {
	Messagef(w, "Task #%d -> %s", tr.Task.ID, styledValue(string(tr.Task.Status), statusStyles))
	if tr.Successor != nil {
		due := "--"
		if tr.Successor.Due != nil {
			due = tr.Successor.Due.String()
		}
		Messagef(w, "Spawned #%d %q due %s", tr.Successor.ID, tr.Successor.Title, due)
	}
}

// OverviewTable renders a board summary as a formatted dashboard.
func OverviewTable(w io.Writer, s board.Overview) {
	fmt.Fprintln(w, lipgloss.NewStyle().Bold(true).Render(s.BoardName))
	fmt.Fprintf(w, "Total: %d tasks  Overdue: %d  Awaiting audit: %d  (as of %s)\n\n",
		s.TotalTasks, s.Overdue, s.AwaitingAudit, s.Today)

	const statusColW = 20
	header := fmt.Sprintf("%-*s %6s %8s", statusColW, "STATUS", "COUNT", "OVERDUE")
	fmt.Fprintln(w, headerStyle.Render(header))

	for _, ss := range s.Statuses {
		overdue := strconv.Itoa(ss.Overdue)
		if ss.Overdue > 0 {
			overdue = overdueStyle.Render(overdue)
		}
		fmt.Fprintf(w, "%s %6d %s\n",
			padRight(styledValue(string(ss.Status), statusStyles), statusColW),
			ss.Count, padLeft(overdue, 8)) //nolint:mnd // column width
	}
}

// GroupedTable renders a grouped board view with per-group status breakdowns.
func GroupedTable(w io.Writer, gs board.GroupedSummary) {
	if len(gs.Groups) == 0 {
		fmt.Fprintln(os.Stderr, "No groups found.")
		return
	}

	for i, g := range gs.Groups {
		if i > 0 {
			fmt.Fprintln(w)
		}
		title := fmt.Sprintf("%s (%d tasks)", g.Key, g.Total)
		fmt.Fprintln(w, lipgloss.NewStyle().Bold(true).Render(title))

		for _, ss := range g.Statuses {
			if ss.Count == 0 {
				continue
			}
			const groupStatusW = 20
			fmt.Fprintf(w, "  %s %d\n",
				padRight(styledValue(string(ss.Status), statusStyles), groupStatusW), ss.Count)
		}
	}
}

// HistoryTable renders history entries, newest first.
func HistoryTable(w io.Writer, entries []history.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "No history found.")
		return
	}

	actorW, actionW := 7, 8
	for _, e := range entries {
		actorW = max(actorW, len(e.Actor())+2)  //nolint:mnd // padding
		actionW = max(actionW, len(e.Action)+2) //nolint:mnd // padding
	}

	header := fmt.Sprintf("%-16s %-*s %-*s %s", "WHEN", actorW, "ACTOR", actionW, "ACTION", "DETAILS")
	fmt.Fprintln(w, headerStyle.Render(header))
	for _, e := range entries {
		fmt.Fprintf(w, "%-16s %-*s %-*s %s\n",
			e.CreatedAt.Format(timeLayout), actorW, e.Actor(), actionW, e.Action, e.Details)
	}
}

// ParamsSummary describes a recurrence rule in a few words, or "" when the
// params carry nothing beyond the frequency.
func ParamsSummary(p recurrence.Params) string {
	switch v := p.(type) {
	case recurrence.WeeklyParams:
		if v.DayOfWeek != "" {
			return "every " + v.DayOfWeek
		}
	case recurrence.MonthlyParams:
		if v.DateOfMonth > 0 {
			return "on day " + strconv.Itoa(v.DateOfMonth)
		}
	case recurrence.SpecificDayParams:
		if v.Occurrence != "" && v.Day != "" {
			return v.Occurrence + " " + v.Day + " of the month"
		}
	case recurrence.IntervalParams:
		if v.FirstDate != "" {
			return "first " + v.FirstDate
		}
	case recurrence.OneTimeParams:
		if v.Date != "" {
			return "on " + v.Date
		}
	}
	return ""
}

// Messagef prints a simple formatted message line.
func Messagef(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, format+"\n", args...)
}

func printField(w io.Writer, label, value string) {
	fmt.Fprintf(w, "  %-13s %s\n", label+":", value)
}

// padRight pads s with spaces to the given visible width, accounting for ANSI
// escape codes that are invisible but consume bytes.
func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

func padLeft(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return strings.Repeat(" ", width-visible) + s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func stringOrDash(s string) string {
	if s == "" {
		return dimStyle.Render("--")
	}
	return s
}

// styledValue renders s using a matching style from the map, or returns s unchanged.
func styledValue(s string, styles map[string]lipgloss.Style) string {
	if st, ok := styles[s]; ok {
		return st.Render(s)
	}
	return s
}
