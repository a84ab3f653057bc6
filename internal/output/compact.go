package output

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/twiced-technology-gmbh/cadence/internal/board"
	"github.com/twiced-technology-gmbh/cadence/internal/history"
	"github.com/twiced-technology-gmbh/cadence/internal/task"
)

// TaskCompact renders a list of tasks in one-line-per-record compact format.
func TaskCompact(w io.Writer, tasks []*task.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(os.Stderr, "No tasks found.")
		return
	}

	for _, t := range tasks {
		fmt.Fprintln(w, formatTaskLine(t))
	}
}

// TaskDetailCompact renders a single task with detail in compact format.
func TaskDetailCompact(w io.Writer, t *task.Task) {
	line := formatTaskLine(t)
	if rule := ParamsSummary(t.Params); rule != "" {
		line += " rule:" + strconv.Quote(rule)
	}
	if t.Parent != nil {
		line += " parent:#" + strconv.Itoa(*t.Parent)
	}
	fmt.Fprintln(w, line)

	ts := "  created:" + t.Created.Format("2006-01-02") +
		" updated:" + t.Updated.Format("2006-01-02")
	if t.CompletedAt != nil {
		ts += " completed:" + t.CompletedAt.Format("2006-01-02")
	}
	if t.Auditor != "" {
		ts += " auditor:" + t.Auditor
	}
	fmt.Fprintln(w, ts)

	if t.Remarks != "" {
		for _, remarkLine := range strings.Split(t.Remarks, "\n") {
			fmt.Fprintln(w, "  "+remarkLine)
		}
	}
}

// OverviewCompact renders a board summary in compact format.
func OverviewCompact(w io.Writer, s board.Overview) {
	fmt.Fprintf(w, "%s (%d tasks, %d overdue, %d awaiting audit)\n",
		s.BoardName, s.TotalTasks, s.Overdue, s.AwaitingAudit)

	for _, ss := range s.Statuses {
		line := "  " + string(ss.Status) + ": " + strconv.Itoa(ss.Count)
		if ss.Overdue > 0 {
			line += " (" + strconv.Itoa(ss.Overdue) + " overdue)"
		}
		fmt.Fprintln(w, line)
	}
}

// HistoryCompact renders history entries one per line.
func HistoryCompact(w io.Writer, entries []history.Entry) {
	for _, e := range entries {
		fmt.Fprintf(w, "%s %s [%s] %s\n", e.CreatedAt.Format(timeLayout), e.Actor(), e.Action, e.Details)
	}
}

// formatTaskLine builds the one-line representation of a task.
func formatTaskLine(t *task.Task) string {
	line := "#" + strconv.Itoa(t.ID) + " [" + string(t.Status) + "/" + string(t.Frequency) + "] " + t.Title

	if t.Client != "" {
		line += " client:" + strconv.Quote(t.Client)
	}
	if t.Worker != "" {
		line += " @" + t.Worker
	}
	if t.Due != nil {
		line += " due:" + t.Due.String()
	}
	if t.AuditStatus != "" && t.AuditStatus != task.AuditPending {
		line += " audit:" + strings.ToLower(string(t.AuditStatus))
	}

	return line
}
