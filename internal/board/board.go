package board

import (
	"strconv"
	"strings"

	"github.com/twiced-technology-gmbh/cadence/internal/clierr"
	"github.com/twiced-technology-gmbh/cadence/internal/date"
	"github.com/twiced-technology-gmbh/cadence/internal/task"
)

// ListOptions controls how tasks are listed.
type ListOptions struct {
	Filter  FilterOptions
	SortBy  string
	Reverse bool
	Limit   int
}

// List applies filters, sorting and the limit to tasks. The input slice is
// not modified.
func List(tasks []*task.Task, columns []task.Status, opts ListOptions) []*task.Task {
	out := Filter(tasks, opts.Filter)

	sortField := opts.SortBy
	if sortField == "" {
		sortField = "id"
	}
	Sort(out, sortField, opts.Reverse, columns)

	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}

// StatusSummary holds metrics for a single status column.
type StatusSummary struct {
	Status  task.Status `json:"status"`
	Count   int         `json:"count"`
	Overdue int         `json:"overdue"`
}

// Overview is the aggregate board overview.
type Overview struct {
	BoardName     string          `json:"board_name"`
	Today         date.Date       `json:"today"`
	TotalTasks    int             `json:"total_tasks"`
	Overdue       int             `json:"overdue"`
	AwaitingAudit int             `json:"awaiting_audit"`
	Statuses      []StatusSummary `json:"statuses"`
}

// AwaitingAudit reports whether t is completed and still pending sign-off.
func AwaitingAudit(t *task.Task) bool {
	return t.Status.IsCompletion() && t.AuditStatus == task.AuditPending
}

// Summary computes a board overview. Tasks whose status has no column still
// count toward the totals.
func Summary(name string, columns []task.Status, tasks []*task.Task, today date.Date) Overview {
	statusMap := make(map[task.Status]*StatusSummary, len(columns))
	for _, s := range columns {
		statusMap[s] = &StatusSummary{Status: s}
	}

	ov := Overview{BoardName: name, Today: today, TotalTasks: len(tasks)}
	for _, t := range tasks {
		overdue := t.IsOverdue(today)
		if overdue {
			ov.Overdue++
		}
		if AwaitingAudit(t) {
			ov.AwaitingAudit++
		}
		if ss, ok := statusMap[t.Status]; ok {
			ss.Count++
			if overdue {
				ss.Overdue++
			}
		}
	}

	ov.Statuses = make([]StatusSummary, 0, len(columns))
	for _, s := range columns {
		ov.Statuses = append(ov.Statuses, *statusMap[s])
	}
	return ov
}

// ParseIDs splits a comma-separated ID string into deduplicated int IDs.
func ParseIDs(arg string) ([]int, error) {
	parts := strings.Split(arg, ",")
	seen := make(map[int]bool, len(parts))
	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.Atoi(p)
		if err != nil || id <= 0 {
			return nil, task.ValidateTaskID(p)
		}
		if !seen[id] {
			ids = append(ids, id)
			seen[id] = true
		}
	}
	if len(ids) == 0 {
		return nil, clierr.New(clierr.InvalidTaskID, "no valid task IDs provided")
	}
	return ids, nil
}

// CountByStatus returns the number of tasks in each status.
func CountByStatus(tasks []*task.Task) map[task.Status]int {
	counts := make(map[task.Status]int)
	for _, t := range tasks {
		counts[t.Status]++
	}
	return counts
}

// CompletionFor picks the completion status for t on today: Completed Late
// once the due date has passed, Completed otherwise.
func CompletionFor(t *task.Task, today date.Date) task.Status {
	if t.IsOverdue(today) {
		return task.StatusCompletedLate
	}
	return task.StatusCompleted
}
