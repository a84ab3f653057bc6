// Package board provides board-level operations on task collections.
package board

import (
	"slices"
	"strings"

	"github.com/twiced-technology-gmbh/cadence/internal/date"
	"github.com/twiced-technology-gmbh/cadence/internal/recurrence"
	"github.com/twiced-technology-gmbh/cadence/internal/task"
)

// FilterOptions defines which tasks to include.
type FilterOptions struct {
	Statuses        []task.Status
	ExcludeStatuses []task.Status
	Worker          string
	Client          string
	Frequency       recurrence.Frequency
	AuditStatus     task.AuditStatus
	Search          string // case-insensitive substring match across title, client, and remarks
	ParentID        *int   // nil=no filter, non-nil=only tasks spawned from this parent
	Overdue         bool
	Today           date.Date // reference day for Overdue
}

// Filter returns tasks matching all specified criteria (AND logic).
func Filter(tasks []*task.Task, opts FilterOptions) []*task.Task {
	var result []*task.Task
	for _, t := range tasks {
		if matchesFilter(t, opts) {
			result = append(result, t)
		}
	}
	return result
}

func matchesFilter(t *task.Task, opts FilterOptions) bool {
	if !matchesCoreFilter(t, opts) {
		return false
	}
	return matchesExtendedFilter(t, opts)
}

func matchesCoreFilter(t *task.Task, opts FilterOptions) bool {
	if len(opts.Statuses) > 0 && !slices.Contains(opts.Statuses, t.Status) {
		return false
	}
	if slices.Contains(opts.ExcludeStatuses, t.Status) {
		return false
	}
	if opts.Worker != "" && !strings.EqualFold(t.Worker, opts.Worker) {
		return false
	}
	if opts.Client != "" && !strings.EqualFold(t.Client, opts.Client) {
		return false
	}
	if opts.ParentID != nil && (t.Parent == nil || *t.Parent != *opts.ParentID) {
		return false
	}
	return true
}

func matchesExtendedFilter(t *task.Task, opts FilterOptions) bool {
	if opts.Frequency != "" && t.Frequency.Canonical() != opts.Frequency.Canonical() {
		return false
	}
	if opts.AuditStatus != "" && t.AuditStatus != opts.AuditStatus {
		return false
	}
	if opts.Overdue && !t.IsOverdue(opts.Today) {
		return false
	}
	if opts.Search != "" && !matchesSearch(t, opts.Search) {
		return false
	}
	return true
}

func matchesSearch(t *task.Task, query string) bool {
	q := strings.ToLower(query)
	for _, field := range []string{t.Title, t.Client, t.Remarks} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
