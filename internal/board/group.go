package board

import (
	"slices"
	"sort"

	"github.com/twiced-technology-gmbh/cadence/internal/recurrence"
	"github.com/twiced-technology-gmbh/cadence/internal/task"
)

const (
	fieldStatus      = "status"
	fieldWorker      = "worker"
	fieldClient      = "client"
	fieldFrequency   = "frequency"
	fieldAuditStatus = "audit_status"
)

// GroupedSummary holds tasks grouped by a field.
type GroupedSummary struct {
	Groups []GroupSummary `json:"groups"`
}

// GroupSummary is one group within a grouped view.
type GroupSummary struct {
	Key      string          `json:"key"`
	Statuses []StatusSummary `json:"statuses"`
	Total    int             `json:"total"`
}

// GroupBy groups tasks by the specified field and returns summaries per group.
func GroupBy(tasks []*task.Task, field string, columns []task.Status) GroupedSummary {
	groups := make(map[string][]*task.Task)
	for _, t := range tasks {
		key := groupKey(t, field)
		groups[key] = append(groups[key], t)
	}

	sortedKeys := sortGroupKeys(groups, field, columns)

	result := GroupedSummary{
		Groups: make([]GroupSummary, 0, len(sortedKeys)),
	}
	for _, key := range sortedKeys {
		groupTasks := groups[key]
		result.Groups = append(result.Groups, GroupSummary{
			Key:      key,
			Statuses: groupStatusSummary(groupTasks, columns),
			Total:    len(groupTasks),
		})
	}
	return result
}

func groupKey(t *task.Task, field string) string {
	switch field {
	case fieldWorker:
		if t.Worker == "" {
			return "(unassigned)"
		}
		return t.Worker
	case fieldClient:
		if t.Client == "" {
			return "(no client)"
		}
		return t.Client
	case fieldFrequency:
		return string(t.Frequency.Canonical())
	case fieldAuditStatus:
		return string(t.AuditStatus)
	case fieldStatus:
		return string(t.Status)
	default:
		return "(all)"
	}
}

func sortGroupKeys(groups map[string][]*task.Task, field string, columns []task.Status) []string {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}

	switch field {
	case fieldStatus:
		sort.SliceStable(keys, func(i, j int) bool {
			return columnIndex(columns, task.Status(keys[i])) < columnIndex(columns, task.Status(keys[j]))
		})
	case fieldFrequency:
		order := recurrence.Frequencies()
		sort.SliceStable(keys, func(i, j int) bool {
			return slices.Index(order, recurrence.Frequency(keys[i])) < slices.Index(order, recurrence.Frequency(keys[j]))
		})
	case fieldAuditStatus:
		order := task.AuditStatuses()
		sort.SliceStable(keys, func(i, j int) bool {
			return slices.Index(order, task.AuditStatus(keys[i])) < slices.Index(order, task.AuditStatus(keys[j]))
		})
	default:
		sort.Strings(keys)
	}
	return keys
}

func groupStatusSummary(tasks []*task.Task, columns []task.Status) []StatusSummary {
	counts := make(map[task.Status]int)
	for _, t := range tasks {
		counts[t.Status]++
	}
	statuses := make([]StatusSummary, 0, len(columns))
	for _, s := range columns {
		statuses = append(statuses, StatusSummary{Status: s, Count: counts[s]})
	}
	return statuses
}

// ValidGroupByFields returns the list of valid --group-by field names.
func ValidGroupByFields() []string {
	return []string{fieldStatus, fieldWorker, fieldClient, fieldFrequency, fieldAuditStatus}
}
