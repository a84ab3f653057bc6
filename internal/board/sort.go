package board

import (
	"slices"
	"sort"
	"strings"

	"github.com/twiced-technology-gmbh/cadence/internal/task"
)

// SortFields lists the accepted --sort values.
var SortFields = []string{"id", "status", "due", "created", "updated", "client", "worker"}

// Sort sorts tasks by the given field. Status follows the column order,
// not the alphabet; statuses without a column sort last.
func Sort(tasks []*task.Task, field string, reverse bool, columns []task.Status) {
	sort.SliceStable(tasks, func(i, j int) bool {
		less := compareTasks(tasks[i], tasks[j], field, columns)
		if reverse {
			return !less
		}
		return less
	})
}

func compareTasks(a, b *task.Task, field string, columns []task.Status) bool {
	switch field {
	case "id":
		return a.ID < b.ID
	case fieldStatus:
		return columnIndex(columns, a.Status) < columnIndex(columns, b.Status)
	case "created":
		return a.Created.Before(b.Created)
	case "updated":
		return a.Updated.Before(b.Updated)
	case "due":
		return compareDue(a, b)
	case fieldClient:
		return strings.ToLower(a.Client) < strings.ToLower(b.Client)
	case fieldWorker:
		return strings.ToLower(a.Worker) < strings.ToLower(b.Worker)
	default:
		return a.ID < b.ID
	}
}

func columnIndex(columns []task.Status, s task.Status) int {
	if i := slices.Index(columns, s); i >= 0 {
		return i
	}
	return len(columns)
}

func compareDue(a, b *task.Task) bool {
	if a.Due == nil && b.Due == nil {
		return false
	}
	if a.Due == nil {
		return false // nil sorts last
	}
	if b.Due == nil {
		return true
	}
	return a.Due.Before(b.Due.Time)
}
