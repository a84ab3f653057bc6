package board

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiced-technology-gmbh/cadence/internal/clierr"
	"github.com/twiced-technology-gmbh/cadence/internal/date"
	"github.com/twiced-technology-gmbh/cadence/internal/recurrence"
	"github.com/twiced-technology-gmbh/cadence/internal/task"
)

var today = date.New(2024, time.March, 12)

func due(d int) *date.Date {
	v := date.New(2024, time.March, d)
	return &v
}

func intPtr(i int) *int { return &i }

func fixture() []*task.Task {
	return []*task.Task{
		{ID: 3, Title: "VAT return", Worker: "alice", Client: "Acme", Frequency: recurrence.Quarterly,
			Status: task.StatusInProgress, AuditStatus: task.AuditPending, Due: due(10)},
		{ID: 1, Title: "Payroll", Worker: "bob", Client: "Globex", Frequency: recurrence.Monthly,
			Status: task.StatusCompleted, AuditStatus: task.AuditPending, Due: due(1)},
		{ID: 2, Title: "Bank reconciliation", Worker: "alice", Client: "acme", Frequency: recurrence.Weekly,
			Status: task.StatusNotStarted, AuditStatus: task.AuditPending, Due: due(20), Remarks: "ask for statements", Parent: intPtr(1)},
		{ID: 4, Title: "Annual accounts", Frequency: recurrence.Frequency("Half yearly"),
			Status: task.StatusAudited, AuditStatus: task.AuditApproved},
	}
}

func ids(tasks []*task.Task) []int {
	out := make([]int, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func TestFilter(t *testing.T) {
	all := fixture()

	tests := []struct {
		name string
		opts FilterOptions
		want []int
	}{
		{"no filter", FilterOptions{}, []int{3, 1, 2, 4}},
		{"status", FilterOptions{Statuses: []task.Status{task.StatusCompleted, task.StatusAudited}}, []int{1, 4}},
		{"exclude", FilterOptions{ExcludeStatuses: []task.Status{task.StatusAudited}}, []int{3, 1, 2}},
		{"worker", FilterOptions{Worker: "Alice"}, []int{3, 2}},
		{"client ignores case", FilterOptions{Client: "ACME"}, []int{3, 2}},
		{"frequency alias", FilterOptions{Frequency: recurrence.HalfYearly}, []int{4}},
		{"audit status", FilterOptions{AuditStatus: task.AuditApproved}, []int{4}},
		{"overdue", FilterOptions{Overdue: true, Today: today}, []int{3}},
		{"search remarks", FilterOptions{Search: "STATEMENTS"}, []int{2}},
		{"parent", FilterOptions{ParentID: intPtr(1)}, []int{2}},
		{"combined", FilterOptions{Worker: "alice", Statuses: []task.Status{task.StatusNotStarted}}, []int{2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Filter(all, tt.opts)))
		})
	}
}

func TestListSortsAndLimits(t *testing.T) {
	columns := task.AuditTargets()

	assert.Equal(t, []int{1, 2, 3, 4}, ids(List(fixture(), columns, ListOptions{})))
	assert.Equal(t, []int{4, 3, 2, 1}, ids(List(fixture(), columns, ListOptions{Reverse: true})))
	assert.Equal(t, []int{1, 3}, ids(List(fixture(), columns, ListOptions{SortBy: "due", Limit: 2})))
	// Tasks without a due date sort last.
	assert.Equal(t, 4, List(fixture(), columns, ListOptions{SortBy: "due"})[3].ID)
	assert.Equal(t, []int{2, 3, 1, 4}, ids(List(fixture(), columns, ListOptions{SortBy: "status"})))
}

func TestSortStatusOutsideColumnsLast(t *testing.T) {
	tasks := fixture()
	Sort(tasks, "status", false, []task.Status{task.StatusCompleted, task.StatusInProgress})
	assert.Equal(t, []int{1, 3}, ids(tasks[:2]))
}

func TestSummary(t *testing.T) {
	columns := []task.Status{task.StatusNotStarted, task.StatusInProgress, task.StatusCompleted}
	ov := Summary("Practice", columns, fixture(), today)

	assert.Equal(t, "Practice", ov.BoardName)
	assert.Equal(t, 4, ov.TotalTasks)
	assert.Equal(t, 1, ov.Overdue)
	assert.Equal(t, 1, ov.AwaitingAudit)
	require.Len(t, ov.Statuses, 3)
	assert.Equal(t, StatusSummary{Status: task.StatusInProgress, Count: 1, Overdue: 1}, ov.Statuses[1])
	assert.Equal(t, 1, ov.Statuses[2].Count)
}

func TestGroupBy(t *testing.T) {
	columns := task.AuditTargets()

	byWorker := GroupBy(fixture(), "worker", columns)
	require.Len(t, byWorker.Groups, 3)
	assert.Equal(t, "(unassigned)", byWorker.Groups[0].Key)
	assert.Equal(t, "alice", byWorker.Groups[1].Key)
	assert.Equal(t, 2, byWorker.Groups[1].Total)

	byFreq := GroupBy(fixture(), "frequency", columns)
	keys := make([]string, 0, len(byFreq.Groups))
	for _, g := range byFreq.Groups {
		keys = append(keys, g.Key)
	}
	assert.Equal(t, []string{"Weekly", "Monthly", "Quarterly", "Half-yearly"}, keys)
}

func TestParseIDs(t *testing.T) {
	got, err := ParseIDs("3, 1,3,,2")
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1, 2}, got)

	_, err = ParseIDs("1,x")
	assert.True(t, clierr.Is(err, clierr.InvalidTaskID))

	_, err = ParseIDs(" , ")
	assert.True(t, clierr.Is(err, clierr.InvalidTaskID))
}

func TestCompletionFor(t *testing.T) {
	all := fixture()
	assert.Equal(t, task.StatusCompletedLate, CompletionFor(all[0], today))
	assert.Equal(t, task.StatusCompleted, CompletionFor(all[2], today))
	assert.Equal(t, task.StatusCompleted, CompletionFor(all[3], today))
}
