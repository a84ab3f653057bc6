package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiced-technology-gmbh/cadence/internal/history"
	"github.com/twiced-technology-gmbh/cadence/internal/identity"
	"github.com/twiced-technology-gmbh/cadence/internal/lifecycle"
	"github.com/twiced-technology-gmbh/cadence/internal/recurrence"
	"github.com/twiced-technology-gmbh/cadence/internal/store/memstore"
	"github.com/twiced-technology-gmbh/cadence/internal/task"
)

var fixedNow = time.Date(2024, time.March, 12, 10, 30, 0, 0, time.UTC)

func newTestBoard(t *testing.T, tasks ...lifecycle.NewTask) (*Board, *lifecycle.Manager) {
	t.Helper()
	mgr := lifecycle.New(memstore.New(), lifecycle.WithClock(func() time.Time { return fixedNow }))
	for _, in := range tasks {
		_, err := mgr.CreateTask(context.Background(), in, nil)
		require.NoError(t, err)
	}
	b := NewBoard(mgr, "Practice", task.AuditTargets(), &identity.Actor{ID: "u1", Name: "Alice"})
	b.Update(tea.WindowSizeMsg{Width: 200, Height: 40})
	return b, mgr
}

func press(t *testing.T, b *Board, k string) {
	t.Helper()
	msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	if k == "enter" {
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	}
	_, cmd := b.Update(msg)
	if cmd != nil {
		b.Update(cmd())
	}
}

func TestNewBoardBuildsColumns(t *testing.T) {
	b, _ := newTestBoard(t,
		lifecycle.NewTask{Title: "Payroll", Frequency: "Daily"},
		lifecycle.NewTask{Title: "VAT", Frequency: "Quarterly"},
	)
	require.Len(t, b.columns, len(task.AuditTargets()))
	assert.Equal(t, task.StatusNotStarted, b.columns[0].status)
	assert.Len(t, b.columns[0].tasks, 2)
	// Sorted by due date: the daily task comes first.
	assert.Equal(t, "Payroll", b.selectedTask().Title)
	assert.Contains(t, b.View(), "Not Started (2)")
}

func TestCompleteKeySpawnsSuccessor(t *testing.T) {
	b, mgr := newTestBoard(t, lifecycle.NewTask{Title: "Payroll", Frequency: "Daily"})

	press(t, b, "c")
	require.NoError(t, b.err)
	assert.Contains(t, b.flash, "spawned #2")

	parent, err := mgr.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, parent.Status)

	succ, err := mgr.Get(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-14", succ.Due.String())
	assert.Len(t, b.columns[0].tasks, 1)
}

func TestApproveAndReopenKeys(t *testing.T) {
	b, mgr := newTestBoard(t, lifecycle.NewTask{Title: "Filing", Frequency: "One Time"})

	press(t, b, "a")
	assert.Error(t, b.err, "approving an unfinished task is rejected")

	press(t, b, "c")
	require.NoError(t, b.err)
	b.activeCol = 6 // Completed
	b.clampRow()
	press(t, b, "a")
	require.NoError(t, b.err)

	got, err := mgr.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, task.StatusAudited, got.Status)
	assert.Equal(t, task.AuditApproved, got.AuditStatus)
	assert.Equal(t, "Alice", got.Auditor)

	b.activeCol = 9 // Audited
	b.clampRow()
	press(t, b, "r")
	got, err = mgr.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, task.StatusInProgress, got.Status)
	assert.Equal(t, task.AuditReopened, got.AuditStatus)
}

func TestCycleKey(t *testing.T) {
	b, mgr := newTestBoard(t, lifecycle.NewTask{Title: "Payroll", Frequency: "Weekly",
		Params: recurrence.WeeklyParams{DayOfWeek: "Friday"}})

	press(t, b, "s")
	got, err := mgr.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, task.StatusInProgress, got.Status)
}

func TestHistoryView(t *testing.T) {
	b, _ := newTestBoard(t, lifecycle.NewTask{Title: "Payroll", Frequency: "Daily"})
	press(t, b, "s")
	b.activeCol = 1 // In Progress
	b.clampRow()

	press(t, b, "enter")
	require.Equal(t, viewHistory, b.view)
	require.NotEmpty(t, b.histEntries)
	assert.Equal(t, history.StatusUpdated, b.histEntries[0].Action)
	assert.Contains(t, b.View(), "Status changed to In Progress")

	_, _ = b.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, viewBoard, b.view)
}

func TestRelativeDays(t *testing.T) {
	assert.Equal(t, "today", relativeDays(0))
	assert.Equal(t, "in 3d", relativeDays(3))
	assert.Equal(t, "2w ago", relativeDays(-14))
	assert.Equal(t, "in 1y", relativeDays(400))
}
