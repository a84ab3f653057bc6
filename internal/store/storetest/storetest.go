// Package storetest is a conformance suite run against every store.Store
// backend.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiced-technology-gmbh/cadence/internal/date"
	"github.com/twiced-technology-gmbh/cadence/internal/history"
	"github.com/twiced-technology-gmbh/cadence/internal/recurrence"
	"github.com/twiced-technology-gmbh/cadence/internal/store"
	"github.com/twiced-technology-gmbh/cadence/internal/task"
)

// Opener returns a fresh, empty store. The suite closes it.
type Opener func(t *testing.T) store.Store

// Run exercises the store.Store contract against stores returned by open.
func Run(t *testing.T, open Opener) {
	t.Helper()
	tests := []struct {
		name string
		fn   func(*testing.T, store.Store)
	}{
		{"CreateAssignsIDs", testCreateAssignsIDs},
		{"RoundTripsFields", testRoundTripsFields},
		{"NotFound", testNotFound},
		{"UpdateStatus", testUpdateStatus},
		{"UpdateAudit", testUpdateAudit},
		{"SwapStatus", testSwapStatus},
		{"SwapStatusRace", testSwapStatusRace},
		{"HistoryNewestFirst", testHistoryNewestFirst},
		{"ListTasksOrdered", testListTasksOrdered},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := open(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

func newTask(title string) *task.Task {
	due := date.New(2024, time.March, 10)
	return &task.Task{
		Title:     title,
		Worker:    "alice",
		Client:    "Acme",
		Frequency: recurrence.Weekly,
		Params:    recurrence.WeeklyParams{DayOfWeek: "Friday"},
		Due:       &due,
		Status:    task.StatusNotStarted,
		Created:   time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC),
		Remarks:   "bring receipts",
	}
}

func testCreateAssignsIDs(t *testing.T, s store.Store) {
	ctx := context.Background()
	a, b := newTask("a"), newTask("b")
	require.NoError(t, s.CreateTask(ctx, a))
	require.NoError(t, s.CreateTask(ctx, b))
	assert.Positive(t, a.ID)
	assert.Greater(t, b.ID, a.ID)
	assert.Equal(t, 1, a.Revision)
	assert.Equal(t, task.AuditPending, a.AuditStatus)
}

func testRoundTripsFields(t *testing.T, s store.Store) {
	ctx := context.Background()
	in := newTask("Payroll")
	parent := 42
	in.Parent = &parent
	require.NoError(t, s.CreateTask(ctx, in))

	got, err := s.GetTask(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, "Payroll", got.Title)
	assert.Equal(t, "alice", got.Worker)
	assert.Equal(t, "Acme", got.Client)
	assert.Equal(t, recurrence.Weekly, got.Frequency)
	assert.Equal(t, recurrence.WeeklyParams{DayOfWeek: "Friday"}, got.Params)
	require.NotNil(t, got.Due)
	assert.Equal(t, "2024-03-10", got.Due.String())
	assert.Equal(t, task.StatusNotStarted, got.Status)
	assert.Nil(t, got.CompletedAt)
	require.NotNil(t, got.Parent)
	assert.Equal(t, 42, *got.Parent)
	assert.Contains(t, got.Remarks, "bring receipts")
	assert.True(t, got.Created.Equal(in.Created))
}

func testNotFound(t *testing.T, s store.Store) {
	ctx := context.Background()
	_, err := s.GetTask(ctx, 999)
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.UpdateStatus(ctx, 999, store.StatusChange{Status: task.StatusFiled, At: time.Now()})
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.UpdateAudit(ctx, 999, store.AuditChange{Status: task.StatusAudited, At: time.Now()})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testUpdateStatus(t *testing.T, s store.Store) {
	ctx := context.Background()
	tk := newTask("VAT")
	require.NoError(t, s.CreateTask(ctx, tk))

	done := time.Date(2024, time.March, 9, 15, 0, 0, 0, time.UTC)
	got, err := s.UpdateStatus(ctx, tk.ID, store.StatusChange{Status: task.StatusCompleted, CompletedAt: &done, At: done})
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, got.Status)
	assert.Equal(t, 2, got.Revision)

	reread, err := s.GetTask(ctx, tk.ID)
	require.NoError(t, err)
	require.NotNil(t, reread.CompletedAt)
	assert.True(t, reread.CompletedAt.Equal(done))
	assert.True(t, reread.Updated.Equal(done))

	got, err = s.UpdateStatus(ctx, tk.ID, store.StatusChange{Status: task.StatusInProgress, At: done})
	require.NoError(t, err)
	assert.Nil(t, got.CompletedAt)
	assert.Equal(t, 3, got.Revision)
}

func testUpdateAudit(t *testing.T, s store.Store) {
	ctx := context.Background()
	tk := newTask("Audit me")
	require.NoError(t, s.CreateTask(ctx, tk))

	done := time.Date(2024, time.March, 9, 15, 0, 0, 0, time.UTC)
	_, err := s.UpdateAudit(ctx, tk.ID, store.AuditChange{
		Status:       task.StatusAudited,
		AuditStatus:  task.AuditApproved,
		AuditRemarks: "looks right",
		Auditor:      "bob",
		CompletedAt:  &done,
		At:           done,
	})
	require.NoError(t, err)

	got, err := s.GetTask(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusAudited, got.Status)
	assert.Equal(t, task.AuditApproved, got.AuditStatus)
	assert.Equal(t, "looks right", got.AuditRemarks)
	assert.Equal(t, "bob", got.Auditor)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, got.CompletedAt.Equal(done))
}

func testSwapStatus(t *testing.T, s store.Store) {
	sw, ok := s.(store.Swapper)
	require.True(t, ok, "store does not implement store.Swapper")

	ctx := context.Background()
	tk := newTask("CAS")
	require.NoError(t, s.CreateTask(ctx, tk))

	now := time.Now().UTC()
	got, swapped, err := sw.SwapStatus(ctx, tk.ID, tk.Revision, store.StatusChange{Status: task.StatusFiled, At: now})
	require.NoError(t, err)
	require.True(t, swapped)
	assert.Equal(t, task.StatusFiled, got.Status)

	got, swapped, err = sw.SwapStatus(ctx, tk.ID, tk.Revision, store.StatusChange{Status: task.StatusOnHold, At: now})
	require.NoError(t, err)
	assert.False(t, swapped)
	assert.Nil(t, got)

	_, _, err = sw.SwapStatus(ctx, 999, 1, store.StatusChange{Status: task.StatusOnHold, At: now})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testSwapStatusRace(t *testing.T, s store.Store) {
	sw, ok := s.(store.Swapper)
	require.True(t, ok)

	ctx := context.Background()
	tk := newTask("race")
	require.NoError(t, s.CreateTask(ctx, tk))

	const racers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			now := time.Now().UTC()
			_, swapped, err := sw.SwapStatus(ctx, tk.ID, tk.Revision,
				store.StatusChange{Status: task.StatusCompleted, CompletedAt: &now, At: now})
			assert.NoError(t, err)
			if swapped {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func testHistoryNewestFirst(t *testing.T, s store.Store) {
	ctx := context.Background()
	a, b := newTask("a"), newTask("b")
	require.NoError(t, s.CreateTask(ctx, a))
	require.NoError(t, s.CreateTask(ctx, b))

	base := time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)
	first := history.New(a.ID, "u1", "Alice", history.Created, "first", base)
	second := history.New(a.ID, "", "", history.StatusUpdated, "second", base.Add(time.Minute))
	tie := history.New(a.ID, "", "", history.StatusUpdated, "tie", base.Add(time.Minute))
	other := history.New(b.ID, "", "", history.StatusUpdated, "other", base.Add(time.Hour))
	for _, e := range []history.Entry{first, second, other, tie} {
		require.NoError(t, s.AppendHistory(ctx, e))
	}

	entries, err := s.History(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "tie", entries[0].Details)
	assert.Equal(t, "second", entries[1].Details)
	assert.Equal(t, "first", entries[2].Details)
	assert.Equal(t, first.ID, entries[2].ID)
	assert.Equal(t, "u1", entries[2].UserID)
	assert.Equal(t, "Alice", entries[2].UserName)
	assert.Equal(t, history.Created, entries[2].Action)
	assert.True(t, entries[2].CreatedAt.Equal(base))

	none, err := s.History(ctx, 999)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testListTasksOrdered(t *testing.T, s store.Store) {
	ctx := context.Background()
	for _, title := range []string{"one", "two", "three"} {
		require.NoError(t, s.CreateTask(ctx, newTask(title)))
	}
	tasks, err := s.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "one", tasks[0].Title)
	assert.Equal(t, "three", tasks[2].Title)
	assert.Less(t, tasks[0].ID, tasks[1].ID)
}
