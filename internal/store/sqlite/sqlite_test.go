package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiced-technology-gmbh/cadence/internal/recurrence"
	"github.com/twiced-technology-gmbh/cadence/internal/store"
	"github.com/twiced-technology-gmbh/cadence/internal/store/storetest"
	"github.com/twiced-technology-gmbh/cadence/internal/task"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := New(filepath.Join(t.TempDir(), "cadence.db"))
		require.NoError(t, err)
		return s
	})
}

func TestDoubleEncodedParamsAreDecoded(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "cadence.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tasks (title, frequency, params, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		"legacy", "Monthly", `"{\"dateOfMonth\":\"31\"}"`, "Not Started", time.Now().UTC(), time.Now().UTC())
	require.NoError(t, err)

	tasks, err := s.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, recurrence.MonthlyParams{DateOfMonth: 31}, tasks[0].Params)
	assert.Equal(t, task.AuditPending, tasks[0].AuditStatus)
	assert.Nil(t, tasks[0].Due)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cadence.db")
	s, err := New(path)
	require.NoError(t, err)
	tk := &task.Task{Title: "persisted", Frequency: recurrence.Daily}
	require.NoError(t, s.CreateTask(context.Background(), tk))
	require.NoError(t, s.Close())

	s, err = New(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	got, err := s.GetTask(context.Background(), tk.ID)
	require.NoError(t, err)
	assert.Equal(t, "persisted", got.Title)
	assert.Equal(t, recurrence.DailyParams{}, got.Params)
}
