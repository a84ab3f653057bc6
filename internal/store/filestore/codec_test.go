package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiced-technology-gmbh/cadence/internal/date"
	"github.com/twiced-technology-gmbh/cadence/internal/recurrence"
	"github.com/twiced-technology-gmbh/cadence/internal/task"
)

func TestTaskFileRoundTrip(t *testing.T) {
	due := date.New(2024, time.April, 15)
	in := &task.Task{
		ID:        7,
		Title:     "VAT return",
		Client:    "Acme",
		Frequency: recurrence.Monthly,
		Params:    recurrence.MonthlyParams{DateOfMonth: 15},
		Due:       &due,
		Status:    task.StatusNotStarted,
		Remarks:   "Collect invoices first.\n\n",
	}
	path := filepath.Join(t.TempDir(), taskFileName(in.ID, in.Title))
	require.NoError(t, writeTaskFile(path, in))

	got, err := readTaskFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Collect invoices first.\n", got.Remarks)
	assert.Equal(t, path, got.File)
	assert.Equal(t, recurrence.MonthlyParams{DateOfMonth: 15}, got.Params)
	assert.Equal(t, "2024-04-15", got.Due.String())

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(path), ".*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestDecodeTask(t *testing.T) {
	tk, err := decodeTask([]byte("---\ntitle: eof fence\n---"))
	require.NoError(t, err)
	assert.Equal(t, "eof fence", tk.Title)
	assert.Empty(t, tk.Remarks)

	_, err = decodeTask([]byte("title: nope\n"))
	require.ErrorIs(t, err, errNoFrontmatter)

	_, err = decodeTask([]byte("---\ntitle: open\n"))
	require.ErrorIs(t, err, errUnclosed)
}

func TestDecodeTaskToleratesParamShapes(t *testing.T) {
	tests := []struct {
		name   string
		params string
		want   recurrence.Params
	}{
		{"mapping", "params:\n  dayOfWeek: Monday\n", recurrence.WeeklyParams{DayOfWeek: "Monday"}},
		{"json text", `params: '{"dayOfWeek":"Monday"}'` + "\n", recurrence.WeeklyParams{DayOfWeek: "Monday"}},
		{"unparseable text", "params: not json\n", recurrence.WeeklyParams{}},
		{"sequence", "params: [1, 2]\n", recurrence.WeeklyParams{}},
		{"null", "params: null\n", recurrence.WeeklyParams{}},
		{"missing", "", recurrence.WeeklyParams{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tk, err := decodeTask([]byte("---\nid: 1\ntitle: payroll\nfrequency: Weekly\n" + tt.params + "---\n"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, tk.Params)
		})
	}
}

func TestStoreReadsTextParams(t *testing.T) {
	s, err := New(t.TempDir(), "tasks")
	require.NoError(t, err)
	body := "---\nid: 1\ntitle: payroll\nfrequency: Weekly\nparams: '{\"dayOfWeek\":\"Monday\"}'\nstatus: Not Started\n---\n"
	require.NoError(t, os.WriteFile(filepath.Join(s.TasksDir(), "001-payroll.md"), []byte(body), 0o600))

	got, err := s.GetTask(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, recurrence.WeeklyParams{DayOfWeek: "Monday"}, got.Params)

	tasks, err := s.ListTasks(context.Background())
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestTaskFileName(t *testing.T) {
	assert.Equal(t, "007-q1-payroll-filing.md", taskFileName(7, "Q1 Payroll Filing!"))
	assert.Equal(t, "1234-task.md", taskFileName(1234, "¡¿!"))

	long := taskFileName(1, "a very long obligation title that keeps going past the limit")
	assert.Equal(t, "001-a-very-long-obligation-title-that-keeps-going.md", long)
}

func TestScanTasks(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"001-a.md", "0042-b.md", "notes.md", "x-1.md", "003-c.txt", ".001-a.md.123"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}

	index, err := scanTasks(dir)
	require.NoError(t, err)
	assert.Equal(t, map[int]string{
		1:  filepath.Join(dir, "001-a.md"),
		42: filepath.Join(dir, "0042-b.md"),
	}, index)

	index, err = scanTasks(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Empty(t, index)
}
