package lifecycle

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiced-technology-gmbh/cadence/internal/clierr"
	"github.com/twiced-technology-gmbh/cadence/internal/date"
	"github.com/twiced-technology-gmbh/cadence/internal/history"
	"github.com/twiced-technology-gmbh/cadence/internal/identity"
	"github.com/twiced-technology-gmbh/cadence/internal/recurrence"
	"github.com/twiced-technology-gmbh/cadence/internal/store"
	"github.com/twiced-technology-gmbh/cadence/internal/store/memstore"
	"github.com/twiced-technology-gmbh/cadence/internal/task"
)

var fixedNow = time.Date(2024, time.March, 12, 10, 30, 0, 0, time.UTC)

func newManager(t *testing.T, s store.Store, opts ...Option) *Manager {
	t.Helper()
	return New(s, append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)...)
}

// seed stores a task directly, bypassing CreateTask's due-date seeding.
func seed(t *testing.T, s store.Store, freq recurrence.Frequency, p recurrence.Params, due *date.Date) *task.Task {
	t.Helper()
	tk := &task.Task{Title: "Payroll", Worker: "alice", Client: "Acme", Frequency: freq, Params: p, Due: due, Remarks: "notes"}
	require.NoError(t, s.CreateTask(context.Background(), tk))
	return tk
}

func datePtr(y int, m time.Month, d int) *date.Date {
	v := date.New(y, m, d)
	return &v
}

func TestCompletingDailySpawnsOneSuccessor(t *testing.T) {
	s := memstore.New()
	m := newManager(t, s)
	ctx := context.Background()
	parent := seed(t, s, recurrence.Daily, nil, datePtr(2024, time.March, 10))

	tr, err := m.TransitionStatus(ctx, parent.ID, "Completed", nil)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, tr.Task.Status)
	require.NotNil(t, tr.Task.CompletedAt)
	assert.True(t, tr.Task.CompletedAt.Equal(fixedNow))

	succ := tr.Successor
	require.NotNil(t, succ)
	assert.Equal(t, "2024-03-11", succ.Due.String())
	assert.Equal(t, task.StatusNotStarted, succ.Status)
	assert.Equal(t, task.AuditPending, succ.AuditStatus)
	require.NotNil(t, succ.Parent)
	assert.Equal(t, parent.ID, *succ.Parent)
	assert.Equal(t, "Payroll", succ.Title)
	assert.Equal(t, "alice", succ.Worker)
	assert.Equal(t, "Acme", succ.Client)
	assert.Equal(t, "notes", succ.Remarks)
	assert.Nil(t, succ.CompletedAt)

	entries, err := m.History(ctx, succ.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, history.AutoGenerated, entries[0].Action)
	assert.Equal(t, "Task auto-generated from recurring parent task #1", entries[0].Details)
	assert.Empty(t, entries[0].UserID)
	assert.Equal(t, history.SystemName, entries[0].Actor())

	parentHistory, err := m.History(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, parentHistory, 1)
	assert.Equal(t, history.StatusUpdated, parentHistory[0].Action)
	assert.Equal(t, "Status changed to Completed", parentHistory[0].Details)

	all, err := m.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCompletedLateSpawnsToo(t *testing.T) {
	s := memstore.New()
	m := newManager(t, s)
	parent := seed(t, s, recurrence.Weekly, recurrence.WeeklyParams{DayOfWeek: "Sunday"}, datePtr(2024, time.March, 10))

	tr, err := m.TransitionStatus(context.Background(), parent.ID, "completed late", nil)
	require.NoError(t, err)
	require.NotNil(t, tr.Successor)
	assert.Equal(t, "2024-03-17", tr.Successor.Due.String())
	assert.Equal(t, recurrence.WeeklyParams{DayOfWeek: "Sunday"}, tr.Successor.Params)
}

func TestSpawnBaseFallsBackToCompletionTime(t *testing.T) {
	s := memstore.New()
	m := newManager(t, s)
	parent := seed(t, s, recurrence.Monthly, recurrence.MonthlyParams{DateOfMonth: 31}, nil)

	tr, err := m.TransitionStatus(context.Background(), parent.ID, "Completed", nil)
	require.NoError(t, err)
	require.NotNil(t, tr.Successor)
	assert.Equal(t, "2024-04-30", tr.Successor.Due.String())
}

func TestOneTimeNeverSpawns(t *testing.T) {
	s := memstore.New()
	m := newManager(t, s)
	ctx := context.Background()
	tk := seed(t, s, recurrence.OneTime, recurrence.OneTimeParams{}, datePtr(2024, time.March, 10))

	tr, err := m.TransitionStatus(ctx, tk.ID, "Completed", nil)
	require.NoError(t, err)
	assert.Nil(t, tr.Successor)

	all, err := m.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	entries, err := m.History(ctx, tk.ID)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotEqual(t, history.AutoGenerated, e.Action)
	}
}

func TestNonCompletionClearsCompletedAt(t *testing.T) {
	s := memstore.New()
	m := newManager(t, s)
	ctx := context.Background()
	tk := seed(t, s, recurrence.OneTime, nil, nil)

	_, err := m.TransitionStatus(ctx, tk.ID, "Completed", nil)
	require.NoError(t, err)
	tr, err := m.TransitionStatus(ctx, tk.ID, "In Progress", nil)
	require.NoError(t, err)
	assert.Nil(t, tr.Task.CompletedAt)
	assert.Nil(t, tr.Successor)
	require.NoError(t, task.CheckCompletion(tr.Task))
}

func TestTransitionStatusValidation(t *testing.T) {
	s := memstore.New()
	m := newManager(t, s)
	ctx := context.Background()
	tk := seed(t, s, recurrence.Daily, nil, nil)

	_, err := m.TransitionStatus(ctx, tk.ID, "Audited", nil)
	assert.True(t, clierr.Is(err, clierr.InvalidStatus))

	_, err = m.TransitionStatus(ctx, tk.ID, "Done", nil)
	assert.True(t, clierr.Is(err, clierr.InvalidStatus))

	_, err = m.TransitionStatus(ctx, 404, "Filed", nil)
	assert.True(t, clierr.Is(err, clierr.TaskNotFound))
}

func TestStatusHistoryRecordsActor(t *testing.T) {
	s := memstore.New()
	m := newManager(t, s)
	ctx := context.Background()
	tk := seed(t, s, recurrence.OneTime, nil, nil)

	_, err := m.TransitionStatus(ctx, tk.ID, "Filed", &identity.Actor{ID: "u1", Name: "Alice"})
	require.NoError(t, err)

	entries, err := m.History(ctx, tk.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "u1", entries[0].UserID)
	assert.Equal(t, "Alice", entries[0].UserName)
	assert.Equal(t, "Status changed to Filed", entries[0].Details)
	assert.NotEmpty(t, entries[0].ID)
}

func TestAuditReopenedNeverSpawns(t *testing.T) {
	s := memstore.New()
	m := newManager(t, s)
	ctx := context.Background()
	tk := seed(t, s, recurrence.Daily, nil, datePtr(2024, time.March, 10))

	_, err := m.TransitionStatus(ctx, tk.ID, "Completed", nil)
	require.NoError(t, err)
	before, err := m.List(ctx)
	require.NoError(t, err)

	updated, err := m.TransitionAudit(ctx, tk.ID, "Completed", "Reopened", "recheck totals", &identity.Actor{ID: "a1", Name: "Auditor"})
	require.NoError(t, err)
	assert.Equal(t, task.AuditReopened, updated.AuditStatus)
	assert.Equal(t, "recheck totals", updated.AuditRemarks)
	assert.Equal(t, "Auditor", updated.Auditor)

	after, err := m.List(ctx)
	require.NoError(t, err)
	assert.Len(t, after, len(before))

	entries, err := m.History(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, history.AuditUpdated, entries[0].Action)
	assert.Equal(t, "Audit status changed to Reopened", entries[0].Details)
}

func TestAuditCompletionTimestamp(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	tk := seed(t, s, recurrence.OneTime, nil, nil)

	completedAt := fixedNow.Add(-48 * time.Hour)
	_, err := s.UpdateStatus(ctx, tk.ID, store.StatusChange{Status: task.StatusCompleted, CompletedAt: &completedAt, At: completedAt})
	require.NoError(t, err)

	m := newManager(t, s)
	approved, err := m.TransitionAudit(ctx, tk.ID, "Audited", "Approved", "", nil)
	require.NoError(t, err)
	assert.Equal(t, task.StatusAudited, approved.Status)
	require.NotNil(t, approved.CompletedAt)
	assert.True(t, approved.CompletedAt.Equal(completedAt))

	reopened, err := m.TransitionAudit(ctx, tk.ID, "In Progress", "Reopened", "missing page", nil)
	require.NoError(t, err)
	assert.Nil(t, reopened.CompletedAt)
	require.NoError(t, task.CheckCompletion(reopened))
}

func TestAuditRequiresCompletedTask(t *testing.T) {
	s := memstore.New()
	m := newManager(t, s)
	ctx := context.Background()
	tk := seed(t, s, recurrence.OneTime, nil, nil)

	_, err := m.TransitionAudit(ctx, tk.ID, "Audited", "Approved", "", nil)
	assert.True(t, clierr.Is(err, clierr.StatusConflict))

	_, err = m.TransitionAudit(ctx, tk.ID, "Audited", "Maybe", "", nil)
	assert.True(t, clierr.Is(err, clierr.InvalidAuditStatus))

	_, err = m.TransitionAudit(ctx, tk.ID, "Archived", "Approved", "", nil)
	assert.True(t, clierr.Is(err, clierr.InvalidStatus))

	_, err = m.TransitionAudit(ctx, 99, "Audited", "Approved", "", nil)
	assert.True(t, clierr.Is(err, clierr.TaskNotFound))
}

func TestCreateTask(t *testing.T) {
	s := memstore.New()
	m := newManager(t, s)
	ctx := context.Background()

	weekly, err := m.CreateTask(ctx, NewTask{
		Title:     "  Weekly report ",
		Frequency: "weekly",
		Params:    recurrence.WeeklyParams{DayOfWeek: "Friday"},
	}, &identity.Actor{ID: "u1", Name: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "Weekly report", weekly.Title)
	assert.Equal(t, recurrence.Weekly, weekly.Frequency)
	assert.Equal(t, "2024-03-15", weekly.Due.String())
	assert.Equal(t, task.StatusNotStarted, weekly.Status)

	entries, err := m.History(ctx, weekly.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, history.Created, entries[0].Action)

	oneOff, err := m.CreateTask(ctx, NewTask{Title: "Incorporation", Params: recurrence.OneTimeParams{Date: "2024-05-01"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, recurrence.OneTime, oneOff.Frequency)
	assert.Equal(t, "2024-05-01", oneOff.Due.String())

	entries, err = m.History(ctx, oneOff.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)

	undated, err := m.CreateTask(ctx, NewTask{Title: "Someday", Frequency: "One Time"}, nil)
	require.NoError(t, err)
	assert.Nil(t, undated.Due)
}

func TestCreateTaskValidation(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, memstore.New())

	_, err := m.CreateTask(ctx, NewTask{Title: "  "}, nil)
	assert.True(t, clierr.Is(err, clierr.InvalidInput))

	_, err = m.CreateTask(ctx, NewTask{Title: "x", Frequency: "Fortnightly"}, nil)
	assert.True(t, clierr.Is(err, clierr.InvalidFrequency))

	// Lenient by default: a missing weekday falls back to +7 days.
	tk, err := m.CreateTask(ctx, NewTask{Title: "x", Frequency: "Weekly"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-19", tk.Due.String())

	strict := newManager(t, memstore.New(), WithStrictParams(true))
	_, err = strict.CreateTask(ctx, NewTask{Title: "x", Frequency: "Weekly"}, nil)
	assert.True(t, clierr.Is(err, clierr.InvalidFrequencyParams))
}

func TestCreateTaskUsesLocation(t *testing.T) {
	// 22:00 UTC on the 12th is already the 13th in Auckland.
	late := time.Date(2024, time.March, 12, 22, 0, 0, 0, time.UTC)
	loc, err := time.LoadLocation("Pacific/Auckland")
	require.NoError(t, err)
	m := New(memstore.New(), WithClock(func() time.Time { return late }), WithLocation(loc))

	tk, err := m.CreateTask(context.Background(), NewTask{Title: "x", Frequency: "Daily"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-14", tk.Due.String())
	assert.Equal(t, "2024-03-13", m.Today().String())
}

func TestHistoryIsolatedAndNewestFirst(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	a := seed(t, s, recurrence.OneTime, nil, nil)
	b := seed(t, s, recurrence.OneTime, nil, nil)

	tick := fixedNow
	m := New(s, WithClock(func() time.Time { tick = tick.Add(time.Minute); return tick }))
	for _, st := range []string{"In Progress", "Filed", "Pending"} {
		_, err := m.TransitionStatus(ctx, a.ID, st, nil)
		require.NoError(t, err)
	}
	_, err := m.TransitionStatus(ctx, b.ID, "On Hold", nil)
	require.NoError(t, err)

	var details []string
	for e, err := range m.HistorySeq(ctx, a.ID) {
		require.NoError(t, err)
		details = append(details, e.Details)
	}
	assert.Equal(t, []string{"Status changed to Pending", "Status changed to Filed", "Status changed to In Progress"}, details)

	// The sequence is restartable and stops early on request.
	count := 0
	for range m.HistorySeq(ctx, a.ID) {
		count++
		break
	}
	assert.Equal(t, 1, count)

	for _, err := range m.HistorySeq(ctx, 999) {
		assert.True(t, clierr.Is(err, clierr.TaskNotFound))
	}
}

type failingHistory struct {
	*memstore.Store
}

func (failingHistory) AppendHistory(context.Context, history.Entry) error {
	return errors.New("history table locked")
}

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Info(string, ...any)  {}
func (l *recordingLogger) Error(string, ...any) {}
func (l *recordingLogger) Warn(format string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, format)
}

func TestHistoryFailureDoesNotFailTransition(t *testing.T) {
	inner := memstore.New()
	s := failingHistory{inner}
	logger := &recordingLogger{}
	m := newManager(t, s, WithLogger(logger))
	tk := seed(t, inner, recurrence.Daily, nil, datePtr(2024, time.March, 10))

	tr, err := m.TransitionStatus(context.Background(), tk.ID, "Completed", nil)
	require.NoError(t, err)
	assert.NotNil(t, tr.Successor)
	assert.Len(t, logger.warns, 2)
}

type brokenStore struct {
	store.Store
}

func (brokenStore) GetTask(context.Context, int) (*task.Task, error) {
	return nil, errors.New("connection refused")
}

func TestStoreFailureIsWrapped(t *testing.T) {
	m := newManager(t, brokenStore{memstore.New()})
	_, err := m.TransitionStatus(context.Background(), 1, "Filed", nil)
	require.Error(t, err)
	assert.True(t, clierr.Is(err, clierr.StoreFailure))
	assert.Contains(t, err.Error(), "connection refused")
}

// plainStore hides SwapStatus so the manager falls back to UpdateStatus.
type plainStore struct {
	store.Store
}

func TestFallbackWithoutSwapper(t *testing.T) {
	inner := memstore.New()
	m := newManager(t, plainStore{inner})
	tk := seed(t, inner, recurrence.Daily, nil, datePtr(2024, time.March, 10))

	tr, err := m.TransitionStatus(context.Background(), tk.ID, "Completed", nil)
	require.NoError(t, err)
	assert.NotNil(t, tr.Successor)
}

// barrierStore holds the first n GetTask calls until all n have read, so
// every caller sees the same revision.
type barrierStore struct {
	*memstore.Store
	n        int32
	arrivals atomic.Int32
	release  chan struct{}
}

func (b *barrierStore) GetTask(ctx context.Context, id int) (*task.Task, error) {
	t, err := b.Store.GetTask(ctx, id)
	k := b.arrivals.Add(1)
	if k == b.n {
		close(b.release)
	}
	if k <= b.n {
		<-b.release
	}
	return t, err
}

func TestConcurrentCompletionSpawnsOnce(t *testing.T) {
	const racers = 6
	s := &barrierStore{Store: memstore.New(), n: racers, release: make(chan struct{})}
	m := newManager(t, s)
	tk := seed(t, s.Store, recurrence.Daily, nil, datePtr(2024, time.March, 10))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		spawned   int
		conflicts int
	)
	for range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr, err := m.TransitionStatus(context.Background(), tk.ID, "Completed", nil)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case clierr.Is(err, clierr.StatusConflict):
				conflicts++
			case err == nil && tr.Successor != nil:
				spawned++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, spawned)
	assert.Equal(t, racers-1, conflicts)

	all, err := s.ListTasks(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGetWarnsOnInconsistentCompletion(t *testing.T) {
	s := memstore.New()
	logger := &recordingLogger{}
	m := newManager(t, s, WithLogger(logger))

	tk := &task.Task{Title: "Payroll", Frequency: recurrence.OneTime, Status: task.StatusCompleted}
	require.NoError(t, s.CreateTask(context.Background(), tk))

	got, err := m.Get(context.Background(), tk.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, got.Status)
	assert.Len(t, logger.warns, 1)

	_, err = m.TransitionStatus(context.Background(), tk.ID, "Completed", nil)
	require.NoError(t, err)
	after, err := m.Get(context.Background(), tk.ID)
	require.NoError(t, err)
	assert.NotNil(t, after.CompletedAt)
	assert.Len(t, logger.warns, 2, "reads after the rewrite are consistent")
}
