// Package lifecycle applies status and audit transitions to tasks, records
// their history, and spawns the next occurrence of a recurring task when
// it is completed.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/twiced-technology-gmbh/cadence/internal/clierr"
	"github.com/twiced-technology-gmbh/cadence/internal/date"
	"github.com/twiced-technology-gmbh/cadence/internal/history"
	"github.com/twiced-technology-gmbh/cadence/internal/identity"
	"github.com/twiced-technology-gmbh/cadence/internal/logbook"
	"github.com/twiced-technology-gmbh/cadence/internal/recurrence"
	"github.com/twiced-technology-gmbh/cadence/internal/store"
	"github.com/twiced-technology-gmbh/cadence/internal/task"
)

// Manager runs task operations against a store.
type Manager struct {
	store  store.Store
	now    func() time.Time
	loc    *time.Location
	log    logbook.Logger
	strict bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLocation sets the zone that decides which calendar day "now" falls on.
func WithLocation(loc *time.Location) Option {
	return func(m *Manager) {
		if loc != nil {
			m.loc = loc
		}
	}
}

// WithLogger sets the operational logger.
func WithLogger(l logbook.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithStrictParams makes CreateTask reject recurrence parameters that do
// not fit their frequency instead of falling back to defaults.
func WithStrictParams(strict bool) Option {
	return func(m *Manager) { m.strict = strict }
}

// New returns a Manager over s.
func New(s store.Store, opts ...Option) *Manager {
	m := &Manager{store: s, now: time.Now, loc: time.UTC, log: logbook.Discard}
	for _, o := range opts {
		o(m)
	}
	return m
}

// NewTask is the input of CreateTask.
type NewTask struct {
	Title     string
	Worker    string
	Client    string
	Frequency string
	Params    recurrence.Params
	Remarks   string
}

// Transition is the outcome of a status change. Successor is the task
// spawned for the next occurrence, or nil.
type Transition struct {
	Task      *task.Task `json:"task"`
	Successor *task.Task `json:"successor,omitempty"`
}

// Today returns the current calendar day in the manager's zone.
func (m *Manager) Today() date.Date {
	return date.FromTime(m.now().In(m.loc))
}

// Location returns the zone calendar days are taken in.
func (m *Manager) Location() *time.Location {
	return m.loc
}

// Get returns task id. A stored completion time that disagrees with the
// status (a hand-edited task file, say) is logged; the next transition
// rewrites it.
func (m *Manager) Get(ctx context.Context, id int) (*task.Task, error) {
	t, err := m.store.GetTask(ctx, id)
	if err != nil {
		return nil, storeErr(err, id, "loading task")
	}
	if err := task.CheckCompletion(t); err != nil {
		m.log.Warn("%v", err)
	}
	return t, nil
}

// List returns every task ordered by id.
func (m *Manager) List(ctx context.Context) ([]*task.Task, error) {
	tasks, err := m.store.ListTasks(ctx)
	if err != nil {
		return nil, storeErr(err, 0, "listing tasks")
	}
	return tasks, nil
}

// CreateTask validates in and persists a new task in Not Started. A
// recurring task is due on the first occurrence after today; a one-off
// task is due on its params date, if any.
func (m *Manager) CreateTask(ctx context.Context, in NewTask, actor *identity.Actor) (*task.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, clierr.New(clierr.InvalidInput, "title is required")
	}
	freq, err := task.ValidateFrequency(in.Frequency)
	if err != nil {
		return nil, err
	}
	params := recurrence.Normalize(freq, in.Params)
	if m.strict {
		if err := task.ValidateParams(freq, params); err != nil {
			return nil, err
		}
	}

	now := m.now()
	t := &task.Task{
		Title:       title,
		Worker:      strings.TrimSpace(in.Worker),
		Client:      strings.TrimSpace(in.Client),
		Frequency:   freq,
		Params:      params,
		Status:      task.StatusNotStarted,
		AuditStatus: task.AuditPending,
		Remarks:     in.Remarks,
		Created:     now,
		Updated:     now,
	}
	if freq.Recurs() {
		due := recurrence.NextDueDate(now.In(m.loc), freq, params)
		t.Due = &due
	} else if p, ok := params.(recurrence.OneTimeParams); ok && p.Date != "" {
		if due, err := date.Parse(p.Date); err == nil {
			t.Due = &due
		}
	}

	if err := m.store.CreateTask(ctx, t); err != nil {
		return nil, storeErr(err, 0, "creating task")
	}
	if actor != nil {
		m.appendHistory(ctx, history.New(t.ID, actor.ID, actor.DisplayName(), history.Created, history.CreatedDetails, now))
	}
	m.log.Info("created task #%d %q (%s)", t.ID, t.Title, t.Frequency)
	return t, nil
}

// TransitionStatus moves task id to status. Completing a recurring task
// spawns its next occurrence. If spawning fails the status change stays
// persisted and the returned Transition carries the updated task alongside
// the error.
func (m *Manager) TransitionStatus(ctx context.Context, id int, status string, actor *identity.Actor) (*Transition, error) {
	st, err := task.ValidateStatus(status)
	if err != nil {
		return nil, err
	}
	current, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := m.now()
	change := store.StatusChange{Status: st, CompletedAt: task.CompletedAtFor(st, now), At: now}
	updated, err := m.writeStatus(ctx, current, change)
	if err != nil {
		return nil, err
	}

	userID, userName := actorFields(actor)
	m.appendHistory(ctx, history.New(id, userID, userName, history.StatusUpdated, history.StatusDetails(string(st)), now))
	m.log.Info("task #%d status %s -> %s", id, current.Status, st)

	tr := &Transition{Task: updated}
	if !st.IsCompletion() || !updated.Frequency.Recurs() {
		return tr, nil
	}
	succ, err := m.spawn(ctx, updated, now)
	if err != nil {
		return tr, err
	}
	tr.Successor = succ
	return tr, nil
}

// writeStatus applies change only if the task is still at the revision
// that was read, when the store supports it.
func (m *Manager) writeStatus(ctx context.Context, current *task.Task, change store.StatusChange) (*task.Task, error) {
	sw, ok := m.store.(store.Swapper)
	if !ok {
		t, err := m.store.UpdateStatus(ctx, current.ID, change)
		if err != nil {
			return nil, storeErr(err, current.ID, "updating status")
		}
		return t, nil
	}

	t, swapped, err := sw.SwapStatus(ctx, current.ID, current.Revision, change)
	if err != nil {
		return nil, storeErr(err, current.ID, "updating status")
	}
	if !swapped {
		m.log.Warn("task #%d changed concurrently; status %s not applied", current.ID, change.Status)
		return nil, clierr.Newf(clierr.StatusConflict,
			"task #%d was modified concurrently; reload and retry", current.ID).
			WithDetails(map[string]any{"id": current.ID, "revision": current.Revision})
	}
	return t, nil
}

// spawn creates the next occurrence of parent, due on the first occurrence
// after parent's due date (or its completion time, or now).
func (m *Manager) spawn(ctx context.Context, parent *task.Task, now time.Time) (*task.Task, error) {
	params := recurrence.Normalize(parent.Frequency, parent.Params)

	base := now.In(m.loc)
	switch {
	case parent.Due != nil:
		base = parent.Due.Time
	case parent.CompletedAt != nil:
		base = parent.CompletedAt.In(m.loc)
	}
	next := recurrence.NextDueDate(base, parent.Frequency, params)

	parentID := parent.ID
	succ := &task.Task{
		Title:       parent.Title,
		Worker:      parent.Worker,
		Client:      parent.Client,
		Frequency:   parent.Frequency,
		Params:      params,
		Due:         &next,
		Status:      task.StatusNotStarted,
		AuditStatus: task.AuditPending,
		Remarks:     parent.Remarks,
		Parent:      &parentID,
		Created:     now,
		Updated:     now,
	}
	if err := m.store.CreateTask(ctx, succ); err != nil {
		return nil, storeErr(err, 0, fmt.Sprintf("creating next occurrence of #%d", parent.ID))
	}
	m.appendHistory(ctx, history.New(succ.ID, "", history.SystemName, history.AutoGenerated, history.SpawnDetails(parent.ID), now))
	m.log.Info("task #%d spawned #%d due %s", parent.ID, succ.ID, next)
	return succ, nil
}

// TransitionAudit records an auditor's decision on a completed task in a
// single write. It never spawns.
func (m *Manager) TransitionAudit(ctx context.Context, id int, status, auditStatus, remarks string, actor *identity.Actor) (*task.Task, error) {
	st, err := task.ValidateAuditTarget(status)
	if err != nil {
		return nil, err
	}
	as, err := task.ValidateAuditStatus(auditStatus)
	if err != nil {
		return nil, err
	}
	current, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := task.ValidateAuditable(current); err != nil {
		return nil, err
	}

	now := m.now()
	auditor := current.Auditor
	if actor != nil {
		auditor = actor.DisplayName()
	}
	updated, err := m.store.UpdateAudit(ctx, id, store.AuditChange{
		Status:       st,
		AuditStatus:  as,
		AuditRemarks: remarks,
		Auditor:      auditor,
		CompletedAt:  task.RetainedCompletion(current, st, now),
		At:           now,
	})
	if err != nil {
		return nil, storeErr(err, id, "updating audit")
	}

	userID, userName := actorFields(actor)
	m.appendHistory(ctx, history.New(id, userID, userName, history.AuditUpdated, history.AuditDetails(string(as)), now))
	m.log.Info("task #%d audit %s (status %s)", id, as, st)
	return updated, nil
}

// History returns task id's entries newest first.
func (m *Manager) History(ctx context.Context, id int) ([]history.Entry, error) {
	if _, err := m.Get(ctx, id); err != nil {
		return nil, err
	}
	entries, err := m.store.History(ctx, id)
	if err != nil {
		return nil, storeErr(err, id, "reading history")
	}
	return entries, nil
}

// HistorySeq yields the same entries as History. Each range re-reads the
// store; an error is yielded once as the final element.
func (m *Manager) HistorySeq(ctx context.Context, id int) iter.Seq2[history.Entry, error] {
	return func(yield func(history.Entry, error) bool) {
		entries, err := m.History(ctx, id)
		if err != nil {
			yield(history.Entry{}, err)
			return
		}
		for _, e := range entries {
			if !yield(e, nil) {
				return
			}
		}
	}
}

// appendHistory is best-effort: the primary write already succeeded.
func (m *Manager) appendHistory(ctx context.Context, e history.Entry) {
	if err := m.store.AppendHistory(ctx, e); err != nil {
		m.log.Warn("%s: task #%d %s: %v", clierr.HistoryAppendFailure, e.TaskID, e.Action, err)
	}
}

func actorFields(a *identity.Actor) (id, name string) {
	if a == nil {
		return "", history.SystemName
	}
	return a.ID, a.DisplayName()
}

func storeErr(err error, id int, action string) error {
	if errors.Is(err, store.ErrNotFound) {
		return task.NotFound(id)
	}
	var ce *clierr.Error
	if errors.As(err, &ce) {
		return err
	}
	return clierr.Wrap(clierr.StoreFailure, err, action)
}
