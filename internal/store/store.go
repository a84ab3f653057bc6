// Package store defines the persistence contract for tasks and their
// history. Backends live in sub-packages: memstore, filestore, sqlite and
// postgres.
package store

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/twiced-technology-gmbh/cadence/internal/history"
	"github.com/twiced-technology-gmbh/cadence/internal/task"
)

// ErrNotFound is returned when a task id does not exist.
var ErrNotFound = errors.New("task not found")

// StatusChange is the write performed by a status transition.
type StatusChange struct {
	Status      task.Status
	CompletedAt *time.Time
	At          time.Time // becomes the task's Updated time
}

// AuditChange is the single write performed by an audit transition.
type AuditChange struct {
	Status       task.Status
	AuditStatus  task.AuditStatus
	AuditRemarks string
	Auditor      string
	CompletedAt  *time.Time
	At           time.Time
}

// Store persists tasks and their history. Every successful update
// increments the task's revision.
type Store interface {
	GetTask(ctx context.Context, id int) (*task.Task, error)
	// ListTasks returns every task ordered by id.
	ListTasks(ctx context.Context) ([]*task.Task, error)
	// CreateTask assigns t's id and revision and persists it. Zero
	// Created/Updated times are filled with the current time.
	CreateTask(ctx context.Context, t *task.Task) error
	UpdateStatus(ctx context.Context, id int, c StatusChange) (*task.Task, error)
	UpdateAudit(ctx context.Context, id int, c AuditChange) (*task.Task, error)
	AppendHistory(ctx context.Context, e history.Entry) error
	// History returns a task's entries newest first; entries with equal
	// timestamps come in reverse append order.
	History(ctx context.Context, taskID int) ([]history.Entry, error)
	Close() error
}

// Swapper is implemented by stores that can apply a status change only
// when the task is still at the given revision. ok is false, with a nil
// task, when the revision has moved on.
type Swapper interface {
	SwapStatus(ctx context.Context, id, revision int, c StatusChange) (t *task.Task, ok bool, err error)
}

// PrepareNew fills the defaults CreateTask applies before persisting.
func PrepareNew(t *task.Task, now time.Time) {
	if t.Created.IsZero() {
		t.Created = now
	}
	if t.Updated.IsZero() {
		t.Updated = t.Created
	}
	if t.AuditStatus == "" {
		t.AuditStatus = task.AuditPending
	}
	if t.Status == "" {
		t.Status = task.StatusNotStarted
	}
	t.Revision = 1
}

// ApplyStatus applies c to t in memory and bumps its revision.
func ApplyStatus(t *task.Task, c StatusChange) {
	t.Status = c.Status
	t.CompletedAt = c.CompletedAt
	t.Updated = c.At
	t.Revision++
}

// ApplyAudit applies c to t in memory and bumps its revision.
func ApplyAudit(t *task.Task, c AuditChange) {
	t.Status = c.Status
	t.AuditStatus = c.AuditStatus
	t.AuditRemarks = c.AuditRemarks
	t.Auditor = c.Auditor
	t.CompletedAt = c.CompletedAt
	t.Updated = c.At
	t.Revision++
}

// SortNewestFirst orders entries that are already in reverse append order
// by descending CreatedAt, keeping that order for ties.
func SortNewestFirst(entries []history.Entry) {
	slices.SortStableFunc(entries, func(a, b history.Entry) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}
