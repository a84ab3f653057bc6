package task

import (
	"fmt"
	"time"
)

// CompletedAtFor returns the completion timestamp stored when a status
// transition moves a task to s: now for the completion states, nil otherwise.
func CompletedAtFor(s Status, now time.Time) *time.Time {
	if s.IsCompletion() {
		return &now
	}
	return nil
}

// RetainedCompletion returns the completion timestamp kept when the audit
// flow moves t to s. Completion states and Audited keep the existing
// timestamp (or start one at now); every other status clears it.
func RetainedCompletion(t *Task, s Status, now time.Time) *time.Time {
	if !s.HoldsCompletion() {
		return nil
	}
	if t.CompletedAt != nil {
		ts := *t.CompletedAt
		return &ts
	}
	return &now
}

// CheckCompletion reports an error when t's completion timestamp disagrees
// with its status.
func CheckCompletion(t *Task) error {
	switch {
	case t.Status.HoldsCompletion() && t.CompletedAt == nil:
		return fmt.Errorf("task #%d is %s but has no completion time", t.ID, t.Status)
	case !t.Status.HoldsCompletion() && t.CompletedAt != nil:
		return fmt.Errorf("task #%d is %s but has a completion time", t.ID, t.Status)
	}
	return nil
}
