// Package history defines the append-only audit trail kept for every task.
package history

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Action labels a history entry.
type Action string

// History actions.
const (
	Created       Action = "Created"
	StatusUpdated Action = "Status Updated"
	AuditUpdated  Action = "Audit Updated"
	AutoGenerated Action = "Auto-Generated"
)

// SystemName is shown for entries written without a user.
const SystemName = "System"

// Entry is one immutable record of something that happened to a task.
type Entry struct {
	ID        string    `json:"id"`
	TaskID    int       `json:"task_id"`
	UserID    string    `json:"user_id,omitempty"`
	UserName  string    `json:"user_name,omitempty"`
	Action    Action    `json:"action"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

// New returns an entry with a fresh ID, stamped at now.
func New(taskID int, userID, userName string, action Action, details string, now time.Time) Entry {
	return Entry{
		ID:        uuid.NewString(),
		TaskID:    taskID,
		UserID:    userID,
		UserName:  userName,
		Action:    action,
		Details:   details,
		CreatedAt: now,
	}
}

// Actor returns the display name of whoever wrote the entry.
func (e Entry) Actor() string {
	if e.UserID == "" {
		return SystemName
	}
	if e.UserName == "" {
		return e.UserID
	}
	return e.UserName
}

// StatusDetails is the details text of a status change.
func StatusDetails(status string) string {
	return "Status changed to " + status
}

// AuditDetails is the details text of an audit change.
func AuditDetails(auditStatus string) string {
	return "Audit status changed to " + auditStatus
}

// CreatedDetails is the details text of a manual creation.
const CreatedDetails = "Task created"

// SpawnDetails is the details text written on an auto-generated successor.
func SpawnDetails(parentID int) string {
	return fmt.Sprintf("Task auto-generated from recurring parent task #%d", parentID)
}
