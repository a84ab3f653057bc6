// Package task defines the recurring-obligation task model and its status
// vocabulary.
package task

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/twiced-technology-gmbh/cadence/internal/date"
	"github.com/twiced-technology-gmbh/cadence/internal/recurrence"
)

// Status is the primary workflow state of a task.
type Status string

// Workflow statuses. Any status may follow any other.
const (
	StatusNotStarted       Status = "Not Started"
	StatusInProgress       Status = "In Progress"
	StatusWaitingForClient Status = "Waiting for Client"
	StatusFiled            Status = "Filed"
	StatusOnHold           Status = "On Hold"
	StatusPending          Status = "Pending"
	StatusCompleted        Status = "Completed"
	StatusCompletedLate    Status = "Completed Late"
	StatusNotRequired      Status = "Not Required"

	// StatusAudited marks auditor sign-off. Only the audit flow sets it.
	StatusAudited Status = "Audited"
)

// AuditStatus is the secondary sign-off state applied after completion.
type AuditStatus string

// Audit statuses.
const (
	AuditPending  AuditStatus = "Pending"
	AuditApproved AuditStatus = "Approved"
	AuditReopened AuditStatus = "Reopened"
)

// Statuses returns the statuses accepted by a status transition, in board order.
func Statuses() []Status {
	return []Status{
		StatusNotStarted, StatusInProgress, StatusWaitingForClient, StatusFiled,
		StatusOnHold, StatusPending, StatusCompleted, StatusCompletedLate, StatusNotRequired,
	}
}

// AuditTargets returns the statuses accepted by an audit transition.
func AuditTargets() []Status {
	return append(Statuses(), StatusAudited)
}

// AuditStatuses returns every audit status.
func AuditStatuses() []AuditStatus {
	return []AuditStatus{AuditPending, AuditApproved, AuditReopened}
}

// IsCompletion reports whether s is one of the two completion states.
func (s Status) IsCompletion() bool {
	return s == StatusCompleted || s == StatusCompletedLate
}

// HoldsCompletion reports whether a task in s keeps its completion
// timestamp: the completion states plus Audited.
func (s Status) HoldsCompletion() bool {
	return s.IsCompletion() || s == StatusAudited
}

// ParseStatus matches s against set ignoring case, and treating '-' and
// '_' as spaces, so "completed-late" resolves to "Completed Late".
func ParseStatus(s string, set []Status) (Status, bool) {
	key := normalizeLabel(s)
	for _, st := range set {
		if normalizeLabel(string(st)) == key {
			return st, true
		}
	}
	return "", false
}

// ParseAuditStatus matches s against the audit statuses ignoring case.
func ParseAuditStatus(s string) (AuditStatus, bool) {
	key := normalizeLabel(s)
	for _, as := range AuditStatuses() {
		if normalizeLabel(string(as)) == key {
			return as, true
		}
	}
	return "", false
}

func normalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", " ", "_", " ").Replace(s)
}

// Task is one trackable obligation.
type Task struct {
	ID           int                  `yaml:"id" json:"id"`
	Title        string               `yaml:"title" json:"title"`
	Worker       string               `yaml:"worker,omitempty" json:"worker,omitempty"`
	Client       string               `yaml:"client,omitempty" json:"client,omitempty"`
	Frequency    recurrence.Frequency `yaml:"frequency" json:"frequency"`
	Params       recurrence.Params    `yaml:"-" json:"-"`
	Due          *date.Date           `yaml:"due,omitempty" json:"due,omitempty"`
	Status       Status               `yaml:"status" json:"status"`
	CompletedAt  *time.Time           `yaml:"completed_at,omitempty" json:"completed_at,omitempty"`
	Auditor      string               `yaml:"auditor,omitempty" json:"auditor,omitempty"`
	AuditStatus  AuditStatus          `yaml:"audit_status" json:"audit_status"`
	AuditRemarks string               `yaml:"audit_remarks,omitempty" json:"audit_remarks,omitempty"`
	Parent       *int                 `yaml:"parent,omitempty" json:"parent,omitempty"`
	Revision     int                  `yaml:"revision" json:"revision"`
	Created      time.Time            `yaml:"created" json:"created"`
	Updated      time.Time            `yaml:"updated" json:"updated"`

	// Remarks is free text; the file backend keeps it below the frontmatter.
	Remarks string `yaml:"-" json:"remarks,omitempty"`

	// File is the path to the task file (file backend only, not in YAML).
	File string `yaml:"-" json:"file,omitempty"`
}

// plain has Task's fields without its marshaling methods.
type plain Task

// MarshalJSON encodes the task with its params as a nested object.
func (t Task) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		plain
		Params recurrence.Params `json:"params,omitempty"`
	}{plain(t), t.Params})
}

// UnmarshalJSON decodes a task, resolving params against its frequency.
func (t *Task) UnmarshalJSON(data []byte) error {
	var aux struct {
		plain
		Params json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*t = Task(aux.plain)
	t.Params = recurrence.Decode(t.Frequency, aux.Params)
	return nil
}

// MarshalYAML emits the params mapping right after the frequency key.
func (t Task) MarshalYAML() (interface{}, error) {
	var node yaml.Node
	if err := node.Encode(plain(t)); err != nil {
		return nil, err
	}
	if t.Params == nil {
		return &node, nil
	}

	var params yaml.Node
	if err := params.Encode(t.Params); err != nil {
		return nil, fmt.Errorf("encoding params: %w", err)
	}
	key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "params"}

	at := len(node.Content)
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == "frequency" {
			at = i + 2 //nolint:mnd // key/value pair
			break
		}
	}
	content := make([]*yaml.Node, 0, len(node.Content)+2) //nolint:mnd // key/value pair
	content = append(content, node.Content[:at]...)
	content = append(content, key, &params)
	content = append(content, node.Content[at:]...)
	node.Content = content
	return &node, nil
}

// UnmarshalYAML decodes a task, resolving params against its frequency.
func (t *Task) UnmarshalYAML(value *yaml.Node) error {
	if err := value.Decode((*plain)(t)); err != nil {
		return err
	}
	var aux struct {
		Params yaml.Node `yaml:"params"`
	}
	if err := value.Decode(&aux); err != nil {
		return err
	}
	t.Params = decodeParams(t.Frequency, &aux.Params)
	return nil
}

// decodeParams accepts params as a mapping or as serialized JSON text.
// Any other shape, or text that does not parse, yields empty params.
func decodeParams(f recurrence.Frequency, node *yaml.Node) recurrence.Params {
	switch node.Kind {
	case yaml.MappingNode:
		var m map[string]any
		if err := node.Decode(&m); err != nil {
			return recurrence.Empty(f)
		}
		return recurrence.FromMap(f, m)
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return recurrence.Empty(f)
		}
		return recurrence.Decode(f, []byte(node.Value))
	default:
		return recurrence.Empty(f)
	}
}

// IsOverdue reports whether t has a due date before today and still needs work.
func (t *Task) IsOverdue(today date.Date) bool {
	if t.Due == nil || t.Status.HoldsCompletion() || t.Status == StatusNotRequired {
		return false
	}
	return t.Due.Before(today.Time)
}

// Clone returns a deep copy of t.
func (t *Task) Clone() *Task {
	c := *t
	if t.Due != nil {
		d := *t.Due
		c.Due = &d
	}
	if t.CompletedAt != nil {
		ts := *t.CompletedAt
		c.CompletedAt = &ts
	}
	if t.Parent != nil {
		p := *t.Parent
		c.Parent = &p
	}
	return &c
}
