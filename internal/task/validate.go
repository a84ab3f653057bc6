package task

import (
	"github.com/twiced-technology-gmbh/cadence/internal/clierr"
	"github.com/twiced-technology-gmbh/cadence/internal/recurrence"
)

// ValidateStatus resolves a status accepted by a status transition.
func ValidateStatus(status string) (Status, error) {
	return validateIn(status, Statuses())
}

// ValidateAuditTarget resolves a status accepted by the audit flow.
func ValidateAuditTarget(status string) (Status, error) {
	return validateIn(status, AuditTargets())
}

func validateIn(status string, allowed []Status) (Status, error) {
	if s, ok := ParseStatus(status, allowed); ok {
		return s, nil
	}
	return "", clierr.Newf(clierr.InvalidStatus, "invalid status %q", status).
		WithDetails(map[string]any{
			"status":  status,
			"allowed": allowed,
		})
}

// ValidateAuditStatus resolves an audit status.
func ValidateAuditStatus(status string) (AuditStatus, error) {
	if as, ok := ParseAuditStatus(status); ok {
		return as, nil
	}
	return "", clierr.Newf(clierr.InvalidAuditStatus, "invalid audit status %q", status).
		WithDetails(map[string]any{
			"audit_status": status,
			"allowed":      AuditStatuses(),
		})
}

// ValidateFrequency resolves a frequency label. An empty label means One Time.
func ValidateFrequency(label string) (recurrence.Frequency, error) {
	if label == "" {
		return recurrence.OneTime, nil
	}
	if f, ok := recurrence.ParseFrequency(label); ok {
		return f, nil
	}
	return "", clierr.Newf(clierr.InvalidFrequency, "invalid frequency %q", label).
		WithDetails(map[string]any{
			"frequency": label,
			"allowed":   recurrence.Frequencies(),
		})
}

// ValidateParams returns a CLIError when p does not fit f.
func ValidateParams(f recurrence.Frequency, p recurrence.Params) error {
	if err := recurrence.Validate(f, p); err != nil {
		return clierr.Wrap(clierr.InvalidFrequencyParams, err, "invalid "+string(f)+" parameters").
			WithDetails(map[string]any{"frequency": f})
	}
	return nil
}

// ValidateAuditable returns a CLIError unless t has been completed.
func ValidateAuditable(t *Task) error {
	if t.Status.HoldsCompletion() {
		return nil
	}
	return clierr.Newf(clierr.StatusConflict,
		"task #%d is %s; only completed tasks can be audited", t.ID, t.Status).
		WithDetails(map[string]any{
			"id":     t.ID,
			"status": t.Status,
		})
}

// ValidateDate returns a CLIError for invalid date input.
func ValidateDate(field, input string, err error) *clierr.Error {
	return clierr.Newf(clierr.InvalidDate, "invalid %s date: %v", field, err).
		WithDetails(map[string]any{
			"field": field,
			"input": input,
		})
}

// ValidateTaskID returns a CLIError for invalid task ID input.
func ValidateTaskID(input string) *clierr.Error {
	return clierr.Newf(clierr.InvalidTaskID, "invalid task ID %q", input).
		WithDetails(map[string]any{"input": input})
}

// NotFound returns a CLIError for a missing task.
func NotFound(id int) *clierr.Error {
	return clierr.Newf(clierr.TaskNotFound, "task not found: #%d", id).
		WithDetails(map[string]any{"id": id})
}
