package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/cadence/internal/lifecycle"
	"github.com/twiced-technology-gmbh/cadence/internal/output"
	"github.com/twiced-technology-gmbh/cadence/internal/task"
)

var auditCmd = &cobra.Command{
	Use:   "audit ID[,ID,...] STATUS AUDIT_STATUS",
	Short: "Record an audit decision on a completed task",
	Long: `Sets the task status and audit status in one write. The task must be
Completed, Completed Late or Audited. Audits never create a next occurrence.

  cadence audit 12 Audited Approved --remarks "checked against bank statement"
  cadence audit 12 "In Progress" Reopened --remarks "missing payslip"`,
	Args: cobra.ExactArgs(3), //nolint:mnd // id, status, audit status
	RunE: runAudit,
}

var approveCmd = &cobra.Command{
	Use:   "approve ID[,ID,...]",
	Short: "Approve completed tasks (Audited / Approved)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAuditShortcut(cmd, args[0], task.StatusAudited, task.AuditApproved)
	},
}

var reopenCmd = &cobra.Command{
	Use:   "reopen ID[,ID,...]",
	Short: "Send completed tasks back to work (In Progress / Reopened)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAuditShortcut(cmd, args[0], task.StatusInProgress, task.AuditReopened)
	},
}

func init() {
	for _, c := range []*cobra.Command{auditCmd, approveCmd, reopenCmd} {
		c.Flags().String("remarks", "", "auditor remarks")
		rootCmd.AddCommand(c)
	}
}

func runAudit(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args[0])
	if err != nil {
		return err
	}
	if _, err := task.ValidateAuditTarget(args[1]); err != nil {
		return err
	}
	if _, err := task.ValidateAuditStatus(args[2]); err != nil {
		return err
	}
	remarks, _ := cmd.Flags().GetString("remarks")
	return auditEach(ids, args[1], args[2], remarks)
}

func runAuditShortcut(cmd *cobra.Command, idArg string, status task.Status, as task.AuditStatus) error {
	ids, err := parseIDs(idArg)
	if err != nil {
		return err
	}
	remarks, _ := cmd.Flags().GetString("remarks")
	return auditEach(ids, string(status), string(as), remarks)
}

func auditEach(ids []int, status, auditStatus, remarks string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	apply := func(ctx context.Context, id int) (*lifecycle.Transition, error) {
		t, err := a.mgr.TransitionAudit(ctx, id, status, auditStatus, remarks, a.actor)
		if err != nil {
			return nil, err
		}
		return &lifecycle.Transition{Task: t}, nil
	}
	if len(ids) > 1 {
		return runBatch(ctx, ids, apply)
	}

	tr, err := apply(ctx, ids[0])
	if err != nil {
		return err
	}
	switch outputFormat() {
	case output.FormatJSON:
		return output.JSON(os.Stdout, tr.Task)
	case output.FormatCompact:
		output.TaskDetailCompact(os.Stdout, tr.Task)
	default:
		output.Messagef(os.Stdout, "Task #%d -> %s (audit %s)", tr.Task.ID, tr.Task.Status, tr.Task.AuditStatus)
	}
	return nil
}
