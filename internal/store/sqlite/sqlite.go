// Package sqlite is a store.Store backed by a single SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/twiced-technology-gmbh/cadence/internal/date"
	"github.com/twiced-technology-gmbh/cadence/internal/history"
	"github.com/twiced-technology-gmbh/cadence/internal/recurrence"
	"github.com/twiced-technology-gmbh/cadence/internal/store"
	"github.com/twiced-technology-gmbh/cadence/internal/task"
)

const taskColumns = `id, title, worker, client, frequency, params, due_date, status,
	completed_at, auditor, audit_status, audit_remarks, remarks, parent_id, revision,
	created_at, updated_at`

// Store implements store.Store using SQLite.
type Store struct {
	db *sql.DB
}

var (
	_ store.Store   = (*Store)(nil)
	_ store.Swapper = (*Store)(nil)
)

// New opens (creating if needed) the database at path and applies the schema.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	// WAL plus a busy timeout lets concurrent writers queue instead of
	// failing with "database is locked".
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*task.Task, error) {
	var (
		t           task.Task
		params      string
		due         sql.NullTime
		completedAt sql.NullTime
		parent      sql.NullInt64
	)
	err := row.Scan(&t.ID, &t.Title, &t.Worker, &t.Client, &t.Frequency, &params, &due,
		&t.Status, &completedAt, &t.Auditor, &t.AuditStatus, &t.AuditRemarks, &t.Remarks,
		&parent, &t.Revision, &t.Created, &t.Updated)
	if err != nil {
		return nil, err
	}
	t.Params = recurrence.Decode(t.Frequency, []byte(params))
	if due.Valid {
		d := date.FromTime(due.Time)
		t.Due = &d
	}
	if completedAt.Valid {
		ts := completedAt.Time.UTC()
		t.CompletedAt = &ts
	}
	if parent.Valid {
		p := int(parent.Int64)
		t.Parent = &p
	}
	t.Created = t.Created.UTC()
	t.Updated = t.Updated.UTC()
	return &t, nil
}

func (s *Store) GetTask(ctx context.Context, id int) (*task.Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

func (s *Store) ListTasks(ctx context.Context) ([]*task.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *Store) CreateTask(ctx context.Context, t *task.Task) error {
	store.PrepareNew(t, time.Now())
	params, err := recurrence.Marshal(t.Params)
	if err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (title, worker, client, frequency, params, due_date, status,
			completed_at, auditor, audit_status, audit_remarks, remarks, parent_id, revision,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Title, t.Worker, t.Client, string(t.Frequency), string(params), dueValue(t.Due),
		string(t.Status), timeValue(t.CompletedAt), t.Auditor, string(t.AuditStatus),
		t.AuditRemarks, t.Remarks, intValue(t.Parent), t.Revision,
		t.Created.UTC(), t.Updated.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read task id: %w", err)
	}
	t.ID = int(id)
	return nil
}

func (s *Store) UpdateStatus(ctx context.Context, id int, c store.StatusChange) (*task.Task, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET status = ?, completed_at = ?, updated_at = ?, revision = revision + 1
		WHERE id = ?`,
		string(c.Status), timeValue(c.CompletedAt), c.At.UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetTask(ctx, id)
}

func (s *Store) SwapStatus(ctx context.Context, id, revision int, c store.StatusChange) (*task.Task, bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET status = ?, completed_at = ?, updated_at = ?, revision = revision + 1
		WHERE id = ? AND revision = ?`,
		string(c.Status), timeValue(c.CompletedAt), c.At.UTC(), id, revision)
	if err != nil {
		return nil, false, fmt.Errorf("failed to update status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.GetTask(ctx, id); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	t, err := s.GetTask(ctx, id)
	return t, err == nil, err
}

func (s *Store) UpdateAudit(ctx context.Context, id int, c store.AuditChange) (*task.Task, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET status = ?, audit_status = ?, audit_remarks = ?, auditor = ?,
			completed_at = ?, updated_at = ?, revision = revision + 1
		WHERE id = ?`,
		string(c.Status), string(c.AuditStatus), c.AuditRemarks, c.Auditor,
		timeValue(c.CompletedAt), c.At.UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update audit: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetTask(ctx, id)
}

func (s *Store) AppendHistory(ctx context.Context, e history.Entry) error {
	var userID sql.NullString
	if e.UserID != "" {
		userID = sql.NullString{String: e.UserID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO task_history (id, task_id, user_id, user_name, action, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.TaskID, userID, e.UserName, string(e.Action), e.Details, e.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

func (s *Store) History(ctx context.Context, taskID int) ([]history.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, user_id, user_name, action, details, created_at
		FROM task_history
		WHERE task_id = ?
		ORDER BY created_at DESC, seq DESC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []history.Entry
	for rows.Next() {
		var (
			e      history.Entry
			userID sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.TaskID, &userID, &e.UserName, &e.Action, &e.Details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		e.UserID = userID.String
		e.CreatedAt = e.CreatedAt.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Timestamps are compared again in Go: the driver's text form does not
	// sort correctly across differing fractional-second widths.
	store.SortNewestFirst(entries)
	return entries, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func dueValue(d *date.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func timeValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func intValue(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
