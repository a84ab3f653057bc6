// Package postgres is a store.Store backed by PostgreSQL through a pgx
// connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/twiced-technology-gmbh/cadence/internal/date"
	"github.com/twiced-technology-gmbh/cadence/internal/history"
	"github.com/twiced-technology-gmbh/cadence/internal/recurrence"
	"github.com/twiced-technology-gmbh/cadence/internal/store"
	"github.com/twiced-technology-gmbh/cadence/internal/task"
)

const taskColumns = `id, title, worker, client, frequency, params, due_date, status,
	completed_at, auditor, audit_status, audit_remarks, remarks, parent_id, revision,
	created_at, updated_at`

// Config holds PostgreSQL connection configuration.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	HealthCheck     time.Duration
}

// DefaultConfig returns a config with pool defaults for dsn.
func DefaultConfig(dsn string) *Config {
	return &Config{
		DSN:             dsn,
		MaxConns:        10,
		MinConns:        1,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
		HealthCheck:     time.Minute,
	}
}

// Store implements store.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var (
	_ store.Store   = (*Store)(nil)
	_ store.Swapper = (*Store)(nil)
)

// New connects, pings and applies the schema.
func New(ctx context.Context, cfg *Config) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = cfg.HealthCheck

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

func scanTask(row pgx.Row) (*task.Task, error) {
	var (
		t           task.Task
		params      []byte
		due         *time.Time
		completedAt *time.Time
		parent      *int64
	)
	err := row.Scan(&t.ID, &t.Title, &t.Worker, &t.Client, &t.Frequency, &params, &due,
		&t.Status, &completedAt, &t.Auditor, &t.AuditStatus, &t.AuditRemarks, &t.Remarks,
		&parent, &t.Revision, &t.Created, &t.Updated)
	if err != nil {
		return nil, err
	}
	t.Params = recurrence.Decode(t.Frequency, params)
	if due != nil {
		d := date.FromTime(*due)
		t.Due = &d
	}
	if completedAt != nil {
		ts := completedAt.UTC()
		t.CompletedAt = &ts
	}
	if parent != nil {
		p := int(*parent)
		t.Parent = &p
	}
	t.Created = t.Created.UTC()
	t.Updated = t.Updated.UTC()
	return &t, nil
}

func (s *Store) GetTask(ctx context.Context, id int) (*task.Task, error) {
	t, err := scanTask(s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

func (s *Store) ListTasks(ctx context.Context) ([]*task.Task, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY id`)
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

	var due *time.Time
	if t.Due != nil {
		d := t.Due.Time
		due = &d
	}
	var parent *int64
	if t.Parent != nil {
		p := int64(*t.Parent)
		parent = &p
	}

	err = s.pool.QueryRow(ctx, `
		INSERT INTO tasks (title, worker, client, frequency, params, due_date, status,
			completed_at, auditor, audit_status, audit_remarks, remarks, parent_id, revision,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id`,
		t.Title, t.Worker, t.Client, string(t.Frequency), params, due,
		string(t.Status), t.CompletedAt, t.Auditor, string(t.AuditStatus),
		t.AuditRemarks, t.Remarks, parent, t.Revision, t.Created, t.Updated,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

func (s *Store) UpdateStatus(ctx context.Context, id int, c store.StatusChange) (*task.Task, error) {
	t, err := scanTask(s.pool.QueryRow(ctx, `
		UPDATE tasks SET status = $1, completed_at = $2, updated_at = $3, revision = revision + 1
		WHERE id = $4
		RETURNING `+taskColumns,
		string(c.Status), c.CompletedAt, c.At, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}
	return t, nil
}

func (s *Store) SwapStatus(ctx context.Context, id, revision int, c store.StatusChange) (*task.Task, bool, error) {
	t, err := scanTask(s.pool.QueryRow(ctx, `
		UPDATE tasks SET status = $1, completed_at = $2, updated_at = $3, revision = revision + 1
		WHERE id = $4 AND revision = $5
		RETURNING `+taskColumns,
		string(c.Status), c.CompletedAt, c.At, id, revision))
	if errors.Is(err, pgx.ErrNoRows) {
		if _, err := s.GetTask(ctx, id); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to update status: %w", err)
	}
	return t, true, nil
}

func (s *Store) UpdateAudit(ctx context.Context, id int, c store.AuditChange) (*task.Task, error) {
	t, err := scanTask(s.pool.QueryRow(ctx, `
		UPDATE tasks SET status = $1, audit_status = $2, audit_remarks = $3, auditor = $4,
			completed_at = $5, updated_at = $6, revision = revision + 1
		WHERE id = $7
		RETURNING `+taskColumns,
		string(c.Status), string(c.AuditStatus), c.AuditRemarks, c.Auditor,
		c.CompletedAt, c.At, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update audit: %w", err)
	}
	return t, nil
}

func (s *Store) AppendHistory(ctx context.Context, e history.Entry) error {
	var userID *string
	if e.UserID != "" {
		userID = &e.UserID
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO task_history (id, task_id, user_id, user_name, action, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.TaskID, userID, e.UserName, string(e.Action), e.Details, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

func (s *Store) History(ctx context.Context, taskID int) ([]history.Entry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, task_id, user_id, user_name, action, details, created_at
		FROM task_history
		WHERE task_id = $1
		ORDER BY created_at DESC, seq DESC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []history.Entry
	for rows.Next() {
		var (
			e      history.Entry
			userID *string
		)
		if err := rows.Scan(&e.ID, &e.TaskID, &userID, &e.UserName, &e.Action, &e.Details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		if userID != nil {
			e.UserID = *userID
		}
		e.CreatedAt = e.CreatedAt.UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
