// Package filestore keeps tasks as markdown files with YAML frontmatter
// (one file per task under the tasks directory) and their history in an
// append-only JSONL file. Writers serialize through an advisory file lock,
// so several cadence processes can share one board directory.
package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/twiced-technology-gmbh/cadence/internal/filelock"
	"github.com/twiced-technology-gmbh/cadence/internal/logbook"
	"github.com/twiced-technology-gmbh/cadence/internal/store"
	"github.com/twiced-technology-gmbh/cadence/internal/task"
)

// LockFileName is the board lock taken around every write.
const LockFileName = ".cadence.lock"

const dirMode = 0o750

// Store is a store.Store over a board directory.
type Store struct {
	root     string
	tasksDir string
	log      logbook.Logger
}

var (
	_ store.Store   = (*Store)(nil)
	_ store.Swapper = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithLogger reports unreadable task files to l.
func WithLogger(l logbook.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New opens the board rooted at root, creating tasksDir (relative to root)
// if needed.
func New(root, tasksDir string, opts ...Option) (*Store, error) {
	s := &Store{root: root, tasksDir: filepath.Join(root, tasksDir), log: logbook.Discard}
	for _, o := range opts {
		o(s)
	}
	if err := os.MkdirAll(s.tasksDir, dirMode); err != nil {
		return nil, fmt.Errorf("creating tasks directory: %w", err)
	}
	return s, nil
}

// TasksDir returns the directory holding task files.
func (s *Store) TasksDir() string { return s.tasksDir }

func (s *Store) lock(ctx context.Context) (*filelock.Lock, error) {
	l, err := filelock.Acquire(ctx, filepath.Join(s.root, LockFileName))
	if err != nil {
		return nil, fmt.Errorf("locking board: %w", err)
	}
	return l, nil
}

func (s *Store) GetTask(ctx context.Context, id int) (*task.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.read(id)
}

func (s *Store) read(id int) (*task.Task, error) {
	index, err := scanTasks(s.tasksDir)
	if err != nil {
		return nil, err
	}
	path, ok := index[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return readTaskFile(path)
}

// ListTasks skips task files that fail to parse, reporting each one to
// the configured logger.
func (s *Store) ListTasks(ctx context.Context) ([]*task.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	index, err := scanTasks(s.tasksDir)
	if err != nil {
		return nil, err
	}
	tasks := make([]*task.Task, 0, len(index))
	for _, path := range index {
		t, err := readTaskFile(path)
		if err != nil {
			s.log.Warn("skipping malformed task file: %v", err)
			continue
		}
		tasks = append(tasks, t)
	}
	slices.SortFunc(tasks, func(a, b *task.Task) int { return a.ID - b.ID })
	return tasks, nil
}

func (s *Store) CreateTask(ctx context.Context, t *task.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer l.Release() //nolint:errcheck // best-effort unlock

	// Ids continue past the highest filename, gaps included.
	index, err := scanTasks(s.tasksDir)
	if err != nil {
		return err
	}
	id := 1
	for existing := range index {
		id = max(id, existing+1)
	}

	store.PrepareNew(t, time.Now())
	t.ID = id
	path := filepath.Join(s.tasksDir, taskFileName(id, t.Title))
	if err := writeTaskFile(path, t); err != nil {
		return fmt.Errorf("writing task file: %w", err)
	}
	t.File = path
	return nil
}

// mutate rewrites task id under the board lock. apply returns false to
// leave the file untouched.
func (s *Store) mutate(ctx context.Context, id int, apply func(*task.Task) bool) (*task.Task, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	l, err := s.lock(ctx)
	if err != nil {
		return nil, false, err
	}
	defer l.Release() //nolint:errcheck // best-effort unlock

	t, err := s.read(id)
	if err != nil {
		return nil, false, err
	}
	if !apply(t) {
		return nil, false, nil
	}
	if err := writeTaskFile(t.File, t); err != nil {
		return nil, false, fmt.Errorf("writing task file: %w", err)
	}
	return t, true, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id int, c store.StatusChange) (*task.Task, error) {
	t, _, err := s.mutate(ctx, id, func(t *task.Task) bool {
		store.ApplyStatus(t, c)
		return true
	})
	return t, err
}

func (s *Store) SwapStatus(ctx context.Context, id, revision int, c store.StatusChange) (*task.Task, bool, error) {
	return s.mutate(ctx, id, func(t *task.Task) bool {
		if t.Revision != revision {
			return false
		}
		store.ApplyStatus(t, c)
		return true
	})
}

func (s *Store) UpdateAudit(ctx context.Context, id int, c store.AuditChange) (*task.Task, error) {
	t, _, err := s.mutate(ctx, id, func(t *task.Task) bool {
		store.ApplyAudit(t, c)
		return true
	})
	return t, err
}

func (s *Store) Close() error { return nil }

// IsBoard reports whether root looks like an initialized board.
func IsBoard(root, tasksDir string) bool {
	info, err := os.Stat(filepath.Join(root, tasksDir))
	return err == nil && info.IsDir()
}
