package filestore

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/twiced-technology-gmbh/cadence/internal/history"
	"github.com/twiced-technology-gmbh/cadence/internal/store"
)

const (
	historyFileName = "history.jsonl"
	historyFileMode = 0o600
	maxHistoryLine  = 1 << 20
)

var errCorruptHistory = errors.New("corrupt history line")

func (s *Store) historyPath() string {
	return filepath.Join(s.root, historyFileName)
}

// AppendHistory appends one JSON line. The file is never truncated.
func (s *Store) AppendHistory(ctx context.Context, e history.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshaling history entry: %w", err)
	}

	l, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer l.Release() //nolint:errcheck // best-effort unlock

	f, err := os.OpenFile(s.historyPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, historyFileMode) //nolint:gosec // path inside the board dir
	if err != nil {
		return fmt.Errorf("opening history file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing history entry: %w", err)
	}
	return nil
}

func (s *Store) History(ctx context.Context, taskID int) ([]history.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.historyPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening history file: %w", err)
	}
	defer f.Close()

	var matched []history.Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxHistoryLine) //nolint:mnd // initial buffer
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var e history.Entry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("%w %d: %w", errCorruptHistory, line, err)
		}
		if e.TaskID == taskID {
			matched = append(matched, e)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading history file: %w", err)
	}

	out := make([]history.Entry, 0, len(matched))
	for i := len(matched) - 1; i >= 0; i-- {
		out = append(out, matched[i])
	}
	store.SortNewestFirst(out)
	return out, nil
}
