package filestore

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"go.yaml.in/yaml/v3"

	"github.com/twiced-technology-gmbh/cadence/internal/task"
)

const (
	taskExt      = ".md"
	taskFileMode = 0o600
	maxNameLen   = 48
	minIDDigits  = 3
)

var (
	fence = []byte("---\n")

	errNoFrontmatter = errors.New("missing opening --- fence")
	errUnclosed      = errors.New("missing closing --- fence")
)

// encodeTask renders t as a YAML header between --- fences, followed by a
// blank line and the remarks when there are any.
func encodeTask(t *task.Task) ([]byte, error) {
	header, err := yaml.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encoding task %d: %w", t.ID, err)
	}
	var b bytes.Buffer
	b.Write(fence)
	b.Write(header)
	b.Write(fence)
	if remarks := strings.TrimRight(t.Remarks, "\n"); remarks != "" {
		b.WriteByte('\n')
		b.WriteString(remarks)
		b.WriteByte('\n')
	}
	return b.Bytes(), nil
}

// decodeTask is the inverse of encodeTask. A closing fence at end of file
// without a trailing newline is accepted.
func decodeTask(data []byte) (*task.Task, error) {
	rest, ok := bytes.CutPrefix(data, fence)
	if !ok {
		return nil, errNoFrontmatter
	}

	var header, body []byte
	switch {
	case bytes.HasPrefix(rest, fence):
		header, body = nil, rest[len(fence):]
	default:
		var found bool
		header, body, found = bytes.Cut(rest, []byte("\n---\n"))
		if !found {
			h, hasEOFFence := bytes.CutSuffix(rest, []byte("\n---"))
			if !hasEOFFence {
				return nil, errUnclosed
			}
			header, body = h, nil
		}
	}

	var t task.Task
	if err := yaml.Unmarshal(header, &t); err != nil {
		return nil, fmt.Errorf("decoding header: %w", err)
	}
	t.Remarks = strings.TrimLeft(string(body), "\n")
	return &t, nil
}

func readTaskFile(path string) (*task.Task, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path inside the board dir
	if err != nil {
		return nil, err
	}
	t, err := decodeTask(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	t.File = path
	return t, nil
}

// writeTaskFile replaces path through a sibling temp file and a rename, so
// readers never observe a half-written task.
func writeTaskFile(path string, t *task.Task) error {
	data, err := encodeTask(t)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Chmod(taskFileMode); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// taskFileName is the zero-padded id followed by a slug of the title,
// e.g. 007-quarterly-vat-return.md.
func taskFileName(id int, title string) string {
	name := slugify(title)
	if name == "" {
		name = "task"
	}
	return fmt.Sprintf("%0*d-%s%s", minIDDigits, id, name, taskExt)
}

// slugify lowercases title and joins its alphanumeric runs with hyphens,
// cutting at the last whole word that fits maxNameLen.
func slugify(title string) string {
	words := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r))
	})

	var b strings.Builder
	for _, w := range words {
		extra := len(w)
		if b.Len() > 0 {
			extra++
		}
		if b.Len()+extra > maxNameLen {
			if b.Len() == 0 {
				b.WriteString(w[:maxNameLen])
			}
			break
		}
		if b.Len() > 0 {
			b.WriteByte('-')
		}
		b.WriteString(w)
	}
	return b.String()
}

// fileID parses the id prefix of a task filename. Leading zeros are
// allowed; names without a numeric prefix report false.
func fileID(name string) (int, bool) {
	if filepath.Ext(name) != taskExt {
		return 0, false
	}
	prefix, _, ok := strings.Cut(name, "-")
	if !ok || prefix == "" {
		return 0, false
	}
	id, err := strconv.Atoi(prefix)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// scanTasks maps task ids to their file paths.
func scanTasks(dir string) (map[int]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return map[int]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading tasks directory: %w", err)
	}
	index := make(map[int]string, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if id, ok := fileID(e.Name()); ok {
			index[id] = filepath.Join(dir, e.Name())
		}
	}
	return index, nil
}
