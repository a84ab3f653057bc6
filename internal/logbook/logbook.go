// Package logbook writes the operational log: one "RFC3339 LEVEL message"
// line per event, appended to a text file, with warnings and errors
// optionally mirrored to stderr in color.
package logbook

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

const (
	dirMode  = 0o755
	fileMode = 0o644
)

// Level represents the severity of a log entry.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

func (l Level) rank() int {
	switch l {
	case LevelDebug:
		return 0
	case LevelWarn:
		return 2 //nolint:mnd // severity order
	case LevelError:
		return 3 //nolint:mnd // severity order
	default:
		return 1
	}
}

// ParseLevel resolves a level name ignoring case. Empty means INFO.
func ParseLevel(s string) (Level, error) {
	switch Level(strings.ToUpper(strings.TrimSpace(s))) {
	case "", LevelInfo:
		return LevelInfo, nil
	case LevelDebug:
		return LevelDebug, nil
	case LevelWarn, "WARNING":
		return LevelWarn, nil
	case LevelError:
		return LevelError, nil
	}
	return "", fmt.Errorf("unknown log level %q", s)
}

// Logger is the logging surface the rest of cadence depends on.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Discard drops every entry.
var Discard Logger = discard{}

type discard struct{}

func (discard) Debug(string, ...any) {}
func (discard) Info(string, ...any)  {}
func (discard) Warn(string, ...any)  {}
func (discard) Error(string, ...any) {}

// Logbook persists entries to a text file.
type Logbook struct {
	path   string
	min    Level
	mirror io.Writer
	now    func() time.Time
	mu     sync.Mutex
}

// Option configures a Logbook.
type Option func(*Logbook)

// WithLevel drops entries below min.
func WithLevel(min Level) Option {
	return func(l *Logbook) { l.min = min }
}

// WithMirror copies WARN and ERROR entries to w, colored.
func WithMirror(w io.Writer) Option {
	return func(l *Logbook) { l.mirror = w }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Logbook) { l.now = now }
}

// New creates a logbook that writes to the provided path.
func New(path string, opts ...Option) (*Logbook, error) {
	if err := os.MkdirAll(filepath.Dir(path), dirMode); err != nil {
		return nil, err
	}
	l := &Logbook{path: path, min: LevelInfo, now: time.Now}
	for _, o := range opts {
		o(l)
	}
	return l, nil
}

// Path returns the file backing this logbook.
func (l *Logbook) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Append writes a single entry. Write failures are dropped; the log must
// never fail the operation being logged.
func (l *Logbook) Append(level Level, message string) {
	if l == nil || level.rank() < l.min.rank() {
		return
	}
	message = strings.TrimSpace(message)
	line := fmt.Sprintf("%s %-5s %s\n",
		l.now().UTC().Format(time.RFC3339),
		string(level),
		message,
	)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.mirror != nil && level.rank() >= LevelWarn.rank() {
		paint := color.New(color.FgYellow)
		if level == LevelError {
			paint = color.New(color.FgRed, color.Bold)
		}
		_, _ = paint.Fprintf(l.mirror, "%s: %s\n", strings.ToLower(string(level)), message)
	}
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, fileMode) //nolint:gosec // path from config
	if err != nil {
		return
	}
	defer file.Close()
	_, _ = file.WriteString(line)
}

// Tail returns up to maxLines of the most recent entries.
func (l *Logbook) Tail(maxLines int) []string {
	if l == nil || maxLines <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	file, err := os.Open(l.path)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return lines
}

func (l *Logbook) Debug(format string, args ...any) {
	l.Append(LevelDebug, fmt.Sprintf(format, args...))
}

func (l *Logbook) Info(format string, args ...any) {
	l.Append(LevelInfo, fmt.Sprintf(format, args...))
}

func (l *Logbook) Warn(format string, args ...any) {
	l.Append(LevelWarn, fmt.Sprintf(format, args...))
}

func (l *Logbook) Error(format string, args ...any) {
	l.Append(LevelError, fmt.Sprintf(format, args...))
}
