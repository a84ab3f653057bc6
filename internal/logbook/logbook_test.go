package logbook

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTailReturnsRecentLines(t *testing.T) {
	book, err := New(filepath.Join(t.TempDir(), "logs", "cadence.log"))
	require.NoError(t, err)
	for i := range 5 {
		book.Info("entry-%d", i)
	}

	lines := book.Tail(3)
	require.Len(t, lines, 3)
	for idx, want := range []string{"entry-2", "entry-3", "entry-4"} {
		assert.Contains(t, lines[idx], want)
	}
}

func TestLineFormat(t *testing.T) {
	at := time.Date(2024, time.March, 10, 8, 30, 0, 0, time.UTC)
	book, err := New(filepath.Join(t.TempDir(), "cadence.log"), WithClock(func() time.Time { return at }))
	require.NoError(t, err)

	book.Warn("  history append failed for #%d  ", 4)
	assert.Equal(t, []string{"2024-03-10T08:30:00Z WARN  history append failed for #4"}, book.Tail(10))
}

func TestLevelFilterAndMirror(t *testing.T) {
	var mirror bytes.Buffer
	book, err := New(filepath.Join(t.TempDir(), "cadence.log"), WithLevel(LevelWarn), WithMirror(&mirror))
	require.NoError(t, err)

	book.Info("hidden")
	book.Debug("hidden")
	book.Warn("disk low")
	book.Error("store down")

	lines := book.Tail(10)
	require.Len(t, lines, 2)
	assert.Contains(t, mirror.String(), "disk low")
	assert.Contains(t, mirror.String(), "store down")
	assert.NotContains(t, mirror.String(), "hidden")
}

func TestNilLogbookIsSafe(t *testing.T) {
	var book *Logbook
	book.Info("nothing")
	assert.Empty(t, book.Path())
	assert.Nil(t, book.Tail(5))
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("warning")
	require.NoError(t, err)
	assert.Equal(t, LevelWarn, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, LevelInfo, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}
