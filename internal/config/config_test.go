package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiced-technology-gmbh/cadence/internal/clierr"
	"github.com/twiced-technology-gmbh/cadence/internal/task"
)

func TestInitAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), DefaultDir)
	cfg, err := Init(dir, "practice")
	require.NoError(t, err)
	assert.DirExists(t, cfg.TasksPath())

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "practice", loaded.Board.Name)
	assert.Equal(t, BackendFile, loaded.Store.Backend)
	assert.Equal(t, filepath.Join(dir, DefaultSQLitePath), loaded.StorePath())
	assert.Equal(t, filepath.Join(dir, DefaultLogFile), loaded.LogPath())

	loc, err := loaded.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMigrateV1(t *testing.T) {
	dir := t.TempDir()
	v1 := "version: 1\nboard:\n  name: legacy\ntasks_dir: tasks\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(v1), 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, cfg.Version)
	assert.Equal(t, BackendFile, cfg.Store.Backend)
	assert.Equal(t, DefaultColumns, cfg.Columns)

	// The migrated file is persisted.
	data, err := os.ReadFile(filepath.Join(dir, ConfigFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "version: 2")
}

func TestMigrateRejectsNewerVersion(t *testing.T) {
	cfg := NewDefault("x")
	cfg.Version = CurrentVersion + 1
	assert.ErrorIs(t, migrate(cfg), ErrInvalid)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing name", func(c *Config) { c.Board.Name = "" }},
		{"missing tasks dir", func(c *Config) { c.TasksDir = "" }},
		{"unknown backend", func(c *Config) { c.Store.Backend = "mongo" }},
		{"postgres without dsn", func(c *Config) { c.Store.Backend = BackendPostgres }},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }},
		{"unknown column", func(c *Config) { c.Columns = []string{"Backlog"} }},
		{"duplicate column", func(c *Config) { c.Columns = []string{"Filed", "filed"} }},
		{"user without id", func(c *Config) { c.Users = []UserConfig{{Name: "x"}} }},
		{"shared token", func(c *Config) {
			c.Users = []UserConfig{{ID: "a", Token: "t"}, {ID: "b", Token: "t"}}
		}},
		{"negative burst", func(c *Config) { c.API.Burst = -1 }},
		{"bad log level", func(c *Config) { c.Log.Level = "chatty" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefault("board")
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}

	require.NoError(t, NewDefault("board").Validate())
}

func TestColumnStatuses(t *testing.T) {
	cfg := NewDefault("board")
	cfg.Columns = []string{"completed", "Not Started"}
	assert.Equal(t, []task.Status{task.StatusCompleted, task.StatusNotStarted}, cfg.ColumnStatuses())

	cfg.Columns = nil
	assert.Len(t, cfg.ColumnStatuses(), len(DefaultColumns))
}

func TestFindDir(t *testing.T) {
	root := t.TempDir()
	_, err := Init(filepath.Join(root, DefaultDir), "found")
	require.NoError(t, err)
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o750))

	got, err := FindDir(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, DefaultDir), got)

	_, err = FindDir(t.TempDir())
	if err != nil {
		assert.True(t, clierr.Is(err, clierr.BoardNotFound))
	}
}

func TestUserByID(t *testing.T) {
	cfg := NewDefault("board")
	cfg.Users = []UserConfig{{ID: "u1", Name: "Alice"}}
	require.NotNil(t, cfg.UserByID("u1"))
	assert.Nil(t, cfg.UserByID("u2"))
}
