package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/twiced-technology-gmbh/cadence/internal/clierr"
	"github.com/twiced-technology-gmbh/cadence/internal/logbook"
	"github.com/twiced-technology-gmbh/cadence/internal/task"
)

const fileMode = 0o600

// Sentinel errors.
var (
	ErrNotFound = errors.New("no cadence board found (run 'cadence init' to create one)")
	ErrInvalid  = errors.New("invalid config")
)

// Config represents the board configuration.
type Config struct {
	Version      int          `yaml:"version"`
	Board        BoardConfig  `yaml:"board"`
	TasksDir     string       `yaml:"tasks_dir"`
	Store        StoreConfig  `yaml:"store"`
	Timezone     string       `yaml:"timezone,omitempty"`
	StrictParams bool         `yaml:"strict_params,omitempty"`
	Columns      []string     `yaml:"columns,omitempty"`
	Users        []UserConfig `yaml:"users,omitempty"`
	API          APIConfig    `yaml:"api,omitempty"`
	Log          LogConfig    `yaml:"log,omitempty"`

	// dir is the absolute path to the board directory (not serialized).
	dir string `yaml:"-"`
}

// BoardConfig holds board metadata.
type BoardConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Backend  string `yaml:"backend" json:"backend"`
	Path     string `yaml:"path,omitempty" json:"path,omitempty"`
	DSN      string `yaml:"dsn,omitempty" json:"-"`
	MaxConns int32  `yaml:"max_conns,omitempty" json:"max_conns,omitempty"`
}

// UserConfig is one known user. Token authenticates API requests.
type UserConfig struct {
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Token string `yaml:"token,omitempty" json:"-"`
}

// APIConfig configures `cadence serve`.
type APIConfig struct {
	Addr      string  `yaml:"addr,omitempty" json:"addr,omitempty"`
	RateLimit float64 `yaml:"rate_limit,omitempty" json:"rate_limit,omitempty"`
	Burst     int     `yaml:"burst,omitempty" json:"burst,omitempty"`
}

// LogConfig configures the logbook.
type LogConfig struct {
	File  string `yaml:"file,omitempty" json:"file,omitempty"`
	Level string `yaml:"level,omitempty" json:"level,omitempty"`
}

// Dir returns the absolute path to the board directory.
func (c *Config) Dir() string {
	return c.dir
}

// SetDir sets the board directory path on the config.
func (c *Config) SetDir(dir string) {
	c.dir = dir
}

// TasksPath returns the absolute path to the tasks directory.
func (c *Config) TasksPath() string {
	return filepath.Join(c.dir, c.TasksDir)
}

// ConfigPath returns the absolute path to the config file.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.dir, ConfigFileName)
}

// StorePath returns the sqlite database path, resolved against the board
// directory when relative.
func (c *Config) StorePath() string {
	return c.resolve(c.Store.Path, DefaultSQLitePath)
}

// LogPath returns the logbook path, resolved against the board directory
// when relative.
func (c *Config) LogPath() string {
	return c.resolve(c.Log.File, DefaultLogFile)
}

func (c *Config) resolve(p, fallback string) string {
	if p == "" {
		p = fallback
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.dir, p)
}

// Location returns the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

// ColumnStatuses returns the configured column order as statuses.
// Unknown names are skipped (Validate rejects them).
func (c *Config) ColumnStatuses() []task.Status {
	cols := c.Columns
	if len(cols) == 0 {
		cols = DefaultColumns
	}
	out := make([]task.Status, 0, len(cols))
	for _, name := range cols {
		if s, ok := task.ParseStatus(name, task.AuditTargets()); ok {
			out = append(out, s)
		}
	}
	return out
}

// UserByID returns the user with the given id, or nil.
func (c *Config) UserByID(id string) *UserConfig {
	for i := range c.Users {
		if c.Users[i].ID == id {
			return &c.Users[i]
		}
	}
	return nil
}

// NewDefault creates a Config with default values.
func NewDefault(name string) *Config {
	return &Config{
		Version:  CurrentVersion,
		Board:    BoardConfig{Name: name},
		TasksDir: DefaultTasksDir,
		Store:    StoreConfig{Backend: BackendFile},
		Timezone: DefaultTimezone,
		Columns:  append([]string{}, DefaultColumns...),
		API: APIConfig{
			Addr:      DefaultAPIAddr,
			RateLimit: DefaultRateLimit,
			Burst:     DefaultBurst,
		},
		Log: LogConfig{File: DefaultLogFile, Level: string(logbook.LevelInfo)},
	}
}

// Validate checks the config for errors.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("%w: unsupported version %d (expected %d)", ErrInvalid, c.Version, CurrentVersion)
	}
	if c.Board.Name == "" {
		return fmt.Errorf("%w: board.name is required", ErrInvalid)
	}
	if c.TasksDir == "" {
		return fmt.Errorf("%w: tasks_dir is required", ErrInvalid)
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("%w: invalid timezone %q: %w", ErrInvalid, c.Timezone, err)
	}
	if err := c.validateColumns(); err != nil {
		return err
	}
	if err := c.validateUsers(); err != nil {
		return err
	}
	if c.API.RateLimit < 0 || c.API.Burst < 0 {
		return fmt.Errorf("%w: api.rate_limit and api.burst must be >= 0", ErrInvalid)
	}
	if _, err := logbook.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %w", ErrInvalid, err)
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case BackendFile, BackendSQLite, BackendMemory:
	case BackendPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("%w: store.dsn is required for the postgres backend", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown store.backend %q (allowed: %v)", ErrInvalid, c.Store.Backend, Backends)
	}
	if c.Store.MaxConns < 0 {
		return fmt.Errorf("%w: store.max_conns must be >= 0", ErrInvalid)
	}
	return nil
}

func (c *Config) validateColumns() error {
	seen := make(map[task.Status]bool, len(c.Columns))
	for _, name := range c.Columns {
		s, ok := task.ParseStatus(name, task.AuditTargets())
		if !ok {
			return fmt.Errorf("%w: columns references unknown status %q", ErrInvalid, name)
		}
		if seen[s] {
			return fmt.Errorf("%w: columns contain duplicates", ErrInvalid)
		}
		seen[s] = true
	}
	return nil
}

func (c *Config) validateUsers() error {
	ids := make(map[string]bool, len(c.Users))
	tokens := make(map[string]bool, len(c.Users))
	for _, u := range c.Users {
		if u.ID == "" {
			return fmt.Errorf("%w: user id is required", ErrInvalid)
		}
		if ids[u.ID] {
			return fmt.Errorf("%w: duplicate user id %q", ErrInvalid, u.ID)
		}
		ids[u.ID] = true
		if u.Token == "" {
			continue
		}
		if tokens[u.Token] {
			return fmt.Errorf("%w: user %q shares a token with another user", ErrInvalid, u.ID)
		}
		tokens[u.Token] = true
	}
	return nil
}

// Init creates a new board in the given directory with default settings.
// It creates the board directory, tasks subdirectory, and config file.
func Init(dir, name string) (*Config, error) {
	const dirMode = 0o750

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfg := NewDefault(name)
	cfg.SetDir(absDir)

	if err := os.MkdirAll(cfg.TasksPath(), dirMode); err != nil {
		return nil, fmt.Errorf("creating tasks directory: %w", err)
	}

	if err := cfg.Save(); err != nil {
		return nil, fmt.Errorf("writing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to its config file.
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(c.ConfigPath(), data, fileMode)
}

// Load reads and validates a config from the given board directory.
func Load(dir string) (*Config, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	path := filepath.Join(absDir, ConfigFileName)
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted source
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.dir = absDir

	// Migrate old config versions forward before validating.
	oldVersion := cfg.Version
	if err := migrate(&cfg); err != nil {
		return nil, err
	}

	// Persist migrated config so future loads skip re-migration.
	if cfg.Version != oldVersion {
		if err := cfg.Save(); err != nil {
			return nil, fmt.Errorf("saving migrated config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// FindDir walks upward from startDir looking for a board directory
// containing config.yml. Returns the absolute path to the board directory.
func FindDir(startDir string) (string, error) {
	absStart, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	dir := absStart
	for {
		candidate := filepath.Join(dir, DefaultDir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return filepath.Join(dir, DefaultDir), nil
		}

		// Also check if we're inside the board directory itself.
		candidate = filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", clierr.New(clierr.BoardNotFound,
				"no cadence board found (run 'cadence init' to create one)")
		}
		dir = parent
	}
}
