// Package config handles board configuration.
package config

const (
	// DefaultDir is the default board directory name.
	DefaultDir = "cadence"
	// DefaultTasksDir is the default tasks subdirectory name.
	DefaultTasksDir = "tasks"
	// DefaultTimezone is the zone used to decide "today" and day boundaries.
	DefaultTimezone = "UTC"

	// DefaultSQLitePath is the database file used by the sqlite backend,
	// relative to the board directory.
	DefaultSQLitePath = "cadence.db"
	// DefaultLogFile is the logbook path relative to the board directory.
	DefaultLogFile = "cadence.log"

	// DefaultAPIAddr is the listen address of `cadence serve`.
	DefaultAPIAddr = "127.0.0.1:8080"
	// DefaultRateLimit is the sustained API request rate per client, per second.
	DefaultRateLimit = 20
	// DefaultBurst is the API burst allowance per client.
	DefaultBurst = 40

	// ConfigFileName is the name of the config file within the board directory.
	ConfigFileName = "config.yml"

	// CurrentVersion is the current config schema version.
	CurrentVersion = 2
)

// Store backends.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Backends lists the accepted store.backend values.
var Backends = []string{BackendFile, BackendSQLite, BackendPostgres, BackendMemory}

// DefaultColumns is the board/TUI column order for a new board.
var DefaultColumns = []string{
	"Not Started",
	"In Progress",
	"Waiting for Client",
	"Filed",
	"On Hold",
	"Pending",
	"Completed",
	"Completed Late",
	"Audited",
}
