package config

import (
	"fmt"

	"github.com/twiced-technology-gmbh/cadence/internal/logbook"
)

// migrate upgrades a config from its current version to CurrentVersion.
// Each migration function transforms the config one version forward.
// Returns nil if no migration is needed (already at current version).
// Returns an error if the config version is newer than what this binary supports.
func migrate(cfg *Config) error {
	if cfg.Version == CurrentVersion {
		return nil
	}
	if cfg.Version > CurrentVersion {
		return fmt.Errorf(
			"%w: config version %d is newer than supported version %d (upgrade cadence)",
			ErrInvalid, cfg.Version, CurrentVersion,
		)
	}
	if cfg.Version < 1 {
		return fmt.Errorf("%w: config version %d is invalid", ErrInvalid, cfg.Version)
	}

	for cfg.Version < CurrentVersion {
		fn, ok := migrations[cfg.Version]
		if !ok {
			return fmt.Errorf("%w: no migration path from version %d", ErrInvalid, cfg.Version)
		}
		if err := fn(cfg); err != nil {
			return fmt.Errorf("migrating config from v%d: %w", cfg.Version, err)
		}
	}

	return nil
}

// migrations maps each version to the function that migrates it to the next version.
// The migration function must increment cfg.Version after a successful migration.
var migrations = map[int]func(*Config) error{
	1: migrateV1ToV2,
}

// migrateV1ToV2 adds the store, timezone, columns, api and log sections.
// v1 boards were always file-backed.
func migrateV1ToV2(cfg *Config) error { //nolint:unparam // signature must match migrations map type
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = BackendFile
	}
	if cfg.Timezone == "" {
		cfg.Timezone = DefaultTimezone
	}
	if len(cfg.Columns) == 0 {
		cfg.Columns = append([]string{}, DefaultColumns...)
	}
	if cfg.API.Addr == "" {
		cfg.API = APIConfig{Addr: DefaultAPIAddr, RateLimit: DefaultRateLimit, Burst: DefaultBurst}
	}
	if cfg.Log.File == "" {
		cfg.Log = LogConfig{File: DefaultLogFile, Level: string(logbook.LevelInfo)}
	}
	cfg.Version = 2
	return nil
}
