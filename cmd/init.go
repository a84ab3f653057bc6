package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/cadence/internal/clierr"
	"github.com/twiced-technology-gmbh/cadence/internal/config"
	"github.com/twiced-technology-gmbh/cadence/internal/output"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new board",
	Long: `Creates a board directory with config.yml and a tasks/ subdirectory.
The store backend defaults to plain files; sqlite and postgres are also available.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().String("name", "", "board name (defaults to current directory name)")
	initCmd.Flags().String("backend", config.BackendFile, "store backend ("+strings.Join(config.Backends, ", ")+")")
	initCmd.Flags().String("dsn", "", "postgres connection string")
	initCmd.Flags().String("timezone", config.DefaultTimezone, "IANA zone deciding which day is today")
	initCmd.Flags().Bool("strict-params", false, "reject recurrence parameters that do not fit their frequency")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	dir := flagDir
	if dir == "" {
		dir = os.Getenv(EnvDir)
	}
	if dir == "" {
		dir = config.DefaultDir
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	if _, err := os.Stat(filepath.Join(absDir, config.ConfigFileName)); err == nil {
		return clierr.Newf(clierr.BoardAlreadyExists, "board already initialized in %s", absDir).
			WithDetails(map[string]any{"dir": absDir})
	}

	name, _ := cmd.Flags().GetString("name")
	if name == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		name = filepath.Base(cwd)
	}

	cfg := config.NewDefault(name)
	cfg.SetDir(absDir)
	cfg.Store.Backend, _ = cmd.Flags().GetString("backend")
	cfg.Store.DSN, _ = cmd.Flags().GetString("dsn")
	cfg.Timezone, _ = cmd.Flags().GetString("timezone")
	cfg.StrictParams, _ = cmd.Flags().GetBool("strict-params")

	if err := cfg.Validate(); err != nil {
		return clierr.Wrap(clierr.InvalidInput, err, err.Error())
	}

	tasksDir := cfg.TasksPath()
	const dirMode = 0o750
	if err := os.MkdirAll(tasksDir, dirMode); err != nil {
		return fmt.Errorf("creating tasks directory: %w", err)
	}
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	format := outputFormat()
	if format == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]string{
			"status":   "initialized",
			"dir":      absDir,
			"name":     name,
			"config":   cfg.ConfigPath(),
			"backend":  cfg.Store.Backend,
			"timezone": cfg.Timezone,
		})
	}

	output.Messagef(os.Stdout, "Initialized board %q in %s", name, absDir)
	output.Messagef(os.Stdout, "  Config:   %s", cfg.ConfigPath())
	output.Messagef(os.Stdout, "  Backend:  %s", cfg.Store.Backend)
	output.Messagef(os.Stdout, "  Timezone: %s", cfg.Timezone)
	output.Messagef(os.Stdout, "  Columns:  %s", strings.Join(cfg.Columns, ", "))
	return nil
}
