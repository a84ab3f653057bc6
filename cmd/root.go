// Package cmd implements the cadence CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/twiced-technology-gmbh/cadence/internal/board"
	"github.com/twiced-technology-gmbh/cadence/internal/clierr"
	"github.com/twiced-technology-gmbh/cadence/internal/config"
	"github.com/twiced-technology-gmbh/cadence/internal/identity"
	"github.com/twiced-technology-gmbh/cadence/internal/lifecycle"
	"github.com/twiced-technology-gmbh/cadence/internal/logbook"
	"github.com/twiced-technology-gmbh/cadence/internal/output"
	"github.com/twiced-technology-gmbh/cadence/internal/store"
	"github.com/twiced-technology-gmbh/cadence/internal/store/filestore"
	"github.com/twiced-technology-gmbh/cadence/internal/store/memstore"
	"github.com/twiced-technology-gmbh/cadence/internal/store/postgres"
	"github.com/twiced-technology-gmbh/cadence/internal/store/sqlite"
)

// version is set at build time via ldflags.
var version = "dev"

// EnvDir overrides board discovery, like --dir.
const EnvDir = "CADENCE_DIR"

// batchLimit bounds concurrent transitions in batch commands.
const batchLimit = 4

// Global flags.
var (
	flagJSON    bool
	flagTable   bool
	flagCompact bool
	flagDir     string
	flagAs      string
	flagNoColor bool
)

var rootCmd = &cobra.Command{
	Use:   "cadence",
	Short: "Track recurring obligations and their audit trail",
	Long: `cadence tracks recurring client obligations (payroll, filings, returns).
Completing a recurring task schedules its next occurrence; every change is
recorded in the task's history. Run cadence tui for the interactive board.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		output.ConfigureTerminal(os.Stdout)
		if flagNoColor || os.Getenv("NO_COLOR") != "" {
			output.DisableColor()
			color.NoColor = true
		}
	},
}

func init() {
	rootCmd.SetGlobalNormalizationFunc(normalizeFlag)
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&flagTable, "table", false, "output as table")
	rootCmd.PersistentFlags().BoolVar(&flagCompact, "compact", false, "compact one-line-per-record output")
	rootCmd.PersistentFlags().BoolVar(&flagCompact, "oneline", false, "alias for --compact")
	rootCmd.PersistentFlags().StringVar(&flagDir, "dir", "", "path to the board directory (env "+EnvDir+")")
	rootCmd.PersistentFlags().StringVar(&flagAs, "as", "", "act as the configured user with this id")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable color output")
}

// normalizeFlag accepts snake_case spellings of flags (--group_by).
func normalizeFlag(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

// Execute runs the root command.
func Execute() {
	_, err := rootCmd.ExecuteC()
	if err == nil {
		return
	}

	var silent *clierr.SilentError
	if errors.As(err, &silent) {
		os.Exit(silent.Code)
	}

	if outputFormat() == output.FormatJSON {
		os.Exit(output.JSONError(os.Stdout, err).ExitCode())
	}

	fmt.Fprintln(os.Stderr, color.RedString("Error:"), err)
	var cliErr *clierr.Error
	if errors.As(err, &cliErr) {
		os.Exit(cliErr.ExitCode())
	}
	os.Exit(1)
}

// resolveDir returns the board directory: --dir, then CADENCE_DIR, then
// the nearest cadence/ directory above the working directory.
func resolveDir() (string, error) {
	if flagDir != "" {
		return flagDir, nil
	}
	if dir := os.Getenv(EnvDir); dir != "" {
		return dir, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	return config.FindDir(cwd)
}

// loadConfig finds and loads the board config.
func loadConfig() (*config.Config, error) {
	dir, err := resolveDir()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(dir)
	if errors.Is(err, config.ErrNotFound) {
		return nil, clierr.Newf(clierr.BoardNotFound, "no cadence board in %s (run 'cadence init' to create one)", dir)
	}
	if errors.Is(err, config.ErrInvalid) {
		return nil, clierr.Wrap(clierr.InvalidInput, err, err.Error())
	}
	return cfg, err
}

// app bundles what a command needs to run operations against a board.
type app struct {
	cfg   *config.Config
	store store.Store
	mgr   *lifecycle.Manager
	log   *logbook.Logbook
	users *identity.Users
	actor *identity.Actor
}

// openApp loads the board and opens its store. Callers must Close it.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, clierr.Wrap(clierr.InvalidInput, err, "loading timezone")
	}

	level, err := logbook.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, clierr.Wrap(clierr.InvalidInput, err, "log.level")
	}
	lb, err := logbook.New(cfg.LogPath(), logbook.WithLevel(level), logbook.WithMirror(os.Stderr))
	if err != nil {
		return nil, fmt.Errorf("opening logbook: %w", err)
	}

	s, err := openStore(ctx, cfg, lb)
	if err != nil {
		return nil, err
	}

	users := identity.FromConfig(cfg)
	actor, err := resolveActor(ctx, users)
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	mgr := lifecycle.New(s,
		lifecycle.WithLocation(loc),
		lifecycle.WithLogger(lb),
		lifecycle.WithStrictParams(cfg.StrictParams),
	)
	return &app{cfg: cfg, store: s, mgr: mgr, log: lb, users: users, actor: actor}, nil
}

// Close releases the store.
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("closing store: %v", err)
	}
}

// resolveActor maps --as to a configured user. Without --as the command
// acts as the system.
func resolveActor(ctx context.Context, users identity.Resolver) (*identity.Actor, error) {
	if flagAs == "" {
		return nil, nil
	}
	actor, err := users.ByID(ctx, flagAs)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, clierr.Newf(clierr.Unauthorized, "unknown user %q", flagAs).
			WithDetails(map[string]any{"user": flagAs})
	}
	return actor, nil
}

// openStore constructs the backend selected by store.backend.
func openStore(ctx context.Context, cfg *config.Config, log logbook.Logger) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendFile, "":
		s, err := filestore.New(cfg.Dir(), cfg.TasksDir, filestore.WithLogger(log))
		if err != nil {
			return nil, clierr.Wrap(clierr.StoreFailure, err, "opening file store")
		}
		return s, nil
	case config.BackendSQLite:
		s, err := sqlite.New(cfg.StorePath())
		if err != nil {
			return nil, clierr.Wrap(clierr.StoreFailure, err, "opening sqlite store")
		}
		return s, nil
	case config.BackendPostgres:
		pc := postgres.DefaultConfig(cfg.Store.DSN)
		if cfg.Store.MaxConns > 0 {
			pc.MaxConns = cfg.Store.MaxConns
		}
		s, err := postgres.New(ctx, pc)
		if err != nil {
			return nil, clierr.Wrap(clierr.StoreFailure, err, "connecting to postgres")
		}
		return s, nil
	case config.BackendMemory:
		return memstore.New(), nil
	default:
		return nil, clierr.Newf(clierr.InvalidInput, "unknown store backend %q", cfg.Store.Backend)
	}
}

// outputFormat returns the detected output format from flags/env.
func outputFormat() output.Format {
	return output.Detect(flagJSON, flagTable, flagCompact)
}

// warnf writes a highlighted warning to stderr.
func warnf(format string, args ...any) {
	fmt.Fprintln(os.Stderr, color.YellowString("Warning:"), fmt.Sprintf(format, args...))
}

// parseIDs splits a comma-separated ID string into deduplicated int IDs.
func parseIDs(arg string) ([]int, error) {
	return board.ParseIDs(arg)
}

// runBatch executes fn for each ID, a few at a time, and reports results in
// ID order. Returns a SilentError with exit code 1 if any operation failed
// (after outputting results).
func runBatch(ctx context.Context, ids []int, fn func(context.Context, int) (*lifecycle.Transition, error)) error {
	results := make([]output.BatchResult, len(ids))
	transitions := make([]*lifecycle.Transition, len(ids))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchLimit)
	for i, id := range ids {
		g.Go(func() error {
			tr, err := fn(gctx, id)
			res := output.BatchResult{ID: id, OK: err == nil}
			if tr != nil && tr.Successor != nil {
				res.Successor = tr.Successor.ID
			}
			if err != nil {
				res.Error = err.Error()
				res.Code = clierr.CodeOf(err)
			}
			mu.Lock()
			results[i], transitions[i] = res, tr
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	anyFailed := false
	for _, r := range results {
		if !r.OK {
			anyFailed = true
		}
	}

	if outputFormat() == output.FormatJSON {
		if err := output.JSON(os.Stdout, results); err != nil {
			return err
		}
	} else {
		var succeeded int
		for i, r := range results {
			if transitions[i] != nil {
				output.TransitionResult(os.Stdout, transitions[i])
			}
			if r.OK {
				succeeded++
			} else {
				fmt.Fprintf(os.Stderr, "%s task #%d: %s\n", color.RedString("Error:"), r.ID, r.Error)
			}
		}
		if len(ids) > 1 {
			output.Messagef(os.Stdout, "Completed %d/%d operations", succeeded, len(ids))
		}
	}

	if anyFailed {
		return &clierr.SilentError{Code: 1}
	}
	return nil
}
