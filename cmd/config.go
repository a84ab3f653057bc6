package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/cadence/internal/clierr"
	"github.com/twiced-technology-gmbh/cadence/internal/config"
	"github.com/twiced-technology-gmbh/cadence/internal/output"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify board configuration",
	Long:  `View the full configuration, get a specific key, or set a writable value.`,
	RunE:  runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2), //nolint:mnd // key and value
	RunE:  runConfigSet,
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

// configAccessor describes how to get and set a config key.
type configAccessor struct {
	get      func(*config.Config) any
	set      func(*config.Config, string) error
	writable bool
}

func stringAccessor(field func(*config.Config) *string) configAccessor {
	return configAccessor{
		get:      func(c *config.Config) any { return *field(c) },
		set:      func(c *config.Config, v string) error { *field(c) = v; return nil },
		writable: true,
	}
}

func configAccessors() map[string]configAccessor {
	return map[string]configAccessor{
		"version":           {get: func(c *config.Config) any { return c.Version }},
		"tasks_dir":         {get: func(c *config.Config) any { return c.TasksDir }},
		"board.name":        stringAccessor(func(c *config.Config) *string { return &c.Board.Name }),
		"board.description": stringAccessor(func(c *config.Config) *string { return &c.Board.Description }),
		"store.backend":     stringAccessor(func(c *config.Config) *string { return &c.Store.Backend }),
		"store.path":        stringAccessor(func(c *config.Config) *string { return &c.Store.Path }),
		"store.max_conns": {
			get: func(c *config.Config) any { return c.Store.MaxConns },
			set: func(c *config.Config, v string) error {
				n, err := strconv.ParseInt(v, 10, 32)
				if err != nil {
					return clierr.Newf(clierr.InvalidInput, "invalid store.max_conns %q: must be an integer", v)
				}
				c.Store.MaxConns = int32(n)
				return nil
			},
			writable: true,
		},
		"timezone": stringAccessor(func(c *config.Config) *string { return &c.Timezone }),
		"strict_params": {
			get: func(c *config.Config) any { return c.StrictParams },
			set: func(c *config.Config, v string) error {
				b, err := strconv.ParseBool(v)
				if err != nil {
					return clierr.Newf(clierr.InvalidInput, "invalid strict_params %q: must be true or false", v)
				}
				c.StrictParams = b
				return nil
			},
			writable: true,
		},
		"columns": {
			get: func(c *config.Config) any { return c.Columns },
			set: func(c *config.Config, v string) error {
				var cols []string
				for _, s := range strings.Split(v, ",") {
					if s = strings.TrimSpace(s); s != "" {
						cols = append(cols, s)
					}
				}
				c.Columns = cols
				return nil
			},
			writable: true,
		},
		"users": {
			get: func(c *config.Config) any {
				ids := make([]string, 0, len(c.Users))
				for _, u := range c.Users {
					ids = append(ids, u.ID)
				}
				return ids
			},
		},
		"api.addr": stringAccessor(func(c *config.Config) *string { return &c.API.Addr }),
		"api.rate_limit": {
			get: func(c *config.Config) any { return c.API.RateLimit },
			set: func(c *config.Config, v string) error {
				f, err := strconv.ParseFloat(v, 64)
				if err != nil {
					return clierr.Newf(clierr.InvalidInput, "invalid api.rate_limit %q: must be a number", v)
				}
				c.API.RateLimit = f
				return nil
			},
			writable: true,
		},
		"api.burst": {
			get: func(c *config.Config) any { return c.API.Burst },
			set: func(c *config.Config, v string) error {
				n, err := strconv.Atoi(v)
				if err != nil {
					return clierr.Newf(clierr.InvalidInput, "invalid api.burst %q: must be an integer", v)
				}
				c.API.Burst = n
				return nil
			},
			writable: true,
		},
		"log.file":  stringAccessor(func(c *config.Config) *string { return &c.Log.File }),
		"log.level": stringAccessor(func(c *config.Config) *string { return &c.Log.Level }),
	}
}

// allConfigKeys returns config keys in display order.
func allConfigKeys() []string {
	return []string{
		"version",
		"board.name",
		"board.description",
		"tasks_dir",
		"store.backend",
		"store.path",
		"store.max_conns",
		"timezone",
		"strict_params",
		"columns",
		"users",
		"api.addr",
		"api.rate_limit",
		"api.burst",
		"log.file",
		"log.level",
	}
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	accessors := configAccessors()

	if outputFormat() == output.FormatJSON {
		m := make(map[string]any, len(accessors))
		for _, key := range allConfigKeys() {
			m[key] = accessors[key].get(cfg)
		}
		return output.JSON(os.Stdout, m)
	}

	for _, key := range allConfigKeys() {
		val := accessors[key].get(cfg)
		fmt.Fprintf(os.Stdout, "%-20s %v\n", key, formatConfigValue(val))
	}
	return nil
}

func runConfigGet(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	key := args[0]
	acc, ok := configAccessors()[key]
	if !ok {
		return clierr.Newf(clierr.InvalidInput, "unknown config key %q", key)
	}

	val := acc.get(cfg)
	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, val)
	}
	fmt.Fprintln(os.Stdout, formatConfigValue(val))
	return nil
}

func runConfigSet(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	key, value := args[0], args[1]
	acc, ok := configAccessors()[key]
	if !ok {
		return clierr.Newf(clierr.InvalidInput, "unknown config key %q", key)
	}
	if !acc.writable {
		return clierr.Newf(clierr.InvalidInput, "config key %q is read-only", key)
	}

	if err := acc.set(cfg, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return clierr.Wrap(clierr.InvalidInput, err, err.Error())
	}
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]any{"key": key, "value": acc.get(cfg)})
	}

	output.Messagef(os.Stdout, "Set %s = %v", key, formatConfigValue(acc.get(cfg)))
	return nil
}

func formatConfigValue(val any) string {
	switch v := val.(type) {
	case []string:
		if len(v) == 0 {
			return "--"
		}
		return strings.Join(v, ", ")
	case string:
		if v == "" {
			return "--"
		}
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}
