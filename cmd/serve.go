package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/cadence/internal/api"
	"github.com/twiced-technology-gmbh/cadence/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the board over HTTP",
	Long: `Starts the JSON API (GET/POST /api/tasks, PUT /api/tasks/:id/status,
PUT /api/tasks/:id/audit, GET /api/tasks/:id/history). Requests identify
their user with a "token" cookie or an Authorization: Bearer header holding
a token from the users section of config.yml.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from config api.addr)")
	serveCmd.Flags().Bool("debug", false, "run gin in debug mode")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if debug, _ := cmd.Flags().GetBool("debug"); !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = a.cfg.API.Addr
	}
	if addr == "" {
		addr = config.DefaultAPIAddr
	}

	srv := api.NewServer(a.mgr, a.users,
		api.WithLogger(a.log),
		api.WithRateLimit(a.cfg.API.RateLimit, a.cfg.API.Burst),
		api.WithColumns(a.cfg.ColumnStatuses()),
	)
	return srv.Run(ctx, addr)
}
