// Package api serves the task lifecycle over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/twiced-technology-gmbh/cadence/internal/identity"
	"github.com/twiced-technology-gmbh/cadence/internal/lifecycle"
	"github.com/twiced-technology-gmbh/cadence/internal/logbook"
	"github.com/twiced-technology-gmbh/cadence/internal/task"
)

const (
	maxBodySize     = 1 << 20 // 1MB
	shutdownTimeout = 5 * time.Second
	readTimeout     = 10 * time.Second
)

// Server is the cadence HTTP API.
type Server struct {
	mgr     *lifecycle.Manager
	users   identity.Resolver
	log     logbook.Logger
	limiter *clientLimiter
	columns []task.Status
	router  *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithLogger logs one line per request to l.
func WithLogger(l logbook.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithRateLimit caps the request rate of each client address. A
// non-positive limit disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *Server) {
		if perSecond <= 0 {
			s.limiter = nil
			return
		}
		s.limiter = newClientLimiter(perSecond, burst)
	}
}

// WithColumns sets the status order used when listing by status.
func WithColumns(columns []task.Status) Option {
	return func(s *Server) { s.columns = columns }
}

// NewServer builds the router. Callers set gin's mode before calling.
func NewServer(mgr *lifecycle.Manager, users identity.Resolver, opts ...Option) *Server {
	s := &Server{
		mgr:     mgr,
		users:   users,
		log:     logbook.Discard,
		columns: task.AuditTargets(),
	}
	for _, opt := range opts {
		opt(s)
	}

	router := gin.New()
	// Client addresses come from the connection, not from forwarding headers.
	_ = router.SetTrustedProxies(nil)
	router.Use(gin.Recovery(), s.requestID, s.requestLog, s.rateLimit)
	s.router = router

	api := router.Group("/api")
	{
		api.GET("/health", s.handleHealth)

		tasks := api.Group("/tasks", s.identify)
		tasks.GET("", s.handleListTasks)
		tasks.POST("", s.handleCreateTask)
		tasks.GET("/:id", s.handleGetTask)
		tasks.PUT("/:id/status", s.handleUpdateStatus)
		tasks.PUT("/:id/audit", s.handleUpdateAudit)
		tasks.GET("/:id/history", s.handleHistory)
	}

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: readTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.Info("api listening on %s", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.log.Info("api shutting down")
	return srv.Shutdown(shutdownCtx)
}
