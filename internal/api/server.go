// Package api serves engine statistics and list state over HTTP. Handlers translate URL and query
// parameters into facade calls and wrap results in a {"data": ...} envelope; failures are reported
// as {"error": {"key": ..., "message": ...}} with a status derived from the error kind.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ftlbridge/internal/decode"
	"ftlbridge/internal/lists"
	"ftlbridge/internal/log"
	"ftlbridge/internal/metrics"
	"ftlbridge/internal/network"
	"ftlbridge/internal/stats"
)

// StatsService is the statistics facade served by the API.
type StatsService interface {
	Summary(ctx context.Context) (stats.Summary, error)
	TopDomains(ctx context.Context, params stats.TopParams) ([]decode.DomainCount, error)
	TopClients(ctx context.Context, params stats.TopParams) ([]decode.ClientCount, error)
	Clients(ctx context.Context) ([]decode.ClientCount, error)
	ForwardDestinations(ctx context.Context) ([]decode.QueryTypeBreakdown, error)
	QueryTypes(ctx context.Context) ([]decode.QueryTypeBreakdown, error)
	History(ctx context.Context, count int) ([]decode.QueryLogEntry, error)
	RecentBlocked(ctx context.Context, count int) ([]string, error)
	UnknownQueries(ctx context.Context) ([]decode.QueryLogEntry, error)
	OverTime(ctx context.Context) (stats.OverTime, error)
	OverTimeWindow(ctx context.Context, from time.Time, until time.Time) (stats.OverTime, error)
	OverTimeForwardDestinations(ctx context.Context) (decode.MultiSeries, error)
	OverTimeQueryTypes(ctx context.Context) (decode.MultiSeries, error)
	OverTimeClients(ctx context.Context) (decode.MultiSeries, error)
}

// ListService is the list and status facade served by the API.
type ListService interface {
	List(ctx context.Context, kind lists.Kind) ([]decode.ListEntry, error)
	Status(ctx context.Context) (decode.EngineStatus, error)
}

// PoolStats reports engine connection pool statistics for the health endpoint.
type PoolStats interface {
	Stats() network.Stats
}

// Server is the HTTP API server.
type Server struct {
	Stats  StatsService
	Lists  ListService
	Pool   PoolStats
	Logger log.Logger
	Opts   ServerOpts

	router *gin.Engine
	server *http.Server
}

// ServerOpts formalizes HTTP server configuration options.
type ServerOpts struct {
	// Address is the listening address of the server.
	Address string
	// ReadTimeout is the maximum duration for reading an entire request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration before timing out writes of a response. It does not
	// apply to the summary stream.
	WriteTimeout time.Duration
	// StreamInterval is the period at which the summary stream pushes a fresh summary.
	StreamInterval time.Duration
	// AllowedOrigins lists the browser origins permitted by CORS and the summary stream. Empty
	// permits every origin.
	AllowedOrigins []string
}

// NewServer creates an HTTP server for the specified facades.
func NewServer(statsService StatsService, listService ListService, pool PoolStats, logger log.Logger, opts ServerOpts) *Server {
	gin.SetMode(gin.ReleaseMode)
	metrics.RegisterMetrics()

	if opts.StreamInterval <= 0 {
		opts.StreamInterval = 5 * time.Second
	}

	s := &Server{
		Stats:  statsService,
		Lists:  listService,
		Pool:   pool,
		Logger: logger,
		Opts:   opts,
		router: gin.New(),
	}

	s.router.Use(gin.Recovery())
	s.router.Use(requestID())
	s.router.Use(requestLogger(logger))
	s.router.Use(requestMetrics())
	s.router.Use(corsMiddleware(opts.AllowedOrigins))

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         opts.Address,
		Handler:      s.router,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}

	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until the server is shut down.
func (s *Server) ListenAndServe() error {
	s.Logger.Info("api: starting HTTP server: addr=%s", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api: error serving HTTP: err=%v", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("api: shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("api: error shutting down HTTP server: err=%v", err)
	}

	return nil
}
