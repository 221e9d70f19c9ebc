package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/nerrad567/robot-sequencer/internal/audit"
	"github.com/nerrad567/robot-sequencer/internal/dispatch"
	"github.com/nerrad567/robot-sequencer/internal/execution"
	"github.com/nerrad567/robot-sequencer/internal/infrastructure/config"
	"github.com/nerrad567/robot-sequencer/internal/infrastructure/logging"
	"github.com/nerrad567/robot-sequencer/internal/schedule"
	"github.com/nerrad567/robot-sequencer/internal/sequence"
)

// gracefulShutdownTimeout bounds how long Close waits for in-flight requests.
const gracefulShutdownTimeout = 10 * time.Second

// HealthChecker is a dependency reported by GET /health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config config.APIConfig
	WS     config.WebSocketConfig
	Logger *logging.Logger

	Sequences  *sequence.Store
	Schedules  *schedule.Store
	Executor   *execution.Executor
	Dispatcher dispatch.Dispatcher

	// Audit is optional; GET /events answers 503 without it.
	Audit audit.Repository

	// Hub is shared with the event fan-out so runs stream to clients.
	// When nil the server creates its own.
	Hub *Hub

	// Location is the site timezone used for next_fire_at. Defaults to UTC.
	Location *time.Location

	// Checks are reported by name from GET /health.
	Checks map[string]HealthChecker

	// MQTT and DB are optional and only feed GET /metrics.
	MQTT ConnectionState
	DB   PoolStats

	Version string
}

// Server is the HTTP API server for robotd.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg        config.APIConfig
	wsCfg      config.WebSocketConfig
	logger     *logging.Logger
	sequences  *sequence.Store
	schedules  *schedule.Store
	executor   *execution.Executor
	dispatcher dispatch.Dispatcher
	auditRepo  audit.Repository
	location   *time.Location
	checks     map[string]HealthChecker
	mqtt       ConnectionState
	db         PoolStats
	version    string
	validate   *validator.Validate
	startTime  time.Time

	server      *http.Server
	hub         *Hub
	externalHub bool
	addr        string
	cancel      context.CancelFunc
}

// New creates a new API server with the given dependencies.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Sequences == nil || deps.Schedules == nil {
		return nil, fmt.Errorf("sequence and schedule stores are required")
	}
	if deps.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}

	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}

	s := &Server{
		cfg:        deps.Config,
		wsCfg:      deps.WS,
		logger:     deps.Logger,
		sequences:  deps.Sequences,
		schedules:  deps.Schedules,
		executor:   deps.Executor,
		dispatcher: deps.Dispatcher,
		auditRepo:  deps.Audit,
		location:   loc,
		checks:     deps.Checks,
		mqtt:       deps.MQTT,
		db:         deps.DB,
		version:    deps.Version,
		validate:   newValidator(),
		startTime:  time.Now(),
	}
	if deps.Hub != nil {
		s.hub = deps.Hub
		s.externalHub = true
	} else {
		s.hub = NewHub(deps.WS, deps.Logger)
	}
	return s, nil
}

// Hub returns the WebSocket hub, for wiring into the event fan-out.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start binds the listener and serves in a background goroutine.
// A bind failure (port in use) is returned synchronously.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		s.cancel()
		return fmt.Errorf("api listen on %s: %w", s.server.Addr, err)
	}
	s.addr = ln.Addr().String()

	go func() {
		var serveErr error
		if s.cfg.TLS.Enabled {
			serveErr = s.server.ServeTLS(ln, s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			serveErr = s.server.Serve(ln)
		}
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("api server error", "error", serveErr)
		}
	}()

	s.logger.Info("api server started",
		"address", s.addr,
		"tls", s.cfg.TLS.Enabled,
	)
	return nil
}

// Addr returns the bound listen address, useful when Port is 0.
func (s *Server) Addr() string {
	return s.addr
}

// Close stops background goroutines and gracefully shuts down the listener.
func (s *Server) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	s.logger.Info("api server stopped")
	return nil
}

// HealthCheck reports whether the server is serving.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
