// Package api provides the HTTP REST API and WebSocket server for the
// Q-SYS bridge.
//
// It exposes control reads and writes, change-group management, auto-poll
// scheduling, and cached event queries to operator tooling and dashboards.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/avlogic/qsys-bridge/internal/changegroup"
	"github.com/avlogic/qsys-bridge/internal/control"
	"github.com/avlogic/qsys-bridge/internal/eventcache"
	"github.com/avlogic/qsys-bridge/internal/infrastructure/config"
	"github.com/avlogic/qsys-bridge/internal/infrastructure/logging"
	"github.com/avlogic/qsys-bridge/internal/qrc"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// ControlService is the control-layer surface the API exposes.
// Satisfied by *control.Controller.
type ControlService interface {
	Set(ctx context.Context, reqs []control.SetRequest, opts control.SetOptions) (control.BatchResult, error)
	Get(ctx context.Context, refs []control.Reference) ([]control.ControlValue, error)
	Status(ctx context.Context) (control.CoreStatus, error)
}

// GroupService is the change-group surface the API exposes.
// Satisfied by *changegroup.Registry.
type GroupService interface {
	Create(id string) (warning string, err error)
	AddControls(ctx context.Context, id string, names []string) error
	RemoveControls(ctx context.Context, id string, names []string) error
	Clear(ctx context.Context, id string) error
	Destroy(ctx context.Context, id string) error
	List() []changegroup.Info
	Controls(id string) ([]string, error)
	PollOnce(ctx context.Context, id string) ([]eventcache.Entry, error)
	SetAutoPoll(id string, rateSeconds float64) error
	ClearAutoPoll(id string) error
	HasAutoPoll(id string) bool
	ConsecutiveFailures(id string) int64
}

// EventStore is the cache surface the API exposes.
// Satisfied by *eventcache.Cache.
type EventStore interface {
	Query(ctx context.Context, groupID string, start, end time.Time, timeout time.Duration) ([]eventcache.Entry, error)
	SetPolicy(groupID string, p eventcache.Policy)
	Policy(groupID string) eventcache.Policy
	GroupSize(groupID string) int
}

// TransportStats reports QRC connection counters for the metrics endpoint.
// Satisfied by *qrc.Client.
type TransportStats interface {
	GetStats() qrc.Stats
	IsConnected() bool
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Logger   *logging.Logger
	Controls ControlService
	Groups   GroupService
	Events   EventStore
	QRC      TransportStats // optional: metrics show connected=false when nil
	Hub      *Hub           // if set, the server uses this hub instead of creating its own
	Version  string
}

// Server is the HTTP API server for the bridge.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	logger    *logging.Logger
	controls  ControlService
	groups    GroupService
	events    EventStore
	qrc       TransportStats
	version   string
	startTime time.Time

	server      *http.Server
	hub         *Hub
	externalHub bool
	cancel      context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Controls == nil {
		return nil, fmt.Errorf("control service is required")
	}
	if deps.Groups == nil {
		return nil, fmt.Errorf("group service is required")
	}
	if deps.Events == nil {
		return nil, fmt.Errorf("event store is required")
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		logger:    deps.Logger,
		controls:  deps.Controls,
		groups:    deps.Groups,
		events:    deps.Events,
		qrc:       deps.QRC,
		version:   deps.Version,
		startTime: time.Now(),
	}

	// Use an externally-provided hub when the caller also wires it as an
	// event sink before the server starts.
	if deps.Hub != nil {
		s.hub = deps.Hub
		s.externalHub = true
	}

	return s, nil
}

// Hub returns the server's WebSocket hub, creating it if needed. Callers
// register it as a change-group event sink.
func (s *Server) Hub() *Hub {
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	return s.hub
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, and launches the HTTP
// listener in a background goroutine. The server is stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server listening", "address", s.server.Addr)
	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
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
