// Package api serves the operator HTTP API of a box: health, the recent
// event log, a live WebSocket stream, Prometheus metrics, and operator
// endpoints that inject input into the running quest.
//
//	srv, err := api.New(deps)
//	srv.Start(ctx)
//	defer srv.Close()
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/AaronLay10/QuestBox/internal/config"
	"github.com/AaronLay10/QuestBox/internal/events"
	"github.com/AaronLay10/QuestBox/internal/game"
	"github.com/AaronLay10/QuestBox/internal/input"
	"github.com/AaronLay10/QuestBox/internal/logging"
)

// gracefulShutdownTimeout bounds how long Close waits for in-flight requests.
const gracefulShutdownTimeout = 10 * time.Second

// Injector accepts operator input. *input.Manager implements it.
type Injector interface {
	Inject(ev input.Event, source string)
}

// QueueStats exposes input queue pressure. *input.Queue implements it.
type QueueStats interface {
	Len() int
	Cap() int
	Dropped() uint64
}

// OutputActivity reports which actuator classes are running an effect.
// *output.Manager implements it.
type OutputActivity interface {
	Active() map[string]bool
}

// Deps holds what the server needs. Injector is required; the rest may be
// left empty on a box that lacks them.
type Deps struct {
	Config   config.APIConfig
	BoxID    string
	Secrets  config.Secrets
	Logger   *logging.Logger
	Injector Injector
	Queue    QueueStats
	Outputs  OutputActivity

	// Status reports the running quest, if any.
	Status func() (game.Status, bool)

	// Checks are named dependency checks (mqtt, storage) reported by
	// /health and /metrics.
	Checks map[string]func() bool

	Version string
}

// Server is the operator HTTP API.
type Server struct {
	cfg      config.APIConfig
	boxID    string
	secrets  config.Secrets
	logger   *logging.Logger
	injector Injector
	queue    QueueStats
	outputs  OutputActivity
	status   func() (game.Status, bool)
	checks   map[string]func() bool
	version  string
	started  time.Time
	server   *http.Server
}

// New creates a server. It does not listen until Start.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Injector == nil {
		return nil, fmt.Errorf("input injector is required")
	}
	return &Server{
		cfg:      deps.Config,
		boxID:    deps.BoxID,
		secrets:  deps.Secrets,
		logger:   deps.Logger.With("component", "api"),
		injector: deps.Injector,
		queue:    deps.Queue,
		outputs:  deps.Outputs,
		status:   deps.Status,
		checks:   deps.Checks,
		version:  deps.Version,
		started:  time.Now(),
	}, nil
}

// Handler returns the routed handler without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening in the background.
func (s *Server) Start(_ context.Context) error {
	if s.secrets.OperatorAuthEnabled() {
		s.logger.Info("operator authentication enabled")
	} else {
		s.logger.Warn("operator authentication disabled, operator endpoints are open")
	}

	s.server = &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.buildRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLSEnabled() {
			s.logger.Info("API server starting with TLS", "address", s.server.Addr, "cert", s.cfg.CertFile)
			err = s.server.ListenAndServeTLS(s.cfg.CertFile, s.cfg.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
			events.Emit(events.LevelError, "system.error", "api server stopped", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()
	return nil
}

// Close shuts the server down, waiting for in-flight requests.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string          `json:"status"`
	Service   string          `json:"service"`
	Box       string          `json:"box"`
	Version   string          `json:"version"`
	Hostname  string          `json:"hostname"`
	Timestamp string          `json:"ts"`
	Checks    map[string]bool `json:"checks,omitempty"`
	Quest     *game.Status    `json:"quest,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	host, _ := os.Hostname()
	resp := HealthResponse{
		Status:    "ok",
		Service:   "questbox",
		Box:       s.boxID,
		Version:   s.version,
		Hostname:  host,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Checks:    s.runChecks(),
	}
	if st, ok := s.currentStatus(); ok {
		resp.Quest = &st
	}
	for _, up := range resp.Checks {
		if !up {
			resp.Status = "degraded"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, events.Snapshot())
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	st, ok := s.currentStatus()
	if !ok {
		writeNotFound(w, "no quest loaded")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// OperatorResponse is the body returned by operator endpoints.
type OperatorResponse struct {
	OK    bool        `json:"ok"`
	Event input.Event `json:"event"`
}

// handleHint injects a hint button press, as if the player had pressed it.
func (s *Server) handleHint(w http.ResponseWriter, r *http.Request) {
	ev := input.NewEvent(input.DeviceButton, game.ControlHint, nil)
	s.injector.Inject(ev, "operator")
	events.Emit(events.LevelInfo, "operator.hint", "", map[string]interface{}{
		"remote_addr": r.RemoteAddr,
	})
	writeJSON(w, http.StatusOK, OperatorResponse{OK: true, Event: ev})
}

// handleInput injects an arbitrary sensor event:
//
//	{"device_type": "rotary_encoder_picture", "value": "key"}
func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	ev, err := input.ParseEvent(body)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	s.injector.Inject(ev, "operator")
	fields := ev.Fields()
	fields["remote_addr"] = r.RemoteAddr
	events.Emit(events.LevelInfo, "operator.input", "", fields)
	writeJSON(w, http.StatusOK, OperatorResponse{OK: true, Event: ev})
}

func (s *Server) currentStatus() (game.Status, bool) {
	if s.status == nil {
		return game.Status{}, false
	}
	return s.status()
}

func (s *Server) runChecks() map[string]bool {
	if len(s.checks) == 0 {
		return nil
	}
	out := make(map[string]bool, len(s.checks))
	for name, check := range s.checks {
		out[name] = check()
	}
	return out
}
