package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/flemzord/hostjob/internal/core"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Runner is the subset of *core.App the admin server needs.
type Runner interface {
	Jobs() []core.JobStatus
	Trigger(ctx context.Context, name string) error
}

// Compile-time interface checks.
var (
	_ Runner       = (*core.App)(nil)
	_ core.Service = (*Server)(nil)
)

// ServerConfig configures the admin server.
type ServerConfig struct {
	// Addr is the listen address, e.g. "127.0.0.1:9464".
	Addr string

	// Gatherer serves /metrics. Nil uses prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	Logger *slog.Logger
}

// Server is the admin HTTP endpoint: health, metrics and manual job runs.
// It is hosted by the App as a regular service.
type Server struct {
	cfg    ServerConfig
	runner Runner
	logger *slog.Logger

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
	baseCtx  context.Context

	// runs tracks manual runs started by POST /jobs/{name}/run. Once
	// closed is set no new run is added.
	runs   sync.WaitGroup
	closed bool
}

// NewServer creates an admin server for runner.
func NewServer(cfg ServerConfig, runner Runner) *Server {
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:     cfg,
		runner:  runner,
		logger:  logger.With("component", "admin"),
		baseCtx: context.Background(),
	}
}

// Handler constructs the chi mux with all routes wired.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", s.handleHealth())
	r.Handle("/metrics", promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{}))
	r.Post("/jobs/{name}/run", s.handleRun())
	return r
}

// Start implements core.Service. It binds the listener and serves in the
// background. Manual runs use ctx, so they are cancelled with the host.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("admin: listen %s: %w", s.cfg.Addr, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.mu.Lock()
	s.srv = srv
	s.listener = ln
	s.baseCtx = ctx
	s.closed = false
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("admin: serve failed", "error", err)
		}
	}()
	s.logger.Info("admin: listening", "addr", ln.Addr().String())
	return nil
}

// Stop implements core.Service. It stops accepting requests, then waits
// for manual runs already accepted, bounded by ctx.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.closed = true
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	err := srv.Shutdown(ctx)
	if werr := s.waitRuns(ctx); werr != nil {
		err = errors.Join(err, werr)
	}
	return err
}

func (s *Server) waitRuns(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.runs.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("admin: waiting for manual runs: %w", ctx.Err())
	}
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status string           `json:"status"`
	Jobs   []core.JobStatus `json:"jobs"`
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{
			Status: "ok",
			Jobs:   s.runner.Jobs(),
		})
	}
}

// RunResponse is the JSON response for POST /jobs/{name}/run.
type RunResponse struct {
	Job           string `json:"job"`
	Accepted      bool   `json:"accepted"`
	AlreadyActive bool   `json:"already_running"`
}

// handleRun triggers the job in the background and answers 202. A job that
// is already running is reported but still goes through Start, which skips.
func (s *Server) handleRun() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")

		status, ok := s.lookup(name)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown job: " + name})
			return
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "shutting down"})
			return
		}
		ctx := s.baseCtx
		s.runs.Add(1)
		s.mu.Unlock()

		go func() {
			defer s.runs.Done()
			// Failures are logged by the host.
			_ = s.runner.Trigger(ctx, name)
		}()

		writeJSON(w, http.StatusAccepted, RunResponse{
			Job:           name,
			Accepted:      true,
			AlreadyActive: status.Running,
		})
	}
}

func (s *Server) lookup(name string) (core.JobStatus, bool) {
	for _, js := range s.runner.Jobs() {
		if js.Name == name {
			return js, true
		}
	}
	return core.JobStatus{}, false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
