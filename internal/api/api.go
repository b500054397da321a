// Package api provides the HTTP server for MicroTutor.
//
// It exposes learner sessions over JSON endpoints: submitting messages, starting
// modules, clicking chips and quiz options, following simulator redirects, and
// reading rendered cards. Sessions live in memory and are swept when idle.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/BTreeMap/MicroTutor/internal/flow"
	"github.com/BTreeMap/MicroTutor/internal/scheduler"
	"github.com/BTreeMap/MicroTutor/internal/simulator"
	"github.com/BTreeMap/MicroTutor/internal/store"
	"github.com/BTreeMap/MicroTutor/internal/util"
)

const (
	// DefaultAddr is the listen address used when none is configured.
	DefaultAddr = ":8080"
	// DefaultSessionIdleTTL is how long an untouched session is kept.
	DefaultSessionIdleTTL = 2 * time.Hour
	// DefaultSweepCron runs the idle session sweep every ten minutes.
	DefaultSweepCron = "*/10 * * * *"
	// DefaultShutdownTimeout bounds graceful shutdown.
	DefaultShutdownTimeout = 10 * time.Second
	// DefaultReadHeaderTimeout guards against slow clients.
	DefaultReadHeaderTimeout = 10 * time.Second

	sweepJobName = "session-sweep"
)

// Fixture is the simulator data the server serves.
type Fixture interface {
	flow.ScreenResolver
	Navigation() []simulator.NavItem
	Screens() []simulator.Screen
}

// Opts holds server configuration.
type Opts struct {
	Addr           string
	SessionIdleTTL time.Duration
	SweepCron      string
	Clock          func() time.Time
}

// Option configures the server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithSessionIdleTTL sets how long idle sessions are kept.
func WithSessionIdleTTL(ttl time.Duration) Option {
	return func(o *Opts) { o.SessionIdleTTL = ttl }
}

// WithSweepCron sets the cron expression of the idle session sweep.
func WithSweepCron(expr string) Option {
	return func(o *Opts) { o.SweepCron = expr }
}

// WithClock overrides the time source for sessions.
func WithClock(now func() time.Time) Option {
	return func(o *Opts) { o.Clock = now }
}

// Server serves learner sessions over HTTP.
type Server struct {
	addr       string
	idleTTL    time.Duration
	sweepCron  string
	now        func() time.Time
	responder  flow.Responder
	curriculum flow.Curriculum
	screens    Fixture
	receipts   store.ReceiptStore
	sessions   *SessionRegistry
	mux        *http.ServeMux
}

// NewServer wires the server. receipts may be nil, in which case /receipts is empty.
func NewServer(responder flow.Responder, curriculum flow.Curriculum, screens Fixture, receipts store.ReceiptStore, opts ...Option) *Server {
	cfg := Opts{
		Addr:           DefaultAddr,
		SessionIdleTTL: DefaultSessionIdleTTL,
		SweepCron:      DefaultSweepCron,
		Clock:          time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if receipts == nil {
		receipts = store.NewInMemoryStore()
	}
	s := &Server{
		addr:       cfg.Addr,
		idleTTL:    cfg.SessionIdleTTL,
		sweepCron:  cfg.SweepCron,
		now:        cfg.Clock,
		responder:  responder,
		curriculum: curriculum,
		screens:    screens,
		receipts:   receipts,
		sessions:   NewSessionRegistry(cfg.Clock),
	}
	s.mux = s.routes()
	slog.Debug("Server.NewServer: configured", "addr", s.addr, "idleTTL", s.idleTTL, "sweepCron", s.sweepCron)
	return s
}

// Handler returns the HTTP handler with all routes.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Sessions exposes the session registry.
func (s *Server) Sessions() *SessionRegistry {
	return s.sessions
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.healthHandler)
	mux.HandleFunc("GET /modules", s.modulesHandler)
	mux.HandleFunc("POST /sessions", s.createSessionHandler)
	mux.HandleFunc("GET /sessions/{id}", s.sessionHandler)
	mux.HandleFunc("POST /sessions/{id}/messages", s.messageHandler)
	mux.HandleFunc("POST /sessions/{id}/modules/{moduleID}", s.selectModuleHandler)
	mux.HandleFunc("POST /sessions/{id}/view", s.viewHandler)
	mux.HandleFunc("POST /sessions/{id}/turns/{turnID}/options", s.taskOptionHandler)
	mux.HandleFunc("POST /sessions/{id}/turns/{turnID}/quiz", s.quizHandler)
	mux.HandleFunc("POST /sessions/{id}/turns/{turnID}/redirect", s.redirectHandler)
	mux.HandleFunc("POST /sessions/{id}/reset", s.resetHandler)
	mux.HandleFunc("GET /sessions/{id}/cards", s.cardsHandler)
	mux.HandleFunc("GET /sessions/{id}/simulator", s.simulatorHandler)
	mux.HandleFunc("GET /sessions/{id}/dashboard", s.dashboardHandler)
	mux.HandleFunc("GET /sessions/{id}/export", s.exportHandler)
	mux.HandleFunc("GET /simulator/screens", s.screensHandler)
	mux.HandleFunc("GET /interview/roles", s.interviewRolesHandler)
	mux.HandleFunc("GET /receipts", s.receiptsHandler)
	return mux
}

// newEngine creates a session engine with a fresh id.
func (s *Server) newEngine() *flow.Engine {
	return flow.NewEngine(util.NewSessionID(), s.responder, s.curriculum, flow.WithClock(s.now))
}

// Run serves until ctx is cancelled, then shuts down gracefully. The idle
// session sweep runs on the configured cron schedule while serving.
func (s *Server) Run(ctx context.Context) error {
	sched := scheduler.NewScheduler()
	defer sched.Stop()
	if s.idleTTL > 0 && s.sweepCron != "" {
		if err := sched.AddJob(sweepJobName, s.sweepCron, func() { s.sessions.Sweep(s.idleTTL) }); err != nil {
			return fmt.Errorf("failed to schedule session sweep: %w", err)
		}
	}

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.mux,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: MicroTutor API listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		slog.Error("Server.Run: server failed", "error", err)
		return err
	case <-ctx.Done():
	}

	slog.Info("Server.Run: shutting down", "sessions", s.sessions.Len())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server.Run: graceful shutdown failed", "error", err)
		return err
	}
	return nil
}
