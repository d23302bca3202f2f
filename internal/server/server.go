// Package server wires the OpenWire handler, the demo components and a state
// backend into an HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pthm/openwire"
	"github.com/pthm/openwire/internal/config"
	"github.com/pthm/openwire/internal/demo"
	"github.com/pthm/openwire/lib/state"
	"github.com/pthm/openwire/lib/template"
)

// WSPath serves the websocket bridge.
const WSPath = "/openwire/ws"

const (
	purgeInterval = time.Minute
	sweepInterval = 5 * time.Minute
	visitorIdle   = 10 * time.Minute
)

// Server is the assembled application.
type Server struct {
	cfg      config.Config
	logger   *slog.Logger
	backend  state.Backend
	closer   io.Closer
	loader   *template.Loader
	sessions *state.Manager
	runner   *openwire.Runner
	handler  *openwire.Handler
	limiter  *RateLimiter
	router   chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithBackend uses b instead of opening the backend named in the config.
// The caller keeps ownership of b.
func WithBackend(b state.Backend) Option {
	return func(s *Server) {
		s.backend = b
	}
}

// New assembles a server from cfg.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	s := &Server{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(s)
	}

	if s.backend == nil {
		b, closer, err := OpenBackend(ctx, cfg.State)
		if err != nil {
			return nil, err
		}
		s.backend, s.closer = b, closer
	}

	var src openwire.TemplateSource
	if cfg.Templates.Dir != "" {
		l, err := template.NewLoader(cfg.Templates.Dir, template.WithLogger(logger.With("component", "template")))
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("server: load templates: %w", err)
		}
		s.loader, src = l, l
	}

	reg := openwire.NewRegistry()
	demo.Init(reg, src)

	runnerOpts := []openwire.RunnerOption{openwire.WithLogger(logger.With("component", "openwire.runner"))}
	if cfg.Security.StateKey != "" {
		sealer, err := openwire.NewSealer([]byte(cfg.Security.StateKey))
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("server: state key: %w", err)
		}
		runnerOpts = append(runnerOpts, openwire.WithSealer(sealer))
	}
	s.runner = openwire.NewRunner(reg, runnerOpts...)

	s.sessions = state.NewManager(s.backend,
		state.WithTTL(cfg.State.TTL),
		state.WithSecureCookie(cfg.Security.SecureCookie),
		state.WithLogger(logger.With("component", "session")),
	)

	handlerOpts := []openwire.HandlerOption{
		openwire.WithSessions(openwire.Sessions(s.sessions)),
		openwire.WithBodyLimit(cfg.Security.BodyLimit),
		openwire.WithHandlerLogger(logger.With("component", "openwire.handler")),
	}
	if cfg.Security.RequireHeader {
		handlerOpts = append(handlerOpts, openwire.WithRequiredHeader())
	}
	s.handler = openwire.NewHandler(s.runner, handlerOpts...)
	s.limiter = NewRateLimiter(cfg.Security.RateLimit, cfg.Security.RateBurst)
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(RequestLogger(s.logger))
	r.Use(SecurityHeaders)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		openwire.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/", s.servePage)

	r.Group(func(r chi.Router) {
		r.Use(s.limiter.Middleware)
		endpoints := s.handler.Routes()
		r.Handle(openwire.BridgePath, endpoints)
		r.Handle(openwire.UpdatePath, endpoints)
		r.Handle(openwire.AdminUpdatePath, endpoints)
		if s.cfg.Server.WebSocket {
			r.Get(WSPath, s.serveWS)
		}
	})
	return r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Runner returns the component runner.
func (s *Server) Runner() *openwire.Runner {
	return s.runner
}

// Sessions returns the session manager.
func (s *Server) Sessions() *state.Manager {
	return s.sessions
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go janitor(ctx, s.backend, purgeInterval, s.logger)
	go s.sweepVisitors(ctx)
	if s.loader != nil && s.cfg.Templates.Watch {
		go func() {
			if err := s.loader.Watch(ctx); err != nil {
				s.logger.Error("template watcher stopped", "error", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", srv.Addr, "backend", s.cfg.State.Backend)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer stop()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

func (s *Server) sweepVisitors(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.limiter.Sweep(visitorIdle)
		}
	}
}

// Close releases the state backend when the server opened it.
func (s *Server) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
