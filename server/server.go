// Package server runs a logos application: it owns the HTTP listener,
// the middleware stack, the database connections and the lifecycle
// hooks that start and stop them.
package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/IntellionInc/logos/connection"
	"github.com/IntellionInc/logos/envelope"
	"github.com/IntellionInc/logos/router"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Server is one HTTP service.
type Server struct {
	port            int
	shutdownTimeout time.Duration
	log             envelope.BasicLogger
	app             *App
	mux             *mux.Router
	connections     *connection.Manager

	lock sync.Mutex
	addr net.Addr
}

// Opt configures a Server.
type Opt func(*Server)

// WithPort sets the listening port.  Zero picks a free port.
func WithPort(port int) Opt {
	return func(s *Server) {
		s.port = port
	}
}

// WithShutdownTimeout bounds graceful shutdown.
func WithShutdownTimeout(d time.Duration) Opt {
	return func(s *Server) {
		s.shutdownTimeout = d
	}
}

// WithLogger sets the server's logger.
func WithLogger(log envelope.BasicLogger) Opt {
	return func(s *Server) {
		s.log = log
	}
}

// WithConnections shares a connection manager.
func WithConnections(m *connection.Manager) Opt {
	return func(s *Server) {
		s.connections = m
	}
}

// New creates a server.  Request ids are always assigned.
func New(opts ...Opt) *Server {
	s := &Server{
		port:            3000,
		shutdownTimeout: 10 * time.Second,
		log:             envelope.NoLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.connections == nil {
		s.connections = connection.NewManager()
	}
	s.app = NewApp(s.log)
	s.mux = mux.NewRouter()
	s.mux.Use(RequestID(), AccessLog(s.log))
	s.app.On(Stop, func(context.Context) error {
		return s.connections.Close()
	})
	return s
}

// App exposes the lifecycle hooks so that libraries can add callbacks.
func (s *Server) App() *App { return s.app }

// Connections is the server's connection manager.
func (s *Server) Connections() *connection.Manager { return s.connections }

// Handler is the server's root handler.
func (s *Server) Handler() http.Handler { return s.mux }

// UseMiddleware adds middleware in the order given.
func (s *Server) UseMiddleware(mw ...mux.MiddlewareFunc) *Server {
	s.mux.Use(mw...)
	return s
}

// UseRouter mounts the routes of rt.  Unknown paths and methods get
// the controller payload.
func (s *Server) UseRouter(rt *router.Router) error {
	if err := rt.Mount(s.mux); err != nil {
		return err
	}
	s.mux.NotFoundHandler = rt.NotFoundHandler()
	s.mux.MethodNotAllowedHandler = rt.MethodNotAllowedHandler()
	return nil
}

// UseDatabase creates a named connection that is opened on start.
func (s *Server) UseDatabase(name string, cfg connection.Config) error {
	if err := s.connections.Create(name, cfg); err != nil {
		return err
	}
	s.app.On(Start, func(ctx context.Context) error {
		_, err := s.connections.Connect(ctx, name)
		return err
	})
	return nil
}

// Addr is the bound address while serving.
func (s *Server) Addr() net.Addr {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.addr
}

// Serve runs start hooks, listens, and serves until ctx is cancelled
// or the listener fails.  Stop and shutdown hooks run on the way out.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(s.port))
	if err != nil {
		return errors.Wrap(err, "listen")
	}
	return s.ServeListener(ctx, listener)
}

// ServeListener is Serve on an existing listener.
func (s *Server) ServeListener(ctx context.Context, listener net.Listener) error {
	if err := s.app.Do(ctx, Start); err != nil {
		_ = listener.Close()
		return errors.Wrap(err, "start")
	}
	s.lock.Lock()
	s.addr = listener.Addr()
	s.lock.Unlock()

	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Debug("Listening", map[string]interface{}{"addr": listener.Addr().String()})

	served := make(chan error, 1)
	go func() {
		served <- srv.Serve(listener)
	}()

	var serveErr error
	select {
	case serveErr = <-served:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		serveErr = srv.Shutdown(shutdownCtx)
		<-served
	}
	if errors.Is(serveErr, http.ErrServerClosed) {
		serveErr = nil
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	// a failed stop has already run the shutdown callbacks
	stopErr := s.app.Do(stopCtx, Stop)
	if stopErr == nil {
		stopErr = s.app.Do(stopCtx, Shutdown)
	}
	err := multierr.Combine(serveErr, stopErr)
	s.log.Debug("Stopped", map[string]interface{}{"addr": listener.Addr().String()})
	return err
}
