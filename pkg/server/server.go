// Package server exposes generation, execution and workspace cleanup over
// HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/entrhq/testforge/pkg/executor"
	"github.com/entrhq/testforge/pkg/generator"
	"github.com/entrhq/testforge/pkg/logging"
	"github.com/entrhq/testforge/pkg/workspace"
)

// ServiceName and Version are reported by the health endpoint.
const (
	ServiceName = "E2E Test Generator API"
	Version     = "1.0.0"
)

const shutdownTimeout = 10 * time.Second

// Generator is the generation backend. *generator.Generator implements it.
type Generator interface {
	Generate(ctx context.Context, req generator.Request) (*generator.Result, error)
	Release(id string)
	Discard(id string) error
}

// Executor runs stored tests. *executor.Executor implements it.
type Executor interface {
	Execute(ctx context.Context, testID string) (*executor.Execution, error)
}

// Workspaces removes instance workspaces. *workspace.Manager implements it.
type Workspaces interface {
	Cleanup(id string, keepArtifacts bool) (*workspace.CleanupResult, error)
}

// Server routes API requests to the backends.
type Server struct {
	gen            Generator
	exec           Executor
	workspaces     Workspaces
	logger         *logging.Logger
	discardOnError bool
	mux            *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithDiscardOnError removes the workspace of a failed generation instead of
// keeping it for inspection.
func WithDiscardOnError(enabled bool) Option {
	return func(s *Server) {
		s.discardOnError = enabled
	}
}

// New creates a Server.
func New(gen Generator, exec Executor, workspaces Workspaces, opts ...Option) *Server {
	s := &Server{
		gen:        gen,
		exec:       exec,
		workspaces: workspaces,
		mux:        http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.Discard("server")
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleHealth)
	s.mux.HandleFunc("POST /generate-test", s.handleGenerate)
	s.mux.HandleFunc("POST /execute-test", s.handleExecute)
	s.mux.HandleFunc("DELETE /workspace/{id}", s.handleCleanup)
}

// Handler returns the API handler with CORS applied.
func (s *Server) Handler() http.Handler {
	return withCORS(s.mux)
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Infof("listening on %s", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Infof("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// withCORS allows any origin, method and header without credentials.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		if req := r.Header.Get("Access-Control-Request-Headers"); req != "" {
			h.Set("Access-Control-Allow-Headers", req)
		} else {
			h.Set("Access-Control-Allow-Headers", "*")
		}
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
