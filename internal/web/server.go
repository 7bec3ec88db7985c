package web

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/faultloc/internal/observability"
	"github.com/example/faultloc/internal/storage"
)

// Server serves recorded localization runs as JSON.
type Server struct {
	addr     string
	handlers *Handlers
	metrics  *observability.Metrics
	logger   *zap.Logger
	mux      *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics exposes metrics on /metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// NewServer creates a new web server
func NewServer(addr string, store storage.Storage, opts ...Option) *Server {
	s := &Server{
		addr:     addr,
		handlers: NewHandlers(store),
		logger:   zap.NewNop(),
		mux:      http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Trailing slash enables prefix matching for all /api/runs/* paths
	s.mux.HandleFunc("/api/runs/", s.corsMiddleware(s.routeRuns))
	if s.metrics != nil {
		s.mux.Handle("/metrics", s.metrics)
	}
	s.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(indexHTML))
	})
}

// routeRuns routes requests to the appropriate handler based on the path
func (s *Server) routeRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/runs")

	switch {
	case path == "" || path == "/":
		// GET /api/runs/ - list runs
		s.handlers.ListRuns(w, r)
	case strings.HasSuffix(path, "/results"):
		// GET /api/runs/:id/results - executed inputs of a run
		s.handlers.GetResults(w, r)
	default:
		// GET /api/runs/:id - run with its combinations
		s.handlers.GetRun(w, r)
	}
}

// corsMiddleware adds CORS headers to responses
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

// Serve runs the HTTP server until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("web server listening", zap.String("addr", s.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// Handler returns the HTTP handler for the server
func (s *Server) Handler() http.Handler {
	return s.mux
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>trt-localize</title>
    <style>
        body { font-family: -apple-system, sans-serif; max-width: 800px; margin: 60px auto; color: #333; }
        code { background: #f3f4f6; padding: 2px 8px; border-radius: 4px; }
    </style>
</head>
<body>
    <h1>trt-localize</h1>
    <ul>
        <li><code>GET /api/runs/</code> recorded runs, newest first</li>
        <li><code>GET /api/runs/{id}</code> a run with its combinations</li>
        <li><code>GET /api/runs/{id}/results</code> inputs executed by a run</li>
        <li><code>GET /metrics</code> process metrics</li>
    </ul>
</body>
</html>
`
