// Package adminhttp exposes a small chi-routed HTTP surface alongside the
// TCP control port: health, Prometheus metrics, and a JSON mirror of
// LIST_THREADS for dashboards that would rather poll HTTP than speak the
// text protocol.
package adminhttp

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cansrv/cansrv/internal/globalstate"
	"github.com/cansrv/cansrv/internal/metrics"
)

// Server wraps a chi.Mux serving /healthz, /metrics, and /admin/threads.
type Server struct {
	router  *chi.Mux
	threads *globalstate.ThreadRegistry
}

func NewServer(threads *globalstate.ThreadRegistry) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		threads: threads,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(recordRequestDuration)
}

// recordRequestDuration observes cansrv_http_request_duration_seconds for
// every admin HTTP request, labeled by method, route pattern, and status.
func recordRequestDuration(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		metrics.RecordHTTPRequest(r.Method, path, strconv.Itoa(ww.Status()), time.Since(start).Seconds())
	})
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/admin/threads", s.handleThreads)
	s.router.Handle("/metrics", promhttp.Handler())
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// threadJSON is the JSON mirror of one LIST_THREADS line.
type threadJSON struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
}

func (s *Server) handleThreads(w http.ResponseWriter, r *http.Request) {
	list := s.threads.List()
	out := make([]threadJSON, 0, len(list))
	for _, t := range list {
		out = append(out, threadJSON{ID: t.ID, Kind: t.Kind})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe runs the admin HTTP server on addr until ctx is
// canceled, then shuts it down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{Addr: addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return httpServer.Shutdown(context.Background())
	}
}
