// Package server exposes the read API, push ingestion, admin triggers and
// metrics over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rileyhilliard/nekowatch/internal/bridge"
	"github.com/rileyhilliard/nekowatch/internal/host"
	"github.com/rileyhilliard/nekowatch/internal/logger"
	"github.com/rileyhilliard/nekowatch/internal/metrics"
	"github.com/rileyhilliard/nekowatch/internal/monitor"
	"github.com/rileyhilliard/nekowatch/internal/provision"
)

// Deps are the components the handlers call into.
type Deps struct {
	Monitor   *monitor.Service
	Registry  host.Registry
	Provision *provision.Orchestrator
	Bridge    *bridge.Bridge
	Metrics   *metrics.Metrics
	// AgentURL is where install and update download the agent from.
	AgentURL string
	Log      logger.Logger
}

// Server represents the HTTP server
type Server struct {
	router   *chi.Mux
	deps     Deps
	log      logger.Logger
	upgrader websocket.Upgrader
}

// New creates and configures the HTTP server.
func New(d Deps) *Server {
	if d.Log == nil {
		d.Log = logger.Noop()
	}
	s := &Server{
		router: chi.NewRouter(),
		deps:   d,
		log:    d.Log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}

	r := s.router
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	r.Get("/health", s.health)
	r.Handle("/metrics", d.Metrics.Handler())

	r.Route("/stats", func(r chi.Router) {
		r.Get("/data", s.listStats(false))
		r.Post("/update", s.ingest)
		r.Get("/{sid}/data", s.hostStat)
		r.Get("/{sid}/history", s.hostHistory)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Get("/stats/data", s.listStats(true))
		r.Route("/servers/{sid}", func(r chi.Router) {
			r.Post("/init", s.provision(false))
			r.Post("/update", s.provision(true))
			r.Get("/ssh", s.shell)
		})
	})

	return s
}

// Router returns the chi router
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// requestLogger logs each request at debug level through the component
// logger instead of chi's stdlib logger.
func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("%s %s %d %s", r.Method, r.URL.Path, ww.Status(), time.Since(start).Round(time.Microsecond))
		})
	}
}
