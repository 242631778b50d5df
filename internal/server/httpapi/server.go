// Package httpapi serves the operational HTTP endpoints: liveness,
// readiness and a small stats document.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrijs2005/fitsync/internal/domain"
	"github.com/dmitrijs2005/fitsync/internal/logging"
)

// DBPinger reports whether the database is reachable.
type DBPinger interface {
	PingContext(ctx context.Context) error
}

// Watchers reports how many Watch streams follow a collection.
type Watchers interface {
	Subscribers(collection string) int
}

type Server struct {
	address  string
	logger   logging.Logger
	db       DBPinger
	watchers Watchers
}

func NewServer(a string, l logging.Logger, db DBPinger, w Watchers) *Server {
	return &Server{
		address:  a,
		logger:   l.With("module", "http"),
		db:       db,
		watchers: w,
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/liveness", s.handleLiveness)
	r.Get("/readiness", s.handleReadiness)
	r.Get("/stats", s.handleStats)

	return r
}

func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listener.Addr().String())

	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, "OK")
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Warn(ctx, "readiness check failed", "error", err)
		writeText(w, http.StatusServiceUnavailable, "Unhealthy. Database unreachable")
		return
	}
	writeText(w, http.StatusOK, "OK")
}

type stats struct {
	Watchers map[string]int `json:"watchers"`
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	out := stats{Watchers: make(map[string]int, len(domain.Collections))}
	for _, c := range domain.Collections {
		out.Watchers[c] = s.watchers.Subscribers(c)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(out)
}

func writeText(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}
