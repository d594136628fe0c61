package monitor

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gobwas/ws"

	"github.com/xraph/conveyor/id"
)

// Server serves a Registry over HTTP.
//
// Routes:
//
//	GET /jobs          list of running job snapshots
//	GET /jobs/{runID}  snapshot of one run
//	GET /jobs/stream   WebSocket stream of Update messages
type Server struct {
	registry *Registry
	logger   *slog.Logger
	buffer   int
	mux      *http.ServeMux
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the server logger.
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// WithStreamBuffer sets the per-connection update buffer of the stream.
func WithStreamBuffer(n int) ServerOption {
	return func(s *Server) { s.buffer = n }
}

// NewServer creates a Server for registry.
func NewServer(registry *Registry, opts ...ServerOption) *Server {
	s := &Server{
		registry: registry,
		logger:   slog.Default(),
		buffer:   64,
		mux:      http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mux.HandleFunc("GET /jobs", s.listJobs)
	s.mux.HandleFunc("GET /jobs/stream", s.stream)
	s.mux.HandleFunc("GET /jobs/{runID}", s.getJob)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) listJobs(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.registry.List())
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	runID, err := id.ParseRunID(r.PathValue("runID"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid run ID: %v", err))
		return
	}
	snap, ok := s.registry.Lookup(runID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

// stream upgrades the connection and forwards registry updates until the
// client goes away. Runs already registered are sent first as
// registered updates.
func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	conn, rw, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		s.logger.Warn("monitor stream upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()
	var br *bufio.Reader
	if rw != nil {
		br = rw.Reader
	}
	sc := newStreamConn(conn, br)

	updates, cancel := s.registry.Subscribe(s.buffer)
	defer cancel()

	ctx, stop := context.WithCancel(r.Context())
	defer stop()

	go func() {
		defer stop()
		_ = sc.readLoop()
	}()

	for _, snap := range s.registry.List() {
		if err := s.send(sc, Update{Kind: UpdateRegistered, Report: snap}); err != nil {
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if err := s.send(sc, u); err != nil {
				if !errors.Is(err, context.Canceled) {
					s.logger.Debug("monitor stream closed", slog.String("error", err.Error()))
				}
				return
			}
		}
	}
}

func (s *Server) send(sc *streamConn, u Update) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}
	return sc.writeText(data)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("monitor response encode failed", slog.String("error", err.Error()))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
