// Package navserver exposes navigation volumes over HTTP and websocket.
package navserver

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

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/udisondev/nav3d/internal/collision"
)

const shutdownTimeout = 5 * time.Second

// Options tunes websocket sessions and enables obstacle editing.
type Options struct {
	WriteTimeout  time.Duration
	SendQueueSize int

	// Store enables PUT and DELETE /volumes/{volume}/obstacles/{id}.
	Store ObstacleStore
	// ObstaclesChanged runs after a successful edit, typically to rebuild volumes.
	ObstaclesChanged func(volume string)
}

// Server serves /health, /metrics, /volumes, obstacle edits and the /ws path request endpoint.
type Server struct {
	registry *Registry
	opts     Options
	upgrader websocket.Upgrader
	mux      *http.ServeMux

	mu       sync.Mutex
	sessions map[*session]struct{}
}

// NewServer creates a server over the registry's volumes.
func NewServer(registry *Registry, opts Options) *Server {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if opts.SendQueueSize <= 0 {
		opts.SendQueueSize = 64
	}

	s := &Server{
		registry: registry,
		opts:     opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		mux:      http.NewServeMux(),
		sessions: make(map[*session]struct{}),
	}

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.Handler())
	s.mux.HandleFunc("GET /volumes", s.handleVolumes)
	s.mux.HandleFunc("GET /ws", s.handleWS)
	if opts.Store != nil {
		s.mux.HandleFunc("PUT /volumes/{volume}/obstacles/{id}", s.handlePutObstacle)
		s.mux.HandleFunc("DELETE /volumes/{volume}/obstacles/{id}", s.handleDeleteObstacle)
	}
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run listens on addr and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully and
// closes open websocket sessions.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	slog.Info("nav server listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		s.closeSessions()
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.closeSessions()

	if serveErr := <-errCh; serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return fmt.Errorf("serving http: %w", serveErr)
	}
	if err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleVolumes(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.registry.Stats()); err != nil {
		slog.Error("encoding volume stats", "error", err)
	}
}

// obstacleBody is the PUT payload; the id comes from the path.
type obstacleBody struct {
	Class    string     `json:"class"`
	Category string     `json:"category"`
	Min      [3]float64 `json:"min"`
	Max      [3]float64 `json:"max"`
}

func (s *Server) handlePutObstacle(w http.ResponseWriter, r *http.Request) {
	volume, id := r.PathValue("volume"), r.PathValue("id")
	if _, ok := s.registry.Get(volume); !ok {
		http.Error(w, fmt.Sprintf("unknown volume %q", volume), http.StatusNotFound)
		return
	}

	var body obstacleBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "malformed obstacle", http.StatusBadRequest)
		return
	}
	category := collision.CategoryWorldStatic
	if body.Category != "" {
		c, err := collision.ParseCategory(body.Category)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		category = c
	}

	o := collision.Obstacle{
		ID:       collision.ActorID(id),
		Class:    body.Class,
		Category: category,
		Bounds:   collision.Box{Min: mgl64.Vec3(body.Min), Max: mgl64.Vec3(body.Max)}.Normalized(),
	}
	if err := s.opts.Store.SaveObstacle(r.Context(), volume, o); err != nil {
		slog.Error("saving obstacle", "volume", volume, "id", id, "error", err)
		http.Error(w, "saving obstacle failed", http.StatusInternalServerError)
		return
	}
	s.obstaclesChanged(volume)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteObstacle(w http.ResponseWriter, r *http.Request) {
	volume, id := r.PathValue("volume"), r.PathValue("id")
	if _, ok := s.registry.Get(volume); !ok {
		http.Error(w, fmt.Sprintf("unknown volume %q", volume), http.StatusNotFound)
		return
	}

	deleted, err := s.opts.Store.DeleteObstacle(r.Context(), volume, collision.ActorID(id))
	if err != nil {
		slog.Error("deleting obstacle", "volume", volume, "id", id, "error", err)
		http.Error(w, "deleting obstacle failed", http.StatusInternalServerError)
		return
	}
	if !deleted {
		http.Error(w, fmt.Sprintf("unknown obstacle %q", id), http.StatusNotFound)
		return
	}
	s.obstaclesChanged(volume)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) obstaclesChanged(volume string) {
	if s.opts.ObstaclesChanged != nil {
		s.opts.ObstaclesChanged(volume)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	sess := newSession(conn, s.registry, s.opts.WriteTimeout, s.opts.SendQueueSize)
	s.mu.Lock()
	s.sessions[sess] = struct{}{}
	s.mu.Unlock()

	slog.Debug("websocket session opened", "remote", r.RemoteAddr)
	sess.serve()

	s.mu.Lock()
	delete(s.sessions, sess)
	s.mu.Unlock()
	slog.Debug("websocket session closed", "remote", r.RemoteAddr)
}

func (s *Server) closeSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sess := range s.sessions {
		sess.close()
	}
}
