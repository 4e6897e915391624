// Package monitor serves the mapping session over HTTP: commands, event
// ingest, snapshot catalog queries and debug charts.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/banshee-data/armap/internal/armap"
	"github.com/banshee-data/armap/internal/mapdb"
	"github.com/banshee-data/armap/internal/monitoring"
)

// ErrNoSession is returned when a server is built without a session.
var ErrNoSession = errors.New("no mapping session configured")

// ServerConfig wires a Server.
type ServerConfig struct {
	Address string
	Session *armap.Session

	// Catalog is optional; snapshot listing routes return 503 without it.
	Catalog *mapdb.DB

	// Health is optional and mirrors the session state.
	Health *HealthService

	// MaxEventBytes bounds one POSTed event body.
	MaxEventBytes int64
}

// Server owns the HTTP listener. Every request that touches the session is
// serialised through mu.
type Server struct {
	mu      sync.Mutex
	session *armap.Session
	catalog *mapdb.DB
	health  *HealthService

	address       string
	maxEventBytes int64
	server        *http.Server
}

const defaultMaxEventBytes = 16 << 20

// NewServer builds a Server from cfg.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Session == nil {
		return nil, ErrNoSession
	}
	s := &Server{
		session:       cfg.Session,
		catalog:       cfg.Catalog,
		health:        cfg.Health,
		address:       cfg.Address,
		maxEventBytes: cfg.MaxEventBytes,
	}
	if s.maxEventBytes <= 0 {
		s.maxEventBytes = defaultMaxEventBytes
	}

	handler, err := s.setupRoutes()
	if err != nil {
		return nil, err
	}
	s.server = &http.Server{
		Addr:              s.address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.health.SetMapping(s.session.State() == armap.StateMapping)
	return s, nil
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// WithSession runs fn while holding the session lock. It is how non-HTTP
// producers such as the event replayer feed the session.
func (s *Server) WithSession(fn func(*armap.Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := fn(s.session)
	s.health.SetMapping(s.session.State() == armap.StateMapping)
	return err
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.address, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errc := make(chan error, 1)
	go func() {
		monitoring.Logf("[Monitor] HTTP server listening on %s", ln.Addr())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	monitoring.Logf("[Monitor] shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("[Monitor] HTTP server shutdown error: %v", err)
		if err := s.server.Close(); err != nil {
			monitoring.Logf("[Monitor] HTTP server force close error: %v", err)
		}
	}

	s.mu.Lock()
	s.session.Close()
	s.mu.Unlock()
	s.health.SetMapping(false)
	monitoring.Logf("[Monitor] HTTP server stopped")
	return nil
}

func (s *Server) setupRoutes() (*http.ServeMux, error) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/map/status", s.handleStatus)
	mux.HandleFunc("/api/map/start", s.handleStart)
	mux.HandleFunc("/api/map/stop", s.handleStop)
	mux.HandleFunc("/api/map/save", s.handleSave)
	mux.HandleFunc("/api/map/load", s.handleLoad)
	mux.HandleFunc("/api/map/clear", s.handleClear)
	mux.HandleFunc("/api/map/events", s.handleEvents)
	mux.HandleFunc("/api/map/file", s.handleMapFile)
	mux.HandleFunc("/api/map/snapshots", s.handleSnapshots)
	mux.HandleFunc("/api/map/snapshot", s.handleSnapshot)
	mux.HandleFunc("/debug/map/chart", s.handleMapChart)

	if s.catalog != nil {
		if err := s.catalog.AttachAdminRoutes(mux); err != nil {
			return nil, err
		}
	}
	return mux, nil
}
