// Package automation implements the local control-plane server. It lets
// external tooling inspect and populate the batch queue over loopback HTTP;
// it has no reference to the submission gateway, so no request can vote or
// submit.
package automation

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sprite-ai/batchrev/internal/model"
)

// DefaultPort is the fixed control-plane port.
const DefaultPort = 37120

// DefaultMaxBody caps automation request bodies.
const DefaultMaxBody = 1 << 20

// ErrAlreadyStarting is returned when Start races a concurrent Start; only
// one caller may bring the listener up.
var ErrAlreadyStarting = errors.New("automation server already starting")

// Controller is the narrow core surface the server may touch: inspect and
// populate, never submit.
type Controller interface {
	Snapshot() model.Snapshot
	AddToBatch(ids []string, severities map[string]model.Severity)
	ClearBatch()
}

// Server is the automation control-plane server. The zero state is stopped;
// Start and Stop may be called repeatedly over its life.
type Server struct {
	ctrl    Controller
	port    int
	maxBody int64
	mux     *http.ServeMux

	mu    sync.Mutex
	state model.ServerState
	ln    net.Listener
	srv   *http.Server

	clients clientSet
}

// New creates a server bound to the given loopback port (0 picks an
// ephemeral port, useful in tests). maxBody <= 0 uses DefaultMaxBody.
func New(ctrl Controller, port int, maxBody int64) *Server {
	if maxBody <= 0 {
		maxBody = DefaultMaxBody
	}
	s := &Server{
		ctrl:    ctrl,
		port:    port,
		maxBody: maxBody,
		state:   model.ServerStopped,
	}
	s.mux = http.NewServeMux()
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/batch", s.handleBatch)
	s.mux.HandleFunc("/events", s.handleEvents)
	s.mux.HandleFunc("/", s.handleNotFound)
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// State returns the lifecycle state and, when running, the bound port.
func (s *Server) State() (model.ServerState, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != model.ServerRunning {
		return s.state, 0
	}
	return s.state, s.boundPort()
}

func (s *Server) boundPort() int {
	if addr, ok := s.ln.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return s.port
}

// Start binds the loopback listener and begins serving. A Start while
// another Start is mid-bind fails with ErrAlreadyStarting; a Start while
// running returns the existing port. On bind failure the state reverts to
// stopped.
func (s *Server) Start() (int, error) {
	s.mu.Lock()
	switch s.state {
	case model.ServerStarting:
		s.mu.Unlock()
		return 0, ErrAlreadyStarting
	case model.ServerRunning:
		port := s.boundPort()
		s.mu.Unlock()
		return port, nil
	}
	s.state = model.ServerStarting
	s.mu.Unlock()

	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", s.port))
	if err != nil {
		s.mu.Lock()
		s.state = model.ServerStopped
		s.mu.Unlock()
		return 0, fmt.Errorf("binding automation port: %w", err)
	}

	srv := &http.Server{
		Handler:      s.mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.mu.Lock()
	s.ln = ln
	s.srv = srv
	s.state = model.ServerRunning
	port := s.boundPort()
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("automation: serve: %v", err)
		}
	}()

	log.Printf("automation server listening on 127.0.0.1:%d", port)
	return port, nil
}

// Stop closes the listener and resets state. It applies only to a running
// server: while stopped it is a no-op, and a Stop that races a still-binding
// Start returns without effect — that Start completes and the server comes
// up, so callers tearing down for good should Stop again once running.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.state != model.ServerRunning {
		s.mu.Unlock()
		return nil
	}
	srv := s.srv
	s.ln = nil
	s.srv = nil
	s.state = model.ServerStopped
	s.mu.Unlock()

	s.clients.closeAll()
	if err := srv.Close(); err != nil {
		return fmt.Errorf("stopping automation server: %w", err)
	}
	log.Printf("automation server stopped")
	return nil
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Printf("automation: json encode error: %v", err)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
