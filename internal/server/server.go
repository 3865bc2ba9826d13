package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"
)

const (
	rateLimitMessages = 30
	rateLimitWindow   = time.Second
)

// Server holds every registry and the single mutation mutex that makes the
// process one serialization domain: any inbound message handler and any sweep
// tick acquires mu for its whole mutation including the broadcast, so no two
// mutations of a room interleave. The registries themselves carry no locks.
type Server struct {
	cfg Config

	mu          sync.Mutex
	connections *ConnectionRegistry
	rooms       *RoomManager
	reconnect   *ReconnectMapper

	limiter    *RateLimiter
	clock      clock
	httpClient *http.Client

	stop     chan struct{}
	stopOnce sync.Once
}

func NewServer() (*Server, *http.Server) {
	cfg := LoadConfig()
	s := newServer(cfg, systemClock{})

	// Start background sweeps
	go s.pingLoop()
	go s.turnTimeoutLoop()

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s, httpServer
}

// newServer wires the registries without starting background loops; tests use
// it with a fake clock.
func newServer(cfg Config, clk clock) *Server {
	reconnect := NewReconnectMapper()
	return &Server{
		cfg:         cfg,
		connections: NewConnectionRegistry(),
		rooms:       NewRoomManager(reconnect, clk),
		reconnect:   reconnect,
		limiter:     NewRateLimiter(rateLimitMessages, rateLimitWindow),
		clock:       clk,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		stop:        make(chan struct{}),
	}
}

// Shutdown stops the sweeps and closes every live websocket; each read loop
// then runs the usual teardown. All rooms are discarded with the process.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })

	s.mu.Lock()
	conns := s.connections.All()
	s.mu.Unlock()

	for _, conn := range conns {
		_ = conn.sock.Close(websocket.StatusGoingAway, "server shutting down")
	}

	log.Info().Int("connections", len(conns)).Msg("server shutdown, connections closed")
	return nil
}
