package server

import (
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.healthHandler)
	r.Post("/api/token", s.tokenHandler)
	r.Get("/ws", s.websocketHandler)

	// Wrap the router with CORS middleware
	return s.corsMiddleware(r)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Set CORS headers
		w.Header().Set("Access-Control-Allow-Origin", "*") // Replace "*" with specific origins if needed
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-CSRF-Token")
		w.Header().Set("Access-Control-Allow-Credentials", "false")

		// Handle preflight OPTIONS requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("write response")
	}
}

func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	socket, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"}, // TODO: make environment-specific
	})
	if err != nil {
		http.Error(w, "Failed to open websocket", http.StatusInternalServerError)
		return
	}
	defer socket.Close(websocket.StatusGoingAway, "server closing")

	ctx := r.Context()

	conn := &Connection{
		ID:       uuid.New().String(),
		sock:     wsTransport{conn: socket},
		Identity: Anonymous{Token: uuid.New().String()},
		LastPong: s.clock.Now(),
	}

	s.mu.Lock()
	s.connections.Add(conn)
	s.mu.Unlock()

	log.Info().Str("connection", conn.ID).Str("origin", r.Header.Get("Origin")).Msg("new connection")
	defer s.dropConnection(conn)

	s.send(conn, serverEnvelope{Type: "hello", Data: HelloData{
		Message: "connected",
		Now:     s.clock.Now().UnixMilli(),
	}})

	for {
		msgType, data, err := socket.Read(ctx)
		if err != nil {
			log.Debug().Err(err).Str("connection", conn.ID).Msg("read loop closed")
			return
		}

		if msgType != websocket.MessageText {
			continue
		}

		if !s.limiter.Allow(conn.ID) {
			log.Warn().Str("connection", conn.ID).Msg("rate limited, dropping message")
			continue
		}

		msg, ok := decodeInbound(data)
		if !ok {
			// Malformed envelopes are dropped, never surfaced.
			log.Debug().Str("connection", conn.ID).Msg("malformed message dropped")
			continue
		}

		s.dispatch(conn, msg)
	}
}

// dropConnection is the single teardown path for every disconnect, graceful
// or forced: unregister, then run the same departure semantics as an explicit
// leave. The reconnect mapping survives so the identity can be silently
// re-admitted later.
func (s *Server) dropConnection(conn *Connection) {
	s.limiter.RemoveConnection(conn.ID)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.connections.Remove(conn.ID)
	log.Info().Str("connection", conn.ID).Msg("connection closed")

	if conn.RoomKey == "" {
		return
	}

	res, err := s.rooms.Leave(conn)
	if err != nil {
		return
	}
	s.broadcastDeparture(res)
}
