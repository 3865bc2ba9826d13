package server

import (
	"context"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"

	"uno-server/internal/game"
)

// clock lets the sweeps run against an injected time source in tests instead
// of wall-clock sleeps.
type clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (s *Server) pingLoop() {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweepLiveness()
		}
	}
}

func (s *Server) turnTimeoutLoop() {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweepTurnTimeouts()
		}
	}
}

// sweepLiveness evicts connections whose last pong is older than the timeout
// window and pings the rest. Eviction closes the socket; the connection's
// read loop then runs the same teardown as a graceful close, so dead and
// departed clients never diverge in observable room state.
func (s *Server) sweepLiveness() {
	now := s.clock.Now()

	s.mu.Lock()
	var stale, live []*Connection
	for _, conn := range s.connections.All() {
		if now.Sub(conn.LastPong) > s.cfg.PongTimeout {
			stale = append(stale, conn)
		} else {
			live = append(live, conn)
		}
	}
	s.mu.Unlock()

	for _, conn := range stale {
		log.Warn().Str("connection", conn.ID).Msg("no pong within timeout, terminating")
		_ = conn.sock.Close(websocket.StatusPolicyViolation, "pong timeout")
	}

	for _, conn := range live {
		go s.ping(conn)
	}

	s.limiter.Cleanup()
}

// ping blocks until the peer answers the protocol-level ping, then records
// the pong time. The liveness verdict itself is taken on sweep ticks from the
// stored timestamp.
func (s *Server) ping(conn *Connection) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.PongTimeout)
	defer cancel()

	if err := conn.sock.Ping(ctx); err != nil {
		return
	}

	s.mu.Lock()
	conn.LastPong = s.clock.Now()
	s.mu.Unlock()
}

// sweepTurnTimeouts force-advances every running game whose current turn has
// gone stale, exactly as a manual pass would, through the identical broadcast
// path. Timestamps are sampled per tick, so detection latency is bounded by
// one sweep interval.
func (s *Server) sweepTurnTimeouts() {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, room := range s.rooms.All() {
		g := room.Game
		if g == nil || g.Phase != game.PhasePlaying {
			continue
		}
		if len(g.Order) < 2 {
			continue
		}
		if !g.TimedOut(now, s.cfg.TurnTimeout) {
			continue
		}

		skipped := g.CurrentPlayer()
		g.ForcePass(now)
		log.Info().
			Str("room", room.Code).
			Str("player", skipped).
			Msg("turn timed out, advancing")

		s.broadcastGameState(room)
	}
}
