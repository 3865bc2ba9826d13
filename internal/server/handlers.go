package server

import (
	"runtime/debug"

	"github.com/rs/zerolog/log"

	"uno-server/internal/game"
)

// dispatch runs one decoded client message as a single unit of work. The
// mutation mutex is held for the handler body including its broadcasts, which
// is what makes the process one serialization domain. A panic inside a
// handler is confined to this message and converted to a non-broadcast error.
func (s *Server) dispatch(conn *Connection, msg inboundMessage) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Any("panic", r).
				Str("connection", conn.ID).
				Str("type", string(msg.Type)).
				Bytes("stack", debug.Stack()).
				Msg("handler panic recovered")
			s.sendError(conn, msg.RequestID, "internal_error")
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	switch msg.Type {
	case TypeHeartbeat:
		s.handleHeartbeat(conn, msg.RequestID)
	case TypePing:
		s.send(conn, serverEnvelope{Type: "pong", Data: HeartbeatAckData{Now: s.clock.Now().UnixMilli()}})
	case TypeIdentify:
		s.handleIdentify(conn, msg.RequestID, msg.Payload.(IdentifyPayload))
	case TypeCreateRoom:
		s.handleCreateRoom(conn, msg.RequestID)
	case TypeJoinRoom:
		s.handleJoinRoom(conn, msg.RequestID, msg.Payload.(JoinRoomPayload))
	case TypeLeaveRoom:
		s.handleLeaveRoom(conn, msg.RequestID)
	case TypeSetReady:
		s.handleSetReady(conn, msg.RequestID, msg.Payload.(SetReadyPayload))
	case TypeStart:
		s.handleStart(conn, msg.RequestID)
	case TypePlay:
		s.handlePlay(conn, msg.RequestID, msg.Payload.(PlayPayload))
	case TypeDraw:
		s.handleDraw(conn, msg.RequestID)
	case TypePass:
		s.handlePass(conn, msg.RequestID)
	default:
		s.send(conn, errorEnvelope{
			Type:      "error",
			RequestID: msg.RequestID,
			Error:     "unknown_type",
			Received:  string(msg.Type),
		})
	}
}

// handleHeartbeat answers the application-level keepalive. It carries no
// eviction consequence; that is the transport ping's job.
func (s *Server) handleHeartbeat(conn *Connection, requestID string) {
	s.send(conn, serverEnvelope{
		Type:      "heartbeat_ack",
		RequestID: requestID,
		Data:      HeartbeatAckData{Now: s.clock.Now().UnixMilli()},
	})
}

// handleIdentify attaches a known identity and tenant scope. Idempotent, last
// call wins. A missing id leaves the connection Anonymous; the declared guild
// scope sticks either way. A known, roomless connection is silently pulled
// back into its last room via the reconnect mapper.
func (s *Server) handleIdentify(conn *Connection, requestID string, p IdentifyPayload) {
	if p.GuildID != "" {
		conn.GuildID = p.GuildID
	}
	if p.ID != "" {
		conn.Identity = Known{Profile: Profile{
			ID:            p.ID,
			Username:      p.Username,
			Discriminator: p.Discriminator,
			AvatarURL:     p.AvatarURL,
		}}
	}

	s.send(conn, serverEnvelope{Type: "identify_ack", RequestID: requestID})

	if conn.RoomKey == "" {
		if room := s.rooms.Readmit(conn); room != nil {
			log.Info().
				Str("connection", conn.ID).
				Str("player", conn.Identity.PlayerKey()).
				Str("room", room.Code).
				Msg("reconnected into room")
			if room.Game != nil {
				snap := buildSnapshot(room, conn.Identity.PlayerKey())
				s.send(conn, serverEnvelope{Type: "snapshot", Data: snap})
				s.broadcastPublic(room, "state_update")
			}
		}
	}

	// Roster names may have changed, so members always get a fresh view.
	if conn.RoomKey != "" {
		s.broadcastRoomUpdate(s.rooms.Get(conn.RoomKey))
	}
}

func (s *Server) handleCreateRoom(conn *Connection, requestID string) {
	room, err := s.rooms.Create(conn)
	if err != nil {
		s.sendError(conn, requestID, err.Error())
		return
	}

	log.Info().Str("room", room.Code).Str("guild", room.GuildID).Msg("room created")

	s.send(conn, serverEnvelope{
		Type:      "room_created",
		RequestID: requestID,
		Data:      RoomCreatedData{RoomID: room.Code},
	})
	s.broadcastRoomUpdate(room)
}

func (s *Server) handleJoinRoom(conn *Connection, requestID string, p JoinRoomPayload) {
	room, err := s.rooms.Join(conn, p.RoomID)
	if err != nil {
		s.sendError(conn, requestID, err.Error())
		return
	}

	s.send(conn, serverEnvelope{
		Type:      "joined",
		RequestID: requestID,
		Data:      JoinedData{RoomID: room.Code},
	})
	s.broadcastRoomUpdate(room)
}

func (s *Server) handleLeaveRoom(conn *Connection, requestID string) {
	if conn.RoomKey == "" {
		s.sendError(conn, requestID, errNotInRoom.Error())
		return
	}

	// Explicit leave is the one case that forgets the reconnect mapping.
	if known, ok := conn.Identity.(Known); ok {
		s.reconnect.Clear(known.PlayerKey(), conn.RoomKey)
	}

	res, err := s.rooms.Leave(conn)
	if err != nil {
		s.sendError(conn, requestID, err.Error())
		return
	}

	s.send(conn, serverEnvelope{
		Type:      "left",
		RequestID: requestID,
		Data:      LeftData{RoomID: res.Room.Code},
	})
	s.broadcastDeparture(res)
}

func (s *Server) handleSetReady(conn *Connection, requestID string, p SetReadyPayload) {
	room, err := s.rooms.SetReady(conn, p.Ready)
	if err != nil {
		s.sendError(conn, requestID, err.Error())
		return
	}

	s.send(conn, serverEnvelope{
		Type:      "set_ready_ack",
		RequestID: requestID,
		Data:      SetReadyAckData{Ready: p.Ready},
	})
	s.broadcastRoomUpdate(room)
}

func (s *Server) handleStart(conn *Connection, requestID string) {
	room, err := s.rooms.Start(conn)
	if err != nil {
		s.sendError(conn, requestID, err.Error())
		return
	}

	log.Info().
		Str("room", room.Code).
		Int("players", len(room.Game.Order)).
		Msg("game started")

	s.broadcastGameState(room)
}

func (s *Server) handlePlay(conn *Connection, requestID string, p PlayPayload) {
	room, g, ok := s.roomGame(conn, requestID)
	if !ok {
		return
	}

	if p.Malformed || p.Card == nil || p.Card.Value == nil {
		s.sendError(conn, requestID, errInvalidCard.Error())
		return
	}
	card := game.Card{Color: game.Color(p.Card.Color), Value: *p.Card.Value}
	if !card.Valid() {
		s.sendError(conn, requestID, errInvalidCard.Error())
		return
	}

	playerKey := conn.Identity.PlayerKey()
	won, err := g.Play(playerKey, card, s.clock.Now())
	if err != nil {
		s.sendError(conn, requestID, err.Error())
		return
	}

	s.broadcastGameState(room)
	if won {
		log.Info().Str("room", room.Code).Str("player", playerKey).Msg("game won")
		s.broadcastWinner(room, playerKey)
	}
}

func (s *Server) handleDraw(conn *Connection, requestID string) {
	room, g, ok := s.roomGame(conn, requestID)
	if !ok {
		return
	}

	if _, err := g.Draw(conn.Identity.PlayerKey(), s.clock.Now()); err != nil {
		s.sendError(conn, requestID, err.Error())
		return
	}

	s.broadcastGameState(room)
}

func (s *Server) handlePass(conn *Connection, requestID string) {
	room, g, ok := s.roomGame(conn, requestID)
	if !ok {
		return
	}

	if err := g.Pass(conn.Identity.PlayerKey(), s.clock.Now()); err != nil {
		s.sendError(conn, requestID, err.Error())
		return
	}

	s.broadcastGameState(room)
}

// roomGame resolves the caller's room and game for the in-game actions,
// rejecting the roomless and the gameless.
func (s *Server) roomGame(conn *Connection, requestID string) (*Room, *game.Game, bool) {
	if conn.RoomKey == "" {
		s.sendError(conn, requestID, errNotInRoom.Error())
		return nil, nil, false
	}
	room := s.rooms.Get(conn.RoomKey)
	if room.Game == nil {
		s.sendError(conn, requestID, game.ErrNotPlaying.Error())
		return nil, nil, false
	}
	return room, room.Game, true
}

// broadcastDeparture emits the fan-out shared by explicit leaves and
// transport drops: fresh game views when a running game lost a player, the
// winner when the departure ended it, then the roster. A destroyed room
// broadcasts nothing.
func (s *Server) broadcastDeparture(res LeaveResult) {
	if res.Destroyed {
		log.Info().Str("room", res.Room.Code).Msg("room destroyed")
		return
	}
	if res.GameMutated {
		s.broadcastGameState(res.Room)
	}
	if res.GameEnded {
		s.broadcastWinner(res.Room, res.WinnerKey)
	}
	s.broadcastRoomUpdate(res.Room)
}
