package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"uno-server/internal/game"
)

const writeTimeout = 5 * time.Second

// send is fire-and-forget: a failed write is logged and otherwise ignored,
// the liveness sweep will reap the connection.
func (s *Server) send(conn *Connection, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("connection", conn.ID).Msg("marshal outbound message")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := conn.sock.Write(ctx, data); err != nil {
		log.Debug().Err(err).Str("connection", conn.ID).Msg("write failed")
	}
}

func (s *Server) sendError(conn *Connection, requestID, code string) {
	s.send(conn, errorEnvelope{
		Type:      "error",
		RequestID: requestID,
		Error:     code,
	})
}

// buildPublicState projects the room for everyone: roster with ready flags
// and hand counts, discard top, current player and phase once a game exists.
func buildPublicState(room *Room) PublicState {
	state := PublicState{
		RoomID:  room.Code,
		Players: make([]RosterEntry, 0, len(room.Members)),
	}
	if room.HostID != "" {
		state.HostID = &room.HostID
	}

	for _, member := range room.Members {
		entry := RosterEntry{}
		if known, ok := member.Identity.(Known); ok {
			p := known.Profile
			entry.ID = &p.ID
			entry.Username = &p.Username
			entry.Discriminator = &p.Discriminator
			entry.AvatarURL = &p.AvatarURL
			entry.Ready = room.Ready[p.ID]
		}
		if room.Game != nil {
			count := len(room.Game.Hand(member.Identity.PlayerKey()))
			entry.Cards = &count
		}
		state.Players = append(state.Players, entry)
	}

	if room.Game != nil {
		state.TopCard = room.Game.DiscardTop
		if current := room.Game.CurrentPlayer(); current != "" {
			state.CurrentPlayerID = &current
		}
		state.Phase = string(room.Game.Phase)
	}

	return state
}

func buildSnapshot(room *Room, playerKey string) SnapshotData {
	snap := SnapshotData{
		PublicState: buildPublicState(room),
		YourHand:    []game.Card{},
	}
	if room.Game != nil {
		if hand := room.Game.Hand(playerKey); hand != nil {
			snap.YourHand = hand
		}
	}
	return snap
}

// broadcastPublic sends the identical public payload to every member.
func (s *Server) broadcastPublic(room *Room, messageType string) {
	state := buildPublicState(room)
	for _, member := range room.Members {
		s.send(member, serverEnvelope{Type: messageType, Data: state})
	}
}

func (s *Server) broadcastRoomUpdate(room *Room) {
	s.broadcastPublic(room, "room_update")
}

// broadcastGameState fans out one mutation: every member's private snapshot
// first, then the single shared state_update. Both are built from the same
// post-mutation state; the mutation mutex guarantees nothing interleaves
// between the two steps, so a client can never render a hand against a board
// from a different mutation.
func (s *Server) broadcastGameState(room *Room) {
	for _, member := range room.Members {
		snap := buildSnapshot(room, member.Identity.PlayerKey())
		s.send(member, serverEnvelope{Type: "snapshot", Data: snap})
	}
	s.broadcastPublic(room, "state_update")
}

func (s *Server) broadcastWinner(room *Room, winnerKey string) {
	data := WinnerData{}
	if winnerKey != "" {
		data.PlayerID = &winnerKey
	}
	for _, member := range room.Members {
		s.send(member, serverEnvelope{Type: "winner", Data: data})
	}
}
