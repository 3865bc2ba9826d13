package server

import (
	"time"

	"uno-server/internal/game"
)

// Room is a tenant-scoped, code-addressed grouping of connections sharing at
// most one game. Members keep join order; the first joiner's known identity
// is the host.
type Room struct {
	Key       string // GuildID + ":" + Code
	Code      string
	GuildID   string
	Members   []*Connection
	HostID    string // player key of the host identity, empty if the creator was anonymous
	Ready     map[string]bool
	Game      *game.Game
	CreatedAt time.Time
}

func roomKey(guildID, code string) string {
	return guildID + ":" + code
}

func (r *Room) hasMember(conn *Connection) bool {
	for _, m := range r.Members {
		if m == conn {
			return true
		}
	}
	return false
}

func (r *Room) removeMember(conn *Connection) {
	for i, m := range r.Members {
		if m == conn {
			r.Members = append(r.Members[:i], r.Members[i+1:]...)
			return
		}
	}
}

// LeaveResult describes what a departure did to the room.
type LeaveResult struct {
	Room        *Room
	Destroyed   bool
	GameMutated bool   // turn order or hands changed in a running game
	GameEnded   bool   // the departure ended the game
	WinnerKey   string // sole remaining player when GameEnded, empty if none
}

// RoomManager owns room lifecycle: create, join, leave, ready flags and game
// start. Access is serialized by the Server's mutation mutex.
type RoomManager struct {
	rooms     map[string]*Room
	reconnect *ReconnectMapper
	clock     clock
}

func NewRoomManager(reconnect *ReconnectMapper, clk clock) *RoomManager {
	return &RoomManager{
		rooms:     make(map[string]*Room),
		reconnect: reconnect,
		clock:     clk,
	}
}

func (m *RoomManager) Get(key string) *Room {
	return m.rooms[key]
}

func (m *RoomManager) All() []*Room {
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	return rooms
}

// Create registers a fresh room with conn as sole member and host. The code
// is regenerated until the composite guild-scoped key is unused, so guessable
// codes cannot collide across tenants.
func (m *RoomManager) Create(conn *Connection) (*Room, error) {
	if conn.GuildID == "" {
		return nil, errMissingGuild
	}

	code := GenerateRoomCode(func(code string) bool {
		_, used := m.rooms[roomKey(conn.GuildID, code)]
		return used
	})

	room := &Room{
		Key:       roomKey(conn.GuildID, code),
		Code:      code,
		GuildID:   conn.GuildID,
		Members:   []*Connection{conn},
		Ready:     make(map[string]bool),
		CreatedAt: m.clock.Now(),
	}
	if known, ok := conn.Identity.(Known); ok {
		room.HostID = known.PlayerKey()
		m.reconnect.Record(known.PlayerKey(), room.Key)
	}

	m.rooms[room.Key] = room
	conn.RoomKey = room.Key

	return room, nil
}

// Join adds conn to the room addressed by code within conn's tenant scope.
// Host designation never changes on join.
func (m *RoomManager) Join(conn *Connection, code string) (*Room, error) {
	if conn.GuildID == "" {
		return nil, errMissingGuild
	}

	room, exists := m.rooms[roomKey(conn.GuildID, NormalizeRoomCode(code))]
	if !exists {
		return nil, errRoomNotFound
	}
	if room.Game != nil && room.Game.Phase == game.PhasePlaying {
		return nil, errGameInProgress
	}

	// Membership is a set: a retried join must not store the connection twice.
	if !room.hasMember(conn) {
		room.Members = append(room.Members, conn)
	}
	conn.RoomKey = room.Key

	if known, ok := conn.Identity.(Known); ok {
		m.reconnect.Record(known.PlayerKey(), room.Key)
	}

	return room, nil
}

// Readmit silently re-enters a known, roomless connection into its last room,
// if one is recorded, still exists, and sits in the same tenant scope. A scope
// mismatch is skipped without error. Used by identify; it deliberately does
// not require a join message.
func (m *RoomManager) Readmit(conn *Connection) *Room {
	known, ok := conn.Identity.(Known)
	if !ok {
		return nil
	}

	key, ok := m.reconnect.Lookup(known.PlayerKey())
	if !ok {
		return nil
	}
	room, exists := m.rooms[key]
	if !exists {
		return nil
	}
	if room.GuildID != conn.GuildID {
		return nil
	}

	if !room.hasMember(conn) {
		room.Members = append(room.Members, conn)
	}
	conn.RoomKey = room.Key
	return room
}

// Leave removes conn from its room. An empty room is destroyed with its game.
// During a running game the departing identity leaves the turn order and
// hands, the turn index is clamped into the shorter order, and a game reduced
// to one player or fewer ends naming the survivor. The reconnect mapping is
// untouched here: clearing it is an explicit-leave concern, so clean and
// unclean disconnects share this path.
func (m *RoomManager) Leave(conn *Connection) (LeaveResult, error) {
	if conn.RoomKey == "" {
		return LeaveResult{}, errNotInRoom
	}
	room := m.rooms[conn.RoomKey]

	room.removeMember(conn)
	conn.RoomKey = ""

	playerKey := conn.Identity.PlayerKey()
	delete(room.Ready, playerKey)

	res := LeaveResult{Room: room}

	if len(room.Members) == 0 {
		delete(m.rooms, room.Key)
		res.Destroyed = true
		return res, nil
	}

	if room.Game != nil && room.Game.Phase == game.PhasePlaying {
		winner, ended := room.Game.RemovePlayer(playerKey)
		res.GameMutated = true
		res.GameEnded = ended
		res.WinnerKey = winner
	}

	return res, nil
}

// SetReady toggles the caller's identity in the room's ready set. Only a
// known identity can be ready.
func (m *RoomManager) SetReady(conn *Connection, ready bool) (*Room, error) {
	if conn.RoomKey == "" {
		return nil, errNotInRoom
	}
	if _, ok := conn.Identity.(Known); !ok {
		return nil, errNotIdentified
	}

	room := m.rooms[conn.RoomKey]
	if ready {
		room.Ready[conn.Identity.PlayerKey()] = true
	} else {
		delete(room.Ready, conn.Identity.PlayerKey())
	}

	return room, nil
}

// Start moves the room into play: host-only, at least two members, every
// known member ready. An anonymous member can never be ready, so it blocks
// start for as long as it stays unidentified.
func (m *RoomManager) Start(conn *Connection) (*Room, error) {
	if conn.RoomKey == "" {
		return nil, errNotInRoom
	}
	room := m.rooms[conn.RoomKey]

	if room.Game != nil {
		return nil, errAlreadyStarted
	}
	if room.HostID == "" || conn.Identity.PlayerKey() != room.HostID {
		return nil, errNotHost
	}
	if len(room.Members) < 2 {
		return nil, errNeedTwoPlayers
	}

	players := make([]string, 0, len(room.Members))
	seen := make(map[string]bool, len(room.Members))
	for _, member := range room.Members {
		key := member.Identity.PlayerKey()
		if _, ok := member.Identity.(Known); !ok || !room.Ready[key] {
			return nil, errNotAllReady
		}
		if !seen[key] {
			seen[key] = true
			players = append(players, key)
		}
	}

	room.Game = game.New(players, m.clock.Now())
	return room, nil
}
