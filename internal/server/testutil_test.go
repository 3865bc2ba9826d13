package server

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
)

// fakeTransport captures outbound frames so broadcast ordering and payloads
// can be asserted without a live socket.
type fakeTransport struct {
	mu        sync.Mutex
	writes    [][]byte
	closed    bool
	closeCode websocket.StatusCode
	pingErr   error
	pings     int
}

func (f *fakeTransport) Write(_ context.Context, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, append([]byte(nil), data...))
	return nil
}

func (f *fakeTransport) Ping(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	return f.pingErr
}

func (f *fakeTransport) Close(code websocket.StatusCode, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.closeCode = code
	return nil
}

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// frames decodes every captured write into a generic map, in send order.
func (f *fakeTransport) frames(t *testing.T) []map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]map[string]any, 0, len(f.writes))
	for _, raw := range f.writes {
		var m map[string]any
		assert.NoError(t, json.Unmarshal(raw, &m))
		out = append(out, m)
	}
	return out
}

func (f *fakeTransport) frameTypes(t *testing.T) []string {
	t.Helper()
	var types []string
	for _, m := range f.frames(t) {
		types = append(types, m["type"].(string))
	}
	return types
}

// lastFrame returns the most recent frame of the given type, nil if none.
func (f *fakeTransport) lastFrame(t *testing.T, typ string) map[string]any {
	t.Helper()
	var found map[string]any
	for _, m := range f.frames(t) {
		if m["type"] == typ {
			found = m
		}
	}
	return found
}

func (f *fakeTransport) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var testEpoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestServer() (*Server, *fakeClock) {
	clk := &fakeClock{now: testEpoch}
	cfg := Config{
		Port:          0,
		TurnTimeout:   30 * time.Second,
		SweepInterval: time.Second,
		PingInterval:  15 * time.Second,
		PongTimeout:   45 * time.Second,
	}
	return newServer(cfg, clk), clk
}

func newTestConn(s *Server, id string) (*Connection, *fakeTransport) {
	ft := &fakeTransport{}
	conn := &Connection{
		ID:       id,
		sock:     ft,
		Identity: Anonymous{Token: id},
		LastPong: s.clock.Now(),
	}
	s.connections.Add(conn)
	return conn, ft
}

// identify runs the identify message through the real dispatch path.
func identify(s *Server, conn *Connection, userID, guildID string) {
	s.dispatch(conn, inboundMessage{
		Type: TypeIdentify,
		Payload: IdentifyPayload{
			ID:            userID,
			Username:      userID,
			Discriminator: "0",
			AvatarURL:     "https://cdn.example/" + userID + ".png",
			GuildID:       guildID,
		},
	})
}

// lobbyWithGame spins up the standard two-player fixture: alice (host) and
// bob identified in guild g1, both ready, game started.
func lobbyWithGame(t *testing.T, s *Server) (alice, bob *Connection, aliceT, bobT *fakeTransport) {
	t.Helper()

	alice, aliceT = newTestConn(s, "conn-alice")
	bob, bobT = newTestConn(s, "conn-bob")
	identify(s, alice, "alice", "g1")
	identify(s, bob, "bob", "g1")

	s.dispatch(alice, inboundMessage{Type: TypeCreateRoom, RequestID: "r1"})
	created := aliceT.lastFrame(t, "room_created")
	assert.NotNil(t, created)
	code := created["data"].(map[string]any)["roomId"].(string)

	s.dispatch(bob, inboundMessage{Type: TypeJoinRoom, RequestID: "r2", Payload: JoinRoomPayload{RoomID: code}})
	s.dispatch(alice, inboundMessage{Type: TypeSetReady, Payload: SetReadyPayload{Ready: true}})
	s.dispatch(bob, inboundMessage{Type: TypeSetReady, Payload: SetReadyPayload{Ready: true}})
	s.dispatch(alice, inboundMessage{Type: TypeStart, RequestID: "r3"})

	room := s.rooms.Get(alice.RoomKey)
	assert.NotNil(t, room.Game, "game should have started")

	return alice, bob, aliceT, bobT
}

// connFor returns the connection whose identity is on turn.
func connFor(s *Server, room *Room, playerKey string) *Connection {
	for _, m := range room.Members {
		if m.Identity.PlayerKey() == playerKey {
			return m
		}
	}
	return nil
}
