package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Test 1: Record and lookup
func TestReconnectMapper_RecordLookup(t *testing.T) {
	m := NewReconnectMapper()
	m.Record("alice", "g1:ABC123")

	key, ok := m.Lookup("alice")
	assert.True(t, ok)
	assert.Equal(t, "g1:ABC123", key)

	_, ok = m.Lookup("bob")
	assert.False(t, ok)
}

// Test 2: Clear only removes a mapping still pointing at that room
// Why: A leave must not clobber a mapping updated by a later join elsewhere
func TestReconnectMapper_ClearIsConditional(t *testing.T) {
	m := NewReconnectMapper()
	m.Record("alice", "g1:OLD111")
	m.Record("alice", "g1:NEW222") // later join elsewhere

	m.Clear("alice", "g1:OLD111")
	key, ok := m.Lookup("alice")
	assert.True(t, ok, "newer mapping survives a stale clear")
	assert.Equal(t, "g1:NEW222", key)

	m.Clear("alice", "g1:NEW222")
	_, ok = m.Lookup("alice")
	assert.False(t, ok)
}

// Test 3: A dropped identity is silently re-admitted on identify
// Why: Reconnection must not require a fresh join_room
func TestReconnect_SilentReadmission(t *testing.T) {
	s, _ := newTestServer()
	alice, _, _, bobT := lobbyWithGame(t, s)
	room := s.rooms.Get(alice.RoomKey)
	code := room.Code

	// Transport drop: the read loop's teardown path.
	s.dropConnection(alice)
	assert.NotNil(t, s.rooms.Get(room.Key), "room survives the drop")

	// Fresh connection, same identity, same declared scope.
	again, againT := newTestConn(s, "conn-alice-2")
	bobT.reset()
	identify(s, again, "alice", "g1")

	assert.Equal(t, room.Key, again.RoomKey, "re-admitted without join_room")

	snap := againT.lastFrame(t, "snapshot")
	assert.NotNil(t, snap, "private snapshot delivered on readmission")
	data := snap["data"].(map[string]any)
	assert.Equal(t, code, data["roomId"])
	assert.Contains(t, data, "yourHand")

	assert.Contains(t, bobT.frameTypes(t), "state_update", "room got a fresh public broadcast")
}

// Test 4: Cross-tenant readmission is rejected silently
// Why: A guessable mapping must not pull a client into another guild's room
func TestReconnect_CrossTenantSkipped(t *testing.T) {
	s, _ := newTestServer()
	alice, _, _, _ := lobbyWithGame(t, s)
	roomKey := alice.RoomKey

	s.dropConnection(alice)

	again, againT := newTestConn(s, "conn-alice-2")
	identify(s, again, "alice", "g2") // different declared scope

	assert.Empty(t, again.RoomKey, "no cross-tenant pull")
	assert.NotNil(t, s.rooms.Get(roomKey), "room untouched")

	// No error surfaced either, just the ack.
	assert.Equal(t, []string{"identify_ack"}, againT.frameTypes(t))
}

// Test 5: An explicit leave forgets the mapping
func TestReconnect_ExplicitLeaveClearsMapping(t *testing.T) {
	s, _ := newTestServer()
	_, bob, _, _ := lobbyWithGame(t, s)

	s.dispatch(bob, inboundMessage{Type: TypeLeaveRoom, RequestID: "r9"})
	assert.Empty(t, bob.RoomKey)

	again, _ := newTestConn(s, "conn-bob-2")
	identify(s, again, "bob", "g1")
	assert.Empty(t, again.RoomKey, "no readmission after an explicit leave")
}

// Test 6: Duplicate tabs — the mapping admits both connections
// Why: Multi-presence is undefined in the protocol; the behavior is
// preserved as-is rather than deduplicated
func TestReconnect_DuplicateIdentityAdmitsBoth(t *testing.T) {
	s, _ := newTestServer()
	alice, _ := knownConn(s, "c1", "alice", "g1")
	room, err := s.rooms.Create(alice)
	assert.NoError(t, err)

	second, _ := newTestConn(s, "c2")
	identify(s, second, "alice", "g1")

	assert.Equal(t, room.Key, second.RoomKey)
	assert.Equal(t, 2, len(room.Members), "both tabs are members")
}
