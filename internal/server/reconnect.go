package server

// ReconnectMapper remembers the last room key a known identity joined, for
// the lifetime of the process, independent of any single connection. It is
// what lets a dropped-and-returning client re-enter its room on identify
// without a fresh join. Access is serialized by the Server's mutation mutex.
type ReconnectMapper struct {
	lastRoom map[string]string // player key -> room key
}

func NewReconnectMapper() *ReconnectMapper {
	return &ReconnectMapper{
		lastRoom: make(map[string]string),
	}
}

func (m *ReconnectMapper) Record(playerKey, roomKey string) {
	m.lastRoom[playerKey] = roomKey
}

// Clear removes the mapping only if it still points at roomKey, so an
// explicit leave cannot clobber a mapping updated by a later join elsewhere.
func (m *ReconnectMapper) Clear(playerKey, roomKey string) {
	if m.lastRoom[playerKey] == roomKey {
		delete(m.lastRoom, playerKey)
	}
}

func (m *ReconnectMapper) Lookup(playerKey string) (string, bool) {
	roomKey, ok := m.lastRoom[playerKey]
	return roomKey, ok
}
