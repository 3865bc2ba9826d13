package server

import (
	"context"
	"time"

	"github.com/coder/websocket"
)

// transport is the write side of a client connection. Broadcast and sweep
// logic is tested against a fake implementation.
type transport interface {
	Write(ctx context.Context, data []byte) error
	Ping(ctx context.Context) error
	Close(code websocket.StatusCode, reason string) error
}

type wsTransport struct {
	conn *websocket.Conn
}

func (t wsTransport) Write(ctx context.Context, data []byte) error {
	return t.conn.Write(ctx, websocket.MessageText, data)
}

func (t wsTransport) Ping(ctx context.Context) error {
	return t.conn.Ping(ctx)
}

func (t wsTransport) Close(code websocket.StatusCode, reason string) error {
	return t.conn.Close(code, reason)
}

// Connection is one live transport session. Identity starts Anonymous and is
// replaced in place by identify; GuildID is the tenant scope declared there.
type Connection struct {
	ID       string
	sock     transport
	Identity Identity
	GuildID  string
	RoomKey  string // empty when the connection is in no room
	LastPong time.Time
}

// ConnectionRegistry owns every live Connection exclusively; rooms hold
// references only. All access is serialized by the Server's mutation mutex,
// so the registry carries no lock of its own.
type ConnectionRegistry struct {
	conns map[string]*Connection
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		conns: make(map[string]*Connection),
	}
}

func (r *ConnectionRegistry) Add(conn *Connection) {
	r.conns[conn.ID] = conn
}

func (r *ConnectionRegistry) Remove(id string) {
	delete(r.conns, id)
}

func (r *ConnectionRegistry) Get(id string) *Connection {
	return r.conns[id]
}

func (r *ConnectionRegistry) All() []*Connection {
	conns := make([]*Connection, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	return conns
}

func (r *ConnectionRegistry) Count() int {
	return len(r.conns)
}
