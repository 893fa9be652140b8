package realtime

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

// Router tracks /ws connections and their chat rooms. Socket.IO keeps its own
// rooms; both are fed by the same Relay.
type Router struct {
	log zerolog.Logger

	mu           sync.RWMutex
	sessions     map[string]*Connection
	rooms        map[string]map[string]*Connection // room -> conn id -> conn
	sessionRooms map[string]map[string]struct{}    // conn id -> rooms
}

func NewRouter(log zerolog.Logger) *Router {
	return &Router{
		log:          log,
		sessions:     make(map[string]*Connection),
		rooms:        make(map[string]map[string]*Connection),
		sessionRooms: make(map[string]map[string]struct{}),
	}
}

func (r *Router) Attach(conn *Connection) {
	r.mu.Lock()
	r.sessions[conn.ID] = conn
	r.sessionRooms[conn.ID] = make(map[string]struct{})
	r.mu.Unlock()
}

// Detach forgets conn and every room it joined.
func (r *Router) Detach(conn *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, conn.ID)
	for room := range r.sessionRooms[conn.ID] {
		r.leaveLocked(room, conn.ID)
	}
	delete(r.sessionRooms, conn.ID)
}

// Join adds an attached connection to room.
func (r *Router) Join(room string, conn *Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[conn.ID]; !ok {
		return false
	}
	members := r.rooms[room]
	if members == nil {
		members = make(map[string]*Connection)
		r.rooms[room] = members
	}
	members[conn.ID] = conn
	r.sessionRooms[conn.ID][room] = struct{}{}
	return true
}

func (r *Router) leaveLocked(room, connID string) {
	members := r.rooms[room]
	if members == nil {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(r.rooms, room)
	}
	if joined, ok := r.sessionRooms[connID]; ok {
		delete(joined, room)
	}
}

// Broadcast writes payload to every member of room and returns how many
// connections accepted it.
func (r *Router) Broadcast(room string, payload []byte) int {
	r.mu.RLock()
	members := make([]*Connection, 0, len(r.rooms[room]))
	for _, conn := range r.rooms[room] {
		members = append(members, conn)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, conn := range members {
		if err := conn.Send(payload); err == nil {
			delivered++
		}
	}
	return delivered
}

// Deliver makes Router a relay Sink.
func (r *Router) Deliver(room, event string, data json.RawMessage) {
	payload, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		r.log.Error().Err(err).Msg("marshal relay envelope")
		return
	}
	r.Broadcast(room, payload)
}

// Members counts the connections in room.
func (r *Router) Members(room string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[room])
}

// Close disconnects everyone.
func (r *Router) Close() {
	r.mu.Lock()
	conns := make([]*Connection, 0, len(r.sessions))
	for _, c := range r.sessions {
		conns = append(conns, c)
	}
	r.sessions = make(map[string]*Connection)
	r.rooms = make(map[string]map[string]*Connection)
	r.sessionRooms = make(map[string]map[string]struct{})
	r.mu.Unlock()

	for _, c := range conns {
		c.Close(1001, "server shutdown")
	}
}
