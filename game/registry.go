package game

import (
	"sync"

	"github.com/blockclash/blockclash-backend/models"
)

// Conn is the outbound half of a player connection. The websocket layer
// implements it; tests substitute an in-memory fake.
type Conn interface {
	Send(msgType string, payload interface{})
}

// Registry owns the process-wide room and connection indexes. All
// mutation goes through it so nothing else holds ad hoc global maps.
type Registry struct {
	mu         sync.RWMutex
	rooms      map[string]*Room
	conns      map[string]Conn
	playerExp  map[string]string
	playerRoom map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:      make(map[string]*Room),
		conns:      make(map[string]Conn),
		playerExp:  make(map[string]string),
		playerRoom: make(map[string]string),
	}
}

func (r *Registry) RegisterConn(playerID, experienceID string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[playerID] = conn
	r.playerExp[playerID] = experienceID
}

func (r *Registry) UnregisterConn(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, playerID)
	delete(r.playerExp, playerID)
}

func (r *Registry) Conn(playerID string) Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conns[playerID]
}

func (r *Registry) AddRoom(room *Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms[room.ID] = room
}

func (r *Registry) RemoveRoom(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, roomID)
}

func (r *Registry) Room(roomID string) *Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms[roomID]
}

func (r *Registry) BindRoom(playerID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.playerRoom[playerID] = roomID
}

func (r *Registry) UnbindRoom(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.playerRoom, playerID)
}

// RoomOf returns the room the player is seated in, or nil.
func (r *Registry) RoomOf(playerID string) *Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	roomID, ok := r.playerRoom[playerID]
	if !ok {
		return nil
	}
	return r.rooms[roomID]
}

// WaitingRooms summarizes the joinable rooms of one experience for the
// lobby view; recomputed on demand, never cached.
func (r *Registry) WaitingRooms(experienceID string) []models.RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.RoomInfo, 0)
	for _, room := range r.rooms {
		if room.ExperienceID != experienceID {
			continue
		}
		info := room.Info()
		if info.Status == models.RoomWaiting {
			out = append(out, info)
		}
	}
	return out
}

// EachUnseatedConn visits every authenticated connection of the
// experience that is not currently bound to a room.
func (r *Registry) EachUnseatedConn(experienceID string, fn func(playerID string, conn Conn)) {
	r.mu.RLock()
	type entry struct {
		id   string
		conn Conn
	}
	var targets []entry
	for playerID, conn := range r.conns {
		if r.playerExp[playerID] != experienceID {
			continue
		}
		if _, seated := r.playerRoom[playerID]; seated {
			continue
		}
		targets = append(targets, entry{playerID, conn})
	}
	r.mu.RUnlock()

	for _, t := range targets {
		fn(t.id, t.conn)
	}
}
