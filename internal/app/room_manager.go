package app

import (
	"sort"
	"sync"

	"github.com/aurora-ops/realtime/internal/core"
	"github.com/aurora-ops/realtime/internal/domain"
	"github.com/rs/zerolog/log"
)

// RoomManager is a threadsafe in-memory room index.
// It never closes adapter-owned resources and performs no authorization:
// callers verify scope before Join.
type RoomManager struct {
	mu     sync.RWMutex
	rooms  map[domain.RoomKey]map[domain.ConnID]core.SignalConnection
	byConn map[domain.ConnID]map[domain.RoomKey]struct{}
}

func NewRoomManager() *RoomManager {
	return &RoomManager{
		rooms:  make(map[domain.RoomKey]map[domain.ConnID]core.SignalConnection),
		byConn: make(map[domain.ConnID]map[domain.RoomKey]struct{}),
	}
}

// Join adds the connection to the room and reports whether it was newly added.
func (m *RoomManager) Join(connID domain.ConnID, key domain.RoomKey, conn core.SignalConnection) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	members, ok := m.rooms[key]
	if !ok {
		members = make(map[domain.ConnID]core.SignalConnection)
		m.rooms[key] = members
	}
	if _, ok := members[connID]; ok {
		return false
	}
	members[connID] = conn

	joined, ok := m.byConn[connID]
	if !ok {
		joined = make(map[domain.RoomKey]struct{})
		m.byConn[connID] = joined
	}
	joined[key] = struct{}{}
	log.Debug().Str("module", "app.rooms").Str("conn", string(connID)).Str("room", string(key)).Int("members", len(members)).Msg("joined room")
	return true
}

// Leave removes the connection from the room and reports whether it was a member.
func (m *RoomManager) Leave(connID domain.ConnID, key domain.RoomKey) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.leaveLocked(connID, key)
}

func (m *RoomManager) leaveLocked(connID domain.ConnID, key domain.RoomKey) bool {
	members, ok := m.rooms[key]
	if !ok {
		return false
	}
	if _, ok := members[connID]; !ok {
		return false
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(m.rooms, key)
	}
	if joined, ok := m.byConn[connID]; ok {
		delete(joined, key)
		if len(joined) == 0 {
			delete(m.byConn, connID)
		}
	}
	log.Debug().Str("module", "app.rooms").Str("conn", string(connID)).Str("room", string(key)).Msg("left room")
	return true
}

// LeaveAll removes the connection from every room it joined.
func (m *RoomManager) LeaveAll(connID domain.ConnID) []domain.RoomKey {
	m.mu.Lock()
	defer m.mu.Unlock()
	joined := m.byConn[connID]
	out := make([]domain.RoomKey, 0, len(joined))
	for key := range joined {
		out = append(out, key)
	}
	for _, key := range out {
		m.leaveLocked(connID, key)
	}
	return out
}

// Broadcast delivers frame to every member of the room except the listed
// connections. Members whose send buffer is full are reported as dropped.
func (m *RoomManager) Broadcast(key domain.RoomKey, data core.Frame, except ...domain.ConnID) core.PublishResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := core.PublishResult{}
	for connID, conn := range m.rooms[key] {
		if excluded(connID, except) {
			continue
		}
		if err := conn.TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, connID)
			continue
		}
		res.SendTo++
	}
	log.Debug().Str("module", "app.rooms").Str("room", string(key)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

func (m *RoomManager) Members(key domain.RoomKey) []domain.ConnID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.ConnID, 0, len(m.rooms[key]))
	for connID := range m.rooms[key] {
		out = append(out, connID)
	}
	return out
}

func (m *RoomManager) MemberCount(key domain.RoomKey) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms[key])
}

func (m *RoomManager) IsMember(connID domain.ConnID, key domain.RoomKey) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.rooms[key][connID]
	return ok
}

func (m *RoomManager) RoomsOf(connID domain.ConnID) []domain.RoomKey {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.RoomKey, 0, len(m.byConn[connID]))
	for key := range m.byConn[connID] {
		out = append(out, key)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (m *RoomManager) List() []core.RoomInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(m.rooms))
	for key, members := range m.rooms {
		out = append(out, core.RoomInfo{Key: key, MemberCount: len(members)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func excluded(id domain.ConnID, except []domain.ConnID) bool {
	for _, e := range except {
		if e == id {
			return true
		}
	}
	return false
}
