package orch

import (
	"github.com/aurora-ops/realtime/internal/domain"
	"github.com/rs/zerolog/log"
)

// Join adds a registered connection to a room. Unknown connections are ignored.
func (o *Orchestrator) Join(connID domain.ConnID, key domain.RoomKey) bool {
	_, conn, ok := o.Registry.Lookup(connID)
	if !ok {
		return false
	}
	return o.Rooms.Join(connID, key, conn)
}

func (o *Orchestrator) Leave(connID domain.ConnID, key domain.RoomKey) bool {
	return o.Rooms.Leave(connID, key)
}

// JoinProject joins the project room and tells the members already there.
// The caller must have checked the project belongs to the connection's
// organization.
func (o *Orchestrator) JoinProject(connID domain.ConnID, projectID domain.ProjectID) bool {
	id, _, ok := o.Registry.Lookup(connID)
	if !ok {
		return false
	}
	key := domain.ProjectRoom(projectID)
	if !o.Join(connID, key) {
		return true
	}
	log.Debug().Str("module", "orch").Str("conn", string(connID)).Str("room", string(key)).Msg("joined")
	o.Emit(key, domain.EventUserJoined, domain.ProjectMembership{
		UserID:    id.UserID,
		Email:     id.Email,
		ProjectID: projectID,
		Timestamp: o.now(),
	}, connID)
	return true
}

func (o *Orchestrator) LeaveProject(connID domain.ConnID, projectID domain.ProjectID) bool {
	id, _, ok := o.Registry.Lookup(connID)
	if !ok {
		return false
	}
	key := domain.ProjectRoom(projectID)
	if !o.Leave(connID, key) {
		return false
	}
	log.Debug().Str("module", "orch").Str("conn", string(connID)).Str("room", string(key)).Msg("left")
	o.Emit(key, domain.EventUserLeft, domain.ProjectMembership{
		UserID:    id.UserID,
		Email:     id.Email,
		ProjectID: projectID,
		Timestamp: o.now(),
	})
	return true
}

// Interested reports whether anyone may be listening on the room.
func (o *Orchestrator) Interested(key domain.RoomKey) bool {
	return o.Shared() || o.Rooms.MemberCount(key) > 0
}
