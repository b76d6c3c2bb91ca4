package app

import "github.com/aurora-ops/realtime/internal/domain"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
	DropFrame
)

// Policy decides what happens to a connection whose send buffer is full.
type Policy interface {
	OnBackPressure(room domain.RoomKey, conn domain.ConnID) BackpressureAction
}

type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(room domain.RoomKey, conn domain.ConnID) BackpressureAction {
	return KickMember
}

// RolePermissions grants actions per membership role.
type RolePermissions map[domain.Role][]domain.Action

func DefaultPermissions() RolePermissions {
	write := []domain.Action{
		domain.ActionTaskWrite,
		domain.ActionTaskDelete,
		domain.ActionCommentWrite,
		domain.ActionNotificationRead,
	}
	return RolePermissions{
		domain.RoleOwner:  write,
		domain.RoleAdmin:  write,
		domain.RoleMember: write,
		domain.RoleViewer: {domain.ActionCommentWrite, domain.ActionNotificationRead},
	}
}

func (p RolePermissions) Can(role domain.Role, action domain.Action) bool {
	for _, a := range p[role] {
		if a == action {
			return true
		}
	}
	return false
}
