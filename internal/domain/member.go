package domain

import "time"

type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

const MembershipActive = "active"

// Membership represents user's participation in an organization.
// No transport or lifecycle logic here.
type Membership struct {
	UserID         UserID         `json:"userId" bson:"userId"`
	OrganizationID OrganizationID `json:"organizationId" bson:"organizationId"`
	Role           Role           `json:"role" bson:"role"`
	Status         string         `json:"status" bson:"status"`
	CreatedAt      time.Time      `json:"createdAt" bson:"createdAt"`
}

// Action is a capability checked before any mutation.
type Action string

const (
	ActionTaskWrite        Action = "task:write"
	ActionTaskDelete       Action = "task:delete"
	ActionCommentWrite     Action = "comment:write"
	ActionNotificationRead Action = "notification:read"
)
