package core

import (
	"context"
	"time"

	"github.com/aurora-ops/realtime/internal/domain"
)

//go:generate mockgen -destination=mocks/mock_collaborators.go -package=mocks . Verifier,MembershipLookup,ProjectLookup

// Verifier checks a bearer credential (decode, signature, expiry).
type Verifier interface {
	Verify(ctx context.Context, credential string) (domain.Principal, error)
}

// MembershipLookup resolves the active membership of a user. An empty
// organization id selects the user's primary membership.
type MembershipLookup interface {
	FindActiveMembership(ctx context.Context, userID domain.UserID, orgID domain.OrganizationID) (domain.Membership, error)
}

type ProjectLookup interface {
	ProjectOrganization(ctx context.Context, projectID domain.ProjectID) (domain.OrganizationID, error)
}

// Permissions is the capability check shared by REST and websocket writes.
type Permissions interface {
	Can(role domain.Role, action domain.Action) bool
}

// TaskStore reads and writes tasks. Every call is scoped to one organization;
// a task of another organization is reported as domain.ErrNotFound.
type TaskStore interface {
	CreateTask(ctx context.Context, t domain.Task) (domain.Task, error)
	GetTask(ctx context.Context, orgID domain.OrganizationID, id domain.TaskID) (domain.Task, error)
	UpdateTask(ctx context.Context, orgID domain.OrganizationID, id domain.TaskID, patch domain.TaskPatch, at time.Time) (domain.Task, error)
	DeleteTask(ctx context.Context, orgID domain.OrganizationID, id domain.TaskID) error
	ListTasks(ctx context.Context, orgID domain.OrganizationID, projectID domain.ProjectID) ([]domain.Task, error)
	// ListTasksByAssignee returns most recently updated first.
	ListTasksByAssignee(ctx context.Context, userID domain.UserID, orgID domain.OrganizationID, limit int) ([]domain.Task, error)
	CountTasksByStatus(ctx context.Context, assigneeID domain.UserID, orgID domain.OrganizationID) (map[domain.TaskStatus]int, error)
}

type NotificationStore interface {
	CreateNotification(ctx context.Context, n domain.Notification) (domain.Notification, error)
	MarkRead(ctx context.Context, userID domain.UserID, id domain.NotificationID) error
	ListUnread(ctx context.Context, userID domain.UserID, orgID domain.OrganizationID, limit int) ([]domain.Notification, error)
}

type CommentStore interface {
	AddComment(ctx context.Context, c domain.Comment) (domain.Comment, error)
}

// Store is everything a document store backend provides.
type Store interface {
	MembershipLookup
	ProjectLookup
	TaskStore
	NotificationStore
	CommentStore
	AddMembership(ctx context.Context, m domain.Membership) error
	CreateProject(ctx context.Context, p domain.Project) (domain.Project, error)
	Close() error
}
