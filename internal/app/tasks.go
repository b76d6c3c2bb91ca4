package app

import (
	"context"
	"fmt"
	"time"

	"github.com/aurora-ops/realtime/internal/core"
	"github.com/aurora-ops/realtime/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// TaskService is the single write path for tasks and comments. REST handlers
// and websocket handlers both go through it: capability check, scoped store
// mutation, then a DomainEvent on the bus once the write committed.
type TaskService struct {
	Tasks         core.TaskStore
	Projects      core.ProjectLookup
	Comments      core.CommentStore
	Notifications core.NotificationStore
	Permissions   core.Permissions
	Bus           *EventBus
	Timeout       time.Duration
	Now           func() time.Time
}

func (s *TaskService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *TaskService) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.Timeout > 0 {
		return context.WithTimeout(ctx, s.Timeout)
	}
	return context.WithCancel(ctx)
}

func (s *TaskService) authorize(actor domain.Identity, action domain.Action) error {
	if s.Permissions == nil || s.Permissions.Can(actor.Role, action) {
		return nil
	}
	return fmt.Errorf("%s cannot %s: %w", actor.Role, action, domain.ErrForbidden)
}

// CheckProject verifies the project belongs to the actor's organization.
// Projects of other organizations are reported as not found.
func (s *TaskService) CheckProject(ctx context.Context, actor domain.Identity, projectID domain.ProjectID) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	org, err := s.Projects.ProjectOrganization(ctx, projectID)
	if err != nil {
		return fmt.Errorf("project %s: %w", projectID, err)
	}
	if org != actor.OrganizationID {
		return fmt.Errorf("project %s: %w", projectID, domain.ErrNotFound)
	}
	return nil
}

func (s *TaskService) Create(ctx context.Context, actor domain.Identity, projectID domain.ProjectID, in domain.NewTask) (domain.Task, error) {
	if err := s.authorize(actor, domain.ActionTaskWrite); err != nil {
		return domain.Task{}, err
	}
	if err := s.CheckProject(ctx, actor, projectID); err != nil {
		return domain.Task{}, err
	}
	status := in.Status
	if status == "" {
		status = domain.TaskTodo
	}
	now := s.now()
	t := domain.Task{
		ID:             domain.TaskID(uuid.NewString()),
		OrganizationID: actor.OrganizationID,
		ProjectID:      projectID,
		Title:          in.Title,
		Description:    in.Description,
		Status:         status,
		Priority:       in.Priority,
		AssigneeID:     in.AssigneeID,
		CreatedBy:      actor.UserID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()
	created, err := s.Tasks.CreateTask(ctx, t)
	if err != nil {
		return domain.Task{}, fmt.Errorf("create task: %w", err)
	}

	if created.AssigneeID != "" && created.AssigneeID != actor.UserID && s.Notifications != nil {
		_, nerr := s.Notifications.CreateNotification(ctx, domain.Notification{
			ID:             domain.NotificationID(uuid.NewString()),
			UserID:         created.AssigneeID,
			OrganizationID: actor.OrganizationID,
			Type:           "task_assigned",
			Message:        fmt.Sprintf("You were assigned %q", created.Title),
			CreatedAt:      now,
		})
		if nerr != nil {
			log.Warn().Err(nerr).Str("module", "app.tasks").Str("task", string(created.ID)).Msg("assignment notification not stored")
		}
	}

	s.publish(DomainEvent{
		Topic:          TopicTaskCreated,
		OrganizationID: actor.OrganizationID,
		ProjectID:      created.ProjectID,
		Actor:          actor.UserID,
		Affected:       affected(created.AssigneeID),
		Event:          domain.EventTaskCreated,
		Payload:        domain.TaskCreated{Task: created, CreatedBy: actor.UserID, Timestamp: now},
	})
	return created, nil
}

func (s *TaskService) Update(ctx context.Context, actor domain.Identity, id domain.TaskID, patch domain.TaskPatch) (domain.Task, error) {
	if err := s.authorize(actor, domain.ActionTaskWrite); err != nil {
		return domain.Task{}, err
	}
	if patch.Empty() {
		return domain.Task{}, fmt.Errorf("empty update: %w", domain.ErrInvalidPayload)
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	before, err := s.Tasks.GetTask(ctx, actor.OrganizationID, id)
	if err != nil {
		return domain.Task{}, fmt.Errorf("task %s: %w", id, err)
	}
	now := s.now()
	updated, err := s.Tasks.UpdateTask(ctx, actor.OrganizationID, id, patch, now)
	if err != nil {
		return domain.Task{}, fmt.Errorf("update task %s: %w", id, err)
	}

	s.publish(DomainEvent{
		Topic:          TopicTaskUpdated,
		OrganizationID: actor.OrganizationID,
		ProjectID:      updated.ProjectID,
		Actor:          actor.UserID,
		Affected:       affected(before.AssigneeID, updated.AssigneeID),
		Event:          domain.EventTaskUpdated,
		Payload: domain.TaskUpdated{
			TaskID:    updated.ID,
			ProjectID: updated.ProjectID,
			Updates:   patch,
			Task:      updated,
			UpdatedBy: actor.UserID,
			Timestamp: now,
		},
	})
	return updated, nil
}

func (s *TaskService) Delete(ctx context.Context, actor domain.Identity, id domain.TaskID) (domain.Task, error) {
	if err := s.authorize(actor, domain.ActionTaskDelete); err != nil {
		return domain.Task{}, err
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	t, err := s.Tasks.GetTask(ctx, actor.OrganizationID, id)
	if err != nil {
		return domain.Task{}, fmt.Errorf("task %s: %w", id, err)
	}
	if err := s.Tasks.DeleteTask(ctx, actor.OrganizationID, id); err != nil {
		return domain.Task{}, fmt.Errorf("delete task %s: %w", id, err)
	}

	s.publish(DomainEvent{
		Topic:          TopicTaskDeleted,
		OrganizationID: actor.OrganizationID,
		ProjectID:      t.ProjectID,
		Actor:          actor.UserID,
		Affected:       affected(t.AssigneeID),
		Event:          domain.EventTaskDeleted,
		Payload:        domain.TaskDeleted{TaskID: id, ProjectID: t.ProjectID, DeletedBy: actor.UserID, Timestamp: s.now()},
	})
	return t, nil
}

// Comment broadcasts a comment on a task of the actor's organization.
// Persistence is best-effort: a store failure is logged and the comment is
// still announced.
func (s *TaskService) Comment(ctx context.Context, actor domain.Identity, id domain.TaskID, body string) (domain.Comment, error) {
	if err := s.authorize(actor, domain.ActionCommentWrite); err != nil {
		return domain.Comment{}, err
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	t, err := s.Tasks.GetTask(ctx, actor.OrganizationID, id)
	if err != nil {
		return domain.Comment{}, fmt.Errorf("task %s: %w", id, err)
	}
	now := s.now()
	c := domain.Comment{
		ID:        domain.CommentID(uuid.NewString()),
		TaskID:    id,
		UserID:    actor.UserID,
		Body:      body,
		CreatedAt: now,
	}
	if s.Comments != nil {
		stored, err := s.Comments.AddComment(ctx, c)
		if err != nil {
			log.Warn().Err(err).Str("module", "app.tasks").Str("task", string(id)).Msg("comment not stored")
		} else {
			c = stored
		}
	}

	s.publish(DomainEvent{
		Topic:          TopicTaskCommentAdded,
		OrganizationID: actor.OrganizationID,
		ProjectID:      t.ProjectID,
		Actor:          actor.UserID,
		Event:          domain.EventTaskCommentAdded,
		Payload: domain.CommentAdded{
			TaskID:    id,
			ProjectID: t.ProjectID,
			Comment:   c,
			UserID:    actor.UserID,
			Email:     actor.Email,
			Timestamp: now,
		},
	})
	return c, nil
}

func (s *TaskService) List(ctx context.Context, actor domain.Identity, projectID domain.ProjectID) ([]domain.Task, error) {
	if projectID != "" {
		if err := s.CheckProject(ctx, actor, projectID); err != nil {
			return nil, err
		}
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.Tasks.ListTasks(ctx, actor.OrganizationID, projectID)
}

// Stats counts the tasks assigned to userID within orgID.
func (s *TaskService) Stats(ctx context.Context, userID domain.UserID, orgID domain.OrganizationID) (domain.TaskStats, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	counts, err := s.Tasks.CountTasksByStatus(ctx, userID, orgID)
	if err != nil {
		return domain.TaskStats{}, fmt.Errorf("count tasks: %w", err)
	}
	return domain.StatsFromCounts(counts), nil
}

// Recent lists the tasks assigned to userID, most recently updated first.
func (s *TaskService) Recent(ctx context.Context, userID domain.UserID, orgID domain.OrganizationID, limit int) ([]domain.Task, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	tasks, err := s.Tasks.ListTasksByAssignee(ctx, userID, orgID, limit)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks, nil
}

func (s *TaskService) publish(ev DomainEvent) {
	if s.Bus == nil {
		return
	}
	s.Bus.Publish(ev)
}

func affected(ids ...domain.UserID) []domain.UserID {
	var out []domain.UserID
	for _, id := range ids {
		if id == "" {
			continue
		}
		dup := false
		for _, o := range out {
			if o == id {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, id)
		}
	}
	return out
}
