package domain

import "time"

type (
	ProjectID      string
	TaskID         string
	NotificationID string
	CommentID      string
)

type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
)

type Project struct {
	ID             ProjectID      `json:"id" bson:"_id"`
	OrganizationID OrganizationID `json:"organizationId" bson:"organizationId"`
	Name           string         `json:"name" bson:"name"`
	CreatedAt      time.Time      `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt" bson:"updatedAt"`
}

type Task struct {
	ID             TaskID         `json:"id" bson:"_id"`
	OrganizationID OrganizationID `json:"organizationId" bson:"organizationId"`
	ProjectID      ProjectID      `json:"projectId" bson:"projectId"`
	Title          string         `json:"title" bson:"title"`
	Description    string         `json:"description,omitempty" bson:"description"`
	Status         TaskStatus     `json:"status" bson:"status"`
	Priority       string         `json:"priority,omitempty" bson:"priority"`
	AssigneeID     UserID         `json:"assigneeId,omitempty" bson:"assigneeId"`
	CreatedBy      UserID         `json:"createdBy" bson:"createdBy"`
	CreatedAt      time.Time      `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt" bson:"updatedAt"`
}

// NewTask is the client-supplied part of a task; the server stamps the rest.
type NewTask struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=5000"`
	Status      TaskStatus `json:"status" validate:"omitempty,oneof=todo in_progress done"`
	Priority    string     `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	AssigneeID  UserID     `json:"assigneeId" validate:"max=64"`
}

// TaskPatch is a partial update; nil fields are left untouched.
type TaskPatch struct {
	Title       *string     `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string     `json:"description,omitempty" validate:"omitempty,max=5000"`
	Status      *TaskStatus `json:"status,omitempty" validate:"omitempty,oneof=todo in_progress done"`
	Priority    *string     `json:"priority,omitempty" validate:"omitempty,oneof=low medium high urgent"`
	AssigneeID  *UserID     `json:"assigneeId,omitempty" validate:"omitempty,max=64"`
}

func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && p.Priority == nil && p.AssigneeID == nil
}

// Apply returns t with the patch applied.
func (p TaskPatch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.AssigneeID != nil {
		t.AssigneeID = *p.AssigneeID
	}
	return t
}

type TaskStats struct {
	TotalTasks      int `json:"totalTasks"`
	CompletedTasks  int `json:"completedTasks"`
	InProgressTasks int `json:"inProgressTasks"`
	TodoTasks       int `json:"todoTasks"`
}

// StatsFromCounts folds per-status counts into a snapshot. Unknown statuses
// only count towards the total.
func StatsFromCounts(counts map[TaskStatus]int) TaskStats {
	var s TaskStats
	for status, n := range counts {
		s.TotalTasks += n
		switch status {
		case TaskDone:
			s.CompletedTasks += n
		case TaskInProgress:
			s.InProgressTasks += n
		case TaskTodo:
			s.TodoTasks += n
		}
	}
	return s
}

type Comment struct {
	ID        CommentID `json:"id" bson:"_id"`
	TaskID    TaskID    `json:"taskId" bson:"taskId"`
	UserID    UserID    `json:"userId" bson:"userId"`
	Body      string    `json:"body" bson:"body"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

type Notification struct {
	ID             NotificationID `json:"id" bson:"_id"`
	UserID         UserID         `json:"userId" bson:"userId"`
	OrganizationID OrganizationID `json:"organizationId" bson:"organizationId"`
	Type           string         `json:"type" bson:"type"`
	Message        string         `json:"message" bson:"message"`
	Read           bool           `json:"read" bson:"read"`
	CreatedAt      time.Time      `json:"createdAt" bson:"createdAt"`
}
