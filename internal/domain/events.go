package domain

import (
	"encoding/json"
	"time"
)

// Inbound client events.
const (
	EventJoinProject      = "join-project"
	EventLeaveProject     = "leave-project"
	EventTaskCreate       = "task:create"
	EventTaskUpdate       = "task:update"
	EventTaskDelete       = "task:delete"
	EventTaskComment      = "task:comment"
	EventNotificationRead = "notification:read"
	EventTyping           = "typing"
	EventStopTyping       = "stop-typing"
	EventStatsSubscribe   = "stats:subscribe"
	EventStatsUnsubscribe = "stats:unsubscribe"
	EventTasksSubscribe   = "tasks:subscribe"
	EventTasksUnsubscribe = "tasks:unsubscribe"
	EventPing             = "ping"
)

// Outbound server events.
const (
	EventTaskCreated       = "task:created"
	EventTaskUpdated       = "task:updated"
	EventTaskDeleted       = "task:deleted"
	EventTaskCommentAdded  = "task:comment-added"
	EventUserJoined        = "user:joined"
	EventUserLeft          = "user:left"
	EventUserPresence      = "user:presence"
	EventUserTyping        = "user:typing"
	EventUserStopTyping    = "user:stop-typing"
	EventNotificationsLoad = "notifications:load"
	EventNotificationNew   = "notification:new"
	EventNotificationAck   = "notification:read"
	EventStatsUpdate       = "stats:update"
	EventTasksLoaded       = "tasks:loaded"
	EventPong              = "pong"
	EventError             = "error"
)

// Envelope is the wire frame in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals data into a ready-to-send frame.
func NewEnvelope(event string, data any) ([]byte, error) {
	out := struct {
		Event string `json:"event"`
		Data  any    `json:"data,omitempty"`
	}{Event: event, Data: data}
	return json.Marshal(out)
}

// ─── Inbound payloads ────────────────────────────────────────────────────────

type ProjectPayload struct {
	ProjectID ProjectID `json:"projectId" validate:"required,max=64"`
}

type TaskCreatePayload struct {
	ProjectID ProjectID `json:"projectId" validate:"required,max=64"`
	TaskData  NewTask   `json:"taskData" validate:"required"`
}

type TaskUpdatePayload struct {
	TaskID    TaskID    `json:"taskId" validate:"required,max=64"`
	ProjectID ProjectID `json:"projectId" validate:"max=64"`
	Updates   TaskPatch `json:"updates" validate:"required"`
}

type TaskRefPayload struct {
	TaskID    TaskID    `json:"taskId" validate:"required,max=64"`
	ProjectID ProjectID `json:"projectId" validate:"max=64"`
}

type TaskCommentPayload struct {
	TaskID    TaskID    `json:"taskId" validate:"required,max=64"`
	ProjectID ProjectID `json:"projectId" validate:"max=64"`
	Comment   string    `json:"comment" validate:"required,max=5000"`
}

type NotificationReadPayload struct {
	NotificationID NotificationID `json:"notificationId" validate:"required,max=64"`
}

// ─── Outbound payloads ───────────────────────────────────────────────────────

type TaskCreated struct {
	Task      Task      `json:"task"`
	CreatedBy UserID    `json:"createdBy"`
	Timestamp time.Time `json:"timestamp"`
}

type TaskUpdated struct {
	TaskID    TaskID    `json:"taskId"`
	ProjectID ProjectID `json:"projectId"`
	Updates   TaskPatch `json:"updates"`
	Task      Task      `json:"task"`
	UpdatedBy UserID    `json:"updatedBy"`
	Timestamp time.Time `json:"timestamp"`
}

type TaskDeleted struct {
	TaskID    TaskID    `json:"taskId"`
	ProjectID ProjectID `json:"projectId"`
	DeletedBy UserID    `json:"deletedBy"`
	Timestamp time.Time `json:"timestamp"`
}

type CommentAdded struct {
	TaskID    TaskID    `json:"taskId"`
	ProjectID ProjectID `json:"projectId"`
	Comment   Comment   `json:"comment"`
	UserID    UserID    `json:"userId"`
	Email     string    `json:"email,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ProjectMembership struct {
	UserID    UserID    `json:"userId"`
	Email     string    `json:"email,omitempty"`
	ProjectID ProjectID `json:"projectId"`
	Timestamp time.Time `json:"timestamp"`
}

type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "online"
	PresenceOffline PresenceStatus = "offline"
)

type PresenceEvent struct {
	UserID    UserID         `json:"userId"`
	Status    PresenceStatus `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
}

type TypingEvent struct {
	UserID    UserID    `json:"userId"`
	Email     string    `json:"email,omitempty"`
	TaskID    TaskID    `json:"taskId"`
	ProjectID ProjectID `json:"projectId"`
	Timestamp time.Time `json:"timestamp"`
}

type NotificationsLoad struct {
	Notifications []Notification `json:"notifications"`
}

type NotificationNew struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	TaskID    TaskID    `json:"taskId,omitempty"`
	ProjectID ProjectID `json:"projectId,omitempty"`
	ActorID   UserID    `json:"actorId"`
	Timestamp time.Time `json:"timestamp"`
}

type NotificationAck struct {
	NotificationID NotificationID `json:"notificationId"`
	Timestamp      time.Time      `json:"timestamp"`
}

type TasksLoaded struct {
	Tasks []Task `json:"tasks"`
}

type ErrorEvent struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Event   string `json:"event,omitempty"`
}
