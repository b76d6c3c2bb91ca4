package app

import (
	"github.com/aurora-ops/realtime/internal/domain"
	"github.com/leandro-lugaresi/hub"
)

// Internal topics published after a committed write.
const (
	TopicTaskCreated      = "task.created"
	TopicTaskUpdated      = "task.updated"
	TopicTaskDeleted      = "task.deleted"
	TopicTaskCommentAdded = "task.comment-added"
)

const eventField = "event"

// DomainEvent is what a write path publishes; the fan-out turns it into room
// broadcasts.
type DomainEvent struct {
	Topic          string
	OrganizationID domain.OrganizationID
	ProjectID      domain.ProjectID
	Actor          domain.UserID
	// Affected are users whose stats and task lists changed.
	Affected []domain.UserID
	// Event and Payload are the outbound wire event for the project room.
	Event   string
	Payload any
}

// EventBus is the in-process bus between write paths and the fan-out.
type EventBus struct {
	h *hub.Hub
}

func NewEventBus() *EventBus {
	return &EventBus{h: hub.New()}
}

func (b *EventBus) Publish(ev DomainEvent) {
	b.h.Publish(hub.Message{Name: ev.Topic, Fields: hub.Fields{eventField: ev}})
}

// Subscribe returns a blocking subscription to every task topic.
func (b *EventBus) Subscribe(capacity int) hub.Subscription {
	return b.h.Subscribe(capacity, "task.*")
}

func (b *EventBus) Unsubscribe(sub hub.Subscription) {
	b.h.Unsubscribe(sub)
}

func (b *EventBus) Close() {
	b.h.Close()
}

// EventOf extracts the DomainEvent carried by a bus message.
func EventOf(msg hub.Message) (DomainEvent, bool) {
	ev, ok := msg.Fields[eventField].(DomainEvent)
	return ev, ok
}
