package orch

import (
	"context"
	"fmt"

	"github.com/aurora-ops/realtime/internal/app"
	"github.com/aurora-ops/realtime/internal/domain"
	"github.com/rs/zerolog/log"
)

// Fanout turns committed domain events into room broadcasts.
type Fanout struct {
	Orch       *Orchestrator
	Bus        *app.EventBus
	Tasks      *app.TaskService
	TasksLimit int
	Buffer     int
}

// Run consumes the bus until ctx is done.
func (f *Fanout) Run(ctx context.Context) error {
	buf := f.Buffer
	if buf <= 0 {
		buf = 256
	}
	sub := f.Bus.Subscribe(buf)
	defer f.Bus.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-sub.Receiver:
			if !ok {
				return nil
			}
			ev, ok := app.EventOf(msg)
			if !ok {
				log.Warn().Str("module", "orch.fanout").Str("topic", msg.Name).Msg("unexpected message")
				continue
			}
			f.Handle(ctx, ev)
		}
	}
}

// Handle broadcasts one event and refreshes the views of affected users.
func (f *Fanout) Handle(ctx context.Context, ev app.DomainEvent) {
	if ev.ProjectID != "" {
		f.Orch.Emit(domain.ProjectRoom(ev.ProjectID), ev.Event, ev.Payload)
	}

	if ev.Topic == app.TopicTaskCreated {
		if created, ok := ev.Payload.(domain.TaskCreated); ok {
			f.Orch.Emit(domain.OrgRoom(ev.OrganizationID), domain.EventNotificationNew, domain.NotificationNew{
				Type:      "task_created",
				Message:   fmt.Sprintf("New task %q", created.Task.Title),
				TaskID:    created.Task.ID,
				ProjectID: created.Task.ProjectID,
				ActorID:   ev.Actor,
				Timestamp: created.Timestamp,
			})
		}
	}

	if f.Tasks == nil {
		return
	}
	for _, user := range ev.Affected {
		f.refresh(ctx, user, ev.OrganizationID)
	}
}

func (f *Fanout) refresh(ctx context.Context, user domain.UserID, org domain.OrganizationID) {
	if key := domain.StatsRoom(org, user); f.Orch.Interested(key) {
		stats, err := f.Tasks.Stats(ctx, user, org)
		if err != nil {
			log.Warn().Err(err).Str("module", "orch.fanout").Str("user", string(user)).Msg("stats refresh failed")
		} else {
			f.Orch.Emit(key, domain.EventStatsUpdate, stats)
		}
	}
	if key := domain.UserTasksRoom(org, user); f.Orch.Interested(key) {
		limit := f.TasksLimit
		if limit <= 0 {
			limit = 20
		}
		tasks, err := f.Tasks.Recent(ctx, user, org, limit)
		if err != nil {
			log.Warn().Err(err).Str("module", "orch.fanout").Str("user", string(user)).Msg("tasks refresh failed")
		} else {
			f.Orch.Emit(key, domain.EventTasksLoaded, domain.TasksLoaded{Tasks: tasks})
		}
	}
}
