package client

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/aurora-ops/realtime/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envelope(t *testing.T, event string, data any) domain.Envelope {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return domain.Envelope{Event: event, Data: raw}
}

func TestReconciler_PrefersRealtimeElseREST(t *testing.T) {
	r := NewReconciler()
	r.SetRESTTasks("", []domain.Task{
		{ID: "T1", Title: "rest", UpdatedAt: t0},
		{ID: "T2", Title: "rest", UpdatedAt: t0},
	}, t0)
	assert.Len(t, r.Tasks(), 2, "REST snapshot while realtime is empty")

	r.SetStatus(StatusConnecting)
	assert.Len(t, r.Tasks(), 2, "a reconnect does not blank the view")

	require.NoError(t, r.Handle(envelope(t, domain.EventTaskCreated, domain.TaskCreated{
		Task: domain.Task{ID: "T3", Title: "live", UpdatedAt: t0.Add(time.Second)},
	})))
	tasks := r.Tasks()
	require.Len(t, tasks, 3, "realtime view is seeded from the snapshot")
	assert.Equal(t, "live", tasks[2].Title)
}

func TestReconciler_DuplicateUpdateIsIdempotent(t *testing.T) {
	r := NewReconciler()
	r.SetRESTTasks("", []domain.Task{{ID: "T1", Status: domain.TaskTodo, UpdatedAt: t0}}, t0.Add(time.Second))

	done := domain.TaskDone
	update := envelope(t, domain.EventTaskUpdated, domain.TaskUpdated{
		TaskID:    "T1",
		ProjectID: "P1",
		Updates:   domain.TaskPatch{Status: &done},
		Task:      domain.Task{ID: "T1", Status: domain.TaskDone, UpdatedAt: t0.Add(time.Second)},
		UpdatedBy: "u-a",
		Timestamp: t0.Add(time.Second),
	})

	require.NoError(t, r.Handle(update))
	once := r.Tasks()
	require.NoError(t, r.Handle(update))
	assert.Equal(t, once, r.Tasks())

	// The REST refetch carrying the same version changes nothing either.
	r.SetRESTTasks("", []domain.Task{{ID: "T1", Status: domain.TaskDone, UpdatedAt: t0.Add(time.Second)}}, t0.Add(time.Second))
	assert.Equal(t, once, r.Tasks())
}

func TestReconciler_PatchOnlyUpdate(t *testing.T) {
	r := NewReconciler()
	r.SetRESTTasks("", []domain.Task{{ID: "T1", Title: "old", Status: domain.TaskTodo, UpdatedAt: t0}}, t0.Add(time.Second))

	title := "new"
	require.NoError(t, r.Handle(envelope(t, domain.EventTaskUpdated, domain.TaskUpdated{
		TaskID:    "T1",
		Updates:   domain.TaskPatch{Title: &title},
		Timestamp: t0.Add(time.Minute),
	})))
	got, ok := r.Task("T1")
	require.True(t, ok)
	assert.Equal(t, "new", got.Title)
	assert.Equal(t, domain.TaskTodo, got.Status)
}

func TestReconciler_DeleteHidesFromSnapshot(t *testing.T) {
	r := NewReconciler()
	r.SetRESTTasks("", []domain.Task{{ID: "T1", UpdatedAt: t0}}, t0.Add(time.Second))

	require.NoError(t, r.Handle(envelope(t, domain.EventTaskDeleted, domain.TaskDeleted{TaskID: "T1", Timestamp: t0.Add(time.Second)})))
	assert.Empty(t, r.Tasks())
}

func TestReconciler_UserScopedEvents(t *testing.T) {
	r := NewReconciler()

	require.NoError(t, r.Handle(envelope(t, domain.EventStatsUpdate, domain.TaskStats{TotalTasks: 6, CompletedTasks: 1, InProgressTasks: 2, TodoTasks: 3})))
	stats, ok := r.Stats()
	require.True(t, ok)
	assert.Equal(t, 6, stats.TotalTasks)

	require.NoError(t, r.Handle(envelope(t, domain.EventNotificationsLoad, domain.NotificationsLoad{
		Notifications: []domain.Notification{{ID: "n1"}, {ID: "n2"}},
	})))
	require.NoError(t, r.Handle(envelope(t, domain.EventNotificationAck, domain.NotificationAck{NotificationID: "n1"})))
	require.Len(t, r.Notifications(), 1)
	assert.Equal(t, domain.NotificationID("n2"), r.Notifications()[0].ID)

	require.NoError(t, r.Handle(envelope(t, domain.EventUserPresence, domain.PresenceEvent{UserID: "u-b", Status: domain.PresenceOnline})))
	assert.True(t, r.Online("u-b"))
	require.NoError(t, r.Handle(envelope(t, domain.EventUserPresence, domain.PresenceEvent{UserID: "u-b", Status: domain.PresenceOffline})))
	assert.False(t, r.Online("u-b"))

	require.NoError(t, r.Handle(envelope(t, domain.EventError, domain.ErrorEvent{Message: "nope", Code: "not_found", Event: "task:update"})))
	e, ok := r.LastError()
	require.True(t, ok)
	assert.Equal(t, "not_found", e.Code)
}

func TestReconciler_RejectsUnknownAndMalformed(t *testing.T) {
	r := NewReconciler()
	assert.Error(t, r.Handle(domain.Envelope{Event: "task:teleported"}))
	assert.Error(t, r.Handle(domain.Envelope{Event: domain.EventTaskCreated, Data: json.RawMessage(`"oops"`)}))
	assert.NoError(t, r.Handle(envelope(t, domain.EventUserTyping, domain.TypingEvent{UserID: "u"})))
	assert.Empty(t, r.Tasks())
}

func TestReconciler_ProjectsAndReset(t *testing.T) {
	r := NewReconciler()
	assert.Equal(t, StatusPaused, r.Status())

	r.SetRESTProjects([]domain.Project{{ID: "P1"}})
	assert.Len(t, r.Projects(), 1)
	r.UpsertProject(domain.Project{ID: "P2", UpdatedAt: t0})
	assert.Len(t, r.Projects(), 1, "realtime cache preferred once non-empty")

	r.Reset()
	assert.Empty(t, r.Projects())
	assert.Empty(t, r.Tasks())
}

// A lost task:deleted frame is repaired by the next REST refetch.
func TestReconciler_RefetchDropsMissingTasks(t *testing.T) {
	r := NewReconciler()
	r.SetRESTTasks("", []domain.Task{
		{ID: "T1", ProjectID: "P1", UpdatedAt: t0},
		{ID: "T2", ProjectID: "P1", UpdatedAt: t0},
		{ID: "T3", ProjectID: "P2", UpdatedAt: t0},
	}, t0)
	require.NoError(t, r.Handle(envelope(t, domain.EventTaskUpdated, domain.TaskUpdated{
		TaskID: "T1",
		Task:   domain.Task{ID: "T1", ProjectID: "P1", Title: "newer", UpdatedAt: t0.Add(time.Second)},
	})))
	// Created while the refetch was in flight.
	require.NoError(t, r.Handle(envelope(t, domain.EventTaskCreated, domain.TaskCreated{
		Task: domain.Task{ID: "T4", ProjectID: "P1", UpdatedAt: t0.Add(3 * time.Second)},
	})))
	require.Len(t, r.Tasks(), 4)

	fetchedAt := t0.Add(2 * time.Second)
	r.SetRESTTasks("P1", []domain.Task{{ID: "T1", ProjectID: "P1", Title: "newer", UpdatedAt: t0.Add(time.Second)}}, fetchedAt)

	var ids []domain.TaskID
	for _, task := range r.Tasks() {
		ids = append(ids, task.ID)
	}
	assert.Equal(t, []domain.TaskID{"T1", "T3", "T4"}, ids, "T2 gone, other project and newer task kept")

	// A late duplicate of the old T2 does not bring it back.
	require.NoError(t, r.Handle(envelope(t, domain.EventTaskCreated, domain.TaskCreated{
		Task: domain.Task{ID: "T2", ProjectID: "P1", UpdatedAt: t0},
	})))
	_, ok := r.Task("T2")
	assert.False(t, ok)
	assert.Len(t, r.Tasks(), 3)
}
