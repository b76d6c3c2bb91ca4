package client

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aurora-ops/realtime/internal/domain"
	"github.com/rs/zerolog/log"
)

type Status string

const (
	StatusConnected  Status = "connected"
	StatusConnecting Status = "connecting"
	// StatusPaused means no organization is selected, so there is nothing to subscribe to.
	StatusPaused Status = "paused"
)

// Reconciler merges the realtime stream with REST snapshots. Readers get
// the realtime view when it holds anything and the last REST snapshot
// otherwise, also while the socket is reconnecting.
type Reconciler struct {
	tasks    *Cache[domain.TaskID, domain.Task]
	projects *Cache[domain.ProjectID, domain.Project]

	mu            sync.RWMutex
	status        Status
	restTasks     []domain.Task
	restProjects  []domain.Project
	stats         *domain.TaskStats
	assigned      []domain.Task
	notifications []domain.Notification
	feed          []domain.NotificationNew
	online        map[domain.UserID]bool
	lastError     *domain.ErrorEvent
}

func NewReconciler() *Reconciler {
	return &Reconciler{
		tasks: NewCache(
			func(t domain.Task) domain.TaskID { return t.ID },
			func(t domain.Task) time.Time { return t.UpdatedAt },
		),
		projects: NewCache(
			func(p domain.Project) domain.ProjectID { return p.ID },
			func(p domain.Project) time.Time { return p.UpdatedAt },
		),
		status: StatusPaused,
		online: make(map[domain.UserID]bool),
	}
}

func (r *Reconciler) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

func (r *Reconciler) SetStatus(s Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = s
}

// Reset drops everything tied to the current organization.
func (r *Reconciler) Reset() {
	r.tasks.Reset()
	r.projects.Reset()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.restTasks = nil
	r.restProjects = nil
	r.stats = nil
	r.assigned = nil
	r.notifications = nil
	r.feed = nil
	r.online = make(map[domain.UserID]bool)
	r.lastError = nil
}

// Tasks prefers the realtime cache, else the last REST snapshot.
func (r *Reconciler) Tasks() []domain.Task {
	if r.tasks.Len() > 0 {
		return r.tasks.List()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Task, 0, len(r.restTasks))
	for _, t := range r.restTasks {
		if !r.tasks.Buried(t) {
			out = append(out, t)
		}
	}
	return out
}

func (r *Reconciler) Projects() []domain.Project {
	if r.projects.Len() > 0 {
		return r.projects.List()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Project(nil), r.restProjects...)
}

func (r *Reconciler) Task(id domain.TaskID) (domain.Task, bool) {
	if t, ok := r.tasks.Get(id); ok {
		return t, true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.restTasks {
		if t.ID == id && !r.tasks.Buried(t) {
			return t, true
		}
	}
	return domain.Task{}, false
}

// seedTasks copies the REST snapshot into an empty realtime cache before
// the first realtime change lands, so one event does not hide the rest.
func (r *Reconciler) seedTasks() {
	if r.tasks.Len() > 0 {
		return
	}
	r.mu.RLock()
	snapshot := append([]domain.Task(nil), r.restTasks...)
	r.mu.RUnlock()
	for _, t := range snapshot {
		r.tasks.Upsert(t)
	}
}

// ApplyTask merges a task returned by a REST mutation.
func (r *Reconciler) ApplyTask(t domain.Task) bool {
	r.seedTasks()
	return r.tasks.Upsert(t)
}

// SetRESTTasks records a REST snapshot of the organization's tasks, or of
// one project's when projectID is set. Entities already known to the
// realtime cache are merged by last-write-wins. Cached tasks in scope that
// the snapshot lacks were deleted behind our back and are buried at
// fetchedAt, unless they changed after the fetch began.
func (r *Reconciler) SetRESTTasks(projectID domain.ProjectID, tasks []domain.Task, fetchedAt time.Time) {
	r.mu.Lock()
	r.restTasks = append([]domain.Task(nil), tasks...)
	r.mu.Unlock()
	if r.tasks.Len() == 0 {
		return
	}
	present := make(map[domain.TaskID]struct{}, len(tasks))
	for _, t := range tasks {
		present[t.ID] = struct{}{}
		r.tasks.Upsert(t)
	}
	for _, t := range r.tasks.List() {
		if _, ok := present[t.ID]; ok {
			continue
		}
		if projectID != "" && t.ProjectID != projectID || t.UpdatedAt.After(fetchedAt) {
			continue
		}
		r.tasks.Delete(t.ID, fetchedAt)
	}
}

// SetRESTProjects records a REST snapshot of projects. The server emits no
// project events, so this is the only source for them.
func (r *Reconciler) SetRESTProjects(projects []domain.Project) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.restProjects = append([]domain.Project(nil), projects...)
}

// UpsertProject merges a project the client itself created or fetched.
func (r *Reconciler) UpsertProject(p domain.Project) bool {
	return r.projects.Upsert(p)
}

func (r *Reconciler) Stats() (domain.TaskStats, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.stats == nil {
		return domain.TaskStats{}, false
	}
	return *r.stats, true
}

func (r *Reconciler) AssignedTasks() []domain.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Task(nil), r.assigned...)
}

func (r *Reconciler) Notifications() []domain.Notification {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Notification(nil), r.notifications...)
}

func (r *Reconciler) Feed() []domain.NotificationNew {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.NotificationNew(nil), r.feed...)
}

func (r *Reconciler) Online(user domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.online[user]
}

func (r *Reconciler) LastError() (domain.ErrorEvent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.lastError == nil {
		return domain.ErrorEvent{}, false
	}
	return *r.lastError, true
}

// Handle applies one server frame. Each event has a fixed payload schema;
// a frame that does not decode into it is rejected without touching state.
func (r *Reconciler) Handle(env domain.Envelope) error {
	switch env.Event {
	case domain.EventTaskCreated:
		var p domain.TaskCreated
		if err := decode(env, &p); err != nil {
			return err
		}
		r.seedTasks()
		r.tasks.Upsert(p.Task)

	case domain.EventTaskUpdated:
		var p domain.TaskUpdated
		if err := decode(env, &p); err != nil {
			return err
		}
		r.seedTasks()
		r.applyUpdate(p)

	case domain.EventTaskDeleted:
		var p domain.TaskDeleted
		if err := decode(env, &p); err != nil {
			return err
		}
		r.seedTasks()
		r.tasks.Delete(p.TaskID, p.Timestamp)

	case domain.EventStatsUpdate:
		var p domain.TaskStats
		if err := decode(env, &p); err != nil {
			return err
		}
		r.mu.Lock()
		r.stats = &p
		r.mu.Unlock()

	case domain.EventTasksLoaded:
		var p domain.TasksLoaded
		if err := decode(env, &p); err != nil {
			return err
		}
		r.mu.Lock()
		r.assigned = p.Tasks
		r.mu.Unlock()

	case domain.EventNotificationsLoad:
		var p domain.NotificationsLoad
		if err := decode(env, &p); err != nil {
			return err
		}
		r.mu.Lock()
		r.notifications = p.Notifications
		r.mu.Unlock()

	case domain.EventNotificationNew:
		var p domain.NotificationNew
		if err := decode(env, &p); err != nil {
			return err
		}
		r.mu.Lock()
		r.feed = append(r.feed, p)
		r.mu.Unlock()

	case domain.EventNotificationAck:
		var p domain.NotificationAck
		if err := decode(env, &p); err != nil {
			return err
		}
		r.mu.Lock()
		kept := r.notifications[:0]
		for _, n := range r.notifications {
			if n.ID != p.NotificationID {
				kept = append(kept, n)
			}
		}
		r.notifications = kept
		r.mu.Unlock()

	case domain.EventUserPresence:
		var p domain.PresenceEvent
		if err := decode(env, &p); err != nil {
			return err
		}
		r.mu.Lock()
		r.online[p.UserID] = p.Status == domain.PresenceOnline
		r.mu.Unlock()

	case domain.EventError:
		var p domain.ErrorEvent
		if err := decode(env, &p); err != nil {
			return err
		}
		log.Warn().Str("module", "client").Str("code", p.Code).Str("event", p.Event).Msg(p.Message)
		r.mu.Lock()
		r.lastError = &p
		r.mu.Unlock()

	case domain.EventTaskCommentAdded, domain.EventUserJoined, domain.EventUserLeft,
		domain.EventUserTyping, domain.EventUserStopTyping, domain.EventPong:
		// Not cached.

	default:
		return fmt.Errorf("unknown event %q", env.Event)
	}
	return nil
}

// applyUpdate prefers the full task carried by the event and falls back to
// patching the known version.
func (r *Reconciler) applyUpdate(p domain.TaskUpdated) {
	if p.Task.ID != "" {
		r.tasks.Upsert(p.Task)
		return
	}
	base, ok := r.Task(p.TaskID)
	if !ok {
		return
	}
	next := p.Updates.Apply(base)
	next.UpdatedAt = p.Timestamp
	r.tasks.Upsert(next)
}

func decode(env domain.Envelope, v any) error {
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("decode %s: %w", env.Event, err)
	}
	return nil
}
