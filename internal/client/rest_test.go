package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aurora-ops/realtime/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restServer(t *testing.T, refetches *atomic.Int32) *httptest.Server {
	t.Helper()
	updated := domain.Task{ID: "T1", ProjectID: "P1", Title: "shipped", Status: domain.TaskDone, UpdatedAt: t0.Add(time.Minute)}
	other := domain.Task{ID: "T2", ProjectID: "P1", Title: "other", Status: domain.TaskTodo, UpdatedAt: t0}

	mux := http.NewServeMux()
	mux.HandleFunc("PATCH /api/tasks/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "o1", r.Header.Get("X-Organization-Id"))
		if r.PathValue("id") != "T1" {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "task not found", "code": "not_found"})
			return
		}
		var patch domain.TaskPatch
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&patch)) && assert.NotNil(t, patch.Status) {
			assert.Equal(t, domain.TaskDone, *patch.Status)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"task": updated})
	})
	mux.HandleFunc("GET /api/tasks", func(w http.ResponseWriter, r *http.Request) {
		refetches.Add(1)
		assert.Equal(t, "P1", r.URL.Query().Get("projectId"))
		_ = json.NewEncoder(w).Encode(map[string]any{"tasks": []domain.Task{updated, other}})
	})
	return httptest.NewServer(mux)
}

func TestREST_UpdateTaskAppliesAndRefetches(t *testing.T) {
	var refetches atomic.Int32
	ts := restServer(t, &refetches)
	defer ts.Close()

	rec := NewReconciler()
	rec.SetRESTTasks("P1", []domain.Task{{ID: "T1", ProjectID: "P1", Title: "shipping", Status: domain.TaskInProgress, UpdatedAt: t0}}, t0)
	r := &REST{BaseURL: ts.URL, Token: "tok", OrganizationID: "o1", Timeout: time.Second, Rec: rec}

	done := domain.TaskDone
	got, err := r.UpdateTask(context.Background(), "T1", domain.TaskPatch{Status: &done})
	require.NoError(t, err)
	assert.Equal(t, "shipped", got.Title)
	assert.Equal(t, int32(1), refetches.Load())

	tasks := rec.Tasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, domain.TaskDone, tasks[0].Status)
	assert.Equal(t, domain.TaskID("T2"), tasks[1].ID)

	// The broadcast of the same update arriving late changes nothing.
	late := envelope(t, domain.EventTaskUpdated, domain.TaskUpdated{TaskID: "T1", Task: got, Timestamp: got.UpdatedAt})
	require.NoError(t, rec.Handle(late))
	assert.Equal(t, tasks, rec.Tasks())
}

func TestREST_UpdateTaskError(t *testing.T) {
	var refetches atomic.Int32
	ts := restServer(t, &refetches)
	defer ts.Close()

	r := &REST{BaseURL: ts.URL, Token: "tok", OrganizationID: "o1", Rec: NewReconciler()}
	done := domain.TaskDone
	_, err := r.UpdateTask(context.Background(), "T404", domain.TaskPatch{Status: &done})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not_found")
	assert.Zero(t, refetches.Load(), "no refetch after a failed mutation")
}
