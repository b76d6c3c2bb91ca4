package domain

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomKeys(t *testing.T) {
	assert.Equal(t, RoomKey("org:o1"), OrgRoom("o1"))
	assert.Equal(t, RoomKey("project:p1"), ProjectRoom("p1"))
	assert.Equal(t, RoomKey("stats:u1@o1"), StatsRoom("o1", "u1"))
	assert.Equal(t, RoomKey("user-tasks:u1@o1"), UserTasksRoom("o1", "u1"))
	assert.NotEqual(t, StatsRoom("o1", "u1"), StatsRoom("o2", "u1"))
}

func TestStatsFromCounts(t *testing.T) {
	s := StatsFromCounts(map[TaskStatus]int{TaskTodo: 3, TaskInProgress: 2, TaskDone: 1})
	assert.Equal(t, TaskStats{TotalTasks: 6, CompletedTasks: 1, InProgressTasks: 2, TodoTasks: 3}, s)

	assert.Equal(t, TaskStats{}, StatsFromCounts(nil))
}

func TestTaskPatch(t *testing.T) {
	done := TaskDone
	title := "renamed"
	p := TaskPatch{Status: &done, Title: &title}
	assert.False(t, p.Empty())
	assert.True(t, TaskPatch{}.Empty())

	got := p.Apply(Task{ID: "t1", Title: "old", Status: TaskTodo, Priority: "high"})
	assert.Equal(t, TaskDone, got.Status)
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, "high", got.Priority)

	b, err := json.Marshal(TaskPatch{Status: &done})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"done"}`, string(b))
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("verify: %w", ErrAuthentication), "unauthenticated"},
		{ErrAuthorization, "forbidden"},
		{ErrForbidden, "forbidden"},
		{fmt.Errorf("task t1: %w", ErrNotFound), "not_found"},
		{ErrInvalidPayload, "bad_payload"},
		{ErrRateLimited, "rate_limited"},
		{fmt.Errorf("disk on fire"), "internal"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorCode(tt.err), tt.err.Error())
	}
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer  abc "))
	assert.Equal(t, "abc", BearerToken("abc"))
	assert.Equal(t, "", BearerToken(""))
}

func TestNewEnvelope(t *testing.T) {
	b, err := NewEnvelope(EventError, ErrorEvent{Message: "boom", Code: "internal"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"error","data":{"message":"boom","code":"internal"}}`, string(b))

	b, err = NewEnvelope(EventPong, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"pong"}`, string(b))
}
