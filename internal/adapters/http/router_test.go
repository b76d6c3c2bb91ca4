package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aurora-ops/realtime/internal/adapters/signal"
	"github.com/aurora-ops/realtime/internal/app"
	"github.com/aurora-ops/realtime/internal/app/orch"
	"github.com/aurora-ops/realtime/internal/auth"
	"github.com/aurora-ops/realtime/internal/config"
	"github.com/aurora-ops/realtime/internal/domain"
	"github.com/aurora-ops/realtime/internal/store/sqlite"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	router *gin.Engine
	jwt    *auth.JWT
	bus    *app.EventBus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store, err := sqlite.Open(ctx, t.TempDir()+"/aurora.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.AddMembership(ctx, domain.Membership{UserID: "u1", OrganizationID: "o1", Role: domain.RoleMember}))
	require.NoError(t, store.AddMembership(ctx, domain.Membership{UserID: "u1", OrganizationID: "o2", Role: domain.RoleViewer, CreatedAt: time.Now().Add(time.Hour)}))
	_, err = store.CreateProject(ctx, domain.Project{ID: "p1", OrganizationID: "o1", Name: "One"})
	require.NoError(t, err)
	now := time.Now().UTC()
	_, err = store.CreateTask(ctx, domain.Task{ID: "t1", OrganizationID: "o1", ProjectID: "p1", Title: "A", Status: domain.TaskTodo, CreatedBy: "u1", CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)

	jwt, err := auth.NewJWT("secret", "")
	require.NoError(t, err)
	bus := app.NewEventBus()
	t.Cleanup(bus.Close)

	o := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    app.NewRoomManager(),
		Presence: app.NewPresence(nil),
		Policy:   app.SimplePolicy{},
	}
	deps := Deps{
		Orch: o,
		Auth: &app.Authenticator{Verifier: jwt, Memberships: store},
		Tasks: &app.TaskService{
			Tasks: store, Projects: store, Comments: store, Notifications: store,
			Permissions: app.DefaultPermissions(), Bus: bus,
		},
		Notifications: &app.NotificationService{Store: store, Permissions: app.DefaultPermissions()},
		Limiter:       signal.NewRateLimiter(10, time.Second),
	}
	cfg := &config.Config{Mode: "test", Secret: "cookie-secret"}
	gin.SetMode(gin.TestMode)
	return &fixture{router: SetupRouter(ctx, cfg, deps), jwt: jwt, bus: bus}
}

func (f *fixture) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) bearer(t *testing.T, org string) map[string]string {
	tok, err := f.jwt.Issue("u1", "u1@example.com", time.Hour)
	require.NoError(t, err)
	h := map[string]string{"Authorization": "Bearer " + tok}
	if org != "" {
		h["X-Organization-Id"] = org
	}
	return h
}

func TestHealthAndStats(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = f.do(t, http.MethodGet, "/api/stats", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"rooms":0,"connections":0,"users":0,"organizations":0}`, w.Body.String())
}

func TestTasksRequireIdentity(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodGet, "/api/tasks", "", f.bearer(t, "o9"))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListTasks(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/tasks?projectId=p1", "", f.bearer(t, "o1"))
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Tasks []domain.Task `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Tasks, 1)
	assert.Equal(t, domain.TaskID("t1"), body.Tasks[0].ID)

	w = f.do(t, http.MethodGet, "/api/tasks", "", f.bearer(t, "o2"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"tasks":[]}`, w.Body.String())
}

func TestPatchTask_PublishesSameEvent(t *testing.T) {
	f := newFixture(t)
	sub := f.bus.Subscribe(4)

	w := f.do(t, http.MethodPatch, "/api/tasks/t1", `{"status":"in_progress"}`, f.bearer(t, "o1"))
	require.Equal(t, http.StatusOK, w.Code)

	select {
	case msg := <-sub.Receiver:
		ev, ok := app.EventOf(msg)
		require.True(t, ok)
		assert.Equal(t, domain.EventTaskUpdated, ev.Event)
		assert.Equal(t, domain.ProjectID("p1"), ev.ProjectID)
	case <-time.After(time.Second):
		t.Fatal("no event")
	}

	w = f.do(t, http.MethodPatch, "/api/tasks/t1", `{"status":"archived"}`, f.bearer(t, "o1"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPatch, "/api/tasks/t1", `{"status":"done"}`, f.bearer(t, "o2"))
	assert.Equal(t, http.StatusForbidden, w.Code, "viewer role in o2")

	w = f.do(t, http.MethodPatch, "/api/tasks/missing", `{"status":"done"}`, f.bearer(t, "o1"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionOrganization(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPut, "/api/session/organization", `{"organizationId":"o9"}`, f.bearer(t, ""))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPut, "/api/session/organization", `{"organizationId":"o2"}`, f.bearer(t, ""))
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	// Without an explicit header the session's organization applies.
	headers := f.bearer(t, "")
	headers["Cookie"] = cookies[0].Name + "=" + cookies[0].Value
	w = f.do(t, http.MethodGet, "/api/presence", "", headers)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPatch, "/api/tasks/t1", `{"status":"done"}`, headers)
	assert.Equal(t, http.StatusForbidden, w.Code, "session selected o2 where u1 is a viewer")
}
