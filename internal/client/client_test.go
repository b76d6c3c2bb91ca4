package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aurora-ops/realtime/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frame struct {
	conn int
	env  domain.Envelope
}

// socketServer drops its first connection after two frames so the client
// has to reconnect.
type socketServer struct {
	mu     sync.Mutex
	conns  int
	orgs   []string
	frames chan frame
}

func (s *socketServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer tok" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	up := websocket.Upgrader{}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.mu.Lock()
	s.conns++
	n := s.conns
	s.orgs = append(s.orgs, r.URL.Query().Get("organizationId"))
	s.mu.Unlock()

	if n == 1 {
		created, _ := domain.NewEnvelope(domain.EventTaskCreated, domain.TaskCreated{
			Task: domain.Task{ID: "T1", ProjectID: "P1", Title: "from socket", UpdatedAt: t0},
		})
		_ = conn.WriteMessage(websocket.TextMessage, created)
	}
	for i := 0; n > 1 || i < 2; i++ {
		var env domain.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			return
		}
		s.frames <- frame{conn: n, env: env}
	}
}

func receive(t *testing.T, ch <-chan frame) frame {
	t.Helper()
	select {
	case f := <-ch:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
		return frame{}
	}
}

func TestClient_ReconnectReplaysSubscriptions(t *testing.T) {
	srv := &socketServer{frames: make(chan frame, 16)}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	rec := NewReconciler()
	c := New(Options{
		URL:            "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws",
		Token:          "tok",
		OrganizationID: "o1",
		MinBackoff:     10 * time.Millisecond,
		MaxBackoff:     50 * time.Millisecond,
	}, rec)

	// Recorded while offline, sent once connected.
	assert.ErrorIs(t, c.Emit(domain.EventPing, nil), ErrNotConnected)
	c.JoinProject("P1")
	c.SubscribeStats()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	for _, conn := range []int{1, 2} {
		join := receive(t, srv.frames)
		assert.Equal(t, conn, join.conn)
		assert.Equal(t, domain.EventJoinProject, join.env.Event)
		var p domain.ProjectPayload
		require.NoError(t, json.Unmarshal(join.env.Data, &p))
		assert.Equal(t, domain.ProjectID("P1"), p.ProjectID)

		stats := receive(t, srv.frames)
		assert.Equal(t, conn, stats.conn)
		assert.Equal(t, domain.EventStatsSubscribe, stats.env.Event)
	}

	require.Eventually(t, func() bool { return rec.Status() == StatusConnected }, 2*time.Second, 10*time.Millisecond)
	task, ok := rec.Task("T1")
	require.True(t, ok)
	assert.Equal(t, "from socket", task.Title)

	c.LeaveProject("P1")
	leave := receive(t, srv.frames)
	assert.Equal(t, domain.EventLeaveProject, leave.env.Event)

	srv.mu.Lock()
	assert.Equal(t, []string{"o1", "o1"}, srv.orgs)
	srv.mu.Unlock()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestClient_PausedWithoutOrganization(t *testing.T) {
	rec := NewReconciler()
	rec.SetStatus(StatusConnected)
	c := New(Options{URL: "ws://127.0.0.1:1/ws", Token: "tok"}, rec)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return rec.Status() == StatusPaused }, time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

func TestClient_RejectedHandshakeKeepsRetrying(t *testing.T) {
	srv := &socketServer{frames: make(chan frame, 1)}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	rec := NewReconciler()
	c := New(Options{
		URL:            "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws",
		Token:          "wrong",
		OrganizationID: "o1",
		MinBackoff:     5 * time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
	}, rec)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.NoError(t, c.Run(ctx))
	assert.Equal(t, StatusConnecting, rec.Status())

	srv.mu.Lock()
	assert.Zero(t, srv.conns)
	srv.mu.Unlock()
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, nextBackoff(time.Second, 10*time.Second))
	assert.Equal(t, 10*time.Second, nextBackoff(8*time.Second, 10*time.Second))
}
