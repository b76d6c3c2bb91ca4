package backplane

import (
	"context"
	"testing"
	"time"

	"github.com/aurora-ops/realtime/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SelectsNoop(t *testing.T) {
	for _, driver := range []string{"", "none"} {
		bp, err := New(config.Backplane{Driver: driver})
		require.NoError(t, err)
		assert.IsType(t, Noop{}, bp)
	}
}

func TestNew_RejectsUnknownDriver(t *testing.T) {
	_, err := New(config.Backplane{Driver: "kafka"})
	assert.Error(t, err)
}

func TestNoop_SubscribeReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Noop{}.Subscribe(ctx, func(Envelope) {}) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("subscribe did not return")
	}
}

func TestDecode(t *testing.T) {
	env, err := decode([]byte(`{"node":"n1","room":"project:p1","frame":{"event":"pong"},"except":["c1"]}`))
	require.NoError(t, err)
	assert.Equal(t, "n1", env.Node)
	assert.EqualValues(t, "project:p1", env.Room)
	assert.JSONEq(t, `{"event":"pong"}`, string(env.Frame))
	assert.Len(t, env.Except, 1)

	_, err = decode([]byte("not json"))
	assert.Error(t, err)
}
