package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aurora-ops/realtime/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SQLite(t *testing.T) {
	s, err := Open(context.Background(), config.Store{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "a.db")})
	require.NoError(t, err)
	assert.NoError(t, s.Close())
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.Store{Driver: "postgres"})
	assert.Error(t, err)
}
