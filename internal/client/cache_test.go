package client

import (
	"math/rand"
	"testing"
	"time"

	"github.com/aurora-ops/realtime/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTaskCache() *Cache[domain.TaskID, domain.Task] {
	return NewCache(
		func(t domain.Task) domain.TaskID { return t.ID },
		func(t domain.Task) time.Time { return t.UpdatedAt },
	)
}

var t0 = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

func TestCache_LastWriteWins(t *testing.T) {
	c := newTaskCache()

	assert.True(t, c.Upsert(domain.Task{ID: "T1", Title: "v2", UpdatedAt: t0.Add(2 * time.Second)}))
	assert.False(t, c.Upsert(domain.Task{ID: "T1", Title: "v1", UpdatedAt: t0.Add(time.Second)}), "older write ignored")

	got, ok := c.Get("T1")
	require.True(t, ok)
	assert.Equal(t, "v2", got.Title)
}

func TestCache_TombstoneBlocksResurrection(t *testing.T) {
	c := newTaskCache()
	c.Upsert(domain.Task{ID: "T1", UpdatedAt: t0})

	assert.True(t, c.Delete("T1", t0.Add(time.Second)))
	assert.False(t, c.Upsert(domain.Task{ID: "T1", UpdatedAt: t0}), "stale upsert after delete")
	assert.True(t, c.Buried(domain.Task{ID: "T1", UpdatedAt: t0}))
	assert.Equal(t, 0, c.Len())

	assert.True(t, c.Upsert(domain.Task{ID: "T1", UpdatedAt: t0.Add(2 * time.Second)}), "newer write after delete")
}

func TestCache_ListOrderedByID(t *testing.T) {
	c := newTaskCache()
	c.Upsert(domain.Task{ID: "b"})
	c.Upsert(domain.Task{ID: "a"})
	c.Upsert(domain.Task{ID: "c"})

	var ids []domain.TaskID
	for _, task := range c.List() {
		ids = append(ids, task.ID)
	}
	assert.Equal(t, []domain.TaskID{"a", "b", "c"}, ids)
}

// Any delivery order with duplicates converges to the newest version.
func TestCache_DuplicatesAndReorderingConverge(t *testing.T) {
	versions := []domain.Task{
		{ID: "T1", Status: domain.TaskTodo, UpdatedAt: t0},
		{ID: "T1", Status: domain.TaskInProgress, UpdatedAt: t0.Add(time.Second)},
		{ID: "T1", Status: domain.TaskDone, UpdatedAt: t0.Add(2 * time.Second)},
	}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		deliveries := append(append([]domain.Task{}, versions...), versions...)
		rng.Shuffle(len(deliveries), func(a, b int) { deliveries[a], deliveries[b] = deliveries[b], deliveries[a] })

		c := newTaskCache()
		for _, v := range deliveries {
			c.Upsert(v)
		}
		got, _ := c.Get("T1")
		assert.Equal(t, domain.TaskDone, got.Status)
	}
}
