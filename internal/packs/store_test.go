package packs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/buzzer-backend/internal/content"
)

// stepClock advances a fixed step on every read so saves get distinct,
// ordered timestamps.
type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2025, 4, 5, 10, 0, 0, 0, time.UTC), step: time.Second}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}

// testStoreContract exercises the behaviour every Store must share.
func testStoreContract(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("save and get", func(t *testing.T) {
		saved, err := store.Save(ctx, &SaveInput{Name: "  Movies night ", GameData: content.Fallback()})
		require.NoError(t, err)
		assert.NotEmpty(t, saved.ID)
		assert.Equal(t, "Movies night", saved.Name)

		got, err := store.Get(ctx, &GetInput{ID: saved.ID})
		require.NoError(t, err)
		assert.Equal(t, saved.Name, got.Name)
		assert.True(t, saved.CreatedAt.Equal(got.CreatedAt))
		assert.Equal(t, content.Fallback(), got.GameData)
	})

	t.Run("get unknown", func(t *testing.T) {
		_, err := store.Get(ctx, &GetInput{ID: "does-not-exist"})
		assert.ErrorIs(t, err, ErrPackNotFound)
	})

	t.Run("save rejects invalid input", func(t *testing.T) {
		_, err := store.Save(ctx, &SaveInput{Name: "", GameData: content.Fallback()})
		assert.ErrorIs(t, err, ErrInvalidPack)

		_, err = store.Save(ctx, &SaveInput{Name: "no content"})
		assert.ErrorIs(t, err, ErrInvalidPack)
		assert.ErrorIs(t, err, content.ErrMissingRounds)
	})

	t.Run("list newest first then delete", func(t *testing.T) {
		before, err := store.List(ctx, &ListInput{})
		require.NoError(t, err)

		first, err := store.Save(ctx, &SaveInput{Name: "first", GameData: content.Fallback()})
		require.NoError(t, err)
		second, err := store.Save(ctx, &SaveInput{Name: "second", GameData: content.Fallback()})
		require.NoError(t, err)

		out, err := store.List(ctx, &ListInput{})
		require.NoError(t, err)
		require.Len(t, out.Packs, len(before.Packs)+2)
		assert.Equal(t, second.ID, out.Packs[0].ID)
		assert.Equal(t, first.ID, out.Packs[1].ID)
		assert.Equal(t, len(content.Fallback().Rounds), out.Packs[0].Rounds)

		require.NoError(t, store.Delete(ctx, &DeleteInput{ID: first.ID}))
		assert.ErrorIs(t, store.Delete(ctx, &DeleteInput{ID: first.ID}), ErrPackNotFound)

		_, err = store.Get(ctx, &GetInput{ID: first.ID})
		assert.ErrorIs(t, err, ErrPackNotFound)

		out, err = store.List(ctx, &ListInput{})
		require.NoError(t, err)
		assert.Len(t, out.Packs, len(before.Packs)+1)
	})
}

func TestMemoryStore(t *testing.T) {
	testStoreContract(t, NewMemory(newStepClock()))
}

func TestMemoryStore_EmptyList(t *testing.T) {
	out, err := NewMemory(nil).List(context.Background(), &ListInput{})
	require.NoError(t, err)
	assert.NotNil(t, out.Packs)
	assert.Empty(t, out.Packs)
}
