package prompt

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storesUnderTest(t *testing.T) map[string]StateStore {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	return map[string]StateStore{
		"redis":  NewStateStore(redis.NewClient(&redis.Options{Addr: mr.Addr()})),
		"memory": NewStateStore(nil),
	}
}

func TestStateStore_RoundTrip(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			fresh, err := store.Load(ctx, "client-1", "image")
			require.NoError(t, err)
			assert.Equal(t, "image", fresh.Mode)
			assert.Equal(t, 0, fresh.Selections.Len())

			s := Reduce(fresh, Action{Type: ActionSetBase, Value: "a cat"}, t0)
			s = Reduce(s, Action{Type: ActionSelect, Label: "화풍/스타일", Value: "Anime"}, t0)
			require.NoError(t, store.Save(ctx, "client-1", s))

			loaded, err := store.Load(ctx, "client-1", "image")
			require.NoError(t, err)
			assert.Equal(t, "a cat, Anime", loaded.Prompt)
			assert.Equal(t, s.Selections.Entries(), loaded.Selections.Entries())

			other, err := store.Load(ctx, "client-2", "image")
			require.NoError(t, err)
			assert.Equal(t, "", other.Prompt, "states are per client")

			otherMode, err := store.Load(ctx, "client-1", "writing")
			require.NoError(t, err)
			assert.Equal(t, "", otherMode.Prompt, "states are per mode")
		})
	}
}

func TestRedisStateStore_CorruptValueYieldsFreshState(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	require.NoError(t, mr.Set("builder:c:image", "{not json"))
	store := NewStateStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	s, err := store.Load(context.Background(), "c", "image")
	require.NoError(t, err)
	assert.Equal(t, NewState("image").Prompt, s.Prompt)
}

func TestMemoryStateStore_EvictsBeyondLimit(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStateStore(3, time.Hour)

	for i := 0; i < 10; i++ {
		st := Reduce(NewState("image"), Action{Type: ActionSetBase, Value: fmt.Sprintf("cat %d", i)}, t0)
		require.NoError(t, store.Save(ctx, fmt.Sprintf("client-%d", i), st))
	}
	assert.Equal(t, 3, store.Len())

	oldest, err := store.Load(ctx, "client-0", "image")
	require.NoError(t, err)
	assert.Empty(t, oldest.Prompt, "least recently used form is evicted")

	newest, err := store.Load(ctx, "client-9", "image")
	require.NoError(t, err)
	assert.Equal(t, "cat 9", newest.Prompt)
}

func TestMemoryStateStore_Expires(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStateStore(10, 50*time.Millisecond)

	st := Reduce(NewState("image"), Action{Type: ActionSetBase, Value: "a cat"}, t0)
	require.NoError(t, store.Save(ctx, "client-1", st))

	assert.Eventually(t, func() bool {
		loaded, err := store.Load(ctx, "client-1", "image")
		return err == nil && loaded.Prompt == ""
	}, 2*time.Second, 20*time.Millisecond)
	assert.Eventually(t, func() bool { return store.Len() == 0 }, 2*time.Second, 20*time.Millisecond)
}
