package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisstore "github.com/hyuricane/redchat/internal/redis"
	"github.com/hyuricane/redchat/pkg/logger"
)

func setupStore(t *testing.T) *redisstore.Client {
	t.Helper()
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		t.Skip("REDIS_URL not set, skipping integration tests")
	}

	ctx := logger.NewContext(context.Background(), logger.NewLogger("error"))
	store, err := redisstore.NewClient(ctx, redisURL)
	require.NoError(t, err)
	require.NoError(t, store.FlushAll(context.Background()))

	t.Cleanup(func() {
		store.FlushAll(context.Background())
		store.Close()
	})
	return store
}

func TestStoreKeyOperations(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	created, err := store.SetNX(ctx, "k", "v1")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.SetNX(ctx, "k", "v2")
	require.NoError(t, err)
	assert.False(t, created)

	val, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v1", val)

	_, ok, err = store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStorePushTrim(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	for _, v := range []string{"1", "2", "3", "4", "5"} {
		require.NoError(t, store.PushTrim(ctx, "log", v, 3))
	}

	entries, err := store.LRange(ctx, "log", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"5", "4", "3"}, entries)
}

func TestStoreExpireAndPersist(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "doomed", "x"))
	require.NoError(t, store.Set(ctx, "saved", "x"))
	require.NoError(t, store.Expire(ctx, time.Second, "doomed", "saved"))
	require.NoError(t, store.Persist(ctx, "saved"))

	require.Eventually(t, func() bool {
		_, ok, err := store.Get(ctx, "doomed")
		return err == nil && !ok
	}, 3*time.Second, 100*time.Millisecond)

	_, ok, err := store.Get(ctx, "saved")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStorePubSubMultiplexing(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	chanA := make(chan string, 4)
	chanB := make(chan string, 4)

	subA, err := store.Subscribe(ctx, "room:a", func(payload string) { chanA <- payload })
	require.NoError(t, err)
	_, err = store.Subscribe(ctx, "room:b", func(payload string) { chanB <- payload })
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond) // let the subscriptions settle

	require.NoError(t, store.Publish(ctx, "room:a", "for-a"))
	require.NoError(t, store.Publish(ctx, "room:b", "for-b"))

	select {
	case got := <-chanA:
		assert.Equal(t, "for-a", got)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber on room:a received nothing")
	}
	select {
	case got := <-chanB:
		assert.Equal(t, "for-b", got)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber on room:b received nothing")
	}

	require.NoError(t, subA.Unsubscribe(ctx))
	require.NoError(t, store.Publish(ctx, "room:a", "ignored"))
	select {
	case got := <-chanA:
		t.Fatalf("unsubscribed channel received %q", got)
	case <-time.After(300 * time.Millisecond):
	}
}
