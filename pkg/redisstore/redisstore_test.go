package redisstore_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featurekit/pkg/flags"
	"github.com/dmitrymomot/featurekit/pkg/redisstore"
)

type fakeKV struct {
	mu      sync.Mutex
	data    map[string]string
	ttl     map[string]time.Duration
	failGet error
	failSet error
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (f *fakeKV) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failGet != nil {
		return redis.NewStringResult("", f.failGet)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeKV) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failSet != nil {
		return redis.NewStatusResult("", f.failSet)
	}
	f.data[key] = string(value.([]byte))
	f.ttl[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func testSnapshot() *flags.Snapshot {
	rollout := 50.0
	return flags.NewSnapshot(
		[]flags.Definition{{
			ID:     7,
			Key:    "beta",
			Active: true,
			Filters: flags.Filters{
				Groups: []flags.ConditionGroup{{RolloutPercentage: &rollout}},
			},
		}},
		nil,
		map[string]string{"0": "company"},
	)
}

func TestSnapshotStore(t *testing.T) {
	t.Parallel()

	t.Run("save then load", func(t *testing.T) {
		t.Parallel()

		kv := newFakeKV()
		store := redisstore.NewSnapshotStore(kv, "defs", time.Hour)

		require.NoError(t, store.Save(context.Background(), testSnapshot()))
		assert.Equal(t, time.Hour, kv.ttl["defs"])

		snap, err := store.Load(context.Background())
		require.NoError(t, err)
		require.NotNil(t, snap)

		def, ok := snap.Flag("beta")
		require.True(t, ok)
		assert.Equal(t, int64(7), def.ID)
		require.Len(t, def.Filters.Groups, 1)
		assert.InDelta(t, 50.0, def.Filters.Groups[0].Rollout(), 0)

		name, ok := snap.GroupTypeName(0)
		assert.True(t, ok)
		assert.Equal(t, "company", name)
	})

	t.Run("missing key", func(t *testing.T) {
		t.Parallel()

		store := redisstore.NewSnapshotStore(newFakeKV(), "defs", 0)
		snap, err := store.Load(context.Background())
		assert.NoError(t, err)
		assert.Nil(t, snap)
	})

	t.Run("nil snapshot is not saved", func(t *testing.T) {
		t.Parallel()

		kv := newFakeKV()
		store := redisstore.NewSnapshotStore(kv, "defs", 0)
		require.NoError(t, store.Save(context.Background(), nil))
		assert.Empty(t, kv.data)
	})

	t.Run("backend errors", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		kv := newFakeKV()
		kv.failGet = boom
		kv.failSet = boom
		store := redisstore.NewSnapshotStoreFromConfig(kv, redisstore.Config{SnapshotKey: "defs"})

		err := store.Save(context.Background(), testSnapshot())
		assert.ErrorIs(t, err, redisstore.ErrSaveFailed)
		assert.ErrorIs(t, err, boom)

		_, err = store.Load(context.Background())
		assert.ErrorIs(t, err, redisstore.ErrLoadFailed)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("corrupt payload", func(t *testing.T) {
		t.Parallel()

		kv := newFakeKV()
		kv.data["defs"] = "{not json"
		store := redisstore.NewSnapshotStore(kv, "defs", 0)

		_, err := store.Load(context.Background())
		assert.ErrorIs(t, err, redisstore.ErrLoadFailed)
		assert.ErrorIs(t, err, flags.ErrInvalidDefinitions)
	})
}

func TestConnect(t *testing.T) {
	t.Parallel()

	t.Run("empty url", func(t *testing.T) {
		t.Parallel()

		_, err := redisstore.Connect(context.Background(), redisstore.Config{})
		assert.ErrorIs(t, err, redisstore.ErrEmptyConnectionURL)
	})

	t.Run("invalid url", func(t *testing.T) {
		t.Parallel()

		_, err := redisstore.Connect(context.Background(), redisstore.Config{ConnectionURL: "mysql://nope"})
		assert.ErrorIs(t, err, redisstore.ErrFailedToParseRedisConnString)
	})

	t.Run("unreachable server", func(t *testing.T) {
		t.Parallel()

		_, err := redisstore.Connect(context.Background(), redisstore.Config{
			ConnectionURL:  "redis://127.0.0.1:1/0",
			RetryAttempts:  2,
			RetryInterval:  10 * time.Millisecond,
			ConnectTimeout: 2 * time.Second,
		})
		assert.ErrorIs(t, err, redisstore.ErrRedisNotReady)
	})
}

func TestHealthcheck(t *testing.T) {
	t.Parallel()

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := redisstore.Healthcheck(client)(ctx)
	assert.ErrorIs(t, err, redisstore.ErrHealthcheckFailed)
}
